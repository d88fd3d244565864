package intern

import (
	"sync"
	"testing"
)

func TestInternReturnsStableKeys(t *testing.T) {
	in := NewInterner()
	a := in.Intern("web")
	b := in.Intern("mobile")
	if a == b {
		t.Fatalf("distinct strings share key %d", a)
	}
	if again := in.Intern("web"); again != a {
		t.Fatalf("expected key %d, got %d", a, again)
	}
	if got := in.MustLookup(b); got != "mobile" {
		t.Fatalf("unexpected lookup %q", got)
	}
	if in.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", in.Len())
	}
}

func TestInternEmptyStringIsNoKey(t *testing.T) {
	in := NewInterner()
	if got := in.Intern(""); got != NoKey {
		t.Fatalf("expected NoKey, got %d", got)
	}
	if _, ok := in.Lookup(StringKey(42)); ok {
		t.Fatal("expected unknown key lookup to fail")
	}
}

func TestInternConcurrent(t *testing.T) {
	in := NewInterner()
	var wg sync.WaitGroup
	keys := make([]StringKey, 16)
	for i := range keys {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			keys[i] = in.Intern("shared")
		}(i)
	}
	wg.Wait()
	for _, k := range keys {
		if k != keys[0] {
			t.Fatalf("concurrent intern produced %d and %d", keys[0], k)
		}
	}
}

func TestGlobalStringKeyString(t *testing.T) {
	k := Intern("facebook-test")
	if k.String() != "facebook-test" {
		t.Fatalf("unexpected string %q", k.String())
	}
}
