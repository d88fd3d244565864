package diag

import (
	"testing"

	"graft/internal/source"
)

func loc(path string, start, end uint32) source.Location {
	return source.Location{Path: path, Span: source.Span{Start: start, End: end}}
}

func TestBagLimit(t *testing.T) {
	b := NewBag(1)
	if !b.Add(Errorf(SemUnknownField, loc("a", 0, 1), "x")) {
		t.Fatal("expected first add to succeed")
	}
	if b.Add(Errorf(SemUnknownField, loc("a", 2, 3), "y")) {
		t.Fatal("expected limit to reject second add")
	}
	if !b.HasErrors() {
		t.Fatal("expected HasErrors")
	}
}

func TestBagSortAndDedup(t *testing.T) {
	b := NewBag(0)
	b.Add(Errorf(SemUnknownField, loc("b.graphql", 4, 5), "late"))
	b.Add(Errorf(SemUnknownType, loc("a.graphql", 9, 10), "first file"))
	b.Add(Errorf(SemUnknownField, loc("b.graphql", 1, 2), "early"))
	b.Add(Errorf(SemUnknownField, loc("b.graphql", 1, 2), "early again"))
	b.Sort()
	b.Dedup()
	items := b.Items()
	if len(items) != 3 {
		t.Fatalf("expected 3 diagnostics after dedup, got %d", len(items))
	}
	if items[0].Primary.Path != "a.graphql" || items[1].Message != "early" || items[2].Message != "late" {
		t.Fatalf("unexpected order: %v", items)
	}
}

func TestCodeID(t *testing.T) {
	if got := SynUnexpectedToken.ID(); got != "SYN2001" {
		t.Fatalf("unexpected id %q", got)
	}
	if got := Code(9999).Title(); got != "Unknown error" {
		t.Fatalf("unexpected title %q", got)
	}
}
