package intern

import (
	"slices"
	"sync"
)

// StringKey is a stable handle for an interned string. The zero key maps to "".
type StringKey uint32

// NoKey is the key of the empty string.
const NoKey StringKey = 0

// Interner maps strings to dense keys and back. Safe for concurrent use.
type Interner struct {
	mu    sync.RWMutex
	byID  []string
	index map[string]StringKey
}

// NewInterner returns an interner holding only the empty string.
func NewInterner() *Interner {
	return &Interner{
		byID:  []string{""},
		index: map[string]StringKey{"": NoKey},
	}
}

// Intern returns the key for s, allocating one on first use.
func (i *Interner) Intern(s string) StringKey {
	i.mu.RLock()
	id, ok := i.index[s]
	i.mu.RUnlock()
	if ok {
		return id
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if id, ok := i.index[s]; ok {
		return id
	}
	// own copy so the key does not pin the caller's buffer
	cpy := string([]byte(s))
	id = StringKey(len(i.byID))
	i.byID = append(i.byID, cpy)
	i.index[cpy] = id
	return id
}

// Lookup returns the string for id.
func (i *Interner) Lookup(id StringKey) (string, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if int(id) >= len(i.byID) {
		return "", false
	}
	return i.byID[id], true
}

// MustLookup is Lookup that panics on an unknown key.
func (i *Interner) MustLookup(id StringKey) string {
	s, ok := i.Lookup(id)
	if !ok {
		panic("intern: invalid string key")
	}
	return s
}

// Len counts interned strings including the empty string.
func (i *Interner) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.byID)
}

// Snapshot returns a copy of all interned strings indexed by key.
func (i *Interner) Snapshot() []string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return slices.Clone(i.byID)
}

var global = NewInterner()

// Intern interns s in the process-wide table.
func Intern(s string) StringKey {
	return global.Intern(s)
}

// String returns the interned text of k from the process-wide table.
func (k StringKey) String() string {
	s, _ := global.Lookup(k)
	return s
}
