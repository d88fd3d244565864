package source

import "fmt"

// Span is a half-open byte range inside one file.
type Span struct {
	Start uint32 // inclusive
	End   uint32 // exclusive
}

// Empty reports whether the span covers no bytes.
func (s Span) Empty() bool {
	return s.Start == s.End
}

// Len returns the span width in bytes.
func (s Span) Len() uint32 {
	return s.End - s.Start
}

func (s Span) String() string {
	return fmt.Sprintf("%d-%d", s.Start, s.End)
}

// Cover returns the smallest span containing both s and other.
func (s Span) Cover(other Span) Span {
	if other.Start < s.Start {
		s.Start = other.Start
	}
	if other.End > s.End {
		s.End = other.End
	}
	return s
}

// Contains reports whether off lies inside the span or at its end.
func (s Span) Contains(off uint32) bool {
	return s.Start <= off && off <= s.End
}

// Location ties a span to the file it came from.
type Location struct {
	Path string
	Span Span
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%s", l.Path, l.Span)
}
