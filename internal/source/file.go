package source

import (
	"crypto/sha256"
	"sort"
	"unicode/utf8"

	"fortio.org/safecast"
)

const maxUint32 = ^uint32(0)

// Digest is the content hash used for change detection and parse caching.
type Digest [32]byte

// LineCol is a human-readable position.
type LineCol struct {
	Line uint32 // 1-based
	Col  uint32 // 1-based
}

// Position is an editor position: 0-based line and UTF-16 code unit offset.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// File is an immutable source text with a newline index.
type File struct {
	Path    string
	Content []byte
	LineIdx []uint32 // byte offsets of '\n'
	Hash    Digest
}

// NewFile indexes content for path.
func NewFile(path string, content []byte) *File {
	f := &File{
		Path:    path,
		Content: content,
		Hash:    sha256.Sum256(content),
	}
	for i, b := range content {
		if b == '\n' {
			f.LineIdx = append(f.LineIdx, SafeUint32(i))
		}
	}
	return f
}

// NewFileString is NewFile for string content.
func NewFileString(path, content string) *File {
	return NewFile(path, []byte(content))
}

// DigestOf hashes raw content.
func DigestOf(content []byte) Digest {
	return sha256.Sum256(content)
}

// SafeUint32 clamps n into the uint32 range.
func SafeUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		return maxUint32
	}
	return v
}

// Len returns the content length in bytes.
func (f *File) Len() uint32 {
	return SafeUint32(len(f.Content))
}

// LineColAt converts a byte offset to a 1-based line/column (columns in bytes).
func (f *File) LineColAt(off uint32) LineCol {
	if off > f.Len() {
		off = f.Len()
	}
	idx := sort.Search(len(f.LineIdx), func(i int) bool { return f.LineIdx[i] >= off })
	var lineStart uint32
	if idx > 0 {
		lineStart = f.LineIdx[idx-1] + 1
	}
	return LineCol{Line: SafeUint32(idx + 1), Col: off - lineStart + 1}
}

// Resolve converts a span into line and column positions.
func (f *File) Resolve(span Span) (start, end LineCol) {
	return f.LineColAt(span.Start), f.LineColAt(span.End)
}

// GetLine returns line lineNum (1-based) without its newline.
func (f *File) GetLine(lineNum uint32) string {
	if lineNum == 0 {
		return ""
	}
	count := SafeUint32(len(f.LineIdx))
	var start uint32
	switch {
	case lineNum == 1:
		start = 0
	case lineNum-2 < count:
		start = f.LineIdx[lineNum-2] + 1
	default:
		return ""
	}
	end := f.Len()
	if lineNum-1 < count {
		end = f.LineIdx[lineNum-1]
	}
	if start > end {
		return ""
	}
	return string(f.Content[start:end])
}

// OffsetForPosition converts an editor position to a byte offset, clamping
// past-the-end lines and characters.
func (f *File) OffsetForPosition(pos Position) uint32 {
	if pos.Line < 0 || pos.Character < 0 || len(f.Content) == 0 {
		return 0
	}
	if pos.Line > len(f.LineIdx) {
		return f.Len()
	}
	var lineStart uint32
	if pos.Line > 0 {
		lineStart = f.LineIdx[pos.Line-1] + 1
	}
	lineEnd := f.Len()
	if pos.Line < len(f.LineIdx) {
		lineEnd = f.LineIdx[pos.Line]
	}
	units := 0
	off := lineStart
	for off < lineEnd {
		r, size := utf8.DecodeRune(f.Content[off:lineEnd])
		need := 1
		if r > 0xFFFF {
			need = 2
		}
		if units+need > pos.Character {
			break
		}
		units += need
		off += SafeUint32(size)
		if units == pos.Character {
			break
		}
	}
	return off
}

// PositionForOffset converts a byte offset to an editor position.
func (f *File) PositionForOffset(offset uint32) Position {
	if offset > f.Len() {
		offset = f.Len()
	}
	idx := sort.Search(len(f.LineIdx), func(i int) bool { return f.LineIdx[i] >= offset })
	var lineStart uint32
	if idx > 0 {
		lineStart = f.LineIdx[idx-1] + 1
	}
	units := 0
	for off := lineStart; off < offset; {
		r, size := utf8.DecodeRune(f.Content[off:offset])
		if r > 0xFFFF {
			units += 2
		} else {
			units++
		}
		off += SafeUint32(size)
	}
	return Position{Line: idx, Character: units}
}

// Range is an editor range.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// RangeForSpan converts a byte span to an editor range.
func (f *File) RangeForSpan(span Span) Range {
	return Range{
		Start: f.PositionForOffset(span.Start),
		End:   f.PositionForOffset(span.End),
	}
}
