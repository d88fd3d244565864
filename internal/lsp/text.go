package lsp

import "graft/internal/source"

// applyChanges applies content changes in order. Ranges are clamped to the
// current text.
func applyChanges(text string, changes []TextDocumentContentChangeEvent) string {
	for _, change := range changes {
		if change.Range == nil {
			text = change.Text
			continue
		}
		file := source.NewFileString("", text)
		start := int(file.OffsetForPosition(change.Range.Start))
		end := int(file.OffsetForPosition(change.Range.End))
		if end < start {
			end = start
		}
		text = text[:start] + change.Text + text[end:]
	}
	return text
}
