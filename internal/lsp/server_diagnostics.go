package lsp

import (
	"graft/internal/diag"
	"graft/internal/source"
)

const diagnosticSource = "graft"

// ToDiagnostic converts d to the wire form and returns the URI it belongs
// to. Spans in files the lookup cannot resolve map to the document start.
func ToDiagnostic(d diag.Diagnostic, files FileLookup) (string, Diagnostic) {
	out := Diagnostic{
		Range:    rangeOf(d.Primary, files),
		Severity: d.Severity.LSP(),
		Code:     d.Code.ID(),
		Source:   diagnosticSource,
		Message:  d.Message,
	}
	for _, note := range d.Notes {
		out.RelatedInformation = append(out.RelatedInformation, DiagnosticRelatedInformation{
			Location: Location{URI: PathToURI(note.Location.Path), Range: rangeOf(note.Location, files)},
			Message:  note.Msg,
		})
	}
	return PathToURI(d.Primary.Path), out
}

func rangeOf(loc source.Location, files FileLookup) Range {
	if files == nil {
		return Range{}
	}
	file, ok := files(loc.Path)
	if !ok || file == nil {
		return Range{}
	}
	return file.RangeForSpan(loc.Span)
}

func groupDiagnostics(diags []diag.Diagnostic, files FileLookup) map[string][]Diagnostic {
	grouped := make(map[string][]Diagnostic)
	for _, d := range diags {
		if d.Primary.Path == "" {
			continue
		}
		uri, out := ToDiagnostic(d, files)
		grouped[uri] = append(grouped[uri], out)
	}
	return grouped
}
