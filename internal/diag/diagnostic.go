package diag

import (
	"fmt"

	"graft/internal/source"
)

// Note is a secondary location attached to a diagnostic.
type Note struct {
	Location source.Location
	Msg      string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Location
	Notes    []Note
}

// Errorf builds an error-severity diagnostic.
func Errorf(code Code, loc source.Location, format string, args ...any) Diagnostic {
	return Diagnostic{
		Severity: SevError,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Primary:  loc,
	}
}

// WithNote returns a copy of d with an extra note.
func (d Diagnostic) WithNote(loc source.Location, msg string) Diagnostic {
	d.Notes = append(append([]Note(nil), d.Notes...), Note{Location: loc, Msg: msg})
	return d
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s %s %s: %s", d.Primary, d.Severity, d.Code.ID(), d.Message)
}
