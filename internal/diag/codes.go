package diag

import "fmt"

type Code uint16

const (
	UnknownCode Code = 0

	// lexical
	LexUnknownChar        Code = 1001
	LexUnterminatedString Code = 1002
	LexBadNumber          Code = 1003

	// syntax
	SynUnexpectedToken     Code = 2001
	SynUnclosedBrace       Code = 2002
	SynUnclosedParen       Code = 2003
	SynExpectName          Code = 2004
	SynExpectSelectionSet  Code = 2005
	SynExpectTypeCondition Code = 2006
	SynUnexpectedTopLevel  Code = 2007
	SynExpectType          Code = 2008
	SynEmptyDocument       Code = 2009

	// semantic
	SemUnknownType            Code = 3001
	SemUnknownField           Code = 3002
	SemUnknownFragment        Code = 3003
	SemDuplicateOperation     Code = 3004
	SemDuplicateFragment      Code = 3005
	SemLeafWithSelection      Code = 3006
	SemCompositeWithoutFields Code = 3007
	SemNoRootType             Code = 3008
	SemDuplicateType          Code = 3009
	SemFragmentOnScalar       Code = 3010
	SemAnonymousNotAlone      Code = 3011
)

var codeDescription = map[Code]string{
	UnknownCode:               "Unknown error",
	LexUnknownChar:            "Unknown character",
	LexUnterminatedString:     "Unterminated string",
	LexBadNumber:              "Malformed number",
	SynUnexpectedToken:        "Unexpected token",
	SynUnclosedBrace:          "Unclosed brace",
	SynUnclosedParen:          "Unclosed parenthesis",
	SynExpectName:             "Expected name",
	SynExpectSelectionSet:     "Expected selection set",
	SynExpectTypeCondition:    "Expected type condition",
	SynUnexpectedTopLevel:     "Unexpected top-level definition",
	SynExpectType:             "Expected type reference",
	SynEmptyDocument:          "Empty document",
	SemUnknownType:            "Unknown type",
	SemUnknownField:           "Unknown field",
	SemUnknownFragment:        "Unknown fragment",
	SemDuplicateOperation:     "Duplicate operation name",
	SemDuplicateFragment:      "Duplicate fragment name",
	SemLeafWithSelection:      "Selection on leaf field",
	SemCompositeWithoutFields: "Missing selection on composite field",
	SemNoRootType:             "Schema has no root type for operation",
	SemDuplicateType:          "Duplicate type definition",
	SemFragmentOnScalar:       "Fragment on non-composite type",
	SemAnonymousNotAlone:      "Anonymous operation must be alone",
}

// ID returns the stable identifier used on the wire, e.g. "SYN2001".
func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("LEX%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("SYN%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("SEM%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
