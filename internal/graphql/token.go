package graphql

import "graft/internal/source"

// Kind is a token kind.
type Kind uint8

const (
	Invalid Kind = iota
	EOF
	Bang
	Dollar
	Amp
	LParen
	RParen
	Spread
	Colon
	Equals
	At
	LBracket
	RBracket
	LBrace
	RBrace
	Pipe
	Name
	IntValue
	FloatValue
	StringValue
	BlockString
)

var kindNames = [...]string{
	Invalid:     "invalid",
	EOF:         "end of file",
	Bang:        "'!'",
	Dollar:      "'$'",
	Amp:         "'&'",
	LParen:      "'('",
	RParen:      "')'",
	Spread:      "'...'",
	Colon:       "':'",
	Equals:      "'='",
	At:          "'@'",
	LBracket:    "'['",
	RBracket:    "']'",
	LBrace:      "'{'",
	RBrace:      "'}'",
	Pipe:        "'|'",
	Name:        "name",
	IntValue:    "int",
	FloatValue:  "float",
	StringValue: "string",
	BlockString: "block string",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Token is a lexed token; Text is the exact source slice.
type Token struct {
	Kind Kind
	Span source.Span
	Text string
}

// Is reports whether the token is the name keyword.
func (t Token) Is(keyword string) bool {
	return t.Kind == Name && t.Text == keyword
}
