package graphql

import (
	"graft/internal/diag"
	"graft/internal/source"
)

// Lexer produces tokens from a file. Commas, whitespace, BOMs and comments
// are insignificant and skipped.
type Lexer struct {
	file  *source.File
	src   []byte
	pos   int
	diags []diag.Diagnostic
}

func NewLexer(file *source.File) *Lexer {
	return &Lexer{file: file, src: file.Content}
}

// Tokenize lexes the whole file. The last token is always EOF.
func Tokenize(file *source.File) ([]Token, []diag.Diagnostic) {
	lx := NewLexer(file)
	var toks []Token
	for {
		tok := lx.Next()
		toks = append(toks, tok)
		if tok.Kind == EOF {
			return toks, lx.diags
		}
	}
}

// Diagnostics returns lexical errors seen so far.
func (lx *Lexer) Diagnostics() []diag.Diagnostic {
	return lx.diags
}

func (lx *Lexer) Next() Token {
	lx.skipIgnored()
	if lx.pos >= len(lx.src) {
		return lx.token(EOF, lx.pos, lx.pos)
	}
	start := lx.pos
	ch := lx.src[lx.pos]
	switch ch {
	case '!':
		return lx.single(Bang)
	case '$':
		return lx.single(Dollar)
	case '&':
		return lx.single(Amp)
	case '(':
		return lx.single(LParen)
	case ')':
		return lx.single(RParen)
	case ':':
		return lx.single(Colon)
	case '=':
		return lx.single(Equals)
	case '@':
		return lx.single(At)
	case '[':
		return lx.single(LBracket)
	case ']':
		return lx.single(RBracket)
	case '{':
		return lx.single(LBrace)
	case '}':
		return lx.single(RBrace)
	case '|':
		return lx.single(Pipe)
	case '.':
		if lx.pos+2 < len(lx.src) && lx.src[lx.pos+1] == '.' && lx.src[lx.pos+2] == '.' {
			lx.pos += 3
			return lx.token(Spread, start, lx.pos)
		}
		lx.pos++
		lx.report(diag.LexUnknownChar, start, lx.pos, "unexpected '.'; did you mean '...'?")
		return lx.token(Invalid, start, lx.pos)
	case '"':
		return lx.scanString()
	}
	switch {
	case isNameStart(ch):
		for lx.pos < len(lx.src) && isNameContinue(lx.src[lx.pos]) {
			lx.pos++
		}
		return lx.token(Name, start, lx.pos)
	case ch == '-' || isDigit(ch):
		return lx.scanNumber()
	}
	lx.pos++
	for lx.pos < len(lx.src) && lx.src[lx.pos]&0xC0 == 0x80 {
		lx.pos++
	}
	lx.report(diag.LexUnknownChar, start, lx.pos, "unexpected character %q", string(lx.src[start:lx.pos]))
	return lx.token(Invalid, start, lx.pos)
}

func (lx *Lexer) single(k Kind) Token {
	lx.pos++
	return lx.token(k, lx.pos-1, lx.pos)
}

func (lx *Lexer) token(k Kind, start, end int) Token {
	return Token{
		Kind: k,
		Span: source.Span{Start: source.SafeUint32(start), End: source.SafeUint32(end)},
		Text: string(lx.src[start:end]),
	}
}

func (lx *Lexer) report(code diag.Code, start, end int, format string, args ...any) {
	loc := source.Location{
		Path: lx.file.Path,
		Span: source.Span{Start: source.SafeUint32(start), End: source.SafeUint32(end)},
	}
	lx.diags = append(lx.diags, diag.Errorf(code, loc, format, args...))
}

func (lx *Lexer) skipIgnored() {
	for lx.pos < len(lx.src) {
		switch ch := lx.src[lx.pos]; {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == ',':
			lx.pos++
		case ch == 0xEF && lx.pos+2 < len(lx.src) && lx.src[lx.pos+1] == 0xBB && lx.src[lx.pos+2] == 0xBF:
			lx.pos += 3
		case ch == '#':
			for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
				lx.pos++
			}
		default:
			return
		}
	}
}

func (lx *Lexer) scanString() Token {
	start := lx.pos
	if lx.pos+2 < len(lx.src) && lx.src[lx.pos+1] == '"' && lx.src[lx.pos+2] == '"' {
		lx.pos += 3
		for lx.pos+2 < len(lx.src) {
			if lx.src[lx.pos] == '\\' && lx.pos+3 < len(lx.src) && lx.src[lx.pos+1] == '"' {
				lx.pos += 4
				continue
			}
			if lx.src[lx.pos] == '"' && lx.src[lx.pos+1] == '"' && lx.src[lx.pos+2] == '"' {
				lx.pos += 3
				return lx.token(BlockString, start, lx.pos)
			}
			lx.pos++
		}
		lx.pos = len(lx.src)
		lx.report(diag.LexUnterminatedString, start, lx.pos, "unterminated block string")
		return lx.token(Invalid, start, lx.pos)
	}
	lx.pos++
	for lx.pos < len(lx.src) {
		switch lx.src[lx.pos] {
		case '\\':
			lx.pos += 2
			continue
		case '"':
			lx.pos++
			return lx.token(StringValue, start, lx.pos)
		case '\n', '\r':
			lx.report(diag.LexUnterminatedString, start, lx.pos, "unterminated string")
			return lx.token(Invalid, start, lx.pos)
		}
		lx.pos++
	}
	if lx.pos > len(lx.src) {
		lx.pos = len(lx.src)
	}
	lx.report(diag.LexUnterminatedString, start, lx.pos, "unterminated string")
	return lx.token(Invalid, start, lx.pos)
}

func (lx *Lexer) scanNumber() Token {
	start := lx.pos
	if lx.src[lx.pos] == '-' {
		lx.pos++
	}
	digits := lx.digits()
	if digits == 0 {
		lx.report(diag.LexBadNumber, start, lx.pos, "expected digit after '-'")
		return lx.token(Invalid, start, lx.pos)
	}
	kind := IntValue
	if lx.pos < len(lx.src) && lx.src[lx.pos] == '.' {
		lx.pos++
		if lx.digits() == 0 {
			lx.report(diag.LexBadNumber, start, lx.pos, "expected digit after '.'")
			return lx.token(Invalid, start, lx.pos)
		}
		kind = FloatValue
	}
	if lx.pos < len(lx.src) && (lx.src[lx.pos] == 'e' || lx.src[lx.pos] == 'E') {
		lx.pos++
		if lx.pos < len(lx.src) && (lx.src[lx.pos] == '+' || lx.src[lx.pos] == '-') {
			lx.pos++
		}
		if lx.digits() == 0 {
			lx.report(diag.LexBadNumber, start, lx.pos, "expected exponent digits")
			return lx.token(Invalid, start, lx.pos)
		}
		kind = FloatValue
	}
	if lx.pos < len(lx.src) && isNameStart(lx.src[lx.pos]) {
		for lx.pos < len(lx.src) && isNameContinue(lx.src[lx.pos]) {
			lx.pos++
		}
		lx.report(diag.LexBadNumber, start, lx.pos, "invalid number %q", string(lx.src[start:lx.pos]))
		return lx.token(Invalid, start, lx.pos)
	}
	return lx.token(kind, start, lx.pos)
}

func (lx *Lexer) digits() int {
	n := 0
	for lx.pos < len(lx.src) && isDigit(lx.src[lx.pos]) {
		lx.pos++
		n++
	}
	return n
}

func isNameStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isNameContinue(b byte) bool {
	return isNameStart(b) || isDigit(b)
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
