package graphql

import (
	"fmt"

	"graft/internal/diag"
	"graft/internal/source"
)

// Parse parses a document that may mix executable and type-system
// definitions. On a syntax error the returned document holds every
// definition completed before the error.
func Parse(file *source.File) (*Document, []diag.Diagnostic) {
	toks, lexDiags := Tokenize(file)
	p := &parser{file: file, toks: toks}
	doc := &Document{Path: file.Path}
	if len(lexDiags) > 0 {
		return doc, lexDiags
	}
	p.parseDocument(doc)
	if p.err != nil {
		return doc, []diag.Diagnostic{*p.err}
	}
	return doc, nil
}

// ParseString is a convenience wrapper for tests and tools.
func ParseString(path, text string) (*Document, []diag.Diagnostic) {
	return Parse(source.NewFileString(path, text))
}

// bailout unwinds the parser on the first syntax error.
type bailout struct{}

type parser struct {
	file *source.File
	toks []Token
	pos  int
	err  *diag.Diagnostic
}

func (p *parser) parseDocument(doc *Document) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
		}
	}()
	if p.peek().Kind == EOF {
		p.failAt(diag.SynEmptyDocument, p.peek().Span, "document contains no definitions")
	}
	for p.peek().Kind != EOF {
		doc.Definitions = append(doc.Definitions, p.parseDefinition())
	}
}

func (p *parser) peek() Token {
	return p.toks[p.pos]
}

func (p *parser) advance() Token {
	tok := p.toks[p.pos]
	if tok.Kind != EOF {
		p.pos++
	}
	return tok
}

func (p *parser) at(k Kind) bool {
	return p.peek().Kind == k
}

func (p *parser) accept(k Kind) (Token, bool) {
	if p.at(k) {
		return p.advance(), true
	}
	return Token{}, false
}

func (p *parser) acceptKeyword(kw string) bool {
	if p.peek().Is(kw) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expect(k Kind, code diag.Code) Token {
	if tok, ok := p.accept(k); ok {
		return tok
	}
	p.unexpected(code, "expected %s", k)
	return Token{}
}

func (p *parser) expectKeyword(kw string) {
	if !p.acceptKeyword(kw) {
		p.unexpected(diag.SynUnexpectedToken, "expected %q", kw)
	}
}

func (p *parser) ident(code diag.Code) Ident {
	tok := p.expect(Name, code)
	return Ident{Value: tok.Text, Loc: tok.Span}
}

func (p *parser) unexpected(code diag.Code, format string, args ...any) {
	tok := p.peek()
	found := tok.Kind.String()
	if tok.Kind != EOF {
		found = fmt.Sprintf("%q", tok.Text)
	}
	p.failAt(code, tok.Span, fmt.Sprintf(format, args...)+", found "+found)
}

func (p *parser) failAt(code diag.Code, sp source.Span, msg string) {
	d := diag.Errorf(code, source.Location{Path: p.file.Path, Span: sp}, "%s", msg)
	p.err = &d
	panic(bailout{})
}

func (p *parser) spanFrom(start source.Span) source.Span {
	end := start
	if p.pos > 0 {
		end = p.toks[p.pos-1].Span
	}
	return start.Cover(end)
}

func (p *parser) parseDefinition() Definition {
	tok := p.peek()
	switch tok.Kind {
	case LBrace:
		return p.parseOperation()
	case StringValue, BlockString:
		return p.parseTypeSystem()
	case Name:
		switch tok.Text {
		case "query", "mutation", "subscription":
			return p.parseOperation()
		case "fragment":
			return p.parseFragment()
		case "schema", "type", "interface", "input", "enum", "scalar", "union", "extend", "directive":
			return p.parseTypeSystem()
		}
	}
	p.unexpected(diag.SynUnexpectedTopLevel, "expected a definition")
	return nil
}

func (p *parser) parseOperation() *OperationDefinition {
	start := p.peek().Span
	op := &OperationDefinition{Kind: Query}
	if !p.at(LBrace) {
		kw := p.advance()
		op.Kind, _ = ParseOperationKind(kw.Text)
		if p.at(Name) {
			name := p.ident(diag.SynExpectName)
			op.Name = &name
		}
		if p.at(LParen) {
			op.Variables = p.parseVariableDefinitions()
		}
		op.Directives = p.parseDirectives()
	}
	op.SelectionSet = p.parseSelectionSet()
	op.Loc = p.spanFrom(start)
	return op
}

func (p *parser) parseVariableDefinitions() []*VariableDefinition {
	open := p.expect(LParen, diag.SynUnexpectedToken)
	var vars []*VariableDefinition
	for !p.at(RParen) {
		if p.at(EOF) {
			p.failAt(diag.SynUnclosedParen, open.Span, "unclosed '(' in variable definitions")
		}
		start := p.expect(Dollar, diag.SynUnexpectedToken).Span
		v := &VariableDefinition{Name: p.ident(diag.SynExpectName)}
		p.expect(Colon, diag.SynUnexpectedToken)
		v.Type = p.parseTypeRef()
		if _, ok := p.accept(Equals); ok {
			v.Default = p.parseValue(true)
		}
		p.parseDirectives()
		v.Loc = p.spanFrom(start)
		vars = append(vars, v)
	}
	p.advance()
	return vars
}

func (p *parser) parseFragment() *FragmentDefinition {
	start := p.advance().Span
	frag := &FragmentDefinition{Name: p.ident(diag.SynExpectName)}
	if frag.Name.Value == "on" {
		p.failAt(diag.SynExpectName, frag.Name.Loc, "fragment cannot be named \"on\"")
	}
	if !p.acceptKeyword("on") {
		p.unexpected(diag.SynExpectTypeCondition, "expected type condition \"on\"")
	}
	frag.TypeCondition = p.ident(diag.SynExpectName)
	frag.Directives = p.parseDirectives()
	frag.SelectionSet = p.parseSelectionSet()
	frag.Loc = p.spanFrom(start)
	return frag
}

func (p *parser) parseSelectionSet() *SelectionSet {
	if !p.at(LBrace) {
		p.unexpected(diag.SynExpectSelectionSet, "expected selection set")
	}
	open := p.advance()
	set := &SelectionSet{}
	for !p.at(RBrace) {
		if p.at(EOF) {
			p.failAt(diag.SynUnclosedBrace, open.Span, "unclosed '{'")
		}
		set.Selections = append(set.Selections, p.parseSelection())
	}
	p.advance()
	if len(set.Selections) == 0 {
		p.failAt(diag.SynExpectSelectionSet, p.spanFrom(open.Span), "selection set must not be empty")
	}
	set.Loc = p.spanFrom(open.Span)
	return set
}

func (p *parser) parseSelection() Selection {
	if p.at(Spread) {
		start := p.advance().Span
		if p.at(Name) && !p.peek().Is("on") {
			spread := &FragmentSpread{Name: p.ident(diag.SynExpectName)}
			spread.Directives = p.parseDirectives()
			spread.Loc = p.spanFrom(start)
			return spread
		}
		inline := &InlineFragment{}
		if p.acceptKeyword("on") {
			cond := p.ident(diag.SynExpectName)
			inline.TypeCondition = &cond
		}
		inline.Directives = p.parseDirectives()
		inline.SelectionSet = p.parseSelectionSet()
		inline.Loc = p.spanFrom(start)
		return inline
	}
	if !p.at(Name) {
		p.unexpected(diag.SynExpectName, "expected field, fragment spread or inline fragment")
	}
	start := p.peek().Span
	field := &Field{Name: p.ident(diag.SynExpectName)}
	if _, ok := p.accept(Colon); ok {
		alias := field.Name
		field.Alias = &alias
		field.Name = p.ident(diag.SynExpectName)
	}
	if p.at(LParen) {
		field.Arguments = p.parseArguments(false)
	}
	field.Directives = p.parseDirectives()
	if p.at(LBrace) {
		field.SelectionSet = p.parseSelectionSet()
	}
	field.Loc = p.spanFrom(start)
	return field
}

func (p *parser) parseArguments(constant bool) []*Argument {
	open := p.advance()
	var args []*Argument
	for !p.at(RParen) {
		if p.at(EOF) {
			p.failAt(diag.SynUnclosedParen, open.Span, "unclosed '(' in arguments")
		}
		start := p.peek().Span
		arg := &Argument{Name: p.ident(diag.SynExpectName)}
		p.expect(Colon, diag.SynUnexpectedToken)
		arg.Value = p.parseValue(constant)
		arg.Loc = p.spanFrom(start)
		args = append(args, arg)
	}
	p.advance()
	if len(args) == 0 {
		p.failAt(diag.SynExpectName, p.spanFrom(open.Span), "argument list must not be empty")
	}
	return args
}

func (p *parser) parseDirectives() []*Directive {
	var out []*Directive
	for p.at(At) {
		start := p.advance().Span
		d := &Directive{Name: p.ident(diag.SynExpectName)}
		if p.at(LParen) {
			d.Arguments = p.parseArguments(false)
		}
		d.Loc = p.spanFrom(start)
		out = append(out, d)
	}
	return out
}

func (p *parser) parseValue(constant bool) *Value {
	tok := p.peek()
	start := tok.Span
	v := &Value{}
	switch tok.Kind {
	case Dollar:
		if constant {
			p.unexpected(diag.SynUnexpectedToken, "variables are not allowed here")
		}
		p.advance()
		name := p.ident(diag.SynExpectName)
		v.Kind = VariableVal
		v.Raw = "$" + name.Value
	case IntValue:
		p.advance()
		v.Kind, v.Raw = IntVal, tok.Text
	case FloatValue:
		p.advance()
		v.Kind, v.Raw = FloatVal, tok.Text
	case StringValue, BlockString:
		p.advance()
		v.Kind, v.Raw = StringVal, tok.Text
	case Name:
		p.advance()
		v.Raw = tok.Text
		switch tok.Text {
		case "true", "false":
			v.Kind = BooleanVal
		case "null":
			v.Kind = NullVal
		default:
			v.Kind = EnumVal
		}
	case LBracket:
		p.advance()
		v.Kind = ListVal
		for !p.at(RBracket) {
			if p.at(EOF) {
				p.failAt(diag.SynUnexpectedToken, start, "unclosed '['")
			}
			v.List = append(v.List, p.parseValue(constant))
		}
		p.advance()
	case LBrace:
		p.advance()
		v.Kind = ObjectVal
		for !p.at(RBrace) {
			if p.at(EOF) {
				p.failAt(diag.SynUnclosedBrace, start, "unclosed '{' in object value")
			}
			fstart := p.peek().Span
			f := &Argument{Name: p.ident(diag.SynExpectName)}
			p.expect(Colon, diag.SynUnexpectedToken)
			f.Value = p.parseValue(constant)
			f.Loc = p.spanFrom(fstart)
			v.Fields = append(v.Fields, f)
		}
		p.advance()
	default:
		p.unexpected(diag.SynUnexpectedToken, "expected value")
	}
	v.Loc = p.spanFrom(start)
	if v.Kind == ListVal || v.Kind == ObjectVal {
		v.Raw = string(p.file.Content[v.Loc.Start:v.Loc.End])
	}
	return v
}

func (p *parser) parseTypeRef() *TypeRef {
	start := p.peek().Span
	t := &TypeRef{}
	if open, ok := p.accept(LBracket); ok {
		t.Elem = p.parseTypeRef()
		if _, ok := p.accept(RBracket); !ok {
			p.failAt(diag.SynExpectType, open.Span, "unclosed '[' in list type")
		}
	} else {
		if !p.at(Name) {
			p.unexpected(diag.SynExpectType, "expected type")
		}
		name := p.ident(diag.SynExpectType)
		t.Named = &name
	}
	if _, ok := p.accept(Bang); ok {
		t.NonNull = true
	}
	t.Loc = p.spanFrom(start)
	return t
}
