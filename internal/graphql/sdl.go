package graphql

import (
	"strings"

	"graft/internal/diag"
	"graft/internal/source"
)

func (p *parser) parseTypeSystem() Definition {
	start := p.peek().Span
	desc := p.parseDescription()
	extend := p.acceptKeyword("extend")
	kw := p.peek()
	if kw.Kind != Name {
		p.unexpected(diag.SynUnexpectedTopLevel, "expected a type system definition")
	}
	switch kw.Text {
	case "schema":
		p.advance()
		return p.parseSchema(extend, start)
	case "directive":
		if extend {
			p.unexpected(diag.SynUnexpectedTopLevel, "directives cannot be extended")
		}
		p.advance()
		return p.parseDirectiveDefinition(start)
	}
	def := &TypeDefinition{Extend: extend, Description: desc}
	switch kw.Text {
	case "type":
		def.Kind = ObjectDef
	case "interface":
		def.Kind = InterfaceDef
	case "input":
		def.Kind = InputDef
	case "enum":
		def.Kind = EnumDef
	case "scalar":
		def.Kind = ScalarDef
	case "union":
		def.Kind = UnionDef
	default:
		p.unexpected(diag.SynUnexpectedTopLevel, "expected a type system definition")
	}
	p.advance()
	def.Name = p.ident(diag.SynExpectName)
	switch def.Kind {
	case ObjectDef, InterfaceDef:
		if p.acceptKeyword("implements") {
			p.accept(Amp)
			def.Interfaces = append(def.Interfaces, p.ident(diag.SynExpectName))
			for {
				if _, ok := p.accept(Amp); !ok {
					break
				}
				def.Interfaces = append(def.Interfaces, p.ident(diag.SynExpectName))
			}
		}
		def.Directives = p.parseDirectives()
		if p.at(LBrace) {
			def.Fields = p.parseFieldDefinitions()
		}
	case InputDef:
		def.Directives = p.parseDirectives()
		if p.at(LBrace) {
			for _, iv := range p.parseInputValues(LBrace, RBrace) {
				def.Fields = append(def.Fields, &FieldDefinition{Name: iv.Name, Type: iv.Type, Loc: iv.Loc})
			}
		}
	case EnumDef:
		def.Directives = p.parseDirectives()
		if open, ok := p.accept(LBrace); ok {
			for !p.at(RBrace) {
				if p.at(EOF) {
					p.failAt(diag.SynUnclosedBrace, open.Span, "unclosed '{' in enum")
				}
				p.parseDescription()
				def.EnumValues = append(def.EnumValues, p.ident(diag.SynExpectName))
				p.parseDirectives()
			}
			p.advance()
		}
	case ScalarDef:
		def.Directives = p.parseDirectives()
	case UnionDef:
		def.Directives = p.parseDirectives()
		if _, ok := p.accept(Equals); ok {
			p.accept(Pipe)
			def.Members = append(def.Members, p.ident(diag.SynExpectName))
			for {
				if _, ok := p.accept(Pipe); !ok {
					break
				}
				def.Members = append(def.Members, p.ident(diag.SynExpectName))
			}
		}
	}
	def.Loc = p.spanFrom(start)
	return def
}

func (p *parser) parseDescription() string {
	tok := p.peek()
	switch tok.Kind {
	case StringValue:
		p.advance()
		return strings.Trim(tok.Text, `"`)
	case BlockString:
		p.advance()
		return strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(tok.Text, `"""`), `"""`))
	}
	return ""
}

func (p *parser) parseSchema(extend bool, start source.Span) *SchemaDefinition {
	def := &SchemaDefinition{Extend: extend}
	p.parseDirectives()
	open := p.expect(LBrace, diag.SynUnexpectedToken)
	for !p.at(RBrace) {
		if p.at(EOF) {
			p.failAt(diag.SynUnclosedBrace, open.Span, "unclosed '{' in schema definition")
		}
		kw := p.ident(diag.SynExpectName)
		kind, ok := ParseOperationKind(kw.Value)
		if !ok {
			p.failAt(diag.SynUnexpectedToken, kw.Loc, "expected query, mutation or subscription")
		}
		p.expect(Colon, diag.SynUnexpectedToken)
		def.Operations = append(def.Operations, &RootOperationType{Operation: kind, Type: p.ident(diag.SynExpectName)})
	}
	p.advance()
	def.Loc = p.spanFrom(start)
	return def
}

func (p *parser) parseDirectiveDefinition(start source.Span) *DirectiveDefinition {
	p.expect(At, diag.SynUnexpectedToken)
	def := &DirectiveDefinition{Name: p.ident(diag.SynExpectName)}
	if p.at(LParen) {
		def.Arguments = p.parseInputValues(LParen, RParen)
	}
	p.acceptKeyword("repeatable")
	p.expectKeyword("on")
	p.accept(Pipe)
	def.Locations = append(def.Locations, p.ident(diag.SynExpectName))
	for {
		if _, ok := p.accept(Pipe); !ok {
			break
		}
		def.Locations = append(def.Locations, p.ident(diag.SynExpectName))
	}
	def.Loc = p.spanFrom(start)
	return def
}

func (p *parser) parseFieldDefinitions() []*FieldDefinition {
	open := p.advance()
	var fields []*FieldDefinition
	for !p.at(RBrace) {
		if p.at(EOF) {
			p.failAt(diag.SynUnclosedBrace, open.Span, "unclosed '{' in type definition")
		}
		start := p.peek().Span
		fd := &FieldDefinition{Description: p.parseDescription()}
		fd.Name = p.ident(diag.SynExpectName)
		if p.at(LParen) {
			fd.Arguments = p.parseInputValues(LParen, RParen)
		}
		p.expect(Colon, diag.SynUnexpectedToken)
		fd.Type = p.parseTypeRef()
		fd.Directives = p.parseDirectives()
		fd.Loc = p.spanFrom(start)
		fields = append(fields, fd)
	}
	p.advance()
	return fields
}

func (p *parser) parseInputValues(openKind, closeKind Kind) []*InputValueDefinition {
	open := p.expect(openKind, diag.SynUnexpectedToken)
	var out []*InputValueDefinition
	for !p.at(closeKind) {
		if p.at(EOF) {
			p.failAt(diag.SynUnclosedBrace, open.Span, "unclosed "+openKind.String())
		}
		start := p.peek().Span
		p.parseDescription()
		iv := &InputValueDefinition{Name: p.ident(diag.SynExpectName)}
		p.expect(Colon, diag.SynUnexpectedToken)
		iv.Type = p.parseTypeRef()
		if _, ok := p.accept(Equals); ok {
			iv.Default = p.parseValue(true)
		}
		p.parseDirectives()
		iv.Loc = p.spanFrom(start)
		out = append(out, iv)
	}
	p.advance()
	return out
}
