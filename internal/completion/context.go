// Package completion computes completion candidates for a cursor inside a
// possibly incomplete GraphQL document.
package completion

import (
	"graft/internal/graphql"
	"graft/internal/source"
)

// Kind is what the cursor is positioned to complete.
type Kind uint8

const (
	KindTopLevel Kind = iota
	KindField
	KindFragmentSpread
	KindTypeCondition
	KindDirective
)

func (k Kind) String() string {
	switch k {
	case KindField:
		return "field"
	case KindFragmentSpread:
		return "fragment_spread"
	case KindTypeCondition:
		return "type_condition"
	case KindDirective:
		return "directive"
	default:
		return "top_level"
	}
}

// Step is one hop from the root type towards the cursor's parent type.
type Step struct {
	Field         string // set for field hops
	TypeCondition string // set for inline fragment hops
}

// Request describes the cursor position in a document.
type Request struct {
	Path     string
	Position source.Position
	Kind     Kind
	// Operation is the root operation kind when RootType is empty.
	Operation graphql.OperationKind
	// RootType is the type condition of the enclosing fragment definition.
	RootType string
	Steps    []Step
	Prefix   string
}

type frame struct {
	step Step
}

// NewRequest analyzes text up to pos. It never fails on malformed input;
// ok is false only when pos lies inside a comment or string.
func NewRequest(path, text string, pos source.Position) (Request, bool) {
	file := source.NewFileString(path, text)
	cursor := file.OffsetForPosition(pos)
	req := Request{Path: path, Position: pos}

	lx := graphql.NewLexer(file)
	var toks []graphql.Token
	for {
		tok := lx.Next()
		if tok.Kind == graphql.EOF || tok.Span.Start >= cursor {
			break
		}
		if tok.Span.End > cursor {
			if tok.Kind == graphql.StringValue || tok.Kind == graphql.BlockString || tok.Kind == graphql.Invalid {
				return req, false
			}
			if tok.Kind != graphql.Name {
				break
			}
		}
		if tok.Kind == graphql.Invalid && tok.Span.End == cursor && file.Content[tok.Span.Start] == '"' {
			return req, false
		}
		toks = append(toks, tok)
	}
	if inComment(file.Content, cursor) {
		return req, false
	}
	if n := len(toks); n > 0 && toks[n-1].Kind == graphql.Name && toks[n-1].Span.End >= cursor {
		last := toks[n-1]
		req.Prefix = string(file.Content[last.Span.Start:cursor])
		toks = toks[:n-1]
	}

	var (
		stack       []frame
		header      []graphql.Token // tokens of the current definition before its first '{'
		pendingStep *Step
		parens      int
	)
	for i, tok := range toks {
		if parens > 0 {
			switch tok.Kind {
			case graphql.LParen:
				parens++
			case graphql.RParen:
				parens--
			}
			continue
		}
		switch tok.Kind {
		case graphql.LParen:
			parens++
		case graphql.LBrace:
			if len(stack) == 0 {
				req.Operation, req.RootType = definitionRoot(header)
				header = nil
				stack = append(stack, frame{})
				pendingStep = nil
				continue
			}
			step := Step{}
			if pendingStep != nil {
				step = *pendingStep
			}
			stack = append(stack, frame{step: step})
			pendingStep = nil
		case graphql.Spread:
			if len(stack) > 0 {
				pendingStep = &Step{}
			}
		case graphql.RBrace:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			pendingStep = nil
		case graphql.Name:
			if len(stack) == 0 {
				header = append(header, tok)
				continue
			}
			prev := tokenBefore(toks, i)
			switch {
			case prev.Kind == graphql.At:
			case prev.Is("on") && tokenBefore(toks, i-1).Kind == graphql.Spread:
				pendingStep = &Step{TypeCondition: tok.Text}
			case prev.Kind == graphql.Spread && tok.Text != "on":
				pendingStep = nil
			case prev.Kind == graphql.Spread:
			case i+1 < len(toks) && toks[i+1].Kind == graphql.Colon:
			default:
				pendingStep = &Step{Field: tok.Text}
			}
		default:
			if len(stack) == 0 {
				header = append(header, tok)
			}
		}
	}

	last := tokenBefore(toks, len(toks))
	switch {
	case last.Kind == graphql.At:
		req.Kind = KindDirective
	case last.Is("on") && (len(stack) == 0 || tokenBefore(toks, len(toks)-1).Kind == graphql.Spread):
		req.Kind = KindTypeCondition
	case last.Kind == graphql.Spread:
		req.Kind = KindFragmentSpread
	case len(stack) == 0:
		req.Kind = KindTopLevel
	default:
		req.Kind = KindField
	}
	if len(stack) == 0 {
		return req, true
	}
	for _, f := range stack[1:] {
		if f.step != (Step{}) {
			req.Steps = append(req.Steps, f.step)
		}
	}
	return req, true
}

func tokenBefore(toks []graphql.Token, i int) graphql.Token {
	if i-1 >= 0 && i-1 < len(toks) {
		return toks[i-1]
	}
	return graphql.Token{Kind: graphql.EOF}
}

// definitionRoot reads "query Name(...)" or "fragment F on Type" headers.
func definitionRoot(header []graphql.Token) (graphql.OperationKind, string) {
	if len(header) == 0 {
		return graphql.Query, ""
	}
	if header[0].Is("fragment") {
		for i, tok := range header {
			if tok.Is("on") && i+1 < len(header) && header[i+1].Kind == graphql.Name {
				return graphql.Query, header[i+1].Text
			}
		}
		return graphql.Query, ""
	}
	kind, _ := graphql.ParseOperationKind(header[0].Text)
	return kind, ""
}

func inComment(src []byte, cursor uint32) bool {
	lineStart := int(cursor)
	for lineStart > 0 && src[lineStart-1] != '\n' {
		lineStart--
	}
	inString := false
	for i := lineStart; i < int(cursor) && i < len(src); i++ {
		switch src[i] {
		case '"':
			inString = !inString
		case '#':
			if !inString {
				return true
			}
		}
	}
	return false
}
