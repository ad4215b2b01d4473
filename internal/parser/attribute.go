package parser

import (
	"fmt"
	"strings"

	"orlint/internal/ast"
	"orlint/internal/token"
)

// parseAttributes читает атрибуты до '>' или '/>'. terminated=false, если
// тег оборвался (EOF или начало следующего тега).
func (p *Parser) parseAttributes(elem ast.NodeID, tag string) (selfClosing, terminated bool) {
	for {
		tok := p.lx.Peek()
		switch tok.Kind {
		case token.Gt:
			p.advance()
			return false, true
		case token.SlashGt:
			p.advance()
			return true, true
		case token.Name:
			if !tok.HasLeadingSpace() {
				p.errAt(tok.Span, fmt.Sprintf("expected whitespace before attribute %q", tok.Text))
			}
			p.parseAttribute(elem)
		case token.EOF:
			p.err(fmt.Sprintf("unterminated start tag <%s>", tag))
			return false, false
		case token.LAngle, token.LAngleSlash:
			p.err(fmt.Sprintf("expected '>' to close <%s>", tag))
			return false, false
		case token.Invalid:
			// лексер уже сообщил
			p.advance()
			p.resyncAttr()
		default:
			p.errAt(tok.Span, fmt.Sprintf("unexpected %s in <%s>", tok.Kind, tag))
			p.advance()
			p.resyncAttr()
		}
	}
}

// parseAttribute: name | name=value | on:event={handler} | @event={handler}
func (p *Parser) parseAttribute(elem ast.NodeID) {
	nameTok := p.advance()
	attr := ast.Attribute{
		Name:     nameTok.Text,
		NameSpan: nameTok.Span,
		Value:    ast.Value{Kind: ast.ValueBoolean, Span: nameTok.Span.ZeroideToEnd()},
	}
	kind := ast.NodeAttribute
	if event, ok := eventName(nameTok.Text); ok {
		kind = ast.NodeEventBinding
		attr.Event = event
		if event == "" {
			p.errAt(nameTok.Span, fmt.Sprintf("missing event name in %q", nameTok.Text))
		}
	}

	span := nameTok.Span
	if p.at(token.Assign) {
		p.advance()
		v := p.lx.Peek()
		switch v.Kind {
		case token.String:
			p.advance()
			attr.Value = ast.Value{Kind: ast.ValueLiteral, Text: v.Unquote(), Raw: v.Text, Span: v.Span, Quote: v.Text[0]}
			span = span.Cover(v.Span)
		case token.Name:
			p.advance()
			attr.Value = ast.Value{Kind: ast.ValueLiteral, Text: v.Text, Raw: v.Text, Span: v.Span}
			span = span.Cover(v.Span)
		case token.Expr:
			p.advance()
			attr.Value = ast.Value{Kind: ast.ValueReference, Text: strings.TrimSpace(v.ExprBody()), Raw: v.Text, Span: v.Span}
			span = span.Cover(v.Span)
		default:
			p.err(fmt.Sprintf("expected value for attribute %q after '='", nameTok.Text))
			span = span.Cover(p.lastSpan)
		}
	}
	p.doc.AddAttribute(elem, kind, attr, span)
}

// eventName распознаёт on:click и @click.
func eventName(name string) (string, bool) {
	switch {
	case strings.HasPrefix(name, "on:"):
		return name[3:], true
	case strings.HasPrefix(name, "@"):
		return name[1:], true
	}
	return "", false
}
