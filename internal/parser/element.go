package parser

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"orlint/internal/ast"
	"orlint/internal/lexer"
	"orlint/internal/source"
	"orlint/internal/token"
)

// parseStartTag разбирает "<name attrs... >" или "/>" и, если нужно,
// открывает элемент на стеке.
func (p *Parser) parseStartTag() {
	lt := p.advance() // '<'
	p.lx.SetMode(lexer.ModeTag)
	defer p.lx.SetMode(lexer.ModeContent)

	if !p.at(token.Name) {
		p.err("expected element name after '<'")
		p.resyncTagEnd()
		return
	}
	nameTok := p.advance()
	name := nameTok.Text
	spec, known := ast.LookupElement(name)

	kind := ast.NodeElement
	if known && strings.EqualFold(spec.Name, "style") {
		kind = ast.NodeStyleBlock
	}
	elem := p.doc.AddElement(p.current(), kind, ast.Element{
		Name:     name,
		NameSpan: nameTok.Span,
	}, lt.Span.Cover(nameTok.Span))

	selfClosing, terminated := p.parseAttributes(elem, name)
	startTag := lt.Span.Cover(p.lastSpan)

	el := p.doc.Element(elem)
	el.StartTag = startTag
	el.SelfClosing = selfClosing
	p.doc.SetSpan(elem, startTag)

	switch {
	case selfClosing:
		el.Closed = true
		return
	case known && spec.HasFlag(ast.ElementFlagVoid):
		el.Closed = true
		return
	case !terminated:
		// "<div" в конце файла или перед следующим тегом: элемент не открываем
		// на стеке, чтобы не поглотить последующие узлы.
		return
	}

	p.stack = append(p.stack, openElem{id: elem, name: name})
	if known && spec.HasFlag(ast.ElementFlagRawText) {
		p.lx.SetMode(lexer.ModeContent)
		p.parseRawBody(elem, name, kind == ast.NodeStyleBlock)
	}
}

// parseRawBody читает тело <style>/<script> как есть.
func (p *Parser) parseRawBody(elem ast.NodeID, name string, style bool) {
	raw := p.lx.ReadRaw(name)
	if raw.Span.Empty() {
		if style {
			p.doc.Element(elem).Style = &ast.StyleSheet{Body: raw.Span}
		}
		return
	}
	p.lastSpan = raw.Span
	p.doc.AddText(elem, ast.NodeTextContent, ast.Text{Value: raw.Text, Raw: true}, raw.Span)
	if style {
		sheet := p.parseStyleSheet(raw)
		p.doc.Element(elem).Style = sheet
	}
}

// parseEndTag разбирает "</name>" и закрывает соответствующий элемент.
// Если совпадение найдено глубже вершины стека, промежуточные элементы
// закрываются неявно с диагностикой. Лишний закрывающий тег пропускается.
func (p *Parser) parseEndTag() {
	lts := p.advance() // '</'
	p.lx.SetMode(lexer.ModeTag)
	defer p.lx.SetMode(lexer.ModeContent)

	if !p.at(token.Name) {
		p.err("expected element name after '</'")
		p.resyncTagEnd()
		return
	}
	nameTok := p.advance()
	if !p.at(token.Gt) {
		p.err(fmt.Sprintf("expected '>' to close </%s>", nameTok.Text))
		p.resyncTagEnd()
	} else {
		p.advance()
	}
	closeSpan := lts.Span.Cover(p.lastSpan)

	idx := -1
	for i := len(p.stack) - 1; i >= 0; i-- {
		if sameTagName(p.stack[i].name, nameTok.Text) {
			idx = i
			break
		}
	}
	if idx < 0 {
		p.errAt(closeSpan, fmt.Sprintf("unexpected closing tag </%s>", nameTok.Text))
		return
	}
	for len(p.stack)-1 > idx {
		top := p.pop()
		p.reportUnclosed(top)
		p.finishImplicit(top.id, closeSpan.Start)
	}
	top := p.pop()
	el := p.doc.Element(top.id)
	el.CloseTag = closeSpan
	el.Closed = true
	p.doc.SetSpan(top.id, el.StartTag.Cover(closeSpan))
}

// closeAllAtEOF закрывает всё, что осталось на стеке, сообщая об этом.
func (p *Parser) closeAllAtEOF() {
	for len(p.stack) > 0 {
		top := p.pop()
		p.reportUnclosed(top)
		p.finishImplicit(top.id, p.doc.Size)
	}
}

func (p *Parser) pop() openElem {
	top := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]
	return top
}

func (p *Parser) reportUnclosed(e openElem) {
	el := p.doc.Element(e.id)
	p.errAt(el.NameSpan, fmt.Sprintf("element <%s> is not closed", e.name))
}

func (p *Parser) finishImplicit(id ast.NodeID, end uint32) {
	el := p.doc.Element(id)
	span := el.StartTag
	if end > span.End {
		span.End = end
	}
	p.doc.SetSpan(id, span)
}

// sameTagName сравнивает имя открытого элемента с именем закрывающего тега
// после NFC-нормализации. HTML-элементы сравниваются без учёта регистра,
// компоненты — точно.
func sameTagName(open, closing string) bool {
	open, closing = norm.NFC.String(open), norm.NFC.String(closing)
	if ast.IsComponentName(open) {
		return open == closing
	}
	return strings.EqualFold(open, closing)
}

// spanOf is a convenience for building spans in the current file.
func (p *Parser) spanOf(start, end uint32) source.Span {
	return source.Span{File: p.file.ID, Start: start, End: end}
}
