package parser

import (
	"strings"

	"fortio.org/safecast"

	"orlint/internal/ast"
	"orlint/internal/token"
)

// parseStyleSheet разбивает тело <style> на правила "selector { decls }".
// Вложенные блоки (@media и т.п.) разворачиваются: внутренние правила
// добавляются в общий список после внешнего.
func (p *Parser) parseStyleSheet(raw token.Token) *ast.StyleSheet {
	sheet := &ast.StyleSheet{Body: raw.Span}
	sc := styleScanner{src: raw.Text, base: raw.Span.Start, p: p}
	sheet.Rules = sc.rules(len(raw.Text))
	return sheet
}

type styleScanner struct {
	src  string
	base uint32
	pos  int
	p    *Parser
}

func (sc *styleScanner) off(i int) uint32 {
	u, err := safecast.Conv[uint32](i)
	if err != nil {
		panic(err)
	}
	return sc.base + u
}

// rules читает правила до limit (позиция закрывающей скобки внешнего блока).
func (sc *styleScanner) rules(limit int) []ast.StyleRule {
	var out []ast.StyleRule
	for {
		sc.skipSpaceAndComments(limit)
		if sc.pos >= limit {
			return out
		}
		if sc.src[sc.pos] == '}' {
			// лишняя скобка — пропускаем
			sc.p.errAt(sc.p.spanOf(sc.off(sc.pos), sc.off(sc.pos+1)), "unexpected '}' in style block")
			sc.pos++
			continue
		}
		selStart := sc.pos
		brace := sc.indexOutsideStrings(sc.pos, limit, '{')
		if brace < 0 {
			// хвост без '{' — это не правило; CSS его игнорирует
			sc.pos = limit
			return out
		}
		selector := strings.TrimSpace(sc.src[selStart:brace])
		selEnd := selStart + len(strings.TrimRight(sc.src[selStart:brace], " \t\n\r"))
		bodyStart := brace + 1
		closeIdx, nested := sc.matchBrace(bodyStart, limit)

		rule := ast.StyleRule{
			Selector:     selector,
			SelectorSpan: sc.p.spanOf(sc.off(selStart), sc.off(selEnd)),
			Nested:       nested,
		}
		bodyEnd := closeIdx
		if closeIdx < 0 {
			bodyEnd = limit
			rule.Unclosed = true
			sc.p.errAt(rule.SelectorSpan, "unclosed style rule: missing '}'")
			rule.Span = sc.p.spanOf(sc.off(selStart), sc.off(limit))
		} else {
			rule.Span = sc.p.spanOf(sc.off(selStart), sc.off(closeIdx+1))
		}
		rule.Body = sc.p.spanOf(sc.off(bodyStart), sc.off(bodyEnd))

		var inner []ast.StyleRule
		if nested {
			sc.pos = bodyStart
			inner = sc.rules(bodyEnd)
		} else {
			rule.Decls = sc.decls(bodyStart, bodyEnd)
		}
		out = append(out, rule)
		out = append(out, inner...)
		if closeIdx < 0 {
			sc.pos = limit
			return out
		}
		sc.pos = closeIdx + 1
	}
}

// matchBrace ищет парную '}' начиная с from; nested=true, если внутри есть
// вложенные блоки.
func (sc *styleScanner) matchBrace(from, limit int) (idx int, nested bool) {
	depth := 1
	for i := from; i < limit; i++ {
		switch c := sc.src[i]; c {
		case '"', '\'':
			i = sc.skipString(i, limit)
		case '/':
			if i+1 < limit && sc.src[i+1] == '*' {
				i = sc.skipComment(i, limit) - 1
			}
		case '{':
			depth++
			nested = true
		case '}':
			depth--
			if depth == 0 {
				return i, nested
			}
		}
	}
	return -1, nested
}

// decls разбирает "prop: value; ..." между from и to.
func (sc *styleScanner) decls(from, to int) []ast.StyleDecl {
	var out []ast.StyleDecl
	start := from
	flush := func(end int) {
		text := sc.src[start:end]
		trimmed := strings.TrimSpace(stripComments(text))
		if trimmed == "" {
			return
		}
		colon := strings.IndexByte(trimmed, ':')
		if colon <= 0 {
			return
		}
		lead := len(text) - len(strings.TrimLeft(text, " \t\n\r"))
		trail := len(strings.TrimRight(text, " \t\n\r"))
		out = append(out, ast.StyleDecl{
			Property: strings.TrimSpace(trimmed[:colon]),
			Value:    strings.TrimSpace(trimmed[colon+1:]),
			Span:     sc.p.spanOf(sc.off(start+lead), sc.off(start+trail)),
		})
	}
	depth := 0
	for i := from; i < to; i++ {
		switch sc.src[i] {
		case '"', '\'':
			i = sc.skipString(i, to)
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ';':
			if depth == 0 {
				flush(i)
				start = i + 1
			}
		}
	}
	flush(to)
	return out
}

func (sc *styleScanner) skipSpaceAndComments(limit int) {
	for sc.pos < limit {
		c := sc.src[sc.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			sc.pos++
		case c == '/' && sc.pos+1 < limit && sc.src[sc.pos+1] == '*':
			sc.pos = sc.skipComment(sc.pos, limit)
		default:
			return
		}
	}
}

// skipComment возвращает позицию сразу после "*/" (или limit).
func (sc *styleScanner) skipComment(at, limit int) int {
	end := strings.Index(sc.src[at+2:limit], "*/")
	if end < 0 {
		return limit
	}
	return at + 2 + end + 2
}

// skipString возвращает индекс закрывающей кавычки (или limit-1).
func (sc *styleScanner) skipString(at, limit int) int {
	q := sc.src[at]
	for i := at + 1; i < limit; i++ {
		if sc.src[i] == '\\' {
			i++
			continue
		}
		if sc.src[i] == q {
			return i
		}
	}
	return limit - 1
}

func (sc *styleScanner) indexOutsideStrings(from, limit int, b byte) int {
	for i := from; i < limit; i++ {
		switch c := sc.src[i]; c {
		case '"', '\'':
			i = sc.skipString(i, limit)
		case '/':
			if i+1 < limit && sc.src[i+1] == '*' {
				i = sc.skipComment(i, limit) - 1
			}
		case b:
			return i
		}
	}
	return -1
}

func stripComments(s string) string {
	for {
		i := strings.Index(s, "/*")
		if i < 0 {
			return s
		}
		j := strings.Index(s[i+2:], "*/")
		if j < 0 {
			return s[:i]
		}
		s = s[:i] + s[i+2+j+2:]
	}
}
