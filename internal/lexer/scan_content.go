package lexer

import (
	"bytes"

	"orlint/internal/token"
)

// scanText читает символьные данные до следующего тега, комментария или '{'.
// '<', не открывающий тег, остаётся частью текста.
func (lx *Lexer) scanText() token.Token {
	start := lx.cursor.Mark()
	for !lx.cursor.EOF() {
		b := lx.cursor.Peek()
		if b == '{' {
			break
		}
		if b == '<' && lx.cursor.Off > uint32(start) &&
			(lx.cursor.HasPrefix("</") || lx.cursor.HasPrefix("<!--") || lx.startsTag()) {
			break
		}
		lx.cursor.Bump()
	}
	return lx.tokenFrom(token.Text, start)
}

// scanComment reads "<!-- ... -->". An unterminated comment runs to EOF.
func (lx *Lexer) scanComment() token.Token {
	start := lx.cursor.Mark()
	lx.cursor.Advance(4)
	idx := bytes.Index(lx.cursor.Rest(), []byte("-->"))
	if idx < 0 {
		lx.cursor.Advance(len(lx.cursor.Rest()))
		tok := lx.tokenFrom(token.Comment, start)
		lx.errLex(tok.Span, "unterminated comment")
		return tok
	}
	lx.cursor.Advance(idx + 3)
	return lx.tokenFrom(token.Comment, start)
}

// scanExpr reads a balanced {…} expression. Quoted strings inside the
// expression may contain braces. When no closing brace exists the token ends
// at the end of the line so the rest of the file still parses.
func (lx *Lexer) scanExpr() token.Token {
	start := lx.cursor.Mark()
	lx.cursor.Bump() // '{'
	depth := 1
	lineEnd := Mark(0)
	for !lx.cursor.EOF() {
		b := lx.cursor.Peek()
		switch b {
		case '\n':
			if lineEnd == 0 {
				lineEnd = lx.cursor.Mark()
			}
		case '"', '\'', '`':
			lx.skipQuoted(b)
			continue
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				lx.cursor.Bump()
				return lx.tokenFrom(token.Expr, start)
			}
		}
		lx.cursor.Bump()
	}
	if lineEnd != 0 {
		lx.cursor.Reset(lineEnd)
	}
	tok := lx.tokenFrom(token.Expr, start)
	lx.errLex(tok.Span, "unterminated expression: missing '}'")
	return tok
}

// skipQuoted пропускает строку внутри выражения вместе с экранированием.
func (lx *Lexer) skipQuoted(q byte) {
	lx.cursor.Bump()
	for !lx.cursor.EOF() {
		b := lx.cursor.Bump()
		if b == '\\' {
			lx.cursor.Bump()
			continue
		}
		if b == q {
			return
		}
	}
}
