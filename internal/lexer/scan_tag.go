package lexer

import (
	"bytes"

	"orlint/internal/token"
)

// collectTrivia собирает пробелы и переводы строк перед токеном внутри тега.
func (lx *Lexer) collectTrivia() {
	lx.hold = lx.hold[:0]
	for !lx.cursor.EOF() {
		start := lx.cursor.Mark()
		b := lx.cursor.Peek()
		switch {
		case b == ' ' || b == '\t' || b == '\r':
			for b2 := lx.cursor.Peek(); b2 == ' ' || b2 == '\t' || b2 == '\r'; b2 = lx.cursor.Peek() {
				lx.cursor.Bump()
			}
			lx.hold = append(lx.hold, lx.trivia(token.TriviaSpace, start))
		case b == '\n':
			for lx.cursor.Peek() == '\n' {
				lx.cursor.Bump()
			}
			lx.hold = append(lx.hold, lx.trivia(token.TriviaNewline, start))
		default:
			if len(lx.hold) == 0 {
				lx.hold = nil
			}
			return
		}
	}
	if len(lx.hold) == 0 {
		lx.hold = nil
	}
}

func (lx *Lexer) trivia(kind token.TriviaKind, start Mark) token.Trivia {
	sp := lx.cursor.SpanFrom(start)
	return token.Trivia{Kind: kind, Span: sp, Text: string(lx.file.Content[sp.Start:sp.End])}
}

// scanName reads a tag name, attribute name or unquoted value.
func (lx *Lexer) scanName() token.Token {
	start := lx.cursor.Mark()
	for !lx.cursor.EOF() {
		b := lx.cursor.Peek()
		if b == '/' && lx.cursor.HasPrefix("/>") {
			break
		}
		if !isNameContinue(b) {
			break
		}
		lx.cursor.Bump()
	}
	return lx.tokenFrom(token.Name, start)
}

// scanString reads a quoted value. A value may not span lines: when a
// newline comes before the closing quote the token stops there.
func (lx *Lexer) scanString() token.Token {
	start := lx.cursor.Mark()
	q := lx.cursor.Bump()
	rest := lx.cursor.Rest()
	idx := bytes.IndexAny(rest, string([]byte{q, '\n'}))
	if idx >= 0 && rest[idx] == q {
		lx.cursor.Advance(idx + 1)
		return lx.tokenFrom(token.String, start)
	}
	if idx >= 0 {
		lx.cursor.Advance(idx)
	} else {
		lx.cursor.Advance(len(rest))
	}
	tok := lx.tokenFrom(token.String, start)
	lx.errLex(tok.Span, "unterminated attribute value")
	return tok
}

func (lx *Lexer) scanInvalid() token.Token {
	start := lx.cursor.Mark()
	lx.bumpRune()
	tok := lx.tokenFrom(token.Invalid, start)
	lx.errLex(tok.Span, "unexpected character "+quoteText(tok.Text)+" in tag")
	return tok
}
