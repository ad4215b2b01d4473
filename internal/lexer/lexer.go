package lexer

import (
	"orlint/internal/source"
	"orlint/internal/token"
)

// Mode selects which token grammar Next uses. The parser switches modes as it
// enters and leaves tags.
type Mode uint8

const (
	// ModeContent lexes character data, comments, interpolations and tag openers.
	ModeContent Mode = iota
	// ModeTag lexes names, '=', values and tag terminators; whitespace is trivia.
	ModeTag
)

type Lexer struct {
	file   *source.File
	cursor Cursor
	opts   Options
	mode   Mode
	look   *token.Token // 1 элементный буфер для токена
	lookAt Mark         // позиция до look, включая trivia
	hold   []token.Trivia
}

func New(file *source.File, opts Options) *Lexer {
	return &Lexer{
		file:   file,
		cursor: NewCursor(file),
		opts:   opts,
	}
}

// Mode returns the current lexing mode.
func (lx *Lexer) Mode() Mode { return lx.mode }

// SetMode switches the grammar. A buffered lookahead token lexed under the
// previous mode is discarded and will be re-lexed.
func (lx *Lexer) SetMode(m Mode) {
	if lx.mode == m {
		return
	}
	lx.unread()
	lx.mode = m
}

func (lx *Lexer) unread() {
	if lx.look != nil {
		lx.cursor.Reset(lx.lookAt)
		lx.look = nil
	}
}

// Next возвращает следующий токен в текущем режиме. После EOF всегда возвращает EOF.
func (lx *Lexer) Next() token.Token {
	if lx.look != nil {
		tok := *lx.look
		lx.look = nil
		return tok
	}
	if lx.mode == ModeTag {
		return lx.nextInTag()
	}
	return lx.nextInContent()
}

// Peek возвращает следующий токен, не потребляя его.
func (lx *Lexer) Peek() token.Token {
	if lx.look != nil {
		return *lx.look
	}
	at := lx.cursor.Mark()
	t := lx.Next()
	lx.look = &t
	lx.lookAt = at
	return t
}

// Offset returns the position right after the last consumed token.
func (lx *Lexer) Offset() uint32 {
	if lx.look != nil {
		return uint32(lx.lookAt)
	}
	return lx.cursor.Off
}

func (lx *Lexer) nextInContent() token.Token {
	if lx.cursor.EOF() {
		return lx.eof()
	}
	switch lx.cursor.Peek() {
	case '<':
		switch {
		case lx.cursor.HasPrefix("<!--"):
			return lx.scanComment()
		case lx.cursor.HasPrefix("</"):
			return lx.punct(token.LAngleSlash, 2)
		case lx.startsTag():
			return lx.punct(token.LAngle, 1)
		}
	case '{':
		return lx.scanExpr()
	}
	return lx.scanText()
}

func (lx *Lexer) nextInTag() token.Token {
	lx.collectTrivia()
	if lx.cursor.EOF() {
		tok := lx.eof()
		lx.hold = nil
		return tok
	}
	var tok token.Token
	b := lx.cursor.Peek()
	switch {
	case b == '>':
		tok = lx.punct(token.Gt, 1)
	case b == '/' && lx.cursor.HasPrefix("/>"):
		tok = lx.punct(token.SlashGt, 2)
	case b == '=':
		tok = lx.punct(token.Assign, 1)
	case b == '"' || b == '\'':
		tok = lx.scanString()
	case b == '{':
		tok = lx.scanExpr()
	case b == '<' && lx.cursor.HasPrefix("</"):
		tok = lx.punct(token.LAngleSlash, 2)
	case b == '<':
		tok = lx.punct(token.LAngle, 1)
	case isNameStart(b):
		tok = lx.scanName()
	default:
		tok = lx.scanInvalid()
	}
	tok.Leading = lx.hold
	lx.hold = nil
	return tok
}

func (lx *Lexer) eof() token.Token {
	return token.Token{Kind: token.EOF, Span: lx.emptySpan()}
}

func (lx *Lexer) emptySpan() source.Span {
	return source.Span{File: lx.file.ID, Start: lx.cursor.Off, End: lx.cursor.Off}
}

func (lx *Lexer) punct(kind token.Kind, n int) token.Token {
	start := lx.cursor.Mark()
	lx.cursor.Advance(n)
	return lx.tokenFrom(kind, start)
}

func (lx *Lexer) tokenFrom(kind token.Kind, start Mark) token.Token {
	sp := lx.cursor.SpanFrom(start)
	return token.Token{Kind: kind, Span: sp, Text: string(lx.file.Content[sp.Start:sp.End])}
}

// startsTag reports whether '<' at the cursor opens an element, i.e. is
// directly followed by a name character. "a < b" stays text.
func (lx *Lexer) startsTag() bool {
	_, b1, ok := lx.cursor.Peek2()
	return ok && isTagNameStart(b1)
}
