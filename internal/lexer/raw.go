package lexer

import (
	"bytes"

	"orlint/internal/token"
)

// ReadRaw consumes the body of a raw-text element (<style>, <script>) up to,
// but not including, its matching "</tag". The match is ASCII case-insensitive.
// The lexer is left in ModeContent. The returned token is Text and may be empty.
func (lx *Lexer) ReadRaw(tag string) token.Token {
	lx.unread()
	lx.mode = ModeContent
	start := lx.cursor.Mark()
	rest := lx.cursor.Rest()
	needle := []byte("</" + tag)
	off := 0
	for {
		idx := indexFold(rest[off:], needle)
		if idx < 0 {
			lx.cursor.Advance(len(rest))
			break
		}
		end := off + idx + len(needle)
		if end >= len(rest) || !isNameContinue(rest[end]) {
			lx.cursor.Advance(off + idx)
			break
		}
		off = end
	}
	return lx.tokenFrom(token.Text, start)
}

func indexFold(s, sub []byte) int {
	n := len(sub)
	for i := 0; i+n <= len(s); i++ {
		if bytes.EqualFold(s[i:i+n], sub) {
			return i
		}
	}
	return -1
}
