package lexer

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	"fortio.org/safecast"
)

// bumpRune перемещает курсор на размер текущей руны.
func (lx *Lexer) bumpRune() {
	if lx.cursor.EOF() {
		return
	}
	_, sz := utf8.DecodeRune(lx.cursor.Rest())
	usz, err := safecast.Conv[uint32](sz)
	if err != nil {
		panic(fmt.Errorf("bumpRune overflow: %w", err))
	}
	lx.cursor.Off += usz
}

// Имя тега начинается с буквы; non-ASCII допускаем целиком.
func isTagNameStart(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || b >= utf8.RuneSelf
}

// Атрибуты также могут начинаться с '@', ':', '_' и цифр (bare values).
func isNameStart(b byte) bool {
	return isNameContinue(b) && b != '/'
}

func isNameContinue(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '"', '\'', '<', '>', '=', '{', '}', '`':
		return false
	}
	return b > 0x1f && b != 0x7f
}

func quoteText(s string) string {
	return strconv.Quote(s)
}
