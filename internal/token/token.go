package token

import (
	"strings"

	"orlint/internal/source"
)

// Token represents a single source token with its location.
type Token struct {
	Kind    Kind
	Span    source.Span
	Text    string
	Leading []Trivia
}

// HasLeadingSpace reports whether whitespace separated this token from the previous one.
func (t Token) HasLeadingSpace() bool { return len(t.Leading) > 0 }

// IsTagEnd reports whether the token closes a tag.
func (t Token) IsTagEnd() bool { return t.Kind == Gt || t.Kind == SlashGt }

// IsTagStart reports whether the token starts a new tag.
func (t Token) IsTagStart() bool { return t.Kind == LAngle || t.Kind == LAngleSlash }

// Unquote strips the surrounding quotes of a String token.
// Unterminated strings lose only the opening quote.
func (t Token) Unquote() string {
	if t.Kind != String || t.Text == "" {
		return t.Text
	}
	q := t.Text[0]
	s := t.Text[1:]
	if s != "" && s[len(s)-1] == q {
		s = s[:len(s)-1]
	}
	return s
}

// ExprBody returns the text between the braces of an Expr token.
func (t Token) ExprBody() string {
	if t.Kind != Expr {
		return t.Text
	}
	s := strings.TrimPrefix(t.Text, "{")
	return strings.TrimSuffix(s, "}")
}
