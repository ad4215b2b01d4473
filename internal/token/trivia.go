package token

import "orlint/internal/source"

type TriviaKind uint8

const (
	TriviaSpace TriviaKind = iota
	TriviaNewline
)

type Trivia struct {
	Kind TriviaKind
	Span source.Span
	Text string
}
