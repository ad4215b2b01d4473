// Package token defines lexical token kinds for Orbit component markup.
// Invariants:
//   - Token.Text is exactly the source bytes covered by Token.Span.
//   - Whitespace inside tags is trivia; it never appears as a token. Tokens
//     record the trivia that preceded them (Token.Leading).
//   - Text runs in content mode keep their whitespace: Text tokens cover
//     every byte between markup tokens.
package token
