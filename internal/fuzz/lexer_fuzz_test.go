package fuzztests

import (
	"testing"

	"orlint/internal/diag"
	"orlint/internal/lexer"
	"orlint/internal/source"
	"orlint/internal/token"
)

// FuzzLexerTokens alternates modes the way the parser does and checks that
// tokens advance monotonically and stay within the file.
func FuzzLexerTokens(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		input = clampInput(input)

		fs := source.NewFileSet()
		fileID := fs.AddVirtual("fuzz.orbit", input)
		file := fs.Get(fileID)

		bag := diag.NewBag(64)
		reporter := diag.BagReporter{Bag: bag}
		lx := lexer.New(file, lexer.Options{Reporter: reporter})

		size := len(file.Content)
		var last uint32
		// каждый токен потребляет хотя бы один байт, кроме EOF
		for steps := 0; steps <= size+1; steps++ {
			tok := lx.Next()
			if !tok.Span.Within(size) {
				t.Fatalf("token %s out of bounds: %s", tok.Kind, tok.Span)
			}
			if tok.Span.Start < last {
				t.Fatalf("token %s went backwards: %d < %d", tok.Kind, tok.Span.Start, last)
			}
			last = tok.Span.End
			if tok.Kind == token.EOF {
				return
			}
			switch tok.Kind {
			case token.LAngle, token.LAngleSlash:
				lx.SetMode(lexer.ModeTag)
			case token.Gt, token.SlashGt:
				lx.SetMode(lexer.ModeContent)
			}
		}
		t.Fatalf("lexer did not reach EOF within %d tokens", size+2)
	})
}
