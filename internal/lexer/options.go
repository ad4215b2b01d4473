package lexer

import (
	"orlint/internal/diag"
	"orlint/internal/source"
)

// Options configure a Lexer.
type Options struct {
	Reporter diag.Reporter // может быть nil — тогда ошибки игнорируем (но продолжаем лексить)
}

func (lx *Lexer) errLex(sp source.Span, msg string) {
	if lx.opts.Reporter != nil {
		diag.ReportError(lx.opts.Reporter, diag.ParseError, sp, msg).Emit()
	}
}
