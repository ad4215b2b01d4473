package parser

import (
	"orlint/internal/diag"
	"orlint/internal/source"
	"orlint/internal/token"
)

// advance — съедает следующий токен и обновляет lastSpan
func (p *Parser) advance() token.Token {
	tok := p.lx.Next()
	if tok.Kind != token.EOF {
		p.lastSpan = tok.Span
	}
	return tok
}

// getDiagnosticSpan — лучший span для диагностики: текущий токен, а на EOF —
// пустая позиция сразу после последнего съеденного токена.
func (p *Parser) getDiagnosticSpan() source.Span {
	peek := p.lx.Peek()
	if peek.Kind == token.EOF {
		return p.lastSpan.ZeroideToEnd()
	}
	return peek.Span
}

// репортует ошибку и передает текущий спан
func (p *Parser) err(msg string) bool {
	return p.report(diag.SevError, p.getDiagnosticSpan(), msg)
}

func (p *Parser) errAt(sp source.Span, msg string) bool {
	return p.report(diag.SevError, sp, msg)
}

func (p *Parser) report(sev diag.Severity, sp source.Span, msg string) bool {
	if sev == diag.SevError {
		p.opts.CurrentErrors++
	}
	if p.opts.Enough() && p.opts.CurrentErrors > p.opts.MaxErrors {
		return false // достигли максимального количества ошибок
	}
	d := diag.New(sev, diag.ParseError, sp, msg)
	p.bag.Add(d)
	if p.opts.Reporter != nil {
		p.opts.Reporter.Report(d.Code, d.Severity, d.Primary, d.Message, nil, nil)
	}
	return true
}

// lexReporter пропускает ошибки лексера через общий счётчик парсера.
type lexReporter struct{ p *Parser }

func (r lexReporter) Report(_ diag.Code, sev diag.Severity, primary source.Span, msg string, _ []diag.Note, _ []diag.Fix) {
	r.p.report(sev, primary, msg)
}

// resyncAttr — восстановление внутри тега: пропускаем токены до следующей
// границы атрибута (имя после пробела) или до конца тега.
func (p *Parser) resyncAttr() {
	for {
		tok := p.lx.Peek()
		switch tok.Kind {
		case token.EOF, token.Gt, token.SlashGt, token.LAngle, token.LAngleSlash:
			return
		case token.Name:
			if tok.HasLeadingSpace() {
				return
			}
		}
		p.advance()
	}
}

// resyncTagEnd пропускает всё до '>' включительно, не выходя за начало следующего тега.
func (p *Parser) resyncTagEnd() {
	for {
		switch p.lx.Peek().Kind {
		case token.EOF, token.LAngle, token.LAngleSlash:
			return
		case token.Gt, token.SlashGt:
			p.advance()
			return
		}
		p.advance()
	}
}
