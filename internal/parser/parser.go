package parser

import (
	"orlint/internal/ast"
	"orlint/internal/diag"
	"orlint/internal/lexer"
	"orlint/internal/source"
	"orlint/internal/token"
)

type Options struct {
	MaxErrors     uint
	CurrentErrors uint
	// Reporter additionally receives every parse diagnostic; may be nil.
	Reporter diag.Reporter
}

// Enough - проверить, достигли ли мы максимального количества ошибок
func (o *Options) Enough() bool {
	if o.MaxErrors == 0 {
		return false
	}
	return o.CurrentErrors >= o.MaxErrors
}

// openElem — элемент, ожидающий закрывающего тега.
type openElem struct {
	id   ast.NodeID
	name string
}

// Parser — состояние парсера на один файл
type Parser struct {
	lx       *lexer.Lexer
	doc      *ast.Document
	file     *source.File
	opts     Options
	bag      *diag.Bag
	stack    []openElem
	lastSpan source.Span // span последнего съеденного токена
}

// ParseFile parses one file of fs. It never fails: malformed input yields
// parse-error diagnostics in Document.Diagnostics and a best-effort tree.
// Identical content always produces an identical tree and diagnostics.
func ParseFile(fs *source.FileSet, id source.FileID, opts Options) *ast.Document {
	file := fs.Get(id)
	p := &Parser{
		doc:  ast.NewDocument(file),
		file: file,
		opts: opts,
		bag:  diag.NewBag(0),
	}
	p.lx = lexer.New(file, lexer.Options{Reporter: lexReporter{p}})
	p.lastSpan = source.Span{File: file.ID}

	p.parseContent()
	p.closeAllAtEOF()

	p.bag.Sort()
	p.bag.Dedup()
	p.doc.Diagnostics = p.bag.Items()
	return p.doc
}

// ParseSource adds content to fs as a virtual file and parses it.
func ParseSource(fs *source.FileSet, path string, content []byte, opts Options) *ast.Document {
	return ParseFile(fs, fs.AddVirtual(path, content), opts)
}

// Parse parses content in a fresh file set and returns the document together
// with its file, for callers that handle one file at a time.
func Parse(path string, content []byte) (*ast.Document, *source.File) {
	fs := source.NewFileSet()
	doc := ParseSource(fs, path, content, Options{})
	return doc, fs.Get(doc.File)
}

func (p *Parser) at(k token.Kind) bool {
	return p.lx.Peek().Kind == k
}

func (p *Parser) current() ast.NodeID {
	if len(p.stack) == 0 {
		return ast.NoNodeID
	}
	return p.stack[len(p.stack)-1].id
}

// parseContent — основной цикл: текст, комментарии и теги до EOF.
func (p *Parser) parseContent() {
	for {
		tok := p.lx.Peek()
		switch tok.Kind {
		case token.EOF:
			return
		case token.Text, token.Expr:
			p.parseText()
		case token.Comment:
			p.advance()
			p.doc.AddText(p.current(), ast.NodeComment, ast.Text{Value: tok.Text}, tok.Span)
		case token.LAngle:
			p.parseStartTag()
		case token.LAngleSlash:
			p.parseEndTag()
		default:
			// в режиме контента других токенов нет; защищаемся от зацикливания
			p.advance()
		}
	}
}

// parseText склеивает подряд идущие Text и Expr в один TextContent.
// Узлы, состоящие только из пробелов, не создаются.
func (p *Parser) parseText() {
	var (
		span    source.Span
		started bool
		interp  []source.Span
		blank   = true
	)
	for {
		tok := p.lx.Peek()
		if tok.Kind != token.Text && tok.Kind != token.Expr {
			break
		}
		p.advance()
		if !started {
			span = tok.Span
			started = true
		} else {
			span = span.Cover(tok.Span)
		}
		if tok.Kind == token.Expr {
			interp = append(interp, tok.Span)
			blank = false
		} else if !isBlank(tok.Text) {
			blank = false
		}
	}
	if !started || blank {
		return
	}
	p.doc.AddText(p.current(), ast.NodeTextContent, ast.Text{
		Value:          p.file.Text(span),
		Interpolations: interp,
	}, span)
}

func isBlank(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
		default:
			return false
		}
	}
	return true
}
