package testkit

import (
	"fmt"

	"orlint/internal/ast"
	"orlint/internal/source"
)

// CheckSpanInvariants runs a minimal set of span invariants on a parsed document:
// 1) every node span lies within the file and points at it
// 2) every child span is contained in its parent's span
// 3) attribute spans lie inside the element's start tag
// 4) siblings are ordered and do not overlap
// 5) parse diagnostics lie within the file
func CheckSpanInvariants(doc *ast.Document, sf *source.File) error {
	if doc == nil || sf == nil {
		return fmt.Errorf("nil document or file")
	}
	size := len(sf.Content)
	var err error
	check := func(id ast.NodeID, n *ast.Node) bool {
		if err != nil {
			return false
		}
		if n.Span.File != sf.ID {
			err = fmt.Errorf("node %d (%s) span file mismatch: got=%d want=%d", id, n.Kind, n.Span.File, sf.ID)
			return false
		}
		if !n.Span.Within(size) {
			err = fmt.Errorf("node %d (%s) span %v outside content of %d bytes", id, n.Kind, n.Span, size)
			return false
		}
		if n.Parent.IsValid() {
			parent := doc.Node(n.Parent)
			if parent == nil {
				err = fmt.Errorf("node %d has dangling parent %d", id, n.Parent)
				return false
			}
			if !parent.Span.Contains(n.Span) {
				err = fmt.Errorf("node %d (%s) span %v escapes parent span %v", id, n.Kind, n.Span, parent.Span)
				return false
			}
			if n.Kind == ast.NodeAttribute || n.Kind == ast.NodeEventBinding {
				if el := doc.Element(n.Parent); el != nil && !el.StartTag.Contains(n.Span) {
					err = fmt.Errorf("attribute %d span %v outside start tag %v", id, n.Span, el.StartTag)
					return false
				}
			}
		}
		if el := doc.Element(id); el != nil {
			if e := checkSiblings(doc, el.Children); e != nil {
				err = e
				return false
			}
		}
		return true
	}
	doc.Inspect(check)
	if err != nil {
		return err
	}
	if e := checkSiblings(doc, doc.Roots); e != nil {
		return e
	}
	for _, d := range doc.Diagnostics {
		if !d.Primary.Within(size) {
			return fmt.Errorf("diagnostic %q span %v outside content", d.Message, d.Primary)
		}
	}
	return nil
}

func checkSiblings(doc *ast.Document, ids []ast.NodeID) error {
	var prev source.Span
	for i, id := range ids {
		n := doc.Node(id)
		if n == nil {
			return fmt.Errorf("nil node for id=%d", id)
		}
		if i > 0 && n.Span.Start < prev.End {
			return fmt.Errorf("sibling %d span %v overlaps previous %v", id, n.Span, prev)
		}
		prev = n.Span
	}
	return nil
}
