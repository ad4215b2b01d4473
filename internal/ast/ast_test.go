package ast

import (
	"testing"

	"orlint/internal/source"
)

func buildDoc(t *testing.T) (*Document, NodeID, NodeID) {
	t.Helper()
	fs := source.NewFileSet()
	f := fs.Get(fs.AddVirtual("a.orbit", []byte(`<div id="a" id="b"><p>hi</p></div>`)))
	doc := NewDocument(f)
	div := doc.AddElement(NoNodeID, NodeElement, Element{Name: "div"}, source.Span{Start: 0, End: 34})
	doc.AddAttribute(div, NodeAttribute, Attribute{Name: "id", Value: Value{Kind: ValueLiteral, Text: "a"}}, source.Span{Start: 5, End: 11})
	doc.AddAttribute(div, NodeAttribute, Attribute{Name: "id", Value: Value{Kind: ValueLiteral, Text: "b"}}, source.Span{Start: 12, End: 18})
	p := doc.AddElement(div, NodeElement, Element{Name: "p"}, source.Span{Start: 19, End: 28})
	doc.AddText(p, NodeTextContent, Text{Value: "hi"}, source.Span{Start: 22, End: 24})
	return doc, div, p
}

func TestAttrLastOneWins(t *testing.T) {
	doc, div, _ := buildDoc(t)
	_, attr := doc.Attr(div, "id")
	if attr == nil || attr.Value.Text != "b" {
		t.Fatalf("Attr(id) = %+v", attr)
	}
	if got := len(doc.Element(div).Attrs); got != 2 {
		t.Fatalf("Attrs len = %d, want both duplicates kept", got)
	}
}

func TestInspectOrderAndParents(t *testing.T) {
	doc, div, p := buildDoc(t)
	var kinds []NodeKind
	doc.Inspect(func(id NodeID, n *Node) bool {
		kinds = append(kinds, n.Kind)
		return true
	})
	want := []NodeKind{NodeElement, NodeAttribute, NodeAttribute, NodeElement, NodeTextContent}
	if len(kinds) != len(want) {
		t.Fatalf("kinds = %v", kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("kinds = %v, want %v", kinds, want)
		}
	}
	if anc := doc.Ancestors(doc.Element(p).Children[0]); len(anc) != 2 || anc[0] != p || anc[1] != div {
		t.Fatalf("Ancestors = %v", anc)
	}
	if doc.TextContent(div) != "hi" {
		t.Fatalf("TextContent = %q", doc.TextContent(div))
	}
}

func TestAllStopsEarly(t *testing.T) {
	doc, _, _ := buildDoc(t)
	n := 0
	for range doc.All() {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Fatalf("visited %d", n)
	}
}

func TestLookupElement(t *testing.T) {
	spec, ok := LookupElement("IMG")
	if ok {
		t.Fatalf("capitalised names are components, got %+v", spec)
	}
	spec, ok = LookupElement("img")
	if !ok || !spec.HasFlag(ElementFlagVoid) {
		t.Fatalf("img spec = %+v", spec)
	}
	if h, _ := LookupElement("h3"); h.Level != 3 {
		t.Fatalf("h3 level = %d", h.Level)
	}
	specs := ElementSpecs()
	for i := 1; i < len(specs); i++ {
		if specs[i-1].Name >= specs[i].Name {
			t.Fatalf("specs not sorted at %d", i)
		}
	}
}
