package ast

import (
	"strings"

	"orlint/internal/diag"
	"orlint/internal/project"
	"orlint/internal/source"
)

// Document is the parsed form of one source file. It is built once by the
// parser and is read-only afterwards, so rules may share it across goroutines.
type Document struct {
	Path        string
	File        source.FileID
	ContentHash project.Digest
	Size        uint32
	Roots       []NodeID
	// Diagnostics are the parse-error diagnostics, sorted.
	Diagnostics []diag.Diagnostic

	Nodes    *Arena[Node]
	Elements *Arena[Element]
	Attrs    *Arena[Attribute]
	Texts    *Arena[Text]
}

// NewDocument allocates an empty document for file.
func NewDocument(file *source.File) *Document {
	capHint := uint(len(file.Content)/16 + 4)
	return &Document{
		Path:        file.Path,
		File:        file.ID,
		ContentHash: project.Digest(file.Hash),
		Size:        file.Size(),
		Nodes:       NewArena[Node](capHint),
		Elements:    NewArena[Element](capHint / 4),
		Attrs:       NewArena[Attribute](capHint / 4),
		Texts:       NewArena[Text](capHint / 4),
	}
}

// FullSpan covers the whole file; used for file-level diagnostics.
func (d *Document) FullSpan() source.Span {
	return source.Span{File: d.File, Start: 0, End: d.Size}
}

// FileStartSpan is the empty span at offset zero.
func (d *Document) FileStartSpan() source.Span {
	return source.Span{File: d.File}
}

// Node returns the node header, or nil for an invalid id.
func (d *Document) Node(id NodeID) *Node {
	return d.Nodes.Get(uint32(id))
}

// Element returns the element payload for Element and StyleBlock nodes.
func (d *Document) Element(id NodeID) *Element {
	n := d.Node(id)
	if n == nil || (n.Kind != NodeElement && n.Kind != NodeStyleBlock) {
		return nil
	}
	return d.Elements.Get(n.Payload)
}

// Attribute returns the payload for Attribute and EventBinding nodes.
func (d *Document) Attribute(id NodeID) *Attribute {
	n := d.Node(id)
	if n == nil || (n.Kind != NodeAttribute && n.Kind != NodeEventBinding) {
		return nil
	}
	return d.Attrs.Get(n.Payload)
}

// Text returns the payload for TextContent and Comment nodes.
func (d *Document) Text(id NodeID) *Text {
	n := d.Node(id)
	if n == nil || (n.Kind != NodeTextContent && n.Kind != NodeComment) {
		return nil
	}
	return d.Texts.Get(n.Payload)
}

// Attr looks an attribute up by exact name. Duplicates resolve to the last
// occurrence in source order.
func (d *Document) Attr(elem NodeID, name string) (NodeID, *Attribute) {
	el := d.Element(elem)
	if el == nil {
		return NoNodeID, nil
	}
	id, ok := el.attrIndex[name]
	if !ok {
		return NoNodeID, nil
	}
	return id, d.Attribute(id)
}

// HasAttr reports whether the element carries the attribute.
func (d *Document) HasAttr(elem NodeID, name string) bool {
	id, _ := d.Attr(elem, name)
	return id.IsValid()
}

// EventBindings returns the EventBinding nodes of an element in source order.
func (d *Document) EventBindings(elem NodeID) []NodeID {
	el := d.Element(elem)
	if el == nil {
		return nil
	}
	var out []NodeID
	for _, id := range el.Attrs {
		if n := d.Node(id); n != nil && n.Kind == NodeEventBinding {
			out = append(out, id)
		}
	}
	return out
}

// Ancestors returns the parent chain of id, nearest first.
func (d *Document) Ancestors(id NodeID) []NodeID {
	var out []NodeID
	for n := d.Node(id); n != nil && n.Parent.IsValid(); n = d.Node(n.Parent) {
		out = append(out, n.Parent)
	}
	return out
}

// TextContent concatenates the text of all descendant TextContent nodes,
// trimmed. Interpolations are included as written.
func (d *Document) TextContent(elem NodeID) string {
	var b strings.Builder
	d.inspectFrom(elem, func(id NodeID, n *Node) bool {
		if n.Kind == NodeTextContent {
			if t := d.Texts.Get(n.Payload); t != nil && !t.Raw {
				b.WriteString(t.Value)
			}
		}
		return true
	})
	return strings.TrimSpace(b.String())
}
