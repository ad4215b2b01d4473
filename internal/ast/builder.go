package ast

import "orlint/internal/source"

// Builder methods are used by the parser only. They take NodeIDs rather than
// payload pointers because allocation may move arena storage.

// AddElement appends an element (or style block) under parent.
func (d *Document) AddElement(parent NodeID, kind NodeKind, el Element, span source.Span) NodeID {
	el.attrIndex = make(map[string]NodeID, 4)
	payload := d.Elements.Allocate(el)
	return d.attach(parent, Node{Kind: kind, Span: span, Parent: parent, Payload: payload})
}

// AddAttribute appends an attribute or event binding to elem. Later
// attributes with the same name replace earlier ones in the lookup index.
func (d *Document) AddAttribute(elem NodeID, kind NodeKind, attr Attribute, span source.Span) NodeID {
	payload := d.Attrs.Allocate(attr)
	id := NodeID(d.Nodes.Allocate(Node{Kind: kind, Span: span, Parent: elem, Payload: payload}))
	if el := d.Element(elem); el != nil {
		el.Attrs = append(el.Attrs, id)
		el.attrIndex[attr.Name] = id
	}
	return id
}

// AddText appends a TextContent or Comment node under parent.
func (d *Document) AddText(parent NodeID, kind NodeKind, text Text, span source.Span) NodeID {
	payload := d.Texts.Allocate(text)
	return d.attach(parent, Node{Kind: kind, Span: span, Parent: parent, Payload: payload})
}

// SetSpan updates the node span once its extent is known.
func (d *Document) SetSpan(id NodeID, span source.Span) {
	if n := d.Node(id); n != nil {
		n.Span = span
	}
}

func (d *Document) attach(parent NodeID, n Node) NodeID {
	id := NodeID(d.Nodes.Allocate(n))
	if parent.IsValid() {
		if el := d.Element(parent); el != nil {
			el.Children = append(el.Children, id)
			return id
		}
	}
	d.Roots = append(d.Roots, id)
	return id
}
