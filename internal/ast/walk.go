package ast

import "iter"

// Inspect walks the document in source order: an element first, then its
// attributes, then its children. Returning false skips the node's subtree.
func (d *Document) Inspect(fn func(id NodeID, n *Node) bool) {
	for _, root := range d.Roots {
		d.inspectFrom(root, fn)
	}
}

func (d *Document) inspectFrom(id NodeID, fn func(NodeID, *Node) bool) {
	n := d.Node(id)
	if n == nil || !fn(id, n) {
		return
	}
	el := d.Element(id)
	if el == nil {
		return
	}
	for _, a := range el.Attrs {
		if an := d.Node(a); an != nil {
			fn(a, an)
		}
	}
	for _, c := range el.Children {
		d.inspectFrom(c, fn)
	}
}

// All yields every node in Inspect order.
func (d *Document) All() iter.Seq2[NodeID, *Node] {
	return func(yield func(NodeID, *Node) bool) {
		stopped := false
		d.Inspect(func(id NodeID, n *Node) bool {
			if stopped {
				return false
			}
			if !yield(id, n) {
				stopped = true
				return false
			}
			return true
		})
	}
}

// OfKind yields the nodes of one kind in document order.
func (d *Document) OfKind(kind NodeKind) iter.Seq[NodeID] {
	return func(yield func(NodeID) bool) {
		for id, n := range d.All() {
			if n.Kind == kind && !yield(id) {
				return
			}
		}
	}
}
