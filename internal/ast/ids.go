package ast

type (
	// NodeID addresses a Node in Document.Nodes.
	NodeID uint32
	// подсущности
	ElementID uint32
	AttrID    uint32
	TextID    uint32
)

const (
	NoNodeID    NodeID    = 0
	NoElementID ElementID = 0
	NoAttrID    AttrID    = 0
	NoTextID    TextID    = 0
)

func (id NodeID) IsValid() bool    { return id != NoNodeID }
func (id ElementID) IsValid() bool { return id != NoElementID }
func (id AttrID) IsValid() bool    { return id != NoAttrID }
func (id TextID) IsValid() bool    { return id != NoTextID }
