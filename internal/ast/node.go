package ast

import "orlint/internal/source"

// NodeKind tags the variant stored in a Node.
type NodeKind uint8

const (
	NodeInvalid NodeKind = iota
	NodeElement
	NodeAttribute
	NodeEventBinding
	NodeStyleBlock
	NodeTextContent
	NodeComment
)

func (k NodeKind) String() string {
	switch k {
	case NodeElement:
		return "Element"
	case NodeAttribute:
		return "Attribute"
	case NodeEventBinding:
		return "EventBinding"
	case NodeStyleBlock:
		return "StyleBlock"
	case NodeTextContent:
		return "TextContent"
	case NodeComment:
		return "Comment"
	}
	return "Invalid"
}

// Node is the common header of every syntax node. Payload indexes the arena
// that matches Kind: Elements for Element and StyleBlock, Attrs for Attribute
// and EventBinding, Texts for TextContent and Comment.
type Node struct {
	Kind    NodeKind
	Span    source.Span
	Parent  NodeID // не владеющая ссылка; NoNodeID для корней
	Payload uint32
}

// Element is a start tag with its content. StyleBlock nodes use the same
// payload with Style set.
type Element struct {
	Name        string
	NameSpan    source.Span
	StartTag    source.Span // от '<' до '>' или '/>' включительно
	CloseTag    source.Span // пустой, если закрывающего тега нет
	SelfClosing bool
	// Closed is false when the element was closed implicitly (EOF or an
	// ancestor's close tag).
	Closed   bool
	Attrs    []NodeID // Attribute и EventBinding в порядке исходника
	Children []NodeID
	Style    *StyleSheet

	attrIndex map[string]NodeID
}

// ValueKind describes how an attribute value was written.
type ValueKind uint8

const (
	// ValueBoolean — атрибут без значения: <input disabled>.
	ValueBoolean ValueKind = iota
	// ValueLiteral — строка в кавычках или bare value.
	ValueLiteral
	// ValueReference — выражение в фигурных скобках; не вычисляется.
	ValueReference
)

func (k ValueKind) String() string {
	switch k {
	case ValueLiteral:
		return "literal"
	case ValueReference:
		return "reference"
	}
	return "boolean"
}

// Value is an attribute value as written.
type Value struct {
	Kind  ValueKind
	Text  string      // без кавычек / без скобок
	Raw   string      // как в исходнике
	Span  source.Span // покрывает Raw
	Quote byte        // '"', '\'' или 0
}

// Attribute covers both plain attributes and event bindings.
type Attribute struct {
	Name     string
	NameSpan source.Span
	Value    Value
	// Event is the bound event name for EventBinding nodes ("click" for
	// on:click and @click).
	Event string
}

// Text is the payload of TextContent and Comment nodes.
type Text struct {
	Value string
	// Interpolations are the {…} spans inside dynamic text.
	Interpolations []source.Span
	// Raw marks the body of <script>/<style>, kept verbatim.
	Raw bool
}

// Dynamic reports whether the text contains interpolations.
func (t *Text) Dynamic() bool { return len(t.Interpolations) > 0 }

// StyleSheet is the parsed body of a <style> element.
type StyleSheet struct {
	Body  source.Span
	Rules []StyleRule
}

// StyleRule is one "selector { decl; ... }" block.
type StyleRule struct {
	Selector     string
	SelectorSpan source.Span
	Span         source.Span // от селектора до '}' включительно
	Body         source.Span // между фигурными скобками
	Decls        []StyleDecl
	// Nested marks at-rule blocks (@media …) whose inner rules follow in
	// StyleSheet.Rules; they carry no declarations of their own.
	Nested   bool
	Unclosed bool
}

// StyleDecl is "property: value".
type StyleDecl struct {
	Property string
	Value    string
	Span     source.Span
}
