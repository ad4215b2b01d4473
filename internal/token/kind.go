package token

// Kind represents the category of a source token.
type Kind uint8

const (
	// Invalid indicates an erroneous token.
	Invalid Kind = iota
	// EOF marks the end of the source input.
	EOF

	// Text is a run of character data between markup.
	Text
	// Comment is a whole <!-- ... --> comment.
	Comment
	// Expr is a brace-delimited expression {…}, braces included.
	Expr

	// LAngle opens a start tag: '<'.
	LAngle
	// LAngleSlash opens an end tag: '</'.
	LAngleSlash
	// Gt closes a tag: '>'.
	Gt
	// SlashGt closes a self-closing tag: '/>'.
	SlashGt
	// Assign separates an attribute name from its value: '='.
	Assign

	// Name is a tag name, attribute name or unquoted attribute value.
	Name
	// String is a quoted attribute value, quotes included.
	String
)

var kindNames = [...]string{
	Invalid:     "invalid",
	EOF:         "end of file",
	Text:        "text",
	Comment:     "comment",
	Expr:        "expression",
	LAngle:      "'<'",
	LAngleSlash: "'</'",
	Gt:          "'>'",
	SlashGt:     "'/>'",
	Assign:      "'='",
	Name:        "name",
	String:      "string",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "Kind(?)"
}
