package lsp

import "unicode/utf8"

// applyChanges applies incremental or full content changes in order.
func applyChanges(text string, changes []textDocumentContentChangeEvent) string {
	for _, change := range changes {
		if change.Range == nil {
			text = change.Text
			continue
		}
		start := offsetForPosition(text, change.Range.Start)
		end := max(offsetForPosition(text, change.Range.End), start)
		text = text[:start] + change.Text + text[end:]
	}
	return text
}

// offsetForPosition converts a UTF-16 position into a byte offset of text,
// clamping to the line end and to the text.
func offsetForPosition(text string, pos position) int {
	if pos.Line < 0 || pos.Character < 0 {
		return 0
	}
	line := 0
	i := 0
	for i < len(text) && line < pos.Line {
		if text[i] == '\n' {
			line++
		}
		i++
	}
	if line < pos.Line {
		return len(text)
	}
	units := 0
	for i < len(text) && text[i] != '\n' && units < pos.Character {
		r, size := utf8.DecodeRuneInString(text[i:])
		need := utf16Len(r)
		if units+need > pos.Character {
			break
		}
		units += need
		i += size
	}
	return i
}

// endPosition is the position just past the last character of text.
func endPosition(text string) position {
	line, lineStart := 0, 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			line++
			lineStart = i + 1
		}
	}
	units := 0
	for _, r := range text[lineStart:] {
		units += utf16Len(r)
	}
	return position{Line: line, Character: units}
}

func utf16Len(r rune) int {
	if r > 0xFFFF {
		return 2
	}
	return 1
}
