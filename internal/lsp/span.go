package lsp

import (
	"sort"
	"unicode/utf8"

	"fortio.org/safecast"

	"orlint/internal/source"
)

const maxUint32 = ^uint32(0)

func safeUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		return maxUint32
	}
	return v
}

// lineBounds returns the byte range of line (0-based) without its newline.
func lineBounds(file *source.File, line int) (start, end uint32) {
	contentLen := safeUint32(len(file.Content))
	if line > len(file.LineIdx) {
		return contentLen, contentLen
	}
	if line > 0 {
		start = file.LineIdx[line-1] + 1
	}
	end = contentLen
	if line < len(file.LineIdx) {
		end = file.LineIdx[line]
	}
	return start, max(start, end)
}

func offsetForPositionInFile(file *source.File, pos position) uint32 {
	if file == nil || pos.Line < 0 || pos.Character < 0 || len(file.Content) == 0 {
		return 0
	}
	off, lineEnd := lineBounds(file, pos.Line)
	units := 0
	for off < lineEnd && units < pos.Character {
		r, size := utf8.DecodeRune(file.Content[off:lineEnd])
		need := utf16Len(r)
		if units+need > pos.Character {
			break
		}
		units += need
		off += safeUint32(size)
	}
	return off
}

func positionForOffsetInFile(file *source.File, offset uint32) position {
	if file == nil {
		return position{}
	}
	offset = min(offset, safeUint32(len(file.Content)))
	lineIdx := file.LineIdx
	line := sort.Search(len(lineIdx), func(i int) bool { return lineIdx[i] >= offset })
	var lineStart uint32
	if line > 0 {
		lineStart = min(lineIdx[line-1]+1, offset)
	}
	units := 0
	for off := lineStart; off < offset; {
		r, size := utf8.DecodeRune(file.Content[off:offset])
		units += utf16Len(r)
		off += safeUint32(size)
	}
	return position{Line: line, Character: units}
}

func rangeForSpan(file *source.File, span source.Span) lspRange {
	if file == nil {
		return lspRange{}
	}
	return lspRange{
		Start: positionForOffsetInFile(file, span.Start),
		End:   positionForOffsetInFile(file, span.End),
	}
}

func spanForRange(file *source.File, rng lspRange) source.Span {
	if file == nil {
		return source.Span{}
	}
	start := offsetForPositionInFile(file, rng.Start)
	end := max(offsetForPositionInFile(file, rng.End), start)
	return source.Span{File: file.ID, Start: start, End: end}
}
