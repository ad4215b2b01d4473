package diag

import (
	"cmp"
	"slices"
	"strings"
)

// Bag collects diagnostics up to an optional limit. It is not safe for
// concurrent use.
type Bag struct {
	items []Diagnostic
	max   int // 0 — без лимита
}

func NewBag(max int) *Bag {
	if max < 0 {
		max = 0
	}
	return &Bag{
		items: make([]Diagnostic, 0, min(max, 64)),
		max:   max,
	}
}

// Add добавляет диагностику, учитывая лимит.
// Возвращает false, если диагностика не добавлена (достигнут лимит).
func (b *Bag) Add(d Diagnostic) bool {
	if b.max > 0 && len(b.items) >= b.max {
		return false
	}
	b.items = append(b.items, d)
	return true
}

// HasErrors возвращает true, если есть хотя бы одна диагностика с Severity >= Error
func (b *Bag) HasErrors() bool {
	return HasErrors(b.items)
}

func (b *Bag) Len() int {
	return len(b.items)
}

// Items возвращает read-only slice диагностик.
// ВАЖНО: не модифицируйте возвращаемый срез! (он указывает на внутренний массив Bag)
func (b *Bag) Items() []Diagnostic {
	return b.items
}

// Merge объединяет диагностики из другого Bag, игнорируя лимит.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	b.items = append(b.items, other.items...)
	if b.max > 0 && len(b.items) > b.max {
		b.max = len(b.items)
	}
}

// Sort orders diagnostics by span start, then code, then span end and message.
func (b *Bag) Sort() {
	SortDiagnostics(b.items)
}

// SortDiagnostics sorts in place by (start, code, end, message, severity desc).
func SortDiagnostics(items []Diagnostic) {
	slices.SortStableFunc(items, Compare)
}

// Compare is the total order used for every diagnostic list the engine returns.
func Compare(a, b Diagnostic) int {
	if c := cmp.Compare(a.Primary.File, b.Primary.File); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Primary.Start, b.Primary.Start); c != 0 {
		return c
	}
	if c := strings.Compare(string(a.Code), string(b.Code)); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Primary.End, b.Primary.End); c != 0 {
		return c
	}
	if c := strings.Compare(a.Message, b.Message); c != 0 {
		return c
	}
	return cmp.Compare(b.Severity, a.Severity)
}

// Dedup drops diagnostics with the same code, span and message.
func (b *Bag) Dedup() {
	type key struct {
		code       Code
		start, end uint32
		msg        string
	}
	seen := make(map[key]struct{}, len(b.items))
	out := b.items[:0]
	for _, d := range b.items {
		k := key{d.Code, d.Primary.Start, d.Primary.End, d.Message}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, d)
	}
	b.items = out
}

// HasErrors reports whether any diagnostic is Error severity.
func HasErrors(items []Diagnostic) bool {
	for i := range items {
		if items[i].Severity >= SevError {
			return true
		}
	}
	return false
}

// CountBySeverity returns counts indexed by Severity.
func CountBySeverity(items []Diagnostic) [SevError + 1]int {
	var out [SevError + 1]int
	for i := range items {
		if items[i].Severity <= SevError {
			out[items[i].Severity]++
		}
	}
	return out
}
