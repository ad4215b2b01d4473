package rules

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"orlint/internal/diag"
)

// Registry stores rules keyed by id. It is safe for concurrent use; after
// start-up it is effectively read-only.
type Registry struct {
	mu      sync.RWMutex
	rules   map[diag.Code]Rule
	origins map[diag.Code]Origin
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rules:   make(map[diag.Code]Rule),
		origins: make(map[diag.Code]Origin),
	}
}

// Register adds a rule. Ids must be unique across origins; engine codes such
// as parse-error are reserved.
func (r *Registry) Register(rule Rule, origin Origin) error {
	if rule == nil {
		return errors.New("register: nil rule")
	}
	meta := rule.Meta()
	if err := validateID(meta.ID); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rules[meta.ID]; ok {
		return &DuplicateRuleError{ID: meta.ID, Existing: r.origins[meta.ID], Incoming: origin}
	}
	r.rules[meta.ID] = rule
	r.origins[meta.ID] = origin
	return nil
}

// MustRegister is Register that panics; for init-time wiring only.
func (r *Registry) MustRegister(rule Rule, origin Origin) {
	if err := r.Register(rule, origin); err != nil {
		panic(err)
	}
}

func validateID(id diag.Code) error {
	if id == "" {
		return errors.New("register: empty rule id")
	}
	if id.IsEngine() {
		return fmt.Errorf("register: rule id %q is reserved", id)
	}
	if strings.ToLower(string(id)) != string(id) || strings.ContainsAny(string(id), " \t\n") {
		return fmt.Errorf("register: rule id %q must be lower-case kebab-case", id)
	}
	return nil
}

// Lookup returns the rule with the given id.
func (r *Registry) Lookup(id diag.Code) (Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[id]
	return rule, ok
}

// Has reports whether id is registered.
func (r *Registry) Has(id diag.Code) bool {
	_, ok := r.Lookup(id)
	return ok
}

// Origin returns where the rule was registered from.
func (r *Registry) Origin(id diag.Code) (Origin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.origins[id]
	return o, ok
}

// All returns every rule sorted by id.
func (r *Registry) All() []Rule {
	r.mu.RLock()
	out := make([]Rule, 0, len(r.rules))
	for _, rule := range r.rules {
		out = append(out, rule)
	}
	r.mu.RUnlock()
	slices.SortFunc(out, func(a, b Rule) int {
		return strings.Compare(string(a.Meta().ID), string(b.Meta().ID))
	})
	return out
}

// IDs returns every registered id, sorted.
func (r *Registry) IDs() []diag.Code {
	all := r.All()
	ids := make([]diag.Code, len(all))
	for i, rule := range all {
		ids[i] = rule.Meta().ID
	}
	return ids
}

// ByCategory returns the rules of one category sorted by id.
func (r *Registry) ByCategory(cat Category) []Rule {
	var out []Rule
	for _, rule := range r.All() {
		if rule.Meta().Category == cat {
			out = append(out, rule)
		}
	}
	return out
}

// Len returns the number of registered rules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules)
}
