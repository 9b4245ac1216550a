// Package symbols provides the name-keyed tables a document keeps for its
// definitions, references, declarations and exports.
package symbols

import "github.com/jward/mercanopy/internal/term"

// Table maps a name to every term registered under it. Names iterate in
// first-insertion order and terms in insertion order, so two tables built
// from the same input compare equal.
type Table struct {
	names []string
	terms map[string][]term.ID
}

// New returns an empty table.
func New() *Table {
	return &Table{terms: make(map[string][]term.ID)}
}

// Add registers id under name.
func (t *Table) Add(name string, id term.ID) {
	if _, ok := t.terms[name]; !ok {
		t.names = append(t.names, name)
	}
	t.terms[name] = append(t.terms[name], id)
}

// Get returns the terms registered under name.
func (t *Table) Get(name string) []term.ID {
	return t.terms[name]
}

// Names returns every name in first-insertion order.
func (t *Table) Names() []string {
	return t.names
}

// Len returns the total number of registered terms.
func (t *Table) Len() int {
	n := 0
	for _, ids := range t.terms {
		n += len(ids)
	}
	return n
}

// Each calls fn for every entry in deterministic order.
func (t *Table) Each(fn func(name string, id term.ID)) {
	for _, name := range t.names {
		for _, id := range t.terms[name] {
			fn(name, id)
		}
	}
}

// All returns every registered term in deterministic order.
func (t *Table) All() []term.ID {
	var out []term.ID
	t.Each(func(_ string, id term.ID) { out = append(out, id) })
	return out
}
