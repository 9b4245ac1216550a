package term

import (
	"sort"

	"github.com/jward/mercanopy/internal/token"
)

// Clause is one top-level sentence. It owns the arena range [First, Last)
// and is the scope of its variables.
type Clause struct {
	Index int
	Root  ID
	First ID
	Last  ID
	End   *token.Token
	Range token.Range

	// Vars maps each named variable to every occurrence, in source order.
	// Variables whose names start with '_' are not recorded.
	Vars map[string][]ID
	// VarOrder lists Vars keys in order of first occurrence.
	VarOrder []string

	// Callee is the head this clause defines, or None.
	Callee ID
	// Called lists the references made by this clause, in visit order.
	Called []ID
}

// NewClause returns an empty clause starting at the arena's next ID.
func NewClause(index int, a *Arena) *Clause {
	return &Clause{
		Index:  index,
		Root:   None,
		First:  ID(a.Len()),
		Last:   ID(a.Len()),
		Vars:   make(map[string][]ID),
		Callee: None,
	}
}

// Owns reports whether id was allocated while reading this clause.
func (c *Clause) Owns(id ID) bool {
	return id >= c.First && id < c.Last
}

// AddVar records an occurrence of variable name.
func (c *Clause) AddVar(name string, id ID) {
	if _, ok := c.Vars[name]; !ok {
		c.VarOrder = append(c.VarOrder, name)
	}
	c.Vars[name] = append(c.Vars[name], id)
}

// ClauseAt returns the index of the clause whose range contains pos, or -1.
// clauses must be in source order.
func ClauseAt(clauses []*Clause, pos token.Pos) int {
	i := sort.Search(len(clauses), func(i int) bool {
		return !clauses[i].Range.End.Before(pos)
	})
	if i < len(clauses) && clauses[i].Range.Contains(pos) {
		return i
	}
	return -1
}

// TermAt returns the innermost term of the given clauses whose range
// contains pos, or None.
func TermAt(a *Arena, clauses []*Clause, pos token.Pos) ID {
	ci := ClauseAt(clauses, pos)
	if ci < 0 || clauses[ci].Root == None {
		return None
	}
	id := clauses[ci].Root
	if !a.Get(id).Range().Contains(pos) {
		return None
	}
	return a.descend(id, pos)
}

func (a *Arena) descend(id ID, pos token.Pos) ID {
	for {
		next := None
		for _, child := range a.Children(id) {
			if a.terms[child].Range().Contains(pos) {
				next = child
				break
			}
		}
		if next == None {
			return id
		}
		id = next
	}
}
