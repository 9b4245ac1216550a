// Package ops is the operator table consulted by the term reader.
package ops

// MaxPriority bounds what an ordinary term may contain.
const MaxPriority = 1200

// ArgPriority is used inside delimiters, where the closing token rather
// than priority terminates the sub-term.
const ArgPriority = MaxPriority + 1

// Assoc is an operand associativity.
type Assoc uint8

const (
	// X requires the operand priority to be strictly lower.
	X Assoc = iota
	// Y allows the operand priority to equal the operator's.
	Y
)

func (a Assoc) String() string {
	if a == Y {
		return "y"
	}
	return "x"
}

// Adjust returns the maximum operand priority for an operator of priority
// p whose operand has associativity a.
func Adjust(p int, a Assoc) int {
	if a == Y {
		return p
	}
	return p - 1
}

// ClassKind tags an operator class.
type ClassKind uint8

const (
	Infix ClassKind = iota
	Prefix
	BinaryPrefix
)

func (k ClassKind) String() string {
	switch k {
	case Infix:
		return "infix"
	case Prefix:
		return "prefix"
	case BinaryPrefix:
		return "binary_prefix"
	}
	return "unknown"
}

// Class is one operator-class entry. Infix uses Left and Right; Prefix uses
// Right; BinaryPrefix uses Left for its first operand and Right for its
// second.
type Class struct {
	Kind     ClassKind
	Left     Assoc
	Right    Assoc
	Priority int
}

// LeftPriority is the maximum priority allowed for the left (or first) operand.
func (c Class) LeftPriority() int { return Adjust(c.Priority, c.Left) }

// RightPriority is the maximum priority allowed for the right (or only) operand.
func (c Class) RightPriority() int { return Adjust(c.Priority, c.Right) }

// InfixOp builds an infix entry.
func InfixOp(left, right Assoc, priority int) Class {
	return Class{Kind: Infix, Left: left, Right: right, Priority: priority}
}

// PrefixOp builds a prefix entry.
func PrefixOp(right Assoc, priority int) Class {
	return Class{Kind: Prefix, Right: right, Priority: priority}
}

// BinaryPrefixOp builds a binary prefix entry such as `some Vars Goal`.
func BinaryPrefixOp(first, second Assoc, priority int) Class {
	return Class{Kind: BinaryPrefix, Left: first, Right: second, Priority: priority}
}

// Backquoted is the class given to `Name` operators.
var Backquoted = InfixOp(Y, X, 120)

// Table maps operator names to their class entries. It is immutable once
// built and safe for concurrent readers.
type Table struct {
	entries map[string][]Class
}

// NewTable builds a table from the given entries.
func NewTable(entries map[string][]Class) *Table {
	t := &Table{entries: make(map[string][]Class, len(entries))}
	for name, classes := range entries {
		t.entries[name] = append([]Class(nil), classes...)
	}
	return t
}

// IsOp reports whether name has any operator entry.
func (t *Table) IsOp(name string) bool {
	_, ok := t.entries[name]
	return ok
}

func (t *Table) lookup(name string, kind ClassKind) (Class, bool) {
	for _, c := range t.entries[name] {
		if c.Kind == kind {
			return c, true
		}
	}
	return Class{}, false
}

// Infix returns the infix entry for name.
func (t *Table) Infix(name string) (Class, bool) { return t.lookup(name, Infix) }

// Prefix returns the prefix entry for name.
func (t *Table) Prefix(name string) (Class, bool) { return t.lookup(name, Prefix) }

// BinaryPrefix returns the binary prefix entry for name.
func (t *Table) BinaryPrefix(name string) (Class, bool) { return t.lookup(name, BinaryPrefix) }

// Classes returns every entry registered for name.
func (t *Table) Classes(name string) []Class {
	return append([]Class(nil), t.entries[name]...)
}

// Len returns the number of distinct operator names.
func (t *Table) Len() int { return len(t.entries) }

var defaultTable = NewTable(mercury)

// Default returns the shared Mercury operator table.
func Default() *Table { return defaultTable }
