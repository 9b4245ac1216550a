// Package term is the expression-tree model produced by the reader and
// annotated by the visitor and linker.
//
// Terms live in a per-document Arena and refer to each other by ID. Parent
// and child links are indices, so a document's trees hold no pointer
// cycles and any node can find its parent in O(1).
package term

import (
	"strings"

	"github.com/jward/mercanopy/internal/token"
)

// ID is a handle into an Arena.
type ID int32

// None is the absent handle.
const None ID = -1

// Kind is the syntactic tag of a Term.
type Kind uint8

const (
	Atom Kind = iota // atom or compound
	Variable
	Integer
	Float
	String
	ImplDefined
)

func (k Kind) String() string {
	switch k {
	case Atom:
		return "atom"
	case Variable:
		return "variable"
	case Integer:
		return "integer"
	case Float:
		return "float"
	case String:
		return "string"
	case ImplDefined:
		return "implementation_defined"
	}
	return "unknown"
}

// Semantic is the classification assigned by the visitor.
type Semantic uint8

const (
	Unknown Semantic = iota
	Pred
	Func
	Type
	Constructor
	Inst
	Mode
	Module
	Typeclass
	Var
	FloatLit
	IntegerLit
	StringLit
	Conditional
	Record
	Apply
	Lambda
	Unification
	ExplicitType
)

var semanticNames = [...]string{
	Unknown:      "",
	Pred:         "pred",
	Func:         "func",
	Type:         "type",
	Constructor:  "constructor",
	Inst:         "inst",
	Mode:         "mode",
	Module:       "module",
	Typeclass:    "typeclass",
	Var:          "variable",
	FloatLit:     "float",
	IntegerLit:   "integer",
	StringLit:    "string",
	Conditional:  "conditional",
	Record:       "record",
	Apply:        "apply",
	Lambda:       "lambda",
	Unification:  "unification",
	ExplicitType: "explicit_type",
}

func (s Semantic) String() string {
	if int(s) < len(semanticNames) {
		return semanticNames[s]
	}
	return "unknown"
}

// Ref points at a Term in some document's arena.
type Ref struct {
	URI string
	ID  ID
}

// Valid reports whether r points anywhere.
func (r Ref) Valid() bool { return r.URI != "" && r.ID != None }

// Term is one node of an expression tree.
type Term struct {
	Kind Kind
	Name string
	// Arity is len(Args), raised by one for every `!X` state-variable
	// argument and by the visitor's semantic corrections (DCG heads and
	// bodies, name/arity specifications).
	Arity int
	Args  []ID

	Parent ID
	// Index is the position in Parent.Args, or -1 for a root or for the
	// functor slot of a backquoted operator application.
	Index int

	// Token covers the principal token: the functor name or operator.
	Token token.Range
	Start token.Pos
	End   token.Pos

	Semantic  Semantic
	Qualifier ID
	// Functor is the operator sub-term of a backquoted infix application.
	Functor ID
	Clause  int
	// Definition is set by the linker on resolved references.
	Definition Ref
}

// Range is the full source extent of the term.
func (t *Term) Range() token.Range {
	return token.Range{Start: t.Start, End: t.End}
}

// Is reports whether t is an atom or compound with the given name and arity.
func (t *Term) Is(name string, arity int) bool {
	return t.Kind == Atom && t.Name == name && len(t.Args) == arity
}

// IsLiteral reports whether t is a number, string or implementation-defined literal.
func (t *Term) IsLiteral() bool {
	switch t.Kind {
	case Integer, Float, String, ImplDefined:
		return true
	}
	return false
}

// Arena owns every Term of one document.
type Arena struct {
	terms []Term
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// Len returns the number of terms allocated so far. It is also the ID the
// next allocation will receive.
func (a *Arena) Len() int { return len(a.terms) }

// Get returns the term for id. The pointer is invalidated by the next
// allocation.
func (a *Arena) Get(id ID) *Term {
	return &a.terms[id]
}

// Valid reports whether id is allocated in a.
func (a *Arena) Valid(id ID) bool {
	return id >= 0 && int(id) < len(a.terms)
}

func (a *Arena) alloc(t Term) ID {
	t.Parent = None
	t.Index = -1
	t.Qualifier = None
	t.Functor = None
	t.Clause = -1
	t.Definition = Ref{ID: None}
	a.terms = append(a.terms, t)
	return ID(len(a.terms) - 1)
}

// Leaf allocates an argument-less term from a single token.
func (a *Arena) Leaf(kind Kind, tok token.Token) ID {
	r := tok.Range()
	name := tok.Value
	if kind != Atom && kind != String {
		name = tok.Text
	}
	return a.alloc(Term{Kind: kind, Name: name, Token: r, Start: r.Start, End: r.End})
}

// Named allocates an atom with an explicit name at the given token range.
func (a *Arena) Named(name string, at token.Range) ID {
	return a.alloc(Term{Kind: Atom, Name: name, Token: at, Start: at.Start, End: at.End})
}

// Literal allocates a literal of the given kind whose text differs from
// any single token, such as a folded negative number.
func (a *Arena) Literal(kind Kind, text string, at token.Range) ID {
	return a.alloc(Term{Kind: kind, Name: text, Token: at, Start: at.Start, End: at.End})
}

// Compound allocates name(args...) and adopts args. The range runs from
// start to end; tok is the functor or operator token.
func (a *Arena) Compound(name string, tok token.Range, args []ID, start, end token.Pos) ID {
	id := a.alloc(Term{Kind: Atom, Name: name, Token: tok, Start: start, End: end})
	a.adopt(id, args)
	return id
}

// Operator allocates an operator application whose range spans its
// operator token and every operand.
func (a *Arena) Operator(name string, tok token.Range, args []ID) ID {
	start, end := tok.Start, tok.End
	for _, arg := range args {
		r := a.terms[arg].Range()
		if r.Start.Before(start) {
			start = r.Start
		}
		if end.Before(r.End) {
			end = r.End
		}
	}
	return a.Compound(name, tok, args, start, end)
}

func (a *Arena) adopt(id ID, args []ID) {
	arity := len(args)
	for i, arg := range args {
		c := &a.terms[arg]
		c.Parent = id
		c.Index = i
		if c.Kind == Atom && c.Name == "!" && len(c.Args) == 1 && a.terms[c.Args[0]].Kind == Variable {
			arity++
		}
	}
	t := &a.terms[id]
	t.Args = args
	t.Arity = arity
}

// SetFunctor attaches op as the functor sub-term of an operator application.
func (a *Arena) SetFunctor(id, op ID) {
	a.terms[id].Functor = op
	a.terms[op].Parent = id
	a.terms[op].Index = -1
}

// Arg returns the i-th argument of id.
func (a *Arena) Arg(id ID, i int) ID {
	return a.terms[id].Args[i]
}

// Root walks parent links up to the clause root.
func (a *Arena) Root(id ID) ID {
	for a.terms[id].Parent != None {
		id = a.terms[id].Parent
	}
	return id
}

// Children returns id's arguments plus its backquoted functor, if any.
func (a *Arena) Children(id ID) []ID {
	t := &a.terms[id]
	if t.Functor == None {
		return t.Args
	}
	out := make([]ID, 0, len(t.Args)+1)
	out = append(out, t.Functor)
	return append(out, t.Args...)
}

// QualifiedName returns the qualifier chain of id followed by its own
// name, outermost module first.
func (a *Arena) QualifiedName(id ID) []string {
	var parts []string
	for cur := id; cur != None; cur = a.terms[cur].Qualifier {
		parts = append(parts, a.terms[cur].Name)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return parts
}

// QualifierChain returns only the qualifier part of id's name.
func (a *Arena) QualifierChain(id ID) []string {
	q := a.terms[id].Qualifier
	if q == None {
		return nil
	}
	return a.QualifiedName(q)
}

// Format prints id in canonical functional notation.
func (a *Arena) Format(id ID) string {
	var b strings.Builder
	a.format(&b, id)
	return b.String()
}

func (a *Arena) format(b *strings.Builder, id ID) {
	t := &a.terms[id]
	switch t.Kind {
	case String:
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(t.Name, `"`, `\"`))
		b.WriteByte('"')
		return
	case Variable, Integer, Float, ImplDefined:
		b.WriteString(t.Name)
		return
	}
	b.WriteString(t.Name)
	if len(t.Args) == 0 {
		return
	}
	b.WriteByte('(')
	for i, arg := range t.Args {
		if i > 0 {
			b.WriteByte(',')
		}
		a.format(b, arg)
	}
	b.WriteByte(')')
}
