// Package reader is an operator-precedence term reader. It turns the token
// list of each clause into a term tree using an ops.Table, recovering from
// malformed input with best-effort substitute terms so that every clause
// yields a tree.
package reader

import (
	"fmt"
	"strings"

	"github.com/jward/mercanopy/internal/diag"
	"github.com/jward/mercanopy/internal/lexer"
	"github.com/jward/mercanopy/internal/ops"
	"github.com/jward/mercanopy/internal/term"
	"github.com/jward/mercanopy/internal/token"
)

// Context selects which punctuation terminates a sub-term.
type Context uint8

const (
	// Ordinary treats ',' as the conjunction operator.
	Ordinary Context = iota
	// Argument stops at ','.
	Argument
	// ListElement stops at ',' and '|'.
	ListElement
)

// Applied is the functor given to curried applications such as F(X)(Y).
const Applied = "apply"

// Reader reads clauses into a shared arena.
type Reader struct {
	table  *ops.Table
	arena  *term.Arena
	clause *term.Clause
	toks   []token.Token
	eof    token.Token
	diags  []diag.Diagnostic
}

// New returns a Reader allocating into arena.
func New(arena *term.Arena, table *ops.Table) *Reader {
	if table == nil {
		table = ops.Default()
	}
	return &Reader{table: table, arena: arena}
}

// Diagnostics returns every syntax diagnostic reported so far.
func (r *Reader) Diagnostics() []diag.Diagnostic {
	return r.diags
}

// Document is the result of reading a whole source text.
type Document struct {
	Arena       *term.Arena
	Clauses     []*term.Clause
	Diagnostics []diag.Diagnostic
}

// ReadDocument lexes and reads every clause of text. A malformed clause
// never stops the clauses after it from being read.
func ReadDocument(text string, table *ops.Table) *Document {
	arena := term.NewArena()
	r := New(arena, table)
	doc := &Document{Arena: arena}
	for i, tc := range lexer.Clauses(text) {
		doc.Clauses = append(doc.Clauses, r.ReadClause(i, tc))
	}
	doc.Diagnostics = r.Diagnostics()
	return doc
}

// ReadClause reads one clause's tokens. The returned clause always has a
// root term.
func (r *Reader) ReadClause(index int, tc *token.Clause) *term.Clause {
	c := term.NewClause(index, r.arena)
	r.clause = c
	defer func() { r.clause = nil }()

	for _, e := range tc.Errors {
		r.errorAt(e, "invalid token %q", e.Text)
	}

	c.Range = tc.Range()
	if len(tc.Tokens) == 0 && tc.End == nil && len(tc.Errors) > 0 {
		c.Range = token.Range{Start: tc.Errors[0].Start(), End: tc.Errors[len(tc.Errors)-1].End()}
	}
	eofAt := c.Range.End
	if tc.End != nil {
		eofAt = tc.End.Start()
	}
	r.setTokens(tc.Tokens, eofAt)

	root, n := r.read(ops.MaxPriority, Ordinary, 0)
	if n < len(r.toks) {
		r.errorAt(r.toks[n], "syntax error: operator expected before %q", r.toks[n].Text)
	}
	if tc.End == nil {
		r.errorRange(token.Range{Start: eofAt, End: eofAt}, "missing end of clause token '.'")
	}

	c.Root = root
	c.End = tc.End
	c.Last = term.ID(r.arena.Len())
	for id := c.First; id < c.Last; id++ {
		r.arena.Get(id).Clause = index
	}
	return c
}

// Read parses a term of at most maxPriority from toks and returns it with
// the number of tokens consumed.
func (r *Reader) Read(maxPriority int, ctx Context, toks []token.Token) (term.ID, int) {
	var at token.Pos
	if len(toks) > 0 {
		at = toks[len(toks)-1].End()
	}
	r.setTokens(toks, at)
	return r.read(maxPriority, ctx, 0)
}

func (r *Reader) setTokens(toks []token.Token, eofAt token.Pos) {
	r.toks = toks
	r.eof = token.Token{Kind: token.EOF, Line: eofAt.Line, Col: eofAt.Col, EndCol: eofAt.Col}
}

func (r *Reader) tok(i int) token.Token {
	if i < len(r.toks) {
		return r.toks[i]
	}
	return r.eof
}

func (r *Reader) errorAt(t token.Token, format string, args ...any) {
	r.errorRange(t.Range(), format, args...)
}

func (r *Reader) errorRange(rng token.Range, format string, args ...any) {
	r.diags = append(r.diags, diag.New(diag.SourceParser, rng, fmt.Sprintf(format, args...)))
}

func canStartOperand(t token.Token) bool {
	return t.Kind.CanStartTerm() && t.Kind != token.OpenCT
}

func (r *Reader) read(max int, ctx Context, i int) (term.ID, int) {
	t1, t2 := r.tok(i), r.tok(i+1)
	if t1.Kind == token.EOF {
		r.errorAt(t1, "unexpected end of clause at start of sub-term")
		return r.arena.Named("", t1.Range()), i
	}

	if t1.Kind == token.Name && t1.Text == "-" && (t2.Kind == token.Integer || t2.Kind == token.Float) {
		kind := term.Integer
		if t2.Kind == token.Float {
			kind = term.Float
		}
		lit := r.arena.Literal(kind, "-"+t2.Text, token.Range{Start: t1.Start(), End: t2.End()})
		return r.bottomUp(max, ctx, 0, lit, i+2)
	}

	if t1.Kind == token.Name && canStartOperand(t2) {
		if c, ok := r.table.BinaryPrefix(t1.Value); ok && c.Priority <= max {
			a1, j := r.read(c.LeftPriority(), ctx, i+1)
			a2, k := r.read(c.RightPriority(), ctx, j)
			node := r.arena.Operator(t1.Value, t1.Range(), []term.ID{a1, a2})
			return r.bottomUp(max, ctx, c.Priority, node, k)
		}
		if c, ok := r.table.Prefix(t1.Value); ok && c.Priority <= max {
			a, j := r.read(c.RightPriority(), ctx, i+1)
			node := r.arena.Operator(t1.Value, t1.Range(), []term.ID{a})
			return r.bottomUp(max, ctx, c.Priority, node, j)
		}
	}

	id, j := r.primary(max, i)
	for r.tok(j).Kind == token.OpenCT {
		open := r.tok(j)
		args, end, k := r.readArgs(j + 1)
		start := r.arena.Get(id).Start
		id = r.arena.Compound(Applied, open.Range(), append([]term.ID{id}, args...), start, end)
		j = k
	}
	return r.bottomUp(max, ctx, 0, id, j)
}

// operatorPriority is the priority an operator atom carries when used as
// a plain operand.
func (r *Reader) operatorPriority(name string) int {
	p := 0
	for _, c := range r.table.Classes(name) {
		if c.Priority > p {
			p = c.Priority
		}
	}
	return p
}

func (r *Reader) primary(max int, i int) (term.ID, int) {
	t := r.tok(i)
	switch t.Kind {
	case token.Name:
		if r.tok(i+1).Kind == token.OpenCT {
			args, end, j := r.readArgs(i + 2)
			return r.arena.Compound(t.Value, t.Range(), args, t.Start(), end), j
		}
		if p := r.operatorPriority(t.Value); p > max {
			r.errorAt(t, "operator %q needs parentheses here", t.Value)
		}
		return r.arena.Leaf(term.Atom, t), i + 1

	case token.Variable:
		id := r.arena.Leaf(term.Variable, t)
		if r.clause != nil && !strings.HasPrefix(t.Text, "_") {
			r.clause.AddVar(t.Text, id)
		}
		return id, i + 1

	case token.Integer:
		return r.arena.Leaf(term.Integer, t), i + 1
	case token.Float:
		return r.arena.Leaf(term.Float, t), i + 1
	case token.String:
		return r.arena.Leaf(term.String, t), i + 1
	case token.ImplDefined:
		return r.arena.Leaf(term.ImplDefined, t), i + 1

	case token.Open, token.OpenCT:
		inner, j := r.read(ops.ArgPriority, Ordinary, i+1)
		if r.tok(j).Kind == token.Close {
			return inner, j + 1
		}
		r.errorAt(r.tok(j), "expected ')' or operator")
		return inner, r.skipTo(j, token.Close)

	case token.OpenList:
		if next := r.tok(i + 1); next.Kind == token.CloseList {
			return r.arena.Named("[]", token.Range{Start: t.Start(), End: next.End()}), i + 2
		}
		return r.readList(t, i+1)

	case token.OpenCurly:
		if next := r.tok(i + 1); next.Kind == token.CloseCurly {
			return r.arena.Named("{}", token.Range{Start: t.Start(), End: next.End()}), i + 2
		}
		args, end, j := r.readCurly(i + 1)
		return r.arena.Compound("{}", t.Range(), args, t.Start(), end), j
	}

	r.errorAt(t, "unexpected %s at start of sub-term", t.Kind)
	return r.arena.Leaf(term.Atom, t), i + 1
}

// readArgs reads a comma separated argument list up to ')'.
func (r *Reader) readArgs(i int) ([]term.ID, token.Pos, int) {
	var args []term.ID
	for {
		a, j := r.read(ops.ArgPriority, Argument, i)
		args = append(args, a)
		t := r.tok(j)
		switch t.Kind {
		case token.Comma:
			i = j + 1
			continue
		case token.Close:
			return args, t.End(), j + 1
		case token.EOF:
			r.errorAt(t, "expected ',', ')' or operator")
			return args, r.arena.Get(a).End, j
		}
		r.errorAt(t, "expected ',', ')' or operator, found %q", t.Text)
		return args, r.arena.Get(a).End, r.skipTo(j, token.Close)
	}
}

// readCurly reads the comma separated contents of a brace term up to '}'.
func (r *Reader) readCurly(i int) ([]term.ID, token.Pos, int) {
	var args []term.ID
	for {
		a, j := r.read(ops.ArgPriority, Argument, i)
		args = append(args, a)
		t := r.tok(j)
		switch t.Kind {
		case token.Comma:
			i = j + 1
			continue
		case token.CloseCurly:
			return args, t.End(), j + 1
		case token.EOF:
			r.errorAt(t, "expected ',', '}' or operator")
			return args, r.arena.Get(a).End, j
		}
		r.errorAt(t, "expected ',', '}' or operator, found %q", t.Text)
		return args, r.arena.Get(a).End, r.skipTo(j, token.CloseCurly)
	}
}

// readList reads list elements after the opening '[' and builds the
// right-nested '[|]' cells.
func (r *Reader) readList(open token.Token, i int) (term.ID, int) {
	first, j := r.read(ops.ArgPriority, ListElement, i)
	elems := []term.ID{first}
	tail := term.None
	var end token.Pos

	for tail == term.None {
		t := r.tok(j)
		switch t.Kind {
		case token.Comma:
			var e term.ID
			e, j = r.read(ops.ArgPriority, ListElement, j+1)
			elems = append(elems, e)
		case token.HTSep:
			tail, j = r.read(ops.ArgPriority, Argument, j+1)
			end = r.arena.Get(tail).End
			if c := r.tok(j); c.Kind == token.CloseList {
				end = c.End()
				j++
			} else {
				r.errorAt(c, "expected ']' after list tail")
				j = r.skipTo(j, token.CloseList)
			}
		case token.CloseList:
			tail = r.arena.Named("[]", t.Range())
			end = t.End()
			j++
		case token.EOF:
			r.errorAt(t, "unexpected end of clause in list")
			tail = r.arena.Named("[]", t.Range())
			end = t.End()
		default:
			r.errorAt(t, "expected ',', '|' or ']' in list, found %q", t.Text)
			var e term.ID
			e, j = r.read(ops.ArgPriority, ListElement, j)
			elems = append(elems, e)
		}
	}

	list := tail
	for k := len(elems) - 1; k >= 0; k-- {
		start := r.arena.Get(elems[k]).Start
		if k == 0 {
			start = open.Start()
		}
		list = r.arena.Compound("[|]", open.Range(), []term.ID{elems[k], list}, start, end)
	}
	return list, j
}

func (r *Reader) bottomUp(max int, ctx Context, leftPriority int, left term.ID, i int) (term.ID, int) {
	for {
		t := r.tok(i)
		switch {
		case t.Kind == token.EOF:
			return left, i
		case t.Kind == token.Comma && ctx != Ordinary:
			return left, i
		case t.Kind == token.HTSep && ctx == ListElement:
			return left, i
		}

		var (
			c    ops.Class
			ok   bool
			name = t.Value
		)
		switch t.Kind {
		case token.Name, token.Comma:
			c, ok = r.table.Infix(t.Value)
		case token.Backquote:
			c, ok = ops.Backquoted, true
		}
		if !ok || c.Priority > max || c.LeftPriority() < leftPriority {
			return left, i
		}

		fn := term.None
		if t.Kind == token.Backquote {
			fn, name = r.backquoted(t)
		}
		right, j := r.read(c.RightPriority(), ctx, i+1)
		node := r.arena.Operator(name, t.Range(), []term.ID{left, right})
		if fn != term.None {
			r.arena.SetFunctor(node, fn)
		}
		left, leftPriority, i = node, c.Priority, j
	}
}

// backquoted reads the name inside `...` as its own term and returns it
// with the functor name the resulting application should carry.
func (r *Reader) backquoted(t token.Token) (term.ID, string) {
	inner := strings.TrimSuffix(strings.TrimPrefix(t.Text, "`"), "`")
	toks := lexer.Tokens(inner, token.Pos{Line: t.Line, Col: t.Col + 1})

	savedToks, savedEOF := r.toks, r.eof
	defer func() { r.toks, r.eof = savedToks, savedEOF }()

	if len(toks) == 0 {
		r.errorAt(t, "empty backquoted operator")
		return r.arena.Named("", t.Range()), ""
	}
	r.setTokens(toks, toks[len(toks)-1].End())
	op, n := r.read(ops.ArgPriority, Ordinary, 0)
	if n < len(toks) {
		r.errorAt(t, "backquoted operator must be a name or variable")
	}

	name := op
	for r.arena.Get(name).Is(".", 2) {
		name = r.arena.Arg(name, 1)
	}
	return op, r.arena.Get(name).Name
}

// skipTo advances past the closer matching the current nesting level, or
// to the end of the tokens. It always makes progress.
func (r *Reader) skipTo(i int, closer token.Kind) int {
	depth := 0
	for ; i < len(r.toks); i++ {
		k := r.toks[i].Kind
		switch {
		case k == closer:
			if depth == 0 {
				return i + 1
			}
			depth--
		case opens(k, closer):
			depth++
		}
	}
	return i
}

func opens(k, closer token.Kind) bool {
	switch closer {
	case token.Close:
		return k == token.Open || k == token.OpenCT
	case token.CloseList:
		return k == token.OpenList
	case token.CloseCurly:
		return k == token.OpenCurly
	}
	return false
}
