package reader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/mercanopy/internal/lexer"
	"github.com/jward/mercanopy/internal/ops"
	"github.com/jward/mercanopy/internal/term"
	"github.com/jward/mercanopy/internal/token"
)

// readOne reads src, which must hold exactly one clause, and returns the
// document and the formatted root.
func readOne(t *testing.T, src string) (*Document, string) {
	t.Helper()
	doc := ReadDocument(src, ops.Default())
	require.Len(t, doc.Clauses, 1, "clauses in %q", src)
	return doc, doc.Arena.Format(doc.Clauses[0].Root)
}

func TestRead_Shapes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"priority", "1+2*3.", "+(1,*(2,3))"},
		{"left assoc", "1-2-3.", "-(-(1,2),3)"},
		{"right assoc", "a :- b, c, d.", ":-(a,,(b,,(c,d)))"},
		{"parens", "(1+2)*3.", "*(+(1,2),3)"},
		{"negative literal", "X = -1.", "=(X,-1)"},
		{"infix minus", "1 - 1.", "-(1,1)"},
		{"prefix minus", "X = - Y.", "=(X,-(Y))"},
		{"bare minus atom", "X = -.", "=(X,-)"},
		{"minus argument", "f(-).", "f(-)"},
		{"list", "[1,2,3].", "[|](1,[|](2,[|](3,[])))"},
		{"list tail", "[H|T].", "[|](H,T)"},
		{"empty list", "X = [].", "=(X,[])"},
		{"curly", "{a, b}.", "{}(a,b)"},
		{"apply", "F(X)(Y).", "apply(apply(F,X),Y)"},
		{"qualified", "io.write_string(S).", ".(io,write_string(S))"},
		{"pred decl", ":- pred foo(int::in) is det.", ":-(pred(is(foo(::(int,in)),det)))"},
		{"func decl", ":- func f(int) = int.", ":-(func(=(f(int),int)))"},
		{"type decl", ":- type t ---> a ; b.", ":-(type(--->(t,;(a,b))))"},
		{"conditional decl", ":- pred p(T) <= c(T).", ":-(<=(pred(p(T)),c(T)))"},
		{"dcg", "a --> b, c.", "-->(a,,(b,c))"},
		{"quantifier", "p :- some [X] q(X).", ":-(p,some([|](X,[]),q(X)))"},
		{"negation", "p :- \\+ q.", ":-(p,\\+(q))"},
		{"if then else", "p :- ( if q then r else s ).", ":-(p,else(if(then(q,r)),s))"},
		{"string", `X = "hi".`, `=(X,"hi")`},
		{"state variables", "p(!IO).", "p(!(IO))"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, got := readOne(t, tt.src)
			assert.Equal(t, tt.want, got)
			assert.Empty(t, doc.Diagnostics)
		})
	}
}

func TestRead_ListSugarMatchesCanonicalForm(t *testing.T) {
	t.Parallel()
	_, sugar := readOne(t, "[1,2,3].")
	_, canonical := readOne(t, "'[|]'(1, '[|]'(2, '[|]'(3, []))).")
	assert.Equal(t, canonical, sugar)
}

func TestRead_Backquoted(t *testing.T) {
	t.Parallel()
	doc, got := readOne(t, "X `plus` Y.")
	assert.Equal(t, "plus(X,Y)", got)

	root := doc.Arena.Get(doc.Clauses[0].Root)
	require.NotEqual(t, term.None, root.Functor)
	fn := doc.Arena.Get(root.Functor)
	assert.Equal(t, "plus", fn.Name)
	assert.Equal(t, token.Pos{Line: 0, Col: 3}, fn.Start)
	assert.Equal(t, doc.Clauses[0].Root, fn.Parent)
}

func TestRead_BackquotedQualified(t *testing.T) {
	t.Parallel()
	doc, got := readOne(t, "X `m.plus` Y.")
	assert.Equal(t, "plus(X,Y)", got)
	root := doc.Arena.Get(doc.Clauses[0].Root)
	assert.Equal(t, ".(m,plus)", doc.Arena.Format(root.Functor))
}

func TestRead_StateVariableArity(t *testing.T) {
	t.Parallel()
	doc, _ := readOne(t, "p(X, !IO).")
	root := doc.Arena.Get(doc.Clauses[0].Root)
	assert.Len(t, root.Args, 2)
	assert.Equal(t, 3, root.Arity)
}

func TestRead_VariableScope(t *testing.T) {
	t.Parallel()
	doc, _ := readOne(t, "p(X, Y, X, _Z, _).")
	c := doc.Clauses[0]
	assert.Len(t, c.Vars["X"], 2)
	assert.Len(t, c.Vars["Y"], 1)
	assert.NotContains(t, c.Vars, "_Z")
	assert.NotContains(t, c.Vars, "_")
	assert.Equal(t, []string{"X", "Y"}, c.VarOrder)
}

func TestRead_ParentLinks(t *testing.T) {
	t.Parallel()
	doc, _ := readOne(t, "f(a, g(b)).")
	a := doc.Arena
	root := doc.Clauses[0].Root
	g := a.Arg(root, 1)
	b := a.Arg(g, 0)

	assert.Equal(t, term.None, a.Get(root).Parent)
	assert.Equal(t, root, a.Get(g).Parent)
	assert.Equal(t, 1, a.Get(g).Index)
	assert.Equal(t, g, a.Get(b).Parent)
	assert.Equal(t, root, a.Root(b))

	for id := doc.Clauses[0].First; id < doc.Clauses[0].Last; id++ {
		assert.Equal(t, 0, a.Get(id).Clause)
	}
}

func TestRead_RecoveryUnterminatedArguments(t *testing.T) {
	t.Parallel()
	doc := ReadDocument("foo(a, b.\nbar(c).\n", ops.Default())
	require.Len(t, doc.Clauses, 2)
	assert.NotEmpty(t, doc.Diagnostics)

	assert.Equal(t, "foo(a,b)", doc.Arena.Format(doc.Clauses[0].Root))
	assert.Equal(t, "bar(c)", doc.Arena.Format(doc.Clauses[1].Root))
}

func TestRead_RecoveryMissingListClose(t *testing.T) {
	t.Parallel()
	doc := ReadDocument("p([a, b).\nq.\n", ops.Default())
	require.Len(t, doc.Clauses, 2)
	assert.NotEmpty(t, doc.Diagnostics)
	assert.Equal(t, "q", doc.Arena.Format(doc.Clauses[1].Root))
}

func TestRead_Diagnostics(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		src     string
		message string
	}{
		{"missing end", "foo(a)", "missing end of clause token '.'"},
		{"leftover tokens", "foo bar.", `syntax error: operator expected before "bar"`},
		{"invalid token", "a :- \x01 b.", `invalid token "\x01"`},
		{"unexpected token", "foo(a) :- ).", "unexpected close at start of sub-term"},
		{"operator operand", "X = type.", `operator "type" needs parentheses here`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := ReadDocument(tt.src, ops.Default())
			require.NotEmpty(t, doc.Diagnostics)
			var msgs []string
			for _, d := range doc.Diagnostics {
				msgs = append(msgs, d.Message)
			}
			assert.Contains(t, msgs, tt.message)
			for _, c := range doc.Clauses {
				assert.NotEqual(t, term.None, c.Root)
			}
		})
	}
}

func TestRead_EntryPointStopsAtArgumentComma(t *testing.T) {
	t.Parallel()
	arena := term.NewArena()
	r := New(arena, nil)
	toks := lexer.Tokens("a = b, c", token.Pos{})

	id, n := r.Read(ops.ArgPriority, Argument, toks)
	assert.Equal(t, "=(a,b)", arena.Format(id))
	assert.Equal(t, 3, n)

	id, n = r.Read(ops.ArgPriority, Ordinary, toks)
	assert.Equal(t, ",(=(a,b),c)", arena.Format(id))
	assert.Equal(t, len(toks), n)
}

func TestRead_ListElementStopsAtBar(t *testing.T) {
	t.Parallel()
	arena := term.NewArena()
	r := New(arena, nil)
	toks := lexer.Tokens("a | b", token.Pos{})

	id, n := r.Read(ops.ArgPriority, ListElement, toks)
	assert.Equal(t, "a", arena.Format(id))
	assert.Equal(t, 1, n)
}

func TestTermAt(t *testing.T) {
	t.Parallel()
	doc := ReadDocument("foo(X) :- bar(X).\nbaz.\n", ops.Default())
	require.Len(t, doc.Clauses, 2)

	id := term.TermAt(doc.Arena, doc.Clauses, token.Pos{Line: 0, Col: 11})
	require.NotEqual(t, term.None, id)
	assert.Equal(t, "bar", doc.Arena.Get(id).Name)

	id = term.TermAt(doc.Arena, doc.Clauses, token.Pos{Line: 0, Col: 14})
	require.NotEqual(t, term.None, id)
	assert.Equal(t, term.Variable, doc.Arena.Get(id).Kind)

	id = term.TermAt(doc.Arena, doc.Clauses, token.Pos{Line: 1, Col: 1})
	require.NotEqual(t, term.None, id)
	assert.Equal(t, "baz", doc.Arena.Get(id).Name)

	assert.Equal(t, term.None, term.TermAt(doc.Arena, doc.Clauses, token.Pos{Line: 5, Col: 0}))
}
