package term

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/mercanopy/internal/token"
)

func span(line, col, endCol int) token.Range {
	return token.Range{Start: token.Pos{Line: line, Col: col}, End: token.Pos{Line: line, Col: endCol}}
}

func TestArena_StateVariableRaisesArity(t *testing.T) {
	a := NewArena()
	x := a.Leaf(Variable, token.Token{Kind: token.Variable, Text: "X", Value: "X", Col: 5, EndCol: 6})
	bang := a.Operator("!", span(0, 4, 5), []ID{x})
	y := a.Leaf(Variable, token.Token{Kind: token.Variable, Text: "Y", Value: "Y", Col: 8, EndCol: 9})
	f := a.Compound("f", span(0, 2, 3), []ID{bang, y}, token.Pos{Col: 2}, token.Pos{Col: 10})

	tm := a.Get(f)
	assert.Equal(t, 2, len(tm.Args))
	assert.Equal(t, 3, tm.Arity)
	assert.Equal(t, f, a.Get(bang).Parent)
	assert.Equal(t, 1, a.Get(y).Index)
	assert.Equal(t, f, a.Root(x))
	assert.Equal(t, "f(!(X),Y)", a.Format(f))
}

func TestArena_OperatorRangeSpansOperands(t *testing.T) {
	a := NewArena()
	l := a.Named("a", span(0, 0, 1))
	r := a.Named("b", span(0, 4, 5))
	op := a.Operator("+", span(0, 2, 3), []ID{l, r})

	assert.Equal(t, span(0, 0, 5), a.Get(op).Range())
	assert.Equal(t, span(0, 2, 3), a.Get(op).Token)
}

func TestArena_QualifiedName(t *testing.T) {
	a := NewArena()
	m := a.Named("m", span(0, 0, 1))
	n := a.Named("n", span(0, 2, 3))
	foo := a.Named("foo", span(0, 4, 7))
	a.Get(n).Qualifier = m
	a.Get(foo).Qualifier = n

	assert.Equal(t, []string{"m", "n", "foo"}, a.QualifiedName(foo))
	assert.Equal(t, []string{"m", "n"}, a.QualifierChain(foo))
	assert.Nil(t, a.QualifierChain(m))
}

func TestClauseAt(t *testing.T) {
	a := NewArena()
	var clauses []*Clause
	for i, line := range []int{0, 2, 5} {
		c := NewClause(i, a)
		c.Root = a.Named("c", span(line, 0, 1))
		c.Last = ID(a.Len())
		c.Range = token.Range{Start: token.Pos{Line: line}, End: token.Pos{Line: line, Col: 2}}
		clauses = append(clauses, c)
	}

	assert.Equal(t, 1, ClauseAt(clauses, token.Pos{Line: 2, Col: 1}))
	assert.Equal(t, -1, ClauseAt(clauses, token.Pos{Line: 3, Col: 0}))
	assert.Equal(t, 2, ClauseAt(clauses, token.Pos{Line: 5, Col: 2}))
	require.True(t, clauses[1].Owns(clauses[1].Root))
	assert.False(t, clauses[1].Owns(clauses[0].Root))
	assert.Equal(t, clauses[2].Root, TermAt(a, clauses, token.Pos{Line: 5, Col: 0}))
}

func TestClause_Vars(t *testing.T) {
	c := NewClause(0, NewArena())
	c.AddVar("Y", 3)
	c.AddVar("X", 4)
	c.AddVar("Y", 7)

	assert.Equal(t, []string{"Y", "X"}, c.VarOrder)
	assert.Equal(t, []ID{3, 7}, c.Vars["Y"])
}
