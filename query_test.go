package mercanopy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBuiltEngine(t *testing.T) *Engine {
	t.Helper()
	e, _ := newTestEngine(t, testFiles())
	require.NoError(t, e.Update(context.Background(), []string{uriA, uriB}, nil))
	return e
}

func loc(uri string, line, col, endCol int) Location {
	return Location{URI: uri, StartLine: line, StartCol: col, EndLine: line, EndCol: endCol}
}

func TestQuery_TermAt(t *testing.T) {
	q := newBuiltEngine(t).Query()

	info := q.TermAt(uriB, 2, 8)
	require.NotNil(t, info)
	assert.Equal(t, "p", info.Name)
	assert.Equal(t, 1, info.Arity)
	assert.Equal(t, "pred", info.Kind)
	assert.Equal(t, "p(X)", info.Text)
	require.NotNil(t, info.Definition)
	assert.Equal(t, loc(uriA, 2, 8, 9), *info.Definition)

	info = q.TermAt(uriB, 2, 10)
	require.NotNil(t, info)
	assert.Equal(t, "variable", info.Kind)
	assert.Nil(t, info.Definition)

	assert.Nil(t, q.TermAt(uriB, 40, 0))
	assert.Nil(t, q.TermAt("file:///nope.m", 0, 0))
}

func TestQuery_DefinitionAt(t *testing.T) {
	q := newBuiltEngine(t).Query()

	tests := []struct {
		name      string
		uri       string
		line, col int
		want      []Location
	}{
		{"imported predicate", uriB, 2, 8, []Location{loc(uriA, 4, 0, 1)}},
		{"local predicate", uriB, 2, 14, []Location{loc(uriB, 3, 0, 1)}},
		{"definition itself", uriA, 4, 0, []Location{loc(uriA, 4, 0, 1)}},
		{"declaration leads to definition", uriA, 2, 8, []Location{loc(uriA, 4, 0, 1)}},
		{"variable", uriB, 2, 10, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, q.DefinitionAt(tt.uri, tt.line, tt.col))
		})
	}
}

func TestQuery_DeclarationAt(t *testing.T) {
	q := newBuiltEngine(t).Query()
	assert.Equal(t, []Location{loc(uriA, 2, 8, 9)}, q.DeclarationAt(uriB, 2, 8))
	assert.Empty(t, q.DeclarationAt(uriB, 2, 14))
}

func TestQuery_ReferencesAt(t *testing.T) {
	q := newBuiltEngine(t).Query()

	assert.Equal(t, []Location{loc(uriB, 2, 8, 9)}, q.ReferencesAt(uriA, 4, 0, false))
	assert.Equal(t, []Location{
		loc(uriA, 2, 8, 9),
		loc(uriA, 4, 0, 1),
		loc(uriB, 2, 8, 9),
	}, q.ReferencesAt(uriA, 4, 0, true))

	// Starting from the reference finds the same set.
	assert.Equal(t, q.ReferencesAt(uriA, 4, 0, true), q.ReferencesAt(uriB, 2, 8, true))
}

func TestQuery_Lookup(t *testing.T) {
	q := newBuiltEngine(t).Query()

	assert.Equal(t, []Location{loc(uriA, 4, 0, 1)}, q.Lookup(Definitions, "p", 1, "a"))
	assert.Empty(t, q.Lookup(Definitions, "p", 1, "b"))
	assert.Empty(t, q.Lookup(Definitions, "p", 2, ""))
	assert.Equal(t, []Location{loc(uriA, 2, 8, 9)}, q.Lookup(Declarations, "p", -1, ""))
	assert.Equal(t, []Location{loc(uriA, 2, 8, 9)}, q.Lookup(Exports, "p", 1, ""))
	assert.Equal(t, []Location{loc(uriB, 2, 8, 9)}, q.Lookup(References, "p", 1, ""))
}

func TestQuery_CallHierarchy(t *testing.T) {
	q := newBuiltEngine(t).Query()

	in := q.IncomingCalls(uriA, 4, 0)
	require.Len(t, in, 1)
	assert.Equal(t, "q", in[0].Symbol.Name)
	assert.Equal(t, 1, in[0].Symbol.Arity)
	assert.Equal(t, "b", in[0].Symbol.Module)
	assert.Equal(t, loc(uriB, 2, 8, 9), in[0].Site)

	out := q.OutgoingCalls(uriB, 2, 0)
	require.Len(t, out, 2)
	assert.Equal(t, "p", out[0].Symbol.Name)
	assert.Equal(t, uriA, out[0].Symbol.Location.URI)
	assert.True(t, out[0].Symbol.Exported)
	assert.Equal(t, "r", out[1].Symbol.Name)
	assert.Equal(t, loc(uriB, 2, 14, 15), out[1].Site)

	// Variables are not callable.
	assert.Nil(t, q.IncomingCalls(uriB, 2, 10))
}

func TestQuery_DocumentSymbols(t *testing.T) {
	q := newBuiltEngine(t).Query()

	syms := q.DocumentSymbols(uriA)
	require.Len(t, syms, 2)
	assert.Equal(t, Symbol{
		Name: "p", Arity: 1, Kind: "pred", Module: "a", Role: "declaration", Exported: true,
		Location: loc(uriA, 2, 8, 9),
	}, syms[0])
	assert.Equal(t, "definition", syms[1].Role)
	assert.Equal(t, 4, syms[1].Location.StartLine)

	assert.Nil(t, q.DocumentSymbols("file:///nope.m"))
}

func TestQuery_Documents(t *testing.T) {
	q := newBuiltEngine(t).Query()

	docs := q.Documents()
	require.Len(t, docs, 2)
	assert.Equal(t, DocumentInfo{URI: uriA, Module: "a", Version: 1, State: "validated"}, docs[0])
	assert.Equal(t, "b", docs[1].Module)
}
