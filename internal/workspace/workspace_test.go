package workspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/mercanopy/internal/diag"
	"github.com/jward/mercanopy/internal/reader"
	"github.com/jward/mercanopy/internal/term"
	"github.com/jward/mercanopy/internal/visitor"
)

func newDoc(t *testing.T, uri, src string) *Document {
	t.Helper()
	d := NewDocument(uri)
	p := reader.ReadDocument(src, nil)
	require.Empty(t, p.Diagnostics, "syntax errors in %s", uri)
	d.ApplyParse(p)
	d.ApplyVisit(visitor.Visit(d.Arena, d.Clauses))
	return d
}

func diagMessages(res *LinkResult) []string {
	var out []string
	for _, d := range res.Diagnostics {
		out = append(out, d.Message)
	}
	return out
}

func resolutionFor(t *testing.T, res *LinkResult, doc *Document, name string) Resolution {
	t.Helper()
	ids := doc.References.Get(name)
	require.NotEmpty(t, ids, "no reference %q", name)
	for _, r := range res.Resolutions {
		if r.Ref == ids[0] {
			return r
		}
	}
	t.Fatalf("reference %q not resolved", name)
	return Resolution{}
}

func TestQualifiedEqual(t *testing.T) {
	t.Parallel()
	tests := []struct {
		ref, module []string
		want        bool
	}{
		{[]string{"b"}, []string{"a", "b"}, true},
		{[]string{"a", "b"}, []string{"a", "b"}, true},
		{nil, []string{"a", "b"}, true},
		{[]string{"c", "b"}, []string{"a", "b"}, false},
		{[]string{"x", "a", "b"}, []string{"a", "b"}, false},
		{[]string{"a"}, []string{"a", "b"}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, QualifiedEqual(tt.ref, tt.module), "%v vs %v", tt.ref, tt.module)
	}
}

func TestRegistry_LookupAndRemove(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	ab := newDoc(t, "file:///ab.m", ":- module a.b.\n")
	cb := newDoc(t, "file:///cb.m", ":- module c.b.\n")
	assert.Empty(t, reg.Register(ab))
	assert.Empty(t, reg.Register(cb))

	assert.Same(t, ab, reg.Lookup([]string{"a", "b"}))
	assert.Same(t, cb, reg.Lookup([]string{"c", "b"}))
	// Ambiguous suffix picks the lowest URI.
	assert.Same(t, ab, reg.Lookup([]string{"b"}))
	assert.Nil(t, reg.Lookup([]string{"x", "b"}))
	assert.Equal(t, []string{"a.b", "c.b"}, reg.Modules())

	reg.Remove(ab)
	assert.Same(t, cb, reg.Lookup([]string{"b"}))
	assert.Nil(t, reg.Lookup([]string{"a", "b"}))
}

func TestRegistry_ReRegisterReplaces(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	d := newDoc(t, "file:///m.m", ":- module m.\n")
	reg.Register(d)
	assert.Empty(t, reg.Register(d))
	assert.Equal(t, []string{"m"}, reg.Modules())

	other := newDoc(t, "file:///other.m", ":- module m.\n")
	assert.Equal(t, []*Document{d}, reg.Register(other))
}

func TestRegistry_OwnerIsLowestURI(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	late := newDoc(t, "file:///z.m", ":- module m.\n")
	early := newDoc(t, "file:///a.m", ":- module m.\n")
	reg.Register(late)
	reg.Register(early)

	assert.Same(t, early, reg.Owner([]string{"m"}))
	assert.Same(t, early, reg.Lookup([]string{"m"}))
	assert.Equal(t, []*Document{early, late}, reg.Named([]string{"m"}))

	reg.Remove(early)
	assert.Same(t, late, reg.Owner([]string{"m"}))
	assert.Nil(t, reg.Owner([]string{"x"}))
}

func TestLink_LocalWinsOverImport(t *testing.T) {
	t.Parallel()
	set := NewSet()
	a := newDoc(t, "file:///a.m", ":- module a.\n:- interface.\n:- pred p(int::in) is det.\n")
	b := newDoc(t, "file:///b.m", ":- module b.\n:- import_module a.\np(_).\nq(X) :- p(X).\n")
	set.registry.Register(a)
	set.registry.Register(b)

	res := NewLinker(set.Registry(), nil).Link(b)
	assert.Empty(t, res.Diagnostics)
	r := resolutionFor(t, res, b, "p")
	assert.Equal(t, "file:///b.m", r.Target.URI)
	assert.Equal(t, []string{"file:///a.m"}, res.Targets)
}

func TestLink_ImportedExport(t *testing.T) {
	t.Parallel()
	set := NewSet()
	a := newDoc(t, "file:///a.m", ":- module a.\n:- interface.\n:- pred p(int::in) is det.\n:- implementation.\np(_).\n")
	b := newDoc(t, "file:///b.m", ":- module b.\n:- import_module a.\nq(X) :- p(X), a.p(X).\n")
	set.registry.Register(a)
	set.registry.Register(b)

	res := NewLinker(set.Registry(), nil).Link(b)
	assert.Empty(t, res.Diagnostics)

	ids := b.References.Get("p")
	require.Len(t, ids, 2)
	for _, r := range res.Resolutions {
		if r.Ref == ids[0] || r.Ref == ids[1] {
			assert.Equal(t, "file:///a.m", r.Target.URI)
			assert.Equal(t, term.Pred, a.Term(r.Target.ID).Semantic)
		}
	}

	mod := resolutionFor(t, res, b, "a")
	assert.Equal(t, a.Module, mod.Target.ID)
}

func TestLink_ArityMustMatch(t *testing.T) {
	t.Parallel()
	set := NewSet()
	b := newDoc(t, "file:///b.m", ":- module b.\np(_).\nq :- p(1, 2).\n")
	set.registry.Register(b)

	res := NewLinker(set.Registry(), nil).Link(b)
	assert.Equal(t, []string{"undefined symbol p/2"}, diagMessages(res))
}

func TestLink_QualifiedSuffix(t *testing.T) {
	t.Parallel()
	set := NewSet()
	ab := newDoc(t, "file:///ab.m", ":- module a.b.\n:- interface.\n:- pred p is det.\n")
	c := newDoc(t, "file:///c.m", ":- module c.\n:- import_module a.b.\nq :- b.p, a.b.p.\n")
	set.registry.Register(ab)
	set.registry.Register(c)

	res := NewLinker(set.Registry(), nil).Link(c)
	assert.Empty(t, res.Diagnostics)
	ids := c.References.Get("p")
	require.Len(t, ids, 2)
	n := 0
	for _, r := range res.Resolutions {
		if r.Ref == ids[0] || r.Ref == ids[1] {
			assert.Equal(t, "file:///ab.m", r.Target.URI)
			n++
		}
	}
	assert.Equal(t, 2, n)
}

func TestLink_QualifiedMissingExport(t *testing.T) {
	t.Parallel()
	set := NewSet()
	a := newDoc(t, "file:///a.m", ":- module a.\n:- implementation.\n:- pred p is det.\n")
	b := newDoc(t, "file:///b.m", ":- module b.\n:- import_module a.\nq :- a.p.\n")
	set.registry.Register(a)
	set.registry.Register(b)

	res := NewLinker(set.Registry(), nil).Link(b)
	assert.Equal(t, []string{"undefined symbol a.p/0"}, diagMessages(res))
}

func TestLink_ExternalModulesAreSilent(t *testing.T) {
	t.Parallel()
	set := NewSet()
	b := newDoc(t, "file:///b.m", ":- module b.\n:- import_module io.\nmain(IO) :- io.write_string(\"x\", IO).\n")
	set.registry.Register(b)

	res := NewLinker(set.Registry(), nil).Link(b)
	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, []string{"io"}, res.UnresolvedImports)
}

func TestLink_UnqualifiedMissWithUnresolvedImportIsWarning(t *testing.T) {
	t.Parallel()
	set := NewSet()
	b := newDoc(t, "file:///b.m", ":- module b.\n:- import_module io, list.\nmain(IO) :- io.write_string(\"x\", IO), nl(IO).\n")
	set.registry.Register(b)

	res := NewLinker(set.Registry(), nil).Link(b)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, diag.Warning, res.Diagnostics[0].Severity)
	assert.Equal(t, "undefined symbol nl/1 (may come from unresolved modules io, list)", res.Diagnostics[0].Message)
}

func TestLink_ModuleConflictFollowsOwner(t *testing.T) {
	t.Parallel()
	set := NewSet()
	late := newDoc(t, "file:///z.m", ":- module m.\n")
	early := newDoc(t, "file:///a.m", ":- module m.\n")
	set.registry.Register(late)
	set.registry.Register(early)

	linker := NewLinker(set.Registry(), nil)
	assert.Empty(t, linker.Link(early).Diagnostics)
	assert.Equal(t, []string{"module m is already defined in file:///a.m"}, diagMessages(linker.Link(late)))

	set.registry.Remove(early)
	assert.Empty(t, linker.Link(late).Diagnostics)
}

func TestLink_Builtins(t *testing.T) {
	t.Parallel()
	set := NewSet()
	b := newDoc(t, "file:///b.m", ":- module b.\np(X, Y) :- Y = [X | []], true, X = Y + 1.\n")
	set.registry.Register(b)

	res := NewLinker(set.Registry(), nil).Link(b)
	assert.Empty(t, res.Diagnostics)
	assert.True(t, resolutionFor(t, res, b, "+").Builtin)
	assert.True(t, resolutionFor(t, res, b, "[|]").Builtin)
}

func TestLink_ConstructorRelabel(t *testing.T) {
	t.Parallel()
	set := NewSet()
	b := newDoc(t, "file:///b.m", ":- module b.\n:- type color ---> red ; green.\np(X) :- X = red.\n")
	set.registry.Register(b)

	res := NewLinker(set.Registry(), nil).Link(b)
	require.Empty(t, res.Diagnostics)

	red := b.References.Get("red")[0]
	assert.Equal(t, term.Unknown, b.Term(red).Semantic)
	b.ApplyLink(res)
	assert.Equal(t, term.Constructor, b.Term(red).Semantic)
	assert.True(t, b.Term(red).Definition.Valid())
	assert.Equal(t, Linked, b.State)

	b.Unlink()
	assert.Equal(t, term.Unknown, b.Term(red).Semantic)
	assert.False(t, b.Term(red).Definition.Valid())
}

func TestSet_EdgesAndDelete(t *testing.T) {
	t.Parallel()
	set := NewSet()
	a, _ := set.GetOrCreate("file:///a.m")
	b, created := set.GetOrCreate("file:///b.m")
	assert.True(t, created)
	_, created = set.GetOrCreate("file:///b.m")
	assert.False(t, created)

	set.AddEdges(b, []string{a.URI, "file:///missing.m"})
	assert.Equal(t, []string{b.URI}, set.Importers(a))
	assert.Contains(t, b.LinkedTo, a.URI)
	assert.NotContains(t, b.LinkedTo, "file:///missing.m")

	set.RemoveEdges(b)
	assert.Empty(t, set.Importers(a))

	set.AddEdges(b, []string{a.URI})
	assert.Equal(t, []string{b.URI}, set.Delete(a.URI))
	assert.Nil(t, set.Get(a.URI))
	assert.Equal(t, 1, set.Len())
}

func TestSet_WaitingFor(t *testing.T) {
	t.Parallel()
	set := NewSet()
	d, _ := set.GetOrCreate("file:///b.m")
	d.UnresolvedImports = []string{"lib.util"}
	assert.Len(t, set.WaitingFor([]string{"lib", "util"}), 1)
	assert.Empty(t, set.WaitingFor([]string{"util"}))
}

func TestDocument_CollectDiagnosticsIsSorted(t *testing.T) {
	t.Parallel()
	d := newDoc(t, "file:///d.m", ":- module d.\nX :- true.\n:- module e.\n")
	ds := d.CollectDiagnostics()
	require.Len(t, ds, 2)
	assert.True(t, ds[0].Range.Start.Before(ds[1].Range.Start))
}
