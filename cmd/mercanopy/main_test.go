package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/mercanopy"
	"github.com/jward/mercanopy/internal/config"
	"github.com/jward/mercanopy/internal/store"
)

func TestFindRepoRoot_DirectGitDir(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}

	got := findRepoRoot(root)
	assert.Equal(t, root, got)
}

func TestFindRepoRoot_NestedSubdirectory(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	deep := filepath.Join(root, "sub", "deep")
	if err := os.MkdirAll(deep, 0o755); err != nil {
		t.Fatal(err)
	}

	got := findRepoRoot(deep)
	assert.Equal(t, root, got)
}

func TestFindRepoRoot_NoGitAncestor(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	got := findRepoRoot(dir)
	assert.Equal(t, dir, got)
}

func TestValidateFormat(t *testing.T) {
	assert.NoError(t, validateFormat("json"))
	assert.NoError(t, validateFormat("text"))
	assert.EqualError(t, validateFormat("yaml"), `invalid format "yaml": must be json or text`)
}

func TestParseIntArg(t *testing.T) {
	n, err := parseIntArg("12", "line")
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	_, err = parseIntArg("-1", "line")
	assert.ErrorContains(t, err, "must be non-negative")
	_, err = parseIntArg("x", "col")
	assert.ErrorContains(t, err, `invalid col "x"`)
}

func TestPaginate(t *testing.T) {
	defer func(limit, offset int) { flagLimit, flagOffset = limit, offset }(flagLimit, flagOffset)
	items := []string{"a", "b", "c", "d", "e"}

	flagLimit, flagOffset = 2, 1
	page, total := paginate(items)
	assert.Equal(t, []string{"b", "c"}, page)
	assert.Equal(t, 5, *total)

	flagLimit, flagOffset = 2, 10
	page, _ = paginate(items)
	assert.Empty(t, page)
}

func TestResolveDBPath(t *testing.T) {
	defer func(db string) { flagDB = db }(flagDB)
	cfg := config.Default()
	cfg.Root = "/work"

	flagDB = ""
	assert.Equal(t, filepath.Join("/work", ".mercanopy", "index.db"), resolveDBPath(cfg))
	flagDB = "other.db"
	assert.Equal(t, filepath.Join("/work", "other.db"), resolveDBPath(cfg))
	flagDB = "/abs/x.db"
	assert.Equal(t, "/abs/x.db", resolveDBPath(cfg))
}

func TestWriteResultText(t *testing.T) {
	pterm.DisableColor()
	defer pterm.EnableColor()

	total := 3
	var buf bytes.Buffer
	require.NoError(t, writeResultText(&buf, CLIResult{
		Results:    []CLILocation{{File: "/w/a.m", StartLine: 4, StartCol: 0}},
		TotalCount: &total,
	}))
	assert.Equal(t, "/w/a.m:4:0\n\nShowing 1 of 3 results\n", buf.String())

	buf.Reset()
	require.NoError(t, writeResultText(&buf, CLIResult{Results: []CLIDiagnostic{{
		File: "/w/b.m", Severity: "error", Source: "linker", Message: "undefined symbol p/1", StartLine: 2, StartCol: 8,
	}}}))
	assert.Contains(t, buf.String(), "/w/b.m:2:8: ")
	assert.Contains(t, buf.String(), "undefined symbol p/1 (linker)")

	buf.Reset()
	require.NoError(t, writeResultText(&buf, CLIResult{Results: []CLISymbol{{Name: "p", Arity: 1, Kind: "pred", Role: "declaration"}}}))
	assert.Contains(t, buf.String(), "p/1")
	assert.Contains(t, buf.String(), "declaration")

	assert.Error(t, writeResultText(&buf, CLIResult{Results: 42}))
}

func TestFormatCheckSummary(t *testing.T) {
	pterm.DisableColor()
	defer pterm.EnableColor()

	var buf bytes.Buffer
	formatCheckSummary(&buf, 2, []CLIDiagnostic{{Severity: "error"}, {Severity: "warning"}, {Severity: "warning"}})
	assert.Contains(t, buf.String(), "1 error(s), 2 warning(s) in 2 file(s)")
}

const (
	srcA = ":- module a.\n:- interface.\n:- pred p(int::in) is det.\n:- implementation.\np(_).\n"
	srcB = ":- module b.\n:- import_module a.\nq(X) :- p(X), r.\nr.\n"
)

// indexedStore writes a two-module workspace to disk, indexes it and
// returns the open store with the URIs of a.m and b.m.
func indexedStore(t *testing.T) (*store.Store, string, string) {
	t.Helper()
	dir := t.TempDir()
	pathA := filepath.Join(dir, "a.m")
	pathB := filepath.Join(dir, "b.m")
	require.NoError(t, os.WriteFile(pathA, []byte(srcA), 0o644))
	require.NoError(t, os.WriteFile(pathB, []byte(srcB), 0o644))

	e, err := mercanopy.New(mercanopy.WithDB(filepath.Join(dir, "index.db")), mercanopy.WithLint(false))
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	uriA, uriB := mercanopy.PathToURI(pathA), mercanopy.PathToURI(pathB)
	require.NoError(t, e.Update(context.Background(), []string{uriA, uriB}, nil))
	return e.Store(), uriA, uriB
}

func TestResolveTarget(t *testing.T) {
	s, uriA, uriB := indexedStore(t)

	// From the call site in b to the declaration in a.
	sym, uri, err := resolveTarget(s, uriB, 2, 8)
	require.NoError(t, err)
	require.NotNil(t, sym)
	assert.Equal(t, uriA, uri)
	assert.Equal(t, store.RoleDeclaration, sym.Role)
	assert.Equal(t, 2, sym.StartLine)

	syms, err := family(s, sym)
	require.NoError(t, err)
	require.Len(t, syms, 2)

	// The clause head is a symbol, not a reference.
	sym, uri, err = resolveTarget(s, uriA, 4, 0)
	require.NoError(t, err)
	require.NotNil(t, sym)
	assert.Equal(t, uriA, uri)
	assert.Equal(t, store.RoleDefinition, sym.Role)

	edges, err := s.CallersOf(uri, sym.Name, sym.Arity)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "q", edges[0].CallerName)

	// Variables resolve to nothing.
	sym, _, err = resolveTarget(s, uriB, 2, 10)
	require.NoError(t, err)
	assert.Nil(t, sym)
}

func TestPruneStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.m")
	require.NoError(t, os.WriteFile(path, []byte(srcA), 0o644))
	dbPath := filepath.Join(dir, "index.db")

	stale, err := store.NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, stale.Migrate())
	_, err = stale.ReplaceFile(&store.Snapshot{File: store.File{URI: "file:///gone.m", Module: "gone"}})
	require.NoError(t, err)
	require.NoError(t, stale.Close())

	e, err := mercanopy.New(mercanopy.WithDB(dbPath), mercanopy.WithLint(false))
	require.NoError(t, err)
	defer e.Close()
	require.NoError(t, e.Update(context.Background(), []string{mercanopy.PathToURI(path)}, nil))

	n, err := pruneStore(e)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	files, err := e.Store().Files()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, mercanopy.PathToURI(path), files[0].URI)
}
