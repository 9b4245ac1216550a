package runtime

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jward/mercanopy/scripts"
)

func testDocument() *Document {
	return &Document{
		URI:    "file:///m.m",
		Module: "m",
		Definitions: []Symbol{
			{Name: "main", Arity: 2, Kind: "pred", Line: 3, EndLine: 3, EndCol: 4},
			{Name: "helper", Arity: 1, Kind: "pred", Line: 4, EndLine: 4, EndCol: 6},
			{Name: "unused", Arity: 0, Kind: "pred", Line: 5, EndLine: 5, EndCol: 6},
			{Name: "unused", Arity: 0, Kind: "pred", Line: 6, EndLine: 6, EndCol: 6},
			{Name: "api", Arity: 0, Kind: "pred", Exported: true, Line: 7, EndLine: 7, EndCol: 3},
			{Name: "color", Arity: 0, Kind: "type", Line: 1, EndLine: 1, EndCol: 5},
		},
		Declarations: []Symbol{
			{Name: "main", Arity: 2, Kind: "pred", Line: 1},
			{Name: "api", Arity: 0, Kind: "pred", Line: 2},
		},
		References: []Symbol{
			{Name: "helper", Arity: 1, Kind: "pred", Line: 3, Col: 10},
		},
		Imports: []string{"io"},
	}
}

// --- Script loading ---

func TestLoadScript_FromFSFS(t *testing.T) {
	t.Parallel()

	content := `x := 42`
	mapFS := fstest.MapFS{
		"lint/a.risor": &fstest.MapFile{Data: []byte(content)},
	}

	rt := NewRuntime("", WithRuntimeFS(mapFS))

	got, err := rt.LoadScript("lint/a.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestLoadScript_FromFSFS_NotFound(t *testing.T) {
	t.Parallel()

	rt := NewRuntime("", WithRuntimeFS(fstest.MapFS{}))

	_, err := rt.LoadScript("nonexistent.risor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from fs")
}

func TestLoadScript_FromFSFS_StripsLeadingSeparator(t *testing.T) {
	t.Parallel()

	content := `y := 99`
	mapFS := fstest.MapFS{
		"lint/a.risor": &fstest.MapFile{Data: []byte(content)},
	}

	rt := NewRuntime("", WithRuntimeFS(mapFS))

	got, err := rt.LoadScript("/lint/a.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestLoadScript_FallsBackToDisk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	content := `z := 7`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.risor"), []byte(content), 0o644))

	rt := NewRuntime(dir)

	got, err := rt.LoadScript("test.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestScripts_SortedAndFiltered(t *testing.T) {
	t.Parallel()

	mapFS := fstest.MapFS{
		"lint/b.risor":   &fstest.MapFile{Data: []byte(``)},
		"lint/a.risor":   &fstest.MapFile{Data: []byte(``)},
		"lint/notes.txt": &fstest.MapFile{Data: []byte(``)},
		"other/c.risor":  &fstest.MapFile{Data: []byte(``)},
	}
	rt := NewRuntime("", WithRuntimeFS(mapFS))
	assert.Equal(t, []string{"lint/a.risor", "lint/b.risor"}, rt.Scripts(LintDir))
}

func TestScripts_FromDisk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "lint"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lint", "x.risor"), nil, 0o644))

	rt := NewRuntime(dir)
	assert.Equal(t, []string{"lint/x.risor"}, rt.Scripts(LintDir))
	assert.Empty(t, NewRuntime(t.TempDir()).Scripts(LintDir))
}

// --- Risor integration ---

func TestRunSource_NoImport(t *testing.T) {
	rt := NewRuntime("")

	script := `
x := 1 + 2
assert(x == 3, 'expected 3')
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

func TestRunSource_ScriptError(t *testing.T) {
	rt := NewRuntime("")
	err := rt.RunSource(context.Background(), `assert(false, "boom")`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "<inline>")
}

func TestImport_FSImporter(t *testing.T) {
	mapFS := fstest.MapFS{
		"lib_helpers.risor": &fstest.MapFile{Data: []byte(`
func greet(name) {
	return "hello " + name
}
`)},
	}

	rt := NewRuntime("", WithRuntimeFS(mapFS))

	script := `
import lib_helpers

msg := lib_helpers.greet("world")
assert(msg == "hello world", 'expected "hello world", got ' + msg)
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

func TestLog_BridgesToZap(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	rt := NewRuntime("", WithRuntimeLogger(zap.New(core)))

	require.NoError(t, rt.RunSource(context.Background(), `log.Info("hello")`, nil))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "hello", entry.Message)
	assert.Equal(t, "<inline>", entry.ContextMap()["script"])
}

func TestReport_CollectsFindings(t *testing.T) {
	doc := testDocument()
	var got []Finding
	globals := documentGlobals(doc, "inline", &got)

	script := `
assert(module == "m", "module")
assert(len(definitions) == 6, "definitions")
assert(imports[0] == "io", "imports")
d := definitions[1]
assert(d["key"] == "helper/1", "key")
report(d, "first")
report(d, "second", "error")
`
	rt := NewRuntime("")
	require.NoError(t, rt.RunSource(context.Background(), script, globals))
	require.Len(t, got, 2)
	assert.Equal(t, Finding{Script: "inline", Severity: "warning", Message: "first", Line: 4, EndLine: 4, EndCol: 6}, got[0])
	assert.Equal(t, "error", got[1].Severity)
}

func TestReport_BadArguments(t *testing.T) {
	var got []Finding
	globals := documentGlobals(testDocument(), "inline", &got)
	rt := NewRuntime("")
	require.Error(t, rt.RunSource(context.Background(), `report("x", "y")`, globals))
	require.Error(t, rt.RunSource(context.Background(), `report(definitions[0])`, globals))
}

// --- Embedded lint scripts ---

func TestLint_EmbeddedScripts(t *testing.T) {
	rt := NewRuntime("", WithRuntimeFS(scripts.FS))

	findings, err := rt.Lint(context.Background(), testDocument())
	require.NoError(t, err)

	var messages []string
	for _, f := range findings {
		messages = append(messages, f.Message)
	}
	// Scripts run in path order: missing_declaration before unused_pred.
	assert.Equal(t, []string{
		"pred helper/1 has no declaration",
		"pred unused/0 has no declaration",
		"pred unused/0 is never used",
	}, messages)
	assert.Equal(t, "information", findings[0].Severity)
	assert.Equal(t, "warning", findings[2].Severity)
	assert.Equal(t, 5, findings[2].Line)
}

func TestLint_FailingScriptDoesNotStopOthers(t *testing.T) {
	mapFS := fstest.MapFS{
		"lint/a.risor": &fstest.MapFile{Data: []byte(`assert(false, "broken")`)},
		"lint/b.risor": &fstest.MapFile{Data: []byte(`report(definitions[0], "ok")`)},
	}
	rt := NewRuntime("", WithRuntimeFS(mapFS))

	findings, err := rt.Lint(context.Background(), testDocument())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lint/a.risor")
	require.Len(t, findings, 1)
	assert.Equal(t, "lint/b.risor", findings[0].Script)
}

func TestLint_Canceled(t *testing.T) {
	rt := NewRuntime("", WithRuntimeFS(scripts.FS))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := rt.Lint(ctx, testDocument())
	require.ErrorIs(t, err, context.Canceled)
}
