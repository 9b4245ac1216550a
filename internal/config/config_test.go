package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeConfig(t, dir, `
[workspace]
extensions = [".m", ".mh"]
exclude = ["vendor/", "*_gen.m"]

[index]
db = "out/db.sqlite"

[lint]
enabled = false
scripts_dir = "lint"

[log]
level = "debug"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{".m", ".mh"}, cfg.Workspace.Extensions)
	assert.Equal(t, []string{"vendor/", "*_gen.m"}, cfg.Workspace.Exclude)
	assert.False(t, cfg.Lint.Enabled)
	assert.Equal(t, "lint", cfg.Lint.ScriptsDir)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, dir, cfg.Root)
	assert.Equal(t, filepath.Join(dir, "out", "db.sqlite"), cfg.DBPath())
}

func TestLoad_PartialKeepsDefaults(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, t.TempDir(), "[log]\nlevel = \"info\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{".m"}, cfg.Workspace.Extensions)
	assert.True(t, cfg.Lint.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_Invalid(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name, content, want string
	}{
		{"syntax", "[log\n", "parse"},
		{"level", "[log]\nlevel = \"loud\"\n", "log.level"},
		{"extension", "[workspace]\nextensions = [\"m\"]\n", "must start with a dot"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(writeConfig(t, t.TempDir(), tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFind_WalksUp(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeConfig(t, root, "[index]\ndb = \"x.db\"\n")
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	cfg, err := Find(nested)
	require.NoError(t, err)
	assert.Equal(t, root, cfg.Root)
	assert.Equal(t, filepath.Join(root, "x.db"), cfg.DBPath())
}

func TestFind_DefaultWhenMissing(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	cfg, err := Find(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Root)
	assert.Equal(t, Default().Workspace, cfg.Workspace)
	assert.Equal(t, filepath.Join(dir, ".mercanopy", "index.db"), cfg.DBPath())
}
