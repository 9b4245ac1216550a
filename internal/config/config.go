// Package config loads the mercanopy.toml workspace file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml"
)

// FileName is the workspace configuration file looked up by Find.
const FileName = "mercanopy.toml"

// Config is the decoded workspace configuration.
type Config struct {
	Workspace Workspace `toml:"workspace"`
	Index     Index     `toml:"index"`
	Lint      Lint      `toml:"lint"`
	Log       Log       `toml:"log"`

	// Root is the directory holding the configuration file, or the start
	// directory when none was found. It is not read from the file.
	Root string `toml:"-"`
}

type Workspace struct {
	// Extensions lists the source file extensions, with the leading dot.
	Extensions []string `toml:"extensions"`
	// Exclude holds gitignore-style patterns relative to Root.
	Exclude []string `toml:"exclude,omitempty"`
}

type Index struct {
	DB string `toml:"db" default:".mercanopy/index.db"`
}

type Lint struct {
	Enabled    bool   `toml:"enabled" default:"true"`
	ScriptsDir string `toml:"scripts_dir,omitempty"`
}

type Log struct {
	Level string `toml:"level" default:"warn"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Workspace: Workspace{Extensions: []string{".m"}},
		Index:     Index{DB: filepath.Join(".mercanopy", "index.db")},
		Lint:      Lint{Enabled: true},
		Log:       Log{Level: "warn"},
	}
}

// Load decodes the file at path over the defaults.
func Load(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := Default()
	if err := toml.Unmarshal(buf, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if len(cfg.Workspace.Extensions) == 0 {
		cfg.Workspace.Extensions = Default().Workspace.Extensions
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	cfg.Root = filepath.Dir(path)
	return cfg, nil
}

// Find walks up from startDir to the nearest FileName and loads it. When
// there is none it returns Default rooted at startDir.
func Find(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s: %w", startDir, err)
	}
	for {
		path := filepath.Join(dir, FileName)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return Load(path)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	cfg := Default()
	cfg.Root, _ = filepath.Abs(startDir)
	return cfg, nil
}

// DBPath returns the index database path, resolved against Root.
func (c *Config) DBPath() string {
	if filepath.IsAbs(c.Index.DB) {
		return c.Index.DB
	}
	return filepath.Join(c.Root, c.Index.DB)
}

func (c *Config) validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	for _, ext := range c.Workspace.Extensions {
		if len(ext) < 2 || ext[0] != '.' {
			return fmt.Errorf("workspace.extensions: %q must start with a dot", ext)
		}
	}
	return nil
}
