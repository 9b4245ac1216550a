package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jward/mercanopy"
	"github.com/jward/mercanopy/internal/config"
	"github.com/jward/mercanopy/internal/discover"
)

var (
	flagDB     string
	flagFormat string
	flagConfig string
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "mercanopy",
	Short:         "Incremental semantic analysis for Mercury source",
	Long:          "Mercanopy reads Mercury modules into terms, links references across modules and writes the results to a SQLite database for queries.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: index.db from mercanopy.toml, else .mercanopy/index.db)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to mercanopy.toml (default: nearest one above the target)")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(queryCmd)
}

var (
	flagForce      bool
	flagScriptsDir string
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a workspace into the database",
	Long:  "Builds every source file under path through the full pipeline and stores the validated documents in SQLite.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "delete database and reindex from scratch")
	indexCmd.Flags().StringVar(&flagScriptsDir, "scripts-dir", "", "load lint scripts from disk path instead of embedded")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(targetDir)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	dbPath := resolveDBPath(cfg)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}
	if flagForce {
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing database for --force: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Cleared database: %s\n", dbPath)
	}

	opts := append(engineOptions(cfg, logger), mercanopy.WithDB(dbPath))
	engine, err := mercanopy.New(opts...)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	defer engine.Close()

	buildStart := time.Now()
	buildErr := engine.IndexDirectory(context.Background(), targetDir, discoverOptions(cfg))
	buildDuration := time.Since(buildStart)
	if buildErr != nil {
		// A failed file or lint script does not stop the rest of the
		// workspace from being stored.
		fmt.Fprintf(os.Stderr, "Warning: %s\n", buildErr)
	}

	pruned, err := pruneStore(engine)
	if err != nil {
		return err
	}
	s := engine.Store()
	if err := s.SetMetadata("root", targetDir); err != nil {
		return err
	}
	if err := s.SetMetadata("indexed_at", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Indexed %s in %s (build: %s, %d files, %d pruned)\n",
		targetDir,
		time.Since(start).Round(time.Millisecond),
		buildDuration.Round(time.Millisecond),
		len(engine.URIs()),
		pruned,
	)
	fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)
	return nil
}

// pruneStore deletes stored files that are no longer in the workspace.
func pruneStore(engine *mercanopy.Engine) (int, error) {
	live := make(map[string]bool)
	for _, uri := range engine.URIs() {
		live[uri] = true
	}
	files, err := engine.Store().Files()
	if err != nil {
		return 0, fmt.Errorf("listing stored files: %w", err)
	}
	n := 0
	for _, f := range files {
		if live[f.URI] {
			continue
		}
		if err := engine.Store().DeleteFile(f.URI); err != nil {
			return n, fmt.Errorf("pruning %s: %w", f.URI, err)
		}
		n++
	}
	return n, nil
}

// resolveTargetDir returns the absolute path of the directory to index.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// loadConfig reads --config, or the nearest mercanopy.toml above dir. With
// neither, the defaults are rooted at the repository root of dir.
func loadConfig(dir string) (*config.Config, error) {
	if flagConfig != "" {
		return config.Load(flagConfig)
	}
	cfg, err := config.Find(dir)
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(filepath.Join(cfg.Root, config.FileName)); statErr != nil {
		cfg.Root = findRepoRoot(dir)
	}
	return cfg, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = lvl
	zcfg.DisableStacktrace = true
	return zcfg.Build()
}

func engineOptions(cfg *config.Config, logger *zap.Logger) []mercanopy.Option {
	opts := []mercanopy.Option{
		mercanopy.WithLogger(logger),
		mercanopy.WithLint(cfg.Lint.Enabled),
		mercanopy.WithModuleLocator(mercanopy.DirLocator(cfg.Root, cfg.Workspace.Extensions)),
	}
	scriptsDir := flagScriptsDir
	if scriptsDir == "" && cfg.Lint.ScriptsDir != "" {
		scriptsDir = filepath.Join(cfg.Root, cfg.Lint.ScriptsDir)
	}
	if scriptsDir != "" {
		opts = append(opts, mercanopy.WithScriptsDir(scriptsDir))
	}
	return opts
}

func discoverOptions(cfg *config.Config) discover.Options {
	return discover.Options{
		Extensions: cfg.Workspace.Extensions,
		Exclude:    cfg.Workspace.Exclude,
	}
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from the --db flag or the
// configuration.
func resolveDBPath(cfg *config.Config) string {
	if flagDB != "" {
		if filepath.IsAbs(flagDB) {
			return flagDB
		}
		return filepath.Join(cfg.Root, flagDB)
	}
	return cfg.DBPath()
}
