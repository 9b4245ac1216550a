package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jward/mercanopy"
	"github.com/jward/mercanopy/internal/store"
)

var (
	flagLimit  int
	flagOffset int
	flagName   string
	flagArity  int
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the semantic index",
	Long:  "Run queries against an indexed workspace. All line and column numbers are 0-based.",
}

func init() {
	queryCmd.PersistentFlags().IntVar(&flagLimit, "limit", 50, "pagination limit (max 500)")
	queryCmd.PersistentFlags().IntVar(&flagOffset, "offset", 0, "pagination offset")

	symbolsCmd.Flags().StringVar(&flagName, "name", "", "list symbols with this name across the workspace")
	symbolsCmd.Flags().IntVar(&flagArity, "arity", -1, "with --name, only symbols of this arity")

	queryCmd.AddCommand(definitionCmd)
	queryCmd.AddCommand(referencesCmd)
	queryCmd.AddCommand(callersCmd)
	queryCmd.AddCommand(calleesCmd)
	queryCmd.AddCommand(symbolsCmd)
	queryCmd.AddCommand(diagnosticsCmd)
	queryCmd.AddCommand(filesCmd)
	queryCmd.AddCommand(importersCmd)
}

// --- Helpers ---

// openStore opens the Store from the --db flag path (or the configured one).
func openStore() (*store.Store, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	cfg, err := loadConfig(cwd)
	if err != nil {
		return nil, err
	}
	dbPath := resolveDBPath(cfg)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'mercanopy index' first)", dbPath)
	}
	return store.NewStore(dbPath)
}

// resolveFilePath converts a file argument to an absolute path.
// If the path is already absolute, it's returned as-is.
// Otherwise, it's resolved relative to the current working directory.
func resolveFilePath(file string) (string, error) {
	if filepath.IsAbs(file) {
		return file, nil
	}
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("resolving file path %q: %w", file, err)
	}
	return abs, nil
}

// parseIntArg parses a positional argument as an integer with a clear error.
func parseIntArg(value, name string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative integer", name, value)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be non-negative", name, value)
	}
	return n, nil
}

// position parses <file> <line> <col> into a document URI and position.
func position(args []string) (uri string, line, col int, err error) {
	file, err := resolveFilePath(args[0])
	if err != nil {
		return "", 0, 0, err
	}
	if line, err = parseIntArg(args[1], "line"); err != nil {
		return "", 0, 0, err
	}
	if col, err = parseIntArg(args[2], "col"); err != nil {
		return "", 0, 0, err
	}
	return mercanopy.PathToURI(file), line, col, nil
}

// displayPath turns a document URI back into a file path when it is one.
func displayPath(uri string) string {
	if path, err := mercanopy.URIToPath(uri); err == nil {
		return path
	}
	return uri
}

// outputResult marshals a CLIResult to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}

// paginate applies --offset and --limit to items and returns the page with
// the unpaginated count.
func paginate[T any](items []T) ([]T, *int) {
	total := len(items)
	limit := flagLimit
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	start := min(max(flagOffset, 0), total)
	end := min(start+limit, total)
	page := make([]T, end-start)
	copy(page, items[start:end])
	return page, &total
}

// fileNames caches file ID to display path lookups.
type fileNames struct {
	s     *store.Store
	paths map[int64]string
}

func newFileNames(s *store.Store) *fileNames {
	return &fileNames{s: s, paths: make(map[int64]string)}
}

func (f *fileNames) path(fileID int64) string {
	if p, ok := f.paths[fileID]; ok {
		return p
	}
	uri, err := f.s.URIOf(fileID)
	if err != nil {
		return ""
	}
	p := displayPath(uri)
	f.paths[fileID] = p
	return p
}

func symbolToCLI(sym *store.Symbol, file string) CLISymbol {
	return CLISymbol{
		Name:      sym.Name,
		Arity:     sym.Arity,
		Kind:      sym.Kind,
		Role:      sym.Role,
		Exported:  sym.Exported,
		File:      file,
		StartLine: sym.StartLine,
		StartCol:  sym.StartCol,
		EndLine:   sym.EndLine,
		EndCol:    sym.EndCol,
	}
}

func symbolLocation(sym *store.Symbol, file string) CLILocation {
	return CLILocation{File: file, StartLine: sym.StartLine, StartCol: sym.StartCol, EndLine: sym.EndLine, EndCol: sym.EndCol}
}

// resolveTarget returns the stored symbol named at uri:line:col and the URI
// of its file: the symbol a reference there resolved to, or the symbol
// under the cursor. It returns nil when nothing resolves.
func resolveTarget(s *store.Store, uri string, line, col int) (*store.Symbol, string, error) {
	ref, err := s.ReferenceAt(uri, line, col)
	if err != nil {
		return nil, "", err
	}
	if ref != nil {
		rr, err := s.ResolutionOf(ref.ID)
		if err != nil || rr == nil || rr.Builtin {
			return nil, "", err
		}
		sym, err := s.SymbolByTerm(rr.TargetURI, rr.TargetTermID)
		if err != nil || sym == nil {
			return nil, "", err
		}
		return sym, rr.TargetURI, nil
	}
	sym, err := s.SymbolAt(uri, line, col)
	if err != nil || sym == nil {
		return nil, "", err
	}
	return sym, uri, nil
}

// family returns the declarations and definitions of sym's name and arity
// in sym's own file.
func family(s *store.Store, sym *store.Symbol) ([]*store.Symbol, error) {
	all, err := s.SymbolsByName(sym.Name, sym.Arity)
	if err != nil {
		return nil, err
	}
	var out []*store.Symbol
	for _, other := range all {
		if other.FileID == sym.FileID {
			out = append(out, other)
		}
	}
	return out, nil
}

// --- Commands ---

var definitionCmd = &cobra.Command{
	Use:   "definition <file> <line> <col>",
	Short: "Find the definition of the symbol at a position",
	Args:  cobra.ExactArgs(3),
	RunE:  runDefinition,
}

func runDefinition(cmd *cobra.Command, args []string) error {
	uri, line, col, err := position(args)
	if err != nil {
		return outputError("definition", err)
	}
	s, err := openStore()
	if err != nil {
		return outputError("definition", err)
	}
	defer s.Close()

	locs := []CLILocation{}
	sym, targetURI, err := resolveTarget(s, uri, line, col)
	if err != nil {
		return outputError("definition", err)
	}
	if sym != nil {
		syms, err := family(s, sym)
		if err != nil {
			return outputError("definition", err)
		}
		file := displayPath(targetURI)
		for _, other := range syms {
			if other.Role == store.RoleDefinition {
				locs = append(locs, symbolLocation(other, file))
			}
		}
		if len(locs) == 0 {
			locs = append(locs, symbolLocation(sym, file))
		}
	}
	return outputResult(CLIResult{Command: "definition", Results: locs})
}

var referencesCmd = &cobra.Command{
	Use:   "references <file> <line> <col>",
	Short: "Find all references to the symbol at a position",
	Args:  cobra.ExactArgs(3),
	RunE:  runReferences,
}

func runReferences(cmd *cobra.Command, args []string) error {
	uri, line, col, err := position(args)
	if err != nil {
		return outputError("references", err)
	}
	s, err := openStore()
	if err != nil {
		return outputError("references", err)
	}
	defer s.Close()

	locs := []CLILocation{}
	sym, targetURI, err := resolveTarget(s, uri, line, col)
	if err != nil {
		return outputError("references", err)
	}
	if sym != nil {
		syms, err := family(s, sym)
		if err != nil {
			return outputError("references", err)
		}
		names := newFileNames(s)
		for _, other := range syms {
			refs, err := s.ReferencesTo(targetURI, other.TermID)
			if err != nil {
				return outputError("references", err)
			}
			for _, r := range refs {
				locs = append(locs, CLILocation{
					File: names.path(r.FileID), StartLine: r.StartLine, StartCol: r.StartCol, EndLine: r.EndLine, EndCol: r.EndCol,
				})
			}
		}
	}
	page, total := paginate(locs)
	return outputResult(CLIResult{Command: "references", Results: page, TotalCount: total})
}

var callersCmd = &cobra.Command{
	Use:   "callers <file> <line> <col>",
	Short: "Find the clauses calling the predicate or function at a position",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCalls("callers", args, func(s *store.Store, uri string, sym *store.Symbol) ([]*store.CallEdge, error) {
			return s.CallersOf(uri, sym.Name, sym.Arity)
		})
	},
}

var calleesCmd = &cobra.Command{
	Use:   "callees <file> <line> <col>",
	Short: "Find the predicates and functions called by the clauses at a position",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCalls("callees", args, func(s *store.Store, uri string, sym *store.Symbol) ([]*store.CallEdge, error) {
			return s.CalleesOf(uri, sym.Name, sym.Arity)
		})
	},
}

func runCalls(command string, args []string, edgesOf func(*store.Store, string, *store.Symbol) ([]*store.CallEdge, error)) error {
	uri, line, col, err := position(args)
	if err != nil {
		return outputError(command, err)
	}
	s, err := openStore()
	if err != nil {
		return outputError(command, err)
	}
	defer s.Close()

	out := []CLICallEdge{}
	sym, targetURI, err := resolveTarget(s, uri, line, col)
	if err != nil {
		return outputError(command, err)
	}
	if sym != nil {
		edges, err := edgesOf(s, targetURI, sym)
		if err != nil {
			return outputError(command, err)
		}
		names := newFileNames(s)
		for _, e := range edges {
			out = append(out, CLICallEdge{
				CallerName: fmt.Sprintf("%s/%d", e.CallerName, e.CallerArity),
				CalleeName: fmt.Sprintf("%s/%d", e.CalleeName, e.CalleeArity),
				File:       names.path(e.FileID),
				Line:       e.Line,
				Col:        e.Col,
			})
		}
	}
	page, total := paginate(out)
	return outputResult(CLIResult{Command: command, Results: page, TotalCount: total})
}

var symbolsCmd = &cobra.Command{
	Use:   "symbols [file]",
	Short: "List the definitions and declarations of a file, or by --name",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSymbols,
}

func runSymbols(cmd *cobra.Command, args []string) error {
	if (len(args) == 0) == (flagName == "") {
		return outputError("symbols", fmt.Errorf("requires either a file argument or --name"))
	}
	s, err := openStore()
	if err != nil {
		return outputError("symbols", err)
	}
	defer s.Close()

	var syms []*store.Symbol
	if flagName != "" {
		syms, err = s.SymbolsByName(flagName, flagArity)
	} else {
		var file string
		if file, err = resolveFilePath(args[0]); err == nil {
			syms, err = symbolsOfFile(s, mercanopy.PathToURI(file))
		}
	}
	if err != nil {
		return outputError("symbols", err)
	}

	names := newFileNames(s)
	out := make([]CLISymbol, len(syms))
	for i, sym := range syms {
		out[i] = symbolToCLI(sym, names.path(sym.FileID))
	}
	page, total := paginate(out)
	return outputResult(CLIResult{Command: "symbols", Results: page, TotalCount: total})
}

func symbolsOfFile(s *store.Store, uri string) ([]*store.Symbol, error) {
	f, err := s.FileByURI(uri)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, fmt.Errorf("file not indexed: %s", displayPath(uri))
	}
	return s.SymbolsByFile(f.ID)
}

var diagnosticsCmd = &cobra.Command{
	Use:   "diagnostics [file]",
	Short: "List stored diagnostics for a file or the whole workspace",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDiagnostics,
}

func runDiagnostics(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return outputError("diagnostics", err)
	}
	defer s.Close()

	var ds []*store.Diagnostic
	if len(args) == 1 {
		file, err := resolveFilePath(args[0])
		if err != nil {
			return outputError("diagnostics", err)
		}
		uri := mercanopy.PathToURI(file)
		f, err := s.FileByURI(uri)
		if err != nil {
			return outputError("diagnostics", err)
		}
		if f == nil {
			return outputError("diagnostics", fmt.Errorf("file not indexed: %s", file))
		}
		ds, err = s.DiagnosticsByFile(f.ID)
		if err != nil {
			return outputError("diagnostics", err)
		}
	} else if ds, err = s.AllDiagnostics(); err != nil {
		return outputError("diagnostics", err)
	}

	names := newFileNames(s)
	out := make([]CLIDiagnostic, len(ds))
	for i, d := range ds {
		out[i] = CLIDiagnostic{
			File:      names.path(d.FileID),
			Severity:  d.Severity,
			Source:    d.Source,
			Message:   d.Message,
			StartLine: d.StartLine,
			StartCol:  d.StartCol,
			EndLine:   d.EndLine,
			EndCol:    d.EndCol,
		}
	}
	page, total := paginate(out)
	return outputResult(CLIResult{Command: "diagnostics", Results: page, TotalCount: total})
}

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List indexed files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return outputError("files", err)
		}
		defer s.Close()

		files, err := s.Files()
		if err != nil {
			return outputError("files", err)
		}
		out := make([]CLIFile, len(files))
		for i, f := range files {
			out[i] = CLIFile{Path: displayPath(f.URI), Module: f.Module, Version: f.Version, LineCount: f.LineCount}
		}
		page, total := paginate(out)
		return outputResult(CLIResult{Command: "files", Results: page, TotalCount: total})
	},
}

var importersCmd = &cobra.Command{
	Use:   "importers <module>",
	Short: "List files importing a module",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return outputError("importers", err)
		}
		defer s.Close()

		uris, err := s.FilesImporting(args[0])
		if err != nil {
			return outputError("importers", err)
		}
		out := make([]string, len(uris))
		for i, uri := range uris {
			out[i] = displayPath(uri)
		}
		return outputResult(CLIResult{Command: "importers", Results: out})
	},
}
