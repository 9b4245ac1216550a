package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jward/mercanopy"
	"github.com/jward/mercanopy/internal/diag"
)

var checkCmd = &cobra.Command{
	Use:   "check [path]",
	Short: "Build a workspace in memory and report its diagnostics",
	Long:  "Runs the full pipeline over every source file under path without touching the database. Exits non-zero when any error is reported.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&flagScriptsDir, "scripts-dir", "", "load lint scripts from disk path instead of embedded")
}

func runCheck(cmd *cobra.Command, args []string) error {
	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return outputError("check", err)
	}
	cfg, err := loadConfig(targetDir)
	if err != nil {
		return outputError("check", err)
	}
	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		return outputError("check", err)
	}
	defer logger.Sync() //nolint:errcheck

	engine, err := mercanopy.New(engineOptions(cfg, logger)...)
	if err != nil {
		return outputError("check", fmt.Errorf("creating engine: %w", err))
	}
	defer engine.Close()

	if err := engine.IndexDirectory(context.Background(), targetDir, discoverOptions(cfg)); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", err)
	}

	q := engine.Query()
	docs := q.Documents()
	var results []CLIDiagnostic
	errs := 0
	for _, doc := range docs {
		for _, d := range q.Diagnostics(doc.URI) {
			results = append(results, diagnosticToCLI(doc.URI, d))
			if d.Severity == diag.Error {
				errs++
			}
		}
	}
	if results == nil {
		results = []CLIDiagnostic{}
	}

	if flagFormat == "text" {
		formatDiagnosticsText(os.Stdout, results)
		formatCheckSummary(os.Stdout, len(docs), results)
	} else if err := outputResult(CLIResult{Command: "check", Results: results}); err != nil {
		return err
	}

	if errs > 0 {
		// The diagnostics were already printed.
		errorHandled = true
		return fmt.Errorf("%d error(s)", errs)
	}
	return nil
}

func diagnosticToCLI(uri string, d mercanopy.Diagnostic) CLIDiagnostic {
	return CLIDiagnostic{
		File:      displayPath(uri),
		Severity:  d.Severity.String(),
		Source:    d.Source,
		Message:   d.Message,
		StartLine: d.Range.Start.Line,
		StartCol:  d.Range.Start.Col,
		EndLine:   d.Range.End.Line,
		EndCol:    d.Range.End.Col,
	}
}
