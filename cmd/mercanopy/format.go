package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/pterm/pterm"
)

var (
	errorColor   = pterm.FgRed
	warningColor = pterm.FgYellow
	infoColor    = pterm.FgCyan
	successStyle = pterm.NewStyle(pterm.FgLightGreen, pterm.Bold)
	failStyle    = pterm.NewStyle(pterm.FgRed, pterm.Bold)
)

// formatLocationsText formats CLILocation results as "file:line:col" lines.
func formatLocationsText(w io.Writer, locs []CLILocation) {
	for _, loc := range locs {
		fmt.Fprintf(w, "%s:%d:%d\n", loc.File, loc.StartLine, loc.StartCol)
	}
}

// formatSymbolsText formats CLISymbol results as aligned columns.
func formatSymbolsText(w io.Writer, syms []CLISymbol) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tROLE\tEXPORTED\tFILE\tLINE")
	for _, s := range syms {
		fmt.Fprintf(tw, "%s/%d\t%s\t%s\t%t\t%s\t%d\n",
			s.Name, s.Arity, s.Kind, s.Role, s.Exported, s.File, s.StartLine)
	}
	tw.Flush()
}

// formatCallEdgesText formats CLICallEdge results as aligned columns.
func formatCallEdgesText(w io.Writer, edges []CLICallEdge) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CALLER\tCALLEE\tFILE\tLINE\tCOL")
	for _, e := range edges {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n",
			e.CallerName, e.CalleeName, e.File, e.Line, e.Col)
	}
	tw.Flush()
}

// formatFilesText formats CLIFile results as aligned columns.
func formatFilesText(w io.Writer, files []CLIFile) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tMODULE\tVERSION\tLINES")
	for _, f := range files {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", f.Path, f.Module, f.Version, f.LineCount)
	}
	tw.Flush()
}

// formatDiagnosticsText prints one line per diagnostic in the
// "file:line:col: severity: message" shape editors and CI logs recognise.
func formatDiagnosticsText(w io.Writer, ds []CLIDiagnostic) {
	for _, d := range ds {
		fmt.Fprintf(w, "%s:%d:%d: %s: %s (%s)\n",
			d.File, d.StartLine, d.StartCol, severityColor(d.Severity).Sprint(d.Severity), d.Message, d.Source)
	}
}

func severityColor(severity string) pterm.Color {
	switch severity {
	case "error":
		return errorColor
	case "warning":
		return warningColor
	}
	return infoColor
}

// formatCheckSummary prints the closing line of the check command.
func formatCheckSummary(w io.Writer, files int, ds []CLIDiagnostic) {
	var errs, warnings int
	for _, d := range ds {
		switch d.Severity {
		case "error":
			errs++
		case "warning":
			warnings++
		}
	}
	msg := fmt.Sprintf("%d error(s), %d warning(s) in %d file(s)", errs, warnings, files)
	if errs > 0 {
		fmt.Fprintln(w, failStyle.Sprint(msg))
		return
	}
	fmt.Fprintln(w, successStyle.Sprint(msg))
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type. It writes to os.Stdout.
func outputResultText(result CLIResult) error {
	return writeResultText(os.Stdout, result)
}

func writeResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLILocation:
		formatLocationsText(w, v)
	case []CLISymbol:
		formatSymbolsText(w, v)
	case []CLICallEdge:
		formatCallEdgesText(w, v)
	case []CLIFile:
		formatFilesText(w, v)
	case []CLIDiagnostic:
		formatDiagnosticsText(w, v)
	case []string:
		for _, s := range v {
			fmt.Fprintln(w, s)
		}
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}

	if result.TotalCount != nil {
		count := *result.TotalCount
		if shown := resultLen(result.Results); shown < count {
			fmt.Fprintf(w, "\nShowing %d of %d results\n", shown, count)
		}
	}
	return nil
}

// resultLen returns the length of a result slice.
func resultLen(v any) int {
	switch r := v.(type) {
	case []CLILocation:
		return len(r)
	case []CLISymbol:
		return len(r)
	case []CLICallEdge:
		return len(r)
	case []CLIFile:
		return len(r)
	case []CLIDiagnostic:
		return len(r)
	case []string:
		return len(r)
	}
	return 0
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
