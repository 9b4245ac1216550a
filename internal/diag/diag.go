// Package diag holds the diagnostics accumulated by every analysis stage.
package diag

import (
	"sort"

	"github.com/jward/mercanopy/internal/token"
)

// Severity mirrors the usual editor severities.
type Severity int

const (
	Error Severity = iota + 1
	Warning
	Information
	Hint
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Information:
		return "information"
	case Hint:
		return "hint"
	}
	return "unknown"
}

// ParseSeverity maps a lower-case name back to a Severity. Unknown names
// default to Warning.
func ParseSeverity(s string) Severity {
	switch s {
	case "error":
		return Error
	case "information", "info":
		return Information
	case "hint":
		return Hint
	}
	return Warning
}

// Sources identify the stage that produced a diagnostic.
const (
	SourceParser  = "parser"
	SourceVisitor = "visitor"
	SourceLinker  = "linker"
	SourceLint    = "lint"
	SourceLoader  = "loader"
)

// Diagnostic is a single message attached to a source range.
type Diagnostic struct {
	Range    token.Range `json:"range"`
	Severity Severity    `json:"severity"`
	Source   string      `json:"source"`
	Message  string      `json:"message"`
}

// New builds an error diagnostic.
func New(source string, r token.Range, msg string) Diagnostic {
	return Diagnostic{Range: r, Severity: Error, Source: source, Message: msg}
}

// Sort orders diagnostics by position, then source, then message, so that
// rebuilding unchanged input produces identical output.
func Sort(ds []Diagnostic) {
	sort.SliceStable(ds, func(i, j int) bool {
		a, b := ds[i], ds[j]
		if a.Range.Start != b.Range.Start {
			return a.Range.Start.Before(b.Range.Start)
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.Message < b.Message
	})
}

// Count returns the number of diagnostics with the given severity.
func Count(ds []Diagnostic, sev Severity) int {
	n := 0
	for _, d := range ds {
		if d.Severity == sev {
			n++
		}
	}
	return n
}
