// Package workspace holds the per-document build state, the module
// registry and the linker that connects references across documents.
package workspace

import (
	"strconv"
	"strings"

	"github.com/jward/mercanopy/internal/diag"
	"github.com/jward/mercanopy/internal/reader"
	"github.com/jward/mercanopy/internal/symbols"
	"github.com/jward/mercanopy/internal/term"
	"github.com/jward/mercanopy/internal/visitor"
)

// State is the build stage a document has completed. States only move
// forward during a build; an edit moves a document back to Changed and a
// change in one of its imports moves it back to Visited.
type State uint8

const (
	Changed State = iota
	Parsed
	Visited
	Linked
	Validated
)

func (s State) String() string {
	switch s {
	case Changed:
		return "changed"
	case Parsed:
		return "parsed"
	case Visited:
		return "visited"
	case Linked:
		return "linked"
	case Validated:
		return "validated"
	}
	return "unknown"
}

// Document is one source file and everything derived from it.
type Document struct {
	URI string
	// Version increases with every edit. Results computed for an older
	// version are discarded.
	Version int32
	Text    string
	Hash    uint64
	State   State

	Arena   *term.Arena
	Clauses []*term.Clause

	Definitions  *symbols.Table
	References   *symbols.Table
	Declarations *symbols.Table
	Exports      *symbols.Table
	Imports      []term.ID
	Module       term.ID

	ParseDiagnostics []diag.Diagnostic
	VisitDiagnostics []diag.Diagnostic
	LinkDiagnostics  []diag.Diagnostic
	LintDiagnostics  []diag.Diagnostic
	// Diagnostics is the sorted union published at Validated.
	Diagnostics []diag.Diagnostic

	// ImportedBy holds the URIs of documents that linked against this one.
	ImportedBy map[string]struct{}
	// LinkedTo holds the URIs this document linked against.
	LinkedTo map[string]struct{}
	// UnresolvedImports lists imported module names the registry did not
	// know at the last link.
	UnresolvedImports []string
	// Builtins lists references resolved to builtin syntax or goals.
	Builtins []term.ID

	// relabelled holds references whose kind was taken from their
	// definition, so unlinking can restore them.
	relabelled []term.ID
}

// NewDocument returns an empty document in state Changed.
func NewDocument(uri string) *Document {
	d := &Document{
		URI:        uri,
		ImportedBy: make(map[string]struct{}),
		LinkedTo:   make(map[string]struct{}),
	}
	d.clearTables()
	return d
}

func (d *Document) clearTables() {
	d.Definitions = symbols.New()
	d.References = symbols.New()
	d.Declarations = symbols.New()
	d.Exports = symbols.New()
	d.Imports = nil
	d.Module = term.None
}

// Reset drops everything derived from the text while keeping identity
// and import back-edges.
func (d *Document) Reset() {
	d.State = Changed
	d.Arena = nil
	d.Clauses = nil
	d.clearTables()
	d.ParseDiagnostics = nil
	d.VisitDiagnostics = nil
	d.LinkDiagnostics = nil
	d.LintDiagnostics = nil
	d.UnresolvedImports = nil
	d.Builtins = nil
	d.relabelled = nil
}

// ApplyParse installs a fresh read of the document text.
func (d *Document) ApplyParse(p *reader.Document) {
	d.Reset()
	d.Arena = p.Arena
	d.Clauses = p.Clauses
	d.ParseDiagnostics = p.Diagnostics
	d.State = Parsed
}

// ApplyVisit installs the visitor's tables.
func (d *Document) ApplyVisit(r *visitor.Result) {
	d.Definitions = r.Definitions
	d.References = r.References
	d.Declarations = r.Declarations
	d.Exports = r.Exports
	d.Imports = r.Imports
	d.Module = r.Module
	d.VisitDiagnostics = r.Diagnostics
	d.State = Visited
}

// Unlink forgets every resolution made by the last link.
func (d *Document) Unlink() {
	if d.Arena == nil {
		return
	}
	d.References.Each(func(_ string, id term.ID) {
		d.Arena.Get(id).Definition = term.Ref{ID: term.None}
	})
	for _, id := range d.relabelled {
		d.Arena.Get(id).Semantic = term.Unknown
	}
	d.relabelled = nil
	d.Builtins = nil
	d.LinkDiagnostics = nil
	d.LintDiagnostics = nil
	d.UnresolvedImports = nil
}

// ApplyLink installs a link result computed for this document.
func (d *Document) ApplyLink(res *LinkResult) {
	d.Unlink()
	for _, r := range res.Resolutions {
		t := d.Arena.Get(r.Ref)
		t.Definition = r.Target
		if r.Builtin {
			d.Builtins = append(d.Builtins, r.Ref)
		}
		if t.Semantic == term.Unknown && r.Semantic != term.Unknown {
			t.Semantic = r.Semantic
			d.relabelled = append(d.relabelled, r.Ref)
		}
	}
	d.LinkDiagnostics = res.Diagnostics
	d.UnresolvedImports = res.UnresolvedImports
	d.State = Linked
}

// ModuleName returns the dotted module name, or "" when the document
// declares no module.
func (d *Document) ModuleName() string {
	if d.Arena == nil {
		return ""
	}
	return visitor.ModuleName(d.Arena, d.Module)
}

// ModulePath returns the module name split into segments.
func (d *Document) ModulePath() []string {
	if d.Arena == nil || d.Module == term.None {
		return nil
	}
	return d.Arena.QualifiedName(d.Module)
}

// Term returns the term for id.
func (d *Document) Term(id term.ID) *term.Term {
	return d.Arena.Get(id)
}

// Key returns name/arity for id, with any module qualifier prefixed.
func (d *Document) Key(id term.ID) string {
	t := d.Arena.Get(id)
	return strings.Join(d.Arena.QualifiedName(id), ".") + "/" + strconv.Itoa(t.Arity)
}

// CollectDiagnostics merges every stage's diagnostics in stable order.
func (d *Document) CollectDiagnostics() []diag.Diagnostic {
	n := len(d.ParseDiagnostics) + len(d.VisitDiagnostics) + len(d.LinkDiagnostics) + len(d.LintDiagnostics)
	out := make([]diag.Diagnostic, 0, n)
	out = append(out, d.ParseDiagnostics...)
	out = append(out, d.VisitDiagnostics...)
	out = append(out, d.LinkDiagnostics...)
	out = append(out, d.LintDiagnostics...)
	diag.Sort(out)
	return out
}

// ClauseOf returns the clause that owns id, or nil.
func (d *Document) ClauseOf(id term.ID) *term.Clause {
	i := d.Arena.Get(id).Clause
	if i < 0 || i >= len(d.Clauses) {
		return nil
	}
	return d.Clauses[i]
}
