package mercanopy

import (
	"fmt"
	"strings"
	"time"

	"github.com/jward/mercanopy/internal/runtime"
	"github.com/jward/mercanopy/internal/store"
	"github.com/jward/mercanopy/internal/symbols"
	"github.com/jward/mercanopy/internal/term"
	"github.com/jward/mercanopy/internal/workspace"
)

// persist replaces everything stored for d with its validated state.
func (e *Engine) persist(d *workspace.Document) error {
	if _, err := e.store.ReplaceFile(snapshotOf(d, e.set.Registry())); err != nil {
		return fmt.Errorf("persist %s: %w", d.URI, err)
	}
	return nil
}

func snapshotOf(d *workspace.Document, reg *workspace.Registry) *store.Snapshot {
	snap := &store.Snapshot{
		File: store.File{
			URI:         d.URI,
			Module:      d.ModuleName(),
			Hash:        fmt.Sprintf("%016x", d.Hash),
			Version:     d.Version,
			LineCount:   strings.Count(d.Text, "\n") + 1,
			LastIndexed: time.Now(),
		},
	}

	exported := exportKeys(d)
	addSymbols := func(table *symbols.Table, role string) {
		table.Each(func(_ string, id term.ID) {
			t := d.Term(id)
			r := t.Token
			snap.Symbols = append(snap.Symbols, store.Symbol{
				TermID:    int32(id),
				Name:      t.Name,
				Arity:     t.Arity,
				Kind:      t.Semantic.String(),
				Role:      role,
				Exported:  exported[symbolKey(t)],
				StartLine: r.Start.Line,
				StartCol:  r.Start.Col,
				EndLine:   r.End.Line,
				EndCol:    r.End.Col,
			})
		})
	}
	addSymbols(d.Definitions, store.RoleDefinition)
	addSymbols(d.Declarations, store.RoleDeclaration)

	d.References.Each(func(_ string, id term.ID) {
		t := d.Term(id)
		r := t.Token
		snap.References = append(snap.References, store.Reference{
			ID:        int64(id),
			TermID:    int32(id),
			Name:      t.Name,
			Arity:     t.Arity,
			Kind:      t.Semantic.String(),
			Qualifier: strings.Join(d.Arena.QualifierChain(id), "."),
			StartLine: r.Start.Line,
			StartCol:  r.Start.Col,
			EndLine:   r.End.Line,
			EndCol:    r.End.Col,
		})
		if t.Definition.Valid() {
			snap.Resolutions = append(snap.Resolutions, store.ResolvedReference{
				ReferenceID:  int64(id),
				TargetURI:    t.Definition.URI,
				TargetTermID: int32(t.Definition.ID),
			})
		}
	})
	for _, id := range d.Builtins {
		snap.Resolutions = append(snap.Resolutions, store.ResolvedReference{
			ReferenceID: int64(id),
			Builtin:     true,
		})
	}

	for _, id := range d.Imports {
		path := d.Arena.QualifiedName(id)
		imp := store.Import{
			Source: strings.Join(path, "."),
			Line:   d.Term(id).Token.Start.Line,
			Col:    d.Term(id).Token.Start.Col,
		}
		if target := reg.Lookup(path); target != nil {
			uri := target.URI
			imp.ResolvedURI = &uri
		}
		snap.Imports = append(snap.Imports, imp)
	}

	for _, c := range d.Clauses {
		if c.Callee == term.None {
			continue
		}
		caller := d.Term(c.Callee)
		for _, id := range c.Called {
			t := d.Term(id)
			if !t.Definition.Valid() || !isCallable(t.Semantic) {
				continue
			}
			snap.Calls = append(snap.Calls, store.CallEdge{
				CallerName:  caller.Name,
				CallerArity: caller.Arity,
				CalleeURI:   t.Definition.URI,
				CalleeName:  t.Name,
				CalleeArity: t.Arity,
				Line:        t.Token.Start.Line,
				Col:         t.Token.Start.Col,
			})
		}
	}

	for _, ds := range d.Diagnostics {
		snap.Diagnostics = append(snap.Diagnostics, store.Diagnostic{
			Severity:  ds.Severity.String(),
			Source:    ds.Source,
			Message:   ds.Message,
			StartLine: ds.Range.Start.Line,
			StartCol:  ds.Range.Start.Col,
			EndLine:   ds.Range.End.Line,
			EndCol:    ds.Range.End.Col,
		})
	}
	return snap
}

func isCallable(s term.Semantic) bool {
	return s == term.Pred || s == term.Func
}

// lintDocument is the view of d handed to lint scripts.
func lintDocument(d *workspace.Document) *runtime.Document {
	exported := exportKeys(d)
	doc := &runtime.Document{URI: d.URI, Module: d.ModuleName()}
	collect := func(table *symbols.Table) []runtime.Symbol {
		var out []runtime.Symbol
		table.Each(func(_ string, id term.ID) {
			t := d.Term(id)
			out = append(out, runtime.Symbol{
				Name:      t.Name,
				Arity:     t.Arity,
				Kind:      t.Semantic.String(),
				Qualifier: strings.Join(d.Arena.QualifierChain(id), "."),
				Exported:  exported[symbolKey(t)],
				Line:      t.Token.Start.Line,
				Col:       t.Token.Start.Col,
				EndLine:   t.Token.End.Line,
				EndCol:    t.Token.End.Col,
			})
		})
		return out
	}
	doc.Definitions = collect(d.Definitions)
	doc.Declarations = collect(d.Declarations)
	doc.References = collect(d.References)
	for _, id := range d.Imports {
		doc.Imports = append(doc.Imports, strings.Join(d.Arena.QualifiedName(id), "."))
	}
	return doc
}
