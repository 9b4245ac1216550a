package workspace

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jward/mercanopy/internal/diag"
	"github.com/jward/mercanopy/internal/ops"
	"github.com/jward/mercanopy/internal/term"
)

// Resolution binds one reference to its target. Builtins have no target.
type Resolution struct {
	Ref      term.ID
	Target   term.Ref
	Semantic term.Semantic
	Builtin  bool
}

// LinkResult is computed without touching the linked document, so the
// caller can drop it when the document changed in the meantime.
type LinkResult struct {
	Resolutions []Resolution
	// Targets lists the URIs of other documents this one linked against.
	Targets           []string
	UnresolvedImports []string
	Diagnostics       []diag.Diagnostic
}

// Linker resolves references against the module registry.
type Linker struct {
	registry *Registry
	table    *ops.Table
}

// NewLinker returns a linker over reg. A nil table means ops.Default().
func NewLinker(reg *Registry, table *ops.Table) *Linker {
	if table == nil {
		table = ops.Default()
	}
	return &Linker{registry: reg, table: table}
}

// Link resolves every reference of doc, which must be at least Visited.
//
// Qualified references search the exports of the module their qualifier
// names (or the document itself, if it names its own module). Unqualified
// references search local definitions and declarations, then the exports
// of every imported module, then the builtins. A qualified reference to a
// module outside the workspace is left unresolved without a diagnostic. An
// unqualified one that resolves nowhere is an error, or a warning naming
// the missing imports when the document has any.
//
// A document declaring a module another document owns is reported here, so
// the diagnostic follows ownership on every relink.
func (l *Linker) Link(doc *Document) *LinkResult {
	res := &LinkResult{}
	targets := make(map[string]struct{})

	self := doc.ModulePath()
	if owner := l.registry.Owner(self); owner != nil && owner != doc {
		res.Diagnostics = append(res.Diagnostics, diag.New(diag.SourceLinker, doc.Term(doc.Module).Token,
			fmt.Sprintf("module %s is already defined in %s", strings.Join(self, "."), owner.URI)))
	}

	var imported []*Document
	seen := make(map[string]bool)
	for _, id := range doc.Imports {
		path := doc.Arena.QualifiedName(id)
		target := l.registry.Lookup(path)
		if target == nil {
			res.UnresolvedImports = append(res.UnresolvedImports, strings.Join(path, "."))
			continue
		}
		if target == doc || seen[target.URI] {
			continue
		}
		seen[target.URI] = true
		imported = append(imported, target)
		targets[target.URI] = struct{}{}
	}

	doc.References.Each(func(_ string, id term.ID) {
		ref := doc.Arena.Get(id)

		if ref.Semantic == term.Module {
			if target := l.registry.Lookup(doc.Arena.QualifiedName(id)); target != nil && target.Module != term.None {
				res.Resolutions = append(res.Resolutions, Resolution{
					Ref:      id,
					Target:   term.Ref{URI: target.URI, ID: target.Module},
					Semantic: term.Module,
				})
				if target != doc {
					targets[target.URI] = struct{}{}
				}
			}
			return
		}

		if chain := doc.Arena.QualifierChain(id); len(chain) > 0 {
			target := l.registry.Lookup(chain)
			if target == nil && len(self) > 0 && QualifiedEqual(chain, self) {
				target = doc
			}
			if target == nil {
				return
			}
			var found term.Ref
			var sem term.Semantic
			var ok bool
			if target == doc {
				found, sem, ok = l.findLocal(doc, ref)
			} else {
				targets[target.URI] = struct{}{}
				found, sem, ok = l.findExport(target, ref)
			}
			if ok {
				res.Resolutions = append(res.Resolutions, Resolution{Ref: id, Target: found, Semantic: sem})
				return
			}
			res.Diagnostics = append(res.Diagnostics, undefined(doc, id))
			return
		}

		if found, sem, ok := l.findLocal(doc, ref); ok {
			res.Resolutions = append(res.Resolutions, Resolution{Ref: id, Target: found, Semantic: sem})
			return
		}
		for _, target := range imported {
			if found, sem, ok := l.findExport(target, ref); ok {
				res.Resolutions = append(res.Resolutions, Resolution{Ref: id, Target: found, Semantic: sem})
				return
			}
		}
		if l.isBuiltin(ref) {
			res.Resolutions = append(res.Resolutions, Resolution{
				Ref:     id,
				Target:  term.Ref{ID: term.None},
				Builtin: true,
			})
			return
		}
		d := undefined(doc, id)
		if len(res.UnresolvedImports) > 0 {
			d.Severity = diag.Warning
			d.Message += " " + maybeFrom(res.UnresolvedImports)
		}
		res.Diagnostics = append(res.Diagnostics, d)
	})

	for uri := range targets {
		res.Targets = append(res.Targets, uri)
	}
	sort.Strings(res.Targets)
	return res
}

func undefined(doc *Document, id term.ID) diag.Diagnostic {
	t := doc.Arena.Get(id)
	return diag.New(diag.SourceLinker, t.Token, fmt.Sprintf("undefined symbol %s", doc.Key(id)))
}

func maybeFrom(modules []string) string {
	if len(modules) == 1 {
		return "(may come from unresolved module " + modules[0] + ")"
	}
	return "(may come from unresolved modules " + strings.Join(modules, ", ") + ")"
}

func (l *Linker) findLocal(doc *Document, ref *term.Term) (term.Ref, term.Semantic, bool) {
	if r, s, ok := find(doc, doc.Definitions.Get(ref.Name), ref); ok {
		return r, s, true
	}
	return find(doc, doc.Declarations.Get(ref.Name), ref)
}

func (l *Linker) findExport(target *Document, ref *term.Term) (term.Ref, term.Semantic, bool) {
	return find(target, target.Exports.Get(ref.Name), ref)
}

func find(doc *Document, candidates []term.ID, ref *term.Term) (term.Ref, term.Semantic, bool) {
	for _, id := range candidates {
		c := doc.Arena.Get(id)
		if c.Arity == ref.Arity && compatible(ref.Semantic, c.Semantic) {
			return term.Ref{URI: doc.URI, ID: id}, c.Semantic, true
		}
	}
	return term.Ref{ID: term.None}, term.Unknown, false
}

// compatible reports whether a reference of kind ref may resolve to a
// definition of kind def. Data references (Unknown) resolve to anything
// callable or constructible.
func compatible(ref, def term.Semantic) bool {
	switch ref {
	case term.Unknown:
		switch def {
		case term.Pred, term.Func, term.Constructor:
			return true
		}
		return false
	case term.Typeclass:
		return def == term.Typeclass
	case term.Pred:
		return def == term.Pred
	case term.Func:
		return def == term.Func
	}
	return ref == def
}

// isBuiltin reports whether ref names list or brace syntax, a builtin
// goal, or an operator used at its operator arity.
func (l *Linker) isBuiltin(ref *term.Term) bool {
	switch ref.Name {
	case "[|]":
		return ref.Arity == 2
	case "[]":
		return ref.Arity == 0
	case "{}", "call", "apply":
		return true
	case "true", "fail":
		return ref.Arity == 0
	}
	switch ref.Arity {
	case 1:
		_, ok := l.table.Prefix(ref.Name)
		return ok
	case 2:
		if _, ok := l.table.Infix(ref.Name); ok {
			return true
		}
		_, ok := l.table.BinaryPrefix(ref.Name)
		return ok
	}
	return false
}
