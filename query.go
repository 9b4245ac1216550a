package mercanopy

import (
	"sort"
	"strings"

	"github.com/jward/mercanopy/internal/diag"
	"github.com/jward/mercanopy/internal/store"
	"github.com/jward/mercanopy/internal/symbols"
	"github.com/jward/mercanopy/internal/term"
	"github.com/jward/mercanopy/internal/token"
	"github.com/jward/mercanopy/internal/workspace"
)

// QueryBuilder answers cursor and workspace queries from the in-memory
// symbol graph. Every method takes the pipeline lock, so results always
// reflect a consistent (if partially built) workspace.
type QueryBuilder struct {
	e *Engine
}

// Table selects the symbol table a Lookup searches.
type Table int

const (
	Definitions Table = iota
	Declarations
	References
	Exports
)

func (t Table) of(d *workspace.Document) *symbols.Table {
	switch t {
	case Declarations:
		return d.Declarations
	case References:
		return d.References
	case Exports:
		return d.Exports
	}
	return d.Definitions
}

// target is a term in a particular document.
type target struct {
	doc *workspace.Document
	id  term.ID
}

func (t target) term() *term.Term { return t.doc.Term(t.id) }

func (q *QueryBuilder) lock() func() {
	q.e.mu.Lock()
	return q.e.mu.Unlock
}

// termAt returns the innermost term of uri at (line, col).
func (q *QueryBuilder) termAt(uri string, line, col int) (target, bool) {
	d := q.e.set.Get(uri)
	if d == nil || d.Arena == nil {
		return target{}, false
	}
	id := term.TermAt(d.Arena, d.Clauses, token.Pos{Line: line, Col: col})
	if id == term.None {
		return target{}, false
	}
	return target{doc: d, id: id}, true
}

// resolve follows a reference to what it names. Definitions and
// declarations resolve to themselves.
func (q *QueryBuilder) resolve(t target) (target, bool) {
	tm := t.term()
	if tm.Definition.Valid() {
		d := q.e.set.Get(tm.Definition.URI)
		if d == nil || d.Arena == nil || !d.Arena.Valid(tm.Definition.ID) {
			return target{}, false
		}
		return target{doc: d, id: tm.Definition.ID}, true
	}
	if contains(t.doc.Definitions, tm.Name, t.id) || contains(t.doc.Declarations, tm.Name, t.id) {
		return t, true
	}
	return target{}, false
}

func contains(table *symbols.Table, name string, id term.ID) bool {
	for _, x := range table.Get(name) {
		if x == id {
			return true
		}
	}
	return false
}

// matching returns the entries of table in d with the same name, arity
// and kind family as tm.
func matching(d *workspace.Document, table *symbols.Table, tm *term.Term) []term.ID {
	var out []term.ID
	for _, id := range table.Get(tm.Name) {
		c := d.Term(id)
		if c.Arity == tm.Arity && sameFamily(c.Semantic, tm.Semantic) {
			out = append(out, id)
		}
	}
	return out
}

// sameFamily treats constructors and data references as interchangeable.
func sameFamily(a, b term.Semantic) bool {
	if a == b {
		return true
	}
	data := func(s term.Semantic) bool { return s == term.Constructor || s == term.Unknown }
	return data(a) && data(b)
}

func location(d *workspace.Document, id term.ID) Location {
	r := d.Term(id).Token
	return Location{
		URI:       d.URI,
		StartLine: r.Start.Line,
		StartCol:  r.Start.Col,
		EndLine:   r.End.Line,
		EndCol:    r.End.Col,
	}
}

func symbolOf(d *workspace.Document, id term.ID, role string, exported map[string]bool) Symbol {
	t := d.Term(id)
	return Symbol{
		Name:     t.Name,
		Arity:    t.Arity,
		Kind:     t.Semantic.String(),
		Module:   d.ModuleName(),
		Role:     role,
		Exported: exported[symbolKey(t)],
		Location: location(d, id),
	}
}

func sortLocations(locs []Location) {
	sort.Slice(locs, func(i, j int) bool {
		a, b := locs[i], locs[j]
		if a.URI != b.URI {
			return a.URI < b.URI
		}
		if a.StartLine != b.StartLine {
			return a.StartLine < b.StartLine
		}
		return a.StartCol < b.StartCol
	})
}

// TermAt describes the term at the given position, or returns nil.
func (q *QueryBuilder) TermAt(uri string, line, col int) *TermInfo {
	defer q.lock()()
	t, ok := q.termAt(uri, line, col)
	if !ok {
		return nil
	}
	tm := t.term()
	info := &TermInfo{
		Name:      tm.Name,
		Arity:     tm.Arity,
		Kind:      tm.Semantic.String(),
		Qualifier: strings.Join(t.doc.Arena.QualifierChain(t.id), "."),
		Text:      t.doc.Arena.Format(t.id),
		Location:  location(t.doc, t.id),
	}
	if def, ok := q.resolve(t); ok && def != t {
		loc := location(def.doc, def.id)
		info.Definition = &loc
	}
	return info
}

// DefinitionAt returns where the symbol at the given position is defined.
// A reference that resolved to a declaration leads to the definitions
// beside it, or to the declaration when there are none.
func (q *QueryBuilder) DefinitionAt(uri string, line, col int) []Location {
	defer q.lock()()
	t, ok := q.termAt(uri, line, col)
	if !ok {
		return nil
	}
	def, ok := q.resolve(t)
	if !ok {
		return nil
	}
	ids := matching(def.doc, def.doc.Definitions, def.term())
	if len(ids) == 0 {
		return []Location{location(def.doc, def.id)}
	}
	out := make([]Location, len(ids))
	for i, id := range ids {
		out[i] = location(def.doc, id)
	}
	return out
}

// DeclarationAt returns the declarations of the symbol at the given
// position.
func (q *QueryBuilder) DeclarationAt(uri string, line, col int) []Location {
	defer q.lock()()
	t, ok := q.termAt(uri, line, col)
	if !ok {
		return nil
	}
	def, ok := q.resolve(t)
	if !ok {
		return nil
	}
	var out []Location
	for _, id := range matching(def.doc, def.doc.Declarations, def.term()) {
		out = append(out, location(def.doc, id))
	}
	return out
}

// ReferencesAt returns every reference in the workspace to the symbol at
// the given position, sorted by location. With includeDeclaration the
// symbol's definitions and declarations are listed too.
func (q *QueryBuilder) ReferencesAt(uri string, line, col int, includeDeclaration bool) []Location {
	defer q.lock()()
	t, ok := q.termAt(uri, line, col)
	if !ok {
		return nil
	}
	def, ok := q.resolve(t)
	if !ok {
		return nil
	}
	var out []Location
	for _, d := range q.e.set.Documents() {
		if d.Arena == nil {
			continue
		}
		d.References.Each(func(_ string, id term.ID) {
			if q.refersTo(d.Term(id), def) {
				out = append(out, location(d, id))
			}
		})
	}
	if includeDeclaration {
		tm := def.term()
		for _, id := range matching(def.doc, def.doc.Declarations, tm) {
			out = append(out, location(def.doc, id))
		}
		for _, id := range matching(def.doc, def.doc.Definitions, tm) {
			out = append(out, location(def.doc, id))
		}
	}
	sortLocations(out)
	return out
}

// refersTo reports whether ref resolved to def or to another entry of
// def's document with the same name and arity.
func (q *QueryBuilder) refersTo(ref *term.Term, def target) bool {
	if !ref.Definition.Valid() || ref.Definition.URI != def.doc.URI {
		return false
	}
	if !def.doc.Arena.Valid(ref.Definition.ID) {
		return false
	}
	got, want := def.doc.Term(ref.Definition.ID), def.term()
	return got.Name == want.Name && got.Arity == want.Arity && sameFamily(got.Semantic, want.Semantic)
}

// Lookup finds entries of table named name. A negative arity matches any
// arity. A non-empty qualifier keeps only documents whose module it names,
// by the same suffix rule the linker uses.
func (q *QueryBuilder) Lookup(table Table, name string, arity int, qualifier string) []Location {
	defer q.lock()()
	var path []string
	if qualifier != "" {
		path = strings.Split(qualifier, ".")
	}
	var out []Location
	for _, d := range q.e.set.Documents() {
		if d.Arena == nil {
			continue
		}
		if path != nil && !workspace.QualifiedEqual(path, d.ModulePath()) {
			continue
		}
		for _, id := range table.of(d).Get(name) {
			if arity < 0 || d.Term(id).Arity == arity {
				out = append(out, location(d, id))
			}
		}
	}
	sortLocations(out)
	return out
}

// callableAt resolves the position to a predicate or function.
func (q *QueryBuilder) callableAt(uri string, line, col int) (target, bool) {
	t, ok := q.termAt(uri, line, col)
	if !ok {
		return target{}, false
	}
	def, ok := q.resolve(t)
	if !ok || !isCallable(def.term().Semantic) {
		return target{}, false
	}
	return def, true
}

// IncomingCalls returns the clauses that call the predicate or function
// at the given position.
func (q *QueryBuilder) IncomingCalls(uri string, line, col int) []Call {
	defer q.lock()()
	def, ok := q.callableAt(uri, line, col)
	if !ok {
		return nil
	}
	var out []Call
	for _, d := range q.e.set.Documents() {
		if d.Arena == nil {
			continue
		}
		exported := exportKeys(d)
		for _, c := range d.Clauses {
			if c.Callee == term.None {
				continue
			}
			for _, id := range c.Called {
				if q.refersTo(d.Term(id), def) {
					out = append(out, Call{
						Symbol: symbolOf(d, c.Callee, store.RoleDefinition, exported),
						Site:   location(d, id),
					})
				}
			}
		}
	}
	return out
}

// OutgoingCalls returns the predicates and functions called by the
// clauses of the predicate or function at the given position.
func (q *QueryBuilder) OutgoingCalls(uri string, line, col int) []Call {
	defer q.lock()()
	def, ok := q.callableAt(uri, line, col)
	if !ok {
		return nil
	}
	want := def.term()
	var out []Call
	for _, c := range def.doc.Clauses {
		if c.Callee == term.None {
			continue
		}
		head := def.doc.Term(c.Callee)
		if head.Name != want.Name || head.Arity != want.Arity {
			continue
		}
		for _, id := range c.Called {
			ref := def.doc.Term(id)
			if !ref.Definition.Valid() || !isCallable(ref.Semantic) {
				continue
			}
			callee := q.e.set.Get(ref.Definition.URI)
			if callee == nil || callee.Arena == nil {
				continue
			}
			out = append(out, Call{
				Symbol: symbolOf(callee, ref.Definition.ID, store.RoleDefinition, exportKeys(callee)),
				Site:   location(def.doc, id),
			})
		}
	}
	return out
}

// Importers returns the documents that linked against uri.
func (q *QueryBuilder) Importers(uri string) []string {
	defer q.lock()()
	d := q.e.set.Get(uri)
	if d == nil {
		return nil
	}
	return q.e.set.Importers(d)
}

// Imports returns the documents uri linked against.
func (q *QueryBuilder) Imports(uri string) []string {
	defer q.lock()()
	d := q.e.set.Get(uri)
	if d == nil {
		return nil
	}
	out := make([]string, 0, len(d.LinkedTo))
	for u := range d.LinkedTo {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// DocumentSymbols lists the definitions and declarations of uri in source
// order.
func (q *QueryBuilder) DocumentSymbols(uri string) []Symbol {
	defer q.lock()()
	d := q.e.set.Get(uri)
	if d == nil || d.Arena == nil {
		return nil
	}
	exported := exportKeys(d)
	var out []Symbol
	d.Declarations.Each(func(_ string, id term.ID) {
		out = append(out, symbolOf(d, id, store.RoleDeclaration, exported))
	})
	d.Definitions.Each(func(_ string, id term.ID) {
		out = append(out, symbolOf(d, id, store.RoleDefinition, exported))
	})
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Location, out[j].Location
		if a.StartLine != b.StartLine {
			return a.StartLine < b.StartLine
		}
		return a.StartCol < b.StartCol
	})
	return out
}

// Diagnostics returns the diagnostics last published for uri.
func (q *QueryBuilder) Diagnostics(uri string) []Diagnostic {
	defer q.lock()()
	d := q.e.set.Get(uri)
	if d == nil {
		return nil
	}
	return append([]Diagnostic(nil), d.Diagnostics...)
}

// Documents summarises every document of the workspace, sorted by URI.
func (q *QueryBuilder) Documents() []DocumentInfo {
	defer q.lock()()
	docs := q.e.set.Documents()
	out := make([]DocumentInfo, len(docs))
	for i, d := range docs {
		out[i] = DocumentInfo{
			URI:         d.URI,
			Module:      d.ModuleName(),
			Version:     d.Version,
			State:       d.State.String(),
			Errors:      diag.Count(d.Diagnostics, diag.Error),
			Warnings:    diag.Count(d.Diagnostics, diag.Warning),
			Diagnostics: len(d.Diagnostics),
		}
	}
	return out
}

// Modules returns every registered module name, sorted.
func (q *QueryBuilder) Modules() []string {
	defer q.lock()()
	return q.e.set.Registry().Modules()
}
