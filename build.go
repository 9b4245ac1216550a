package mercanopy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zeebo/xxh3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jward/mercanopy/internal/diag"
	"github.com/jward/mercanopy/internal/reader"
	"github.com/jward/mercanopy/internal/term"
	"github.com/jward/mercanopy/internal/token"
	"github.com/jward/mercanopy/internal/visitor"
	"github.com/jward/mercanopy/internal/workspace"
)

// Build brings every document up to Validated.
//
// Each stage runs over the whole batch before the next one starts. The
// context is checked between documents and between stages; when it is
// done, or when an edit arrives, Build stops and returns ErrCanceled.
// Load failures are collected and returned together once the rest of the
// batch is done; the failed documents are dropped from the workspace.
func (e *Engine) Build(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.overlay.setCancel(cancel)
	defer e.overlay.setCancel(nil)

	b := &build{
		e:   e,
		ctx: ctx,
		log: e.logger.Named("build"),
	}
	return b.run()
}

type build struct {
	e    *Engine
	ctx  context.Context
	log  *zap.Logger
	errs []error
	// visited lists the documents visited by this build, for import
	// discovery.
	visited []*workspace.Document
	// located holds URIs already pulled in through the module locator.
	located map[string]bool
}

func (b *build) run() error {
	start := time.Now()
	b.applyPending()

	for {
		if err := b.parse(); err != nil {
			return err
		}
		if err := b.visit(); err != nil {
			return err
		}
		if !b.discover() {
			break
		}
	}
	if err := b.link(); err != nil {
		return err
	}
	if err := b.validate(); err != nil {
		return err
	}

	b.log.Debug("build done",
		zap.Int("docs", b.e.set.Len()),
		zap.Int("errors", len(b.errs)),
		zap.Duration("elapsed", time.Since(start)),
	)
	if len(b.errs) > 0 {
		return fmt.Errorf("build had %d error(s): %w", len(b.errs), errors.Join(b.errs...))
	}
	return nil
}

// checkpoint is the safe point between documents and stages.
func (b *build) checkpoint() error {
	if b.ctx.Err() != nil {
		b.log.Debug("build canceled")
		return ErrCanceled
	}
	return nil
}

// stale reports whether d's text was superseded since it was read.
func (b *build) stale(d *workspace.Document) bool {
	if d.Version != b.e.overlay.version(d.URI) {
		b.log.Debug("discarding stale result", zap.String("uri", d.URI), zap.Int32("version", d.Version))
		return true
	}
	return false
}

func (b *build) inState(s workspace.State) []*workspace.Document {
	var out []*workspace.Document
	for _, d := range b.e.set.Documents() {
		if d.State == s {
			out = append(out, d)
		}
	}
	return out
}

// applyPending turns recorded edits into state changes.
func (b *build) applyPending() {
	uris, pending := b.e.overlay.drain()
	for _, uri := range uris {
		if pending[uri] {
			b.remove(uri)
			continue
		}
		d, _ := b.e.set.GetOrCreate(uri)
		b.invalidate(d)
	}
	if len(uris) > 0 {
		b.log.Debug("applied edits", zap.Int("docs", len(uris)))
	}
}

// invalidate sends d back to Changed and its importers back to Visited,
// together with the documents declaring the same module name.
func (b *build) invalidate(d *workspace.Document) {
	reg := b.e.set.Registry()
	rivals := reg.Named(d.ModulePath())
	reg.Remove(d)
	d.Reset()
	b.e.notify(d)
	for _, uri := range b.e.set.Importers(d) {
		b.relink(b.e.set.Get(uri))
	}
	b.relinkAll(rivals, d)
}

// relinkAll relinks docs, skipping except.
func (b *build) relinkAll(docs []*workspace.Document, except *workspace.Document) {
	for _, other := range docs {
		if other != except {
			b.relink(other)
		}
	}
}

// relink drops d to Visited so the link stage runs for it again.
func (b *build) relink(d *workspace.Document) {
	if d == nil || d.State <= workspace.Visited {
		return
	}
	d.Unlink()
	d.State = workspace.Visited
	b.e.notify(d)
}

func (b *build) remove(uri string) {
	d := b.e.set.Get(uri)
	if d == nil {
		return
	}
	rivals := b.e.set.Registry().Named(d.ModulePath())
	for _, importer := range b.e.set.Delete(uri) {
		b.relink(b.e.set.Get(importer))
	}
	b.relinkAll(rivals, d)
	b.e.overlay.forget(uri)
	if b.e.store != nil {
		if err := b.e.store.DeleteFile(uri); err != nil {
			b.errs = append(b.errs, fmt.Errorf("delete %s: %w", uri, err))
		}
	}
	b.e.publish(uri, d.Version, nil)
	b.log.Debug("document removed", zap.String("uri", uri))
}

type loaded struct {
	text    string
	version int32
	err     error
}

// fetch returns the text of uri together with the version it belongs to.
// The version is read first so that an edit landing during the load makes
// the result stale.
func (e *Engine) fetch(ctx context.Context, uri string) loaded {
	if text, version, ok := e.overlay.buffer(uri); ok {
		return loaded{text: text, version: version}
	}
	version := e.overlay.version(uri)
	text, err := e.loader.Load(ctx, uri)
	return loaded{text: text, version: version, err: err}
}

func (b *build) parse() error {
	if err := b.checkpoint(); err != nil {
		return err
	}
	docs := b.inState(workspace.Changed)
	if len(docs) == 0 {
		return nil
	}
	b.log.Debug("parse stage", zap.Int("docs", len(docs)))

	texts := make([]loaded, len(docs))
	var g errgroup.Group
	g.SetLimit(b.e.prefetch)
	for i, d := range docs {
		g.Go(func() error {
			texts[i] = b.e.fetch(b.ctx, d.URI)
			return nil
		})
	}
	g.Wait()

	for i, d := range docs {
		if err := b.checkpoint(); err != nil {
			return err
		}
		l := texts[i]
		if l.err != nil {
			b.log.Warn("load failed", zap.String("uri", d.URI), zap.Error(l.err))
			b.errs = append(b.errs, fmt.Errorf("load %s: %w", d.URI, l.err))
			b.remove(d.URI)
			continue
		}
		if l.version != b.e.overlay.version(d.URI) {
			b.log.Debug("discarding stale text", zap.String("uri", d.URI), zap.Int32("version", l.version))
			continue
		}
		d.ApplyParse(reader.ReadDocument(l.text, b.e.table))
		d.Text = l.text
		d.Hash = xxh3.HashString(l.text)
		d.Version = l.version
		b.e.overlay.remember(d.URI, l.version, d.Hash)
		b.e.notify(d)
	}
	return nil
}

func (b *build) visit() error {
	if err := b.checkpoint(); err != nil {
		return err
	}
	docs := b.inState(workspace.Parsed)
	if len(docs) > 0 {
		b.log.Debug("visit stage", zap.Int("docs", len(docs)))
	}
	reg := b.e.set.Registry()
	for _, d := range docs {
		if err := b.checkpoint(); err != nil {
			return err
		}
		res := visitor.Visit(d.Arena, d.Clauses)
		if b.stale(d) {
			continue
		}
		d.ApplyVisit(res)
		// Ownership of the name may move to d, so the others link again.
		b.relinkAll(reg.Register(d), d)
		b.e.notify(d)
		b.visited = append(b.visited, d)

		if path := d.ModulePath(); path != nil {
			for _, w := range b.e.set.WaitingFor(path) {
				if w != d {
					b.relink(w)
				}
			}
		}
	}
	return nil
}

// discover asks the module locator for imports the registry cannot
// resolve and adds the documents it finds. It reports whether any were
// added.
func (b *build) discover() bool {
	if b.e.locator == nil {
		return false
	}
	if b.located == nil {
		b.located = make(map[string]bool)
	}
	reg := b.e.set.Registry()
	found := false
	for _, d := range b.visited {
		if b.e.set.Get(d.URI) != d || d.Arena == nil {
			continue
		}
		for _, id := range d.Imports {
			path := d.Arena.QualifiedName(id)
			if reg.Lookup(path) != nil {
				continue
			}
			uri, ok := b.e.locator(strings.Join(path, "."))
			if !ok || b.located[uri] || b.e.set.Get(uri) != nil {
				continue
			}
			b.located[uri] = true
			b.e.set.GetOrCreate(uri)
			b.log.Debug("located import", zap.String("module", strings.Join(path, ".")), zap.String("uri", uri))
			found = true
		}
	}
	b.visited = nil
	return found
}

func (b *build) link() error {
	if err := b.checkpoint(); err != nil {
		return err
	}
	docs := b.inState(workspace.Visited)
	if len(docs) > 0 {
		b.log.Debug("link stage", zap.Int("docs", len(docs)))
	}
	for _, d := range docs {
		if err := b.checkpoint(); err != nil {
			return err
		}
		res := b.e.linker.Link(d)
		if b.stale(d) {
			continue
		}
		b.e.set.RemoveEdges(d)
		d.ApplyLink(res)
		b.e.set.AddEdges(d, res.Targets)
		b.e.notify(d)
	}
	return nil
}

func (b *build) validate() error {
	if err := b.checkpoint(); err != nil {
		return err
	}
	docs := b.inState(workspace.Linked)
	if len(docs) > 0 {
		b.log.Debug("validate stage", zap.Int("docs", len(docs)))
	}
	for _, d := range docs {
		if err := b.checkpoint(); err != nil {
			return err
		}
		findings, err := b.lint(d)
		if err != nil {
			if cerr := b.checkpoint(); cerr != nil {
				return cerr
			}
			b.errs = append(b.errs, fmt.Errorf("lint %s: %w", d.URI, err))
		}
		if b.stale(d) {
			continue
		}
		d.LintDiagnostics = findings
		d.Diagnostics = d.CollectDiagnostics()
		d.State = workspace.Validated
		b.e.notify(d)

		if b.e.store != nil {
			if err := b.e.persist(d); err != nil {
				b.log.Warn("persist failed", zap.String("uri", d.URI), zap.Error(err))
				b.errs = append(b.errs, err)
			}
		}
		b.e.publish(d.URI, d.Version, d.Diagnostics)
	}
	return nil
}

// lint runs the lint scripts over d. Findings from scripts that succeeded
// are returned even when others failed.
func (b *build) lint(d *workspace.Document) ([]diag.Diagnostic, error) {
	if b.e.lint == nil {
		return nil, nil
	}
	findings, err := b.e.lint.Lint(b.ctx, lintDocument(d))
	out := make([]diag.Diagnostic, 0, len(findings))
	for _, f := range findings {
		out = append(out, diag.Diagnostic{
			Range: token.Range{
				Start: token.Pos{Line: f.Line, Col: f.Col},
				End:   token.Pos{Line: f.EndLine, Col: f.EndCol},
			},
			Severity: diag.ParseSeverity(f.Severity),
			Source:   diag.SourceLint,
			Message:  f.Message,
		})
	}
	return out, err
}

func (e *Engine) notify(d *workspace.Document) {
	if e.onState != nil {
		e.onState(d.URI, d.State)
	}
}

func (e *Engine) publish(uri string, version int32, ds []diag.Diagnostic) {
	if e.onDiags != nil {
		e.onDiags(uri, version, ds)
	}
}

// exportKeys returns the name/arity keys of everything d exports.
func exportKeys(d *workspace.Document) map[string]bool {
	keys := make(map[string]bool, d.Exports.Len())
	d.Exports.Each(func(_ string, id term.ID) {
		keys[symbolKey(d.Term(id))] = true
	})
	return keys
}

func symbolKey(t *term.Term) string {
	return fmt.Sprintf("%s/%d", t.Name, t.Arity)
}
