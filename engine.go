package mercanopy

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"sync"

	"github.com/zeebo/xxh3"
	"go.uber.org/zap"

	"github.com/jward/mercanopy/internal/discover"
	"github.com/jward/mercanopy/internal/ops"
	"github.com/jward/mercanopy/internal/runtime"
	"github.com/jward/mercanopy/internal/store"
	"github.com/jward/mercanopy/internal/workspace"
	"github.com/jward/mercanopy/scripts"
)

// ErrCanceled is returned by Build when the build was interrupted, either
// through its context or by a newer edit. Documents keep whatever stage
// they reached and the next build carries on from there.
var ErrCanceled = fmt.Errorf("mercanopy: build canceled: %w", context.Canceled)

// Engine owns a workspace of documents and the staged build that keeps
// them analysed.
//
// Build and every query hold the pipeline lock, so tables are only ever
// touched by one goroutine at a time. The document edit methods and Update only
// record the edit under a separate lock and interrupt the running build.
type Engine struct {
	mu     sync.Mutex
	set    *workspace.Set
	linker *workspace.Linker
	table  *ops.Table

	overlay *overlay

	loader   Loader
	locator  ModuleLocator
	prefetch int

	dbPath string
	store  *store.Store

	lintEnabled bool
	scriptsDir  string
	scriptsFS   fs.FS
	lint        *runtime.Runtime

	logger  *zap.Logger
	onState func(uri string, s State)
	onDiags func(uri string, version int32, ds []Diagnostic)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithStateListener registers fn to observe every state transition.
//
// fn runs synchronously on the building goroutine while the engine lock is
// held. It must not call back into the Engine (Build, Update, Query, URIs or
// any other locked method) or it deadlocks; hand work off to another
// goroutine instead. OpenDocument, ChangeDocument and CloseDocument only record
// edits and are safe to call.
func WithStateListener(fn func(uri string, s State)) Option {
	return func(e *Engine) {
		e.onState = fn
	}
}

// WithDiagnosticsHandler registers fn to receive each document's
// diagnostics whenever it becomes Validated, and nil when it is deleted.
// Like the state listener, fn runs under the engine lock and must not call
// back into the Engine's locked methods.
func WithDiagnosticsHandler(fn func(uri string, version int32, ds []Diagnostic)) Option {
	return func(e *Engine) {
		e.onDiags = fn
	}
}

// WithDB persists every validated document to a SQLite database at path.
func WithDB(path string) Option {
	return func(e *Engine) {
		e.dbPath = path
	}
}

// WithLoader replaces the default FileLoader.
func WithLoader(l Loader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithModuleLocator lets a build pull in documents for imported modules
// nobody has told it about yet.
func WithModuleLocator(fn ModuleLocator) Option {
	return func(e *Engine) {
		e.locator = fn
	}
}

// WithOpsTable replaces the Mercury operator table.
func WithOpsTable(t *ops.Table) Option {
	return func(e *Engine) {
		e.table = t
	}
}

// WithPrefetch bounds how many documents are loaded concurrently.
func WithPrefetch(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.prefetch = n
		}
	}
}

// WithLint turns lint scripts on or off. They are on by default.
func WithLint(enabled bool) Option {
	return func(e *Engine) {
		e.lintEnabled = enabled
	}
}

// WithScriptsFS loads lint scripts from fsys instead of the embedded set.
func WithScriptsFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.scriptsFS = fsys
	}
}

// WithScriptsDir loads lint scripts from dir on disk.
func WithScriptsDir(dir string) Option {
	return func(e *Engine) {
		e.scriptsDir = dir
		e.scriptsFS = nil
	}
}

// New creates an Engine with an empty workspace.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		set:         workspace.NewSet(),
		overlay:     newOverlay(),
		loader:      FileLoader{},
		prefetch:    8,
		lintEnabled: true,
		scriptsFS:   scripts.FS,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.linker = workspace.NewLinker(e.set.Registry(), e.table)

	if e.lintEnabled {
		rtOpts := []runtime.RuntimeOption{runtime.WithRuntimeLogger(e.logger.Named("lint"))}
		if e.scriptsFS != nil {
			rtOpts = append(rtOpts, runtime.WithRuntimeFS(e.scriptsFS))
		}
		e.lint = runtime.NewRuntime(e.scriptsDir, rtOpts...)
	}

	if e.dbPath != "" {
		s, err := store.NewStore(e.dbPath)
		if err != nil {
			return nil, fmt.Errorf("mercanopy: create store: %w", err)
		}
		if err := s.Migrate(); err != nil {
			s.Close()
			return nil, fmt.Errorf("mercanopy: migrate: %w", err)
		}
		e.store = s
	}
	return e, nil
}

// Close releases the Engine's database, if any.
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

// Store returns the underlying Store, or nil without WithDB.
func (e *Engine) Store() *Store {
	return e.store
}

// Query returns a QueryBuilder over the current workspace.
func (e *Engine) Query() *QueryBuilder {
	return &QueryBuilder{e: e}
}

// OpenDocument records an editor buffer for uri. Until CloseDocument,
// builds read uri from the buffer instead of the loader.
func (e *Engine) OpenDocument(uri string, version int32, text string) {
	e.ChangeDocument(uri, version, text)
}

// ChangeDocument replaces the buffer text of uri. Text identical to what was last
// seen for uri does not invalidate anything.
func (e *Engine) ChangeDocument(uri string, version int32, text string) {
	if e.overlay.set(uri, version, text) {
		e.logger.Debug("document changed", zap.String("uri", uri), zap.Int32("version", version))
	}
}

// CloseDocument drops the editor buffer for uri. The next build reloads it.
func (e *Engine) CloseDocument(uri string) {
	e.overlay.close(uri)
}

// Update records files changed or deleted outside the editor and builds.
// Changes to documents open in the editor are ignored until CloseDocument.
func (e *Engine) Update(ctx context.Context, changed, deleted []string) error {
	e.overlay.mark(changed, deleted)
	return e.Build(ctx)
}

// IndexDirectory adds every source file under root to the workspace and
// builds it.
func (e *Engine) IndexDirectory(ctx context.Context, root string, opts discover.Options) error {
	paths, err := discover.Files(root, opts)
	if err != nil {
		return fmt.Errorf("mercanopy: discover: %w", err)
	}
	uris := make([]string, len(paths))
	for i, p := range paths {
		uris[i] = PathToURI(p)
	}
	return e.Update(ctx, uris, nil)
}

// URIs returns the URI of every document in the workspace, sorted.
func (e *Engine) URIs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	docs := e.set.Documents()
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.URI
	}
	return out
}

// overlay holds editor buffers, version counters and the edits not yet
// seen by a build.
type overlay struct {
	mu       sync.Mutex
	texts    map[string]string
	hashes   map[string]uint64
	versions map[string]int32
	// pending maps a URI to true when it was deleted.
	pending map[string]bool
	cancel  context.CancelFunc
}

func newOverlay() *overlay {
	return &overlay{
		texts:    make(map[string]string),
		hashes:   make(map[string]uint64),
		versions: make(map[string]int32),
		pending:  make(map[string]bool),
	}
}

// bump advances the version of uri. Callers hold o.mu.
func (o *overlay) bump(uri string, version int32) {
	if cur := o.versions[uri]; version <= cur {
		version = cur + 1
	}
	o.versions[uri] = version
}

func (o *overlay) interrupt() {
	if o.cancel != nil {
		o.cancel()
	}
}

// set stores text for uri and reports whether it invalidated anything.
func (o *overlay) set(uri string, version int32, text string) bool {
	h := xxh3.HashString(text)
	o.mu.Lock()
	defer o.mu.Unlock()
	o.texts[uri] = text
	if prev, ok := o.hashes[uri]; ok && prev == h {
		return false
	}
	o.hashes[uri] = h
	o.bump(uri, version)
	o.pending[uri] = false
	o.interrupt()
	return true
}

func (o *overlay) close(uri string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.texts[uri]; !ok {
		return
	}
	delete(o.texts, uri)
	delete(o.hashes, uri)
	o.bump(uri, 0)
	o.pending[uri] = false
	o.interrupt()
}

func (o *overlay) mark(changed, deleted []string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, uri := range changed {
		if _, open := o.texts[uri]; open {
			continue
		}
		delete(o.hashes, uri)
		o.bump(uri, 0)
		o.pending[uri] = false
	}
	for _, uri := range deleted {
		delete(o.texts, uri)
		delete(o.hashes, uri)
		o.bump(uri, 0)
		o.pending[uri] = true
	}
	if len(changed)+len(deleted) > 0 {
		o.interrupt()
	}
}

// drain returns the pending edits in URI order and forgets them.
func (o *overlay) drain() ([]string, map[string]bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	pending := o.pending
	o.pending = make(map[string]bool)
	uris := make([]string, 0, len(pending))
	for uri := range pending {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris, pending
}

func (o *overlay) version(uri string) int32 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.versions[uri]
}

// buffer returns the editor text of uri with the current version.
func (o *overlay) buffer(uri string) (text string, version int32, ok bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	text, ok = o.texts[uri]
	return text, o.versions[uri], ok
}

// remember records the hash of text loaded for version, so an editor
// opening the same text is a no-op.
func (o *overlay) remember(uri string, version int32, hash uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.versions[uri] == version {
		o.hashes[uri] = hash
	}
}

func (o *overlay) forget(uri string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.texts, uri)
	delete(o.hashes, uri)
}

func (o *overlay) setCancel(cancel context.CancelFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cancel = cancel
}
