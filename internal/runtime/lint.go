package runtime

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/risor-io/risor/object"
	"go.uber.org/zap"
)

// Symbol is one table entry as lint scripts see it.
type Symbol struct {
	Name      string
	Arity     int
	Kind      string
	Qualifier string
	// Exported is set on definitions whose name/arity the module exports.
	Exported bool
	Line     int
	Col      int
	EndLine  int
	EndCol   int
}

// Key returns "name/arity".
func (s Symbol) Key() string {
	return s.Name + "/" + strconv.Itoa(s.Arity)
}

// Document is the read-only view of a validated document passed to lint
// scripts.
type Document struct {
	URI          string
	Module       string
	Definitions  []Symbol
	Declarations []Symbol
	References   []Symbol
	Imports      []string
}

// Finding is one problem reported by a lint script.
type Finding struct {
	Script   string
	Severity string
	Message  string
	Line     int
	Col      int
	EndLine  int
	EndCol   int
}

// Lint runs every script under LintDir against doc and returns the
// findings in script order. A failing script does not stop the others;
// its error is joined into the returned error.
func (r *Runtime) Lint(ctx context.Context, doc *Document) ([]Finding, error) {
	var (
		findings []Finding
		errs     []error
	)
	for _, script := range r.Scripts(LintDir) {
		if err := ctx.Err(); err != nil {
			return findings, err
		}
		var got []Finding
		if err := r.RunScript(ctx, script, documentGlobals(doc, script, &got)); err != nil {
			r.logger.Warn("lint script failed", zap.String("script", script), zap.String("uri", doc.URI), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		findings = append(findings, got...)
	}
	return findings, errors.Join(errs...)
}

// documentGlobals exposes doc as the globals uri, module, definitions,
// declarations, references and imports, plus a report builtin that
// appends to out.
func documentGlobals(doc *Document, script string, out *[]Finding) map[string]any {
	imports := make([]object.Object, 0, len(doc.Imports))
	for _, imp := range doc.Imports {
		imports = append(imports, object.NewString(imp))
	}
	return map[string]any{
		"uri":          object.NewString(doc.URI),
		"module":       object.NewString(doc.Module),
		"definitions":  symbolsToList(doc.Definitions),
		"declarations": symbolsToList(doc.Declarations),
		"references":   symbolsToList(doc.References),
		"imports":      object.NewList(imports),
		"report":       makeReportFn(script, out),
	}
}

func symbolsToList(syms []Symbol) *object.List {
	items := make([]object.Object, 0, len(syms))
	for _, s := range syms {
		items = append(items, object.NewMap(map[string]object.Object{
			"name":      object.NewString(s.Name),
			"arity":     object.NewInt(int64(s.Arity)),
			"key":       object.NewString(s.Key()),
			"kind":      object.NewString(s.Kind),
			"qualifier": object.NewString(s.Qualifier),
			"exported":  object.NewBool(s.Exported),
			"line":      object.NewInt(int64(s.Line)),
			"col":       object.NewInt(int64(s.Col)),
			"end_line":  object.NewInt(int64(s.EndLine)),
			"end_col":   object.NewInt(int64(s.EndCol)),
		}))
	}
	return object.NewList(items)
}

// makeReportFn creates the "report" host function.
//
// report(at, message[, severity])
//
// at is a symbol map (or any map with line, col, end_line, end_col).
// severity defaults to "warning".
func makeReportFn(script string, out *[]Finding) *object.Builtin {
	return object.NewBuiltin("report", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 2 || len(args) > 3 {
			return object.Errorf("report: expected 2 or 3 arguments, got %d", len(args))
		}
		at, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("report: %v", err)
		}
		msg, ok := args[1].(*object.String)
		if !ok {
			return object.Errorf("report: message must be a string, got %s", args[1].Type())
		}
		severity := "warning"
		if len(args) == 3 {
			s, ok := args[2].(*object.String)
			if !ok {
				return object.Errorf("report: severity must be a string, got %s", args[2].Type())
			}
			severity = s.Value()
		}
		*out = append(*out, Finding{
			Script:   script,
			Severity: severity,
			Message:  msg.Value(),
			Line:     getInt(at, "line"),
			Col:      getInt(at, "col"),
			EndLine:  getInt(at, "end_line"),
			EndCol:   getInt(at, "end_col"),
		})
		return object.Nil
	})
}

// --- Map extraction helpers ---

func extractMap(obj object.Object) (map[string]object.Object, error) {
	m, ok := obj.(*object.Map)
	if !ok {
		return nil, fmt.Errorf("expected map, got %s", obj.Type())
	}
	return m.Value(), nil
}

func getInt(m map[string]object.Object, key string) int {
	v, ok := m[key]
	if !ok {
		return 0
	}
	if i, ok := v.(*object.Int); ok {
		return int(i.Value())
	}
	if f, ok := v.(*object.Float); ok {
		return int(f.Value())
	}
	return 0
}

// logObject provides log.Info/Warn/Error methods for Risor scripts.
type logObject struct {
	logger *zap.Logger
}

func (l *logObject) Info(msg string) {
	l.logger.Info(msg)
}

func (l *logObject) Warn(msg string) {
	l.logger.Warn(msg)
}

func (l *logObject) Error(msg string) {
	l.logger.Error(msg)
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}
