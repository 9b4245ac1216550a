// Package visitor classifies the terms of a read document and builds its
// definition, reference, declaration and export tables.
//
// Visit walks every clause once. It labels terms in place (semantic kind,
// module qualifier, corrected arity) and records callee/called on each
// clause for call hierarchy. It never allocates terms, so IDs handed out
// by the reader stay valid.
package visitor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jward/mercanopy/internal/diag"
	"github.com/jward/mercanopy/internal/symbols"
	"github.com/jward/mercanopy/internal/term"
)

// Result is what the visitor learned about one document.
type Result struct {
	// Module is the term naming the document's module, or term.None.
	Module       term.ID
	Definitions  *symbols.Table
	References   *symbols.Table
	Declarations *symbols.Table
	Exports      *symbols.Table
	// Imports holds the module terms of import_module, use_module and
	// include_module declarations, in source order.
	Imports     []term.ID
	Diagnostics []diag.Diagnostic
}

type section uint8

const (
	sectionNone section = iota
	sectionInterface
	sectionImplementation
)

type visitor struct {
	arena   *term.Arena
	clause  *term.Clause
	section section
	res     *Result
}

// Visit walks clauses, which must have been read into arena.
func Visit(arena *term.Arena, clauses []*term.Clause) *Result {
	v := &visitor{
		arena: arena,
		res: &Result{
			Module:       term.None,
			Definitions:  symbols.New(),
			References:   symbols.New(),
			Declarations: symbols.New(),
			Exports:      symbols.New(),
		},
	}
	for _, c := range clauses {
		v.visitClause(c)
	}
	return v.res
}

// ModuleName returns the dotted name of a module term.
func ModuleName(a *term.Arena, id term.ID) string {
	if id == term.None {
		return ""
	}
	return strings.Join(a.QualifiedName(id), ".")
}

func (v *visitor) term(id term.ID) *term.Term { return v.arena.Get(id) }

func (v *visitor) label(id term.ID, s term.Semantic) { v.term(id).Semantic = s }

func (v *visitor) errorf(id term.ID, format string, args ...any) {
	v.res.Diagnostics = append(v.res.Diagnostics,
		diag.New(diag.SourceVisitor, v.term(id).Range(), fmt.Sprintf(format, args...)))
}

func (v *visitor) warnf(id term.ID, format string, args ...any) {
	d := diag.New(diag.SourceVisitor, v.term(id).Range(), fmt.Sprintf(format, args...))
	d.Severity = diag.Warning
	v.res.Diagnostics = append(v.res.Diagnostics, d)
}

// --- Table helpers ---

func (v *visitor) define(id term.ID) {
	v.res.Definitions.Add(v.term(id).Name, id)
}

func (v *visitor) declare(id term.ID) {
	v.res.Declarations.Add(v.term(id).Name, id)
	v.export(id)
}

func (v *visitor) export(id term.ID) {
	if v.section == sectionInterface {
		v.res.Exports.Add(v.term(id).Name, id)
	}
}

// refer records a reference that is not a call, such as a module name or
// a typeclass constraint.
func (v *visitor) refer(id term.ID) {
	v.res.References.Add(v.term(id).Name, id)
}

// call records a reference made from a clause body.
func (v *visitor) call(id term.ID) {
	v.refer(id)
	v.clause.Called = append(v.clause.Called, id)
}

func (v *visitor) callee(id term.ID) {
	if v.clause.Callee == term.None {
		v.clause.Callee = id
	}
}

// --- Clauses ---

func (v *visitor) visitClause(c *term.Clause) {
	if c.Root == term.None {
		return
	}
	v.clause = c
	root := c.Root
	t := v.term(root)
	switch {
	case t.Is(":-", 1):
		v.visitDecl(t.Args[0])
	case t.Is(":-", 2):
		body := t.Args[1]
		v.visitRuleHead(t.Args[0])
		v.visitBody(body)
	case t.Is("-->", 2):
		body := t.Args[1]
		if h := v.visitHead(t.Args[0], term.Pred); h != term.None {
			v.term(h).Arity += 2
		}
		v.visitDCGBody(body)
	case t.Is("?-", 1):
		v.visitBody(t.Args[0])
	case t.Is("=", 2):
		v.visitFuncHead(root)
	default:
		v.visitHead(root, term.Pred)
	}
}

func (v *visitor) visitRuleHead(id term.ID) {
	if v.term(id).Is("=", 2) {
		v.visitFuncHead(id)
		return
	}
	v.visitHead(id, term.Pred)
}

func (v *visitor) visitFuncHead(id term.ID) {
	t := v.term(id)
	ret := t.Args[1]
	v.visitHead(t.Args[0], term.Func)
	v.visitData(ret)
}

// visitHead registers the head of a clause as a definition and returns it,
// or returns term.None when the head cannot define anything.
func (v *visitor) visitHead(id term.ID, s term.Semantic) term.ID {
	id = v.qualify(id)
	t := v.term(id)
	switch {
	case t.Kind == term.Variable:
		v.errorf(id, "clause head must not be a variable")
		return term.None
	case t.IsLiteral():
		v.errorf(id, "clause head must not be a literal")
		return term.None
	case t.Name == "":
		return term.None
	}
	v.label(id, s)
	v.define(id)
	v.callee(id)
	for _, arg := range t.Args {
		v.labelPattern(arg)
	}
	return id
}

// labelPattern labels the variables and literals of a head argument.
// Head arguments are patterns, not references.
func (v *visitor) labelPattern(id term.ID) {
	switch dataFormOf(v.arena, id) {
	case dataVariable:
		v.label(id, term.Var)
	case dataLiteral:
		v.labelLiteral(id)
	case dataStateVar:
		v.label(v.term(id).Args[0], term.Var)
	default:
		for _, arg := range v.term(id).Args {
			v.labelPattern(arg)
		}
	}
}

func (v *visitor) labelLiteral(id term.ID) {
	switch v.term(id).Kind {
	case term.Integer:
		v.label(id, term.IntegerLit)
	case term.Float:
		v.label(id, term.FloatLit)
	case term.String:
		v.label(id, term.StringLit)
	}
}

// --- Bodies ---

func (v *visitor) visitBody(id term.ID) {
	t := v.term(id)
	switch bodyFormOf(t) {
	case bodyBoth:
		a, b := t.Args[0], t.Args[1]
		v.visitBody(a)
		v.visitBody(b)
	case bodyFirst:
		v.visitBody(t.Args[0])
	case bodySecond:
		a, b := t.Args[0], t.Args[1]
		v.labelPattern(a)
		v.visitBody(b)
	case bodyBuiltin:
		v.labelLiteral(id)
	case bodyUnify:
		a, b := t.Args[0], t.Args[1]
		v.label(id, term.Unification)
		v.visitData(a)
		v.visitData(b)
	case bodyHigherOrder:
		v.label(id, term.Apply)
		for _, arg := range t.Args {
			v.visitData(arg)
		}
	case bodyQualified:
		v.visitGoal(v.qualify(id), 0)
	case bodyVariable:
		v.label(id, term.Var)
	default:
		v.visitGoal(id, 0)
	}
}

// visitGoal records a call. extra is added to the arity for goals whose
// arguments are threaded implicitly.
func (v *visitor) visitGoal(id term.ID, extra int) {
	t := v.term(id)
	if t.Kind != term.Atom || t.Name == "" {
		return
	}
	t.Arity += extra
	v.label(id, term.Pred)
	v.call(id)
	for _, arg := range v.term(id).Args {
		v.visitData(arg)
	}
}

func (v *visitor) visitDCGBody(id term.ID) {
	t := v.term(id)
	switch {
	case t.Kind == term.String:
		v.labelLiteral(id)
		return
	case t.Is("[]", 0), t.Is("[|]", 2):
		v.visitData(id)
		return
	case t.Kind == term.Atom && t.Name == "{}":
		for _, arg := range t.Args {
			v.visitBody(arg)
		}
		return
	case t.Is("=", 1), t.Is(":=", 1):
		v.visitData(t.Args[0])
		return
	case t.Is("=^", 2):
		a, b := t.Args[0], t.Args[1]
		v.visitData(a)
		v.visitFields(b)
		return
	}

	switch bodyFormOf(t) {
	case bodyBoth:
		a, b := t.Args[0], t.Args[1]
		v.visitDCGBody(a)
		v.visitDCGBody(b)
	case bodyFirst:
		v.visitDCGBody(t.Args[0])
	case bodySecond:
		a, b := t.Args[0], t.Args[1]
		v.labelPattern(a)
		v.visitDCGBody(b)
	case bodyBuiltin:
		v.labelLiteral(id)
	case bodyVariable:
		v.label(id, term.Var)
	case bodyUnify, bodyHigherOrder:
		v.visitBody(id)
	case bodyQualified:
		v.visitGoal(v.qualify(id), 2)
	default:
		v.visitGoal(id, 2)
	}
}

// --- Data terms ---

func (v *visitor) visitData(id term.ID) {
	t := v.term(id)
	switch dataFormOf(v.arena, id) {
	case dataVariable:
		v.label(id, term.Var)
	case dataLiteral:
		v.labelLiteral(id)
	case dataStateVar:
		v.label(t.Args[0], term.Var)
	case dataConditional:
		v.label(id, term.Conditional)
		switch {
		case t.Is("then", 2):
			cond, then := t.Args[0], t.Args[1]
			v.visitBody(cond)
			v.visitData(then)
		default:
			for _, arg := range t.Args {
				v.visitData(arg)
			}
		}
	case dataRecord:
		rec, fields := t.Args[0], t.Args[1]
		v.label(id, term.Record)
		v.visitData(rec)
		v.visitFields(fields)
	case dataUpdate:
		a, b := t.Args[0], t.Args[1]
		v.label(id, term.Record)
		v.visitData(a)
		v.visitData(b)
	case dataUnification:
		a, b := t.Args[0], t.Args[1]
		v.label(id, term.Unification)
		v.visitData(a)
		v.visitData(b)
	case dataApply:
		v.label(id, term.Apply)
		for _, arg := range t.Args {
			v.visitData(arg)
		}
	case dataLambda:
		v.visitLambda(id)
	case dataExplicitType:
		val, typ := t.Args[0], t.Args[1]
		v.label(id, term.ExplicitType)
		v.visitData(val)
		v.labelType(typ)
	case dataQualified:
		v.visitFunctor(v.qualify(id))
	default:
		v.visitFunctor(id)
	}
}

// visitFunctor records a function or constructor application. Its kind is
// settled by the linker.
func (v *visitor) visitFunctor(id term.ID) {
	if t := v.term(id); t.Kind != term.Atom || t.Name == "" {
		return
	}
	v.call(id)
	for _, arg := range v.term(id).Args {
		v.visitData(arg)
	}
}

func (v *visitor) visitLambda(id term.ID) {
	v.label(id, term.Lambda)
	t := v.term(id)
	switch {
	case t.Is(":-", 2):
		head, body := t.Args[0], t.Args[1]
		v.labelPattern(head)
		v.visitBody(body)
	case t.Is("-->", 2):
		head, body := t.Args[0], t.Args[1]
		v.labelPattern(head)
		v.visitDCGBody(body)
	case t.Is("=", 2):
		head, ret := t.Args[0], t.Args[1]
		v.labelPattern(head)
		v.visitData(ret)
	default:
		v.labelPattern(id)
	}
}

// visitFields labels the field names of a record access chain X ^ f ^ g.
func (v *visitor) visitFields(id term.ID) {
	for {
		t := v.term(id)
		if !t.Is("^", 2) {
			v.label(v.qualify(id), term.Func)
			return
		}
		field, rest := t.Args[0], t.Args[1]
		v.label(v.qualify(field), term.Func)
		id = rest
	}
}

// --- Qualification ---

// qualify walks a '.' chain left to right. Every left segment is labelled
// as a module, recorded as a module reference and attached as the
// qualifier of the term to its right. It returns the rightmost term.
func (v *visitor) qualify(id term.ID) term.ID {
	t := v.term(id)
	if !t.Is(".", 2) {
		return id
	}
	left, right := t.Args[0], t.Args[1]
	q := v.qualify(left)
	if qt := v.term(q); qt.Kind != term.Atom || len(qt.Args) != 0 {
		v.errorf(q, "module qualifier must be a name, found %s/%d", qt.Name, len(qt.Args))
	}
	v.label(q, term.Module)
	v.refer(q)
	v.term(right).Qualifier = q
	return right
}

func (v *visitor) visitModuleName(id term.ID) term.ID {
	m := v.qualify(id)
	if t := v.term(m); t.Kind != term.Atom || len(t.Args) != 0 {
		v.errorf(m, "module name must be a name, found %s/%d", t.Name, len(t.Args))
	}
	v.label(m, term.Module)
	return m
}

// --- Declarations ---

func (v *visitor) visitDecl(id term.ID) {
	t := v.term(id)
	switch declFormOf(t) {
	case declModule:
		m := v.visitModuleName(t.Args[0])
		if v.res.Module == term.None {
			v.res.Module = m
			v.callee(m)
			return
		}
		v.errorf(m, "module %s is already declared as %s",
			ModuleName(v.arena, m), ModuleName(v.arena, v.res.Module))
	case declEndModule:
		m := v.visitModuleName(t.Args[0])
		if v.res.Module != term.None {
			if got, want := ModuleName(v.arena, m), ModuleName(v.arena, v.res.Module); got != want {
				v.errorf(m, "end_module %s does not match module %s", got, want)
			}
		}
	case declInterface:
		v.section = sectionInterface
	case declImplementation:
		v.section = sectionImplementation
	case declImport:
		for _, item := range v.list(t.Args[0], ",") {
			m := v.visitModuleName(item)
			v.refer(m)
			v.res.Imports = append(v.res.Imports, m)
		}
	case declType:
		v.visitTypeDecl(t.Args[0])
	case declSolver:
		if inner := v.term(t.Args[0]); inner.Is("type", 1) {
			v.visitTypeDecl(inner.Args[0])
		}
	case declPred:
		v.visitPredDecl(t.Args[0], term.Pred)
	case declFunc:
		v.visitPredDecl(t.Args[0], term.Func)
	case declInst:
		v.visitInstDecl(t.Args[0])
	case declMode:
		v.visitModeDecl(t.Args[0])
	case declTypeclass:
		v.visitTypeclass(t.Args[0])
	case declInstance:
		v.visitInstance(t.Args[0])
	case declPragma:
		v.visitPragma(t.Args[0])
	case declPromise:
		v.visitBody(t.Args[0])
	case declInitialise, declFinalise:
		v.visitNameArity(t.Args[0], term.Pred)
	case declMutable:
		if len(t.Args) == 5 {
			typ, init := t.Args[1], t.Args[2]
			v.labelType(typ)
			v.visitData(init)
		}
	case declConditional:
		decl, constraints := t.Args[0], t.Args[1]
		v.visitDecl(decl)
		v.visitConstraints(constraints)
	case declPurity:
		v.visitDecl(t.Args[0])
	case declQuantified:
		vars, decl := t.Args[0], t.Args[1]
		v.labelPattern(vars)
		v.visitDecl(decl)
	default:
		v.warnf(id, "unrecognised declaration %s/%d", t.Name, len(t.Args))
	}
}

func (v *visitor) visitTypeDecl(id term.ID) {
	t := v.term(id)
	switch {
	case t.Is("where", 2):
		v.visitTypeDecl(t.Args[0])
	case t.Is("--->", 2):
		name, ctors := t.Args[0], t.Args[1]
		v.visitTypeName(name)
		if c := v.term(ctors); c.Is("where", 2) {
			ctors = c.Args[0]
		}
		for _, ctor := range v.list(ctors, ";") {
			v.visitConstructor(ctor)
		}
	case t.Is("==", 2):
		name, rhs := t.Args[0], t.Args[1]
		v.visitTypeName(name)
		v.labelType(rhs)
	default:
		v.visitTypeName(id)
	}
}

func (v *visitor) visitTypeName(id term.ID) {
	if t := v.term(id); t.Is("=<", 2) {
		sub, super := t.Args[0], t.Args[1]
		v.labelType(super)
		id = sub
	}
	id = v.qualify(id)
	if v.term(id).Kind != term.Atom {
		v.errorf(id, "type name must be a name")
		return
	}
	v.label(id, term.Type)
	v.define(id)
	v.export(id)
	for _, param := range v.term(id).Args {
		v.labelType(param)
	}
}

func (v *visitor) visitConstructor(id term.ID) {
	if t := v.term(id); t.Is("some", 2) {
		vars, ctor := t.Args[0], t.Args[1]
		v.labelPattern(vars)
		id = ctor
	}
	if t := v.term(id); t.Is("=>", 2) {
		ctor, constraints := t.Args[0], t.Args[1]
		v.visitConstraints(constraints)
		id = ctor
	}
	id = v.qualify(id)
	if v.term(id).Kind != term.Atom {
		v.errorf(id, "constructor must be a name")
		return
	}
	v.label(id, term.Constructor)
	v.define(id)
	v.export(id)
	for _, arg := range v.term(id).Args {
		if f := v.term(arg); f.Is("::", 2) {
			field, typ := f.Args[0], f.Args[1]
			field = v.qualify(field)
			v.label(field, term.Func)
			v.define(field)
			v.export(field)
			v.labelType(typ)
			continue
		}
		v.labelType(arg)
	}
}

// labelType labels a type expression. Type names in signatures are not
// recorded as references.
func (v *visitor) labelType(id term.ID) {
	id = v.qualify(id)
	t := v.term(id)
	switch t.Kind {
	case term.Variable:
		v.label(id, term.Var)
	case term.Atom:
		v.label(id, term.Type)
		for _, arg := range t.Args {
			v.labelType(arg)
		}
	}
}

func (v *visitor) labelModes(id term.ID) {
	t := v.term(id)
	switch t.Kind {
	case term.Variable:
		v.label(id, term.Var)
	case term.Atom:
		v.label(id, term.Mode)
		for _, arg := range t.Args {
			v.labelModes(arg)
		}
	}
}

// visitPredDecl handles `pred` and `func` declarations, with or without
// modes and determinism.
func (v *visitor) visitPredDecl(id term.ID, s term.Semantic) term.ID {
	if t := v.term(id); t.Is("is", 2) {
		id = t.Args[0]
	}
	if t := v.term(id); s == term.Func && t.Is("=", 2) {
		fn, ret := t.Args[0], t.Args[1]
		v.visitSignatureArg(ret)
		id = fn
	}
	id = v.qualify(id)
	t := v.term(id)
	if t.Kind != term.Atom || t.Name == "" {
		v.errorf(id, "%s declaration must name a %s", s, s)
		return term.None
	}
	v.label(id, s)
	v.declare(id)
	v.callee(id)
	for _, arg := range v.term(id).Args {
		v.visitSignatureArg(arg)
	}
	return id
}

func (v *visitor) visitSignatureArg(id term.ID) {
	if t := v.term(id); t.Is("::", 2) {
		typ, mode := t.Args[0], t.Args[1]
		v.labelType(typ)
		v.labelModes(mode)
		return
	}
	v.labelType(id)
}

func (v *visitor) visitInstDecl(id term.ID) {
	t := v.term(id)
	var name, rhs term.ID = id, term.None
	if t.Is("==", 2) || t.Is("--->", 2) {
		name, rhs = t.Args[0], t.Args[1]
	}
	if n := v.term(name); n.Is("for", 2) {
		inst, typ := n.Args[0], n.Args[1]
		v.labelType(typ)
		name = inst
	}
	name = v.qualify(name)
	if v.term(name).Kind != term.Atom {
		v.errorf(name, "inst name must be a name")
		return
	}
	v.label(name, term.Inst)
	v.define(name)
	v.export(name)
	if rhs != term.None {
		v.labelInst(rhs)
	}
}

func (v *visitor) labelInst(id term.ID) {
	t := v.term(id)
	switch t.Kind {
	case term.Variable:
		v.label(id, term.Var)
	case term.Atom:
		v.label(id, term.Inst)
		for _, arg := range t.Args {
			v.labelInst(arg)
		}
	}
}

func (v *visitor) visitModeDecl(id term.ID) {
	t := v.term(id)
	if t.Is("==", 2) {
		name, rhs := t.Args[0], t.Args[1]
		name = v.qualify(name)
		v.label(name, term.Mode)
		v.define(name)
		v.export(name)
		v.labelModes(rhs)
		return
	}
	if t.Is("is", 2) {
		id = t.Args[0]
	}
	s := term.Pred
	if t := v.term(id); t.Is("=", 2) {
		fn, ret := t.Args[0], t.Args[1]
		v.labelModes(ret)
		id, s = fn, term.Func
	}
	id = v.qualify(id)
	if v.term(id).Kind != term.Atom {
		v.errorf(id, "mode declaration must name a predicate or function")
		return
	}
	v.label(id, s)
	v.declare(id)
	v.callee(id)
	for _, arg := range v.term(id).Args {
		v.labelModes(arg)
	}
}

func (v *visitor) visitTypeclass(id term.ID) {
	methods := term.None
	if t := v.term(id); t.Is("where", 2) {
		id, methods = t.Args[0], t.Args[1]
	}
	if t := v.term(id); t.Is("<=", 2) {
		class, supers := t.Args[0], t.Args[1]
		v.visitConstraints(supers)
		id = class
	}
	id = v.qualify(id)
	if v.term(id).Kind != term.Atom {
		v.errorf(id, "typeclass name must be a name")
		return
	}
	v.label(id, term.Typeclass)
	v.define(id)
	v.export(id)
	for _, param := range v.term(id).Args {
		v.labelType(param)
	}
	if methods == term.None {
		return
	}
	for _, m := range v.listElements(methods) {
		mt := v.term(m)
		switch declFormOf(mt) {
		case declPred:
			v.visitPredDecl(mt.Args[0], term.Pred)
		case declFunc:
			v.visitPredDecl(mt.Args[0], term.Func)
		case declMode:
			v.visitModeDecl(mt.Args[0])
		default:
			v.errorf(m, "typeclass method must be a pred, func or mode declaration")
		}
	}
}

func (v *visitor) visitInstance(id term.ID) {
	methods := term.None
	if t := v.term(id); t.Is("where", 2) {
		id, methods = t.Args[0], t.Args[1]
	}
	if t := v.term(id); t.Is("<=", 2) {
		inst, constraints := t.Args[0], t.Args[1]
		v.visitConstraints(constraints)
		id = inst
	}
	id = v.qualify(id)
	if t := v.term(id); t.Kind == term.Atom {
		v.label(id, term.Typeclass)
		v.refer(id)
		for _, arg := range t.Args {
			v.labelType(arg)
		}
	}
	if methods == term.None {
		return
	}
	for _, m := range v.listElements(methods) {
		mt := v.term(m)
		switch {
		case mt.Is("is", 2):
			method, impl := mt.Args[0], mt.Args[1]
			v.visitInstanceMethod(method, impl)
		case mt.Is(":-", 2):
			head, body := mt.Args[0], mt.Args[1]
			v.labelPattern(head)
			v.visitBody(body)
		}
	}
}

// visitInstanceMethod handles `pred(m/2) is impl`. The implementation is
// a reference to a predicate or function with the method's arity.
func (v *visitor) visitInstanceMethod(method, impl term.ID) {
	mt := v.term(method)
	if (mt.Name != "pred" && mt.Name != "func") || len(mt.Args) != 1 {
		v.errorf(method, "instance method must be pred(Name/Arity) or func(Name/Arity)")
		return
	}
	s := term.Pred
	if mt.Name == "func" {
		s = term.Func
	}
	name, arity, ok := v.nameArity(mt.Args[0])
	if !ok {
		v.errorf(method, "instance method must be pred(Name/Arity) or func(Name/Arity)")
		return
	}
	v.label(name, s)
	impl = v.qualify(impl)
	if v.term(impl).Kind != term.Atom {
		return
	}
	v.term(impl).Arity = arity
	v.label(impl, s)
	v.refer(impl)
}

func (v *visitor) visitConstraints(id term.ID) {
	for _, c := range v.list(id, ",") {
		c = v.qualify(c)
		t := v.term(c)
		if t.Kind != term.Atom {
			continue
		}
		v.label(c, term.Typeclass)
		v.refer(c)
		for _, arg := range t.Args {
			v.labelType(arg)
		}
	}
}

func (v *visitor) visitPragma(id term.ID) {
	t := v.term(id)
	if t.Kind != term.Atom {
		return
	}
	if t.Name == "foreign_proc" && len(t.Args) >= 2 {
		proc := t.Args[1]
		s := term.Pred
		if p := v.term(proc); p.Is("=", 2) {
			fn, ret := p.Args[0], p.Args[1]
			v.labelModes(ret)
			proc, s = fn, term.Func
		}
		proc = v.qualify(proc)
		if v.term(proc).Kind != term.Atom {
			v.errorf(proc, "foreign_proc must name a predicate or function")
			return
		}
		v.label(proc, s)
		v.define(proc)
		v.callee(proc)
		for _, arg := range v.term(proc).Args {
			v.labelPattern(arg)
		}
		return
	}
	for _, arg := range t.Args {
		if name, arity, ok := v.nameArity(arg); ok {
			v.referNameArity(name, arity, term.Unknown)
		}
	}
}

// visitNameArity records a Name/Arity (or Name//Arity for DCG) reference.
func (v *visitor) visitNameArity(id term.ID, s term.Semantic) {
	name, arity, ok := v.nameArity(id)
	if !ok {
		v.errorf(id, "expected Name/Arity")
		return
	}
	v.referNameArity(name, arity, s)
}

// referNameArity records name as a reference of the given arity. Any module
// qualifier was already referenced when nameArity resolved it.
func (v *visitor) referNameArity(name term.ID, arity int, s term.Semantic) {
	v.term(name).Arity = arity
	if s != term.Unknown {
		v.label(name, s)
	}
	v.refer(name)
}

func (v *visitor) nameArity(id term.ID) (term.ID, int, bool) {
	t := v.term(id)
	if !t.Is("/", 2) && !t.Is("//", 2) {
		return term.None, 0, false
	}
	nameID, arityID := t.Args[0], t.Args[1]
	at := v.term(arityID)
	if at.Kind != term.Integer {
		return term.None, 0, false
	}
	n, err := strconv.Atoi(at.Name)
	if err != nil {
		return term.None, 0, false
	}
	if t.Name == "//" {
		n += 2
	}
	nameID = v.qualify(nameID)
	if v.term(nameID).Kind != term.Atom {
		return term.None, 0, false
	}
	return nameID, n, true
}

// list flattens a right-nested chain of the given binary operator.
func (v *visitor) list(id term.ID, op string) []term.ID {
	var out []term.ID
	for {
		t := v.term(id)
		if !t.Is(op, 2) {
			return append(out, id)
		}
		out = append(out, t.Args[0])
		id = t.Args[1]
	}
}

// listElements returns the elements of a '[|]' list, ignoring its tail.
func (v *visitor) listElements(id term.ID) []term.ID {
	var out []term.ID
	for {
		t := v.term(id)
		if !t.Is("[|]", 2) {
			return out
		}
		out = append(out, t.Args[0])
		id = t.Args[1]
	}
}
