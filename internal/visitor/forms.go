package visitor

import "github.com/jward/mercanopy/internal/term"

// declForm enumerates the declarations that can follow ':-'.
type declForm uint8

const (
	declUnknown declForm = iota
	declModule
	declEndModule
	declInterface
	declImplementation
	declImport
	declType
	declSolver
	declPred
	declFunc
	declInst
	declMode
	declTypeclass
	declInstance
	declPragma
	declPromise
	declInitialise
	declFinalise
	declMutable
	declConditional
	declPurity
	declQuantified
)

func declFormOf(t *term.Term) declForm {
	if t.Kind != term.Atom {
		return declUnknown
	}
	switch len(t.Args) {
	case 0:
		switch t.Name {
		case "interface":
			return declInterface
		case "implementation":
			return declImplementation
		}
	case 1:
		switch t.Name {
		case "module":
			return declModule
		case "end_module":
			return declEndModule
		case "import_module", "use_module", "include_module":
			return declImport
		case "type":
			return declType
		case "solver":
			return declSolver
		case "pred":
			return declPred
		case "func":
			return declFunc
		case "inst":
			return declInst
		case "mode":
			return declMode
		case "typeclass":
			return declTypeclass
		case "instance":
			return declInstance
		case "pragma":
			return declPragma
		case "promise":
			return declPromise
		case "initialise", "initialize":
			return declInitialise
		case "finalise", "finalize":
			return declFinalise
		case "mutable":
			return declMutable
		case "impure", "semipure":
			return declPurity
		}
	case 2:
		switch t.Name {
		case "<=":
			return declConditional
		case "some", "all":
			return declQuantified
		}
	case 5:
		if t.Name == "mutable" {
			return declMutable
		}
	}
	return declUnknown
}

// bodyForm enumerates the goal connectives of a rule body. Anything else
// is a call.
type bodyForm uint8

const (
	bodyCall bodyForm = iota
	bodyBoth          // visit both arguments as goals
	bodyFirst         // visit the only argument as a goal
	bodySecond        // skip the first argument, visit the second as a goal
	bodyBuiltin       // true, fail
	bodyUnify         // both arguments are data
	bodyHigherOrder   // call/N and apply: every argument is data
	bodyQualified     // module.goal
	bodyVariable      // a variable used as a goal
)

func bodyFormOf(t *term.Term) bodyForm {
	switch t.Kind {
	case term.Variable:
		return bodyVariable
	case term.Atom:
	default:
		return bodyBuiltin
	}
	switch len(t.Args) {
	case 0:
		switch t.Name {
		case "true", "fail":
			return bodyBuiltin
		}
	case 1:
		switch t.Name {
		case "not", "\\+", "if", "event",
			"promise_pure", "promise_semipure", "promise_impure",
			"impure", "semipure",
			"require_det", "require_semidet", "require_multi", "require_nondet",
			"require_cc_multi", "require_cc_nondet", "require_erroneous", "require_failure":
			return bodyFirst
		}
	case 2:
		switch t.Name {
		case ",", "&", ";", "->", "then", "else", "=>", "<=", "<=>",
			"catch", "catch_any", "try", "or_else":
			return bodyBoth
		case "some", "all", "arbitrary", "atomic",
			"promise_equivalent_solutions", "promise_equivalent_solution_sets",
			"require_complete_switch",
			"require_switch_arms_det", "require_switch_arms_semidet",
			"require_switch_arms_multi", "require_switch_arms_nondet",
			"require_switch_arms_cc_multi", "require_switch_arms_cc_nondet",
			"require_switch_arms_erroneous", "require_switch_arms_failure",
			"disable_warning", "disable_warnings", "trace":
			return bodySecond
		case "=", "\\=":
			return bodyUnify
		case ".":
			return bodyQualified
		}
	}
	if (t.Name == "call" || t.Name == "apply") && len(t.Args) > 0 {
		return bodyHigherOrder
	}
	return bodyCall
}

// dataForm enumerates the special data terms; everything else is a
// function or constructor application.
type dataForm uint8

const (
	dataFunctor dataForm = iota
	dataVariable
	dataLiteral
	dataStateVar
	dataConditional
	dataRecord
	dataUpdate
	dataUnification
	dataApply
	dataLambda
	dataExplicitType
	dataQualified
)

func dataFormOf(a *term.Arena, id term.ID) dataForm {
	t := a.Get(id)
	switch t.Kind {
	case term.Variable:
		return dataVariable
	case term.Atom:
	default:
		return dataLiteral
	}
	switch len(t.Args) {
	case 1:
		switch t.Name {
		case "!", "!.", "!:":
			if a.Get(t.Args[0]).Kind == term.Variable {
				return dataStateVar
			}
		case "if":
			return dataConditional
		}
	case 2:
		switch t.Name {
		case "else", ";", "then":
			return dataConditional
		case "^":
			return dataRecord
		case ":=":
			return dataUpdate
		case "@":
			return dataUnification
		case ":-", "-->":
			return dataLambda
		case ":", "with_type":
			return dataExplicitType
		case ".":
			return dataQualified
		case "is", "=":
			if isLambdaHead(a, t.Args[0]) {
				return dataLambda
			}
		}
	}
	if t.Name == "apply" && len(t.Args) > 0 {
		return dataApply
	}
	if isLambdaHead(a, id) {
		return dataLambda
	}
	return dataFunctor
}

// isLambdaHead matches pred(...) and func(...) in data position, with or
// without a determinism annotation.
func isLambdaHead(a *term.Arena, id term.ID) bool {
	t := a.Get(id)
	if t.Is("is", 2) {
		t = a.Get(t.Args[0])
	}
	return t.Kind == term.Atom && len(t.Args) > 0 && (t.Name == "pred" || t.Name == "func")
}
