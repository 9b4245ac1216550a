package ops

func in(l, r Assoc, p int) []Class { return []Class{InfixOp(l, r, p)} }
func pre(r Assoc, p int) []Class   { return []Class{PrefixOp(r, p)} }
func bin(p int) []Class            { return []Class{BinaryPrefixOp(X, Y, p)} }

var mercury = map[string][]Class{
	"+":  {InfixOp(Y, X, 500), PrefixOp(X, 500)},
	"-":  {InfixOp(Y, X, 500), PrefixOp(X, 200)},
	":-": {InfixOp(X, X, 1200), PrefixOp(X, 1200)},
	"^":  {InfixOp(X, Y, 99), PrefixOp(X, 100)},

	// ISO Prolog
	",":    in(X, Y, 1000),
	"*":    in(Y, X, 400),
	"**":   in(X, Y, 200),
	"-->":  in(X, X, 1200),
	"->":   in(X, Y, 1050),
	"/":    in(Y, X, 400),
	"//":   in(Y, X, 400),
	"/\\":  in(Y, X, 500),
	";":    in(X, Y, 1100),
	"<":    in(X, X, 700),
	"<<":   in(Y, X, 400),
	"=":    in(X, X, 700),
	"=..":  in(X, X, 700),
	"=:=":  in(X, X, 700),
	"=<":   in(X, X, 700),
	"==":   in(X, X, 700),
	"=\\=": in(X, X, 700),
	">":    in(X, X, 700),
	">=":   in(X, X, 700),
	">>":   in(Y, X, 400),
	"?-":   pre(X, 1200),
	"@<":   in(X, X, 700),
	"@=<":  in(X, X, 700),
	"@>":   in(X, X, 700),
	"@>=":  in(X, X, 700),
	"\\":   pre(X, 200),
	"\\+":  pre(Y, 900),
	"\\/":  in(Y, X, 500),
	"\\=":  in(X, X, 700),
	"\\==": in(X, X, 700),
	"div":  in(Y, X, 400),
	"is":   in(X, X, 701),
	"mod":  in(X, X, 400),
	"rem":  in(X, X, 400),

	// Goedel and NU-Prolog
	"~":         pre(Y, 900),
	"~=":        in(X, X, 700),
	"and":       in(X, Y, 720),
	"or":        in(X, Y, 740),
	"rule":      pre(X, 1199),
	"when":      in(X, X, 900),
	"where":     in(X, X, 1175),
	"<=":        in(X, Y, 920),
	"<=>":       in(X, Y, 920),
	"=>":        in(X, Y, 920),
	"all":       bin(950),
	"some":      bin(950),
	"if":        pre(X, 1160),
	"then":      in(X, X, 1150),
	"else":      in(X, Y, 1170),
	"catch":     in(X, Y, 1180),
	"catch_any": in(X, Y, 1190),
	"not":       pre(Y, 900),
	"pred":      pre(X, 800),

	// Mercury
	"!":              pre(X, 40),
	"!.":             pre(X, 40),
	"!:":             pre(X, 40),
	"&":              in(X, Y, 1025),
	"++":             in(X, Y, 500),
	"--":             in(Y, X, 500),
	"--->":           in(X, Y, 1179),
	".":              in(Y, X, 10),
	"..":             in(X, X, 550),
	":":              in(Y, X, 120),
	"::":             in(X, X, 1175),
	":=":             in(X, X, 650),
	"==>":            in(X, X, 1175),
	"=^":             in(X, X, 650),
	"@":              in(X, X, 90),
	"end_module":     pre(X, 1199),
	"event":          pre(X, 100),
	"finalise":       pre(X, 1199),
	"finalize":       pre(X, 1199),
	"for":            in(X, X, 500),
	"func":           pre(X, 800),
	"import_module":  pre(X, 1199),
	"impure":         pre(Y, 800),
	"include_module": pre(X, 1199),
	"initialise":     pre(X, 1199),
	"initialize":     pre(X, 1199),
	"inst":           pre(X, 1199),
	"instance":       pre(X, 1199),
	"mode":           pre(X, 1199),
	"module":         pre(X, 1199),
	"or_else":        in(X, Y, 1100),
	"pragma":         pre(X, 1199),
	"promise":        pre(X, 1199),
	"semipure":       pre(Y, 800),
	"solver":         pre(Y, 1181),
	"type":           pre(X, 1180),
	"typeclass":      pre(X, 1199),
	"use_module":     pre(X, 1199),

	"arbitrary":                        bin(950),
	"disable_warning":                  bin(950),
	"disable_warnings":                 bin(950),
	"promise_equivalent_solutions":     bin(950),
	"promise_equivalent_solution_sets": bin(950),
	"require_complete_switch":          bin(950),
	"require_switch_arms_det":          bin(950),
	"require_switch_arms_semidet":      bin(950),
	"require_switch_arms_multi":        bin(950),
	"require_switch_arms_nondet":       bin(950),
	"require_switch_arms_cc_multi":     bin(950),
	"require_switch_arms_cc_nondet":    bin(950),
	"require_switch_arms_erroneous":    bin(950),
	"require_switch_arms_failure":      bin(950),
	"trace":                            bin(950),
	"atomic":                           bin(950),
	"try":                              bin(950),

	"promise_exclusive":            pre(Y, 950),
	"promise_exhaustive":           pre(Y, 950),
	"promise_exclusive_exhaustive": pre(Y, 950),
	"promise_pure":                 pre(X, 950),
	"promise_semipure":             pre(X, 950),
	"promise_impure":               pre(X, 950),
	"require_det":                  pre(X, 950),
	"require_semidet":              pre(X, 950),
	"require_multi":                pre(X, 950),
	"require_nondet":               pre(X, 950),
	"require_cc_multi":             pre(X, 950),
	"require_cc_nondet":            pre(X, 950),
	"require_erroneous":            pre(X, 950),
	"require_failure":              pre(X, 950),
}
