package store

import "time"

// File is one persisted document.
type File struct {
	ID          int64
	URI         string
	Module      string
	Hash        string
	Version     int32
	LineCount   int
	LastIndexed time.Time
}

// Symbol is a definition or declaration. TermID is the term's handle in
// the document arena at the time it was stored; resolved references point
// at symbols through (URI, TermID).
type Symbol struct {
	ID        int64
	FileID    int64
	TermID    int32
	Name      string
	Arity     int
	Kind      string
	Role      string // "definition" or "declaration"
	Exported  bool
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// Symbol roles.
const (
	RoleDefinition  = "definition"
	RoleDeclaration = "declaration"
)

type Reference struct {
	ID        int64
	FileID    int64
	TermID    int32
	Name      string
	Arity     int
	Kind      string
	Qualifier string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

type Import struct {
	ID          int64
	FileID      int64
	Source      string
	ResolvedURI *string
	Line        int
	Col         int
}

type Diagnostic struct {
	ID        int64
	FileID    int64
	Severity  string
	Source    string
	Message   string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// Resolution domain types

type ResolvedReference struct {
	ID           int64
	ReferenceID  int64
	TargetURI    string
	TargetTermID int32
	Builtin      bool
}

// CallEdge is one call from a clause of the caller predicate to the
// predicate or function the callee reference resolved to.
type CallEdge struct {
	ID          int64
	FileID      int64
	CallerName  string
	CallerArity int
	CalleeURI   string
	CalleeName  string
	CalleeArity int
	Line        int
	Col         int
}
