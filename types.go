package mercanopy

import (
	"github.com/jward/mercanopy/internal/diag"
	"github.com/jward/mercanopy/internal/store"
	"github.com/jward/mercanopy/internal/workspace"
)

// Public aliases for internal types that appear in the Engine API.

type Diagnostic = diag.Diagnostic
type Store = store.Store
type State = workspace.State

// Document states, in the order a build advances them.
const (
	StateChanged   = workspace.Changed
	StateParsed    = workspace.Parsed
	StateVisited   = workspace.Visited
	StateLinked    = workspace.Linked
	StateValidated = workspace.Validated
)

// Location is a source range inside one document.
type Location struct {
	URI       string `json:"uri"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
}

// Symbol is a definition or declaration.
type Symbol struct {
	Name     string   `json:"name"`
	Arity    int      `json:"arity"`
	Kind     string   `json:"kind"`
	Module   string   `json:"module,omitempty"`
	Role     string   `json:"role"`
	Exported bool     `json:"exported"`
	Location Location `json:"location"`
}

// TermInfo describes the term under a cursor.
type TermInfo struct {
	Name      string   `json:"name"`
	Arity     int      `json:"arity"`
	Kind      string   `json:"kind"`
	Qualifier string   `json:"qualifier,omitempty"`
	Text      string   `json:"text"`
	Location  Location `json:"location"`
	// Definition is where the term resolved to, if it is a resolved
	// reference.
	Definition *Location `json:"definition,omitempty"`
}

// Call is one call-hierarchy edge. Symbol is the other end of the edge
// (the caller for incoming calls, the callee for outgoing ones) and Site
// is the calling reference.
type Call struct {
	Symbol Symbol   `json:"symbol"`
	Site   Location `json:"site"`
}

// DocumentInfo summarises one document of the workspace.
type DocumentInfo struct {
	URI         string `json:"uri"`
	Module      string `json:"module,omitempty"`
	Version     int32  `json:"version"`
	State       string `json:"state"`
	Errors      int    `json:"errors"`
	Warnings    int    `json:"warnings"`
	Diagnostics int    `json:"diagnostics"`
}
