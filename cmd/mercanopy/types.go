package main

// CLIResult is the top-level JSON envelope for all query commands.
type CLIResult struct {
	Command    string `json:"command"`
	Results    any    `json:"results"`
	TotalCount *int   `json:"total_count,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CLILocation is a source range in a file.
type CLILocation struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
}

// CLISymbol is a JSON-friendly definition or declaration.
type CLISymbol struct {
	Name      string `json:"name"`
	Arity     int    `json:"arity"`
	Kind      string `json:"kind"`
	Role      string `json:"role"`
	Exported  bool   `json:"exported"`
	File      string `json:"file,omitempty"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
}

// CLICallEdge is a JSON-friendly call graph edge. Names carry their arity
// as name/arity.
type CLICallEdge struct {
	CallerName string `json:"caller_name"`
	CalleeName string `json:"callee_name"`
	File       string `json:"file,omitempty"`
	Line       int    `json:"line"`
	Col        int    `json:"col"`
}

// CLIDiagnostic is a JSON-friendly diagnostic.
type CLIDiagnostic struct {
	File      string `json:"file"`
	Severity  string `json:"severity"`
	Source    string `json:"source"`
	Message   string `json:"message"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
}

// CLIFile is a JSON-friendly stored document.
type CLIFile struct {
	Path      string `json:"path"`
	Module    string `json:"module,omitempty"`
	Version   int32  `json:"version"`
	LineCount int    `json:"line_count"`
}
