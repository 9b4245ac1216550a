// Package token defines the classified tokens produced by the lexer and
// consumed by the term reader.
package token

import "fmt"

// Kind classifies a token.
type Kind uint8

const (
	Name        Kind = iota // lower-case, quoted or graphic atom
	Variable                // upper-case or underscore-led identifier
	Integer                 // integer literal, including based forms
	Float                   // float literal
	String                  // double-quoted string
	ImplDefined             // $name implementation-defined literal
	OpenCT                  // '(' immediately following the previous token
	Open                    // '(' preceded by whitespace
	Close                   // ')'
	OpenList                // '['
	CloseList               // ']'
	OpenCurly               // '{'
	CloseCurly              // '}'
	Comma                   // ','
	HTSep                   // '|'
	Backquote               // `...` span
	End                     // end-of-clause '.'
	EOF                     // synthesized end of the token list
	Error                   // unrecognised input
)

var kindNames = [...]string{
	Name:        "name",
	Variable:    "variable",
	Integer:     "integer",
	Float:       "float",
	String:      "string",
	ImplDefined: "implementation_defined",
	OpenCT:      "open_ct",
	Open:        "open",
	Close:       "close",
	OpenList:    "open_list",
	CloseList:   "close_list",
	OpenCurly:   "open_curly",
	CloseCurly:  "close_curly",
	Comma:       "comma",
	HTSep:       "ht_sep",
	Backquote:   "backquote",
	End:         "end",
	EOF:         "EOF",
	Error:       "error",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Pos is a zero-based line/column position. Columns count bytes.
type Pos struct {
	Line int
	Col  int
}

// Before reports whether p sorts strictly before q.
func (p Pos) Before(q Pos) bool {
	return p.Line < q.Line || (p.Line == q.Line && p.Col < q.Col)
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// Range is a half-open source span [Start, End).
type Range struct {
	Start Pos
	End   Pos
}

// Contains reports whether pos lies inside r. The end position is included
// so a cursor placed just after a name still hits it.
func (r Range) Contains(pos Pos) bool {
	return !pos.Before(r.Start) && !r.End.Before(pos)
}

func (r Range) String() string {
	return r.Start.String() + "-" + r.End.String()
}

// Token is a single lexical token.
type Token struct {
	Kind Kind
	// Text is the raw source text.
	Text string
	// Value is the decoded value: unquoted atom name, string contents,
	// or the raw text for everything else.
	Value      string
	Line       int
	Col        int
	LineBreaks int
	// EndCol is the column just past the token on its last line.
	EndCol int
}

// Start returns the token's first position.
func (t Token) Start() Pos {
	return Pos{Line: t.Line, Col: t.Col}
}

// End returns the position just past the token.
func (t Token) End() Pos {
	return Pos{Line: t.Line + t.LineBreaks, Col: t.EndCol}
}

// Range returns the span covered by the token.
func (t Token) Range() Range {
	return Range{Start: t.Start(), End: t.End()}
}

// CanStartTerm reports whether a token of this kind may begin a term.
func (k Kind) CanStartTerm() bool {
	switch k {
	case Name, Variable, Integer, Float, String, ImplDefined,
		OpenCT, Open, OpenList, OpenCurly, Backquote:
		return true
	}
	return false
}

// Clause is the token list of one top-level sentence.
type Clause struct {
	Tokens []Token
	// End is the terminating '.' token, or nil when the input ran out first.
	End *Token
	// Errors holds lexical error tokens found inside the clause.
	Errors []Token
}

// Range spans the clause from its first token to its end marker.
func (c *Clause) Range() Range {
	var r Range
	switch {
	case len(c.Tokens) > 0:
		r.Start = c.Tokens[0].Start()
		r.End = c.Tokens[len(c.Tokens)-1].End()
	case c.End != nil:
		r.Start = c.End.Start()
	}
	if c.End != nil {
		r.End = c.End.End()
	}
	return r
}
