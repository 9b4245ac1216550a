// Package lexer splits source text into clauses of classified tokens.
//
// Comments, whitespace and `#123` line-number directives are skipped.
// Unrecognised characters become error tokens which are collected on the
// clause rather than passed to the reader.
package lexer

import (
	"strings"
	"unicode/utf8"

	"github.com/jward/mercanopy/internal/token"
)

// Lexer scans a source string. The zero value is not usable; call New.
type Lexer struct {
	src  string
	pos  int
	line int
	col  int
}

// New returns a Lexer positioned at the start of src.
func New(src string) *Lexer {
	return &Lexer{src: src}
}

// NewAt returns a Lexer whose positions are reported relative to origin.
// The reader uses it to re-scan backquoted operator spans in place.
func NewAt(src string, origin token.Pos) *Lexer {
	return &Lexer{src: src, line: origin.Line, col: origin.Col}
}

// Clauses scans the whole input into clause token lists.
func Clauses(src string) []*token.Clause {
	l := New(src)
	var out []*token.Clause
	for {
		c, ok := l.NextClause()
		if !ok {
			return out
		}
		out = append(out, c)
	}
}

// Tokens scans src, reporting positions relative to origin, and returns
// every significant token up to end of input. End tokens are included.
func Tokens(src string, origin token.Pos) []token.Token {
	l := NewAt(src, origin)
	var out []token.Token
	for {
		t, ok := l.Next()
		if !ok {
			return out
		}
		out = append(out, t)
	}
}

// NextClause returns the tokens up to and including the next end token.
// At end of input a clause is returned only if it holds at least one
// token; its End is nil.
func (l *Lexer) NextClause() (*token.Clause, bool) {
	c := &token.Clause{}
	for {
		t, ok := l.Next()
		if !ok {
			if len(c.Tokens) > 0 || len(c.Errors) > 0 {
				return c, true
			}
			return nil, false
		}
		switch t.Kind {
		case token.Error:
			c.Errors = append(c.Errors, t)
		case token.End:
			end := t
			c.End = &end
			return c, true
		default:
			c.Tokens = append(c.Tokens, t)
		}
	}
}

// Next returns the next significant token, or false at end of input.
func (l *Lexer) Next() (token.Token, bool) {
	l.skipLayout()
	if l.pos >= len(l.src) {
		return token.Token{}, false
	}

	start := l.pos
	line, col := l.line, l.col
	kind, value := l.scan()

	text := l.src[start:l.pos]
	if value == "" && kind != token.String && kind != token.Name {
		value = text
	}
	return token.Token{
		Kind:       kind,
		Text:       text,
		Value:      value,
		Line:       line,
		Col:        col,
		LineBreaks: l.line - line,
		EndCol:     l.col,
	}, true
}

func (l *Lexer) peek(off int) byte {
	if l.pos+off < len(l.src) {
		return l.src[l.pos+off]
	}
	return 0
}

func (l *Lexer) advance(n int) {
	for i := 0; i < n && l.pos < len(l.src); i++ {
		if l.src[l.pos] == '\n' {
			l.line++
			l.col = 0
		} else {
			l.col++
		}
		l.pos++
	}
}

func (l *Lexer) skipLayout() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case isSpace(c):
			l.advance(1)
		case c == '%':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.advance(1)
			}
		case c == '/' && l.peek(1) == '*':
			end := strings.Index(l.src[l.pos+2:], "*/")
			if end < 0 {
				return // reported as error tokens by scan
			}
			l.advance(end + 4)
		case c == '#' && isDigit(l.peek(1)) && l.peek(1) != '0':
			l.advance(1)
			for isDigit(l.peek(0)) {
				l.advance(1)
			}
		default:
			return
		}
	}
}

// scan consumes one token starting at l.pos and returns its kind and
// decoded value (empty when the raw text is the value).
func (l *Lexer) scan() (token.Kind, string) {
	c := l.src[l.pos]
	switch {
	case c == '.' && l.isEndAt(l.pos):
		l.advance(1)
		return token.End, ""
	case isLower(c):
		n := l.identLen(l.pos)
		l.advance(n)
		return token.Name, l.src[l.pos-n : l.pos]
	case isUpper(c) || c == '_':
		l.advance(l.identLen(l.pos))
		return token.Variable, ""
	case isDigit(c):
		return l.scanNumber()
	case c == '\'':
		if v, n, ok := l.quoted('\''); ok {
			l.advance(n)
			return token.Name, v
		}
		l.advance(1)
		return token.Error, ""
	case c == '"':
		if v, n, ok := l.quoted('"'); ok {
			l.advance(n)
			return token.String, v
		}
		l.advance(1)
		return token.Error, ""
	case c == '`':
		end := strings.IndexByte(l.src[l.pos+1:], '`')
		if end < 0 {
			l.advance(1)
			return token.Error, ""
		}
		l.advance(end + 2)
		return token.Backquote, ""
	case c == '$' && isLower(l.peek(1)):
		l.advance(1 + l.identLen(l.pos+1))
		return token.ImplDefined, ""
	case c == '(':
		kind := token.Open
		if l.pos > 0 && !isSpace(l.src[l.pos-1]) {
			kind = token.OpenCT
		}
		l.advance(1)
		return kind, ""
	case c == '!':
		// state variable sugar: !X, !.X, !:X
		n := 1
		if p := l.peek(1); (p == '.' || p == ':') && (isUpper(l.peek(2)) || l.peek(2) == '_') {
			n = 2
		}
		l.advance(n)
		return token.Name, l.src[l.pos-n : l.pos]
	case c == '/' && l.peek(1) == '*':
		// unterminated block comment
		l.advance(2)
		return token.Error, ""
	case isGraphic(c):
		n := 0
		for l.pos+n < len(l.src) && isGraphic(l.src[l.pos+n]) {
			n++
		}
		// "foo =." : the trailing '.' is the clause end, not part of the name.
		if n > 1 && l.src[l.pos+n-1] == '.' && l.src[l.pos+n-2] != '.' && l.isEndAt(l.pos+n-1) {
			n--
		}
		l.advance(n)
		return token.Name, l.src[l.pos-n : l.pos]
	}

	l.advance(1)
	switch c {
	case ')':
		return token.Close, ""
	case '[':
		return token.OpenList, ""
	case ']':
		return token.CloseList, ""
	case '{':
		return token.OpenCurly, ""
	case '}':
		return token.CloseCurly, ""
	case ',':
		return token.Comma, ""
	case '|':
		return token.HTSep, ""
	case ';':
		return token.Name, ";"
	}
	return token.Error, ""
}

// isEndAt reports whether the '.' at i terminates a clause.
func (l *Lexer) isEndAt(i int) bool {
	if i+1 >= len(l.src) {
		return true
	}
	next := l.src[i+1]
	return isSpace(next) || next == '%'
}

func (l *Lexer) identLen(i int) int {
	n := 0
	for i+n < len(l.src) && isIdent(l.src[i+n]) {
		n++
	}
	return n
}

// quoted decodes a quoted item starting at l.pos. It returns the decoded
// value and the number of bytes consumed including both quotes.
func (l *Lexer) quoted(q byte) (string, int, bool) {
	var b strings.Builder
	i := l.pos + 1
	for i < len(l.src) {
		c := l.src[i]
		switch {
		case c == q:
			if i+1 < len(l.src) && l.src[i+1] == q {
				b.WriteByte(q)
				i += 2
				continue
			}
			return b.String(), i + 1 - l.pos, true
		case c == '\\' && i+1 < len(l.src):
			i++
			switch e := l.src[i]; e {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case 'a':
				b.WriteByte('\a')
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case 'v':
				b.WriteByte('\v')
			case '\n':
				// line continuation
			default:
				b.WriteByte(e)
			}
			i++
		case c == '\n' && q == '\'':
			return "", 0, false
		default:
			b.WriteByte(c)
			i++
		}
	}
	return "", 0, false
}

func (l *Lexer) scanNumber() (token.Kind, string) {
	if l.src[l.pos] == '0' {
		switch l.peek(1) {
		case '\'':
			// character code literal 0'c
			n := 2
			if l.peek(2) == '\\' {
				n++
			}
			if l.pos+n < len(l.src) {
				_, size := utf8.DecodeRuneInString(l.src[l.pos+n:])
				n += size
			}
			l.advance(n)
			return token.Integer, ""
		case 'b':
			if l.radixDigits(2, isBinary) {
				return token.Integer, ""
			}
		case 'o':
			if l.radixDigits(2, isOctal) {
				return token.Integer, ""
			}
		case 'x':
			if l.radixDigits(2, isHex) {
				return token.Integer, ""
			}
		}
	}

	n := l.digitRun(l.pos)
	kind := token.Integer
	// fraction: '.' followed by a digit
	if l.peekAt(l.pos+n) == '.' && isDigit(l.peekAt(l.pos+n+1)) {
		n += 1 + l.digitRun(l.pos+n+1)
		kind = token.Float
	}
	// exponent
	if e := l.peekAt(l.pos + n); e == 'e' || e == 'E' {
		m := n + 1
		if s := l.peekAt(l.pos + m); s == '+' || s == '-' {
			m++
		}
		if isDigit(l.peekAt(l.pos + m)) {
			n = m + l.digitRun(l.pos+m)
			kind = token.Float
		}
	}
	if kind == token.Integer {
		n += l.suffixLen(l.pos + n)
	}
	l.advance(n)
	return kind, ""
}

func (l *Lexer) peekAt(i int) byte {
	if i < len(l.src) {
		return l.src[i]
	}
	return 0
}

// digitRun measures decimal digits with embedded underscores, never
// ending on an underscore.
func (l *Lexer) digitRun(i int) int {
	n := 0
	last := 0
	for i+n < len(l.src) && (isDigit(l.src[i+n]) || l.src[i+n] == '_') {
		n++
		if isDigit(l.src[i+n-1]) {
			last = n
		}
	}
	return last
}

func (l *Lexer) radixDigits(prefix int, ok func(byte) bool) bool {
	i := l.pos + prefix
	for l.peekAt(i) == '_' {
		i++
	}
	if !ok(l.peekAt(i)) {
		return false
	}
	last := i
	for ok(l.peekAt(i)) || l.peekAt(i) == '_' {
		if ok(l.peekAt(i)) {
			last = i
		}
		i++
	}
	n := last + 1 - l.pos
	n += l.suffixLen(l.pos + n)
	l.advance(n)
	return true
}

var intSuffixes = []string{"i8", "i16", "i32", "i64", "u8", "u16", "u32", "u64", "i", "u"}

func (l *Lexer) suffixLen(i int) int {
	j := i
	for l.peekAt(j) == '_' {
		j++
	}
	for _, s := range intSuffixes {
		if strings.HasPrefix(l.src[j:], s) && !isIdent(l.peekAt(j+len(s))) {
			return j + len(s) - i
		}
	}
	return 0
}

func isSpace(c byte) bool   { return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v' }
func isDigit(c byte) bool   { return c >= '0' && c <= '9' }
func isLower(c byte) bool   { return c >= 'a' && c <= 'z' }
func isUpper(c byte) bool   { return c >= 'A' && c <= 'Z' }
func isBinary(c byte) bool  { return c == '0' || c == '1' }
func isOctal(c byte) bool   { return c >= '0' && c <= '7' }
func isHex(c byte) bool     { return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') }
func isIdent(c byte) bool   { return isLower(c) || isUpper(c) || isDigit(c) || c == '_' }
func isGraphic(c byte) bool { return strings.IndexByte(`#$&*+-./:<=>?@^~\`, c) >= 0 }
