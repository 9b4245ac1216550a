package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/mercanopy/internal/token"
)

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func values(toks []token.Token) []string {
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.Value
	}
	return out
}

func TestClauses_SplitsOnEnd(t *testing.T) {
	t.Parallel()
	cs := Clauses(":- module foo.\nfoo(X) :- bar(X).\n")
	require.Len(t, cs, 2)

	require.NotNil(t, cs[0].End)
	assert.Equal(t, []string{":-", "module", "foo"}, values(cs[0].Tokens))

	assert.Equal(t, []token.Kind{
		token.Name, token.OpenCT, token.Variable, token.Close,
		token.Name,
		token.Name, token.OpenCT, token.Variable, token.Close,
	}, kinds(cs[1].Tokens))
	assert.Equal(t, 1, cs[1].Tokens[0].Line)
}

func TestClauses_UnterminatedLastClause(t *testing.T) {
	t.Parallel()
	cs := Clauses("a.\nb :- c")
	require.Len(t, cs, 2)
	assert.NotNil(t, cs[0].End)
	assert.Nil(t, cs[1].End)
	assert.Equal(t, []string{"b", ":-", "c"}, values(cs[1].Tokens))
}

func TestClauses_TrailingLayoutProducesNoClause(t *testing.T) {
	t.Parallel()
	cs := Clauses("a.\n% trailing comment\n/* block */\n")
	assert.Len(t, cs, 1)
}

func TestNext_OpenParenClassification(t *testing.T) {
	t.Parallel()
	toks := Tokens("f(a) - (b)", token.Pos{})
	assert.Equal(t, []token.Kind{
		token.Name, token.OpenCT, token.Name, token.Close,
		token.Name, token.Open, token.Name, token.Close,
	}, kinds(toks))
}

func TestNext_Numbers(t *testing.T) {
	t.Parallel()
	tests := []struct {
		src  string
		kind token.Kind
		text string
	}{
		{"42", token.Integer, "42"},
		{"1_000", token.Integer, "1_000"},
		{"0x1F", token.Integer, "0x1F"},
		{"0b_101", token.Integer, "0b_101"},
		{"0o17", token.Integer, "0o17"},
		{"0'a", token.Integer, "0'a"},
		{"12u8", token.Integer, "12u8"},
		{"1.5", token.Float, "1.5"},
		{"2e10", token.Float, "2e10"},
		{"3.25E-2", token.Float, "3.25E-2"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			toks := Tokens(tt.src, token.Pos{})
			require.Len(t, toks, 1)
			assert.Equal(t, tt.kind, toks[0].Kind)
			assert.Equal(t, tt.text, toks[0].Text)
		})
	}
}

func TestNext_IntegerBeforeEnd(t *testing.T) {
	t.Parallel()
	toks := Tokens("X = 1.", token.Pos{})
	assert.Equal(t, []token.Kind{token.Variable, token.Name, token.Integer, token.End}, kinds(toks))
}

func TestNext_QuotedAndStrings(t *testing.T) {
	t.Parallel()
	toks := Tokens(`'it''s' "a\nb" 'x'`, token.Pos{})
	require.Len(t, toks, 3)
	assert.Equal(t, token.Name, toks[0].Kind)
	assert.Equal(t, "it's", toks[0].Value)
	assert.Equal(t, token.String, toks[1].Kind)
	assert.Equal(t, "a\nb", toks[1].Value)
	assert.Equal(t, "x", toks[2].Value)
}

func TestNext_MultiLineString(t *testing.T) {
	t.Parallel()
	toks := Tokens("\"ab\ncd\" x", token.Pos{})
	require.Len(t, toks, 2)
	assert.Equal(t, 1, toks[0].LineBreaks)
	assert.Equal(t, token.Pos{Line: 1, Col: 3}, toks[0].End())
	assert.Equal(t, token.Pos{Line: 1, Col: 4}, toks[1].Start())
}

func TestNext_GraphicNames(t *testing.T) {
	t.Parallel()
	toks := Tokens(":- a --> b, c =.. d.", token.Pos{})
	assert.Equal(t, []string{":-", "a", "-->", "b", ",", "c", "=..", "d", "."}, values(toks))
	assert.Equal(t, token.Comma, toks[4].Kind)
	assert.Equal(t, token.End, toks[8].Kind)
}

func TestNext_GraphicBeforeEndIsSplit(t *testing.T) {
	t.Parallel()
	toks := Tokens("X = +.", token.Pos{})
	assert.Equal(t, []token.Kind{token.Variable, token.Name, token.Name, token.End}, kinds(toks))
	assert.Equal(t, "+", toks[2].Value)
}

func TestNext_QualifiedName(t *testing.T) {
	t.Parallel()
	toks := Tokens("io.write_string(S)", token.Pos{})
	assert.Equal(t, []string{"io", ".", "write_string", "(", "S", ")"}, values(toks))
}

func TestNext_StateVariables(t *testing.T) {
	t.Parallel()
	toks := Tokens("p(!IO, !.S, !:S)", token.Pos{})
	assert.Equal(t, []string{"p", "(", "!", "IO", ",", "!.", "S", ",", "!:", "S", ")"}, values(toks))
}

func TestNext_Punctuation(t *testing.T) {
	t.Parallel()
	toks := Tokens("[H|T] {a} `foo` $line", token.Pos{})
	assert.Equal(t, []token.Kind{
		token.OpenList, token.Variable, token.HTSep, token.Variable, token.CloseList,
		token.OpenCurly, token.Name, token.CloseCurly,
		token.Backquote, token.ImplDefined,
	}, kinds(toks))
}

func TestNextClause_CollectsErrors(t *testing.T) {
	t.Parallel()
	cs := Clauses("a :- \x01 b.")
	require.Len(t, cs, 1)
	require.Len(t, cs[0].Errors, 1)
	assert.Equal(t, []string{"a", ":-", "b"}, values(cs[0].Tokens))
}

func TestNewAt_Origin(t *testing.T) {
	t.Parallel()
	toks := Tokens("m.foo", token.Pos{Line: 3, Col: 10})
	require.Len(t, toks, 3)
	assert.Equal(t, token.Pos{Line: 3, Col: 10}, toks[0].Start())
	assert.Equal(t, token.Pos{Line: 3, Col: 12}, toks[2].Start())
}

func TestSkipLayout_LineDirective(t *testing.T) {
	t.Parallel()
	toks := Tokens("#12\nfoo", token.Pos{})
	require.Len(t, toks, 1)
	assert.Equal(t, "foo", toks[0].Value)
}
