package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jward/mercanopy/internal/term"
)

func TestTable_DeterministicOrder(t *testing.T) {
	tbl := New()
	tbl.Add("q", 4)
	tbl.Add("p", 1)
	tbl.Add("q", 2)

	assert.Equal(t, []string{"q", "p"}, tbl.Names())
	assert.Equal(t, []term.ID{4, 2}, tbl.Get("q"))
	assert.Equal(t, []term.ID{4, 2, 1}, tbl.All())
	assert.Equal(t, 3, tbl.Len())
	assert.Nil(t, tbl.Get("r"))
}

func TestTable_Empty(t *testing.T) {
	tbl := New()
	assert.Zero(t, tbl.Len())
	assert.Empty(t, tbl.All())
}
