package ops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdjust(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 500, Adjust(500, Y))
	assert.Equal(t, 499, Adjust(500, X))
}

func TestDefault_Lookups(t *testing.T) {
	t.Parallel()
	tbl := Default()

	tests := []struct {
		name     string
		kind     ClassKind
		priority int
		left     int
		right    int
	}{
		{"+", Infix, 500, 500, 499},
		{"*", Infix, 400, 400, 399},
		{",", Infix, 1000, 999, 1000},
		{":-", Infix, 1200, 1199, 1199},
		{":-", Prefix, 1200, 0, 1199},
		{"-", Prefix, 200, 0, 199},
		{"some", BinaryPrefix, 950, 949, 950},
		{"\\+", Prefix, 900, 0, 900},
		{".", Infix, 10, 10, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.kind.String(), func(t *testing.T) {
			var c Class
			var ok bool
			switch tt.kind {
			case Infix:
				c, ok = tbl.Infix(tt.name)
			case Prefix:
				c, ok = tbl.Prefix(tt.name)
			case BinaryPrefix:
				c, ok = tbl.BinaryPrefix(tt.name)
			}
			require.True(t, ok)
			assert.Equal(t, tt.priority, c.Priority)
			if tt.kind != Prefix {
				assert.Equal(t, tt.left, c.LeftPriority())
			}
			assert.Equal(t, tt.right, c.RightPriority())
		})
	}
}

func TestDefault_MissingClass(t *testing.T) {
	t.Parallel()
	tbl := Default()

	_, ok := tbl.Prefix("*")
	assert.False(t, ok)
	_, ok = tbl.Infix("foo")
	assert.False(t, ok)
	assert.False(t, tbl.IsOp("foo"))
	assert.True(t, tbl.IsOp("module"))
	assert.Len(t, tbl.Classes("-"), 2)
}

func TestBackquoted(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 120, Backquoted.Priority)
	assert.Equal(t, 120, Backquoted.LeftPriority())
	assert.Equal(t, 119, Backquoted.RightPriority())
}

func TestNewTable_CopiesEntries(t *testing.T) {
	t.Parallel()
	src := map[string][]Class{"op": {InfixOp(X, X, 700)}}
	tbl := NewTable(src)
	src["op"][0].Priority = 1

	c, ok := tbl.Infix("op")
	require.True(t, ok)
	assert.Equal(t, 700, c.Priority)
	assert.Equal(t, 1, tbl.Len())
}
