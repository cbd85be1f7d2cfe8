package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReachable(t *testing.T) {
	tab := NewTableau(DefaultRules()).
		AddRow(1, 2, 3).
		AddRow(4, 5).
		AddRow(6, 7).
		AddRow().
		AddRow(8)

	tests := []struct {
		row      int
		expected bool
	}{
		{0, true},   // 3 > 2
		{1, false},  // 2 == 2
		{2, true},   // 2 > 0
		{3, false},  // empty
		{4, true},   // last row
		{-1, false}, // out of range
		{5, false},  // out of range
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tab.Reachable(tt.row), "row %d", tt.row)
	}
}

func TestReachableChangesAsRowsShrink(t *testing.T) {
	tab := NewTableau(DefaultRules()).AddRow(1, 2).AddRow(3, 4)
	assert.False(t, tab.Reachable(0))

	tab.pop(1)
	assert.True(t, tab.Reachable(0))

	tab.pop(0)
	assert.False(t, tab.Reachable(0))
}

func TestAddRowCopiesInput(t *testing.T) {
	cards := []Card{1, 2, 3}
	tab := NewTableau(DefaultRules()).AddRow(cards...)
	cards[2] = 9

	assert.Equal(t, []Card{1, 2, 3}, tab.Row(0))
}

func TestAddGroundMarksActive(t *testing.T) {
	tab := NewTableau(DefaultRules()).AddGround(4, 5)

	ground := tab.Ground()
	require.Len(t, ground, 2)
	for _, g := range ground {
		assert.True(t, g.Active)
	}
	assert.Equal(t, 0, tab.Cursor())
	assert.Equal(t, 0, tab.Cycles())
}

func TestCloneIsIndependent(t *testing.T) {
	tab := NewTableau(DefaultRules()).AddRow(1, 2, 3).AddRow(4).AddGround(5, 6)
	clone := tab.Clone()
	require.True(t, tab.Equal(clone))

	clone.pop(0)
	clone.ground[1].Active = false
	clone.advance()

	assert.Equal(t, []Card{1, 2, 3}, tab.Row(0))
	assert.True(t, tab.ground[1].Active)
	assert.Equal(t, 0, tab.Cursor())
	assert.False(t, tab.Equal(clone))
}

func TestAdvanceWraps(t *testing.T) {
	tab := NewTableau(rulesWithLimit(2)).AddGround(1, 2)

	assert.False(t, tab.advance())
	assert.Equal(t, 1, tab.Cursor())
	assert.False(t, tab.cycleLimitReached())

	assert.True(t, tab.advance())
	assert.Equal(t, 0, tab.Cursor())
	assert.Equal(t, 1, tab.Cycles())

	tab.advance()
	assert.True(t, tab.advance())
	assert.True(t, tab.cycleLimitReached())
}

func TestCycleLimitZeroIsUnlimited(t *testing.T) {
	tab := NewTableau(rulesWithLimit(0)).AddGround(1)
	for i := 0; i < 100; i++ {
		tab.advance()
	}
	assert.Equal(t, 100, tab.Cycles())
	assert.False(t, tab.cycleLimitReached())
}

func TestSolvedAndRemaining(t *testing.T) {
	tab := NewTableau(DefaultRules()).AddRow(6).AddRow(1, 2).AddGround(7, 8)
	assert.False(t, tab.Solved())
	assert.Equal(t, 5, tab.Remaining())

	tab.pop(0)
	tab.ground[0].Active = false
	assert.True(t, tab.Solved())
	assert.Equal(t, 3, tab.Remaining())

	assert.True(t, NewTableau(DefaultRules()).Solved())
}

func TestCounts(t *testing.T) {
	tab := NewTableau(DefaultRules()).AddRow(13, 1).AddRow(1).AddGround(13, 2)
	tab.ground[1].Active = false

	assert.Equal(t, map[Card]int{1: 2, 13: 2}, tab.Counts())
}

func TestRowAccessors(t *testing.T) {
	tab := NewTableau(DefaultRules()).AddRow(1, 2).AddRow(3)

	assert.Equal(t, 2, tab.RowCount())
	assert.Nil(t, tab.Row(5))
	assert.Equal(t, [][]Card{{1, 2}, {3}}, tab.Rows())

	rows := tab.Rows()
	rows[0][0] = 9
	assert.Equal(t, []Card{1, 2}, tab.Row(0))

	c, ok := tab.tail(0)
	assert.True(t, ok)
	assert.Equal(t, Card(2), c)

	_, ok = tab.tail(4)
	assert.False(t, ok)
}

func TestEqual(t *testing.T) {
	a := NewTableau(DefaultRules()).AddRow(1).AddGround(2)
	b := NewTableau(DefaultRules()).AddRow(1).AddGround(2)
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(nil))

	c := NewTableau(rulesWithLimit(5)).AddRow(1).AddGround(2)
	assert.False(t, a.Equal(c))

	d := NewTableau(DefaultRules()).AddRow(2).AddGround(2)
	assert.False(t, a.Equal(d))
}
