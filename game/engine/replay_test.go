package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyCycleLimitTrace(t *testing.T) {
	trace := []Move{
		NewPilePass(8),
		NewRowPile(0, 6, 7),
		NewPileReset(),
		NewRowPile(0, 5, 8),
	}

	t.Run("within limit", func(t *testing.T) {
		tab := NewTableau(rulesWithLimit(2)).AddRow(5, 6).AddRow().AddGround(8, 7)
		require.NoError(t, Verify(tab, trace))

		final, err := Replay(tab, trace)
		require.NoError(t, err)
		assert.Equal(t, 0, final.Remaining())
		assert.Equal(t, 1, final.Cycles())
		assert.Equal(t, 4, tab.Remaining(), "input must not change")
	})

	t.Run("limit reached", func(t *testing.T) {
		tab := NewTableau(rulesWithLimit(1)).AddRow(5, 6).AddRow().AddGround(8, 7)
		err := Verify(tab, trace)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrCycleLimit))
		assert.Contains(t, err.Error(), "move 3")
	})
}

func TestReplayErrors(t *testing.T) {
	tests := []struct {
		name    string
		tableau *Tableau
		moves   []Move
		want    error
	}{
		{
			name:    "covered row",
			tableau: NewTableau(DefaultRules()).AddRow(13).AddRow(1),
			moves:   []Move{NewRowSingle(0, 13)},
			want:    ErrRowNotReachable,
		},
		{
			name:    "wrong card",
			tableau: NewTableau(DefaultRules()).AddRow(12).AddRow(),
			moves:   []Move{NewRowSingle(0, 13)},
			want:    ErrCardMismatch,
		},
		{
			name:    "single not equal to target",
			tableau: NewTableau(DefaultRules()).AddRow(12).AddRow(),
			moves:   []Move{NewRowSingle(0, 12)},
			want:    ErrWrongSum,
		},
		{
			name:    "pair wrong sum",
			tableau: NewTableau(DefaultRules()).AddRow(5).AddRow().AddRow(7),
			moves:   []Move{NewRowPair(0, 5, 2, 7)},
			want:    ErrWrongSum,
		},
		{
			name:    "pair out of order",
			tableau: NewTableau(DefaultRules()).AddRow(5).AddRow().AddRow(8),
			moves:   []Move{NewRowPair(2, 8, 0, 5)},
			want:    ErrRowNotReachable,
		},
		{
			name:    "pile card mismatch",
			tableau: NewTableau(DefaultRules()).AddRow(6).AddRow().AddGround(8, 7),
			moves:   []Move{NewRowPile(0, 6, 7)},
			want:    ErrCardMismatch,
		},
		{
			name:    "pile empty",
			tableau: NewTableau(DefaultRules()).AddRow(6).AddRow(),
			moves:   []Move{NewPilePass(7)},
			want:    ErrPileEmpty,
		},
		{
			name:    "reset before end",
			tableau: NewTableau(DefaultRules()).AddRow(6).AddRow().AddGround(8, 7),
			moves:   []Move{NewPilePass(8), NewPileReset()},
			want:    ErrEarlyReset,
		},
		{
			name:    "missing reset after last card",
			tableau: NewTableau(DefaultRules()).AddRow(6).AddRow().AddGround(8, 7),
			moves:   []Move{NewPilePass(8), NewPilePass(7), NewPilePass(8)},
			want:    ErrMissingReset,
		},
		{
			name:    "pile single disabled",
			tableau: NewTableau(DefaultRules()).AddRow(6).AddRow().AddGround(13),
			moves:   []Move{NewPileSingle(13)},
			want:    ErrSingleNotAllowed,
		},
		{
			name:    "unknown kind",
			tableau: NewTableau(DefaultRules()).AddRow(6).AddRow(),
			moves:   []Move{{Kind: "shuffle"}},
			want:    ErrUnknownMove,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Replay(tt.tableau, tt.moves)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestReplaySkipsInactivePileCards(t *testing.T) {
	// After 7 leaves the pile the cursor sits on an inactive slot; the
	// reset that follows is logged without a pass.
	tab := NewTableau(rulesWithLimit(0)).AddRow(5, 6).AddRow().AddGround(8, 7)
	moves := []Move{
		NewPilePass(8),
		NewRowPile(0, 6, 7),
		NewPileReset(),
	}

	final, err := Replay(tab, moves)
	require.NoError(t, err)
	assert.Equal(t, 0, final.Cursor())
	assert.Equal(t, 1, final.Cycles())
	assert.False(t, final.Solved())
	assert.ErrorIs(t, Verify(tab, moves), ErrNotSolved)
}

func TestReplayWrapThenReset(t *testing.T) {
	tab := NewTableau(rulesWithLimit(0)).AddRow(5).AddRow().AddGround(9, 8)
	moves := []Move{
		NewPilePass(9),
		NewPilePass(8),
		NewPileReset(),
		NewPilePass(9),
		NewRowPile(0, 5, 8),
	}
	require.NoError(t, Verify(tab, moves))
}

func TestVerifySolvedTraces(t *testing.T) {
	tab := NewTableau(DefaultRules()).AddRow(4, 9, 1).AddRow(12, 3).AddRow(10).AddGround(13, 9, 4)

	var moves []Move
	if !Solve(tab, &moves) {
		t.Skip("deal has no solution")
	}
	assert.NoError(t, Verify(tab, moves))
	assert.Equal(t, []Card{4, 9, 1}, tab.Row(0))
}
