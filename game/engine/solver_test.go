package engine

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rulesWithLimit(limit int) Rules {
	return Rules{Target: DefaultTarget, CycleLimit: limit}
}

func TestSolveSingleTargetCard(t *testing.T) {
	tab := NewTableau(DefaultRules()).AddRow(13).AddRow().AddGround(1)

	var moves []Move
	require.True(t, Solve(tab, &moves))
	assert.Equal(t, []Move{NewRowSingle(0, 13)}, moves)
}

func TestSolveRowPair(t *testing.T) {
	tab := NewTableau(DefaultRules()).AddRow(5).AddRow().AddRow(8)

	var moves []Move
	require.True(t, Solve(tab, &moves))
	require.Len(t, moves, 1)
	assert.Equal(t, NewRowPair(0, 5, 2, 8), moves[0])
	assert.Less(t, moves[0].Row, moves[0].OtherRow)
}

func TestSolveCycleLimitBoundary(t *testing.T) {
	// 7 pairs with the exposed 6 on the first pass; 8 only pairs with the
	// 5 underneath, which needs a second pass over the pile.
	build := func(limit int) *Tableau {
		return NewTableau(rulesWithLimit(limit)).AddRow(5, 6).AddRow().AddGround(8, 7)
	}

	expected := []Move{
		NewPilePass(8),
		NewRowPile(0, 6, 7),
		NewPileReset(),
		NewRowPile(0, 5, 8),
	}

	tests := []struct {
		name   string
		limit  int
		solved bool
	}{
		{"one cycle", 1, false},
		{"two cycles", 2, true},
		{"unlimited", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var moves []Move
			ok := Solve(build(tt.limit), &moves)
			require.Equal(t, tt.solved, ok)
			if tt.solved {
				assert.Equal(t, expected, moves)
			} else {
				assert.Empty(t, moves)
			}
		})
	}
}

func TestSolveUnsolvable(t *testing.T) {
	tests := []struct {
		name    string
		tableau *Tableau
	}{
		{
			name:    "partner never in pile",
			tableau: NewTableau(DefaultRules()).AddRow(5).AddRow().AddGround(9, 4),
		},
		{
			name:    "partner never in pile unlimited cycles",
			tableau: NewTableau(rulesWithLimit(0)).AddRow(5).AddRow().AddGround(9, 4),
		},
		{
			name:    "covered card and last row excluded from pile",
			tableau: NewTableau(DefaultRules()).AddRow(6).AddRow(7).AddGround(6),
		},
		{
			name:    "empty pile",
			tableau: NewTableau(DefaultRules()).AddRow(4).AddRow(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.tableau.Clone()
			moves := []Move{NewPileReset()}

			assert.False(t, Solve(tt.tableau, &moves))
			assert.Equal(t, []Move{NewPileReset()}, moves, "log must be restored")
			assert.True(t, tt.tableau.Equal(before), "tableau must not change")
		})
	}
}

func TestSolveKeepsExistingLog(t *testing.T) {
	tab := NewTableau(DefaultRules()).AddRow(13).AddRow()
	moves := []Move{NewPilePass(2)}

	require.True(t, Solve(tab, &moves))
	assert.Equal(t, []Move{NewPilePass(2), NewRowSingle(0, 13)}, moves)
}

func TestSolveAlreadySolved(t *testing.T) {
	tab := NewTableau(DefaultRules()).AddRow().AddRow(3).AddGround(4)

	var moves []Move
	assert.True(t, Solve(tab, &moves))
	assert.Empty(t, moves)
}

func TestSolvePileSingle(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		tab := NewTableau(DefaultRules()).AddRow(6).AddRow().AddGround(13, 7)

		var moves []Move
		require.True(t, Solve(tab, &moves))
		assert.Equal(t, []Move{NewPilePass(13), NewRowPile(0, 6, 7)}, moves)
	})

	t.Run("enabled", func(t *testing.T) {
		rules := DefaultRules()
		rules.AllowPileSingle = true
		tab := NewTableau(rules).AddRow(6).AddRow().AddGround(13, 7)

		var moves []Move
		require.True(t, Solve(tab, &moves))
		assert.Equal(t, []Move{NewPileSingle(13), NewRowPile(0, 6, 7)}, moves)
		assert.NoError(t, Verify(tab, moves))
	})
}

func TestSolveIdempotentFailure(t *testing.T) {
	tab := NewTableau(DefaultRules()).AddRow(2, 5).AddRow(9).AddGround(3, 3, 7)

	var first, second []Move
	a := Solve(tab.Clone(), &first)
	b := Solve(tab.Clone(), &second)
	assert.Equal(t, a, b)
	assert.Equal(t, first, second)
}

func TestSolveRandomDeals(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	solved := 0

	for i := 0; i < 200; i++ {
		// Deal complementary pairs so a fair share of deals can be cleared.
		cards := make([]Card, 0, 12)
		for j := 0; j < 6; j++ {
			x := Card(rng.Intn(12) + 1)
			cards = append(cards, x, DefaultTarget-x)
		}
		rng.Shuffle(len(cards), func(a, b int) { cards[a], cards[b] = cards[b], cards[a] })

		tab := NewTableau(Rules{Target: DefaultTarget, CycleLimit: rng.Intn(3)}).
			AddRow(cards[0:3]...).
			AddRow(cards[3:5]...).
			AddRow(cards[5]).
			AddGround(cards[6:]...)

		before := tab.Clone()
		moves := []Move{}
		ok := Solve(tab, &moves)

		require.True(t, tab.Equal(before), "deal %d: tableau changed", i)
		if ok {
			solved++
			require.NotEmpty(t, moves, "deal %d", i)
			require.NoError(t, Verify(tab, moves), "deal %d", i)
		} else {
			require.Empty(t, moves, "deal %d", i)
		}
	}
	t.Logf("%d of 200 deals solved", solved)
}

func TestSolverStats(t *testing.T) {
	s := NewSolver()
	tab := NewTableau(rulesWithLimit(2)).AddRow(5, 6).AddRow().AddGround(8, 7)

	var moves []Move
	require.True(t, s.Solve(tab, &moves))

	stats := s.Stats()
	assert.Greater(t, stats.Nodes, int64(1))
	assert.Equal(t, 2, stats.MaxDepth)
	assert.GreaterOrEqual(t, stats.Duration, time.Duration(0))
}

func TestSolveContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	moves := []Move{NewPilePass(1)}
	ok, err := NewSolver().SolveContext(ctx, defaultTableau(), &moves)
	assert.False(t, ok)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, []Move{NewPilePass(1)}, moves)
}

func TestSolveContextNilLog(t *testing.T) {
	tab := NewTableau(DefaultRules()).AddRow(13).AddRow()
	ok, err := NewSolver().SolveContext(context.Background(), tab, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSolveGrandmasterDeals(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping full deals in short mode")
	}

	deals := map[string]*PuzzleConfig{
		"grandmaster_2": DefaultPuzzle(),
		"grandmaster_3": {
			Name: "grandmaster_3", Description: "reference", Target: 13, CycleLimit: 3,
			Rows: [][]Card{
				{10, 10, 12, 10, 7, 3, 1},
				{1, 4, 13, 2, 12, 1},
				{3, 7, 12, 9, 6},
				{13, 10, 8, 2},
				{7, 11, 5},
				{3, 4},
				{2},
			},
			Ground: []Card{9, 2, 11, 1, 5, 4, 6, 8, 11, 8, 6, 12, 13, 7, 9, 9, 8, 13, 11, 6, 3, 5, 5, 4},
		},
		"grandmaster_4": {
			Name: "grandmaster_4", Description: "reference", Target: 13, CycleLimit: 3,
			Rows: [][]Card{
				{4, 10, 5, 5, 3, 12, 9},
				{8, 13, 13, 12, 10, 4},
				{7, 7, 3, 9, 11},
				{4, 11, 1, 6},
				{9, 3, 1},
				{10, 6},
				{2},
			},
			Ground: []Card{10, 1, 12, 2, 5, 8, 6, 11, 8, 11, 3, 13, 8, 2, 1, 4, 12, 5, 9, 6, 7, 7, 2, 13},
		},
	}

	for name, cfg := range deals {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, ValidatePuzzleConfig(cfg))
			tab := NewTableauFromConfig(cfg)

			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			var moves []Move
			ok, err := NewSolver().SolveContext(ctx, tab, &moves)
			if errors.Is(err, context.DeadlineExceeded) {
				t.Skipf("%s did not finish in time", name)
			}
			require.NoError(t, err)
			require.True(t, ok)
			assert.NoError(t, Verify(tab, moves))
		})
	}
}

// defaultTableau builds the default puzzle for tests
func defaultTableau() *Tableau {
	return NewTableauFromConfig(nil)
}
