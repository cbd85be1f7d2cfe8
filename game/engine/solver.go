package engine

import (
	"context"
	"time"
)

// Solve searches for a sequence of moves that clears the first row of t.
// On success the moves are appended to *moves and Solve returns true. On
// failure *moves is left exactly as it was. t itself is never modified.
func Solve(t *Tableau, moves *[]Move) bool {
	return NewSolver().Solve(t, moves)
}

// Solver runs the backtracking search and keeps statistics about the last run.
// A Solver is not safe for concurrent use; create one per search.
type Solver struct {
	ctx   context.Context
	stats Stats
	err   error
}

// NewSolver creates a solver
func NewSolver() *Solver {
	return &Solver{}
}

// Stats returns statistics for the most recent search
func (s *Solver) Stats() Stats {
	return s.stats
}

// Solve is SolveContext without cancellation.
func (s *Solver) Solve(t *Tableau, moves *[]Move) bool {
	ok, _ := s.SolveContext(context.Background(), t, moves)
	return ok
}

// SolveContext runs the search, checking ctx before every node. When ctx is
// done the search unwinds, *moves is restored and ctx.Err() is returned.
func (s *Solver) SolveContext(ctx context.Context, t *Tableau, moves *[]Move) (bool, error) {
	if moves == nil {
		var scratch []Move
		moves = &scratch
	}

	s.ctx = ctx
	s.stats = Stats{}
	s.err = nil

	entry := len(*moves)
	start := time.Now()
	ok := s.search(t.Clone(), moves, 0)
	s.stats.Duration = time.Since(start)

	if s.err != nil {
		*moves = (*moves)[:entry]
		return false, s.err
	}
	return ok, nil
}

// search explores every continuation of t depth first. Each frame owns t.
func (s *Solver) search(t *Tableau, moves *[]Move, depth int) bool {
	if s.err != nil {
		return false
	}
	if err := s.ctx.Err(); err != nil {
		s.err = err
		return false
	}

	s.stats.Nodes++
	if depth > s.stats.MaxDepth {
		s.stats.MaxDepth = depth
	}

	if t.Solved() {
		return true
	}

	backup := len(*moves)

	if s.tryRowMoves(t, moves, depth) {
		return true
	}
	if s.tryPileMoves(t, moves, depth) {
		return true
	}

	*moves = (*moves)[:backup]
	return false
}

// attempt logs m and recurses on a copy of t. The move is dropped again if
// the branch fails.
func (s *Solver) attempt(t *Tableau, moves *[]Move, m Move, depth int) bool {
	*moves = append(*moves, m)
	if s.search(t.Clone(), moves, depth+1) {
		return true
	}
	*moves = (*moves)[:len(*moves)-1]
	return false
}

// tryRowMoves removes exposed row cards alone or in ascending pairs.
func (s *Solver) tryRowMoves(t *Tableau, moves *[]Move, depth int) bool {
	target := Card(t.rules.Target)

	for i := 0; i < len(t.rows); i++ {
		if !t.Reachable(i) {
			continue
		}
		a := t.pop(i)

		if a == target {
			if s.attempt(t, moves, NewRowSingle(i, a), depth) {
				return true
			}
		} else {
			for j := i + 1; j < len(t.rows); j++ {
				if !t.Reachable(j) {
					continue
				}
				b := t.pop(j)
				if a+b == target {
					if s.attempt(t, moves, NewRowPair(i, a, j, b), depth) {
						return true
					}
				}
				t.push(j, b)
			}
		}

		t.push(i, a)
	}
	return false
}

// tryPileMoves walks the pile from the cursor, pairing each active card with
// exposed row cards. Unmatched cards are passed; a wrap is logged as a reset
// and stops the walk once the cycle limit is reached.
func (s *Solver) tryPileMoves(t *Tableau, moves *[]Move, depth int) bool {
	if len(t.ground) == 0 {
		return false
	}

	target := Card(t.rules.Target)
	start := t.cursor

	for {
		g := &t.ground[t.cursor]
		if g.Active {
			card := g.Card

			if t.rules.AllowPileSingle && card == target {
				g.Active = false
				if s.attempt(t, moves, NewPileSingle(card), depth) {
					return true
				}
				g.Active = true
			}

			// The last row never pairs with the pile.
			for r := 0; r < len(t.rows)-1; r++ {
				if !t.Reachable(r) {
					continue
				}
				c := t.pop(r)
				if c+card == target {
					g.Active = false
					if s.attempt(t, moves, NewRowPile(r, c, card), depth) {
						return true
					}
					g.Active = true
				}
				t.push(r, c)
			}

			*moves = append(*moves, NewPilePass(card))
		}

		if t.advance() {
			*moves = append(*moves, NewPileReset())
			if t.cycleLimitReached() {
				break
			}
		}
		if t.cursor == start {
			break
		}
	}
	return false
}
