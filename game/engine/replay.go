package engine

import (
	"errors"
	"fmt"
)

var (
	ErrRowNotReachable  = errors.New("row is not reachable")
	ErrCardMismatch     = errors.New("card does not match the tableau")
	ErrWrongSum         = errors.New("cards do not add up to the target")
	ErrPileEmpty        = errors.New("pile has no active card at the cursor")
	ErrMissingReset     = errors.New("pile is exhausted and must be reset first")
	ErrEarlyReset       = errors.New("pile reset before the end of the pile")
	ErrCycleLimit       = errors.New("pile cycle limit reached")
	ErrSingleNotAllowed = errors.New("single pile removals are not allowed")
	ErrUnknownMove      = errors.New("unknown move kind")
	ErrNotSolved        = errors.New("moves do not clear the first row")
)

// Replay applies moves to a copy of t and returns the resulting tableau.
// Each move is checked against the rules the search plays by. On error the
// returned tableau reflects every move before the failing one.
func Replay(t *Tableau, moves []Move) (*Tableau, error) {
	r := &replayer{t: t.Clone()}
	for i, m := range moves {
		if err := r.apply(m); err != nil {
			return r.t, fmt.Errorf("move %d (%s): %w", i+1, m, err)
		}
	}
	return r.t, nil
}

// Verify replays moves on t and checks that they solve it.
func Verify(t *Tableau, moves []Move) error {
	final, err := Replay(t, moves)
	if err != nil {
		return err
	}
	if !final.Solved() {
		return ErrNotSolved
	}
	return nil
}

// replayer tracks a wrap that has happened but whose reset is not logged yet.
type replayer struct {
	t       *Tableau
	wrapped bool
}

func (r *replayer) apply(m Move) error {
	if r.wrapped && m.Kind != PileReset {
		return ErrMissingReset
	}

	target := Card(r.t.rules.Target)

	switch m.Kind {
	case RowSingle:
		if err := r.checkRow(m.Row, m.Card); err != nil {
			return err
		}
		if m.Card != target {
			return ErrWrongSum
		}
		r.t.pop(m.Row)

	case RowPair:
		if m.Row >= m.OtherRow {
			return fmt.Errorf("rows %d and %d out of order: %w", m.Row, m.OtherRow, ErrRowNotReachable)
		}
		if err := r.checkRow(m.Row, m.Card); err != nil {
			return err
		}
		if m.Card+m.OtherCard != target {
			return ErrWrongSum
		}
		a := r.t.pop(m.Row)
		if err := r.checkRow(m.OtherRow, m.OtherCard); err != nil {
			r.t.push(m.Row, a)
			return err
		}
		r.t.pop(m.OtherRow)

	case RowPile:
		if err := r.checkRow(m.Row, m.Card); err != nil {
			return err
		}
		g, err := r.current(m.PileCard)
		if err != nil {
			return err
		}
		if m.Card+m.PileCard != target {
			return ErrWrongSum
		}
		g.Active = false
		r.t.pop(m.Row)

	case PileSingle:
		if !r.t.rules.AllowPileSingle {
			return ErrSingleNotAllowed
		}
		g, err := r.current(m.PileCard)
		if err != nil {
			return err
		}
		if m.PileCard != target {
			return ErrWrongSum
		}
		g.Active = false

	case PilePass:
		if _, err := r.current(m.PileCard); err != nil {
			return err
		}
		r.t.cursor++
		if r.t.cursor == len(r.t.ground) {
			r.t.cursor = 0
			r.wrapped = true
		}

	case PileReset:
		if len(r.t.ground) == 0 {
			return ErrPileEmpty
		}
		if !r.wrapped {
			for i := r.t.cursor; i < len(r.t.ground); i++ {
				if r.t.ground[i].Active {
					return ErrEarlyReset
				}
			}
			r.t.cursor = 0
		}
		r.wrapped = false
		r.t.cycles++
		if r.t.cycleLimitReached() {
			return ErrCycleLimit
		}

	default:
		return ErrUnknownMove
	}
	return nil
}

// checkRow verifies that row is reachable and exposes card.
func (r *replayer) checkRow(row int, card Card) error {
	if !r.t.Reachable(row) {
		return fmt.Errorf("row %d: %w", row, ErrRowNotReachable)
	}
	if tail, _ := r.t.tail(row); tail != card {
		return fmt.Errorf("row %d exposes %s, not %s: %w", row, tail, card, ErrCardMismatch)
	}
	return nil
}

// current skips inactive pile cards the way the search does and returns the
// card at the cursor after checking it matches want.
func (r *replayer) current(want Card) (*GroundCard, error) {
	if len(r.t.ground) == 0 {
		return nil, ErrPileEmpty
	}
	i := r.t.cursor
	for i < len(r.t.ground) && !r.t.ground[i].Active {
		i++
	}
	if i == len(r.t.ground) {
		return nil, ErrMissingReset
	}
	r.t.cursor = i
	g := &r.t.ground[i]
	if g.Card != want {
		return nil, fmt.Errorf("pile shows %s, not %s: %w", g.Card, want, ErrCardMismatch)
	}
	return g, nil
}
