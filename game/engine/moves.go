package engine

import "fmt"

// MoveKind identifies the shape of a move
type MoveKind string

const (
	RowSingle  MoveKind = "row_single"  // exposed row card equal to the target
	RowPair    MoveKind = "row_pair"    // two exposed row cards
	RowPile    MoveKind = "row_pile"    // exposed row card with the current pile card
	PilePass   MoveKind = "pile_pass"   // current pile card left in place
	PileReset  MoveKind = "pile_reset"  // pile cursor wrapped to the start
	PileSingle MoveKind = "pile_single" // current pile card equal to the target
)

// Move is one step of a solution trace. Row indexes are zero-based; fields
// that do not apply to the kind are left zero.
type Move struct {
	Kind      MoveKind `json:"kind"`
	Row       int      `json:"row,omitempty"`
	Card      Card     `json:"card,omitempty"`
	OtherRow  int      `json:"other_row,omitempty"`
	OtherCard Card     `json:"other_card,omitempty"`
	PileCard  Card     `json:"pile_card,omitempty"`
}

// NewRowSingle records the removal of a target-valued card from row
func NewRowSingle(row int, card Card) Move {
	return Move{Kind: RowSingle, Row: row, Card: card}
}

// NewRowPair records the removal of two row cards. rowA must precede rowB.
func NewRowPair(rowA int, a Card, rowB int, b Card) Move {
	return Move{Kind: RowPair, Row: rowA, Card: a, OtherRow: rowB, OtherCard: b}
}

// NewRowPile records the removal of a row card together with the current pile card
func NewRowPile(row int, card, pile Card) Move {
	return Move{Kind: RowPile, Row: row, Card: card, PileCard: pile}
}

// NewPilePass records leaving the current pile card and moving on
func NewPilePass(pile Card) Move {
	return Move{Kind: PilePass, PileCard: pile}
}

// NewPileReset records the pile cursor wrapping around
func NewPileReset() Move {
	return Move{Kind: PileReset}
}

// NewPileSingle records the removal of a target-valued pile card
func NewPileSingle(pile Card) Move {
	return Move{Kind: PileSingle, PileCard: pile}
}

// IsRemoval reports whether the move takes cards out of play
func (m Move) IsRemoval() bool {
	switch m.Kind {
	case RowSingle, RowPair, RowPile, PileSingle:
		return true
	}
	return false
}

func (m Move) String() string {
	switch m.Kind {
	case RowSingle:
		return fmt.Sprintf("remove %s from row %d", m.Card, m.Row)
	case RowPair:
		return fmt.Sprintf("pair %s (row %d) with %s (row %d)", m.Card, m.Row, m.OtherCard, m.OtherRow)
	case RowPile:
		return fmt.Sprintf("pair %s (row %d) with %s from the pile", m.Card, m.Row, m.PileCard)
	case PilePass:
		return fmt.Sprintf("pass %s", m.PileCard)
	case PileReset:
		return "reset the pile"
	case PileSingle:
		return fmt.Sprintf("remove %s from the pile", m.PileCard)
	}
	return fmt.Sprintf("unknown move %q", string(m.Kind))
}

// CountRemovals returns how many moves in the trace remove cards
func CountRemovals(moves []Move) int {
	n := 0
	for _, m := range moves {
		if m.IsRemoval() {
			n++
		}
	}
	return n
}
