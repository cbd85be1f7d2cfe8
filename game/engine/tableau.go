package engine

// Tableau is the mutable state of one search branch. Rows are stacks whose
// last element is the exposed card; the ground is a fixed-order cyclic pile
// where removed cards are only flagged inactive.
type Tableau struct {
	rows   [][]Card
	ground []GroundCard
	cursor int
	cycles int
	rules  Rules
}

// NewTableau creates an empty tableau governed by rules
func NewTableau(rules Rules) *Tableau {
	return &Tableau{rules: rules}
}

// AddRow appends a row. The last card given is the exposed one.
func (t *Tableau) AddRow(cards ...Card) *Tableau {
	row := make([]Card, len(cards))
	copy(row, cards)
	t.rows = append(t.rows, row)
	return t
}

// AddGround appends active cards to the draw pile in order.
func (t *Tableau) AddGround(cards ...Card) *Tableau {
	for _, c := range cards {
		t.ground = append(t.ground, GroundCard{Card: c, Active: true})
	}
	return t
}

// Reachable reports whether the exposed card of row may be removed.
// The last row is always open; any other row is open only while it is
// strictly longer than the row after it.
func (t *Tableau) Reachable(row int) bool {
	if row < 0 || row >= len(t.rows) || len(t.rows[row]) == 0 {
		return false
	}
	if row == len(t.rows)-1 {
		return true
	}
	return len(t.rows[row]) > len(t.rows[row+1])
}

// Clone returns an independent deep copy.
func (t *Tableau) Clone() *Tableau {
	c := &Tableau{
		rows:   make([][]Card, len(t.rows)),
		ground: make([]GroundCard, len(t.ground)),
		cursor: t.cursor,
		cycles: t.cycles,
		rules:  t.rules,
	}
	for i, row := range t.rows {
		c.rows[i] = make([]Card, len(row))
		copy(c.rows[i], row)
	}
	copy(c.ground, t.ground)
	return c
}

// Solved reports whether the first row has been cleared
func (t *Tableau) Solved() bool {
	return len(t.rows) == 0 || len(t.rows[0]) == 0
}

// RowCount returns the number of rows
func (t *Tableau) RowCount() int {
	return len(t.rows)
}

// Row returns a copy of row i, or nil when i is out of range
func (t *Tableau) Row(i int) []Card {
	if i < 0 || i >= len(t.rows) {
		return nil
	}
	row := make([]Card, len(t.rows[i]))
	copy(row, t.rows[i])
	return row
}

// Rows returns a copy of every row
func (t *Tableau) Rows() [][]Card {
	rows := make([][]Card, len(t.rows))
	for i := range t.rows {
		rows[i] = t.Row(i)
	}
	return rows
}

// Ground returns a copy of the draw pile
func (t *Tableau) Ground() []GroundCard {
	ground := make([]GroundCard, len(t.ground))
	copy(ground, t.ground)
	return ground
}

// Cursor returns the index of the pile card currently on top
func (t *Tableau) Cursor() int {
	return t.cursor
}

// Cycles returns the number of completed pile traversals
func (t *Tableau) Cycles() int {
	return t.cycles
}

// Rules returns the rules the tableau was built with
func (t *Tableau) Rules() Rules {
	return t.rules
}

// Remaining counts the cards still in play: row cards plus active pile cards.
func (t *Tableau) Remaining() int {
	n := 0
	for _, row := range t.rows {
		n += len(row)
	}
	for _, g := range t.ground {
		if g.Active {
			n++
		}
	}
	return n
}

// Counts returns the multiset of cards still in play
func (t *Tableau) Counts() map[Card]int {
	counts := make(map[Card]int)
	for _, row := range t.rows {
		for _, c := range row {
			counts[c]++
		}
	}
	for _, g := range t.ground {
		if g.Active {
			counts[g.Card]++
		}
	}
	return counts
}

// Equal reports whether two tableaux hold identical state
func (t *Tableau) Equal(other *Tableau) bool {
	if other == nil {
		return false
	}
	if t.cursor != other.cursor || t.cycles != other.cycles || t.rules != other.rules {
		return false
	}
	if len(t.rows) != len(other.rows) || len(t.ground) != len(other.ground) {
		return false
	}
	for i := range t.rows {
		if len(t.rows[i]) != len(other.rows[i]) {
			return false
		}
		for j := range t.rows[i] {
			if t.rows[i][j] != other.rows[i][j] {
				return false
			}
		}
	}
	for i := range t.ground {
		if t.ground[i] != other.ground[i] {
			return false
		}
	}
	return true
}

// tail returns the exposed card of row without removing it
func (t *Tableau) tail(row int) (Card, bool) {
	if row < 0 || row >= len(t.rows) || len(t.rows[row]) == 0 {
		return 0, false
	}
	return t.rows[row][len(t.rows[row])-1], true
}

// pop removes and returns the exposed card of a non-empty row
func (t *Tableau) pop(row int) Card {
	last := len(t.rows[row]) - 1
	c := t.rows[row][last]
	t.rows[row] = t.rows[row][:last]
	return c
}

func (t *Tableau) push(row int, c Card) {
	t.rows[row] = append(t.rows[row], c)
}

// advance moves the cursor one slot and reports whether it wrapped to the
// start of the pile. A wrap counts as a completed cycle.
func (t *Tableau) advance() bool {
	t.cursor++
	if t.cursor >= len(t.ground) {
		t.cursor = 0
		t.cycles++
		return true
	}
	return false
}

func (t *Tableau) cycleLimitReached() bool {
	return t.rules.CycleLimit != 0 && t.cycles >= t.rules.CycleLimit
}
