package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseCard parses a card token: A, J, Q, K, T (ten) or a number, case-insensitive.
func ParseCard(s string) (Card, error) {
	token := strings.ToUpper(strings.TrimSpace(s))
	switch token {
	case "A":
		return Ace, nil
	case "T":
		return 10, nil
	case "J":
		return Jack, nil
	case "Q":
		return Queen, nil
	case "K":
		return King, nil
	}

	n, err := strconv.Atoi(token)
	if err != nil {
		return 0, fmt.Errorf("invalid card %q", s)
	}
	if n < MinCardValue {
		return 0, fmt.Errorf("invalid card %q: value must be at least %d", s, MinCardValue)
	}
	return Card(n), nil
}

// ParseCards parses a list of card tokens separated by spaces or commas
func ParseCards(s string) ([]Card, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})

	cards := make([]Card, 0, len(fields))
	for _, f := range fields {
		c, err := ParseCard(f)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}

// FormatCards renders cards as space separated face values
func FormatCards(cards []Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

// FormatTableau renders rows one per line followed by the active pile cards.
// The pile card under the cursor is bracketed.
func FormatTableau(t *Tableau) string {
	var b strings.Builder
	for i, row := range t.rows {
		fmt.Fprintf(&b, "row %d: %s", i, FormatCards(row))
		if t.Reachable(i) {
			b.WriteString(" *")
		}
		b.WriteString("\n")
	}

	b.WriteString("pile:")
	for i, g := range t.ground {
		if !g.Active {
			continue
		}
		if i == t.cursor {
			fmt.Fprintf(&b, " [%s]", g.Card)
		} else {
			fmt.Fprintf(&b, " %s", g.Card)
		}
	}
	fmt.Fprintf(&b, "\ncycles: %d", t.cycles)
	if t.rules.CycleLimit > 0 {
		fmt.Fprintf(&b, "/%d", t.rules.CycleLimit)
	}
	b.WriteString("\n")
	return b.String()
}
