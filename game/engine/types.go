package engine

import (
	"strconv"
	"time"
)

// Card is the face value of a playing card. Aces count 1, kings count 13.
type Card int

const (
	Ace   Card = 1
	Jack  Card = 11
	Queen Card = 12
	King  Card = 13

	// Validation constants
	MinCardValue      = 1
	MaxCardValue      = 13
	MinTarget         = 1
	MaxTarget         = 100
	MaxCycleLimit     = 1000
	DefaultTarget     = 13
	DefaultCycleLimit = 3

	// Reference deck layout
	ReferenceRowCount = 7
	ReferencePileSize = 24
	SuitsPerValue     = 4
)

// String renders the card as printed on its face.
func (c Card) String() string {
	switch c {
	case Ace:
		return "A"
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	}
	return strconv.Itoa(int(c))
}

// Rules holds the parameters that change from one deal to another
type Rules struct {
	Target     int `json:"target"`
	CycleLimit int `json:"cycle_limit"` // 0 means unlimited

	// AllowPileSingle lets a pile card equal to the target be removed on its own.
	AllowPileSingle bool `json:"allow_pile_single,omitempty"`
}

// DefaultRules returns the reference rules: target 13, three pile cycles.
func DefaultRules() Rules {
	return Rules{
		Target:     DefaultTarget,
		CycleLimit: DefaultCycleLimit,
	}
}

// GroundCard is one slot of the draw pile
type GroundCard struct {
	Card   Card `json:"card"`
	Active bool `json:"active"`
}

// Stats describes the work done by a single search
type Stats struct {
	Nodes    int64         `json:"nodes"`
	MaxDepth int           `json:"max_depth"`
	Duration time.Duration `json:"duration_ns"`
}

// Result is the outcome of a search as reported to outer layers
type Result struct {
	Solved bool   `json:"solved"`
	Moves  []Move `json:"moves"`
	Stats  Stats  `json:"stats"`
}
