package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PuzzleConfig represents a deal loaded from JSON. Rows are listed first row
// first; within a row the last card is the exposed one.
type PuzzleConfig struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Target          int      `json:"target"`
	CycleLimit      int      `json:"cycle_limit"`
	AllowPileSingle bool     `json:"allow_pile_single,omitempty"`
	Rows            [][]Card `json:"rows"`
	Ground          []Card   `json:"ground"`
}

// Rules returns the rules described by the config
func (c *PuzzleConfig) Rules() Rules {
	return Rules{
		Target:          c.Target,
		CycleLimit:      c.CycleLimit,
		AllowPileSingle: c.AllowPileSingle,
	}
}

// Clone returns a deep copy of the config
func (c *PuzzleConfig) Clone() *PuzzleConfig {
	clone := *c
	clone.Rows = make([][]Card, len(c.Rows))
	for i, row := range c.Rows {
		clone.Rows[i] = append([]Card{}, row...)
	}
	clone.Ground = append([]Card{}, c.Ground...)
	return &clone
}

// CardCount returns the number of cards dealt
func (c *PuzzleConfig) CardCount() int {
	n := len(c.Ground)
	for _, row := range c.Rows {
		n += len(row)
	}
	return n
}

// ValidatePuzzleConfig checks that a puzzle can be loaded into a tableau.
// Deck composition is not checked here; see the validate command for that.
func ValidatePuzzleConfig(config *PuzzleConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if config.Description == "" {
		return fmt.Errorf("config validation: description is required")
	}

	if config.Target < MinTarget || config.Target > MaxTarget {
		return fmt.Errorf("config validation: target must be between %d and %d, got %d", MinTarget, MaxTarget, config.Target)
	}
	if config.CycleLimit < 0 || config.CycleLimit > MaxCycleLimit {
		return fmt.Errorf("config validation: cycle_limit must be between 0 and %d, got %d", MaxCycleLimit, config.CycleLimit)
	}

	if len(config.Rows) == 0 {
		return fmt.Errorf("config validation: at least one row is required")
	}
	for i, row := range config.Rows {
		for j, c := range row {
			if c < MinCardValue {
				return fmt.Errorf("config validation: row %d card %d must be at least %d, got %d", i+1, j+1, MinCardValue, c)
			}
		}
	}
	for i, c := range config.Ground {
		if c < MinCardValue {
			return fmt.Errorf("config validation: ground card %d must be at least %d, got %d", i+1, MinCardValue, c)
		}
	}

	return nil
}

// LoadPuzzleConfig loads a puzzle configuration from a JSON file
func LoadPuzzleConfig(filename string) (*PuzzleConfig, error) {
	// Support PUZZLE_DIR environment variable for alternative puzzle directory
	path := filename
	if dir := os.Getenv("PUZZLE_DIR"); dir != "" {
		if strings.HasPrefix(filename, "configs/") {
			path = filepath.Join(dir, strings.TrimPrefix(filename, "configs/"))
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config PuzzleConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	if err := ValidatePuzzleConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// NewTableauFromConfig builds a tableau from config, falling back to the
// default puzzle when config is nil.
func NewTableauFromConfig(config *PuzzleConfig) *Tableau {
	if config == nil {
		config = DefaultPuzzle()
	}

	t := NewTableau(config.Rules())
	for _, row := range config.Rows {
		t.AddRow(row...)
	}
	t.AddGround(config.Ground...)
	return t
}

// DefaultPuzzle returns a solvable reference deal using the default rules.
func DefaultPuzzle() *PuzzleConfig {
	return &PuzzleConfig{
		Name:        "grandmaster_2",
		Description: "Reference seven row deal, solvable within three pile cycles",
		Target:      DefaultTarget,
		CycleLimit:  DefaultCycleLimit,
		Rows: [][]Card{
			{1, 9, 7, 8, 6, 9, 2},
			{7, 8, 5, 13, 5, 10},
			{12, 13, 3, 12, 12},
			{8, 7, 5, 7},
			{2, 3, 3},
			{6, 2},
			{4},
		},
		Ground: []Card{4, 10, 9, 4, 10, 11, 1, 6, 4, 6, 1, 13, 10, 11, 3, 1, 8, 9, 13, 5, 11, 12, 2, 11},
	}
}
