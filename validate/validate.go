// Command validate provides a small CLI that validates puzzle JSON files in
// the ../configs directory against the reference Pyramid deal. It checks:
//   - JSON structure and required fields
//   - Target of 13 and a cycle limit within range
//   - Seven rows whose lengths descend from 7 to 1
//   - A pile of 24 cards
//   - Card values between 1 and 13, each used exactly four times
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/pyramid-solver/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// validatePuzzle loads and validates a single puzzle JSON file.
func validatePuzzle(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	var puzzle engine.PuzzleConfig
	if err := json.Unmarshal(data, &puzzle); err != nil {
		result.fail("Invalid JSON: %v", err)
		return result
	}

	if puzzle.Name == "" {
		result.fail("name is required")
	}
	if puzzle.Description == "" {
		result.fail("description is required")
	}
	if puzzle.Target != engine.DefaultTarget {
		result.fail("target must be %d, got %d", engine.DefaultTarget, puzzle.Target)
	}
	if puzzle.CycleLimit < 0 || puzzle.CycleLimit > engine.MaxCycleLimit {
		result.fail("cycle_limit must be between 0 and %d, got %d", engine.MaxCycleLimit, puzzle.CycleLimit)
	}

	validateShape(&result, &puzzle)
	validateDeck(&result, &puzzle)

	// Add informational data
	if result.Valid {
		limit := "unlimited"
		if puzzle.CycleLimit > 0 {
			limit = fmt.Sprint(puzzle.CycleLimit)
		}
		result.Errors = append(result.Errors,
			fmt.Sprintf("✓ Name: %s", puzzle.Name),
			fmt.Sprintf("✓ Rows: %d, pile: %d", len(puzzle.Rows), len(puzzle.Ground)),
			fmt.Sprintf("✓ Deck: %d cards, %d of each value", puzzle.CardCount(), engine.SuitsPerValue),
			fmt.Sprintf("✓ Cycle limit: %s", limit),
		)
	}

	return result
}

// validateShape checks the row lengths and pile size of the reference deal.
// Rows are listed longest first.
func validateShape(result *ValidationResult, puzzle *engine.PuzzleConfig) {
	if len(puzzle.Rows) != engine.ReferenceRowCount {
		result.fail("expected %d rows, got %d", engine.ReferenceRowCount, len(puzzle.Rows))
	}
	for i, row := range puzzle.Rows {
		want := engine.ReferenceRowCount - i
		if len(row) != want {
			result.fail("row %d must hold %d cards, got %d", i+1, want, len(row))
		}
	}
	if len(puzzle.Ground) != engine.ReferencePileSize {
		result.fail("pile must hold %d cards, got %d", engine.ReferencePileSize, len(puzzle.Ground))
	}
}

// validateDeck checks every card is a real face value and the deal uses a
// full deck.
func validateDeck(result *ValidationResult, puzzle *engine.PuzzleConfig) {
	counts := make(map[engine.Card]int)
	check := func(where string, c engine.Card) {
		if c < engine.MinCardValue || c > engine.MaxCardValue {
			result.fail("%s: card value %d out of range %d..%d", where, c, engine.MinCardValue, engine.MaxCardValue)
			return
		}
		counts[c]++
	}

	for i, row := range puzzle.Rows {
		for j, c := range row {
			check(fmt.Sprintf("row %d card %d", i+1, j+1), c)
		}
	}
	for i, c := range puzzle.Ground {
		check(fmt.Sprintf("pile card %d", i+1), c)
	}

	for v := engine.Card(engine.MinCardValue); v <= engine.MaxCardValue; v++ {
		if counts[v] != engine.SuitsPerValue {
			result.fail("value %s appears %d times, expected %d", v, counts[v], engine.SuitsPerValue)
		}
	}
}

// main scans ../configs (or the directory given as the first argument) for
// *.json files and validates each one, printing a concise report and exiting
// with non-zero status if any are invalid.
func main() {
	configDir := "../configs"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}

	files, err := filepath.Glob(filepath.Join(configDir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding puzzle files: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Printf("No puzzle files found in %s\n", configDir)
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validatePuzzle(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				fmt.Println("  ❌ " + err)
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All puzzles are valid!")
	} else {
		fmt.Println("❌ Some puzzles have errors")
		os.Exit(1)
	}
}
