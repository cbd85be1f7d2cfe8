// Command analyze prints quick, human-readable heuristics about puzzle files
// in the project's configs directory. It summarizes the deal's shape, card
// counts, how well each value is balanced against its complement, and
// highlights values that can never be removed.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wricardo/pyramid-solver/game/engine"
)

// PairBalance compares a value with its complement for the target
type PairBalance struct {
	Low, High   engine.Card
	LowCount    int
	HighCount   int
	SelfPartner bool // Low == High, cards pair among themselves
}

// Balanced reports whether every card of the pair could find a partner
func (p PairBalance) Balanced() bool {
	if p.SelfPartner {
		return p.LowCount%2 == 0
	}
	return p.LowCount == p.HighCount
}

// Analysis holds the heuristics for one puzzle
type Analysis struct {
	Name        string
	Target      int
	CycleLimit  int
	RowLengths  []int
	PileSize    int
	Total       int
	Counts      map[engine.Card]int
	Pairs       []PairBalance
	RowSingles  int // target-valued cards in the rows
	PileSingles int // target-valued cards in the pile
	PileSingle  bool
	Unpartnered []engine.Card // row values that can never be removed

	rowCounts map[engine.Card]int
}

func main() {
	dir := "configs"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding puzzle files: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Printf("No puzzle files found in %s\n", dir)
		return
	}

	for _, file := range files {
		fmt.Printf("\n=== Analyzing %s ===\n", filepath.Base(file))
		analysis, err := analyzeFile(file)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
		printAnalysis(os.Stdout, analysis)
	}
}

// analyzeFile reads a puzzle without validating it, so broken deals can
// still be inspected.
func analyzeFile(path string) (*Analysis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	var puzzle engine.PuzzleConfig
	if err := json.Unmarshal(data, &puzzle); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	if puzzle.Target == 0 {
		puzzle.Target = engine.DefaultTarget
	}

	return analyzePuzzle(&puzzle), nil
}

func analyzePuzzle(puzzle *engine.PuzzleConfig) *Analysis {
	a := &Analysis{
		Name:       puzzle.Name,
		Target:     puzzle.Target,
		CycleLimit: puzzle.CycleLimit,
		PileSize:   len(puzzle.Ground),
		Total:      puzzle.CardCount(),
		Counts:     make(map[engine.Card]int),
		PileSingle: puzzle.AllowPileSingle,
		rowCounts:  make(map[engine.Card]int),
	}

	target := engine.Card(puzzle.Target)
	for _, row := range puzzle.Rows {
		a.RowLengths = append(a.RowLengths, len(row))
		for _, c := range row {
			a.Counts[c]++
			a.rowCounts[c]++
			if c == target {
				a.RowSingles++
			}
		}
	}
	for _, c := range puzzle.Ground {
		a.Counts[c]++
		if c == target {
			a.PileSingles++
		}
	}

	for low := engine.Card(1); low <= target-low; low++ {
		high := target - low
		if a.Counts[low] == 0 && a.Counts[high] == 0 {
			continue
		}
		a.Pairs = append(a.Pairs, PairBalance{
			Low:         low,
			High:        high,
			LowCount:    a.Counts[low],
			HighCount:   a.Counts[high],
			SelfPartner: low == high,
		})
	}

	// Only row cards must go; a row card equal to the target removes itself
	for _, c := range a.values() {
		if c == target || a.rowCounts[c] == 0 {
			continue
		}
		partner := target - c
		if partner < 1 || a.Counts[partner] == 0 || (partner == c && a.Counts[c] < 2) {
			a.Unpartnered = append(a.Unpartnered, c)
		}
	}

	return a
}

// values returns the distinct card values in ascending order
func (a *Analysis) values() []engine.Card {
	values := make([]engine.Card, 0, len(a.Counts))
	for c := range a.Counts {
		values = append(values, c)
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	return values
}

func printAnalysis(w io.Writer, a *Analysis) {
	fmt.Fprintf(w, "Name: %s\n", a.Name)
	fmt.Fprintf(w, "Target: %d\n", a.Target)
	if a.CycleLimit == 0 {
		fmt.Fprintln(w, "Cycle Limit: unlimited")
	} else {
		fmt.Fprintf(w, "Cycle Limit: %d\n", a.CycleLimit)
	}

	lengths := make([]string, len(a.RowLengths))
	for i, n := range a.RowLengths {
		lengths[i] = fmt.Sprint(n)
	}
	fmt.Fprintf(w, "Rows: %d (%s)\n", len(a.RowLengths), strings.Join(lengths, " "))
	fmt.Fprintf(w, "Pile: %d cards\n", a.PileSize)
	fmt.Fprintf(w, "Total Cards: %d\n", a.Total)

	counts := make([]string, 0, len(a.Counts))
	for _, c := range a.values() {
		counts = append(counts, fmt.Sprintf("%s×%d", c, a.Counts[c]))
	}
	fmt.Fprintf(w, "Counts: %s\n", strings.Join(counts, " "))
	fmt.Fprintf(w, "Target-valued cards: %d in rows, %d in pile\n", a.RowSingles, a.PileSingles)
	if a.PileSingles > 0 && !a.PileSingle {
		fmt.Fprintln(w, "   Pile singles are off; target-valued pile cards only pass")
	}

	unbalanced := 0
	for _, p := range a.Pairs {
		if p.Balanced() {
			continue
		}
		unbalanced++
		if p.SelfPartner {
			fmt.Fprintf(w, "⚠️  %s pairs with itself but appears %d times\n", p.Low, p.LowCount)
		} else {
			fmt.Fprintf(w, "⚠️  %s×%d vs %s×%d are not balanced\n", p.Low, p.LowCount, p.High, p.HighCount)
		}
	}
	if unbalanced == 0 {
		fmt.Fprintln(w, "✅ Every value is balanced against its complement")
	}

	if len(a.Unpartnered) > 0 {
		names := make([]string, len(a.Unpartnered))
		for i, c := range a.Unpartnered {
			names[i] = c.String()
		}
		fmt.Fprintf(w, "⚠️  CRITICAL: no partner can ever remove: %s\n", strings.Join(names, " "))
	} else {
		fmt.Fprintln(w, "✅ Every value has a possible partner")
	}
}
