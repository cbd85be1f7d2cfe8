// Package config provides puzzle file management for the Pyramid solver.
//
// The config package handles:
//   - Loading puzzle deals from JSON files
//   - Validation through the engine's puzzle checks
//   - Default puzzle selection
//   - Puzzle discovery, listing and saving
//
// Puzzle Format:
//
// Puzzles are stored as JSON files in the configs directory. Each file
// defines a name and description, the target sum, the pile cycle limit
// (0 for unlimited), the rows (first row first, exposed card last) and the
// draw pile in order.
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Load a specific puzzle
//	puzzle, err := manager.LoadPuzzle("grandmaster_3")
//
//	// Get default puzzle
//	puzzle = manager.GetDefault()
//
//	// List available puzzles
//	puzzles, err := manager.ListPuzzles()
package config
