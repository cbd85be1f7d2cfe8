// Package engine provides the core solving logic for the Pyramid card puzzle.
//
// The engine package implements:
//   - The tableau model: diagonal rows of cards plus a cyclic draw pile
//   - The move vocabulary recorded in a solution trace
//   - An exhaustive depth-first backtracking search
//   - Replay and verification of a recorded trace
//   - Puzzle configuration loading and validation
//
// Core Types:
//
// Tableau holds the mutable state of one search branch and is cheap to clone.
// Move is an immutable record of a single removal or pile advance. Solver runs
// the search and collects Stats; the package-level Solve is the plain entry
// point. PuzzleConfig describes a deal loaded from JSON files.
//
// Usage:
//
//	config, err := engine.LoadPuzzleConfig("configs/grandmaster_2.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	tableau := engine.NewTableauFromConfig(config)
//
//	var moves []engine.Move
//	if engine.Solve(tableau, &moves) {
//		for _, m := range moves {
//			fmt.Println(m)
//		}
//	}
//
// Rules:
//
// Two exposed cards are removed together when their values sum to the target
// (13 by default); a card equal to the target is removed alone. A row's last
// card is exposed only while the row is longer than the row after it. The draw
// pile is walked one card at a time and may be restarted a limited number of
// times. The puzzle is solved once the first row is empty.
package engine
