// Package service provides the business logic layer for the Pyramid solver.
//
// The service package implements:
//   - Puzzle resolution (inline deal, named puzzle file, or the default)
//   - Synchronous and background solver runs with time limits
//   - Verification of every solution before it is reported
//   - Run listing and paginated access to solution traces
//   - Notification of finished runs to transports
//
// Core Interfaces:
//
// SolverService is the main service interface used by the HTTP API, the MCP
// tools and the command line. RunManager stores runs and PuzzleManager loads
// puzzle files; both are implemented in sibling packages. RunNotifier receives
// every run once its search ends.
//
// Usage:
//
//	runMgr := runs.NewManager()
//	puzzleMgr, _ := config.NewManager("configs")
//	solver := service.NewSolverService(runMgr, puzzleMgr)
//
//	info, err := solver.Solve(ctx, service.SolveRequest{PuzzleID: "grandmaster_2"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(info.Status, info.MoveCount)
//
// Runs:
//
// A run is created in the pending state, searched under a context deadline and
// stored again with one of the final statuses: solved, unsolved, timeout or
// failed. Stored runs are snapshots; an update replaces the whole record.
package service
