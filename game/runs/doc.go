// Package runs stores solver runs for the Pyramid solver service.
//
// The runs package implements:
//   - Thread-safe run storage and retrieval
//   - Run ID generation
//   - Optional persistence to JSON files or Redis
//   - Expiry of finished runs that have not been read for a while
//
// Manager satisfies service.RunManager. Runs handed in or out are copies;
// the stored record is replaced on every change.
//
// Usage:
//
//	persistence, err := runs.NewFilePersistence("runs")
//	if err != nil {
//		log.Fatal(err)
//	}
//	manager := runs.NewManagerWithPersistence(persistence)
//	if err := manager.LoadPersistedRuns(); err != nil {
//		log.Warn(err)
//	}
//
//	svc := service.NewSolverService(manager, puzzles)
package runs
