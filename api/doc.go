// Package api provides the HTTP REST API for the Pyramid solver.
//
// Endpoints:
//
// Runs:
//   - POST /api/runs - Solve a puzzle (201), or queue it with "async": true (202)
//   - GET /api/runs - List runs (?sort=created|accessed&order=asc|desc&limit=N&status=...)
//   - GET /api/runs/{id} - Get a run with its full move list
//   - DELETE /api/runs/{id} - Delete a run
//   - GET /api/runs/{id}/moves - Page through a run's moves (?page&limit&order)
//
// Puzzles:
//   - GET /api/puzzles - List puzzle files
//   - GET /api/puzzles/{name} - Get one puzzle
//   - POST /api/puzzles - Save a puzzle ({"id": "...", ...puzzle fields})
//
// Other:
//   - GET /api/health - Liveness check
//   - GET /ws?puzzle=<id|*> - Subscribe to finished runs
//
// A solve request names a stored puzzle or carries one inline:
//
//	{
//	  "puzzle_id": "grandmaster_3",
//	  "cycle_limit": 0,     // optional override, 0 means unlimited
//	  "timeout_ms": 10000,  // optional, capped by the server
//	  "async": false
//	}
//
// Error Handling:
//
// Errors are returned as JSON: {"error": "message"}. Unknown runs and
// puzzles give 404, malformed bodies and invalid puzzles give 400, anything
// else 500.
package api
