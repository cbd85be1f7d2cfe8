// Package mcp exposes the Pyramid solver to AI agents over the Model
// Context Protocol.
//
// Client is a thin proxy: every tool call is translated into a request to
// the REST API and the JSON answer is rendered as plain text.
//
// MCP Tools:
//   - list_puzzles: List stored deals
//   - get_puzzle: Show one deal as rows and pile
//   - solve_puzzle: Solve a stored deal, optionally overriding the pass limit
//   - solve_layout: Solve a deal typed as card tokens
//   - get_run: Show a run and its full solution
//   - list_runs: List recent runs
//   - run_moves: Page through a run's moves
//   - solver_instructions: Rules and move notation
//
// Transport Modes:
//
// The same MCPServer is served over stdio (the mcp command) or mounted on
// the HTTP server at /mcp (the serve command).
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	if err := server.ServeStdio(client.GetMCPServer()); err != nil {
//		log.Fatal(err)
//	}
package mcp
