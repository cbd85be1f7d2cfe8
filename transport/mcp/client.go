package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/pyramid-solver/game/engine"
	"github.com/wricardo/pyramid-solver/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			// Synchronous solves can run up to the server's maximum
			Timeout: service.MaxSolveTimeout + 10*time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Pyramid Solver",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Pyramid Solver - MCP Interface

This is a thin client that proxies all requests to the REST API server.

The solver searches a Pyramid solitaire deal for a sequence of moves that
clears the top row, removing cards in pairs that sum to the target (13 by
default) with the help of a draw pile that may be cycled a limited number
of times.

AVAILABLE TOOLS:
- list_puzzles: List stored deals
- get_puzzle: Show one deal
- solve_puzzle: Solve a stored deal (or the default one)
- solve_layout: Solve a deal given as text rows and a pile
- get_run: Show a finished run and its moves
- list_runs: List recent runs
- run_moves: Page through a run's moves
- solver_instructions: Rules and move notation`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_puzzles",
		Description: "List the stored puzzle deals",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListPuzzles)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_puzzle",
		Description: "Show a stored puzzle deal",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"puzzle_id": map[string]interface{}{
					"type":        "string",
					"description": "Puzzle ID from list_puzzles",
				},
			},
			Required: []string{"puzzle_id"},
		},
	}, c.handleGetPuzzle)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "solve_puzzle",
		Description: "Search a stored puzzle for a winning move sequence",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"puzzle_id": map[string]interface{}{
					"type":        "string",
					"description": "Puzzle ID (optional, defaults to the server's default puzzle)",
				},
				"cycle_limit": map[string]interface{}{
					"type":        "integer",
					"description": "Override the number of pile passes (0 = unlimited)",
				},
				"timeout_ms": map[string]interface{}{
					"type":        "integer",
					"description": "Search time limit in milliseconds",
				},
				"async": map[string]interface{}{
					"type":        "boolean",
					"description": "Return immediately with a pending run; poll get_run for the result",
				},
			},
		},
	}, c.handleSolvePuzzle)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "solve_layout",
		Description: "Solve a deal given as text. Rows are listed first row first; within a row the exposed card is last.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"rows": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "string",
					},
					"description": "One string per row, cards separated by spaces or commas (A, 2-10, T, J, Q, K). Use an empty string for an empty row.",
				},
				"pile": map[string]interface{}{
					"type":        "string",
					"description": "Draw pile cards in draw order",
				},
				"target": map[string]interface{}{
					"type":        "integer",
					"description": "Pair sum (default 13)",
				},
				"cycle_limit": map[string]interface{}{
					"type":        "integer",
					"description": "Number of pile passes (default 3, 0 = unlimited)",
				},
				"timeout_ms": map[string]interface{}{
					"type":        "integer",
					"description": "Search time limit in milliseconds",
				},
			},
			Required: []string{"rows"},
		},
	}, c.handleSolveLayout)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_run",
		Description: "Show a run with its status, statistics and moves",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"run_id": map[string]interface{}{
					"type":        "string",
					"description": "Run ID",
				},
			},
			Required: []string{"run_id"},
		},
	}, c.handleGetRun)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_runs",
		Description: "List recent runs, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of runs",
				},
				"status": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"pending", "solved", "unsolved", "timeout", "failed"},
					"description": "Only runs with this status",
				},
			},
		},
	}, c.handleListRuns)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "run_moves",
		Description: "Page through the moves of a run",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"run_id": map[string]interface{}{
					"type":        "string",
					"description": "Run ID",
				},
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number (1-based)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Moves per page",
				},
				"order": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"asc", "desc"},
					"description": "Move order",
				},
			},
			Required: []string{"run_id"},
		},
	}, c.handleRunMoves)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "solver_instructions",
		Description: "Get the puzzle rules and the move notation used by the solver",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleSolverInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

// arguments returns the tool call arguments as a map
func arguments(request mcp.CallToolRequest) map[string]interface{} {
	if args, ok := request.Params.Arguments.(map[string]interface{}); ok {
		return args
	}
	return map[string]interface{}{}
}

// intArg reads a JSON number argument
func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

// Tool handlers

func (c *Client) handleListPuzzles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var puzzles []service.PuzzleInfo
	if err := c.apiCall(ctx, "GET", "/api/puzzles", nil, &puzzles); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Puzzles:\n\n")
	for _, p := range puzzles {
		fmt.Fprintf(&b, "• %s (%s)\n", p.PuzzleID, p.Name)
		if p.Description != "" {
			fmt.Fprintf(&b, "  %s\n", p.Description)
		}
		fmt.Fprintf(&b, "  Rows: %d, Pile: %d, Target: %d, Passes: %s\n\n",
			p.Rows, p.PileSize, p.Target, formatCycleLimit(p.CycleLimit))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetPuzzle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	puzzleID, _ := arguments(request)["puzzle_id"].(string)
	if puzzleID == "" {
		return mcp.NewToolResultError("puzzle_id is required"), nil
	}

	var puzzle engine.PuzzleConfig
	if err := c.apiCall(ctx, "GET", "/api/puzzles/"+url.PathEscape(puzzleID), nil, &puzzle); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatPuzzle(puzzleID, &puzzle)), nil
}

func (c *Client) handleSolvePuzzle(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	req := service.SolveRequest{}
	req.PuzzleID, _ = args["puzzle_id"].(string)
	req.Async, _ = args["async"].(bool)
	if limit, ok := intArg(args, "cycle_limit"); ok {
		req.CycleLimit = &limit
	}
	if timeout, ok := intArg(args, "timeout_ms"); ok {
		req.TimeoutMS = timeout
	}

	var run service.RunInfo
	if err := c.apiCall(ctx, "POST", "/api/runs", req, &run); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRun(&run)), nil
}

func (c *Client) handleSolveLayout(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	puzzle, err := parseLayout(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := service.SolveRequest{Puzzle: puzzle}
	if timeout, ok := intArg(args, "timeout_ms"); ok {
		req.TimeoutMS = timeout
	}

	var run service.RunInfo
	if err := c.apiCall(ctx, "POST", "/api/runs", req, &run); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRun(&run)), nil
}

func (c *Client) handleGetRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID, _ := arguments(request)["run_id"].(string)
	if runID == "" {
		return mcp.NewToolResultError("run_id is required"), nil
	}

	var run service.RunInfo
	if err := c.apiCall(ctx, "GET", "/api/runs/"+url.PathEscape(runID), nil, &run); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatRun(&run)), nil
}

func (c *Client) handleListRuns(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	params := url.Values{}
	if limit, ok := intArg(args, "limit"); ok && limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", limit))
	}
	if status, _ := args["status"].(string); status != "" {
		params.Set("status", status)
	}

	path := "/api/runs"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var response struct {
		Count int                `json:"count"`
		Runs  []*service.RunInfo `json:"runs"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Runs (%d):\n\n", response.Count)
	for _, r := range response.Runs {
		fmt.Fprintf(&b, "- %s %s on %s, %d moves, %d nodes (created %s)\n",
			r.ID, r.Status, r.PuzzleID, r.MoveCount, r.Stats.Nodes, r.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleRunMoves(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	runID, _ := args["run_id"].(string)
	if runID == "" {
		return mcp.NewToolResultError("run_id is required"), nil
	}

	params := url.Values{}
	if page, ok := intArg(args, "page"); ok {
		params.Set("page", fmt.Sprintf("%d", page))
	}
	if limit, ok := intArg(args, "limit"); ok {
		params.Set("limit", fmt.Sprintf("%d", limit))
	}
	if order, _ := args["order"].(string); order != "" {
		params.Set("order", order)
	}

	path := fmt.Sprintf("/api/runs/%s/moves", url.PathEscape(runID))
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var moves service.MovesResponse
	if err := c.apiCall(ctx, "GET", path, nil, &moves); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatMoves(&moves)), nil
}

func (c *Client) handleSolverInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(solverInstructions), nil
}

const solverInstructions = `Pyramid Solver - Rules and Notation

LAYOUT:
• Rows are numbered from 0. Row 0 is the top of the pyramid; clearing it wins.
• Within a row the last card is the exposed one.
• A row's exposed card is reachable when the next row is empty (the last row is always reachable).
• The draw pile is walked card by card. After the last card the pile resets to the start,
  which uses up one pass. The deal's cycle limit caps the number of passes (0 = unlimited).

REMOVALS (cards summing to the target, 13 by default):
• row_single - a reachable row card equal to the target (a King)
• row_pair   - two reachable row cards from different rows
• row_pile   - a reachable row card with the current pile card
• pile_single - the current pile card equal to the target (only when the deal allows it)

PILE MOVES:
• pile_pass  - leave the current pile card and move to the next one
• pile_reset - the pile wrapped back to its first card

CARD NOTATION:
A=1, 2-10, T=10, J=11, Q=12, K=13

WORKFLOW:
1. list_puzzles to see the stored deals
2. solve_puzzle with a puzzle_id (or solve_layout for your own deal)
3. run_moves to read the solution page by page
4. Use async=true for slow deals and poll get_run`

// parseLayout builds an inline puzzle from solve_layout arguments
func parseLayout(args map[string]interface{}) (*engine.PuzzleConfig, error) {
	rawRows, _ := args["rows"].([]interface{})
	if len(rawRows) == 0 {
		return nil, fmt.Errorf("rows is required")
	}

	puzzle := &engine.PuzzleConfig{
		Name:        "layout",
		Description: "Deal entered as text",
		Target:      engine.DefaultTarget,
		CycleLimit:  engine.DefaultCycleLimit,
		Rows:        make([][]engine.Card, 0, len(rawRows)),
	}

	for i, raw := range rawRows {
		text, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("row %d: expected a string", i)
		}
		cards, err := engine.ParseCards(text)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		puzzle.Rows = append(puzzle.Rows, cards)
	}

	if pile, _ := args["pile"].(string); pile != "" {
		cards, err := engine.ParseCards(pile)
		if err != nil {
			return nil, fmt.Errorf("pile: %w", err)
		}
		puzzle.Ground = cards
	}

	if target, ok := intArg(args, "target"); ok {
		puzzle.Target = target
	}
	if limit, ok := intArg(args, "cycle_limit"); ok {
		puzzle.CycleLimit = limit
	}

	if err := engine.ValidatePuzzleConfig(puzzle); err != nil {
		return nil, err
	}
	return puzzle, nil
}

func formatCycleLimit(limit int) string {
	if limit == 0 {
		return "unlimited"
	}
	return fmt.Sprintf("%d", limit)
}

func formatPuzzle(id string, puzzle *engine.PuzzleConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Puzzle: %s (%s)\n", id, puzzle.Name)
	if puzzle.Description != "" {
		fmt.Fprintf(&b, "%s\n", puzzle.Description)
	}
	fmt.Fprintf(&b, "Target: %d, Passes: %s\n\n", puzzle.Target, formatCycleLimit(puzzle.CycleLimit))
	b.WriteString(engine.FormatTableau(engine.NewTableauFromConfig(puzzle)))
	return b.String()
}

func formatRun(run *service.RunInfo) string {
	var b strings.Builder

	switch run.Status {
	case service.StatusSolved:
		b.WriteString("🎉 SOLVED\n")
	case service.StatusPending:
		b.WriteString("⏳ PENDING - poll get_run for the result\n")
	case service.StatusUnsolved:
		b.WriteString("❌ NO SOLUTION within the pass limit\n")
	case service.StatusTimeout:
		b.WriteString("⌛ TIMED OUT\n")
	default:
		fmt.Fprintf(&b, "⚠️ %s\n", strings.ToUpper(string(run.Status)))
	}

	fmt.Fprintf(&b, "Run: %s\nPuzzle: %s", run.ID, run.PuzzleID)
	if run.PuzzleName != "" && run.PuzzleName != run.PuzzleID {
		fmt.Fprintf(&b, " (%s)", run.PuzzleName)
	}
	b.WriteString("\n")

	if run.Status != service.StatusPending {
		fmt.Fprintf(&b, "Moves: %d (%d removals)\nNodes: %d, Max depth: %d, Time: %s\n",
			run.MoveCount, run.Removals, run.Stats.Nodes, run.Stats.MaxDepth, run.Stats.Duration)
	}
	if run.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", run.Error)
	}

	if len(run.Moves) > 0 {
		b.WriteString("\nSolution:\n")
		for i, m := range run.Moves {
			fmt.Fprintf(&b, "%3d. %s\n", i+1, m)
		}
	}

	return b.String()
}

func formatMoves(moves *service.MovesResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s (%s): page %d of %d, %d moves total\n\n",
		moves.RunID, moves.Status, moves.Page, moves.TotalPages, moves.TotalMoves)

	for _, entry := range moves.Moves {
		fmt.Fprintf(&b, "%3d. %s\n", entry.Step, entry.Text)
	}

	if moves.HasNext {
		fmt.Fprintf(&b, "\nMore moves on page %d\n", moves.Page+1)
	}
	return b.String()
}
