// Command verifier drives a running solver server through its REST API. It
// solves every stored puzzle (or the ones named on the command line), pages
// through each run's moves and replays them locally to confirm the server's
// answers.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/pyramid-solver/game/engine"
	"github.com/wricardo/pyramid-solver/game/service"
)

// movesPageSize is the largest page the API hands out
const movesPageSize = 100

// Client talks to the REST API
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s failed: %s - %s", method, path, resp.Status, apiErr.Error)
		}
		return fmt.Errorf("%s %s failed: %s - %s", method, path, resp.Status, string(data))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s response: %w", path, err)
	}
	return nil
}

// ListPuzzles returns the stored puzzles
func (c *Client) ListPuzzles(ctx context.Context) ([]*service.PuzzleInfo, error) {
	var puzzles []*service.PuzzleInfo
	err := c.do(ctx, http.MethodGet, "/api/puzzles", nil, &puzzles)
	return puzzles, err
}

// GetPuzzle fetches one puzzle
func (c *Client) GetPuzzle(ctx context.Context, id string) (*engine.PuzzleConfig, error) {
	var puzzle engine.PuzzleConfig
	if err := c.do(ctx, http.MethodGet, "/api/puzzles/"+url.PathEscape(id), nil, &puzzle); err != nil {
		return nil, err
	}
	return &puzzle, nil
}

// Solve runs a synchronous search on the server
func (c *Client) Solve(ctx context.Context, req service.SolveRequest) (*service.RunInfo, error) {
	var run service.RunInfo
	if err := c.do(ctx, http.MethodPost, "/api/runs", req, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// Moves collects every move of a run, one page at a time
func (c *Client) Moves(ctx context.Context, runID string) ([]engine.Move, error) {
	var moves []engine.Move
	for page := 1; ; page++ {
		path := fmt.Sprintf("/api/runs/%s/moves?page=%d&limit=%d&order=asc", url.PathEscape(runID), page, movesPageSize)

		var resp service.MovesResponse
		if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
			return nil, err
		}
		for _, entry := range resp.Moves {
			if entry.Step != len(moves)+1 {
				return nil, fmt.Errorf("run %s: expected step %d, got %d", runID, len(moves)+1, entry.Step)
			}
			moves = append(moves, entry.Move)
		}
		if !resp.HasNext {
			return moves, nil
		}
	}
}

// Report is the verdict for one puzzle
type Report struct {
	PuzzleID string
	RunID    string
	Status   service.RunStatus
	Moves    int
	Verified bool
	Err      error
}

// verifyPuzzle solves id on the server and replays the returned moves on a
// tableau built from the server's copy of the puzzle.
func verifyPuzzle(ctx context.Context, c *Client, id string, cycleLimit *int, timeout time.Duration) Report {
	report := Report{PuzzleID: id}

	puzzle, err := c.GetPuzzle(ctx, id)
	if err != nil {
		report.Err = err
		return report
	}
	if cycleLimit != nil {
		puzzle.CycleLimit = *cycleLimit
	}

	run, err := c.Solve(ctx, service.SolveRequest{
		PuzzleID:   id,
		CycleLimit: cycleLimit,
		TimeoutMS:  int(timeout / time.Millisecond),
	})
	if err != nil {
		report.Err = err
		return report
	}
	report.RunID = run.ID
	report.Status = run.Status

	if !run.Solved {
		return report
	}

	moves, err := c.Moves(ctx, run.ID)
	if err != nil {
		report.Err = err
		return report
	}
	report.Moves = len(moves)

	if len(moves) != run.MoveCount {
		report.Err = fmt.Errorf("run reports %d moves, pages held %d", run.MoveCount, len(moves))
		return report
	}
	if err := engine.Verify(engine.NewTableauFromConfig(puzzle), moves); err != nil {
		report.Err = fmt.Errorf("replay failed: %w", err)
		return report
	}

	report.Verified = true
	return report
}

// verifyAll checks ids, or every stored puzzle when ids is empty. It also
// returns how many puzzles failed verification or could not be checked.
func verifyAll(ctx context.Context, c *Client, ids []string, cycleLimit *int, timeout time.Duration) ([]Report, int, error) {
	if len(ids) == 0 {
		puzzles, err := c.ListPuzzles(ctx)
		if err != nil {
			return nil, 0, err
		}
		for _, p := range puzzles {
			ids = append(ids, p.PuzzleID)
		}
	}

	reports := make([]Report, 0, len(ids))
	failures := 0
	for _, id := range ids {
		report := verifyPuzzle(ctx, c, id, cycleLimit, timeout)
		reports = append(reports, report)

		fields := log.Fields{"puzzle": id, "run": report.RunID, "status": report.Status, "moves": report.Moves}
		switch {
		case report.Err != nil:
			failures++
			log.WithFields(fields).Errorf("❌ %v", report.Err)
		case report.Verified:
			log.WithFields(fields).Info("✅ Solution replays cleanly")
		default:
			log.WithFields(fields).Warn("⚠️  No solution to check")
		}
	}
	return reports, failures, nil
}

func main() {
	cmd := &cli.Command{
		Name:      "verifier",
		Usage:     "Solve puzzles on a running server and replay the answers locally",
		ArgsUsage: "[puzzle id ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "Solver server URL"},
			&cli.IntFlag{Name: "cycle-limit", Value: -1, Usage: "Override every puzzle's cycle limit (0 means unlimited)"},
			&cli.DurationFlag{Name: "timeout", Value: 30 * time.Second, Usage: "Search time per puzzle"},
			&cli.BoolFlag{Name: "v", Usage: "Verbose output"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Bool("v") {
				log.SetLevel(log.DebugLevel)
			}

			var cycleLimit *int
			if limit := int(cmd.Int("cycle-limit")); limit >= 0 {
				cycleLimit = &limit
			}
			timeout := cmd.Duration("timeout")

			log.Infof("Connecting to solver server at %s", cmd.String("url"))
			client := NewClient(cmd.String("url"), timeout+10*time.Second)

			reports, failures, err := verifyAll(ctx, client, cmd.Args().Slice(), cycleLimit, timeout)
			if err != nil {
				return err
			}
			if failures > 0 {
				return cli.Exit(fmt.Sprintf("%d of %d puzzles failed verification", failures, len(reports)), 1)
			}
			log.Infof("All %d puzzles checked", len(reports))
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
