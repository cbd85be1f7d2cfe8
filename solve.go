package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/pyramid-solver/game/engine"
	"github.com/wricardo/pyramid-solver/game/service"
)

// solveOptions configures the solve command
type solveOptions struct {
	Parallel   int
	CycleLimit int // negative keeps each puzzle's own limit
	Timeout    time.Duration
	ShowDeal   bool
}

// solveResult is the outcome for one command line target
type solveResult struct {
	Target string
	Puzzle *engine.PuzzleConfig
	Run    *service.RunInfo
	Err    error
}

func solveCommand() *cli.Command {
	return &cli.Command{
		Name:      "solve",
		Usage:     "Solve puzzles and print their moves",
		ArgsUsage: "[puzzle name or file ...]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "parallel", Aliases: []string{"p"}, Value: 4, Usage: "Puzzles solved at the same time"},
			&cli.IntFlag{Name: "cycle-limit", Value: -1, Usage: "Override the pile cycle limit (0 means unlimited)"},
			&cli.DurationFlag{Name: "timeout", Value: service.DefaultSolveTimeout, Usage: "Search time per puzzle"},
			&cli.BoolFlag{Name: "show", Usage: "Print each deal before its moves"},
			&cli.BoolFlag{Name: "save", Usage: "Record runs in the configured store"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := configFromCommand(cmd)
			if !cmd.Bool("save") {
				cfg.Store = StoreMemory
			}

			svcs, err := initializeServices(cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize services: %w", err)
			}
			defer svcs.close()

			targets := cmd.Args().Slice()
			if len(targets) == 0 {
				targets = []string{""}
			}

			opts := solveOptions{
				Parallel:   int(cmd.Int("parallel")),
				CycleLimit: int(cmd.Int("cycle-limit")),
				Timeout:    cmd.Duration("timeout"),
				ShowDeal:   cmd.Bool("show"),
			}

			results, err := solvePuzzles(ctx, svcs.solver, targets, opts)
			if err != nil {
				return err
			}
			printSolveResults(os.Stdout, results, opts.ShowDeal)

			if failed := countUnsolved(results); failed > 0 {
				return cli.Exit(fmt.Sprintf("%d of %d puzzles not solved", failed, len(results)), 1)
			}
			return nil
		},
	}
}

// solvePuzzles solves every target with at most opts.Parallel searches at a
// time. Results keep the order of targets. A target is a file path when it
// exists on disk, otherwise a puzzle name; the empty target is the default
// puzzle. Per-target failures are reported in the result, only context
// cancellation aborts the batch.
func solvePuzzles(ctx context.Context, svc service.SolverService, targets []string, opts solveOptions) ([]solveResult, error) {
	results := make([]solveResult, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	if opts.Parallel > 0 {
		g.SetLimit(opts.Parallel)
	}

	for i, target := range targets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = solveOne(gctx, svc, target, opts)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func solveOne(ctx context.Context, svc service.SolverService, target string, opts solveOptions) solveResult {
	res := solveResult{Target: target}
	req := service.SolveRequest{TimeoutMS: int(opts.Timeout / time.Millisecond)}

	if opts.CycleLimit >= 0 {
		limit := opts.CycleLimit
		req.CycleLimit = &limit
	}

	switch {
	case target == "":
		res.Target = "default"
	case isPuzzleFile(target):
		puzzle, err := engine.LoadPuzzleConfig(target)
		if err != nil {
			res.Err = fmt.Errorf("failed to load %s: %w", target, err)
			return res
		}
		req.Puzzle = puzzle
	default:
		req.PuzzleID = strings.TrimSuffix(target, ".json")
	}

	log.WithField("puzzle", res.Target).Debug("Solving")

	run, err := svc.Solve(ctx, req)
	if err != nil {
		res.Err = err
		return res
	}
	res.Run = run
	res.Puzzle = run.Puzzle
	return res
}

func isPuzzleFile(target string) bool {
	if filepath.Ext(target) != ".json" && !strings.ContainsRune(target, os.PathSeparator) {
		return false
	}
	info, err := os.Stat(target)
	return err == nil && !info.IsDir()
}

// printSolveResults writes a block per result
func printSolveResults(w io.Writer, results []solveResult, showDeal bool) {
	for i, res := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}

		if res.Err != nil {
			fmt.Fprintf(w, "== %s: error: %v\n", res.Target, res.Err)
			continue
		}

		run := res.Run
		fmt.Fprintf(w, "== %s: %s (%d moves, %d removals, %d nodes, %s)\n",
			res.Target, run.Status, run.MoveCount, run.Removals, run.Stats.Nodes, run.Stats.Duration.Round(time.Millisecond))

		if showDeal && res.Puzzle != nil {
			fmt.Fprint(w, engine.FormatTableau(engine.NewTableauFromConfig(res.Puzzle)))
		}
		if run.Error != "" {
			fmt.Fprintf(w, "   %s\n", run.Error)
		}
		for n, m := range run.Moves {
			fmt.Fprintf(w, "%4d. %s\n", n+1, m)
		}
	}
}

// countUnsolved counts results that did not end in a solution
func countUnsolved(results []solveResult) int {
	n := 0
	for _, res := range results {
		if res.Err != nil || res.Run == nil || !res.Run.Solved {
			n++
		}
	}
	return n
}
