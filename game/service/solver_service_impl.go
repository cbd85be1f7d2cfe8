package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/wricardo/pyramid-solver/game/engine"
)

// solverServiceImpl implements the SolverService interface
type solverServiceImpl struct {
	runs           RunManager
	puzzles        PuzzleManager
	notifiers      []RunNotifier
	defaultTimeout time.Duration
	maxTimeout     time.Duration
	wg             sync.WaitGroup
}

// Option configures the solver service
type Option func(*solverServiceImpl)

// WithNotifier registers a listener for finished runs
func WithNotifier(n RunNotifier) Option {
	return func(s *solverServiceImpl) {
		if n != nil {
			s.notifiers = append(s.notifiers, n)
		}
	}
}

// WithTimeouts sets the default and maximum search time
func WithTimeouts(defaultTimeout, maxTimeout time.Duration) Option {
	return func(s *solverServiceImpl) {
		if defaultTimeout > 0 {
			s.defaultTimeout = defaultTimeout
		}
		if maxTimeout > 0 {
			s.maxTimeout = maxTimeout
		}
	}
}

// NewSolverService creates a new solver service instance
func NewSolverService(runs RunManager, puzzles PuzzleManager, opts ...Option) SolverService {
	s := &solverServiceImpl{
		runs:           runs,
		puzzles:        puzzles,
		defaultTimeout: DefaultSolveTimeout,
		maxTimeout:     MaxSolveTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Solve runs the search and returns the finished run
func (s *solverServiceImpl) Solve(ctx context.Context, req SolveRequest) (*RunInfo, error) {
	run, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	created, err := s.runs.Create(run)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	finished := s.execute(ctx, created)
	return toRunInfo(finished, true), nil
}

// Submit records a pending run and searches in the background
func (s *solverServiceImpl) Submit(ctx context.Context, req SolveRequest) (*RunInfo, error) {
	run, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	created, err := s.runs.Create(run)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	// The search outlives the request that started it.
	bg := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.execute(bg, created)
	}()

	return toRunInfo(created, false), nil
}

// Wait blocks until background runs finish
func (s *solverServiceImpl) Wait() {
	s.wg.Wait()
}

// GetRun retrieves run information including its moves
func (s *solverServiceImpl) GetRun(ctx context.Context, runID string) (*RunInfo, error) {
	run, err := s.runs.Get(runID)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	if err := s.runs.UpdateLastAccessed(runID); err == nil {
		if refreshed, err := s.runs.Get(runID); err == nil {
			run = refreshed
		}
	}

	return toRunInfo(run, true), nil
}

// ListRuns returns stored runs without their moves
func (s *solverServiceImpl) ListRuns(ctx context.Context, opts ListOptions) ([]*RunInfo, error) {
	runs := s.runs.List()

	switch opts.Sort {
	case "", "created":
		sort.Slice(runs, func(i, j int) bool { return runs[i].CreatedAt.Before(runs[j].CreatedAt) })
	case "accessed":
		sort.Slice(runs, func(i, j int) bool { return runs[i].LastAccessedAt.Before(runs[j].LastAccessedAt) })
	default:
		return nil, fmt.Errorf("%w: unknown sort %q", ErrInvalidRequest, opts.Sort)
	}

	switch opts.Order {
	case "", "desc":
		for i, j := 0, len(runs)-1; i < j; i, j = i+1, j-1 {
			runs[i], runs[j] = runs[j], runs[i]
		}
	case "asc":
	default:
		return nil, fmt.Errorf("%w: unknown order %q", ErrInvalidRequest, opts.Order)
	}

	result := make([]*RunInfo, 0, len(runs))
	for _, run := range runs {
		if opts.Status != "" && run.Status != opts.Status {
			continue
		}
		result = append(result, toRunInfo(run, false))
		if opts.Limit > 0 && len(result) == opts.Limit {
			break
		}
	}

	return result, nil
}

// DeleteRun removes a run
func (s *solverServiceImpl) DeleteRun(ctx context.Context, runID string) error {
	if err := s.runs.Delete(runID); err != nil {
		return fmt.Errorf("run %s: %w", runID, err)
	}
	return nil
}

// GetRunMoves returns a page of the run's solution trace
func (s *solverServiceImpl) GetRunMoves(ctx context.Context, runID string, opts HistoryOptions) (*MovesResponse, error) {
	run, err := s.runs.Get(runID)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	var trace []engine.Move
	if run.Result != nil {
		trace = run.Result.Moves
	}
	total := len(trace)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "asc"
	}

	// Calculate pagination
	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	moves := []MoveEntry{}
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			moves = append(moves, MoveEntry{Step: i + 1, Move: trace[i], Text: trace[i].String()})
		}
	} else {
		for i := start; i < end; i++ {
			moves = append(moves, MoveEntry{Step: i + 1, Move: trace[i], Text: trace[i].String()})
		}
	}

	return &MovesResponse{
		RunID:       run.ID,
		Status:      run.Status,
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// ListPuzzles returns available puzzles
func (s *solverServiceImpl) ListPuzzles(ctx context.Context) ([]*PuzzleInfo, error) {
	return s.puzzles.ListPuzzles()
}

// LoadPuzzle loads a specific puzzle
func (s *solverServiceImpl) LoadPuzzle(ctx context.Context, name string) (*engine.PuzzleConfig, error) {
	return s.puzzles.LoadPuzzle(name)
}

// SavePuzzle saves a puzzle to disk
func (s *solverServiceImpl) SavePuzzle(ctx context.Context, name string, puzzle *engine.PuzzleConfig) error {
	if name == "" {
		return fmt.Errorf("%w: puzzle name is required", ErrInvalidRequest)
	}
	return s.puzzles.SavePuzzle(name, puzzle)
}

// prepare resolves the puzzle and builds a pending run
func (s *solverServiceImpl) prepare(req SolveRequest) (*Run, error) {
	puzzleID, puzzle, err := s.resolvePuzzle(req)
	if err != nil {
		return nil, err
	}

	if req.CycleLimit != nil {
		limit := *req.CycleLimit
		if limit < 0 || limit > engine.MaxCycleLimit {
			return nil, fmt.Errorf("%w: cycle_limit must be between 0 and %d, got %d", ErrInvalidRequest, engine.MaxCycleLimit, limit)
		}
		puzzle.CycleLimit = limit
	}

	timeout, err := s.timeoutFor(req.TimeoutMS)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &Run{
		PuzzleID:       puzzleID,
		Puzzle:         puzzle,
		Status:         StatusPending,
		Timeout:        timeout,
		CreatedAt:      now,
		LastAccessedAt: now,
	}, nil
}

// resolvePuzzle picks the inline puzzle, then the named one, then the default.
// The returned config is a private copy.
func (s *solverServiceImpl) resolvePuzzle(req SolveRequest) (string, *engine.PuzzleConfig, error) {
	switch {
	case req.Puzzle != nil:
		if err := engine.ValidatePuzzleConfig(req.Puzzle); err != nil {
			return "", nil, fmt.Errorf("%w: %v", ErrInvalidPuzzle, err)
		}
		return "inline", req.Puzzle.Clone(), nil

	case req.PuzzleID != "":
		puzzle, err := s.puzzles.LoadPuzzle(req.PuzzleID)
		if err != nil {
			if errors.Is(err, ErrPuzzleNotFound) {
				// Provide helpful error message with available options
				available, listErr := s.puzzles.ListPuzzles()
				if listErr == nil && len(available) > 0 {
					var ids []string
					for _, p := range available {
						ids = append(ids, p.PuzzleID)
					}
					return "", nil, fmt.Errorf("puzzle '%s': %w. Available puzzles: %v", req.PuzzleID, ErrPuzzleNotFound, ids)
				}
				return "", nil, fmt.Errorf("puzzle '%s': %w. Use /api/puzzles to list available puzzles", req.PuzzleID, ErrPuzzleNotFound)
			}
			return "", nil, fmt.Errorf("failed to load puzzle %s: %w", req.PuzzleID, err)
		}
		return req.PuzzleID, puzzle.Clone(), nil

	default:
		puzzle := s.puzzles.GetDefault()
		if puzzle == nil {
			puzzle = engine.DefaultPuzzle()
		}
		return "default", puzzle.Clone(), nil
	}
}

func (s *solverServiceImpl) timeoutFor(ms int) (time.Duration, error) {
	if ms < 0 {
		return 0, fmt.Errorf("%w: timeout_ms must not be negative", ErrInvalidRequest)
	}
	if ms == 0 {
		return s.defaultTimeout, nil
	}
	d := time.Duration(ms) * time.Millisecond
	if d > s.maxTimeout {
		d = s.maxTimeout
	}
	return d, nil
}

// execute searches the run's puzzle and stores the finished run
func (s *solverServiceImpl) execute(ctx context.Context, run *Run) *Run {
	ctx, cancel := context.WithTimeout(ctx, run.Timeout)
	defer cancel()

	tableau := engine.NewTableauFromConfig(run.Puzzle)
	solver := engine.NewSolver()

	moves := []engine.Move{}
	ok, err := solver.SolveContext(ctx, tableau, &moves)

	finished := *run
	now := time.Now()
	finished.FinishedAt = &now
	finished.Result = &engine.Result{Solved: ok, Moves: moves, Stats: solver.Stats()}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		finished.Status = StatusTimeout
		finished.Error = fmt.Sprintf("search stopped after %s", run.Timeout)
	case err != nil:
		finished.Status = StatusFailed
		finished.Error = err.Error()
	case ok:
		if verr := engine.Verify(tableau, moves); verr != nil {
			finished.Status = StatusFailed
			finished.Error = fmt.Sprintf("solution failed verification: %v", verr)
			finished.Result.Solved = false
		} else {
			finished.Status = StatusSolved
		}
	default:
		finished.Status = StatusUnsolved
	}

	if err := s.runs.Update(&finished); err != nil {
		log.Warnf("Warning: Failed to store run %s: %v", finished.ID, err)
	}

	entry := log.WithFields(log.Fields{
		"run":      finished.ID,
		"puzzle":   finished.PuzzleID,
		"status":   finished.Status,
		"nodes":    finished.Result.Stats.Nodes,
		"moves":    len(moves),
		"duration": finished.Result.Stats.Duration,
	})
	if finished.Status == StatusFailed {
		entry.Error(finished.Error)
	} else {
		entry.Info("Run finished")
	}

	info := toRunInfo(&finished, false)
	for _, n := range s.notifiers {
		n.RunFinished(info)
	}

	return &finished
}

// toRunInfo converts a run to its API view
func toRunInfo(run *Run, withMoves bool) *RunInfo {
	info := &RunInfo{
		ID:             run.ID,
		PuzzleID:       run.PuzzleID,
		Status:         run.Status,
		Error:          run.Error,
		CreatedAt:      run.CreatedAt,
		FinishedAt:     run.FinishedAt,
		LastAccessedAt: run.LastAccessedAt,
	}
	if run.Puzzle != nil {
		info.PuzzleName = run.Puzzle.Name
	}
	if run.Result != nil {
		info.Solved = run.Result.Solved
		info.MoveCount = len(run.Result.Moves)
		info.Removals = engine.CountRemovals(run.Result.Moves)
		info.Stats = run.Result.Stats
	}
	if withMoves {
		info.Puzzle = run.Puzzle
		if run.Result != nil {
			info.Moves = run.Result.Moves
		}
	}
	return info
}

