package service

import (
	"context"
	"errors"
	"time"

	"github.com/wricardo/pyramid-solver/game/engine"
)

var (
	ErrRunNotFound    = errors.New("run not found")
	ErrPuzzleNotFound = errors.New("puzzle not found")
	ErrInvalidPuzzle  = errors.New("invalid puzzle")
	ErrInvalidRequest = errors.New("invalid request")
)

// SolverService defines all solver-related operations
type SolverService interface {
	// Runs
	Solve(ctx context.Context, req SolveRequest) (*RunInfo, error)
	Submit(ctx context.Context, req SolveRequest) (*RunInfo, error)
	GetRun(ctx context.Context, runID string) (*RunInfo, error)
	ListRuns(ctx context.Context, opts ListOptions) ([]*RunInfo, error)
	DeleteRun(ctx context.Context, runID string) error
	GetRunMoves(ctx context.Context, runID string, opts HistoryOptions) (*MovesResponse, error)

	// Wait blocks until every run started with Submit has finished.
	Wait()

	// Puzzles
	ListPuzzles(ctx context.Context) ([]*PuzzleInfo, error)
	LoadPuzzle(ctx context.Context, name string) (*engine.PuzzleConfig, error)
	SavePuzzle(ctx context.Context, name string, puzzle *engine.PuzzleConfig) error
}

// RunManager defines run storage operations
type RunManager interface {
	Create(run *Run) (*Run, error)
	Get(id string) (*Run, error)
	List() []*Run
	Update(run *Run) error
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// PuzzleManager handles puzzle loading
type PuzzleManager interface {
	LoadPuzzle(name string) (*engine.PuzzleConfig, error)
	ListPuzzles() ([]*PuzzleInfo, error)
	GetDefault() *engine.PuzzleConfig
	SavePuzzle(name string, puzzle *engine.PuzzleConfig) error
}

// RunNotifier is told about every run once it reaches a final status
type RunNotifier interface {
	RunFinished(run *RunInfo)
}

// Run is one recorded search over a puzzle. Stored runs are treated as
// immutable snapshots; managers replace them rather than edit them.
type Run struct {
	ID             string               `json:"id"`
	PuzzleID       string               `json:"puzzle_id"`
	Puzzle         *engine.PuzzleConfig `json:"puzzle"`
	Status         RunStatus            `json:"status"`
	Timeout        time.Duration        `json:"timeout_ns"`
	Result         *engine.Result       `json:"result,omitempty"`
	Error          string               `json:"error,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	FinishedAt     *time.Time           `json:"finished_at,omitempty"`
	LastAccessedAt time.Time            `json:"last_accessed_at"`
}

// Finished reports whether the run has reached a final status
func (r *Run) Finished() bool {
	return r.Status != StatusPending
}
