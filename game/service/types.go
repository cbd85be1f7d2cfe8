package service

import (
	"time"

	"github.com/wricardo/pyramid-solver/game/engine"
)

// RunStatus is the lifecycle state of a run
type RunStatus string

const (
	StatusPending  RunStatus = "pending"
	StatusSolved   RunStatus = "solved"
	StatusUnsolved RunStatus = "unsolved"
	StatusTimeout  RunStatus = "timeout"
	StatusFailed   RunStatus = "failed"
)

// Search time bounds
const (
	DefaultSolveTimeout = 30 * time.Second
	MaxSolveTimeout     = 5 * time.Minute
)

// SolveRequest describes which puzzle to solve and how
type SolveRequest struct {
	PuzzleID   string               `json:"puzzle_id,omitempty"`
	Puzzle     *engine.PuzzleConfig `json:"puzzle,omitempty"`      // Inline deal, takes precedence over PuzzleID
	CycleLimit *int                 `json:"cycle_limit,omitempty"` // Overrides the puzzle's limit
	TimeoutMS  int                  `json:"timeout_ms,omitempty"`
	Async      bool                 `json:"async,omitempty"`
}

// RunInfo provides information about a run
type RunInfo struct {
	ID             string               `json:"id"`
	PuzzleID       string               `json:"puzzle_id"`
	PuzzleName     string               `json:"puzzle_name"`
	Status         RunStatus            `json:"status"`
	Solved         bool                 `json:"solved"`
	MoveCount      int                  `json:"move_count"`
	Removals       int                  `json:"removals"`
	Stats          engine.Stats         `json:"stats"`
	Error          string               `json:"error,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	FinishedAt     *time.Time           `json:"finished_at,omitempty"`
	LastAccessedAt time.Time            `json:"last_accessed_at"`
	Puzzle         *engine.PuzzleConfig `json:"puzzle,omitempty"`
	Moves          []engine.Move        `json:"moves,omitempty"`
}

// ListOptions configures run listing
type ListOptions struct {
	Sort   string    `json:"sort"`  // "created" or "accessed"
	Order  string    `json:"order"` // "asc" or "desc"
	Limit  int       `json:"limit"`
	Status RunStatus `json:"status,omitempty"`
}

// HistoryOptions configures move retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// MoveEntry is one numbered step of a solution
type MoveEntry struct {
	Step int         `json:"step"` // 1-based position in the full trace
	Move engine.Move `json:"move"`
	Text string      `json:"text"`
}

// MovesResponse contains a page of a run's moves
type MovesResponse struct {
	RunID       string      `json:"run_id"`
	Status      RunStatus   `json:"status"`
	Moves       []MoveEntry `json:"moves"`
	TotalMoves  int         `json:"total_moves"`
	Page        int         `json:"page"`
	PageSize    int         `json:"page_size"`
	TotalPages  int         `json:"total_pages"`
	HasNext     bool        `json:"has_next"`
	HasPrevious bool        `json:"has_previous"`
}

// PuzzleInfo provides information about a puzzle file
type PuzzleInfo struct {
	Filename    string `json:"filename"`
	PuzzleID    string `json:"puzzle_id"` // The identifier to use when solving
	Name        string `json:"name"`      // Display name
	Description string `json:"description"`
	Rows        int    `json:"rows"`
	PileSize    int    `json:"pile_size"`
	Target      int    `json:"target"`
	CycleLimit  int    `json:"cycle_limit"`
}
