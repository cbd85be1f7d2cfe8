package runs

import (
	"github.com/wricardo/pyramid-solver/game/service"
)

// RunPersistence defines the interface for persisting runs
type RunPersistence interface {
	// Save persists a run to storage
	Save(run *service.Run) error

	// Load retrieves a run from storage by ID
	Load(id string) (*service.Run, error)

	// Delete removes a run from storage
	Delete(id string) error

	// ListAll returns all persisted run IDs
	ListAll() ([]string, error)

	// Exists checks if a run exists in storage
	Exists(id string) bool
}

// persistedRun is the stored form of a run
type persistedRun struct {
	Version int          `json:"version"`
	Run     *service.Run `json:"run"`
}

const persistedVersion = 1
