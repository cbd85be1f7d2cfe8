package runs

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/wricardo/pyramid-solver/game/service"
)

var (
	ErrRunNotFound      = service.ErrRunNotFound
	ErrRunAlreadyExists = errors.New("run already exists")
	ErrInvalidRunID     = errors.New("invalid run ID")
)

// Manager keeps runs in memory and mirrors them to an optional persistence
// layer. Runs are stored and returned as copies, so callers never share a
// record with the store.
type Manager struct {
	runs        map[string]*service.Run
	persistence RunPersistence
	mu          sync.RWMutex
}

// NewManager creates a memory-only run manager
func NewManager() *Manager {
	return &Manager{
		runs: make(map[string]*service.Run),
	}
}

// NewManagerWithPersistence creates a run manager backed by persistence
func NewManagerWithPersistence(persistence RunPersistence) *Manager {
	return &Manager{
		runs:        make(map[string]*service.Run),
		persistence: persistence,
	}
}

// Create stores a new run, assigning an ID when it has none
func (m *Manager) Create(run *service.Run) (*service.Run, error) {
	if run == nil {
		return nil, fmt.Errorf("run cannot be nil")
	}

	stored := *run
	if stored.ID == "" {
		stored.ID = generateRunID()
	}
	if !validID(stored.ID) {
		return nil, ErrInvalidRunID
	}

	now := time.Now()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	if stored.LastAccessedAt.IsZero() {
		stored.LastAccessedAt = now
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(stored.ID)
	if _, exists := m.runs[key]; exists {
		return nil, ErrRunAlreadyExists
	}
	m.runs[key] = &stored

	m.persist(&stored, "creation")

	out := stored
	return &out, nil
}

// Get retrieves a run by ID (case-insensitive), loading it from persistence
// when it is not in memory
func (m *Manager) Get(id string) (*service.Run, error) {
	m.mu.RLock()
	run, exists := m.runs[strings.ToLower(id)]
	m.mu.RUnlock()

	if exists {
		out := *run
		return &out, nil
	}

	if m.persistence != nil && m.persistence.Exists(id) {
		loaded, err := m.persistence.Load(id)
		if err != nil {
			return nil, fmt.Errorf("failed to load persisted run: %w", err)
		}

		m.mu.Lock()
		m.runs[strings.ToLower(loaded.ID)] = loaded
		m.mu.Unlock()

		out := *loaded
		return &out, nil
	}

	return nil, ErrRunNotFound
}

// List returns copies of all runs held in memory
func (m *Manager) List() []*service.Run {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Run, 0, len(m.runs))
	for _, run := range m.runs {
		out := *run
		result = append(result, &out)
	}

	return result
}

// Update replaces a stored run with a copy of run
func (m *Manager) Update(run *service.Run) error {
	if run == nil {
		return fmt.Errorf("run cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(run.ID)
	if _, exists := m.runs[key]; !exists {
		return ErrRunNotFound
	}

	stored := *run
	m.runs[key] = &stored
	m.persist(&stored, "update")

	return nil
}

// Delete removes a run from memory and persistence
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(id)
	_, inMemory := m.runs[key]
	delete(m.runs, key)

	if m.persistence != nil && m.persistence.Exists(id) {
		if err := m.persistence.Delete(id); err != nil {
			return fmt.Errorf("failed to delete persisted run: %w", err)
		}
		return nil
	}

	if !inMemory {
		return ErrRunNotFound
	}

	return nil
}

// DeleteFromMemory removes a run from memory only (not from persistence)
func (m *Manager) DeleteFromMemory(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(id)
	if _, exists := m.runs[key]; !exists {
		return ErrRunNotFound
	}
	delete(m.runs, key)
	return nil
}

// UpdateLastAccessed updates the last accessed time for a run
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(id)
	run, exists := m.runs[key]
	if !exists {
		return ErrRunNotFound
	}

	touched := *run
	touched.LastAccessedAt = time.Now()
	m.runs[key] = &touched
	m.persist(&touched, "access update")

	return nil
}

// Save writes a specific run to persistence
func (m *Manager) Save(id string) error {
	if m.persistence == nil {
		return nil
	}

	m.mu.RLock()
	run, exists := m.runs[strings.ToLower(id)]
	m.mu.RUnlock()
	if !exists {
		return ErrRunNotFound
	}

	return m.persistence.Save(run)
}

// CleanupExpiredRuns drops finished runs not accessed within maxAge from
// memory. Pending runs are kept. Persisted copies are left alone.
func (m *Manager) CleanupExpiredRuns(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for key, run := range m.runs {
		if run.Finished() && run.LastAccessedAt.Before(cutoff) {
			delete(m.runs, key)
			removed++
		}
	}

	return removed
}

// Count returns the number of runs in memory
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.runs)
}

// LoadPersistedRuns loads all persisted runs into memory
func (m *Manager) LoadPersistedRuns() error {
	if m.persistence == nil {
		return nil
	}

	ids, err := m.persistence.ListAll()
	if err != nil {
		return fmt.Errorf("failed to list persisted runs: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	loaded := 0
	for _, id := range ids {
		if _, exists := m.runs[strings.ToLower(id)]; exists {
			continue
		}

		run, err := m.persistence.Load(id)
		if err != nil {
			log.WithField("run", id).Warnf("Warning: Failed to load persisted run: %v", err)
			continue
		}

		m.runs[strings.ToLower(run.ID)] = run
		loaded++
	}

	if loaded > 0 {
		log.Infof("Loaded %d persisted runs from storage", loaded)
	}

	return nil
}

// SaveAllRuns writes every in-memory run to persistence
func (m *Manager) SaveAllRuns() error {
	if m.persistence == nil {
		return nil
	}

	m.mu.RLock()
	runs := make([]*service.Run, 0, len(m.runs))
	for _, run := range m.runs {
		runs = append(runs, run)
	}
	m.mu.RUnlock()

	errorCount := 0
	for _, run := range runs {
		if err := m.persistence.Save(run); err != nil {
			log.WithField("run", run.ID).Warnf("Warning: Failed to save run: %v", err)
			errorCount++
		}
	}

	if errorCount > 0 {
		return fmt.Errorf("failed to save %d runs", errorCount)
	}

	return nil
}

// persist saves run when persistence is configured. Failures are logged and
// do not fail the caller. Must be called with m.mu held.
func (m *Manager) persist(run *service.Run, op string) {
	if m.persistence == nil {
		return
	}
	if err := m.persistence.Save(run); err != nil {
		log.WithFields(log.Fields{
			"run": run.ID,
			"op":  op,
		}).Warnf("Warning: Failed to persist run: %v", err)
	}
}

// generateRunID returns a short random run ID
func generateRunID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
