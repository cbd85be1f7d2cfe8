package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/wricardo/pyramid-solver/game/engine"
	"github.com/wricardo/pyramid-solver/game/service"
)

var (
	ErrPuzzleNotFound = service.ErrPuzzleNotFound
	ErrInvalidPuzzle  = service.ErrInvalidPuzzle
)

// DefaultPuzzleName is the file preferred as the default puzzle
const DefaultPuzzleName = "default"

// Manager handles puzzle loading and caching
type Manager struct {
	puzzleDir     string
	defaultPuzzle *engine.PuzzleConfig
	puzzles       map[string]*engine.PuzzleConfig
	mu            sync.RWMutex
}

// NewManager creates a new puzzle manager
func NewManager(puzzleDir string) (*Manager, error) {
	// Ensure puzzle directory exists
	if _, err := os.Stat(puzzleDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("puzzle directory does not exist: %s", puzzleDir)
	}

	m := &Manager{
		puzzleDir: puzzleDir,
		puzzles:   make(map[string]*engine.PuzzleConfig),
	}

	m.loadDefaultPuzzle()
	return m, nil
}

// LoadPuzzle loads a puzzle by name
func (m *Manager) LoadPuzzle(name string) (*engine.PuzzleConfig, error) {
	name = strings.TrimSuffix(name, ".json")
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return nil, fmt.Errorf("%w: bad puzzle name %q", ErrPuzzleNotFound, name)
	}

	m.mu.RLock()
	// Check cache first
	if puzzle, exists := m.puzzles[name]; exists {
		m.mu.RUnlock()
		return puzzle, nil
	}
	m.mu.RUnlock()

	// Load from file
	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if puzzle, exists := m.puzzles[name]; exists {
		return puzzle, nil
	}

	data, err := os.ReadFile(m.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrPuzzleNotFound
		}
		return nil, fmt.Errorf("failed to read puzzle file: %w", err)
	}

	var puzzle engine.PuzzleConfig
	if err := json.Unmarshal(data, &puzzle); err != nil {
		return nil, fmt.Errorf("%w: failed to parse puzzle: %v", ErrInvalidPuzzle, err)
	}

	if err := engine.ValidatePuzzleConfig(&puzzle); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPuzzle, err)
	}

	m.puzzles[name] = &puzzle
	return &puzzle, nil
}

// ListPuzzles returns information about all valid puzzle files, sorted by id
func (m *Manager) ListPuzzles() ([]*service.PuzzleInfo, error) {
	entries, err := os.ReadDir(m.puzzleDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read puzzle directory: %w", err)
	}

	var puzzles []*service.PuzzleInfo

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		id := strings.TrimSuffix(entry.Name(), ".json")

		puzzle, err := m.LoadPuzzle(id)
		if err != nil {
			log.WithField("file", entry.Name()).Warnf("Warning: Skipping puzzle: %v", err)
			continue
		}

		puzzles = append(puzzles, &service.PuzzleInfo{
			Filename:    entry.Name(),
			PuzzleID:    id,
			Name:        puzzle.Name,
			Description: puzzle.Description,
			Rows:        len(puzzle.Rows),
			PileSize:    len(puzzle.Ground),
			Target:      puzzle.Target,
			CycleLimit:  puzzle.CycleLimit,
		})
	}

	sort.Slice(puzzles, func(i, j int) bool { return puzzles[i].PuzzleID < puzzles[j].PuzzleID })
	return puzzles, nil
}

// GetDefault returns the default puzzle
func (m *Manager) GetDefault() *engine.PuzzleConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultPuzzle
}

// SetDefault sets the default puzzle by name
func (m *Manager) SetDefault(name string) error {
	puzzle, err := m.LoadPuzzle(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultPuzzle = puzzle
	return nil
}

// RefreshCache drops cached puzzles and reloads the default from disk
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	m.puzzles = make(map[string]*engine.PuzzleConfig)
	m.mu.Unlock()

	m.loadDefaultPuzzle()
}

// SavePuzzle validates a puzzle and writes it to disk
func (m *Manager) SavePuzzle(name string, puzzle *engine.PuzzleConfig) error {
	if err := engine.ValidatePuzzleConfig(puzzle); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPuzzle, err)
	}

	name = strings.TrimSuffix(name, ".json")
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: bad puzzle name %q", ErrInvalidPuzzle, name)
	}

	data, err := json.MarshalIndent(puzzle, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal puzzle: %w", err)
	}

	if err := os.WriteFile(m.path(name), data, 0644); err != nil {
		return fmt.Errorf("failed to write puzzle file: %w", err)
	}

	// Update cache
	m.mu.Lock()
	m.puzzles[name] = puzzle.Clone()
	m.mu.Unlock()

	return nil
}

// loadDefaultPuzzle prefers default.json, then the first valid file, then
// the built-in reference deal.
func (m *Manager) loadDefaultPuzzle() {
	puzzle, err := m.LoadPuzzle(DefaultPuzzleName)
	if err != nil {
		puzzles, listErr := m.ListPuzzles()
		if listErr == nil && len(puzzles) > 0 {
			puzzle, err = m.LoadPuzzle(puzzles[0].PuzzleID)
		}
		if err != nil || puzzle == nil {
			log.WithField("dir", m.puzzleDir).Debug("No usable puzzle files, using the built-in deal")
			puzzle = engine.DefaultPuzzle()
		}
	}

	m.mu.Lock()
	m.defaultPuzzle = puzzle
	m.mu.Unlock()
}

func (m *Manager) path(name string) string {
	return filepath.Join(m.puzzleDir, name+".json")
}
