package runs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/pyramid-solver/game/service"
)

// FilePersistence implements RunPersistence with one JSON file per run
type FilePersistence struct {
	runsDir string
}

// NewFilePersistence creates a new file-based run persistence layer
func NewFilePersistence(runsDir string) (*FilePersistence, error) {
	// Create runs directory if it doesn't exist
	if err := os.MkdirAll(runsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create runs directory: %w", err)
	}

	return &FilePersistence{runsDir: runsDir}, nil
}

// Save persists a run to a JSON file
func (fp *FilePersistence) Save(run *service.Run) error {
	if run == nil {
		return fmt.Errorf("run cannot be nil")
	}
	if !validID(run.ID) {
		return ErrInvalidRunID
	}

	data, err := json.MarshalIndent(persistedRun{Version: persistedVersion, Run: run}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run data: %w", err)
	}

	// Write to a temp file first so readers never see a partial run
	path := fp.getFilePath(run.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write run file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write run file: %w", err)
	}

	return nil
}

// Load retrieves a run from a JSON file
func (fp *FilePersistence) Load(id string) (*service.Run, error) {
	if !validID(id) {
		return nil, ErrInvalidRunID
	}

	data, err := os.ReadFile(fp.getFilePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to read run file: %w", err)
	}

	return decodeRun(data)
}

// Delete removes a run file
func (fp *FilePersistence) Delete(id string) error {
	if !fp.Exists(id) {
		return ErrRunNotFound
	}

	if err := os.Remove(fp.getFilePath(id)); err != nil {
		return fmt.Errorf("failed to remove run file: %w", err)
	}

	return nil
}

// ListAll returns all persisted run IDs
func (fp *FilePersistence) ListAll() ([]string, error) {
	entries, err := os.ReadDir(fp.runsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read runs directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if strings.HasSuffix(name, ".json") {
			ids = append(ids, strings.TrimSuffix(name, ".json"))
		}
	}

	return ids, nil
}

// Exists checks if a run file exists
func (fp *FilePersistence) Exists(id string) bool {
	if !validID(id) {
		return false
	}
	_, err := os.Stat(fp.getFilePath(id))
	return err == nil
}

// getFilePath returns the full file path for a run ID
func (fp *FilePersistence) getFilePath(id string) string {
	return filepath.Join(fp.runsDir, fmt.Sprintf("%s.json", id))
}

// decodeRun parses a stored run, accepting both the versioned envelope and a bare run
func decodeRun(data []byte) (*service.Run, error) {
	var stored persistedRun
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run data: %w", err)
	}
	if stored.Run != nil {
		return stored.Run, nil
	}

	var run service.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run data: %w", err)
	}
	if run.ID == "" {
		return nil, fmt.Errorf("run data has no id")
	}
	return &run, nil
}

// validID rejects ids that could escape the storage namespace
func validID(id string) bool {
	return id != "" && !strings.ContainsAny(id, `/\:*?`) && !strings.Contains(id, "..")
}
