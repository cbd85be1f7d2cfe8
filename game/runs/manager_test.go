package runs

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/pyramid-solver/game/engine"
	"github.com/wricardo/pyramid-solver/game/service"
)

func createTestRun(id string) *service.Run {
	return &service.Run{
		ID:       id,
		PuzzleID: "default",
		Puzzle:   engine.DefaultPuzzle(),
		Status:   service.StatusPending,
		Timeout:  time.Second,
	}
}

func TestManager_Create(t *testing.T) {
	manager := NewManager()

	t.Run("generated ID", func(t *testing.T) {
		run, err := manager.Create(createTestRun(""))
		if err != nil {
			t.Fatalf("Failed to create run: %v", err)
		}
		if len(run.ID) != 12 {
			t.Errorf("Expected 12-character ID, got '%s'", run.ID)
		}
		if run.CreatedAt.IsZero() || run.LastAccessedAt.IsZero() {
			t.Error("Expected timestamps to be set")
		}
	})

	t.Run("custom ID", func(t *testing.T) {
		run, err := manager.Create(createTestRun("Custom"))
		if err != nil {
			t.Fatalf("Failed to create run: %v", err)
		}
		if run.ID != "Custom" {
			t.Errorf("Expected ID 'Custom', got '%s'", run.ID)
		}
	})

	t.Run("duplicate ID is case-insensitive", func(t *testing.T) {
		if _, err := manager.Create(createTestRun("custom")); !errors.Is(err, ErrRunAlreadyExists) {
			t.Errorf("Expected ErrRunAlreadyExists, got %v", err)
		}
	})

	t.Run("invalid ID", func(t *testing.T) {
		if _, err := manager.Create(createTestRun("../x")); !errors.Is(err, ErrInvalidRunID) {
			t.Errorf("Expected ErrInvalidRunID, got %v", err)
		}
	})

	t.Run("input is copied", func(t *testing.T) {
		input := createTestRun("copied")
		if _, err := manager.Create(input); err != nil {
			t.Fatalf("Failed to create run: %v", err)
		}
		input.Status = service.StatusSolved

		stored, _ := manager.Get("copied")
		if stored.Status != service.StatusPending {
			t.Errorf("Stored run changed with caller's copy: %s", stored.Status)
		}
	})
}

func TestManager_GetAndUpdate(t *testing.T) {
	manager := NewManager()
	created, _ := manager.Create(createTestRun("abc"))

	got, err := manager.Get("ABC")
	if err != nil {
		t.Fatalf("Failed to get run: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("Expected %s, got %s", created.ID, got.ID)
	}

	finished := *got
	finished.Status = service.StatusSolved
	if err := manager.Update(&finished); err != nil {
		t.Fatalf("Failed to update run: %v", err)
	}

	got, _ = manager.Get("abc")
	if got.Status != service.StatusSolved {
		t.Errorf("Expected solved, got %s", got.Status)
	}

	if _, err := manager.Get("missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound, got %v", err)
	}
	if err := manager.Update(createTestRun("missing")); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound on update, got %v", err)
	}
}

func TestManager_ListAndDelete(t *testing.T) {
	manager := NewManager()
	for _, id := range []string{"r1", "r2", "r3"} {
		manager.Create(createTestRun(id))
	}

	if len(manager.List()) != 3 || manager.Count() != 3 {
		t.Fatalf("Expected 3 runs, got %d", manager.Count())
	}

	if err := manager.Delete("r2"); err != nil {
		t.Fatalf("Failed to delete run: %v", err)
	}
	if err := manager.Delete("r2"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound on second delete, got %v", err)
	}
	if err := manager.DeleteFromMemory("r1"); err != nil {
		t.Errorf("Failed to delete from memory: %v", err)
	}
	if manager.Count() != 1 {
		t.Errorf("Expected 1 run, got %d", manager.Count())
	}
}

func TestManager_UpdateLastAccessed(t *testing.T) {
	manager := NewManager()
	run := createTestRun("touch")
	run.LastAccessedAt = time.Now().Add(-time.Hour)
	manager.Create(run)

	before, _ := manager.Get("touch")
	if err := manager.UpdateLastAccessed("touch"); err != nil {
		t.Fatalf("Failed to update access time: %v", err)
	}
	after, _ := manager.Get("touch")

	if !after.LastAccessedAt.After(before.LastAccessedAt) {
		t.Error("Expected last accessed time to move forward")
	}
	if !before.LastAccessedAt.Before(time.Now().Add(-time.Minute)) {
		t.Error("Earlier copy should not have been modified")
	}
	if err := manager.UpdateLastAccessed("missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound, got %v", err)
	}
}

func TestManager_CleanupExpiredRuns(t *testing.T) {
	manager := NewManager()
	old := time.Now().Add(-2 * time.Hour)

	stale := createTestRun("stale")
	stale.Status = service.StatusSolved
	stale.LastAccessedAt = old
	manager.Create(stale)

	pending := createTestRun("pending")
	pending.LastAccessedAt = old
	manager.Create(pending)

	fresh := createTestRun("fresh")
	fresh.Status = service.StatusUnsolved
	manager.Create(fresh)

	if removed := manager.CleanupExpiredRuns(time.Hour); removed != 1 {
		t.Errorf("Expected 1 run removed, got %d", removed)
	}
	if _, err := manager.Get("stale"); !errors.Is(err, ErrRunNotFound) {
		t.Error("Expected stale run to be removed")
	}
	if _, err := manager.Get("pending"); err != nil {
		t.Error("Pending run should be kept")
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	manager := NewManager()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			run, err := manager.Create(createTestRun(""))
			if err != nil {
				t.Errorf("Concurrent create failed: %v", err)
				return
			}
			manager.UpdateLastAccessed(run.ID)
			manager.Get(strings.ToUpper(run.ID))
			manager.List()
		}()
	}
	wg.Wait()

	if manager.Count() != 50 {
		t.Errorf("Expected 50 runs, got %d", manager.Count())
	}
}
