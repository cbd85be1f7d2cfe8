package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/pyramid-solver/game/runs"
	"github.com/wricardo/pyramid-solver/game/service"
	"github.com/wricardo/pyramid-solver/transport/mcp"
)

const (
	kingPuzzle = `{
  "name": "king",
  "description": "A lone king",
  "target": 13,
  "cycle_limit": 3,
  "rows": [[13]],
  "ground": []
}`
	stuckPuzzle = `{
  "name": "stuck",
  "description": "A five with no partner",
  "target": 13,
  "cycle_limit": 3,
  "rows": [[5]],
  "ground": []
}`
)

// writePuzzles creates a puzzle directory holding the king and stuck deals
func writePuzzles(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "king.json"), []byte(kingPuzzle), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stuck.json"), []byte(stuckPuzzle), 0644))
	return dir
}

func testConfig(t *testing.T) appConfig {
	t.Helper()
	return appConfig{
		Host:           "localhost",
		Port:           8080,
		PuzzleDir:      writePuzzles(t),
		RunsDir:        filepath.Join(t.TempDir(), "runs"),
		Store:          StoreMemory,
		DefaultTimeout: 5 * time.Second,
		MaxTimeout:     10 * time.Second,
	}
}

func TestConstants(t *testing.T) {
	assert.Equal(t, "1.0.0", Version)
	assert.Equal(t, "Pyramid Solver", AppName)
}

func TestInitializeServices(t *testing.T) {
	t.Run("memory store", func(t *testing.T) {
		svcs, err := initializeServices(testConfig(t))
		require.NoError(t, err)
		defer svcs.close()

		assert.NotNil(t, svcs.solver)
		assert.NotNil(t, svcs.runs)
		assert.NotNil(t, svcs.puzzles)
		assert.Nil(t, svcs.persistence)
	})

	t.Run("file store", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Store = StoreFile

		svcs, err := initializeServices(cfg)
		require.NoError(t, err)
		defer svcs.close()

		require.NotNil(t, svcs.persistence)
		assert.DirExists(t, cfg.RunsDir)
	})

	t.Run("invalid puzzle dir", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.PuzzleDir = "/non/existent/path"

		_, err := initializeServices(cfg)
		assert.Error(t, err)
	})

	t.Run("unknown store", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Store = "tape"

		_, err := initializeServices(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown run store")
	})
}

func TestInitializeServices_PersistsRuns(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store = StoreFile

	svcs, err := initializeServices(cfg)
	require.NoError(t, err)

	run, err := svcs.solver.Solve(context.Background(), service.SolveRequest{PuzzleID: "king"})
	require.NoError(t, err)
	assert.Equal(t, service.StatusSolved, run.Status)
	assert.FileExists(t, filepath.Join(cfg.RunsDir, run.ID+".json"))

	// A fresh start picks the run up from disk
	restarted, err := initializeServices(cfg)
	require.NoError(t, err)
	got, err := restarted.solver.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.MoveCount, got.MoveCount)
}

// captureConfig runs the app with args and returns the config the root
// action saw.
func captureConfig(t *testing.T, args ...string) appConfig {
	t.Helper()

	for _, key := range []string{"HOST", "PORT", "PUZZLE_DIR", "RUNS_DIR", "RUN_STORE", "REDIS_URL", "NGROK_ENABLED", "NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN", "NGROK_DOMAIN"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	var got appConfig
	app := newApp()
	app.Action = func(ctx context.Context, cmd *cli.Command) error {
		got = configFromCommand(cmd)
		return nil
	}

	require.NoError(t, app.Run(context.Background(), append([]string{"pyramid-solver"}, args...)))
	return got
}

func TestFlagDefaults(t *testing.T) {
	cfg := captureConfig(t)

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "configs", cfg.PuzzleDir)
	assert.Equal(t, "runs", cfg.RunsDir)
	assert.Equal(t, StoreFile, cfg.Store)
	assert.Equal(t, service.DefaultSolveTimeout, cfg.DefaultTimeout)
	assert.Equal(t, service.MaxSolveTimeout, cfg.MaxTimeout)
	assert.Equal(t, 24*time.Hour, cfg.RunRetention)
	assert.False(t, cfg.NgrokEnabled)
}

func TestFlagOverrides(t *testing.T) {
	cfg := captureConfig(t,
		"--host", "0.0.0.0",
		"--port", "9090",
		"--store", "redis",
		"--redis-url", "redis://cache:6379/2",
		"--puzzle-dir", "/srv/puzzles",
	)

	assert.Equal(t, "0.0.0.0:9090", cfg.addr())
	assert.Equal(t, StoreRedis, cfg.Store)
	assert.Equal(t, "redis://cache:6379/2", cfg.RedisURL)
	assert.Equal(t, "/srv/puzzles", cfg.PuzzleDir)
}

func TestSetupLogging(t *testing.T) {
	defer func() {
		log.SetLevel(log.InfoLevel)
		log.SetFormatter(&log.TextFormatter{})
	}()

	require.NoError(t, setupLogging(true, "json"))
	assert.Equal(t, log.DebugLevel, log.GetLevel())
	assert.IsType(t, &log.JSONFormatter{}, log.StandardLogger().Formatter)

	require.NoError(t, setupLogging(false, "text"))
	assert.Equal(t, log.InfoLevel, log.GetLevel())
	assert.IsType(t, &log.TextFormatter{}, log.StandardLogger().Formatter)

	assert.Error(t, setupLogging(false, "xml"))
}

func TestMCPHandler(t *testing.T) {
	handler := mcpHandler(mcp.NewClient("http://localhost:0"))

	t.Run("rejects GET", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest(http.MethodGet, "/mcp", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})

	t.Run("answers ping", func(t *testing.T) {
		body := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)
		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest(http.MethodPost, "/mcp", body))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Body.String(), `"jsonrpc":"2.0"`)
	})
}

func TestPruneMissingRuns(t *testing.T) {
	persistence, err := runs.NewFilePersistence(t.TempDir())
	require.NoError(t, err)
	manager := runs.NewManagerWithPersistence(persistence)

	now := time.Now()
	finished, err := manager.Create(&service.Run{ID: "done", Status: service.StatusSolved, FinishedAt: &now})
	require.NoError(t, err)
	_, err = manager.Create(&service.Run{ID: "waiting", Status: service.StatusPending})
	require.NoError(t, err)

	assert.Equal(t, 0, pruneMissingRuns(manager, persistence))

	require.NoError(t, persistence.Delete(finished.ID))
	require.NoError(t, persistence.Delete("waiting"))

	assert.Equal(t, 1, pruneMissingRuns(manager, persistence))
	assert.Equal(t, 1, manager.Count())

	_, err = manager.Get("waiting")
	assert.NoError(t, err)
}

func TestSolvePuzzles(t *testing.T) {
	cfg := testConfig(t)
	svcs, err := initializeServices(cfg)
	require.NoError(t, err)

	targets := []string{
		"king",
		filepath.Join(cfg.PuzzleDir, "stuck.json"),
		"missing",
	}

	results, err := solvePuzzles(context.Background(), svcs.solver, targets, solveOptions{
		Parallel:   2,
		CycleLimit: -1,
		Timeout:    5 * time.Second,
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	require.NoError(t, results[0].Err)
	assert.Equal(t, "king", results[0].Target)
	assert.True(t, results[0].Run.Solved)
	assert.Equal(t, 1, results[0].Run.MoveCount)

	require.NoError(t, results[1].Err)
	assert.Equal(t, service.StatusUnsolved, results[1].Run.Status)
	assert.Equal(t, "inline", results[1].Run.PuzzleID)

	assert.ErrorIs(t, results[2].Err, service.ErrPuzzleNotFound)

	assert.Equal(t, 2, countUnsolved(results))
}

func TestSolvePuzzles_CycleLimitOverride(t *testing.T) {
	svcs, err := initializeServices(testConfig(t))
	require.NoError(t, err)

	results, err := solvePuzzles(context.Background(), svcs.solver, []string{"king.json"}, solveOptions{
		CycleLimit: 0,
		Timeout:    time.Second,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	assert.Equal(t, 0, results[0].Run.Puzzle.CycleLimit)
}

func TestSolvePuzzles_Cancelled(t *testing.T) {
	svcs, err := initializeServices(testConfig(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = solvePuzzles(ctx, svcs.solver, []string{"king"}, solveOptions{Parallel: 1, CycleLimit: -1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPrintSolveResults(t *testing.T) {
	svcs, err := initializeServices(testConfig(t))
	require.NoError(t, err)

	results, err := solvePuzzles(context.Background(), svcs.solver, []string{"king", "missing"}, solveOptions{CycleLimit: -1})
	require.NoError(t, err)

	var buf bytes.Buffer
	printSolveResults(&buf, results, true)
	out := buf.String()

	assert.Contains(t, out, "== king: solved (1 moves, 1 removals")
	assert.Contains(t, out, "row 0: K")
	assert.Contains(t, out, "   1. remove K from row 0")
	assert.Contains(t, out, "== missing: error:")
}
