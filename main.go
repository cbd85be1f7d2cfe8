// Command pyramid-solver searches Pyramid solitaire deals for a winning
// sequence of moves.
//
// It supports three commands:
//  1. "serve" (default) – runs the HTTP server exposing the REST API, WebSocket run feed, and an /mcp HTTP endpoint
//  2. "mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//  3. "solve" – solves puzzles from the command line and prints their moves
//
// Flags control host/port, puzzle and run storage, logging, and optional
// ngrok tunneling for easy external access during development.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/pyramid-solver/api"
	"github.com/wricardo/pyramid-solver/game/config"
	"github.com/wricardo/pyramid-solver/game/runs"
	"github.com/wricardo/pyramid-solver/game/service"
	"github.com/wricardo/pyramid-solver/transport/mcp"
	"github.com/wricardo/pyramid-solver/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Pyramid Solver"
)

// Run store backends
const (
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// appConfig holds the settings shared by all commands
type appConfig struct {
	Host           string
	Port           int
	PuzzleDir      string
	RunsDir        string
	Store          string
	RedisURL       string
	RedisTTL       time.Duration
	RunRetention   time.Duration
	DefaultTimeout time.Duration
	MaxTimeout     time.Duration
	NgrokEnabled   bool
	NgrokAuth      string
	NgrokDomain    string
}

func (c appConfig) addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// newApp builds the command tree
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "pyramid-solver",
		Usage:   "Solve Pyramid solitaire deals",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "HTTP server host", Sources: cli.EnvVars("HOST")},
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "HTTP server port", Sources: cli.EnvVars("PORT")},
			&cli.StringFlag{Name: "puzzle-dir", Value: "configs", Usage: "Directory containing puzzle files", Sources: cli.EnvVars("PUZZLE_DIR")},
			&cli.StringFlag{Name: "runs-dir", Value: "runs", Usage: "Directory for stored runs (file store)", Sources: cli.EnvVars("RUNS_DIR")},
			&cli.StringFlag{Name: "store", Value: StoreFile, Usage: "Run store: file, redis or memory", Sources: cli.EnvVars("RUN_STORE")},
			&cli.StringFlag{Name: "redis-url", Value: "redis://localhost:6379/0", Usage: "Redis URL (redis store)", Sources: cli.EnvVars("REDIS_URL")},
			&cli.DurationFlag{Name: "redis-ttl", Value: 7 * 24 * time.Hour, Usage: "Expiry of runs stored in Redis (0 keeps them)"},
			&cli.DurationFlag{Name: "run-retention", Value: 24 * time.Hour, Usage: "Drop finished runs from memory after this long without access"},
			&cli.DurationFlag{Name: "default-timeout", Value: service.DefaultSolveTimeout, Usage: "Search time when a request sets none"},
			&cli.DurationFlag{Name: "max-timeout", Value: service.MaxSolveTimeout, Usage: "Upper bound for requested search time"},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging"},
			&cli.StringFlag{Name: "log-format", Value: "text", Usage: "Log format: text or json"},
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel", Sources: cli.EnvVars("NGROK_ENABLED")},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token", Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN")},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)", Sources: cli.EnvVars("NGROK_DOMAIN")},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			return ctx, setupLogging(cmd.Bool("debug"), cmd.String("log-format"))
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runHTTPServer(ctx, configFromCommand(cmd))
		},
		Commands: []*cli.Command{
			{
				Name:    "serve",
				Aliases: []string{"server", "http"},
				Usage:   "Run the HTTP server with REST API, WebSocket feed and MCP endpoint",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runHTTPServer(ctx, configFromCommand(cmd))
				},
			},
			{
				Name:    "mcp",
				Aliases: []string{"stdio-mcp", "mcp-stdio"},
				Usage:   "Run an MCP stdio server backed by the REST API",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runStdioMCPWithInternalServer(ctx, configFromCommand(cmd))
				},
			},
			solveCommand(),
		},
	}
}

// main loads .env, then runs the selected command
func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Warnf("Warning: Error loading .env file: %v", err)
		}
	} else {
		log.Debug("Loaded environment variables from .env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

// setupLogging configures the standard logrus logger. Logs go to stderr so
// the stdio MCP transport keeps stdout to itself.
func setupLogging(debug bool, format string) error {
	log.SetOutput(os.Stderr)
	if debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}

	switch format {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format %q (use text or json)", format)
	}
	return nil
}

func configFromCommand(cmd *cli.Command) appConfig {
	return appConfig{
		Host:           cmd.String("host"),
		Port:           int(cmd.Int("port")),
		PuzzleDir:      cmd.String("puzzle-dir"),
		RunsDir:        cmd.String("runs-dir"),
		Store:          cmd.String("store"),
		RedisURL:       cmd.String("redis-url"),
		RedisTTL:       cmd.Duration("redis-ttl"),
		RunRetention:   cmd.Duration("run-retention"),
		DefaultTimeout: cmd.Duration("default-timeout"),
		MaxTimeout:     cmd.Duration("max-timeout"),
		NgrokEnabled:   cmd.Bool("ngrok"),
		NgrokAuth:      cmd.String("ngrok-auth"),
		NgrokDomain:    cmd.String("ngrok-domain"),
	}
}

// services bundles everything a command needs
type services struct {
	solver      service.SolverService
	runs        *runs.Manager
	puzzles     *config.Manager
	persistence runs.RunPersistence
	close       func() error
}

// initializeServices wires the puzzle catalogue, the run store and the
// solver service. Notifiers are attached to every finished run.
func initializeServices(cfg appConfig, notifiers ...service.RunNotifier) (*services, error) {
	puzzles, err := config.NewManager(cfg.PuzzleDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create puzzle manager: %w", err)
	}

	persistence, closeStore, err := newRunPersistence(cfg)
	if err != nil {
		return nil, err
	}

	var manager *runs.Manager
	if persistence != nil {
		manager = runs.NewManagerWithPersistence(persistence)
		if err := manager.LoadPersistedRuns(); err != nil {
			log.Warnf("Warning: Failed to load persisted runs: %v", err)
		}
	} else {
		manager = runs.NewManager()
	}

	opts := []service.Option{service.WithTimeouts(cfg.DefaultTimeout, cfg.MaxTimeout)}
	for _, n := range notifiers {
		opts = append(opts, service.WithNotifier(n))
	}

	return &services{
		solver:      service.NewSolverService(manager, puzzles, opts...),
		runs:        manager,
		puzzles:     puzzles,
		persistence: persistence,
		close:       closeStore,
	}, nil
}

// newRunPersistence opens the configured run store. The memory store has
// no persistence layer.
func newRunPersistence(cfg appConfig) (runs.RunPersistence, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store {
	case "", StoreFile:
		fp, err := runs.NewFilePersistence(cfg.RunsDir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create run persistence: %w", err)
		}
		return fp, noop, nil

	case StoreRedis:
		rp, err := runs.NewRedisPersistence(cfg.RedisURL, runs.DefaultRedisPrefix, cfg.RedisTTL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create run persistence: %w", err)
		}
		log.WithField("url", cfg.RedisURL).Info("Storing runs in Redis")
		return rp, rp.Close, nil

	case StoreMemory:
		return nil, noop, nil
	}

	return nil, nil, fmt.Errorf("unknown run store %q (use file, redis or memory)", cfg.Store)
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled, it also provisions a public tunnel.
func runHTTPServer(ctx context.Context, cfg appConfig) error {
	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Stop()

	svcs, err := initializeServices(cfg, hub)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer svcs.close()

	apiServer := api.NewServer(svcs.solver, hub)

	addr := cfg.addr()
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", addr))

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", mcpHandler(mcpClient))

	httpServer := &http.Server{
		Addr:        addr,
		Handler:     mainRouter,
		ReadTimeout: 15 * time.Second,
		// Synchronous solves may take up to the maximum search time
		WriteTimeout: cfg.MaxTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go runCleanupRoutine(ctx, svcs.runs, cfg.RunRetention, time.Hour)
	if svcs.persistence != nil {
		go storeSyncRoutine(ctx, svcs.runs, svcs.persistence, 30*time.Second)
	}

	var wg sync.WaitGroup
	serverErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.WithFields(log.Fields{
			"addr":  addr,
			"store": cfg.Store,
		}).Infof("Starting %s v%s", AppName, Version)
		log.Infof("REST API: http://%s/api", addr)
		log.Infof("WebSocket: ws://%s/ws?puzzle=<puzzle_id|*>", addr)
		log.Infof("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
			cancel()
		}
	}()

	if cfg.NgrokEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrokTunnel(ctx, cfg, mainRouter)
		}()
	}

	<-ctx.Done()
	log.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warnf("HTTP server shutdown error: %v", err)
	}

	wg.Wait()

	// Let queued searches finish and record their results
	svcs.solver.Wait()
	if err := svcs.runs.SaveAllRuns(); err != nil {
		log.Warnf("Warning: %v", err)
	}

	log.Info("Server stopped")

	select {
	case err := <-serverErr:
		return fmt.Errorf("HTTP server failed: %w", err)
	default:
		return nil
	}
}

// mcpHandler serves single JSON-RPC MCP messages over HTTP POST
func mcpHandler(mcpClient *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// runNgrokTunnel serves handler through an ngrok endpoint until ctx ends
func runNgrokTunnel(ctx context.Context, cfg appConfig, handler http.Handler) {
	if cfg.NgrokAuth == "" {
		log.Warn("WARNING: Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	log.Info("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if cfg.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.NgrokDomain))
		log.Infof("Using custom ngrok domain: %s", cfg.NgrokDomain)
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.NgrokAuth))
	if err != nil {
		log.Errorf("Failed to start ngrok tunnel: %v", err)
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Warnf("Failed to close ngrok tunnel: %v", err)
		}
	}()

	ngrokURL := tun.URL()
	log.Infof("🚀 Ngrok tunnel established: %s", ngrokURL)
	log.Infof("  REST API (ngrok): %s/api", ngrokURL)
	log.Infof("  WebSocket (ngrok): %s/ws", ngrokURL)
	log.Infof("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.Warnf("Ngrok server error: %v", err)
	}
	log.Info("Ngrok tunnel closed")
}

// runCleanupRoutine periodically drops finished runs that have not been
// accessed within the retention window.
func runCleanupRoutine(ctx context.Context, manager *runs.Manager, retention, every time.Duration) {
	if retention <= 0 {
		return
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredRuns(retention); removed > 0 {
				log.WithField("removed", removed).Info("Cleaned up expired runs")
			}
		}
	}
}

// storeSyncRoutine removes runs from memory once their stored copy is gone,
// whether deleted by hand or expired by the store.
func storeSyncRoutine(ctx context.Context, manager *runs.Manager, persistence runs.RunPersistence, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if pruned := pruneMissingRuns(manager, persistence); pruned > 0 {
				log.WithField("pruned", pruned).Info("Store sync: pruned runs missing from storage")
			}
		}
	}
}

// pruneMissingRuns drops finished in-memory runs with no stored copy
func pruneMissingRuns(manager *runs.Manager, persistence runs.RunPersistence) int {
	pruned := 0
	for _, run := range manager.List() {
		if !run.Finished() || persistence.Exists(run.ID) {
			continue
		}
		if err := manager.DeleteFromMemory(run.ID); err == nil {
			pruned++
			log.WithField("run", run.ID).Debug("Pruned run from memory (stored copy missing)")
		}
	}
	return pruned
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It tries to reuse an external API at the configured address; if unavailable, it
// starts a minimal internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(ctx context.Context, cfg appConfig) error {
	externalURL := fmt.Sprintf("http://%s", cfg.addr())
	baseURL := externalURL

	log.Infof("Checking for external API server at %s...", externalURL)

	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(externalURL + "/api/health")
	if err == nil && resp.StatusCode < 500 {
		resp.Body.Close()
		log.Infof("External API server found at %s, using it for MCP", externalURL)
	} else {
		log.Info("No external API server found, starting internal HTTP server")

		svcs, err := initializeServices(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}
		defer svcs.close()

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		internalAddr := listener.Addr().String()
		log.Infof("Starting internal HTTP server on %s for MCP stdio", internalAddr)

		httpServer := &http.Server{Handler: api.NewServer(svcs.solver, nil)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("Internal HTTP server error: %v", err)
			}
		}()
		defer httpServer.Close()

		baseURL = fmt.Sprintf("http://%s", internalAddr)
	}

	mcpClient := mcp.NewClient(baseURL)
	log.WithField("api", baseURL).Info("MCP stdio server ready")

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
