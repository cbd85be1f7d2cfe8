package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/wricardo/pyramid-solver/game/engine"
	"github.com/wricardo/pyramid-solver/game/service"
	"github.com/wricardo/pyramid-solver/transport/websocket"
)

// maxBodyBytes caps JSON request bodies
const maxBodyBytes = 1 << 20

// Server represents the REST API server
type Server struct {
	service service.SolverService
	hub     *websocket.Hub
	router  *mux.Router
}

// NewServer creates a new API server. hub may be nil, in which case /ws is
// not served.
func NewServer(solverService service.SolverService, hub *websocket.Hub) *Server {
	s := &Server{
		service: solverService,
		hub:     hub,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(logRequests)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, fmt.Sprintf("Method %s not allowed on %s", r.Method, r.URL.Path))
	})

	// Keep every route on this router so a method mismatch answers 405

	// Runs
	s.router.HandleFunc("/api/runs", s.handleCreateRun).Methods("POST")
	s.router.HandleFunc("/api/runs", s.handleListRuns).Methods("GET")
	s.router.HandleFunc("/api/runs/{id}", s.handleGetRun).Methods("GET")
	s.router.HandleFunc("/api/runs/{id}", s.handleDeleteRun).Methods("DELETE")
	s.router.HandleFunc("/api/runs/{id}/moves", s.handleGetMoves).Methods("GET")

	// Puzzles
	s.router.HandleFunc("/api/puzzles", s.handleListPuzzles).Methods("GET")
	s.router.HandleFunc("/api/puzzles", s.handleCreatePuzzle).Methods("POST")
	s.router.HandleFunc("/api/puzzles/{name}", s.handleGetPuzzle).Methods("GET")

	s.router.HandleFunc("/api/health", s.handleHealth).Methods("GET")

	if s.hub != nil {
		s.router.HandleFunc("/ws", s.handleWebSocket)
	}
}

// Router exposes the underlying router so callers can mount extra handlers
func (s *Server) Router() *mux.Router {
	return s.router
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service errors to status codes
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrRunNotFound), errors.Is(err, service.ErrPuzzleNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidPuzzle), errors.Is(err, service.ErrInvalidRequest):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// Run Handlers

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req service.SolveRequest
	if r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	if req.Async {
		run, err := s.service.Submit(r.Context(), req)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusAccepted, run)
		return
	}

	run, err := s.service.Solve(r.Context(), req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, run)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	opts := service.ListOptions{
		Sort:   query.Get("sort"),
		Order:  query.Get("order"),
		Status: service.RunStatus(query.Get("status")),
	}

	if opts.Sort == "" {
		opts.Sort = "created"
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}

	runs, err := s.service.ListRuns(r.Context(), opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(runs),
		"runs":  runs,
		"sort":  opts.Sort,
		"order": opts.Order,
	})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	run, err := s.service.GetRun(r.Context(), runID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, run)
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	if err := s.service.DeleteRun(r.Context(), runID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Run %s deleted", runID),
	})
}

func (s *Server) handleGetMoves(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	opts := service.HistoryOptions{
		Page:  1,
		Limit: 20,
		Order: "asc",
	}

	query := r.URL.Query()
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			opts.Page = p
		}
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}

	if order := query.Get("order"); order == "asc" || order == "desc" {
		opts.Order = order
	}

	moves, err := s.service.GetRunMoves(r.Context(), runID, opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, moves)
}

// Puzzle Handlers

func (s *Server) handleListPuzzles(w http.ResponseWriter, r *http.Request) {
	puzzles, err := s.service.ListPuzzles(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, puzzles)
}

func (s *Server) handleGetPuzzle(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSuffix(mux.Vars(r)["name"], ".json")

	puzzle, err := s.service.LoadPuzzle(r.Context(), name)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, puzzle)
}

func (s *Server) handleCreatePuzzle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
		engine.PuzzleConfig
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id := req.ID
	if id == "" {
		id = req.Name
	}
	if id == "" {
		respondError(w, http.StatusBadRequest, "Puzzle id or name is required")
		return
	}

	puzzle := req.PuzzleConfig
	if err := s.service.SavePuzzle(r.Context(), id, &puzzle); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":   "Puzzle saved successfully",
		"puzzle_id": id,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("puzzle")
	if topic == "" {
		topic = websocket.AllPuzzles
	}

	if topic != websocket.AllPuzzles {
		if _, err := s.service.LoadPuzzle(r.Context(), topic); err != nil {
			http.Error(w, "Unknown puzzle", http.StatusNotFound)
			return
		}
	}

	s.hub.ServeWS(w, r, topic)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// statusRecorder captures the response status for request logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// logRequests logs one line per API request
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Hijacked websocket connections must see the original writer
		if r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start),
		}).Debug("HTTP request")
	})
}
