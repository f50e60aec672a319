package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/meshguard/meshguard/pkg/events"
	"github.com/meshguard/meshguard/pkg/guardian"
	"github.com/meshguard/meshguard/pkg/log"
	"github.com/rs/zerolog"
)

// recentEventLimit bounds the ring of events kept for GET /v1/events
const recentEventLimit = 256

// Server exposes the guardian's read-only snapshot and control surface
// over HTTP.
type Server struct {
	guardian *guardian.Guardian
	broker   *events.Broker

	mu     sync.RWMutex
	recent []*events.Event
	sub    events.Subscriber

	http   *http.Server
	logger zerolog.Logger
}

// NewServer creates an admin API server bound to addr
func NewServer(g *guardian.Guardian, broker *events.Broker, addr string) *Server {
	s := &Server{
		guardian: g,
		broker:   broker,
		logger:   log.WithComponent("api"),
	}

	r := chi.NewRouter()
	r.Get("/v1/state", s.handleState)
	r.Get("/v1/nodes", s.handleNodes)
	r.Get("/v1/nodes/{nodeID}", s.handleNode)
	r.Post("/v1/active", s.handleSetActive)
	r.Post("/v1/nodes/{nodeID}/restart", s.handleForceRestart)
	r.Get("/v1/events", s.handleEvents)

	s.http = &http.Server{Addr: addr, Handler: r}
	return s
}

// Start begins serving and collecting events. It blocks until the
// listener fails or Stop is called.
func (s *Server) Start() error {
	if s.broker != nil {
		s.sub = s.broker.Subscribe()
		go s.collectEvents()
	}

	s.logger.Info().Str("addr", s.http.Addr).Msg("admin API listening")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("admin API server: %w", err)
	}
	return nil
}

// Stop gracefully shuts the server down
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.http.Shutdown(ctx)

	if s.broker != nil && s.sub != nil {
		s.broker.Unsubscribe(s.sub)
	}
}

// collectEvents keeps the bounded ring of recent events
func (s *Server) collectEvents() {
	for event := range s.sub {
		s.mu.Lock()
		s.recent = append(s.recent, event)
		if len(s.recent) > recentEventLimit {
			s.recent = s.recent[len(s.recent)-recentEventLimit:]
		}
		s.mu.Unlock()
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, s.guardian.Snapshot())
}

func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, s.guardian.Snapshot().Nodes)
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "nodeID")
	for _, node := range s.guardian.Snapshot().Nodes {
		if node.ID == nodeID {
			writeJSONResponse(w, node)
			return
		}
	}
	writeErrorResponse(w, http.StatusNotFound, fmt.Sprintf("unknown node: %s", nodeID))
}

func (s *Server) handleSetActive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.guardian.SetActive(req.Active)
	writeJSONResponse(w, map[string]bool{"active": req.Active})
}

func (s *Server) handleForceRestart(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "nodeID")

	decision, err := s.guardian.ForceRestart(nodeID)
	if err != nil {
		writeErrorResponse(w, http.StatusNotFound, err.Error())
		return
	}

	if decision.Action != guardian.ActionRestart {
		writeErrorResponse(w, http.StatusConflict, fmt.Sprintf("restart refused: %s", decision.Reason))
		return
	}
	writeJSONResponse(w, map[string]string{"token": decision.Token})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	out := make([]*events.Event, len(s.recent))
	copy(out, s.recent)
	s.mu.RUnlock()

	writeJSONResponse(w, out)
}

// writeJSONResponse writes a successful JSON response
func writeJSONResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": data}); err != nil {
		log.Logger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error JSON response
func writeErrorResponse(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"error": message}); err != nil {
		log.Logger.Error().Err(err).Msg("Failed to encode error response")
	}
}
