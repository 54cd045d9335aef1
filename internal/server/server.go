// internal/server/server.go

// Package server exposes the coordinator over HTTP and streams agent updates
// over a WebSocket. It is a thin shell: all agent semantics live in the
// coordinator.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/hexblade/pagepilot/api/schemas"
	"github.com/hexblade/pagepilot/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	writeWait      = 10 * time.Second
	pingPeriod     = 30 * time.Second
	requestTimeout = 60 * time.Second
)

// Coordinator is the agent surface the server exposes.
type Coordinator interface {
	Create(ctx context.Context, req schemas.CreateAgentRequest) (schemas.AgentSnapshot, error)
	List() []schemas.AgentSnapshot
	Get(id string) (schemas.AgentSnapshot, bool)
	Cancel(id string) error
	Subscribe() (<-chan schemas.AgentUpdate, func())
}

// Server serves the coordinator API.
type Server struct {
	cfg      config.ServerConfig
	coord    Coordinator
	logger   *zap.Logger
	upgrader websocket.Upgrader
	httpSrv  *http.Server
}

// New creates a Server.
func New(cfg config.ServerConfig, coord Coordinator, logger *zap.Logger) *Server {
	return &Server{
		cfg:    cfg,
		coord:  coord,
		logger: logger.Named("server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The server binds to loopback; the extension popup connects
			// with an extension origin, so origin checking is not useful.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Router builds the HTTP routing tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", s.handleHealthz)
	r.Route("/agents", func(r chi.Router) {
		r.Post("/", s.handleCreateAgent)
		r.Get("/", s.handleListAgents)
		r.Get("/{agentID}", s.handleAgentDetails)
		r.Delete("/{agentID}", s.handleCancelAgent)
	})
	r.Get("/ws", s.handleWebSocket)
	return r
}

// Start runs the server until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening.", zap.String("addr", s.cfg.Addr))
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpSrv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	var req schemas.CreateAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	agent, err := s.coord.Create(r.Context(), req)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "id": agent.ID, "agent": agent})
}

func (s *Server) handleListAgents(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"ok": true, "agents": s.coord.List()})
}

func (s *Server) handleAgentDetails(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "agentID")
	agent, ok := s.coord.Get(id)
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown agent")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"ok": true, "agent": agent})
}

func (s *Server) handleCancelAgent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "agentID")
	if err := s.coord.Cancel(id); err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleWebSocket streams agent updates until the client disconnects.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed.", zap.Error(err))
		return
	}
	defer conn.Close()

	updates, unsubscribe := s.coord.Subscribe()
	defer unsubscribe()

	// Reader goroutine: its only job is to notice the peer going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(update); err != nil {
				s.logger.Debug("WebSocket write failed.", zap.Error(err))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("Failed to write response.", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{"ok": false, "error": message})
}
