// Package api provides the HTTP API server for StreakForge.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/streakforge/streakforge/internal/core"
	"github.com/streakforge/streakforge/internal/engine"
	"github.com/streakforge/streakforge/internal/notify"
	"github.com/streakforge/streakforge/internal/risk"
	"github.com/streakforge/streakforge/internal/snapshot"
)

// Server is the HTTP API server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server

	engine       *engine.Engine
	notifier     *notify.Service
	snapshotPath string
	wsHub        *WebSocketHub

	startedAt time.Time
}

// Config for the server
type Config struct {
	Host         string
	Port         int
	Engine       *engine.Engine
	Notifier     *notify.Service
	SnapshotPath string
}

// New creates a new API server
func New(cfg Config) *Server {
	s := &Server{
		engine:       cfg.Engine,
		notifier:     cfg.Notifier,
		snapshotPath: cfg.SnapshotPath,
		wsHub:        NewWebSocketHub(),
		startedAt:    time.Now().UTC(),
	}

	s.setupRouter()

	// Feed live announcements into the websocket hub
	if s.notifier != nil {
		s.notifier.Subscribe(newHubSubscriber(s.wsHub))
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRouter configures all routes
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Catalog
		r.Get("/badges", s.handleGetBadges)

		// Users
		r.Get("/users/{handle}/badges", s.handleGetUserBadges)

		// Leaderboard
		r.Get("/leaderboard", s.handleGetLeaderboard)

		// Celebrations
		r.Get("/celebrations/pending", s.handleGetPendingCelebrations)
		r.Post("/celebrations/{handle}/{badge}/ack", s.handleAckCelebration)

		// Cohort health
		r.Get("/health", s.handleGetHealth)

		// Status
		r.Get("/status", s.handleGetStatus)

		// Evaluation cycle
		r.Post("/check", s.handleRunCheck)
	})

	// WebSocket: live celebration feed
	r.Get("/ws/celebrations", s.handleWebSocket)

	s.router = r
}

// Start starts the HTTP server
func (s *Server) Start() error {
	// Start WebSocket hub
	go s.wsHub.Run()

	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Broadcast sends a message to all WebSocket clients
func (s *Server) Broadcast(msgType string, data interface{}) {
	s.wsHub.Broadcast(WebSocketMessage{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

// --- Response helpers ---

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// --- Handlers ---

func (s *Server) handleGetBadges(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"badges": s.engine.Catalog().All(),
	})
}

func (s *Server) handleGetUserBadges(w http.ResponseWriter, r *http.Request) {
	handle := core.Handle(chi.URLParam(r, "handle"))

	records := s.engine.Ledger().Records(handle)
	points := s.engine.Ledger().TotalPoints(handle)

	resp := map[string]interface{}{
		"user":   handle,
		"badges": records,
		"points": points,
		"rank":   engine.Rank(points),
	}

	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"leaderboard": s.engine.Leaderboard(),
	})
}

func (s *Server) handleGetPendingCelebrations(w http.ResponseWriter, r *http.Request) {
	anns, err := s.engine.PendingAnnouncements(r.Context(), s.engine.Ledger().Users())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if anns == nil {
		anns = []core.Announcement{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"pending": anns,
	})
}

func (s *Server) handleAckCelebration(w http.ResponseWriter, r *http.Request) {
	handle := core.Handle(chi.URLParam(r, "handle"))
	badgeID := chi.URLParam(r, "badge")

	if err := s.engine.Celebrate(r.Context(), handle, badgeID); err != nil {
		if errors.Is(err, core.ErrBadgeNotFound) {
			s.respondError(w, http.StatusNotFound, "no such award")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"status": "celebrated"})
}

func (s *Server) handleGetHealth(w http.ResponseWriter, r *http.Request) {
	snaps, err := snapshot.Load(s.snapshotPath)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	now := time.Now().UTC()
	atRisk := s.engine.AtRisk(snaps, now, risk.BucketMedium)
	if atRisk == nil {
		atRisk = []risk.Assessment{}
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"community_health": s.engine.Health(snaps, now),
		"at_risk":          atRisk,
		"users":            len(snaps),
	})
}

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int(time.Since(s.startedAt).Seconds()),
		"badges_defined": s.engine.Catalog().Len(),
		"badges_awarded": s.engine.Ledger().TotalAwarded(),
		"users":          len(s.engine.Ledger().Users()),
	})
}

func (s *Server) handleRunCheck(w http.ResponseWriter, r *http.Request) {
	snaps, err := snapshot.Load(s.snapshotPath)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	result, err := s.engine.RunCheck(r.Context(), snaps)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if result.BadgesAwarded > 0 {
		s.Broadcast("check_completed", result)
	}

	s.respondJSON(w, http.StatusOK, result)
}
