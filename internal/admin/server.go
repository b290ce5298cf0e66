// Package admin exposes the statistics and eviction operations over a
// small HTTP surface. Byte sizes in responses are raw integers;
// human-readable formatting belongs to the caller.
package admin

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/colaxr/SuifengTVDM/internal/cachestats"
	"github.com/colaxr/SuifengTVDM/internal/config"
	apierrors "github.com/colaxr/SuifengTVDM/internal/errors"
	"github.com/colaxr/SuifengTVDM/internal/logging"
	"github.com/colaxr/SuifengTVDM/internal/metrics"
)

// Server is the admin HTTP server.
type Server struct {
	engine *cachestats.Engine
	srv    *http.Server
}

// NewServer wires routes for the engine and metrics collector.
func NewServer(cfg config.AdminConfig, engine *cachestats.Engine, collector *metrics.Collector) *Server {
	s := &Server{engine: engine}

	router := httprouter.New()
	router.HandlerFunc(http.MethodGet, "/cache/stats", s.handleStats)
	router.Handle(http.MethodDelete, "/cache/:category", s.handleEvict)
	router.HandlerFunc(http.MethodPost, "/cache/expired/sweep", s.handleSweep)
	router.HandlerFunc(http.MethodGet, "/healthz", handleHealth)
	if collector != nil {
		router.Handler(http.MethodGet, "/metrics", collector.Handler())
	}

	s.srv = &http.Server{
		Addr:    cfg.Address,
		Handler: router,
	}
	return s
}

// Handler returns the server's HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// ListenAndServe blocks serving the admin API.
func (s *Server) ListenAndServe() error {
	logging.Info("Admin server listening", zap.String("address", s.srv.Addr))
	return s.srv.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	rep := s.engine.CollectWithFallback(r.Context())
	writeJSON(w, http.StatusOK, rep)
}

type evictResponse struct {
	Category string `json:"category"`
	Executed bool   `json:"executed"`
}

func (s *Server) handleEvict(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	cat, ok := cachestats.ParseCategory(params.ByName("category"))
	if !ok {
		apierrors.ErrNotFound.WithDetails("unknown cache category").WriteJSON(w)
		return
	}

	executed := s.engine.EvictCategory(r.Context(), cat)
	writeJSON(w, http.StatusOK, evictResponse{Category: string(cat), Executed: executed})
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	executed := s.engine.EvictAllExpired(r.Context())
	writeJSON(w, http.StatusOK, evictResponse{Category: "expired", Executed: executed})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("Failed to encode admin response", zap.Error(err))
	}
}
