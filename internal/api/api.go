// Package api exposes the analytics core over HTTP for the reporting UI.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kamilpajak/flakewatch/internal/flakiness"
	"github.com/kamilpajak/flakewatch/internal/tracker"
)

// Server is the API server.
type Server struct {
	tracker  *tracker.SuccessRateTracker
	analyzer *flakiness.Analyzer
	logger   *zap.Logger
	limiter  *rate.Limiter
	mux      *http.ServeMux
}

// Config holds API server configuration.
type Config struct {
	Tracker  *tracker.SuccessRateTracker
	Analyzer *flakiness.Analyzer
	Logger   *zap.Logger
	// IngestRate caps how many batches per second the ingest endpoint
	// accepts; zero means no limit.
	IngestRate float64
}

// NewServer creates a new API server.
func NewServer(cfg Config) *Server {
	s := &Server{
		tracker:  cfg.Tracker,
		analyzer: cfg.Analyzer,
		logger:   cfg.Logger,
		mux:      http.NewServeMux(),
	}
	if cfg.IngestRate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.IngestRate), int(cfg.IngestRate)*2)
	}

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	s.mux.HandleFunc("GET /api/success-rates", s.handleSuccessRates)
	s.mux.HandleFunc("GET /api/trends", s.handleTrends)
	s.mux.HandleFunc("GET /api/flakiness", s.handleFlakinessReport)
	s.mux.HandleFunc("GET /api/flaky-tests", s.handleFlakyTests)
	s.mux.HandleFunc("POST /api/runs", s.handleRecordRun)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Add CORS headers
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func readJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
