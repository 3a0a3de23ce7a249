// Package httpapi exposes the coverage service over HTTP, plus health,
// readiness, and metrics endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/radiowatch/coverage-map/internal/coverage"
	"github.com/radiowatch/coverage-map/internal/domain"
)

// CoverageService is the surface of the coverage core the API exposes.
type CoverageService interface {
	SubmitSample(ctx context.Context, source string, obs domain.Observation) (domain.Sample, error)
	SubmitRepeater(ctx context.Context, source string, sighting domain.RepeaterSighting) (domain.Repeater, error)
	Coverage(ctx context.Context) (map[string]domain.CoverageStat, error)
	SamplesByPrefix(ctx context.Context, prefix string) ([]domain.SampleView, error)
	State(ctx context.Context) (domain.StateView, error)
	RankSenders(ctx context.Context, since time.Time) ([]domain.SenderRank, error)
	RxRollup(ctx context.Context) ([]domain.RxRollup, error)
	Repeaters(ctx context.Context) ([]domain.RepeaterView, error)
	CheckReadiness(ctx context.Context) error
}

// Server exposes the coverage API.
type Server struct {
	httpServer *http.Server
	svc        CoverageService
	logger     *slog.Logger
}

// NewServer creates the HTTP server with all API and operational routes.
func NewServer(addr string, svc CoverageService, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		svc:    svc,
		logger: logger,
	}

	mux.HandleFunc("POST /api/v1/samples", s.handleSubmitSample)
	mux.HandleFunc("POST /api/v1/repeaters", s.handleSubmitRepeater)
	mux.HandleFunc("GET /api/v1/coverage", s.handleCoverage)
	mux.HandleFunc("GET /api/v1/samples", s.handleSamples)
	mux.HandleFunc("GET /api/v1/state", s.handleState)
	mux.HandleFunc("GET /api/v1/senders", s.handleSenders)
	mux.HandleFunc("GET /api/v1/rxsamples", s.handleRxRollup)
	mux.HandleFunc("GET /api/v1/repeaters", s.handleRepeaters)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// --- request payloads ---

// sampleRequest uses pointer coordinates so a missing field is
// distinguishable from an explicit zero.
type sampleRequest struct {
	Lat          *float64 `json:"lat"`
	Lon          *float64 `json:"lon"`
	RSSI         *float64 `json:"rssi"`
	SNR          *float64 `json:"snr"`
	Observed     bool     `json:"observed"`
	RepeaterPath string   `json:"repeater_path"`
	Sender       string   `json:"sender"`
}

type repeaterRequest struct {
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Elevation *float64 `json:"elevation"`
}

// --- handlers ---

func (s *Server) handleSubmitSample(w http.ResponseWriter, r *http.Request) {
	var req sampleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Lat == nil || req.Lon == nil {
		writeError(w, http.StatusBadRequest, "lat and lon are required")
		return
	}

	sample, err := s.svc.SubmitSample(r.Context(), "http", domain.Observation{
		Lat:          *req.Lat,
		Lon:          *req.Lon,
		RSSI:         req.RSSI,
		SNR:          req.SNR,
		Observed:     req.Observed,
		RepeaterPath: req.RepeaterPath,
		Sender:       req.Sender,
	})
	if err != nil {
		s.writeServiceError(w, r, "submit sample", err)
		return
	}
	writeJSON(w, http.StatusOK, domain.SampleViews([]domain.Sample{sample})[0])
}

func (s *Server) handleSubmitRepeater(w http.ResponseWriter, r *http.Request) {
	var req repeaterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Lat == nil || req.Lon == nil {
		writeError(w, http.StatusBadRequest, "lat and lon are required")
		return
	}

	rep, err := s.svc.SubmitRepeater(r.Context(), "http", domain.RepeaterSighting{
		Lat:       *req.Lat,
		Lon:       *req.Lon,
		ID:        req.ID,
		Name:      req.Name,
		Elevation: req.Elevation,
	})
	if err != nil {
		s.writeServiceError(w, r, "submit repeater", err)
		return
	}
	writeJSON(w, http.StatusOK, domain.RepeaterViews([]domain.Repeater{rep})[0])
}

func (s *Server) handleCoverage(w http.ResponseWriter, r *http.Request) {
	cov, err := s.svc.Coverage(r.Context())
	if err != nil {
		s.writeServiceError(w, r, "coverage", err)
		return
	}
	writeJSON(w, http.StatusOK, cov)
}

func (s *Server) handleSamples(w http.ResponseWriter, r *http.Request) {
	samples, err := s.svc.SamplesByPrefix(r.Context(), r.URL.Query().Get("prefix"))
	if err != nil {
		s.writeServiceError(w, r, "samples", err)
		return
	}
	if samples == nil {
		samples = []domain.SampleView{}
	}
	writeJSON(w, http.StatusOK, samples)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	state, err := s.svc.State(r.Context())
	if err != nil {
		s.writeServiceError(w, r, "state", err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleSenders(w http.ResponseWriter, r *http.Request) {
	since := time.Time{} // zero cutoff ranks all recorded activity
	if v := r.URL.Query().Get("since"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC3339")
			return
		}
		since = parsed
	}
	ranks, err := s.svc.RankSenders(r.Context(), since)
	if err != nil {
		s.writeServiceError(w, r, "senders", err)
		return
	}
	if ranks == nil {
		ranks = []domain.SenderRank{}
	}
	writeJSON(w, http.StatusOK, ranks)
}

func (s *Server) handleRxRollup(w http.ResponseWriter, r *http.Request) {
	rollup, err := s.svc.RxRollup(r.Context())
	if err != nil {
		s.writeServiceError(w, r, "rx rollup", err)
		return
	}
	if rollup == nil {
		rollup = []domain.RxRollup{}
	}
	writeJSON(w, http.StatusOK, rollup)
}

func (s *Server) handleRepeaters(w http.ResponseWriter, r *http.Request) {
	repeaters, err := s.svc.Repeaters(r.Context())
	if err != nil {
		s.writeServiceError(w, r, "repeaters", err)
		return
	}
	if repeaters == nil {
		repeaters = []domain.RepeaterView{}
	}
	writeJSON(w, http.StatusOK, repeaters)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.svc.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if coverage.IsClientError(err) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Error(op+" failed", "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response write
}
