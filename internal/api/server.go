// Package api serves the admin and read HTTP surface: probes, metrics,
// manual job triggers and read-only views of the production store.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	apperrors "loan-pipeline/internal/common/errors"
	"loan-pipeline/internal/common/logger"
	"loan-pipeline/internal/models"
	"loan-pipeline/internal/scheduler"
	"loan-pipeline/internal/store"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	DefaultRiskThreshold = 50.0
	readyTimeout         = 2 * time.Second
)

type ProductionReader interface {
	Recent(ctx context.Context, limit int) ([]models.ProductionRecord, error)
	Summary(ctx context.Context, riskThreshold float64) (*models.ProductionSummary, error)
}

type ReportStore interface {
	Latest(ctx context.Context) (*models.QualityReport, error)
}

type JobRunner interface {
	RunNow(ctx context.Context, name string) (interface{}, error)
}

// ReadinessCheck reports whether one dependency is reachable.
type ReadinessCheck func(ctx context.Context) error

type Server struct {
	reader  ProductionReader
	reports ReportStore
	jobs    JobRunner
	checks  map[string]ReadinessCheck
	logger  logger.Logger
}

// NewServer wires the handlers. reports may be nil when no cache is configured.
func NewServer(reader ProductionReader, reports ReportStore, jobs JobRunner, checks map[string]ReadinessCheck, log logger.Logger) *Server {
	return &Server{
		reader:  reader,
		reports: reports,
		jobs:    jobs,
		checks:  checks,
		logger:  log.WithFields(map[string]interface{}{"component": "api"}),
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.HandleFunc("/ready", s.ready).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/applications/recent", s.recentApplications).Methods(http.MethodGet)
	api.HandleFunc("/applications/summary", s.applicationSummary).Methods(http.MethodGet)
	api.HandleFunc("/quality/latest", s.latestQuality).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{job}/run", s.runJob).Methods(http.MethodPost)

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	failed := make(map[string]string)
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		s.logger.Warn("readiness check failed", map[string]interface{}{"checks": failed})
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "not ready",
			"checks": failed,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) recentApplications(w http.ResponseWriter, r *http.Request) {
	limit := store.DefaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	records, err := s.reader.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("recent applications query failed", map[string]interface{}{"error": err})
		writeError(w, http.StatusInternalServerError, "failed to load applications")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"applications": records,
		"count":        len(records),
	})
}

func (s *Server) applicationSummary(w http.ResponseWriter, r *http.Request) {
	threshold := DefaultRiskThreshold
	if raw := r.URL.Query().Get("risk_threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 || v > 100 {
			writeError(w, http.StatusBadRequest, "risk_threshold must be a number between 0 and 100")
			return
		}
		threshold = v
	}

	summary, err := s.reader.Summary(r.Context(), threshold)
	if err != nil {
		s.logger.Error("application summary query failed", map[string]interface{}{"error": err})
		writeError(w, http.StatusInternalServerError, "failed to summarize applications")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) latestQuality(w http.ResponseWriter, r *http.Request) {
	if s.reports == nil {
		writeError(w, http.StatusServiceUnavailable, "report cache not configured")
		return
	}

	report, err := s.reports.Latest(r.Context())
	if errors.Is(err, store.ErrNoReport) {
		writeError(w, http.StatusNotFound, "no quality report available yet")
		return
	}
	if err != nil {
		s.logger.Error("latest report lookup failed", map[string]interface{}{"error": err})
		writeError(w, http.StatusInternalServerError, "failed to load quality report")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) runJob(w http.ResponseWriter, r *http.Request) {
	job := mux.Vars(r)["job"]

	// a client disconnect must not cut a run short
	result, err := s.jobs.RunNow(context.WithoutCancel(r.Context()), job)
	switch {
	case errors.Is(err, scheduler.ErrUnknownJob):
		writeError(w, http.StatusNotFound, "unknown job: "+job)
		return
	case errors.Is(err, scheduler.ErrAlreadyRunning):
		writeError(w, http.StatusConflict, "job already running: "+job)
		return
	case err != nil:
		std := apperrors.Normalize(err)
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error":     err.Error(),
			"code":      std.Code,
			"retryable": std.Retryable,
			"result":    result,
		})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
