package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/covid-mortality-etl/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ReportService runs analyses over already-loaded observations.
type ReportService interface {
	Params() domain.Params
	Analyze(ctx context.Context, params domain.Params) (domain.Report, error)
}

// Server exposes health, readiness, metrics and report HTTP endpoints.
type Server struct {
	httpServer *http.Server
	ready      sharedobs.ReadinessChecker
	reports    ReportService
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and
// /v1/report routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, reports ReportService, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		ready:   ready,
		reports: reports,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /v1/report", s.handleReport)

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

// handleReport runs one analysis. Query parameters fit_start, degree, horizon
// and clamp override the configured params for this request only. A fit that
// lacks data answers 422 with the partial report.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if err := s.ready.CheckReadiness(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	params, err := applyOverrides(s.reports.Params(), r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	report, err := s.reports.Analyze(r.Context(), params)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, report)
	case errors.Is(err, domain.ErrInsufficientFitData):
		writeJSON(w, http.StatusUnprocessableEntity, report)
	case errors.Is(err, domain.ErrInvalidParams), errors.Is(err, domain.ErrInvalidHorizon):
		writeError(w, http.StatusBadRequest, err)
	default:
		s.logger.Error("report failed", "error", err)
		writeError(w, http.StatusInternalServerError, err)
	}
}

func applyOverrides(p domain.Params, q url.Values) (domain.Params, error) {
	if v := q.Get("fit_start"); v != "" {
		start, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return p, fmt.Errorf("invalid fit_start %q: want YYYY-MM-DD", v)
		}
		p.FitStart = start
	}
	if v := q.Get("degree"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, fmt.Errorf("invalid degree %q", v)
		}
		p.Degree = n
	}
	if v := q.Get("horizon"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, fmt.Errorf("invalid horizon %q", v)
		}
		p.Horizon = n
	}
	if v := q.Get("clamp"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return p, fmt.Errorf("invalid clamp %q", v)
		}
		p.ClampProjection = b
	}
	return p, nil
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // response already committed
}
