// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/okian/kata/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Submit enqueues a dataset evaluation and returns its run id.
	Submit(ctx context.Context, dataset, ruleSetPath, pluginName string) (string, error)

	// GetRun returns the history record for a run id.
	GetRun(ctx context.Context, id string) (model.RunRecord, error)

	// ListRuns returns up to limit history records, most recent first.
	ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error)
}

// Server wires HTTP routes for the evaluation API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	evaluationsHandler *EvaluationsHandler
	runsHandler        *RunsHandler
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithRateLimit caps accepted submissions per second with the given burst.
// rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps > 0 {
			s.evaluationsHandler.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		evaluationsHandler: NewEvaluationsHandler(deps),
		runsHandler:        NewRunsHandler(deps),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/v1/evaluations", MetricsMiddleware(s.evaluationsHandler.HandlePostEvaluation, "evaluations"))
	mux.HandleFunc("/v1/runs", MetricsMiddleware(s.runsHandler.HandleListRuns, "runs"))
	mux.HandleFunc("/v1/runs/", MetricsMiddleware(s.runsHandler.HandleGetRun, "runs"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
