// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	service "github.com/okian/kata/internal/app"
	"github.com/okian/kata/pkg/metrics"
)

// evaluationRequest mirrors the schema for POST /v1/evaluations.
type evaluationRequest struct {
	Dataset string `json:"dataset"`
	RuleSet string `json:"rule_set,omitempty"`
	Plugin  string `json:"plugin,omitempty"`
}

func (e evaluationRequest) validate() error {
	if strings.TrimSpace(e.Dataset) == "" {
		return errors.New("missing dataset")
	}
	return nil
}

type evaluationResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

// EvaluationsHandler handles evaluation submissions.
type EvaluationsHandler struct {
	deps    Dependencies
	limiter *rate.Limiter
}

// NewEvaluationsHandler creates a new evaluations handler.
func NewEvaluationsHandler(deps Dependencies) *EvaluationsHandler {
	return &EvaluationsHandler{deps: deps}
}

// HandlePostEvaluation handles POST /v1/evaluations requests.
func (h *EvaluationsHandler) HandlePostEvaluation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	if h.limiter != nil && !h.limiter.Allow() {
		metrics.RecordHTTPRateLimited()
		writeError(w, http.StatusTooManyRequests, "rate_limited", ErrRateLimited)
		return
	}

	var req evaluationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	runID, err := h.deps.Submit(r.Context(), req.Dataset, req.RuleSet, req.Plugin)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, evaluationResponse{RunID: runID, Status: "accepted"})
	case errors.Is(err, service.ErrDuplicate):
		writeJSON(w, http.StatusOK, evaluationResponse{Status: "duplicate"})
	case errors.Is(err, service.ErrQueueFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", err)
	case errors.Is(err, service.ErrEmptyDataset), errors.Is(err, service.ErrNoRuleSet):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal", err)
	}
}
