package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/machinesoul11/ss-website-sub000/internal/abtest"
	"github.com/machinesoul11/ss-website-sub000/internal/domain"
	"github.com/machinesoul11/ss-website-sub000/internal/pkg/httputil"
)

// DeliverabilityReport returns windowed deliverability metrics with threshold
// flags. window_days overrides the configured default.
func (h *Handlers) DeliverabilityReport(w http.ResponseWriter, r *http.Request) {
	window := queryInt(r, "window_days", h.DeliverabilityWindowDays)
	metrics, err := h.Monitor.Metrics(r.Context(), window)
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.OK(w, metrics)
}

// CreateABTest registers a two-arm test over a campaign. Missing split,
// metric and confidence settings fall back to defaults.
func (h *Handlers) CreateABTest(w http.ResponseWriter, r *http.Request) {
	var test domain.ABTest
	if err := json.NewDecoder(r.Body).Decode(&test); err != nil {
		httputil.BadRequest(w, "invalid request body")
		return
	}

	err := h.Evaluator.Create(r.Context(), &test)
	switch {
	case errors.Is(err, abtest.ErrInvalidTest):
		httputil.Error(w, http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		httputil.Error(w, http.StatusInternalServerError, err.Error())
	default:
		httputil.Created(w, test)
	}
}

// ABTestResults evaluates one A/B test from the current event log.
func (h *Handlers) ABTestResults(w http.ResponseWriter, r *http.Request) {
	result, err := h.Evaluator.Results(r.Context(), chi.URLParam(r, "testID"))
	if errors.Is(err, abtest.ErrTestNotFound) {
		httputil.NotFound(w, "ab test not found")
		return
	}
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.OK(w, result)
}

// SendTimeRecommendation returns the audience-level best send hour.
func (h *Handlers) SendTimeRecommendation(w http.ResponseWriter, r *http.Request) {
	window := queryInt(r, "window_days", h.SendTimeWindowDays)
	rec, err := h.Optimizer.BestHour(r.Context(), window)
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.OK(w, map[string]any{
		"recommendation": rec,
		"next_send_at":   h.Optimizer.NextSendTime(rec),
	})
}
