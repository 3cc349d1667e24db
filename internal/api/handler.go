package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/opensource-finance/finsight/internal/analytics"
	"github.com/opensource-finance/finsight/internal/domain"
	"github.com/opensource-finance/finsight/internal/worker"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	service *analytics.Service
	ledger  domain.Ledger
	cache   domain.Cache
	bus     domain.EventBus
	worker  *worker.DigestWorker
	version string
}

// CacheStats is the local cache occupancy reported by /analytics/status.
type CacheStats struct {
	Size     int `json:"size"`
	Capacity int `json:"capacity"`
}

// localStats is implemented by caches with an in-process tier.
type localStats interface {
	Stats() (size int, capacity int)
}

// NewHandler creates a new API handler.
func NewHandler(service *analytics.Service, ledger domain.Ledger, cache domain.Cache, bus domain.EventBus, version string) *Handler {
	return &Handler{
		service: service,
		ledger:  ledger,
		cache:   cache,
		bus:     bus,
		version: version,
	}
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.ledger != nil {
		if err := h.ledger.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	if h.bus != nil {
		if err := h.bus.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready reports whether the ledger can serve requests.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.ledger != nil {
		if err := h.ledger.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"ready": "false",
				"error": "ledger unavailable",
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// Status lists the enabled analytics features, the local cache occupancy
// and the digest worker subscriptions.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"version": h.version,
		"status":  h.service.Status(),
	}
	if c, ok := h.cache.(localStats); ok {
		size, capacity := c.Stats()
		resp["cache"] = CacheStats{Size: size, Capacity: capacity}
	}
	if h.worker != nil {
		resp["worker"] = h.worker.GetStats()
	}
	writeJSON(w, http.StatusOK, resp)
}

// Insights handles GET /analytics/insights.
func (h *Handler) Insights(w http.ResponseWriter, r *http.Request) {
	periodDays, err := intParam(r, "period_days")
	if err != nil {
		writeError(w, err)
		return
	}

	report, err := h.service.GenerateInsights(r.Context(), GetUserID(r.Context()), periodDays)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// SavingsOpportunities handles GET /analytics/insights/savings-opportunities.
func (h *Handler) SavingsOpportunities(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.SavingsOpportunities(r.Context(), GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Anomalies handles GET /analytics/insights/anomalies.
func (h *Handler) Anomalies(w http.ResponseWriter, r *http.Request) {
	sensitivity, err := floatParam(r, "sensitivity")
	if err != nil {
		writeError(w, err)
		return
	}

	report, err := h.service.DetectAnomalies(r.Context(), GetUserID(r.Context()), sensitivity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Recurring handles GET /analytics/reports/recurring.
func (h *Handler) Recurring(w http.ResponseWriter, r *http.Request) {
	windowDays, err := intParam(r, "window_days")
	if err != nil {
		writeError(w, err)
		return
	}
	minOccurrences, err := intParam(r, "min_occurrences")
	if err != nil {
		writeError(w, err)
		return
	}
	tolerance, err := floatParam(r, "tolerance")
	if err != nil {
		writeError(w, err)
		return
	}

	report, err := h.service.DetectRecurring(r.Context(), GetUserID(r.Context()), windowDays, minOccurrences, tolerance)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// SpendingPatterns handles GET /analytics/reports/spending-patterns.
func (h *Handler) SpendingPatterns(w http.ResponseWriter, r *http.Request) {
	months, err := intParam(r, "months")
	if err != nil {
		writeError(w, err)
		return
	}

	report, err := h.service.SpendingPatterns(r.Context(), GetUserID(r.Context()), months)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Categories handles GET /analytics/reports/categories.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	windowDays, err := intParam(r, "window_days")
	if err != nil {
		writeError(w, err)
		return
	}

	breakdown, err := h.service.CategoryBreakdown(r.Context(), GetUserID(r.Context()), windowDays)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, breakdown)
}

// GoalPrediction handles GET /analytics/goals/prediction/{goalID}.
func (h *Handler) GoalPrediction(w http.ResponseWriter, r *http.Request) {
	prediction, err := h.service.PredictGoal(r.Context(), GetUserID(r.Context()), chi.URLParam(r, "goalID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prediction)
}

// GoalRecommendations handles GET /analytics/goals/recommendations/{goalID}.
func (h *Handler) GoalRecommendations(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.RecommendContributions(r.Context(), GetUserID(r.Context()), chi.URLParam(r, "goalID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// AtRiskGoals handles GET /analytics/goals/at-risk.
func (h *Handler) AtRiskGoals(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.AtRiskGoals(r.Context(), GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// GoalOptimization handles GET /analytics/goals/optimization/{goalID}.
func (h *Handler) GoalOptimization(w http.ResponseWriter, r *http.Request) {
	opt, err := h.service.OptimizeGoal(r.Context(), GetUserID(r.Context()), chi.URLParam(r, "goalID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, opt)
}

// GoalsDashboard handles GET /analytics/goals/dashboard.
func (h *Handler) GoalsDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.service.GoalsDashboard(r.Context(), GetUserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

// DigestRequestBody is the optional body of POST /analytics/digests.
type DigestRequestBody struct {
	PeriodDays int `json:"periodDays"`
}

// DigestAccepted is the response of POST /analytics/digests.
type DigestAccepted struct {
	RequestID string `json:"requestId"`
	Status    string `json:"status"`
	Topic     string `json:"topic"`
	Scope     string `json:"scope"`
}

// RequestDigest handles POST /analytics/digests. The digest is built by the
// worker and published on the ready topic in the user's scope.
func (h *Handler) RequestDigest(w http.ResponseWriter, r *http.Request) {
	if h.bus == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "event bus is not configured",
		})
		return
	}

	var body DigestRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if body.PeriodDays < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "periodDays must not be negative",
		})
		return
	}

	userID := GetUserID(r.Context())
	req := domain.DigestRequest{
		RequestID:  uuid.New().String(),
		UserID:     userID,
		PeriodDays: body.PeriodDays,
	}

	payload, err := json.Marshal(req)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.bus.Publish(r.Context(), domain.GlobalScope, domain.TopicDigestRequested, payload); err != nil {
		slog.Error("failed to publish digest request",
			"request_id", req.RequestID,
			"user_id", userID,
			"error", err,
		)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "failed to queue digest request",
		})
		return
	}

	writeJSON(w, http.StatusAccepted, DigestAccepted{
		RequestID: req.RequestID,
		Status:    "accepted",
		Topic:     domain.TopicDigestReady,
		Scope:     userID,
	})
}

// intParam reads an optional integer query parameter. Absent means zero.
func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidInput, name)
	}
	return v, nil
}

// floatParam reads an optional finite float query parameter. Absent means
// zero.
func floatParam(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s must be a finite number", domain.ErrInvalidInput, name)
	}
	return v, nil
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrDataSource):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}

	writeJSON(w, status, map[string]string{
		"error": err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("failed to encode response", "status", status, "error", err)
	}
}
