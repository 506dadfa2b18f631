package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/scry-review/internal/api/shared"
	"github.com/phrazzld/scry-review/internal/domain"
	"github.com/phrazzld/scry-review/internal/platform/logger"
	"github.com/phrazzld/scry-review/internal/redact"
	"github.com/phrazzld/scry-review/internal/service/progress"
)

// ReviewHandler handles grading, queue and stats requests.
type ReviewHandler struct {
	progress progress.Service
	logger   *slog.Logger
}

// NewReviewHandler creates a new ReviewHandler
func NewReviewHandler(progressService progress.Service, logger *slog.Logger) *ReviewHandler {
	if progressService == nil {
		panic("progressService cannot be nil for ReviewHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ReviewHandler{
		progress: progressService,
		logger:   logger.With(slog.String("component", "review_handler")),
	}
}

// RecordGrade handles POST /learners/{learnerID}/items/{itemID}/grades.
func (h *ReviewHandler) RecordGrade(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learnerID, err := getLearnerID(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	itemID, err := getItemID(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req RecordGradeRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		log.Warn("invalid request format", slog.String("error", redact.Error(err)))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	difficulty, err := domain.ParseDifficulty(req.Difficulty)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	state, err := h.progress.RecordGrade(r.Context(), learnerID, itemID, domain.PerformanceGrade(*req.Grade), difficulty)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to record grade")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, GradeResponse{
		ReviewState: state,
		DueToday:    state.DueToday(),
		Mastery:     state.Mastery(),
	})
}

// ResetItem handles DELETE /learners/{learnerID}/items/{itemID}.
func (h *ReviewHandler) ResetItem(w http.ResponseWriter, r *http.Request) {
	learnerID, err := getLearnerID(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	itemID, err := getItemID(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.progress.Reset(r.Context(), learnerID, itemID); err != nil {
		HandleAPIError(w, r, err, "Failed to reset item")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetQueue handles GET /learners/{learnerID}/queue.
func (h *ReviewHandler) GetQueue(w http.ResponseWriter, r *http.Request) {
	learnerID, err := getLearnerID(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	limit, err := getLimit(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	items, err := h.progress.NextQuestions(r.Context(), learnerID, getCatalog(r), limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to build review queue")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, QueueResponse{Items: items, Count: len(items)})
}

// GetStats handles GET /learners/{learnerID}/stats.
func (h *ReviewHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	learnerID, err := getLearnerID(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	stats, err := h.progress.Stats(r.Context(), learnerID, getCatalog(r))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to compute stats")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, stats)
}
