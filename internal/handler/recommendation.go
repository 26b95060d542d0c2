package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dicilo-app/dicilo/internal/model"
	"github.com/dicilo-app/dicilo/internal/store"
)

// RecommendationHandler serves the admin view over submitted prospects.
type RecommendationHandler struct {
	recs   *store.RecommendationStore
	logger *slog.Logger
}

func NewRecommendationHandler(rs *store.RecommendationStore, logger *slog.Logger) *RecommendationHandler {
	return &RecommendationHandler{recs: rs, logger: logger}
}

func (h *RecommendationHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	recs, err := h.recs.List(limit)
	if err != nil {
		h.logger.Error("list recommendations", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list recommendations")
		return
	}
	if recs == nil {
		recs = []model.Recommendation{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *RecommendationHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.recs.GetByID(pathID(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get recommendation")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "recommendation not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
