package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/machinesoul11/ss-website-sub000/internal/pkg/httputil"
)

// RecomputeScores recomputes and persists every user's engagement score.
// Per-user failures are tolerated and reported in the result.
func (h *Handlers) RecomputeScores(w http.ResponseWriter, r *http.Request) {
	result, err := h.Scorer.RecomputeAll(r.Context())
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.OK(w, result)
}

// RecomputeUserScore recomputes one user's score and returns the breakdown.
func (h *Handlers) RecomputeUserScore(w http.ResponseWriter, r *http.Request) {
	score, err := h.Scorer.Recompute(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	httputil.OK(w, score)
}
