package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/machinesoul11/ss-website-sub000/internal/domain"
	"github.com/machinesoul11/ss-website-sub000/internal/pkg/httputil"
	"github.com/machinesoul11/ss-website-sub000/internal/segmentation"
)

// GetSegments recomputes and returns the segments for one dimension:
// engagement, tooling, team-size or early-access.
func (h *Handlers) GetSegments(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.ListUsers(r.Context())
	if err != nil {
		httputil.Error(w, http.StatusInternalServerError, err.Error())
		return
	}

	var segments []domain.Segment
	switch chi.URLParam(r, "dimension") {
	case "engagement":
		segments = segmentation.ByEngagement(users)
	case "tooling":
		segments = segmentation.ByTooling(users)
	case "team-size":
		segments = segmentation.ByTeamSize(users)
	case "early-access":
		segments = []domain.Segment{segmentation.EarlyAccessCandidates(users)}
	default:
		httputil.BadRequest(w, "unknown segment dimension")
		return
	}
	httputil.OK(w, segments)
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
