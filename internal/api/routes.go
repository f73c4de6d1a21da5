package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/machinesoul11/ss-website-sub000/internal/pkg/httputil"
)

// SetupRoutes builds the top-level router.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://localhost:*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.Health)

	// Provider callbacks carry their own signature auth.
	r.Post("/webhooks/email", h.HandleWebhook)
	r.Get("/webhooks/email/stats", h.WebhookStats)

	r.Route("/api", func(r chi.Router) {
		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/", h.ListCampaigns)
			r.Post("/send", h.SendCampaign)
			r.Get("/{campaignID}", h.GetCampaign)
		})

		r.Get("/segments/{dimension}", h.GetSegments)

		r.Post("/engagement/recompute", h.RecomputeScores)
		r.Post("/engagement/recompute/{userID}", h.RecomputeUserScore)

		r.Get("/deliverability", h.DeliverabilityReport)
		r.Post("/ab-tests", h.CreateABTest)
		r.Get("/ab-tests/{testID}/results", h.ABTestResults)
		r.Get("/send-time/recommendation", h.SendTimeRecommendation)
	})

	return r
}

// Health reports process and record-store liveness.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if h.Ping != nil {
		if err := h.Ping(r.Context()); err != nil {
			httputil.JSON(w, http.StatusServiceUnavailable,
				map[string]string{"status": "degraded", "database": err.Error()})
			return
		}
	}
	httputil.OK(w, map[string]string{"status": "ok"})
}
