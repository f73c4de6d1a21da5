// Package api exposes the engagement pipeline over HTTP: the inbound webhook
// endpoint plus the operational API for campaigns, segments and reports.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/machinesoul11/ss-website-sub000/internal/abtest"
	"github.com/machinesoul11/ss-website-sub000/internal/campaign"
	"github.com/machinesoul11/ss-website-sub000/internal/config"
	"github.com/machinesoul11/ss-website-sub000/internal/deliverability"
	"github.com/machinesoul11/ss-website-sub000/internal/engagement"
	"github.com/machinesoul11/ss-website-sub000/internal/pkg/logger"
	"github.com/machinesoul11/ss-website-sub000/internal/sendtime"
	"github.com/machinesoul11/ss-website-sub000/internal/webhook"
)

// Handlers bundles the service components the HTTP layer fronts.
type Handlers struct {
	Campaigns *campaign.Service
	Users     campaign.UserStore
	Scorer    *engagement.Scorer
	Processor *webhook.Processor
	Verifier  *webhook.Verifier
	Monitor   *deliverability.Monitor
	Evaluator *abtest.Evaluator
	Optimizer *sendtime.Optimizer

	// Ping checks record-store health for /healthz; nil skips the check.
	Ping func(ctx context.Context) error

	// Report window defaults, overridable per request.
	DeliverabilityWindowDays int
	SendTimeWindowDays       int
}

// Server is the HTTP server for the pipeline API.
type Server struct {
	config config.ServerConfig
	router http.Handler
}

// NewServer creates an API server over the given handlers.
func NewServer(cfg config.ServerConfig, h *Handlers) *Server {
	return &Server{
		config: cfg,
		router: SetupRoutes(h),
	}
}

// Handler returns the root handler, for tests and custom serving setups.
func (s *Server) Handler() http.Handler { return s.router }

// Start runs the server until the context is canceled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.GetHost(), s.config.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
