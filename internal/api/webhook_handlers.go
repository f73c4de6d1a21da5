package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/machinesoul11/ss-website-sub000/internal/pkg/httputil"
	"github.com/machinesoul11/ss-website-sub000/internal/pkg/logger"
	"github.com/machinesoul11/ss-website-sub000/internal/webhook"
)

// Signature headers sent by the delivery provider.
const (
	headerSignature = "X-Email-Webhook-Signature"
	headerTimestamp = "X-Email-Webhook-Timestamp"
)

const maxWebhookBody = 1 << 20 // 1 MiB

// HandleWebhook verifies and applies a batch of provider callbacks. The body
// is read raw before any parsing: the signature covers the exact bytes sent.
func (h *Handlers) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		httputil.BadRequest(w, "unreadable body")
		return
	}

	if err := h.Verifier.Verify(r.Header.Get(headerTimestamp), r.Header.Get(headerSignature), body); err != nil {
		if errors.Is(err, webhook.ErrMissingSignature) || errors.Is(err, webhook.ErrBadSignature) {
			logger.Warn("webhook signature rejected", "remote", r.RemoteAddr)
			httputil.Unauthorized(w, "invalid signature")
			return
		}
		httputil.BadRequest(w, err.Error())
		return
	}

	events, err := webhook.Decode(body)
	if err != nil {
		httputil.BadRequest(w, "malformed payload")
		return
	}

	if err := h.Processor.ProcessBatch(r.Context(), events); err != nil {
		// Non-2xx makes the provider redeliver; processing is idempotent.
		logger.Error("webhook batch failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "processing failed")
		return
	}

	httputil.OK(w, map[string]int{"received": len(events)})
}

// WebhookStats exposes the processor's counters.
func (h *Handlers) WebhookStats(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, h.Processor.Stats())
}
