// Package webhook processes asynchronous delivery-provider callbacks:
// signature verification, one-time decoding of the raw payload into a closed
// set of typed events, and idempotent application of the resulting state
// transitions. Callbacks may arrive out of order and at least once, so every
// transition here is safe to re-apply.
package webhook

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/machinesoul11/ss-website-sub000/internal/pkg/logger"
)

// Header carries the fields common to every provider callback. UserID is the
// custom argument attached at send time and may be empty, in which case the
// processor falls back to an email lookup.
type Header struct {
	Email           string
	Timestamp       time.Time
	ProviderEventID string
	UserID          string
	CampaignID      string
	EmailType       string
	Variant         string
}

func (h Header) header() Header { return h }

// Event is one decoded provider callback. The set of implementations is
// closed: each variant carries only the fields its event type actually has.
type Event interface {
	header() Header
}

// DeliveredEvent records a successful delivery.
type DeliveredEvent struct{ Header }

// OpenedEvent records a tracked open.
type OpenedEvent struct {
	Header
	UserAgent string
	IP        string
}

// ClickedEvent records a tracked link click.
type ClickedEvent struct {
	Header
	URL string
}

// BounceEvent records a bounce or a provider-side drop. Status is the SMTP
// status string used for hard/soft classification.
type BounceEvent struct {
	Header
	Status  string
	Reason  string
	Dropped bool
}

// SpamReportEvent records a spam complaint.
type SpamReportEvent struct{ Header }

// UnsubscribeEvent records an unsubscribe; Group marks suppression-group
// unsubscribes.
type UnsubscribeEvent struct {
	Header
	Group bool
}

// rawEvent is the provider's wire shape, decoded exactly once at this
// boundary and never passed further.
type rawEvent struct {
	Event           string `json:"event"`
	Email           string `json:"email"`
	Timestamp       int64  `json:"timestamp"`
	ProviderEventID string `json:"sg_event_id"`
	MessageID       string `json:"sg_message_id"`
	UserID          string `json:"user_id"`
	CampaignID      string `json:"campaign_id"`
	EmailType       string `json:"email_type"`
	Variant         string `json:"variant"`
	Status          string `json:"status"`
	Reason          string `json:"reason"`
	URL             string `json:"url"`
	UserAgent       string `json:"useragent"`
	IP              string `json:"ip"`
	ASMGroupID      *int   `json:"asm_group_id"`
}

// Decode parses a webhook request body, which the provider may send as a
// JSON array or a single object, into typed events. Events with an
// unrecognized type are dropped with a warning; malformed JSON is an error.
func Decode(body []byte) ([]Event, error) {
	var raws []rawEvent
	if err := json.Unmarshal(body, &raws); err != nil {
		var single rawEvent
		if err := json.Unmarshal(body, &single); err != nil {
			return nil, fmt.Errorf("decode webhook payload: %w", err)
		}
		raws = []rawEvent{single}
	}

	events := make([]Event, 0, len(raws))
	for _, raw := range raws {
		ev := raw.typed()
		if ev == nil {
			logger.Warn("unrecognized webhook event type dropped", "event", raw.Event)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func (r rawEvent) typed() Event {
	h := Header{
		Email:           r.Email,
		Timestamp:       time.Unix(r.Timestamp, 0).UTC(),
		ProviderEventID: r.ProviderEventID,
		UserID:          r.UserID,
		CampaignID:      r.CampaignID,
		EmailType:       r.EmailType,
		Variant:         r.Variant,
	}
	if r.Timestamp == 0 {
		h.Timestamp = time.Now().UTC()
	}

	switch r.Event {
	case "delivered":
		return DeliveredEvent{Header: h}
	case "open", "opened":
		return OpenedEvent{Header: h, UserAgent: r.UserAgent, IP: r.IP}
	case "click", "clicked":
		return ClickedEvent{Header: h, URL: r.URL}
	case "bounce":
		return BounceEvent{Header: h, Status: r.Status, Reason: r.Reason}
	case "dropped":
		return BounceEvent{Header: h, Status: r.Status, Reason: r.Reason, Dropped: true}
	case "spamreport":
		return SpamReportEvent{Header: h}
	case "unsubscribe":
		return UnsubscribeEvent{Header: h}
	case "group_unsubscribe":
		return UnsubscribeEvent{Header: h, Group: true}
	default:
		return nil
	}
}
