package domain

import "time"

// EventType enumerates the email event kinds recorded by the pipeline.
// Provider callbacks map 1:1 onto these; "sent" is written by the
// orchestrator itself.
type EventType string

const (
	EventSent             EventType = "sent"
	EventDelivered        EventType = "delivered"
	EventOpened           EventType = "opened"
	EventClicked          EventType = "clicked"
	EventBounce           EventType = "bounce"
	EventDropped          EventType = "dropped"
	EventSpamReport       EventType = "spamreport"
	EventUnsubscribe      EventType = "unsubscribe"
	EventGroupUnsubscribe EventType = "group_unsubscribe"
)

// EmailEvent is an immutable, append-only fact about one email occurrence.
// A user may legitimately have many "opened" rows for a single send.
type EmailEvent struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Email     string    `json:"email" db:"email"`
	EmailType string    `json:"email_type" db:"email_type"`
	Type      EventType `json:"event_type" db:"event_type"`

	CampaignID *string `json:"campaign_id,omitempty" db:"campaign_id"`
	// Variant tags the event with the A/B arm it belongs to, empty when the
	// message was not part of a test.
	Variant string `json:"variant,omitempty" db:"variant"`

	// ProviderEventID is the delivery provider's unique id for the callback
	// that produced this row, empty for pipeline-originated events. When set
	// it is the dedup key for at-least-once webhook delivery.
	ProviderEventID string `json:"provider_event_id,omitempty" db:"provider_event_id"`
	// ProviderMessageID is the provider-assigned id of the sent message.
	ProviderMessageID string `json:"provider_message_id,omitempty" db:"provider_message_id"`

	Timestamp time.Time `json:"timestamp" db:"event_timestamp"`
}

// BounceRecord is an immutable bounce fact keyed by provider event id,
// used for webhook deduplication and deliverability accounting.
type BounceRecord struct {
	ID              string    `json:"id" db:"id"`
	Email           string    `json:"email" db:"email"`
	ProviderEventID string    `json:"provider_event_id" db:"provider_event_id"`
	BounceType      string    `json:"bounce_type" db:"bounce_type"` // "hard" or "soft"
	StatusCode      string    `json:"status_code" db:"status_code"`
	Reason          string    `json:"reason" db:"reason"`
	Timestamp       time.Time `json:"timestamp" db:"event_timestamp"`
}

// SpamComplaintRecord is an immutable spam-complaint fact keyed by provider
// event id.
type SpamComplaintRecord struct {
	ID              string    `json:"id" db:"id"`
	Email           string    `json:"email" db:"email"`
	ProviderEventID string    `json:"provider_event_id" db:"provider_event_id"`
	CampaignID      *string   `json:"campaign_id,omitempty" db:"campaign_id"`
	Timestamp       time.Time `json:"timestamp" db:"event_timestamp"`
}

// FeedbackEntry is a user-submitted feedback fact, consumed read-only by the
// engagement scorer.
type FeedbackEntry struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Message   string    `json:"message" db:"message"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
