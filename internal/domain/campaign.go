package domain

import "time"

// CampaignStatus enumerates the lifecycle states of a campaign.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignScheduled CampaignStatus = "scheduled"
	CampaignSending   CampaignStatus = "sending"
	CampaignSent      CampaignStatus = "sent"
	CampaignFailed    CampaignStatus = "failed"
)

// Campaign represents one templated send operation against a resolved
// recipient set. Counts are monotonically non-decreasing while sending.
type Campaign struct {
	ID            string         `json:"id" db:"id"`
	Type          string         `json:"campaign_type" db:"campaign_type"`
	Subject       string         `json:"subject" db:"subject"`
	SegmentFilter string         `json:"segment_filter" db:"segment_filter"`
	Status        CampaignStatus `json:"status" db:"status"`

	TotalRecipients int `json:"total_recipients" db:"total_recipients"`
	SentCount       int `json:"sent_count" db:"sent_count"`
	ErrorCount      int `json:"error_count" db:"error_count"`

	ScheduledAt *time.Time `json:"scheduled_at,omitempty" db:"scheduled_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// IsTerminal returns true if the campaign is in a final state.
func (c *Campaign) IsTerminal() bool {
	return c.Status == CampaignSent || c.Status == CampaignFailed
}

// Segment is a named, derived view over the user population. It is
// recomputed on each request and never persisted, so two calls may return
// different membership as scores and events change between them.
type Segment struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	MemberIDs   []string `json:"member_ids"`
	Count       int      `json:"count"`
}
