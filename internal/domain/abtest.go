package domain

import "time"

// ABTestStatus enumerates the lifecycle states of an A/B test.
type ABTestStatus string

const (
	ABTestRunning   ABTestStatus = "running"
	ABTestCompleted ABTestStatus = "completed"
	ABTestStopped   ABTestStatus = "stopped"
)

// ABVariant identifies one arm of an A/B test.
type ABVariant string

const (
	VariantA ABVariant = "variant_a"
	VariantB ABVariant = "variant_b"
)

// VariantConfig holds the content configuration for one test arm.
type VariantConfig struct {
	Name       string `json:"name"`
	Subject    string `json:"subject"`
	TemplateID string `json:"template_id"`
}

// ABTest configures a two-arm subject/content test over a campaign.
// Results are computed on demand from the tagged event log, not stored
// as a running aggregate.
type ABTest struct {
	ID         string        `json:"id" db:"id"`
	CampaignID string        `json:"campaign_id" db:"campaign_id"`
	VariantA   VariantConfig `json:"variant_a" db:"variant_a"`
	VariantB   VariantConfig `json:"variant_b" db:"variant_b"`

	SplitPercent     int     `json:"split_percent" db:"split_percent"` // % of recipients on variant A
	TargetSampleSize int     `json:"target_sample_size" db:"target_sample_size"`
	SuccessMetric    string  `json:"success_metric" db:"success_metric"` // "open_rate" or "click_rate"
	ConfidenceLevel  float64 `json:"confidence_level" db:"confidence_level"`

	Status    ABTestStatus `json:"status" db:"status"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}
