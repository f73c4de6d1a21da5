// Package deliverability aggregates event counts over a trailing window into
// health metrics and flags threshold violations. It only reports; no action
// is taken automatically.
package deliverability

import (
	"context"
	"fmt"
	"time"
)

// Fixed alerting thresholds, in percent of sends.
const (
	MinDeliveredRate = 95.0
	MaxBounceRate    = 5.0
	MaxSpamRate      = 0.1
	MinOpenRate      = 20.0 // informational only
)

// Counts holds raw event totals for a window. Bounce and spam totals come
// from the dedicated bounce/complaint tables so webhook dedup carries through
// to the rates.
type Counts struct {
	Sent           int
	Delivered      int
	Opened         int
	Clicked        int
	Bounced        int
	SpamComplaints int
	Unsubscribes   int
}

// Store is the read surface the monitor needs.
type Store interface {
	WindowCounts(ctx context.Context, since time.Time) (Counts, error)
}

// Metrics is the deliverability report for one window. Rates are percentages
// of total sends.
type Metrics struct {
	WindowDays      int      `json:"window_days"`
	TotalSent       int      `json:"total_sent"`
	DeliveredRate   float64  `json:"delivered_rate"`
	OpenRate        float64  `json:"open_rate"`
	ClickRate       float64  `json:"click_rate"`
	BounceRate      float64  `json:"bounce_rate"`
	SpamRate        float64  `json:"spam_rate"`
	UnsubscribeRate float64  `json:"unsubscribe_rate"`
	Issues          []string `json:"issues"`
}

// Monitor computes windowed deliverability metrics.
type Monitor struct {
	store Store
	now   func() time.Time
}

// NewMonitor creates a deliverability monitor.
func NewMonitor(store Store) *Monitor {
	return &Monitor{store: store, now: time.Now}
}

// Metrics computes rates and issue flags over the trailing windowDays.
func (m *Monitor) Metrics(ctx context.Context, windowDays int) (*Metrics, error) {
	if windowDays <= 0 {
		windowDays = 7
	}

	since := m.now().AddDate(0, 0, -windowDays)
	counts, err := m.store.WindowCounts(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("window counts: %w", err)
	}

	metrics := &Metrics{
		WindowDays: windowDays,
		TotalSent:  counts.Sent,
		Issues:     []string{},
	}
	if counts.Sent == 0 {
		return metrics, nil
	}

	sent := float64(counts.Sent)
	metrics.DeliveredRate = rate(counts.Delivered, sent)
	metrics.OpenRate = rate(counts.Opened, sent)
	metrics.ClickRate = rate(counts.Clicked, sent)
	metrics.BounceRate = rate(counts.Bounced, sent)
	metrics.SpamRate = rate(counts.SpamComplaints, sent)
	metrics.UnsubscribeRate = rate(counts.Unsubscribes, sent)

	if metrics.DeliveredRate < MinDeliveredRate {
		metrics.Issues = append(metrics.Issues,
			fmt.Sprintf("Low delivery rate: %.1f%% (threshold %.0f%%)", metrics.DeliveredRate, MinDeliveredRate))
	}
	if metrics.BounceRate > MaxBounceRate {
		metrics.Issues = append(metrics.Issues,
			fmt.Sprintf("High bounce rate: %.1f%% (threshold %.0f%%)", metrics.BounceRate, MaxBounceRate))
	}
	if metrics.SpamRate > MaxSpamRate {
		metrics.Issues = append(metrics.Issues,
			fmt.Sprintf("High spam complaint rate: %.2f%% (threshold %.1f%%)", metrics.SpamRate, MaxSpamRate))
	}
	if metrics.OpenRate < MinOpenRate {
		metrics.Issues = append(metrics.Issues,
			fmt.Sprintf("Low open rate: %.1f%% (informational, threshold %.0f%%)", metrics.OpenRate, MinOpenRate))
	}

	return metrics, nil
}

func rate(count int, sent float64) float64 {
	return float64(count) / sent * 100
}
