// Package sendtime recommends a send hour from the audience's historical
// open behavior. It operates at audience level only: per-recipient send-time
// models need far more data than a beta list produces.
package sendtime

import (
	"context"
	"fmt"
	"time"
)

// DefaultHourUTC is used when the window holds too little data to trust:
// mid-morning US Eastern, the conventional B2B default.
const DefaultHourUTC = 14

// minSampleSize is the minimum number of tracked sends in the window before
// the audience histogram outranks the default.
const minSampleSize = 100

// HourStats is one hour-of-day bucket in the engagement histogram.
type HourStats struct {
	Hour     int     `json:"hour"`
	Sends    int     `json:"sends"`
	Opens    int     `json:"opens"`
	OpenRate float64 `json:"open_rate"`
}

// Store is the read surface the optimizer needs: sends and opens bucketed by
// UTC hour of day over a trailing window.
type Store interface {
	HourlyEngagement(ctx context.Context, since time.Time) (sends, opens [24]int, err error)
}

// Recommendation is the optimizer's output. Source is "audience" when the
// histogram decided, "default" otherwise.
type Recommendation struct {
	HourUTC    int         `json:"hour_utc"`
	Source     string      `json:"source"`
	Confidence float64     `json:"confidence"`
	SampleSize int         `json:"sample_size"`
	Histogram  []HourStats `json:"histogram,omitempty"`
}

// Optimizer computes audience-level send-time recommendations.
type Optimizer struct {
	store Store
	now   func() time.Time
}

// NewOptimizer creates a send-time optimizer.
func NewOptimizer(store Store) *Optimizer {
	return &Optimizer{store: store, now: time.Now}
}

// BestHour returns the recommended UTC send hour over the trailing
// windowDays of engagement history.
func (o *Optimizer) BestHour(ctx context.Context, windowDays int) (*Recommendation, error) {
	if windowDays <= 0 {
		windowDays = 30
	}

	since := o.now().AddDate(0, 0, -windowDays)
	sends, opens, err := o.store.HourlyEngagement(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("hourly engagement: %w", err)
	}

	total := 0
	histogram := make([]HourStats, 0, 24)
	for h := 0; h < 24; h++ {
		stats := HourStats{Hour: h, Sends: sends[h], Opens: opens[h]}
		if stats.Sends > 0 {
			stats.OpenRate = float64(stats.Opens) / float64(stats.Sends) * 100
		}
		histogram = append(histogram, stats)
		total += stats.Sends
	}

	if total < minSampleSize {
		return &Recommendation{
			HourUTC:    DefaultHourUTC,
			Source:     "default",
			SampleSize: total,
			Histogram:  histogram,
		}, nil
	}

	best := DefaultHourUTC
	bestRate := -1.0
	for _, stats := range histogram {
		// Ignore hours with too few sends to mean anything.
		if stats.Sends < total/48 {
			continue
		}
		if stats.OpenRate > bestRate {
			best = stats.Hour
			bestRate = stats.OpenRate
		}
	}

	return &Recommendation{
		HourUTC:    best,
		Source:     "audience",
		Confidence: confidence(total),
		SampleSize: total,
		Histogram:  histogram,
	}, nil
}

// NextSendTime converts a recommended hour into the next wall-clock instant
// at or after now.
func (o *Optimizer) NextSendTime(rec *Recommendation) time.Time {
	now := o.now().UTC()
	at := time.Date(now.Year(), now.Month(), now.Day(), rec.HourUTC, 0, 0, 0, time.UTC)
	if !at.After(now) {
		at = at.AddDate(0, 0, 1)
	}
	return at
}

// confidence grows with sample size and saturates at 0.95.
func confidence(samples int) float64 {
	c := float64(samples) / 2000
	if c > 0.95 {
		return 0.95
	}
	return c
}
