package deliverability

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	counts Counts
	since  time.Time
}

func (s *stubStore) WindowCounts(_ context.Context, since time.Time) (Counts, error) {
	s.since = since
	return s.counts, nil
}

func TestMetricsLowDeliveryScenario(t *testing.T) {
	store := &stubStore{counts: Counts{Sent: 100, Delivered: 80, Opened: 40, Clicked: 10}}
	m := NewMonitor(store)

	metrics, err := m.Metrics(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, 100, metrics.TotalSent)
	assert.InDelta(t, 80.0, metrics.DeliveredRate, 0.001)
	assert.InDelta(t, 40.0, metrics.OpenRate, 0.001)

	require.NotEmpty(t, metrics.Issues)
	found := false
	for _, issue := range metrics.Issues {
		if strings.Contains(issue, "Low delivery rate") {
			found = true
		}
	}
	assert.True(t, found, "issues = %v, want low delivery rate flag", metrics.Issues)
}

func TestMetricsThresholds(t *testing.T) {
	cases := []struct {
		name      string
		counts    Counts
		wantIssue string
	}{
		{"high bounce", Counts{Sent: 100, Delivered: 100, Opened: 50, Bounced: 6}, "High bounce rate"},
		{"high spam", Counts{Sent: 1000, Delivered: 1000, Opened: 500, SpamComplaints: 2}, "High spam complaint rate"},
		{"low open informational", Counts{Sent: 100, Delivered: 100, Opened: 10}, "Low open rate"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewMonitor(&stubStore{counts: tc.counts})
			metrics, err := m.Metrics(context.Background(), 7)
			require.NoError(t, err)

			found := false
			for _, issue := range metrics.Issues {
				if strings.Contains(issue, tc.wantIssue) {
					found = true
				}
			}
			assert.True(t, found, "issues = %v, want %q", metrics.Issues, tc.wantIssue)
		})
	}
}

func TestMetricsHealthyWindowHasNoCriticalIssues(t *testing.T) {
	m := NewMonitor(&stubStore{counts: Counts{
		Sent: 1000, Delivered: 980, Opened: 400, Clicked: 80, Bounced: 5,
	}})
	metrics, err := m.Metrics(context.Background(), 30)
	require.NoError(t, err)
	assert.Empty(t, metrics.Issues)
}

func TestMetricsEmptyWindow(t *testing.T) {
	m := NewMonitor(&stubStore{})
	metrics, err := m.Metrics(context.Background(), 7)
	require.NoError(t, err)

	assert.Zero(t, metrics.TotalSent)
	assert.Zero(t, metrics.DeliveredRate)
	assert.Empty(t, metrics.Issues, "no sends means nothing to flag")
}

func TestMetricsWindowDefaults(t *testing.T) {
	store := &stubStore{counts: Counts{Sent: 10, Delivered: 10, Opened: 5}}
	m := NewMonitor(store)
	now := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	metrics, err := m.Metrics(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 7, metrics.WindowDays)
	assert.Equal(t, now.AddDate(0, 0, -7), store.since)
}
