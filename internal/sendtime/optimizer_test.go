package sendtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStore struct {
	sends [24]int
	opens [24]int
}

func (s *stubStore) HourlyEngagement(context.Context, time.Time) ([24]int, [24]int, error) {
	return s.sends, s.opens, nil
}

func TestBestHourPicksHighestOpenRate(t *testing.T) {
	store := &stubStore{}
	for h := 8; h < 18; h++ {
		store.sends[h] = 50
		store.opens[h] = 10
	}
	store.opens[10] = 30 // 60% open rate at 10:00 UTC

	rec, err := NewOptimizer(store).BestHour(context.Background(), 30)
	require.NoError(t, err)

	assert.Equal(t, 10, rec.HourUTC)
	assert.Equal(t, "audience", rec.Source)
	assert.Equal(t, 500, rec.SampleSize)
	assert.Greater(t, rec.Confidence, 0.0)
}

func TestBestHourFallsBackOnThinData(t *testing.T) {
	store := &stubStore{}
	store.sends[3] = 5
	store.opens[3] = 5 // perfect rate, but far too few sends

	rec, err := NewOptimizer(store).BestHour(context.Background(), 30)
	require.NoError(t, err)

	assert.Equal(t, DefaultHourUTC, rec.HourUTC)
	assert.Equal(t, "default", rec.Source)
}

func TestBestHourIgnoresSparseOutlierHours(t *testing.T) {
	store := &stubStore{}
	for h := 9; h < 17; h++ {
		store.sends[h] = 100
		store.opens[h] = 25
	}
	// One lucky open at 02:00 from a single send must not win.
	store.sends[2] = 1
	store.opens[2] = 1

	rec, err := NewOptimizer(store).BestHour(context.Background(), 30)
	require.NoError(t, err)
	assert.NotEqual(t, 2, rec.HourUTC)
}

func TestNextSendTime(t *testing.T) {
	o := NewOptimizer(&stubStore{})
	o.now = func() time.Time {
		return time.Date(2026, 5, 1, 16, 30, 0, 0, time.UTC)
	}

	// Recommended hour already passed today: schedule tomorrow.
	at := o.NextSendTime(&Recommendation{HourUTC: 14})
	assert.Equal(t, time.Date(2026, 5, 2, 14, 0, 0, 0, time.UTC), at)

	// Still ahead today.
	at = o.NextSendTime(&Recommendation{HourUTC: 20})
	assert.Equal(t, time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC), at)
}
