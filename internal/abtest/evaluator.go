// Package abtest computes per-variant engagement rates from the tagged event
// log and issues a verdict. Results are derived on demand, never stored as a
// running aggregate.
package abtest

import (
	"context"
	"errors"
	"fmt"

	"github.com/machinesoul11/ss-website-sub000/internal/domain"
)

// ErrTestNotFound is returned when no test matches the given id.
var ErrTestNotFound = errors.New("ab test not found")

// ErrInvalidTest is returned when a test configuration is incomplete.
var ErrInvalidTest = errors.New("invalid ab test")

// VariantStats holds one arm's counts and derived rates (in percent).
type VariantStats struct {
	Sent      int     `json:"sent"`
	Opened    int     `json:"opened"`
	Clicked   int     `json:"clicked"`
	OpenRate  float64 `json:"open_rate"`
	ClickRate float64 `json:"click_rate"`
}

func (v VariantStats) metricRate(metric string) float64 {
	if metric == "click_rate" {
		return v.ClickRate
	}
	return v.OpenRate
}

// Result is the computed outcome of a test.
type Result struct {
	TestID       string       `json:"test_id"`
	VariantA     VariantStats `json:"variant_a"`
	VariantB     VariantStats `json:"variant_b"`
	Winner       string       `json:"winner"`
	Significance float64      `json:"significance"`
}

// Store is the persistence surface the evaluator needs.
type Store interface {
	// CreateTest persists a new test configuration.
	CreateTest(ctx context.Context, t *domain.ABTest) error

	// GetTest returns a test configuration. Returns ErrTestNotFound if absent.
	GetTest(ctx context.Context, id string) (*domain.ABTest, error)

	// VariantCounts returns sent/opened/clicked totals for one arm of a test.
	VariantCounts(ctx context.Context, testID string, variant domain.ABVariant) (sent, opened, clicked int, err error)
}

// Evaluator computes A/B test results.
type Evaluator struct {
	store    Store
	strategy SignificanceStrategy
}

// NewEvaluator creates an evaluator. A nil strategy selects the default
// rate-difference heuristic.
func NewEvaluator(store Store, strategy SignificanceStrategy) *Evaluator {
	if strategy == nil {
		strategy = RateDiffStrategy{}
	}
	return &Evaluator{store: store, strategy: strategy}
}

// Create validates a test configuration, fills in defaults and persists it
// in the running state.
func (e *Evaluator) Create(ctx context.Context, t *domain.ABTest) error {
	if t.CampaignID == "" {
		return fmt.Errorf("%w: campaign_id is required", ErrInvalidTest)
	}
	for _, v := range []domain.VariantConfig{t.VariantA, t.VariantB} {
		if v.Subject == "" || v.TemplateID == "" {
			return fmt.Errorf("%w: both variants need a subject and template_id", ErrInvalidTest)
		}
	}
	switch t.SuccessMetric {
	case "":
		t.SuccessMetric = "open_rate"
	case "open_rate", "click_rate":
	default:
		return fmt.Errorf("%w: unknown success metric %q", ErrInvalidTest, t.SuccessMetric)
	}
	if t.SplitPercent == 0 {
		t.SplitPercent = 50
	}
	if t.SplitPercent < 1 || t.SplitPercent > 99 {
		return fmt.Errorf("%w: split_percent must be between 1 and 99", ErrInvalidTest)
	}
	if t.ConfidenceLevel == 0 {
		t.ConfidenceLevel = 0.95
	}
	t.Status = domain.ABTestRunning
	return e.store.CreateTest(ctx, t)
}

// Results computes per-variant rates and the verdict for one test.
func (e *Evaluator) Results(ctx context.Context, testID string) (*Result, error) {
	test, err := e.store.GetTest(ctx, testID)
	if err != nil {
		return nil, err
	}

	a, err := e.variantStats(ctx, testID, domain.VariantA)
	if err != nil {
		return nil, err
	}
	b, err := e.variantStats(ctx, testID, domain.VariantB)
	if err != nil {
		return nil, err
	}

	winner, significance := e.strategy.Evaluate(a, b, test.SuccessMetric, test.ConfidenceLevel)
	return &Result{
		TestID:       testID,
		VariantA:     a,
		VariantB:     b,
		Winner:       winner,
		Significance: significance,
	}, nil
}

func (e *Evaluator) variantStats(ctx context.Context, testID string, v domain.ABVariant) (VariantStats, error) {
	sent, opened, clicked, err := e.store.VariantCounts(ctx, testID, v)
	if err != nil {
		return VariantStats{}, fmt.Errorf("variant %s counts: %w", v, err)
	}

	stats := VariantStats{Sent: sent, Opened: opened, Clicked: clicked}
	if sent > 0 {
		stats.OpenRate = float64(opened) / float64(sent) * 100
		stats.ClickRate = float64(clicked) / float64(sent) * 100
	}
	return stats, nil
}
