package abtest

import "math"

// Winner labels for a verdict.
const (
	WinnerA      = "variant_a"
	WinnerB      = "variant_b"
	Inconclusive = "inconclusive"
)

// SignificanceStrategy turns two variants' stats into a verdict. It exists
// so the shipped heuristic can be swapped for a proper hypothesis test
// without touching any call site.
type SignificanceStrategy interface {
	// Evaluate returns the winning variant label (or Inconclusive) and a
	// significance value in [0,99]. metric is "open_rate" or "click_rate";
	// confidence is the test's configured level (e.g. 0.95).
	Evaluate(a, b VariantStats, metric string, confidence float64) (winner string, significance float64)
}

// RateDiffStrategy is the default, deliberately simplified heuristic:
// significance is the absolute rate difference times 10, capped at 99.
// It is a placeholder, not a hypothesis test; ZTestStrategy is the
// candidate replacement.
type RateDiffStrategy struct{}

func (RateDiffStrategy) Evaluate(a, b VariantStats, metric string, confidence float64) (string, float64) {
	ra, rb := a.metricRate(metric), b.metricRate(metric)
	if a.Sent == 0 || b.Sent == 0 {
		return Inconclusive, 0
	}

	significance := math.Min(99, math.Abs(ra-rb)*10)
	if significance < confidence*100 {
		return Inconclusive, significance
	}
	if ra > rb {
		return WinnerA, significance
	}
	return WinnerB, significance
}

// ZTestStrategy applies a two-proportion z-test. Significance is scaled so
// the critical z for the configured confidence maps to confidence*100,
// keeping verdicts comparable with the heuristic's scale.
type ZTestStrategy struct{}

func (ZTestStrategy) Evaluate(a, b VariantStats, metric string, confidence float64) (string, float64) {
	if a.Sent == 0 || b.Sent == 0 {
		return Inconclusive, 0
	}

	pa := a.metricRate(metric) / 100
	pb := b.metricRate(metric) / 100
	na, nb := float64(a.Sent), float64(b.Sent)

	pooled := (pa*na + pb*nb) / (na + nb)
	if pooled <= 0 || pooled >= 1 {
		return Inconclusive, 0
	}
	se := math.Sqrt(pooled * (1 - pooled) * (1/na + 1/nb))
	if se == 0 {
		return Inconclusive, 0
	}

	z := math.Abs(pa-pb) / se
	critical := criticalZ(confidence)
	significance := math.Min(99, z/critical*confidence*100)
	if z < critical {
		return Inconclusive, significance
	}
	if pa > pb {
		return WinnerA, significance
	}
	return WinnerB, significance
}

// criticalZ returns the two-sided critical value for the usual confidence
// levels; anything unlisted falls back to 95%.
func criticalZ(confidence float64) float64 {
	switch {
	case confidence >= 0.99:
		return 2.576
	case confidence >= 0.95:
		return 1.96
	case confidence >= 0.90:
		return 1.645
	default:
		return 1.96
	}
}
