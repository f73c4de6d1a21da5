package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/machinesoul11/ss-website-sub000/internal/abtest"
	"github.com/machinesoul11/ss-website-sub000/internal/domain"
)

func (s *Store) CreateTest(ctx context.Context, t *domain.ABTest) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	va, err := json.Marshal(t.VariantA)
	if err != nil {
		return fmt.Errorf("marshal variant a: %w", err)
	}
	vb, err := json.Marshal(t.VariantB)
	if err != nil {
		return fmt.Errorf("marshal variant b: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ab_tests
			(id, campaign_id, variant_a, variant_b, split_percent,
			 target_sample_size, success_metric, confidence_level, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
	`, t.ID, t.CampaignID, va, vb, t.SplitPercent,
		t.TargetSampleSize, t.SuccessMetric, t.ConfidenceLevel, t.Status)
	if err != nil {
		return fmt.Errorf("create ab test: %w", err)
	}
	return nil
}

func (s *Store) GetTest(ctx context.Context, id string) (*domain.ABTest, error) {
	t := &domain.ABTest{}
	var va, vb []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, campaign_id, variant_a, variant_b, split_percent,
		       target_sample_size, success_metric, confidence_level, status, created_at
		FROM ab_tests WHERE id = $1
	`, id).Scan(
		&t.ID, &t.CampaignID, &va, &vb, &t.SplitPercent,
		&t.TargetSampleSize, &t.SuccessMetric, &t.ConfidenceLevel, &t.Status, &t.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, abtest.ErrTestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ab test: %w", err)
	}
	if err := json.Unmarshal(va, &t.VariantA); err != nil {
		return nil, fmt.Errorf("decode variant a: %w", err)
	}
	if err := json.Unmarshal(vb, &t.VariantB); err != nil {
		return nil, fmt.Errorf("decode variant b: %w", err)
	}
	return t, nil
}

// VariantCounts aggregates one arm's totals from the variant-tagged event log
// of the test's campaign.
func (s *Store) VariantCounts(ctx context.Context, testID string, variant domain.ABVariant) (sent, opened, clicked int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FILTER (WHERE event_type = 'sent'),
		       COUNT(*) FILTER (WHERE event_type = 'opened'),
		       COUNT(*) FILTER (WHERE event_type = 'clicked')
		FROM email_events
		WHERE campaign_id = (SELECT campaign_id FROM ab_tests WHERE id = $1)
		  AND variant = $2
	`, testID, variant).Scan(&sent, &opened, &clicked)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("variant counts: %w", err)
	}
	return sent, opened, clicked, nil
}
