package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/machinesoul11/ss-website-sub000/internal/campaign"
	"github.com/machinesoul11/ss-website-sub000/internal/domain"
)

func (s *Store) CreateCampaign(ctx context.Context, c *domain.Campaign) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO campaigns
			(id, campaign_type, subject, segment_filter, status,
			 total_recipients, sent_count, error_count, scheduled_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
	`, c.ID, c.Type, c.Subject, c.SegmentFilter, c.Status,
		c.TotalRecipients, c.SentCount, c.ErrorCount, c.ScheduledAt)
	if err != nil {
		return fmt.Errorf("create campaign: %w", err)
	}
	return nil
}

func (s *Store) FinishCampaign(ctx context.Context, id string, status domain.CampaignStatus, sent, errored int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE campaigns
		SET status = $2, sent_count = $3, error_count = $4,
		    completed_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`, id, status, sent, errored)
	if err != nil {
		return fmt.Errorf("finish campaign: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return campaign.ErrNotFound
	}
	return nil
}

func (s *Store) GetCampaign(ctx context.Context, id string) (*domain.Campaign, error) {
	c := &domain.Campaign{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, campaign_type, subject, COALESCE(segment_filter,''), status,
		       total_recipients, sent_count, error_count,
		       scheduled_at, completed_at, created_at, updated_at
		FROM campaigns WHERE id = $1
	`, id).Scan(
		&c.ID, &c.Type, &c.Subject, &c.SegmentFilter, &c.Status,
		&c.TotalRecipients, &c.SentCount, &c.ErrorCount,
		&c.ScheduledAt, &c.CompletedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, campaign.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

func (s *Store) ListCampaigns(ctx context.Context, limit int) ([]domain.Campaign, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, campaign_type, subject, COALESCE(segment_filter,''), status,
		       total_recipients, sent_count, error_count,
		       scheduled_at, completed_at, created_at, updated_at
		FROM campaigns ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var out []domain.Campaign
	for rows.Next() {
		var c domain.Campaign
		if err := rows.Scan(
			&c.ID, &c.Type, &c.Subject, &c.SegmentFilter, &c.Status,
			&c.TotalRecipients, &c.SentCount, &c.ErrorCount,
			&c.ScheduledAt, &c.CompletedAt, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
