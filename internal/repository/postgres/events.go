package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/machinesoul11/ss-website-sub000/internal/deliverability"
	"github.com/machinesoul11/ss-website-sub000/internal/domain"
	"github.com/machinesoul11/ss-website-sub000/internal/engagement"
)

// AppendSentEvent records a pipeline-originated event. It carries no provider
// event id, so there is nothing to deduplicate on.
func (s *Store) AppendSentEvent(ctx context.Context, ev *domain.EmailEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO email_events
			(id, user_id, email, email_type, event_type, campaign_id, variant,
			 provider_message_id, event_timestamp, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7,''), NULLIF($8,''), $9, NOW())
	`, ev.ID, ev.UserID, ev.Email, ev.EmailType, ev.Type, ev.CampaignID,
		ev.Variant, ev.ProviderMessageID, ev.Timestamp)
	if err != nil {
		return fmt.Errorf("append sent event: %w", err)
	}
	return nil
}

// AppendEvent inserts a webhook-originated event row, deduplicated on the
// provider event id. Returns false when the id was already recorded.
func (s *Store) AppendEvent(ctx context.Context, ev *domain.EmailEvent) (bool, error) {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO email_events
			(id, user_id, email, email_type, event_type, campaign_id, variant,
			 provider_event_id, event_timestamp, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7,''), $8, $9, NOW())
		ON CONFLICT (provider_event_id) DO NOTHING
	`, ev.ID, ev.UserID, ev.Email, ev.EmailType, ev.Type, ev.CampaignID,
		ev.Variant, nullable(ev.ProviderEventID), ev.Timestamp)
	if err != nil {
		return false, fmt.Errorf("append event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) RecordBounce(ctx context.Context, rec *domain.BounceRecord) (bool, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO bounce_records
			(id, email, provider_event_id, bounce_type, status_code, reason, event_timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (provider_event_id) DO NOTHING
	`, rec.ID, rec.Email, nullable(rec.ProviderEventID), rec.BounceType,
		rec.StatusCode, rec.Reason, rec.Timestamp)
	if err != nil {
		return false, fmt.Errorf("record bounce: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) RecordSpamComplaint(ctx context.Context, rec *domain.SpamComplaintRecord) (bool, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO spam_complaints (id, email, provider_event_id, campaign_id, event_timestamp)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (provider_event_id) DO NOTHING
	`, rec.ID, rec.Email, nullable(rec.ProviderEventID), rec.CampaignID, rec.Timestamp)
	if err != nil {
		return false, fmt.Errorf("record spam complaint: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UserActivity aggregates the interaction counts the scorer reads: opens and
// clicks from the event log, feedback from its own table. Recency considers
// every event type, so a plain delivery still counts as recent activity.
func (s *Store) UserActivity(ctx context.Context, userID string) (*engagement.Activity, error) {
	a := &engagement.Activity{}

	var lastEvent, lastFeedback *time.Time
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FILTER (WHERE event_type = 'opened'),
		       COUNT(*) FILTER (WHERE event_type = 'clicked'),
		       MAX(event_timestamp)
		FROM email_events WHERE user_id = $1
	`, userID).Scan(&a.Opens, &a.Clicks, &lastEvent)
	if err != nil {
		return nil, fmt.Errorf("user activity events: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), MAX(created_at) FROM feedback WHERE user_id = $1`,
		userID).Scan(&a.Feedback, &lastFeedback)
	if err != nil {
		return nil, fmt.Errorf("user activity feedback: %w", err)
	}

	a.LastEventAt = lastEvent
	a.LastFeedback = lastFeedback
	return a, nil
}

// WindowCounts aggregates event totals since the given time. Bounce and spam
// totals come from the deduplicated fact tables.
func (s *Store) WindowCounts(ctx context.Context, since time.Time) (deliverability.Counts, error) {
	var c deliverability.Counts
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FILTER (WHERE event_type = 'sent'),
		       COUNT(*) FILTER (WHERE event_type = 'delivered'),
		       COUNT(*) FILTER (WHERE event_type = 'opened'),
		       COUNT(*) FILTER (WHERE event_type = 'clicked'),
		       COUNT(*) FILTER (WHERE event_type IN ('unsubscribe','group_unsubscribe'))
		FROM email_events WHERE event_timestamp >= $1
	`, since).Scan(&c.Sent, &c.Delivered, &c.Opened, &c.Clicked, &c.Unsubscribes)
	if err != nil {
		return c, fmt.Errorf("window counts: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bounce_records WHERE event_timestamp >= $1`,
		since).Scan(&c.Bounced)
	if err != nil {
		return c, fmt.Errorf("window bounce count: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM spam_complaints WHERE event_timestamp >= $1`,
		since).Scan(&c.SpamComplaints)
	if err != nil {
		return c, fmt.Errorf("window spam count: %w", err)
	}
	return c, nil
}

// HourlyEngagement returns per-UTC-hour send and open totals since the given
// time, for the send-time optimizer.
func (s *Store) HourlyEngagement(ctx context.Context, since time.Time) (sends, opens [24]int, err error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT EXTRACT(HOUR FROM event_timestamp AT TIME ZONE 'UTC')::int,
		       COUNT(*) FILTER (WHERE event_type = 'sent'),
		       COUNT(*) FILTER (WHERE event_type = 'opened')
		FROM email_events
		WHERE event_timestamp >= $1 AND event_type IN ('sent','opened')
		GROUP BY 1
	`, since)
	if err != nil {
		return sends, opens, fmt.Errorf("hourly engagement: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var hour, sent, opened int
		if err := rows.Scan(&hour, &sent, &opened); err != nil {
			return sends, opens, err
		}
		if hour < 0 || hour > 23 {
			continue
		}
		sends[hour] = sent
		opens[hour] = opened
	}
	return sends, opens, rows.Err()
}
