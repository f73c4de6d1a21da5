package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/machinesoul11/ss-website-sub000/internal/domain"
	"github.com/machinesoul11/ss-website-sub000/internal/engagement"
	"github.com/machinesoul11/ss-website-sub000/internal/webhook"
)

const userColumns = `id, email, COALESCE(github_username,''), current_tools,
	documentation_platforms, COALESCE(use_case,''), team_size,
	marketing_opt_in, research_opt_in, beta_status, engagement_score,
	email_status, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(
		&u.ID, &u.Email, &u.GitHubHandle, pq.Array(&u.CurrentTools),
		pq.Array(&u.DocPlatforms), &u.UseCase, &u.TeamSize,
		&u.MarketingOptIn, &u.ResearchOptIn, &u.BetaStatus, &u.EngagementScore,
		&u.EmailStatus, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM signups WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, webhook.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM signups WHERE LOWER(email) = LOWER($1)`, email))
	if err == sql.ErrNoRows {
		return nil, webhook.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM signups ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) ([]domain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM signups WHERE id = ANY($1) ORDER BY created_at`,
		pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("get users by ids: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *Store) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM signups ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetUser returns the profile slice the engagement scorer reads.
func (s *Store) GetUser(ctx context.Context, userID string) (*engagement.UserProfile, error) {
	p := &engagement.UserProfile{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, COALESCE(github_username,''), current_tools,
		       documentation_platforms, COALESCE(use_case,''), created_at
		FROM signups WHERE id = $1
	`, userID).Scan(
		&p.ID, &p.GitHubHandle, pq.Array(&p.CurrentTools),
		pq.Array(&p.DocPlatforms), &p.UseCase, &p.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, webhook.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user profile: %w", err)
	}
	return p, nil
}

func (s *Store) UpdateScore(ctx context.Context, userID string, score int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE signups SET engagement_score = $2, updated_at = NOW() WHERE id = $1`,
		userID, score)
	if err != nil {
		return fmt.Errorf("update score: %w", err)
	}
	return nil
}

// IncrementScore adjusts the stored score by delta, clamped to [0,100].
func (s *Store) IncrementScore(ctx context.Context, userID string, delta int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE signups
		SET engagement_score = LEAST(100, GREATEST(0, engagement_score + $2)),
		    updated_at = NOW()
		WHERE id = $1
	`, userID, delta)
	if err != nil {
		return fmt.Errorf("increment score: %w", err)
	}
	return nil
}

func (s *Store) SetBetaStatus(ctx context.Context, userID string, status domain.BetaStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE signups SET beta_status = $2, updated_at = NOW() WHERE id = $1`,
		userID, status)
	if err != nil {
		return fmt.Errorf("set beta status: %w", err)
	}
	return nil
}

// ApplyEmailStatus ratchets email_status toward a terminal value and drops
// the named consents. The CASE guards only the status column: once terminal
// it never changes again, but consent withdrawal always lands, so a spam
// complaint after an unsubscribe still clears research_opt_in.
func (s *Store) ApplyEmailStatus(ctx context.Context, userID string, status domain.EmailStatus, dropMarketing, dropResearch bool) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE signups
		SET email_status = CASE WHEN email_status = 'ok' THEN $2 ELSE email_status END,
		    marketing_opt_in = marketing_opt_in AND NOT $3,
		    research_opt_in = research_opt_in AND NOT $4,
		    updated_at = NOW()
		WHERE id = $1
	`, userID, status, dropMarketing, dropResearch)
	if err != nil {
		return fmt.Errorf("apply email status: %w", err)
	}
	return nil
}
