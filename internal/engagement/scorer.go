// Package engagement derives the 0-100 engagement score from the event log,
// feedback history, profile completeness, and activity recency. The score is
// a pure function of (event log, profile, now): full recomputation is
// idempotent, and the only other mutation path is the small webhook
// increment applied by the event processor between recomputes.
package engagement

import (
	"context"
	"fmt"
	"time"
)

// Fixed scoring weights. Documented so the numbers are reproducible:
//
//	email interactions: min(40, opens*2 + clicks*5)
//	feedback:           min(30, submissions*10)
//	profile:            5 points per completed attribute, max 20
//	recency:            10 (<=7d), 5 (<=30d), 2 (<=60d), else 0
const (
	maxEmailPoints    = 40
	maxFeedbackPoints = 30
	maxProfilePoints  = 20
	maxRecencyPoints  = 10

	openPoints     = 2
	clickPoints    = 5
	feedbackPoints = 10
	profilePoints  = 5

	useCaseMinLength = 50
)

// Breakdown itemizes the components of a computed score.
type Breakdown struct {
	EmailInteractions   int `json:"email_interactions"`
	FeedbackSubmissions int `json:"feedback_submissions"`
	ProfileCompleteness int `json:"profile_completeness"`
	ActivityRecency     int `json:"activity_recency"`
}

// Score is the result of one score computation.
type Score struct {
	UserID    string    `json:"user_id"`
	Total     int       `json:"total"`
	Breakdown Breakdown `json:"breakdown"`
}

// RecomputeResult summarizes a batch recompute. Partial failure is expected:
// errors carry one message per failed user and do not abort the batch.
type RecomputeResult struct {
	Updated int      `json:"updated"`
	Errors  []string `json:"errors"`
}

// Activity is the per-user interaction summary the scorer reads from the
// record store.
type Activity struct {
	Opens        int
	Clicks       int
	Feedback     int
	LastEventAt  *time.Time
	LastFeedback *time.Time
}

// Store is the record-store surface the scorer needs. Implementations must
// be safe for concurrent use.
type Store interface {
	// GetUser returns the user's profile, or an error if unreadable.
	GetUser(ctx context.Context, userID string) (*UserProfile, error)
	// ListUserIDs returns the ids of every signup.
	ListUserIDs(ctx context.Context) ([]string, error)
	// UserActivity returns interaction counts and recency markers.
	UserActivity(ctx context.Context, userID string) (*Activity, error)
	// UpdateScore persists a recomputed score.
	UpdateScore(ctx context.Context, userID string, score int) error
}

// UserProfile is the slice of the user record the scorer reads.
type UserProfile struct {
	ID           string
	GitHubHandle string
	CurrentTools []string
	DocPlatforms []string
	UseCase      string
	CreatedAt    time.Time
}

// Scorer computes and persists engagement scores.
type Scorer struct {
	store Store
	now   func() time.Time
}

// NewScorer creates a scorer backed by the given store.
func NewScorer(store Store) *Scorer {
	return &Scorer{store: store, now: time.Now}
}

// Compute calculates the score for one user without persisting it.
// If the user record cannot be read it returns a zero score and the error;
// batch callers treat that as "skip this user", never as a batch abort.
func (s *Scorer) Compute(ctx context.Context, userID string) (Score, error) {
	zero := Score{UserID: userID}

	profile, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return zero, fmt.Errorf("get user %s: %w", userID, err)
	}

	activity, err := s.store.UserActivity(ctx, userID)
	if err != nil {
		return zero, fmt.Errorf("user activity %s: %w", userID, err)
	}

	b := Breakdown{
		EmailInteractions:   emailPoints(activity.Opens, activity.Clicks),
		FeedbackSubmissions: min(maxFeedbackPoints, activity.Feedback*feedbackPoints),
		ProfileCompleteness: profileScore(profile),
		ActivityRecency:     s.recencyScore(profile, activity),
	}

	return Score{
		UserID:    userID,
		Total:     b.EmailInteractions + b.FeedbackSubmissions + b.ProfileCompleteness + b.ActivityRecency,
		Breakdown: b,
	}, nil
}

// Recompute computes and persists the score for one user.
func (s *Scorer) Recompute(ctx context.Context, userID string) (Score, error) {
	score, err := s.Compute(ctx, userID)
	if err != nil {
		return score, err
	}
	if err := s.store.UpdateScore(ctx, userID, score.Total); err != nil {
		return score, fmt.Errorf("update score %s: %w", userID, err)
	}
	return score, nil
}

// RecomputeAll recomputes every user's score. Per-user failures are collected
// and returned; the remaining users are still processed.
func (s *Scorer) RecomputeAll(ctx context.Context) (RecomputeResult, error) {
	ids, err := s.store.ListUserIDs(ctx)
	if err != nil {
		return RecomputeResult{}, fmt.Errorf("list users: %w", err)
	}

	result := RecomputeResult{}
	for _, id := range ids {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if _, err := s.Recompute(ctx, id); err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		result.Updated++
	}
	return result, nil
}

func emailPoints(opens, clicks int) int {
	return min(maxEmailPoints, opens*openPoints+clicks*clickPoints)
}

func profileScore(p *UserProfile) int {
	points := 0
	if p.GitHubHandle != "" {
		points += profilePoints
	}
	if len(p.CurrentTools) > 0 {
		points += profilePoints
	}
	if len(p.DocPlatforms) > 0 {
		points += profilePoints
	}
	if len(p.UseCase) > useCaseMinLength {
		points += profilePoints
	}
	return points
}

// recencyScore awards points from the most recent of: any email event, any
// feedback submission, or account creation.
func (s *Scorer) recencyScore(p *UserProfile, a *Activity) int {
	latest := p.CreatedAt
	if a.LastEventAt != nil && a.LastEventAt.After(latest) {
		latest = *a.LastEventAt
	}
	if a.LastFeedback != nil && a.LastFeedback.After(latest) {
		latest = *a.LastFeedback
	}

	age := s.now().Sub(latest)
	switch {
	case age <= 7*24*time.Hour:
		return maxRecencyPoints
	case age <= 30*24*time.Hour:
		return 5
	case age <= 60*24*time.Hour:
		return 2
	default:
		return 0
	}
}
