// Package campaign orchestrates templated sends against resolved recipient
// sets: it claims a per-intent lock, creates the campaign record, throttles
// sends in fixed-size batches, records outcomes per recipient, and applies
// the early-access side effect. A transport failure for one recipient never
// blocks or fails the campaign for the others.
package campaign

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/machinesoul11/ss-website-sub000/internal/domain"
	"github.com/machinesoul11/ss-website-sub000/internal/pkg/distlock"
	"github.com/machinesoul11/ss-website-sub000/internal/pkg/logger"
	"github.com/machinesoul11/ss-website-sub000/internal/segmentation"
)

// TypeEarlyAccess marks campaigns that grant beta access; a successful send
// advances the recipient's beta_status to active.
const TypeEarlyAccess = "early_access_invite"

// Defaults for send-rate throttling. The inter-batch delay is cooperative
// pacing against provider rate limits, not a correctness requirement.
const (
	DefaultBatchSize  = 10
	DefaultBatchDelay = time.Second
)

// RecipientSource names the recipients of a send: either an explicit id list
// or a segment filter. Exactly one should be set; ids win when both are.
type RecipientSource struct {
	IDs    []string             `json:"recipient_ids,omitempty"`
	Filter *segmentation.Filter `json:"filter,omitempty"`
}

// DataBuilder produces the per-user template data for a send. The
// orchestrator merges in the unsubscribe link and send date afterwards, so
// builders never need to supply those.
type DataBuilder func(u domain.User) map[string]any

// SendRequest describes one campaign send.
type SendRequest struct {
	TemplateID string
	EmailType  string
	Subject    string
	Recipients RecipientSource
	Build      DataBuilder
}

// Result is the structured outcome of a send: success counts plus one error
// message per failed recipient. Partial failure is reported here, never as a
// top-level error.
type Result struct {
	CampaignID string   `json:"campaign_id"`
	TotalSent  int      `json:"total_sent"`
	Errors     []string `json:"errors"`
}

// LockFactory builds a distributed lock for a campaign-intent key. A nil
// factory disables locking (single-process deployments).
type LockFactory func(key string) distlock.DistLock

// Service is the campaign orchestrator.
type Service struct {
	repo      Repository
	users     UserStore
	transport Transport
	newLock   LockFactory

	unsubscribeBase string
	batchSize       int
	batchDelay      time.Duration

	sleep func(time.Duration)
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithThrottle overrides the batch size and inter-batch delay.
func WithThrottle(batchSize int, delay time.Duration) Option {
	return func(s *Service) {
		if batchSize > 0 {
			s.batchSize = batchSize
		}
		if delay >= 0 {
			s.batchDelay = delay
		}
	}
}

// WithLockFactory installs the per-campaign-intent lock used to prevent
// concurrent double-sends against the same segment.
func WithLockFactory(f LockFactory) Option {
	return func(s *Service) { s.newLock = f }
}

// NewService creates a campaign orchestrator. unsubscribeBase is the public
// URL that per-recipient unsubscribe links are built from.
func NewService(repo Repository, users UserStore, transport Transport, unsubscribeBase string, opts ...Option) *Service {
	s := &Service{
		repo:            repo,
		users:           users,
		transport:       transport,
		unsubscribeBase: unsubscribeBase,
		batchSize:       DefaultBatchSize,
		batchDelay:      DefaultBatchDelay,
		sleep:           time.Sleep,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send resolves recipients, creates the campaign record, and delivers one
// templated message per recipient in throttled batches.
//
// Whole-operation preconditions (no recipients, missing template, concurrent
// send in progress) return a top-level error; per-recipient transport
// failures are collected in Result.Errors and the loop continues.
func (s *Service) Send(ctx context.Context, req SendRequest) (Result, error) {
	if req.TemplateID == "" {
		return Result{}, ErrNoTemplate
	}

	recipients, filterDesc, err := s.resolveRecipients(ctx, req.Recipients)
	if err != nil {
		return Result{}, fmt.Errorf("resolve recipients: %w", err)
	}
	if len(recipients) == 0 {
		return Result{Errors: []string{"no eligible recipients for " + filterDesc}}, ErrNoRecipients
	}

	if s.newLock != nil {
		lock := s.newLock(intentKey(req.EmailType, filterDesc))
		ok, err := lock.Acquire(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("acquire campaign lock: %w", err)
		}
		if !ok {
			return Result{}, ErrInProgress
		}
		defer lock.Release(context.WithoutCancel(ctx))
	}

	c := &domain.Campaign{
		ID:              uuid.New().String(),
		Type:            req.EmailType,
		Subject:         req.Subject,
		SegmentFilter:   filterDesc,
		Status:          domain.CampaignSending,
		TotalRecipients: len(recipients),
		CreatedAt:       s.now(),
	}
	if err := s.repo.CreateCampaign(ctx, c); err != nil {
		return Result{}, fmt.Errorf("create campaign: %w", err)
	}

	result := Result{CampaignID: c.ID}
	for start := 0; start < len(recipients); start += s.batchSize {
		end := min(start+s.batchSize, len(recipients))
		for _, u := range recipients[start:end] {
			if err := s.sendOne(ctx, c, req, u); err != nil {
				result.Errors = append(result.Errors,
					fmt.Sprintf("%s: %v", logger.RedactEmail(u.Email), err))
				continue
			}
			result.TotalSent++
		}
		if end < len(recipients) {
			s.sleep(s.batchDelay)
		}
	}

	status := domain.CampaignSent
	if result.TotalSent == 0 {
		status = domain.CampaignFailed
	}
	if err := s.repo.FinishCampaign(ctx, c.ID, status, result.TotalSent, len(result.Errors)); err != nil {
		logger.Error("finish campaign failed", "campaign_id", c.ID, "error", err.Error())
	}

	logger.Info("campaign completed",
		"campaign_id", c.ID,
		"type", req.EmailType,
		"sent", result.TotalSent,
		"errors", len(result.Errors),
	)
	return result, nil
}

// Get returns a single campaign record.
func (s *Service) Get(ctx context.Context, id string) (*domain.Campaign, error) {
	return s.repo.GetCampaign(ctx, id)
}

// List returns recent campaigns, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]domain.Campaign, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.ListCampaigns(ctx, limit)
}

// resolveRecipients expands a RecipientSource into concrete users. Explicitly
// named ids bypass the consent filter; segment-filtered recipients must be
// mailable (marketing consent, non-terminal email status).
func (s *Service) resolveRecipients(ctx context.Context, src RecipientSource) ([]domain.User, string, error) {
	if len(src.IDs) > 0 {
		users, err := s.users.GetUsersByIDs(ctx, src.IDs)
		if err != nil {
			return nil, "", err
		}
		return users, fmt.Sprintf("explicit list of %d", len(src.IDs)), nil
	}

	filter := segmentation.Filter{}
	if src.Filter != nil {
		filter = *src.Filter
	}

	all, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, "", err
	}

	var eligible []domain.User
	for _, u := range filter.Match(all) {
		if u.Mailable() {
			eligible = append(eligible, u)
		}
	}
	return eligible, filter.Describe(), nil
}

func (s *Service) sendOne(ctx context.Context, c *domain.Campaign, req SendRequest, u domain.User) error {
	data := map[string]any{}
	if req.Build != nil {
		for k, v := range req.Build(u) {
			data[k] = v
		}
	}
	data["unsubscribe_url"] = s.unsubscribeURL(u.Email)
	data["send_date"] = s.now().Format("January 2, 2006")

	subject, err := renderSubject(req.Subject, u, data)
	if err != nil {
		return fmt.Errorf("render subject: %w", err)
	}

	msgID, err := s.transport.SendTemplate(ctx, &Message{
		ToEmail:    u.Email,
		ToName:     u.GitHubHandle,
		TemplateID: req.TemplateID,
		Subject:    subject,
		Data:       data,
	})
	if err != nil {
		return err
	}

	ev := &domain.EmailEvent{
		UserID:            u.ID,
		Email:             u.Email,
		EmailType:         req.EmailType,
		Type:              domain.EventSent,
		CampaignID:        &c.ID,
		ProviderMessageID: msgID,
		Timestamp:         s.now(),
	}
	if err := s.repo.AppendSentEvent(ctx, ev); err != nil {
		// The message is already out; an unlogged send is recovered by the
		// next full score recompute, so record and move on.
		logger.Warn("record sent event failed", "user_id", u.ID, "error", err.Error())
	}

	if req.EmailType == TypeEarlyAccess {
		if err := s.users.SetBetaStatus(ctx, u.ID, domain.BetaActive); err != nil {
			logger.Warn("advance beta status failed", "user_id", u.ID, "error", err.Error())
		}
	}
	return nil
}

func (s *Service) unsubscribeURL(email string) string {
	return strings.TrimRight(s.unsubscribeBase, "/") + "/unsubscribe?email=" + url.QueryEscape(email)
}

// intentKey identifies one campaign intent (type + audience) for locking.
func intentKey(emailType, filterDesc string) string {
	return "campaign-intent:" + emailType + ":" + strings.ReplaceAll(filterDesc, " ", "_")
}
