package webhook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/machinesoul11/ss-website-sub000/internal/domain"
	"github.com/machinesoul11/ss-website-sub000/internal/pkg/logger"
)

// ErrUserNotFound is returned by Store lookups when no signup matches.
// The processor treats it as a skip, not a failure: callbacks for addresses
// removed before the callback arrived are expected.
var ErrUserNotFound = errors.New("user not found")

// Hard-bounce SMTP status prefixes. Anything else is a soft bounce: logged,
// recorded, but no status change.
var hardBouncePrefixes = []string{"550", "551", "553", "554", "556"}

// Score increments applied immediately on engagement callbacks, ahead of the
// next full recompute.
const (
	openScoreDelta  = 2
	clickScoreDelta = 5
)

// Store is the record-store surface the processor mutates. Implementations
// must make AppendEvent, RecordBounce, and RecordSpamComplaint deduplicate on
// provider event id (returning false for replays), and ApplyEmailStatus a
// one-way ratchet on the status column.
type Store interface {
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// AppendEvent inserts an event row. Returns false without inserting when
	// the provider event id was already recorded.
	AppendEvent(ctx context.Context, ev *domain.EmailEvent) (bool, error)

	// RecordBounce inserts a bounce fact, deduplicated by provider event id.
	RecordBounce(ctx context.Context, rec *domain.BounceRecord) (bool, error)

	// RecordSpamComplaint inserts a complaint fact, deduplicated by provider
	// event id.
	RecordSpamComplaint(ctx context.Context, rec *domain.SpamComplaintRecord) (bool, error)

	// ApplyEmailStatus ratchets the user's email status toward a terminal
	// value and withdraws the named consents. A terminal status never
	// changes again, but consent withdrawal applies regardless.
	ApplyEmailStatus(ctx context.Context, userID string, status domain.EmailStatus, dropMarketing, dropResearch bool) error

	// IncrementScore adjusts the engagement score by delta, clamped to [0,100].
	IncrementScore(ctx context.Context, userID string, delta int) error
}

// Processor applies provider callbacks to persisted state. Each invocation
// is stateless apart from counters; it is safe to run concurrently.
type Processor struct {
	store Store

	processed  int64
	skipped    int64
	duplicates int64
	failures   int64
}

// NewProcessor creates a webhook event processor.
func NewProcessor(store Store) *Processor {
	return &Processor{store: store}
}

// ProcessBatch applies a batch of decoded events. Unknown-user events are
// skipped; the first store failure aborts the batch so the provider retries
// it (processing is idempotent, so the retry is safe).
func (p *Processor) ProcessBatch(ctx context.Context, events []Event) error {
	for _, ev := range events {
		if err := p.Process(ctx, ev); err != nil {
			atomic.AddInt64(&p.failures, 1)
			return err
		}
	}
	return nil
}

// Process applies one event's state transition.
func (p *Processor) Process(ctx context.Context, ev Event) error {
	h := ev.header()

	user, err := p.resolveUser(ctx, h)
	if errors.Is(err, ErrUserNotFound) {
		logger.Warn("webhook event for unknown user dropped",
			"email", h.Email, "provider_event_id", h.ProviderEventID)
		atomic.AddInt64(&p.skipped, 1)
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolve webhook user: %w", err)
	}

	switch e := ev.(type) {
	case DeliveredEvent:
		_, err = p.appendEvent(ctx, user, h, domain.EventDelivered)
	case OpenedEvent:
		err = p.processEngagement(ctx, user, h, domain.EventOpened, openScoreDelta)
	case ClickedEvent:
		err = p.processEngagement(ctx, user, h, domain.EventClicked, clickScoreDelta)
	case BounceEvent:
		err = p.processBounce(ctx, user, h, e)
	case SpamReportEvent:
		err = p.processSpamReport(ctx, user, h)
	case UnsubscribeEvent:
		err = p.processUnsubscribe(ctx, user, h, e.Group)
	default:
		// Decode only produces the types above.
		logger.Warn("webhook event with no handler", "provider_event_id", h.ProviderEventID)
		atomic.AddInt64(&p.skipped, 1)
		return nil
	}
	if err != nil {
		return err
	}

	atomic.AddInt64(&p.processed, 1)
	return nil
}

// Stats returns processing counters for the monitoring surface.
func (p *Processor) Stats() map[string]int64 {
	return map[string]int64{
		"processed":  atomic.LoadInt64(&p.processed),
		"skipped":    atomic.LoadInt64(&p.skipped),
		"duplicates": atomic.LoadInt64(&p.duplicates),
		"failures":   atomic.LoadInt64(&p.failures),
	}
}

// resolveUser prefers the user reference carried in the event and falls back
// to an address lookup.
func (p *Processor) resolveUser(ctx context.Context, h Header) (*domain.User, error) {
	if h.UserID != "" {
		user, err := p.store.GetUserByID(ctx, h.UserID)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		// Stale user reference; the address may still match.
	}
	if h.Email == "" {
		return nil, ErrUserNotFound
	}
	return p.store.GetUserByEmail(ctx, h.Email)
}

func (p *Processor) appendEvent(ctx context.Context, u *domain.User, h Header, t domain.EventType) (bool, error) {
	ev := &domain.EmailEvent{
		UserID:          u.ID,
		Email:           u.Email,
		EmailType:       h.EmailType,
		Type:            t,
		Variant:         h.Variant,
		ProviderEventID: h.ProviderEventID,
		Timestamp:       h.Timestamp,
	}
	if h.CampaignID != "" {
		ev.CampaignID = &h.CampaignID
	}

	inserted, err := p.store.AppendEvent(ctx, ev)
	if err != nil {
		return false, fmt.Errorf("append %s event: %w", t, err)
	}
	if !inserted {
		atomic.AddInt64(&p.duplicates, 1)
	}
	return inserted, nil
}

// processEngagement appends the event and applies the immediate score
// increment. A replayed provider event id skips the increment so retries
// never double-count; repeated genuine opens arrive with distinct ids and
// are counted normally.
func (p *Processor) processEngagement(ctx context.Context, u *domain.User, h Header, t domain.EventType, delta int) error {
	inserted, err := p.appendEvent(ctx, u, h, t)
	if err != nil {
		return err
	}
	if !inserted {
		return nil
	}
	if err := p.store.IncrementScore(ctx, u.ID, delta); err != nil {
		return fmt.Errorf("increment score: %w", err)
	}
	return nil
}

func (p *Processor) processBounce(ctx context.Context, u *domain.User, h Header, e BounceEvent) error {
	eventType := domain.EventBounce
	if e.Dropped {
		eventType = domain.EventDropped
	}
	if _, err := p.appendEvent(ctx, u, h, eventType); err != nil {
		return err
	}

	hard := isHardBounce(e.Status)
	bounceType := "soft"
	if hard {
		bounceType = "hard"
	}

	created, err := p.store.RecordBounce(ctx, &domain.BounceRecord{
		Email:           u.Email,
		ProviderEventID: h.ProviderEventID,
		BounceType:      bounceType,
		StatusCode:      e.Status,
		Reason:          e.Reason,
		Timestamp:       h.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("record bounce: %w", err)
	}
	if !created {
		atomic.AddInt64(&p.duplicates, 1)
	}

	if !hard {
		logger.Info("soft bounce recorded",
			"email", u.Email, "status", e.Status, "reason", e.Reason)
		return nil
	}

	// Terminal: even a replay re-applies harmlessly.
	if err := p.store.ApplyEmailStatus(ctx, u.ID, domain.EmailBounced, true, false); err != nil {
		return fmt.Errorf("apply bounced status: %w", err)
	}
	logger.Info("hard bounce applied", "email", u.Email, "status", e.Status)
	return nil
}

func (p *Processor) processSpamReport(ctx context.Context, u *domain.User, h Header) error {
	if _, err := p.appendEvent(ctx, u, h, domain.EventSpamReport); err != nil {
		return err
	}

	rec := &domain.SpamComplaintRecord{
		Email:           u.Email,
		ProviderEventID: h.ProviderEventID,
		Timestamp:       h.Timestamp,
	}
	if h.CampaignID != "" {
		rec.CampaignID = &h.CampaignID
	}
	created, err := p.store.RecordSpamComplaint(ctx, rec)
	if err != nil {
		return fmt.Errorf("record spam complaint: %w", err)
	}
	if !created {
		atomic.AddInt64(&p.duplicates, 1)
	}

	if err := p.store.ApplyEmailStatus(ctx, u.ID, domain.EmailSpamComplaint, true, true); err != nil {
		return fmt.Errorf("apply spam complaint status: %w", err)
	}
	logger.Info("spam complaint applied", "email", u.Email)
	return nil
}

func (p *Processor) processUnsubscribe(ctx context.Context, u *domain.User, h Header, group bool) error {
	eventType := domain.EventUnsubscribe
	if group {
		eventType = domain.EventGroupUnsubscribe
	}
	if _, err := p.appendEvent(ctx, u, h, eventType); err != nil {
		return err
	}
	if err := p.store.ApplyEmailStatus(ctx, u.ID, domain.EmailUnsubscribed, true, false); err != nil {
		return fmt.Errorf("apply unsubscribed status: %w", err)
	}
	logger.Info("unsubscribe applied", "email", u.Email)
	return nil
}

func isHardBounce(status string) bool {
	status = strings.TrimSpace(status)
	for _, prefix := range hardBouncePrefixes {
		if strings.HasPrefix(status, prefix) {
			return true
		}
	}
	return false
}
