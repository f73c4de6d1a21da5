package campaign

import (
	"context"

	"github.com/machinesoul11/ss-website-sub000/internal/domain"
)

// Repository defines the record-store operations the orchestrator performs.
// Implementations must be safe for concurrent use.
type Repository interface {
	// CreateCampaign inserts a new campaign record.
	CreateCampaign(ctx context.Context, c *domain.Campaign) error

	// FinishCampaign transitions a campaign out of "sending" with final counts.
	FinishCampaign(ctx context.Context, id string, status domain.CampaignStatus, sent, errored int) error

	// GetCampaign returns a single campaign. Returns ErrNotFound if absent.
	GetCampaign(ctx context.Context, id string) (*domain.Campaign, error)

	// ListCampaigns returns recent campaigns, newest first.
	ListCampaigns(ctx context.Context, limit int) ([]domain.Campaign, error)

	// AppendSentEvent records a pipeline-originated "sent" email event.
	AppendSentEvent(ctx context.Context, ev *domain.EmailEvent) error
}

// UserStore resolves recipients and applies the orchestrator's side effects
// on user records.
type UserStore interface {
	// ListUsers returns the full signup population.
	ListUsers(ctx context.Context) ([]domain.User, error)

	// GetUsersByIDs returns the users for an explicit recipient list.
	// Unknown ids are silently omitted.
	GetUsersByIDs(ctx context.Context, ids []string) ([]domain.User, error)

	// SetBetaStatus updates a user's beta funnel state.
	SetBetaStatus(ctx context.Context, userID string, status domain.BetaStatus) error
}

// Message is one outbound templated email.
type Message struct {
	ToEmail    string
	ToName     string
	TemplateID string
	Subject    string
	Data       map[string]any
}

// Transport delivers a single templated message through the email provider
// and returns the provider-assigned message id.
type Transport interface {
	SendTemplate(ctx context.Context, msg *Message) (string, error)
}
