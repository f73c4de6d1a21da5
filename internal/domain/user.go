package domain

import "time"

// BetaStatus enumerates where a signup sits in the beta funnel.
type BetaStatus string

const (
	BetaPending BetaStatus = "pending"
	BetaInvited BetaStatus = "invited"
	BetaActive  BetaStatus = "active"
)

// EmailStatus enumerates deliverability state for a user's address.
// Once a terminal value is set it must never be reverted automatically;
// only "ok" is non-terminal.
type EmailStatus string

const (
	EmailOK            EmailStatus = "ok"
	EmailBounced       EmailStatus = "bounced"
	EmailSpamComplaint EmailStatus = "spam_complaint"
	EmailUnsubscribed  EmailStatus = "unsubscribed"
)

// IsTerminal reports whether the status is a one-way terminal state.
func (s EmailStatus) IsTerminal() bool {
	return s == EmailBounced || s == EmailSpamComplaint || s == EmailUnsubscribed
}

// TeamSize enumerates the fixed team-size buckets captured at signup.
type TeamSize string

const (
	TeamIndividual TeamSize = "individual"
	TeamSmall      TeamSize = "small"      // 2-5
	TeamMedium     TeamSize = "medium"     // 6-20
	TeamLarge      TeamSize = "large"      // 21-100
	TeamEnterprise TeamSize = "enterprise" // 100+
)

// User is a beta signup with profile attributes and pipeline-managed state.
// EngagementScore is derived and recomputed; EmailStatus ratchets one way
// toward a terminal value. Users are never hard-deleted by the pipeline.
type User struct {
	ID           string   `json:"id" db:"id"`
	Email        string   `json:"email" db:"email"`
	GitHubHandle string   `json:"github_username" db:"github_username"`
	CurrentTools []string `json:"current_tools" db:"current_tools"`
	DocPlatforms []string `json:"documentation_platforms" db:"documentation_platforms"`
	UseCase      string   `json:"use_case" db:"use_case"`
	TeamSize     TeamSize `json:"team_size" db:"team_size"`

	MarketingOptIn bool `json:"marketing_opt_in" db:"marketing_opt_in"`
	ResearchOptIn  bool `json:"research_opt_in" db:"research_opt_in"`

	BetaStatus      BetaStatus  `json:"beta_status" db:"beta_status"`
	EngagementScore int         `json:"engagement_score" db:"engagement_score"`
	EmailStatus     EmailStatus `json:"email_status" db:"email_status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Mailable reports whether the user may receive segment-targeted marketing
// email: explicit consent and a non-terminal email status.
func (u *User) Mailable() bool {
	return u.MarketingOptIn && !u.EmailStatus.IsTerminal()
}
