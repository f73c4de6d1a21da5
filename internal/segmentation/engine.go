// Package segmentation partitions the signup population into named, derived
// segments. Segments are views, not snapshots: every call recomputes
// membership from the users passed in, so two calls may differ as scores and
// events change between them. The three dimensions (engagement, tooling,
// team size) are independent views, not one exhaustive partition.
package segmentation

import (
	"sort"
	"strings"

	"github.com/machinesoul11/ss-website-sub000/internal/domain"
)

// Engagement level boundaries.
const (
	HighEngagementMin   = 70
	MediumEngagementMin = 30

	// EarlyAccessMinScore is the score floor for early-access candidacy.
	EarlyAccessMinScore = 50
)

// Tool classification is first-match by priority: vale > grammarly > notion >
// no-tools > other-tools. The order is deliberate and downstream segment
// names derive from it; a user matching several keywords lands in the
// highest-priority bucket only.
var toolPriority = []string{"vale", "grammarly", "notion"}

// ByEngagement splits users into the high / medium / low segments.
// The three buckets are disjoint and cover every user passed in.
func ByEngagement(users []domain.User) []domain.Segment {
	high := segment("high-engagement", "Engagement score 70 or above")
	medium := segment("medium-engagement", "Engagement score 30-69")
	low := segment("low-engagement", "Engagement score below 30")

	for _, u := range users {
		switch {
		case u.EngagementScore >= HighEngagementMin:
			add(&high, u.ID)
		case u.EngagementScore >= MediumEngagementMin:
			add(&medium, u.ID)
		default:
			add(&low, u.ID)
		}
	}
	return []domain.Segment{high, medium, low}
}

// ByTooling classifies users by their current writing tools using
// first-match keyword priority.
func ByTooling(users []domain.User) []domain.Segment {
	buckets := map[string]*domain.Segment{
		"vale":        ptr(segment("vale-users", "Users already using Vale")),
		"grammarly":   ptr(segment("grammarly-users", "Users on Grammarly")),
		"notion":      ptr(segment("notion-users", "Users writing docs in Notion")),
		"no-tools":    ptr(segment("no-tools", "Users with no current tooling")),
		"other-tools": ptr(segment("other-tools", "Users on other tooling")),
	}

	for _, u := range users {
		add(buckets[classifyTools(u.CurrentTools)], u.ID)
	}

	return []domain.Segment{
		*buckets["vale"], *buckets["grammarly"], *buckets["notion"],
		*buckets["no-tools"], *buckets["other-tools"],
	}
}

// classifyTools returns the tool bucket key for a user's tool list.
func classifyTools(tools []string) string {
	if len(tools) == 0 {
		return "no-tools"
	}
	joined := strings.ToLower(strings.Join(tools, " "))
	for _, keyword := range toolPriority {
		if strings.Contains(joined, keyword) {
			return keyword
		}
	}
	return "other-tools"
}

// ByTeamSize buckets users by the team-size enum captured at signup.
func ByTeamSize(users []domain.User) []domain.Segment {
	order := []domain.TeamSize{
		domain.TeamIndividual, domain.TeamSmall, domain.TeamMedium,
		domain.TeamLarge, domain.TeamEnterprise,
	}
	descriptions := map[domain.TeamSize]string{
		domain.TeamIndividual: "Individual users",
		domain.TeamSmall:      "Teams of 2-5",
		domain.TeamMedium:     "Teams of 6-20",
		domain.TeamLarge:      "Teams of 21-100",
		domain.TeamEnterprise: "Teams of 100+",
	}

	buckets := make(map[domain.TeamSize]*domain.Segment, len(order))
	for _, size := range order {
		buckets[size] = ptr(segment("team-"+string(size), descriptions[size]))
	}

	for _, u := range users {
		if b, ok := buckets[u.TeamSize]; ok {
			add(b, u.ID)
		}
	}

	out := make([]domain.Segment, 0, len(order))
	for _, size := range order {
		out = append(out, *buckets[size])
	}
	return out
}

// EarlyAccessCandidates returns pending-beta users with a score of at least
// 50, ordered by score descending.
func EarlyAccessCandidates(users []domain.User) domain.Segment {
	s := segment("early-access-candidates", "Pending signups with engagement score >= 50")

	var candidates []domain.User
	for _, u := range users {
		if u.BetaStatus == domain.BetaPending && u.EngagementScore >= EarlyAccessMinScore {
			candidates = append(candidates, u)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].EngagementScore > candidates[j].EngagementScore
	})

	for _, u := range candidates {
		add(&s, u.ID)
	}
	return s
}

// Filter selects users by optional segment criteria. Empty fields match
// everything. It is the filter shape accepted by the campaign send API.
type Filter struct {
	EngagementLevel string   `json:"engagement_level,omitempty"` // "high", "medium", "low"
	BetaStatus      string   `json:"beta_status,omitempty"`
	TeamSizes       []string `json:"team_size,omitempty"`
}

// Match applies the filter to a user set and returns the matching users.
func (f Filter) Match(users []domain.User) []domain.User {
	var out []domain.User
	for _, u := range users {
		if f.EngagementLevel != "" && engagementLevel(u.EngagementScore) != f.EngagementLevel {
			continue
		}
		if f.BetaStatus != "" && string(u.BetaStatus) != f.BetaStatus {
			continue
		}
		if len(f.TeamSizes) > 0 && !containsSize(f.TeamSizes, u.TeamSize) {
			continue
		}
		out = append(out, u)
	}
	return out
}

// Describe returns a human-readable summary of the filter for campaign records.
func (f Filter) Describe() string {
	var parts []string
	if f.EngagementLevel != "" {
		parts = append(parts, "engagement="+f.EngagementLevel)
	}
	if f.BetaStatus != "" {
		parts = append(parts, "beta_status="+f.BetaStatus)
	}
	if len(f.TeamSizes) > 0 {
		parts = append(parts, "team_size="+strings.Join(f.TeamSizes, ","))
	}
	if len(parts) == 0 {
		return "all users"
	}
	return strings.Join(parts, " ")
}

func engagementLevel(score int) string {
	switch {
	case score >= HighEngagementMin:
		return "high"
	case score >= MediumEngagementMin:
		return "medium"
	default:
		return "low"
	}
}

func containsSize(sizes []string, size domain.TeamSize) bool {
	for _, s := range sizes {
		if s == string(size) {
			return true
		}
	}
	return false
}

func segment(id, description string) domain.Segment {
	return domain.Segment{ID: id, Description: description, MemberIDs: []string{}}
}

func add(s *domain.Segment, userID string) {
	s.MemberIDs = append(s.MemberIDs, userID)
	s.Count++
}

func ptr(s domain.Segment) *domain.Segment { return &s }
