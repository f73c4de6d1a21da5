package segmentation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/machinesoul11/ss-website-sub000/internal/domain"
)

func user(id string, score int) domain.User {
	return domain.User{ID: id, EngagementScore: score, BetaStatus: domain.BetaPending}
}

func TestByEngagementPartitions(t *testing.T) {
	users := []domain.User{
		user("a", 95), user("b", 70), user("c", 69),
		user("d", 30), user("e", 29), user("f", 0),
	}

	segments := ByEngagement(users)
	require.Len(t, segments, 3)

	assert.ElementsMatch(t, []string{"a", "b"}, segments[0].MemberIDs)
	assert.ElementsMatch(t, []string{"c", "d"}, segments[1].MemberIDs)
	assert.ElementsMatch(t, []string{"e", "f"}, segments[2].MemberIDs)

	// Disjoint buckets whose sizes sum to the population.
	total := 0
	seen := map[string]bool{}
	for _, s := range segments {
		total += s.Count
		for _, id := range s.MemberIDs {
			assert.False(t, seen[id], "user %s in more than one bucket", id)
			seen[id] = true
		}
	}
	assert.Equal(t, len(users), total)
}

func TestByToolingPriorityOrder(t *testing.T) {
	cases := []struct {
		name  string
		tools []string
		want  string
	}{
		{"vale wins over grammarly", []string{"Grammarly", "Vale CLI"}, "vale-users"},
		{"grammarly wins over notion", []string{"Notion", "Grammarly Premium"}, "grammarly-users"},
		{"notion alone", []string{"Notion docs"}, "notion-users"},
		{"case insensitive", []string{"VALE"}, "vale-users"},
		{"empty list", nil, "no-tools"},
		{"unrecognized", []string{"Google Docs"}, "other-tools"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := domain.User{ID: "u", CurrentTools: tc.tools}
			segments := ByTooling([]domain.User{u})
			for _, s := range segments {
				if s.ID == tc.want {
					assert.Equal(t, []string{"u"}, s.MemberIDs)
				} else {
					assert.Empty(t, s.MemberIDs, "unexpected membership in %s", s.ID)
				}
			}
		})
	}
}

func TestByTeamSizeBuckets(t *testing.T) {
	users := []domain.User{
		{ID: "solo", TeamSize: domain.TeamIndividual},
		{ID: "startup", TeamSize: domain.TeamSmall},
		{ID: "corp", TeamSize: domain.TeamEnterprise},
	}

	segments := ByTeamSize(users)
	require.Len(t, segments, 5)
	assert.Equal(t, []string{"solo"}, segments[0].MemberIDs)
	assert.Equal(t, []string{"startup"}, segments[1].MemberIDs)
	assert.Equal(t, []string{"corp"}, segments[4].MemberIDs)
}

func TestEarlyAccessCandidatesOrdering(t *testing.T) {
	users := []domain.User{
		user("mid", 60),
		user("top", 90),
		user("below", 49),
		{ID: "active", EngagementScore: 99, BetaStatus: domain.BetaActive},
		user("floor", 50),
	}

	s := EarlyAccessCandidates(users)
	assert.Equal(t, []string{"top", "mid", "floor"}, s.MemberIDs)
	assert.Equal(t, 3, s.Count)
}

func TestEmptyPopulation(t *testing.T) {
	for _, segments := range [][]domain.Segment{
		ByEngagement(nil), ByTooling(nil), ByTeamSize(nil),
	} {
		require.NotEmpty(t, segments)
		for _, s := range segments {
			assert.Zero(t, s.Count)
			assert.Empty(t, s.MemberIDs)
		}
	}
	assert.Zero(t, EarlyAccessCandidates(nil).Count)
}

func TestFilterMatch(t *testing.T) {
	users := []domain.User{
		{ID: "a", EngagementScore: 80, BetaStatus: domain.BetaPending, TeamSize: domain.TeamSmall},
		{ID: "b", EngagementScore: 80, BetaStatus: domain.BetaActive, TeamSize: domain.TeamSmall},
		{ID: "c", EngagementScore: 10, BetaStatus: domain.BetaPending, TeamSize: domain.TeamLarge},
	}

	matched := Filter{EngagementLevel: "high", BetaStatus: "pending"}.Match(users)
	require.Len(t, matched, 1)
	assert.Equal(t, "a", matched[0].ID)

	matched = Filter{TeamSizes: []string{"small", "large"}}.Match(users)
	assert.Len(t, matched, 3)

	assert.Len(t, Filter{}.Match(users), 3)
	assert.Empty(t, Filter{BetaStatus: "invited"}.Match(users))
}

func TestFilterDescribe(t *testing.T) {
	assert.Equal(t, "all users", Filter{}.Describe())
	assert.Equal(t, "engagement=high team_size=small,medium",
		Filter{EngagementLevel: "high", TeamSizes: []string{"small", "medium"}}.Describe())
}
