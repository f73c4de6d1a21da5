package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/machinesoul11/ss-website-sub000/internal/abtest"
	"github.com/machinesoul11/ss-website-sub000/internal/api"
	"github.com/machinesoul11/ss-website-sub000/internal/campaign"
	"github.com/machinesoul11/ss-website-sub000/internal/domain"
	"github.com/machinesoul11/ss-website-sub000/internal/webhook"
)

// --- in-memory fakes ---------------------------------------------------------

type fakeUsers struct{ users []domain.User }

func (f *fakeUsers) ListUsers(context.Context) ([]domain.User, error) { return f.users, nil }
func (f *fakeUsers) GetUsersByIDs(_ context.Context, ids []string) ([]domain.User, error) {
	var out []domain.User
	for _, u := range f.users {
		for _, id := range ids {
			if u.ID == id {
				out = append(out, u)
			}
		}
	}
	return out, nil
}
func (f *fakeUsers) SetBetaStatus(_ context.Context, id string, status domain.BetaStatus) error {
	for i := range f.users {
		if f.users[i].ID == id {
			f.users[i].BetaStatus = status
		}
	}
	return nil
}

type fakeCampaignRepo struct {
	campaigns map[string]*domain.Campaign
	events    []*domain.EmailEvent
}

func newFakeCampaignRepo() *fakeCampaignRepo {
	return &fakeCampaignRepo{campaigns: map[string]*domain.Campaign{}}
}

func (f *fakeCampaignRepo) CreateCampaign(_ context.Context, c *domain.Campaign) error {
	f.campaigns[c.ID] = c
	return nil
}
func (f *fakeCampaignRepo) FinishCampaign(_ context.Context, id string, status domain.CampaignStatus, sent, errored int) error {
	c, ok := f.campaigns[id]
	if !ok {
		return campaign.ErrNotFound
	}
	c.Status, c.SentCount, c.ErrorCount = status, sent, errored
	return nil
}
func (f *fakeCampaignRepo) GetCampaign(_ context.Context, id string) (*domain.Campaign, error) {
	c, ok := f.campaigns[id]
	if !ok {
		return nil, campaign.ErrNotFound
	}
	return c, nil
}
func (f *fakeCampaignRepo) ListCampaigns(context.Context, int) ([]domain.Campaign, error) {
	var out []domain.Campaign
	for _, c := range f.campaigns {
		out = append(out, *c)
	}
	return out, nil
}
func (f *fakeCampaignRepo) AppendSentEvent(_ context.Context, ev *domain.EmailEvent) error {
	f.events = append(f.events, ev)
	return nil
}

type fakeTransport struct{ sent int }

func (f *fakeTransport) SendTemplate(context.Context, *campaign.Message) (string, error) {
	f.sent++
	return "msg-" + strconv.Itoa(f.sent), nil
}

type fakeWebhookStore struct {
	users map[string]*domain.User
	seen  map[string]bool
}

func newFakeWebhookStore(users ...*domain.User) *fakeWebhookStore {
	s := &fakeWebhookStore{users: map[string]*domain.User{}, seen: map[string]bool{}}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeWebhookStore) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, webhook.ErrUserNotFound
	}
	return u, nil
}
func (s *fakeWebhookStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, webhook.ErrUserNotFound
}
func (s *fakeWebhookStore) AppendEvent(_ context.Context, ev *domain.EmailEvent) (bool, error) {
	if ev.ProviderEventID != "" && s.seen[ev.ProviderEventID] {
		return false, nil
	}
	s.seen[ev.ProviderEventID] = true
	return true, nil
}
func (s *fakeWebhookStore) RecordBounce(context.Context, *domain.BounceRecord) (bool, error) {
	return true, nil
}
func (s *fakeWebhookStore) RecordSpamComplaint(context.Context, *domain.SpamComplaintRecord) (bool, error) {
	return true, nil
}
func (s *fakeWebhookStore) ApplyEmailStatus(_ context.Context, id string, status domain.EmailStatus, dropMarketing, dropResearch bool) error {
	u := s.users[id]
	if u == nil {
		return nil
	}
	if !u.EmailStatus.IsTerminal() {
		u.EmailStatus = status
	}
	if dropMarketing {
		u.MarketingOptIn = false
	}
	if dropResearch {
		u.ResearchOptIn = false
	}
	return nil
}
func (s *fakeWebhookStore) IncrementScore(_ context.Context, id string, delta int) error {
	if u := s.users[id]; u != nil {
		u.EngagementScore = min(100, max(0, u.EngagementScore+delta))
	}
	return nil
}

type fakeABStore struct {
	tests map[string]*domain.ABTest
}

func (f *fakeABStore) CreateTest(_ context.Context, t *domain.ABTest) error {
	if t.ID == "" {
		t.ID = "t1"
	}
	f.tests[t.ID] = t
	return nil
}

func (f *fakeABStore) GetTest(_ context.Context, id string) (*domain.ABTest, error) {
	t, ok := f.tests[id]
	if !ok {
		return nil, abtest.ErrTestNotFound
	}
	return t, nil
}

func (f *fakeABStore) VariantCounts(_ context.Context, _ string, _ domain.ABVariant) (int, int, int, error) {
	return 0, 0, 0, nil
}

// --- setup -------------------------------------------------------------------

const signingKey = "test-signing-key"

func newTestServer(t *testing.T) (http.Handler, *fakeWebhookStore, *fakeCampaignRepo) {
	t.Helper()

	users := &fakeUsers{users: []domain.User{
		{
			ID: "u1", Email: "dev@example.com", GitHubHandle: "octocat",
			MarketingOptIn: true, EngagementScore: 80,
			BetaStatus: domain.BetaPending, TeamSize: domain.TeamSmall,
			EmailStatus: domain.EmailOK,
		},
		{
			ID: "u2", Email: "writer@example.com",
			MarketingOptIn: false, EngagementScore: 20,
			BetaStatus: domain.BetaPending, TeamSize: domain.TeamIndividual,
			EmailStatus: domain.EmailOK,
		},
	}}

	repo := newFakeCampaignRepo()
	svc := campaign.NewService(repo, users, &fakeTransport{}, "https://example.com",
		campaign.WithThrottle(100, 0))

	hookStore := newFakeWebhookStore(&domain.User{
		ID: "u1", Email: "dev@example.com", MarketingOptIn: true,
		EngagementScore: 80, EmailStatus: domain.EmailOK,
	})

	h := &api.Handlers{
		Campaigns:                svc,
		Users:                    users,
		Processor:                webhook.NewProcessor(hookStore),
		Verifier:                 webhook.NewVerifier(signingKey),
		Evaluator:                abtest.NewEvaluator(&fakeABStore{tests: map[string]*domain.ABTest{}}, nil),
		DeliverabilityWindowDays: 7,
		SendTimeWindowDays:       30,
	}
	return api.SetupRoutes(h), hookStore, repo
}

func signedWebhookRequest(t *testing.T, body string) *http.Request {
	t.Helper()
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/email", strings.NewReader(body))
	req.Header.Set("X-Email-Webhook-Timestamp", ts)
	req.Header.Set("X-Email-Webhook-Signature", webhook.Sign(signingKey, ts, []byte(body)))
	return req
}

// --- tests -------------------------------------------------------------------

func TestWebhookRejectsBadSignature(t *testing.T) {
	router, _, _ := newTestServer(t)

	body := `[{"event":"open","email":"dev@example.com","sg_event_id":"e1"}]`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/email", strings.NewReader(body))
	req.Header.Set("X-Email-Webhook-Timestamp", "1700000000")
	req.Header.Set("X-Email-Webhook-Signature", "deadbeef")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhookRejectsMissingHeaders(t *testing.T) {
	router, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/email", strings.NewReader(`[]`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhookAppliesSignedBatch(t *testing.T) {
	router, store, _ := newTestServer(t)

	body := `[{"event":"open","email":"dev@example.com","sg_event_id":"e1","timestamp":1700000000}]`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, signedWebhookRequest(t, body))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 82, store.users["u1"].EngagementScore)

	var resp map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp["received"])
}

func TestWebhookMalformedPayload(t *testing.T) {
	router, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, signedWebhookRequest(t, `{not json`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendCampaignFiltersConsent(t *testing.T) {
	router, _, repo := newTestServer(t)

	body, _ := json.Marshal(api.SendCampaignRequest{
		TemplateID: "d-welcome",
		EmailType:  "product_update",
		Subject:    "News",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/campaigns/send", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var result campaign.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	// Only u1 has marketing consent.
	assert.Equal(t, 1, result.TotalSent)
	require.Len(t, repo.events, 1)
	assert.Equal(t, "u1", repo.events[0].UserID)
}

func TestSendCampaignRequiresTemplate(t *testing.T) {
	router, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/campaigns/send",
		strings.NewReader(`{"email_type":"product_update"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetCampaignNotFound(t *testing.T) {
	router, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/campaigns/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSegments(t *testing.T) {
	router, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/segments/engagement", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var segments []domain.Segment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &segments))
	require.Len(t, segments, 3)

	total := 0
	for _, s := range segments {
		total += s.Count
	}
	assert.Equal(t, 2, total)
}

func TestGetSegmentsUnknownDimension(t *testing.T) {
	router, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/segments/zodiac", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	router, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestWebhookStats(t *testing.T) {
	router, _, _ := newTestServer(t)

	body := `[{"event":"open","email":"dev@example.com","sg_event_id":"e9","timestamp":1700000000}]`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, signedWebhookRequest(t, body))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/webhooks/email/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats map[string]int64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats["processed"])
}

func TestCreateABTest(t *testing.T) {
	router, _, _ := newTestServer(t)

	body, _ := json.Marshal(domain.ABTest{
		CampaignID: "c1",
		VariantA:   domain.VariantConfig{Name: "control", Subject: "Hello", TemplateID: "d-1"},
		VariantB:   domain.VariantConfig{Name: "challenger", Subject: "Hey", TemplateID: "d-2"},
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ab-tests", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created domain.ABTest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, 50, created.SplitPercent)
	assert.Equal(t, "open_rate", created.SuccessMetric)
	assert.Equal(t, domain.ABTestRunning, created.Status)
}

func TestCreateABTestRejectsIncompleteVariants(t *testing.T) {
	router, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ab-tests",
		strings.NewReader(`{"campaign_id":"c1"}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
