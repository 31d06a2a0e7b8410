package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/shortlist-cli/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "shortlist.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndGetRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	reqs := []model.Requirement{
		{ID: "r1", Description: "SSO support", Priority: model.PriorityMustHave, Weight: 9},
		{ID: "r2", Description: "API access", Priority: model.PriorityNiceToHave, Weight: 5},
	}
	run, err := s.CreateRun(ctx, "CRM for a small sales team", reqs)
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusPending, run.Status)

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "CRM for a small sales team", got.Need)
	assert.Equal(t, reqs, got.Requirements)
	assert.Equal(t, model.RunStatusPending, got.Status)
	assert.Empty(t, got.Vendors)
}

func TestGetRunMissing(t *testing.T) {
	s := newTestStore(t)

	got, err := s.GetRun(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRunStatusTransitions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "helpdesk software", nil)
	require.NoError(t, err)

	require.NoError(t, s.UpdateRunStatus(ctx, run.ID, model.RunStatusProcessing))
	require.NoError(t, s.CompleteRun(ctx, run.ID, 4200))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusCompleted, got.Status)
	assert.Equal(t, int64(4200), got.ProcessingMs)

	// Terminal runs stay terminal.
	err = s.UpdateRunStatus(ctx, run.ID, model.RunStatusProcessing)
	assert.ErrorContains(t, err, "already terminal")
	err = s.FailRun(ctx, run.ID, "late failure")
	assert.ErrorContains(t, err, "already terminal")

	got, err = s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusCompleted, got.Status)
	assert.Empty(t, got.ErrorMessage)
}

func TestFailRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "inventory system", nil)
	require.NoError(t, err)
	require.NoError(t, s.UpdateRunStatus(ctx, run.ID, model.RunStatusProcessing))
	require.NoError(t, s.FailRun(ctx, run.ID, "No vendors found for this search"))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Equal(t, "No vendors found for this search", got.ErrorMessage)

	err = s.CompleteRun(ctx, run.ID, 1000)
	assert.ErrorContains(t, err, "already terminal")
}

func TestUpdateMissingRun(t *testing.T) {
	s := newTestStore(t)

	err := s.UpdateRunStatus(context.Background(), "missing", model.RunStatusProcessing)
	assert.ErrorContains(t, err, "not found")
}

func TestInsertAndLoadVendors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "project management tool", nil)
	require.NoError(t, err)

	vendors := []model.VendorRecord{
		{
			Name:             "Acme Projects",
			Website:          "https://acme.example",
			Description:      "Kanban boards and timelines",
			PriceRange:       "$10 - $25",
			PricingModel:     "Per User",
			Currency:         "USD",
			OverallScore:     72,
			RequirementMatch: 66,
			MatchedRequirements: []model.MatchedRequirement{
				{Requirement: "SSO support", Met: true, Evidence: "SAML listed on security page"},
			},
			KeyFeatures:   []string{"Kanban", "Gantt"},
			EvidenceLinks: []model.EvidenceLink{{URL: "https://acme.example/pricing", Snippet: "From $10/user", Relevance: "pricing"}},
			Risks:         []string{"No on-prem option"},
		},
		{Name: "Beta Board", OverallScore: 91},
	}
	require.NoError(t, s.InsertVendors(ctx, run.ID, vendors))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got.Vendors, 2)

	// Highest score first.
	assert.Equal(t, "Beta Board", got.Vendors[0].Name)
	acme := got.Vendors[1]
	assert.Equal(t, "Acme Projects", acme.Name)
	assert.Equal(t, "$10 - $25", acme.PriceRange)
	require.Len(t, acme.MatchedRequirements, 1)
	assert.True(t, acme.MatchedRequirements[0].Met)
	assert.Equal(t, []string{"Kanban", "Gantt"}, acme.KeyFeatures)
	require.Len(t, acme.EvidenceLinks, 1)
	assert.Equal(t, "https://acme.example/pricing", acme.EvidenceLinks[0].URL)
	assert.Equal(t, []string{"No on-prem option"}, acme.Risks)

	// Nil slices come back as empty, never nil.
	assert.NotNil(t, got.Vendors[0].KeyFeatures)
	assert.NotNil(t, got.Vendors[0].MatchedRequirements)
}

func TestListRecentCompleted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i, need := range []string{"first", "second", "third"} {
		run, err := s.CreateRun(ctx, need, nil)
		require.NoError(t, err)
		if need == "second" {
			require.NoError(t, s.FailRun(ctx, run.ID, "boom"))
			continue
		}
		require.NoError(t, s.InsertVendors(ctx, run.ID, []model.VendorRecord{{Name: need + " vendor"}}))
		require.NoError(t, s.CompleteRun(ctx, run.ID, int64(i)))
		time.Sleep(2 * time.Millisecond)
	}

	runs, err := s.ListRecentCompleted(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "third", runs[0].Need)
	assert.Equal(t, "first", runs[1].Need)
	require.Len(t, runs[0].Vendors, 1)
	assert.Equal(t, "third vendor", runs[0].Vendors[0].Name)

	runs, err = s.ListRecentCompleted(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "third", runs[0].Need)
}

func TestInsertHealthCheck(t *testing.T) {
	s := newTestStore(t)

	err := s.InsertHealthCheck(context.Background(), model.ServiceHealth{
		Service:        "Database",
		Status:         model.ServiceHealthy,
		ResponseTimeMs: 12,
	})
	require.NoError(t, err)
}

func TestScrapeCache(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	got, err := s.GetCachedPage(ctx, "https://vendor.example")
	require.NoError(t, err)
	assert.Nil(t, got)

	page := &model.ScrapedPage{
		URL:      "https://vendor.example",
		Title:    "Vendor",
		Content:  "Plans start at $29 per month",
		Pricing:  &model.PricingGuess{Model: "Monthly", Range: "$29", Currency: "USD"},
		Features: []string{"Reporting"},
	}
	require.NoError(t, s.PutCachedPage(ctx, page, time.Hour))

	got, err = s.GetCachedPage(ctx, "https://vendor.example")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, page.Title, got.Title)
	require.NotNil(t, got.Pricing)
	assert.Equal(t, "Monthly", got.Pricing.Model)

	// Overwrite refreshes the entry.
	page.Title = "Vendor v2"
	require.NoError(t, s.PutCachedPage(ctx, page, time.Hour))
	got, err = s.GetCachedPage(ctx, "https://vendor.example")
	require.NoError(t, err)
	assert.Equal(t, "Vendor v2", got.Title)
}

func TestScrapeCacheExpiry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	page := &model.ScrapedPage{URL: "https://stale.example", Title: "Stale"}
	require.NoError(t, s.PutCachedPage(ctx, page, -time.Minute))

	got, err := s.GetCachedPage(ctx, "https://stale.example")
	require.NoError(t, err)
	assert.Nil(t, got)
}
