package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/shortlist-cli/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresFromPool(mock), mock
}

func TestPostgresMigrate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS shortlist_runs").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateRun(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("create_run").
		WithArgs(pgxmock.AnyArg(), "crm software", pgxmock.AnyArg(), "pending", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), "crm software", []model.Requirement{
		{ID: "r1", Description: "SSO", Priority: model.PriorityMustHave, Weight: 8},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusPending, run.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateRunStatusGuard(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("update_run_status").
		WithArgs("run-1", "processing", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateRunStatus(context.Background(), "run-1", model.RunStatusProcessing)
	assert.ErrorContains(t, err, "already terminal")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresFailRun(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("fail_run").
		WithArgs("run-1", "Failed to scrape vendor websites", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.FailRun(context.Background(), "run-1", "Failed to scrape vendor websites"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCompleteRun(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("complete_run").
		WithArgs("run-1", int64(5125), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.CompleteRun(context.Background(), "run-1", 5125))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetRunMissing(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("get_run").
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)

	got, err := s.GetRun(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetRunWithVendors(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery("get_run").
		WithArgs("run-1").
		WillReturnRows(pgxmock.
			NewRows([]string{"id", "need", "requirements", "status", "error_message", "processing_ms", "created_at", "updated_at"}).
			AddRow("run-1", "crm software", []byte(`[{"id":"r1","description":"SSO","priority":"must-have","weight":8}]`),
				"completed", "", int64(4000), now, now))
	mock.ExpectQuery("list_vendors").
		WithArgs("run-1").
		WillReturnRows(pgxmock.
			NewRows([]string{"id", "name", "website", "description", "price_range", "pricing_model", "currency",
				"overall_score", "requirement_match", "matched_requirements", "key_features", "evidence_links", "risks"}).
			AddRow("v1", "Acme", "https://acme.example", "CRM", "$10", "Per User", "USD",
				88.0, 75.0, []byte(`[]`), []byte(`["Pipelines"]`), []byte(`[]`), []byte(`[]`)))

	got, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.RunStatusCompleted, got.Status)
	require.Len(t, got.Requirements, 1)
	assert.Equal(t, model.PriorityMustHave, got.Requirements[0].Priority)
	require.Len(t, got.Vendors, 1)
	assert.Equal(t, "Acme", got.Vendors[0].Name)
	assert.Equal(t, []string{"Pipelines"}, got.Vendors[0].KeyFeatures)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsertVendors(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("insert_vendor").
		WithArgs(pgxmock.AnyArg(), "run-1", "Acme", "https://acme.example", "", "",
			"", "", 88.0, 0.0, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.InsertVendors(context.Background(), "run-1", []model.VendorRecord{
		{Name: "Acme", Website: "https://acme.example", OverallScore: 88},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInsertHealthCheck(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("insert_health_check").
		WithArgs(pgxmock.AnyArg(), "Anthropic", "down", int64(0), "missing API key", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.InsertHealthCheck(context.Background(), model.ServiceHealth{
		Service: "Anthropic",
		Status:  model.ServiceDown,
		Message: "missing API key",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCachedPage(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("get_cached_page").
		WithArgs(hashURL("https://vendor.example"), pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	got, err := s.GetCachedPage(context.Background(), "https://vendor.example")
	require.NoError(t, err)
	assert.Nil(t, got)

	mock.ExpectExec("put_cached_page").
		WithArgs(hashURL("https://vendor.example"), "https://vendor.example",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = s.PutCachedPage(context.Background(), &model.ScrapedPage{URL: "https://vendor.example"}, time.Hour)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
