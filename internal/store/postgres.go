package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/shortlist-cli/internal/model"
)

const postgresMigration = `
CREATE TABLE IF NOT EXISTS shortlist_runs (
	id            TEXT PRIMARY KEY,
	need          TEXT NOT NULL,
	requirements  JSONB NOT NULL DEFAULT '[]',
	status        TEXT NOT NULL DEFAULT 'pending',
	error_message TEXT NOT NULL DEFAULT '',
	processing_ms BIGINT NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_shortlist_runs_status
	ON shortlist_runs (status, created_at DESC);

CREATE TABLE IF NOT EXISTS vendors (
	id                   TEXT PRIMARY KEY,
	run_id               TEXT NOT NULL REFERENCES shortlist_runs (id) ON DELETE CASCADE,
	name                 TEXT NOT NULL,
	website              TEXT NOT NULL DEFAULT '',
	description          TEXT NOT NULL DEFAULT '',
	price_range          TEXT NOT NULL DEFAULT '',
	pricing_model        TEXT NOT NULL DEFAULT '',
	currency             TEXT NOT NULL DEFAULT 'USD',
	overall_score        DOUBLE PRECISION NOT NULL DEFAULT 0,
	requirement_match    DOUBLE PRECISION NOT NULL DEFAULT 0,
	matched_requirements JSONB NOT NULL DEFAULT '[]',
	key_features         JSONB NOT NULL DEFAULT '[]',
	evidence_links       JSONB NOT NULL DEFAULT '[]',
	risks                JSONB NOT NULL DEFAULT '[]',
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_vendors_run_id ON vendors (run_id);

CREATE TABLE IF NOT EXISTS health_checks (
	id               TEXT PRIMARY KEY,
	service          TEXT NOT NULL,
	status           TEXT NOT NULL,
	response_time_ms BIGINT NOT NULL DEFAULT 0,
	message          TEXT NOT NULL DEFAULT '',
	checked_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_health_checks_service
	ON health_checks (service, checked_at DESC);

CREATE TABLE IF NOT EXISTS scrape_cache (
	url_hash   TEXT PRIMARY KEY,
	url        TEXT NOT NULL,
	page       JSONB NOT NULL,
	cached_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
);
`

// preparedStatements are registered on every new connection so the hot
// path never re-parses SQL.
var preparedStatements = map[string]string{
	"create_run": `INSERT INTO shortlist_runs (id, need, requirements, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)`,
	"update_run_status": `UPDATE shortlist_runs SET status = $2, updated_at = $3
		WHERE id = $1 AND status NOT IN ('completed', 'failed')`,
	"fail_run": `UPDATE shortlist_runs SET status = 'failed', error_message = $2, updated_at = $3
		WHERE id = $1 AND status NOT IN ('completed', 'failed')`,
	"complete_run": `UPDATE shortlist_runs SET status = 'completed', processing_ms = $2, updated_at = $3
		WHERE id = $1 AND status NOT IN ('completed', 'failed')`,
	"insert_vendor": `INSERT INTO vendors (id, run_id, name, website, description, price_range,
			pricing_model, currency, overall_score, requirement_match, matched_requirements,
			key_features, evidence_links, risks, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
	"get_run": `SELECT id, need, requirements, status, error_message, processing_ms, created_at, updated_at
		FROM shortlist_runs WHERE id = $1`,
	"list_completed": `SELECT id, need, requirements, status, error_message, processing_ms, created_at, updated_at
		FROM shortlist_runs WHERE status = 'completed' ORDER BY created_at DESC LIMIT $1`,
	"list_vendors": `SELECT id, name, website, description, price_range, pricing_model, currency,
			overall_score, requirement_match, matched_requirements, key_features, evidence_links, risks
		FROM vendors WHERE run_id = $1 ORDER BY overall_score DESC`,
	"insert_health_check": `INSERT INTO health_checks (id, service, status, response_time_ms, message, checked_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
	"get_cached_page": `SELECT page FROM scrape_cache WHERE url_hash = $1 AND expires_at > $2`,
	"put_cached_page": `INSERT INTO scrape_cache (url_hash, url, page, cached_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (url_hash) DO UPDATE SET
			page = EXCLUDED.page, cached_at = EXCLUDED.cached_at, expires_at = EXCLUDED.expires_at`,
}

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies
// it, which keeps PostgresStore testable without a live database.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PoolConfig bounds the connection pool.
type PoolConfig struct {
	MaxConns int32
	MinConns int32
}

// PostgresStore implements Store on top of a pgx connection pool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres connects to databaseURL and returns a ready store.
func NewPostgres(ctx context.Context, databaseURL string, cfg PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "store: parse database url")
	}
	if cfg.MaxConns > 0 {
		pgxCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pgxCfg.MinConns = cfg.MinConns
	}
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "store: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "store: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "store: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests.
func NewPostgresFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "store: migrate")
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, need string, reqs []model.Requirement) (*model.ShortlistRun, error) {
	if reqs == nil {
		reqs = []model.Requirement{}
	}
	reqJSON, err := json.Marshal(reqs)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal requirements")
	}

	now := time.Now().UTC()
	run := &model.ShortlistRun{
		ID:           uuid.New().String(),
		Need:         need,
		Requirements: reqs,
		Status:       model.RunStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := s.pool.Exec(ctx, "create_run",
		run.ID, run.Need, reqJSON, string(run.Status), now); err != nil {
		return nil, eris.Wrap(err, "store: create run")
	}
	return run, nil
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	tag, err := s.pool.Exec(ctx, "update_run_status", runID, string(status), time.Now().UTC())
	if err != nil {
		return eris.Wrap(err, "store: update run status")
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("store: run %s not found or already terminal", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID, message string) error {
	tag, err := s.pool.Exec(ctx, "fail_run", runID, message, time.Now().UTC())
	if err != nil {
		return eris.Wrap(err, "store: fail run")
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("store: run %s not found or already terminal", runID)
	}
	return nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, processingMs int64) error {
	tag, err := s.pool.Exec(ctx, "complete_run", runID, processingMs, time.Now().UTC())
	if err != nil {
		return eris.Wrap(err, "store: complete run")
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("store: run %s not found or already terminal", runID)
	}
	return nil
}

func (s *PostgresStore) InsertVendors(ctx context.Context, runID string, vendors []model.VendorRecord) error {
	now := time.Now().UTC()
	for _, v := range vendors {
		if v.ID == "" {
			v.ID = uuid.New().String()
		}
		matched, err := json.Marshal(emptyIfNilMatched(v.MatchedRequirements))
		if err != nil {
			return eris.Wrap(err, "store: marshal matched requirements")
		}
		features, err := json.Marshal(emptyIfNil(v.KeyFeatures))
		if err != nil {
			return eris.Wrap(err, "store: marshal key features")
		}
		evidence, err := json.Marshal(emptyIfNilEvidence(v.EvidenceLinks))
		if err != nil {
			return eris.Wrap(err, "store: marshal evidence links")
		}
		risks, err := json.Marshal(emptyIfNil(v.Risks))
		if err != nil {
			return eris.Wrap(err, "store: marshal risks")
		}
		if _, err := s.pool.Exec(ctx, "insert_vendor",
			v.ID, runID, v.Name, v.Website, v.Description, v.PriceRange,
			v.PricingModel, v.Currency, v.OverallScore, v.RequirementMatch,
			matched, features, evidence, risks, now); err != nil {
			return eris.Wrapf(err, "store: insert vendor %s", v.Name)
		}
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.ShortlistRun, error) {
	row := s.pool.QueryRow(ctx, "get_run", runID)
	run, err := scanRun(row)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "store: get run")
	}
	vendors, err := s.loadVendors(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	run.Vendors = vendors
	return run, nil
}

func (s *PostgresStore) ListRecentCompleted(ctx context.Context, limit int) ([]model.ShortlistRun, error) {
	rows, err := s.pool.Query(ctx, "list_completed", limit)
	if err != nil {
		return nil, eris.Wrap(err, "store: list completed runs")
	}
	defer rows.Close()

	runs := []model.ShortlistRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "store: scan run")
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "store: iterate runs")
	}

	for i := range runs {
		vendors, err := s.loadVendors(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Vendors = vendors
	}
	return runs, nil
}

func (s *PostgresStore) loadVendors(ctx context.Context, runID string) ([]model.VendorRecord, error) {
	rows, err := s.pool.Query(ctx, "list_vendors", runID)
	if err != nil {
		return nil, eris.Wrap(err, "store: list vendors")
	}
	defer rows.Close()

	vendors := []model.VendorRecord{}
	for rows.Next() {
		var (
			v        model.VendorRecord
			matched  []byte
			features []byte
			evidence []byte
			risks    []byte
		)
		if err := rows.Scan(&v.ID, &v.Name, &v.Website, &v.Description, &v.PriceRange,
			&v.PricingModel, &v.Currency, &v.OverallScore, &v.RequirementMatch,
			&matched, &features, &evidence, &risks); err != nil {
			return nil, eris.Wrap(err, "store: scan vendor")
		}
		if err := unmarshalVendorJSON(&v, matched, features, evidence, risks); err != nil {
			return nil, err
		}
		vendors = append(vendors, v)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "store: iterate vendors")
	}
	return vendors, nil
}

func (s *PostgresStore) InsertHealthCheck(ctx context.Context, hc model.ServiceHealth) error {
	checkedAt := hc.CheckedAt
	if checkedAt.IsZero() {
		checkedAt = time.Now().UTC()
	}
	if _, err := s.pool.Exec(ctx, "insert_health_check",
		uuid.New().String(), hc.Service, string(hc.Status), hc.ResponseTimeMs, hc.Message, checkedAt); err != nil {
		return eris.Wrap(err, "store: insert health check")
	}
	return nil
}

func (s *PostgresStore) GetCachedPage(ctx context.Context, url string) (*model.ScrapedPage, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, "get_cached_page", hashURL(url), time.Now().UTC()).Scan(&raw)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "store: get cached page")
	}
	var page model.ScrapedPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal cached page")
	}
	return &page, nil
}

func (s *PostgresStore) PutCachedPage(ctx context.Context, page *model.ScrapedPage, ttl time.Duration) error {
	raw, err := json.Marshal(page)
	if err != nil {
		return eris.Wrap(err, "store: marshal cached page")
	}
	now := time.Now().UTC()
	if _, err := s.pool.Exec(ctx, "put_cached_page",
		hashURL(page.URL), page.URL, raw, now, now.Add(ttl)); err != nil {
		return eris.Wrap(err, "store: put cached page")
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return eris.Wrap(err, "store: ping")
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// scanRun reads a shortlist_runs row in column order shared by get_run
// and list_completed.
func scanRun(row pgx.Row) (*model.ShortlistRun, error) {
	var (
		run     model.ShortlistRun
		reqJSON []byte
		status  string
	)
	if err := row.Scan(&run.ID, &run.Need, &reqJSON, &status, &run.ErrorMessage,
		&run.ProcessingMs, &run.CreatedAt, &run.UpdatedAt); err != nil {
		return nil, err
	}
	run.Status = model.RunStatus(status)
	run.Requirements = []model.Requirement{}
	if len(reqJSON) > 0 {
		if err := json.Unmarshal(reqJSON, &run.Requirements); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal requirements")
		}
	}
	return &run, nil
}

func unmarshalVendorJSON(v *model.VendorRecord, matched, features, evidence, risks []byte) error {
	v.MatchedRequirements = []model.MatchedRequirement{}
	v.KeyFeatures = []string{}
	v.EvidenceLinks = []model.EvidenceLink{}
	v.Risks = []string{}
	if len(matched) > 0 {
		if err := json.Unmarshal(matched, &v.MatchedRequirements); err != nil {
			return eris.Wrap(err, "store: unmarshal matched requirements")
		}
	}
	if len(features) > 0 {
		if err := json.Unmarshal(features, &v.KeyFeatures); err != nil {
			return eris.Wrap(err, "store: unmarshal key features")
		}
	}
	if len(evidence) > 0 {
		if err := json.Unmarshal(evidence, &v.EvidenceLinks); err != nil {
			return eris.Wrap(err, "store: unmarshal evidence links")
		}
	}
	if len(risks) > 0 {
		if err := json.Unmarshal(risks, &v.Risks); err != nil {
			return eris.Wrap(err, "store: unmarshal risks")
		}
	}
	return nil
}

func emptyIfNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func emptyIfNilMatched(in []model.MatchedRequirement) []model.MatchedRequirement {
	if in == nil {
		return []model.MatchedRequirement{}
	}
	return in
}

func emptyIfNilEvidence(in []model.EvidenceLink) []model.EvidenceLink {
	if in == nil {
		return []model.EvidenceLink{}
	}
	return in
}
