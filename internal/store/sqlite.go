package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/shortlist-cli/internal/model"
)

// Fixed-width so lexicographic ORDER BY matches chronological order;
// RFC3339Nano trims trailing zeros and breaks that.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS shortlist_runs (
	id            TEXT PRIMARY KEY,
	need          TEXT NOT NULL,
	requirements  TEXT NOT NULL DEFAULT '[]',
	status        TEXT NOT NULL DEFAULT 'pending',
	error_message TEXT NOT NULL DEFAULT '',
	processing_ms INTEGER NOT NULL DEFAULT 0,
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL
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
	overall_score        REAL NOT NULL DEFAULT 0,
	requirement_match    REAL NOT NULL DEFAULT 0,
	matched_requirements TEXT NOT NULL DEFAULT '[]',
	key_features         TEXT NOT NULL DEFAULT '[]',
	evidence_links       TEXT NOT NULL DEFAULT '[]',
	risks                TEXT NOT NULL DEFAULT '[]',
	created_at           TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_vendors_run_id ON vendors (run_id);

CREATE TABLE IF NOT EXISTS health_checks (
	id               TEXT PRIMARY KEY,
	service          TEXT NOT NULL,
	status           TEXT NOT NULL,
	response_time_ms INTEGER NOT NULL DEFAULT 0,
	message          TEXT NOT NULL DEFAULT '',
	checked_at       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_health_checks_service
	ON health_checks (service, checked_at DESC);

CREATE TABLE IF NOT EXISTS scrape_cache (
	url_hash   TEXT PRIMARY KEY,
	url        TEXT NOT NULL,
	page       TEXT NOT NULL,
	cached_at  TEXT NOT NULL,
	expires_at TEXT NOT NULL
);
`

// SQLiteStore implements Store on a local file, for development and the
// CLI commands. Uses the pure-Go modernc driver, no cgo.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (and creates if needed) the database at path.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "store: open sqlite")
	}
	// Single writer; WAL keeps readers unblocked during pipeline writes.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "store: %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "store: migrate")
	}
	return nil
}

func (s *SQLiteStore) CreateRun(ctx context.Context, need string, reqs []model.Requirement) (*model.ShortlistRun, error) {
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
	ts := now.Format(sqliteTimeLayout)
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO shortlist_runs (id, need, requirements, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Need, string(reqJSON), string(run.Status), ts, ts); err != nil {
		return nil, eris.Wrap(err, "store: create run")
	}
	return run, nil
}

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE shortlist_runs SET status = ?, updated_at = ?
		 WHERE id = ? AND status NOT IN ('completed', 'failed')`,
		string(status), time.Now().UTC().Format(sqliteTimeLayout), runID)
	if err != nil {
		return eris.Wrap(err, "store: update run status")
	}
	return checkRunTouched(res, runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID, message string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE shortlist_runs SET status = 'failed', error_message = ?, updated_at = ?
		 WHERE id = ? AND status NOT IN ('completed', 'failed')`,
		message, time.Now().UTC().Format(sqliteTimeLayout), runID)
	if err != nil {
		return eris.Wrap(err, "store: fail run")
	}
	return checkRunTouched(res, runID)
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, processingMs int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE shortlist_runs SET status = 'completed', processing_ms = ?, updated_at = ?
		 WHERE id = ? AND status NOT IN ('completed', 'failed')`,
		processingMs, time.Now().UTC().Format(sqliteTimeLayout), runID)
	if err != nil {
		return eris.Wrap(err, "store: complete run")
	}
	return checkRunTouched(res, runID)
}

func (s *SQLiteStore) InsertVendors(ctx context.Context, runID string, vendors []model.VendorRecord) error {
	ts := time.Now().UTC().Format(sqliteTimeLayout)
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
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO vendors (id, run_id, name, website, description, price_range,
				pricing_model, currency, overall_score, requirement_match, matched_requirements,
				key_features, evidence_links, risks, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			v.ID, runID, v.Name, v.Website, v.Description, v.PriceRange,
			v.PricingModel, v.Currency, v.OverallScore, v.RequirementMatch,
			string(matched), string(features), string(evidence), string(risks), ts); err != nil {
			return eris.Wrapf(err, "store: insert vendor %s", v.Name)
		}
	}
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.ShortlistRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, need, requirements, status, error_message, processing_ms, created_at, updated_at
		 FROM shortlist_runs WHERE id = ?`, runID)
	run, err := scanRunText(row)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
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

func (s *SQLiteStore) ListRecentCompleted(ctx context.Context, limit int) ([]model.ShortlistRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, need, requirements, status, error_message, processing_ms, created_at, updated_at
		 FROM shortlist_runs WHERE status = 'completed' ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "store: list completed runs")
	}
	defer rows.Close()

	runs := []model.ShortlistRun{}
	for rows.Next() {
		run, err := scanRunText(rows)
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

func (s *SQLiteStore) loadVendors(ctx context.Context, runID string) ([]model.VendorRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, website, description, price_range, pricing_model, currency,
			overall_score, requirement_match, matched_requirements, key_features, evidence_links, risks
		 FROM vendors WHERE run_id = ? ORDER BY overall_score DESC`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "store: list vendors")
	}
	defer rows.Close()

	vendors := []model.VendorRecord{}
	for rows.Next() {
		var (
			v        model.VendorRecord
			matched  string
			features string
			evidence string
			risks    string
		)
		if err := rows.Scan(&v.ID, &v.Name, &v.Website, &v.Description, &v.PriceRange,
			&v.PricingModel, &v.Currency, &v.OverallScore, &v.RequirementMatch,
			&matched, &features, &evidence, &risks); err != nil {
			return nil, eris.Wrap(err, "store: scan vendor")
		}
		if err := unmarshalVendorJSON(&v, []byte(matched), []byte(features), []byte(evidence), []byte(risks)); err != nil {
			return nil, err
		}
		vendors = append(vendors, v)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "store: iterate vendors")
	}
	return vendors, nil
}

func (s *SQLiteStore) InsertHealthCheck(ctx context.Context, hc model.ServiceHealth) error {
	checkedAt := hc.CheckedAt
	if checkedAt.IsZero() {
		checkedAt = time.Now().UTC()
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO health_checks (id, service, status, response_time_ms, message, checked_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), hc.Service, string(hc.Status), hc.ResponseTimeMs, hc.Message,
		checkedAt.Format(sqliteTimeLayout)); err != nil {
		return eris.Wrap(err, "store: insert health check")
	}
	return nil
}

func (s *SQLiteStore) GetCachedPage(ctx context.Context, url string) (*model.ScrapedPage, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT page FROM scrape_cache WHERE url_hash = ? AND expires_at > ?`,
		hashURL(url), time.Now().UTC().Format(sqliteTimeLayout)).Scan(&raw)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "store: get cached page")
	}
	var page model.ScrapedPage
	if err := json.Unmarshal([]byte(raw), &page); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal cached page")
	}
	return &page, nil
}

func (s *SQLiteStore) PutCachedPage(ctx context.Context, page *model.ScrapedPage, ttl time.Duration) error {
	raw, err := json.Marshal(page)
	if err != nil {
		return eris.Wrap(err, "store: marshal cached page")
	}
	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO scrape_cache (url_hash, url, page, cached_at, expires_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (url_hash) DO UPDATE SET
			page = excluded.page, cached_at = excluded.cached_at, expires_at = excluded.expires_at`,
		hashURL(page.URL), page.URL, string(raw),
		now.Format(sqliteTimeLayout), now.Add(ttl).Format(sqliteTimeLayout)); err != nil {
		return eris.Wrap(err, "store: put cached page")
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return eris.Wrap(err, "store: ping")
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// scannable covers *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

func scanRunText(row scannable) (*model.ShortlistRun, error) {
	var (
		run       model.ShortlistRun
		reqJSON   string
		status    string
		createdAt string
		updatedAt string
	)
	if err := row.Scan(&run.ID, &run.Need, &reqJSON, &status, &run.ErrorMessage,
		&run.ProcessingMs, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	run.Status = model.RunStatus(status)
	run.Requirements = []model.Requirement{}
	if reqJSON != "" {
		if err := json.Unmarshal([]byte(reqJSON), &run.Requirements); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal requirements")
		}
	}
	var err error
	if run.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt); err != nil {
		return nil, eris.Wrap(err, "store: parse created_at")
	}
	if run.UpdatedAt, err = time.Parse(sqliteTimeLayout, updatedAt); err != nil {
		return nil, eris.Wrap(err, "store: parse updated_at")
	}
	return &run, nil
}

func checkRunTouched(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "store: rows affected")
	}
	if n == 0 {
		return eris.Errorf("store: run %s not found or already terminal", runID)
	}
	return nil
}
