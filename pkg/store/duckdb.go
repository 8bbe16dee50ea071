// Package store persists finished plans in DuckDB for ad-hoc SQL over
// past runs.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/cyclo/millplan/internal/model"
	perrors "github.com/cyclo/millplan/pkg/errors"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		run_id       VARCHAR NOT NULL,
		fingerprint  VARCHAR NOT NULL,
		plan_start   TIMESTAMP NOT NULL,
		generated_at TIMESTAMP NOT NULL,
		total_orders INTEGER NOT NULL,
		batches      INTEGER NOT NULL,
		allocated_kg DOUBLE NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS allocations (
		run_id       VARCHAR NOT NULL,
		batch_id     VARCHAR NOT NULL,
		orders       VARCHAR,
		line         VARCHAR NOT NULL,
		plan_date    TIMESTAMP NOT NULL,
		shift        VARCHAR NOT NULL,
		allocated_kg DOUBLE NOT NULL,
		start_dt     TIMESTAMP NOT NULL,
		end_dt       TIMESTAMP NOT NULL,
		hours        DOUBLE NOT NULL,
		color_code   VARCHAR,
		color_family VARCHAR,
		yarn_count   INTEGER,
		blend        VARCHAR,
		yarn_type    VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS unmatched (
		run_id   VARCHAR NOT NULL,
		order_id VARCHAR,
		code     VARCHAR,
		reason   VARCHAR,
		qty      DOUBLE
	)`,
}

// Store writes plans to a DuckDB database file. An empty path opens an
// in-memory database.
type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// RunInfo is one row of the runs table.
type RunInfo struct {
	RunID       string
	Fingerprint string
	Start       time.Time
	GeneratedAt time.Time
	TotalOrders int
	Batches     int
	AllocatedKg float64
}

// LineLoad is the total planned load of one line in a run.
type LineLoad struct {
	Line        string
	Days        int
	AllocatedKg float64
	Hours       float64
}

// Open opens (creating if needed) the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, perrors.Wrap(err, perrors.CodeStoreFailed, "failed to open duckdb").WithContext("path", path)
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, perrors.Wrap(err, perrors.CodeStoreFailed, "failed to create table")
		}
	}
	return &Store{db: db, path: path}, nil
}

// Save writes a plan in one transaction. Saving the same run twice
// replaces the earlier rows.
func (s *Store) Save(ctx context.Context, plan *model.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return perrors.Wrap(err, perrors.CodeStoreFailed, "failed to begin transaction")
	}
	if err := s.save(ctx, tx, plan); err != nil {
		tx.Rollback()
		return perrors.Wrap(err, perrors.CodeStoreFailed, "failed to save plan").WithContext("run_id", plan.RunID)
	}
	if err := tx.Commit(); err != nil {
		return perrors.Wrap(err, perrors.CodeStoreFailed, "failed to commit plan")
	}
	return nil
}

func (s *Store) save(ctx context.Context, tx *sql.Tx, plan *model.Plan) error {
	for _, table := range []string{"allocations", "unmatched", "runs"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE run_id = ?", plan.RunID); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs VALUES (?, ?, ?, ?, ?, ?, ?)`,
		plan.RunID, plan.Fingerprint, plan.Start, plan.GeneratedAt,
		plan.TotalOrders, len(plan.Batches), plan.TotalAllocatedKg(),
	); err != nil {
		return err
	}

	alloc, err := tx.PrepareContext(ctx,
		`INSERT INTO allocations VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer alloc.Close()
	for _, r := range plan.Allocations {
		if _, err := alloc.ExecContext(ctx,
			plan.RunID, r.BatchID, r.Orders, r.Line, r.Date, r.Shift, r.AllocatedKg,
			r.Start, r.End, r.Hours, r.ColorCode, r.ColorFamily, r.Count, r.Blend, r.YarnType,
		); err != nil {
			return err
		}
	}

	for _, u := range plan.Unmatched {
		if _, err := tx.ExecContext(ctx, `INSERT INTO unmatched VALUES (?, ?, ?, ?, ?)`,
			plan.RunID, u.OrderID, u.Code, u.Reason, u.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// Runs lists stored runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, fingerprint, plan_start, generated_at, total_orders, batches, allocated_kg
		FROM runs
		ORDER BY generated_at DESC, run_id
	`)
	if err != nil {
		return nil, perrors.Wrap(err, perrors.CodeStoreFailed, "failed to query runs")
	}
	defer rows.Close()

	var out []RunInfo
	for rows.Next() {
		var r RunInfo
		if err := rows.Scan(&r.RunID, &r.Fingerprint, &r.Start, &r.GeneratedAt, &r.TotalOrders, &r.Batches, &r.AllocatedKg); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LineLoads aggregates a run's allocations per line.
func (s *Store) LineLoads(ctx context.Context, runID string) ([]LineLoad, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT line,
			COUNT(DISTINCT plan_date) AS days,
			SUM(allocated_kg) AS kg,
			SUM(hours) AS hours
		FROM allocations
		WHERE run_id = ?
		GROUP BY line
		ORDER BY line
	`, runID)
	if err != nil {
		return nil, perrors.Wrap(err, perrors.CodeStoreFailed, "failed to query line loads")
	}
	defer rows.Close()

	var out []LineLoad
	for rows.Next() {
		var l LineLoad
		if err := rows.Scan(&l.Line, &l.Days, &l.AllocatedKg, &l.Hours); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// ExportParquet copies a run's allocations to a parquet file.
func (s *Store) ExportParquet(ctx context.Context, runID, path, compression string) error {
	if compression == "" {
		compression = "snappy"
	}
	query := fmt.Sprintf(`
		COPY (
			SELECT * EXCLUDE (run_id)
			FROM allocations
			WHERE run_id = '%s'
			ORDER BY plan_date, line, start_dt
		) TO '%s' (FORMAT PARQUET, COMPRESSION '%s')
	`, quote(runID), quote(path), quote(compression))

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return perrors.Wrap(err, perrors.CodeWriteFailed, "failed to export run").WithContext("path", path)
	}
	return nil
}

// Path returns the database path, empty for in-memory stores.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// quote escapes a value for a single-quoted SQL literal. COPY does not
// accept bind parameters.
func quote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
