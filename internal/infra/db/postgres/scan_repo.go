package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domain "github.com/bryanwahyu/autovuln/internal/domain/scans"
	"github.com/bryanwahyu/autovuln/internal/infra/db"
)

// ScanRepository implements scans.Archive on Postgres.
type ScanRepository struct{ db *sql.DB }

func NewScanRepository(conn *sql.DB) *ScanRepository { return &ScanRepository{db: conn} }

const schema = `
CREATE TABLE IF NOT EXISTS ` + db.Table + ` (
  id TEXT PRIMARY KEY,
  target_url TEXT NOT NULL,
  mode TEXT NOT NULL,
  status TEXT NOT NULL,
  current_tool TEXT NOT NULL,
  progress INTEGER NOT NULL DEFAULT 0,
  simulate_attack BOOLEAN NOT NULL DEFAULT FALSE,
  compare_to_scan_id TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL,
  started_at TIMESTAMPTZ NULL,
  finished_at TIMESTAMPTZ NULL,
  error_message TEXT NOT NULL DEFAULT '',
  critical INTEGER NOT NULL DEFAULT 0,
  high INTEGER NOT NULL DEFAULT 0,
  medium INTEGER NOT NULL DEFAULT 0,
  low INTEGER NOT NULL DEFAULT 0,
  findings_total INTEGER NOT NULL DEFAULT 0,
  risk_score INTEGER NOT NULL DEFAULT 0,
  risk_label TEXT NOT NULL,
  logs JSONB NOT NULL,
  findings JSONB NOT NULL,
  metrics JSONB NULL,
  report JSONB NULL
);
CREATE INDEX IF NOT EXISTS idx_` + db.Table + `_created_at ON ` + db.Table + ` (created_at DESC);`

// EnsureSchema bikin table kalau belum ada
func (r *ScanRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create %s: %w", db.Table, err)
	}
	return nil
}

// Save insert/update Scan record
func (r *ScanRepository) Save(ctx context.Context, s *domain.Scan) error {
	const q = `
INSERT INTO ` + db.Table + `
(` + db.Columns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,
        $9,$10,$11,$12,
        $13,$14,$15,$16,$17,$18,$19,
        $20,$21,$22,$23)
ON CONFLICT (id) DO UPDATE SET
 status = EXCLUDED.status,
 current_tool = EXCLUDED.current_tool,
 progress = EXCLUDED.progress,
 started_at = EXCLUDED.started_at,
 finished_at = EXCLUDED.finished_at,
 error_message = EXCLUDED.error_message,
 critical = EXCLUDED.critical,
 high = EXCLUDED.high,
 medium = EXCLUDED.medium,
 low = EXCLUDED.low,
 findings_total = EXCLUDED.findings_total,
 risk_score = EXCLUDED.risk_score,
 risk_label = EXCLUDED.risk_label,
 logs = EXCLUDED.logs,
 findings = EXCLUDED.findings,
 metrics = EXCLUDED.metrics,
 report = EXCLUDED.report;`

	rec, err := db.FromScan(s)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, q, rec.Args()...)
	return err
}

// Get by ID
func (r *ScanRepository) Get(ctx context.Context, id domain.ScanID) (*domain.Scan, error) {
	const q = `SELECT ` + db.Columns + ` FROM ` + db.Table + ` WHERE id = $1 LIMIT 1;`
	var rec db.Record
	if err := r.db.QueryRowContext(ctx, q, string(id)).Scan(rec.Dest()...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return rec.ToScan()
}

// Latest scans, newest first
func (r *ScanRepository) Latest(ctx context.Context, limit int) ([]*domain.Scan, error) {
	const q = `SELECT ` + db.Columns + ` FROM ` + db.Table + ` ORDER BY created_at DESC LIMIT $1;`
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Scan
	for rows.Next() {
		var rec db.Record
		if err := rows.Scan(rec.Dest()...); err != nil {
			return nil, err
		}
		s, err := rec.ToScan()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
