package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domain "github.com/bryanwahyu/autovuln/internal/domain/scans"
	"github.com/bryanwahyu/autovuln/internal/infra/db"
)

// ScanRepository implements scans.Archive on MySQL.
type ScanRepository struct {
	db *sql.DB
}

func NewScanRepository(conn *sql.DB) *ScanRepository {
	return &ScanRepository{db: conn}
}

const schema = `
CREATE TABLE IF NOT EXISTS ` + db.Table + ` (
  id VARCHAR(64) NOT NULL PRIMARY KEY,
  target_url TEXT NOT NULL,
  mode VARCHAR(16) NOT NULL,
  status VARCHAR(16) NOT NULL,
  current_tool VARCHAR(32) NOT NULL,
  progress INT NOT NULL DEFAULT 0,
  simulate_attack TINYINT(1) NOT NULL DEFAULT 0,
  compare_to_scan_id VARCHAR(64) NOT NULL DEFAULT '',
  created_at DATETIME(6) NOT NULL,
  started_at DATETIME(6) NULL,
  finished_at DATETIME(6) NULL,
  error_message TEXT NOT NULL,
  critical INT NOT NULL DEFAULT 0,
  high INT NOT NULL DEFAULT 0,
  medium INT NOT NULL DEFAULT 0,
  low INT NOT NULL DEFAULT 0,
  findings_total INT NOT NULL DEFAULT 0,
  risk_score INT NOT NULL DEFAULT 0,
  risk_label VARCHAR(16) NOT NULL,
  logs JSON NOT NULL,
  findings JSON NOT NULL,
  metrics JSON NULL,
  report JSON NULL,
  KEY idx_created_at (created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

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
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 status=VALUES(status), current_tool=VALUES(current_tool), progress=VALUES(progress),
 started_at=VALUES(started_at), finished_at=VALUES(finished_at), error_message=VALUES(error_message),
 critical=VALUES(critical), high=VALUES(high), medium=VALUES(medium), low=VALUES(low),
 findings_total=VALUES(findings_total), risk_score=VALUES(risk_score), risk_label=VALUES(risk_label),
 logs=VALUES(logs), findings=VALUES(findings), metrics=VALUES(metrics), report=VALUES(report);
`
	rec, err := db.FromScan(s)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, q, rec.Args()...)
	return err
}

// Get by ID
func (r *ScanRepository) Get(ctx context.Context, id domain.ScanID) (*domain.Scan, error) {
	const q = `SELECT ` + db.Columns + ` FROM ` + db.Table + ` WHERE id=? LIMIT 1;`
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
	const q = `SELECT ` + db.Columns + ` FROM ` + db.Table + ` ORDER BY created_at DESC LIMIT ?;`
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
