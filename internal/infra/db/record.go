// Package db holds the row mapping shared by the mysql and postgres scan archives.
package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bryanwahyu/autovuln/internal/domain/findings"
	domain "github.com/bryanwahyu/autovuln/internal/domain/scans"
)

// Table is the archive table name in both dialects.
const Table = "autovuln_scans"

// Columns in insert/select order.
const Columns = `id, target_url, mode, status, current_tool, progress, simulate_attack, compare_to_scan_id,
 created_at, started_at, finished_at, error_message,
 critical, high, medium, low, findings_total, risk_score, risk_label,
 logs, findings, metrics, report`

// Record is one archived scan. Nested data lives in JSON columns.
type Record struct {
	ID          string
	TargetURL   string
	Mode        string
	Status      string
	CurrentTool string
	Progress    int
	Simulate    bool
	CompareTo   string
	CreatedAt   time.Time
	StartedAt   sql.NullTime
	FinishedAt  sql.NullTime
	Error       string

	Critical, High, Medium, Low, Total int
	RiskScore                          int
	RiskLabel                          string

	Logs     []byte
	Findings []byte
	Metrics  []byte
	Report   []byte
}

// StringOrDash returns "-" when the input is empty/whitespace
func StringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func FromScan(s *domain.Scan) (Record, error) {
	r := Record{
		ID:          string(s.ID),
		TargetURL:   s.TargetURL,
		Mode:        StringOrDash(string(s.Mode)),
		Status:      StringOrDash(string(s.Status)),
		CurrentTool: StringOrDash(s.CurrentTool),
		Progress:    s.Progress,
		Simulate:    s.SimulateAttack,
		CompareTo:   string(s.CompareToScanID),
		CreatedAt:   s.CreatedAt,
		Error:       s.Error,
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	if s.StartedAt != nil {
		r.StartedAt = sql.NullTime{Time: *s.StartedAt, Valid: true}
	}
	if s.FinishedAt != nil {
		r.FinishedAt = sql.NullTime{Time: *s.FinishedAt, Valid: true}
	}

	counts := findings.CountBySeverity(s.Findings)
	r.Critical = counts[findings.SeverityCritical]
	r.High = counts[findings.SeverityHigh]
	r.Medium = counts[findings.SeverityMedium]
	r.Low = counts[findings.SeverityLow]
	r.Total = len(s.Findings)
	risk := findings.Score(s.Findings)
	r.RiskScore = risk.Score
	r.RiskLabel = string(risk.Label)

	var err error
	if r.Logs, err = json.Marshal(nonNil(s.Logs)); err != nil {
		return Record{}, fmt.Errorf("encode logs: %w", err)
	}
	if r.Findings, err = json.Marshal(nonNilFindings(s.Findings)); err != nil {
		return Record{}, fmt.Errorf("encode findings: %w", err)
	}
	if r.Metrics, err = json.Marshal(s.Metrics); err != nil {
		return Record{}, fmt.Errorf("encode metrics: %w", err)
	}
	if r.Report, err = json.Marshal(s.Report); err != nil {
		return Record{}, fmt.Errorf("encode report: %w", err)
	}
	return r, nil
}

// Args returns the values in Columns order.
func (r Record) Args() []any {
	return []any{
		r.ID, r.TargetURL, r.Mode, r.Status, r.CurrentTool, r.Progress, r.Simulate, r.CompareTo,
		r.CreatedAt, r.StartedAt, r.FinishedAt, r.Error,
		r.Critical, r.High, r.Medium, r.Low, r.Total, r.RiskScore, r.RiskLabel,
		string(r.Logs), string(r.Findings), string(r.Metrics), string(r.Report),
	}
}

// Dest returns scan destinations in Columns order.
func (r *Record) Dest() []any {
	return []any{
		&r.ID, &r.TargetURL, &r.Mode, &r.Status, &r.CurrentTool, &r.Progress, &r.Simulate, &r.CompareTo,
		&r.CreatedAt, &r.StartedAt, &r.FinishedAt, &r.Error,
		&r.Critical, &r.High, &r.Medium, &r.Low, &r.Total, &r.RiskScore, &r.RiskLabel,
		&r.Logs, &r.Findings, &r.Metrics, &r.Report,
	}
}

func (r Record) ToScan() (*domain.Scan, error) {
	s := &domain.Scan{
		ID:              domain.ScanID(r.ID),
		TargetURL:       r.TargetURL,
		Mode:            domain.ParseMode(r.Mode),
		CreatedAt:       r.CreatedAt.UTC(),
		SimulateAttack:  r.Simulate,
		CompareToScanID: domain.ScanID(r.CompareTo),
		Status:          domain.Status(r.Status),
		CurrentTool:     r.CurrentTool,
		Progress:        r.Progress,
		Error:           r.Error,
	}
	if r.StartedAt.Valid {
		t := r.StartedAt.Time.UTC()
		s.StartedAt = &t
	}
	if r.FinishedAt.Valid {
		t := r.FinishedAt.Time.UTC()
		s.FinishedAt = &t
	}
	if err := unmarshalColumn(r.Logs, &s.Logs); err != nil {
		return nil, fmt.Errorf("decode logs: %w", err)
	}
	if err := unmarshalColumn(r.Findings, &s.Findings); err != nil {
		return nil, fmt.Errorf("decode findings: %w", err)
	}
	if err := unmarshalColumn(r.Metrics, &s.Metrics); err != nil {
		return nil, fmt.Errorf("decode metrics: %w", err)
	}
	if err := unmarshalColumn(r.Report, &s.Report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	s.Logs = nonNil(s.Logs)
	s.Findings = nonNilFindings(s.Findings)
	return s, nil
}

func unmarshalColumn(b []byte, v any) error {
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, v)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilFindings(fs []findings.Finding) []findings.Finding {
	if fs == nil {
		return []findings.Finding{}
	}
	return fs
}
