package scans

import (
	"strings"
	"time"

	"github.com/bryanwahyu/autovuln/internal/domain/findings"
)

// ID tipe untuk Scan
type ScanID string

// Mode is the execution environment the tools run in.
type Mode string

const (
	ModeDocker Mode = "docker"
	ModeWSL    Mode = "wsl"
)

// ParseMode normalizes user input; anything unknown falls back to docker.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeWSL:
		return ModeWSL
	default:
		return ModeDocker
	}
}

// Status enum
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusFailed }

// sentinel values for Scan.CurrentTool
const (
	StepPending = "pending"
	StepMetrics = "metrics"
	StepReport  = "report"
	StepDone    = "done"
)

// HTTPMeasurement summarizes a batch of sequential GET requests.
type HTTPMeasurement struct {
	Requests           int         `json:"requests"`
	AvgLatencyMS       float64     `json:"avg_latency_ms"`
	StatusDistribution map[int]int `json:"status_distribution"`
	ErrorRate          float64     `json:"error_rate"`
}

// SimulationMeasurement is the result of the benign attack-pattern sweep.
type SimulationMeasurement struct {
	HTTPMeasurement
	RequestsSent int     `json:"requests_sent"`
	BlockedRate  float64 `json:"blocked_rate"`
}

// MetricsRecord is attached to a scan when its run completes.
type MetricsRecord struct {
	BaselineHTTP    HTTPMeasurement        `json:"baseline_http"`
	Simulation      *SimulationMeasurement `json:"simulation,omitempty"`
	PostScanHTTP    HTTPMeasurement        `json:"post_scan_http"`
	DurationSeconds float64                `json:"duration_seconds"`
}

// Report references the rendered artifacts of a completed scan.
type Report struct {
	HTML     string   `json:"-"`
	HTMLPath string   `json:"html_path,omitempty"`
	PDFPath  string   `json:"pdf_path,omitempty"`
	URLs     []string `json:"urls,omitempty"`
}

// Aggregate Root: Scan
type Scan struct {
	ID              ScanID             `json:"scan_id"`
	TargetURL       string             `json:"target_url"`
	Mode            Mode               `json:"mode"`
	CreatedAt       time.Time          `json:"created_at"`
	StartedAt       *time.Time         `json:"started_at,omitempty"`
	FinishedAt      *time.Time         `json:"finished_at,omitempty"`
	SimulateAttack  bool               `json:"simulate_attack"`
	CompareToScanID ScanID             `json:"compare_to_scan_id,omitempty"`
	Status          Status             `json:"status"`
	CurrentTool     string             `json:"current_tool"`
	Progress        int                `json:"progress"`
	Logs            []string           `json:"logs"`
	Findings        []findings.Finding `json:"findings"`
	Metrics         *MetricsRecord     `json:"metrics,omitempty"`
	Error           string             `json:"error,omitempty"`
	Report          *Report            `json:"report,omitempty"`
}

// NewScan builds a queued scan.
func NewScan(id ScanID, target string, mode Mode, simulate bool, compareTo ScanID, now time.Time) Scan {
	return Scan{
		ID:              id,
		TargetURL:       target,
		Mode:            mode,
		CreatedAt:       now.UTC(),
		SimulateAttack:  simulate,
		CompareToScanID: compareTo,
		Status:          StatusQueued,
		CurrentTool:     StepPending,
		Logs:            []string{},
		Findings:        []findings.Finding{},
	}
}

// Clone returns a deep copy safe to hand out of the registry.
func (s Scan) Clone() Scan {
	c := s
	c.Logs = append([]string{}, s.Logs...)
	c.Findings = append([]findings.Finding{}, s.Findings...)
	if s.StartedAt != nil {
		t := *s.StartedAt
		c.StartedAt = &t
	}
	if s.FinishedAt != nil {
		t := *s.FinishedAt
		c.FinishedAt = &t
	}
	if s.Metrics != nil {
		m := *s.Metrics
		m.BaselineHTTP = m.BaselineHTTP.clone()
		m.PostScanHTTP = m.PostScanHTTP.clone()
		if s.Metrics.Simulation != nil {
			sim := *s.Metrics.Simulation
			sim.HTTPMeasurement = sim.HTTPMeasurement.clone()
			m.Simulation = &sim
		}
		c.Metrics = &m
	}
	if s.Report != nil {
		r := *s.Report
		r.URLs = append([]string(nil), s.Report.URLs...)
		c.Report = &r
	}
	return c
}

func (h HTTPMeasurement) clone() HTTPMeasurement {
	if h.StatusDistribution == nil {
		return h
	}
	d := make(map[int]int, len(h.StatusDistribution))
	for k, v := range h.StatusDistribution {
		d[k] = v
	}
	h.StatusDistribution = d
	return h
}

// Snapshot is the read model returned to callers.
type Snapshot struct {
	Scan
	RiskScore  findings.RiskScore `json:"risk_score"`
	Comparison *Comparison        `json:"comparison,omitempty"`
}

// NewSnapshot derives the read model from s.
func NewSnapshot(s Scan) *Snapshot {
	c := s.Clone()
	return &Snapshot{Scan: c, RiskScore: findings.Score(c.Findings)}
}
