package scans

import (
	"math"

	"github.com/bryanwahyu/autovuln/internal/domain/findings"
)

// Comparison is the before/after delta between two scans.
type Comparison struct {
	BaselineScanID   ScanID                    `json:"baseline_scan_id"`
	CandidateScanID  ScanID                    `json:"candidate_scan_id"`
	RiskScoreDelta   int                       `json:"risk_score_delta"`
	SeverityDelta    map[findings.Severity]int `json:"severity_delta"`
	FindingsDelta    int                       `json:"findings_delta"`
	LatencyDeltaMS   float64                   `json:"latency_delta_ms"`
	BlockedRateDelta float64                   `json:"blocked_rate_delta"`
}

// Compare computes candidate minus baseline.
func Compare(baseline, candidate Scan) Comparison {
	r := Comparison{
		BaselineScanID:  baseline.ID,
		CandidateScanID: candidate.ID,
		RiskScoreDelta:  findings.Score(candidate.Findings).Score - findings.Score(baseline.Findings).Score,
		SeverityDelta:   make(map[findings.Severity]int, len(findings.Ordered)),
		FindingsDelta:   len(candidate.Findings) - len(baseline.Findings),
	}

	prev := findings.CountBySeverity(baseline.Findings)
	curr := findings.CountBySeverity(candidate.Findings)
	for _, sev := range findings.Ordered {
		r.SeverityDelta[sev] = curr[sev] - prev[sev]
	}

	if baseline.Metrics != nil && candidate.Metrics != nil {
		r.LatencyDeltaMS = round2(candidate.Metrics.PostScanHTTP.AvgLatencyMS - baseline.Metrics.PostScanHTTP.AvgLatencyMS)
		if baseline.Metrics.Simulation != nil && candidate.Metrics.Simulation != nil {
			r.BlockedRateDelta = round4(candidate.Metrics.Simulation.BlockedRate - baseline.Metrics.Simulation.BlockedRate)
		}
	}
	return r
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
