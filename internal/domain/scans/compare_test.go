package scans

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bryanwahyu/autovuln/internal/domain/findings"
)

func scanWith(id string, sevs ...findings.Severity) Scan {
	s := Scan{ID: ScanID(id), Status: StatusCompleted}
	for _, sev := range sevs {
		s.Findings = append(s.Findings, findings.Finding{Title: "x", Severity: sev})
	}
	return s
}

func TestCompare_Example(t *testing.T) {
	base := scanWith("a", findings.SeverityLow, findings.SeverityLow)
	cand := scanWith("b", findings.SeverityCritical)

	c := Compare(base, cand)
	assert.Equal(t, ScanID("a"), c.BaselineScanID)
	assert.Equal(t, ScanID("b"), c.CandidateScanID)
	assert.Equal(t, 80, c.RiskScoreDelta)
	assert.Equal(t, map[findings.Severity]int{
		findings.SeverityCritical: 1,
		findings.SeverityHigh:     0,
		findings.SeverityMedium:   0,
		findings.SeverityLow:      -2,
	}, c.SeverityDelta)
	assert.Equal(t, -1, c.FindingsDelta)
	assert.Zero(t, c.LatencyDeltaMS)
	assert.Zero(t, c.BlockedRateDelta)
}

func TestCompare_Metrics(t *testing.T) {
	base := scanWith("a")
	cand := scanWith("b")
	base.Metrics = &MetricsRecord{PostScanHTTP: HTTPMeasurement{AvgLatencyMS: 120.5}}
	cand.Metrics = &MetricsRecord{PostScanHTTP: HTTPMeasurement{AvgLatencyMS: 100.25}}

	c := Compare(base, cand)
	assert.InDelta(t, -20.25, c.LatencyDeltaMS, 1e-9)
	assert.Zero(t, c.BlockedRateDelta, "no simulation on either side")

	base.Metrics.Simulation = &SimulationMeasurement{BlockedRate: 0.25}
	c = Compare(base, cand)
	assert.Zero(t, c.BlockedRateDelta, "candidate lacks simulation")

	cand.Metrics.Simulation = &SimulationMeasurement{BlockedRate: 1}
	c = Compare(base, cand)
	assert.InDelta(t, 0.75, c.BlockedRateDelta, 1e-9)
}

func TestCompare_EmptyScans(t *testing.T) {
	c := Compare(scanWith("a"), scanWith("b"))
	assert.Zero(t, c.RiskScoreDelta)
	assert.Zero(t, c.FindingsDelta)
	assert.Len(t, c.SeverityDelta, 4)
}
