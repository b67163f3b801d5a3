package report

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/autovuln/internal/domain/findings"
	domain "github.com/bryanwahyu/autovuln/internal/domain/scans"
)

func sampleSnapshot() *domain.Snapshot {
	s := domain.NewScan("abc", "http://example.test", domain.ModeDocker, true, "", time.Now())
	s.Findings = []findings.Finding{
		{Title: "Open Port Detected", Description: "d", Evidence: "80/tcp open http", Severity: findings.SeverityLow, Remediation: "r", SourceTool: findings.ToolNmap},
		{Title: "Potential XSS Indicator", Description: "<b>x</b>", Evidence: "+ xss", Severity: findings.SeverityHigh, Remediation: "r", SourceTool: findings.ToolNikto},
	}
	s.Metrics = &domain.MetricsRecord{
		Simulation: &domain.SimulationMeasurement{RequestsSent: 16, BlockedRate: 0.25},
	}
	return domain.NewSnapshot(s)
}

func TestRender_WritesFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	r := NewRenderer(dir, nil)

	rep, err := r.Render(context.Background(), sampleSnapshot())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "abc.html"), rep.HTMLPath)
	html, err := os.ReadFile(rep.HTMLPath)
	require.NoError(t, err)
	assert.Equal(t, rep.HTML, string(html))
	assert.Contains(t, rep.HTML, "Risk score 50/100 (Medium)")
	assert.Contains(t, rep.HTML, "blocked rate 25.0%")
	assert.Contains(t, rep.HTML, "&lt;b&gt;x&lt;/b&gt;", "descriptions are escaped")
	assert.Less(t, strings.Index(rep.HTML, "Potential XSS Indicator"), strings.Index(rep.HTML, "Open Port Detected"),
		"high findings come before low")

	require.NotEmpty(t, rep.PDFPath)
	pdf, err := os.ReadFile(rep.PDFPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pdf), "%PDF"))
}

func TestRender_EmptyFindings(t *testing.T) {
	s := domain.NewScan("empty", "http://example.test", domain.ModeWSL, false, "", time.Now())
	rep, err := NewRenderer(t.TempDir(), nil).Render(context.Background(), domain.NewSnapshot(s))
	require.NoError(t, err)
	assert.Contains(t, rep.HTML, "No findings were reported")
	assert.Contains(t, rep.HTML, "Informational")
}

func TestRender_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRenderer(t.TempDir(), nil).Render(ctx, sampleSnapshot())
	assert.ErrorIs(t, err, context.Canceled)
}
