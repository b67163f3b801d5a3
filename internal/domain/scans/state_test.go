package scans

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/autovuln/internal/domain/findings"
)

var t0 = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeDocker, ParseMode("docker"))
	assert.Equal(t, ModeWSL, ParseMode(" WSL "))
	assert.Equal(t, ModeDocker, ParseMode("kubernetes"))
	assert.Equal(t, ModeDocker, ParseMode(""))
}

func TestNewScan(t *testing.T) {
	s := NewScan("id", "http://x", ModeWSL, true, "other", t0)
	assert.Equal(t, StatusQueued, s.Status)
	assert.Equal(t, StepPending, s.CurrentTool)
	assert.Zero(t, s.Progress)
	assert.NotNil(t, s.Logs)
	assert.NotNil(t, s.Findings)
	assert.Equal(t, ScanID("other"), s.CompareToScanID)
}

func TestTransition_ForwardOnly(t *testing.T) {
	s := NewScan("id", "http://x", ModeDocker, false, "", t0)
	require.NoError(t, s.Transition(StatusRunning, t0))
	require.NotNil(t, s.StartedAt)

	err := s.Transition(StatusQueued, t0)
	assert.True(t, errors.Is(err, ErrInvalidTransition))

	require.NoError(t, s.Transition(StatusCompleted, t0.Add(time.Minute)))
	require.NotNil(t, s.FinishedAt)

	for _, to := range []Status{StatusQueued, StatusRunning, StatusFailed, StatusCompleted} {
		assert.ErrorIs(t, s.Transition(to, t0), ErrInvalidTransition, "from completed to %s", to)
	}
}

func TestTransition_QueuedCanFail(t *testing.T) {
	s := NewScan("id", "nohost", ModeDocker, false, "", t0)
	require.NoError(t, s.Fail("Invalid target URL", t0))
	assert.Equal(t, StatusFailed, s.Status)
	assert.Equal(t, "Invalid target URL", s.Error)
	assert.ErrorIs(t, s.Fail("again", t0), ErrInvalidTransition)
	assert.Equal(t, "Invalid target URL", s.Error)
}

func TestAdvance_NonDecreasing(t *testing.T) {
	var s Scan
	s.Advance("nmap", 23)
	s.Advance("whatweb", 10)
	assert.Equal(t, "whatweb", s.CurrentTool)
	assert.Equal(t, 23, s.Progress)
	s.Advance(StepDone, 250)
	assert.Equal(t, 100, s.Progress)
}

func TestComplete_CommitsEverything(t *testing.T) {
	s := NewScan("id", "http://x", ModeDocker, false, "", t0)
	require.NoError(t, s.Transition(StatusRunning, t0))
	fs := []findings.Finding{{Title: "a", Severity: findings.SeverityLow}}
	m := &MetricsRecord{DurationSeconds: 3}
	rep := &Report{HTML: "<html>"}

	require.NoError(t, s.Complete(fs, m, rep, t0))
	assert.Equal(t, StatusCompleted, s.Status)
	assert.Equal(t, 100, s.Progress)
	assert.Equal(t, StepDone, s.CurrentTool)
	assert.Equal(t, fs, s.Findings)
	assert.Same(t, m, s.Metrics)
	assert.Empty(t, s.Error)
}

func TestClone_IsDeep(t *testing.T) {
	s := NewScan("id", "http://x", ModeDocker, false, "", t0)
	s.AppendLog("one", "", "two")
	s.Metrics = &MetricsRecord{BaselineHTTP: HTTPMeasurement{StatusDistribution: map[int]int{200: 1}}}
	c := s.Clone()

	s.Logs[0] = "mutated"
	s.Metrics.BaselineHTTP.StatusDistribution[200] = 9
	assert.Equal(t, []string{"one", "two"}, c.Logs)
	assert.Equal(t, 1, c.Metrics.BaselineHTTP.StatusDistribution[200])
}
