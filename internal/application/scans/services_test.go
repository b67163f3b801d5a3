package scans

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/autovuln/internal/domain/findings"
	domain "github.com/bryanwahyu/autovuln/internal/domain/scans"
)

const wapitiJSON = `{"vulnerabilities":{"sql":[{"info":"blind sqli","path":"/a","parameter":"id"}]}}`

type harness struct {
	svc     *Service
	clock   *fakeClock
	runner  *fakeRunner
	factory *fakeFactory
	prober  *fakeProber
	archive *fakeArchive
	events  *fakeRecorder
}

func newHarness(t *testing.T, archive *fakeArchive) *harness {
	t.Helper()
	h := &harness{
		clock: newFakeClock(),
		runner: &fakeRunner{
			outputs: map[string]domain.RunResult{
				"nmap":  {Stdout: "22/tcp open ssh\nService Info: OS: Linux"},
				"nikto": {Stdout: "+ admin page found"},
			},
			files: map[string]string{},
		},
		prober:  &fakeProber{},
		archive: archive,
		events:  &fakeRecorder{},
	}
	h.factory = &fakeFactory{runner: h.runner}
	deps := Deps{
		Runners:  h.factory,
		Prober:   h.prober,
		Renderer: fakeRenderer{},
		Clock:    h.clock,
		Metrics:  h.events,
	}
	if archive != nil {
		deps.Archive = archive
	}
	h.svc = NewService(deps, Options{
		MaxDuration:  5 * time.Minute,
		ToolTimeout:  time.Minute,
		WapitiTmpDir: "/tmp",
		DemoTarget:   "http://testphp.vulnweb.com",
	})
	return h
}

func (h *harness) startAndWait(t *testing.T, cmd StartCommand) *domain.Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	id, err := h.svc.StartScan(ctx, cmd)
	require.NoError(t, err)
	require.NoError(t, h.svc.Wait(ctx, id))
	snap, err := h.svc.Get(ctx, id)
	require.NoError(t, err)
	return snap
}

func TestStartScan_CompletesWithFindings(t *testing.T) {
	h := newHarness(t, nil)
	var progress []int
	h.runner.onRun = func(argv []string) {
		if len(argv) > 0 && argv[0] == "wapiti" {
			// wapiti output file keyed by scan id
			out := argv[len(argv)-1]
			h.runner.mu.Lock()
			h.runner.files[out] = wapitiJSON
			h.runner.mu.Unlock()
		}
		list, _ := h.svc.List(context.Background(), 1)
		if len(list) == 1 {
			progress = append(progress, list[0].Progress)
		}
	}

	snap := h.startAndWait(t, StartCommand{URL: "http://example.test", Mode: "docker"})

	assert.Equal(t, domain.StatusCompleted, snap.Status)
	assert.Equal(t, 100, snap.Progress)
	assert.Equal(t, domain.StepDone, snap.CurrentTool)
	assert.Empty(t, snap.Error)
	require.NotNil(t, snap.StartedAt)
	require.NotNil(t, snap.FinishedAt)

	assert.Equal(t, []int{0, 23, 47, 71}, progress)
	assert.IsNonDecreasing(t, progress)

	counts := findings.CountBySeverity(snap.Findings)
	assert.Equal(t, 1, counts[findings.SeverityLow])
	assert.Equal(t, 1, counts[findings.SeverityMedium])
	assert.Equal(t, 1, counts[findings.SeverityHigh])
	assert.Equal(t, 1, counts[findings.SeverityCritical])
	assert.Equal(t, 63, snap.RiskScore.Score) // (2+5+8+10)/40
	assert.Equal(t, findings.RiskHigh, snap.RiskScore.Label)

	require.NotNil(t, snap.Metrics)
	assert.Nil(t, snap.Metrics.Simulation)
	assert.Equal(t, 6, snap.Metrics.BaselineHTTP.Requests)

	assert.Contains(t, snap.Logs, "[+] Running nmap: nmap -sV -T4 -Pn example.test")
	assert.Contains(t, snap.Logs, "[tool-exit=0] nmap")
	assert.Contains(t, snap.Logs, "[+] Running wapiti: wapiti -u http://example.test -f json -o /tmp/"+string(snap.ID)+"-wapiti.json")

	measures, simulates := h.prober.counts()
	assert.Equal(t, 2, measures)
	assert.Zero(t, simulates)

	html, err := h.svc.ReportHTML(context.Background(), string(snap.ID))
	require.NoError(t, err)
	assert.Contains(t, html, string(snap.ID))
	_, err = h.svc.ReportPDF(context.Background(), string(snap.ID))
	assert.ErrorIs(t, err, domain.ErrReportUnavailable)
}

func TestStartScan_InvalidTargetRunsNothing(t *testing.T) {
	h := newHarness(t, nil)

	snap := h.startAndWait(t, StartCommand{URL: "http://", SimulateAttack: true})

	assert.Equal(t, domain.StatusFailed, snap.Status)
	assert.Equal(t, "Invalid target URL", snap.Error)
	assert.Empty(t, snap.Logs)
	assert.Empty(t, snap.Findings)
	assert.Empty(t, h.runner.Calls())
	measures, simulates := h.prober.counts()
	assert.Zero(t, measures)
	assert.Zero(t, simulates)

	// queued -> failed, never running
	assert.Nil(t, snap.StartedAt)
	assert.NotNil(t, snap.FinishedAt)
	started, rejected, finished := h.events.snapshot()
	assert.Zero(t, started)
	assert.Equal(t, 1, rejected)
	assert.Empty(t, finished)

	_, err := h.svc.ReportHTML(context.Background(), string(snap.ID))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStartScan_FailedToolStepKeepsEarlierFindings(t *testing.T) {
	h := newHarness(t, nil)
	h.runner.outputs["nikto"] = domain.RunResult{
		Stdout:   "+ admin page found",
		Stderr:   `exec: "nikto": executable file not found in $PATH`,
		Log:      `[tool-error] exec: "nikto": executable file not found in $PATH`,
		ExitCode: -1,
		Failed:   true,
	}
	h.runner.onRun = func(argv []string) {
		if argv[0] == "wapiti" {
			h.runner.mu.Lock()
			h.runner.files[argv[len(argv)-1]] = wapitiJSON
			h.runner.mu.Unlock()
		}
	}

	snap := h.startAndWait(t, StartCommand{URL: "http://example.test"})

	assert.Equal(t, domain.StatusCompleted, snap.Status)
	assert.Contains(t, snap.Logs, `[tool-error] exec: "nikto": executable file not found in $PATH`)

	var tools []string
	for _, c := range h.runner.Calls() {
		tools = append(tools, c[0])
	}
	assert.Equal(t, []string{"nmap", "whatweb", "nikto", "wapiti"}, tools)

	for _, f := range snap.Findings {
		assert.NotEqual(t, findings.ToolNikto, f.SourceTool)
	}
	counts := findings.CountBySeverity(snap.Findings)
	assert.Equal(t, 1, counts[findings.SeverityLow])
	assert.Equal(t, 1, counts[findings.SeverityMedium])
	assert.Zero(t, counts[findings.SeverityHigh])
	assert.Equal(t, 1, counts[findings.SeverityCritical])
}

func TestStartScan_UnrunnableToolsScoreZero(t *testing.T) {
	h := newHarness(t, nil)
	for _, tool := range []string{"nmap", "whatweb", "nikto", "wapiti"} {
		msg := `exec: "` + tool + `": executable file not found in $PATH`
		h.runner.outputs[tool] = domain.RunResult{Stderr: msg, Log: "[tool-error] " + msg, ExitCode: -1, Failed: true}
	}

	snap := h.startAndWait(t, StartCommand{URL: "http://example.test"})

	assert.Equal(t, domain.StatusCompleted, snap.Status)
	assert.Empty(t, snap.Findings)
	assert.Equal(t, 0, snap.RiskScore.Score)
	assert.Equal(t, findings.RiskInformational, snap.RiskScore.Label)
}

func TestStartScan_DeadlineDiscardsFindings(t *testing.T) {
	h := newHarness(t, nil)
	h.runner.onRun = func(argv []string) {
		if argv[0] == "whatweb" {
			h.clock.Advance(6 * time.Minute)
		}
	}

	snap := h.startAndWait(t, StartCommand{URL: "http://example.test"})

	assert.Equal(t, domain.StatusFailed, snap.Status)
	assert.Equal(t, "Scan timed out after 5 minutes", snap.Error)
	assert.Empty(t, snap.Findings, "nmap findings are not part of a failed scan")
	assert.Nil(t, snap.Metrics)
	assert.Equal(t, findings.RiskInformational, snap.RiskScore.Label)

	calls := h.runner.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "whatweb", calls[1][0])
	assert.NotContains(t, snap.Logs, "[+] Running nikto: nikto -h http://example.test")
}

func TestStartScan_ExplicitPortAndMode(t *testing.T) {
	h := newHarness(t, nil)

	snap := h.startAndWait(t, StartCommand{URL: "https://example.test:8443/app", Mode: "WSL"})

	assert.Equal(t, domain.ModeWSL, snap.Mode)
	assert.Equal(t, []domain.Mode{domain.ModeWSL}, h.factory.modes)
	calls := h.runner.Calls()
	require.NotEmpty(t, calls)
	assert.Equal(t, []string{"nmap", "-sV", "-T4", "-Pn", "-p", "8443", "example.test"}, calls[0])
}

func TestStartScan_DemoTargetAndSimulation(t *testing.T) {
	h := newHarness(t, nil)

	snap := h.startAndWait(t, StartCommand{URL: "http://ignored.test", DemoSafeTarget: true, SimulateAttack: true})

	assert.Equal(t, "http://testphp.vulnweb.com", snap.TargetURL)
	require.NotNil(t, snap.Metrics)
	require.NotNil(t, snap.Metrics.Simulation)
	assert.Equal(t, 16, snap.Metrics.Simulation.RequestsSent)
	_, simulates := h.prober.counts()
	assert.Equal(t, 1, simulates)
}

func TestStartScan_EmptyTargetRejected(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.svc.StartScan(context.Background(), StartCommand{})
	assert.Error(t, err)
}

func TestGet_ComparisonAgainstArchivedBaseline(t *testing.T) {
	base := domain.NewScan("base-1", "http://example.test", domain.ModeDocker, false, "", time.Now())
	base.Status = domain.StatusCompleted
	base.Findings = []findings.Finding{{Severity: findings.SeverityLow}, {Severity: findings.SeverityLow}}
	archive := newFakeArchive(base)
	h := newHarness(t, archive)

	snap := h.startAndWait(t, StartCommand{URL: "http://example.test", CompareToScanID: "base-1"})

	require.NotNil(t, snap.Comparison)
	assert.Equal(t, domain.ScanID("base-1"), snap.Comparison.BaselineScanID)
	assert.Equal(t, snap.ID, snap.Comparison.CandidateScanID)
	assert.Equal(t, 43, snap.Comparison.RiskScoreDelta) // 63 - 20
	assert.Equal(t, 1, snap.Comparison.FindingsDelta)

	// terminal scans are mirrored to the archive
	saved, err := archive.Get(context.Background(), snap.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, saved.Status)

	c, err := h.svc.Compare(context.Background(), "base-1", string(snap.ID))
	require.NoError(t, err)
	assert.Equal(t, snap.Comparison.RiskScoreDelta, c.RiskScoreDelta)
}

func TestGet_NoComparisonWhenBaselineMissing(t *testing.T) {
	h := newHarness(t, nil)
	snap := h.startAndWait(t, StartCommand{URL: "http://example.test", CompareToScanID: "nope"})
	assert.Equal(t, domain.StatusCompleted, snap.Status)
	assert.Nil(t, snap.Comparison)
}

func TestLookups_NotFound(t *testing.T) {
	h := newHarness(t, newFakeArchive())
	ctx := context.Background()

	_, err := h.svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, h.svc.Wait(ctx, "missing"), domain.ErrNotFound)
	_, err = h.svc.Compare(ctx, "missing", "also-missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = h.svc.ReportPDF(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestList_NewestFirst(t *testing.T) {
	h := newHarness(t, nil)
	first := h.startAndWait(t, StartCommand{URL: "http://a.test"})
	h.clock.Advance(time.Minute)
	second := h.startAndWait(t, StartCommand{URL: "http://b.test"})

	list, err := h.svc.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestToolsStatus_UsesMode(t *testing.T) {
	h := newHarness(t, nil)
	st := h.svc.ToolsStatus(context.Background(), "wsl")
	assert.True(t, st.Healthy)
	assert.Equal(t, []domain.Mode{domain.ModeWSL}, h.factory.modes)
}

func TestShutdown_WaitsForScans(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.svc.StartScan(context.Background(), StartCommand{URL: "http://example.test"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, h.svc.Shutdown(ctx))
}

func TestHumanDuration(t *testing.T) {
	assert.Equal(t, "5 minutes", humanDuration(5*time.Minute))
	assert.Equal(t, "1 minute", humanDuration(time.Minute))
	assert.Equal(t, "90 seconds", humanDuration(90*time.Second))
}
