package scans

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/bryanwahyu/autovuln/internal/application"
	"github.com/bryanwahyu/autovuln/internal/domain/findings"
	domain "github.com/bryanwahyu/autovuln/internal/domain/scans"
)

const msgInvalidTarget = "Invalid target URL"

type step struct {
	tool findings.Tool
	argv []string
}

// toolchain builds the four tool invocations for a target, in run order.
func (s *Service) toolchain(id domain.ScanID, u *url.URL, target string) []step {
	nmap := []string{"nmap", "-sV", "-T4", "-Pn"}
	if p := u.Port(); p != "" {
		nmap = append(nmap, "-p", p)
	}
	nmap = append(nmap, u.Hostname())

	return []step{
		{tool: findings.ToolNmap, argv: nmap},
		{tool: findings.ToolWhatWeb, argv: []string{"whatweb", target}},
		{tool: findings.ToolNikto, argv: []string{"nikto", "-h", target}},
		{tool: findings.ToolWapiti, argv: []string{"wapiti", "-u", target, "-f", "json", "-o", s.wapitiOutput(id)}},
	}
}

// wapiti runs inside the kali environment, so the path is always POSIX.
func (s *Service) wapitiOutput(id domain.ScanID) string {
	return path.Join(s.opts.WapitiTmpDir, string(id)+"-wapiti.json")
}

// run is the body of one scan goroutine.
func (s *Service) run(ctx context.Context, id domain.ScanID) {
	start := s.Clock.Now()
	log := s.Logger.With(slog.String("scan_id", string(id)))

	scan, ok := s.reg.get(id)
	if !ok {
		log.Error("scan vanished before start")
		return
	}
	// target tanpa host langsung gagal, tidak pernah running
	u, err := url.Parse(scan.TargetURL)
	if err != nil || u.Hostname() == "" {
		s.reject(ctx, log, id)
		return
	}

	err = s.reg.update(id, func(sc *domain.Scan) error {
		return sc.Transition(domain.StatusRunning, start)
	})
	if err != nil {
		log.Error("scan could not start", slog.Any("error", err))
		return
	}
	s.Metrics.ScanStarted(scan.Mode)
	log.Info("scan started", slog.String("target", scan.TargetURL))

	deadline := start.Add(s.opts.MaxDuration)
	expired := func() bool { return application.Expired(s.Clock, deadline) }
	timedOut := "Scan timed out after " + humanDuration(s.opts.MaxDuration)

	baseline := s.Prober.Measure(ctx, scan.TargetURL)

	var sim *domain.SimulationMeasurement
	if scan.SimulateAttack {
		if expired() {
			s.fail(ctx, id, start, timedOut)
			return
		}
		m := s.Prober.Simulate(ctx, scan.TargetURL)
		sim = &m
	}

	runner := s.Runners.ForMode(scan.Mode)
	steps := s.toolchain(id, u, scan.TargetURL)

	// findings stay local until the scan completes
	var gathered []findings.Finding
	for idx, st := range steps {
		if expired() {
			s.fail(ctx, id, start, timedOut)
			return
		}
		s.mutate(log, id, func(sc *domain.Scan) {
			sc.Advance(string(st.tool), idx*95/len(steps))
			sc.AppendLog(fmt.Sprintf("[+] Running %s: %s", st.tool, strings.Join(st.argv, " ")))
		})

		toolStart := s.Clock.Now()
		res := runner.Run(ctx, st.argv, s.opts.ToolTimeout)
		s.Metrics.ToolFinished(st.tool, res.ExitCode, application.Since(s.Clock, toolStart))
		s.mutate(log, id, func(sc *domain.Scan) { sc.AppendLog(res.Log) })
		if res.Failed {
			log.Warn("tool step failed, no findings", slog.String("tool", string(st.tool)), slog.String("error", res.Stderr))
			continue
		}

		raw := res.Combined()
		if st.tool == findings.ToolWapiti {
			raw = runner.ReadFile(ctx, s.wapitiOutput(id))
			if strings.TrimSpace(raw) == "" {
				raw = "{}"
			}
		}
		fs := findings.Normalize(st.tool, raw)
		log.Debug("tool normalized", slog.String("tool", string(st.tool)), slog.Int("findings", len(fs)))
		gathered = append(gathered, fs...)
	}

	if expired() {
		s.fail(ctx, id, start, timedOut)
		return
	}
	s.mutate(log, id, func(sc *domain.Scan) { sc.Advance(domain.StepMetrics, 95) })
	post := s.Prober.Measure(ctx, scan.TargetURL)
	metrics := &domain.MetricsRecord{
		BaselineHTTP:    baseline,
		Simulation:      sim,
		PostScanHTTP:    post,
		DurationSeconds: math.Round(application.Since(s.Clock, start).Seconds()*100) / 100,
	}

	s.mutate(log, id, func(sc *domain.Scan) { sc.Advance(domain.StepReport, 95) })
	rep, warnings := s.renderAndUpload(ctx, log, id, gathered, metrics)

	err = s.reg.update(id, func(sc *domain.Scan) error {
		sc.AppendLog(warnings...)
		return sc.Complete(gathered, metrics, rep, s.Clock.Now())
	})
	if err != nil {
		log.Error("scan could not complete", slog.Any("error", err))
		return
	}
	s.Metrics.FindingsRecorded(gathered)
	s.finish(ctx, log, id, start)
}

// renderAndUpload is best effort. Problems come back as [warn] log lines.
func (s *Service) renderAndUpload(ctx context.Context, log *slog.Logger, id domain.ScanID, fs []findings.Finding, m *domain.MetricsRecord) (*domain.Report, []string) {
	if s.Renderer == nil {
		return nil, nil
	}
	preview, ok := s.reg.get(id)
	if !ok {
		return nil, nil
	}
	preview.Findings = append(preview.Findings, fs...)
	preview.Metrics = m
	preview.Status = domain.StatusCompleted
	snap := domain.NewSnapshot(preview)
	snap.Comparison = s.comparisonFor(ctx, preview)

	var warnings []string
	rep, err := s.Renderer.Render(ctx, snap)
	if err != nil {
		log.Warn("report rendering failed", slog.Any("error", err))
		return nil, append(warnings, "[warn] report rendering failed: "+err.Error())
	}
	if s.Artifacts == nil {
		return rep, nil
	}
	for _, p := range []string{rep.HTMLPath, rep.PDFPath} {
		if p == "" {
			continue
		}
		key := fmt.Sprintf("reports/%s/%s", id, filepath.Base(p))
		u, err := s.Artifacts.Upload(ctx, p, key)
		if err != nil {
			log.Warn("report upload failed", slog.String("key", key), slog.Any("error", err))
			warnings = append(warnings, "[warn] report upload failed: "+err.Error())
			continue
		}
		rep.URLs = append(rep.URLs, u)
	}
	return rep, warnings
}

func (s *Service) fail(ctx context.Context, id domain.ScanID, start time.Time, msg string) {
	log := s.Logger.With(slog.String("scan_id", string(id)))
	err := s.reg.update(id, func(sc *domain.Scan) error {
		return sc.Fail(msg, s.Clock.Now())
	})
	if err != nil {
		log.Error("scan could not be marked failed", slog.Any("error", err))
		return
	}
	log.Warn("scan failed", slog.String("reason", msg))
	s.finish(ctx, log, id, start)
}

// reject fails a queued scan whose target cannot be scanned. It never counts as started.
func (s *Service) reject(ctx context.Context, log *slog.Logger, id domain.ScanID) {
	err := s.reg.update(id, func(sc *domain.Scan) error {
		return sc.Fail(msgInvalidTarget, s.Clock.Now())
	})
	if err != nil {
		log.Error("scan could not be marked failed", slog.Any("error", err))
		return
	}
	log.Warn("scan rejected", slog.String("reason", msgInvalidTarget))
	s.Metrics.ScanRejected()
	if final, ok := s.reg.get(id); ok {
		s.archive(ctx, log, final)
	}
}

// finish records metrics and mirrors the terminal scan to the archive.
func (s *Service) finish(ctx context.Context, log *slog.Logger, id domain.ScanID, start time.Time) {
	final, ok := s.reg.get(id)
	if !ok {
		return
	}
	s.Metrics.ScanFinished(final.Status, application.Since(s.Clock, start))
	log.Info("scan finished",
		slog.String("status", string(final.Status)),
		slog.Int("findings", len(final.Findings)),
	)
	s.archive(ctx, log, final)
}

// archive mirrors a terminal scan; failures only log.
func (s *Service) archive(ctx context.Context, log *slog.Logger, final domain.Scan) {
	if s.Archive == nil {
		return
	}
	if err := s.Archive.Save(ctx, &final); err != nil {
		log.Warn("archive save failed", slog.Any("error", err))
	}
}

// mutate applies fn; the registry only rejects unknown ids, which is logged.
func (s *Service) mutate(log *slog.Logger, id domain.ScanID, fn func(*domain.Scan)) {
	err := s.reg.update(id, func(sc *domain.Scan) error {
		fn(sc)
		return nil
	})
	if err != nil {
		log.Error("scan update failed", slog.Any("error", err))
	}
}

// humanDuration renders the deadline for the timeout message, e.g. "5 minutes".
func humanDuration(d time.Duration) string {
	switch {
	case d == time.Minute:
		return "1 minute"
	case d%time.Minute == 0:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	case d == time.Second:
		return "1 second"
	default:
		return fmt.Sprintf("%d seconds", int(d.Round(time.Second)/time.Second))
	}
}
