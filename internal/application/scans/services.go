package scans

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/autovuln/internal/application"
	"github.com/bryanwahyu/autovuln/internal/domain/findings"
	domain "github.com/bryanwahyu/autovuln/internal/domain/scans"
)

// Recorder receives scan lifecycle events for metrics.
type Recorder interface {
	ScanStarted(mode domain.Mode)
	ScanRejected()
	ScanFinished(status domain.Status, elapsed time.Duration)
	ToolFinished(tool findings.Tool, exitCode int, elapsed time.Duration)
	FindingsRecorded(fs []findings.Finding)
}

type nopRecorder struct{}

func (nopRecorder) ScanStarted(domain.Mode) {}

func (nopRecorder) ScanRejected() {}

func (nopRecorder) ScanFinished(domain.Status, time.Duration) {}

func (nopRecorder) ToolFinished(findings.Tool, int, time.Duration) {}

func (nopRecorder) FindingsRecorded([]findings.Finding) {}

// Options are the scanner limits taken from config.
type Options struct {
	MaxDuration  time.Duration
	ToolTimeout  time.Duration
	WapitiTmpDir string
	DemoTarget   string
}

// Deps groups the ports the service drives. Archive, Artifacts and Metrics are optional.
type Deps struct {
	Runners   domain.RunnerFactory
	Prober    domain.Prober
	Renderer  domain.Renderer
	Archive   domain.Archive
	Artifacts domain.ArtifactStore
	Clock     application.Clock
	Logger    *slog.Logger
	Metrics   Recorder
}

// Service implements use-cases untuk Scan, aman dipakai concurrent (satu goroutine per scan).
type Service struct {
	Deps
	opts Options

	reg *registry
	wg  sync.WaitGroup
}

func NewService(deps Deps, opts Options) *Service {
	if deps.Clock == nil {
		deps.Clock = application.SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = nopRecorder{}
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 300 * time.Second
	}
	if opts.ToolTimeout <= 0 {
		opts.ToolTimeout = 120 * time.Second
	}
	if opts.WapitiTmpDir == "" {
		opts.WapitiTmpDir = "/tmp"
	}
	return &Service{Deps: deps, opts: opts, reg: newRegistry()}
}

// ==== USE CASES ====

// Command untuk mulai scan
type StartCommand struct {
	URL             string
	Mode            string
	DemoSafeTarget  bool
	SimulateAttack  bool
	CompareToScanID string
}

// StartScan registers a queued scan and runs it in the background.
// The run uses context.Background() so the caller's request can end without killing the scan.
func (s *Service) StartScan(ctx context.Context, cmd StartCommand) (string, error) {
	target := cmd.URL
	if cmd.DemoSafeTarget {
		target = s.opts.DemoTarget
	}
	if target == "" {
		return "", errors.New("target url is required")
	}

	id := domain.ScanID(uuid.New().String())
	scan := domain.NewScan(id, target, domain.ParseMode(cmd.Mode), cmd.SimulateAttack,
		domain.ScanID(cmd.CompareToScanID), s.Clock.Now())
	e := s.reg.add(scan)

	s.Logger.InfoContext(ctx, "scan queued",
		slog.String("scan_id", string(id)),
		slog.String("target", target),
		slog.String("mode", string(scan.Mode)),
	)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(e.done)
		s.run(context.Background(), id)
	}()
	return string(id), nil
}

// Get ambil 1 scan by id, with the comparison attached when both scans are completed.
func (s *Service) Get(ctx context.Context, id string) (*domain.Snapshot, error) {
	scan, err := s.lookup(ctx, domain.ScanID(id))
	if err != nil {
		return nil, err
	}
	snap := domain.NewSnapshot(scan)
	snap.Comparison = s.comparisonFor(ctx, scan)
	return snap, nil
}

// List returns up to limit scans, newest first. Archived scans fill in after the live ones.
func (s *Service) List(ctx context.Context, limit int) ([]*domain.Snapshot, error) {
	if limit <= 0 {
		limit = 20
	}
	all := s.reg.list()
	if s.Archive != nil && len(all) < limit {
		seen := make(map[domain.ScanID]bool, len(all))
		for _, sc := range all {
			seen[sc.ID] = true
		}
		archived, err := s.Archive.Latest(ctx, limit)
		if err != nil {
			s.Logger.WarnContext(ctx, "archive list failed", slog.Any("error", err))
		}
		for _, a := range archived {
			if a != nil && !seen[a.ID] {
				all = append(all, *a)
			}
		}
		sortNewestFirst(all)
	}
	if len(all) > limit {
		all = all[:limit]
	}
	out := make([]*domain.Snapshot, 0, len(all))
	for _, sc := range all {
		out = append(out, domain.NewSnapshot(sc))
	}
	return out, nil
}

// Compare computes candidate minus baseline for any two known scans.
func (s *Service) Compare(ctx context.Context, baselineID, candidateID string) (*domain.Comparison, error) {
	base, err := s.lookup(ctx, domain.ScanID(baselineID))
	if err != nil {
		return nil, fmt.Errorf("baseline %s: %w", baselineID, err)
	}
	cand, err := s.lookup(ctx, domain.ScanID(candidateID))
	if err != nil {
		return nil, fmt.Errorf("candidate %s: %w", candidateID, err)
	}
	c := domain.Compare(base, cand)
	return &c, nil
}

// ReportHTML returns the rendered HTML of a completed scan.
func (s *Service) ReportHTML(ctx context.Context, id string) (string, error) {
	rep, err := s.completedReport(ctx, domain.ScanID(id))
	if err != nil {
		return "", err
	}
	if rep.HTML != "" {
		return rep.HTML, nil
	}
	// scan dari archive: HTML tidak disimpan di DB, baca dari file
	if rep.HTMLPath == "" {
		return "", domain.ErrReportUnavailable
	}
	b, err := os.ReadFile(rep.HTMLPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrReportUnavailable, err)
	}
	return string(b), nil
}

// ReportPDF returns the PDF bytes of a completed scan.
func (s *Service) ReportPDF(ctx context.Context, id string) ([]byte, error) {
	rep, err := s.completedReport(ctx, domain.ScanID(id))
	if err != nil {
		return nil, err
	}
	if rep.PDFPath == "" {
		return nil, domain.ErrReportUnavailable
	}
	b, err := os.ReadFile(rep.PDFPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrReportUnavailable, err)
	}
	return b, nil
}

// ToolsStatus checks tool availability for the given mode.
func (s *Service) ToolsStatus(ctx context.Context, mode string) domain.ToolStatus {
	return s.Runners.ForMode(domain.ParseMode(mode)).CheckConnectivity(ctx)
}

// Wait blocks until the scan's run has finished or ctx ends.
func (s *Service) Wait(ctx context.Context, id string) error {
	done, ok := s.reg.done(domain.ScanID(id))
	if !ok {
		return domain.ErrNotFound
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown waits for in-flight scans until ctx expires.
func (s *Service) Shutdown(ctx context.Context) error {
	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scans still running: %w", ctx.Err())
	}
}

// lookup checks the live registry first, then the archive.
func (s *Service) lookup(ctx context.Context, id domain.ScanID) (domain.Scan, error) {
	if sc, ok := s.reg.get(id); ok {
		return sc, nil
	}
	if s.Archive == nil {
		return domain.Scan{}, domain.ErrNotFound
	}
	sc, err := s.Archive.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Scan{}, domain.ErrNotFound
		}
		return domain.Scan{}, fmt.Errorf("archive get: %w", err)
	}
	if sc == nil {
		return domain.Scan{}, domain.ErrNotFound
	}
	return *sc, nil
}

// comparisonFor is nil unless the scan and its baseline are both completed.
func (s *Service) comparisonFor(ctx context.Context, scan domain.Scan) *domain.Comparison {
	if scan.CompareToScanID == "" || scan.Status != domain.StatusCompleted {
		return nil
	}
	base, err := s.lookup(ctx, scan.CompareToScanID)
	if err != nil || base.Status != domain.StatusCompleted {
		return nil
	}
	c := domain.Compare(base, scan)
	return &c
}

func (s *Service) completedReport(ctx context.Context, id domain.ScanID) (*domain.Report, error) {
	scan, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if scan.Status != domain.StatusCompleted || scan.Report == nil {
		return nil, domain.ErrNotFound
	}
	return scan.Report, nil
}
