package scans

import (
	"context"
	"sync"
	"time"

	"github.com/bryanwahyu/autovuln/internal/domain/findings"
	domain "github.com/bryanwahyu/autovuln/internal/domain/scans"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeRunner answers by argv[0]; onRun runs before the result is returned.
type fakeRunner struct {
	mu      sync.Mutex
	calls   [][]string
	outputs map[string]domain.RunResult
	files   map[string]string
	onRun   func(argv []string)
}

func (r *fakeRunner) Run(_ context.Context, argv []string, _ time.Duration) domain.RunResult {
	r.mu.Lock()
	r.calls = append(r.calls, append([]string(nil), argv...))
	hook := r.onRun
	r.mu.Unlock()
	if hook != nil {
		hook(argv)
	}
	res := r.outputs[argv[0]]
	if res.Log == "" {
		res.Log = "[tool-exit=0] " + argv[0]
	}
	return res
}

func (r *fakeRunner) ReadFile(_ context.Context, path string) string {
	return r.files[path]
}

func (r *fakeRunner) CheckConnectivity(context.Context) domain.ToolStatus {
	return domain.ToolStatus{Mode: domain.ModeDocker, Tools: map[string]string{"nmap": domain.ToolOK}, Healthy: true}
}

func (r *fakeRunner) Calls() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.calls...)
}

type fakeFactory struct {
	runner *fakeRunner
	modes  []domain.Mode
}

func (f *fakeFactory) ForMode(m domain.Mode) domain.Runner {
	f.modes = append(f.modes, m)
	return f.runner
}

type fakeProber struct {
	mu        sync.Mutex
	measures  int
	simulates int
}

func (p *fakeProber) Measure(context.Context, string) domain.HTTPMeasurement {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.measures++
	return domain.HTTPMeasurement{Requests: 6, AvgLatencyMS: 10, StatusDistribution: map[int]int{200: 6}}
}

func (p *fakeProber) Simulate(context.Context, string) domain.SimulationMeasurement {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.simulates++
	return domain.SimulationMeasurement{RequestsSent: 16, BlockedRate: 0.5}
}

func (p *fakeProber) counts() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.measures, p.simulates
}

type fakeRenderer struct{}

func (fakeRenderer) Render(_ context.Context, snap *domain.Snapshot) (*domain.Report, error) {
	return &domain.Report{HTML: "<html>" + string(snap.ID) + "</html>"}, nil
}

type fakeArchive struct {
	mu    sync.Mutex
	scans map[domain.ScanID]domain.Scan
}

func newFakeArchive(seed ...domain.Scan) *fakeArchive {
	a := &fakeArchive{scans: map[domain.ScanID]domain.Scan{}}
	for _, s := range seed {
		a.scans[s.ID] = s
	}
	return a
}

func (a *fakeArchive) Save(_ context.Context, s *domain.Scan) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.scans[s.ID] = s.Clone()
	return nil
}

func (a *fakeArchive) Get(_ context.Context, id domain.ScanID) (*domain.Scan, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.scans[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := s.Clone()
	return &c, nil
}

func (a *fakeArchive) Latest(_ context.Context, limit int) ([]*domain.Scan, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []*domain.Scan
	for _, s := range a.scans {
		c := s.Clone()
		out = append(out, &c)
	}
	return out, nil
}

type fakeRecorder struct {
	mu       sync.Mutex
	started  int
	rejected int
	finished []domain.Status
}

func (r *fakeRecorder) ScanStarted(domain.Mode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

func (r *fakeRecorder) ScanRejected() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected++
}

func (r *fakeRecorder) ScanFinished(st domain.Status, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, st)
}

func (r *fakeRecorder) ToolFinished(findings.Tool, int, time.Duration) {}

func (r *fakeRecorder) FindingsRecorded([]findings.Finding) {}

func (r *fakeRecorder) snapshot() (started, rejected int, finished []domain.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started, r.rejected, append([]domain.Status(nil), r.finished...)
}
