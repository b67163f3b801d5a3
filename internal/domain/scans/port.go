package scans

import (
	"context"
	"time"
)

// Runner port: menjalankan tool di environment terisolasi (docker / wsl)
type Runner interface {
	Run(ctx context.Context, argv []string, timeout time.Duration) RunResult
	ReadFile(ctx context.Context, path string) string
	CheckConnectivity(ctx context.Context) ToolStatus
}

// RunnerFactory picks the Runner for an execution mode.
type RunnerFactory interface {
	ForMode(mode Mode) Runner
}

// Prober port for HTTP behaviour measurements.
type Prober interface {
	Measure(ctx context.Context, url string) HTTPMeasurement
	Simulate(ctx context.Context, url string) SimulationMeasurement
}

// Renderer port, bikin report HTML/PDF dari snapshot
type Renderer interface {
	Render(ctx context.Context, snap *Snapshot) (*Report, error)
}

// Archive port (persistence untuk scan yang sudah selesai)
type Archive interface {
	Save(ctx context.Context, s *Scan) error
	Get(ctx context.Context, id ScanID) (*Scan, error)
	Latest(ctx context.Context, limit int) ([]*Scan, error)
}

// ArtifactStore port (interface untuk penyimpanan artefak)
type ArtifactStore interface {
	Upload(ctx context.Context, localPath, key string) (string, error)
}
