// Package report renders completed scans to HTML and PDF files on disk.
package report

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bryanwahyu/autovuln/internal/domain/findings"
	domain "github.com/bryanwahyu/autovuln/internal/domain/scans"
)

type Renderer struct {
	dir    string
	now    func() time.Time
	logger *slog.Logger
}

func NewRenderer(dir string, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{dir: dir, now: time.Now, logger: logger}
}

// view is what both templates consume.
type view struct {
	Snap        *domain.Snapshot
	GeneratedAt string
	Groups      []group
}

type group struct {
	Severity findings.Severity
	Items    []findings.Finding
}

func newView(snap *domain.Snapshot, now time.Time) view {
	v := view{Snap: snap, GeneratedAt: now.UTC().Format(time.RFC3339)}
	for _, sev := range findings.Ordered {
		g := group{Severity: sev}
		for _, f := range snap.Findings {
			if f.Severity == sev {
				g.Items = append(g.Items, f)
			}
		}
		v.Groups = append(v.Groups, g)
	}
	return v
}

// Render writes <dir>/<id>.html and <dir>/<id>.pdf. A PDF failure leaves PDFPath empty.
func (r *Renderer) Render(ctx context.Context, snap *domain.Snapshot) (*domain.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create reports dir: %w", err)
	}
	v := newView(snap, r.now())

	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, v); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	rep := &domain.Report{
		HTML:     buf.String(),
		HTMLPath: filepath.Join(r.dir, string(snap.ID)+".html"),
	}
	if err := os.WriteFile(rep.HTMLPath, buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("write html: %w", err)
	}

	pdfPath := filepath.Join(r.dir, string(snap.ID)+".pdf")
	if err := writePDF(pdfPath, v); err != nil {
		r.logger.Warn("pdf report not generated",
			slog.String("scan_id", string(snap.ID)),
			slog.Any("error", err),
		)
	} else {
		rep.PDFPath = pdfPath
	}
	return rep, nil
}
