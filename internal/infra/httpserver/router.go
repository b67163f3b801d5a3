package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	appscans "github.com/bryanwahyu/autovuln/internal/application/scans"
	domai "github.com/bryanwahyu/autovuln/internal/domain/ai"
	domain "github.com/bryanwahyu/autovuln/internal/domain/scans"
	"github.com/bryanwahyu/autovuln/internal/middleware"
)

// ScanService is what the router needs from the scan use-cases.
type ScanService interface {
	StartScan(ctx context.Context, cmd appscans.StartCommand) (string, error)
	Get(ctx context.Context, id string) (*domain.Snapshot, error)
	List(ctx context.Context, limit int) ([]*domain.Snapshot, error)
	Compare(ctx context.Context, baselineID, candidateID string) (*domain.Comparison, error)
	ReportHTML(ctx context.Context, id string) (string, error)
	ReportPDF(ctx context.Context, id string) ([]byte, error)
	ToolsStatus(ctx context.Context, mode string) domain.ToolStatus
}

// Analyzer produces the AI triage for a scan.
type Analyzer interface {
	AnalyzeScan(ctx context.Context, snap *domain.Snapshot) (json.RawMessage, error)
}

type Options struct {
	Logger      *slog.Logger
	Metrics     *middleware.Metrics
	APIKeys     map[string]string
	RateLimiter *middleware.RateLimiter
	Checks      map[string]middleware.HealthChecker
	Readiness   *middleware.Readiness
}

type Router struct {
	scansSvc ScanService
	aiSvc    Analyzer
	logger   *slog.Logger
}

func NewRouter(scansSvc ScanService, aiSvc Analyzer, opts Options) http.Handler {
	r := &Router{scansSvc: scansSvc, aiSvc: aiSvc, logger: opts.Logger}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if opts.Readiness == nil {
		opts.Readiness = &middleware.Readiness{}
	}
	mux := chi.NewRouter()

	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))
	mux.Use(middleware.Logging(r.logger))
	if opts.Metrics != nil {
		mux.Use(opts.Metrics.Middleware)
	}
	mux.Use(middleware.APIKeyAuth(opts.APIKeys))
	if opts.RateLimiter != nil {
		mux.Use(middleware.RateLimit(opts.RateLimiter))
	}

	// chi: semua middleware harus didaftarkan sebelum route
	if opts.Metrics != nil {
		mux.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	mux.Get("/health", middleware.HealthHandler(opts.Checks))
	mux.Get("/livez", middleware.LivenessHandler)
	mux.Get("/readyz", opts.Readiness.Handler)

	mux.Post("/scan", r.wrap(r.handleStartScan))
	mux.Get("/scan/{id}", r.wrap(r.handleGetScan))
	mux.Post("/scan/{id}/analysis", r.wrap(r.handleAnalysis))
	mux.Get("/scans", r.wrap(r.handleListScans))
	mux.Get("/compare", r.wrap(r.handleCompare))
	mux.Get("/report/{id}", r.wrap(r.handleReportHTML))
	mux.Get("/report/{id}/pdf", r.wrap(r.handleReportPDF))
	mux.Get("/tools/status", r.wrap(r.handleToolsStatus))

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// badRequest marks input errors.
type badRequest struct{ err error }

func (e badRequest) Error() string { return e.err.Error() }
func (e badRequest) Unwrap() error { return e.err }

func invalid(format string, args ...any) error {
	return badRequest{err: fmt.Errorf(format, args...)}
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		var br badRequest
		switch {
		case errors.As(err, &br):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "scan not found")
		case errors.Is(err, domain.ErrReportUnavailable):
			writeError(w, http.StatusNotFound, "report not available")
		case errors.Is(err, domai.ErrQuotaExceeded):
			writeError(w, http.StatusTooManyRequests, "ai quota exceeded")
		default:
			r.logger.ErrorContext(req.Context(), "request failed",
				slog.String("path", req.URL.Path),
				slog.Any("error", err),
			)
			writeError(w, http.StatusInternalServerError, err.Error())
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	_ = writeJSON(w, status, map[string]string{"detail": msg})
}

type startScanRequest struct {
	URL             string `json:"url"`
	Mode            string `json:"mode"`
	DemoSafeTarget  bool   `json:"demo_safe_target"`
	SimulateAttack  bool   `json:"simulate_attack"`
	CompareToScanID string `json:"compare_to_scan_id"`
}

// POST /scan
func (r *Router) handleStartScan(w http.ResponseWriter, req *http.Request) error {
	var body startScanRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, req.Body, 1<<20)).Decode(&body); err != nil {
		return invalid("invalid JSON body: %v", err)
	}
	in := middleware.ScanInput{
		URL:             body.URL,
		Mode:            body.Mode,
		DemoSafeTarget:  body.DemoSafeTarget,
		CompareToScanID: body.CompareToScanID,
	}
	if err := in.Clean(); err != nil {
		return badRequest{err: err}
	}

	id, err := r.scansSvc.StartScan(req.Context(), appscans.StartCommand{
		URL:             in.URL,
		Mode:            in.Mode,
		DemoSafeTarget:  in.DemoSafeTarget,
		SimulateAttack:  body.SimulateAttack,
		CompareToScanID: in.CompareToScanID,
	})
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]string{"scan_id": id})
}

// GET /scan/{id}
func (r *Router) handleGetScan(w http.ResponseWriter, req *http.Request) error {
	snap, err := r.scansSvc.Get(req.Context(), chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, snap)
}

// GET /scans?limit=
func (r *Router) handleListScans(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.scansSvc.List(req.Context(), middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /compare?baseline=&candidate=
func (r *Router) handleCompare(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	baseline, candidate := q.Get("baseline"), q.Get("candidate")
	if baseline == "" || candidate == "" {
		return invalid("baseline and candidate are required")
	}
	c, err := r.scansSvc.Compare(req.Context(), baseline, candidate)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, c)
}

// GET /report/{id}
func (r *Router) handleReportHTML(w http.ResponseWriter, req *http.Request) error {
	html, err := r.scansSvc.ReportHTML(req.Context(), chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err = w.Write([]byte(html))
	return err
}

// GET /report/{id}/pdf
func (r *Router) handleReportPDF(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	pdf, err := r.scansSvc.ReportPDF(req.Context(), id)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="autovuln-%s.pdf"`, id))
	_, err = w.Write(pdf)
	return err
}

// GET /tools/status?mode=
func (r *Router) handleToolsStatus(w http.ResponseWriter, req *http.Request) error {
	mode := middleware.SanitizeString(req.URL.Query().Get("mode"))
	return writeJSON(w, http.StatusOK, r.scansSvc.ToolsStatus(req.Context(), mode))
}

// POST /scan/{id}/analysis
func (r *Router) handleAnalysis(w http.ResponseWriter, req *http.Request) error {
	snap, err := r.scansSvc.Get(req.Context(), chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	if snap.Status != domain.StatusCompleted {
		return invalid("scan %s is %s; analysis needs a completed scan", snap.ID, snap.Status)
	}
	out, err := r.aiSvc.AnalyzeScan(req.Context(), snap)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, out)
}
