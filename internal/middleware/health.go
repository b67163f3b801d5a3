package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// HealthChecker satu dependency yang dicek oleh /health
type HealthChecker interface {
	Check(ctx context.Context) error
}

// CheckerFunc adapts a plain function to HealthChecker.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Check(ctx context.Context) error { return f(ctx) }

// DatabaseHealthChecker pings the scan archive.
type DatabaseHealthChecker struct {
	DB *sql.DB
}

func (d *DatabaseHealthChecker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return d.DB.PingContext(ctx)
}

type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckStatus `json:"checks"`
}

type CheckStatus struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// HealthHandler runs every checker in parallel under one 5s budget.
func HealthHandler(checkers map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := HealthStatus{
			Status:    "healthy",
			Timestamp: time.Now().UTC(),
			Checks:    runChecks(ctx, checkers),
		}
		statusCode := http.StatusOK
		for _, c := range health.Checks {
			if c.Status != "healthy" {
				health.Status = "unhealthy"
				statusCode = http.StatusServiceUnavailable
				break
			}
		}
		writeJSONStatus(w, statusCode, health)
	}
}

func runChecks(ctx context.Context, checkers map[string]HealthChecker) map[string]CheckStatus {
	names := make([]string, 0, len(checkers))
	for name := range checkers {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]CheckStatus, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, c HealthChecker) {
			defer wg.Done()
			start := time.Now()
			st := CheckStatus{Status: "healthy"}
			if err := c.Check(ctx); err != nil {
				st = CheckStatus{Status: "unhealthy", Message: err.Error()}
			}
			st.LatencyMS = time.Since(start).Milliseconds()
			results[i] = st
		}(i, checkers[name])
	}
	wg.Wait()

	out := make(map[string]CheckStatus, len(names))
	for i, name := range names {
		out[name] = results[i]
	}
	return out
}

// Readiness flips to draining at shutdown so load balancers stop sending new scans.
type Readiness struct {
	draining atomic.Bool
}

func (r *Readiness) Drain() { r.draining.Store(true) }

func (r *Readiness) Handler(w http.ResponseWriter, _ *http.Request) {
	if r != nil && r.draining.Load() {
		writeJSONStatus(w, http.StatusServiceUnavailable, map[string]any{
			"status":    "draining",
			"timestamp": time.Now().UTC(),
		})
		return
	}
	writeJSONStatus(w, http.StatusOK, map[string]any{
		"status":    "ready",
		"timestamp": time.Now().UTC(),
	})
}

// LivenessHandler cuma bilang proses masih hidup
func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSONStatus(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
