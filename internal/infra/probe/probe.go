// Package probe measures how a target behaves over plain HTTP before and after a scan.
package probe

import (
	"context"
	"crypto/tls"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	domain "github.com/bryanwahyu/autovuln/internal/domain/scans"
)

// payload yang benign, cuma buat lihat apakah ada WAF yang nge-block
var simulationPayloads = []string{
	"<script>alert(1)</script>",
	"' OR '1'='1",
	"../../../../etc/passwd",
	"admin' --",
}

var simulationParams = []string{"q", "search", "id", "input"}

// status codes treated as a block by a WAF or gateway
var blockedStatus = map[int]bool{
	http.StatusForbidden:       true,
	http.StatusNotAcceptable:   true,
	http.StatusTooManyRequests: true,
}

type Config struct {
	Samples       int
	Timeout       time.Duration
	SimulationRPS float64
}

type Prober struct {
	client  *http.Client
	cfg     Config
	limiter *rate.Limiter
	logger  *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Prober {
	if cfg.Samples <= 0 {
		cfg.Samples = 6
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 6 * time.Second
	}
	limit := rate.Inf
	if cfg.SimulationRPS > 0 {
		limit = rate.Limit(cfg.SimulationRPS)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{
		client:  newHTTPClient(),
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

func newHTTPClient() *http.Client {
	d := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           d.DialContext,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true, // target sering pakai cert self-signed
		},
	}
	return &http.Client{
		Transport: tr,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// Measure issues sequential GETs against target and summarizes latency and status codes.
func (p *Prober) Measure(ctx context.Context, target string) domain.HTTPMeasurement {
	var t tally
	for i := 0; i < p.cfg.Samples; i++ {
		status, elapsed, err := p.get(ctx, target)
		t.add(status, elapsed, err)
	}
	return t.measurement()
}

// Simulate sends every payload through every parameter and counts the blocked responses.
func (p *Prober) Simulate(ctx context.Context, target string) domain.SimulationMeasurement {
	var (
		t       tally
		blocked int
	)
	for _, payload := range simulationPayloads {
		for _, param := range simulationParams {
			if err := p.limiter.Wait(ctx); err != nil {
				p.logger.Warn("simulation interrupted", slog.Any("error", err))
				return t.simulation(blocked)
			}
			u, err := withQuery(target, param, payload)
			if err != nil {
				t.add(0, 0, err)
				blocked++
				continue
			}
			status, elapsed, err := p.get(ctx, u)
			t.add(status, elapsed, err)
			if err != nil || blockedStatus[status] {
				blocked++
			}
		}
	}
	return t.simulation(blocked)
}

func (p *Prober) get(ctx context.Context, target string) (int, time.Duration, error) {
	reqCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target, nil)
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("User-Agent", "autovuln-probe/1.0")
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, time.Since(start), err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close()
	return resp.StatusCode, time.Since(start), nil
}

func withQuery(target, param, value string) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(param, value)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type tally struct {
	requests int
	errors   int
	total    time.Duration
	statuses map[int]int
}

func (t *tally) add(status int, elapsed time.Duration, err error) {
	t.requests++
	t.total += elapsed
	if t.statuses == nil {
		t.statuses = map[int]int{}
	}
	if err != nil {
		t.errors++
		return
	}
	t.statuses[status]++
}

func (t *tally) measurement() domain.HTTPMeasurement {
	m := domain.HTTPMeasurement{Requests: t.requests, StatusDistribution: t.statuses}
	if m.StatusDistribution == nil {
		m.StatusDistribution = map[int]int{}
	}
	if t.requests == 0 {
		return m
	}
	avg := float64(t.total) / float64(time.Millisecond) / float64(t.requests)
	m.AvgLatencyMS = math.Round(avg*100) / 100
	m.ErrorRate = float64(t.errors) / float64(t.requests)
	return m
}

func (t *tally) simulation(blocked int) domain.SimulationMeasurement {
	s := domain.SimulationMeasurement{HTTPMeasurement: t.measurement(), RequestsSent: t.requests}
	if t.requests > 0 {
		s.BlockedRate = float64(blocked) / float64(t.requests)
	}
	return s
}
