package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bryanwahyu/autovuln/internal/application"
	appai "github.com/bryanwahyu/autovuln/internal/application/ai"
	appscans "github.com/bryanwahyu/autovuln/internal/application/scans"
	"github.com/bryanwahyu/autovuln/internal/config"
	domain "github.com/bryanwahyu/autovuln/internal/domain/scans"
	"github.com/bryanwahyu/autovuln/internal/infra/ai/openai"
	mysqlp "github.com/bryanwahyu/autovuln/internal/infra/db/mysql"
	pgp "github.com/bryanwahyu/autovuln/internal/infra/db/postgres"
	"github.com/bryanwahyu/autovuln/internal/infra/executor"
	"github.com/bryanwahyu/autovuln/internal/infra/httpserver"
	"github.com/bryanwahyu/autovuln/internal/infra/probe"
	"github.com/bryanwahyu/autovuln/internal/infra/report"
	minioStore "github.com/bryanwahyu/autovuln/internal/infra/storage"
	"github.com/bryanwahyu/autovuln/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		slog.Error("config load error", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()
	checks := map[string]middleware.HealthChecker{}

	// archive opsional, tanpa DB scan cuma disimpan di memory
	archive, db, err := openArchive(ctx, cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		checks["database"] = &middleware.DatabaseHealthChecker{DB: db}
		logger.Info("scan archive enabled", slog.String("driver", cfg.Database.Driver))
	}

	var artifacts domain.ArtifactStore
	if cfg.Minio.Enabled {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			return fmt.Errorf("minio init: %w", err)
		}
		artifacts = store.WithPresign(cfg.PresignTTL())
		logger.Info("report upload enabled", slog.String("bucket", cfg.Minio.BucketName))
	}

	runners := executor.NewFactory(cfg.Scanner.DockerContainer, cfg.Scanner.WSLDistro, logger)
	metrics := middleware.NewMetrics()

	svc := appscans.NewService(appscans.Deps{
		Runners:   runners,
		Prober:    probe.New(probe.Config{Samples: cfg.Probe.Samples, Timeout: cfg.ProbeTimeout(), SimulationRPS: cfg.Probe.SimulationRPS}, logger),
		Renderer:  report.NewRenderer(cfg.Scanner.ReportsDir, logger),
		Archive:   archive,
		Artifacts: artifacts,
		Clock:     application.SystemClock{},
		Logger:    logger,
		Metrics:   metrics,
	}, appscans.Options{
		MaxDuration:  cfg.MaxScanDuration(),
		ToolTimeout:  cfg.ToolTimeout(),
		WapitiTmpDir: cfg.Scanner.WapitiTmpDir,
		DemoTarget:   cfg.Scanner.DemoTarget,
	})

	// tanpa API key, triage jalan offline
	aiSvc := appai.NewService(nil, logger)
	if cfg.OpenAI.APIKey != "" {
		aiSvc = appai.NewService(openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model), logger)
	}

	checks["tools"] = middleware.CheckerFunc(func(ctx context.Context) error {
		st := runners.ForMode(domain.ModeDocker).CheckConnectivity(ctx)
		if !st.Healthy {
			return fmt.Errorf("missing tools: %v", st.Tools)
		}
		return nil
	})

	limiter := middleware.NewRateLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSecond)
	defer limiter.Close()

	readiness := &middleware.Readiness{}
	handler := httpserver.NewRouter(svc, aiSvc, httpserver.Options{
		Logger:      logger,
		Metrics:     metrics,
		APIKeys:     cfg.Auth.APIKeys,
		RateLimiter: limiter,
		Checks:      checks,
		Readiness:   readiness,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case <-stop:
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	}
	logger.Info("shutting down server")
	readiness.Drain()

	grace := time.Duration(cfg.Scanner.ShutdownGraceSeconds) * time.Second
	ctx2, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Warn("http shutdown error", slog.Any("error", err))
	}
	if err := svc.Shutdown(ctx2); err != nil {
		logger.Warn("scans interrupted by shutdown", slog.Any("error", err))
	}
	return nil
}

func openArchive(ctx context.Context, cfg *config.Config) (domain.Archive, *sql.DB, error) {
	switch cfg.Database.Driver {
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, nil, fmt.Errorf("mysql connect: %w", err)
		}
		repo := mysqlp.NewScanRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return repo, db, nil
	case "postgres":
		db, err := pgp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, nil, fmt.Errorf("postgres connect: %w", err)
		}
		repo := pgp.NewScanRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return repo, db, nil
	default:
		return nil, nil, nil
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
