// Command tracker is the entrypoint for the livestream analytics tracker.
// It:
//   - Loads configuration and initializes structured logging.
//   - Connects to Postgres and runs idempotent migrations (optional; without
//     DATABASE_URL samples land in the CSV log only).
//   - Starts the two-cadence collector loop: coarse channel discovery scans
//     and fine per-stream metric sampling.
//   - Exposes a minimal HTTP server with /healthz, /readyz, /status, /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/streampulse/tracker/config"
	"github.com/streampulse/tracker/csvlog"
	"github.com/streampulse/tracker/liveview"
	"github.com/streampulse/tracker/notify"
	"github.com/streampulse/tracker/server"
	"github.com/streampulse/tracker/store"
	"github.com/streampulse/tracker/telemetry"
	"github.com/streampulse/tracker/tracker"
	"github.com/streampulse/tracker/youtubeapi"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("config invalid", slog.Any("err", err))
		os.Exit(1)
	}

	telemetry.Init()

	// OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("streampulse-tracker", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Relational persistence is optional: without DATABASE_URL the tracker
	// runs in log-only mode and every sample still lands in the CSV file.
	var sampleStore tracker.SampleStore
	database, err := connectDB(ctx, cfg)
	if err != nil {
		slog.Warn("database unavailable, continuing in log-only mode", slog.Any("err", err))
	} else if database != nil {
		defer func() {
			if err := database.Close(); err != nil {
				slog.Error("failed to close database", slog.Any("err", err))
			}
		}()
		sampleStore = store.New(database)
	}

	// Live view mirror is optional too.
	var view tracker.LiveView
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", slog.Any("err", err))
			os.Exit(1)
		}
		client := redis.NewClient(opt)
		defer client.Close()
		view = liveview.New(client)
		slog.Info("live view mirror enabled")
	}

	var notifier tracker.Notifier
	if cfg.DashboardRebuildCmd != "" {
		notifier = notify.New(notify.Options{
			RebuildCmd: strings.Fields(cfg.DashboardRebuildCmd),
			Deploy:     cfg.DashboardDeploy,
			OutputDir:  cfg.DashboardOutputDir,
		})
		slog.Info("dashboard notifier enabled", slog.Bool("deploy", cfg.DashboardDeploy))
	}

	ytClient, err := youtubeapi.New(ctx, cfg.YouTubeAPIKey)
	if err != nil {
		slog.Error("youtube client init failed", slog.Any("err", err))
		os.Exit(1)
	}

	flatLog := csvlog.New(cfg.CSVPath)

	collector := tracker.New(tracker.Options{
		Channels:          cfg.ChannelIDs,
		Scanner:           ytClient,
		Fetcher:           ytClient,
		Store:             sampleStore,
		Log:               flatLog,
		View:              view,
		Notifier:          notifier,
		DiscoveryInterval: cfg.DiscoveryInterval,
		AnalyticsInterval: cfg.AnalyticsInterval,
		HistoryCapacity:   cfg.HistoryCapacity,
		MissGrace:         cfg.MissGrace,
		ScanConcurrency:   cfg.ScanConcurrency,
	})

	go func() {
		err := server.Start(ctx, server.Options{
			DB:         database,
			Provider:   collector,
			StaleAfter: 3 * cfg.DiscoveryInterval,
		}, cfg.HTTPAddr)
		if err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	collector.Run(ctx)
	slog.Info("shutting down")
}

// connectDB opens the database and applies migrations. Returns (nil, nil)
// when no DSN is configured.
func connectDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	if cfg.DBDsn == "" {
		return nil, nil
	}
	database, err := store.Connect(cfg.DBDsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := store.Migrate(ctx, database); err != nil {
		database.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	slog.Info("database migrations completed", slog.String("component", "db_migrate"))
	return database, nil
}
