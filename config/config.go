// Package config loads environment variables and provides a typed Config used across the service.
// It applies sensible defaults so the binary can run locally with minimal setup.
// The only hard requirements are the YouTube API key and the channel roster; Validate
// reports those before the polling loop is allowed to start.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// YouTube
	YouTubeAPIKey string
	ChannelIDs    []string

	// Polling cadence. AnalyticsInterval is the fine tick; DiscoveryInterval
	// the coarse channel re-scan tick. Discovery never fires more often than
	// analytics.
	DiscoveryInterval time.Duration
	AnalyticsInterval time.Duration

	// Registry / history
	HistoryCapacity int
	MissGrace       int
	ScanConcurrency int

	// Persistence
	DBDsn   string // empty = log-only mode, no relational writes ever
	CSVPath string

	// Live view mirror (optional)
	RedisURL string

	// Dashboard notifier (optional)
	DashboardRebuildCmd string
	DashboardDeploy     bool
	DashboardOutputDir  string

	// HTTP
	HTTPAddr string
}

// Load reads environment variables and applies defaults. It doesn't fail on
// missing credentials; call Validate() before starting the tracker loop.
// Missing optional variables disable features (Postgres, Redis, dashboard).
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.YouTubeAPIKey = os.Getenv("YOUTUBE_API_KEY")
	for _, id := range strings.Split(os.Getenv("CHANNEL_IDS"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			cfg.ChannelIDs = append(cfg.ChannelIDs, id)
		}
	}

	var err error
	if cfg.DiscoveryInterval, err = durationEnv("POLL_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.AnalyticsInterval, err = durationEnv("STREAM_POLL_INTERVAL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.AnalyticsInterval > cfg.DiscoveryInterval {
		return nil, fmt.Errorf("STREAM_POLL_INTERVAL (%s) must not exceed POLL_INTERVAL (%s)", cfg.AnalyticsInterval, cfg.DiscoveryInterval)
	}

	if cfg.HistoryCapacity, err = intEnv("MAX_HISTORY_POINTS", 60); err != nil {
		return nil, err
	}
	if cfg.HistoryCapacity < 1 {
		return nil, fmt.Errorf("MAX_HISTORY_POINTS must be positive, got %d", cfg.HistoryCapacity)
	}
	if cfg.MissGrace, err = intEnv("STREAM_MISS_GRACE", 0); err != nil {
		return nil, err
	}
	if cfg.ScanConcurrency, err = intEnv("SCAN_CONCURRENCY", 4); err != nil {
		return nil, err
	}
	if cfg.ScanConcurrency < 1 {
		cfg.ScanConcurrency = 1
	}

	cfg.DBDsn = os.Getenv("DATABASE_URL")
	cfg.CSVPath = os.Getenv("CSV_OUTPUT_PATH")
	if cfg.CSVPath == "" {
		cfg.CSVPath = "analytics.csv"
	}

	cfg.RedisURL = os.Getenv("REDIS_URL")

	cfg.DashboardRebuildCmd = os.Getenv("DASHBOARD_REBUILD_CMD")
	cfg.DashboardDeploy = os.Getenv("DASHBOARD_DEPLOY") == "1"
	cfg.DashboardOutputDir = os.Getenv("DASHBOARD_OUTPUT_DIR")
	if cfg.DashboardOutputDir == "" {
		cfg.DashboardOutputDir = "dashboard"
	}

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	return cfg, nil
}

// Validate checks the fields the tracker cannot run without.
func (c *Config) Validate() error {
	if c.YouTubeAPIKey == "" {
		return fmt.Errorf("missing YOUTUBE_API_KEY")
	}
	if len(c.ChannelIDs) == 0 {
		return fmt.Errorf("missing CHANNEL_IDS: require a comma-separated list of channel ids")
	}
	return nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	// Bare numbers are treated as seconds for compatibility with older deployments.
	if n, err := strconv.Atoi(v); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("invalid %s=%q: must be positive", key, v)
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s=%q: must be positive", key, v)
	}
	return d, nil
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s=%q: %w", key, v, err)
	}
	return n, nil
}
