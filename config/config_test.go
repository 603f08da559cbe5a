package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"YOUTUBE_API_KEY", "CHANNEL_IDS", "POLL_INTERVAL", "STREAM_POLL_INTERVAL",
		"MAX_HISTORY_POINTS", "STREAM_MISS_GRACE", "SCAN_CONCURRENCY",
		"DATABASE_URL", "CSV_OUTPUT_PATH", "REDIS_URL", "HTTP_ADDR",
		"DASHBOARD_REBUILD_CMD", "DASHBOARD_DEPLOY", "DASHBOARD_OUTPUT_DIR",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.DiscoveryInterval != time.Minute {
		t.Errorf("DiscoveryInterval = %v, want 1m", cfg.DiscoveryInterval)
	}
	if cfg.AnalyticsInterval != 30*time.Second {
		t.Errorf("AnalyticsInterval = %v, want 30s", cfg.AnalyticsInterval)
	}
	if cfg.HistoryCapacity != 60 {
		t.Errorf("HistoryCapacity = %d, want 60", cfg.HistoryCapacity)
	}
	if cfg.MissGrace != 0 {
		t.Errorf("MissGrace = %d, want 0", cfg.MissGrace)
	}
	if cfg.ScanConcurrency != 4 {
		t.Errorf("ScanConcurrency = %d, want 4", cfg.ScanConcurrency)
	}
	if cfg.CSVPath != "analytics.csv" {
		t.Errorf("CSVPath = %q, want analytics.csv", cfg.CSVPath)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
}

func TestLoadIntervalFormats(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"bare seconds", "90", 90 * time.Second},
		{"duration string", "2m", 2 * time.Minute},
		{"duration with unit mix", "1m30s", 90 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("POLL_INTERVAL", tt.value)
			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			if cfg.DiscoveryInterval != tt.want {
				t.Errorf("DiscoveryInterval = %v, want %v", cfg.DiscoveryInterval, tt.want)
			}
		})
	}
}

func TestLoadRejectsBadIntervals(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"garbage", "POLL_INTERVAL", "soon"},
		{"zero", "POLL_INTERVAL", "0"},
		{"negative", "STREAM_POLL_INTERVAL", "-5"},
		{"bad history", "MAX_HISTORY_POINTS", "abc"},
		{"zero history", "MAX_HISTORY_POINTS", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)
			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%q succeeded, want error", tt.key, tt.val)
			}
		})
	}
}

func TestLoadRejectsAnalyticsSlowerThanDiscovery(t *testing.T) {
	clearEnv(t)
	t.Setenv("POLL_INTERVAL", "30")
	t.Setenv("STREAM_POLL_INTERVAL", "60")
	if _, err := Load(); err == nil {
		t.Error("expected error when STREAM_POLL_INTERVAL exceeds POLL_INTERVAL")
	}
}

func TestChannelIDParsing(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHANNEL_IDS", " UC111 , UC222 ,, UC333 ")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	want := []string{"UC111", "UC222", "UC333"}
	if len(cfg.ChannelIDs) != len(want) {
		t.Fatalf("ChannelIDs = %v, want %v", cfg.ChannelIDs, want)
	}
	for i := range want {
		if cfg.ChannelIDs[i] != want[i] {
			t.Errorf("ChannelIDs[%d] = %q, want %q", i, cfg.ChannelIDs[i], want[i])
		}
	}
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error with no key and no channels")
	}

	t.Setenv("YOUTUBE_API_KEY", "test-key")
	cfg, _ = Load()
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error with no channels")
	}

	t.Setenv("CHANNEL_IDS", "UC111")
	cfg, _ = Load()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}
