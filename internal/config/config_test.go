package config

import "testing"

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ADDR", "")
	t.Setenv("DB_PATH", "")
	t.Setenv("REFRESH_CRON_SPEC", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Addr != ":8080" {
		t.Fatalf("unexpected default addr: %q", cfg.Addr)
	}
	if cfg.DBPath != "feedtune.sqlite" {
		t.Fatalf("unexpected default db path: %q", cfg.DBPath)
	}
	if cfg.RefreshCronSpec != "0 * * * *" {
		t.Fatalf("unexpected default cron spec: %q", cfg.RefreshCronSpec)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("ADDR", ":9090")
	t.Setenv("DB_PATH", "/tmp/other.sqlite")
	t.Setenv("YOUTUBE_API_KEY", "yt-key")
	t.Setenv("CRON_SECRET", "cron-secret")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Addr != ":9090" {
		t.Fatalf("unexpected addr: %q", cfg.Addr)
	}
	if cfg.DBPath != "/tmp/other.sqlite" {
		t.Fatalf("unexpected db path: %q", cfg.DBPath)
	}
	if cfg.YouTubeAPIKey != "yt-key" {
		t.Fatalf("unexpected YouTube key: %q", cfg.YouTubeAPIKey)
	}
	if cfg.CronSecret != "cron-secret" {
		t.Fatalf("unexpected cron secret: %q", cfg.CronSecret)
	}
}
