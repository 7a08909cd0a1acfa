package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected default server addr: %s", cfg.Server.Addr)
	}
	if cfg.Server.RateLimit.RequestsPerMinute != 100 {
		t.Fatalf("unexpected default rate limit: %d", cfg.Server.RateLimit.RequestsPerMinute)
	}
	if cfg.Scheduler.Interval != 24*time.Hour {
		t.Fatalf("unexpected default reload interval: %s", cfg.Scheduler.Interval)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  addr: ":9090"
data:
  dir: /var/data
  symbols:
    BTC: BTC_values.csv
    ETH: ETH_values.csv
scheduler:
  interval: 6h
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Addr != ":9090" {
		t.Fatalf("unexpected server addr: %s", cfg.Server.Addr)
	}
	if cfg.Scheduler.Interval != 6*time.Hour {
		t.Fatalf("unexpected reload interval: %s", cfg.Scheduler.Interval)
	}
	if cfg.Data.Symbols["BTC"] != "BTC_values.csv" || cfg.Data.Symbols["ETH"] != "ETH_values.csv" {
		t.Fatalf("unexpected symbol map: %v", cfg.Data.Symbols)
	}
}

func TestValidate(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg.Scheduler.Interval = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero scheduler interval must fail validation")
	}

	cfg.Scheduler.Interval = time.Hour
	cfg.Server.RateLimit.Burst = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero rate limit burst must fail validation when enabled")
	}

	cfg.Server.RateLimit.Enabled = false
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled rate limit must not require burst: %v", err)
	}
}
