package configs_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yeisme/postvault/pkg/configs"
)

func TestLoadDefaultsLifecycle(t *testing.T) {
	cfg := configs.LoadDefaults()
	lc := cfg.Lifecycle

	if got := lc.TrashTTL(); got != 30*24*time.Hour {
		t.Errorf("TrashTTL = %v, want 30 days", got)
	}

	if got := lc.NearExpiryAgeDays(); got != 25 {
		t.Errorf("NearExpiryAgeDays = %d, want 25", got)
	}

	if lc.CleanupCron == "" || lc.DuePublishCron == "" {
		t.Errorf("cron expressions must have defaults: %+v", lc)
	}

	if lc.ClearErrorOnSuccess {
		t.Error("clear_error_on_success should default to false")
	}

	if cfg.Server.Addr() != "0.0.0.0:8080" {
		t.Errorf("Addr = %q", cfg.Server.Addr())
	}
}

func TestCircuitBreakerShouldTrip(t *testing.T) {
	cb := configs.CircuitBreakerConfig{FailureRate: 0.5, MinRequests: 4}

	cases := []struct {
		requests, failures uint32
		want               bool
	}{
		{0, 0, false},
		{3, 3, false}, // 请求数不足
		{4, 1, false},
		{4, 2, true},
		{10, 9, true},
	}

	for _, tc := range cases {
		if got := cb.ShouldTrip(tc.requests, tc.failures); got != tc.want {
			t.Errorf("ShouldTrip(%d, %d) = %v, want %v", tc.requests, tc.failures, got, tc.want)
		}
	}
}

func TestInitConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()

	yaml := []byte("lifecycle:\n  trash_retention_days: 7\nserver:\n  port: 9000\n  reload_config: false\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("POSTVAULT_SERVER_HOST", "127.0.0.1")

	if err := configs.InitConfig(dir); err != nil {
		t.Fatalf("InitConfig: %v", err)
	}

	cfg := configs.GetConfig()
	if got := cfg.Lifecycle.TrashTTL(); got != 7*24*time.Hour {
		t.Errorf("TrashTTL = %v, want 7 days", got)
	}

	if got := cfg.Server.Addr(); got != "127.0.0.1:9000" {
		t.Errorf("Addr = %q", got)
	}

	if configs.GetViper().ConfigFileUsed() != filepath.Join(dir, "config.yaml") {
		t.Errorf("unexpected config file %q", configs.GetViper().ConfigFileUsed())
	}
}

func TestInitConfigWithoutFile(t *testing.T) {
	if err := configs.InitConfig(t.TempDir()); err != nil {
		t.Fatalf("InitConfig: %v", err)
	}

	if configs.GetConfig().Server.Port != configs.DefaultPort {
		t.Errorf("Port = %d, want default", configs.GetConfig().Server.Port)
	}
}
