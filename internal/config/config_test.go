package config

import (
	"testing"
	"time"
)

func TestLoad_AppEnvValidation(t *testing.T) {
	t.Setenv("APP_ENV", "invalid")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid APP_ENV")
	}
}

func TestLoad_UptraceRequiresDSNWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when UPTRACE_ENABLED=true without UPTRACE_DSN")
	}
}

func TestLoad_BetterStackRequiresEndpointWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("BETTERSTACK_ENABLED", "true")
	t.Setenv("BETTERSTACK_ENDPOINT", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when BETTERSTACK_ENABLED=true without BETTERSTACK_ENDPOINT")
	}
}

func TestLoad_StatsAPIDefaults(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.StatsAPIBaseURL != "https://statsapi.mlb.com/api/v1" {
		t.Fatalf("unexpected default base url: %q", cfg.StatsAPIBaseURL)
	}
	if cfg.StatsAPIMaxRetries != 5 {
		t.Fatalf("unexpected default max retries: %d", cfg.StatsAPIMaxRetries)
	}
	if cfg.StatsAPIRetryBaseDelay != time.Second {
		t.Fatalf("unexpected default retry base delay: %s", cfg.StatsAPIRetryBaseDelay)
	}
	if cfg.StatsAPIRetryMaxDelay != 60*time.Second {
		t.Fatalf("unexpected default retry max delay: %s", cfg.StatsAPIRetryMaxDelay)
	}
	if cfg.StatsAPITimeout != 30*time.Second {
		t.Fatalf("unexpected default timeout: %s", cfg.StatsAPITimeout)
	}
	if cfg.ExtractionWorkers != 5 {
		t.Fatalf("unexpected default extraction workers: %d", cfg.ExtractionWorkers)
	}
	if cfg.CleanupRetentionDays != 90 {
		t.Fatalf("unexpected default retention days: %d", cfg.CleanupRetentionDays)
	}
}

func TestLoad_ExtractionWorkersBounds(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")

	t.Run("above cap", func(t *testing.T) {
		t.Setenv("EXTRACTION_WORKERS", "11")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for EXTRACTION_WORKERS above cap")
		}
	})

	t.Run("below floor", func(t *testing.T) {
		t.Setenv("EXTRACTION_WORKERS", "0")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for EXTRACTION_WORKERS below 1")
		}
	})

	t.Run("valid", func(t *testing.T) {
		t.Setenv("EXTRACTION_WORKERS", "8")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if cfg.ExtractionWorkers != 8 {
			t.Fatalf("unexpected extraction workers: %d", cfg.ExtractionWorkers)
		}
	})
}

func TestLoad_AlertWebhookRequiresURLWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("ALERT_WEBHOOK_ENABLED", "true")
	t.Setenv("ALERT_WEBHOOK_URL", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when ALERT_WEBHOOK_ENABLED=true without ALERT_WEBHOOK_URL")
	}
}

func TestLoad_PprofDefaultsAddrWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("PPROF_ENABLED", "true")
	t.Setenv("PPROF_ADDR", "  ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.PprofAddr != ":6060" {
		t.Fatalf("expected default pprof addr :6060, got %q", cfg.PprofAddr)
	}
}

func TestLoad_PyroscopeAppNameDefaultsToServiceName(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("APP_SERVICE_NAME", "diamondline-pipeline-test")
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "http://localhost:4040")
	t.Setenv("PYROSCOPE_APP_NAME", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.PyroscopeAppName != "diamondline-pipeline-test" {
		t.Fatalf("unexpected pyroscope app name: %q", cfg.PyroscopeAppName)
	}
}

func TestLoad_CleanupRetentionValidation(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "false")
	t.Setenv("CLEANUP_RETENTION_DAYS", "0")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for CLEANUP_RETENTION_DAYS=0")
	}
}
