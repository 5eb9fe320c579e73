package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV",
		"HTTP_ADDR",
		"HTTP_READ_TIMEOUT",
		"HTTP_WRITE_TIMEOUT",
		"HTTP_IDLE_TIMEOUT",
		"LOG_LEVEL",
		"POSTGRES_DSN",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"REDIS_DB",
		"JWT_SECRET",
		"JWT_ACCESS_TTL",
		"PAYMENTS_WEBHOOK_SECRET",
		"PAYMENTS_SIGNATURE_TOLERANCE",
		"PAYMENTS_WEBHOOK_RATE_PER_MINUTE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadUsesDefaultsAndYAMLOverrides(t *testing.T) {
	clearConfigEnv(t)

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	yaml := `
http:
  addr: ":9090"
payments:
  webhook_secret: whsec_test
  signature_tolerance: 2m
  webhook_rate_per_minute: 30
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.HTTP.Addr != ":9090" {
		t.Fatalf("unexpected http addr: %s", cfg.HTTP.Addr)
	}
	if cfg.Payments.WebhookSecret != "whsec_test" {
		t.Fatalf("unexpected webhook secret: %s", cfg.Payments.WebhookSecret)
	}
	if cfg.Payments.SignatureTolerance.String() != "2m0s" {
		t.Fatalf("unexpected signature tolerance: %s", cfg.Payments.SignatureTolerance)
	}
	if cfg.Payments.WebhookRatePerMinute != 30 {
		t.Fatalf("unexpected webhook rate: %d", cfg.Payments.WebhookRatePerMinute)
	}

	if cfg.HTTP.ReadTimeout.String() != "5s" {
		t.Fatalf("read timeout default should stay 5s, got %s", cfg.HTTP.ReadTimeout)
	}
	if cfg.Auth.JWTAccessTTL.String() != "15m0s" {
		t.Fatalf("jwt access ttl default should stay 15m, got %s", cfg.Auth.JWTAccessTTL)
	}
}

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load config with missing file: %v", err)
	}

	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("unexpected default http addr: %s", cfg.HTTP.Addr)
	}
	if cfg.Payments.SignatureTolerance.String() != "5m0s" {
		t.Fatalf("unexpected default signature tolerance: %s", cfg.Payments.SignatureTolerance)
	}
	if cfg.Payments.WebhookRatePerMinute != 120 {
		t.Fatalf("unexpected default webhook rate: %d", cfg.Payments.WebhookRatePerMinute)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("HTTP_ADDR", ":7070")
	t.Setenv("PAYMENTS_WEBHOOK_SECRET", "whsec_env")
	t.Setenv("PAYMENTS_WEBHOOK_RATE_PER_MINUTE", "45")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.HTTP.Addr != ":7070" {
		t.Fatalf("env override not applied to http addr: %s", cfg.HTTP.Addr)
	}
	if cfg.Payments.WebhookSecret != "whsec_env" {
		t.Fatalf("env override not applied to webhook secret: %s", cfg.Payments.WebhookSecret)
	}
	if cfg.Payments.WebhookRatePerMinute != 45 {
		t.Fatalf("env override not applied to webhook rate: %d", cfg.Payments.WebhookRatePerMinute)
	}
}

func TestLoadRejectsMissingWebhookSecretInProduction(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("APP_ENV", "prod")

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error when payments.webhook_secret is empty in production")
	}
}
