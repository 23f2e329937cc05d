package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/contentgen")
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.UpstreamBaseURL != DefaultUpstreamBaseURL {
		t.Fatalf("UpstreamBaseURL = %q, want default", cfg.UpstreamBaseURL)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.PaymentPollInterval != 5*time.Second {
		t.Fatalf("PaymentPollInterval = %s, want 5s", cfg.PaymentPollInterval)
	}
	if cfg.PaymentDeadline != 120*time.Second {
		t.Fatalf("PaymentDeadline = %s, want 120s", cfg.PaymentDeadline)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/contentgen")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("UPSTREAM_API_URL", "https://staging.example.test")
	t.Setenv("PAYMENT_POLL_INTERVAL_SECONDS", "2")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.UpstreamBaseURL != "https://staging.example.test" {
		t.Fatalf("UpstreamBaseURL = %q", cfg.UpstreamBaseURL)
	}
	if cfg.PaymentPollInterval != 2*time.Second {
		t.Fatalf("PaymentPollInterval = %s, want 2s", cfg.PaymentPollInterval)
	}
}

func TestLoadConfigRequiresDatabaseAndSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "secret")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("LoadConfig must fail without DATABASE_URL")
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/db")
	t.Setenv("JWT_SECRET", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("LoadConfig must fail without JWT_SECRET")
	}
}
