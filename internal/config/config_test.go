package config

import (
	"testing"
	"time"

	"github.com/congo-pay/walletd/internal/ledger"
	"github.com/congo-pay/walletd/internal/money"
)

func TestLoadDefaultsInDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DefaultCurrency != money.BRL {
		t.Fatalf("expected BRL default currency, got %s", cfg.DefaultCurrency)
	}
	if cfg.ReplayPolicy != ledger.ReplayReturn {
		t.Fatalf("expected return replay policy, got %s", cfg.ReplayPolicy)
	}
	if cfg.IdempotencyTTL != 24*time.Hour || cfg.StalePendingAfter != 5*time.Minute {
		t.Fatalf("unexpected durations: %+v", cfg)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("unexpected address %q", cfg.Address())
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("PORT", ":9090")
	t.Setenv("DEFAULT_CURRENCY", "xaf")
	t.Setenv("IDEMPOTENCY_REPLAY_POLICY", "reject")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("RECONCILE_INTERVAL", "30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DefaultCurrency != money.XAF || cfg.ReplayPolicy != ledger.ReplayReject {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers: %v", cfg.KafkaBrokers)
	}
	if cfg.ReconcileInterval != 30*time.Second || cfg.Address() != ":9090" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	t.Setenv("DEFAULT_CURRENCY", "ZZZ")
	if _, err := Load(); err == nil {
		t.Fatal("expected unknown currency to fail")
	}

	t.Setenv("DEFAULT_CURRENCY", "USD")
	t.Setenv("IDEMPOTENCY_REPLAY_POLICY", "sometimes")
	if _, err := Load(); err == nil {
		t.Fatal("expected unknown replay policy to fail")
	}

	t.Setenv("IDEMPOTENCY_REPLAY_POLICY", "")
	t.Setenv("IDEMPOTENCY_TTL", "forever")
	if _, err := Load(); err == nil {
		t.Fatal("expected invalid duration to fail")
	}
}

func TestLoadRequiresInfrastructureOutsideDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://localhost/wallets")
	t.Setenv("REDIS_URL", "")
	t.Setenv("KAFKA_BROKERS", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected missing REDIS_URL to fail")
	}

	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	if _, err := Load(); err == nil {
		t.Fatal("expected missing KAFKA_BROKERS to fail")
	}

	t.Setenv("KAFKA_BROKERS", "localhost:9092")
	if _, err := Load(); err != nil {
		t.Fatalf("expected complete production config to load: %v", err)
	}
}
