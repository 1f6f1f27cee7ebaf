package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/congo-pay/walletd/internal/ledger"
	"github.com/congo-pay/walletd/internal/money"
)

const (
	defaultAppName        = "walletd"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultLogFormat      = "json"
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
	defaultCurrency       = "BRL"
	defaultTopic          = "wallet.settlements"
	defaultGroupID        = "walletd-settlement"
	defaultReconcileEvery = time.Minute
	defaultStaleAfter     = 5 * time.Minute
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	LogFormat      string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration
	RunMigrations  bool

	DefaultCurrency money.Currency
	ReplayPolicy    ledger.ReplayPolicy

	KafkaBrokers    []string
	SettlementTopic string
	ConsumerGroup   string

	ReconcileInterval time.Duration
	StalePendingAfter time.Duration
}

// Load reads configuration from the environment, after merging an optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("APP_NAME", defaultAppName)
	v.SetDefault("APP_ENV", defaultAppEnv)
	v.SetDefault("PORT", defaultPort)
	v.SetDefault("LOG_LEVEL", defaultLogLevel)
	v.SetDefault("LOG_FORMAT", defaultLogFormat)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("SHUTDOWN_TIMEOUT", defaultShutdownDelay.String())
	v.SetDefault("IDEMPOTENCY_TTL", defaultIdempotencyTTL.String())
	v.SetDefault("RUN_MIGRATIONS", false)
	v.SetDefault("DEFAULT_CURRENCY", defaultCurrency)
	v.SetDefault("IDEMPOTENCY_REPLAY_POLICY", string(ledger.ReplayReturn))
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_SETTLEMENT_TOPIC", defaultTopic)
	v.SetDefault("KAFKA_GROUP_ID", defaultGroupID)
	v.SetDefault("RECONCILE_INTERVAL", defaultReconcileEvery.String())
	v.SetDefault("STALE_PENDING_AFTER", defaultStaleAfter.String())
	v.AutomaticEnv()

	cfg := Config{
		AppName:         v.GetString("APP_NAME"),
		AppEnv:          strings.ToLower(v.GetString("APP_ENV")),
		Port:            v.GetString("PORT"),
		LogLevel:        strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat:       strings.ToLower(v.GetString("LOG_FORMAT")),
		DatabaseURL:     v.GetString("DATABASE_URL"),
		RedisURL:        v.GetString("REDIS_URL"),
		RunMigrations:   v.GetBool("RUN_MIGRATIONS"),
		SettlementTopic: v.GetString("KAFKA_SETTLEMENT_TOPIC"),
		ConsumerGroup:   v.GetString("KAFKA_GROUP_ID"),
		KafkaBrokers:    splitList(v.GetString("KAFKA_BROKERS")),
	}

	var err error
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"SHUTDOWN_TIMEOUT", &cfg.ShutdownPeriod},
		{"IDEMPOTENCY_TTL", &cfg.IdempotencyTTL},
		{"RECONCILE_INTERVAL", &cfg.ReconcileInterval},
		{"STALE_PENDING_AFTER", &cfg.StalePendingAfter},
	}
	for _, d := range durations {
		if *d.dst, err = time.ParseDuration(v.GetString(d.key)); err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", d.key, err)
		}
	}

	if cfg.DefaultCurrency, err = money.ParseCurrency(v.GetString("DEFAULT_CURRENCY")); err != nil {
		return Config{}, fmt.Errorf("invalid DEFAULT_CURRENCY: %w", err)
	}
	if cfg.ReplayPolicy, err = ledger.ParseReplayPolicy(v.GetString("IDEMPOTENCY_REPLAY_POLICY")); err != nil {
		return Config{}, fmt.Errorf("invalid IDEMPOTENCY_REPLAY_POLICY: %w", err)
	}

	if cfg.IsDev() {
		return cfg, nil
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL must be set")
	}
	if cfg.RedisURL == "" {
		return Config{}, errors.New("REDIS_URL must be set")
	}
	if len(cfg.KafkaBrokers) == 0 {
		return Config{}, errors.New("KAFKA_BROKERS must be set")
	}
	return cfg, nil
}

// IsDev reports whether in-memory fallbacks are allowed.
func (c Config) IsDev() bool {
	switch c.AppEnv {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
