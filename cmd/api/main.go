package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/congo-pay/walletd/internal/config"
	"github.com/congo-pay/walletd/internal/funding"
	"github.com/congo-pay/walletd/internal/infra"
	"github.com/congo-pay/walletd/internal/ledger"
	"github.com/congo-pay/walletd/internal/logging"
	"github.com/congo-pay/walletd/internal/notification"
	"github.com/congo-pay/walletd/internal/payments"
	"github.com/congo-pay/walletd/internal/routes"
	"github.com/congo-pay/walletd/internal/server"
	"github.com/congo-pay/walletd/internal/settlement"
	"github.com/congo-pay/walletd/internal/wallet"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("walletd stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("server exited cleanly")
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var db *pgxpool.Pool
	store := ledger.NewInMemory()
	if cfg.DatabaseURL != "" {
		if cfg.RunMigrations {
			if err := infra.Migrate(cfg.DatabaseURL, logger); err != nil {
				return err
			}
		}
		pool, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		db = pool
		store = ledger.NewPostgresStore(pool)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory ledger")
	}

	var cache *redis.Client
	if cfg.RedisURL != "" {
		client, err := infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer func() {
			if err := client.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
		cache = client
	}

	var (
		publisher  settlement.Publisher
		subscriber settlement.Subscriber
	)
	if len(cfg.KafkaBrokers) > 0 {
		kp := settlement.NewKafkaPublisher(infra.NewKafkaWriter(cfg.KafkaBrokers, cfg.SettlementTopic, logger))
		ks := settlement.NewKafkaSubscriber(infra.NewKafkaReader(cfg.KafkaBrokers, cfg.SettlementTopic, cfg.ConsumerGroup), logger)
		defer kp.Close()
		defer ks.Close()
		publisher, subscriber = kp, ks
	} else {
		logger.Warn("KAFKA_BROKERS not set, settling transfers in-process")
		bus := settlement.NewMemoryBus(1024)
		publisher, subscriber = bus, bus
	}

	guard := ledger.NewGuard(store, cfg.ReplayPolicy)
	walletSvc := wallet.NewService(store, cfg.DefaultCurrency)
	fundingSvc := funding.NewService(store, guard, logger)
	paymentSvc := payments.NewService(store, guard, publisher, logger,
		payments.WithNotifier(notification.NewLoggerNotifier(logger)))

	srv, err := server.New(routes.Deps{
		Cfg:      cfg,
		DB:       db,
		Cache:    cache,
		Logger:   logger,
		Wallets:  walletSvc,
		Funding:  fundingSvc,
		Payments: paymentSvc,
	}, logger)
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	worker := settlement.NewWorker(subscriber, paymentSvc, logger)
	reconciler := settlement.NewReconciler(store, publisher, logger, cfg.ReconcileInterval, cfg.StalePendingAfter)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", "addr", cfg.Address(), "env", cfg.AppEnv)
		return srv.Listen()
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return ignoreCanceled(worker.Run(gctx))
	})
	g.Go(func() error {
		return ignoreCanceled(reconciler.Run(gctx))
	})

	return g.Wait()
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
