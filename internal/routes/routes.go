package routes

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/walletd/internal/config"
	"github.com/congo-pay/walletd/internal/funding"
	"github.com/congo-pay/walletd/internal/middleware"
	"github.com/congo-pay/walletd/internal/payments"
	"github.com/congo-pay/walletd/internal/wallet"
)

const commandsPerMinute = 120

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	Cache    *redis.Client
	Logger   *slog.Logger
	Wallets  *wallet.Service
	Funding  *funding.Service
	Payments *payments.Service
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.Wallets == nil || d.Funding == nil || d.Payments == nil {
		return fmt.Errorf("wallet, funding and payment services are required")
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())

	RegisterHealthRoutes(app, d)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api/v1", middleware.Customer(), middleware.Audit(d.Logger, StatusOf))
	if d.Cache != nil {
		api.Use(middleware.CommandRateLimit(d.Cache, commandsPerMinute))
		api.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	walletHandler := wallet.NewHandler(d.Wallets)
	RegisterWalletMeRoute(api, walletHandler)
	RegisterWalletRoutes(api, walletHandler)
	RegisterFundingRoutes(api, funding.NewHandler(d.Funding))
	RegisterPaymentRoutes(api, payments.NewHandler(d.Payments))

	return nil
}
