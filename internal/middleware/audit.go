package middleware

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// StatusFunc maps a handler error to the HTTP status it will be rendered with.
type StatusFunc func(err error) int

// Audit emits one structured log line per request, tagged with the caller and
// idempotency key so ledger operations can be traced back to their request.
// statusOf may be nil, in which case only *fiber.Error codes are recognised.
func Audit(logger *slog.Logger, statusOf StatusFunc) fiber.Handler {
	if statusOf == nil {
		statusOf = fiberStatus
	}
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = statusOf(err)
		}

		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
		}
		if requestID := RequestIDFrom(c); requestID != "" {
			attrs = append(attrs, slog.String("request_id", requestID))
		}
		if customer := CustomerID(c); customer != "" {
			attrs = append(attrs, slog.String("customer_id", customer))
		}
		if key := c.Get(idempotencyKeyHeader); key != "" {
			attrs = append(attrs, slog.String("idempotency_key", key))
		}

		switch {
		case err != nil && status >= fiber.StatusInternalServerError:
			attrs = append(attrs, slog.Any("error", err))
			logger.Error("request failed", attrs...)
		case err != nil:
			attrs = append(attrs, slog.String("reason", err.Error()))
			logger.Warn("request rejected", attrs...)
		default:
			logger.Info("request completed", attrs...)
		}
		return err
	}
}

func fiberStatus(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}
