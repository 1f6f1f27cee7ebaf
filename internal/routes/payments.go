package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/walletd/internal/payments"
)

// RegisterPaymentRoutes wires transfer endpoints.
func RegisterPaymentRoutes(r fiber.Router, h *payments.Handler) {
	r.Post("/transfers", h.Transfer)
	r.Get("/transactions/:transactionId", h.Transaction)
}
