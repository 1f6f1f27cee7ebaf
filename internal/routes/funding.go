package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/walletd/internal/funding"
)

// RegisterFundingRoutes wires deposit and withdrawal endpoints.
func RegisterFundingRoutes(r fiber.Router, h *funding.Handler) {
	r.Post("/wallets/:walletId/deposits", h.Deposit)
	r.Post("/wallets/:walletId/withdrawals", h.Withdraw)
}
