package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/walletd/internal/wallet"
)

// RegisterWalletRoutes wires wallet provisioning and balance endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Put("/wallets", h.CreateOrGet)
	r.Get("/wallets/:walletId/balance", h.Balance)
	r.Get("/wallets/:walletId/audit", h.Audit)
}
