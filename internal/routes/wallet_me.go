package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/walletd/internal/wallet"
)

// RegisterWalletMeRoute exposes the caller's default wallet, provisioned on first access.
func RegisterWalletMeRoute(r fiber.Router, h *wallet.Handler) {
	r.Get("/wallet", h.Default)
}
