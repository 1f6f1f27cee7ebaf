package funding

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/congo-pay/walletd/internal/ledger"
)

// IdempotencyKeyHeader carries the caller's idempotency key on every command.
const IdempotencyKeyHeader = "Idempotency-Key"

// Handler exposes HTTP endpoints for deposits and withdrawals.
type Handler struct {
	service *Service
}

// NewHandler constructs a funding handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Deposit credits funds into the wallet in the path.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	return h.handle(c, h.service.Deposit)
}

// Withdraw debits funds from the wallet in the path.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	return h.handle(c, h.service.Withdraw)
}

func (h *Handler) handle(c *fiber.Ctx, run func(ctx context.Context, input Input) (ledger.Result, error)) error {
	walletID, err := uuid.Parse(c.Params("walletId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid wallet id")
	}
	key := c.Get(IdempotencyKeyHeader)
	if key == "" {
		return fiber.NewError(http.StatusBadRequest, "missing Idempotency-Key header")
	}
	var req MovementRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	res, err := run(c.UserContext(), Input{WalletID: walletID, Amount: req.Amount, IdempotencyKey: key})
	if err != nil {
		return err
	}

	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	return c.Status(status).JSON(ToResponse(res.Transaction, res.Replayed))
}
