package payments

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const idempotencyKeyHeader = "Idempotency-Key"

// Handler exposes payment endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a payment handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Transfer starts a wallet-to-wallet transfer. The response carries the
// PENDING transaction; poll Transaction for settlement.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	origin, err := uuid.Parse(req.OriginWalletID)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid origin_wallet_id")
	}
	destination, err := uuid.Parse(req.DestinationWalletID)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid destination_wallet_id")
	}
	key := c.Get(idempotencyKeyHeader)
	if key == "" {
		return fiber.NewError(http.StatusBadRequest, "missing Idempotency-Key header")
	}

	res, err := h.service.Transfer(c.UserContext(), TransferInput{
		OriginWalletID:      origin,
		DestinationWalletID: destination,
		Amount:              req.Amount,
		IdempotencyKey:      key,
	})
	if err != nil {
		return err
	}

	status := http.StatusAccepted
	if res.Replayed {
		status = http.StatusOK
	}
	return c.Status(status).JSON(toResponse(res.Transaction, res.Replayed, nil))
}

// Transaction returns a transaction and its journal entries.
func (h *Handler) Transaction(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("transactionId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid transaction id")
	}
	t, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	entries, err := h.service.Entries(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(toResponse(t, false, entries))
}
