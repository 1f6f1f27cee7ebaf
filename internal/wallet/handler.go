package wallet

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/walletd/internal/ledger"
	"github.com/congo-pay/walletd/internal/middleware"
	"github.com/congo-pay/walletd/internal/money"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Currency string `json:"currency"`
}

type walletResponse struct {
	ID         string          `json:"id"`
	CustomerID string          `json:"customer_id"`
	Currency   string          `json:"currency"`
	Balance    decimal.Decimal `json:"balance"`
	Active     bool            `json:"active"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type balanceResponse struct {
	WalletID string    `json:"wallet_id"`
	Balance  string    `json:"balance"`
	Currency string    `json:"currency"`
	AsOf     time.Time `json:"as_of"`
}

func toWalletResponse(w ledger.Wallet) walletResponse {
	return walletResponse{
		ID:         w.ID.String(),
		CustomerID: w.CustomerID,
		Currency:   string(w.Currency),
		Balance:    w.Balance,
		Active:     w.Active,
		CreatedAt:  w.CreatedAt,
		UpdatedAt:  w.UpdatedAt,
	}
}

func toBalanceResponse(b Balance) balanceResponse {
	return balanceResponse{
		WalletID: b.WalletID.String(),
		Balance:  b.Currency.Format(b.Amount),
		Currency: string(b.Currency),
		AsOf:     b.AsOf,
	}
}

// CreateOrGet returns the caller's wallet in the requested currency, creating
// it if needed. An empty body currency selects the configured default.
func (h *Handler) CreateOrGet(c *fiber.Ctx) error {
	var req createRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}
	currency := h.service.defaultCurrency
	if req.Currency != "" {
		parsed, err := money.ParseCurrency(req.Currency)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		currency = parsed
	}
	w, created, err := h.service.CreateOrGet(c.UserContext(), middleware.CustomerID(c), currency)
	if err != nil {
		return err
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.Status(status).JSON(toWalletResponse(w))
}

// Default returns the caller's default wallet with its balance.
func (h *Handler) Default(c *fiber.Ctx) error {
	w, err := h.service.Default(c.UserContext(), middleware.CustomerID(c))
	if err != nil {
		return err
	}
	bal, err := h.balance(c, w.ID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"wallet":  toWalletResponse(w),
		"balance": toBalanceResponse(bal),
	})
}

// Balance returns the current balance, or the balance at ?at= (RFC 3339).
func (h *Handler) Balance(c *fiber.Ctx) error {
	walletID, err := uuid.Parse(c.Params("walletId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid wallet id")
	}
	bal, err := h.balance(c, walletID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(toBalanceResponse(bal))
}

func (h *Handler) balance(c *fiber.Ctx, walletID uuid.UUID) (Balance, error) {
	raw := c.Query("at")
	if raw == "" {
		return h.service.CurrentBalance(c.UserContext(), walletID)
	}
	at, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return Balance{}, fiber.NewError(http.StatusBadRequest, "at must be an RFC 3339 timestamp")
	}
	return h.service.HistoricalBalance(c.UserContext(), walletID, at)
}

// Audit reports whether the stored balance matches the journal.
func (h *Handler) Audit(c *fiber.Ctx) error {
	walletID, err := uuid.Parse(c.Params("walletId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid wallet id")
	}
	report, err := h.service.Audit(c.UserContext(), walletID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"wallet_id":  report.WalletID.String(),
		"stored":     report.Stored,
		"journal":    report.Journal,
		"entries":    report.Entries,
		"consistent": report.Consistent,
	})
}
