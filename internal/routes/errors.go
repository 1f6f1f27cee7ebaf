package routes

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/congo-pay/walletd/internal/ledger"
	"github.com/congo-pay/walletd/internal/money"
	"github.com/congo-pay/walletd/internal/wallet"
)

type errorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	WalletID  string `json:"wallet_id,omitempty"`
	Requested string `json:"requested,omitempty"`
	Available string `json:"available,omitempty"`
}

var kindStatus = map[ledger.Kind]int{
	ledger.KindWalletNotFound:      http.StatusNotFound,
	ledger.KindTransactionNotFound: http.StatusNotFound,
	ledger.KindInvalidAmount:       http.StatusBadRequest,
	ledger.KindSameWalletTransfer:  http.StatusBadRequest,
	ledger.KindInsufficientBalance: http.StatusBadRequest,
	ledger.KindCurrencyMismatch:    http.StatusUnprocessableEntity,
	ledger.KindIdempotencyConflict: http.StatusConflict,
}

// StatusOf maps an error returned by a handler to its HTTP status.
func StatusOf(err error) int {
	var de *ledger.Error
	var fe *fiber.Error
	switch {
	case errors.As(err, &de):
		if status, ok := kindStatus[de.Kind]; ok {
			return status
		}
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, money.ErrUnknownCurrency), errors.Is(err, wallet.ErrCustomerRequired):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// ErrorHandler renders domain errors as {code, message, ...} bodies and hides
// infrastructure failures behind a generic 500.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := StatusOf(err)
		body := errorResponse{Code: http.StatusText(status), Message: err.Error()}

		var de *ledger.Error
		var fe *fiber.Error
		switch {
		case errors.As(err, &de):
			body.Code = de.Code()
			if de.WalletID != uuid.Nil {
				body.WalletID = de.WalletID.String()
			}
			if de.Kind == ledger.KindInsufficientBalance {
				body.Requested = de.Requested.String()
				body.Available = de.Available.String()
			}
		case errors.As(err, &fe):
			body.Message = fe.Message
		case status == http.StatusInternalServerError:
			logger.Error("unhandled error", slog.String("path", c.Path()), slog.Any("error", err))
			body.Message = "internal server error"
		}
		return c.Status(status).JSON(body)
	}
}
