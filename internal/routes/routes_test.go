package routes

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/walletd/internal/config"
	"github.com/congo-pay/walletd/internal/funding"
	"github.com/congo-pay/walletd/internal/ledger"
	"github.com/congo-pay/walletd/internal/logging"
	"github.com/congo-pay/walletd/internal/money"
	"github.com/congo-pay/walletd/internal/payments"
	"github.com/congo-pay/walletd/internal/settlement"
	"github.com/congo-pay/walletd/internal/wallet"
)

type testAPI struct {
	app *fiber.App
	bus *settlement.MemoryBus
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := logging.Discard()
	store := ledger.NewInMemory()
	guard := ledger.NewGuard(store, ledger.ReplayReturn)
	bus := settlement.NewMemoryBus(16)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger)})
	err := Setup(app, Deps{
		Cfg:      config.Config{AppEnv: "test", DefaultCurrency: money.BRL},
		Logger:   logger,
		Wallets:  wallet.NewService(store, money.BRL),
		Funding:  funding.NewService(store, guard, logger),
		Payments: payments.NewService(store, guard, bus, logger),
	})
	require.NoError(t, err)
	return &testAPI{app: app, bus: bus}
}

func (a *testAPI) do(t *testing.T, method, path, customer, key, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if customer != "" {
		req.Header.Set("X-Customer-ID", customer)
	}
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	resp, err := a.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (a *testAPI) createWallet(t *testing.T, customer, currency string) string {
	t.Helper()
	status, body := a.do(t, fiber.MethodPut, "/api/v1/wallets", customer, "", `{"currency":"`+currency+`"}`)
	require.Contains(t, []int{fiber.StatusCreated, fiber.StatusOK}, status)
	return body["id"].(string)
}

func TestCustomerHeaderRequired(t *testing.T) {
	api := newTestAPI(t)

	status, _ := api.do(t, fiber.MethodGet, "/api/v1/wallet", "", "", "")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = api.do(t, fiber.MethodGet, "/healthz", "", "", "")
	assert.Equal(t, fiber.StatusOK, status)
}

func TestWalletProvisioning(t *testing.T) {
	api := newTestAPI(t)

	status, first := api.do(t, fiber.MethodPut, "/api/v1/wallets", "cust-1", "", `{"currency":"usd"}`)
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "USD", first["currency"])

	status, again := api.do(t, fiber.MethodPut, "/api/v1/wallets", "cust-1", "", `{"currency":"USD"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, first["id"], again["id"])

	status, body := api.do(t, fiber.MethodPut, "/api/v1/wallets", "cust-1", "", `{"currency":"ZZZ"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.NotEmpty(t, body["message"])

	status, body = api.do(t, fiber.MethodGet, "/api/v1/wallet", "cust-2", "", "")
	require.Equal(t, fiber.StatusOK, status)
	w := body["wallet"].(map[string]any)
	assert.Equal(t, "BRL", w["currency"])
	assert.Equal(t, "0.00", body["balance"].(map[string]any)["balance"])
}

func TestDepositWithdrawAndBalance(t *testing.T) {
	api := newTestAPI(t)
	id := api.createWallet(t, "cust-1", "BRL")
	base := "/api/v1/wallets/" + id

	status, body := api.do(t, fiber.MethodPost, base+"/deposits", "cust-1", "dep-1", `{"amount":"100.50"}`)
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "PROCESSED", body["status"])
	assert.Equal(t, false, body["replayed"])

	status, replay := api.do(t, fiber.MethodPost, base+"/deposits", "cust-1", "dep-1", `{"amount":"100.50"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, replay["replayed"])
	assert.Equal(t, body["transaction_id"], replay["transaction_id"])

	status, _ = api.do(t, fiber.MethodPost, base+"/deposits", "cust-1", "", `{"amount":"1"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = api.do(t, fiber.MethodPost, base+"/withdrawals", "cust-1", "wd-1", `{"amount":"500"}`)
	require.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "W:002", body["code"])
	assert.Equal(t, id, body["wallet_id"])
	assert.Equal(t, "500", body["requested"])
	assert.Equal(t, "100.5", body["available"])

	status, body = api.do(t, fiber.MethodPost, base+"/withdrawals", "cust-1", "wd-2", `{"amount":"0"}`)
	require.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "W:004", body["code"])

	status, body = api.do(t, fiber.MethodGet, base+"/balance", "cust-1", "", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "100.50", body["balance"])

	status, body = api.do(t, fiber.MethodGet, base+"/balance?at=2000-01-01T00:00:00Z", "cust-1", "", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "0.00", body["balance"])

	status, _ = api.do(t, fiber.MethodGet, base+"/balance?at=yesterday", "cust-1", "", "")
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = api.do(t, fiber.MethodGet, base+"/audit", "cust-1", "", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["consistent"])

	status, body = api.do(t, fiber.MethodGet, "/api/v1/wallets/"+uuid.NewString()+"/balance", "cust-1", "", "")
	require.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "W:001", body["code"])
}

func TestTransferEndpoints(t *testing.T) {
	api := newTestAPI(t)
	origin := api.createWallet(t, "cust-1", "BRL")
	destination := api.createWallet(t, "cust-2", "BRL")
	dollars := api.createWallet(t, "cust-3", "USD")

	status, _ := api.do(t, fiber.MethodPost, "/api/v1/wallets/"+origin+"/deposits", "cust-1", "seed", `{"amount":"80"}`)
	require.Equal(t, fiber.StatusCreated, status)

	transfer := func(dest, key, amount string) (int, map[string]any) {
		return api.do(t, fiber.MethodPost, "/api/v1/transfers", "cust-1", key,
			`{"origin_wallet_id":"`+origin+`","destination_wallet_id":"`+dest+`","amount":"`+amount+`"}`)
	}

	status, body := transfer(dollars, "t-usd", "10")
	require.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, "W:003", body["code"])

	status, body = transfer(origin, "t-self", "10")
	require.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "W:005", body["code"])

	status, body = transfer(destination, "t-1", "30")
	require.Equal(t, fiber.StatusAccepted, status)
	assert.Equal(t, "PENDING", body["status"])
	assert.Equal(t, 1, api.bus.Pending())
	txID := body["transaction_id"].(string)

	status, replay := transfer(destination, "t-1", "30")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, txID, replay["transaction_id"])
	assert.Equal(t, 1, api.bus.Pending())

	status, body = api.do(t, fiber.MethodGet, "/api/v1/transactions/"+txID, "cust-1", "", "")
	require.Equal(t, fiber.StatusOK, status)
	entries := body["entries"].([]any)
	require.Len(t, entries, 1)
	assert.Equal(t, "DEBIT", entries[0].(map[string]any)["financial_type"])

	status, body = api.do(t, fiber.MethodGet, "/api/v1/transactions/"+uuid.NewString(), "cust-1", "", "")
	require.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "T:001", body["code"])
}

func TestMetricsExposed(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(fiber.MethodGet, "/metrics", nil)
	resp, err := api.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
