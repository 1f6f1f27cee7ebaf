package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func auditRecords(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		out = append(out, rec)
	}
	return out
}

func TestAuditLogsRequestContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	errDeclined := errors.New("declined")
	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		return c.SendStatus(fiber.StatusBadRequest)
	}})
	app.Use(RequestID(), Customer(), Audit(logger, func(err error) int {
		if errors.Is(err, errDeclined) {
			return fiber.StatusBadRequest
		}
		return fiber.StatusInternalServerError
	}))
	app.Post("/ok", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusCreated) })
	app.Post("/declined", func(c *fiber.Ctx) error { return errDeclined })

	for _, path := range []string{"/ok", "/declined"} {
		req := httptest.NewRequest(fiber.MethodPost, path, nil)
		req.Header.Set(CustomerIDHeader, "cust-9")
		req.Header.Set(requestIDHeader, "req-"+strings.TrimPrefix(path, "/"))
		req.Header.Set(idempotencyKeyHeader, "key-1")
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		if got := resp.Header.Get(requestIDHeader); got != "req-"+strings.TrimPrefix(path, "/") {
			t.Fatalf("expected request id to be echoed, got %q", got)
		}
		resp.Body.Close()
	}

	records := auditRecords(t, &buf)
	if len(records) != 2 {
		t.Fatalf("expected two audit records, got %d", len(records))
	}
	ok, declined := records[0], records[1]
	if ok["level"] != "INFO" || ok["status"] != float64(fiber.StatusCreated) || ok["customer_id"] != "cust-9" || ok["request_id"] != "req-ok" {
		t.Fatalf("unexpected success record %v", ok)
	}
	if declined["level"] != "WARN" || declined["status"] != float64(fiber.StatusBadRequest) || declined["idempotency_key"] != "key-1" {
		t.Fatalf("unexpected rejection record %v", declined)
	}
}

func TestRequestIDGeneratedWhenMissing(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(RequestIDFrom(c)) })

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	if resp.Header.Get(requestIDHeader) == "" {
		t.Fatal("expected generated request id header")
	}
}
