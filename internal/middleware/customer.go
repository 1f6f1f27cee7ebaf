package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CustomerIDHeader carries the caller identity established by the gateway in front of the service.
const CustomerIDHeader = "X-Customer-ID"

const customerLocalKey = "customer_id"

// Customer rejects requests without a caller identity and stores it for handlers.
func Customer() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Get(CustomerIDHeader))
		if id == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing "+CustomerIDHeader+" header")
		}
		c.Locals(customerLocalKey, id)
		return c.Next()
	}
}

// CustomerID returns the identity stored by Customer, or an empty string.
func CustomerID(c *fiber.Ctx) string {
	id, _ := c.Locals(customerLocalKey).(string)
	return id
}
