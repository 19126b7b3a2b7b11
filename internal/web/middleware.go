package web

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
)

func Logger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		slog.Info("Request", "method", c.Method(), "url", c.OriginalURL(), "ip", c.IP())

		return c.Next()
	}
}

// Language picks the response language from the Accept-Language header.
func Language(c *fiber.Ctx) string {
	if strings.HasPrefix(c.Get("Accept-Language"), "de") {
		return "de"
	}
	return "en"
}
