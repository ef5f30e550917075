package validation

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type Config struct {
	MaxRecordsPerRequest int
	AllowedContentTypes  []string
	Logger               *zap.Logger
}

// Middleware rejects malformed analysis payloads before they reach the
// engines: wrong content type, missing date range, or record counts past
// the configured cap.
func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxRecordsPerRequest == 0 {
		cfg.MaxRecordsPerRequest = 50000
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{"application/json"}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodPost {
			return c.Next()
		}

		contentType := c.Get("Content-Type")
		if contentType != "" && !typeAllowed(contentType, cfg.AllowedContentTypes) {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
				"error": "Unsupported content type",
			})
		}

		if !strings.Contains(c.Path(), "/api/v1/insights") && !strings.Contains(c.Path(), "/api/v1/factpack") {
			return c.Next()
		}

		var req map[string]interface{}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid JSON format",
			})
		}

		if _, ok := req["date_range"].(map[string]interface{}); !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "date_range is required",
			})
		}

		for _, field := range []string{"requisitions", "candidates", "events"} {
			list, ok := req[field].([]interface{})
			if !ok {
				continue
			}
			if len(list) > cfg.MaxRecordsPerRequest {
				cfg.Logger.Warn("Request exceeds record cap",
					zap.String("field", field),
					zap.Int("count", len(list)),
				)
				return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
					"error": "Record count exceeds maximum per request",
				})
			}
		}

		return c.Next()
	}
}

func typeAllowed(contentType string, allowed []string) bool {
	for _, t := range allowed {
		if strings.Contains(contentType, t) {
			return true
		}
	}
	return false
}
