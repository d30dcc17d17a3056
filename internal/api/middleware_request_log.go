package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/fittrack/internal/logger"
)

// RequestLogger writes one entry per request. Server errors are logged at error level.
func RequestLogger(log *logger.Logger) fiber.Handler {
	if log == nil {
		log = logger.Nop()
	}
	log = log.With("component", "http")

	return func(c *fiber.Ctx) error {
		started := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fiberErr, ok := err.(*fiber.Error); ok {
			status = fiberErr.Code
		}
		fields := []interface{}{
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"elapsed_ms", time.Since(started).Milliseconds(),
			"ip", c.IP(),
		}
		if err != nil {
			fields = append(fields, "error", err)
		}

		switch {
		case status >= fiber.StatusInternalServerError:
			log.Error("request failed", fields...)
		default:
			log.Debug("request served", fields...)
		}
		return err
	}
}
