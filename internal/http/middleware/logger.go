package middleware

import (
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"docvault/internal/logger"
)

// Logger logs each HTTP request through the global zap logger.
// Fields: request_id, method, path, status, latency (milliseconds, float).
func Logger() fiber.Handler {
	return requestLogger(logger.L)
}

// LoggerWithWriter is Logger writing JSON lines to w with timestamps in loc.
func LoggerWithWriter(w io.Writer, loc *time.Location) fiber.Handler {
	l := logger.New(w, loc, "info")
	return requestLogger(func() *zap.Logger { return l })
}

func requestLogger(get func() *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		// Errors are rendered here so the logged status is the one sent.
		if chainErr := c.Next(); chainErr != nil {
			if err := c.App().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		fields := []zap.Field{
			zap.String("request_id", RequestIDFromCtx(c)),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Float64("latency", float64(time.Since(start).Microseconds())/1000),
		}

		l := get()
		switch {
		case status >= fiber.StatusInternalServerError:
			l.Error("http_request", fields...)
		case status >= fiber.StatusBadRequest:
			l.Warn("http_request", fields...)
		default:
			l.Info("http_request", fields...)
		}
		return nil
	}
}
