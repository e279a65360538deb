package middleware

import (
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RequestLogger assigns a request id (reusing X-Request-ID when the client
// sent one), echoes it in the response and logs one line per request.
func RequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			req := c.Request()
			res := c.Response()
			start := time.Now()

			id := req.Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = uuid.New().String()
			}
			res.Header().Set(echo.HeaderXRequestID, id)

			if err = next(c); err != nil {
				c.Error(err)
			}

			fields := []zap.Field{
				zap.String("request_id", id),
				zap.String("method", req.Method),
				zap.String("uri", req.RequestURI),
				zap.String("route", c.Path()),
				zap.Int("status", res.Status),
				zap.String("remote_ip", c.RealIP()),
				zap.Duration("latency", time.Since(start)),
				zap.String("response_size", strconv.FormatInt(res.Size, 10)),
			}
			switch {
			case res.Status >= 500:
				logger.Error("request", fields...)
			case res.Status >= 400:
				logger.Warn("request", fields...)
			default:
				logger.Info("request", fields...)
			}
			return nil
		}
	}
}
