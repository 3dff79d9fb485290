package handler

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/locvowork/sheet_aggregator/internal/logger"
)

// RequestLogger attaches a request scoped logger to the request context
// and logs each finished request. It expects middleware.RequestID to run
// first.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			id := c.Response().Header().Get(echo.HeaderXRequestID)
			if id == "" {
				id = req.Header.Get(echo.HeaderXRequestID)
			}
			ctx := logger.WithLogger(req.Context(), map[string]interface{}{
				"request_id": id,
				"method":     req.Method,
				"path":       req.URL.Path,
			})
			c.SetRequest(req.WithContext(ctx))

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			logger.InfoLog(ctx, "%d in %v", c.Response().Status, time.Since(start))
			return nil
		}
	}
}
