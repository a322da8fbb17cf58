package middleware

import (
	"log/slog"
	"time"

	"smartcommerce/internal/logger"

	"github.com/labstack/echo/v4"
)

// リクエストごとにrequest_id付きのロガーをctxへ入れ、終わったら1行出す。
// RequestIDミドルウェアの後ろに置く。
func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			rid := c.Response().Header().Get(echo.HeaderXRequestID)
			log := base.With("request_id", rid)
			c.SetRequest(req.WithContext(logger.InjectLogger(req.Context(), log)))

			err := next(c)
			if err != nil {
				// ステータスを確定させてから記録する
				c.Error(err)
			}

			status := c.Response().Status
			attrs := []any{
				"method", req.Method,
				"path", c.Path(),
				"status", status,
				"latency_ms", time.Since(start).Milliseconds(),
			}
			switch {
			case status >= 500:
				log.Error("request", attrs...)
			case status >= 400:
				log.Warn("request", attrs...)
			default:
				log.Info("request", attrs...)
			}
			return nil
		}
	}
}
