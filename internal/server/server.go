package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"smartcommerce/internal/config"
	"smartcommerce/internal/handler"
	"smartcommerce/internal/metrics"
	"smartcommerce/internal/middleware"
	"smartcommerce/internal/repository"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// ルート登録に必要なハンドラ一式
type Handlers struct {
	Products      *handler.ProductHandler
	AdminProducts *handler.AdminProductHandler
	Cart          *handler.CartHandler
	Orders        *handler.OrderHandler
	AdminOrders   *handler.AdminOrderHandler
	Audit         *handler.AuditHandler
	Reviews       *handler.ReviewHandler
}

// echoを組み立てる。ミドルウェアの順番: Recover → RequestID → ログ → メトリクス
func New(cfg config.Config, log *slog.Logger, userRepo repository.UserRepository, h Handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLogger(log))
	e.Use(echo.WrapMiddleware(metrics.Middleware()))

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	h.Products.RegisterRoutes(e)
	h.Cart.RegisterRoutes(e, cfg, userRepo)
	h.Orders.RegisterRoutes(e, cfg, userRepo)
	h.AdminProducts.RegisterRoutes(e, cfg, userRepo)
	h.AdminOrders.RegisterRoutes(e, cfg, userRepo)
	h.Audit.RegisterRoutes(e, cfg, userRepo)
	h.Reviews.RegisterRoutes(e, cfg, userRepo)

	return e
}

// ctxがキャンセルされるまで待ち受け、その後5秒以内に止める
func Run(ctx context.Context, e *echo.Echo, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
