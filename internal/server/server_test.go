package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"smartcommerce/internal/cache"
	"smartcommerce/internal/config"
	"smartcommerce/internal/domain/model"
	"smartcommerce/internal/handler"
	"smartcommerce/internal/infra/db"
	infrarepo "smartcommerce/internal/infra/repository"
	"smartcommerce/internal/logger"
	"smartcommerce/internal/server"
	"smartcommerce/internal/usecase"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type apiEnv struct {
	e     *echo.Echo
	user  string // Authorization
	admin string
	other string
}

type productBody struct {
	ID                int64           `json:"id"`
	Name              string          `json:"name"`
	Price             decimal.Decimal `json:"price"`
	QuantityAvailable int64           `json:"quantity_available"`
}

type orderBody struct {
	ID          int64             `json:"id"`
	Status      model.OrderStatus `json:"status"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
	Items       []struct {
		ProductID int64 `json:"product_id"`
		Quantity  int64 `json:"quantity"`
	} `json:"items"`
}

type errorBody struct {
	Error string `json:"error"`
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gdb, err := db.Open(db.DriverSQLite, fmt.Sprintf("file:api_%s?mode=memory&cache=shared", name), db.Options{})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	userRepo := infrarepo.NewUserGormRepository(gdb)
	productRepo := infrarepo.NewProductGormRepository(gdb)
	txm := infrarepo.NewTxManagerGorm(gdb)
	productCache := cache.NewProductCache(productRepo, cache.WithTTL(time.Minute))

	productUC := usecase.NewProductUsecase(txm, productRepo, infrarepo.NewCategoryGormRepository(gdb), productCache)
	inventoryUC := usecase.NewInventoryUsecase(txm, infrarepo.NewInventoryGormRepository(gdb), productCache, 5)
	cartUC := usecase.NewCartUsecase(txm, infrarepo.NewCartItemGormRepository(gdb))
	orderUC := usecase.NewOrderUsecase(txm, infrarepo.NewOrderGormRepository(gdb), infrarepo.NewOrderItemGormRepository(gdb), productCache, nil)
	auditUC := usecase.NewAuditUsecase(infrarepo.NewAuditLogGormRepository(gdb))
	reviewUC := usecase.NewReviewUsecase(infrarepo.NewReviewGormRepository(gdb), productRepo)

	cfg := config.Config{JWTSecret: testSecret}
	e := server.New(cfg, logger.Discard(), userRepo, server.Handlers{
		Products:      handler.NewProductHandler(productUC),
		AdminProducts: handler.NewAdminProductHandler(productUC, inventoryUC, auditUC),
		Cart:          handler.NewCartHandler(cartUC),
		Orders:        handler.NewOrderHandler(orderUC),
		AdminOrders:   handler.NewAdminOrderHandler(orderUC, auditUC),
		Audit:         handler.NewAuditHandler(auditUC),
		Reviews:       handler.NewReviewHandler(reviewUC, auditUC),
	})

	bearer := func(email string, role model.Role) string {
		u := &model.User{Email: email, Name: email, Role: role, IsActive: true}
		require.NoError(t, userRepo.Create(context.Background(), u))
		claims := jwt.MapClaims{"sub": u.ID, "role": string(role), "tv": 0, "exp": time.Now().Add(time.Hour).Unix()}
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		return "Bearer " + s
	}

	return &apiEnv{
		e:     e,
		user:  bearer("user@test.com", model.RoleUser),
		admin: bearer("admin@test.com", model.RoleAdmin),
		other: bearer("other@test.com", model.RoleUser),
	}
}

func (a *apiEnv) do(t *testing.T, method, path, auth string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// 管理APIでカテゴリと商品を作る
func (a *apiEnv) seedProduct(t *testing.T, name, price string, qty int64) productBody {
	t.Helper()

	rec := a.do(t, http.MethodGet, "/categories", "", nil)
	cats := decode[[]model.Category](t, rec)
	var categoryID int64
	if len(cats) == 0 {
		rec = a.do(t, http.MethodPost, "/admin/categories", a.admin, map[string]any{"name": "general"})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		categoryID = decode[model.Category](t, rec).ID
	} else {
		categoryID = cats[0].ID
	}

	rec = a.do(t, http.MethodPost, "/admin/products", a.admin, map[string]any{
		"name":             name,
		"price":            price,
		"category_id":      categoryID,
		"initial_quantity": qty,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[productBody](t, rec)
}

func TestServer_HealthAndMetrics(t *testing.T) {
	a := newAPIEnv(t)

	rec := a.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	rec = a.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "smartcommerce_http_requests_total")
}

func TestServer_AuthBoundaries(t *testing.T) {
	a := newAPIEnv(t)

	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodGet, "/cart", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodGet, "/orders", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodGet, "/admin/orders", a.user, nil).Code)
	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodDelete, "/admin/cache", a.user, nil).Code)

	// 商品の閲覧は認証不要
	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/products", "", nil).Code)
}

func TestServer_ProductEndpoints(t *testing.T) {
	a := newAPIEnv(t)
	p := a.seedProduct(t, "Keyboard", "49.90", 3)
	a.seedProduct(t, "Mouse", "19.90", 0)

	rec := a.do(t, http.MethodGet, fmt.Sprintf("/products/%d", p.ID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[productBody](t, rec)
	assert.Equal(t, "Keyboard", got.Name)
	assert.Equal(t, int64(3), got.QuantityAvailable)

	rec = a.do(t, http.MethodGet, "/products?sort=price_asc&max_price=30", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Items []productBody `json:"items"`
		Total int64         `json:"total"`
	}](t, rec)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "Mouse", list.Items[0].Name)

	cases := []struct {
		path string
		code int
	}{
		{"/products/999", http.StatusNotFound},
		{"/products/abc", http.StatusBadRequest},
		{"/products?page=0", http.StatusBadRequest},
		{"/products?page=x", http.StatusBadRequest},
		{"/products?min_price=cheap", http.StatusBadRequest},
		{"/products?sort=random", http.StatusBadRequest},
	}
	for _, tc := range cases {
		rec := a.do(t, http.MethodGet, tc.path, "", nil)
		assert.Equal(t, tc.code, rec.Code, tc.path)
		assert.NotEmpty(t, decode[errorBody](t, rec).Error, tc.path)
	}

	// キャッシュの統計と破棄
	rec = a.do(t, http.MethodGet, "/admin/cache", a.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[cache.Stats](t, rec)
	assert.Positive(t, stats.Hits+stats.Misses)

	assert.Equal(t, http.StatusOK, a.do(t, http.MethodDelete, "/admin/cache", a.admin, nil).Code)

	// 削除後は見えない
	assert.Equal(t, http.StatusOK, a.do(t, http.MethodDelete, fmt.Sprintf("/admin/products/%d", p.ID), a.admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, fmt.Sprintf("/products/%d", p.ID), "", nil).Code)
}

func TestServer_InventoryEndpoints(t *testing.T) {
	a := newAPIEnv(t)
	p := a.seedProduct(t, "Cable", "5.00", 10)
	a.seedProduct(t, "Adapter", "8.00", 2)

	base := fmt.Sprintf("/admin/inventory/%d", p.ID)

	rec := a.do(t, http.MethodPost, base+"/reduce", a.admin, map[string]any{"amount": 4, "reason": "damaged"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(6), decode[model.Inventory](t, rec).QuantityAvailable)

	rec = a.do(t, http.MethodPost, base+"/reduce", a.admin, map[string]any{"amount": 7})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(t, http.MethodPost, base+"/add", a.admin, map[string]any{"amount": 1})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(7), decode[model.Inventory](t, rec).QuantityAvailable)

	rec = a.do(t, http.MethodPut, base, a.admin, map[string]any{"quantity": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodPut, base, a.admin, map[string]any{"quantity": 3, "reason": "recount"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodGet, base+"/history", a.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.InventoryAdjustment](t, rec), 4) // 初期在庫 + 3回

	// 既定しきい値5: 3と2が対象
	rec = a.do(t, http.MethodGet, "/admin/inventory/low-stock", a.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Inventory](t, rec), 2)

	rec = a.do(t, http.MethodGet, "/admin/inventory/low-stock?threshold=3", a.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Inventory](t, rec), 1)

	rec = a.do(t, http.MethodGet, "/admin/inventory/sorted?order=desc", a.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sorted := decode[[]model.Inventory](t, rec)
	require.Len(t, sorted, 2)
	assert.Equal(t, p.ID, sorted[0].ProductID)

	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodGet, "/admin/inventory/sorted?order=up", a.admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/admin/inventory/999", a.admin, nil).Code)
}

func TestServer_CartCheckoutAndCancel(t *testing.T) {
	a := newAPIEnv(t)
	p := a.seedProduct(t, "Mug", "12.50", 5)

	rec := a.do(t, http.MethodPost, "/cart", a.user, map[string]any{"product_id": p.ID, "quantity": 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodPost, "/cart", a.user, map[string]any{"product_id": p.ID, "quantity": 4})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(t, http.MethodPatch, fmt.Sprintf("/cart/%d", p.ID), a.user, map[string]any{"quantity": 3})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodGet, "/cart/count", a.user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decode[handler.CartCountResponse](t, rec).Count)

	rec = a.do(t, http.MethodGet, "/cart/total", a.user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "37.50", decode[handler.CartTotalResponse](t, rec).Total)

	rec = a.do(t, http.MethodPost, "/orders/checkout", a.user, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[orderBody](t, rec)
	assert.Equal(t, model.OrderStatusConfirmed, order.Status)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("37.50")))

	// カートは空、在庫は2
	rec = a.do(t, http.MethodGet, "/cart/count", a.user, nil)
	assert.Equal(t, int64(0), decode[handler.CartCountResponse](t, rec).Count)
	rec = a.do(t, http.MethodGet, fmt.Sprintf("/products/%d", p.ID), "", nil)
	assert.Equal(t, int64(2), decode[productBody](t, rec).QuantityAvailable)

	// 空のカートでチェックアウト
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodPost, "/orders/checkout", a.user, nil).Code)

	// 他人の注文は見えない・キャンセルできない
	orderPath := fmt.Sprintf("/orders/%d", order.ID)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, orderPath, a.other, nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodPost, orderPath+"/cancel", a.other, nil).Code)

	rec = a.do(t, http.MethodPost, orderPath+"/cancel", a.user, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[struct {
		Order    orderBody `json:"order"`
		Warnings []string  `json:"warnings"`
	}](t, rec)
	assert.Equal(t, model.OrderStatusCancelled, res.Order.Status)
	assert.Empty(t, res.Warnings)

	rec = a.do(t, http.MethodGet, fmt.Sprintf("/products/%d", p.ID), "", nil)
	assert.Equal(t, int64(5), decode[productBody](t, rec).QuantityAvailable)

	// 2回目は不正な遷移
	assert.Equal(t, http.StatusConflict, a.do(t, http.MethodPost, orderPath+"/cancel", a.user, nil).Code)
}

func TestServer_DirectOrderAndAdminFlow(t *testing.T) {
	a := newAPIEnv(t)
	p := a.seedProduct(t, "Lamp", "30.00", 4)

	rec := a.do(t, http.MethodPost, "/orders", a.user, map[string]any{
		"items": []map[string]any{{"product_id": p.ID, "quantity": 9}},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(t, http.MethodPost, "/orders", a.user, map[string]any{
		"items": []map[string]any{{"product_id": p.ID, "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[orderBody](t, rec)
	assert.Equal(t, model.OrderStatusPending, order.Status)
	require.Len(t, order.Items, 1)

	rec = a.do(t, http.MethodGet, "/orders?page=1&limit=10", a.user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decode[usecase.OrderListOutput](t, rec).Total)
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodGet, "/orders?limit=1000", a.user, nil).Code)

	statusPath := fmt.Sprintf("/admin/orders/%d/status", order.ID)
	assert.Equal(t, http.StatusConflict, a.do(t, http.MethodPut, statusPath, a.admin, map[string]any{"status": "lost"}).Code)
	assert.Equal(t, http.StatusConflict, a.do(t, http.MethodPut, statusPath, a.admin, map[string]any{"status": "delivered"}).Code)

	for _, st := range []string{"confirmed", "processing", "shipped"} {
		rec = a.do(t, http.MethodPut, statusPath, a.admin, map[string]any{"status": st})
		require.Equal(t, http.StatusOK, rec.Code, st)
	}

	rec = a.do(t, http.MethodGet, "/admin/orders?status=shipped", a.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), decode[usecase.OrderListOutput](t, rec).Total)

	rec = a.do(t, http.MethodGet, fmt.Sprintf("/admin/orders/%d", order.ID), a.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.OrderStatusShipped, decode[orderBody](t, rec).Status)

	// 発送済みは削除できない
	assert.Equal(t, http.StatusConflict, a.do(t, http.MethodDelete, fmt.Sprintf("/admin/orders/%d", order.ID), a.admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodDelete, "/admin/orders/999", a.admin, nil).Code)

	// 成功したステータス変更だけが監査ログに残る（新しい順）
	rec = a.do(t, http.MethodGet, fmt.Sprintf("/admin/audit-logs?resource_type=order&resource_id=%d", order.ID), a.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	logs := decode[[]model.AuditLog](t, rec)
	require.Len(t, logs, 3)
	assert.Equal(t, model.AuditActionUpdateOrderStatus, logs[0].Action)
	assert.JSONEq(t, `{"status":"processing"}`, logs[0].BeforeJSON)
	assert.JSONEq(t, `{"status":"shipped"}`, logs[0].AfterJSON)

	rec = a.do(t, http.MethodGet, "/admin/audit-logs?action=CREATE_PRODUCT", a.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.AuditLog](t, rec), 1)

	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodGet, "/admin/audit-logs?limit=500", a.admin, nil).Code)
	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodGet, "/admin/audit-logs", a.user, nil).Code)
}

func TestServer_CategoryAdmin(t *testing.T) {
	a := newAPIEnv(t)

	rec := a.do(t, http.MethodPost, "/admin/categories", a.admin, map[string]any{"name": "books"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	books := decode[model.Category](t, rec)

	// 大文字小文字違いも重複
	rec = a.do(t, http.MethodPost, "/admin/categories", a.admin, map[string]any{"name": "BOOKS"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	path := fmt.Sprintf("/admin/categories/%d", books.ID)
	rec = a.do(t, http.MethodPut, path, a.user, map[string]any{"name": "novels"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = a.do(t, http.MethodPut, path, a.admin, map[string]any{"name": "novels", "description": "fiction"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "novels", decode[model.Category](t, rec).Name)

	rec = a.do(t, http.MethodGet, fmt.Sprintf("/categories/%d", books.ID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fiction", decode[model.Category](t, rec).Description)

	rec = a.do(t, http.MethodPut, "/admin/categories/999", a.admin, map[string]any{"name": "ghost"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, http.MethodPost, "/admin/products", a.admin, map[string]any{
		"name": "Dune", "price": "9.99", "category_id": books.ID, "initial_quantity": 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	dune := decode[productBody](t, rec)

	// 商品が残っている間は消せない
	rec = a.do(t, http.MethodDelete, path, a.admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorBody](t, rec).Error, "1 product(s)")

	rec = a.do(t, http.MethodDelete, fmt.Sprintf("/admin/products/%d", dune.ID), a.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = a.do(t, http.MethodDelete, path, a.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodGet, fmt.Sprintf("/categories/%d", books.ID), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, http.MethodGet, "/admin/audit-logs?resource_type=category", a.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	logs := decode[[]model.AuditLog](t, rec)
	require.Len(t, logs, 2)
	assert.Equal(t, model.AuditActionDeleteCategory, logs[0].Action)
	assert.Equal(t, model.AuditActionUpdateCategory, logs[1].Action)
}

func TestServer_ReviewEndpoints(t *testing.T) {
	a := newAPIEnv(t)
	p := a.seedProduct(t, "Kettle", "30.00", 3)

	rec := a.do(t, http.MethodPost, "/reviews", "", map[string]any{"product_id": p.ID, "rating": 4, "comment": "good"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(t, http.MethodPost, "/reviews", a.user, map[string]any{"product_id": p.ID, "rating": 6, "comment": "great"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = a.do(t, http.MethodPost, "/reviews", a.user, map[string]any{"product_id": 999, "rating": 3, "comment": "?"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, http.MethodPost, "/reviews", a.user, map[string]any{"product_id": p.ID, "rating": 4, "comment": "boils fast"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	mine := decode[model.Review](t, rec)
	rec = a.do(t, http.MethodPost, "/reviews", a.other, map[string]any{"product_id": p.ID, "rating": 2, "comment": "loud"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	theirs := decode[model.Review](t, rec)

	rec = a.do(t, http.MethodGet, fmt.Sprintf("/products/%d/reviews", p.ID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]model.Review](t, rec)
	require.Len(t, list, 2)
	assert.Equal(t, theirs.ID, list[0].ID)

	rec = a.do(t, http.MethodGet, fmt.Sprintf("/products/%d/rating", p.ID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sum := decode[model.RatingSummary](t, rec)
	assert.Equal(t, int64(2), sum.Count)
	assert.InDelta(t, 3.0, sum.Average, 1e-9)

	// 他人のレビューは見えない扱い
	path := fmt.Sprintf("/reviews/%d", mine.ID)
	rec = a.do(t, http.MethodPut, path, a.other, map[string]any{"rating": 1, "comment": "hacked"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = a.do(t, http.MethodPut, path, a.user, map[string]any{"rating": 5, "comment": "still great"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 5, decode[model.Review](t, rec).Rating)

	rec = a.do(t, http.MethodGet, "/reviews/me", a.user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Review](t, rec), 1)

	rec = a.do(t, http.MethodDelete, path, a.user, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = a.do(t, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	adminPath := fmt.Sprintf("/admin/reviews/%d", theirs.ID)
	rec = a.do(t, http.MethodDelete, adminPath, a.user, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = a.do(t, http.MethodDelete, adminPath, a.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodGet, "/reviews?limit=10", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]model.Review](t, rec))

	rec = a.do(t, http.MethodGet, "/admin/audit-logs?action=DELETE_REVIEW", a.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	logs := decode[[]model.AuditLog](t, rec)
	require.Len(t, logs, 1)
	assert.Equal(t, theirs.ID, logs[0].ResourceID)
}
