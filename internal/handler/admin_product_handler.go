package handler

import (
	"net/http"

	"smartcommerce/internal/config"
	"smartcommerce/internal/domain/model"
	"smartcommerce/internal/middleware"
	"smartcommerce/internal/repository"
	"smartcommerce/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type SuccessResponse struct {
	Message string `json:"message"`
}

type ProductCreateRequest struct {
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Price           decimal.Decimal `json:"price"`
	CategoryID      int64           `json:"category_id"`
	InitialQuantity int64           `json:"initial_quantity"`
}

type ProductUpdateRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	CategoryID  int64           `json:"category_id"`
}

type CategoryCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// 在庫の設定（絶対値）
type InventorySetRequest struct {
	Quantity int64  `json:"quantity"`
	Reason   string `json:"reason"`
}

// 在庫の増減（差分）
type InventoryDeltaRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

// /admin/products, /admin/categories, /admin/inventory, /admin/cache をまとめる
type AdminProductHandler struct {
	products *usecase.ProductUsecase
	stock    *usecase.InventoryUsecase
	audit    *usecase.AuditUsecase
}

// DI
func NewAdminProductHandler(products *usecase.ProductUsecase, stock *usecase.InventoryUsecase, audit *usecase.AuditUsecase) *AdminProductHandler {
	return &AdminProductHandler{products: products, stock: stock, audit: audit}
}

// 変更系の操作を監査ログに残す
func (h *AdminProductHandler) record(c echo.Context, action model.AuditAction, rt model.AuditResourceType, id int64, before, after any) {
	actor, _ := getUserIDFromContext(c)
	h.audit.Record(c.Request().Context(), usecase.AuditEntry{
		ActorUserID:  actor,
		Action:       action,
		ResourceType: rt,
		ResourceID:   id,
		Before:       before,
		After:        after,
	})
}

// adminを登録
func (h *AdminProductHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	admin := e.Group("/admin")

	admin.Use(middleware.AuthJWT(cfg))
	admin.Use(middleware.TokenVersionGuard(userRepo))
	admin.Use(middleware.AdminRoleGuard())

	admin.POST("/products", h.createProduct)
	admin.PUT("/products/:id", h.updateProduct)
	admin.DELETE("/products/:id", h.deleteProduct)
	admin.POST("/categories", h.createCategory)
	admin.PUT("/categories/:id", h.updateCategory)
	admin.DELETE("/categories/:id", h.deleteCategory)

	admin.GET("/inventory/low-stock", h.lowStock)
	admin.GET("/inventory/out-of-stock", h.outOfStock)
	admin.GET("/inventory/sorted", h.sortedInventory)
	admin.GET("/inventory/:product_id", h.getInventory)
	admin.GET("/inventory/:product_id/history", h.inventoryHistory)
	admin.PUT("/inventory/:product_id", h.setInventory)
	admin.POST("/inventory/:product_id/add", h.addInventory)
	admin.POST("/inventory/:product_id/reduce", h.reduceInventory)

	admin.GET("/cache", h.cacheStats)
	admin.DELETE("/cache", h.invalidateCache)
}

func (h *AdminProductHandler) createProduct(c echo.Context) error {
	var req ProductCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	p, err := h.products.CreateProduct(c.Request().Context(), usecase.CreateProductInput{
		Name:            req.Name,
		Description:     req.Description,
		Price:           req.Price,
		CategoryID:      req.CategoryID,
		InitialQuantity: req.InitialQuantity,
	})
	if err != nil {
		return writeError(c, err)
	}
	h.record(c, model.AuditActionCreateProduct, model.AuditResourceProduct, p.ID, nil, p)
	return c.JSON(http.StatusCreated, p)
}

func (h *AdminProductHandler) updateProduct(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req ProductUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	before, err := h.products.GetProduct(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}

	p, err := h.products.UpdateProduct(c.Request().Context(), id, usecase.UpdateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		return writeError(c, err)
	}
	h.record(c, model.AuditActionUpdateProduct, model.AuditResourceProduct, id, before, p)
	return c.JSON(http.StatusOK, p)
}

func (h *AdminProductHandler) deleteProduct(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}
	if err := h.products.DeleteProduct(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	h.record(c, model.AuditActionDeleteProduct, model.AuditResourceProduct, id, nil, nil)
	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

func (h *AdminProductHandler) createCategory(c echo.Context) error {
	var req CategoryCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	cat, err := h.products.CreateCategory(c.Request().Context(), req.Name, req.Description)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, cat)
}

func (h *AdminProductHandler) updateCategory(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}
	var req CategoryCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	before, err := h.products.GetCategory(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	cat, err := h.products.UpdateCategory(c.Request().Context(), id, req.Name, req.Description)
	if err != nil {
		return writeError(c, err)
	}
	h.record(c, model.AuditActionUpdateCategory, model.AuditResourceCategory, id, before, cat)
	return c.JSON(http.StatusOK, cat)
}

func (h *AdminProductHandler) deleteCategory(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}
	if err := h.products.DeleteCategory(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	h.record(c, model.AuditActionDeleteCategory, model.AuditResourceCategory, id, nil, nil)
	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

func (h *AdminProductHandler) getInventory(c echo.Context) error {
	id, err := paramID(c, "product_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid product_id"})
	}
	inv, err := h.stock.GetByProduct(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *AdminProductHandler) inventoryHistory(c echo.Context) error {
	id, err := paramID(c, "product_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid product_id"})
	}
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
	}
	items, err := h.stock.History(c.Request().Context(), id, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *AdminProductHandler) setInventory(c echo.Context) error {
	id, err := paramID(c, "product_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid product_id"})
	}
	var req InventorySetRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	inv, err := h.stock.SetQuantity(c.Request().Context(), id, req.Quantity, req.Reason)
	if err != nil {
		return writeError(c, err)
	}
	h.record(c, model.AuditActionSetStock, model.AuditResourceInventory, id, nil, req)
	return c.JSON(http.StatusOK, inv)
}

func (h *AdminProductHandler) addInventory(c echo.Context) error {
	id, err := paramID(c, "product_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid product_id"})
	}
	var req InventoryDeltaRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	inv, err := h.stock.Add(c.Request().Context(), id, req.Amount, req.Reason)
	if err != nil {
		return writeError(c, err)
	}
	h.record(c, model.AuditActionAdjustStock, model.AuditResourceInventory, id, nil, req)
	return c.JSON(http.StatusOK, inv)
}

func (h *AdminProductHandler) reduceInventory(c echo.Context) error {
	id, err := paramID(c, "product_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid product_id"})
	}
	var req InventoryDeltaRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	inv, err := h.stock.Reduce(c.Request().Context(), id, req.Amount, req.Reason)
	if err != nil {
		return writeError(c, err)
	}
	req.Amount = -req.Amount
	h.record(c, model.AuditActionAdjustStock, model.AuditResourceInventory, id, nil, req)
	return c.JSON(http.StatusOK, inv)
}

// threshold未指定なら設定値
func (h *AdminProductHandler) lowStock(c echo.Context) error {
	threshold := h.stock.DefaultThreshold()
	if v := c.QueryParam("threshold"); v != "" {
		n, err := queryInt(c, "threshold", 0)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid threshold"})
		}
		threshold = int64(n)
	}

	items, err := h.stock.ListBelowThreshold(c.Request().Context(), threshold)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *AdminProductHandler) outOfStock(c echo.Context) error {
	items, err := h.stock.ListOutOfStock(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

// order=desc で降順
func (h *AdminProductHandler) sortedInventory(c echo.Context) error {
	ascending := true
	switch c.QueryParam("order") {
	case "", "asc":
	case "desc":
		ascending = false
	default:
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid order"})
	}

	items, err := h.stock.ListSortedByQuantity(c.Request().Context(), ascending)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *AdminProductHandler) cacheStats(c echo.Context) error {
	return c.JSON(http.StatusOK, h.products.CacheStats())
}

func (h *AdminProductHandler) invalidateCache(c echo.Context) error {
	h.products.InvalidateCache()
	return c.JSON(http.StatusOK, SuccessResponse{Message: "cache invalidated"})
}

func getUserIDFromContext(c echo.Context) (int64, bool) {
	v := c.Get(middleware.CtxUserIDKey)
	if v == nil {
		return 0, false
	}

	id, ok := v.(int64)
	if !ok {
		return 0, false
	}

	return id, true
}
