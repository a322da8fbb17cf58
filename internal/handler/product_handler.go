package handler

import (
	"errors"
	"net/http"
	"strconv"

	"smartcommerce/internal/logger"
	"smartcommerce/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// usecaseのエラー種別をHTTPステータスに変換する
func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	ae, ok := usecase.AsAppError(err)
	if !ok {
		logger.WithCtx(c.Request().Context()).Error("unexpected error", "error", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}

	switch {
	case errors.Is(ae.Kind, usecase.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: ae.Message})
	case errors.Is(ae.Kind, usecase.ErrInsufficientStock),
		errors.Is(ae.Kind, usecase.ErrInvalidStateTransition):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: ae.Message})
	case errors.Is(ae.Kind, usecase.ErrBusinessRule):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: ae.Message})
	}

	//500（中身は返さない）
	logger.WithCtx(c.Request().Context()).Error("persistence error", "error", err)
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

// 数値のクエリ。空ならdef
func queryInt(c echo.Context, name string, def int) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func paramID(c echo.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}

// /products の公開API
type ProductHandler struct {
	uc *usecase.ProductUsecase
}

// DI
func NewProductHandler(uc *usecase.ProductUsecase) *ProductHandler {
	return &ProductHandler{uc: uc}
}

// 公開商品のルートを登録
func (h *ProductHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/products", h.list)
	e.GET("/products/:id", h.detail)
	e.GET("/categories", h.categories)
	e.GET("/categories/:id", h.category)
}

func (h *ProductHandler) list(c echo.Context) error {
	// page（default 1）
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid page"})
	}
	// limit（default 20）
	limit, err := queryInt(c, "limit", 20)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
	}

	minPrice, err := usecase.ParsePrice(c.QueryParam("min_price"))
	if err != nil {
		return writeError(c, err)
	}
	maxPrice, err := usecase.ParsePrice(c.QueryParam("max_price"))
	if err != nil {
		return writeError(c, err)
	}

	var categoryID *int64
	if v := c.QueryParam("category_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid category_id"})
		}
		categoryID = &id
	}

	out, err := h.uc.ListProducts(c.Request().Context(), usecase.ListProductsInput{
		Page:       page,
		Limit:      limit,
		Q:          c.QueryParam("q"),
		CategoryID: categoryID,
		MinPrice:   minPrice,
		MaxPrice:   maxPrice,
		Sort:       c.QueryParam("sort"),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) detail(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	p, err := h.uc.GetProduct(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) categories(c echo.Context) error {
	items, err := h.uc.ListCategories(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *ProductHandler) category(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}
	cat, err := h.uc.GetCategory(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, cat)
}
