package handler

import (
	"net/http"

	"smartcommerce/internal/config"
	"smartcommerce/internal/domain/model"
	"smartcommerce/internal/middleware"
	"smartcommerce/internal/repository"
	"smartcommerce/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /reviews, /products/:id/reviews と管理者用の削除
type ReviewHandler struct {
	uc    *usecase.ReviewUsecase
	audit *usecase.AuditUsecase
}

func NewReviewHandler(uc *usecase.ReviewUsecase, audit *usecase.AuditUsecase) *ReviewHandler {
	return &ReviewHandler{uc: uc, audit: audit}
}

type ReviewCreateRequest struct {
	ProductID int64  `json:"product_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

func (h *ReviewHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	// 公開
	e.GET("/reviews", h.list)
	e.GET("/reviews/:id", h.detail)
	e.GET("/products/:id/reviews", h.listByProduct)
	e.GET("/products/:id/rating", h.summary)

	// ログインユーザー
	g := e.Group("/reviews")
	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.TokenVersionGuard(userRepo))
	g.POST("", h.create)
	g.GET("/me", h.mine)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.delete)

	admin := e.Group("/admin")
	admin.Use(middleware.AuthJWT(cfg))
	admin.Use(middleware.TokenVersionGuard(userRepo))
	admin.Use(middleware.AdminRoleGuard())
	admin.DELETE("/reviews/:id", h.adminDelete)
}

func (h *ReviewHandler) list(c echo.Context) error {
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid offset"})
	}
	items, err := h.uc.List(c.Request().Context(), limit, offset)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *ReviewHandler) detail(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}
	rv, err := h.uc.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, rv)
}

func (h *ReviewHandler) listByProduct(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}
	items, err := h.uc.ListByProduct(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *ReviewHandler) summary(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}
	s, err := h.uc.Summary(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *ReviewHandler) create(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	var req ReviewCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	rv, err := h.uc.Create(c.Request().Context(), userID, req.ProductID, usecase.ReviewInput{
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, rv)
}

func (h *ReviewHandler) mine(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	items, err := h.uc.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *ReviewHandler) update(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}
	var req usecase.ReviewInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	rv, err := h.uc.Update(c.Request().Context(), userID, id, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, rv)
}

func (h *ReviewHandler) delete(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}
	if err := h.uc.Delete(c.Request().Context(), userID, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ReviewHandler) adminDelete(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}
	before, err := h.uc.DeleteAny(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}

	actor, _ := getUserIDFromContext(c)
	h.audit.Record(c.Request().Context(), usecase.AuditEntry{
		ActorUserID:  actor,
		Action:       model.AuditActionDeleteReview,
		ResourceType: model.AuditResourceReview,
		ResourceID:   id,
		Before:       before,
	})
	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}
