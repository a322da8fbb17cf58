package handler

import (
	"net/http"
	"strconv"
	"time"

	"smartcommerce/internal/config"
	"smartcommerce/internal/domain/model"
	"smartcommerce/internal/middleware"
	"smartcommerce/internal/repository"
	"smartcommerce/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminOrderHandler struct {
	uc    *usecase.OrderUsecase
	audit *usecase.AuditUsecase
}

func NewAdminOrderHandler(uc *usecase.OrderUsecase, audit *usecase.AuditUsecase) *AdminOrderHandler {
	return &AdminOrderHandler{uc: uc, audit: audit}
}

type statusSnapshot struct {
	Status model.OrderStatus `json:"status"`
}

type OrderStatusUpdateRequest struct {
	Status string `json:"status"`
}

func (h *AdminOrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	admin := e.Group("/admin")
	admin.Use(middleware.AuthJWT(cfg))
	admin.Use(middleware.TokenVersionGuard(userRepo))
	admin.Use(middleware.AdminRoleGuard())

	admin.GET("/orders", h.list)
	admin.GET("/orders/:id", h.detail)
	admin.PUT("/orders/:id/status", h.updateStatus)
	admin.DELETE("/orders/:id", h.delete)
}

func (h *AdminOrderHandler) list(c echo.Context) error {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid page"})
	}
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
	}

	var userID *int64
	if v := c.QueryParam("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user_id"})
		}
		userID = &id
	}

	var fromPtr *time.Time
	if v := c.QueryParam("from"); v != "" {
		tm, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid from"})
		}
		fromPtr = &tm
	}

	var toPtr *time.Time
	if v := c.QueryParam("to"); v != "" {
		tm, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid to"})
		}
		toPtr = &tm
	}

	out, err := h.uc.ListOrders(c.Request().Context(), repository.AdminOrderListFilter{
		Page:   page,
		Limit:  limit,
		Status: c.QueryParam("status"),
		UserID: userID,
		From:   fromPtr,
		To:     toPtr,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) detail(c echo.Context) error {
	orderID, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	out, err := h.uc.GetOrder(c.Request().Context(), orderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) updateStatus(c echo.Context) error {
	orderID, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req OrderStatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	// 操作した管理者ID（監査ログ用）
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	before, err := h.uc.GetOrder(c.Request().Context(), orderID)
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.UpdateStatus(c.Request().Context(), orderID, req.Status)
	if err != nil {
		return writeError(c, err)
	}

	if before.Status != out.Order.Status {
		h.audit.Record(c.Request().Context(), usecase.AuditEntry{
			ActorUserID:  adminID,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			Before:       statusSnapshot{Status: before.Status},
			After:        statusSnapshot{Status: out.Order.Status},
		})
	}

	return c.JSON(http.StatusOK, out)
}

func (h *AdminOrderHandler) delete(c echo.Context) error {
	orderID, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	before, err := h.uc.GetOrder(c.Request().Context(), orderID)
	if err != nil {
		return writeError(c, err)
	}
	if err := h.uc.DeleteOrder(c.Request().Context(), orderID); err != nil {
		return writeError(c, err)
	}

	adminID, _ := getUserIDFromContext(c)
	h.audit.Record(c.Request().Context(), usecase.AuditEntry{
		ActorUserID:  adminID,
		Action:       model.AuditActionDeleteOrder,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   orderID,
		Before:       before,
	})
	return c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}
