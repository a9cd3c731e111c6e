package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cinemarket/movie-storefront/internal/repository"
	"github.com/cinemarket/movie-storefront/internal/service"
)

// OrderHandler exposes order conversion, checkout and the admin order
// surface.
type OrderHandler struct {
	Orders *service.OrderService
	Users  *repository.UserRepo
}

func NewOrderHandler(s *service.OrderService, u *repository.UserRepo) *OrderHandler {
	return &OrderHandler{Orders: s, Users: u}
}

// Create handles POST /v1/orders: converts the caller's cart into a
// pending order.
func (h *OrderHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	order, err := h.Orders.CreateFromCart(ctx, uid)
	if err != nil {
		var noValid *service.NoValidItemsError
		switch {
		case errors.Is(err, service.ErrEmptyCart):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "cart is empty"})
		case errors.As(err, &noValid):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": noValid.Error()})
		case errors.Is(err, service.ErrCartConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "cart changed, retry order creation"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create order failed"})
	}
	return c.JSON(http.StatusCreated, order)
}

// Get handles GET /v1/orders/:id (ownership-scoped).
func (h *OrderHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orderID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	order, err := h.Orders.Get(ctx, orderID, uid)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, order)
}

// List handles GET /v1/orders: the caller's own orders, newest first.
func (h *OrderHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return h.list(c, uid)
}

// ListAll handles GET /v1/admin/orders across every user.
func (h *OrderHandler) ListAll(c echo.Context) error {
	return h.list(c, 0)
}

func (h *OrderHandler) list(c echo.Context, userID uint64) error {
	q := repository.OrderListQuery{
		UserID: userID,
		Status: strings.TrimSpace(c.QueryParam("status")),
	}
	q.Skip, q.Limit = pagination(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	orders, total, err := h.Orders.List(ctx, q)
	if err != nil {
		if errors.Is(err, service.ErrInvalidStatus) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items": orders,
		"total": total,
		"skip":  q.Skip,
		"limit": q.Limit,
	})
}

// Cancel handles POST /v1/orders/:id/cancel: the owner cancels a
// pending order.
func (h *OrderHandler) Cancel(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orderID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Orders.Cancel(ctx, orderID, uid); err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		case errors.Is(err, service.ErrInvalidTransition):
			return c.JSON(http.StatusConflict, echo.Map{"error": "order is not pending"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "order canceled"})
}

// UpdateStatus handles PATCH /v1/admin/orders/:id/status.
func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	orderID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Orders.UpdateStatus(ctx, orderID, strings.TrimSpace(req.Status)); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidStatus):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown status"})
		case errors.Is(err, service.ErrOrderNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "status updated"})
}

// Delete handles DELETE /v1/admin/orders/:id.
func (h *OrderHandler) Delete(c echo.Context) error {
	orderID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Orders.Delete(ctx, orderID); err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Checkout handles POST /v1/orders/:id/checkout: opens a hosted
// checkout session and returns its URL.
func (h *OrderHandler) Checkout(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orderID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	// The gateway call dominates this request's latency.
	ctx, cancel := context.WithTimeout(c.Request().Context(), 35*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}

	result, err := h.Orders.Checkout(ctx, orderID, uid, u.Email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
		case errors.Is(err, service.ErrOrderNotPending):
			return c.JSON(http.StatusConflict, echo.Map{"error": "order is not pending"})
		case errors.Is(err, service.ErrPaymentExists):
			return c.JSON(http.StatusConflict, echo.Map{"error": "order already paid"})
		}
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment gateway unavailable"})
	}
	return c.JSON(http.StatusCreated, result)
}

// SessionStatus handles GET /v1/checkout/sessions/:session_id for
// polling payment state from the success page.
func (h *OrderHandler) SessionStatus(c echo.Context) error {
	if _, err := getUserID(c); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sessionID := strings.TrimSpace(c.Param("session_id"))
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "session_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 35*time.Second)
	defer cancel()

	status, err := h.Orders.SessionStatus(ctx, sessionID)
	if err != nil {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment gateway unavailable"})
	}
	return c.JSON(http.StatusOK, status)
}
