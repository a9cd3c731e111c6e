package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cinemarket/movie-storefront/internal/service"
)

// CartHandler exposes the user's cart. Every route requires an
// authenticated user; the cart itself is created lazily.
type CartHandler struct {
	Carts *service.CartService
}

func NewCartHandler(s *service.CartService) *CartHandler {
	return &CartHandler{Carts: s}
}

// Get handles GET /v1/cart.
func (h *CartHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cart, err := h.Carts.Get(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, cart)
}

// AddItem handles POST /v1/cart/items.
func (h *CartHandler) AddItem(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req struct {
		MovieID uint64 `json:"movie_id"`
	}
	if err := c.Bind(&req); err != nil || req.MovieID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "movie_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	item, err := h.Carts.AddItem(ctx, uid, req.MovieID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMovieNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
		case errors.Is(err, service.ErrAlreadyPurchased):
			return c.JSON(http.StatusConflict, echo.Map{"error": "movie already purchased"})
		case errors.Is(err, service.ErrAlreadyInCart):
			return c.JSON(http.StatusConflict, echo.Map{"error": "movie already in cart"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "add item failed"})
	}
	return c.JSON(http.StatusCreated, item)
}

// RemoveItem handles DELETE /v1/cart/items/:movie_id. Removing an
// absent item reports deleted=false rather than an error.
func (h *CartHandler) RemoveItem(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	movieID, err := pathID(c, "movie_id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie_id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	deleted, err := h.Carts.RemoveItem(ctx, uid, movieID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "remove item failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"deleted": deleted})
}

// Clear handles DELETE /v1/cart/items.
func (h *CartHandler) Clear(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Carts.Clear(ctx, uid); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "clear failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Total handles GET /v1/cart/total.
func (h *CartHandler) Total(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	total, err := h.Carts.Total(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, total)
}
