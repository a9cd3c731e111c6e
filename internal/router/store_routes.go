package router

import (
	"github.com/labstack/echo/v4"

	"github.com/cinemarket/movie-storefront/internal/handler"
	"github.com/cinemarket/movie-storefront/internal/middleware"
	"github.com/cinemarket/movie-storefront/internal/model"
)

// RegisterStore registers the cart, order and checkout endpoints. All
// routes require an authenticated user; the admin order surface
// additionally requires the ADMIN role.
func RegisterStore(e *echo.Echo, cart *handler.CartHandler, order *handler.OrderHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleUser, model.RoleModerator, model.RoleAdmin),
	)

	// ---- Cart ----
	g.GET("/cart", cart.Get)
	g.GET("/cart/total", cart.Total)
	g.POST("/cart/items", cart.AddItem)
	g.DELETE("/cart/items", cart.Clear)
	g.DELETE("/cart/items/:movie_id", cart.RemoveItem)

	// ---- Orders ----
	g.POST("/orders", order.Create)
	g.GET("/orders", order.List)
	g.GET("/orders/:id", order.Get)
	g.POST("/orders/:id/cancel", order.Cancel)

	// ---- Checkout ----
	g.POST("/orders/:id/checkout", order.Checkout)
	g.GET("/checkout/sessions/:session_id", order.SessionStatus)

	admin := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	admin.GET("/orders", order.ListAll)
	admin.PATCH("/orders/:id/status", order.UpdateStatus)
	admin.DELETE("/orders/:id", order.Delete)
}
