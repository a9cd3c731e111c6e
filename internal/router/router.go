package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/cinemarket/movie-storefront/internal/handler"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance. Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterWebhook registers the payment-provider delivery endpoint. The
// route is unauthenticated; the handler verifies the payload signature
// itself.
func RegisterWebhook(e *echo.Echo, w *handler.WebhookHandler) {
	e.POST("/v1/webhooks/stripe", w.HandleStripe)
}
