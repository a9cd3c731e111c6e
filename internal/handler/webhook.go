package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cinemarket/movie-storefront/internal/client"
	"github.com/cinemarket/movie-storefront/internal/service"
)

// WebhookHandler receives payment-provider deliveries. Signature and
// payload problems are the caller's fault and answered with 400; only
// persistence failures surface as 500 so the provider retries.
type WebhookHandler struct {
	Payments      *service.PaymentService
	SigningSecret string
	Tolerance     time.Duration
}

func NewWebhookHandler(p *service.PaymentService, signingSecret string) *WebhookHandler {
	return &WebhookHandler{
		Payments:      p,
		SigningSecret: signingSecret,
		Tolerance:     client.DefaultWebhookTolerance,
	}
}

// HandleStripe handles POST /v1/webhooks/stripe.
func (h *WebhookHandler) HandleStripe(c echo.Context) error {
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<20))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable payload"})
	}

	ev, err := client.ConstructWebhookEvent(payload, c.Request().Header.Get("Stripe-Signature"), h.SigningSecret, h.Tolerance)
	if err != nil {
		if errors.Is(err, client.ErrInvalidSignature) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid signature"})
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := h.Payments.HandleEvent(ctx, ev); err != nil {
		switch {
		case errors.Is(err, client.ErrInvalidPayload):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid payload"})
		case errors.Is(err, service.ErrMissingMetadata):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing session metadata"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "webhook processing failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"received": true})
}
