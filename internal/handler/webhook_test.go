package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/cinemarket/movie-storefront/internal/service"
)

const webhookTestSecret = "whsec_test"

func signWebhookPayload(payload, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func postWebhook(h *WebhookHandler, payload, sigHeader string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/stripe", strings.NewReader(payload))
	if sigHeader != "" {
		req.Header.Set("Stripe-Signature", sigHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	_ = h.HandleStripe(c)
	return rec
}

func TestWebhookAcknowledgesUnknownEvent(t *testing.T) {
	h := NewWebhookHandler(service.NewPaymentService(nil, nil, nil, nil), webhookTestSecret)

	payload := `{"id":"evt_1","type":"customer.created","data":{"object":{}}}`
	rec := postWebhook(h, payload, signWebhookPayload(payload, webhookTestSecret))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"received":true`)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	h := NewWebhookHandler(service.NewPaymentService(nil, nil, nil, nil), webhookTestSecret)
	payload := `{"id":"evt_1","type":"customer.created","data":{"object":{}}}`

	rec := postWebhook(h, payload, signWebhookPayload(payload, "whsec_other"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid signature")

	rec = postWebhook(h, payload, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookRejectsMalformedPayload(t *testing.T) {
	h := NewWebhookHandler(service.NewPaymentService(nil, nil, nil, nil), webhookTestSecret)
	payload := `{not json`

	rec := postWebhook(h, payload, signWebhookPayload(payload, webhookTestSecret))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid payload")
}

func TestWebhookRejectsMissingMetadata(t *testing.T) {
	h := NewWebhookHandler(service.NewPaymentService(nil, nil, nil, nil), webhookTestSecret)
	payload := `{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_1","metadata":{}}}}`

	rec := postWebhook(h, payload, signWebhookPayload(payload, webhookTestSecret))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing session metadata")
}
