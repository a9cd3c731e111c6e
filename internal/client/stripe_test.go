package client

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signPayload(t *testing.T, payload []byte, secret string, ts time.Time) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestConstructWebhookEvent(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_1"}}}`)
	secret := "whsec_test"

	header := signPayload(t, payload, secret, time.Now())
	ev, err := ConstructWebhookEvent(payload, header, secret, DefaultWebhookTolerance)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, "checkout.session.completed", ev.Type)

	sess, err := ev.Session()
	require.NoError(t, err)
	assert.Equal(t, "cs_1", sess.ID)
}

func TestConstructWebhookEventWrongSecret(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"x"}`)
	header := signPayload(t, payload, "whsec_other", time.Now())

	_, err := ConstructWebhookEvent(payload, header, "whsec_test", DefaultWebhookTolerance)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestConstructWebhookEventTamperedPayload(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"x"}`)
	header := signPayload(t, payload, "whsec_test", time.Now())

	tampered := []byte(`{"id":"evt_2","type":"x"}`)
	_, err := ConstructWebhookEvent(tampered, header, "whsec_test", DefaultWebhookTolerance)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestConstructWebhookEventStaleTimestamp(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"x"}`)
	header := signPayload(t, payload, "whsec_test", time.Now().Add(-10*time.Minute))

	_, err := ConstructWebhookEvent(payload, header, "whsec_test", DefaultWebhookTolerance)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	// zero tolerance disables the age check
	_, err = ConstructWebhookEvent(payload, header, "whsec_test", 0)
	assert.NoError(t, err)
}

func TestConstructWebhookEventBadHeader(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"x"}`)
	for _, header := range []string{
		"",
		"v1=deadbeef",
		"t=notanumber,v1=deadbeef",
		fmt.Sprintf("t=%d", time.Now().Unix()),
	} {
		_, err := ConstructWebhookEvent(payload, header, "whsec_test", DefaultWebhookTolerance)
		assert.ErrorIs(t, err, ErrInvalidSignature, "header %q", header)
	}
}

func TestConstructWebhookEventMalformedJSON(t *testing.T) {
	payload := []byte(`{not json`)
	header := signPayload(t, payload, "whsec_test", time.Now())

	_, err := ConstructWebhookEvent(payload, header, "whsec_test", DefaultWebhookTolerance)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestCreateCheckoutSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_abc", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "payment", r.PostForm.Get("mode"))
		assert.Equal(t, "user@example.com", r.PostForm.Get("customer_email"))
		assert.Equal(t, "usd", r.PostForm.Get("line_items[0][price_data][currency]"))
		assert.Equal(t, "999", r.PostForm.Get("line_items[0][price_data][unit_amount]"))
		assert.Equal(t, "Heat (1995)", r.PostForm.Get("line_items[0][price_data][product_data][name]"))
		assert.Equal(t, "1", r.PostForm.Get("line_items[0][quantity]"))
		assert.Equal(t, "41", r.PostForm.Get("metadata[order_id]"))
		assert.NotEmpty(t, r.PostForm.Get("expires_at"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"cs_1","url":"https://pay.example.com/cs_1"}`)
	}))
	defer srv.Close()

	c := NewStripeClient(srv.URL, "sk_test_abc")
	sess, err := c.CreateCheckoutSession(context.Background(), CheckoutParams{
		CustomerEmail: "user@example.com",
		Currency:      "usd",
		LineItems:     []CheckoutLineItem{{Name: "Heat (1995)", UnitAmount: 999, Quantity: 1}},
		Metadata:      map[string]string{"order_id": "41"},
		SuccessURL:    "https://shop.example.com/checkout/success",
		CancelURL:     "https://shop.example.com/checkout/cancel",
		ExpiresAt:     time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_1", sess.ID)
	assert.Equal(t, "https://pay.example.com/cs_1", sess.URL)
}

func TestCreateCheckoutSessionAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		fmt.Fprint(w, `{"error":{"type":"card_error","message":"Your card was declined."}}`)
	}))
	defer srv.Close()

	c := NewStripeClient(srv.URL, "sk_test_abc")
	_, err := c.CreateCheckoutSession(context.Background(), CheckoutParams{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), strconv.Itoa(http.StatusPaymentRequired))
	assert.Contains(t, err.Error(), "Your card was declined.")
}

func TestRetrieveSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/checkout/sessions/cs_1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"cs_1","payment_status":"paid","amount_total":2498,"currency":"usd"}`)
	}))
	defer srv.Close()

	c := NewStripeClient(srv.URL, "sk_test_abc")
	sess, err := c.RetrieveSession(context.Background(), "cs_1")
	require.NoError(t, err)
	assert.Equal(t, "paid", sess.PaymentStatus)
	assert.EqualValues(t, 2498, sess.AmountTotal)
}
