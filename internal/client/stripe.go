package client

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Errors returned by webhook verification. Handlers map both to a 400.
var (
	ErrInvalidSignature = errors.New("webhook signature verification failed")
	ErrInvalidPayload   = errors.New("webhook payload could not be parsed")
)

// CheckoutLineItem describes one product on a hosted checkout page.
// UnitAmount is in minor currency units (cents).
type CheckoutLineItem struct {
	Name       string
	UnitAmount int64
	Quantity   int64
}

// CheckoutParams carries everything needed to open a checkout session.
type CheckoutParams struct {
	CustomerEmail string
	Currency      string
	LineItems     []CheckoutLineItem
	Metadata      map[string]string
	SuccessURL    string
	CancelURL     string
	ExpiresAt     time.Time
}

// CheckoutSession is the subset of the provider's session object the
// application reads.
type CheckoutSession struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	PaymentStatus string            `json:"payment_status"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	CustomerEmail string            `json:"customer_email"`
	PaymentIntent string            `json:"payment_intent"`
	Metadata      map[string]string `json:"metadata"`
}

// Event is a webhook delivery. Object holds the raw session payload and
// is decoded once the event type is known.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// Session decodes the event's payload as a checkout session.
func (e Event) Session() (CheckoutSession, error) {
	var s CheckoutSession
	if err := json.Unmarshal(e.Data.Object, &s); err != nil {
		return CheckoutSession{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return s, nil
}

type StripeClient interface {
	// CreateCheckoutSession opens a hosted checkout page and returns the
	// session, whose URL the caller redirects the customer to.
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)

	// RetrieveSession fetches the current state of a checkout session.
	RetrieveSession(ctx context.Context, sessionID string) (*CheckoutSession, error)
}

type stripeClientImpl struct {
	httpClient *http.Client
	baseApiURL string
	secretKey  string
}

func NewStripeClient(baseApiURL, secretKey string) StripeClient {
	if baseApiURL == "" {
		baseApiURL = "https://api.stripe.com"
	}
	return &stripeClientImpl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseApiURL: baseApiURL,
		secretKey:  secretKey,
	}
}

func (c *stripeClientImpl) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	if params.CustomerEmail != "" {
		form.Set("customer_email", params.CustomerEmail)
	}
	if !params.ExpiresAt.IsZero() {
		form.Set("expires_at", strconv.FormatInt(params.ExpiresAt.Unix(), 10))
	}
	for i, li := range params.LineItems {
		p := fmt.Sprintf("line_items[%d]", i)
		form.Set(p+"[price_data][currency]", params.Currency)
		form.Set(p+"[price_data][unit_amount]", strconv.FormatInt(li.UnitAmount, 10))
		form.Set(p+"[price_data][product_data][name]", li.Name)
		form.Set(p+"[quantity]", strconv.FormatInt(li.Quantity, 10))
	}
	for k, v := range params.Metadata {
		form.Set("metadata["+k+"]", v)
	}

	var session CheckoutSession
	if err := c.do(ctx, "POST", "/v1/checkout/sessions", form, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *stripeClientImpl) RetrieveSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	var session CheckoutSession
	if err := c.do(ctx, "GET", "/v1/checkout/sessions/"+url.PathEscape(sessionID), nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *stripeClientImpl) do(ctx context.Context, method, path string, form url.Values, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseApiURL+path, body)
	if err != nil {
		return fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error struct {
				Type    string `json:"type"`
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("stripe api %s %s: %d %s", method, path, resp.StatusCode, apiErr.Error.Message)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// DefaultWebhookTolerance bounds how old a webhook timestamp may be
// before the delivery is rejected as a possible replay.
const DefaultWebhookTolerance = 5 * time.Minute

// ConstructWebhookEvent verifies the Stripe-Signature header against the
// raw payload and returns the parsed event. The header format is
// "t=<unix>,v1=<hex hmac>[,v1=...]" and the signed message is
// "<t>.<payload>" keyed with the endpoint's signing secret.
func ConstructWebhookEvent(payload []byte, sigHeader, secret string, tolerance time.Duration) (Event, error) {
	ts, sigs, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return Event{}, err
	}
	if tolerance > 0 {
		age := time.Since(time.Unix(ts, 0))
		if age > tolerance || age < -tolerance {
			return Event{}, ErrInvalidSignature
		}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	ok := false
	for _, s := range sigs {
		sig, err := hex.DecodeString(s)
		if err != nil {
			continue
		}
		if hmac.Equal(sig, expected) {
			ok = true
			break
		}
	}
	if !ok {
		return Event{}, ErrInvalidSignature
	}

	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return ev, nil
}

func parseSignatureHeader(header string) (int64, []string, error) {
	var ts int64 = -1
	var sigs []string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			n, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return 0, nil, ErrInvalidSignature
			}
			ts = n
		case "v1":
			sigs = append(sigs, kv[1])
		}
	}
	if ts < 0 || len(sigs) == 0 {
		return 0, nil, ErrInvalidSignature
	}
	return ts, sigs, nil
}
