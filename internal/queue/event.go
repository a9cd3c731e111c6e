// Package queue defines message payloads exchanged over the message broker.
package queue

// OrderConfirmedItem is a single purchased movie inside an order
// confirmation message.
type OrderConfirmedItem struct {
	Name  string `json:"name"`
	Year  int    `json:"year"`
	Price string `json:"price"`
}

// OrderConfirmedEvent is published when a payment settles and an order
// flips to paid. It contains enough information for downstream consumers
// to send the confirmation email without querying the primary database.
type OrderConfirmedEvent struct {
	OrderID     uint64               `json:"order_id"`
	UserID      uint64               `json:"user_id"`
	Email       string               `json:"email"`
	Items       []OrderConfirmedItem `json:"items"`
	TotalAmount string               `json:"total_amount"`
	Currency    string               `json:"currency"`
	PaidAt      string               `json:"paid_at"`
}

// Kinds of account emails carried by AccountEmailEvent.
const (
	EmailKindActivation      = "activation"
	EmailKindPasswordReset   = "password_reset"
	EmailKindPasswordChanged = "password_changed"
)

// AccountEmailEvent is published for account lifecycle emails. Token is
// empty for notification-only kinds such as password_changed.
type AccountEmailEvent struct {
	Kind     string `json:"kind"`
	UserID   uint64 `json:"user_id"`
	Email    string `json:"email"`
	Token    string `json:"token,omitempty"`
	IssuedAt string `json:"issued_at"`
}
