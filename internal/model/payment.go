package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment status values as reported by the ledger.
const (
	PaymentStatusSuccessful = "successful"
	PaymentStatusCanceled   = "canceled"
	PaymentStatusRefunded   = "refunded"
)

// Payment records a confirmed payment-provider event for an order.
// Rows are created only from verified webhook deliveries; session_id
// is unique so a redelivered event can never produce a second row.
// At most one payment exists per order.
type Payment struct {
	ID              uint64          // payments.id
	UserID          uint64          // payments.user_id
	OrderID         uint64          // payments.order_id
	SessionID       string          // payments.session_id (unique)
	PaymentIntentID string          // payments.payment_intent_id
	Status          string          // payments.status
	Amount          decimal.Decimal // payments.amount
	Currency        string          // payments.currency
	CreatedAt       time.Time       // payments.created_at
}

// PaymentItem snapshots the paid price of a single order item. One
// row exists per order item of the paid order; price_at_payment is
// copied from the order item's price_at_order.
type PaymentItem struct {
	ID             uint64          // payment_items.id
	PaymentID      uint64          // payment_items.payment_id
	OrderItemID    uint64          // payment_items.order_item_id
	PriceAtPayment decimal.Decimal // payment_items.price_at_payment
}
