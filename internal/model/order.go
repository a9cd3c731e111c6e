package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order status values. A pending order becomes paid via a confirmed
// payment webhook or canceled via user cancel / session expiry. Paid
// and canceled are terminal.
const (
	OrderStatusPending  = "pending"
	OrderStatusPaid     = "paid"
	OrderStatusCanceled = "canceled"
)

// ValidOrderStatus reports whether s is one of the known order states.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusCanceled:
		return true
	}
	return false
}

// Order is an immutable snapshot of a purchase attempt. Once items
// are attached only the status column ever changes; the total is
// computed once from the item prices at creation time and never
// recomputed.
type Order struct {
	ID          uint64          // orders.id
	UserID      uint64          // orders.user_id
	Status      string          // orders.status
	TotalAmount decimal.Decimal // orders.total_amount
	CreatedAt   time.Time       // orders.created_at
}

// OrderItem records one movie inside an order with the price it had
// when the order was created. Catalog price changes after that point
// do not touch it.
type OrderItem struct {
	ID           uint64          // order_items.id
	OrderID      uint64          // order_items.order_id
	MovieID      uint64          // order_items.movie_id
	PriceAtOrder decimal.Decimal // order_items.price_at_order
}

// OrderItemDetail is an order item with its movie summary resolved.
type OrderItemDetail struct {
	ID           uint64          `json:"id"`
	MovieID      uint64          `json:"movie_id"`
	PriceAtOrder decimal.Decimal `json:"price_at_order"`
	Movie        MovieSummary    `json:"movie"`
}

// OrderDetail is an order with all items and movie summaries loaded.
type OrderDetail struct {
	ID          uint64            `json:"id"`
	UserID      uint64            `json:"user_id"`
	Status      string            `json:"status"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
	CreatedAt   time.Time         `json:"created_at"`
	Items       []OrderItemDetail `json:"items"`
}
