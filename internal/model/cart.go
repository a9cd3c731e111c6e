package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart is the per-user staging area for candidate purchases. Exactly
// one cart exists per user (users.id is unique in carts); it is
// created lazily on first access and never deleted, only emptied.
type Cart struct {
	ID     uint64 // carts.id
	UserID uint64 // carts.user_id (unique)
}

// CartItem links a cart to a movie. The pair (cart_id, movie_id) is
// unique, so a movie can sit in a cart at most once.
type CartItem struct {
	ID      uint64    // cart_items.id
	CartID  uint64    // cart_items.cart_id
	MovieID uint64    // cart_items.movie_id
	AddedAt time.Time // cart_items.added_at
}

// CartItemDetail is a cart item with its movie resolved for display.
type CartItemDetail struct {
	ID      uint64       `json:"id"`
	MovieID uint64       `json:"movie_id"`
	AddedAt time.Time    `json:"added_at"`
	Movie   MovieSummary `json:"movie"`
}

// CartDetail is a cart with all items and movie summaries loaded.
type CartDetail struct {
	ID     uint64           `json:"id"`
	UserID uint64           `json:"user_id"`
	Items  []CartItemDetail `json:"items"`
}

// CartTotal reports the current item count and price sum of a cart.
// Both are zero for an empty or not-yet-created cart.
type CartTotal struct {
	TotalItems int             `json:"total_items"`
	TotalPrice decimal.Decimal `json:"total_price"`
}
