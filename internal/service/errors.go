package service

import (
	"errors"
	"fmt"
	"strings"
)

// Business errors raised by the services. The handler layer maps each
// one to a fixed HTTP status so none of them ever surfaces as a 500.
var (
	ErrMovieNotFound    = errors.New("movie not found")
	ErrAlreadyPurchased = errors.New("movie already purchased")
	ErrAlreadyInCart    = errors.New("movie already in cart")
	ErrEmptyCart        = errors.New("cart is empty")

	ErrCartConflict      = errors.New("cart was consumed by a concurrent order")
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrInvalidStatus     = errors.New("unknown order status")
	ErrOrderNotPending   = errors.New("order is not pending")
	ErrPaymentExists     = errors.New("order already has a payment")

	ErrMissingMetadata = errors.New("session metadata is missing order correlation")
)

// NoValidItemsError is returned by order conversion when every cart item
// was skipped. It enumerates which movies were dropped and why.
type NoValidItemsError struct {
	Purchased   []uint64
	Pending     []uint64
	Unavailable []uint64
}

func (e *NoValidItemsError) Error() string {
	var parts []string
	if len(e.Purchased) > 0 {
		parts = append(parts, fmt.Sprintf("already purchased: %v", e.Purchased))
	}
	if len(e.Pending) > 0 {
		parts = append(parts, fmt.Sprintf("pending in another order: %v", e.Pending))
	}
	if len(e.Unavailable) > 0 {
		parts = append(parts, fmt.Sprintf("no longer available: %v", e.Unavailable))
	}
	if len(parts) == 0 {
		return "no valid items in cart"
	}
	return "no valid items in cart (skipped movies " + strings.Join(parts, "; ") + ")"
}
