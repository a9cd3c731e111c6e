// Package service holds the business rules for carts, orders and
// payments. Services depend on narrow collaborator interfaces so tests
// can substitute in-memory fakes for the SQL repositories.
package service

import (
	"context"

	"github.com/cinemarket/movie-storefront/internal/model"
	"github.com/cinemarket/movie-storefront/internal/queue"
	"github.com/cinemarket/movie-storefront/internal/repository"
)

// MovieCatalog resolves movie IDs to display summaries with current
// prices. IDs absent from the returned map reference deleted movies.
type MovieCatalog interface {
	SummariesByIDs(ctx context.Context, movieIDs []uint64) (map[uint64]model.MovieSummary, error)
}

// CartStore persists per-user carts and their items.
type CartStore interface {
	GetByUser(ctx context.Context, userID uint64) (model.Cart, error)
	GetOrCreate(ctx context.Context, userID uint64) (model.Cart, error)
	Items(ctx context.Context, cartID uint64) ([]model.CartItem, error)
	InsertItem(ctx context.Context, cartID, movieID uint64) (model.CartItem, error)
	DeleteItem(ctx context.Context, cartID, movieID uint64) (bool, error)
	DeleteItems(ctx context.Context, cartID uint64, movieIDs []uint64) error
	Clear(ctx context.Context, cartID uint64) error
}

// OrderStore persists orders and their immutable item snapshots.
type OrderStore interface {
	MovieIDsWithStatus(ctx context.Context, userID uint64, status string, movieIDs []uint64) (map[uint64]bool, error)
	HasMovieWithStatus(ctx context.Context, userID, movieID uint64, status string) (bool, error)
	ConvertCart(ctx context.Context, ord *model.Order, items []model.OrderItem, cartID uint64) error
	Get(ctx context.Context, orderID, userID uint64) (model.Order, error)
	ItemsByOrders(ctx context.Context, orderIDs []uint64) (map[uint64][]model.OrderItem, error)
	List(ctx context.Context, q repository.OrderListQuery) ([]model.Order, int64, error)
	UpdateStatus(ctx context.Context, orderID uint64, status string) error
	UpdateStatusFrom(ctx context.Context, orderID uint64, from, to string) (bool, error)
	Delete(ctx context.Context, orderID uint64) (bool, error)
}

// PaymentLedger records settled checkout sessions.
type PaymentLedger interface {
	Create(ctx context.Context, p *model.Payment) error
	GetBySessionID(ctx context.Context, sessionID string) (*model.Payment, error)
	GetByOrderID(ctx context.Context, orderID uint64) (*model.Payment, error)
}

// Notifier hands events to the message broker. Failures are logged by
// callers, never propagated to the request that triggered them.
type Notifier interface {
	OrderConfirmed(ctx context.Context, ev queue.OrderConfirmedEvent) error
}
