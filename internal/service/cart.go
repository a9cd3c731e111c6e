package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/cinemarket/movie-storefront/internal/model"
	"github.com/cinemarket/movie-storefront/internal/repository"
)

// CartService implements the staging area a user fills before purchase.
// The cart is created lazily on first use and never deleted; conversion
// to an order only drains its items.
type CartService struct {
	carts  CartStore
	movies MovieCatalog
	orders OrderStore
}

func NewCartService(carts CartStore, movies MovieCatalog, orders OrderStore) *CartService {
	return &CartService{carts: carts, movies: movies, orders: orders}
}

// Get returns the user's cart with item and movie detail, creating the
// cart if it does not exist yet.
func (s *CartService) Get(ctx context.Context, userID uint64) (model.CartDetail, error) {
	cart, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return model.CartDetail{}, err
	}
	items, err := s.carts.Items(ctx, cart.ID)
	if err != nil {
		return model.CartDetail{}, err
	}
	details, err := s.itemDetails(ctx, items)
	if err != nil {
		return model.CartDetail{}, err
	}
	return model.CartDetail{ID: cart.ID, UserID: cart.UserID, Items: details}, nil
}

// AddItem places a movie in the user's cart. It refuses movies that do
// not exist, movies the user already paid for, and duplicates.
func (s *CartService) AddItem(ctx context.Context, userID, movieID uint64) (model.CartItemDetail, error) {
	summaries, err := s.movies.SummariesByIDs(ctx, []uint64{movieID})
	if err != nil {
		return model.CartItemDetail{}, err
	}
	summary, ok := summaries[movieID]
	if !ok {
		return model.CartItemDetail{}, ErrMovieNotFound
	}

	paid, err := s.orders.HasMovieWithStatus(ctx, userID, movieID, model.OrderStatusPaid)
	if err != nil {
		return model.CartItemDetail{}, err
	}
	if paid {
		return model.CartItemDetail{}, ErrAlreadyPurchased
	}

	cart, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return model.CartItemDetail{}, err
	}
	item, err := s.carts.InsertItem(ctx, cart.ID, movieID)
	if errors.Is(err, repository.ErrDuplicate) {
		return model.CartItemDetail{}, ErrAlreadyInCart
	}
	if err != nil {
		return model.CartItemDetail{}, err
	}
	return model.CartItemDetail{
		ID:      item.ID,
		MovieID: item.MovieID,
		AddedAt: item.AddedAt,
		Movie:   summary,
	}, nil
}

// RemoveItem deletes a movie from the cart. Reports whether a row was
// removed; an absent item is not an error.
func (s *CartService) RemoveItem(ctx context.Context, userID, movieID uint64) (bool, error) {
	cart, err := s.carts.GetByUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return s.carts.DeleteItem(ctx, cart.ID, movieID)
}

// Clear removes every item from the user's cart. Idempotent.
func (s *CartService) Clear(ctx context.Context, userID uint64) error {
	cart, err := s.carts.GetByUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.carts.Clear(ctx, cart.ID)
}

// Total sums the current catalog prices of the cart's items. An empty
// or nonexistent cart yields zero values.
func (s *CartService) Total(ctx context.Context, userID uint64) (model.CartTotal, error) {
	zero := model.CartTotal{TotalPrice: decimal.Zero}
	cart, err := s.carts.GetByUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return zero, nil
	}
	if err != nil {
		return zero, err
	}
	items, err := s.carts.Items(ctx, cart.ID)
	if err != nil {
		return zero, err
	}
	details, err := s.itemDetails(ctx, items)
	if err != nil {
		return zero, err
	}
	total := decimal.Zero
	for _, d := range details {
		total = total.Add(d.Movie.Price)
	}
	return model.CartTotal{TotalItems: len(details), TotalPrice: total}, nil
}

// itemDetails resolves cart items against the catalog. Items whose
// movie has been deleted since they were added are skipped.
func (s *CartService) itemDetails(ctx context.Context, items []model.CartItem) ([]model.CartItemDetail, error) {
	if len(items) == 0 {
		return []model.CartItemDetail{}, nil
	}
	ids := make([]uint64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.MovieID)
	}
	summaries, err := s.movies.SummariesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]model.CartItemDetail, 0, len(items))
	for _, it := range items {
		summary, ok := summaries[it.MovieID]
		if !ok {
			continue
		}
		out = append(out, model.CartItemDetail{
			ID:      it.ID,
			MovieID: it.MovieID,
			AddedAt: it.AddedAt,
			Movie:   summary,
		})
	}
	return out, nil
}
