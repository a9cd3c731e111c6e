package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinemarket/movie-storefront/internal/model"
)

func movie(id uint64, name string, price string) model.MovieSummary {
	return model.MovieSummary{
		ID:    id,
		Name:  name,
		Year:  2000 + int(id),
		Time:  120,
		Price: decimal.RequireFromString(price),
	}
}

func newCartFixture(movies ...model.MovieSummary) (*CartService, *fakeCartStore, *fakeOrderStore) {
	carts := newFakeCartStore()
	orders := newFakeOrderStore(carts)
	svc := NewCartService(carts, newFakeCatalog(movies...), orders)
	return svc, carts, orders
}

func TestCartGetCreatesLazily(t *testing.T) {
	svc, carts, _ := newCartFixture()
	ctx := context.Background()

	detail, err := svc.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), detail.UserID)
	assert.Empty(t, detail.Items)

	// second call reuses the same cart
	again, err := svc.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, detail.ID, again.ID)
	assert.Len(t, carts.carts, 1)
}

func TestCartAddItem(t *testing.T) {
	svc, _, _ := newCartFixture(movie(1, "Heat", "9.99"))
	ctx := context.Background()

	item, err := svc.AddItem(ctx, 7, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), item.MovieID)
	assert.Equal(t, "Heat", item.Movie.Name)

	_, err = svc.AddItem(ctx, 7, 1)
	assert.ErrorIs(t, err, ErrAlreadyInCart)
}

func TestCartAddItemUnknownMovie(t *testing.T) {
	svc, _, _ := newCartFixture()
	_, err := svc.AddItem(context.Background(), 7, 99)
	assert.ErrorIs(t, err, ErrMovieNotFound)
}

func TestCartAddItemAlreadyPurchased(t *testing.T) {
	svc, _, orders := newCartFixture(movie(1, "Heat", "9.99"))
	orders.seed(7, model.OrderStatusPaid, model.OrderItem{MovieID: 1, PriceAtOrder: decimal.RequireFromString("9.99")})

	_, err := svc.AddItem(context.Background(), 7, 1)
	assert.ErrorIs(t, err, ErrAlreadyPurchased)
}

func TestCartAddItemPaidByOtherUserIsFine(t *testing.T) {
	svc, _, orders := newCartFixture(movie(1, "Heat", "9.99"))
	orders.seed(42, model.OrderStatusPaid, model.OrderItem{MovieID: 1, PriceAtOrder: decimal.RequireFromString("9.99")})

	_, err := svc.AddItem(context.Background(), 7, 1)
	assert.NoError(t, err)
}

func TestCartRemoveItem(t *testing.T) {
	svc, _, _ := newCartFixture(movie(1, "Heat", "9.99"))
	ctx := context.Background()

	// no cart yet: not an error
	removed, err := svc.RemoveItem(ctx, 7, 1)
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = svc.AddItem(ctx, 7, 1)
	require.NoError(t, err)

	removed, err = svc.RemoveItem(ctx, 7, 1)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = svc.RemoveItem(ctx, 7, 1)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestCartClearIsIdempotent(t *testing.T) {
	svc, _, _ := newCartFixture(movie(1, "Heat", "9.99"))
	ctx := context.Background()

	require.NoError(t, svc.Clear(ctx, 7)) // no cart at all

	_, err := svc.AddItem(ctx, 7, 1)
	require.NoError(t, err)
	require.NoError(t, svc.Clear(ctx, 7))
	require.NoError(t, svc.Clear(ctx, 7))

	detail, err := svc.Get(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, detail.Items)
}

func TestCartTotal(t *testing.T) {
	svc, _, _ := newCartFixture(movie(1, "Heat", "9.99"), movie(2, "Ronin", "14.99"))
	ctx := context.Background()

	total, err := svc.Total(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 0, total.TotalItems)
	assert.True(t, total.TotalPrice.IsZero())

	_, err = svc.AddItem(ctx, 7, 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, 7, 2)
	require.NoError(t, err)

	total, err = svc.Total(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, total.TotalItems)
	assert.True(t, total.TotalPrice.Equal(decimal.RequireFromString("24.98")), "got %s", total.TotalPrice)
}

func TestCartSkipsDeletedMovies(t *testing.T) {
	catalog := newFakeCatalog(movie(1, "Heat", "9.99"), movie(2, "Ronin", "14.99"))
	carts := newFakeCartStore()
	svc := NewCartService(carts, catalog, newFakeOrderStore(carts))
	ctx := context.Background()

	_, err := svc.AddItem(ctx, 7, 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, 7, 2)
	require.NoError(t, err)

	delete(catalog.movies, 2)

	detail, err := svc.Get(ctx, 7)
	require.NoError(t, err)
	require.Len(t, detail.Items, 1)
	assert.Equal(t, uint64(1), detail.Items[0].MovieID)

	total, err := svc.Total(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, total.TotalItems)
	assert.True(t, total.TotalPrice.Equal(decimal.RequireFromString("9.99")))
}
