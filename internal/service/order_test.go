package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinemarket/movie-storefront/internal/client"
	"github.com/cinemarket/movie-storefront/internal/model"
	"github.com/cinemarket/movie-storefront/internal/repository"
)

type orderFixture struct {
	svc      *OrderService
	carts    *fakeCartStore
	orders   *fakeOrderStore
	catalog  *fakeCatalog
	payments *fakePaymentLedger
	gateway  *fakeGateway
}

func newOrderFixture(movies ...model.MovieSummary) *orderFixture {
	carts := newFakeCartStore()
	orders := newFakeOrderStore(carts)
	catalog := newFakeCatalog(movies...)
	payments := newFakePaymentLedger()
	gateway := &fakeGateway{}
	return &orderFixture{
		svc:      NewOrderService(orders, carts, catalog, payments, gateway, "https://shop.example.com"),
		carts:    carts,
		orders:   orders,
		catalog:  catalog,
		payments: payments,
		gateway:  gateway,
	}
}

func (f *orderFixture) fillCart(t *testing.T, userID uint64, movieIDs ...uint64) model.Cart {
	t.Helper()
	ctx := context.Background()
	cart, err := f.carts.GetOrCreate(ctx, userID)
	require.NoError(t, err)
	for _, id := range movieIDs {
		_, err := f.carts.InsertItem(ctx, cart.ID, id)
		require.NoError(t, err)
	}
	return cart
}

func TestCreateFromCart(t *testing.T) {
	f := newOrderFixture(movie(1, "Heat", "9.99"), movie(2, "Ronin", "14.99"))
	f.fillCart(t, 7, 1, 2)

	detail, err := f.svc.CreateFromCart(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusPending, detail.Status)
	assert.Equal(t, uint64(7), detail.UserID)
	assert.True(t, detail.TotalAmount.Equal(decimal.RequireFromString("24.98")), "got %s", detail.TotalAmount)
	require.Len(t, detail.Items, 2)
	assert.Equal(t, "Heat", detail.Items[0].Movie.Name)
	assert.True(t, detail.Items[0].PriceAtOrder.Equal(decimal.RequireFromString("9.99")))

	// the cart is drained by the same conversion
	items, err := f.carts.Items(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCreateFromCartEmpty(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	// no cart at all
	_, err := f.svc.CreateFromCart(ctx, 7)
	assert.ErrorIs(t, err, ErrEmptyCart)

	// cart exists but holds nothing
	_, err = f.carts.GetOrCreate(ctx, 7)
	require.NoError(t, err)
	_, err = f.svc.CreateFromCart(ctx, 7)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCreateFromCartDropsIneligible(t *testing.T) {
	f := newOrderFixture(movie(1, "Heat", "9.99"), movie(2, "Ronin", "14.99"), movie(3, "Spy Game", "4.99"))
	cart := f.fillCart(t, 7, 1, 2, 3)
	ctx := context.Background()

	// movie 1 already paid for, movie 2 tied up in another pending order
	f.orders.seed(7, model.OrderStatusPaid, model.OrderItem{MovieID: 1, PriceAtOrder: decimal.RequireFromString("9.99")})
	f.orders.seed(7, model.OrderStatusPending, model.OrderItem{MovieID: 2, PriceAtOrder: decimal.RequireFromString("14.99")})

	detail, err := f.svc.CreateFromCart(ctx, 7)
	require.NoError(t, err)
	require.Len(t, detail.Items, 1)
	assert.Equal(t, uint64(3), detail.Items[0].MovieID)
	assert.True(t, detail.TotalAmount.Equal(decimal.RequireFromString("4.99")))

	items, err := f.carts.Items(ctx, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCreateFromCartNoValidItems(t *testing.T) {
	f := newOrderFixture(movie(1, "Heat", "9.99"))
	cart := f.fillCart(t, 7, 1, 99) // 99 no longer exists
	ctx := context.Background()

	f.orders.seed(7, model.OrderStatusPaid, model.OrderItem{MovieID: 1, PriceAtOrder: decimal.RequireFromString("9.99")})

	_, err := f.svc.CreateFromCart(ctx, 7)
	var nv *NoValidItemsError
	require.ErrorAs(t, err, &nv)
	assert.Equal(t, []uint64{1}, nv.Purchased)
	assert.Equal(t, []uint64{99}, nv.Unavailable)
	assert.Empty(t, nv.Pending)

	// ineligible items are dropped even though no order was created
	items, err := f.carts.Items(ctx, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCreateFromCartConcurrentConversion(t *testing.T) {
	f := newOrderFixture(movie(1, "Heat", "9.99"))
	f.fillCart(t, 7, 1)
	ctx := context.Background()

	// A rival conversion for the same user runs after this call's
	// eligibility reads but before its transaction commits, the
	// interleaving REPEATABLE READ allows.
	var rival model.OrderDetail
	var rivalErr error
	f.orders.beforeConvert = func() {
		rival, rivalErr = f.svc.CreateFromCart(ctx, 7)
	}

	_, err := f.svc.CreateFromCart(ctx, 7)
	require.NoError(t, rivalErr)
	assert.ErrorIs(t, err, ErrCartConflict)

	// exactly one pending order holds the movie
	orders, total, err := f.svc.List(ctx, repository.OrderListQuery{UserID: 7})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, orders, 1)
	assert.Equal(t, rival.ID, orders[0].ID)

	items, err := f.carts.Items(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestOrderSnapshotSurvivesPriceChange(t *testing.T) {
	f := newOrderFixture(movie(1, "Heat", "9.99"), movie(2, "Ronin", "14.99"))
	f.fillCart(t, 7, 1, 2)
	ctx := context.Background()

	created, err := f.svc.CreateFromCart(ctx, 7)
	require.NoError(t, err)

	// catalog price changes after conversion
	m := f.catalog.movies[1]
	m.Price = decimal.RequireFromString("29.99")
	f.catalog.movies[1] = m

	got, err := f.svc.Get(ctx, created.ID, 7)
	require.NoError(t, err)
	assert.True(t, got.TotalAmount.Equal(decimal.RequireFromString("24.98")), "got %s", got.TotalAmount)
	require.Len(t, got.Items, 2)
	assert.True(t, got.Items[0].PriceAtOrder.Equal(decimal.RequireFromString("9.99")))
	// the embedded summary shows the current catalog price; the order
	// snapshot does not
	assert.True(t, got.Items[0].Movie.Price.Equal(decimal.RequireFromString("29.99")))
}

func TestCreateFromCartConversionFailureKeepsEligibleItems(t *testing.T) {
	f := newOrderFixture(movie(1, "Heat", "9.99"))
	cart := f.fillCart(t, 7, 1)
	f.orders.convertErr = errors.New("deadlock")

	_, err := f.svc.CreateFromCart(context.Background(), 7)
	require.Error(t, err)

	items, err := f.carts.Items(context.Background(), cart.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestOrderGetScoped(t *testing.T) {
	f := newOrderFixture(movie(1, "Heat", "9.99"))
	ord := f.orders.seed(7, model.OrderStatusPending, model.OrderItem{MovieID: 1, PriceAtOrder: decimal.RequireFromString("9.99")})
	ctx := context.Background()

	detail, err := f.svc.Get(ctx, ord.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, ord.ID, detail.ID)

	_, err = f.svc.Get(ctx, ord.ID, 8)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	// userID zero bypasses the ownership check
	_, err = f.svc.Get(ctx, ord.ID, 0)
	assert.NoError(t, err)
}

func TestOrderListRejectsUnknownStatus(t *testing.T) {
	f := newOrderFixture()
	_, _, err := f.svc.List(context.Background(), repository.OrderListQuery{Status: "shipped"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestOrderListFilters(t *testing.T) {
	f := newOrderFixture(movie(1, "Heat", "9.99"))
	price := decimal.RequireFromString("9.99")
	f.orders.seed(7, model.OrderStatusPending, model.OrderItem{MovieID: 1, PriceAtOrder: price})
	f.orders.seed(7, model.OrderStatusPaid, model.OrderItem{MovieID: 1, PriceAtOrder: price})
	f.orders.seed(8, model.OrderStatusPending, model.OrderItem{MovieID: 1, PriceAtOrder: price})

	details, total, err := f.svc.List(context.Background(), repository.OrderListQuery{UserID: 7})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, details, 2)

	details, total, err = f.svc.List(context.Background(), repository.OrderListQuery{Status: model.OrderStatusPending})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, details, 2)
}

func TestOrderCancel(t *testing.T) {
	f := newOrderFixture(movie(1, "Heat", "9.99"))
	ord := f.orders.seed(7, model.OrderStatusPending, model.OrderItem{MovieID: 1, PriceAtOrder: decimal.RequireFromString("9.99")})
	ctx := context.Background()

	// wrong owner
	err := f.svc.Cancel(ctx, ord.ID, 8)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	require.NoError(t, f.svc.Cancel(ctx, ord.ID, 7))
	got, err := f.orders.Get(ctx, ord.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCanceled, got.Status)

	// canceled is terminal
	err = f.svc.Cancel(ctx, ord.ID, 7)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestOrderCancelPaidOrder(t *testing.T) {
	f := newOrderFixture(movie(1, "Heat", "9.99"))
	ord := f.orders.seed(7, model.OrderStatusPaid, model.OrderItem{MovieID: 1, PriceAtOrder: decimal.RequireFromString("9.99")})

	err := f.svc.Cancel(context.Background(), ord.ID, 7)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestOrderUpdateStatus(t *testing.T) {
	f := newOrderFixture(movie(1, "Heat", "9.99"))
	ord := f.orders.seed(7, model.OrderStatusPending, model.OrderItem{MovieID: 1, PriceAtOrder: decimal.RequireFromString("9.99")})
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.UpdateStatus(ctx, ord.ID, "shipped"), ErrInvalidStatus)
	assert.ErrorIs(t, f.svc.UpdateStatus(ctx, 999, model.OrderStatusPaid), ErrOrderNotFound)

	require.NoError(t, f.svc.UpdateStatus(ctx, ord.ID, model.OrderStatusPaid))
	got, err := f.orders.Get(ctx, ord.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, got.Status)
}

func TestOrderDelete(t *testing.T) {
	f := newOrderFixture(movie(1, "Heat", "9.99"))
	ord := f.orders.seed(7, model.OrderStatusCanceled, model.OrderItem{MovieID: 1, PriceAtOrder: decimal.RequireFromString("9.99")})
	ctx := context.Background()

	require.NoError(t, f.svc.Delete(ctx, ord.ID))
	assert.ErrorIs(t, f.svc.Delete(ctx, ord.ID), ErrOrderNotFound)
}

func TestCheckout(t *testing.T) {
	f := newOrderFixture(movie(1, "Heat", "9.99"), movie(2, "Ronin", "14.99"))
	ord := f.orders.seed(7, model.OrderStatusPending,
		model.OrderItem{MovieID: 1, PriceAtOrder: decimal.RequireFromString("9.99")},
		model.OrderItem{MovieID: 2, PriceAtOrder: decimal.RequireFromString("14.99")},
	)
	f.gateway.session = client.CheckoutSession{ID: "cs_test_123", URL: "https://pay.example.com/cs_test_123"}

	res, err := f.svc.Checkout(context.Background(), ord.ID, 7, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "cs_test_123", res.SessionID)
	assert.Equal(t, "https://pay.example.com/cs_test_123", res.CheckoutURL)

	params := f.gateway.lastParams
	assert.Equal(t, "user@example.com", params.CustomerEmail)
	assert.Equal(t, "usd", params.Currency)
	assert.Equal(t, "7", params.Metadata["user_id"])
	assert.Equal(t, "1", params.Metadata["order_id"])
	require.Len(t, params.LineItems, 2)
	assert.Equal(t, "Heat (2001)", params.LineItems[0].Name)
	assert.EqualValues(t, 999, params.LineItems[0].UnitAmount)
	assert.EqualValues(t, 1499, params.LineItems[1].UnitAmount)
	assert.Contains(t, params.SuccessURL, "{CHECKOUT_SESSION_ID}")
	assert.False(t, params.ExpiresAt.IsZero())
}

func TestCheckoutGuards(t *testing.T) {
	f := newOrderFixture(movie(1, "Heat", "9.99"))
	price := decimal.RequireFromString("9.99")
	ctx := context.Background()

	_, err := f.svc.Checkout(ctx, 999, 7, "user@example.com")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	paid := f.orders.seed(7, model.OrderStatusPaid, model.OrderItem{MovieID: 1, PriceAtOrder: price})
	_, err = f.svc.Checkout(ctx, paid.ID, 7, "user@example.com")
	assert.ErrorIs(t, err, ErrOrderNotPending)

	pending := f.orders.seed(7, model.OrderStatusPending, model.OrderItem{MovieID: 1, PriceAtOrder: price})
	require.NoError(t, f.payments.Create(ctx, &model.Payment{OrderID: pending.ID, SessionID: "cs_prior"}))
	_, err = f.svc.Checkout(ctx, pending.ID, 7, "user@example.com")
	assert.ErrorIs(t, err, ErrPaymentExists)
}

func TestCheckoutGatewayFailure(t *testing.T) {
	f := newOrderFixture(movie(1, "Heat", "9.99"))
	ord := f.orders.seed(7, model.OrderStatusPending, model.OrderItem{MovieID: 1, PriceAtOrder: decimal.RequireFromString("9.99")})
	f.gateway.createErr = errors.New("stripe api POST /v1/checkout/sessions: 500")

	_, err := f.svc.Checkout(context.Background(), ord.ID, 7, "user@example.com")
	assert.Error(t, err)

	// the order stays pending and retryable
	got, err := f.orders.Get(context.Background(), ord.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, got.Status)
}

func TestSessionStatus(t *testing.T) {
	f := newOrderFixture()
	f.gateway.session = client.CheckoutSession{
		ID:            "cs_test_123",
		PaymentStatus: "paid",
		AmountTotal:   2498,
		Currency:      "usd",
	}

	st, err := f.svc.SessionStatus(context.Background(), "cs_test_123")
	require.NoError(t, err)
	assert.Equal(t, "paid", st.PaymentStatus)
	assert.True(t, st.AmountTotal.Equal(decimal.RequireFromString("24.98")), "got %s", st.AmountTotal)

	_, err = f.svc.SessionStatus(context.Background(), "cs_other")
	assert.Error(t, err)
}

func TestMinorUnits(t *testing.T) {
	cases := map[string]int64{
		"9.99":  999,
		"0.00":  0,
		"14.9":  1490,
		"100":   10000,
		"19.95": 1995,
	}
	for in, want := range cases {
		got := minorUnits(decimal.RequireFromString(in))
		assert.Equal(t, want, got, "minorUnits(%s)", in)
	}
}
