package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cinemarket/movie-storefront/internal/client"
	"github.com/cinemarket/movie-storefront/internal/model"
	"github.com/cinemarket/movie-storefront/internal/queue"
	"github.com/cinemarket/movie-storefront/internal/repository"
)

// In-memory fakes standing in for the SQL repositories. They keep just
// enough state for the service rules to be observable.

type fakeCatalog struct {
	movies map[uint64]model.MovieSummary
}

func newFakeCatalog(movies ...model.MovieSummary) *fakeCatalog {
	f := &fakeCatalog{movies: map[uint64]model.MovieSummary{}}
	for _, m := range movies {
		f.movies[m.ID] = m
	}
	return f
}

func (f *fakeCatalog) SummariesByIDs(_ context.Context, movieIDs []uint64) (map[uint64]model.MovieSummary, error) {
	out := map[uint64]model.MovieSummary{}
	for _, id := range movieIDs {
		if m, ok := f.movies[id]; ok {
			out[id] = m
		}
	}
	return out, nil
}

type fakeCartStore struct {
	nextCartID uint64
	nextItemID uint64
	carts      map[uint64]model.Cart       // keyed by user ID
	items      map[uint64][]model.CartItem // keyed by cart ID
}

func newFakeCartStore() *fakeCartStore {
	return &fakeCartStore{
		carts: map[uint64]model.Cart{},
		items: map[uint64][]model.CartItem{},
	}
}

func (f *fakeCartStore) GetByUser(_ context.Context, userID uint64) (model.Cart, error) {
	if c, ok := f.carts[userID]; ok {
		return c, nil
	}
	return model.Cart{}, repository.ErrNotFound
}

func (f *fakeCartStore) GetOrCreate(_ context.Context, userID uint64) (model.Cart, error) {
	if c, ok := f.carts[userID]; ok {
		return c, nil
	}
	f.nextCartID++
	c := model.Cart{ID: f.nextCartID, UserID: userID}
	f.carts[userID] = c
	return c, nil
}

func (f *fakeCartStore) Items(_ context.Context, cartID uint64) ([]model.CartItem, error) {
	return append([]model.CartItem(nil), f.items[cartID]...), nil
}

func (f *fakeCartStore) InsertItem(_ context.Context, cartID, movieID uint64) (model.CartItem, error) {
	for _, it := range f.items[cartID] {
		if it.MovieID == movieID {
			return model.CartItem{}, repository.ErrDuplicate
		}
	}
	f.nextItemID++
	it := model.CartItem{ID: f.nextItemID, CartID: cartID, MovieID: movieID, AddedAt: time.Now()}
	f.items[cartID] = append(f.items[cartID], it)
	return it, nil
}

func (f *fakeCartStore) DeleteItem(_ context.Context, cartID, movieID uint64) (bool, error) {
	items := f.items[cartID]
	for i, it := range items {
		if it.MovieID == movieID {
			f.items[cartID] = append(items[:i], items[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCartStore) DeleteItems(_ context.Context, cartID uint64, movieIDs []uint64) error {
	drop := map[uint64]bool{}
	for _, id := range movieIDs {
		drop[id] = true
	}
	var kept []model.CartItem
	for _, it := range f.items[cartID] {
		if !drop[it.MovieID] {
			kept = append(kept, it)
		}
	}
	f.items[cartID] = kept
	return nil
}

func (f *fakeCartStore) Clear(_ context.Context, cartID uint64) error {
	f.items[cartID] = nil
	return nil
}

type fakeOrderStore struct {
	nextOrderID uint64
	nextItemID  uint64
	orders      map[uint64]model.Order
	items       map[uint64][]model.OrderItem

	// cart items are drained through the same transaction as the
	// order insert, so the fake mirrors that coupling
	carts *fakeCartStore

	convertErr error

	// runs once at the start of ConvertCart, after the caller's
	// eligibility reads; used to interleave a rival conversion
	beforeConvert func()
}

func newFakeOrderStore(carts *fakeCartStore) *fakeOrderStore {
	return &fakeOrderStore{
		orders: map[uint64]model.Order{},
		items:  map[uint64][]model.OrderItem{},
		carts:  carts,
	}
}

func (f *fakeOrderStore) MovieIDsWithStatus(_ context.Context, userID uint64, status string, movieIDs []uint64) (map[uint64]bool, error) {
	want := map[uint64]bool{}
	for _, id := range movieIDs {
		want[id] = true
	}
	out := map[uint64]bool{}
	for id, o := range f.orders {
		if o.UserID != userID || o.Status != status {
			continue
		}
		for _, it := range f.items[id] {
			if want[it.MovieID] {
				out[it.MovieID] = true
			}
		}
	}
	return out, nil
}

func (f *fakeOrderStore) HasMovieWithStatus(ctx context.Context, userID, movieID uint64, status string) (bool, error) {
	m, err := f.MovieIDsWithStatus(ctx, userID, status, []uint64{movieID})
	if err != nil {
		return false, err
	}
	return m[movieID], nil
}

func (f *fakeOrderStore) ConvertCart(ctx context.Context, ord *model.Order, items []model.OrderItem, cartID uint64) error {
	if f.convertErr != nil {
		return f.convertErr
	}
	if f.beforeConvert != nil {
		hook := f.beforeConvert
		f.beforeConvert = nil
		hook()
	}

	movieIDs := make([]uint64, 0, len(items))
	for _, it := range items {
		movieIDs = append(movieIDs, it.MovieID)
	}
	if f.carts != nil {
		// same gate as the SQL transaction: a cart row consumed by a
		// rival conversion aborts this one
		present := map[uint64]bool{}
		for _, ci := range f.carts.items[cartID] {
			present[ci.MovieID] = true
		}
		for _, id := range movieIDs {
			if !present[id] {
				return repository.ErrConflict
			}
		}
	}

	f.nextOrderID++
	ord.ID = f.nextOrderID
	ord.CreatedAt = time.Now()
	f.orders[ord.ID] = *ord

	for _, it := range items {
		f.nextItemID++
		it.ID = f.nextItemID
		it.OrderID = ord.ID
		f.items[ord.ID] = append(f.items[ord.ID], it)
	}
	if f.carts != nil {
		return f.carts.DeleteItems(ctx, cartID, movieIDs)
	}
	return nil
}

func (f *fakeOrderStore) Get(_ context.Context, orderID, userID uint64) (model.Order, error) {
	o, ok := f.orders[orderID]
	if !ok || (userID != 0 && o.UserID != userID) {
		return model.Order{}, repository.ErrNotFound
	}
	return o, nil
}

func (f *fakeOrderStore) ItemsByOrders(_ context.Context, orderIDs []uint64) (map[uint64][]model.OrderItem, error) {
	out := map[uint64][]model.OrderItem{}
	for _, id := range orderIDs {
		if items, ok := f.items[id]; ok {
			out[id] = append([]model.OrderItem(nil), items...)
		}
	}
	return out, nil
}

func (f *fakeOrderStore) List(_ context.Context, q repository.OrderListQuery) ([]model.Order, int64, error) {
	var matched []model.Order
	for _, o := range f.orders {
		if q.UserID != 0 && o.UserID != q.UserID {
			continue
		}
		if q.Status != "" && o.Status != q.Status {
			continue
		}
		matched = append(matched, o)
	}
	total := int64(len(matched))
	if q.Skip >= len(matched) {
		return nil, total, nil
	}
	matched = matched[q.Skip:]
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}
	return matched, total, nil
}

func (f *fakeOrderStore) UpdateStatus(_ context.Context, orderID uint64, status string) error {
	o, ok := f.orders[orderID]
	if !ok {
		return repository.ErrNotFound
	}
	o.Status = status
	f.orders[orderID] = o
	return nil
}

func (f *fakeOrderStore) UpdateStatusFrom(_ context.Context, orderID uint64, from, to string) (bool, error) {
	o, ok := f.orders[orderID]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	f.orders[orderID] = o
	return true, nil
}

func (f *fakeOrderStore) Delete(_ context.Context, orderID uint64) (bool, error) {
	if _, ok := f.orders[orderID]; !ok {
		return false, nil
	}
	delete(f.orders, orderID)
	delete(f.items, orderID)
	return true, nil
}

// seed inserts an order with items directly, bypassing conversion.
func (f *fakeOrderStore) seed(userID uint64, status string, items ...model.OrderItem) model.Order {
	f.nextOrderID++
	o := model.Order{ID: f.nextOrderID, UserID: userID, Status: status, CreatedAt: time.Now()}
	for _, it := range items {
		f.nextItemID++
		it.ID = f.nextItemID
		it.OrderID = o.ID
		f.items[o.ID] = append(f.items[o.ID], it)
		o.TotalAmount = o.TotalAmount.Add(it.PriceAtOrder)
	}
	f.orders[o.ID] = o
	return o
}

type fakePaymentLedger struct {
	nextID    int
	bySession map[string]*model.Payment
	createErr error
}

func newFakePaymentLedger() *fakePaymentLedger {
	return &fakePaymentLedger{bySession: map[string]*model.Payment{}}
}

func (f *fakePaymentLedger) Create(_ context.Context, p *model.Payment) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.bySession[p.SessionID]; ok {
		return repository.ErrDuplicate
	}
	f.nextID++
	p.ID = uint64(f.nextID)
	p.CreatedAt = time.Now()
	cp := *p
	f.bySession[p.SessionID] = &cp
	return nil
}

func (f *fakePaymentLedger) GetBySessionID(_ context.Context, sessionID string) (*model.Payment, error) {
	if p, ok := f.bySession[sessionID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (f *fakePaymentLedger) GetByOrderID(_ context.Context, orderID uint64) (*model.Payment, error) {
	for _, p := range f.bySession {
		if p.OrderID == orderID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

type fakeNotifier struct {
	confirmed []queue.OrderConfirmedEvent
	err       error
}

func (f *fakeNotifier) OrderConfirmed(_ context.Context, ev queue.OrderConfirmedEvent) error {
	if f.err != nil {
		return f.err
	}
	f.confirmed = append(f.confirmed, ev)
	return nil
}

type fakeGateway struct {
	session    client.CheckoutSession
	createErr  error
	lastParams client.CheckoutParams
}

func (f *fakeGateway) CreateCheckoutSession(_ context.Context, params client.CheckoutParams) (*client.CheckoutSession, error) {
	f.lastParams = params
	if f.createErr != nil {
		return nil, f.createErr
	}
	cp := f.session
	return &cp, nil
}

func (f *fakeGateway) RetrieveSession(_ context.Context, sessionID string) (*client.CheckoutSession, error) {
	if f.session.ID != sessionID {
		return nil, fmt.Errorf("no such session %q", sessionID)
	}
	cp := f.session
	return &cp, nil
}
