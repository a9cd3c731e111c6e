package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cinemarket/movie-storefront/internal/client"
	"github.com/cinemarket/movie-storefront/internal/model"
	"github.com/cinemarket/movie-storefront/internal/repository"
)

// Checkout sessions expire on the provider side after this long; an
// abandoned session leaves the order pending until the expiry webhook
// arrives.
const checkoutSessionTTL = time.Hour

// CheckoutResult is handed back to the client, which redirects the
// customer to the hosted checkout page.
type CheckoutResult struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}

// SessionStatus reports the provider-side state of a checkout session.
type SessionStatus struct {
	SessionID     string          `json:"session_id"`
	PaymentStatus string          `json:"payment_status"`
	AmountTotal   decimal.Decimal `json:"amount_total"`
	Currency      string          `json:"currency"`
}

// OrderService is the sole authority converting carts into orders and
// applying user-facing status transitions.
type OrderService struct {
	orders   OrderStore
	carts    CartStore
	movies   MovieCatalog
	payments PaymentLedger
	gateway  client.StripeClient

	frontendURL string
	currency    string
}

func NewOrderService(orders OrderStore, carts CartStore, movies MovieCatalog, payments PaymentLedger, gateway client.StripeClient, frontendURL string) *OrderService {
	return &OrderService{
		orders:      orders,
		carts:       carts,
		movies:      movies,
		payments:    payments,
		gateway:     gateway,
		frontendURL: frontendURL,
		currency:    "usd",
	}
}

// CreateFromCart converts the user's cart into a pending order.
//
// Items whose movie was already paid for, sits in another pending
// order, or no longer exists are dropped from the cart up front, so a
// failed conversion still leaves the cart clean. The remaining items
// are snapshotted into the order and drained from the cart in one
// transaction.
func (s *OrderService) CreateFromCart(ctx context.Context, userID uint64) (model.OrderDetail, error) {
	cart, err := s.carts.GetByUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.OrderDetail{}, ErrEmptyCart
	}
	if err != nil {
		return model.OrderDetail{}, err
	}
	items, err := s.carts.Items(ctx, cart.ID)
	if err != nil {
		return model.OrderDetail{}, err
	}
	if len(items) == 0 {
		return model.OrderDetail{}, ErrEmptyCart
	}

	movieIDs := make([]uint64, 0, len(items))
	for _, it := range items {
		movieIDs = append(movieIDs, it.MovieID)
	}
	summaries, err := s.movies.SummariesByIDs(ctx, movieIDs)
	if err != nil {
		return model.OrderDetail{}, err
	}
	paid, err := s.orders.MovieIDsWithStatus(ctx, userID, model.OrderStatusPaid, movieIDs)
	if err != nil {
		return model.OrderDetail{}, err
	}
	pending, err := s.orders.MovieIDsWithStatus(ctx, userID, model.OrderStatusPending, movieIDs)
	if err != nil {
		return model.OrderDetail{}, err
	}

	skipped := &NoValidItemsError{}
	var dropped []uint64
	var eligible []uint64
	for _, id := range movieIDs {
		switch {
		case paid[id]:
			skipped.Purchased = append(skipped.Purchased, id)
			dropped = append(dropped, id)
		case pending[id]:
			skipped.Pending = append(skipped.Pending, id)
			dropped = append(dropped, id)
		default:
			if _, ok := summaries[id]; !ok {
				skipped.Unavailable = append(skipped.Unavailable, id)
				dropped = append(dropped, id)
				break
			}
			eligible = append(eligible, id)
		}
	}

	if len(dropped) > 0 {
		if err := s.carts.DeleteItems(ctx, cart.ID, dropped); err != nil {
			return model.OrderDetail{}, err
		}
	}
	if len(eligible) == 0 {
		return model.OrderDetail{}, skipped
	}

	total := decimal.Zero
	orderItems := make([]model.OrderItem, 0, len(eligible))
	for _, id := range eligible {
		price := summaries[id].Price
		total = total.Add(price)
		orderItems = append(orderItems, model.OrderItem{MovieID: id, PriceAtOrder: price})
	}

	ord := model.Order{
		UserID:      userID,
		Status:      model.OrderStatusPending,
		TotalAmount: total,
	}
	if err := s.orders.ConvertCart(ctx, &ord, orderItems, cart.ID); err != nil {
		// Another conversion for the same cart won the race and already
		// consumed (some of) these items.
		if errors.Is(err, repository.ErrConflict) {
			return model.OrderDetail{}, ErrCartConflict
		}
		return model.OrderDetail{}, err
	}
	return s.Get(ctx, ord.ID, userID)
}

// Get loads an order with items and movie summaries. userID zero skips
// the ownership check (admin and webhook paths).
func (s *OrderService) Get(ctx context.Context, orderID, userID uint64) (model.OrderDetail, error) {
	ord, err := s.orders.Get(ctx, orderID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.OrderDetail{}, ErrOrderNotFound
	}
	if err != nil {
		return model.OrderDetail{}, err
	}
	details, err := s.details(ctx, []model.Order{ord})
	if err != nil {
		return model.OrderDetail{}, err
	}
	return details[0], nil
}

// List returns a page of orders plus the total row count under the
// same filter. UserID zero lists across all users.
func (s *OrderService) List(ctx context.Context, q repository.OrderListQuery) ([]model.OrderDetail, int64, error) {
	if q.Status != "" && !model.ValidOrderStatus(q.Status) {
		return nil, 0, ErrInvalidStatus
	}
	orders, total, err := s.orders.List(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	details, err := s.details(ctx, orders)
	if err != nil {
		return nil, 0, err
	}
	return details, total, nil
}

// Cancel is the user-facing cancellation: only the owner may cancel,
// and only a pending order.
func (s *OrderService) Cancel(ctx context.Context, orderID, userID uint64) error {
	if _, err := s.orders.Get(ctx, orderID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrOrderNotFound
		}
		return err
	}
	ok, err := s.orders.UpdateStatusFrom(ctx, orderID, model.OrderStatusPending, model.OrderStatusCanceled)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidTransition
	}
	return nil
}

// UpdateStatus is the administrative transition with no ownership or
// current-status gate.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uint64, status string) error {
	if !model.ValidOrderStatus(status) {
		return ErrInvalidStatus
	}
	err := s.orders.UpdateStatus(ctx, orderID, status)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrOrderNotFound
	}
	return err
}

// Delete removes an order with its items and payment rows.
func (s *OrderService) Delete(ctx context.Context, orderID uint64) error {
	ok, err := s.orders.Delete(ctx, orderID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrOrderNotFound
	}
	return nil
}

// Checkout opens a hosted checkout session for a pending order. The
// order and user IDs travel in the session metadata so the webhook can
// correlate the provider's events back to the order.
func (s *OrderService) Checkout(ctx context.Context, orderID, userID uint64, email string) (CheckoutResult, error) {
	ord, err := s.orders.Get(ctx, orderID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return CheckoutResult{}, ErrOrderNotFound
	}
	if err != nil {
		return CheckoutResult{}, err
	}
	if ord.Status != model.OrderStatusPending {
		return CheckoutResult{}, ErrOrderNotPending
	}
	existing, err := s.payments.GetByOrderID(ctx, orderID)
	if err != nil {
		return CheckoutResult{}, err
	}
	if existing != nil {
		return CheckoutResult{}, ErrPaymentExists
	}

	itemsByOrder, err := s.orders.ItemsByOrders(ctx, []uint64{orderID})
	if err != nil {
		return CheckoutResult{}, err
	}
	items := itemsByOrder[orderID]
	movieIDs := make([]uint64, 0, len(items))
	for _, it := range items {
		movieIDs = append(movieIDs, it.MovieID)
	}
	summaries, err := s.movies.SummariesByIDs(ctx, movieIDs)
	if err != nil {
		return CheckoutResult{}, err
	}

	lineItems := make([]client.CheckoutLineItem, 0, len(items))
	for _, it := range items {
		name := fmt.Sprintf("movie #%d", it.MovieID)
		if sm, ok := summaries[it.MovieID]; ok {
			name = fmt.Sprintf("%s (%d)", sm.Name, sm.Year)
		}
		lineItems = append(lineItems, client.CheckoutLineItem{
			Name:       name,
			UnitAmount: minorUnits(it.PriceAtOrder),
			Quantity:   1,
		})
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, client.CheckoutParams{
		CustomerEmail: email,
		Currency:      s.currency,
		LineItems:     lineItems,
		Metadata: map[string]string{
			"order_id": strconv.FormatUint(orderID, 10),
			"user_id":  strconv.FormatUint(userID, 10),
		},
		SuccessURL: s.frontendURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  s.frontendURL + "/checkout/cancel",
		ExpiresAt:  time.Now().UTC().Add(checkoutSessionTTL),
	})
	if err != nil {
		return CheckoutResult{}, err
	}
	return CheckoutResult{SessionID: session.ID, CheckoutURL: session.URL}, nil
}

// SessionStatus fetches the provider-side state of a checkout session
// for polling from the success page.
func (s *OrderService) SessionStatus(ctx context.Context, sessionID string) (SessionStatus, error) {
	session, err := s.gateway.RetrieveSession(ctx, sessionID)
	if err != nil {
		return SessionStatus{}, err
	}
	return SessionStatus{
		SessionID:     session.ID,
		PaymentStatus: session.PaymentStatus,
		AmountTotal:   decimal.New(session.AmountTotal, -2),
		Currency:      session.Currency,
	}, nil
}

func (s *OrderService) details(ctx context.Context, orders []model.Order) ([]model.OrderDetail, error) {
	if len(orders) == 0 {
		return []model.OrderDetail{}, nil
	}
	orderIDs := make([]uint64, 0, len(orders))
	for _, o := range orders {
		orderIDs = append(orderIDs, o.ID)
	}
	itemsByOrder, err := s.orders.ItemsByOrders(ctx, orderIDs)
	if err != nil {
		return nil, err
	}

	var movieIDs []uint64
	seen := map[uint64]bool{}
	for _, items := range itemsByOrder {
		for _, it := range items {
			if !seen[it.MovieID] {
				seen[it.MovieID] = true
				movieIDs = append(movieIDs, it.MovieID)
			}
		}
	}
	summaries, err := s.movies.SummariesByIDs(ctx, movieIDs)
	if err != nil {
		return nil, err
	}

	out := make([]model.OrderDetail, 0, len(orders))
	for _, o := range orders {
		detail := model.OrderDetail{
			ID:          o.ID,
			UserID:      o.UserID,
			Status:      o.Status,
			TotalAmount: o.TotalAmount,
			CreatedAt:   o.CreatedAt,
			Items:       []model.OrderItemDetail{},
		}
		for _, it := range itemsByOrder[o.ID] {
			detail.Items = append(detail.Items, model.OrderItemDetail{
				ID:           it.ID,
				MovieID:      it.MovieID,
				PriceAtOrder: it.PriceAtOrder,
				Movie:        summaries[it.MovieID],
			})
		}
		out = append(out, detail)
	}
	return out, nil
}

// minorUnits converts a decimal currency amount to the provider's
// integer minor units (cents for two-decimal currencies).
func minorUnits(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}
