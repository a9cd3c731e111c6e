package service

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cinemarket/movie-storefront/internal/client"
	"github.com/cinemarket/movie-storefront/internal/model"
	"github.com/cinemarket/movie-storefront/internal/queue"
	"github.com/cinemarket/movie-storefront/internal/repository"
)

// PaymentService applies verified payment-provider events to the order
// and payment tables. The provider delivers at least once, so every
// mutation checks for a prior effect before applying.
type PaymentService struct {
	orders   OrderStore
	payments PaymentLedger
	movies   MovieCatalog
	notifier Notifier
}

func NewPaymentService(orders OrderStore, payments PaymentLedger, movies MovieCatalog, notifier Notifier) *PaymentService {
	return &PaymentService{orders: orders, payments: payments, movies: movies, notifier: notifier}
}

// HandleEvent dispatches a verified webhook event. Unrecognized event
// types are acknowledged without action so new provider event types do
// not break deliveries.
func (s *PaymentService) HandleEvent(ctx context.Context, ev client.Event) error {
	switch ev.Type {
	case "checkout.session.completed":
		return s.sessionCompleted(ctx, ev)
	case "checkout.session.expired":
		return s.sessionExpired(ctx, ev)
	case "payment_intent.payment_failed":
		// Hook point only; the session-expired event drives cancellation.
		return nil
	default:
		return nil
	}
}

func (s *PaymentService) sessionCompleted(ctx context.Context, ev client.Event) error {
	sess, err := ev.Session()
	if err != nil {
		return err
	}
	orderID, userID, err := sessionCorrelation(sess)
	if err != nil {
		return err
	}

	// Redelivered events must not record a second payment.
	existing, err := s.payments.GetBySessionID(ctx, sess.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	payment := model.Payment{
		UserID:          userID,
		OrderID:         orderID,
		SessionID:       sess.ID,
		PaymentIntentID: sess.PaymentIntent,
		Status:          model.PaymentStatusSuccessful,
		Amount:          decimal.New(sess.AmountTotal, -2),
		Currency:        sess.Currency,
	}
	if err := s.payments.Create(ctx, &payment); err != nil {
		// A concurrent delivery won the unique index on session_id;
		// the payment is recorded, so this delivery succeeded too.
		if errors.Is(err, repository.ErrDuplicate) {
			return nil
		}
		return err
	}

	if err := s.orders.UpdateStatus(ctx, orderID, model.OrderStatusPaid); err != nil {
		return err
	}

	s.notifyConfirmed(ctx, orderID, userID, sess, payment)
	return nil
}

func (s *PaymentService) sessionExpired(ctx context.Context, ev client.Event) error {
	sess, err := ev.Session()
	if err != nil {
		return err
	}
	orderID, _, err := sessionCorrelation(sess)
	if err != nil {
		return err
	}
	// Only a pending order may expire into canceled. A late expiry
	// event for an order that already settled is acknowledged without
	// touching the paid status.
	_, err = s.orders.UpdateStatusFrom(ctx, orderID, model.OrderStatusPending, model.OrderStatusCanceled)
	return err
}

// notifyConfirmed publishes the order-confirmation event. Fire and
// forget: a broker outage must not fail an already-recorded payment.
func (s *PaymentService) notifyConfirmed(ctx context.Context, orderID, userID uint64, sess client.CheckoutSession, payment model.Payment) {
	itemsByOrder, err := s.orders.ItemsByOrders(ctx, []uint64{orderID})
	if err != nil {
		log.Printf("payment: load order %d items for notification: %v", orderID, err)
		return
	}
	items := itemsByOrder[orderID]
	movieIDs := make([]uint64, 0, len(items))
	for _, it := range items {
		movieIDs = append(movieIDs, it.MovieID)
	}
	summaries, err := s.movies.SummariesByIDs(ctx, movieIDs)
	if err != nil {
		log.Printf("payment: load movie summaries for notification: %v", err)
		return
	}

	ev := queue.OrderConfirmedEvent{
		OrderID:     orderID,
		UserID:      userID,
		Email:       sess.CustomerEmail,
		TotalAmount: payment.Amount.StringFixed(2),
		Currency:    payment.Currency,
		PaidAt:      time.Now().UTC().Format(time.RFC3339),
	}
	for _, it := range items {
		sm := summaries[it.MovieID]
		ev.Items = append(ev.Items, queue.OrderConfirmedItem{
			Name:  sm.Name,
			Year:  sm.Year,
			Price: it.PriceAtOrder.StringFixed(2),
		})
	}
	if err := s.notifier.OrderConfirmed(ctx, ev); err != nil {
		log.Printf("payment: publish order confirmation for order %d: %v", orderID, err)
	}
}

// sessionCorrelation extracts the order and user IDs the checkout flow
// stored in the session metadata. Missing metadata is an integration
// bug and rejected loudly.
func sessionCorrelation(sess client.CheckoutSession) (orderID, userID uint64, err error) {
	orderID, err = parseMetaID(sess.Metadata["order_id"])
	if err != nil {
		return 0, 0, ErrMissingMetadata
	}
	userID, err = parseMetaID(sess.Metadata["user_id"])
	if err != nil {
		return 0, 0, ErrMissingMetadata
	}
	return orderID, userID, nil
}

func parseMetaID(s string) (uint64, error) {
	if s == "" {
		return 0, ErrMissingMetadata
	}
	return strconv.ParseUint(s, 10, 64)
}
