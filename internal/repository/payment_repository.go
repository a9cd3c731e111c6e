package repository

import (
	"context"
	"database/sql"

	"github.com/cinemarket/movie-storefront/internal/model"
)

// PaymentRepo records settled checkout sessions. The session_id
// column carries a UNIQUE index, so a concurrent duplicate delivery
// of the same webhook surfaces here as ErrDuplicate.
type PaymentRepo struct{ db *sql.DB }

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// Create inserts the payment and one payment_items row per order
// item, snapshotting the order-time price as price_at_payment, in a
// single transaction.
func (r *PaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO payments (user_id, order_id, session_id, payment_intent_id, status, amount, currency)
		 VALUES (?,?,?,?,?,?,?)`,
		p.UserID, p.OrderID, p.SessionID, p.PaymentIntentID, p.Status, p.Amount, p.Currency)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO payment_items (payment_id, order_item_id, price_at_payment)
		 SELECT ?, id, price_at_order FROM order_items WHERE order_id=?`,
		p.ID, p.OrderID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetBySessionID returns the payment for a checkout session, or nil
// when none has been recorded yet.
func (r *PaymentRepo) GetBySessionID(ctx context.Context, sessionID string) (*model.Payment, error) {
	return r.getWhere(ctx, "session_id=?", sessionID)
}

// GetByOrderID returns the payment attached to an order, or nil.
func (r *PaymentRepo) GetByOrderID(ctx context.Context, orderID uint64) (*model.Payment, error) {
	return r.getWhere(ctx, "order_id=?", orderID)
}

func (r *PaymentRepo) getWhere(ctx context.Context, cond string, arg any) (*model.Payment, error) {
	var p model.Payment
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, order_id, session_id, payment_intent_id, status, amount, currency, created_at
		 FROM payments WHERE `+cond+` LIMIT 1`, arg).
		Scan(&p.ID, &p.UserID, &p.OrderID, &p.SessionID, &p.PaymentIntentID,
			&p.Status, &p.Amount, &p.Currency, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
