package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/cinemarket/movie-storefront/internal/model"
)

// OrderRepo owns the orders and order_items tables. Orders are
// immutable after creation except for the status column; all
// multi-row mutations run inside a single transaction.
type OrderRepo struct{ db *sql.DB }

func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// MovieIDsWithStatus returns, out of movieIDs, the set that appears
// in any of the user's orders with the given status. Used for the
// purchase-eligibility partition.
func (r *OrderRepo) MovieIDsWithStatus(ctx context.Context, userID uint64, status string, movieIDs []uint64) (map[uint64]bool, error) {
	out := map[uint64]bool{}
	if len(movieIDs) == 0 {
		return out, nil
	}
	args := append([]any{userID, status}, idArgs(movieIDs)...)
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT oi.movie_id
		 FROM order_items oi
		 JOIN orders o ON o.id = oi.order_id
		 WHERE o.user_id=? AND o.status=? AND oi.movie_id IN (`+placeholders(len(movieIDs))+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

// HasMovieWithStatus reports whether the user has an order with the
// given status containing the movie.
func (r *OrderRepo) HasMovieWithStatus(ctx context.Context, userID, movieID uint64, status string) (bool, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*)
		 FROM order_items oi
		 JOIN orders o ON o.id = oi.order_id
		 WHERE o.user_id=? AND o.status=? AND oi.movie_id=?`, userID, status, movieID).Scan(&n)
	return n > 0, err
}

// ConvertCart atomically creates the order with its items and drains
// the consumed movies from the cart. Either everything is persisted
// or nothing is. The generated order ID is written back to ord.
//
// The cart drain doubles as the concurrency gate: when a parallel
// conversion for the same cart committed first, the DELETE finds fewer
// rows than items and the whole transaction rolls back with
// ErrConflict.
func (r *OrderRepo) ConvertCart(ctx context.Context, ord *model.Order, items []model.OrderItem, cartID uint64) error {
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
		"INSERT INTO orders (user_id, status, total_amount) VALUES (?,?,?)",
		ord.UserID, ord.Status, ord.TotalAmount)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ord.ID = uint64(id)

	if len(items) > 0 {
		query := "INSERT INTO order_items (order_id, movie_id, price_at_order) VALUES "
		args := make([]any, 0, len(items)*3)
		movieIDs := make([]uint64, 0, len(items))
		for i := range items {
			if i > 0 {
				query += ","
			}
			query += "(?, ?, ?)"
			args = append(args, ord.ID, items[i].MovieID, items[i].PriceAtOrder)
			movieIDs = append(movieIDs, items[i].MovieID)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
		drainArgs := append([]any{cartID}, idArgs(movieIDs)...)
		res, err := tx.ExecContext(ctx,
			"DELETE FROM cart_items WHERE cart_id=? AND movie_id IN ("+placeholders(len(movieIDs))+")",
			drainArgs...)
		if err != nil {
			return err
		}
		drained, err := res.RowsAffected()
		if err != nil {
			return err
		}
		// A concurrent conversion that committed first already consumed
		// some of these cart rows; this conversion must lose, not create
		// a second order for the same movies.
		if drained < int64(len(items)) {
			return ErrConflict
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Get loads a single order. When userID is non-zero the lookup is
// ownership-scoped and foreign orders surface as ErrNotFound.
func (r *OrderRepo) Get(ctx context.Context, orderID, userID uint64) (model.Order, error) {
	q := "SELECT id, user_id, status, total_amount, created_at FROM orders WHERE id=?"
	args := []any{orderID}
	if userID != 0 {
		q += " AND user_id=?"
		args = append(args, userID)
	}
	var o model.Order
	err := r.db.QueryRowContext(ctx, q+" LIMIT 1", args...).
		Scan(&o.ID, &o.UserID, &o.Status, &o.TotalAmount, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return model.Order{}, ErrNotFound
	}
	return o, err
}

// ItemsByOrders loads items for the given orders keyed by order ID.
func (r *OrderRepo) ItemsByOrders(ctx context.Context, orderIDs []uint64) (map[uint64][]model.OrderItem, error) {
	out := map[uint64][]model.OrderItem{}
	if len(orderIDs) == 0 {
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, order_id, movie_id, price_at_order
		 FROM order_items WHERE order_id IN (`+placeholders(len(orderIDs))+`) ORDER BY id`,
		idArgs(orderIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.MovieID, &it.PriceAtOrder); err != nil {
			return nil, err
		}
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	return out, rows.Err()
}

// OrderListQuery defines the filter and page for order listings.
// UserID zero means all users (admin listing).
type OrderListQuery struct {
	UserID uint64
	Status string
	Skip   int
	Limit  int
}

// List returns a page of orders newest first plus the total count
// under the same filter, counted independently of skip/limit.
func (r *OrderRepo) List(ctx context.Context, q OrderListQuery) ([]model.Order, int64, error) {
	where := []string{}
	args := []any{}
	if q.UserID != 0 {
		where = append(where, "user_id=?")
		args = append(args, q.UserID)
	}
	if q.Status != "" {
		where = append(where, "status=?")
		args = append(args, q.Status)
	}
	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM orders WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	dataArgs := append(append([]any{}, args...), limit, q.Skip)
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, status, total_amount, created_at
		 FROM orders WHERE `+cond+`
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`, dataArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]model.Order, 0, limit)
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.TotalAmount, &o.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, o)
	}
	return out, total, rows.Err()
}

// UpdateStatus sets the status unconditionally (administrative and
// webhook path). ErrNotFound when the order does not exist.
func (r *OrderRepo) UpdateStatus(ctx context.Context, orderID uint64, status string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE orders SET status=? WHERE id=?", status, orderID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Zero rows also means "already in that status"; only a
		// missing order is an error.
		var exists int
		err := r.db.QueryRowContext(ctx, "SELECT 1 FROM orders WHERE id=?", orderID).Scan(&exists)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// UpdateStatusFrom transitions the order only when it currently has
// the expected status, reporting whether a transition happened. The
// conditional WHERE makes the guarded webhook transition atomic.
func (r *OrderRepo) UpdateStatusFrom(ctx context.Context, orderID uint64, from, to string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE orders SET status=? WHERE id=? AND status=?", to, orderID, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Delete removes an order with its items and any attached payment
// rows (admin only). Reports whether the order existed.
func (r *OrderRepo) Delete(ctx context.Context, orderID uint64) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM payment_items WHERE payment_id IN (SELECT id FROM payments WHERE order_id=?)", orderID); err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM payments WHERE order_id=?", orderID); err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM order_items WHERE order_id=?", orderID); err != nil {
		return false, err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM orders WHERE id=?", orderID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	committed = true
	return n > 0, nil
}
