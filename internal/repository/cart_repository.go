package repository

import (
	"context"
	"database/sql"

	"github.com/cinemarket/movie-storefront/internal/model"
)

// CartRepo manages the per-user cart and its items. A cart is
// created lazily on first access and never deleted; (cart_id,
// movie_id) is unique so a movie sits in a cart at most once.
type CartRepo struct{ db *sql.DB }

func NewCartRepo(db *sql.DB) *CartRepo { return &CartRepo{db: db} }

// GetByUser returns the user's cart or ErrNotFound.
func (r *CartRepo) GetByUser(ctx context.Context, userID uint64) (model.Cart, error) {
	var c model.Cart
	err := r.db.QueryRowContext(ctx,
		"SELECT id, user_id FROM carts WHERE user_id=? LIMIT 1", userID).
		Scan(&c.ID, &c.UserID)
	if err == sql.ErrNoRows {
		return model.Cart{}, ErrNotFound
	}
	return c, err
}

// GetOrCreate returns the user's cart, creating it on first access.
// A concurrent create racing on the unique user_id column falls back
// to re-reading the winner's row.
func (r *CartRepo) GetOrCreate(ctx context.Context, userID uint64) (model.Cart, error) {
	c, err := r.GetByUser(ctx, userID)
	if err == nil {
		return c, nil
	}
	if err != ErrNotFound {
		return model.Cart{}, err
	}
	res, err := r.db.ExecContext(ctx, "INSERT INTO carts (user_id) VALUES (?)", userID)
	if err != nil {
		if isDuplicateKey(err) {
			return r.GetByUser(ctx, userID)
		}
		return model.Cart{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Cart{}, err
	}
	return model.Cart{ID: uint64(id), UserID: userID}, nil
}

// Items lists all items of a cart, oldest first.
func (r *CartRepo) Items(ctx context.Context, cartID uint64) ([]model.CartItem, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, cart_id, movie_id, added_at FROM cart_items WHERE cart_id=? ORDER BY added_at, id", cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []model.CartItem{}
	for rows.Next() {
		var it model.CartItem
		if err := rows.Scan(&it.ID, &it.CartID, &it.MovieID, &it.AddedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// InsertItem adds a movie to the cart. A duplicate (cart, movie)
// pair yields ErrDuplicate from the unique index, which also covers
// two concurrent adds of the same movie.
func (r *CartRepo) InsertItem(ctx context.Context, cartID, movieID uint64) (model.CartItem, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO cart_items (cart_id, movie_id) VALUES (?,?)", cartID, movieID)
	if err != nil {
		if isDuplicateKey(err) {
			return model.CartItem{}, ErrDuplicate
		}
		return model.CartItem{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.CartItem{}, err
	}
	var it model.CartItem
	err = r.db.QueryRowContext(ctx,
		"SELECT id, cart_id, movie_id, added_at FROM cart_items WHERE id=? LIMIT 1", uint64(id)).
		Scan(&it.ID, &it.CartID, &it.MovieID, &it.AddedAt)
	return it, err
}

// DeleteItem removes a movie from the cart, reporting whether a row
// was actually deleted. Absence is not an error.
func (r *CartRepo) DeleteItem(ctx context.Context, cartID, movieID uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM cart_items WHERE cart_id=? AND movie_id=?", cartID, movieID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteItems removes the given movies from the cart in one statement.
func (r *CartRepo) DeleteItems(ctx context.Context, cartID uint64, movieIDs []uint64) error {
	if len(movieIDs) == 0 {
		return nil
	}
	args := append([]any{cartID}, idArgs(movieIDs)...)
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM cart_items WHERE cart_id=? AND movie_id IN ("+placeholders(len(movieIDs))+")", args...)
	return err
}

// Clear empties the cart. Clearing an already empty cart is a no-op.
func (r *CartRepo) Clear(ctx context.Context, cartID uint64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM cart_items WHERE cart_id=?", cartID)
	return err
}
