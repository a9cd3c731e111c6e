package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/cinemarket/movie-storefront/internal/model"
)

// TokenRepo persists refresh tokens and single-use account tokens
// (activation, password reset). Only SHA-256 hashes of token values
// are stored.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// StoreRefresh inserts a refresh token hash row.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp)
	return err
}

// ValidateRefresh returns userID if a non-revoked, non-expired token exists.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	var (
		userID    uint64
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&userID, &expiresAt, &revokedAt)
	if err != nil {
		return 0, err
	}
	if revokedAt.Valid {
		return 0, sql.ErrNoRows
	}
	if time.Now().UTC().After(expiresAt) {
		return 0, sql.ErrNoRows
	}
	return userID, nil
}

// RevokeByHash marks a token as revoked.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE token_hash=? AND revoked_at IS NULL",
		tokenHash)
	return err
}

// RevokeAllForUser revokes all of a user's active refresh tokens.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE user_id=? AND revoked_at IS NULL",
		userID)
	return err
}

// StoreActionToken replaces any existing token of the same purpose
// for the user (a fresh activation or reset request invalidates the
// previous link) and inserts the new hash.
func (r *TokenRepo) StoreActionToken(ctx context.Context, userID uint64, purpose, tokenHash string, exp time.Time) error {
	if _, err := r.DB.ExecContext(ctx,
		"DELETE FROM account_tokens WHERE user_id=? AND purpose=?", userID, purpose); err != nil {
		return err
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO account_tokens (user_id, purpose, token_hash, expires_at) VALUES (?,?,?,?)",
		userID, purpose, tokenHash, exp)
	return err
}

// ConsumeActionToken validates a token for the given purpose, deletes
// it, and returns the owning user ID. Expired or unknown tokens
// yield sql.ErrNoRows.
func (r *TokenRepo) ConsumeActionToken(ctx context.Context, purpose, tokenHash string) (uint64, error) {
	var tok model.ActionToken
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, expires_at FROM account_tokens WHERE purpose=? AND token_hash=? LIMIT 1",
		purpose, tokenHash).Scan(&tok.ID, &tok.UserID, &tok.ExpiresAt)
	if err != nil {
		return 0, err
	}
	if _, err := r.DB.ExecContext(ctx, "DELETE FROM account_tokens WHERE id=?", tok.ID); err != nil {
		return 0, err
	}
	if time.Now().UTC().After(tok.ExpiresAt) {
		return 0, sql.ErrNoRows
	}
	return tok.UserID, nil
}

// DeleteExpiredActionTokens removes stale activation/reset tokens and
// returns how many rows were deleted. Called from the background
// cleanup loop.
func (r *TokenRepo) DeleteExpiredActionTokens(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM account_tokens WHERE expires_at < ?", time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
