package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/cinemarket/movie-storefront/internal/model"
	"github.com/cinemarket/movie-storefront/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

// Create inserts an inactive user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, email, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role, is_active) VALUES (?,?,?,0)",
		email, hash, role)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,password_hash,role,is_active,created_at,updated_at FROM users WHERE email=? LIMIT 1",
		email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,password_hash,role,is_active,created_at,updated_at FROM users WHERE id=? LIMIT 1",
		id).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// Activate flips is_active for the user. Activating an already
// active account is a no-op.
func (r *UserRepo) Activate(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET is_active=1 WHERE id=?", userID)
	return err
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, userID uint64, password string, cost int) error {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=? WHERE id=?", hash, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// RowsAffected is 0 both for a missing user and for an
		// unchanged hash; only the missing user matters here.
		var exists int
		if err := r.DB.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id=?", userID).Scan(&exists); err != nil {
			return ErrNotFound
		}
	}
	return nil
}

// GetProfile loads the user's profile, creating an empty row on
// first access so callers always receive a profile to render.
func (r *UserRepo) GetProfile(ctx context.Context, userID uint64) (model.Profile, error) {
	p, err := r.scanProfile(ctx, userID)
	if err == nil {
		return p, nil
	}
	if err != sql.ErrNoRows {
		return model.Profile{}, err
	}
	if _, err := r.DB.ExecContext(ctx,
		"INSERT INTO user_profiles (user_id) VALUES (?)", userID); err != nil && !isDuplicateKey(err) {
		return model.Profile{}, err
	}
	return r.scanProfile(ctx, userID)
}

// UpdateProfile overwrites the mutable profile columns.
func (r *UserRepo) UpdateProfile(ctx context.Context, p model.Profile) (model.Profile, error) {
	if _, err := r.GetProfile(ctx, p.UserID); err != nil {
		return model.Profile{}, err
	}
	_, err := r.DB.ExecContext(ctx,
		`UPDATE user_profiles
		 SET first_name=?, last_name=?, avatar=?, gender=?, date_of_birth=?, info=?
		 WHERE user_id=?`,
		p.FirstName, p.LastName, p.Avatar, p.Gender, p.DateOfBirth, p.Info, p.UserID)
	if err != nil {
		return model.Profile{}, err
	}
	return r.scanProfile(ctx, p.UserID)
}

func (r *UserRepo) scanProfile(ctx context.Context, userID uint64) (model.Profile, error) {
	var (
		p      model.Profile
		first  sql.NullString
		last   sql.NullString
		avatar sql.NullString
		gender sql.NullString
		dob    sql.NullTime
		info   sql.NullString
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, user_id, first_name, last_name, avatar, gender, date_of_birth, info
		 FROM user_profiles WHERE user_id=? LIMIT 1`, userID).
		Scan(&p.ID, &p.UserID, &first, &last, &avatar, &gender, &dob, &info)
	if err != nil {
		return model.Profile{}, err
	}
	if first.Valid {
		p.FirstName = &first.String
	}
	if last.Valid {
		p.LastName = &last.String
	}
	if avatar.Valid {
		p.Avatar = &avatar.String
	}
	if gender.Valid {
		p.Gender = &gender.String
	}
	if dob.Valid {
		t := dob.Time
		p.DateOfBirth = &t
	}
	if info.Valid {
		p.Info = &info.String
	}
	return p, nil
}
