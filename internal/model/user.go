package model

import "time"

// Role names stored in users.role. Moderators manage the catalog;
// admins additionally manage orders and other users' accounts.
const (
	RoleUser      = "USER"
	RoleModerator = "MODERATOR"
	RoleAdmin     = "ADMIN"
)

// User represents an application user record as stored in the
// `users` table. Accounts start inactive and become active once the
// activation token is redeemed; only active accounts may log in.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique, normalized (lower-cased) email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – role name (USER, MODERATOR or ADMIN).
//  IsActive     – whether the account has been activated.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// Profile holds the optional descriptive data a user may attach to
// their account. The avatar is an opaque URL; file storage lives in
// an external service.
type Profile struct {
	ID          uint64     // user_profiles.id
	UserID      uint64     // user_profiles.user_id (unique)
	FirstName   *string    // user_profiles.first_name (nullable)
	LastName    *string    // user_profiles.last_name (nullable)
	Avatar      *string    // user_profiles.avatar (nullable URL)
	Gender      *string    // user_profiles.gender (MAN/WOMAN, nullable)
	DateOfBirth *time.Time // user_profiles.date_of_birth (nullable)
	Info        *string    // user_profiles.info (nullable free text)
}

// RefreshToken models an entry in the `refresh_tokens` table. Each
// refresh token belongs to a user and contains metadata for expiry
// and revocation. The plain token is never stored; only its SHA-256
// hash.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}

// ActionToken models a single-use account token (activation or
// password reset). Both kinds share one shape: a hashed token bound
// to exactly one user with an expiry. The purpose column keeps the
// two flows apart so a reset token can never activate an account.
type ActionToken struct {
	ID        uint64    // account_tokens.id
	UserID    uint64    // account_tokens.user_id
	Purpose   string    // account_tokens.purpose
	TokenHash string    // account_tokens.token_hash
	ExpiresAt time.Time // account_tokens.expires_at
}

// Purposes stored in account_tokens.purpose.
const (
	TokenPurposeActivation    = "ACTIVATION"
	TokenPurposePasswordReset = "PASSWORD_RESET"
)
