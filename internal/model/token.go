package model

import "time"

// AuthToken models a row in the `auth_tokens` table. One row is created
// per login; a refresh rewrites the access half of the same row in place
// and never touches the refresh half, so the total session lifetime is
// bounded by RefreshExpiresAt no matter how often the session refreshes.
//
// Fields:
//	ID               – primary key identifier.
//	UserID           – owner of the session.
//	AccessToken      – opaque short-lived bearer secret (exact match only).
//	RefreshToken     – opaque long-lived secret used solely to mint a new
//	                   access secret.
//	AccessExpiresAt  – the access secret is invalid once now >= this.
//	RefreshExpiresAt – the refresh secret is invalid once now >= this.
//	CreatedAt        – timestamp of issuance.
type AuthToken struct {
	ID               uint64    // auth_tokens.id
	UserID           uint64    // auth_tokens.user_id
	AccessToken      string    // auth_tokens.access_token
	RefreshToken     string    // auth_tokens.refresh_token
	AccessExpiresAt  time.Time // auth_tokens.access_token_expiration
	RefreshExpiresAt time.Time // auth_tokens.refresh_token_expiration
	CreatedAt        time.Time // auth_tokens.created_at
}

// TokenPair is what the store hands back on issue and refresh: both
// secrets with their absolute expirations.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// PasswordReset models a row in the `password_resets` table. Reset
// tokens are single-use: once Used is set the row is never honored
// again, even before ExpiresAt.
type PasswordReset struct {
	ID        uint64    // password_resets.id
	UserID    uint64    // password_resets.user_id
	Token     string    // password_resets.reset_token
	ExpiresAt time.Time // password_resets.expiration
	Used      bool      // password_resets.used
	CreatedAt time.Time // password_resets.created_at
}
