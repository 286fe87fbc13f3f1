// Package repository persists users, auth tokens and password reset
// tokens in MySQL. The sentinel errors below let handlers and middleware
// map storage outcomes onto the HTTP taxonomy without inspecting SQL
// errors themselves.
package repository

import "errors"

// ErrInvalidToken is returned when an access secret matches no live
// record. Unknown and expired secrets collapse into this one error on
// purpose: callers must not be able to tell which tokens once existed.
// Middleware translates it into a 401 response.
var ErrInvalidToken = errors.New("invalid or expired token")

// ErrRefreshNotFound is returned when a refresh secret matches no record.
var ErrRefreshNotFound = errors.New("refresh token not found")

// ErrRefreshExpired is returned when the matched refresh secret is past
// its expiration. Re-authentication is the only way forward; the refresh
// window is never extended.
var ErrRefreshExpired = errors.New("refresh token expired")

// ErrRefreshConflict is returned when a concurrent refresh rotated the
// access secret between our read and our compare-and-swap write. The
// losing caller is treated like an invalid refresh so exactly one fresh
// access secret remains live.
var ErrRefreshConflict = errors.New("refresh superseded by concurrent request")

// ErrResetInvalid is returned for reset secrets that are unknown,
// expired, or already consumed.
var ErrResetInvalid = errors.New("reset token invalid, expired or used")
