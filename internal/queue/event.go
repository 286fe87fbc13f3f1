// Package queue defines message payloads exchanged over the message
// broker and the background consumer that drains them.
package queue

// PasswordResetEvent is published when a user requests a password reset.
// It carries everything the mail worker needs to compose the message
// without querying the primary database. Timestamps are RFC 3339 strings.
type PasswordResetEvent struct {
	UserID      uint64 `json:"user_id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	ResetToken  string `json:"reset_token"`
	ExpiresAt   string `json:"expires_at"`
	RequestedAt string `json:"requested_at"`
}

// PasswordResetQueue is the broker queue the event travels on.
const PasswordResetQueue = "password.reset_requested"
