// Package utils provides helpers for secret generation and password hashing.
package utils

import (
	"crypto/rand"
	"encoding/base64"
)

// Byte lengths of the random material behind each secret kind.  Session
// secrets carry 64 bytes (512 bits) of entropy; reset secrets 32 bytes.
const (
	SessionSecretBytes = 64
	ResetSecretBytes   = 32
)

// NewSecret returns an opaque URL-safe secret built from n bytes of
// cryptographically secure random data.  The encoding is unpadded base64url,
// so a 64-byte secret serializes to 86 characters.  Secrets are compared by
// exact match only; they carry no structure and are never parsed.
func NewSecret(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
