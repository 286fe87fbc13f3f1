// Package policy defines the seam to the host platform's permission
// engine. The gateway never decides permissions itself; it asks a Checker
// and fails closed on anything that is not an explicit allow.
package policy

import (
	"context"
	"errors"

	"github.com/braincrm/api-gateway/internal/model"
)

// Operation enumerates the record operations a request may perform.
type Operation string

const (
	OpRead   Operation = "read"
	OpWrite  Operation = "write"
	OpCreate Operation = "create"
	OpUnlink Operation = "unlink"
)

// Valid reports whether op is one of the four known operations.
func (op Operation) Valid() bool {
	switch op {
	case OpRead, OpWrite, OpCreate, OpUnlink:
		return true
	}
	return false
}

// ErrDenied is the explicit denial answer from a Checker. Any other
// non-nil error from CheckAccess is treated exactly the same way by
// callers (fail closed), but keeping the sentinel lets checkers be
// precise in logs.
var ErrDenied = errors.New("access denied")

// Checker decides whether a principal may perform an operation on a
// resource kind. Implementations live in the host platform; the gateway
// only ships the Static stand-in below.
type Checker interface {
	CheckAccess(ctx context.Context, p model.Principal, kind string, op Operation) error
}

// Static is an allow-list Checker: a set of (kind, operation) pairs that
// every authenticated principal may use. Anything absent is denied.
// Useful for wiring and tests; not a substitute for the platform engine.
type Static map[string]map[Operation]bool

// Allow marks the (kind, op) pair as permitted and returns the receiver
// so grants can be chained.
func (s Static) Allow(kind string, ops ...Operation) Static {
	m := s[kind]
	if m == nil {
		m = make(map[Operation]bool, len(ops))
		s[kind] = m
	}
	for _, op := range ops {
		m[op] = true
	}
	return s
}

func (s Static) CheckAccess(_ context.Context, _ model.Principal, kind string, op Operation) error {
	if s[kind][op] {
		return nil
	}
	return ErrDenied
}
