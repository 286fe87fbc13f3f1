// Package objectstore is the seam to the host platform's record layer.
// The gateway treats records as schemaless documents grouped by kind and
// only ever searches, creates, writes or unlinks them; field semantics
// belong to the platform.
package objectstore

import (
	"context"
	"errors"
)

// Record is a schemaless record as exposed by the host platform. The
// "id" field is always present on records returned by a Store.
type Record map[string]any

// Filter is an equality filter over record fields. A nil or empty filter
// matches every record of the kind.
type Filter map[string]any

// ErrNotFound is returned by Write and Unlink for unknown record ids.
var ErrNotFound = errors.New("record not found")

// Store is the record collaborator contract. Search returns one page of
// matches plus the total match count so callers can paginate.
type Store interface {
	Search(ctx context.Context, kind string, filter Filter, offset, limit int) ([]Record, int, error)
	Create(ctx context.Context, kind string, values Record) (Record, error)
	Write(ctx context.Context, kind string, id uint64, values Record) error
	Unlink(ctx context.Context, kind string, id uint64) error
}
