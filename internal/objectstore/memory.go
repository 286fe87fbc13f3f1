package objectstore

import (
	"context"
	"sync"
)

// Memory is an in-process Store used when the gateway runs without a
// host platform attached (local development, tests). Records keep their
// insertion order per kind so pagination is stable.
type Memory struct {
	mu     sync.RWMutex
	nextID uint64
	kinds  map[string][]Record
}

func NewMemory() *Memory {
	return &Memory{nextID: 1, kinds: make(map[string][]Record)}
}

func matches(rec Record, filter Filter) bool {
	for k, v := range filter {
		if rec[k] != v {
			return false
		}
	}
	return true
}

func (m *Memory) Search(_ context.Context, kind string, filter Filter, offset, limit int) ([]Record, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var hits []Record
	for _, rec := range m.kinds[kind] {
		if matches(rec, filter) {
			hits = append(hits, rec)
		}
	}
	total := len(hits)
	if offset >= total {
		return nil, total, nil
	}
	hits = hits[offset:]
	if limit > 0 && limit < len(hits) {
		hits = hits[:limit]
	}
	out := make([]Record, len(hits))
	for i, rec := range hits {
		out[i] = cloneRecord(rec)
	}
	return out, total, nil
}

func (m *Memory) Create(_ context.Context, kind string, values Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := cloneRecord(values)
	rec["id"] = m.nextID
	m.nextID++
	m.kinds[kind] = append(m.kinds[kind], rec)
	return cloneRecord(rec), nil
}

func (m *Memory) Write(_ context.Context, kind string, id uint64, values Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range m.kinds[kind] {
		if rec["id"] == id {
			for k, v := range values {
				if k == "id" {
					continue
				}
				rec[k] = v
			}
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) Unlink(_ context.Context, kind string, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs := m.kinds[kind]
	for i, rec := range recs {
		if rec["id"] == id {
			m.kinds[kind] = append(recs[:i], recs[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func cloneRecord(rec Record) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}
