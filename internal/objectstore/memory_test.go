package objectstore

import (
	"context"
	"testing"
)

func seed(t *testing.T, m *Memory, kind string, names ...string) {
	t.Helper()
	for _, n := range names {
		if _, err := m.Create(context.Background(), kind, Record{"name": n}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
}

func TestMemorySearchPagination(t *testing.T) {
	m := NewMemory()
	seed(t, m, "crm.lead", "a", "b", "c", "d", "e")

	page, total, err := m.Search(context.Background(), "crm.lead", nil, 2, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if total != 5 {
		t.Fatalf("expected total 5, got %d", total)
	}
	if len(page) != 2 || page[0]["name"] != "c" || page[1]["name"] != "d" {
		t.Fatalf("unexpected page: %v", page)
	}

	// Offset past the end yields an empty page, not an error.
	page, total, err = m.Search(context.Background(), "crm.lead", nil, 10, 2)
	if err != nil || total != 5 || len(page) != 0 {
		t.Fatalf("expected empty page with total 5, got %v %d %v", page, total, err)
	}
}

func TestMemorySearchFilter(t *testing.T) {
	m := NewMemory()
	seed(t, m, "res.partner", "a", "b")
	if _, err := m.Create(context.Background(), "res.partner", Record{"name": "a", "city": "Lima"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	hits, total, err := m.Search(context.Background(), "res.partner", Filter{"name": "a"}, 0, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if total != 2 || len(hits) != 2 {
		t.Fatalf("expected 2 matches, got total=%d len=%d", total, len(hits))
	}
}

func TestMemoryKindsAreIsolated(t *testing.T) {
	m := NewMemory()
	seed(t, m, "crm.lead", "a")
	_, total, err := m.Search(context.Background(), "sale.order", nil, 0, 10)
	if err != nil || total != 0 {
		t.Fatalf("expected empty kind, got total=%d err=%v", total, err)
	}
}

func TestMemoryWrite(t *testing.T) {
	m := NewMemory()
	rec, err := m.Create(context.Background(), "crm.lead", Record{"name": "a"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	id := rec["id"].(uint64)

	if err := m.Write(context.Background(), "crm.lead", id, Record{"name": "b", "id": uint64(999)}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	hits, _, err := m.Search(context.Background(), "crm.lead", nil, 0, 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if hits[0]["name"] != "b" {
		t.Fatalf("write did not apply: %v", hits[0])
	}
	if hits[0]["id"] != id {
		t.Fatalf("id must be immutable, got %v", hits[0]["id"])
	}

	if err := m.Write(context.Background(), "crm.lead", 404, Record{"name": "x"}); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryUnlink(t *testing.T) {
	m := NewMemory()
	rec, _ := m.Create(context.Background(), "crm.lead", Record{"name": "a"})
	id := rec["id"].(uint64)

	if err := m.Unlink(context.Background(), "crm.lead", id); err != nil {
		t.Fatalf("Unlink: %v", err)
	}
	if err := m.Unlink(context.Background(), "crm.lead", id); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// Mutating a returned record must not leak into the store.
func TestMemoryReturnsCopies(t *testing.T) {
	m := NewMemory()
	seed(t, m, "crm.lead", "a")

	hits, _, _ := m.Search(context.Background(), "crm.lead", nil, 0, 1)
	hits[0]["name"] = "tampered"

	again, _, _ := m.Search(context.Background(), "crm.lead", nil, 0, 1)
	if again[0]["name"] != "a" {
		t.Fatalf("store state leaked: %v", again[0])
	}
}
