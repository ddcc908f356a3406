package backend

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clientIO/joint-sub027/internal/storage"
)

// openTestPG connects to JG_TEST_PG_DSN or skips.
func openTestPG(t *testing.T) *PGStore {
	t.Helper()
	dsn := os.Getenv("JG_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("JG_TEST_PG_DSN not set; skipping postgres tests")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s, err := OpenStore(ctx, dsn)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPGStore_PutGetVersioning(t *testing.T) {
	s := openTestPG(t)
	ctx := context.Background()
	id := "test-" + uuid.NewString()
	t.Cleanup(func() { _ = s.Delete(ctx, id) })

	rec, err := s.Put(ctx, id, "Orders", json.RawMessage(sampleGraph), 0)
	if err != nil || rec.Version != 1 {
		t.Fatalf("create: %+v, %v", rec, err)
	}
	if _, err := s.Put(ctx, id, "Orders", json.RawMessage(sampleGraph), 0); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("duplicate create: %v", err)
	}
	if rec, err = s.Put(ctx, id, "Orders 2", json.RawMessage(sampleGraph), 1); err != nil || rec.Version != 2 {
		t.Fatalf("update: %+v, %v", rec, err)
	}
	if _, err := s.Put(ctx, id, "stale", json.RawMessage(sampleGraph), 1); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("stale update: %v", err)
	}
	if _, err := s.Put(ctx, "missing-"+uuid.NewString(), "x", json.RawMessage(sampleGraph), 4); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update missing: %v", err)
	}
	got, err := s.Get(ctx, id)
	if err != nil || got.Name != "Orders 2" || got.Version != 2 {
		t.Fatalf("get: %+v, %v", got, err)
	}
}

func TestPGStore_SearchMatchesMemStore(t *testing.T) {
	s := openTestPG(t)
	mem := NewMemStore()
	ctx := context.Background()
	id := "test-" + uuid.NewString()
	t.Cleanup(func() { _ = s.Delete(ctx, id) })

	for _, st := range []GraphStore{s, mem} {
		if _, err := st.Put(ctx, id, "Orders", json.RawMessage(sampleGraph), 0); err != nil {
			t.Fatalf("put: %v", err)
		}
	}
	q := storage.SearchQuery{Text: "billing", Types: []string{"standard.Rectangle"}, Limit: 50}
	pg, err := s.Search(ctx, q)
	if err != nil {
		t.Fatalf("pg search: %v", err)
	}
	want, _ := mem.Search(ctx, q)
	if len(want) != 1 {
		t.Fatalf("mem search = %+v", want)
	}
	found := false
	for _, r := range pg {
		if r.ID == id && r.Type == "graph" {
			found = true
		}
	}
	if !found {
		t.Fatalf("pg search did not return %s: %+v", id, pg)
	}
}
