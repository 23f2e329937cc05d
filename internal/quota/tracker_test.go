package quota

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

type memStore struct {
	values map[string]string
	getErr error
	setErr error
}

func newMemStore() *memStore {
	return &memStore{values: map[string]string{}}
}

func (m *memStore) Get(ctx context.Context, key string) (string, bool, error) {
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memStore) Set(ctx context.Context, key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.values[key] = value
	return nil
}

func (m *memStore) Delete(ctx context.Context, key string) error {
	delete(m.values, key)
	return nil
}

func TestTrackerRemainingCountsDown(t *testing.T) {
	ctx := context.Background()
	tr := NewTracker(newMemStore(), zerolog.Nop())

	for i := 1; i <= MaxAnonymous; i++ {
		if got, want := tr.Remaining(ctx), MaxAnonymous-i+1; got != want {
			t.Fatalf("Remaining() before increment %d = %d, want %d", i, got, want)
		}
		if got := tr.Increment(ctx); got != i {
			t.Fatalf("Increment() = %d, want %d", got, i)
		}
	}
	if got := tr.Remaining(ctx); got != 0 {
		t.Fatalf("Remaining() after %d increments = %d, want 0", MaxAnonymous, got)
	}
}

func TestTrackerResetClearsState(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	tr := NewTracker(store, zerolog.Nop())

	tr.Increment(ctx)
	tr.Increment(ctx)
	tr.Reset(ctx)

	if got := tr.Count(ctx); got != 0 {
		t.Fatalf("Count() after reset = %d, want 0", got)
	}
	if _, ok := store.values[counterKey]; ok {
		t.Fatal("reset must delete the persisted entry")
	}
}

func TestTrackerFailsOpenOnStorageErrors(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.getErr = errors.New("disk gone")
	tr := NewTracker(store, zerolog.Nop())

	if got := tr.Count(ctx); got != 0 {
		t.Fatalf("Count() with failing store = %d, want 0", got)
	}
	if got := tr.Remaining(ctx); got != MaxAnonymous {
		t.Fatalf("Remaining() with failing store = %d, want %d", got, MaxAnonymous)
	}
}

func TestTrackerIgnoresGarbageValues(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.values[counterKey] = "not-a-number"
	tr := NewTracker(store, zerolog.Nop())

	if got := tr.Count(ctx); got != 0 {
		t.Fatalf("Count() with garbage value = %d, want 0", got)
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "quota.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteStore: %v", err)
	}
	defer store.Close()

	if _, ok, err := store.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get(missing) = ok=%v err=%v, want absent", ok, err)
	}
	if err := store.Set(ctx, "k", "1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Set(ctx, "k", "2"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	v, ok, err := store.Get(ctx, "k")
	if err != nil || !ok || v != "2" {
		t.Fatalf("Get(k) = %q ok=%v err=%v, want 2", v, ok, err)
	}
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Fatal("Get after delete must report absent")
	}
}
