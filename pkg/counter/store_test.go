package counter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/axelspringer/wp-mu-prometheus/internal/testutil"
	"github.com/axelspringer/wp-mu-prometheus/pkg/cache"
)

// backends returns one non-atomic and one atomic backend.
func backends() map[string]cache.Backend {
	return map[string]cache.Backend{
		"read_modify_write": testutil.NewMapBackend(),
		"atomic":            cache.NewMemoryBackend(0, 0),
	}
}

func TestNew_Defaults(t *testing.T) {
	store := New(testutil.NewMapBackend(), Options{})

	if store.Namespace() != DefaultNamespace {
		t.Errorf("Namespace() = %q, want %q", store.Namespace(), DefaultNamespace)
	}
	if store.TTL() != 0 {
		t.Errorf("TTL() = %v, want 0", store.TTL())
	}
	if store.Key("save_post") != "metrics:save_post" {
		t.Errorf("Key() = %q", store.Key("save_post"))
	}
}

func TestNew_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("New should panic with nil backend")
		}
	}()
	New(nil, Options{})
}

func TestIncrementAndDrain(t *testing.T) {
	for name, backend := range backends() {
		t.Run(name, func(t *testing.T) {
			store := New(backend, Options{})
			ctx := context.Background()

			for i := 0; i < 3; i++ {
				if err := store.Increment(ctx, "save_post"); err != nil {
					t.Fatalf("Increment failed: %v", err)
				}
			}

			got, err := store.DrainAndReset(ctx, "save_post")
			if err != nil {
				t.Fatalf("DrainAndReset failed: %v", err)
			}
			if got != 3 {
				t.Errorf("DrainAndReset() = %d, want 3", got)
			}

			// Destructive: an immediate second drain sees nothing.
			got, err = store.DrainAndReset(ctx, "save_post")
			if err != nil {
				t.Fatalf("Second DrainAndReset failed: %v", err)
			}
			if got != 0 {
				t.Errorf("Second DrainAndReset() = %d, want 0", got)
			}
		})
	}
}

func TestDrainAndReset_Missing(t *testing.T) {
	for name, backend := range backends() {
		t.Run(name, func(t *testing.T) {
			store := New(backend, Options{})

			got, err := store.DrainAndReset(context.Background(), "never_fired")
			if err != nil {
				t.Fatalf("DrainAndReset failed: %v", err)
			}
			if got != 0 {
				t.Errorf("DrainAndReset() = %d, want 0", got)
			}
		})
	}
}

func TestIncrement_SeparateEvents(t *testing.T) {
	store := New(cache.NewMemoryBackend(0, 0), Options{Namespace: "wp"})
	ctx := context.Background()

	_ = store.Increment(ctx, "save_post")
	_ = store.Increment(ctx, "delete_post")
	_ = store.Increment(ctx, "save_post")

	if got, _ := store.DrainAndReset(ctx, "save_post"); got != 2 {
		t.Errorf("save_post = %d, want 2", got)
	}
	if got, _ := store.DrainAndReset(ctx, "delete_post"); got != 1 {
		t.Errorf("delete_post = %d, want 1", got)
	}
}

func TestIncrement_WritesTTLAndNamespace(t *testing.T) {
	backend := testutil.NewMapBackend()
	store := New(backend, Options{Namespace: "wpmetrics", TTL: time.Hour})

	if err := store.Increment(context.Background(), "save_post"); err != nil {
		t.Fatalf("Increment failed: %v", err)
	}

	if v, ok := backend.Value("wpmetrics:save_post"); !ok || v != 1 {
		t.Errorf("Cached value = (%d, %v), want (1, true)", v, ok)
	}
	if ttl := backend.TTL("wpmetrics:save_post"); ttl != time.Hour {
		t.Errorf("TTL = %v, want 1h", ttl)
	}
}

func TestBackendFailure(t *testing.T) {
	backend := testutil.NewMapBackend()
	backend.SetErr(errors.New("connection refused"))
	store := New(backend, Options{})
	ctx := context.Background()

	if err := store.Increment(ctx, "save_post"); err == nil {
		t.Error("Increment should report backend errors")
	}

	got, err := store.DrainAndReset(ctx, "save_post")
	if err == nil {
		t.Error("DrainAndReset should report backend errors")
	}
	if got != 0 {
		t.Errorf("DrainAndReset() = %d on failure, want 0", got)
	}
}

func TestDrainAndReset_NegativeClamped(t *testing.T) {
	backend := testutil.NewMapBackend()
	_ = backend.Set(context.Background(), "metrics:save_post", -4, 0)
	store := New(backend, Options{})

	got, err := store.DrainAndReset(context.Background(), "save_post")
	if err != nil {
		t.Fatalf("DrainAndReset failed: %v", err)
	}
	if got != 0 {
		t.Errorf("DrainAndReset() = %d, want 0", got)
	}
}

// Two increments read the same cached 0 before either writes back. The lost
// update is accepted; the store must neither crash nor deadlock.
func TestIncrement_ConcurrentLostUpdate(t *testing.T) {
	backend := testutil.NewMapBackend()
	barrier := testutil.NewBarrier(2)
	backend.AfterGet = func(string) { barrier.Wait(2 * time.Second) }
	store := New(backend, Options{})
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.Increment(ctx, "save_post")
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Concurrent increments deadlocked")
	}
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("Increment failed: %v", err)
		}
	}

	backend.AfterGet = nil
	got, err := store.DrainAndReset(ctx, "save_post")
	if err != nil {
		t.Fatalf("DrainAndReset failed: %v", err)
	}
	if got < 1 || got > 2 {
		t.Errorf("DrainAndReset() = %d, want 1 (lost update) or 2", got)
	}
	t.Logf("Drained %d of 2 concurrent increments", got)
}

func TestConcurrentDrains(t *testing.T) {
	store := New(cache.NewMemoryBackend(0, 0), Options{})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_ = store.Increment(ctx, "save_post")
	}

	var wg sync.WaitGroup
	results := make(chan int64, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, _ := store.DrainAndReset(ctx, "save_post")
			results <- n
		}()
	}
	wg.Wait()
	close(results)

	var total int64
	for n := range results {
		total += n
	}
	// GETDEL hands the count to exactly one drain.
	if total != 10 {
		t.Errorf("Total drained = %d, want 10", total)
	}
}

func TestPending(t *testing.T) {
	store := New(cache.NewMemoryBackend(0, 0), Options{TTL: time.Minute})
	ctx := context.Background()

	_ = store.Increment(ctx, "save_post")
	_ = store.Increment(ctx, "save_post")

	entries, err := store.Pending(ctx, "save_post", "delete_post")
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Pending returned %d entries, want 2", len(entries))
	}
	if entries[0].Count != 2 || entries[0].Key != "metrics:save_post" || !entries[0].Expires() {
		t.Errorf("Unexpected entry: %+v", entries[0])
	}
	if !entries[1].IsEmpty() {
		t.Errorf("delete_post should be empty: %+v", entries[1])
	}

	// Pending does not drain.
	if got, _ := store.DrainAndReset(ctx, "save_post"); got != 2 {
		t.Errorf("DrainAndReset() after Pending = %d, want 2", got)
	}
}
