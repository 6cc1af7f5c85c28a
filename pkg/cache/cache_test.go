package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/catalog-api/internal/testutil"
	"github.com/Sternrassler/catalog-api/pkg/catalog"
)

func newTestCache(t *testing.T, loader catalog.Loader) (*CatalogCache, *testutil.Clock) {
	t.Helper()
	clock := testutil.NewClock(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))
	c := New(loader, Config{
		SlidingExpiration: 10 * time.Minute,
		Now:               clock.Now,
		Logger:            zerolog.Nop(),
	})
	return c, clock
}

func TestNew_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("New should panic with nil loader")
		}
	}()
	New(nil, DefaultConfig())
}

func TestNew_Defaults(t *testing.T) {
	c := New(testutil.NewFakeLoader(nil), Config{})
	if c.window != DefaultSlidingExpiration {
		t.Errorf("window = %v, want %v", c.window, DefaultSlidingExpiration)
	}
	if c.now == nil {
		t.Error("now must default to time.Now")
	}
}

func TestCatalogCache_MissThenHit(t *testing.T) {
	loader := testutil.NewFakeLoader(testutil.NumberedItems("item", 3))
	c, _ := newTestCache(t, loader)
	ctx := context.Background()

	first, hit, err := c.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if hit {
		t.Error("First Get should be a miss")
	}
	if first.Len() != 3 {
		t.Errorf("Len() = %d, want 3", first.Len())
	}

	second, hit, err := c.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !hit {
		t.Error("Second Get should be a hit")
	}
	if second != first {
		t.Error("Hit must return the cached snapshot instance")
	}
	if loader.Calls() != 1 {
		t.Errorf("Loader calls = %d, want 1", loader.Calls())
	}
}

func TestCatalogCache_SlidingExpiration(t *testing.T) {
	loader := testutil.NewFakeLoader(testutil.NumberedItems("item", 1))
	c, clock := newTestCache(t, loader)
	ctx := context.Background()

	if _, _, err := c.Get(ctx); err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	// Each access inside the window pushes expiry forward.
	for i := 0; i < 5; i++ {
		clock.Advance(9 * time.Minute)
		if _, hit, err := c.Get(ctx); err != nil || !hit {
			t.Fatalf("Get #%d: hit=%v err=%v, want hit", i, hit, err)
		}
	}
	if loader.Calls() != 1 {
		t.Fatalf("Loader calls = %d, want 1 while accessed within window", loader.Calls())
	}

	clock.Advance(10*time.Minute + time.Second)
	if _, hit, err := c.Get(ctx); err != nil || hit {
		t.Fatalf("Get after idle window: hit=%v err=%v, want miss", hit, err)
	}
	if loader.Calls() != 2 {
		t.Errorf("Loader calls = %d, want 2 after expiry", loader.Calls())
	}
}

func TestCatalogCache_RefreshProducesNewSnapshot(t *testing.T) {
	loader := testutil.NewFakeLoader(testutil.NumberedItems("old", 2))
	c, clock := newTestCache(t, loader)
	ctx := context.Background()

	before, _, err := c.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	loader.SetItems(testutil.NumberedItems("new", 4))
	clock.Advance(11 * time.Minute)

	after, _, err := c.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if before.Len() != 2 || before.Items()[0].Name != "old-1" {
		t.Error("Previous snapshot must not be modified by a refresh")
	}
	if after.Len() != 4 || after.Items()[0].Name != "new-1" {
		t.Errorf("Refreshed snapshot has unexpected items: %+v", after.Items())
	}
}

func TestCatalogCache_ConcurrentMissesLoadOnce(t *testing.T) {
	loader := testutil.NewFakeLoader(testutil.NumberedItems("item", 25))
	release := loader.Block()
	c, _ := newTestCache(t, loader)

	const callers = 50
	var wg sync.WaitGroup
	results := make([]*catalog.Snapshot, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _, errs[i] = c.Get(context.Background())
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	release()
	wg.Wait()

	if loader.Calls() != 1 {
		t.Errorf("Loader calls = %d, want 1 for %d concurrent misses", loader.Calls(), callers)
	}
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if results[i] != results[0] {
			t.Fatalf("caller %d observed a different snapshot instance", i)
		}
	}
}

func TestCatalogCache_LoaderFailureDoesNotPoison(t *testing.T) {
	loader := testutil.NewFakeLoader(testutil.NumberedItems("item", 3))
	c, clock := newTestCache(t, loader)
	ctx := context.Background()

	good, _, err := c.Get(ctx)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	boom := errors.New("database unavailable")
	loader.SetError(boom)
	clock.Advance(11 * time.Minute)

	if _, _, err := c.Get(ctx); !errors.Is(err, boom) {
		t.Fatalf("Expected loader error to propagate, got %v", err)
	}

	// The failed load must not have replaced the previous entry.
	if e := c.current.Load(); e == nil || e.snapshot != good {
		t.Error("Previous entry must survive a failed reload")
	}

	loader.SetError(nil)
	snap, hit, err := c.Get(ctx)
	if err != nil {
		t.Fatalf("Retry after failure failed: %v", err)
	}
	if hit {
		t.Error("Retry after failure should reload")
	}
	if snap.Len() != 3 {
		t.Errorf("Len() = %d, want 3", snap.Len())
	}
	if loader.Calls() != 3 {
		t.Errorf("Loader calls = %d, want 3", loader.Calls())
	}
}

func TestCatalogCache_FirstLoadFailure(t *testing.T) {
	loader := testutil.NewFakeLoader(nil)
	loader.SetError(catalog.ErrCatalogNotFound)
	c, _ := newTestCache(t, loader)

	if _, _, err := c.Get(context.Background()); !errors.Is(err, catalog.ErrCatalogNotFound) {
		t.Fatalf("Expected ErrCatalogNotFound, got %v", err)
	}
	if c.current.Load() != nil {
		t.Error("Failed first load must not create an entry")
	}
}

func TestCatalogCache_LoaderPanicBecomesError(t *testing.T) {
	c, _ := newTestCache(t, catalog.LoaderFunc(func(ctx context.Context) ([]catalog.Item, error) {
		panic("loader exploded")
	}))

	_, _, err := c.Get(context.Background())
	if !errors.Is(err, catalog.ErrLoad) {
		t.Fatalf("Expected ErrLoad from panicking loader, got %v", err)
	}
}

func TestCatalogCache_CancelledCallerDoesNotAbortLoad(t *testing.T) {
	loader := testutil.NewFakeLoader(testutil.NumberedItems("item", 5))
	release := loader.Block()
	c, _ := newTestCache(t, loader)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, _, err := c.Get(ctx)
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Cancelled Get did not return")
	}

	release()

	snap, _, err := c.Get(context.Background())
	if err != nil {
		t.Fatalf("Get after release failed: %v", err)
	}
	if snap.Len() != 5 {
		t.Errorf("Len() = %d, want 5", snap.Len())
	}
	if loader.Calls() != 1 {
		t.Errorf("Loader calls = %d, want 1 (load outlives the cancelled request)", loader.Calls())
	}
}

func TestCatalogCache_Invalidate(t *testing.T) {
	loader := testutil.NewFakeLoader(testutil.NumberedItems("item", 2))
	c, _ := newTestCache(t, loader)
	ctx := context.Background()

	if _, _, err := c.Get(ctx); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	c.Invalidate()
	if _, hit, err := c.Get(ctx); err != nil || hit {
		t.Fatalf("Get after Invalidate: hit=%v err=%v, want miss", hit, err)
	}
	if loader.Calls() != 2 {
		t.Errorf("Loader calls = %d, want 2", loader.Calls())
	}
}

func TestCatalogCache_InvalidateDuringLoadIsNotLost(t *testing.T) {
	loader := testutil.NewFakeLoader(testutil.NumberedItems("old", 2))
	release := loader.Block()
	c, _ := newTestCache(t, loader)
	ctx := context.Background()

	done := make(chan *catalog.Snapshot, 1)
	go func() {
		snap, _, err := c.Get(ctx)
		if err != nil {
			t.Errorf("Get failed: %v", err)
		}
		done <- snap
	}()

	deadline := time.Now().Add(time.Second)
	for loader.Calls() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	// The catalog changes and an operator forces a reload while the
	// first load is still running.
	loader.SetItems(testutil.NumberedItems("new", 3))
	c.Invalidate()
	release()

	select {
	case snap := <-done:
		if snap == nil || snap.Len() != 2 {
			t.Fatalf("In-flight waiter should get the load it joined, got %+v", snap)
		}
	case <-time.After(time.Second):
		t.Fatal("In-flight Get did not return")
	}

	snap, hit, err := c.Get(ctx)
	if err != nil {
		t.Fatalf("Get after invalidation failed: %v", err)
	}
	if hit {
		t.Error("Load started before Invalidate must not be cached")
	}
	if snap.Len() != 3 {
		t.Errorf("Len() = %d, want 3 from the reload after Invalidate", snap.Len())
	}
	if loader.Calls() != 2 {
		t.Errorf("Loader calls = %d, want 2", loader.Calls())
	}
}
