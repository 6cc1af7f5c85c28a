package testutil

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Sternrassler/catalog-api/pkg/catalog"
)

// NumberedItems returns n items named prefix-1 .. prefix-n with ids 1..n.
func NumberedItems(prefix string, n int) []catalog.Item {
	items := make([]catalog.Item, n)
	for i := range items {
		items[i] = catalog.Item{
			ID:    i + 1,
			Name:  fmt.Sprintf("%s-%d", prefix, i+1),
			Price: float64(i+1) * 1.25,
		}
	}
	return items
}

// FakeLoader is a catalog.Loader that counts calls and can be made to fail
// or block.
type FakeLoader struct {
	mu    sync.Mutex
	items []catalog.Item
	err   error
	gate  chan struct{}
	calls atomic.Int32
}

// NewFakeLoader returns a loader that serves items.
func NewFakeLoader(items []catalog.Item) *FakeLoader {
	return &FakeLoader{items: items}
}

// LoadAll implements catalog.Loader.
func (f *FakeLoader) LoadAll(ctx context.Context) ([]catalog.Item, error) {
	f.calls.Add(1)

	f.mu.Lock()
	gate, items, err := f.gate, f.items, f.err
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Calls returns the number of LoadAll invocations.
func (f *FakeLoader) Calls() int {
	return int(f.calls.Load())
}

// SetItems replaces the items served by subsequent loads.
func (f *FakeLoader) SetItems(items []catalog.Item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = items
}

// SetError makes subsequent loads fail with err (nil clears it).
func (f *FakeLoader) SetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// Block makes subsequent loads wait until the returned release func is called.
func (f *FakeLoader) Block() (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.gate = gate
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			f.gate = nil
			f.mu.Unlock()
			close(gate)
		})
	}
}

// Clock is a manually advanced clock for expiry tests.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock starting at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the clock's current time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
