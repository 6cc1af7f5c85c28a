package cache

import (
	"sync/atomic"
	"time"

	"github.com/Sternrassler/catalog-api/pkg/catalog"
)

// CatalogKey is the singleton key the catalog snapshot is cached under.
const CatalogKey = "productlist:all"

// entry pairs a snapshot with its last access time. The snapshot is fixed for
// the life of the entry; only lastAccess moves.
type entry struct {
	snapshot   *catalog.Snapshot
	lastAccess atomic.Int64 // unix nanoseconds
}

func newEntry(snapshot *catalog.Snapshot, now time.Time) *entry {
	e := &entry{snapshot: snapshot}
	e.lastAccess.Store(now.UnixNano())
	return e
}

// expired reports whether more than window has passed since the last access.
func (e *entry) expired(now time.Time, window time.Duration) bool {
	last := time.Unix(0, e.lastAccess.Load())
	return now.After(last.Add(window))
}

// touch resets the sliding window to start at now. Concurrent hits may
// arrive out of order; lastAccess only moves forward.
func (e *entry) touch(now time.Time) {
	n := now.UnixNano()
	for {
		last := e.lastAccess.Load()
		if n <= last || e.lastAccess.CompareAndSwap(last, n) {
			return
		}
	}
}
