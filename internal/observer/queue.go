// Package observer provides in-memory sorted, filtered views over a
// store.Store's records, giving the broker/scheduler/query layer fast
// synchronous access to "ready tasks ordered by priority" or "jobs ordered
// by creation time" style views without waiting on the (best-effort,
// asynchronous) internal/projection Postgres cache. Grounded on
// original_source/src/softfab/sortedqueue.py's SortedQueue: a sorted slice
// kept current by observing the underlying database, with binary search
// for insertion/removal.
package observer

import (
	"sort"
	"sync"

	"github.com/cloud-scan/controlcenter/internal/store"
)

// Queue is a sorted, optionally filtered view over records of type T,
// kept current by registering as a store.Observer. Less must be a stable
// total order over an immutable property of the record — if a record's
// sort key can change while it's in the queue, RecordChanged will leave it
// misplaced, mirroring sortedqueue.py's own documented constraint.
type Queue[T store.Record] struct {
	mu      sync.RWMutex
	records []T
	less    func(a, b T) bool
	filter  func(T) bool
}

// New builds a queue from an initial record set, already filtered and
// sorted.
func New[T store.Record](initial []T, less func(a, b T) bool, filter func(T) bool) *Queue[T] {
	if filter == nil {
		filter = func(T) bool { return true }
	}
	q := &Queue[T]{less: less, filter: filter}
	for _, r := range initial {
		if filter(r) {
			q.records = append(q.records, r)
		}
	}
	sort.Slice(q.records, func(i, j int) bool { return less(q.records[i], q.records[j]) })
	return q
}

// Attach registers the queue as an observer of s, so future changes keep
// the queue current.
func Attach[T store.Record](q *Queue[T], s interface{ AddObserver(store.Observer) }) {
	s.AddObserver(q)
}

// RecordChanged implements store.Observer.
func (q *Queue[T]) RecordChanged(id string, rec store.Record, removed bool) {
	t, ok := rec.(T)
	if !ok {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	idx, found := q.find(id)
	switch {
	case removed:
		if found {
			q.records = append(q.records[:idx], q.records[idx+1:]...)
		}
	case found:
		q.records[idx] = t
		if !q.filter(t) {
			q.records = append(q.records[:idx], q.records[idx+1:]...)
		}
	case q.filter(t):
		insertAt := sort.Search(len(q.records), func(i int) bool { return !q.less(q.records[i], t) })
		q.records = append(q.records, t)
		copy(q.records[insertAt+1:], q.records[insertAt:])
		q.records[insertAt] = t
	}
}

func (q *Queue[T]) find(id string) (int, bool) {
	for i, r := range q.records {
		if r.RecordID() == id {
			return i, true
		}
	}
	return 0, false
}

// Snapshot returns a copy of the queue's current contents, safe to iterate
// without holding the queue's lock.
func (q *Queue[T]) Snapshot() []T {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]T, len(q.records))
	copy(out, q.records)
	return out
}

// Len reports the queue's current size.
func (q *Queue[T]) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.records)
}
