// Package writequeue implements the per-device write-only-latest-value
// queue: at most one pending entry per (address, function-code) key, newer
// enqueues overwrite the stored value instead of piling up.
package writequeue

import (
	"sort"
	"sync"

	"github.com/edgeflow/modgate/internal/gatewayerr"
	"github.com/google/uuid"
)

// TagInfo is the encoding/data-type snapshot needed to later encode the
// queued value back onto the wire.
type TagInfo struct {
	TreePath string
	DataType string
}

type key struct {
	address int
	fc      int
}

// Entry is one pending write.
type Entry struct {
	Address       int
	FunctionCode  int
	Value         interface{}
	TagInfo       TagInfo
	CorrelationID string
	EnqueuedAt    int64 // unix nanos, caller-supplied wall-clock stamp
	seq           uint64
}

// Stats is the queue's lifetime counters plus current pending count.
type Stats struct {
	Enqueued    int
	Executed    int
	Overwritten int
	Failed      int
	Pending     int
}

// Queue is a thread-safe, capacity-bounded write-only-latest-value queue.
type Queue struct {
	mu       sync.Mutex
	maxPending int
	entries  map[key]*Entry
	nextSeq  uint64 // monotonic insertion counter, so GetPending can return FIFO order

	enqueued    int
	executed    int
	overwritten int
	failed      int
}

// New creates a queue with the given pending-entry capacity.
func New(maxPending int) *Queue {
	return &Queue{maxPending: maxPending, entries: make(map[key]*Entry)}
}

// Enqueue adds or overwrites the entry for (address, fc). Returns
// gatewayerr.ErrQueueFull if the queue is at capacity and this is a brand
// new key; an existing key is always accepted (its value is overwritten).
func (q *Queue) Enqueue(address, fc int, value interface{}, info TagInfo, enqueuedAt int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	k := key{address, fc}
	if existing, ok := q.entries[k]; ok {
		existing.Value = value
		existing.TagInfo = info
		existing.EnqueuedAt = enqueuedAt
		q.overwritten++
		return nil
	}

	if len(q.entries) >= q.maxPending {
		return gatewayerr.Wrap(gatewayerr.ErrQueueFull, "write queue at capacity (%d)", q.maxPending)
	}

	q.entries[k] = &Entry{
		Address:       address,
		FunctionCode:  fc,
		Value:         value,
		TagInfo:       info,
		CorrelationID: uuid.NewString(),
		EnqueuedAt:    enqueuedAt,
		seq:           q.nextSeq,
	}
	q.nextSeq++
	q.enqueued++
	return nil
}

// GetPending returns a snapshot of up to maxCount entries, without removing
// them, so a failed write can remain queued for the next drain. Entries are
// returned in FIFO order of their original enqueue (a key's slot keeps its
// position even when its value is later overwritten), per spec's "writes
// are executed in FIFO order of their queue slot."
func (q *Queue) GetPending(maxCount int) []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Entry, 0, len(q.entries))
	for _, e := range q.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	if len(out) > maxCount {
		out = out[:maxCount]
	}
	return out
}

// MarkCompleted removes the (address, fc) entry after a successful write.
func (q *Queue) MarkCompleted(address, fc int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	k := key{address, fc}
	if _, ok := q.entries[k]; ok {
		delete(q.entries, k)
		q.executed++
	}
}

// MarkFailed records the failure but keeps the entry queued for retry.
func (q *Queue) MarkFailed(address, fc int, reason string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.entries[key{address, fc}]; ok {
		q.failed++
	}
}

// IsEmpty reports whether the queue has no pending entries.
func (q *Queue) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries) == 0
}

// Count returns the number of pending entries.
func (q *Queue) Count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Clear removes all pending entries without affecting lifetime stats.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = make(map[key]*Entry)
}

// GetStats returns the queue's lifetime and current-pending counters.
func (q *Queue) GetStats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Enqueued:    q.enqueued,
		Executed:    q.executed,
		Overwritten: q.overwritten,
		Failed:      q.failed,
		Pending:     len(q.entries),
	}
}
