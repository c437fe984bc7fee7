// Package queue implements one named FIFO queue: an ordered map of
// message id to Entry, plus the per-queue waiter (mutex, condition and
// next-id counter) that producers and consumers synchronize through.
//
// The ordered map is a container/list.List of entries keyed by a
// companion map[uint64]*list.Element, the same list-plus-index shape
// xtaci/gaio uses for its per-descriptor reader/writer queues.
package queue

import (
	"container/list"
	"sync"

	"github.com/coreswitch/qswitch/internal/op"
)

// Waiter is the condition-variable bundle a queue's producer path
// mutates next_id under, and that wait_one blocks on.
type Waiter struct {
	Mutex  sync.Mutex
	Cond   *sync.Cond
	NextID uint64
}

func newWaiter() *Waiter {
	w := &Waiter{}
	w.Cond = sync.NewCond(&w.Mutex)
	return w
}

type node struct {
	id    uint64
	entry op.Entry
}

// Queue is one named FIFO. Owner is nil for a persistent queue, or the
// owning connection for a transient one.
type Queue struct {
	Name  string
	Owner *op.Origin

	entries *list.List
	index   map[uint64]*list.Element
	waiter  *Waiter
}

// Make builds a fresh, empty queue with next_id = 0.
func Make(owner *op.Origin, name string) *Queue {
	return &Queue{
		Name:    name,
		Owner:   owner,
		entries: list.New(),
		index:   make(map[uint64]*list.Element),
		waiter:  newWaiter(),
	}
}

// Waiter exposes the queue's condition bundle to the directory's
// wait/notify machinery (component D).
func (q *Queue) Waiter() *Waiter {
	return q.waiter
}

// Len returns the current number of stored entries, maintained as an
// invariant equal to the backing list's length.
func (q *Queue) Len() int {
	q.waiter.Mutex.Lock()
	defer q.waiter.Mutex.Unlock()
	return q.entries.Len()
}

// NextID allocates the next monotonic sequence number for this queue.
// Callers must hold q.Waiter().Mutex, since id allocation must stay
// atomic with the Append that follows it (see Append).
func (q *Queue) NextID() uint64 {
	id := q.waiter.NextID
	q.waiter.NextID++
	return id
}

// Append advances next_id past id if it hasn't already been allocated
// that far (the case during journal replay, which calls Append
// directly with ids recorded in the log rather than via NextID), then
// installs id->entry and broadcasts the waiter condition.
//
// Callers must hold q.Waiter().Mutex when allocating id via NextID and
// calling Append together, so a woken waiter is guaranteed to find the
// entry installed before it re-checks next_id.
func (q *Queue) Append(id uint64, entry op.Entry) {
	if id+1 > q.waiter.NextID {
		q.waiter.NextID = id + 1
	}
	elem := q.entries.PushBack(&node{id: id, entry: entry})
	q.index[id] = elem
	q.waiter.Cond.Broadcast()
}

// RemoveID deletes id if present; no-op otherwise.
func (q *Queue) RemoveID(id uint64) {
	q.waiter.Mutex.Lock()
	defer q.waiter.Mutex.Unlock()
	elem, ok := q.index[id]
	if !ok {
		return
	}
	q.entries.Remove(elem)
	delete(q.index, id)
}

// Entry looks up a single id, returning ok=false if absent.
func (q *Queue) Entry(id uint64) (op.Entry, bool) {
	q.waiter.Mutex.Lock()
	defer q.waiter.Mutex.Unlock()
	elem, ok := q.index[id]
	if !ok {
		return op.Entry{}, false
	}
	return elem.Value.(*node).entry, true
}

// IDEntry is one (sequence, Entry) pair returned by Contents/After.
type IDEntry struct {
	ID    uint64
	Entry op.Entry
}

// Contents returns a snapshot of all entries in insertion order.
func (q *Queue) Contents() []IDEntry {
	q.waiter.Mutex.Lock()
	defer q.waiter.Mutex.Unlock()
	out := make([]IDEntry, 0, q.entries.Len())
	for e := q.entries.Front(); e != nil; e = e.Next() {
		n := e.Value.(*node)
		out = append(out, IDEntry{ID: n.id, Entry: n.entry})
	}
	return out
}

// After returns the submap with ids strictly greater than the cursor
// from, in insertion order. from is a signed cursor because callers
// pass -1 to mean "nothing seen yet" (see spec's Open Questions on the
// from = -1 / next_id = 0 convention).
func (q *Queue) After(from int64) []IDEntry {
	q.waiter.Mutex.Lock()
	defer q.waiter.Mutex.Unlock()
	var out []IDEntry
	for e := q.entries.Front(); e != nil; e = e.Next() {
		n := e.Value.(*node)
		if from < 0 || n.id > uint64(from) {
			out = append(out, IDEntry{ID: n.id, Entry: n.entry})
		}
	}
	return out
}

// IsOwnedBy reports whether this queue is transient and owned by c.
func (q *Queue) IsOwnedBy(c op.Origin) bool {
	return q.Owner != nil && *q.Owner == c
}
