package directory

import (
	"context"

	"github.com/coreswitch/qswitch/internal/queue"
)

// WaitOne blocks until the named queue has progressed past cursor
// from, or (if the queue does not yet exist) until it is created, or
// ctx is done. This is component D's wait_one.
func (d *Directory) WaitOne(ctx context.Context, from int64, name string) error {
	d.mu.RLock()
	q, exists := d.queues[name]
	d.mu.RUnlock()

	if !exists {
		ch, cancel := d.WaitForCreation(name)
		defer cancel()
		select {
		case <-ch:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return waitOnQueue(ctx, q, from)
}

// shouldKeepWaiting implements the wake predicate from spec.md §4.D:
// a caller has seen everything there is to see (or the queue is empty
// and no new id has been allocated) while from >= next_id - 1. The
// comparison is signed, so from = -1 against next_id = 0 evaluates
// -1 >= -1 and keeps waiting until the queue's first id is allocated.
func shouldKeepWaiting(from int64, nextID uint64) bool {
	return from >= int64(nextID)-1
}

func waitOnQueue(ctx context.Context, q *queue.Queue, from int64) error {
	w := q.Waiter()

	// A condition variable can't be waited on with a context directly;
	// a sibling goroutine broadcasts on ctx.Done() to unblock the
	// Cond.Wait() loop below, which then observes ctx.Err() and
	// returns. `done` guarantees that sibling doesn't linger after
	// this call returns.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			w.Mutex.Lock()
			w.Cond.Broadcast()
			w.Mutex.Unlock()
		case <-done:
		}
	}()

	w.Mutex.Lock()
	defer w.Mutex.Unlock()
	for shouldKeepWaiting(from, w.NextID) {
		if err := ctx.Err(); err != nil {
			return err
		}
		w.Cond.Wait()
	}
	return nil
}
