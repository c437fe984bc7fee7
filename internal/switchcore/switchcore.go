// Package switchcore implements component F, the externally visible
// message switch contract: every mutation is built as an Op, appended
// to the redo log, and only becomes visible once the log's apply loop
// has run it through the directory. There is no path that mutates
// queue state without going through the journal first.
package switchcore

import (
	"context"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/coreswitch/qswitch/internal/directory"
	"github.com/coreswitch/qswitch/internal/op"
	"github.com/coreswitch/qswitch/internal/queue"
	"github.com/coreswitch/qswitch/internal/redolog"
)

// Options configures a Switch's backing journal.
type Options struct {
	Journal redolog.Options
	Logger  logr.Logger
}

// Switch is the queues facade: the single entry point transports call
// into. Every field below is safe for concurrent use.
type Switch struct {
	dir *directory.Directory
	log *redolog.Log
	lg  logr.Logger

	// sendMu orders id allocation with journal submission across Sends.
	sendMu sync.Mutex
}

// Open creates (or recovers) a Switch backed by the journal described
// by opts. Recovery happens inline: by the time Open returns, every
// record already on disk has been replayed into the directory.
func Open(opts Options) (*Switch, error) {
	dir := directory.New()
	s := &Switch{dir: dir, lg: opts.Logger}

	l, err := redolog.Open(opts.Journal, dir.Apply, opts.Logger)
	if err != nil {
		return nil, err
	}
	s.log = l
	return s, nil
}

// Close stops accepting new mutations and closes the journal.
func (s *Switch) Close() error {
	return s.log.Close()
}

// NewOrigin mints an opaque producer identity for callers that don't
// supply their own, per SPEC_FULL.md's origin identity supplement.
func NewOrigin() op.Origin {
	return op.Origin(uuid.NewString())
}

// Add installs a queue under name if it doesn't already exist.
// Idempotent.
func (s *Switch) Add(ctx context.Context, owner *op.Origin, name string) error {
	var ownerVal op.Origin
	if owner != nil {
		ownerVal = *owner
	}
	return s.log.Append(ctx, op.NewAdd(ownerVal, name))
}

// Remove deletes a queue by name. Idempotent.
func (s *Switch) Remove(ctx context.Context, name string) error {
	return s.log.Append(ctx, op.NewRemove(name))
}

// SendResult is the (name, id) pair returned by a successful Send.
type SendResult struct {
	Name string
	ID   uint64
}

// Send allocates the next id for name and appends the Send op. It
// returns ok=false without mutating anything if name does not exist:
// producers never create a queue by sending to it.
//
// Id allocation and journal submission happen together under sendMu:
// two concurrent Sends to the same queue must hand their ops to the
// journal in the same order their ids were allocated, or the journal
// could apply (and insert) them out of order, violating strictly
// increasing insertion order. The queue's waiter mutex is held only
// around NextID itself, never across Submit: the apply path takes
// that mutex to insert and broadcast, so a Send blocked in Submit
// while holding it would deadlock against the apply of the previous
// Send. sendMu is released as soon as Submit's handoff completes
// rather than held until the op is applied.
func (s *Switch) Send(ctx context.Context, origin op.Origin, name string, msg op.Message, timestampNS int64) (SendResult, bool, error) {
	if !s.dir.Exists(name) {
		return SendResult{}, false, nil
	}
	q := s.dir.Find(name)
	w := q.Waiter()

	s.sendMu.Lock()
	w.Mutex.Lock()
	id := q.NextID()
	w.Mutex.Unlock()
	result, err := s.log.Submit(ctx, op.NewSend(origin, name, id, msg, timestampNS))
	s.sendMu.Unlock()
	if err != nil {
		return SendResult{}, false, err
	}

	select {
	case err := <-result:
		if err != nil {
			return SendResult{}, false, err
		}
	case <-ctx.Done():
		return SendResult{}, false, ctx.Err()
	}
	return SendResult{Name: name, ID: id}, true, nil
}

// Ack removes id from its queue. Ack of an unknown id is a no-op, not
// an error.
func (s *Switch) Ack(ctx context.Context, id op.ID) error {
	return s.log.Append(ctx, op.NewAck(id))
}

// TransferredEntry pairs a message id with its entry for Transfer's
// result list.
type TransferredEntry struct {
	ID      op.ID
	Message op.Message
}

// Transfer is a pure read: for each name, the submap with ids
// strictly greater than from, flattened in request order (per-queue
// order preserved, cross-queue order unspecified).
func (s *Switch) Transfer(from int64, names []string) []TransferredEntry {
	var out []TransferredEntry
	for _, name := range names {
		q := s.dir.Find(name)
		for _, ie := range q.After(from) {
			out = append(out, TransferredEntry{
				ID:      op.ID{Name: name, Sequence: ie.ID},
				Message: ie.Entry.Message,
			})
		}
	}
	return out
}

// Entry looks up a single message id.
func (s *Switch) Entry(id op.ID) (op.Entry, bool) {
	q := s.dir.Find(id.Name)
	return q.Entry(id.Sequence)
}

// List returns queue names with the given prefix.
func (s *Switch) List(prefix string) []string {
	return s.dir.List(prefix)
}

// OwnedQueues returns the names of queues transient to owner.
func (s *Switch) OwnedQueues(owner op.Origin) []string {
	return s.dir.OwnedQueues(owner)
}

// Contents returns a snapshot of a single queue's entries, in
// insertion order.
func (s *Switch) Contents(name string) []queue.IDEntry {
	return s.dir.Find(name).Contents()
}

// Wait blocks until one of names has progressed past from, or any of
// them is created, or timeout elapses. Returns true if something
// resolved before the timeout.
func (s *Switch) Wait(ctx context.Context, from int64, timeout time.Duration, names []string) bool {
	return s.dir.Wait(ctx, from, timeout, names)
}

// ReapOwner removes every queue transient to owner, one journal entry
// at a time; safe to retry on partial failure since Remove is
// idempotent.
func (s *Switch) ReapOwner(ctx context.Context, owner op.Origin) error {
	for _, name := range s.dir.OwnedQueues(owner) {
		if err := s.Remove(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// Lengths returns every queue name paired with its current length.
func (s *Switch) Lengths() map[string]int {
	return s.dir.Lengths()
}

// Measure returns the length of a single queue, or ok=false if it
// doesn't exist.
func (s *Switch) Measure(name string) (int, bool) {
	return s.dir.Measure(name)
}
