// Package redolog implements component E: a journal over a fixed-size
// block ring that every mutating Queues operation is appended to
// before it becomes visible in memory, plus startup replay of
// whatever the ring still holds.
//
// The apply loop is modeled on xtaci/gaio's watcher.loop(): one
// goroutine multiplexing a channel of pending work (there: aiocb
// submissions; here: append requests) against a shutdown channel,
// so every apply to the in-memory state happens on a single
// goroutine and mutations are sequentially consistent by
// construction, without an explicit lock around the reducer itself.
package redolog

import (
	"context"
	"sort"
	"sync"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"

	"github.com/coreswitch/qswitch/internal/op"
)

// Options configures a Log's backing block ring.
type Options struct {
	Path       string
	BlockSize  int
	BlockCount int
}

// DefaultOptions returns reasonable defaults for an on-disk journal:
// 4KiB blocks, 4096 of them (16MiB total), which comfortably holds
// small control-plane Ops; large Send payloads that don't fit push
// the caller toward a bigger BlockSize.
func DefaultOptions(path string) Options {
	return Options{Path: path, BlockSize: 4096, BlockCount: 4096}
}

// Reducer is called once per accepted record, in append order, both
// during startup replay and for live appends. It must not block.
type Reducer func(op.Op)

type appendRequest struct {
	encoded []byte
	result  chan error
}

// Log is the append-only journal described by spec.md §4.E. All
// appends are serialized onto a single internal goroutine, so the
// N-th append only completes after the N-1 before it have, and the
// Reducer only ever observes one Op at a time.
type Log struct {
	ring   *blockRing
	reduce Reducer
	log    logr.Logger

	pending chan appendRequest
	die     chan struct{}
	dieOnce sync.Once
	wg      sync.WaitGroup
}

// ErrClosed is returned by Append once the log has been closed.
var ErrClosed = errors.New("redolog: closed")

// Open opens (creating if necessary) the block ring at opts.Path,
// replays every record it holds into reduce in order, and starts the
// live apply loop. Codec errors on individual records are logged and
// skipped; replay itself only fails on I/O errors against the ring
// file.
func Open(opts Options, reduce Reducer, log logr.Logger) (*Log, error) {
	ring, err := openBlockRing(opts.Path, opts.BlockSize, opts.BlockCount)
	if err != nil {
		return nil, err
	}

	l := &Log{
		ring:    ring,
		reduce:  reduce,
		log:     log,
		pending: make(chan appendRequest),
		die:     make(chan struct{}),
	}

	if err := l.replay(); err != nil {
		ring.close()
		return nil, err
	}

	l.wg.Add(1)
	go l.loop()
	return l, nil
}

func (l *Log) replay() error {
	blocks, err := l.ring.readAll()
	if err != nil {
		return err
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].seq < blocks[j].seq })

	var maxSeq uint64
	var maxIndex int
	applied := 0
	for _, b := range blocks {
		if b.seq > maxSeq {
			maxSeq = b.seq
			maxIndex = b.index
		}
		decoded, ok := op.Decode(b.payload)
		if !ok {
			l.log.Info("dropping undecodable journal record during replay", "seq", b.seq)
			continue
		}
		l.reduce(decoded)
		applied++
	}

	if maxSeq > 0 {
		l.ring.lastSeq = maxSeq
		l.ring.nextIndex = (maxIndex + 1) % l.ring.blockCount
	}

	l.log.Info("journal replay complete", "records_seen", len(blocks), "records_applied", applied)
	return nil
}

// Submit hands an encoded op off to the apply loop and returns the
// channel its result will arrive on, without waiting for that result.
// The handoff itself (the send on l.pending) only completes once the
// loop goroutine has received it, so by the time Submit returns, this
// op has been accepted for processing strictly before any op a caller
// submits afterward — callers that need allocation order (e.g. a
// queue's next_id) to match apply order should hold their own
// ordering lock across NextID and Submit, then release it before
// waiting on the returned channel. That lock must not be one the
// Reducer takes (such as a queue's waiter mutex): the loop would block
// on it while applying one op, and a caller holding it would block in
// Submit waiting for the loop, so the two would deadlock.
func (l *Log) Submit(ctx context.Context, o op.Op) (<-chan error, error) {
	encoded := op.Encode(o)
	if encoded == nil {
		return nil, errors.Errorf("redolog: cannot encode op with tag %v", o.Tag)
	}

	req := appendRequest{encoded: encoded, result: make(chan error, 1)}
	select {
	case l.pending <- req:
		return req.result, nil
	case <-l.die:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Append submits an encoded Op, blocking until it has been written
// durably to the ring and applied via the Reducer, or ctx is done, or
// the log is closed. An error from encoding, from a closed log, from
// ctx before the handoff, or from the ring write means the mutation
// did not take effect; if ctx is done after the handoff, Append
// returns ctx.Err() while the op may still be written and applied.
func (l *Log) Append(ctx context.Context, o op.Op) error {
	result, err := l.Submit(ctx, o)
	if err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// loop is the journal's single apply-path worker: appends and applies
// happen here and only here, so "applied" implies "observable" in the
// same order records were accepted, per spec.md §5's ordering
// guarantee.
func (l *Log) loop() {
	defer l.wg.Done()
	for {
		select {
		case req := <-l.pending:
			if err := l.ring.writeNext(req.encoded); err != nil {
				req.result <- err
				continue
			}
			decoded, ok := op.Decode(req.encoded)
			if ok {
				l.reduce(decoded)
			}
			req.result <- nil
		case <-l.die:
			return
		}
	}
}

// Close stops accepting new appends, waits for the loop goroutine to
// drain, and closes the backing file.
func (l *Log) Close() error {
	l.dieOnce.Do(func() { close(l.die) })
	l.wg.Wait()
	return l.ring.close()
}
