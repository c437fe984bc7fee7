package directory

import "github.com/coreswitch/qswitch/internal/op"

// Apply is the reducer the redo log's single apply-path goroutine
// calls for every record it accepts, in journal order: queues <-
// apply(queues, op). It is the only place that mutates the directory
// outside of the waiter bookkeeping Add/Remove already serialize
// themselves, and it's safe to call from journal replay or from the
// live apply loop with identical results.
func (d *Directory) Apply(o op.Op) {
	switch o.Tag {
	case op.TagAdd:
		var owner *op.Origin
		if o.Owner != "" {
			v := o.Owner
			owner = &v
		}
		d.Add(owner, o.Name)
	case op.TagRemove:
		d.Remove(o.Name)
	case op.TagAck:
		d.applyAck(o.ID)
	case op.TagSend:
		d.applySend(o)
	}
}

// applyAck removes id from its queue if both the queue and the id
// exist; unknown name or unknown id are both no-ops, matching the
// idempotent-ack contract in spec.md §7.
func (d *Directory) applyAck(id op.ID) {
	d.mu.RLock()
	q, ok := d.queues[id.Name]
	d.mu.RUnlock()
	if !ok {
		return
	}
	q.RemoveID(id.Sequence)
}

// applySend inserts the entry into the named queue if it exists.
// Sending into a queue that doesn't exist is dropped silently, even
// during replay: the core never creates a queue as a side effect of a
// message arriving for it.
func (d *Directory) applySend(o op.Op) {
	d.mu.RLock()
	q, ok := d.queues[o.Name]
	d.mu.RUnlock()
	if !ok {
		return
	}
	w := q.Waiter()
	w.Mutex.Lock()
	q.Append(o.ID.Sequence, op.Entry{
		TimestampNS: o.TimestampNS,
		Origin:      o.SendOrigin,
		Message:     o.Message,
	})
	w.Mutex.Unlock()
}
