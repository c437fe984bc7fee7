package directory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreswitch/qswitch/internal/op"
)

func TestApplyReplaysSendAckAddRemove(t *testing.T) {
	d := New()
	d.Apply(op.NewAdd("", "q"))
	d.Apply(op.NewSend("origin-a", "q", 0, op.Message{Body: []byte("m0")}, 1))
	d.Apply(op.NewSend("origin-a", "q", 1, op.Message{Body: []byte("m1")}, 2))

	q := d.Find("q")
	assert.Equal(t, 2, q.Len())
	assert.Equal(t, uint64(2), q.Waiter().NextID)

	d.Apply(op.NewAck(op.ID{Name: "q", Sequence: 0}))
	assert.Equal(t, 1, q.Len())

	d.Apply(op.NewRemove("q"))
	assert.False(t, d.Exists("q"))
}

func TestApplySendIntoMissingQueueIsDropped(t *testing.T) {
	d := New()
	d.Apply(op.NewSend("origin-a", "nope", 0, op.Message{Body: []byte("m")}, 1))
	assert.False(t, d.Exists("nope"))
}

func TestApplyOutOfOrderSendAdvancesNextID(t *testing.T) {
	// Replay can hand Append an id directly (not via NextID
	// preallocation); next_id must still end up past the highest id
	// seen, per spec.md §3's recovery rule.
	d := New()
	d.Apply(op.NewAdd("", "q"))
	d.Apply(op.NewSend("a", "q", 5, op.Message{}, 0))

	q := d.Find("q")
	require.Equal(t, uint64(6), q.Waiter().NextID)
}

func TestApplyAckUnknownIDIsIdempotent(t *testing.T) {
	d := New()
	d.Apply(op.NewAdd("", "q"))
	d.Apply(op.NewAck(op.ID{Name: "q", Sequence: 0}))
	d.Apply(op.NewAck(op.ID{Name: "q", Sequence: 0}))
	assert.Equal(t, 0, d.Find("q").Len())
}
