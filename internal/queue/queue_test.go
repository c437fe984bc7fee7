package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreswitch/qswitch/internal/op"
)

func TestAppendRemoveInvariants(t *testing.T) {
	q := Make(nil, "q1")
	assert.Equal(t, 0, q.Len())

	w := q.Waiter()
	w.Mutex.Lock()
	id0 := q.NextID()
	q.Append(id0, op.Entry{Origin: "a", Message: op.Message{Body: []byte("m0")}})
	id1 := q.NextID()
	q.Append(id1, op.Entry{Origin: "a", Message: op.Message{Body: []byte("m1")}})
	w.Mutex.Unlock()

	require.Equal(t, uint64(0), id0)
	require.Equal(t, uint64(1), id1)
	assert.Equal(t, 2, q.Len())

	for _, ie := range q.Contents() {
		assert.Less(t, ie.ID, w.NextID)
	}

	q.RemoveID(id0)
	assert.Equal(t, 1, q.Len())
	_, ok := q.Entry(id0)
	assert.False(t, ok)

	// removing an unknown id is a no-op
	q.RemoveID(999)
	assert.Equal(t, 1, q.Len())
}

func TestContentsPreservesInsertionOrder(t *testing.T) {
	q := Make(nil, "q1")
	w := q.Waiter()
	var ids []uint64
	for i := 0; i < 5; i++ {
		w.Mutex.Lock()
		id := q.NextID()
		q.Append(id, op.Entry{Origin: "a"})
		w.Mutex.Unlock()
		ids = append(ids, id)
	}

	contents := q.Contents()
	require.Len(t, contents, 5)
	for i, ie := range contents {
		assert.Equal(t, ids[i], ie.ID)
	}
}

func TestAfterFiltersStrictlyGreater(t *testing.T) {
	q := Make(nil, "q1")
	w := q.Waiter()
	for i := 0; i < 4; i++ {
		w.Mutex.Lock()
		id := q.NextID()
		q.Append(id, op.Entry{})
		w.Mutex.Unlock()
	}

	after := q.After(1)
	require.Len(t, after, 2)
	assert.Equal(t, uint64(2), after[0].ID)
	assert.Equal(t, uint64(3), after[1].ID)
}

func TestIsOwnedBy(t *testing.T) {
	persistent := Make(nil, "p")
	assert.False(t, persistent.IsOwnedBy("c"))

	owner := op.Origin("c")
	transient := Make(&owner, "t")
	assert.True(t, transient.IsOwnedBy("c"))
	assert.False(t, transient.IsOwnedBy("other"))
}

func TestMonotonicIDsSurviveAck(t *testing.T) {
	q := Make(nil, "q")
	w := q.Waiter()

	send := func() uint64 {
		w.Mutex.Lock()
		defer w.Mutex.Unlock()
		id := q.NextID()
		q.Append(id, op.Entry{})
		return id
	}

	id0, id1, id2 := send(), send(), send()
	assert.Equal(t, []uint64{0, 1, 2}, []uint64{id0, id1, id2})

	q.RemoveID(id1)

	id3 := send()
	assert.Equal(t, uint64(3), id3)
	assert.NotEqual(t, id1, id3)
}
