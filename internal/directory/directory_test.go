package directory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreswitch/qswitch/internal/op"
)

func TestAddIsIdempotent(t *testing.T) {
	d := New()
	d.Add(nil, "q1")
	q1 := d.Find("q1")
	d.Add(nil, "q1")
	q2 := d.Find("q1")
	assert.Same(t, q1, q2, "second Add must not replace the existing queue")
}

func TestRemoveIsIdempotent(t *testing.T) {
	d := New()
	d.Remove("missing") // must not panic
	d.Add(nil, "q1")
	d.Remove("q1")
	assert.False(t, d.Exists("q1"))
	d.Remove("q1") // second remove is a no-op
	assert.False(t, d.Exists("q1"))
}

func TestFindReturnsEphemeralQueueForMissingName(t *testing.T) {
	d := New()
	q := d.Find("nope")
	assert.Equal(t, "nope", q.Name)
	assert.False(t, d.Exists("nope"), "Find must not insert")
}

func TestByOwnerConsistency(t *testing.T) {
	d := New()
	c := op.Origin("c1")
	d.Add(&c, "t1")
	d.Add(&c, "t2")
	d.Add(nil, "p1")

	assert.ElementsMatch(t, []string{"t1", "t2"}, d.OwnedQueues("c1"))

	d.Remove("t1")
	assert.ElementsMatch(t, []string{"t2"}, d.OwnedQueues("c1"))

	d.Remove("t2")
	assert.Empty(t, d.OwnedQueues("c1"))
	assert.ElementsMatch(t, []string{"p1"}, d.List(""))
}

func TestListPrefix(t *testing.T) {
	d := New()
	d.Add(nil, "orders.us")
	d.Add(nil, "orders.eu")
	d.Add(nil, "billing")

	assert.ElementsMatch(t, []string{"orders.us", "orders.eu"}, d.List("orders."))
	assert.ElementsMatch(t, []string{"orders.us", "orders.eu", "billing"}, d.List(""))
}

func TestWaitForCreationWakesAllOnFirstAdd(t *testing.T) {
	d := New()

	ch1, cancel1 := d.WaitForCreation("q")
	ch2, cancel2 := d.WaitForCreation("q")
	defer cancel1()
	defer cancel2()

	select {
	case <-ch1:
		t.Fatal("should not be woken before Add")
	case <-time.After(20 * time.Millisecond):
	}

	d.Add(nil, "q")

	select {
	case <-ch1:
	case <-time.After(time.Second):
		t.Fatal("waiter 1 not woken")
	}
	select {
	case <-ch2:
	case <-time.After(time.Second):
		t.Fatal("waiter 2 not woken")
	}
}

func TestWaitForCreationAlreadyExistingFiresImmediately(t *testing.T) {
	d := New()
	d.Add(nil, "q")
	ch, cancel := d.WaitForCreation("q")
	defer cancel()
	select {
	case <-ch:
	default:
		t.Fatal("expected already-closed channel")
	}
}

func TestWaitForCreationCancelDeregisters(t *testing.T) {
	d := New()
	_, cancel := d.WaitForCreation("q")
	cancel()

	require.Empty(t, d.pending["q"])

	// a later Add must not panic due to stale waiters, and a fresh
	// waiter registered after cancellation still gets woken.
	ch, cancel2 := d.WaitForCreation("q")
	defer cancel2()
	d.Add(nil, "q")
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("fresh waiter not woken")
	}
}

func TestLengthsAndMeasure(t *testing.T) {
	d := New()
	d.Add(nil, "q1")
	q := d.Find("q1")
	w := q.Waiter()
	w.Mutex.Lock()
	id := q.NextID()
	q.Append(id, op.Entry{})
	w.Mutex.Unlock()

	lengths := d.Lengths()
	assert.Equal(t, 1, lengths["q1"])

	n, ok := d.Measure("q1")
	assert.True(t, ok)
	assert.Equal(t, 1, n)

	_, ok = d.Measure("missing")
	assert.False(t, ok)
}
