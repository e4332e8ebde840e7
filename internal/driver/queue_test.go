package driver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmerle/sireader/internal/protocol"
)

func TestQueueDeliversInOrder(t *testing.T) {
	q := newMessageQueue()
	q.push(protocol.NewFrame(protocol.BeepTwice))
	q.push(protocol.NewFrame(protocol.ReadCard5))

	first, err := q.take(time.Second, "test")
	require.NoError(t, err)
	assert.Equal(t, byte(protocol.Beep), first.Command())

	second, err := q.takeForever()
	require.NoError(t, err)
	assert.Equal(t, byte(protocol.GetCard5), second.Command())
}

func TestQueueTakeTimesOut(t *testing.T) {
	q := newMessageQueue()

	start := time.Now()
	_, err := q.take(50*time.Millisecond, "nothing")

	var timeout *TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, "nothing", timeout.Op)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestQueueClearWakesWaiters(t *testing.T) {
	q := newMessageQueue()

	errCh := make(chan error, 1)
	go func() {
		_, err := q.takeForever()
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	q.clear()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrStopped)
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken by clear")
	}
}

func TestQueueClearDropsQueuedFrames(t *testing.T) {
	q := newMessageQueue()
	q.push(protocol.NewFrame(protocol.BeepTwice))
	q.clear()

	_, err := q.take(10*time.Millisecond, "after clear")
	assert.ErrorIs(t, err, ErrStopped)
}

func TestQueueClearIsIdempotent(t *testing.T) {
	q := newMessageQueue()
	q.clear()
	assert.NotPanics(t, q.clear)
}
