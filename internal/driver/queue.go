package driver

import (
	"sync"
	"time"

	"github.com/tmerle/sireader/internal/protocol"
)

// messageQueue is the single rendezvous between the port reader and the
// driver task: an ordered FIFO of complete frames with blocking takes.
type messageQueue struct {
	frames chan *protocol.Frame

	once sync.Once
	done chan struct{}
}

const queueCapacity = 16

func newMessageQueue() *messageQueue {
	return &messageQueue{
		frames: make(chan *protocol.Frame, queueCapacity),
		done:   make(chan struct{}),
	}
}

// push enqueues a frame without blocking. A full queue drops the frame;
// the station never gets that far ahead of the driver in handshake mode.
func (q *messageQueue) push(f *protocol.Frame) {
	select {
	case q.frames <- f:
	default:
	}
}

// take returns the next frame, or a TimeoutError after timeout, or
// ErrStopped once the queue is cleared.
func (q *messageQueue) take(timeout time.Duration, op string) (*protocol.Frame, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case f := <-q.frames:
		return f, nil
	case <-timer.C:
		return nil, &TimeoutError{Op: op}
	case <-q.done:
		return nil, ErrStopped
	}
}

// takeForever returns the next frame, waiting indefinitely; it only fails
// with ErrStopped when the queue is cleared.
func (q *messageQueue) takeForever() (*protocol.Frame, error) {
	select {
	case f := <-q.frames:
		return f, nil
	case <-q.done:
		return nil, ErrStopped
	}
}

// clear aborts all waiters with ErrStopped and drops queued frames.
func (q *messageQueue) clear() {
	q.once.Do(func() { close(q.done) })
	for {
		select {
		case <-q.frames:
		default:
			return
		}
	}
}
