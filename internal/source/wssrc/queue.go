package wssrc

import (
	"sync"
)

// queue carries websocket messages from the read loop to Fill. Unlike a
// broadcast flow it never drops data: a full queue blocks the writer, which in
// turn stops reading from the connection.
type queue struct {
	messages chan []byte

	// Closed by finish. err is the reason: io.EOF for a clean close.
	done chan struct{}
	err  error

	once sync.Once
}

func newQueue(depth int) *queue {
	if depth <= 0 {
		panic("wssrc: queue depth must be positive")
	}
	return &queue{
		messages: make(chan []byte, depth),
		done:     make(chan struct{}),
	}
}

// put adds p to the queue, waiting for room. It returns false if quit closes
// first.
func (q *queue) put(p []byte, quit <-chan struct{}) bool {
	select {
	case q.messages <- p:
		return true
	case <-quit:
		return false
	}
}

// finish ends the queue. Messages already queued are still delivered; after
// that get returns err. Only the first call has any effect.
func (q *queue) finish(err error) {
	q.once.Do(func() {
		q.err = err
		close(q.done)
	})
}

func (q *queue) finished() bool {
	select {
	case <-q.done:
		return true
	default:
		return false
	}
}

// get waits for the next message.
func (q *queue) get() ([]byte, error) {
	select {
	case p := <-q.messages:
		return p, nil
	default:
	}

	select {
	case p := <-q.messages:
		return p, nil
	case <-q.done:
		select {
		case p := <-q.messages:
			return p, nil
		default:
			return nil, q.err
		}
	}
}
