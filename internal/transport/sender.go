package transport

import (
	"context"
	"io"
	"sync"

	"github.com/1ureka/blockwire/internal/util"
)

// sender is the single writer goroutine of a Conn. Buffers are written in
// the order they were enqueued; a frame's header and payload are two
// separate writes.
type sender struct {
	conn *Conn

	mu      sync.Mutex
	pending [][]byte
	closing bool

	wake chan struct{}
}

func newSender(c *Conn) *sender {
	return &sender{
		conn: c,
		wake: make(chan struct{}, 1),
	}
}

// enqueue appends buffers to the pending queue and wakes the loop.
// Empty buffers are skipped.
func (s *sender) enqueue(bufs ...[]byte) {
	s.mu.Lock()
	for _, b := range bufs {
		if len(b) > 0 {
			s.pending = append(s.pending, b)
		}
	}
	s.mu.Unlock()
	s.signal()
}

// finish asks the loop to close the connection once the queue is empty.
func (s *sender) finish() {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()
	s.signal()
}

func (s *sender) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// loop drains the pending queue each time it is woken. It exits when ctx
// is cancelled or after a requested close has flushed.
func (s *sender) loop(ctx context.Context, w io.Writer) {
	// Anything queued while the stream was being established.
	s.signal()

	for {
		select {
		case <-s.wake:
		case <-ctx.Done():
			return
		}

		for {
			s.mu.Lock()
			batch := s.pending
			s.pending = nil
			closing := s.closing
			s.mu.Unlock()

			if len(batch) == 0 {
				if closing {
					s.conn.closeWith(nil)
					return
				}
				break
			}

			for _, b := range batch {
				if _, err := w.Write(b); err != nil {
					util.LogDebug("[%s] write failed: %v", s.conn.Tag(), err)
					s.conn.closeWith(err)
					return
				}
				util.Stats.AddSent(len(b))
			}
		}
	}
}
