// Package transport carries frames over stream sockets. Socket I/O runs on
// per-connection goroutines; everything they produce is held until the
// owning tick calls QueueRead or PollEvents.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/1ureka/blockwire/internal/protocol"
	"github.com/1ureka/blockwire/internal/util"
)

const (
	readBufferSize = 32 * 1024 // bytes per read syscall
	chunkBacklog   = 64        // chunks buffered between the reader and the tick
)

// ErrClosed is returned by Write after the connection is closed.
var ErrClosed = errors.New("connection closed")

// State is the tick-side view of a connection.
type State int

const (
	StateConnecting State = iota
	StateConnected
	StateClosed
)

// Conn wraps exactly one byte stream.
//
// Its lifecycle is governed by the stream and the context passed at
// construction time. Reads are pushed by a reader goroutine into a channel;
// writes are queued for a single writer goroutine. Only the tick goroutine
// may call QueueRead, PollEvents, PacketCount and PopPackets.
type Conn struct {
	remote string
	tag    string

	ctx    context.Context
	cancel context.CancelFunc

	// Reader goroutine -> tick.
	dialResult chan error  // one value for dialed connections
	chunks     chan []byte // closed when the reader exits
	readErr    error       // written before chunks is closed

	// Tick-owned.
	state  State
	framer *protocol.Framer
	events []Event

	mu       sync.Mutex
	stream   io.ReadWriteCloser
	closed   bool
	cause    error
	writer   *sender
	closeSig sync.Once
}

func newConn(ctx context.Context, remote string) *Conn {
	cCtx, cancel := context.WithCancel(ctx)
	c := &Conn{
		remote: remote,
		ctx:    cCtx,
		cancel: cancel,
		chunks: make(chan []byte, chunkBacklog),
		framer: protocol.NewFramer(),
	}
	c.writer = newSender(c)
	context.AfterFunc(cCtx, func() { c.closeWith(nil) })
	return c
}

// newAcceptedConn wraps a stream that is already established.
func newAcceptedConn(ctx context.Context, stream io.ReadWriteCloser, remote string, local net.Addr) *Conn {
	c := newConn(ctx, remote)
	c.tag = util.ConnTag(local, stringAddr(remote))
	c.state = StateConnected
	if err := c.attach(stream); err != nil {
		c.state = StateClosed
	}
	return c
}

// dialFunc opens the underlying stream.
type dialFunc func(ctx context.Context) (io.ReadWriteCloser, net.Addr, error)

// dialAsync returns immediately. The attempt surfaces as EventConnected or
// EventDisconnected from a later PollEvents.
func dialAsync(ctx context.Context, remote string, dial dialFunc) *Conn {
	c := newConn(ctx, remote)
	c.dialResult = make(chan error, 1)

	go func() {
		stream, local, err := dial(c.ctx)
		if err != nil {
			if c.isClosed() {
				err = ErrClosed
			}
			err = fmt.Errorf("connect to %s: %w", remote, err)
			c.closeWith(err)
			c.dialResult <- err
			return
		}
		c.mu.Lock()
		c.tag = util.ConnTag(local, stringAddr(remote))
		c.mu.Unlock()
		c.dialResult <- c.attach(stream)
	}()

	return c
}

// Dial connects over TCP. The attempt is bounded by timeout and by ctx.
func Dial(ctx context.Context, addr string, timeout time.Duration) *Conn {
	return dialAsync(ctx, addr, func(ctx context.Context) (io.ReadWriteCloser, net.Addr, error) {
		d := net.Dialer{Timeout: timeout}
		nc, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, nil, err
		}
		return nc, nc.LocalAddr(), nil
	})
}

// attach installs the stream and starts the I/O goroutines.
func (c *Conn) attach(stream io.ReadWriteCloser) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		stream.Close()
		return ErrClosed
	}
	c.stream = stream
	c.mu.Unlock()

	util.Stats.AddConn()
	go c.readLoop(stream)
	go c.writer.loop(c.ctx, stream)
	return nil
}

func (c *Conn) readLoop(stream io.Reader) {
	buf := make([]byte, readBufferSize)
	for {
		n, err := stream.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			util.Stats.AddRecv(n)

			select {
			case c.chunks <- chunk:
			case <-c.ctx.Done():
				// Local close: nobody reads any more.
			}
		}
		if err != nil {
			c.mu.Lock()
			if c.closed {
				err = c.cause
			}
			c.mu.Unlock()
			if errors.Is(err, io.EOF) {
				err = nil
			}

			c.readErr = err
			close(c.chunks)
			c.closeWith(err)
			return
		}
	}
}

// ---------------------------------------------------------------------------
// Tick side
// ---------------------------------------------------------------------------

// QueueRead moves everything the reader goroutine delivered since the last
// call into the framer, and records lifecycle events.
func (c *Conn) QueueRead() {
	if c.state == StateClosed {
		return
	}

	if c.state == StateConnecting {
		select {
		case err := <-c.dialResult:
			if err != nil {
				c.state = StateClosed
				c.events = append(c.events, Event{Kind: EventDisconnected, Conn: c, Err: err})
				return
			}
			c.state = StateConnected
			c.events = append(c.events, Event{Kind: EventConnected, Conn: c})
		default:
			return
		}
	}

	for {
		select {
		case chunk, ok := <-c.chunks:
			if !ok {
				c.state = StateClosed
				c.events = append(c.events, Event{Kind: EventDisconnected, Conn: c, Err: c.readErr})
				return
			}
			before := c.framer.Queue().Len()
			if err := c.framer.Feed(chunk); err != nil {
				util.Stats.AddFramesRecv(c.framer.Queue().Len() - before)
				c.state = StateClosed
				c.events = append(c.events, Event{Kind: EventDisconnected, Conn: c, Err: err})
				c.closeWith(err)
				return
			}
			util.Stats.AddFramesRecv(c.framer.Queue().Len() - before)
		default:
			return
		}
	}
}

// PollEvents returns the events recorded since the last call.
func (c *Conn) PollEvents() []Event {
	c.QueueRead()
	events := c.events
	c.events = nil
	return events
}

// PacketCount returns the number of frames ready to pop.
func (c *Conn) PacketCount() int { return c.framer.Queue().Len() }

// PopPackets returns the ready frames in order and clears them.
func (c *Conn) PopPackets() []protocol.Frame { return c.framer.Queue().Pop() }

// State returns the state as of the last QueueRead.
func (c *Conn) State() State { return c.state }

// IsConnected reports whether the last QueueRead saw a live connection.
func (c *Conn) IsConnected() bool { return c.state == StateConnected }

func (c *Conn) RemoteAddr() string { return c.remote }

// Tag is a short label for logs, stable for the connection's lifetime.
func (c *Conn) Tag() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tag == "" {
		return c.remote
	}
	return c.tag
}

// ---------------------------------------------------------------------------
// Writing and shutdown
// ---------------------------------------------------------------------------

// Write queues the frame header and payload as two buffers. Frames reach
// the wire in call order.
func (c *Conn) Write(f protocol.Frame) error {
	header, err := protocol.EncodeHeader(f)
	if err != nil {
		return err
	}
	if c.isClosed() {
		return ErrClosed
	}
	c.writer.enqueue(header, f.Payload)
	util.Stats.AddFrameSent()
	return nil
}

// WritePayload writes payload as a frame numbered 0.
func (c *Conn) WritePayload(payload []byte) error {
	return c.Write(protocol.Frame{Payload: payload})
}

// DisconnectAfterWriting closes the connection once every frame queued so
// far has been written.
func (c *Conn) DisconnectAfterWriting() {
	c.writer.finish()
}

// Close shuts the connection down immediately, dropping unwritten frames.
func (c *Conn) Close() error {
	c.closeWith(nil)
	return nil
}

// Done returns a channel that is closed when the connection is shut down.
func (c *Conn) Done() <-chan struct{} {
	return c.ctx.Done()
}

func (c *Conn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// closeWith records cause (nil for a clean close) and tears down the stream.
// Only the first call has any effect.
func (c *Conn) closeWith(cause error) {
	c.closeSig.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.cause = cause
		stream := c.stream
		c.mu.Unlock()

		c.cancel()
		if stream != nil {
			stream.Close()
			util.Stats.RemoveConn()
		}
	})
}

// stringAddr adapts a textual remote address to net.Addr for tagging.
type stringAddr string

func (a stringAddr) Network() string { return "tcp" }
func (a stringAddr) String() string  { return string(a) }
