package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/1ureka/blockwire/internal/util"
)

const acceptBacklog = 64 // accepted connections waiting for the tick

// Listener yields one Conn per incoming peer as EventAccepted.
type Listener struct {
	ln       net.Listener // nil for an adopt-only listener
	accepted chan *Conn

	parent    context.Context // accepted connections outlive the listener
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// Listen opens a TCP listener and starts accepting in the background.
func Listen(ctx context.Context, addr string) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	l := newListener(ctx, ln)
	go l.acceptLoop()
	return l, nil
}

// NewAdoptListener returns a listener with no socket of its own; it only
// yields streams handed to Adopt.
func NewAdoptListener(ctx context.Context) *Listener {
	return newListener(ctx, nil)
}

func newListener(ctx context.Context, ln net.Listener) *Listener {
	lCtx, cancel := context.WithCancel(ctx)
	l := &Listener{
		ln:       ln,
		accepted: make(chan *Conn, acceptBacklog),
		parent:   ctx,
		ctx:      lCtx,
		cancel:   cancel,
	}
	go func() {
		<-lCtx.Done()
		if ln != nil {
			ln.Close()
		}
	}()
	return l
}

func (l *Listener) acceptLoop() {
	for {
		nc, err := l.ln.Accept()
		if err != nil {
			if l.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			util.LogWarning("accept failed: %v", err)
			select {
			case <-time.After(50 * time.Millisecond):
			case <-l.ctx.Done():
				return
			}
			continue
		}
		l.adopt(newAcceptedConn(l.parent, nc, nc.RemoteAddr().String(), nc.LocalAddr()))
	}
}

// Adopt hands an already established stream to the listener, e.g. an
// upgraded websocket. It returns the new Conn, or nil if the listener is
// closed (the stream is closed in that case).
func (l *Listener) Adopt(stream io.ReadWriteCloser, remote string) *Conn {
	var local net.Addr
	if l.ln != nil {
		local = l.ln.Addr()
	}
	c := newAcceptedConn(l.parent, stream, remote, local)
	if !l.adopt(c) {
		return nil
	}
	return c
}

func (l *Listener) adopt(c *Conn) bool {
	if l.ctx.Err() != nil {
		c.Close()
		return false
	}
	select {
	case l.accepted <- c:
		return true
	case <-l.ctx.Done():
		c.Close()
		return false
	}
}

// PollEvents returns an EventAccepted for every connection accepted since
// the last call.
func (l *Listener) PollEvents() []Event {
	var events []Event
	for {
		select {
		case c := <-l.accepted:
			events = append(events, Event{Kind: EventAccepted, Conn: c})
		default:
			return events
		}
	}
}

// Addr returns the bound address, or nil for an adopt-only listener.
func (l *Listener) Addr() net.Addr {
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Close stops accepting. Connections already handed out stay open;
// connections not yet polled are closed.
func (l *Listener) Close() error {
	l.closeOnce.Do(func() {
		l.cancel()
		for {
			select {
			case c := <-l.accepted:
				c.Close()
			default:
				return
			}
		}
	})
	return nil
}
