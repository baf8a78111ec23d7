package transport

import "fmt"

// EventKind tags an Event.
type EventKind int

const (
	// EventConnected: an outgoing connection attempt succeeded.
	EventConnected EventKind = iota + 1
	// EventAccepted: a listener produced a new connection (Event.Conn).
	EventAccepted
	// EventDisconnected: the connection is gone. Event.Err is nil for a
	// clean close by either side.
	EventDisconnected
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventAccepted:
		return "accepted"
	case EventDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is a lifecycle change, delivered only when the owner polls.
type Event struct {
	Kind EventKind
	Conn *Conn
	Err  error
}
