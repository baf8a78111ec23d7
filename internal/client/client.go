// Package client is the player's side of a game session: it connects to a
// server, joins under a name, mirrors the lobby and opponents from relayed
// messages, and sends the local player's updates.
//
// Like the server, a Client is driven by calling Update once per tick and
// is not safe for concurrent use.
package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/1ureka/blockwire/internal/config"
	"github.com/1ureka/blockwire/internal/gameplay"
	"github.com/1ureka/blockwire/internal/message"
	"github.com/1ureka/blockwire/internal/protocol"
	"github.com/1ureka/blockwire/internal/transport"
	"github.com/1ureka/blockwire/internal/util"
)

var (
	// ErrConnectPending is returned by Connect while an earlier attempt has
	// not resolved yet.
	ErrConnectPending = errors.New("client: connect already pending")
	ErrConnected      = errors.New("client: already connected")
	ErrNotJoined      = errors.New("client: not joined")
)

// Connection is the part of *transport.Conn a client uses.
type Connection interface {
	PollEvents() []transport.Event
	PopPackets() []protocol.Frame
	WritePayload(payload []byte) error
	DisconnectAfterWriting()
	Close() error
}

// Dialer starts a connection attempt that resolves as an EventConnected or
// EventDisconnected on a later PollEvents.
type Dialer func(ctx context.Context, addr string, timeout time.Duration) Connection

// Dial picks the websocket transport for ws:// and wss:// addresses and TCP
// otherwise.
func Dial(ctx context.Context, addr string, timeout time.Duration) Connection {
	if strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://") {
		return transport.DialWebSocket(ctx, addr, timeout)
	}
	return transport.Dial(ctx, addr, timeout)
}

// Status mirrors the connection and join handshake.
type Status int

const (
	StatusUninitialized Status = iota
	StatusDisconnected         // not talking to a server
	StatusConnected            // socket up, join not yet granted
	StatusJoined               // in the lobby
	StatusPrimed               // preparing a game
	StatusActive               // playing
)

var statusNames = []string{"uninitialized", "disconnected", "connected", "joined", "primed", "active"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Phase is the client's view of the server's game lifecycle.
type Phase int

const (
	PhaseLobby Phase = iota
	PhasePrepping
	PhasePlaying
	PhaseGameOver
)

var phaseNames = []string{"lobby", "prepping", "playing", "gameOver"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// LocalPlayer is owned by this client. The server's roster only overrides
// the ready and alive flags.
type LocalPlayer struct {
	ClientID     uint32
	Name         string
	IsReady      bool
	IsAlive      bool
	IncomingRows uint32 // rows sent by opponents this game
}

// Opponent is another player as relayed by the server.
type Opponent struct {
	ClientID    uint32
	Name        string
	IsReady     bool
	IsAlive     bool
	Current     gameplay.Piece
	NextShape   uint32
	Embedded    []gameplay.Piece
	RowsCleared int
}

func (o *Opponent) resetGame() {
	o.IsAlive = true
	o.Current = gameplay.Piece{}
	o.NextShape = 0
	o.Embedded = nil
	o.RowsCleared = 0
}

// Option configures a Client.
type Option func(*Client)

// WithObserver receives game events, e.g. for a UI.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithDialer replaces Dial.
func WithDialer(d Dialer) Option {
	return func(c *Client) { c.dial = d }
}

// Client is one player's connection to a server.
type Client struct {
	cfg      config.ClientConfig
	dial     Dialer
	observer Observer
	handlers *message.Table[handler]

	conn       Connection
	connecting bool
	onConnect  func(error)
	dropErr    error

	status    Status
	phase     Phase
	local     LocalPlayer
	opponents []*Opponent
	winner    uint32
}

// New returns an uninitialized client.
func New(cfg config.ClientConfig, opts ...Option) (*Client, error) {
	c := &Client{
		cfg:      cfg,
		dial:     Dial,
		observer: NopObserver{},
		status:   StatusUninitialized,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.handlers = c.newHandlers()
	if err := c.handlers.Require(message.ClientBound...); err != nil {
		return nil, err
	}
	return c, nil
}

// Connect starts joining the server at addr as name. handler, if not nil,
// is called from a later Update with nil once the socket is up or with the
// error that ended the attempt.
func (c *Client) Connect(ctx context.Context, addr, name string, handler func(error)) error {
	if c.connecting {
		return ErrConnectPending
	}
	if c.conn != nil && c.status >= StatusConnected {
		return ErrConnected
	}
	// A connection left over from Disconnect closes itself once flushed.

	c.local = LocalPlayer{Name: name}
	c.opponents = nil
	c.winner = 0
	c.dropErr = nil
	c.phase = PhaseLobby
	c.onConnect = handler
	c.connecting = true
	c.conn = c.dial(ctx, addr, c.cfg.ConnectTimeout)
	util.LogInfo("Connecting to %s as %q...", addr, name)
	return nil
}

// Disconnect flushes pending writes and closes the connection.
func (c *Client) Disconnect() {
	if c.conn == nil {
		return
	}
	c.conn.DisconnectAfterWriting()
	c.status = StatusDisconnected
}

// Update runs one tick: connection events, then every received message.
func (c *Client) Update() {
	if c.conn == nil {
		return
	}
	conn := c.conn
	events := conn.PollEvents()

	for _, ev := range events {
		if ev.Kind == transport.EventConnected {
			c.connected()
		}
	}

	for _, f := range conn.PopPackets() {
		if c.status == StatusDisconnected {
			break
		}
		c.dispatch(f.Payload)
	}

	for _, ev := range events {
		if ev.Kind == transport.EventDisconnected {
			c.disconnected(ev.Err)
		}
	}
}

func (c *Client) connected() {
	c.status = StatusConnected
	c.send(message.NewRequest(c.local.Name))
	util.LogSuccess("Connected, requesting to join as %q", c.local.Name)
	c.resolveConnect(nil)
}

func (c *Client) disconnected(err error) {
	c.status = StatusDisconnected
	c.conn = nil
	c.resolveConnect(err)
	if c.dropErr != nil {
		err = c.dropErr
	}
	if err != nil {
		util.LogWarning("Disconnected from server: %v", err)
	} else {
		util.LogInfo("Disconnected from server")
	}
	c.observer.OnDisconnected(err)
}

func (c *Client) resolveConnect(err error) {
	if !c.connecting {
		return
	}
	c.connecting = false
	if h := c.onConnect; h != nil {
		c.onConnect = nil
		h(err)
	}
}

func (c *Client) dispatch(payload []byte) {
	msg, err := message.Decode(payload)
	if err != nil {
		util.LogWarning("Dropping message from server: %v", err)
		return
	}
	h, ok := c.handlers.Lookup(msg.Key)
	if !ok {
		util.LogDebug("Ignoring %v from server", msg.Key)
		return
	}
	if err := h(msg); err != nil {
		util.LogWarning("Dropping %v from server: %v", msg.Key, err)
	}
}

func (c *Client) send(payload []byte) error {
	if c.conn == nil {
		return transport.ErrClosed
	}
	return c.conn.WritePayload(payload)
}

// Status returns the handshake status.
func (c *Client) Status() Status { return c.status }

// Phase returns the last phase announced by the server.
func (c *Client) Phase() Phase { return c.phase }

// Local returns the local player.
func (c *Client) Local() LocalPlayer { return c.local }

// Winner returns the winner of the last finished game, 0 for none.
func (c *Client) Winner() uint32 { return c.winner }

// Opponents returns a copy of every other player in roster order.
func (c *Client) Opponents() []Opponent {
	out := make([]Opponent, len(c.opponents))
	for i, o := range c.opponents {
		out[i] = *o
		out[i].Embedded = append([]gameplay.Piece(nil), o.Embedded...)
	}
	return out
}

// Opponent returns a copy of the opponent with the given client ID.
func (c *Client) Opponent(clientID uint32) (Opponent, bool) {
	if o := c.opponent(clientID); o != nil {
		cp := *o
		cp.Embedded = append([]gameplay.Piece(nil), o.Embedded...)
		return cp, true
	}
	return Opponent{}, false
}

func (c *Client) opponent(clientID uint32) *Opponent {
	for _, o := range c.opponents {
		if o.ClientID == clientID {
			return o
		}
	}
	return nil
}
