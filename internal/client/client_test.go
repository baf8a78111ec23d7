package client_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/1ureka/blockwire/internal/client"
	"github.com/1ureka/blockwire/internal/config"
	"github.com/1ureka/blockwire/internal/gameplay"
	"github.com/1ureka/blockwire/internal/message"
	"github.com/1ureka/blockwire/internal/protocol"
	"github.com/1ureka/blockwire/internal/transport"
	"github.com/1ureka/blockwire/internal/util"
)

func init() { util.DisableOutput() }

type fakeConn struct {
	events  []transport.Event
	inbox   [][]byte
	sent    [][]byte
	flushed bool
	closed  bool
}

func (c *fakeConn) PollEvents() []transport.Event {
	ev := c.events
	c.events = nil
	return ev
}

func (c *fakeConn) PopPackets() []protocol.Frame {
	var frames []protocol.Frame
	for _, p := range c.inbox {
		frames = append(frames, protocol.Frame{Payload: p})
	}
	c.inbox = nil
	return frames
}

func (c *fakeConn) WritePayload(p []byte) error {
	c.sent = append(c.sent, p)
	return nil
}

func (c *fakeConn) DisconnectAfterWriting() { c.flushed = true }
func (c *fakeConn) Close() error            { c.closed = true; return nil }

func (c *fakeConn) emit(kind transport.EventKind, err error) {
	c.events = append(c.events, transport.Event{Kind: kind, Err: err})
}

func (c *fakeConn) push(p []byte) { c.inbox = append(c.inbox, p) }

func (c *fakeConn) take(t *testing.T) []message.Message {
	t.Helper()
	var out []message.Message
	for _, p := range c.sent {
		m, err := message.Decode(p)
		if err != nil {
			t.Fatalf("undecodable payload %x: %v", p, err)
		}
		out = append(out, m)
	}
	c.sent = nil
	return out
}

// recorder keeps the observer calls it cares about.
type recorder struct {
	client.NopObserver
	denied       []message.DropReason
	disconnected []error
	gameOver     []bool
	incoming     uint32
	rosters      int
}

func (r *recorder) OnDenied(reason message.DropReason) { r.denied = append(r.denied, reason) }
func (r *recorder) OnDisconnected(err error)           { r.disconnected = append(r.disconnected, err) }
func (r *recorder) OnGameOver(won bool, _ uint32)      { r.gameOver = append(r.gameOver, won) }
func (r *recorder) OnRowsIncoming(_, count uint32)     { r.incoming += count }
func (r *recorder) OnRoster(client.LocalPlayer, []client.Opponent) {
	r.rosters++
}

// newClient returns a client whose dials all return a fresh fakeConn,
// reachable through the returned pointer.
func newClient(t *testing.T) (*client.Client, **fakeConn, *recorder) {
	t.Helper()
	var current *fakeConn
	rec := &recorder{}
	dial := func(context.Context, string, time.Duration) client.Connection {
		current = &fakeConn{}
		return current
	}
	c, err := client.New(config.Default().Client, client.WithDialer(dial), client.WithObserver(rec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, &current, rec
}

// joined connects c as name and grants it id.
func joined(t *testing.T, c *client.Client, conn **fakeConn, name string, id uint32) *fakeConn {
	t.Helper()
	if err := c.Connect(t.Context(), "server", name, nil); err != nil {
		t.Fatal(err)
	}
	fc := *conn
	fc.emit(transport.EventConnected, nil)
	fc.push(message.NewGranted(id))
	c.Update()
	fc.take(t)
	if c.Status() != client.StatusJoined {
		t.Fatalf("status %v, want joined", c.Status())
	}
	return fc
}

// TestConnectHandshake verifies the request follows the connect and the
// grant records the client ID.
func TestConnectHandshake(t *testing.T) {
	c, conn, _ := newClient(t)
	if c.Status() != client.StatusUninitialized {
		t.Fatalf("status %v, want uninitialized", c.Status())
	}

	var results []error
	if err := c.Connect(t.Context(), "server", "Alice", func(err error) { results = append(results, err) }); err != nil {
		t.Fatal(err)
	}
	fc := *conn
	c.Update()
	if len(results) != 0 || len(fc.sent) != 0 {
		t.Fatal("handler called or data sent before the connection came up")
	}

	fc.emit(transport.EventConnected, nil)
	c.Update()
	if len(results) != 1 || results[0] != nil {
		t.Fatalf("handler results %v, want [nil]", results)
	}
	if c.Status() != client.StatusConnected {
		t.Fatalf("status %v, want connected", c.Status())
	}
	msgs := fc.take(t)
	if len(msgs) != 1 || msgs[0].Key != message.Request {
		t.Fatalf("sent %v, want one request", msgs)
	}
	if name, _ := message.ParseRequest(msgs[0]); name != "Alice" {
		t.Errorf("requested name %q, want Alice", name)
	}

	fc.push(message.NewGranted(7))
	c.Update()
	if c.Status() != client.StatusJoined || c.Local().ClientID != 7 {
		t.Errorf("status %v id %d, want joined 7", c.Status(), c.Local().ClientID)
	}
}

// TestConnectPending verifies overlapping attempts are refused until the
// first resolves, and a failed attempt reaches the handler.
func TestConnectPending(t *testing.T) {
	c, conn, _ := newClient(t)
	var got error
	if err := c.Connect(t.Context(), "server", "Alice", func(err error) { got = err }); err != nil {
		t.Fatal(err)
	}
	if err := c.Connect(t.Context(), "server", "Alice", nil); !errors.Is(err, client.ErrConnectPending) {
		t.Fatalf("second Connect: got %v, want ErrConnectPending", err)
	}

	refused := errors.New("connection refused")
	(*conn).emit(transport.EventDisconnected, refused)
	c.Update()
	if !errors.Is(got, refused) {
		t.Errorf("handler got %v, want %v", got, refused)
	}
	if c.Status() != client.StatusDisconnected {
		t.Errorf("status %v, want disconnected", c.Status())
	}
	if err := c.Connect(t.Context(), "server", "Alice", nil); err != nil {
		t.Errorf("Connect after failure: %v", err)
	}
}

// TestConnectWhileConnected verifies a live session must end first.
func TestConnectWhileConnected(t *testing.T) {
	c, conn, _ := newClient(t)
	joined(t, c, conn, "Alice", 1)
	if err := c.Connect(t.Context(), "server", "Alice", nil); !errors.Is(err, client.ErrConnected) {
		t.Errorf("got %v, want ErrConnected", err)
	}
}

// TestReconnectLeavesFlushingConn verifies a new attempt does not cut off
// writes still queued on the connection it replaces.
func TestReconnectLeavesFlushingConn(t *testing.T) {
	c, conn, rec := newClient(t)
	old := joined(t, c, conn, "Alice", 1)
	if err := c.SetReady(true); err != nil {
		t.Fatal(err)
	}
	c.Disconnect()

	if err := c.Connect(t.Context(), "server", "Alice", nil); err != nil {
		t.Fatalf("Connect after Disconnect: %v", err)
	}
	if *conn == old {
		t.Fatal("Connect reused the old connection")
	}
	if old.closed || !old.flushed {
		t.Errorf("old connection closed %v flushed %v, want left to flush", old.closed, old.flushed)
	}
	if msgs := old.take(t); len(msgs) != 1 || msgs[0].Key != message.ChangedReady {
		t.Errorf("old connection sent %v, want the ready change", msgs)
	}

	old.emit(transport.EventDisconnected, nil)
	c.Update()
	if len(rec.disconnected) != 0 {
		t.Error("old connection's events reached the new attempt")
	}
}

// TestDenied verifies a denial disconnects with the carried reason and
// skips the rest of the tick's messages.
func TestDenied(t *testing.T) {
	c, conn, rec := newClient(t)
	if err := c.Connect(t.Context(), "server", "Alice", nil); err != nil {
		t.Fatal(err)
	}
	fc := *conn
	fc.emit(transport.EventConnected, nil)
	fc.push(message.NewDenied(message.ReasonPlayerNameNotUnique))
	fc.push(message.NewPlayersInfo(nil))
	c.Update()

	if c.Status() != client.StatusDisconnected || !fc.flushed {
		t.Fatalf("status %v flushed %v, want disconnected and flushed", c.Status(), fc.flushed)
	}
	if len(rec.denied) != 1 || rec.denied[0] != message.ReasonPlayerNameNotUnique {
		t.Errorf("denied %v", rec.denied)
	}
	if rec.rosters != 0 {
		t.Error("roster processed after denial")
	}

	fc.emit(transport.EventDisconnected, nil)
	c.Update()
	if len(rec.disconnected) != 1 {
		t.Fatalf("disconnect notifications %d, want 1", len(rec.disconnected))
	}
	var drop *message.DropError
	if !errors.As(rec.disconnected[0], &drop) || drop.Reason != message.ReasonPlayerNameNotUnique {
		t.Errorf("disconnect error %v, want a DropError for a duplicate name", rec.disconnected[0])
	}
}

// TestRosterUpdatesOpponents verifies the roster replaces the opponent
// table and only touches the local player's flags.
func TestRosterUpdatesOpponents(t *testing.T) {
	c, conn, _ := newClient(t)
	fc := joined(t, c, conn, "Alice", 1)

	fc.push(message.NewPlayersInfo([]message.PlayerInfo{
		{ClientID: 1, Name: "someone else", IsReady: true, IsAlive: true},
		{ClientID: 2, Name: "Bob"},
		{ClientID: 3, Name: "Carol"},
	}))
	fc.push(gameplay.Shapes{ClientID: 2, Current: gameplay.Piece{Shape: 4, X: -2, Y: 7}, NextShape: 1}.Encode())
	c.Update()

	local := c.Local()
	if local.Name != "Alice" || !local.IsReady || !local.IsAlive {
		t.Errorf("local %+v, want Alice ready and alive", local)
	}
	if ops := c.Opponents(); len(ops) != 2 || ops[0].Name != "Bob" || ops[1].Name != "Carol" {
		t.Fatalf("opponents %+v, want Bob and Carol", ops)
	}

	fc.push(message.NewPlayersInfo([]message.PlayerInfo{
		{ClientID: 1, Name: "Alice"},
		{ClientID: 2, Name: "Bob", IsReady: true},
	}))
	c.Update()
	bob, ok := c.Opponent(2)
	if !ok || !bob.IsReady || bob.Current.X != -2 || bob.NextShape != 1 {
		t.Errorf("Bob %+v, want ready with his piece kept", bob)
	}
	if _, ok := c.Opponent(3); ok {
		t.Error("Carol still listed after leaving")
	}

	fc.push(message.NewReadyChanged(2, false))
	c.Update()
	if bob, _ := c.Opponent(2); bob.IsReady {
		t.Error("changedReady not applied")
	}
}

// TestGameFlow drives a client through a game with a scripted server.
func TestGameFlow(t *testing.T) {
	c, conn, rec := newClient(t)
	fc := joined(t, c, conn, "Alice", 1)
	fc.push(message.NewPlayersInfo([]message.PlayerInfo{{ClientID: 1, Name: "Alice"}, {ClientID: 2, Name: "Bob"}}))
	c.Update()

	if err := c.SetReady(true); err != nil {
		t.Fatal(err)
	}
	msgs := fc.take(t)
	if ready, _ := message.ParseReadyRequest(msgs[0]); msgs[0].Key != message.ChangedReady || !ready {
		t.Fatalf("sent %v, want changedReady true", msgs[0].Key)
	}

	fc.push(message.Empty(message.Prepare))
	c.Update()
	if c.Status() != client.StatusPrimed || c.Phase() != client.PhasePrepping {
		t.Fatalf("status %v phase %v, want primed prepping", c.Status(), c.Phase())
	}
	if msgs := fc.take(t); len(msgs) != 1 || msgs[0].Key != message.IsPrepared {
		t.Fatalf("sent %v, want isPrepared", msgs)
	}

	fc.push(message.Empty(message.Start))
	fc.push(gameplay.Embed{ClientID: 2, Piece: gameplay.Piece{Shape: 2}}.Encode())
	fc.push(gameplay.CompletedRows{ClientID: 2, Rows: []uint32{19, 18, 17}}.Encode())
	fc.push(gameplay.TransferRows{ClientID: 2, Count: 2}.Encode())
	fc.push(gameplay.TransferRows{ClientID: 1, Count: 9}.Encode()) // about us, ignored
	c.Update()
	if c.Status() != client.StatusActive || c.Phase() != client.PhasePlaying {
		t.Fatalf("status %v phase %v, want active playing", c.Status(), c.Phase())
	}
	bob, _ := c.Opponent(2)
	if len(bob.Embedded) != 1 || bob.RowsCleared != 3 {
		t.Errorf("Bob %+v, want one embedded piece and three rows", bob)
	}
	if rec.incoming != 2 || c.Local().IncomingRows != 2 {
		t.Errorf("incoming rows %d/%d, want 2", rec.incoming, c.Local().IncomingRows)
	}

	if err := c.SendShapes(gameplay.Piece{Shape: 1, X: 4, Y: 0}, 6); err != nil {
		t.Fatal(err)
	}
	if msgs := fc.take(t); len(msgs) != 1 || msgs[0].Key != message.Shapes {
		t.Fatalf("sent %v, want shapes", msgs)
	} else if v, _ := gameplay.ParseShapes(msgs[0]); v.ClientID != 1 || v.NextShape != 6 {
		t.Errorf("shapes %+v, want client 1 next 6", v)
	}

	fc.push(gameplay.PlayerDied{ClientID: 2}.Encode())
	fc.push(message.NewGameOver(1))
	c.Update()
	if bob, _ := c.Opponent(2); bob.IsAlive {
		t.Error("Bob alive after dying")
	}
	if c.Phase() != client.PhaseGameOver || c.Winner() != 1 {
		t.Errorf("phase %v winner %d, want gameOver 1", c.Phase(), c.Winner())
	}
	if len(rec.gameOver) != 1 || !rec.gameOver[0] {
		t.Errorf("game over calls %v, want [won]", rec.gameOver)
	}

	fc.push(message.Empty(message.ReturnToLobby))
	c.Update()
	if c.Status() != client.StatusJoined || c.Phase() != client.PhaseLobby {
		t.Errorf("status %v phase %v, want joined lobby", c.Status(), c.Phase())
	}
}

// TestLostGame verifies a winner of 0 or another player is a loss.
func TestLostGame(t *testing.T) {
	c, conn, rec := newClient(t)
	fc := joined(t, c, conn, "Alice", 1)
	fc.push(message.NewGameOver(0))
	fc.push(message.NewGameOver(2))
	c.Update()
	if len(rec.gameOver) != 2 || rec.gameOver[0] || rec.gameOver[1] {
		t.Errorf("game over calls %v, want two losses", rec.gameOver)
	}
}

// TestSendRequiresJoin verifies outgoing game messages wait for the grant.
func TestSendRequiresJoin(t *testing.T) {
	c, _, _ := newClient(t)
	if err := c.SetReady(true); !errors.Is(err, client.ErrNotJoined) {
		t.Errorf("SetReady: got %v, want ErrNotJoined", err)
	}
	if err := c.SendPlayerDied(); !errors.Is(err, client.ErrNotJoined) {
		t.Errorf("SendPlayerDied: got %v, want ErrNotJoined", err)
	}
}

// TestMalformedMessagesIgnored verifies bad payloads cost only themselves.
func TestMalformedMessagesIgnored(t *testing.T) {
	c, conn, _ := newClient(t)
	fc := joined(t, c, conn, "Alice", 1)
	fc.push([]byte{0, 0})
	fc.push(message.Empty(message.Granted))
	fc.push(message.Empty(message.Shapes))
	fc.push(message.Empty(message.Key{Type: message.TypeClientMessage}))
	fc.push(message.NewGameOver(1))
	c.Update()
	if c.Status() != client.StatusJoined || c.Local().ClientID != 1 {
		t.Errorf("status %v id %d after bad messages", c.Status(), c.Local().ClientID)
	}
	if c.Winner() != 1 {
		t.Error("valid message after bad ones not processed")
	}
}
