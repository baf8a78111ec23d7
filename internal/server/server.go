// Package server runs the authoritative game session: admission, the lobby
// to game phase machine, and relaying gameplay updates between players.
//
// A Server is driven by its owner calling Update once per tick. No method is
// safe for concurrent use.
package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/1ureka/blockwire/internal/config"
	"github.com/1ureka/blockwire/internal/message"
	"github.com/1ureka/blockwire/internal/metrics"
	"github.com/1ureka/blockwire/internal/protocol"
	"github.com/1ureka/blockwire/internal/transport"
	"github.com/1ureka/blockwire/internal/util"
)

var (
	ErrNotInLobby = errors.New("server: not in lobby")
	ErrNoPlayers  = errors.New("server: no joined players")
)

// Option configures a Server.
type Option func(*Server)

// WithClock replaces time.Now, e.g. to step time in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.clock = now }
}

// WithMetrics records session activity into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// Server owns every session and the current phase.
type Server struct {
	cfg     config.ServerConfig
	clock   func() time.Time
	metrics *metrics.Metrics

	acceptors []Acceptor
	sessions  []*Session
	byConn    map[Connection]*Session
	nextID    uint32

	phase         Phase
	now           time.Time
	gameStartedAt time.Time
	gameOverAt    time.Time

	handlers     *message.Table[handler]
	maxNameBytes int
}

// MaxNameBytes caps a player name. Servers whose capacity would overflow a
// playersInfo frame lower it further; see NameLimit.
const MaxNameBytes = 64

// rosterEntryBytes is a playersInfo entry without its name: client ID, name
// length, isReady and isAlive.
const rosterEntryBytes = 4 + 4 + 1 + 1

// NameLimit returns the longest name, in bytes, for which a roster of
// maxPlayers entries still fits in one frame. It is 0 when no name fits.
func NameLimit(maxPlayers int) int {
	if maxPlayers < 1 {
		return 0
	}
	perEntry := (protocol.MaxPayload-message.HeaderSize-4)/maxPlayers - rosterEntryBytes
	return max(0, min(MaxNameBytes, perEntry))
}

// New creates a server in the lobby phase.
func New(cfg config.ServerConfig, opts ...Option) (*Server, error) {
	if cfg.MaxPlayers < 1 {
		return nil, fmt.Errorf("server: max players must be positive, got %d", cfg.MaxPlayers)
	}
	limit := NameLimit(cfg.MaxPlayers)
	if limit < 1 {
		return nil, fmt.Errorf("server: max players %d leaves no room for names in a roster", cfg.MaxPlayers)
	}
	s := &Server{
		cfg:    cfg,
		clock:  time.Now,
		byConn: make(map[Connection]*Session),
		nextID: 1,
		phase:  PhaseLobby,

		maxNameBytes: limit,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.handlers = s.newHandlers()
	if err := s.handlers.Require(message.ServerBound...); err != nil {
		return nil, err
	}
	s.now = s.clock()
	s.metrics.SetPhase(s.phase.String(), phaseNames...)
	return s, nil
}

// Start adds a source of incoming connections polled on every Update.
func (s *Server) Start(a Acceptor) {
	s.acceptors = append(s.acceptors, a)
}

// Attach adds a session for an accepted connection. A session that takes the
// count past MaxPlayers is dropped as full.
func (s *Server) Attach(c Connection) *Session {
	sess := &Session{
		ClientID:     s.nextID,
		Status:       StatusDisconnected,
		Conn:         c,
		ConnectedAt:  s.now,
		LastPacketAt: s.now,
	}
	s.nextID++
	s.sessions = append(s.sessions, sess)
	s.byConn[c] = sess
	util.LogEvent("client connected", "client", sess.ClientID, "remote", c.RemoteAddr(), "tag", c.Tag())

	if len(s.sessions) > s.cfg.MaxPlayers {
		s.drop(sess, message.ReasonServerIsFull)
	}
	return sess
}

// Update runs one tick.
func (s *Server) Update() {
	s.now = s.clock()

	for _, a := range s.acceptors {
		for _, ev := range a.PollEvents() {
			if ev.Kind == transport.EventAccepted && ev.Conn != nil {
				s.Attach(ev.Conn)
			}
		}
	}

	for _, sess := range append([]*Session(nil), s.sessions...) {
		s.service(sess)
	}

	for _, sess := range append([]*Session(nil), s.sessions...) {
		if s.now.Sub(sess.LastPacketAt) > s.cfg.StaleTimeout {
			s.drop(sess, message.ReasonClientLost)
		}
	}

	if s.phase == PhaseGameOver && s.now.Sub(s.gameOverAt) >= s.cfg.Cooldown {
		s.returnToLobby()
	}

	s.metrics.SetSessions(len(s.sessions), len(s.Players()))
}

// service drains one session's frames, then its lifecycle events.
func (s *Server) service(sess *Session) {
	events := sess.Conn.PollEvents()

	frames := sess.Conn.PopPackets()
	if len(frames) > 0 {
		sess.LastPacketAt = s.now
	}
	for _, f := range frames {
		if !s.attached(sess) {
			return
		}
		s.dispatch(sess, f.Payload)
	}

	for _, ev := range events {
		if ev.Kind != transport.EventDisconnected || !s.attached(sess) {
			continue
		}
		if ev.Err != nil {
			util.LogDrop("client disconnected", "client", sess.ClientID, "error", ev.Err)
		} else {
			util.LogEvent("client disconnected", "client", sess.ClientID)
		}
		wasPlayer := sess.IsPlayer()
		s.remove(sess)
		if wasPlayer {
			s.playerLeft()
		}
	}
}

func (s *Server) dispatch(sess *Session, payload []byte) {
	msg, err := message.Decode(payload)
	if err != nil {
		s.metrics.ObserveDecodeError()
		util.LogWarning("client %d: %v", sess.ClientID, err)
		return
	}
	s.metrics.ObserveMessage(msg.Key.String(), len(payload))

	h, ok := s.handlers.Lookup(msg.Key)
	if !ok {
		util.LogDebug("client %d: ignoring %v", sess.ClientID, msg.Key)
		return
	}
	if err := h(sess, msg); err != nil {
		s.metrics.ObserveDecodeError()
		util.LogWarning("client %d: %v: %v", sess.ClientID, msg.Key, err)
	}
}

// StartGame moves the lobby into preparation and tells every player to
// prepare.
func (s *Server) StartGame() error {
	if s.phase != PhaseLobby {
		return fmt.Errorf("start game in %v: %w", s.phase, ErrNotInLobby)
	}
	players := s.Players()
	if len(players) == 0 {
		return ErrNoPlayers
	}
	for _, p := range players {
		p.Player.IsAlive = true
		p.Player.GameIsPrepared = false
		p.Player.Score = 0
		p.Player.LastShapes = nil
		p.Status = StatusPrimed
	}
	s.setPhase(PhasePrepping)
	s.broadcast(message.Empty(message.Prepare))
	util.LogEvent("game preparing", "players", len(players))
	return nil
}

// Stop drops every session.
func (s *Server) Stop() {
	for _, sess := range append([]*Session(nil), s.sessions...) {
		s.drop(sess, message.ReasonServerShuttingDown)
	}
}

// Phase returns the current phase.
func (s *Server) Phase() Phase { return s.phase }

// Sessions returns every session in connection order.
func (s *Server) Sessions() []*Session {
	return append([]*Session(nil), s.sessions...)
}

// Session returns the session with the given client ID.
func (s *Server) Session(clientID uint32) (*Session, bool) {
	for _, sess := range s.sessions {
		if sess.ClientID == clientID {
			return sess, true
		}
	}
	return nil, false
}

// Players returns the joined sessions.
func (s *Server) Players() []*Session {
	var out []*Session
	for _, sess := range s.sessions {
		if sess.IsPlayer() {
			out = append(out, sess)
		}
	}
	return out
}

// AllReady reports whether there is at least one player and every player is
// ready.
func (s *Server) AllReady() bool {
	players := s.Players()
	for _, p := range players {
		if !p.Player.IsReady {
			return false
		}
	}
	return len(players) > 0
}

func (s *Server) attached(sess *Session) bool {
	return s.byConn[sess.Conn] == sess
}

// drop tells the client why, flushes and closes its connection, and removes
// the session.
func (s *Server) drop(sess *Session, reason message.DropReason) {
	wasPlayer := sess.IsPlayer()
	sess.Status = StatusZombie
	util.LogDrop("dropping client", "client", sess.ClientID, "name", sess.Player.Name, "reason", reason)
	s.metrics.ObserveDrop(reason.String())

	s.send(sess, message.NewDenied(reason))
	sess.Conn.DisconnectAfterWriting()
	s.remove(sess)

	if wasPlayer && reason != message.ReasonServerShuttingDown {
		s.playerLeft()
	}
}

// remove deletes sess from the list and the index together.
func (s *Server) remove(sess *Session) {
	delete(s.byConn, sess.Conn)
	for i, other := range s.sessions {
		if other == sess {
			s.sessions = append(s.sessions[:i], s.sessions[i+1:]...)
			break
		}
	}
}

// playerLeft re-evaluates the game after a player went away.
func (s *Server) playerLeft() {
	s.broadcastRoster()
	switch s.phase {
	case PhasePrepping:
		if len(s.Players()) == 0 {
			s.setPhase(PhaseLobby)
			return
		}
		s.startIfPrepared()
	case PhasePlaying:
		s.gameOverIfNeeded()
	}
}

func (s *Server) startIfPrepared() {
	players := s.Players()
	if len(players) == 0 {
		return
	}
	for _, p := range players {
		if !p.Player.GameIsPrepared {
			return
		}
	}
	for _, p := range players {
		p.Status = StatusActive
	}
	s.gameStartedAt = s.now
	s.setPhase(PhasePlaying)
	s.broadcast(message.Empty(message.Start))
	s.metrics.ObserveGameStart()
	util.LogEvent("game started", "players", len(players))
}

func (s *Server) gameOverIfNeeded() {
	if s.phase != PhasePlaying {
		return
	}
	var alive []*Session
	for _, p := range s.Players() {
		if p.Player.IsAlive {
			alive = append(alive, p)
		}
	}
	if len(alive) > 1 {
		return
	}
	var winner uint32
	if len(alive) == 1 {
		winner = alive[0].ClientID
	}
	s.broadcast(message.NewGameOver(winner))
	s.gameOverAt = s.now
	s.setPhase(PhaseGameOver)
	s.metrics.ObserveGameOver(s.now.Sub(s.gameStartedAt))
	util.LogEvent("game over", "winner", winner)
}

func (s *Server) returnToLobby() {
	players := s.Players()
	for _, p := range players {
		p.Player.IsReady = false
		p.Status = StatusJoined
	}
	s.setPhase(PhaseLobby)
	s.broadcast(message.Empty(message.ReturnToLobby))
	s.broadcastRoster()
	util.LogEvent("returned to lobby", "players", len(players))
}

func (s *Server) setPhase(p Phase) {
	s.phase = p
	s.metrics.SetPhase(p.String(), phaseNames...)
}

func (s *Server) roster() []message.PlayerInfo {
	players := s.Players()
	infos := make([]message.PlayerInfo, 0, len(players))
	for _, p := range players {
		infos = append(infos, p.info())
	}
	return infos
}

func (s *Server) broadcastRoster() {
	s.broadcast(message.NewPlayersInfo(s.roster()))
}

// broadcast sends payload to every player.
func (s *Server) broadcast(payload []byte) {
	for _, p := range s.Players() {
		if s.send(p, payload) {
			s.metrics.ObserveSend(len(payload))
		}
	}
}

// relay sends payload verbatim to every player except from.
func (s *Server) relay(from *Session, key message.Key, payload []byte) {
	n := 0
	for _, p := range s.Players() {
		if p == from {
			continue
		}
		if s.send(p, payload) {
			n++
		}
	}
	s.metrics.ObserveRelay(key.String(), n, len(payload))
}

// send queues payload for sess and reports whether it was accepted.
func (s *Server) send(sess *Session, payload []byte) bool {
	if err := sess.Conn.WritePayload(payload); err != nil {
		util.LogWarning("client %d: send %d bytes: %v", sess.ClientID, len(payload), err)
		s.metrics.ObserveSendError()
		return false
	}
	return true
}
