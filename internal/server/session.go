package server

import (
	"fmt"
	"time"

	"github.com/1ureka/blockwire/internal/message"
	"github.com/1ureka/blockwire/internal/protocol"
	"github.com/1ureka/blockwire/internal/transport"
)

// Connection is the part of *transport.Conn a session uses.
type Connection interface {
	PollEvents() []transport.Event
	PopPackets() []protocol.Frame
	WritePayload(payload []byte) error
	DisconnectAfterWriting()
	Close() error
	RemoteAddr() string
	Tag() string
}

// Acceptor yields EventAccepted for new connections.
type Acceptor interface {
	PollEvents() []transport.Event
}

// Status is a session's place in the join and game handshake.
type Status int

const (
	StatusDisconnected Status = iota // connected socket, not yet admitted
	StatusZombie                     // being dropped
	StatusJoined                     // admitted, in the lobby
	StatusPrimed                     // told to prepare a game
	StatusActive                     // playing
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusZombie:
		return "zombie"
	case StatusJoined:
		return "joined"
	case StatusPrimed:
		return "primed"
	case StatusActive:
		return "active"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Phase is the server's game lifecycle.
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

// Player is the server's view of a player. Boards and pieces belong to the
// clients; the server keeps the latest piece update as an opaque body and
// counts cleared rows as the score.
type Player struct {
	Name           string
	IsReady        bool
	IsAlive        bool
	GameIsPrepared bool
	Score          int
	LastShapes     []byte
}

// Session is one connected client.
type Session struct {
	ClientID     uint32
	Status       Status
	Conn         Connection
	ConnectedAt  time.Time
	LastPacketAt time.Time
	Player       Player
}

// IsPlayer reports whether the session has joined and is not being dropped.
func (s *Session) IsPlayer() bool {
	return s.Status != StatusDisconnected && s.Status != StatusZombie
}

func (s *Session) info() message.PlayerInfo {
	return message.PlayerInfo{
		ClientID: s.ClientID,
		Name:     s.Player.Name,
		IsReady:  s.Player.IsReady,
		IsAlive:  s.Player.IsAlive,
	}
}
