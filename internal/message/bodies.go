package message

import (
	"fmt"

	"github.com/1ureka/blockwire/internal/binstream"
)

// PlayerInfo is one roster entry of a playersInfo message.
type PlayerInfo struct {
	ClientID uint32
	Name     string
	IsReady  bool
	IsAlive  bool
}

// ReadyChange is the server-to-client form of lobby/changedReady.
type ReadyChange struct {
	ClientID uint32
	IsReady  bool
}

// ---------------------------------------------------------------------------
// Builders
// ---------------------------------------------------------------------------

// NewRequest asks to join as name.
func NewRequest(name string) []byte {
	s := New(Request)
	_ = s.WriteUTF8String(name)
	return s.Bytes()
}

// NewGranted admits a client and tells it its ID.
func NewGranted(clientID uint32) []byte {
	s := New(Granted)
	_ = s.WriteUint32(clientID)
	return s.Bytes()
}

// NewDenied tells a client why it is being dropped.
func NewDenied(reason DropReason) []byte {
	s := New(Denied)
	_ = s.WriteInt8(int8(reason))
	return s.Bytes()
}

// NewPlayersInfo is the full roster of joined players.
func NewPlayersInfo(players []PlayerInfo) []byte {
	s := New(PlayersInfo)
	_ = s.WriteUint32(uint32(len(players)))
	for _, p := range players {
		_ = s.WriteUint32(p.ClientID)
		_ = s.WriteUTF8String(p.Name)
		_ = s.WriteBool(p.IsReady)
		_ = s.WriteBool(p.IsAlive)
	}
	return s.Bytes()
}

// NewReadyRequest is sent by a client; the server knows who sent it.
func NewReadyRequest(isReady bool) []byte {
	s := New(ChangedReady)
	_ = s.WriteBool(isReady)
	return s.Bytes()
}

// NewReadyChanged is relayed by the server to the other players.
func NewReadyChanged(clientID uint32, isReady bool) []byte {
	s := New(ChangedReady)
	_ = s.WriteUint32(clientID)
	_ = s.WriteBool(isReady)
	return s.Bytes()
}

// NewGameOver carries the winner, or 0 when nobody survived.
func NewGameOver(winner uint32) []byte {
	s := New(GameOver)
	_ = s.WriteUint32(winner)
	return s.Bytes()
}

// ---------------------------------------------------------------------------
// Parsers
// ---------------------------------------------------------------------------

// ParseRequest returns the requested name, untrimmed.
func ParseRequest(m Message) (string, error) {
	name, err := m.Reader().ReadUTF8String()
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", m.Key, err)
	}
	return name, nil
}

// ParseGranted returns the assigned client ID.
func ParseGranted(m Message) (uint32, error) {
	id, err := m.Reader().ReadUint32()
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", m.Key, err)
	}
	return id, nil
}

// ParseDenied returns the drop reason.
func ParseDenied(m Message) (DropReason, error) {
	r, err := m.Reader().ReadInt8()
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", m.Key, err)
	}
	return DropReason(r), nil
}

// ParsePlayersInfo returns the roster in server order.
func ParsePlayersInfo(m Message) ([]PlayerInfo, error) {
	s := m.Reader()
	n, err := s.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", m.Key, err)
	}

	// Each entry takes at least 10 bytes; refuse counts the body cannot hold.
	if uint64(n)*10 > uint64(s.Len()-s.Position()) {
		return nil, fmt.Errorf("parse %s: %d players: %w", m.Key, n, binstream.ErrOutOfBounds)
	}

	players := make([]PlayerInfo, 0, n)
	for range n {
		var p PlayerInfo
		if p.ClientID, err = s.ReadUint32(); err != nil {
			return nil, fmt.Errorf("parse %s: %w", m.Key, err)
		}
		if p.Name, err = s.ReadUTF8String(); err != nil {
			return nil, fmt.Errorf("parse %s: %w", m.Key, err)
		}
		if p.IsReady, err = s.ReadBool(); err != nil {
			return nil, fmt.Errorf("parse %s: %w", m.Key, err)
		}
		if p.IsAlive, err = s.ReadBool(); err != nil {
			return nil, fmt.Errorf("parse %s: %w", m.Key, err)
		}
		players = append(players, p)
	}
	return players, nil
}

// ParseReadyRequest reads the client-to-server form of changedReady.
func ParseReadyRequest(m Message) (bool, error) {
	v, err := m.Reader().ReadBool()
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", m.Key, err)
	}
	return v, nil
}

// ParseReadyChanged reads the relayed form of changedReady.
func ParseReadyChanged(m Message) (ReadyChange, error) {
	s := m.Reader()
	var rc ReadyChange
	var err error
	if rc.ClientID, err = s.ReadUint32(); err != nil {
		return rc, fmt.Errorf("parse %s: %w", m.Key, err)
	}
	if rc.IsReady, err = s.ReadBool(); err != nil {
		return rc, fmt.Errorf("parse %s: %w", m.Key, err)
	}
	return rc, nil
}

// ParseGameOver returns the winner, 0 for none.
func ParseGameOver(m Message) (uint32, error) {
	id, err := m.Reader().ReadUint32()
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", m.Key, err)
	}
	return id, nil
}
