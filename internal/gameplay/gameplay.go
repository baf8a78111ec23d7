// Package gameplay encodes the piece and board updates players exchange
// during a game. The server relays these without looking inside; only
// clients decode them.
package gameplay

import (
	"fmt"

	"github.com/1ureka/blockwire/internal/binstream"
	"github.com/1ureka/blockwire/internal/message"
)

// Piece places a shape on a board. Coordinates travel as the uint32 bit
// pattern of a signed value.
type Piece struct {
	Shape    uint32
	X        int32
	Y        int32
	Rotation uint32
}

// Shapes reports a player's falling piece and the one queued after it.
type Shapes struct {
	ClientID  uint32
	Current   Piece
	NextShape uint32
}

// Embed reports a piece locked into a player's board.
type Embed struct {
	ClientID uint32
	Piece    Piece
}

// CompletedRows reports the row indexes a player just cleared.
type CompletedRows struct {
	ClientID uint32
	Rows     []uint32
}

// TransferRows reports rows a player sends to its opponents.
type TransferRows struct {
	ClientID uint32
	Count    uint32
}

// PlayerDied reports that a player topped out.
type PlayerDied struct {
	ClientID uint32
}

func writePiece(s *binstream.Stream, p Piece) {
	_ = s.WriteUint32(p.Shape)
	_ = s.WriteUint32(uint32(p.X))
	_ = s.WriteUint32(uint32(p.Y))
	_ = s.WriteUint32(p.Rotation)
}

func readPiece(s *binstream.Stream) (Piece, error) {
	var p Piece
	var err error
	if p.Shape, err = s.ReadUint32(); err != nil {
		return p, err
	}
	x, err := s.ReadUint32()
	if err != nil {
		return p, err
	}
	y, err := s.ReadUint32()
	if err != nil {
		return p, err
	}
	p.X, p.Y = int32(x), int32(y)
	if p.Rotation, err = s.ReadUint32(); err != nil {
		return p, err
	}
	return p, nil
}

// ---------------------------------------------------------------------------
// Encoding
// ---------------------------------------------------------------------------

func (v Shapes) Encode() []byte {
	s := message.New(message.Shapes)
	_ = s.WriteUint32(v.ClientID)
	writePiece(s, v.Current)
	_ = s.WriteUint32(v.NextShape)
	return s.Bytes()
}

func (v Embed) Encode() []byte {
	s := message.New(message.EmbedShape)
	_ = s.WriteUint32(v.ClientID)
	writePiece(s, v.Piece)
	return s.Bytes()
}

func (v CompletedRows) Encode() []byte {
	s := message.New(message.CompletedRows)
	_ = s.WriteUint32(v.ClientID)
	_ = s.WriteUint32(uint32(len(v.Rows)))
	for _, r := range v.Rows {
		_ = s.WriteUint32(r)
	}
	return s.Bytes()
}

func (v TransferRows) Encode() []byte {
	s := message.New(message.TransferRows)
	_ = s.WriteUint32(v.ClientID)
	_ = s.WriteUint32(v.Count)
	return s.Bytes()
}

func (v PlayerDied) Encode() []byte {
	s := message.New(message.PlayerDied)
	_ = s.WriteUint32(v.ClientID)
	return s.Bytes()
}

// ---------------------------------------------------------------------------
// Decoding
// ---------------------------------------------------------------------------

func ParseShapes(m message.Message) (Shapes, error) {
	s := m.Reader()
	var v Shapes
	var err error
	if v.ClientID, err = s.ReadUint32(); err != nil {
		return v, fmt.Errorf("parse %s: %w", m.Key, err)
	}
	if v.Current, err = readPiece(s); err != nil {
		return v, fmt.Errorf("parse %s: %w", m.Key, err)
	}
	if v.NextShape, err = s.ReadUint32(); err != nil {
		return v, fmt.Errorf("parse %s: %w", m.Key, err)
	}
	return v, nil
}

func ParseEmbed(m message.Message) (Embed, error) {
	s := m.Reader()
	var v Embed
	var err error
	if v.ClientID, err = s.ReadUint32(); err != nil {
		return v, fmt.Errorf("parse %s: %w", m.Key, err)
	}
	if v.Piece, err = readPiece(s); err != nil {
		return v, fmt.Errorf("parse %s: %w", m.Key, err)
	}
	return v, nil
}

func ParseCompletedRows(m message.Message) (CompletedRows, error) {
	s := m.Reader()
	var v CompletedRows
	var err error
	if v.ClientID, err = s.ReadUint32(); err != nil {
		return v, fmt.Errorf("parse %s: %w", m.Key, err)
	}
	n, err := s.ReadUint32()
	if err != nil {
		return v, fmt.Errorf("parse %s: %w", m.Key, err)
	}
	if uint64(n)*4 > uint64(s.Len()-s.Position()) {
		return v, fmt.Errorf("parse %s: %d rows: %w", m.Key, n, binstream.ErrOutOfBounds)
	}
	v.Rows = make([]uint32, n)
	for i := range v.Rows {
		if v.Rows[i], err = s.ReadUint32(); err != nil {
			return v, fmt.Errorf("parse %s: %w", m.Key, err)
		}
	}
	return v, nil
}

func ParseTransferRows(m message.Message) (TransferRows, error) {
	s := m.Reader()
	var v TransferRows
	var err error
	if v.ClientID, err = s.ReadUint32(); err != nil {
		return v, fmt.Errorf("parse %s: %w", m.Key, err)
	}
	if v.Count, err = s.ReadUint32(); err != nil {
		return v, fmt.Errorf("parse %s: %w", m.Key, err)
	}
	return v, nil
}

func ParsePlayerDied(m message.Message) (PlayerDied, error) {
	id, err := m.Reader().ReadUint32()
	if err != nil {
		return PlayerDied{}, fmt.Errorf("parse %s: %w", m.Key, err)
	}
	return PlayerDied{ClientID: id}, nil
}
