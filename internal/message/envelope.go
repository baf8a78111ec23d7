package message

import (
	"errors"
	"fmt"

	"github.com/1ureka/blockwire/internal/binstream"
)

// HeaderSize is the size of the Type + Subtype prefix.
const HeaderSize = 4

var (
	ErrShortMessage = errors.New("message shorter than its header")
	ErrUnknownPair  = errors.New("unknown message type/subtype")
)

// Message is a decoded envelope. Payload holds the whole frame payload,
// header included, so it can be relayed without re-encoding.
type Message struct {
	Key
	Payload []byte
}

// New starts a message of kind k. Body fields are appended to the returned
// stream in the order agreed for k; Bytes() yields the frame payload.
func New(k Key) *binstream.Stream {
	s := binstream.NewWriter()
	// Growable destinations only fail on oversized strings.
	_ = s.WriteInt16(int16(k.Type))
	_ = s.WriteInt16(int16(k.Subtype))
	return s
}

// Empty returns the payload of a message of kind k with no body.
func Empty(k Key) []byte {
	return New(k).Bytes()
}

// Decode reads the envelope header of a frame payload.
func Decode(payload []byte) (Message, error) {
	if len(payload) < HeaderSize {
		return Message{}, fmt.Errorf("%w: %d bytes", ErrShortMessage, len(payload))
	}

	s := binstream.NewReader(payload)
	typ, err := s.ReadInt16()
	if err != nil {
		return Message{}, err
	}
	sub, err := s.ReadInt16()
	if err != nil {
		return Message{}, err
	}
	return Message{Key: Key{Type(typ), Subtype(sub)}, Payload: payload}, nil
}

// Body returns the bytes after the header.
func (m Message) Body() []byte {
	return m.Payload[HeaderSize:]
}

// Reader returns a stream positioned at the first body field.
func (m Message) Reader() *binstream.Stream {
	return binstream.NewReader(m.Body())
}
