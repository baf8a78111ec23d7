// Package protocol defines the length-prefixed frame carried over a game
// connection and turns a byte stream back into frames.
package protocol

import (
	"errors"
	"math"
)

// Magic marks the start of every frame header on the wire.
const Magic uint32 = 0xDEADBEEF

// HeaderSize is the fixed header size: Magic(4) + Number(4) + Reserved(2) + Length(2).
const HeaderSize = 12

// MaxPayload is the largest payload a single frame can carry.
const MaxPayload = math.MaxUint16

var (
	// ErrBadMagic means the stream is no longer aligned on a frame boundary.
	// It is not recoverable.
	ErrBadMagic = errors.New("bad frame magic")

	ErrShortHeader     = errors.New("frame header too short")
	ErrPayloadTooLarge = errors.New("frame payload too large")
)

// Frame is one unit on the wire.
type Frame struct {
	Number   uint32 // Ordering key for the receive queue; senders use 0
	Reserved uint16 // Carried as written, otherwise unused
	Payload  []byte // At most MaxPayload bytes
}

// Header is the decoded fixed-size prefix of a frame.
type Header struct {
	Magic    uint32
	Number   uint32
	Reserved uint16
	Length   uint16
}
