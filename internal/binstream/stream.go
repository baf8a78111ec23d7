package binstream

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"
)

// Stream encodes and decodes primitive values at the cursor of a Destination.
// LittleEndian selects the byte order of every following multi-byte
// operation and may be flipped at any time.
type Stream struct {
	dst          Destination
	LittleEndian bool
}

// New returns a little-endian stream over dst.
func New(dst Destination) *Stream {
	return &Stream{dst: dst, LittleEndian: true}
}

// NewWriter returns a little-endian stream over an empty growable buffer.
func NewWriter() *Stream {
	return New(NewGrowable(nil))
}

// NewReader returns a little-endian stream over a fixed view of data.
func NewReader(data []byte) *Stream {
	return New(NewFixed(data))
}

func (s *Stream) Destination() Destination { return s.dst }
func (s *Stream) Bytes() []byte            { return s.dst.Bytes() }
func (s *Stream) Len() int                 { return s.dst.Len() }
func (s *Stream) Position() int            { return s.dst.Position() }
func (s *Stream) AtEnd() bool              { return s.dst.Position() == s.dst.Len() }

func (s *Stream) SetPosition(pos int) error {
	return s.dst.SetPosition(pos)
}

// OffsetPosition moves the cursor by delta bytes.
func (s *Stream) OffsetPosition(delta int) error {
	return s.dst.SetPosition(s.dst.Position() + delta)
}

func (s *Stream) order() binary.ByteOrder {
	if s.LittleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// ---------------------------------------------------------------------------
// Writing
// ---------------------------------------------------------------------------

// WriteBytes writes p verbatim.
func (s *Stream) WriteBytes(p []byte) error {
	return s.dst.Put(p)
}

func (s *Stream) WriteUint8(v uint8) error {
	return s.dst.Put([]byte{v})
}

func (s *Stream) WriteUint16(v uint16) error {
	var b [2]byte
	s.order().PutUint16(b[:], v)
	return s.dst.Put(b[:])
}

// WriteUint24 writes the low three bytes of v.
func (s *Stream) WriteUint24(v uint32) error {
	var b [4]byte
	s.order().PutUint32(b[:], v)
	if s.LittleEndian {
		return s.dst.Put(b[:3])
	}
	return s.dst.Put(b[1:])
}

func (s *Stream) WriteUint32(v uint32) error {
	var b [4]byte
	s.order().PutUint32(b[:], v)
	return s.dst.Put(b[:])
}

func (s *Stream) WriteUint64(v uint64) error {
	var b [8]byte
	s.order().PutUint64(b[:], v)
	return s.dst.Put(b[:])
}

func (s *Stream) WriteInt8(v int8) error   { return s.WriteUint8(uint8(v)) }
func (s *Stream) WriteInt16(v int16) error { return s.WriteUint16(uint16(v)) }
func (s *Stream) WriteInt24(v int32) error { return s.WriteUint24(uint32(v)) }
func (s *Stream) WriteInt32(v int32) error { return s.WriteUint32(uint32(v)) }
func (s *Stream) WriteInt64(v int64) error { return s.WriteUint64(uint64(v)) }

func (s *Stream) WriteFloat32(v float32) error { return s.WriteUint32(math.Float32bits(v)) }
func (s *Stream) WriteFloat64(v float64) error { return s.WriteUint64(math.Float64bits(v)) }

func (s *Stream) WriteBool(v bool) error {
	if v {
		return s.WriteUint8(1)
	}
	return s.WriteUint8(0)
}

// WriteUTF8String writes a uint32 byte count followed by the raw bytes of v.
func (s *Stream) WriteUTF8String(v string) error {
	if uint64(len(v)) > math.MaxUint32 {
		return fmt.Errorf("write string of %d bytes: %w", len(v), ErrOutOfBounds)
	}
	if err := s.WriteUint32(uint32(len(v))); err != nil {
		return err
	}
	if len(v) == 0 {
		return nil
	}
	return s.dst.Put([]byte(v))
}

// ---------------------------------------------------------------------------
// Reading
// ---------------------------------------------------------------------------

// ReadBytes returns a copy of the next n bytes.
func (s *Stream) ReadBytes(n int) ([]byte, error) {
	p, err := s.dst.Next(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, p)
	return out, nil
}

func (s *Stream) ReadUint8() (uint8, error) {
	p, err := s.dst.Next(1)
	if err != nil {
		return 0, err
	}
	return p[0], nil
}

func (s *Stream) ReadUint16() (uint16, error) {
	p, err := s.dst.Next(2)
	if err != nil {
		return 0, err
	}
	return s.order().Uint16(p), nil
}

// ReadUint24 reads three bytes into the low bits of a uint32.
func (s *Stream) ReadUint24() (uint32, error) {
	p, err := s.dst.Next(3)
	if err != nil {
		return 0, err
	}
	if s.LittleEndian {
		return uint32(p[0]) | uint32(p[1])<<8 | uint32(p[2])<<16, nil
	}
	return uint32(p[2]) | uint32(p[1])<<8 | uint32(p[0])<<16, nil
}

func (s *Stream) ReadUint32() (uint32, error) {
	p, err := s.dst.Next(4)
	if err != nil {
		return 0, err
	}
	return s.order().Uint32(p), nil
}

func (s *Stream) ReadUint64() (uint64, error) {
	p, err := s.dst.Next(8)
	if err != nil {
		return 0, err
	}
	return s.order().Uint64(p), nil
}

func (s *Stream) ReadInt8() (int8, error) {
	v, err := s.ReadUint8()
	return int8(v), err
}

func (s *Stream) ReadInt16() (int16, error) {
	v, err := s.ReadUint16()
	return int16(v), err
}

// ReadInt24 reads a 24-bit value and sign-extends it.
func (s *Stream) ReadInt24() (int32, error) {
	v, err := s.ReadUint24()
	return int32(v<<8) >> 8, err
}

func (s *Stream) ReadInt32() (int32, error) {
	v, err := s.ReadUint32()
	return int32(v), err
}

func (s *Stream) ReadInt64() (int64, error) {
	v, err := s.ReadUint64()
	return int64(v), err
}

func (s *Stream) ReadFloat32() (float32, error) {
	v, err := s.ReadUint32()
	return math.Float32frombits(v), err
}

func (s *Stream) ReadFloat64() (float64, error) {
	v, err := s.ReadUint64()
	return math.Float64frombits(v), err
}

// ReadBool treats any nonzero byte as true.
func (s *Stream) ReadBool() (bool, error) {
	v, err := s.ReadUint8()
	return v != 0, err
}

// ReadUTF8String reads a uint32 byte count and that many bytes. A body that
// is not valid UTF-8 decodes to "" with the cursor still advanced past it.
func (s *Stream) ReadUTF8String() (string, error) {
	n, err := s.ReadUint32()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	if uint64(n) > uint64(s.dst.Len()-s.dst.Position()) {
		return "", fmt.Errorf("read string of %d bytes at %d of %d: %w", n, s.dst.Position(), s.dst.Len(), ErrOutOfBounds)
	}
	p, err := s.dst.Next(int(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(p) {
		return "", nil
	}
	return string(p), nil
}
