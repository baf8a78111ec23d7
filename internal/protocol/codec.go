package protocol

import (
	"fmt"

	"github.com/1ureka/blockwire/internal/binstream"
)

// EncodeHeader serializes the header for f. The payload itself is not copied.
func EncodeHeader(f Frame) ([]byte, error) {
	if len(f.Payload) > MaxPayload {
		return nil, fmt.Errorf("encode frame %d: %d bytes: %w", f.Number, len(f.Payload), ErrPayloadTooLarge)
	}

	buf := make([]byte, HeaderSize)
	s := binstream.New(binstream.NewFixed(buf))
	if err := writeHeader(s, Header{
		Magic:    Magic,
		Number:   f.Number,
		Reserved: f.Reserved,
		Length:   uint16(len(f.Payload)),
	}); err != nil {
		return nil, err
	}
	return buf, nil
}

// Encode serializes a Frame into a single byte slice.
func Encode(f Frame) ([]byte, error) {
	header, err := EncodeHeader(f)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, HeaderSize+len(f.Payload))
	buf = append(buf, header...)
	return append(buf, f.Payload...), nil
}

// DecodeHeader parses the first HeaderSize bytes of data.
func DecodeHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes (need %d)", ErrShortHeader, len(data), HeaderSize)
	}

	s := binstream.NewReader(data[:HeaderSize])
	var h Header
	var err error
	if h.Magic, err = s.ReadUint32(); err != nil {
		return Header{}, err
	}
	if h.Magic != Magic {
		return h, fmt.Errorf("%w: got %#08x", ErrBadMagic, h.Magic)
	}
	if h.Number, err = s.ReadUint32(); err != nil {
		return Header{}, err
	}
	if h.Reserved, err = s.ReadUint16(); err != nil {
		return Header{}, err
	}
	if h.Length, err = s.ReadUint16(); err != nil {
		return Header{}, err
	}
	return h, nil
}

// Decode parses one complete frame from data, which must hold exactly the
// header and the payload it declares.
func Decode(data []byte) (Frame, error) {
	h, err := DecodeHeader(data)
	if err != nil {
		return Frame{}, err
	}
	if len(data)-HeaderSize != int(h.Length) {
		return Frame{}, fmt.Errorf("decode frame %d: header declares %d payload bytes, got %d", h.Number, h.Length, len(data)-HeaderSize)
	}

	f := Frame{Number: h.Number, Reserved: h.Reserved}
	if h.Length > 0 {
		f.Payload = make([]byte, h.Length)
		copy(f.Payload, data[HeaderSize:])
	}
	return f, nil
}

func writeHeader(s *binstream.Stream, h Header) error {
	if err := s.WriteUint32(h.Magic); err != nil {
		return err
	}
	if err := s.WriteUint32(h.Number); err != nil {
		return err
	}
	if err := s.WriteUint16(h.Reserved); err != nil {
		return err
	}
	return s.WriteUint16(h.Length)
}
