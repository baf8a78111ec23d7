package protocol_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/1ureka/blockwire/internal/protocol"
)

// TestEncodeDecodeRoundTrip verifies that encoding and decoding are inverse
// operations for various payload sizes.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	testCases := []struct {
		name  string
		frame protocol.Frame
	}{
		{"empty payload", protocol.Frame{Number: 0}},
		{"small payload", protocol.Frame{Number: 42, Payload: []byte("hello world")}},
		{"reserved round-trips", protocol.Frame{Number: 7, Reserved: 0xABCD, Payload: []byte{1}}},
		{"max payload", protocol.Frame{Number: 0xFFFFFFFF, Payload: bytes.Repeat([]byte{0x5A}, protocol.MaxPayload)}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			encoded, err := protocol.Encode(tc.frame)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if len(encoded) != protocol.HeaderSize+len(tc.frame.Payload) {
				t.Fatalf("encoded length: got %d, want %d", len(encoded), protocol.HeaderSize+len(tc.frame.Payload))
			}

			decoded, err := protocol.Decode(encoded)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if decoded.Number != tc.frame.Number {
				t.Errorf("Number mismatch: got %d, want %d", decoded.Number, tc.frame.Number)
			}
			if decoded.Reserved != tc.frame.Reserved {
				t.Errorf("Reserved mismatch: got %#04x, want %#04x", decoded.Reserved, tc.frame.Reserved)
			}
			if !bytes.Equal(decoded.Payload, tc.frame.Payload) {
				t.Errorf("Payload mismatch: got %d bytes, want %d", len(decoded.Payload), len(tc.frame.Payload))
			}
		})
	}
}

// TestHeaderLayout pins the little-endian wire layout of the header.
func TestHeaderLayout(t *testing.T) {
	header, err := protocol.EncodeHeader(protocol.Frame{Number: 0x01020304, Reserved: 0x0506, Payload: make([]byte, 0x0708)})
	if err != nil {
		t.Fatalf("EncodeHeader failed: %v", err)
	}

	want := []byte{
		0xEF, 0xBE, 0xAD, 0xDE,
		0x04, 0x03, 0x02, 0x01,
		0x06, 0x05,
		0x08, 0x07,
	}
	if !bytes.Equal(header, want) {
		t.Fatalf("header mismatch:\n got  % x\n want % x", header, want)
	}
}

// TestEncodePayloadTooLarge verifies the 16-bit length limit.
func TestEncodePayloadTooLarge(t *testing.T) {
	_, err := protocol.Encode(protocol.Frame{Payload: make([]byte, protocol.MaxPayload+1)})
	if !errors.Is(err, protocol.ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
}

// TestDecodeHeaderTooShort verifies that DecodeHeader returns an error when
// the input is shorter than HeaderSize.
func TestDecodeHeaderTooShort(t *testing.T) {
	testCases := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"1 byte", []byte{0xEF}},
		{"11 bytes (one less than HeaderSize)", make([]byte, 11)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := protocol.DecodeHeader(tc.data); !errors.Is(err, protocol.ErrShortHeader) {
				t.Fatalf("expected ErrShortHeader, got %v", err)
			}
		})
	}
}

func TestDecodeHeaderBadMagic(t *testing.T) {
	data := make([]byte, protocol.HeaderSize)
	data[0] = 0xEE
	if _, err := protocol.DecodeHeader(data); !errors.Is(err, protocol.ErrBadMagic) {
		t.Fatalf("expected ErrBadMagic, got %v", err)
	}
}

// TestDecodeLengthMismatch verifies Decode refuses trailing or missing bytes.
func TestDecodeLengthMismatch(t *testing.T) {
	encoded, err := protocol.Encode(protocol.Frame{Payload: []byte{1, 2, 3}})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := protocol.Decode(encoded[:len(encoded)-1]); err == nil {
		t.Error("expected error for truncated payload")
	}
	if _, err := protocol.Decode(append(encoded, 0)); err == nil {
		t.Error("expected error for trailing byte")
	}
}
