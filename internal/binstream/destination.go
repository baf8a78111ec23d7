// Package binstream reads and writes endian-aware primitive values over an
// in-memory byte destination.
package binstream

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfBounds is returned when an operation would cross the end of
	// the destination.
	ErrOutOfBounds = errors.New("out of bounds")

	// ErrNotResizable is returned when an operation would only succeed by
	// growing a fixed destination.
	ErrNotResizable = errors.New("destination is not resizable")
)

// Destination is a byte buffer with a cursor. 0 <= Position() <= Len() holds
// after every call.
type Destination interface {
	Len() int
	Position() int
	SetPosition(pos int) error

	// Next returns the n bytes at the cursor and advances past them.
	Next(n int) ([]byte, error)

	// Put writes p at the cursor, overwriting existing bytes and extending
	// the destination when it is growable.
	Put(p []byte) error

	// Bytes returns the full contents, independent of the cursor.
	Bytes() []byte
}

// Buffer is the in-memory Destination. A growable Buffer zero-fills when the
// cursor or a write moves past its length; a fixed Buffer refuses instead.
type Buffer struct {
	data     []byte
	pos      int
	growable bool
}

// NewGrowable returns a growable buffer holding a copy of initial.
func NewGrowable(initial []byte) *Buffer {
	data := make([]byte, len(initial))
	copy(data, initial)
	return &Buffer{data: data, growable: true}
}

// NewFixed returns a fixed-length buffer that reads and writes buf in place.
func NewFixed(buf []byte) *Buffer {
	return &Buffer{data: buf}
}

// Len returns the number of bytes held.
func (b *Buffer) Len() int { return len(b.data) }

// Position returns the cursor offset.
func (b *Buffer) Position() int { return b.pos }

// Growable reports whether writes past the end extend the buffer.
func (b *Buffer) Growable() bool { return b.growable }

// Bytes returns the underlying bytes without copying.
func (b *Buffer) Bytes() []byte { return b.data }

// Remaining returns the number of bytes after the cursor.
func (b *Buffer) Remaining() int { return len(b.data) - b.pos }

// SetPosition moves the cursor. A growable buffer is zero-filled up to pos;
// a fixed one returns ErrNotResizable.
func (b *Buffer) SetPosition(pos int) error {
	if pos < 0 {
		return fmt.Errorf("set position %d: %w", pos, ErrOutOfBounds)
	}
	if pos > len(b.data) {
		if err := b.grow(pos); err != nil {
			return fmt.Errorf("set position %d of %d: %w", pos, len(b.data), err)
		}
	}
	b.pos = pos
	return nil
}

// Next returns the n bytes at the cursor, aliasing the buffer, and advances
// past them.
func (b *Buffer) Next(n int) ([]byte, error) {
	if n < 0 || b.pos+n > len(b.data) {
		return nil, fmt.Errorf("read %d bytes at %d of %d: %w", n, b.pos, len(b.data), ErrOutOfBounds)
	}
	p := b.data[b.pos : b.pos+n]
	b.pos += n
	return p, nil
}

// Put writes p at the cursor, overwriting or growing, and advances past it.
func (b *Buffer) Put(p []byte) error {
	end := b.pos + len(p)
	if end > len(b.data) {
		if err := b.grow(end); err != nil {
			return fmt.Errorf("write %d bytes at %d of %d: %w", len(p), b.pos, len(b.data), err)
		}
	}
	copy(b.data[b.pos:end], p)
	b.pos = end
	return nil
}

// grow extends the buffer with zero bytes up to size.
func (b *Buffer) grow(size int) error {
	if !b.growable {
		return ErrNotResizable
	}
	if size <= cap(b.data) {
		tail := b.data[len(b.data):size]
		clear(tail)
		b.data = b.data[:size]
		return nil
	}
	data := make([]byte, size, max(size, 2*cap(b.data)))
	copy(data, b.data)
	b.data = data
	return nil
}
