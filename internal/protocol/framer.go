package protocol

// Framer accumulates stream bytes and cuts them into frames. Complete frames
// go to its Queue; a trailing partial frame waits for the next Feed.
type Framer struct {
	buf   []byte
	queue Queue
	err   error
}

func NewFramer() *Framer {
	return &Framer{}
}

// Feed appends chunk to the receive buffer and extracts every complete
// frame. Once a header with a bad magic is seen the framer is poisoned:
// the buffer is dropped and every later call returns the same error.
func (f *Framer) Feed(chunk []byte) error {
	if f.err != nil {
		return f.err
	}
	f.buf = append(f.buf, chunk...)

	off := 0
	for len(f.buf)-off >= HeaderSize {
		h, err := DecodeHeader(f.buf[off:])
		if err != nil {
			f.err = err
			f.buf = nil
			return err
		}

		end := off + HeaderSize + int(h.Length)
		if end > len(f.buf) {
			break
		}

		frame := Frame{Number: h.Number, Reserved: h.Reserved}
		if h.Length > 0 {
			frame.Payload = make([]byte, h.Length)
			copy(frame.Payload, f.buf[off+HeaderSize:end])
		}
		f.queue.Push(frame)
		off = end
	}

	// Slide the unconsumed tail to the front.
	if off > 0 {
		n := copy(f.buf, f.buf[off:])
		f.buf = f.buf[:n]
	}
	return nil
}

// Err returns the error that poisoned the framer, if any.
func (f *Framer) Err() error { return f.err }

// Buffered returns the number of bytes held for an incomplete frame.
func (f *Framer) Buffered() int { return len(f.buf) }

func (f *Framer) Queue() *Queue { return &f.queue }
