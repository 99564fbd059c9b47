package proto

import (
	"bytes"
	"io"
	"sync"
)

// Terminator delimits frames on the wire.
const Terminator = '\n'

// A FrameBuffer accumulates inbound bytes and yields newline-delimited
// frames. Bytes are only ever appended at the back and consumed from the
// front; delivering the same bytes in any chunking produces the same frames.
type FrameBuffer struct {
	buf []byte
}

func (b *FrameBuffer) Feed(p []byte) { b.buf = append(b.buf, p...) }

// Next returns the next complete frame, without its terminator, or false if
// no terminator has arrived yet.
func (b *FrameBuffer) Next() ([]byte, bool) {
	i := bytes.IndexByte(b.buf, Terminator)
	if i < 0 {
		return nil, false
	}
	frame := make([]byte, i)
	copy(frame, b.buf[:i])
	b.buf = b.buf[i+1:]
	return frame, true
}

func (b *FrameBuffer) Len() int { return len(b.buf) }

// A SendBuffer queues encoded frames for delivery. Flush makes one write
// attempt and removes exactly the bytes the writer accepted; a partial write
// persists the remainder, in order, for the next attempt.
type SendBuffer struct {
	mu  sync.Mutex
	buf []byte
}

// Queue appends a frame and its terminator to the outbound buffer.
func (b *SendBuffer) Queue(frame []byte) {
	b.mu.Lock()
	b.buf = append(b.buf, frame...)
	b.buf = append(b.buf, Terminator)
	b.mu.Unlock()
}

// Flush performs one write attempt against w. It returns the number of bytes
// still pending and the write error, if any.
func (b *SendBuffer) Flush(w io.Writer) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.buf) == 0 {
		return 0, nil
	}
	n, err := w.Write(b.buf)
	if n > 0 {
		b.buf = b.buf[n:]
	}
	return len(b.buf), err
}

func (b *SendBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}
