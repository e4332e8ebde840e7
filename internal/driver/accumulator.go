package driver

import (
	"time"

	"github.com/tmerle/sireader/internal/protocol"
)

// staleTimeout discards a partial frame when the line goes quiet mid-frame.
const staleTimeout = 500 * time.Millisecond

// accumulator assembles serial chunks into whole frames. It never blocks:
// the port reader appends bytes, and complete frames are handed to emit.
type accumulator struct {
	buf  [protocol.MaxMessageSize]byte
	size int
	last time.Time
}

// feed appends a chunk and dispatches every complete frame it closes.
// A single non-STX byte is a complete one-byte frame (ACK, NAK, or an
// autodetect answer); otherwise the expected total is the length byte at
// index 2 plus the six framing bytes.
func (a *accumulator) feed(chunk []byte, now time.Time, emit func(*protocol.Frame)) {
	if a.size > 0 && now.Sub(a.last) > staleTimeout {
		a.size = 0
	}
	a.last = now

	n := copy(a.buf[a.size:], chunk)
	a.size += n

	for a.size > 0 {
		if a.buf[0] != protocol.STX {
			emit(protocol.NewFrame(a.buf[:1]))
			a.shift(1)
			continue
		}
		if a.size < 3 {
			return
		}
		expected := int(a.buf[2]) + 6
		if a.size < expected {
			return
		}
		emit(protocol.NewFrame(a.buf[:expected]))
		a.shift(expected)
	}
}

// shift drops the first n bytes, keeping any trailing bytes of the next
// frame that arrived in the same chunk.
func (a *accumulator) shift(n int) {
	copy(a.buf[:], a.buf[n:a.size])
	a.size -= n
}
