package protocol

import (
	"fmt"
	"strings"
)

// Frame is a single message received from or sent to the station.
//
// A frame is either a full STX..ETX sequence
//
//	[STX][CMD][LEN][PAYLOAD...][CRC1][CRC0][ETX]
//
// or a lone control byte (ACK, NAK, or an autodetect byte), which carries
// no CRC. Frames are immutable once built.
type Frame struct {
	raw []byte
}

// NewFrame wraps raw bytes into a Frame. The bytes are copied.
func NewFrame(raw []byte) *Frame {
	buf := make([]byte, len(raw))
	copy(buf, raw)
	return &Frame{raw: buf}
}

// Command returns the command byte: the second byte of a framed message,
// or the byte itself for a single-byte frame.
func (f *Frame) Command() byte {
	if len(f.raw) == 1 {
		return f.raw[0]
	}
	if len(f.raw) < 2 {
		return 0
	}
	return f.raw[1]
}

// At returns the byte at index i, or 0 when out of range.
func (f *Frame) At(i int) byte {
	if i < 0 || i >= len(f.raw) {
		return 0
	}
	return f.raw[i]
}

// Len returns the raw frame length in bytes.
func (f *Frame) Len() int { return len(f.raw) }

// Bytes returns the raw frame bytes. Callers must not modify them.
func (f *Frame) Bytes() []byte { return f.raw }

// Payload returns the bytes between the length byte and the CRC, or nil
// for frames too short to carry one.
func (f *Frame) Payload() []byte {
	if len(f.raw) < 6 {
		return nil
	}
	return f.raw[3 : len(f.raw)-3]
}

// EmbeddedCrc returns the CRC carried in the frame, high byte first.
func (f *Frame) EmbeddedCrc() uint16 {
	n := len(f.raw)
	if n < 3 {
		return 0
	}
	return uint16(f.raw[n-3])<<8 | uint16(f.raw[n-2])
}

// ComputedCrc returns the CRC computed over the command, length, and
// payload bytes.
func (f *Frame) ComputedCrc() uint16 {
	if len(f.raw) < 6 {
		return 0
	}
	return Crc(f.raw[1 : len(f.raw)-3])
}

// Valid reports whether the frame is well-formed: correct delimiters and a
// matching CRC. Single-byte control frames are always valid.
func (f *Frame) Valid() bool {
	if len(f.raw) == 1 {
		return true
	}
	if len(f.raw) < 6 {
		return false
	}
	if f.raw[0] != STX || f.raw[len(f.raw)-1] != ETX {
		return false
	}
	return f.ComputedCrc() == f.EmbeddedCrc()
}

// String renders the frame as space-separated uppercase hex, the form used
// in protocol logs.
func (f *Frame) String() string {
	return Hex(f.raw)
}

// Hex renders a byte slice as space-separated uppercase hex.
func Hex(buf []byte) string {
	var b strings.Builder
	for i, v := range buf {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%02X", v)
	}
	return b.String()
}
