package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameAccessors(t *testing.T) {
	f := NewFrame(BuildCommand(GetSystemValue, 0x00, 0x01, 0x74, 0x05))

	assert.Equal(t, byte(GetSystemValue), f.Command())
	assert.Equal(t, byte(STX), f.At(0))
	assert.Equal(t, byte(0x05), f.At(6))
	assert.Equal(t, byte(0), f.At(100), "out of range reads as zero")
	assert.Equal(t, []byte{0x00, 0x01, 0x74, 0x05}, f.Payload())
	assert.True(t, f.Valid())
}

func TestFrameSingleControlByte(t *testing.T) {
	for _, b := range []byte{ACK, NAK} {
		f := NewFrame([]byte{b})
		assert.True(t, f.Valid())
		assert.Equal(t, b, f.Command())
	}
}

func TestFrameInvalid(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"too short", []byte{STX, 0x83, ETX}},
		{"bad start byte", []byte{0x00, 0x83, 0x00, 0x00, 0x00, ETX}},
		{"bad end byte", []byte{STX, 0x83, 0x00, 0x00, 0x00, 0x00}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, NewFrame(tt.raw).Valid())
		})
	}

	t.Run("corrupted crc", func(t *testing.T) {
		raw := BuildCommand(GetSystemValue, 0x74, 0x01)
		raw[len(raw)-2]++
		f := NewFrame(raw)
		require.False(t, f.Valid())
		assert.NotEqual(t, f.ComputedCrc(), f.EmbeddedCrc())
	})
}

func TestFrameIsImmutable(t *testing.T) {
	raw := BuildCommand(GetCard5)
	f := NewFrame(raw)
	raw[1] = 0x00
	assert.Equal(t, byte(GetCard5), f.Command(), "frame must copy its input")
}

func TestHex(t *testing.T) {
	assert.Equal(t, "02 B1 00 B1 00 03", Hex(ReadCard5))
	assert.Equal(t, "", Hex(nil))
}
