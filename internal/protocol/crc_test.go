package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrc(t *testing.T) {
	tests := []struct {
		name     string
		buf      []byte
		expected uint16
	}{
		{
			name:     "empty",
			buf:      nil,
			expected: 0,
		},
		{
			name:     "single byte",
			buf:      []byte{0x42},
			expected: 0,
		},
		{
			name:     "two bytes are the seed",
			buf:      []byte{0x12, 0x34},
			expected: 0x1234,
		},
		{
			name:     "reference vector",
			buf:      []byte{0x53, 0x00, 0x05, 0x01, 0x0F, 0xB5, 0x00, 0x00, 0x1E, 0x08},
			expected: 0x2C12,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Crc(tt.buf))
		})
	}
}

// Every prebuilt request must carry the CRC of its own command, length,
// and parameter bytes.
func TestPrebuiltMessagesCarryValidCrc(t *testing.T) {
	msgs := map[string][]byte{
		"get protocol configuration":   GetProtocolConfiguration,
		"get cardblocks configuration": GetCardblocksConfiguration,
		"beep twice":                   BeepTwice,
		"read card 5":                  ReadCard5,
	}
	for name, msg := range msgs {
		t.Run(name, func(t *testing.T) {
			f := NewFrame(msg)
			require.True(t, f.Valid(), "frame %s", f)
			assert.Equal(t, f.ComputedCrc(), f.EmbeddedCrc())
		})
	}
}

// The startup sequence embeds its frame behind the wakeup prefix.
func TestStartupSequence(t *testing.T) {
	expected := []byte{0xFF, 0x02, 0x02, 0xF0, 0x01, 0x4D, 0x6D, 0x0A, 0x03}
	assert.Equal(t, expected, Startup)

	f := NewFrame(Startup[2:])
	assert.True(t, f.Valid())
	assert.Equal(t, byte(SetMasterMode), f.Command())
}

func TestBuildCommandMatchesLiteralSequences(t *testing.T) {
	assert.Equal(t, GetProtocolConfiguration, BuildCommand(GetSystemValue, 0x74, 0x01))
	assert.Equal(t, GetCardblocksConfiguration, BuildCommand(GetSystemValue, 0x33, 0x01))
	assert.Equal(t, BeepTwice, BuildCommand(Beep, 0x02))
	assert.Equal(t, ReadCard5, BuildCommand(GetCard5))
}

func TestReadBlockSequences(t *testing.T) {
	order := []byte{0, 6, 7, 2, 3, 4, 5}
	require.Len(t, ReadCard6Blocks, len(order))
	for i, n := range order {
		msg := ReadCard6Blocks[i]
		assert.Equal(t, byte(GetCard6Block), CommandOf(msg))
		assert.Equal(t, n, msg[3])
		assert.True(t, NewFrame(msg).Valid())
	}

	order = []byte{0, 4, 5, 6, 7}
	require.Len(t, ReadCard10PlusBlocks, len(order))
	for i, n := range order {
		msg := ReadCard10PlusBlocks[i]
		assert.Equal(t, byte(GetCard8PlusBlock), CommandOf(msg))
		assert.Equal(t, n, msg[3])
		assert.True(t, NewFrame(msg).Valid())
	}
}
