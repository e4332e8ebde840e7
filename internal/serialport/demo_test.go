package serialport

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmerle/sireader/internal/protocol"
)

// frameSink collects replies from the demo station.
type frameSink struct {
	mu     sync.Mutex
	chunks [][]byte
	notify chan struct{}
}

func newFrameSink() *frameSink {
	return &frameSink{notify: make(chan struct{}, 16)}
}

func (s *frameSink) accept(chunk []byte) {
	s.mu.Lock()
	s.chunks = append(s.chunks, append([]byte{}, chunk...))
	s.mu.Unlock()
	s.notify <- struct{}{}
}

func (s *frameSink) waitChunk(t *testing.T) []byte {
	t.Helper()
	select {
	case <-s.notify:
	case <-time.After(2 * time.Second):
		t.Fatal("demo station did not answer")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunks[len(s.chunks)-1]
}

func TestDemoAnswersHandshake(t *testing.T) {
	demo := NewDemo()
	sink := newFrameSink()
	demo.Attach(sink.accept)
	defer demo.Close()

	require.NoError(t, demo.Write(protocol.Startup))
	f := protocol.NewFrame(sink.waitChunk(t))
	assert.Equal(t, byte(protocol.SetMasterMode), f.Command())
	assert.True(t, f.Valid())

	require.NoError(t, demo.Write(protocol.GetProtocolConfiguration))
	f = protocol.NewFrame(sink.waitChunk(t))
	assert.Equal(t, byte(protocol.GetSystemValue), f.Command())
	assert.Equal(t, byte(0x05), f.At(6), "extended protocol and handshake bits")

	require.NoError(t, demo.Write(protocol.GetCardblocksConfiguration))
	f = protocol.NewFrame(sink.waitChunk(t))
	assert.Equal(t, byte(0x33), f.At(5))
}

func TestDemoServesCard5(t *testing.T) {
	demo := NewDemo()
	sink := newFrameSink()
	demo.Attach(sink.accept)
	defer demo.Close()

	require.NoError(t, demo.Write(protocol.ReadCard5))
	f := protocol.NewFrame(sink.waitChunk(t))
	require.Equal(t, byte(protocol.GetCard5), f.Command())
	require.True(t, f.Valid())
	require.GreaterOrEqual(t, f.Len(), 133)

	block := f.Bytes()[5:133]
	assert.Equal(t, byte(6), block[0x17], "five punches plus one")
}

func TestDemoInsertsCardAfterBeep(t *testing.T) {
	demo := NewDemo()
	sink := newFrameSink()
	demo.Attach(sink.accept)
	defer demo.Close()

	require.NoError(t, demo.Write(protocol.BeepTwice))
	first := protocol.NewFrame(sink.waitChunk(t))
	assert.Equal(t, byte(protocol.Beep), first.Command())

	second := protocol.NewFrame(sink.waitChunk(t))
	assert.Equal(t, byte(protocol.Card5Detected), second.Command())
}
