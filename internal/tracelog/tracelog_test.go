package tracelog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterRecordsRows(t *testing.T) {
	dir := t.TempDir()
	w := New(Config{Enabled: true, Path: dir})

	w.Record("SEND", "02 B1 00 B1 00 03")
	w.Record("READ", "06")
	w.Close()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "sitrace_"))

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3, "header plus two rows")
	assert.Equal(t, "timestamp,direction,message", lines[0])
	assert.Contains(t, lines[1], "SEND")
	assert.Contains(t, lines[2], "READ")
}

func TestWriterDisabledWritesNothing(t *testing.T) {
	dir := t.TempDir()
	w := New(Config{Enabled: false, Path: dir})

	w.Record("SEND", "ignored")
	w.Close()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
