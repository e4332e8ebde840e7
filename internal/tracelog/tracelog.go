// Package tracelog records the driver's protocol exchanges to rotating
// CSV files for offline diagnosis of misbehaving stations.
package tracelog

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Writer appends timestamped protocol lines to CSV files with automatic
// rotation.
type Writer struct {
	mu      sync.Mutex
	dir     string
	enabled bool

	file   *os.File
	writer *csv.Writer
	rows   int
}

// Config holds trace writer configuration.
type Config struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// Rotate after 50k rows; a busy reading day stays well under this.
const maxRowsPerFile = 50_000

var csvHeader = []string{"timestamp", "direction", "message"}

// New creates a trace writer. Files are only created once the first row
// is recorded.
func New(cfg Config) *Writer {
	if cfg.Path == "" {
		cfg.Path = "/var/log/sireader"
	}
	return &Writer{
		dir:     cfg.Path,
		enabled: cfg.Enabled,
	}
}

// Record appends one protocol line.
func (w *Writer) Record(direction, message string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.enabled {
		return
	}

	now := time.Now()
	if w.writer == nil || w.rows >= maxRowsPerFile {
		if err := w.rotateFile(now); err != nil {
			log.Printf("[trace] rotate failed: %v", err)
			return
		}
	}

	if err := w.writer.Write([]string{now.Format(time.RFC3339Nano), direction, message}); err != nil {
		log.Printf("[trace] write failed: %v", err)
		return
	}
	w.writer.Flush()
	w.rows++
}

// Close flushes and closes the current trace file.
func (w *Writer) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closeFile()
}

func (w *Writer) rotateFile(now time.Time) error {
	w.closeFile()

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", w.dir, err)
	}

	filename := fmt.Sprintf("sitrace_%s.csv", now.Format("2006-01-02_150405"))
	path := filepath.Join(w.dir, filename)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	w.file = f
	w.writer = csv.NewWriter(f)
	w.rows = 0

	if err := w.writer.Write(csvHeader); err != nil {
		return err
	}
	w.writer.Flush()

	log.Printf("[trace] opened %s", path)
	return nil
}

func (w *Writer) closeFile() {
	if w.writer != nil {
		w.writer.Flush()
		w.writer = nil
	}
	if w.file != nil {
		w.file.Close()
		w.file = nil
	}
}
