// Package serialport adapts go.bug.st/serial to the driver's port
// contract and enumerates candidate SPORTident stations.
package serialport

import (
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"go.bug.st/serial"

	"github.com/tmerle/sireader/internal/driver"
)

// readTimeout keeps the pump loop responsive to Close.
const readTimeout = 100 * time.Millisecond

// SerialPort is a driver.Port over a real serial device, opened 8N1 with
// flow control off as SPORTident stations expect.
type SerialPort struct {
	path   string
	port   serial.Port
	closed atomic.Bool
}

// Open opens the device at 38400 baud. The driver renegotiates the rate
// during its startup bootstrap.
func Open(path string) (*SerialPort, error) {
	mode := &serial.Mode{
		BaudRate: 38400,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("serial: failed to open %s: %w", path, err)
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("serial: failed to set timeout on %s: %w", path, err)
	}
	log.Printf("[serial] opened %s", path)
	return &SerialPort{path: path, port: port}, nil
}

// Pump reads the port and forwards every chunk to the driver. It returns
// when the port is closed; run it in its own goroutine so all bytes enter
// the driver from a single producer.
func (p *SerialPort) Pump(d *driver.Driver) {
	buf := make([]byte, 128)
	for !p.closed.Load() {
		n, err := p.port.Read(buf)
		if err != nil {
			if !p.closed.Load() {
				log.Printf("[serial] read on %s failed: %v", p.path, err)
			}
			return
		}
		if n > 0 {
			d.HandleSerialData(buf[:n])
		}
	}
}

// Write sends bytes and waits for the output buffer to drain.
func (p *SerialPort) Write(data []byte) error {
	if _, err := p.port.Write(data); err != nil {
		return fmt.Errorf("serial: write on %s: %w", p.path, err)
	}
	if err := p.port.Drain(); err != nil {
		return fmt.Errorf("serial: drain on %s: %w", p.path, err)
	}
	return nil
}

// SetBaudRate reconfigures the line speed, keeping 8N1.
func (p *SerialPort) SetBaudRate(baud int) error {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	if err := p.port.SetMode(mode); err != nil {
		return fmt.Errorf("serial: set %d baud on %s: %w", baud, p.path, err)
	}
	return nil
}

// Close releases the device and unblocks Pump.
func (p *SerialPort) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	p.port.Close()
	log.Printf("[serial] closed %s", p.path)
}
