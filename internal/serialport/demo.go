package serialport

import (
	"sync"
	"time"

	"github.com/tmerle/sireader/internal/protocol"
)

// Demo simulates a master station with one SiCard 5 inserted shortly
// after the handshake, for running the reader without hardware.
type Demo struct {
	mu     sync.Mutex
	sink   func([]byte)
	closed bool
}

// NewDemo creates a demo port. Attach the driver's HandleSerialData
// before starting the driver.
func NewDemo() *Demo { return &Demo{} }

// Attach sets the byte sink the simulated station answers into.
func (d *Demo) Attach(sink func([]byte)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sink = sink
}

// Write answers each request the way a configured BSM7 would.
func (d *Demo) Write(data []byte) error {
	switch protocol.CommandOf(data) {
	case protocol.SetMasterMode:
		d.reply(protocol.BuildCommand(protocol.SetMasterMode, 0x00, 0x01, 0x4D))
	case protocol.GetSystemValue:
		if len(data) > 3 && data[3] == 0x74 {
			// Protocol configuration: extended protocol + handshake bits.
			d.reply(protocol.BuildCommand(protocol.GetSystemValue, 0x00, 0x01, 0x74, 0x05))
		} else {
			d.reply(protocol.BuildCommand(protocol.GetSystemValue, 0x00, 0x01, 0x33, 0x00))
		}
	case protocol.Beep:
		d.reply(protocol.BuildCommand(protocol.Beep, 0x02))
		// Handshake complete; insert the demo card shortly after.
		d.replyAfter(300*time.Millisecond, protocol.BuildCommand(protocol.Card5Detected, 0x00, 0x01, 0x00, 0x00, 0x30, 0x39))
	case protocol.GetCard5:
		params := append([]byte{0x00, 0x01}, demoCard5Block()...)
		d.reply(protocol.BuildCommand(protocol.GetCard5, params...))
	case protocol.ACK:
		d.replyAfter(100*time.Millisecond, protocol.BuildCommand(protocol.CardRemoved, 0x00, 0x01, 0x00, 0x00, 0x30, 0x39))
	}
	return nil
}

// SetBaudRate is accepted silently; the simulation has no line speed.
func (d *Demo) SetBaudRate(baud int) error { return nil }

// Close stops all pending replies.
func (d *Demo) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
}

func (d *Demo) reply(msg []byte) {
	d.replyAfter(10*time.Millisecond, msg)
}

func (d *Demo) replyAfter(delay time.Duration, msg []byte) {
	time.AfterFunc(delay, func() {
		d.mu.Lock()
		sink, closed := d.sink, d.closed
		d.mu.Unlock()
		if sink != nil && !closed {
			sink(msg)
		}
	})
}

// demoCard5Block builds the 128-byte SiCard 5 block of card 12345:
// start 10:00, five punches every five minutes from 10:10, finish 11:00.
func demoCard5Block() []byte {
	block := make([]byte, 128)
	putWord := func(offset int, v uint16) {
		block[offset] = byte(v >> 8)
		block[offset+1] = byte(v)
	}
	putWord(0x04, 12345)
	block[0x06] = 0x01
	putWord(0x13, 10*3600)
	putWord(0x15, 11*3600)
	block[0x17] = 6
	putWord(0x19, 0xEEEE)

	codes := []byte{31, 32, 33, 34, 35}
	for i, code := range codes {
		offset := 0x21 + (i/5)*0x10 + (i%5)*3
		block[offset] = code
		putWord(offset+1, uint16(10*3600+(i+2)*5*60))
	}
	return block
}
