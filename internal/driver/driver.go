// Package driver runs the SPORTident master-station protocol: handshake,
// card detection, multi-block readout, and post-read acknowledgement.
package driver

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/tmerle/sireader/internal/card"
	"github.com/tmerle/sireader/internal/protocol"
)

// Wait windows of the protocol state machine.
const (
	// responseTimeout bounds every expected answer during handshake and
	// readout.
	responseTimeout = 2 * time.Second

	// removalTimeout bounds the wait for the card-removed frame after an
	// acknowledged readout.
	removalTimeout = 5 * time.Second
)

// Baud rates the station may be listening at.
const (
	highBaud = 38400
	lowBaud  = 4800
)

// Driver owns a station port and reads every inserted card, reporting
// through its Handler. Create with New, run Start in its own goroutine,
// and feed incoming serial bytes to HandleSerialData.
type Driver struct {
	port    Port
	handler Handler
	queue   *messageQueue
	acc     accumulator

	running  atomic.Bool
	zeroHour int64

	// extendedPunches is set when the station reports the SiCard 6
	// 192-punches configuration. Informational; readout is unchanged.
	extendedPunches bool
}

// Option configures a Driver.
type Option func(*Driver)

// WithZeroHour sets the event's midnight anchor, in ms since local
// midnight, used to resolve card time ambiguities. Defaults to 0.
func WithZeroHour(ms int64) Option {
	return func(d *Driver) { d.zeroHour = ms }
}

// New creates a driver over the given port. The handler must not be nil.
func New(port Port, handler Handler, opts ...Option) *Driver {
	d := &Driver{
		port:    port,
		handler: handler,
		queue:   newMessageQueue(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// HandleSerialData accepts a chunk of bytes from the port reader. Complete
// frames are logged and queued in arrival order. Safe to call from the
// port's reader goroutine; it never blocks.
func (d *Driver) HandleSerialData(chunk []byte) {
	d.acc.feed(chunk, time.Now(), func(f *protocol.Frame) {
		d.handler.Log(Read, f.String())
		d.queue.push(f)
	})
}

// Start runs the driver until Stop is called or the startup handshake
// fails. It blocks; run it in a dedicated goroutine.
func (d *Driver) Start() {
	d.running.Store(true)
	d.handler.Status(Starting, "")

	if err := d.startupBootstrap(); err != nil {
		if d.running.Load() {
			d.handler.Log(Error, err.Error())
			d.handler.Status(FatalError, err.Error())
		}
		d.handler.Status(Off, "")
		return
	}

	for d.running.Load() {
		d.handler.Status(Ready, "")
		f, err := d.queue.takeForever()
		if err != nil {
			break
		}
		d.dispatch(f)
	}
	d.handler.Status(Off, "")
}

// Stop ends the driver: the main loop unwinds, queue waiters are woken
// with ErrStopped, and the port is closed.
func (d *Driver) Stop() {
	if !d.running.CompareAndSwap(true, false) {
		return
	}
	d.queue.clear()
	d.port.Close()
}

// dispatch routes one frame of the main loop.
func (d *Driver) dispatch(f *protocol.Frame) {
	switch f.Command() {
	case protocol.Card5Detected:
		d.retrieve("SiCard 5", d.retrieveCard5)
	case protocol.Card6Detected:
		d.retrieve("SiCard 6", d.retrieveCard6)
	case protocol.Card8PlusDetected:
		if f.At(5) == 0x0F {
			d.retrieve("SiCard 10/11/SIAC", d.retrieveCard10Plus)
		} else {
			d.retrieve("SiCard 8/9", d.retrieveCard89)
		}
	case protocol.Beep:
		// Station echo of a beep request.
	case protocol.CardRemoved:
		d.handler.Log(Info, "Late card removal "+f.String())
	default:
		d.handler.Log(Info, "Unexpected message: "+f.String())
	}
}

// retrieve wraps a read routine with the per-card error policy: timeouts,
// command mismatches, and decode failures leave the station running.
func (d *Driver) retrieve(label string, read func() error) {
	d.handler.Status(Processing, "")
	err := read()
	if err == nil || errors.Is(err, ErrStopped) {
		return
	}
	if fatal(err) {
		d.handler.Log(Error, err.Error())
		d.handler.Status(FatalError, err.Error())
		d.Stop()
		return
	}
	d.handler.Log(Error, err.Error())
	d.handler.Status(ProcessingError, fmt.Sprintf("%s readout failed: %v", label, err))
}

// startupBootstrap tries the handshake at 38400 baud, then once more at
// 4800 for stations configured to the low rate.
func (d *Driver) startupBootstrap() error {
	if err := d.setBaudRate(highBaud); err != nil {
		return err
	}
	err := d.startup()
	if err == nil {
		return nil
	}
	if _, ok := err.(*TimeoutError); !ok {
		return err
	}
	d.handler.Log(Info, "No answer at high baud, retrying at low baud")
	if err := d.setBaudRate(lowBaud); err != nil {
		return err
	}
	err = d.startup()
	if _, ok := err.(*TimeoutError); ok {
		return errors.New("Master station did not answer to startup sequence (high/low baud)")
	}
	return err
}

// startup performs the handshake: master mode, configuration checks, and
// the confirmation beep.
func (d *Driver) startup() error {
	if err := d.send(protocol.Startup); err != nil {
		return err
	}
	if _, err := d.waitFor(protocol.SetMasterMode, "master mode answer"); err != nil {
		return err
	}

	if err := d.send(protocol.GetProtocolConfiguration); err != nil {
		return err
	}
	conf, err := d.waitFor(protocol.GetSystemValue, "protocol configuration")
	if err != nil {
		return err
	}
	bits := conf.At(6)
	if bits&protocol.ExtendedProtocolBit == 0 {
		return &ConfigError{Message: "Master station should be configured with extended protocol"}
	}
	if bits&protocol.HandshakeBit == 0 {
		return &ConfigError{Message: "Master station should be configured in handshake mode (no autosend)"}
	}

	if err := d.send(protocol.GetCardblocksConfiguration); err != nil {
		return err
	}
	blocks, err := d.waitFor(protocol.GetSystemValue, "cardblocks configuration")
	if err != nil {
		return err
	}
	if blocks.At(6) == 0xFF {
		d.extendedPunches = true
		d.handler.Log(Info, "SiCard 6 192-punches mode enabled")
	}

	if err := d.send(protocol.BeepTwice); err != nil {
		return err
	}
	d.handler.Status(On, "")
	return nil
}

// send logs and writes one prebuilt request.
func (d *Driver) send(msg []byte) error {
	d.handler.Log(Send, protocol.Hex(msg))
	if err := d.port.Write(msg); err != nil {
		return &PortFailure{Op: "write", Err: err}
	}
	return nil
}

func (d *Driver) setBaudRate(baud int) error {
	if err := d.port.SetBaudRate(baud); err != nil {
		return &PortFailure{Op: "set baud rate", Err: err}
	}
	return nil
}

// waitFor takes the next frame and checks its command byte.
func (d *Driver) waitFor(command byte, op string) (*protocol.Frame, error) {
	f, err := d.queue.take(responseTimeout, op)
	if err != nil {
		return nil, err
	}
	if f.Command() != command {
		return nil, &InvalidMessageError{Received: f, Expected: command}
	}
	return f, nil
}

// readAll sends every command in order, collecting the matching responses.
func (d *Driver) readAll(commands [][]byte, label string) ([]*protocol.Frame, error) {
	responses := make([]*protocol.Frame, 0, len(commands))
	for _, cmd := range commands {
		if err := d.send(cmd); err != nil {
			return nil, err
		}
		f, err := d.waitFor(protocol.CommandOf(cmd), label)
		if err != nil {
			return nil, err
		}
		responses = append(responses, f)
	}
	return responses, nil
}

// readMultiple reads the header block first, derives the number of data
// blocks from the punch count it carries, and reads just those.
func (d *Driver) readMultiple(commands [][]byte, punchCountIndex int, label string) ([]*protocol.Frame, error) {
	head, err := d.readAll(commands[:1], label)
	if err != nil {
		return nil, err
	}
	punches := int(head[0].At(punchCountIndex))
	dataBlocks := punches / 32
	if punches%32 != 0 {
		dataBlocks++
	}
	total := 1 + dataBlocks
	if total > len(commands) {
		total = len(commands)
	}
	rest, err := d.readAll(commands[1:total], label)
	if err != nil {
		return nil, err
	}
	return append(head, rest...), nil
}

// retrieveCard5 reads the single SiCard 5 block.
func (d *Driver) retrieveCard5() error {
	responses, err := d.readAll([][]byte{protocol.ReadCard5}, "SiCard 5")
	if err != nil {
		return err
	}
	if responses[0].Len() < 133 {
		return fmt.Errorf("%w: SiCard 5 answer is %d bytes", card.ErrShortData, responses[0].Len())
	}
	data := responses[0].Bytes()[5:133]
	rec, err := card.DecodeCard5(data, d.zeroHour)
	if err != nil {
		return err
	}
	d.handler.CardRead(rec)
	d.ackAndWaitRemoval()
	return nil
}

func (d *Driver) retrieveCard6() error {
	responses, err := d.readMultiple(protocol.ReadCard6Blocks, 24, "SiCard 6")
	if err != nil {
		return err
	}
	rec, err := card.DecodeCard6(blockData(responses), d.zeroHour)
	if err != nil {
		return err
	}
	d.handler.CardRead(rec)
	d.ackAndWaitRemoval()
	return nil
}

func (d *Driver) retrieveCard89() error {
	responses, err := d.readAll(protocol.ReadCard89Blocks, "SiCard 8/9")
	if err != nil {
		return err
	}
	rec, err := card.DecodeCard8Plus(blockData(responses), d.zeroHour)
	if err != nil {
		return err
	}
	d.handler.CardRead(rec)
	d.ackAndWaitRemoval()
	return nil
}

func (d *Driver) retrieveCard10Plus() error {
	responses, err := d.readMultiple(protocol.ReadCard10PlusBlocks, 28, "SiCard 10/11/SIAC")
	if err != nil {
		return err
	}
	rec, err := card.DecodeCard8Plus(blockData(responses), d.zeroHour)
	if err != nil {
		return err
	}
	d.handler.CardRead(rec)
	d.ackAndWaitRemoval()
	return nil
}

// blockData concatenates the 128-byte data region of each block response.
func blockData(responses []*protocol.Frame) []byte {
	buf := make([]byte, 0, card.BlockSize*len(responses))
	for _, f := range responses {
		raw := f.Bytes()
		end := 6 + card.BlockSize
		if end > len(raw) {
			end = len(raw)
		}
		if len(raw) > 6 {
			buf = append(buf, raw[6:end]...)
		}
	}
	return buf
}

// ackAndWaitRemoval acknowledges the readout and waits for the card to
// leave the station. Whatever happens, the loop goes back to Ready.
func (d *Driver) ackAndWaitRemoval() {
	if err := d.send(protocol.AckSequence); err != nil {
		d.handler.Log(Error, err.Error())
		return
	}
	f, err := d.queue.take(removalTimeout, "card removal")
	switch {
	case err != nil:
		d.handler.Log(Info, "Timeout on card removal")
	case f.Command() != protocol.CardRemoved:
		d.handler.Log(Info, "Unexpected message: "+f.String())
	}
}
