package driver

// Port is the byte-oriented serial port the driver talks through. The
// driver owns the port for its lifetime; incoming bytes are pushed in by
// the port's reader through HandleSerialData, the driver never polls.
type Port interface {
	// Write sends bytes and returns once they are drained to the device.
	Write(data []byte) error

	// SetBaudRate reconfigures the line speed.
	SetBaudRate(baud int) error

	// Close releases the port. Close is infallible from the driver's
	// point of view; it is called at most once, from Stop.
	Close()
}
