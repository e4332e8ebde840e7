package driver

import (
	"errors"
	"fmt"

	"github.com/tmerle/sireader/internal/protocol"
)

// ErrStopped is returned by queue waits aborted by Stop.
var ErrStopped = errors.New("driver stopped")

// TimeoutError reports that no frame arrived within the allowed window.
// It is recovered inside card-read routines and fatal during startup.
type TimeoutError struct {
	Op string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout waiting for %s", e.Op)
}

// InvalidMessageError reports a frame that did not match the expected
// command. Recovery follows the same policy as TimeoutError.
type InvalidMessageError struct {
	Received *protocol.Frame
	Expected byte
}

func (e *InvalidMessageError) Error() string {
	return fmt.Sprintf("expected command 0x%02X, received %s", e.Expected, e.Received)
}

// ConfigError reports a station that is not configured for readout.
// Always fatal.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string { return e.Message }

// PortFailure reports a failed port operation. Always fatal.
type PortFailure struct {
	Op  string
	Err error
}

func (e *PortFailure) Error() string {
	return fmt.Sprintf("port %s failed: %v", e.Op, e.Err)
}

func (e *PortFailure) Unwrap() error { return e.Err }

// fatal reports whether an error must stop the driver. Timeouts, command
// mismatches, and decode failures inside a read routine are absorbed as
// per-card processing errors; port failures never are.
func fatal(err error) bool {
	var pf *PortFailure
	return errors.As(err, &pf)
}
