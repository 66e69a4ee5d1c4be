package client

import (
	"errors"
	"fmt"
	"time"

	"github.com/bryangrimes/node-cubelets/protocol"
)

// ErrClosed is returned by operations on a closed client.
var ErrClosed = errors.New("client: closed")

// TimeoutError indicates that no matching response, event or status byte
// arrived within the deadline.
type TimeoutError struct {
	// Op names what was being waited for
	Op string

	// Status is the raw status byte expected, or 0 for non-raw waits
	Status byte

	// Timeout is the deadline that expired
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("timeout after %s waiting for %s (status %q)", e.Timeout, e.Op, e.Status)
	}
	return fmt.Sprintf("timeout after %s waiting for %s", e.Timeout, e.Op)
}

// IsTimeout returns true if err is or wraps a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// NoReport marks a ProtocolModeError that carries no device-reported mode.
const NoReport = -1

// ProtocolModeError indicates an illegal mode transition, an operation
// attempted outside its required mode, or a device that reported a
// different mode than requested.
type ProtocolModeError struct {
	// Op is the attempted operation
	Op string

	// Current is the local mode when the operation was attempted
	Current protocol.Mode

	// Required is the mode the operation needs or targets
	Required protocol.Mode

	// Reported is the mode byte the device answered with, or NoReport
	Reported int
}

func (e *ProtocolModeError) Error() string {
	if e.Reported != NoReport {
		return fmt.Sprintf("%s: device reported mode %d, expected %s", e.Op, e.Reported, e.Required)
	}
	return fmt.Sprintf("%s: not allowed in %s mode (requires %s)", e.Op, e.Current, e.Required)
}
