package upgrade

import (
	"errors"
	"fmt"
	"time"

	"github.com/bryangrimes/node-cubelets/client"
)

// FirmwareType is the firmware generation detected on the host.
type FirmwareType int

const (
	FirmwareClassic FirmwareType = iota
	FirmwareImago
	FirmwareBootstrap
)

func (f FirmwareType) String() string {
	switch f {
	case FirmwareClassic:
		return "classic"
	case FirmwareImago:
		return "imago"
	case FirmwareBootstrap:
		return "bootstrap"
	default:
		return fmt.Sprintf("firmware(%d)", int(f))
	}
}

// State is the orchestrator lifecycle.
type State int

const (
	StateNotStarted State = iota
	StateRunning
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not started"
	case StateRunning:
		return "running"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Timings holds every delay and bound the orchestrator uses. Zero fields
// take the DefaultTimings value.
type Timings struct {
	// DetectTimeout bounds the keep-alive used to detect the firmware
	DetectTimeout time.Duration

	// DiscoveryDelay and DiscoveryTimeout configure each jump to discovery
	DiscoveryDelay   time.Duration
	DiscoveryTimeout time.Duration

	// Settle is how long each iteration collects BlockFoundEvents
	Settle time.Duration

	// ClassicSettle is the pause after jumping to CLASSIC before the
	// neighbor query
	ClassicSettle time.Duration

	// TargetDiscoveryTimeout bounds the wait for a freshly bootstrapped
	// target to report imago firmware on its face
	TargetDiscoveryTimeout time.Duration

	// SkipTimeout bounds the wait for a SkipDisconnectEvent after the host
	// took the bootstrap firmware
	SkipTimeout time.Duration

	// ResetAttempts and ResetInterval bound the disconnect and the
	// reconnect waits that race the skip event
	ResetAttempts int
	ResetInterval time.Duration

	// MaxIterationFailures is how many consecutive failed mesh iterations
	// end the upgrade. Zero never ends it.
	MaxIterationFailures int
}

// DefaultTimings returns the timings of real hardware.
func DefaultTimings() Timings {
	return Timings{
		DetectTimeout:          time.Second,
		DiscoveryDelay:         client.DefaultDiscoveryDelay,
		DiscoveryTimeout:       client.DefaultDiscoveryTimeout,
		Settle:                 2500 * time.Millisecond,
		ClassicSettle:          time.Second,
		TargetDiscoveryTimeout: 5 * time.Second,
		SkipTimeout:            5 * time.Second,
		ResetAttempts:          20,
		ResetInterval:          5 * time.Second,
	}
}

func (t Timings) withDefaults() Timings {
	d := DefaultTimings()
	setDuration(&t.DetectTimeout, d.DetectTimeout)
	setDuration(&t.DiscoveryDelay, d.DiscoveryDelay)
	setDuration(&t.DiscoveryTimeout, d.DiscoveryTimeout)
	setDuration(&t.Settle, d.Settle)
	setDuration(&t.ClassicSettle, d.ClassicSettle)
	setDuration(&t.TargetDiscoveryTimeout, d.TargetDiscoveryTimeout)
	setDuration(&t.SkipTimeout, d.SkipTimeout)
	setDuration(&t.ResetInterval, d.ResetInterval)
	if t.ResetAttempts <= 0 {
		t.ResetAttempts = d.ResetAttempts
	}
	if t.MaxIterationFailures < 0 {
		t.MaxIterationFailures = 0
	}
	return t
}

func setDuration(v *time.Duration, def time.Duration) {
	if *v <= 0 {
		*v = def
	}
}

var (
	// ErrAlreadyRunning is returned by Start while an upgrade runs.
	ErrAlreadyRunning = errors.New("upgrade already started")

	// ErrNotRunning is returned by Finish when no upgrade runs.
	ErrNotRunning = errors.New("upgrade not running")

	// ErrResetFailed is returned when the host neither skipped nor
	// completed its reset after taking the bootstrap firmware.
	ErrResetFailed = errors.New("block failed to reset after bootstrap")

	// ErrHostNotFound is returned when the neighbor query names no origin.
	ErrHostNotFound = errors.New("host block not found")
)

// UnsupportedFirmwareError is returned by Start for a host whose firmware
// cannot be upgraded.
type UnsupportedFirmwareError struct {
	Firmware FirmwareType
}

func (e *UnsupportedFirmwareError) Error() string {
	return fmt.Sprintf("cannot upgrade a host running %s firmware", e.Firmware)
}

// InfoLookupError reports blocks whose type could not be resolved. It is
// published as a notification and never ends the upgrade.
type InfoLookupError struct {
	IDs []uint32
	Err error
}

func (e *InfoLookupError) Error() string {
	return fmt.Sprintf("info lookup for %d blocks: %v", len(e.IDs), e.Err)
}

func (e *InfoLookupError) Unwrap() error {
	return e.Err
}

// IterationError ends the upgrade after too many consecutive failed mesh
// iterations. Err is the last failure.
type IterationError struct {
	Failures int
	Err      error
}

func (e *IterationError) Error() string {
	return fmt.Sprintf("mesh upgrade failed %d times in a row: %v", e.Failures, e.Err)
}

func (e *IterationError) Unwrap() error {
	return e.Err
}
