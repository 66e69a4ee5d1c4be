package flash

import (
	"errors"
	"fmt"

	"github.com/bryangrimes/node-cubelets/device"
)

// ErrUnknownHopCount is returned for a device whose position has not been
// fetched.
var ErrUnknownHopCount = errors.New("invalid device hop count: has the device been fetched yet?")

// UnsupportedMCUError indicates a device whose MCU family cannot be flashed.
type UnsupportedMCUError struct {
	MCU device.MCUType
}

func (e *UnsupportedMCUError) Error() string {
	return fmt.Sprintf("unsupported target MCU type: %s", e.MCU)
}

// InvalidProgramError indicates a program that must not be flashed.
type InvalidProgramError struct {
	Reason string
}

func (e *InvalidProgramError) Error() string {
	return fmt.Sprintf("invalid program: %s", e.Reason)
}

// Stage names one step of a flash handshake.
type Stage string

const (
	StageReset         Stage = "reset"
	StageAutomap       Stage = "disable automap"
	StageReady         Stage = "ready"
	StageChecksum      Stage = "checksum"
	StageUpload        Stage = "upload"
	StageCommit        Stage = "commit"
	StageFlash         Stage = "flash"
	StageSafeCheck     Stage = "safe check"
	StageTargetReady   Stage = "target ready"
	StagePages         Stage = "pages"
	StageEndOfTransfer Stage = "end of transfer"
	StageTargetCommit  Stage = "target commit"
)

// FlashError reports the stage of a session that failed. For status-byte
// timeouts Err is a *client.TimeoutError and Status the expected byte.
type FlashError struct {
	Stage  Stage
	Status byte
	Hint   string
	Err    error
}

func (e *FlashError) Error() string {
	msg := fmt.Sprintf("flash %s: %v", e.Stage, e.Err)
	if e.Hint != "" {
		msg += ". " + e.Hint
	}
	return msg
}

func (e *FlashError) Unwrap() error {
	return e.Err
}

// HintForStatus returns the recovery hint for a missing status byte.
func HintForStatus(status byte) string {
	switch status {
	case '?':
		return "Host block may need a hard reset."
	case '4':
		return "Target block is not ready. Try flashing again in a moment. The target may need to be reset."
	case 'Y':
		return "Program upload to host block failed. Make sure the connection is still active and try again."
	case 'Z':
		return "Could not communicate with target block after flashing. The target may need to be reset."
	default:
		return "Reason unknown."
	}
}
