package flash

import "time"

// Phase names a stretch of a flash session for progress reporting.
type Phase string

const (
	PhaseReset    Phase = "reset"
	PhaseUpload   Phase = "upload"
	PhaseFlash    Phase = "flash"
	PhaseVerify   Phase = "verify"
	PhasePages    Phase = "pages"
	PhaseCommit   Phase = "commit"
	PhaseComplete Phase = "complete"
)

// Progress contains information about the flashing progress.
// Passed to ProgressCallback during a session.
type Progress struct {
	// Phase describes the current operation phase:
	//   "reset"    - Resetting the device around the session
	//   "upload"   - Streaming the program to the host (bytes)
	//   "flash"    - Host writing the uploaded program (lines)
	//   "verify"   - Host safe check
	//   "pages"    - Sending pages to a target (pages)
	//   "commit"   - Target applying the transferred pages
	//   "complete" - Session completed successfully
	Phase Phase

	// DeviceID is the device being flashed
	DeviceID uint32

	// Done is the amount of work finished in this phase
	Done int

	// Total is the amount of work in this phase
	Total int

	// Percentage is the completion percentage of the whole session (0.0 to 100.0)
	Percentage float64

	// ElapsedTime is the time elapsed since the session started
	ElapsedTime time.Duration
}

// Fraction returns Done/Total for the phase, or 1 when Total is zero.
func (p Progress) Fraction() float64 {
	if p.Total <= 0 {
		return 1
	}
	return float64(p.Done) / float64(p.Total)
}

// ProgressCallback is called during flashing to report progress.
// Implementations should return quickly to avoid stalling the session.
type ProgressCallback func(Progress)

// blend maps a phase fraction onto step s of n equal parts of the session.
func blend(done, total, step, steps int) float64 {
	p := 1.0
	if total > 0 {
		p = float64(done) / float64(total)
	}
	return 100 * (p + float64(step-1)) / float64(steps)
}
