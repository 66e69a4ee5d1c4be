package flash

import (
	"context"
	"errors"
	"time"

	"github.com/bryangrimes/node-cubelets/client"
	"github.com/bryangrimes/node-cubelets/device"
	"github.com/bryangrimes/node-cubelets/internal/sequence"
	"github.com/bryangrimes/node-cubelets/program"
)

// Raw handshake bytes.
var (
	resetSequence  = []byte{0x15, 0x3A, 0x95, 0x68, 0xC1, 0x9A, 0x84}
	resetConfirm   = []byte{0x59}
	disableAutomap = []byte{'5'}
	readyCommand   = []byte{'3'}
	safeCheck      = []byte{'1'}
	endOfTransfer  = []byte{0xFE, 0xFD}
	targetCommit   = []byte{'#'}
)

// Link is the part of *client.Client a session drives.
type Link interface {
	ExpectStatus(ctx context.Context, status byte, timeout time.Duration, send func() error) error
	Subscribe() *client.Subscription
	WriteRaw(p []byte) error
	SetRawMode(raw bool)
	Hold() func()
}

// Flasher runs flash sessions over one link.
type Flasher struct {
	link   Link
	config Config
}

// New creates a flasher for link.
//
// Example:
//
//	f := flash.New(c, flash.WithTimeout(10*time.Second))
func New(link Link, opts ...Option) *Flasher {
	if link == nil {
		panic("link cannot be nil")
	}
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return &Flasher{link: link, config: config}
}

// Flash writes prog to dev, choosing the host handshake for hop count 0 and
// the paged target handshake otherwise. Stage failures are returned as
// *FlashError.
func (f *Flasher) Flash(ctx context.Context, prog *program.Program, dev device.Device) error {
	if err := checkPreconditions(prog, dev); err != nil {
		f.logError("flash rejected", "device", dev.ID, "error", err)
		return err
	}

	release := f.link.Hold()
	defer release()
	defer f.link.SetRawMode(false)

	s := &session{
		f:       f,
		prog:    prog,
		dev:     dev,
		start:   time.Now(),
		reset:   SupportsReset(dev),
		automap: DisablesAutomap(dev),
	}

	var steps []sequence.Step
	if dev.IsHost() {
		f.logInfo("flashing host", "device", dev.ID, "mcu", dev.MCU.String(), "bytes", prog.Len(), "reset", s.reset)
		steps = s.hostSteps()
	} else {
		f.logInfo("flashing target", "device", dev.ID, "mcu", dev.MCU.String(), "pages", prog.PageCount(), "reset", s.reset)
		steps = s.targetSteps()
	}

	f.link.SetRawMode(true)
	if err := sequence.Run(ctx, steps...); err != nil {
		return f.unwrapStep(err)
	}

	s.report(PhaseComplete, 1, 1, 100)
	f.logInfo("flash complete", "device", dev.ID, "elapsed", time.Since(s.start).String())
	return nil
}

func checkPreconditions(prog *program.Program, dev device.Device) error {
	if prog == nil {
		return &InvalidProgramError{Reason: "no program"}
	}
	if err := prog.Validate(); err != nil {
		return &InvalidProgramError{Reason: err.Error()}
	}
	if !dev.HasHopCount() {
		return ErrUnknownHopCount
	}
	switch dev.MCU {
	case device.MCUAVR, device.MCUPIC:
		return nil
	default:
		return &UnsupportedMCUError{MCU: dev.MCU}
	}
}

// unwrapStep returns the stage's own *FlashError, or wraps a bare error
// such as a cancellation under the step's stage.
func (f *Flasher) unwrapStep(err error) error {
	var fe *FlashError
	if errors.As(err, &fe) {
		return fe
	}
	var se *sequence.StepError
	if errors.As(err, &se) {
		return f.stageError(Stage(se.Step), 0, se.Err)
	}
	return err
}

func (f *Flasher) stageError(stage Stage, status byte, err error) error {
	fe := &FlashError{Stage: stage, Status: status, Err: err}
	if client.IsTimeout(err) {
		fe.Hint = HintForStatus(status)
	}
	f.logError("flash stage failed", "stage", string(stage), "error", err)
	return fe
}

// session is the state of one Flash call.
type session struct {
	f       *Flasher
	prog    *program.Program
	dev     device.Device
	start   time.Time
	reset   bool
	automap bool
	percent float64
}

// expect writes p and waits for status.
func (s *session) expect(stage Stage, status byte, p []byte) sequence.Step {
	return s.expectFunc(stage, status, s.write(p))
}

func (s *session) expectFunc(stage Stage, status byte, send func() error) sequence.Step {
	return sequence.Step{Name: string(stage), Run: func(ctx context.Context) error {
		return s.awaitStatus(ctx, stage, status, send)
	}}
}

func (s *session) awaitStatus(ctx context.Context, stage Stage, status byte, send func() error) error {
	if err := s.f.link.ExpectStatus(ctx, status, s.f.config.Timeout, send); err != nil {
		return s.f.stageError(stage, status, err)
	}
	return nil
}

// send writes p without waiting for a reply.
func (s *session) send(stage Stage, p []byte) sequence.Step {
	return sequence.Step{Name: string(stage), Run: func(context.Context) error {
		if err := s.f.link.WriteRaw(p); err != nil {
			return s.f.stageError(stage, 0, err)
		}
		return nil
	}}
}

func (s *session) write(p []byte) func() error {
	return func() error { return s.f.link.WriteRaw(p) }
}

func (s *session) settle() sequence.Step {
	return sequence.Sleep("settle", s.f.config.SettleDelay)
}

// resetSteps sends the reset sequence, waits for the bootloader prompt and
// confirms it.
func (s *session) resetSteps() []sequence.Step {
	return []sequence.Step{
		{Name: string(StageReset), Run: func(ctx context.Context) error {
			s.report(PhaseReset, 0, 1, s.percent)
			return nil
		}},
		s.expect(StageReset, '?', resetSequence),
		s.send(StageReset, resetConfirm),
		s.settle(),
	}
}

func (s *session) report(phase Phase, done, total int, percentage float64) {
	s.percent = percentage
	if s.f.config.ProgressCallback == nil {
		return
	}
	s.f.config.ProgressCallback(Progress{
		Phase:       phase,
		DeviceID:    s.dev.ID,
		Done:        done,
		Total:       total,
		Percentage:  percentage,
		ElapsedTime: time.Since(s.start),
	})
}

// logDebug logs a debug message if a logger is configured.
func (f *Flasher) logDebug(msg string, keysAndValues ...interface{}) {
	if f.config.Logger != nil {
		f.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if a logger is configured.
func (f *Flasher) logInfo(msg string, keysAndValues ...interface{}) {
	if f.config.Logger != nil {
		f.config.Logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if a logger is configured.
func (f *Flasher) logError(msg string, keysAndValues ...interface{}) {
	if f.config.Logger != nil {
		f.config.Logger.Error(msg, keysAndValues...)
	}
}
