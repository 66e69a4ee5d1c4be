package upgrade

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bryangrimes/node-cubelets/catalog"
	"github.com/bryangrimes/node-cubelets/client"
	"github.com/bryangrimes/node-cubelets/device"
	"github.com/bryangrimes/node-cubelets/flash"
	"github.com/bryangrimes/node-cubelets/info"
	"github.com/bryangrimes/node-cubelets/internal/sequence"
	"github.com/bryangrimes/node-cubelets/ledger"
	"github.com/bryangrimes/node-cubelets/logging"
	"github.com/bryangrimes/node-cubelets/protocol"
	"github.com/google/uuid"
)

// Link is the part of *client.Client the orchestrator drives.
type Link interface {
	flash.Link
	Mode() protocol.Mode
	SetMode(m protocol.Mode)
	Request(ctx context.Context, req protocol.Request) (protocol.Message, error)
	RequestTimeout(ctx context.Context, req protocol.Request, d time.Duration) (protocol.Message, error)
	JumpToClassic(ctx context.Context) error
	JumpToImago(ctx context.Context) error
	JumpToDiscovery(ctx context.Context, opts ...client.DiscoveryOption) (*protocol.BlockFoundEvent, error)
}

// Orchestrator runs mesh upgrades over one link.
type Orchestrator struct {
	link      Link
	catalog   catalog.Source
	resolver  info.Resolver
	recorder  ledger.Recorder
	flashOpts []flash.Option
	timings   Timings
	log       logging.Logger
	bus       *bus

	finished atomic.Bool

	mu        sync.Mutex
	state     State
	session   string
	host      *device.Device
	target    *device.Device
	pending   []device.Device
	completed []device.Device
}

// New returns an orchestrator for link.
func New(link Link, opts ...Option) *Orchestrator {
	if link == nil {
		panic("link cannot be nil")
	}
	o := &Orchestrator{
		link:     link,
		recorder: ledger.Nop,
		timings:  DefaultTimings(),
		log:      logging.Nop,
		bus:      newBus(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Subscribe registers for notifications. The returned function
// unsubscribes and closes the channel.
func (o *Orchestrator) Subscribe() (<-chan Notification, func()) {
	return o.bus.subscribe()
}

// DetectFirmwareType probes the host with a CLASSIC keep-alive: no answer
// means IMAGO, an answer with a payload means BOOTSTRAP, and an empty
// answer means CLASSIC. The link is left in the detected mode. It must be
// repeated after every reconnect.
func (o *Orchestrator) DetectFirmwareType(ctx context.Context) (FirmwareType, error) {
	o.link.SetMode(protocol.ModeClassic)
	resp, err := o.link.RequestTimeout(ctx, &protocol.ClassicKeepAliveRequest{}, o.timings.DetectTimeout)
	var fw FirmwareType
	switch {
	case client.IsTimeout(err):
		o.link.SetMode(protocol.ModeImago)
		fw = FirmwareImago
	case err != nil:
		return 0, fmt.Errorf("detect firmware: %w", err)
	default:
		ka, ok := resp.(*protocol.ClassicKeepAliveResponse)
		if !ok {
			return 0, fmt.Errorf("detect firmware: unexpected response %T", resp)
		}
		if len(ka.Payload) > 0 {
			o.link.SetMode(protocol.ModeBootstrap)
			fw = FirmwareBootstrap
		} else {
			fw = FirmwareClassic
		}
	}
	o.log.Info("detected firmware", "firmware", fw.String())
	o.notify(Notification{Kind: KindDetected, Firmware: fw.String()})
	return fw, nil
}

// Start runs a whole upgrade and blocks until it completes or fails. It
// fails with ErrAlreadyRunning while another Start runs.
func (o *Orchestrator) Start(ctx context.Context) (err error) {
	if o.catalog == nil {
		return errors.New("upgrade: no firmware catalog")
	}
	o.mu.Lock()
	if o.state == StateRunning {
		o.mu.Unlock()
		return ErrAlreadyRunning
	}
	o.state = StateRunning
	o.session = uuid.NewString()
	o.host, o.target = nil, nil
	o.pending, o.completed = nil, nil
	o.mu.Unlock()
	o.finished.Store(false)

	session := o.Session()
	started := time.Now()
	o.log.Info("upgrade started", "session", session)

	defer func() {
		o.mu.Lock()
		if err != nil {
			o.state = StateNotStarted
		} else {
			o.state = StateFinished
		}
		o.mu.Unlock()
		if recErr := o.recorder.EndSession(context.Background(), session, time.Now(), err); recErr != nil {
			o.log.Error("ledger write failed", "error", recErr)
		}
		if err != nil {
			o.log.Error("upgrade failed", "session", session, "elapsed", time.Since(started).String(), "error", err)
		} else {
			o.log.Info("upgrade finished", "session", session, "elapsed", time.Since(started).String())
		}
		o.notify(Notification{Kind: KindFinished, Err: err})
	}()

	fw, err := o.DetectFirmwareType(ctx)
	if err != nil {
		o.recordBegin(session, "unknown", started)
		return err
	}
	o.recordBegin(session, fw.String(), started)

	var steps []sequence.Step
	switch fw {
	case FirmwareClassic:
		steps = []sequence.Step{
			{Name: "jump to classic", Run: o.link.JumpToClassic},
			{Name: "discover host", Run: o.discoverHost},
			{Name: "flash bootstrap to host", Run: o.flashHostBootstrap},
			{Name: "detect reset", Run: o.detectResetOrSkip},
			{Name: "upgrade blocks", Run: o.upgradeBlocks},
			{Name: "jump to discovery", Run: o.jumpToDiscovery},
			{Name: "jump to classic", Run: o.link.JumpToClassic},
			{Name: "flash application to host", Run: o.flashHostApplication},
		}
	case FirmwareBootstrap:
		steps = []sequence.Step{
			{Name: "upgrade blocks", Run: o.upgradeBlocks},
			{Name: "jump to discovery", Run: o.jumpToDiscovery},
			{Name: "jump to classic", Run: o.link.JumpToClassic},
			{Name: "discover host", Run: o.discoverHost},
			{Name: "flash application to host", Run: o.flashHostApplication},
		}
	default:
		return &UnsupportedFirmwareError{Firmware: fw}
	}

	if err := sequence.Run(ctx, steps...); err != nil {
		var se *sequence.StepError
		if errors.As(err, &se) {
			return fmt.Errorf("%s: %w", se.Step, se.Err)
		}
		return err
	}
	return nil
}

// Finish asks the mesh loop to stop once its current iteration completes.
func (o *Orchestrator) Finish() error {
	if o.State() != StateRunning {
		return ErrNotRunning
	}
	o.finished.Store(true)
	o.log.Info("finish requested", "session", o.Session())
	return nil
}

// State returns the lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Session returns the ID of the current or last upgrade run.
func (o *Orchestrator) Session() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session
}

// Host returns the host block once discovered.
func (o *Orchestrator) Host() (device.Device, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.host == nil {
		return device.Device{}, false
	}
	return *o.host, true
}

// Target returns the block being upgraded, if any.
func (o *Orchestrator) Target() (device.Device, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.target == nil {
		return device.Device{}, false
	}
	return *o.target, true
}

// Pending returns the blocks discovered but not yet upgraded, most recently
// discovered first.
func (o *Orchestrator) Pending() []device.Device {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]device.Device(nil), o.pending...)
}

// Completed returns the upgraded blocks, most recent first.
func (o *Orchestrator) Completed() []device.Device {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]device.Device(nil), o.completed...)
}

func (o *Orchestrator) notify(n Notification) {
	n.Session = o.Session()
	o.bus.publish(n)
}

func (o *Orchestrator) recordBegin(session, firmware string, at time.Time) {
	if err := o.recorder.BeginSession(context.Background(), session, firmware, at); err != nil {
		o.log.Error("ledger write failed", "error", err)
	}
}

func (o *Orchestrator) jumpToDiscovery(ctx context.Context) error {
	_, err := o.link.JumpToDiscovery(ctx,
		client.WithDiscoveryDelay(o.timings.DiscoveryDelay),
		client.WithDiscoveryTimeout(o.timings.DiscoveryTimeout),
	)
	return err
}

// flashDevice flashes the catalog image for dev and role and records the
// attempt.
func (o *Orchestrator) flashDevice(ctx context.Context, dev device.Device, role catalog.Role) error {
	prog, err := o.catalog.Program(dev.Type, role)
	if err != nil {
		return err
	}

	d := dev
	o.notify(Notification{Kind: KindFlashStarted, Device: &d, Role: role})
	o.log.Info("flashing", "device", dev.ID, "type", dev.Type.String(), "role", string(role), "hop", dev.HopCount)

	opts := append([]flash.Option{flash.WithSafeCheck(false), flash.WithLogger(o.log)}, o.flashOpts...)
	opts = append(opts, flash.WithProgressCallback(func(p flash.Progress) {
		o.notify(Notification{Kind: KindFlashProgress, Device: &d, Role: role, Progress: &p})
	}))

	start := time.Now()
	err = flash.New(o.link, opts...).Flash(ctx, prog, dev)

	rec := ledger.Flash{
		SessionID: o.Session(),
		DeviceID:  dev.ID,
		BlockType: dev.Type.String(),
		Role:      string(role),
		HopCount:  dev.HopCount,
		StartedAt: start,
		Duration:  time.Since(start),
		Outcome:   ledger.OutcomeOK,
	}
	if err != nil {
		rec.Outcome, rec.Error = ledger.OutcomeFailed, err.Error()
	}
	if recErr := o.recorder.RecordFlash(context.Background(), rec); recErr != nil {
		o.log.Error("ledger write failed", "error", recErr)
	}
	o.notify(Notification{Kind: KindFlashDone, Device: &d, Role: role, Err: err})
	return err
}
