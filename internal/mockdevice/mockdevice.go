// Package mockdevice simulates a host block and its neighbors behind an
// in-memory transport. It answers the three framed protocols and both flash
// handshakes, and changes firmware generation when a flash completes, so
// whole upgrade runs can be exercised without hardware.
package mockdevice

import (
	"bytes"
	"sync"
	"time"

	"github.com/bryangrimes/node-cubelets/device"
	"github.com/bryangrimes/node-cubelets/protocol"
	"github.com/bryangrimes/node-cubelets/transport"
)

// Generation is the firmware a simulated block runs.
type Generation int

const (
	// Classic application firmware
	Classic Generation = iota

	// Bootstrap (discovery) firmware, host only
	Bootstrap

	// ImagoBootloader waits for an imago application
	ImagoBootloader

	// Imago application firmware
	Imago
)

func (g Generation) String() string {
	switch g {
	case Classic:
		return "classic"
	case Bootstrap:
		return "bootstrap"
	case ImagoBootloader:
		return "imago-bootloader"
	case Imago:
		return "imago"
	default:
		return "unknown"
	}
}

// Block is one simulated unit.
type Block struct {
	ID         uint32
	Face       int
	Type       device.BlockType
	MCU        device.MCUType
	Generation Generation
}

// Config describes the simulated mesh.
type Config struct {
	// Host is the block attached to the transport; Face is ignored
	Host Block

	// Neighbors are attached to the host's faces
	Neighbors []Block

	// PageSize is the target page size (default 128)
	PageSize int

	// AnnounceInterval is the period of BlockFoundEvents in discovery mode
	AnnounceInterval time.Duration

	// SkipDisconnect makes the host send a SkipDisconnectEvent after a
	// bootstrap flash instead of dropping and restoring the link
	SkipDisconnect bool

	// ResetDelay is the pause before the skip event or the simulated drop,
	// and again before the link is restored
	ResetDelay time.Duration

	// Silent lists status bytes the device never sends
	Silent []byte
}

func (c *Config) defaults() {
	if c.PageSize <= 0 {
		c.PageSize = 128
	}
	if c.AnnounceInterval <= 0 {
		c.AnnounceInterval = 20 * time.Millisecond
	}
	if c.ResetDelay <= 0 {
		c.ResetDelay = 50 * time.Millisecond
	}
}

type phase int

const (
	phaseIdle phase = iota
	phaseUpload
	phasePages
)

// Device is the simulated mesh.
type Device struct {
	mem *transport.Memory
	cfg Config

	mu        sync.Mutex
	mode      protocol.Mode
	host      Block
	neighbors []Block
	phase     phase
	announced protocol.Checksum
	received  []byte
	target    uint32
	pages     int
	flashed   []uint32
	resets    int
	automap   int
	timers    []*time.Timer

	stop chan struct{}
	wg   sync.WaitGroup
}

// New starts a simulated mesh. The returned device's transport is what the
// client connects to. Call Close to stop its background announcer.
func New(cfg Config) *Device {
	cfg.defaults()
	d := &Device{
		mem:       transport.NewMemory(),
		cfg:       cfg,
		host:      cfg.Host,
		neighbors: append([]Block(nil), cfg.Neighbors...),
		mode:      modeFor(cfg.Host.Generation),
		stop:      make(chan struct{}),
	}
	d.host.Face = device.FaceUnknown
	d.mem.OnWrite(d.handle)
	d.wg.Add(1)
	go d.announce()
	return d
}

func modeFor(g Generation) protocol.Mode {
	switch g {
	case Bootstrap:
		return protocol.ModeBootstrap
	case ImagoBootloader, Imago:
		return protocol.ModeImago
	default:
		return protocol.ModeClassic
	}
}

// Transport returns the client side of the link.
func (d *Device) Transport() *transport.Memory { return d.mem }

// Close stops background activity.
func (d *Device) Close() {
	d.mu.Lock()
	select {
	case <-d.stop:
	default:
		close(d.stop)
	}
	for _, t := range d.timers {
		t.Stop()
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// Mode returns the protocol the host currently speaks.
func (d *Device) Mode() protocol.Mode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode
}

// Host returns the host block.
func (d *Device) Host() Block {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.host
}

// Neighbor returns the neighbor with the given ID.
func (d *Device) Neighbor(id uint32) (Block, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, b := range d.neighbors {
		if b.ID == id {
			return b, true
		}
	}
	return Block{}, false
}

// Flashed returns the IDs of every completed flash in order.
func (d *Device) Flashed() []uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]uint32(nil), d.flashed...)
}

// Resets returns how many raw reset sequences were confirmed.
func (d *Device) Resets() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.resets
}

// AutomapDisables returns how many times automap was switched off.
func (d *Device) AutomapDisables() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.automap
}

func (d *Device) announce() {
	defer d.wg.Done()
	t := time.NewTicker(d.cfg.AnnounceInterval)
	defer t.Stop()
	for {
		select {
		case <-d.stop:
			return
		case <-t.C:
		}
		d.mu.Lock()
		var frames [][]byte
		if d.mode == protocol.ModeBootstrap {
			for _, b := range d.neighbors {
				frames = append(frames, frame(&protocol.BlockFoundEvent{Face: b.Face, Firmware: firmwareOf(b.Generation)}))
			}
		}
		d.mu.Unlock()
		for _, f := range frames {
			d.mem.Inject(f)
		}
	}
}

func firmwareOf(g Generation) byte {
	if g == ImagoBootloader || g == Imago {
		return protocol.FirmwareImago
	}
	return protocol.FirmwareClassic
}

// after runs fn once d elapses unless the device is closed first.
func (d *Device) after(delay time.Duration, fn func()) {
	t := time.AfterFunc(delay, func() {
		select {
		case <-d.stop:
		default:
			fn()
		}
	})
	d.timers = append(d.timers, t)
}

func frame(m protocol.Message) []byte {
	f, err := protocol.Encode(m)
	if err != nil {
		panic(err)
	}
	return f
}

func (d *Device) status(b byte) []byte {
	if bytes.IndexByte(d.cfg.Silent, b) >= 0 {
		return nil
	}
	return []byte{b}
}
