package upgrade

import (
	"sync"
	"time"

	"github.com/bryangrimes/node-cubelets/catalog"
	"github.com/bryangrimes/node-cubelets/device"
	"github.com/bryangrimes/node-cubelets/flash"
)

// Kind classifies a notification.
type Kind string

const (
	KindDetected       Kind = "detected"
	KindHostFound      Kind = "host_found"
	KindFlashStarted   Kind = "flash_started"
	KindFlashProgress  Kind = "flash_progress"
	KindFlashDone      Kind = "flash_done"
	KindScanStarted    Kind = "scan_started"
	KindFacesScanned   Kind = "faces_scanned"
	KindPendingChanged Kind = "pending_changed"
	KindTargetChanged  Kind = "target_changed"
	KindNoTarget       Kind = "no_target"
	KindBlockCompleted Kind = "block_completed"
	KindNeedDisconnect Kind = "need_disconnect"
	KindNeedConnect    Kind = "need_connect"
	KindError          Kind = "error"
	KindFinished       Kind = "finished"
)

// Face is one discovered face and the firmware generation reported on it.
// Firmware is protocol.FirmwareClassic or protocol.FirmwareImago.
type Face struct {
	Index    int  `json:"index"`
	Firmware byte `json:"firmware"`
}

// Notification is an observable step of an upgrade. Only the fields that
// belong to Kind are set.
type Notification struct {
	Kind      Kind            `json:"kind"`
	Session   string          `json:"session"`
	Timestamp time.Time       `json:"timestamp"`
	Firmware  string          `json:"firmware,omitempty"`
	Device    *device.Device  `json:"device,omitempty"`
	Role      catalog.Role    `json:"role,omitempty"`
	Progress  *flash.Progress `json:"progress,omitempty"`
	Faces     []Face          `json:"faces,omitempty"`
	Pending   []device.Device `json:"pending,omitempty"`
	Err       error           `json:"-"`
	Error     string          `json:"error,omitempty"`
}

type subscriber struct {
	ch chan Notification
}

// bus fans notifications out to subscribers. Slow subscribers miss
// notifications rather than stall the upgrade.
type bus struct {
	mu   sync.RWMutex
	subs map[*subscriber]struct{}
}

func newBus() *bus {
	return &bus{subs: make(map[*subscriber]struct{})}
}

func (b *bus) subscribe() (<-chan Notification, func()) {
	s := &subscriber{ch: make(chan Notification, 64)}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, s)
			b.mu.Unlock()
			close(s.ch)
		})
	}
	return s.ch, unsub
}

func (b *bus) publish(n Notification) {
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now().UTC()
	}
	if n.Err != nil && n.Error == "" {
		n.Error = n.Err.Error()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.subs {
		select {
		case s.ch <- n:
		default:
		}
	}
}

func (b *bus) len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
