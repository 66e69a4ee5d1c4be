package flash

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bryangrimes/node-cubelets/client"
	"github.com/bryangrimes/node-cubelets/device"
	"github.com/bryangrimes/node-cubelets/internal/mockdevice"
	"github.com/bryangrimes/node-cubelets/program"
	"github.com/bryangrimes/node-cubelets/protocol"
	"github.com/bryangrimes/node-cubelets/transport"
)

const (
	hostID   = 0x0A0B0C
	targetID = 0x112233
)

func testImage(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i*7 + 3)
	}
	return data
}

func newMesh(t *testing.T, cfg mockdevice.Config) (*mockdevice.Device, *client.Client) {
	t.Helper()
	if cfg.Host.ID == 0 {
		cfg.Host = mockdevice.Block{ID: hostID, Type: device.Bluetooth, MCU: device.MCUAVR}
	}
	cfg.SkipDisconnect = true
	cfg.ResetDelay = time.Hour
	mesh := mockdevice.New(cfg)
	c := client.New(mesh.Transport())
	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		c.Close()
		mesh.Close()
	})
	return mesh, c
}

func hostDevice(mcu device.MCUType, app device.Version) device.Device {
	d := device.New(hostID, 0, device.Bluetooth)
	d.MCU = mcu
	d.ApplicationVersion = app
	return d
}

func containsWrite(written [][]byte, want []byte) bool {
	for _, w := range written {
		if bytes.Equal(w, want) {
			return true
		}
	}
	return false
}

func TestFlashHostWithReset(t *testing.T) {
	mesh, c := newMesh(t, mockdevice.Config{})
	var events []Progress
	f := New(c, WithFastTimings(), WithTimeout(time.Second), WithProgressCallback(func(p Progress) {
		events = append(events, p)
	}))

	prog := program.New(testImage(450))
	if err := f.Flash(context.Background(), prog, hostDevice(device.MCUPIC, device.Version{Major: 3, Minor: 1, Patch: 0})); err != nil {
		t.Fatalf("Flash: %v", err)
	}

	if got := mesh.Resets(); got != 2 {
		t.Errorf("resets = %d, want 2", got)
	}
	if got := mesh.AutomapDisables(); got != 0 {
		t.Errorf("automap disables = %d, want 0 for a bluetooth host", got)
	}
	if got := mesh.Flashed(); len(got) != 1 || got[0] != hostID {
		t.Errorf("flashed = %v, want [%#x]", got, hostID)
	}
	written := mesh.Transport().Written()
	if !bytes.Equal(written[0], resetSequence) {
		t.Errorf("first write = % X, want reset sequence", written[0])
	}
	if !containsWrite(written, []byte{'L', 0x0A, 0x0B, 0x0C}) {
		t.Error("PIC commit not sent")
	}

	var uploads, full int
	for _, e := range events {
		if e.Phase != PhaseUpload {
			continue
		}
		uploads++
		if e.Fraction() >= 0.99 {
			full++
		}
	}
	if uploads != 3 {
		t.Errorf("upload events = %d, want 3", uploads)
	}
	if full != 1 {
		t.Errorf("complete upload events = %d, want exactly 1", full)
	}
	last := events[len(events)-1]
	if last.Phase != PhaseComplete || last.Percentage != 100 {
		t.Errorf("last event = %+v", last)
	}
	for i := 1; i < len(events); i++ {
		if events[i].Percentage < events[i-1].Percentage {
			t.Errorf("percentage went backwards at %d: %v -> %v", i, events[i-1].Percentage, events[i].Percentage)
		}
	}
}

func TestFlashHostAVR(t *testing.T) {
	mesh, c := newMesh(t, mockdevice.Config{})
	f := New(c, WithFastTimings(), WithTimeout(time.Second))

	prog := program.New(testImage(300))
	if err := f.Flash(context.Background(), prog, hostDevice(device.MCUAVR, device.Version{})); err != nil {
		t.Fatalf("Flash: %v", err)
	}

	written := mesh.Transport().Written()
	if !containsWrite(written, []byte{'W', 0x0A, 0x0B, 0x0C}) {
		t.Error("AVR write command not sent")
	}
	want := []byte{'M', 0x0A, 0x0B, 0x0C, byte(prog.PageCount()), byte(prog.LastPageSize())}
	if !containsWrite(written, want) {
		t.Errorf("AVR commit % X not sent", want)
	}
	if mesh.Resets() != 0 {
		t.Errorf("reset sent to a device without reset support")
	}
	sum := prog.Checksum()
	if !containsWrite(written, []byte{'8', sum.XOR, sum.Sum}) {
		t.Error("checksum not sent")
	}
}

func TestFlashReadyTimeout(t *testing.T) {
	_, c := newMesh(t, mockdevice.Config{Silent: []byte{'4'}})
	f := New(c, WithFastTimings(), WithTimeout(50*time.Millisecond))

	start := time.Now()
	err := f.Flash(context.Background(), program.New(testImage(64)), hostDevice(device.MCUPIC, device.Version{}))
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Flash took %v", elapsed)
	}

	var te *client.TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("error = %v, want TimeoutError", err)
	}
	if te.Status != '4' {
		t.Errorf("status = %q, want '4'", te.Status)
	}
	var fe *FlashError
	if !errors.As(err, &fe) {
		t.Fatalf("error = %T, want *FlashError", err)
	}
	if fe.Stage != StageReady {
		t.Errorf("stage = %q, want %q", fe.Stage, StageReady)
	}
	if !strings.Contains(fe.Hint, "not ready") {
		t.Errorf("hint = %q", fe.Hint)
	}
}

func TestFlashTarget(t *testing.T) {
	mesh, c := newMesh(t, mockdevice.Config{
		Neighbors: []mockdevice.Block{{ID: targetID, Face: 2, Type: device.Drive, MCU: device.MCUPIC}},
	})
	var pages []Progress
	f := New(c, WithFastTimings(), WithTimeout(time.Second), WithProgressCallback(func(p Progress) {
		if p.Phase == PhasePages {
			pages = append(pages, p)
		}
	}))

	dev := device.New(targetID, 1, device.Drive)
	dev.MCU = device.MCUPIC
	dev.Face = 2
	prog := program.New(testImage(300))
	if err := f.Flash(context.Background(), prog, dev); err != nil {
		t.Fatalf("Flash: %v", err)
	}

	if len(pages) != prog.PageCount()+1 {
		t.Fatalf("page events = %d, want %d", len(pages), prog.PageCount()+1)
	}
	if pages[0].Done != 0 || pages[len(pages)-1].Done != prog.PageCount() {
		t.Errorf("page progress = %+v .. %+v", pages[0], pages[len(pages)-1])
	}
	if got := mesh.AutomapDisables(); got != 2 {
		t.Errorf("automap disables = %d, want 2", got)
	}
	b, _ := mesh.Neighbor(targetID)
	if b.Generation != mockdevice.ImagoBootloader {
		t.Errorf("target generation = %v, want imago bootloader", b.Generation)
	}
	written := mesh.Transport().Written()
	if !containsWrite(written, []byte{'T', 0x11, 0x22, 0x33}) || !containsWrite(written, endOfTransfer) {
		t.Error("target ready or end of transfer not sent")
	}
}

func TestFlashTargetSilentPage(t *testing.T) {
	_, c := newMesh(t, mockdevice.Config{
		Neighbors: []mockdevice.Block{{ID: targetID, Face: 0, Type: device.Drive, MCU: device.MCUAVR}},
		Silent:    []byte{'G'},
	})
	f := New(c, WithFastTimings(), WithTimeout(50*time.Millisecond))

	dev := device.New(targetID, 1, device.Drive)
	dev.MCU = device.MCUAVR
	err := f.Flash(context.Background(), program.New(testImage(10)), dev)
	var fe *FlashError
	if !errors.As(err, &fe) || fe.Stage != StagePages || fe.Status != 'G' {
		t.Fatalf("error = %v, want page FlashError", err)
	}
	if fe.Hint != "Reason unknown." {
		t.Errorf("hint = %q", fe.Hint)
	}
}

func TestFlashPreconditions(t *testing.T) {
	host := hostDevice(device.MCUPIC, device.Version{})
	unknownMCU := host
	unknownMCU.MCU = device.MCUUnknown
	noHop := host
	noHop.HopCount = device.HopUnknown

	tests := []struct {
		name  string
		prog  *program.Program
		dev   device.Device
		check func(error) bool
	}{
		{
			name: "empty program",
			prog: program.New(nil),
			dev:  host,
			check: func(err error) bool {
				var e *InvalidProgramError
				return errors.As(err, &e)
			},
		},
		{
			name: "nil program",
			dev:  host,
			check: func(err error) bool {
				var e *InvalidProgramError
				return errors.As(err, &e)
			},
		},
		{
			name: "too many pages",
			prog: program.New(make([]byte, 256*program.DefaultPageSize)),
			dev:  host,
			check: func(err error) bool {
				var e *InvalidProgramError
				return errors.As(err, &e)
			},
		},
		{
			name:  "unknown hop count",
			prog:  program.New(testImage(10)),
			dev:   noHop,
			check: func(err error) bool { return errors.Is(err, ErrUnknownHopCount) },
		},
		{
			name: "unsupported mcu",
			prog: program.New(testImage(10)),
			dev:  unknownMCU,
			check: func(err error) bool {
				var e *UnsupportedMCUError
				return errors.As(err, &e) && e.MCU == device.MCUUnknown
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mesh, c := newMesh(t, mockdevice.Config{})
			err := New(c).Flash(context.Background(), tt.prog, tt.dev)
			if !tt.check(err) {
				t.Errorf("error = %v", err)
			}
			if n := len(mesh.Transport().Written()); n != 0 {
				t.Errorf("%d writes before the precondition failed", n)
			}
		})
	}
}

// TestFlashCeiling uses a host that keeps reporting progress but never
// completes.
func TestFlashCeiling(t *testing.T) {
	mem := transport.NewMemory()
	progress := func() []byte {
		f, _ := protocol.Encode(&protocol.FlashProgressEvent{Progress: 1})
		return f
	}
	uploading := false
	mem.OnWrite(func(p []byte) {
		switch {
		case uploading:
			uploading = false
			mem.Inject([]byte{'Y'})
		case len(p) == 1 && p[0] == '3':
			mem.Inject([]byte{'4'})
		case len(p) == 3 && p[0] == '8':
			uploading = true
			mem.Inject([]byte{'R'})
		case len(p) == 4 && p[0] == 'L':
			go func() {
				for i := 0; i < 20; i++ {
					time.Sleep(10 * time.Millisecond)
					mem.Inject(progress())
				}
			}()
		}
	})
	c := client.New(mem)
	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	f := New(c, WithFastTimings(), WithTimeout(time.Second),
		WithFlashTimeout(100*time.Millisecond), WithFlashCeiling(60*time.Millisecond))
	err := f.Flash(context.Background(), program.New(testImage(32)), hostDevice(device.MCUPIC, device.Version{}))

	var fe *FlashError
	if !errors.As(err, &fe) || fe.Stage != StageFlash {
		t.Fatalf("error = %v, want flash stage error", err)
	}
	var te *client.TimeoutError
	if !errors.As(err, &te) || te.Timeout != 60*time.Millisecond {
		t.Errorf("error = %v, want ceiling timeout", err)
	}
}

func TestFlashHoldsLink(t *testing.T) {
	_, c := newMesh(t, mockdevice.Config{})
	busy := false
	f := New(c, WithFastTimings(), WithProgressCallback(func(Progress) {
		busy = busy || c.Busy()
	}))
	if err := f.Flash(context.Background(), program.New(testImage(32)), hostDevice(device.MCUPIC, device.Version{})); err != nil {
		t.Fatalf("Flash: %v", err)
	}
	if !busy {
		t.Error("link not held during the session")
	}
	if c.Busy() {
		t.Error("link still held after the session")
	}
}

func TestHintForStatus(t *testing.T) {
	tests := []struct {
		status byte
		want   string
	}{
		{'?', "hard reset"},
		{'4', "not ready"},
		{'Y', "upload"},
		{'Z', "after flashing"},
		{'G', "Reason unknown."},
	}
	for _, tt := range tests {
		if got := HintForStatus(tt.status); !strings.Contains(got, tt.want) {
			t.Errorf("HintForStatus(%q) = %q, want it to mention %q", tt.status, got, tt.want)
		}
	}
}

func TestCapabilities(t *testing.T) {
	d := device.New(1, 1, device.Drive)
	if SupportsReset(d) {
		t.Error("unfetched version supports reset")
	}
	d.ApplicationVersion = device.Version{Major: 3, Minor: 1, Patch: 0}
	if !SupportsReset(d) {
		t.Error("3.1.0 does not support reset")
	}
	if !DisablesAutomap(d) {
		t.Error("drive block keeps automap")
	}
	if DisablesAutomap(device.New(1, 0, device.Bluetooth)) {
		t.Error("bluetooth block disables automap")
	}
}
