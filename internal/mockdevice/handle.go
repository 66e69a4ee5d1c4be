package mockdevice

import (
	"bytes"

	"github.com/bryangrimes/node-cubelets/protocol"
)

var resetSequence = []byte{0x15, 0x3A, 0x95, 0x68, 0xC1, 0x9A, 0x84}

// linesPerProgress is how many written lines one FlashProgressEvent stands for.
const linesPerProgress = 20

// handle runs on the client's write path and queues every reply before
// returning.
func (d *Device) handle(p []byte) {
	d.mu.Lock()
	replies := d.dispatch(p)
	d.mu.Unlock()
	for _, r := range replies {
		if len(r) > 0 {
			d.mem.Inject(r)
		}
	}
}

func (d *Device) dispatch(p []byte) [][]byte {
	switch d.phase {
	case phaseUpload:
		return d.uploadData(p)
	case phasePages:
		return d.pageData(p)
	}
	if len(p) >= protocol.FrameOverhead && p[0] == protocol.StartOfFrame {
		m, err := protocol.DecodeFrame(protocol.DeviceSet(d.mode), p)
		if err != nil {
			return nil
		}
		return d.message(m)
	}
	return d.raw(p)
}

func (d *Device) raw(p []byte) [][]byte {
	switch {
	case bytes.Equal(p, resetSequence):
		return [][]byte{d.status('?')}
	case len(p) == 1 && p[0] == 0x59:
		d.resets++
		return nil
	case len(p) == 1 && p[0] == '5':
		d.automap++
		return nil
	case len(p) == 1 && p[0] == '3':
		return [][]byte{d.status('4')}
	case len(p) == 3 && p[0] == '8':
		d.announced = protocol.Checksum{XOR: p[1], Sum: p[2]}
		d.received = d.received[:0]
		d.phase = phaseUpload
		return [][]byte{d.status('R')}
	case len(p) == 4 && p[0] == 'W':
		return [][]byte{d.status('R')}
	case len(p) == 6 && p[0] == 'M', len(p) == 4 && p[0] == 'L':
		return d.commitHost()
	case len(p) == 1 && p[0] == '1':
		return [][]byte{d.status('Z')}
	case len(p) == 4 && p[0] == 'T':
		id := protocol.DecodeID(p[1:4])
		if _, ok := d.neighborIndex(id); !ok {
			return nil
		}
		d.target = id
		d.pages = 0
		d.phase = phasePages
		return [][]byte{d.status('!')}
	case len(p) == 1 && p[0] == '#':
		return d.commitTarget()
	}
	return nil
}

// uploadData accepts host image chunks until the bytes so far match the
// announced checksum.
func (d *Device) uploadData(p []byte) [][]byte {
	d.received = append(d.received, p...)
	if protocol.ComputeChecksum(d.received) != d.announced {
		return nil
	}
	d.phase = phaseIdle
	return [][]byte{d.status('Y')}
}

func (d *Device) pageData(p []byte) [][]byte {
	if len(p) == 2 && p[0] == 0xFE && p[1] == 0xFD {
		d.phase = phaseIdle
		return [][]byte{d.status('@')}
	}
	if len(p) != d.cfg.PageSize+3 || protocol.XOR(p[2:len(p)-1]) != p[len(p)-1] {
		return nil
	}
	d.pages++
	return [][]byte{d.status('G')}
}

// commitHost streams flash progress for the uploaded image and installs it.
// Classic hosts receive bootstrap firmware and bootstrap hosts receive the
// classic application.
func (d *Device) commitHost() [][]byte {
	lines := (len(d.received) + 15) / 16
	var out [][]byte
	for n := 1; n*linesPerProgress < lines; n++ {
		out = append(out, frame(&protocol.FlashProgressEvent{Progress: byte(n)}))
	}
	out = append(out, frame(&protocol.FlashCompleteEvent{}))
	d.flashed = append(d.flashed, d.host.ID)

	if d.host.Generation == Bootstrap {
		d.host.Generation = Classic
		d.mode = protocol.ModeClassic
		return out
	}
	d.host.Generation = Bootstrap
	d.mode = protocol.ModeBootstrap
	if d.cfg.SkipDisconnect {
		d.after(d.cfg.ResetDelay, func() {
			d.mem.Inject(frame(&protocol.SkipDisconnectEvent{}))
		})
	} else {
		d.after(d.cfg.ResetDelay, func() {
			d.mem.Drop()
			d.mu.Lock()
			d.after(d.cfg.ResetDelay, d.mem.Restore)
			d.mu.Unlock()
		})
	}
	return out
}

// commitTarget installs the paged image: a block flashed over CLASSIC gets
// the imago bootloader, one flashed over IMAGO gets the imago application.
func (d *Device) commitTarget() [][]byte {
	i, ok := d.neighborIndex(d.target)
	if !ok || d.pages == 0 {
		return nil
	}
	if d.mode == protocol.ModeImago {
		d.neighbors[i].Generation = Imago
	} else {
		d.neighbors[i].Generation = ImagoBootloader
	}
	d.flashed = append(d.flashed, d.target)
	d.target = 0
	return [][]byte{d.status('%')}
}

func (d *Device) neighborIndex(id uint32) (int, bool) {
	for i, b := range d.neighbors {
		if b.ID == id {
			return i, true
		}
	}
	return -1, false
}
