package mockdevice

import (
	"github.com/bryangrimes/node-cubelets/device"
	"github.com/bryangrimes/node-cubelets/protocol"
)

// Versions reported by simulated imago blocks.
var (
	HardwareVersion    = device.Version{Major: 2, Minor: 0, Patch: 0}
	BootloaderVersion  = device.Version{Major: 4, Minor: 1, Patch: 0}
	ApplicationVersion = device.Version{Major: 4, Minor: 1, Patch: 0}
)

func (d *Device) message(m protocol.Message) [][]byte {
	switch m := m.(type) {
	case *protocol.ClassicKeepAliveRequest, *protocol.BootstrapKeepAliveRequest:
		return [][]byte{d.keepAlive()}
	case *protocol.ClassicNeighborsRequest:
		return [][]byte{frame(&protocol.ClassicNeighborsResponse{
			Origin:    d.host.ID,
			Neighbors: d.neighborMap(Classic),
		})}
	case *protocol.GetBlockValueRequest:
		if _, ok := d.neighborIndex(m.ID); !ok {
			return nil
		}
		return [][]byte{frame(&protocol.GetBlockValueResponse{ID: m.ID})}
	case *protocol.ClassicResetCommand, *protocol.ImagoResetCommand:
		if d.host.Generation == Bootstrap {
			d.mode = protocol.ModeBootstrap
		}
		return nil
	case *protocol.SetBootstrapModeRequest:
		switch m.Firmware {
		case protocol.FirmwareClassic:
			d.mode = protocol.ModeClassic
		case protocol.FirmwareImago:
			d.mode = protocol.ModeImago
		default:
			return nil
		}
		return [][]byte{frame(&protocol.SetBootstrapModeResponse{Firmware: m.Firmware})}
	case *protocol.ImagoNeighborsRequest:
		n := d.neighborMap(ImagoBootloader)
		for face, id := range d.neighborMap(Imago) {
			n[face] = id
		}
		return [][]byte{frame(&protocol.ImagoNeighborsResponse{Neighbors: n})}
	case *protocol.GetConfigurationRequest:
		i, ok := d.neighborIndex(m.ID)
		if !ok {
			return nil
		}
		b := d.neighbors[i]
		var mode byte
		if b.Generation == Imago {
			mode = 1
		}
		return [][]byte{frame(&protocol.GetConfigurationResponse{
			ID:                 b.ID,
			HardwareVersion:    HardwareVersion,
			BootloaderVersion:  BootloaderVersion,
			ApplicationVersion: ApplicationVersion,
			BlockType:          byte(b.Type),
			MCU:                byte(b.MCU),
			ApplicationMode:    mode,
		})}
	case *protocol.EchoRequest:
		return [][]byte{frame(&protocol.EchoResponse{Payload: m.Payload})}
	}
	return nil
}

// keepAlive answers in the request's framing; bootstrap firmware adds a
// payload byte whichever protocol it currently speaks.
func (d *Device) keepAlive() []byte {
	var payload []byte
	if d.host.Generation == Bootstrap {
		payload = []byte{1}
	}
	if d.mode == protocol.ModeBootstrap {
		return frame(&protocol.BootstrapKeepAliveResponse{Payload: payload})
	}
	return frame(&protocol.ClassicKeepAliveResponse{Payload: payload})
}

func (d *Device) neighborMap(g Generation) protocol.NeighborMap {
	n := make(protocol.NeighborMap)
	for _, b := range d.neighbors {
		if b.Generation == g {
			n[b.Face] = b.ID
		}
	}
	return n
}
