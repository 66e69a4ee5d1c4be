// Package device models the modular robot units ("blocks") found in a mesh.
package device

import (
	"fmt"
)

// MaxID is the largest device ID that fits in the 3-byte wire encoding.
const MaxID = 0xFFFFFF

// Hop and face values for devices whose position has not been fetched yet.
const (
	HopUnknown  = -1
	FaceUnknown = -1
)

// FaceCount is the number of physical ports on a device.
const FaceCount = 6

// Device is a single unit of the mesh.
//
// Devices are plain values: containers hold copies and replace them when a
// field is resolved, so no two components observe a partial update.
type Device struct {
	// ID is the numeric device identity (3 bytes on the wire)
	ID uint32

	// Type is the semantic block type, Unknown until resolved
	Type BlockType

	// MCU is the microcontroller family, MCUUnknown until resolved
	MCU MCUType

	// HopCount is the graph distance from the host (0 = host)
	HopCount int

	// Face is the port index (0-5) through which a non-host device is attached
	Face int

	HardwareVersion    Version
	BootloaderVersion  Version
	ApplicationVersion Version
}

// New returns a device with the given identity and position and unresolved
// type information.
func New(id uint32, hopCount int, t BlockType) Device {
	return Device{
		ID:       id,
		Type:     t,
		MCU:      MCUUnknown,
		HopCount: hopCount,
		Face:     FaceUnknown,
	}
}

// IsHost reports whether the device is the one attached to the transport.
func (d Device) IsHost() bool {
	return d.HopCount == 0
}

// HasHopCount reports whether the hop count has been fetched.
func (d Device) HasHopCount() bool {
	return d.HopCount >= 0
}

// Resolved reports whether both the block type and MCU family are known.
func (d Device) Resolved() bool {
	return d.Type != Unknown && d.MCU != MCUUnknown
}

func (d Device) String() string {
	return fmt.Sprintf("%s#%d (mcu=%s hop=%d face=%d)", d.Type, d.ID, d.MCU, d.HopCount, d.Face)
}
