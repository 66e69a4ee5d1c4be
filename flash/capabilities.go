package flash

import "github.com/bryangrimes/node-cubelets/device"

// MinResetVersion is the first application version that answers the raw
// reset sequence.
var MinResetVersion = device.Version{Major: 3, Minor: 1, Patch: 0}

// SupportsReset reports whether dev can be reset around a session.
func SupportsReset(dev device.Device) bool {
	return dev.ApplicationVersion.AtLeast(MinResetVersion)
}

// DisablesAutomap reports whether automatic neighbor-map updates must be
// switched off while dev is flashed.
func DisablesAutomap(dev device.Device) bool {
	return dev.Type != device.Bluetooth
}
