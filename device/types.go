package device

import (
	"fmt"
	"strings"
)

// BlockType is the semantic type of a device.
type BlockType int

// Known block types. The numeric values are the type IDs reported by the
// info-lookup service and by the IMAGO configuration response.
const (
	Unknown BlockType = iota
	Battery
	Bluetooth
	Drive
	Rotate
	Distance
	Inverse
	Bargraph
	Blocker
	Brightness
	Flashlight
	Knob
	Maximum
	Minimum
	Passive
	Speaker
	Temperature
	Threshold
)

var blockTypeNames = map[BlockType]string{
	Unknown:     "unknown",
	Battery:     "battery",
	Bluetooth:   "bluetooth",
	Drive:       "drive",
	Rotate:      "rotate",
	Distance:    "distance",
	Inverse:     "inverse",
	Bargraph:    "bargraph",
	Blocker:     "blocker",
	Brightness:  "brightness",
	Flashlight:  "flashlight",
	Knob:        "knob",
	Maximum:     "maximum",
	Minimum:     "minimum",
	Passive:     "passive",
	Speaker:     "speaker",
	Temperature: "temperature",
	Threshold:   "threshold",
}

// Name is the lowercase name used for firmware lookups.
func (t BlockType) Name() string {
	if name, ok := blockTypeNames[t]; ok {
		return name
	}
	return blockTypeNames[Unknown]
}

func (t BlockType) String() string {
	return t.Name()
}

// TypeForID maps a numeric type ID to a BlockType; unrecognised IDs map to Unknown.
func TypeForID(id int) BlockType {
	t := BlockType(id)
	if _, ok := blockTypeNames[t]; !ok {
		return Unknown
	}
	return t
}

// TypeForName maps a block type name (case-insensitive) to a BlockType.
func TypeForName(name string) (BlockType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for t, n := range blockTypeNames {
		if n == name {
			return t, nil
		}
	}
	return Unknown, fmt.Errorf("unknown block type %q", name)
}

// MCUType is the microcontroller family of a device.
type MCUType int

const (
	MCUUnknown MCUType = iota
	MCUAVR
	MCUPIC
)

func (m MCUType) String() string {
	switch m {
	case MCUAVR:
		return "avr"
	case MCUPIC:
		return "pic"
	default:
		return "unknown"
	}
}

// MCUForID maps a numeric MCU ID to an MCUType.
func MCUForID(id int) MCUType {
	switch MCUType(id) {
	case MCUAVR, MCUPIC:
		return MCUType(id)
	default:
		return MCUUnknown
	}
}

// MCUForName maps "avr" or "pic" (case-insensitive) to an MCUType.
func MCUForName(name string) (MCUType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "avr":
		return MCUAVR, nil
	case "pic":
		return MCUPIC, nil
	default:
		return MCUUnknown, fmt.Errorf("unknown mcu type %q", name)
	}
}
