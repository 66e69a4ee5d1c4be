package protocol

import "fmt"

// Mode is the protocol family active on a connection. Exactly one is active
// at a time.
type Mode int

const (
	ModeClassic Mode = iota
	ModeBootstrap
	ModeImago
)

func (m Mode) String() string {
	switch m {
	case ModeClassic:
		return "classic"
	case ModeBootstrap:
		return "bootstrap"
	case ModeImago:
		return "imago"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Valid reports whether m is one of the three known modes.
func (m Mode) Valid() bool {
	return m >= ModeClassic && m <= ModeImago
}
