package client

import (
	"fmt"

	"github.com/bryangrimes/node-cubelets/protocol"
	"github.com/bryangrimes/node-cubelets/transport"
)

// EventKind classifies inbound traffic.
type EventKind int

const (
	// EventMessage carries a decoded frame
	EventMessage EventKind = iota

	// EventRaw carries one byte received in raw mode
	EventRaw

	// EventDecodeError carries a dropped frame's *protocol.DecodeError
	EventDecodeError

	// EventConnect reports the transport (re)connecting
	EventConnect

	// EventDisconnect reports the transport going away
	EventDisconnect
)

func (k EventKind) String() string {
	switch k {
	case EventMessage:
		return "message"
	case EventRaw:
		return "raw"
	case EventDecodeError:
		return "decode-error"
	case EventConnect:
		return "connect"
	case EventDisconnect:
		return "disconnect"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is one item of the inbound stream.
type Event struct {
	Kind    EventKind
	Message protocol.Message
	Raw     byte
	Err     error
	State   transport.State
}

// Matcher selects the events a wait is interested in.
type Matcher func(Event) bool

// Any matches every event.
func Any(Event) bool { return true }

// RawByte matches the raw status byte b.
func RawByte(b byte) Matcher {
	return func(e Event) bool { return e.Kind == EventRaw && e.Raw == b }
}

// Connected matches a transport connect.
func Connected(e Event) bool { return e.Kind == EventConnect }

// Disconnected matches a transport disconnect.
func Disconnected(e Event) bool { return e.Kind == EventDisconnect }

// MessageOf matches decoded messages of type T that satisfy match. A nil
// match accepts every T.
//
// Example:
//
//	m := client.MessageOf(func(e *protocol.BlockFoundEvent) bool { return e.Face == 2 })
func MessageOf[T protocol.Message](match func(T) bool) Matcher {
	return func(e Event) bool {
		if e.Kind != EventMessage {
			return false
		}
		m, ok := e.Message.(T)
		if !ok {
			return false
		}
		return match == nil || match(m)
	}
}

// Or matches events accepted by any of ms.
func Or(ms ...Matcher) Matcher {
	return func(e Event) bool {
		for _, m := range ms {
			if m(e) {
				return true
			}
		}
		return false
	}
}
