package protocol

import (
	"fmt"
	"sort"
)

// Kind classifies a message by its exchange pattern.
type Kind int

const (
	// KindRequest expects exactly one matching response
	KindRequest Kind = iota

	// KindResponse answers an outstanding request
	KindResponse

	// KindCommand is fire-and-forget
	KindCommand

	// KindEvent is unsolicited and asynchronous
	KindEvent

	// KindUnparsed is a frame whose code is not in the active message set
	KindUnparsed
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindResponse:
		return "response"
	case KindCommand:
		return "command"
	case KindEvent:
		return "event"
	case KindUnparsed:
		return "unparsed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Message is any frame body of a mode's message set.
type Message interface {
	// Mode is the protocol family the message belongs to
	Mode() Mode

	// Code is the frame code byte
	Code() byte

	// Kind is the exchange pattern of the message
	Kind() Kind

	// MarshalBody encodes the message body (without the envelope)
	MarshalBody() ([]byte, error)

	// UnmarshalBody decodes the body, validating its length
	UnmarshalBody(body []byte) error
}

// Request is a message that expects a response.
type Request interface {
	Message

	// ResponseCode is the code of the matching response
	ResponseCode() byte
}

// Addressed is implemented by messages that carry a device ID. Responses to
// addressed requests are correlated by ID as well as by code.
type Addressed interface {
	DeviceID() uint32
}

// Prioritizer is implemented by commands that may coalesce in a command
// queue. Prioritize returns a positive value when next should replace the
// receiver in place.
type Prioritizer interface {
	Prioritize(next Message) int
}

// Unparsed is a frame whose code the active message set does not know.
// It is surfaced rather than dropped.
type Unparsed struct {
	Set     Mode
	RawCode byte
	Payload []byte
}

func (u *Unparsed) Mode() Mode { return u.Set }
func (u *Unparsed) Code() byte { return u.RawCode }
func (u *Unparsed) Kind() Kind { return KindUnparsed }

func (u *Unparsed) MarshalBody() ([]byte, error) {
	return append([]byte(nil), u.Payload...), nil
}

func (u *Unparsed) UnmarshalBody(body []byte) error {
	u.Payload = append([]byte(nil), body...)
	return nil
}

// NeighborMap maps a face index to the ID of the device attached there.
type NeighborMap map[int]uint32

// Faces returns the occupied faces in ascending order.
func (n NeighborMap) Faces() []int {
	faces := make([]int, 0, len(n))
	for face := range n {
		faces = append(faces, face)
	}
	sort.Ints(faces)
	return faces
}
