package protocol

import "sync"

// Handlers receive decoder output. Any field may be nil.
type Handlers struct {
	// Message is called for every decoded frame, including *Unparsed
	Message func(Message)

	// Raw is called for every byte while raw mode is on
	Raw func(byte)

	// Error is called with a *DecodeError for every dropped frame
	Error func(error)
}

type decodeState int

const (
	stateStart decodeState = iota
	stateCode
	stateLength
	stateBody
	stateEnd
)

// Decoder turns an inbound byte stream into messages. In raw mode every
// byte is handed to Handlers.Raw instead. Raw mode and the message set may
// be switched at any time; the change applies from the next byte.
//
// Handlers are invoked synchronously from Write, outside the decoder's lock,
// so they may call SetRaw or SetMessageSet.
type Decoder struct {
	mu       sync.Mutex
	set      *MessageSet
	raw      bool
	handlers Handlers

	state  decodeState
	code   byte
	length int
	body   []byte
}

// NewDecoder returns a framed-mode decoder over set.
func NewDecoder(set *MessageSet, h Handlers) *Decoder {
	return &Decoder{set: set, handlers: h}
}

// SetMessageSet switches the set used for subsequent frames. A partially
// received frame is discarded.
func (d *Decoder) SetMessageSet(set *MessageSet) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.set = set
	d.reset()
}

// MessageSet returns the active set.
func (d *Decoder) MessageSet() *MessageSet {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.set
}

// SetRaw turns raw mode on or off. A partially received frame is discarded.
func (d *Decoder) SetRaw(raw bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.raw = raw
	d.reset()
}

// Raw reports whether raw mode is on.
func (d *Decoder) Raw() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.raw
}

// Write feeds p to the decoder. It never fails.
func (d *Decoder) Write(p []byte) (int, error) {
	for _, b := range p {
		d.feed(b)
	}
	return len(p), nil
}

func (d *Decoder) feed(b byte) {
	d.mu.Lock()
	if d.raw {
		h := d.handlers.Raw
		d.mu.Unlock()
		if h != nil {
			h(b)
		}
		return
	}

	set := d.set
	var (
		complete bool
		bad      *DecodeError
		code     byte
		body     []byte
	)
	switch d.state {
	case stateStart:
		if b == StartOfFrame {
			d.state = stateCode
		}
	case stateCode:
		d.code = b
		d.state = stateLength
	case stateLength:
		d.length = int(b)
		d.body = make([]byte, 0, d.length)
		if d.length == 0 {
			d.state = stateEnd
		} else {
			d.state = stateBody
		}
	case stateBody:
		d.body = append(d.body, b)
		if len(d.body) == d.length {
			d.state = stateEnd
		}
	case stateEnd:
		if b == EndOfFrame {
			complete = true
			code, body = d.code, d.body
		} else {
			bad = &DecodeError{
				Mode:     set.Mode(),
				Code:     d.code,
				Expected: SizeVariable,
				Actual:   len(d.body),
				Reason:   "missing end of frame",
			}
		}
		d.reset()
		if bad != nil && b == StartOfFrame {
			d.state = stateCode
		}
	}
	onMessage, onError := d.handlers.Message, d.handlers.Error
	d.mu.Unlock()

	if bad != nil {
		if onError != nil {
			onError(bad)
		}
		return
	}
	if !complete {
		return
	}
	m, err := Decode(set, code, body)
	if err != nil {
		if onError != nil {
			onError(err)
		}
		return
	}
	if onMessage != nil {
		onMessage(m)
	}
}

func (d *Decoder) reset() {
	d.state = stateStart
	d.code = 0
	d.length = 0
	d.body = nil
}
