package protocol

import "fmt"

// Encode frames a message: '<' code length body '>'.
func Encode(m Message) ([]byte, error) {
	body, err := m.MarshalBody()
	if err != nil {
		return nil, fmt.Errorf("encode %s 0x%02X: %w", m.Mode(), m.Code(), err)
	}
	return EncodeFrame(m.Code(), body)
}

// EncodeFrame frames a raw code and body.
func EncodeFrame(code byte, body []byte) ([]byte, error) {
	if len(body) > MaxBodySize {
		return nil, fmt.Errorf("encode 0x%02X: body of %d bytes exceeds %d", code, len(body), MaxBodySize)
	}
	frame := make([]byte, 0, len(body)+FrameOverhead)
	frame = append(frame, StartOfFrame, code, byte(len(body)))
	frame = append(frame, body...)
	return append(frame, EndOfFrame), nil
}

// Decode builds the message for code from body using set. Codes the set
// does not know are returned as *Unparsed with a nil error.
func Decode(set *MessageSet, code byte, body []byte) (Message, error) {
	m, ok := set.Lookup(code)
	if !ok {
		u := &Unparsed{Set: set.Mode(), RawCode: code}
		_ = u.UnmarshalBody(body)
		return u, nil
	}
	if err := m.UnmarshalBody(body); err != nil {
		return nil, err
	}
	return m, nil
}

// DecodeFrame decodes one complete frame, envelope included.
func DecodeFrame(set *MessageSet, frame []byte) (Message, error) {
	if len(frame) < FrameOverhead {
		return nil, &DecodeError{Mode: set.Mode(), Expected: FrameOverhead, Actual: len(frame), Reason: "frame too short"}
	}
	code := frame[1]
	if frame[0] != StartOfFrame {
		return nil, &DecodeError{Mode: set.Mode(), Code: code, Expected: SizeVariable, Actual: len(frame), Reason: "missing start of frame"}
	}
	n := int(frame[2])
	if len(frame) != n+FrameOverhead {
		return nil, &DecodeError{Mode: set.Mode(), Code: code, Expected: n + FrameOverhead, Actual: len(frame), Reason: "frame length mismatch"}
	}
	if frame[len(frame)-1] != EndOfFrame {
		return nil, &DecodeError{Mode: set.Mode(), Code: code, Expected: SizeVariable, Actual: len(frame), Reason: "missing end of frame"}
	}
	return Decode(set, code, frame[3:3+n])
}
