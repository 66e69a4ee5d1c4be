package protocol

import "fmt"

// SizeVariable is used as DecodeError.Expected when a body has no fixed size.
const SizeVariable = -1

// DecodeError reports a malformed or wrongly sized payload. It is never fatal:
// the offending frame is dropped and decoding continues.
type DecodeError struct {
	// Mode is the message set the frame was decoded against
	Mode Mode

	// Code is the frame code, if one was read
	Code byte

	// Expected is the mandated body size, or SizeVariable
	Expected int

	// Actual is the body size received
	Actual int

	// Reason describes the failure
	Reason string
}

func (e *DecodeError) Error() string {
	if e.Expected != SizeVariable {
		return fmt.Sprintf("decode %s 0x%02X: %s: got %d bytes, expected %d",
			e.Mode, e.Code, e.Reason, e.Actual, e.Expected)
	}
	return fmt.Sprintf("decode %s 0x%02X: %s (%d bytes)", e.Mode, e.Code, e.Reason, e.Actual)
}

// IsDecodeError returns true if the error is a DecodeError.
func IsDecodeError(err error) bool {
	_, ok := err.(*DecodeError)
	return ok
}

// expectSize returns a DecodeError when body is not exactly n bytes long.
func expectSize(m Message, body []byte, n int) error {
	if len(body) != n {
		return &DecodeError{
			Mode:     m.Mode(),
			Code:     m.Code(),
			Expected: n,
			Actual:   len(body),
			Reason:   "length mismatch",
		}
	}
	return nil
}
