// Package protocol implements the framed binary codec shared by the three
// firmware generations of the mesh: CLASSIC, BOOTSTRAP and IMAGO.
//
// # Frame Format
//
// Every message, in every mode, travels in the same envelope:
//
//	['<'][CODE][LEN][BODY(LEN)]['>']
//
// The meaning of CODE depends on the active Mode: each mode has its own
// message set, and a Decoder decodes against exactly one set at a time.
// Device IDs inside bodies are 3 bytes, big-endian.
//
// # Encoding
//
//	frame, err := protocol.Encode(&protocol.SetLEDCommand{ID: 42, Enable: true})
//
// # Decoding a Stream
//
// A Decoder consumes bytes as they arrive and reports complete messages,
// raw bytes and decode errors through Handlers:
//
//	dec := protocol.NewDecoder(protocol.HostSet(protocol.ModeClassic), protocol.Handlers{
//	    Message: func(m protocol.Message) { ... },
//	    Raw:     func(b byte) { ... },
//	    Error:   func(err error) { ... },
//	})
//	dec.Write(chunk)
//
// In raw mode every inbound byte is reported individually and nothing is
// framed. The flash session uses raw mode for its single-character status
// handshakes. Switching takes effect at the next byte.
//
// # Error Handling
//
// Malformed payloads produce a *DecodeError. They are never fatal: the
// decoder reports the error and resynchronises on the next frame. Codes not
// in the active message set decode to *Unparsed so callers can still see them.
package protocol
