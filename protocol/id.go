package protocol

import "fmt"

// MaxDeviceID is the largest ID the 3-byte encoding can carry.
const MaxDeviceID = 0xFFFFFF

// EncodeID encodes a device ID as 3 big-endian bytes.
func EncodeID(id uint32) ([IDSize]byte, error) {
	if id > MaxDeviceID {
		return [IDSize]byte{}, fmt.Errorf("device id %d exceeds maximum %d", id, MaxDeviceID)
	}
	return [IDSize]byte{byte(id >> 16), byte(id >> 8), byte(id)}, nil
}

// MustEncodeID is EncodeID for IDs already known to be in range; out of
// range IDs are truncated to 24 bits.
func MustEncodeID(id uint32) [IDSize]byte {
	return [IDSize]byte{byte(id >> 16), byte(id >> 8), byte(id)}
}

// DecodeID decodes 3 big-endian bytes into a device ID.
func DecodeID(b []byte) uint32 {
	_ = b[2]
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

func appendID(dst []byte, id uint32) ([]byte, error) {
	enc, err := EncodeID(id)
	if err != nil {
		return nil, err
	}
	return append(dst, enc[:]...), nil
}
