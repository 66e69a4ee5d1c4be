package protocol

// Checksum is the pair of 8-bit checks the host bootloader verifies before
// accepting a program upload.
type Checksum struct {
	// XOR is the exclusive-or of all body bytes
	XOR byte

	// Sum is the 8-bit wrapping sum of all body bytes
	Sum byte
}

// ComputeChecksum returns the XOR and sum of data.
//
// An all-zero body yields {0, 0}; a single 0x01 yields {1, 1}.
func ComputeChecksum(data []byte) Checksum {
	var c Checksum
	for _, b := range data {
		c.XOR ^= b
		c.Sum += b
	}
	return c
}

// XOR returns the exclusive-or of data. Used as the per-page check byte.
func XOR(data []byte) byte {
	var x byte
	for _, b := range data {
		x ^= b
	}
	return x
}

// RecordChecksum computes the Intel HEX record checksum: the two's
// complement of the 8-bit sum of all record bytes.
func RecordChecksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return ^sum + 1
}
