package protocol

import "testing"

func TestComputeChecksum(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Checksum
	}{
		{"empty", nil, Checksum{0, 0}},
		{"all zero", make([]byte, 64), Checksum{0, 0}},
		{"single one", []byte{0x01}, Checksum{0x01, 0x01}},
		{"two bytes", []byte{0x0F, 0xF0}, Checksum{0xFF, 0xFF}},
		{"sum wraps", []byte{0xFF, 0x02}, Checksum{0xFD, 0x01}},
		{"cancelling xor", []byte{0xAA, 0xAA}, Checksum{0x00, 0x54}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeChecksum(tt.data); got != tt.want {
				t.Errorf("ComputeChecksum = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestXOR(t *testing.T) {
	if got := XOR([]byte{0x01, 0x02, 0x04}); got != 0x07 {
		t.Errorf("XOR = 0x%02X, want 0x07", got)
	}
}

func TestRecordChecksum(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want byte
	}{
		// :0300300002337A1E
		{"data record", []byte{0x03, 0x00, 0x30, 0x00, 0x02, 0x33, 0x7A}, 0x1E},
		// :00000001FF
		{"eof record", []byte{0x00, 0x00, 0x00, 0x01}, 0xFF},
		{"zero", []byte{0x00}, 0x00},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RecordChecksum(tt.data); got != tt.want {
				t.Errorf("RecordChecksum = 0x%02X, want 0x%02X", got, tt.want)
			}
		})
	}
}
