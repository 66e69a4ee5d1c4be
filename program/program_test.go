package program

import (
	"bytes"
	"testing"

	"github.com/bryangrimes/node-cubelets/protocol"
)

func sequence(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i)
	}
	return data
}

func TestPageGeometry(t *testing.T) {
	tests := []struct {
		name      string
		size      int
		pageSize  int
		wantPages int
		wantLast  int
		wantValid bool
	}{
		{"empty", 0, DefaultPageSize, 0, 0, false},
		{"one byte", 1, DefaultPageSize, 1, 1, true},
		{"exact pages", 256, DefaultPageSize, 2, 128, true},
		{"partial last page", 300, DefaultPageSize, 3, 44, true},
		{"max pages", MaxPageCount * DefaultPageSize, DefaultPageSize, MaxPageCount, DefaultPageSize, true},
		{"too many pages", MaxPageCount*DefaultPageSize + 1, DefaultPageSize, MaxPageCount + 1, 1, false},
		{"custom page size", 100, 64, 2, 36, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(make([]byte, tt.size), WithPageSize(tt.pageSize))
			if got := p.PageCount(); got != tt.wantPages {
				t.Errorf("PageCount = %d, want %d", got, tt.wantPages)
			}
			if got := p.LastPageSize(); got != tt.wantLast {
				t.Errorf("LastPageSize = %d, want %d", got, tt.wantLast)
			}
			if got := p.Valid(); got != tt.wantValid {
				t.Errorf("Valid = %v, want %v", got, tt.wantValid)
			}
			if (p.Validate() == nil) != tt.wantValid {
				t.Errorf("Validate = %v, want valid=%v", p.Validate(), tt.wantValid)
			}
		})
	}
}

func TestChecksum(t *testing.T) {
	p := New([]byte{0x01, 0x02, 0x04})
	want := protocol.Checksum{XOR: 0x07, Sum: 0x07}
	if got := p.Checksum(); got != want {
		t.Errorf("Checksum = %+v, want %+v", got, want)
	}
	if got := New(make([]byte, 10)).Checksum(); got != (protocol.Checksum{}) {
		t.Errorf("zero Checksum = %+v", got)
	}
}

func TestChunks(t *testing.T) {
	p := New(sequence(450))
	chunks := p.Chunks(200)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	sizes := []int{200, 200, 50}
	var joined []byte
	for i, c := range chunks {
		if len(c) != sizes[i] {
			t.Errorf("chunk %d has %d bytes, want %d", i, len(c), sizes[i])
		}
		joined = append(joined, c...)
	}
	if !bytes.Equal(joined, p.Data()) {
		t.Error("chunks do not reassemble the image")
	}
	if New(nil).Chunks(200) != nil {
		t.Error("empty program should have no chunks")
	}
	if p.Chunks(0) != nil {
		t.Error("zero chunk size should yield no chunks")
	}
}

func TestPages(t *testing.T) {
	p := New(sequence(130))
	pages := p.Pages()
	if len(pages) != 2 {
		t.Fatalf("got %d pages, want 2", len(pages))
	}
	if !bytes.Equal(pages[0], sequence(128)) {
		t.Error("first page mismatch")
	}
	last := pages[1]
	if len(last) != DefaultPageSize {
		t.Fatalf("last page has %d bytes, want %d", len(last), DefaultPageSize)
	}
	if last[0] != 128 || last[1] != 129 {
		t.Errorf("last page starts % X", last[:2])
	}
	for i := 2; i < len(last); i++ {
		if last[i] != FillByte {
			t.Fatalf("last page byte %d = 0x%02X, want fill", i, last[i])
		}
	}
	if _, err := p.Page(2); err == nil {
		t.Error("expected out of range error")
	}
}

func TestEncodePage(t *testing.T) {
	p := New([]byte{0x01, 0x02}, WithPageSize(4))
	got, err := p.EncodePage(0)
	if err != nil {
		t.Fatalf("EncodePage: %v", err)
	}
	// header, data padded with 0xFF, xor of the padded page
	want := []byte{0x00, 0x00, 0x01, 0x02, 0xFF, 0xFF, 0x03}
	if !bytes.Equal(got, want) {
		t.Errorf("EncodePage = % X, want % X", got, want)
	}

	big := New(make([]byte, 300*4), WithPageSize(4))
	got, err = big.EncodePage(258)
	if err != nil {
		t.Fatalf("EncodePage: %v", err)
	}
	if got[0] != 0x01 || got[1] != 0x02 {
		t.Errorf("page index = % X, want 01 02", got[:2])
	}
}

func TestNewCopiesInput(t *testing.T) {
	data := []byte{1, 2, 3}
	p := New(data)
	data[0] = 9
	if p.Data()[0] != 1 {
		t.Error("program shares caller storage")
	}
}
