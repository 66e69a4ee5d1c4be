package program

import (
	"fmt"

	"github.com/bryangrimes/node-cubelets/protocol"
)

const (
	// DefaultPageSize is the flash page size of the supported MCUs
	DefaultPageSize = 128

	// MaxPageCount is the most pages an AVR commit can describe (1-byte count)
	MaxPageCount = 0xFF

	// PageHeaderSize is the big-endian page index in front of each page
	PageHeaderSize = 2

	// PageTrailerSize is the XOR byte after each page
	PageTrailerSize = 1

	// FillByte pads short pages and fills gaps between HEX records
	FillByte = 0xFF
)

// Program is an immutable, parsed firmware image.
type Program struct {
	data     []byte
	pageSize int
	lines    int
	checksum protocol.Checksum
}

// Option configures a Program.
type Option func(*Program)

// WithPageSize sets the page size used by Pages and the page counts.
// Non-positive values are ignored.
func WithPageSize(n int) Option {
	return func(p *Program) {
		if n > 0 {
			p.pageSize = n
		}
	}
}

// New builds a program from an already flattened image. data is copied.
// The line count assumes 16-byte records.
func New(data []byte, opts ...Option) *Program {
	p := &Program{
		data:     append([]byte(nil), data...),
		pageSize: DefaultPageSize,
		lines:    (len(data) + 15) / 16,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.checksum = protocol.ComputeChecksum(p.data)
	return p
}

// Valid reports whether the program can be flashed.
func (p *Program) Valid() bool {
	return len(p.data) > 0 && p.PageCount() <= MaxPageCount
}

// Validate returns nil for a valid program and a descriptive error otherwise.
func (p *Program) Validate() error {
	if len(p.data) == 0 {
		return fmt.Errorf("program is empty")
	}
	if n := p.PageCount(); n > MaxPageCount {
		return fmt.Errorf("program spans %d pages of %d bytes, maximum is %d", n, p.pageSize, MaxPageCount)
	}
	return nil
}

// Data returns a copy of the flattened image.
func (p *Program) Data() []byte { return append([]byte(nil), p.data...) }

// Len returns the image size in bytes.
func (p *Program) Len() int { return len(p.data) }

// Checksum returns the XOR and sum of the image body.
func (p *Program) Checksum() protocol.Checksum { return p.checksum }

// PageSize returns the configured page size.
func (p *Program) PageSize() int { return p.pageSize }

// LineCount returns the number of data records the image was parsed from.
func (p *Program) LineCount() int { return p.lines }

// PageCount returns the number of pages the image occupies.
func (p *Program) PageCount() int {
	return (len(p.data) + p.pageSize - 1) / p.pageSize
}

// LastPageSize returns the number of image bytes in the final page.
func (p *Program) LastPageSize() int {
	if len(p.data) == 0 {
		return 0
	}
	if rem := len(p.data) % p.pageSize; rem != 0 {
		return rem
	}
	return p.pageSize
}

// Chunks splits the image into consecutive slices of at most n bytes.
// The slices share the program's storage and must not be modified.
func (p *Program) Chunks(n int) [][]byte {
	if n <= 0 || len(p.data) == 0 {
		return nil
	}
	chunks := make([][]byte, 0, (len(p.data)+n-1)/n)
	for off := 0; off < len(p.data); off += n {
		end := off + n
		if end > len(p.data) {
			end = len(p.data)
		}
		chunks = append(chunks, p.data[off:end:end])
	}
	return chunks
}

// Page returns page i padded to the page size with FillByte.
func (p *Program) Page(i int) ([]byte, error) {
	if i < 0 || i >= p.PageCount() {
		return nil, fmt.Errorf("page %d out of range [0, %d)", i, p.PageCount())
	}
	page := make([]byte, p.pageSize)
	n := copy(page, p.data[i*p.pageSize:])
	for j := n; j < len(page); j++ {
		page[j] = FillByte
	}
	return page, nil
}

// Pages returns every padded page in order.
func (p *Program) Pages() [][]byte {
	pages := make([][]byte, p.PageCount())
	for i := range pages {
		pages[i], _ = p.Page(i)
	}
	return pages
}

// EncodePage returns page i framed for a target transfer:
//
//	[INDEX(2, big-endian)][DATA(pageSize)][XOR(1)]
func (p *Program) EncodePage(i int) ([]byte, error) {
	page, err := p.Page(i)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, PageHeaderSize+len(page)+PageTrailerSize)
	out = append(out, byte(i>>8), byte(i))
	out = append(out, page...)
	return append(out, protocol.XOR(page)), nil
}

func (p *Program) String() string {
	return fmt.Sprintf("program(%d bytes, %d pages of %d, xor=0x%02X sum=0x%02X)",
		len(p.data), p.PageCount(), p.pageSize, p.checksum.XOR, p.checksum.Sum)
}
