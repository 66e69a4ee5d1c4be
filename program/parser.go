package program

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bryangrimes/node-cubelets/protocol"
)

// Intel HEX record types.
const (
	RecordData                   = 0x00
	RecordEndOfFile              = 0x01
	RecordExtendedSegmentAddress = 0x02
	RecordStartSegmentAddress    = 0x03
	RecordExtendedLinearAddress  = 0x04
	RecordStartLinearAddress     = 0x05
)

const (
	// MinimumRecordLength is the shortest record in hex characters after ':'
	// (length, address, type and checksum)
	MinimumRecordLength = 10

	// RecordHeaderSize is length(1) + address(2) + type(1)
	RecordHeaderSize = 4

	// MaxImageSize bounds the flattened image; larger address spans are rejected
	MaxImageSize = 1 << 20
)

// ParseError reports a malformed line of an Intel HEX image.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse reads an image from path, choosing the format by extension:
// .bin is raw binary, anything else is Intel HEX.
//
// Example:
//
//	prog, err := program.Parse("firmware/drive/application.hex")
func Parse(path string, opts ...Option) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer func() { _ = f.Close() }()

	if strings.EqualFold(filepath.Ext(path), ".bin") {
		return ParseBinary(f, opts...)
	}
	return ParseHex(f, opts...)
}

// ParseBinary reads a raw binary image.
func ParseBinary(r io.Reader, opts ...Option) (*Program, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > MaxImageSize {
		return nil, fmt.Errorf("image exceeds %d bytes", MaxImageSize)
	}
	return New(data, opts...), nil
}

type segment struct {
	addr uint32
	data []byte
}

// ParseHex reads an Intel HEX image.
//
// Example:
//
//	prog, err := program.ParseHex(strings.NewReader(":0100000001FE\n:00000001FF\n"))
func ParseHex(r io.Reader, opts ...Option) (*Program, error) {
	scanner := bufio.NewScanner(r)

	var (
		segments []segment
		base     uint32
		lineNum  int
		records  int
		sawEOF   bool
	)
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines
		if line == "" {
			continue
		}
		if sawEOF {
			return nil, &ParseError{Line: lineNum, Err: fmt.Errorf("data after end-of-file record")}
		}

		rec, err := parseRecord(line)
		if err != nil {
			return nil, &ParseError{Line: lineNum, Err: err}
		}

		switch rec.kind {
		case RecordData:
			if len(rec.data) > 0 {
				segments = append(segments, segment{addr: base + uint32(rec.addr), data: rec.data})
			}
			records++
		case RecordEndOfFile:
			sawEOF = true
		case RecordExtendedSegmentAddress:
			if len(rec.data) != 2 {
				return nil, &ParseError{Line: lineNum, Err: fmt.Errorf("extended segment address must carry 2 bytes, got %d", len(rec.data))}
			}
			base = (uint32(rec.data[0])<<8 | uint32(rec.data[1])) << 4
		case RecordExtendedLinearAddress:
			if len(rec.data) != 2 {
				return nil, &ParseError{Line: lineNum, Err: fmt.Errorf("extended linear address must carry 2 bytes, got %d", len(rec.data))}
			}
			base = (uint32(rec.data[0])<<8 | uint32(rec.data[1])) << 16
		case RecordStartSegmentAddress, RecordStartLinearAddress:
			// Entry points do not affect the flashed image.
		default:
			return nil, &ParseError{Line: lineNum, Err: fmt.Errorf("unsupported record type 0x%02X", rec.kind)}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if lineNum == 0 {
		return nil, fmt.Errorf("empty file")
	}

	data, err := flatten(segments)
	if err != nil {
		return nil, err
	}
	p := New(data, opts...)
	p.lines = records
	return p, nil
}

type record struct {
	kind byte
	addr uint16
	data []byte
}

// parseRecord decodes and verifies one ':'-prefixed record.
func parseRecord(line string) (*record, error) {
	if line[0] != ':' {
		return nil, fmt.Errorf("record must start with ':'")
	}
	line = line[1:]

	if len(line) < MinimumRecordLength {
		return nil, fmt.Errorf("record too short: got %d characters, minimum is %d", len(line), MinimumRecordLength)
	}

	raw, err := hex.DecodeString(line)
	if err != nil {
		return nil, fmt.Errorf("invalid hex data: %w", err)
	}

	dataLen := int(raw[0])
	expectedLen := RecordHeaderSize + dataLen + 1
	if len(raw) != expectedLen {
		return nil, fmt.Errorf("data length mismatch: got %d bytes, expected %d", len(raw), expectedLen)
	}

	checksum := raw[len(raw)-1]
	if calculated := protocol.RecordChecksum(raw[:len(raw)-1]); checksum != calculated {
		return nil, fmt.Errorf("checksum mismatch: got 0x%02X, expected 0x%02X", checksum, calculated)
	}

	rec := &record{
		kind: raw[3],
		addr: uint16(raw[1])<<8 | uint16(raw[2]),
		data: make([]byte, dataLen),
	}
	copy(rec.data, raw[RecordHeaderSize:RecordHeaderSize+dataLen])
	return rec, nil
}

// flatten lays segments out from the lowest address, filling gaps with
// FillByte. Overlapping segments are rejected.
func flatten(segments []segment) ([]byte, error) {
	if len(segments) == 0 {
		return nil, nil
	}
	sort.SliceStable(segments, func(i, j int) bool { return segments[i].addr < segments[j].addr })

	origin := segments[0].addr
	last := segments[len(segments)-1]
	span := uint64(last.addr) + uint64(len(last.data)) - uint64(origin)
	for _, s := range segments {
		if end := uint64(s.addr) + uint64(len(s.data)) - uint64(origin); end > span {
			span = end
		}
	}
	if span > MaxImageSize {
		return nil, fmt.Errorf("image spans %d bytes, maximum is %d", span, MaxImageSize)
	}

	out := make([]byte, span)
	for i := range out {
		out[i] = FillByte
	}
	var covered uint64
	for _, s := range segments {
		off := uint64(s.addr - origin)
		if off < covered {
			return nil, fmt.Errorf("record at 0x%08X overlaps previous data", s.addr)
		}
		copy(out[off:], s.data)
		covered = off + uint64(len(s.data))
	}
	return out, nil
}
