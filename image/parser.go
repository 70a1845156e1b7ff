package image

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Intel HEX record types.
const (
	RecordData                   = 0x00
	RecordEOF                    = 0x01
	RecordExtendedSegmentAddress = 0x02
	RecordStartSegmentAddress    = 0x03
	RecordExtendedLinearAddress  = 0x04
	RecordStartLinearAddress     = 0x05
)

// Constants for Intel HEX parsing.
const (
	// RecordHeaderSize is the size of count + address + type in bytes
	RecordHeaderSize = 4

	// RecordChecksumSize is the size of the trailing checksum in bytes
	RecordChecksumSize = 1

	// MinimumRecordLength is the minimum record length in hex characters,
	// without the leading ':'
	MinimumRecordLength = 2 * (RecordHeaderSize + RecordChecksumSize)

	// AddressSpace is the size of the 16-bit bus address space
	AddressSpace = 1 << 16
)

// Parse loads an image from the given file path. Files ending in .hex or
// .ihx are read as Intel HEX, anything else as a raw binary placed at
// address 0.
//
// Example:
//
//	img, err := image.Parse("rom.hex")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%d bytes in %d segments\n", img.Size(), len(img.Segments))
func Parse(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".hex", ".ihx":
		return ParseHex(f)
	default:
		return ParseBinary(f, 0)
	}
}

// ParseHex parses Intel HEX records from r.
//
// Data (00) and end-of-file (01) records are supported. Extended address
// records (02, 04) are accepted only with a zero base since the bus has a
// 16-bit address space. Start address records (03, 05) are ignored.
// Contiguous data records are merged into one segment.
//
// Example:
//
//	img, err := image.ParseHex(strings.NewReader(":0400000001020304F2\n:00000001FF\n"))
func ParseHex(r io.Reader) (*Image, error) {
	scanner := bufio.NewScanner(r)
	img := &Image{}
	var current *Segment

	lineNum := 0
	sawEOF := false
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines
		if line == "" {
			continue
		}
		if sawEOF {
			return nil, &ParseError{Line: lineNum, Reason: "data after end-of-file record"}
		}

		rec, err := parseRecord(line)
		if err != nil {
			return nil, &ParseError{Line: lineNum, Reason: "invalid record", Err: err}
		}

		switch rec.kind {
		case RecordData:
			if int(rec.address)+len(rec.data) > AddressSpace {
				return nil, &ParseError{Line: lineNum,
					Reason: fmt.Sprintf("record at 0x%04X runs past 0xFFFF", rec.address)}
			}
			if len(rec.data) == 0 {
				continue
			}
			if current != nil && current.End() == int(rec.address) {
				current.Data = append(current.Data, rec.data...)
				continue
			}
			current = &Segment{Address: rec.address, Data: rec.data}
			img.Segments = append(img.Segments, current)
		case RecordEOF:
			sawEOF = true
		case RecordExtendedSegmentAddress, RecordExtendedLinearAddress:
			if len(rec.data) != 2 {
				return nil, &ParseError{Line: lineNum, Reason: "extended address record must hold 2 bytes"}
			}
			if rec.data[0] != 0 || rec.data[1] != 0 {
				return nil, &ParseError{Line: lineNum,
					Reason: fmt.Sprintf("extended address 0x%02X%02X outside the 16-bit address space",
						rec.data[0], rec.data[1])}
			}
		case RecordStartSegmentAddress, RecordStartLinearAddress:
			// Entry points are meaningless for a memory image.
		default:
			return nil, &ParseError{Line: lineNum, Reason: fmt.Sprintf("unknown record type 0x%02X", rec.kind)}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if img.Size() == 0 {
		return nil, &ParseError{Reason: "no data records found"}
	}

	return img, nil
}

// ParseBinary reads a raw binary image and places it at base.
func ParseBinary(r io.Reader, base uint16) (*Image, error) {
	limit := int64(AddressSpace - int(base))
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if len(data) == 0 {
		return nil, &ParseError{Reason: "empty image"}
	}
	if int64(len(data)) > limit {
		return nil, &ParseError{
			Reason: fmt.Sprintf("image larger than %d bytes available above 0x%04X", limit, base),
		}
	}

	return &Image{Segments: []*Segment{{Address: base, Data: data}}}, nil
}

type record struct {
	kind    byte
	address uint16
	data    []byte
}

// parseRecord parses a single Intel HEX record.
//
// Record format:
//
//	:[Count(1)][Address(2)][Type(1)][Data(Count)][Checksum(1)]
//
// All values are hex-encoded; the address is big-endian.
//
// Example: ":0400000001020304F2"
//
//	Count: 4
//	Address: 0x0000
//	Type: 0x00 (data)
//	Data: [0x01, 0x02, 0x03, 0x04]
//	Checksum: 0xF2
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

	count := int(raw[0])
	expectedLen := RecordHeaderSize + count + RecordChecksumSize
	if len(raw) != expectedLen {
		return nil, fmt.Errorf("data length mismatch: got %d bytes, expected %d (header=%d + data=%d + checksum=%d)",
			len(raw), expectedLen, RecordHeaderSize, count, RecordChecksumSize)
	}

	checksum := raw[len(raw)-1]
	if calculated := RecordChecksum(raw[:len(raw)-1]); checksum != calculated {
		return nil, fmt.Errorf("checksum mismatch: got 0x%02X, expected 0x%02X", checksum, calculated)
	}

	rec := &record{
		address: uint16(raw[1])<<8 | uint16(raw[2]),
		kind:    raw[3],
		data:    make([]byte, count),
	}
	copy(rec.data, raw[RecordHeaderSize:RecordHeaderSize+count])

	return rec, nil
}
