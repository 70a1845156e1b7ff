// Package image loads burn images for the memory test harness.
//
// # Formats
//
// Intel HEX files (.hex, .ihx) are parsed record by record. Each record
// is hex-encoded:
//
//	:[Count(2)][Address(4)][Type(2)][Data(2*Count)][Checksum(2)]
//
// Example record:
//
//	:0400000001020304F2
//	  04 = Byte count
//	  0000 = Address (big-endian)
//	  00 = Record type (data)
//	  01020304 = Data
//	  F2 = Checksum (two's complement of the byte sum)
//
// Only the 16-bit address space is reachable, so extended address records
// must carry a zero base. Any other file is loaded as a raw binary at
// address 0.
//
// # Usage
//
//	img, err := image.Parse("pattern.hex")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, seg := range img.Sorted() {
//	    fmt.Printf("0x%04X: %d bytes\n", seg.Address, len(seg.Data))
//	}
//
//	if v, ok := img.Lookup(0x0100); ok {
//	    fmt.Printf("0x0100 = 0x%02X\n", v)
//	}
//
// # Error Handling
//
// Malformed input is reported as a *ParseError carrying the line number.
package image
