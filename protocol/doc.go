// Package protocol defines the command set of byte-wide parallel EEPROM and
// NOR-flash devices.
//
// This package provides the fixed addresses, command bytes and the exact
// write-cycle sequences that move a device between its internal modes
// (SST39SF0x0 and AT28C256 datasheets).
//
// # Command Sequences
//
// Every special operation starts with the same unlock cycles:
//
//	0xAA -> 0x5555
//	0x55 -> 0x2AAA
//
// followed by a command byte, and for erase and protection commands a second
// unlock and a final command:
//
//	Byte program:  AA 55 A0, then data -> address
//	Chip erase:    AA 55 80 AA 55 10
//	Sector erase:  AA 55 80 AA 55 30 (last cycle at the sector address)
//	ID entry:      AA 55 90
//	ID exit:       AA 55 F0
//	SDP disable:   AA 55 80 AA 55 20
//
// Use the Build* functions to get a Sequence and write it cycle by cycle:
//
//	for _, c := range protocol.BuildProgramSeq(0x0100, 0x42) {
//	    drv.WriteCycle(c.Addr, c.Data)
//	}
//
// Any deviation from the sequence (wrong order, an extra cycle, a timing
// violation) silently aborts the special mode, and the next cycle is taken
// as an ordinary write.
//
// # Device Identification
//
// In ID mode the device returns its manufacturer code at address 0 and its
// device code at address 1. NewDeviceID composes them big-endian and
// LookupPart names known parts:
//
//	id := protocol.NewDeviceID(0xBF, 0xB5)
//	part, ok := protocol.LookupPart(id) // SST39SF010A
package protocol
