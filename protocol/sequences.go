package protocol

import "fmt"

// Cycle is one write cycle of a command sequence.
type Cycle struct {
	Addr uint16
	Data byte
}

func (c Cycle) String() string {
	return fmt.Sprintf("0x%02X->0x%04X", c.Data, c.Addr)
}

// Sequence is an ordered list of write cycles. A device only honours the
// sequence when it is written verbatim and in order; any deviation drops it
// back to array read mode.
type Sequence []Cycle

// unlock returns the two fixed unlock cycles that start every sequence.
func unlock() Sequence {
	return Sequence{
		{Addr: UnlockAddr1, Data: UnlockData1},
		{Addr: UnlockAddr2, Data: UnlockData2},
	}
}

// command returns the three-cycle unlock ending in cmd at UnlockAddr1.
func command(cmd byte) Sequence {
	return append(unlock(), Cycle{Addr: UnlockAddr1, Data: cmd})
}

// eraseSetup returns the five cycles shared by the six-cycle sequences.
func eraseSetup() Sequence {
	return append(command(CmdEraseSetup), unlock()...)
}

// BuildProgramSeq returns the byte-program command: the three-cycle unlock
// ending in CmdByteProgram, followed by the target cycle.
//
// Sequence:
//
//	0xAA->0x5555, 0x55->0x2AAA, 0xA0->0x5555, data->address
func BuildProgramSeq(address uint16, data byte) Sequence {
	return append(command(CmdByteProgram), Cycle{Addr: address, Data: data})
}

// BuildChipEraseSeq returns the six-cycle chip erase command.
//
// Sequence:
//
//	0xAA->0x5555, 0x55->0x2AAA, 0x80->0x5555, 0xAA->0x5555, 0x55->0x2AAA, 0x10->0x5555
func BuildChipEraseSeq() Sequence {
	return append(eraseSetup(), Cycle{Addr: UnlockAddr1, Data: CmdChipErase})
}

// BuildSectorEraseSeq returns the six-cycle sector erase command for the
// sector starting at highAddress<<8.
//
// Sequence:
//
//	0xAA->0x5555, 0x55->0x2AAA, 0x80->0x5555, 0xAA->0x5555, 0x55->0x2AAA, 0x30->SA
func BuildSectorEraseSeq(highAddress byte) Sequence {
	return append(eraseSetup(), Cycle{Addr: SectorAddress(highAddress), Data: CmdSectorErase})
}

// BuildEnterIDSeq returns the software ID entry command.
func BuildEnterIDSeq() Sequence {
	return command(CmdEnterID)
}

// BuildExitIDSeq returns the software ID exit command.
func BuildExitIDSeq() Sequence {
	return command(CmdExitID)
}

// BuildDisableProtectionSeq returns the AT28C256 software data protection
// disable command.
//
// Sequence:
//
//	0xAA->0x5555, 0x55->0x2AAA, 0x80->0x5555, 0xAA->0x5555, 0x55->0x2AAA, 0x20->0x5555
func BuildDisableProtectionSeq() Sequence {
	return append(eraseSetup(), Cycle{Addr: UnlockAddr1, Data: CmdDisableProtection})
}

// SectorAddress returns the address a sector erase is issued to.
func SectorAddress(highAddress byte) uint16 {
	return uint16(highAddress) << 8
}
