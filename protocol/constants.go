package protocol

// Unlock cycle addresses and data shared by every command sequence
// (JEDEC byte-wide command set, SST39SF0x0 datasheet table 6).
const (
	// UnlockAddr1 is the address of the first and third unlock cycles
	UnlockAddr1 uint16 = 0x5555

	// UnlockAddr2 is the address of the second unlock cycle
	UnlockAddr2 uint16 = 0x2AAA

	// UnlockData1 is written to UnlockAddr1
	UnlockData1 byte = 0xAA

	// UnlockData2 is written to UnlockAddr2
	UnlockData2 byte = 0x55
)

// Command bytes written in the third (or sixth) cycle of a sequence.
const (
	// CmdByteProgram arms a single byte program
	CmdByteProgram byte = 0xA0

	// CmdEraseSetup arms the six-cycle erase and protection sequences
	CmdEraseSetup byte = 0x80

	// CmdChipErase erases the whole array
	CmdChipErase byte = 0x10

	// CmdSectorErase erases the sector addressed by the last cycle
	CmdSectorErase byte = 0x30

	// CmdEnterID switches the device into software ID mode
	CmdEnterID byte = 0x90

	// CmdExitID returns the device to array read mode
	CmdExitID byte = 0xF0

	// CmdDisableProtection turns off AT28C256 software data protection
	CmdDisableProtection byte = 0x20
)

// ErasedByte is the value every cell reads after an erase.
const ErasedByte byte = 0xFF

// Software ID addresses.
const (
	// ManufacturerIDAddr holds the manufacturer code in ID mode
	ManufacturerIDAddr uint16 = 0x0000

	// DeviceIDAddr holds the device code in ID mode
	DeviceIDAddr uint16 = 0x0001
)

// Cycle counts of the sequences.
const (
	// ProgramCycles is the unlock-plus-command length of a byte program
	ProgramCycles = 3

	// EraseCycles is the length of chip/sector erase and protection disable
	EraseCycles = 6

	// IDCycles is the length of the ID entry and exit sequences
	IDCycles = 3
)

// CommandName returns a human-readable name for a command byte.
func CommandName(cmd byte) string {
	switch cmd {
	case CmdByteProgram:
		return "byte program"
	case CmdEraseSetup:
		return "erase setup"
	case CmdChipErase:
		return "chip erase"
	case CmdSectorErase:
		return "sector erase"
	case CmdEnterID:
		return "ID entry"
	case CmdExitID:
		return "ID exit"
	case CmdDisableProtection:
		return "disable protection"
	default:
		return "unknown command"
	}
}
