package bus

import "fmt"

// Group identifies one 8-bit line group of the bus.
type Group int

const (
	// Control carries the WE/OE/CE strobes and the jumper inputs
	Control Group = iota

	// Data is the bidirectional data bus
	Data

	// AddressLow carries address bits 0-7
	AddressLow

	// AddressHigh carries address bits 8-15
	AddressHigh

	numGroups
)

func (g Group) String() string {
	switch g {
	case Control:
		return "control"
	case Data:
		return "data"
	case AddressLow:
		return "address-low"
	case AddressHigh:
		return "address-high"
	default:
		return fmt.Sprintf("group(%d)", int(g))
	}
}

// Control port bit positions (reference wiring: PD7..PD2).
const (
	BitWE = 7
	BitOE = 6
	BitCE = 5
	BitJ0 = 4
	BitJ1 = 3
	BitJ2 = 2
)

// Control port masks.
const (
	// WE is the active-low write-enable strobe
	WE byte = 1 << BitWE

	// OE is the active-low output-enable strobe
	OE byte = 1 << BitOE

	// CE is the active-low chip-enable line
	CE byte = 1 << BitCE

	// J0 enables writing the test data
	J0 byte = 1 << BitJ0

	// J1 enables erasing before writing
	J1 byte = 1 << BitJ1

	// J2 selects the synthetic pattern (high) or the burn image (low)
	J2 byte = 1 << BitJ2

	// Strobes covers all three control outputs
	Strobes = WE | OE | CE

	// JumperMask covers all three mode-select inputs
	JumperMask = J0 | J1 | J2
)

// Direction masks for SetDirection. A set bit makes the line an output.
const (
	AllInput  byte = 0x00
	AllOutput byte = 0xFF
)

// Jumpers holds the sampled mode-select inputs. A jumper reads high when it is
// left open (pulled up).
type Jumpers struct {
	WriteEnabled bool
	EraseEnabled bool
	UsePattern   bool
}

func jumpersFromPort(v byte) Jumpers {
	return Jumpers{
		WriteEnabled: v&J0 != 0,
		EraseEnabled: v&J1 != 0,
		UsePattern:   v&J2 != 0,
	}
}
