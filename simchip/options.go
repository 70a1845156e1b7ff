package simchip

import "github.com/moffa90/go-parbus/bus"

// Kind is the memory technology of a simulated chip.
type Kind int

const (
	SRAM Kind = iota
	FRAM
	EEPROM
	Flash
)

func (k Kind) String() string {
	switch k {
	case SRAM:
		return "sram"
	case FRAM:
		return "fram"
	case EEPROM:
		return "eeprom"
	case Flash:
		return "flash"
	default:
		return "unknown"
	}
}

// Config holds the chip model parameters.
type Config struct {
	// Kind selects the memory technology
	Kind Kind

	// Size is the array size in bytes (power of two); addresses alias modulo Size
	Size int

	// SectorSize is the sector erase granularity (flash only)
	SectorSize int

	// Manufacturer and Device are returned in software ID mode (flash only)
	Manufacturer byte
	Device       byte

	// ProgramPolls is the number of status reads a program or EEPROM write stays busy
	ProgramPolls int

	// ErasePolls is the number of status reads an erase stays busy
	ErasePolls int

	// Stuck makes program and erase operations never complete
	Stuck bool

	// Protected enables EEPROM software data protection at power-up
	Protected bool

	// Jumpers is the level of the mode-select inputs (default: all open, high)
	Jumpers byte

	// TiedMask and TiedLevel force address lines to a fixed level
	TiedMask  uint16
	TiedLevel uint16
}

func defaultConfig(kind Kind) Config {
	cfg := Config{
		Kind:    kind,
		Size:    32 << 10,
		Jumpers: bus.JumperMask,
	}
	switch kind {
	case EEPROM:
		cfg.ProgramPolls = 4
	case Flash:
		cfg.Size = 128 << 10
		cfg.SectorSize = 4 << 10
		cfg.Manufacturer = 0xBF
		cfg.Device = 0xB5
		cfg.ProgramPolls = 2
		cfg.ErasePolls = 8
	}
	return cfg
}

// Option is a functional option for configuring a Chip.
type Option func(*Config)

// WithSize sets the array size. Sizes that are not a power of two are ignored.
func WithSize(size int) Option {
	return func(c *Config) {
		if size > 0 && size&(size-1) == 0 {
			c.Size = size
		}
	}
}

// WithSectorSize sets the sector erase granularity.
func WithSectorSize(size int) Option {
	return func(c *Config) {
		if size > 0 && size&(size-1) == 0 {
			c.SectorSize = size
		}
	}
}

// WithID sets the software ID returned in ID mode.
//
// Example:
//
//	chip := simchip.NewFlash(simchip.WithID(0xBF, 0xB6)) // SST39SF020A
func WithID(manufacturer, device byte) Option {
	return func(c *Config) {
		c.Manufacturer = manufacturer
		c.Device = device
	}
}

// WithBusyPolls sets how many status reads program and erase operations stay busy.
func WithBusyPolls(program, erase int) Option {
	return func(c *Config) {
		if program >= 0 {
			c.ProgramPolls = program
		}
		if erase >= 0 {
			c.ErasePolls = erase
		}
	}
}

// WithStuck makes program and erase operations never complete.
func WithStuck() Option {
	return func(c *Config) {
		c.Stuck = true
	}
}

// WithProtection enables EEPROM software data protection at power-up.
func WithProtection() Option {
	return func(c *Config) {
		c.Protected = true
	}
}

// WithJumpers sets the level of the mode-select inputs. A cleared bit is an
// installed jumper.
//
// Example:
//
//	chip := simchip.NewSRAM(simchip.WithJumpers(bus.J0 | bus.J2)) // no erase
func WithJumpers(levels byte) Option {
	return func(c *Config) {
		c.Jumpers = levels & bus.JumperMask
	}
}

// WithTiedLine ties one address line to a fixed level, aliasing the
// addresses that differ only in that bit.
//
// Example:
//
//	chip := simchip.NewFlash(simchip.WithTiedLine(15, false)) // A15 tied low
func WithTiedLine(bit uint, high bool) Option {
	return func(c *Config) {
		if bit > 15 {
			return
		}
		mask := uint16(1) << bit
		c.TiedMask |= mask
		if high {
			c.TiedLevel |= mask
		} else {
			c.TiedLevel &^= mask
		}
	}
}
