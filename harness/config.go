package harness

import (
	"fmt"
	"time"

	"github.com/moffa90/go-parbus/bus"
	"github.com/moffa90/go-parbus/image"
)

// Kind selects how the write phase reaches the array.
type Kind string

// Supported memory technologies.
const (
	KindSRAM   Kind = "sram"
	KindFRAM   Kind = "fram"
	KindEEPROM Kind = "eeprom"
	KindFlash  Kind = "flash"
)

// EraseMode selects the erase performed before a flash write phase.
type EraseMode string

// Erase modes.
const (
	EraseNone   EraseMode = "none"
	EraseSector EraseMode = "sector"
	EraseChip   EraseMode = "chip"
)

// ParseKind converts a command line value to a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindSRAM, KindFRAM, KindEEPROM, KindFlash:
		return k, nil
	}
	return "", fmt.Errorf("unknown memory kind %q (want sram, fram, eeprom or flash)", s)
}

// ParseEraseMode converts a command line value to an EraseMode.
func ParseEraseMode(s string) (EraseMode, error) {
	switch m := EraseMode(s); m {
	case EraseNone, EraseSector, EraseChip:
		return m, nil
	}
	return "", fmt.Errorf("unknown erase mode %q (want none, sector or chip)", s)
}

// Config describes one test run.
type Config struct {
	// Start is the first tested address
	Start uint16

	// End is the last tested address (inclusive)
	End uint16

	// Seed is added to the address to form the pattern value
	Seed byte

	// Kind selects the write method
	Kind Kind

	// Write enables the write phase
	Write bool

	// Erase selects the erase before writing a flash device
	Erase EraseMode

	// EraseSector is the high address byte of the sector to erase
	EraseSector byte

	// Image is written instead of the pattern when set
	Image *image.Image

	// Interval is the delay between verify passes
	Interval time.Duration

	// Passes is the number of verify passes (0 = until cancelled)
	Passes int

	// UnprotectEEPROM disables EEPROM software data protection before writing
	UnprotectEEPROM bool
}

// DefaultConfig returns the configuration of the bench firmware: addresses
// 0x0000-0x02FF, pattern starting at 0x00, sector 0 erased before writing,
// a verify pass every 3 seconds.
func DefaultConfig() Config {
	return Config{
		Start:       0x0000,
		End:         0x02FF,
		Seed:        0x00,
		Kind:        KindFlash,
		Write:       true,
		Erase:       EraseSector,
		EraseSector: 0,
		Interval:    3 * time.Second,
	}
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	if c.End < c.Start {
		return fmt.Errorf("end address 0x%04X below start 0x%04X", c.End, c.Start)
	}
	if _, err := ParseKind(string(c.Kind)); err != nil {
		return err
	}
	if _, err := ParseEraseMode(string(c.Erase)); err != nil {
		return err
	}
	if c.Passes < 0 {
		return fmt.Errorf("passes must not be negative")
	}
	if c.Passes != 1 && c.Interval <= 0 {
		return fmt.Errorf("interval must be positive for repeated passes")
	}
	return nil
}

// Expected returns the value address should hold after the write phase and
// whether it is checked at all. Addresses outside a burn image are not.
func (c Config) Expected(address uint16) (byte, bool) {
	if c.Image != nil {
		return c.Image.Lookup(address)
	}
	return byte(address) + c.Seed, true
}

// Mode is the run mode selected by the board jumpers.
type Mode struct {
	// Write enables the write phase (J0 open)
	Write bool

	// Erase enables the erase before writing (J1 open)
	Erase bool

	// Pattern selects the synthetic pattern over the burn image (J2 open)
	Pattern bool
}

// ModeFromJumpers maps the jumper inputs to a run mode. An open jumper
// reads high through its pull-up and enables the feature.
func ModeFromJumpers(j bus.Jumpers) Mode {
	return Mode{
		Write:   j.WriteEnabled,
		Erase:   j.EraseEnabled,
		Pattern: j.UsePattern,
	}
}

// WithMode returns a copy of c with the jumper mode applied. Erase falls
// back to a sector erase when the mode enables it and c has none. Pattern
// mode drops the burn image.
func (c Config) WithMode(m Mode) Config {
	c.Write = m.Write
	switch {
	case !m.Erase:
		c.Erase = EraseNone
	case c.Erase == EraseNone:
		c.Erase = EraseSector
	}
	if m.Pattern {
		c.Image = nil
	}
	return c
}
