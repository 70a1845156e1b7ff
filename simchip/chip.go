package simchip

import (
	"fmt"
	"sync"

	"github.com/moffa90/go-parbus/bus"
	"github.com/moffa90/go-parbus/protocol"
)

// floating is what the MCU samples when nothing drives the data bus.
const floating byte = 0xFF

// Chip is a simulated memory chip wired to all four line groups.
// It implements bus.Backend and is safe for concurrent use.
type Chip struct {
	mu     sync.Mutex
	config Config
	mem    []byte

	dir   [4]byte
	latch [4]byte
	ctrl  byte // strobe levels seen by the chip

	cmd       cmdState
	idMode    bool
	protected bool
	busy      int
	busyValue byte

	writes []protocol.Cycle
	faults []string
	ops    int
}

// New creates a chip of the given kind.
func New(kind Kind, opts ...Option) *Chip {
	cfg := defaultConfig(kind)
	for _, opt := range opts {
		opt(&cfg)
	}

	fill := byte(0x00)
	if kind == EEPROM || kind == Flash {
		fill = protocol.ErasedByte
	}
	mem := make([]byte, cfg.Size)
	for i := range mem {
		mem[i] = fill
	}

	return &Chip{
		config:    cfg,
		mem:       mem,
		ctrl:      bus.Strobes,
		protected: cfg.Protected,
	}
}

// NewSRAM returns a 32 KiB static RAM (62256).
func NewSRAM(opts ...Option) *Chip { return New(SRAM, opts...) }

// NewFRAM returns a 32 KiB ferroelectric RAM (FM1808).
func NewFRAM(opts ...Option) *Chip { return New(FRAM, opts...) }

// NewEEPROM returns a 32 KiB parallel EEPROM (AT28C256).
func NewEEPROM(opts ...Option) *Chip { return New(EEPROM, opts...) }

// NewFlash returns a 128 KiB NOR flash (SST39SF010A).
func NewFlash(opts ...Option) *Chip { return New(Flash, opts...) }

// Kind returns the memory technology of the chip.
func (c *Chip) Kind() Kind {
	return c.config.Kind
}

// SetDirection implements bus.Backend.
func (c *Chip) SetDirection(g bus.Group, outputs byte) error {
	if err := checkGroup(g); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ops++
	c.dir[g] = outputs
	if g == bus.Data {
		c.checkContention()
	}
	return nil
}

// Drive implements bus.Backend.
func (c *Chip) Drive(g bus.Group, value byte) error {
	if err := checkGroup(g); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ops++
	c.latch[g] = value
	if g == bus.Control {
		c.strobe()
	}
	return nil
}

// Sample implements bus.Backend.
func (c *Chip) Sample(g bus.Group) (byte, error) {
	if err := checkGroup(g); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ops++
	switch g {
	case bus.Control:
		in := ^c.dir[g]
		return c.latch[g]&c.dir[g] | c.config.Jumpers&in, nil
	case bus.Data:
		if c.dir[g] != bus.AllInput {
			return c.latch[g], nil
		}
		if !c.outputting() {
			return floating, nil
		}
		return c.read(c.address()), nil
	default:
		return c.latch[g] & c.dir[g], nil
	}
}

// strobe reacts to a change of the control port.
func (c *Chip) strobe() {
	prev := c.ctrl
	c.ctrl = c.latch[bus.Control]&c.dir[bus.Control]&bus.Strobes | ^c.dir[bus.Control]&bus.Strobes

	if c.ctrl&(bus.WE|bus.OE) == 0 {
		c.fault("WE and OE asserted together")
	}

	wasWriting := prev&(bus.WE|bus.CE) == 0
	writing := c.ctrl&(bus.WE|bus.CE) == 0
	if wasWriting && !writing {
		if c.dir[bus.Data] != bus.AllOutput {
			c.fault(fmt.Sprintf("write at 0x%04X with data bus not driven", c.address()))
		}
		c.write(c.address(), c.latch[bus.Data])
	}

	c.checkContention()
}

func (c *Chip) outputting() bool {
	return c.ctrl&(bus.CE|bus.OE) == 0 && c.ctrl&bus.WE != 0
}

func (c *Chip) checkContention() {
	if c.outputting() && c.dir[bus.Data] != bus.AllInput {
		c.fault(fmt.Sprintf("bus contention at 0x%04X: data bus driven while chip outputs", c.address()))
	}
}

func (c *Chip) address() uint16 {
	a := uint16(c.latch[bus.AddressHigh]&c.dir[bus.AddressHigh])<<8 |
		uint16(c.latch[bus.AddressLow]&c.dir[bus.AddressLow])
	return a&^c.config.TiedMask | c.config.TiedLevel
}

func (c *Chip) index(addr uint16) int {
	return int(addr) & (len(c.mem) - 1)
}

func (c *Chip) read(addr uint16) byte {
	if c.busy > 0 {
		if !c.config.Stuck {
			c.busy--
		}
		return c.busyValue
	}
	if c.idMode {
		if addr&protocol.DeviceIDAddr != 0 {
			return c.config.Device
		}
		return c.config.Manufacturer
	}
	return c.mem[c.index(addr)]
}

func (c *Chip) write(addr uint16, data byte) {
	c.writes = append(c.writes, protocol.Cycle{Addr: addr, Data: data})
	switch c.config.Kind {
	case SRAM, FRAM:
		c.mem[c.index(addr)] = data
	case EEPROM:
		c.eepromWrite(addr, data)
	case Flash:
		c.flashWrite(addr, data)
	}
}

func (c *Chip) fault(msg string) {
	c.faults = append(c.faults, msg)
}

func checkGroup(g bus.Group) error {
	if g < bus.Control || g > bus.AddressHigh {
		return fmt.Errorf("unknown group %s", g)
	}
	return nil
}

// Peek returns the array content at addr without a bus cycle. The address
// goes through the same tied-line and size aliasing as a bus access.
func (c *Chip) Peek(addr uint16) byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mem[c.index(addr&^c.config.TiedMask|c.config.TiedLevel)]
}

// Load copies data into the array starting at addr without a bus cycle.
func (c *Chip) Load(addr uint16, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, b := range data {
		a := (addr + uint16(i)) &^ c.config.TiedMask | c.config.TiedLevel
		c.mem[c.index(a)] = b
	}
}

// Writes returns every write cycle latched by the chip, in order.
func (c *Chip) Writes() []protocol.Cycle {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]protocol.Cycle, len(c.writes))
	copy(out, c.writes)
	return out
}

// ResetWrites clears the write log.
func (c *Chip) ResetWrites() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = nil
}

// Faults returns the electrical faults observed so far.
func (c *Chip) Faults() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.faults))
	copy(out, c.faults)
	return out
}

// Ops returns the number of backend calls made so far.
func (c *Chip) Ops() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ops
}

// InIDMode reports whether the chip is in software ID mode.
func (c *Chip) InIDMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.idMode
}

// Protected reports whether EEPROM software data protection is active.
func (c *Chip) Protected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.protected
}

// Busy reports whether a program or erase operation is in progress.
func (c *Chip) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy > 0
}

// SetJumpers changes the level of the mode-select inputs.
func (c *Chip) SetJumpers(levels byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.config.Jumpers = levels & bus.JumperMask
}
