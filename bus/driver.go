package bus

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotConfigured is returned when a cycle is attempted while the data
	// bus direction does not match the operation.
	ErrNotConfigured = errors.New("bus not configured for this cycle")

	// ErrStrobeConflict is returned when WE and OE would be asserted together.
	ErrStrobeConflict = errors.New("write-enable and output-enable asserted together")
)

type mode int

const (
	modeIdle mode = iota
	modeRead
	modeWrite
)

// Driver sequences the control, address and data lines of the bus.
//
// Driver is not safe for concurrent use; callers own it for the duration of
// a cycle group (see memory.Device, which serialises access).
type Driver struct {
	backend Backend
	config  Config
	ctrl    byte
	mode    mode
}

// NewDriver creates a Driver over the given backend.
//
// Example:
//
//	drv := bus.NewDriver(backend, bus.WithSettle(200*time.Nanosecond))
func NewDriver(backend Backend, opts ...Option) *Driver {
	if backend == nil {
		panic("backend cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Driver{
		backend: backend,
		config:  cfg,
		ctrl:    Strobes | JumperMask,
	}
}

// Clock returns the time source used by the driver.
func (d *Driver) Clock() Clock {
	return d.config.Clock
}

// Init performs the power-on port setup: strobes are outputs driven high,
// jumpers are inputs with pull-ups, the data bus is an input and both
// address ports are outputs.
func (d *Driver) Init() error {
	d.ctrl = Strobes | JumperMask
	if err := d.setDirection(Control, Strobes); err != nil {
		return err
	}
	if err := d.drive(Control, d.ctrl); err != nil {
		return err
	}
	if err := d.setDirection(Data, AllInput); err != nil {
		return err
	}
	if err := d.setDirection(AddressLow, AllOutput); err != nil {
		return err
	}
	if err := d.setDirection(AddressHigh, AllOutput); err != nil {
		return err
	}
	d.mode = modeIdle
	return nil
}

// ConfigureForRead makes the data bus an input and de-asserts all strobes,
// so the chip may safely drive the bus.
func (d *Driver) ConfigureForRead() error {
	if err := d.release(Strobes); err != nil {
		return err
	}
	if err := d.drive(Data, 0); err != nil {
		return err
	}
	if err := d.setDirection(Data, AllInput); err != nil {
		return err
	}
	d.mode = modeRead
	d.Settle()
	return nil
}

// ConfigureForWrite makes the data bus an output driven to zero and
// de-asserts all strobes.
func (d *Driver) ConfigureForWrite() error {
	if err := d.release(Strobes); err != nil {
		return err
	}
	if err := d.drive(Data, 0); err != nil {
		return err
	}
	if err := d.setDirection(Data, AllOutput); err != nil {
		return err
	}
	d.mode = modeWrite
	d.Settle()
	return nil
}

// ReadCycle reads one byte: address, then CE, then OE, then sample.
// The driver must be configured for read.
func (d *Driver) ReadCycle(address uint16) (byte, error) {
	if d.mode != modeRead {
		return 0, fmt.Errorf("read cycle at 0x%04X: %w", address, ErrNotConfigured)
	}

	if err := d.driveAddress(address); err != nil {
		return 0, err
	}
	d.Settle()
	if err := d.assert(CE); err != nil {
		return 0, err
	}
	d.Settle()
	if err := d.assert(OE); err != nil {
		return 0, err
	}
	d.Settle()

	v, err := d.backend.Sample(Data)
	if err != nil {
		return 0, fmt.Errorf("sample %s: %w", Data, err)
	}
	return v, nil
}

// WriteCycle writes one byte. WE is asserted before CE and data, and CE is
// released before WE; the chip latches on the first rising strobe, so any
// other order corrupts the byte. The driver must be configured for write.
func (d *Driver) WriteCycle(address uint16, value byte) error {
	if d.mode != modeWrite {
		return fmt.Errorf("write cycle at 0x%04X: %w", address, ErrNotConfigured)
	}

	if err := d.driveAddress(address); err != nil {
		return err
	}
	d.Settle()
	if err := d.assert(WE); err != nil {
		return err
	}
	d.Settle()
	if err := d.assert(CE); err != nil {
		return err
	}
	if err := d.drive(Data, value); err != nil {
		return err
	}
	d.Settle()
	if err := d.release(CE); err != nil {
		return err
	}
	d.Settle()
	return d.release(WE)
}

// EndRead de-asserts all strobes and zeroes the data and address latches.
func (d *Driver) EndRead() error {
	d.mode = modeIdle
	if err := d.release(Strobes); err != nil {
		return err
	}
	if err := d.drive(Data, 0); err != nil {
		return err
	}
	return d.driveAddress(0)
}

// EndWrite de-asserts all strobes, returns the data bus to input and zeroes
// the data and address latches.
func (d *Driver) EndWrite() error {
	d.mode = modeIdle
	if err := d.release(Strobes); err != nil {
		return err
	}
	if err := d.setDirection(Data, AllInput); err != nil {
		return err
	}
	if err := d.drive(Data, 0); err != nil {
		return err
	}
	if err := d.driveAddress(0); err != nil {
		return err
	}
	d.Settle()
	return nil
}

// Jumpers samples the three mode-select inputs.
func (d *Driver) Jumpers() (Jumpers, error) {
	v, err := d.backend.Sample(Control)
	if err != nil {
		return Jumpers{}, fmt.Errorf("sample %s: %w", Control, err)
	}
	return jumpersFromPort(v), nil
}

// Settle waits one settle interval.
func (d *Driver) Settle() {
	d.config.Clock.Sleep(d.config.Settle)
}

// Wait blocks for a fixed duration on the driver's clock.
func (d *Driver) Wait(dur time.Duration) {
	d.config.Clock.Sleep(dur)
}

func (d *Driver) assert(lines byte) error {
	next := d.ctrl &^ lines
	if next&(WE|OE) == 0 {
		return ErrStrobeConflict
	}
	d.ctrl = next
	return d.drive(Control, d.ctrl)
}

func (d *Driver) release(lines byte) error {
	d.ctrl |= lines
	return d.drive(Control, d.ctrl)
}

func (d *Driver) driveAddress(address uint16) error {
	if err := d.drive(AddressLow, byte(address)); err != nil {
		return err
	}
	return d.drive(AddressHigh, byte(address>>8))
}

func (d *Driver) drive(g Group, v byte) error {
	if err := d.backend.Drive(g, v); err != nil {
		return fmt.Errorf("drive %s: %w", g, err)
	}
	return nil
}

func (d *Driver) setDirection(g Group, outputs byte) error {
	if err := d.backend.SetDirection(g, outputs); err != nil {
		return fmt.Errorf("set %s direction: %w", g, err)
	}
	return nil
}
