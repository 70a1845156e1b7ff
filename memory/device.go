package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/moffa90/go-parbus/bus"
	"github.com/moffa90/go-parbus/protocol"
)

// Device composes bus cycles into whole memory operations.
//
// Every public method holds the bus for its full duration and leaves it
// de-asserted and floating on return, including on error paths.
// Device is safe for concurrent use.
type Device struct {
	mu     sync.Mutex
	bus    *bus.Driver
	config Config
}

// New creates a Device on an initialised bus driver.
//
// Example:
//
//	drv := bus.NewDriver(backend)
//	drv.Init()
//	dev := memory.New(drv,
//	    memory.WithLogger(logger),
//	    memory.WithPollTimeout(500*time.Millisecond),
//	)
func New(drv *bus.Driver, opts ...Option) *Device {
	if drv == nil {
		panic("bus driver cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Device{
		bus:    drv,
		config: cfg,
	}
}

// ReadByte reads one byte.
func (d *Device) ReadByte(address uint16) (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.readByte(address)
}

// ReadBlock reads length bytes at consecutive ascending addresses.
// A zero length returns ErrEmptyBlock without touching the bus.
func (d *Device) ReadBlock(address uint16, length int) ([]byte, error) {
	if err := checkBlock(address, length); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]byte, length)
	for i := range out {
		v, err := d.readByte(address + uint16(i))
		if err != nil {
			return nil, fmt.Errorf("read 0x%04X: %w", address+uint16(i), err)
		}
		out[i] = v
	}
	return out, nil
}

// WriteByte writes one byte to SRAM, FRAM or an unprotected EEPROM.
//
// It bypasses the unlock sequence: on a flash device the cycle is ignored,
// use ProgramByte instead.
func (d *Device) WriteByte(address uint16, value byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.writeSequence(protocol.Sequence{{Addr: address, Data: value}})
}

// WriteBytePolled writes one byte without an unlock sequence and polls
// until it reads back. Used for AT28C256 writes with data protection
// disabled, where the internal write cycle takes up to 10 ms.
func (d *Device) WriteBytePolled(ctx context.Context, address uint16, value byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.writeSequence(protocol.Sequence{{Addr: address, Data: value}}); err != nil {
		return err
	}
	return d.poll(ctx, "write", address, value)
}

// WriteBlock writes data to consecutive addresses in a single bus session.
// An empty block returns ErrEmptyBlock without touching the bus.
func (d *Device) WriteBlock(address uint16, data []byte) error {
	if err := checkBlock(address, len(data)); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	seq := make(protocol.Sequence, len(data))
	for i, b := range data {
		seq[i] = protocol.Cycle{Addr: address + uint16(i), Data: b}
	}
	if err := d.writeSequence(seq); err != nil {
		return err
	}

	d.reportProgress(Progress{
		Phase:      PhaseWriting,
		Address:    address + uint16(len(data)-1),
		Current:    len(data),
		Total:      len(data),
		Percentage: 100,
	})
	return nil
}

// ProgramByte programs one flash byte: the three-cycle unlock, the target
// cycle, then data polling until the byte reads back as value.
//
// Programming only clears bits. When value is not a bitwise subset of the
// current content the poll never matches and a *PollTimeoutError is returned.
//
// Example:
//
//	if err := dev.ProgramByte(ctx, 0x0100, 0x42); err != nil {
//	    if memory.IsPollTimeout(err) {
//	        // device did not program
//	    }
//	}
func (d *Device) ProgramByte(ctx context.Context, address uint16, value byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.programByte(ctx, address, value)
}

// ProgramBlock programs data to consecutive addresses, issuing the full
// unlock sequence for every byte.
func (d *Device) ProgramBlock(ctx context.Context, address uint16, data []byte) error {
	if err := checkBlock(address, len(data)); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	clock := d.bus.Clock()
	start := clock.Now()

	for i, b := range data {
		addr := address + uint16(i)
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cancelled: %w", err)
		}

		if err := d.programByte(ctx, addr, b); err != nil {
			return fmt.Errorf("program byte %d at 0x%04X: %w", i, addr, err)
		}

		d.reportProgress(Progress{
			Phase:       PhaseProgramming,
			Address:     addr,
			Current:     i + 1,
			Total:       len(data),
			Percentage:  float64(i+1) / float64(len(data)) * 100,
			ElapsedTime: clock.Now().Sub(start),
		})
	}

	d.reportProgress(Progress{
		Phase:       PhaseComplete,
		Address:     address + uint16(len(data)-1),
		Current:     len(data),
		Total:       len(data),
		Percentage:  100,
		ElapsedTime: clock.Now().Sub(start),
	})

	d.logInfo("program complete",
		"address", fmt.Sprintf("0x%04X", address),
		"bytes", len(data),
		"elapsed", clock.Now().Sub(start).String(),
	)
	return nil
}

// ChipErase erases the whole device and polls address 0 until it reads 0xFF.
func (d *Device) ChipErase(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.erase(ctx, "chip erase", protocol.BuildChipEraseSeq(), 0)
}

// SectorErase erases the sector starting at highAddress<<8 and polls that
// address until it reads 0xFF.
func (d *Device) SectorErase(ctx context.Context, highAddress byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.erase(ctx, "sector erase", protocol.BuildSectorEraseSeq(highAddress),
		protocol.SectorAddress(highAddress))
}

// ReadID enters software ID mode, reads the manufacturer and device codes,
// and returns the device to array read mode. The exit sequence and the exit
// delay run even when an ID read fails.
func (d *Device) ReadID() (id protocol.DeviceID, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.writeSequence(protocol.BuildEnterIDSeq()); err != nil {
		return 0, fmt.Errorf("enter ID mode: %w", err)
	}

	defer func() {
		exitErr := d.writeSequence(protocol.BuildExitIDSeq())
		d.bus.Wait(d.config.IDExitDelay)
		if err == nil && exitErr != nil {
			err = fmt.Errorf("exit ID mode: %w", exitErr)
		}
	}()

	mfr, err := d.readByte(protocol.ManufacturerIDAddr)
	if err != nil {
		return 0, fmt.Errorf("read manufacturer code: %w", err)
	}
	dev, err := d.readByte(protocol.DeviceIDAddr)
	if err != nil {
		return 0, fmt.Errorf("read device code: %w", err)
	}

	id = protocol.NewDeviceID(mfr, dev)
	d.logDebug("device ID", "id", id.String(), "vendor", protocol.VendorName(mfr))
	return id, nil
}

// DisableWriteProtection sends the AT28C256 software data protection
// disable sequence. Nothing is verified.
func (d *Device) DisableWriteProtection() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.writeSequence(protocol.BuildDisableProtectionSeq()); err != nil {
		return err
	}
	d.logDebug("write protection disabled")
	return nil
}

func (d *Device) programByte(ctx context.Context, address uint16, value byte) error {
	if err := d.writeSequence(protocol.BuildProgramSeq(address, value)); err != nil {
		return err
	}
	return d.poll(ctx, "program", address, value)
}

func (d *Device) erase(ctx context.Context, op string, seq protocol.Sequence, pollAddr uint16) error {
	clock := d.bus.Clock()
	start := clock.Now()

	if err := d.writeSequence(seq); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	d.reportProgress(Progress{Phase: PhaseErasing, Address: pollAddr})

	if err := d.poll(ctx, op, pollAddr, protocol.ErasedByte); err != nil {
		return err
	}

	d.logInfo(op+" complete",
		"address", fmt.Sprintf("0x%04X", pollAddr),
		"elapsed", clock.Now().Sub(start).String(),
	)
	return nil
}

// poll reads address until it returns want (data polling), the context is
// cancelled, the attempt limit is reached or the deadline passes.
func (d *Device) poll(ctx context.Context, op string, address uint16, want byte) error {
	clock := d.bus.Clock()
	start := clock.Now()
	deadline := start.Add(d.config.PollTimeout)

	for attempts := 1; ; attempts++ {
		v, err := d.readByte(address)
		if err != nil {
			return fmt.Errorf("%s poll: %w", op, err)
		}
		if v == want {
			return nil
		}

		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s cancelled: %w", op, err)
		}

		now := clock.Now()
		exhausted := d.config.MaxPollAttempts > 0 && attempts >= d.config.MaxPollAttempts
		if exhausted || !now.Before(deadline) {
			timeoutErr := &PollTimeoutError{
				Operation: op,
				Address:   address,
				Expected:  want,
				Last:      v,
				Attempts:  attempts,
				Elapsed:   now.Sub(start),
			}
			d.logError("poll timed out", "error", timeoutErr.Error())
			return timeoutErr
		}

		clock.Sleep(d.config.PollInterval)
	}
}

func (d *Device) readByte(address uint16) (v byte, err error) {
	defer func() {
		if endErr := d.bus.EndRead(); err == nil && endErr != nil {
			err = fmt.Errorf("end read: %w", endErr)
		}
	}()

	if err := d.bus.ConfigureForRead(); err != nil {
		return 0, fmt.Errorf("configure for read: %w", err)
	}
	return d.bus.ReadCycle(address)
}

// writeSequence writes every cycle in one bus session.
func (d *Device) writeSequence(seq protocol.Sequence) (err error) {
	defer func() {
		if endErr := d.bus.EndWrite(); err == nil && endErr != nil {
			err = fmt.Errorf("end write: %w", endErr)
		}
	}()

	if err := d.bus.ConfigureForWrite(); err != nil {
		return fmt.Errorf("configure for write: %w", err)
	}
	for _, c := range seq {
		if err := d.bus.WriteCycle(c.Addr, c.Data); err != nil {
			return err
		}
	}
	return nil
}

func checkBlock(address uint16, length int) error {
	if length <= 0 {
		return ErrEmptyBlock
	}
	if int(address)+length > 1<<16 {
		return &AddressRangeError{Address: address, Length: length}
	}
	return nil
}

// reportProgress calls the progress callback if configured.
func (d *Device) reportProgress(progress Progress) {
	if d.config.ProgressCallback != nil {
		d.config.ProgressCallback(progress)
	}
}

// logDebug logs a debug message if a logger is configured.
func (d *Device) logDebug(msg string, keysAndValues ...interface{}) {
	if d.config.Logger != nil {
		d.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if a logger is configured.
func (d *Device) logInfo(msg string, keysAndValues ...interface{}) {
	if d.config.Logger != nil {
		d.config.Logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if a logger is configured.
func (d *Device) logError(msg string, keysAndValues ...interface{}) {
	if d.config.Logger != nil {
		d.config.Logger.Error(msg, keysAndValues...)
	}
}
