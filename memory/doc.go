// Package memory provides whole-device operations on a parallel memory chip.
//
// # Overview
//
// A Device sits on top of a bus.Driver and composes read and write cycles
// into the operations a programmer needs:
//   - Reading single bytes and blocks
//   - Writing SRAM, FRAM and unprotected EEPROM directly
//   - Programming JEDEC NOR flash with the three-cycle unlock
//   - Chip and sector erase with data polling
//   - Reading the manufacturer and device codes in software ID mode
//   - Disabling AT28C256 software data protection
//
// # Basic Usage
//
//	drv := bus.NewDriver(backend)
//	if err := drv.Init(); err != nil {
//	    log.Fatal(err)
//	}
//	dev := memory.New(drv)
//
//	id, err := dev.ReadID()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("ID %s\n", id)
//
//	if err := dev.ChipErase(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	err = dev.ProgramBlock(ctx, 0x0000, image)
//
// # Polling
//
// Program and erase complete asynchronously inside the chip. The device
// polls the affected address until it returns the expected value. Polls
// are bounded by WithPollTimeout (measured on the bus clock), by
// WithMaxPollAttempts and by the context. A bounded poll that gives up
// returns a *PollTimeoutError:
//
//	dev := memory.New(drv,
//	    memory.WithPollTimeout(2*time.Second),
//	    memory.WithMaxPollAttempts(100000),
//	)
//
// # Bus Sessions
//
// Each operation is one or more bus sessions. A session configures the
// data bus, runs its cycles, and always ends by releasing the strobes and
// floating the data bus, also when a cycle fails. Operations hold a mutex
// for their full duration so concurrent callers never interleave cycles.
//
// # Error Handling
//
// The package provides structured error types:
//   - ErrEmptyBlock: block operation with zero length
//   - AddressRangeError: block runs past address 0xFFFF
//   - PollTimeoutError: program or erase did not complete
//
// Errors from the bus backend are wrapped and can be matched with errors.Is.
package memory
