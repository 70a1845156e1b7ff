// Package simchip simulates parallel memory chips behind a bus.Backend.
//
// A Chip watches the control, address and data line groups exactly as a real
// device would: a write is latched on the first rising edge of WE or CE, and
// the chip drives the data bus while CE and OE are low. Flash and EEPROM
// models run the JEDEC unlock state machine, so the complete memory.Device
// layer can be exercised without hardware:
//
//	chip := simchip.NewFlash()
//	drv := bus.NewDriver(chip, bus.WithClock(bus.NewFakeClock()))
//	dev := memory.New(drv)
//
//	id, _ := dev.ReadID() // 0xbfb5
//
// Supported models:
//   - SRAM (62256) and FRAM (FM1808): plain byte writes, no busy time
//   - EEPROM (AT28C256): software data protection, DQ7 data polling
//   - Flash (SST39SF010A): byte program, sector/chip erase, software ID mode
//
// Electrical mistakes that would damage real hardware (both strobes low,
// the MCU driving the data bus while the chip outputs) are recorded and can
// be inspected with Faults.
package simchip
