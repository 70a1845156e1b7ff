// Package bus drives a parallel memory bus one line group at a time.
//
// # Overview
//
// A parallel SRAM, FRAM, EEPROM or NOR-flash chip is wired to four 8-bit
// line groups:
//   - Control: write-enable (WE), output-enable (OE) and chip-enable (CE),
//     all active-low, plus three mode-select jumper inputs
//   - Data: the bidirectional data bus
//   - AddressLow / AddressHigh: the 16-bit address split over two ports
//
// The Driver sequences those groups with a fixed settle delay between every
// transition that affects the chip's setup/hold timing:
//
//	drv := bus.NewDriver(backend)
//	if err := drv.Init(); err != nil {
//	    log.Fatal(err)
//	}
//
//	drv.ConfigureForRead()
//	v, err := drv.ReadCycle(0x0123)
//	drv.EndRead()
//
// # Backends
//
// The physical pins are reached through the Backend interface. GPIOBackend maps
// every line onto a periph.io GPIO pin; the simchip package provides an
// in-memory chip model for tests and examples:
//
//	pins := bus.PinMap{
//	    Control:     [8]string{"", "", "GPIO2", "GPIO3", "GPIO4", "GPIO5", "GPIO6", "GPIO7"},
//	    Data:        [8]string{"GPIO8", "GPIO9", ...},
//	    ...
//	}
//	backend, err := bus.NewGPIOBackend(pins)
//
// # Timing
//
// Delays go through an injected Clock. The default SystemClock spins for
// sub-millisecond delays. FakeClock advances virtual time instead of sleeping.
package bus
