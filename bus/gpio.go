package bus

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// PinMap names the GPIO pin behind every line, indexed by bit position.
// An empty name marks a line that is not wired (for example an address line
// tied to a fixed level on the board).
type PinMap struct {
	Control     [8]string
	Data        [8]string
	AddressLow  [8]string
	AddressHigh [8]string
}

func (m PinMap) group(g Group) [8]string {
	switch g {
	case Control:
		return m.Control
	case Data:
		return m.Data
	case AddressLow:
		return m.AddressLow
	default:
		return m.AddressHigh
	}
}

// GPIOBackend drives the bus through periph.io GPIO pins.
type GPIOBackend struct {
	mu      sync.Mutex
	pins    [numGroups][8]gpio.PinIO
	outputs [numGroups]byte
	latch   [numGroups]byte

	// state last pushed to the pins; bits clear in applied are unknown
	applied    [numGroups]byte
	appliedOut [numGroups]byte
	appliedLat [numGroups]byte
}

// NewGPIOBackend resolves every named pin through the periph registry.
// host.Init must have been called first.
func NewGPIOBackend(m PinMap) (*GPIOBackend, error) {
	var pins [numGroups][8]gpio.PinIO
	for g := Group(0); g < numGroups; g++ {
		for bit, name := range m.group(g) {
			if name == "" {
				continue
			}
			p := gpioreg.ByName(name)
			if p == nil {
				return nil, fmt.Errorf("%s line %d: unknown pin %q", g, bit, name)
			}
			pins[g][bit] = p
		}
	}

	for _, bit := range []int{BitWE, BitOE, BitCE} {
		if pins[Control][bit] == nil {
			return nil, fmt.Errorf("%s line %d: strobe pin is required", Control, bit)
		}
	}
	for bit, p := range pins[Data] {
		if p == nil {
			return nil, fmt.Errorf("%s line %d: data pin is required", Data, bit)
		}
	}

	return NewGPIOBackendFromPins(pins[Control], pins[Data], pins[AddressLow], pins[AddressHigh]), nil
}

// NewGPIOBackendFromPins builds a backend from already resolved pins.
// Nil entries are treated as unwired lines.
func NewGPIOBackendFromPins(control, data, addrLow, addrHigh [8]gpio.PinIO) *GPIOBackend {
	b := &GPIOBackend{}
	b.pins[Control] = control
	b.pins[Data] = data
	b.pins[AddressLow] = addrLow
	b.pins[AddressHigh] = addrHigh
	return b
}

// SetDirection implements Backend.
func (b *GPIOBackend) SetDirection(g Group, outputs byte) error {
	if g < 0 || g >= numGroups {
		return fmt.Errorf("unknown group %s", g)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.outputs[g] = outputs
	return b.apply(g)
}

// Drive implements Backend.
func (b *GPIOBackend) Drive(g Group, value byte) error {
	if g < 0 || g >= numGroups {
		return fmt.Errorf("unknown group %s", g)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.latch[g] = value
	return b.apply(g)
}

// Sample implements Backend.
func (b *GPIOBackend) Sample(g Group) (byte, error) {
	if g < 0 || g >= numGroups {
		return 0, fmt.Errorf("unknown group %s", g)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	var v byte
	for bit, p := range b.pins[g] {
		if p != nil && p.Read() == gpio.High {
			v |= 1 << bit
		}
	}
	return v, nil
}

// apply pushes the direction and latch of a group to its pins. Input lines
// with a set latch bit get a pull-up, like an AVR PORT register. Only pins
// whose direction or latch bit changed since the last call are touched.
func (b *GPIOBackend) apply(g Group) error {
	changed := ^b.applied[g] |
		(b.outputs[g] ^ b.appliedOut[g]) |
		(b.latch[g] ^ b.appliedLat[g])

	for bit, p := range b.pins[g] {
		mask := byte(1) << bit
		if p == nil || changed&mask == 0 {
			continue
		}
		var err error
		if b.outputs[g]&mask != 0 {
			err = p.Out(gpio.Level(b.latch[g]&mask != 0))
		} else {
			pull := gpio.Float
			if b.latch[g]&mask != 0 {
				pull = gpio.PullUp
			}
			err = p.In(pull, gpio.NoEdge)
		}
		if err != nil {
			b.applied[g] &^= mask
			return fmt.Errorf("%s line %d (%s): %w", g, bit, p.Name(), err)
		}
		b.applied[g] |= mask
		b.appliedOut[g] = b.appliedOut[g]&^mask | b.outputs[g]&mask
		b.appliedLat[g] = b.appliedLat[g]&^mask | b.latch[g]&mask
	}
	return nil
}
