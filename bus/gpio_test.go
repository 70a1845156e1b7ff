package bus

import (
	"fmt"
	"strings"
	"testing"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

func newTestPins(prefix string) [8]*gpiotest.Pin {
	var pins [8]*gpiotest.Pin
	for i := range pins {
		pins[i] = &gpiotest.Pin{N: fmt.Sprintf("%s%d", prefix, i), Num: i}
	}
	return pins
}

func asPinIO(pins [8]*gpiotest.Pin) [8]gpio.PinIO {
	var out [8]gpio.PinIO
	for i, p := range pins {
		if p != nil {
			out[i] = p
		}
	}
	return out
}

func TestGPIOBackendDriveAndSample(t *testing.T) {
	ctrl := newTestPins("C")
	ctrl[0], ctrl[1] = nil, nil // PD0/PD1 carry the UART
	data := newTestPins("D")
	lo := newTestPins("L")
	hi := newTestPins("H")
	hi[7] = nil // A15 tied on the board

	b := NewGPIOBackendFromPins(asPinIO(ctrl), asPinIO(data), asPinIO(lo), asPinIO(hi))

	if err := b.SetDirection(AddressLow, AllOutput); err != nil {
		t.Fatal(err)
	}
	if err := b.Drive(AddressLow, 0xA5); err != nil {
		t.Fatal(err)
	}
	for i, p := range lo {
		want := gpio.Level(0xA5&(1<<i) != 0)
		if p.L != want {
			t.Errorf("address-low line %d = %v, want %v", i, p.L, want)
		}
	}

	if err := b.SetDirection(AddressHigh, AllOutput); err != nil {
		t.Fatal(err)
	}
	if err := b.Drive(AddressHigh, 0xFF); err != nil {
		t.Fatalf("Drive() with unwired line error = %v", err)
	}

	if err := b.SetDirection(Data, AllInput); err != nil {
		t.Fatal(err)
	}
	data[0].L = gpio.High
	data[3].L = gpio.High
	data[7].L = gpio.High
	v, err := b.Sample(Data)
	if err != nil {
		t.Fatalf("Sample() error = %v", err)
	}
	if v != 0x89 {
		t.Errorf("Sample(Data) = 0x%02X, want 0x89", v)
	}
}

func TestGPIOBackendPullUps(t *testing.T) {
	ctrl := newTestPins("P")
	b := NewGPIOBackendFromPins(asPinIO(ctrl), [8]gpio.PinIO{}, [8]gpio.PinIO{}, [8]gpio.PinIO{})

	if err := b.SetDirection(Control, Strobes); err != nil {
		t.Fatal(err)
	}
	if err := b.Drive(Control, Strobes|JumperMask); err != nil {
		t.Fatal(err)
	}

	for _, bit := range []int{BitJ0, BitJ1, BitJ2} {
		if ctrl[bit].P != gpio.PullUp {
			t.Errorf("jumper line %d pull = %v, want PullUp", bit, ctrl[bit].P)
		}
	}
	if ctrl[0].P != gpio.Float {
		t.Errorf("line 0 pull = %v, want Float", ctrl[0].P)
	}
	for _, bit := range []int{BitWE, BitOE, BitCE} {
		if ctrl[bit].L != gpio.High {
			t.Errorf("strobe line %d = %v, want High", bit, ctrl[bit].L)
		}
	}

	// Installing jumper J1 pulls its line low.
	ctrl[BitJ1].L = gpio.Low
	v, err := b.Sample(Control)
	if err != nil {
		t.Fatal(err)
	}
	if j := jumpersFromPort(v); !j.WriteEnabled || j.EraseEnabled || !j.UsePattern {
		t.Errorf("jumpers = %+v", j)
	}
}

// countingPin counts the configuration calls reaching a pin.
type countingPin struct {
	*gpiotest.Pin
	ins, outs int
}

func (p *countingPin) In(pull gpio.Pull, edge gpio.Edge) error {
	p.ins++
	return p.Pin.In(pull, edge)
}

func (p *countingPin) Out(l gpio.Level) error {
	p.outs++
	return p.Pin.Out(l)
}

func TestGPIOBackendTouchesOnlyChangedPins(t *testing.T) {
	var ctrl, data [8]*countingPin
	var ctrlIO, dataIO [8]gpio.PinIO
	for i := range ctrl {
		ctrl[i] = &countingPin{Pin: &gpiotest.Pin{N: fmt.Sprintf("C%d", i), Num: i}}
		data[i] = &countingPin{Pin: &gpiotest.Pin{N: fmt.Sprintf("D%d", i), Num: 10 + i}}
		ctrlIO[i], dataIO[i] = ctrl[i], data[i]
	}
	b := NewGPIOBackendFromPins(ctrlIO, dataIO, [8]gpio.PinIO{}, [8]gpio.PinIO{})

	if err := b.SetDirection(Control, Strobes); err != nil {
		t.Fatal(err)
	}
	if err := b.Drive(Control, Strobes|JumperMask); err != nil {
		t.Fatal(err)
	}
	if err := b.SetDirection(Data, AllInput); err != nil {
		t.Fatal(err)
	}

	snapshot := func(pins [8]*countingPin) (calls [8]int) {
		for i, p := range pins {
			calls[i] = p.ins + p.outs
		}
		return calls
	}
	ctrlBefore, dataBefore := snapshot(ctrl), snapshot(data)

	// A read strobe toggles OE only.
	if err := b.Drive(Control, (Strobes|JumperMask)&^OE); err != nil {
		t.Fatal(err)
	}
	if err := b.Drive(Control, Strobes|JumperMask); err != nil {
		t.Fatal(err)
	}
	// Clearing the latch of an input bus that already floats changes nothing.
	if err := b.Drive(Data, 0x00); err != nil {
		t.Fatal(err)
	}

	ctrlAfter, dataAfter := snapshot(ctrl), snapshot(data)
	for bit := range ctrl {
		want := ctrlBefore[bit]
		if bit == BitOE {
			want += 2
		}
		if ctrlAfter[bit] != want {
			t.Errorf("control line %d configured %d times, want %d", bit, ctrlAfter[bit], want)
		}
	}
	if dataAfter != dataBefore {
		t.Errorf("data lines reconfigured: %v -> %v", dataBefore, dataAfter)
	}
	if ctrl[BitOE].L != gpio.High {
		t.Errorf("OE = %v, want High", ctrl[BitOE].L)
	}

	// A direction change reaches every pin of the group.
	if err := b.SetDirection(Data, AllOutput); err != nil {
		t.Fatal(err)
	}
	for i, p := range data {
		if p.outs != 1 {
			t.Errorf("data line %d Out calls = %d, want 1", i, p.outs)
		}
	}
}

func TestGPIOBackendUnknownGroup(t *testing.T) {
	b := NewGPIOBackendFromPins([8]gpio.PinIO{}, [8]gpio.PinIO{}, [8]gpio.PinIO{}, [8]gpio.PinIO{})
	if err := b.Drive(Group(5), 0); err == nil {
		t.Error("expected error")
	}
	if err := b.SetDirection(Group(5), 0); err == nil {
		t.Error("expected error")
	}
	if _, err := b.Sample(Group(5)); err == nil {
		t.Error("expected error")
	}
}

func TestNewGPIOBackend(t *testing.T) {
	var m PinMap
	for i := 0; i < 8; i++ {
		for _, g := range []struct {
			prefix string
			base   int
			names  *[8]string
		}{
			{"PARBUS_TEST_D", 100, &m.Data},
			{"PARBUS_TEST_L", 110, &m.AddressLow},
			{"PARBUS_TEST_H", 120, &m.AddressHigh},
		} {
			name := fmt.Sprintf("%s%d", g.prefix, i)
			if err := gpioreg.Register(&gpiotest.Pin{N: name, Num: g.base + i}); err != nil {
				t.Fatalf("Register(%s) error = %v", name, err)
			}
			g.names[i] = name
		}
	}
	for _, bit := range []int{BitWE, BitOE, BitCE} {
		name := fmt.Sprintf("PARBUS_TEST_C%d", bit)
		if err := gpioreg.Register(&gpiotest.Pin{N: name, Num: 200 + bit}); err != nil {
			t.Fatalf("Register(%s) error = %v", name, err)
		}
		m.Control[bit] = name
	}

	t.Run("valid", func(t *testing.T) {
		b, err := NewGPIOBackend(m)
		if err != nil {
			t.Fatalf("NewGPIOBackend() error = %v", err)
		}
		drv := NewDriver(b, WithClock(NewFakeClock()))
		if err := drv.Init(); err != nil {
			t.Fatalf("Init() error = %v", err)
		}
	})

	t.Run("unknown pin", func(t *testing.T) {
		bad := m
		bad.AddressHigh[7] = "PARBUS_TEST_MISSING"
		_, err := NewGPIOBackend(bad)
		if err == nil || !strings.Contains(err.Error(), "unknown pin") {
			t.Errorf("error = %v, want unknown pin", err)
		}
	})

	t.Run("missing strobe", func(t *testing.T) {
		bad := m
		bad.Control[BitOE] = ""
		_, err := NewGPIOBackend(bad)
		if err == nil || !strings.Contains(err.Error(), "strobe pin is required") {
			t.Errorf("error = %v, want strobe pin is required", err)
		}
	})

	t.Run("missing data line", func(t *testing.T) {
		bad := m
		bad.Data[4] = ""
		_, err := NewGPIOBackend(bad)
		if err == nil || !strings.Contains(err.Error(), "data pin is required") {
			t.Errorf("error = %v, want data pin is required", err)
		}
	})
}
