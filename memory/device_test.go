package memory

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/moffa90/go-parbus/bus"
	"github.com/moffa90/go-parbus/protocol"
	"github.com/moffa90/go-parbus/simchip"
)

// Mock logger for testing
type MockLogger struct {
	mu        sync.Mutex
	debugMsgs []string
	infoMsgs  []string
	errorMsgs []string
}

func (l *MockLogger) Debug(msg string, kv ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debugMsgs = append(l.debugMsgs, msg)
}

func (l *MockLogger) Info(msg string, kv ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infoMsgs = append(l.infoMsgs, msg)
}

func (l *MockLogger) Error(msg string, kv ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorMsgs = append(l.errorMsgs, msg)
}

// recordingBackend wraps a backend, remembers the last control level driven
// and can fail one kind of call.
type recordingBackend struct {
	bus.Backend
	lastControl byte
	dataDir     byte
	failSample  error
}

func (r *recordingBackend) SetDirection(g bus.Group, outputs byte) error {
	if g == bus.Data {
		r.dataDir = outputs
	}
	return r.Backend.SetDirection(g, outputs)
}

func (r *recordingBackend) Drive(g bus.Group, value byte) error {
	if g == bus.Control {
		r.lastControl = value
	}
	return r.Backend.Drive(g, value)
}

func (r *recordingBackend) Sample(g bus.Group) (byte, error) {
	if g == bus.Data && r.failSample != nil {
		return 0, r.failSample
	}
	return r.Backend.Sample(g)
}

func newTestDevice(t *testing.T, backend bus.Backend, opts ...Option) (*Device, *bus.FakeClock) {
	t.Helper()
	clock := bus.NewFakeClock()
	drv := bus.NewDriver(backend, bus.WithClock(clock))
	if err := drv.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return New(drv, opts...), clock
}

func assertNoFaults(t *testing.T, chip *simchip.Chip) {
	t.Helper()
	if f := chip.Faults(); len(f) > 0 {
		t.Errorf("unexpected faults: %v", f)
	}
}

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		dev, _ := newTestDevice(t, simchip.NewSRAM())
		if dev.config.PollTimeout != time.Second {
			t.Errorf("PollTimeout = %v", dev.config.PollTimeout)
		}
		if dev.config.IDExitDelay != 50*time.Microsecond {
			t.Errorf("IDExitDelay = %v", dev.config.IDExitDelay)
		}
	})

	t.Run("with all options", func(t *testing.T) {
		logger := &MockLogger{}
		dev, _ := newTestDevice(t, simchip.NewSRAM(),
			WithProgressCallback(func(p Progress) {}),
			WithLogger(logger),
			WithPollTimeout(2*time.Second),
			WithMaxPollAttempts(100),
			WithPollInterval(time.Microsecond),
			WithIDExitDelay(time.Millisecond),
		)
		if dev.config.Logger != logger {
			t.Error("logger not set")
		}
		if dev.config.ProgressCallback == nil {
			t.Error("progress callback not set")
		}
		if dev.config.PollTimeout != 2*time.Second || dev.config.MaxPollAttempts != 100 {
			t.Errorf("poll config = %v/%d", dev.config.PollTimeout, dev.config.MaxPollAttempts)
		}
		if dev.config.PollInterval != time.Microsecond || dev.config.IDExitDelay != time.Millisecond {
			t.Errorf("delays = %v/%v", dev.config.PollInterval, dev.config.IDExitDelay)
		}
	})

	t.Run("invalid options ignored", func(t *testing.T) {
		dev, _ := newTestDevice(t, simchip.NewSRAM(),
			WithPollTimeout(0),
			WithMaxPollAttempts(-1),
			WithPollInterval(-1),
		)
		if dev.config.PollTimeout != time.Second || dev.config.MaxPollAttempts != 0 {
			t.Errorf("config = %+v", dev.config)
		}
	})

	t.Run("nil driver panics", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("expected panic")
			}
		}()
		New(nil)
	})
}

func TestWriteReadRoundTrip(t *testing.T) {
	for _, kind := range []simchip.Kind{simchip.SRAM, simchip.FRAM} {
		t.Run(kind.String(), func(t *testing.T) {
			chip := simchip.New(kind)
			dev, _ := newTestDevice(t, chip)

			if err := dev.WriteByte(0x0123, 0xC3); err != nil {
				t.Fatalf("WriteByte() error = %v", err)
			}
			got, err := dev.ReadByte(0x0123)
			if err != nil {
				t.Fatalf("ReadByte() error = %v", err)
			}
			if got != 0xC3 {
				t.Errorf("ReadByte() = 0x%02X, want 0xC3", got)
			}
			assertNoFaults(t, chip)
		})
	}
}

func TestWriteBlockReadBlock(t *testing.T) {
	chip := simchip.NewSRAM()
	dev, _ := newTestDevice(t, chip)

	data := make([]byte, 300)
	for i := range data {
		data[i] = byte(i * 7)
	}

	if err := dev.WriteBlock(0x0100, data); err != nil {
		t.Fatalf("WriteBlock() error = %v", err)
	}
	got, err := dev.ReadBlock(0x0100, len(data))
	if err != nil {
		t.Fatalf("ReadBlock() error = %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("ReadBlock() = % X\nwant % X", got[:16], data[:16])
	}
	if n := len(chip.Writes()); n != len(data) {
		t.Errorf("chip saw %d writes, want %d", n, len(data))
	}
	assertNoFaults(t, chip)
}

func TestEmptyBlock(t *testing.T) {
	chip := simchip.NewFlash()
	dev, _ := newTestDevice(t, chip)
	ctx := context.Background()
	before := chip.Ops()

	if _, err := dev.ReadBlock(0, 0); !errors.Is(err, ErrEmptyBlock) {
		t.Errorf("ReadBlock() error = %v, want ErrEmptyBlock", err)
	}
	if err := dev.WriteBlock(0, nil); !errors.Is(err, ErrEmptyBlock) {
		t.Errorf("WriteBlock() error = %v, want ErrEmptyBlock", err)
	}
	if err := dev.ProgramBlock(ctx, 0, []byte{}); !errors.Is(err, ErrEmptyBlock) {
		t.Errorf("ProgramBlock() error = %v, want ErrEmptyBlock", err)
	}

	if chip.Ops() != before {
		t.Errorf("bus touched: %d ops", chip.Ops()-before)
	}
}

func TestAddressRange(t *testing.T) {
	chip := simchip.NewSRAM()
	dev, _ := newTestDevice(t, chip)
	before := chip.Ops()

	_, err := dev.ReadBlock(0xFFF0, 0x20)
	var rangeErr *AddressRangeError
	if !errors.As(err, &rangeErr) {
		t.Fatalf("ReadBlock() error = %v, want AddressRangeError", err)
	}
	if rangeErr.Address != 0xFFF0 || rangeErr.Length != 0x20 {
		t.Errorf("AddressRangeError = %+v", rangeErr)
	}

	// The last address is reachable.
	if _, err := dev.ReadBlock(0xFFF0, 0x10); err != nil {
		t.Errorf("ReadBlock() to 0xFFFF error = %v", err)
	}
	if err := dev.WriteBlock(0xFFFF, []byte{1, 2}); !errors.As(err, &rangeErr) {
		t.Errorf("WriteBlock() error = %v, want AddressRangeError", err)
	}
	if chip.Ops() == before {
		t.Error("valid block did not touch the bus")
	}
}

func TestFlashProgramAndRead(t *testing.T) {
	chip := simchip.NewFlash()
	dev, _ := newTestDevice(t, chip)
	ctx := context.Background()

	if err := dev.ProgramByte(ctx, 0x0042, 0x3C); err != nil {
		t.Fatalf("ProgramByte() error = %v", err)
	}
	got, err := dev.ReadByte(0x0042)
	if err != nil {
		t.Fatalf("ReadByte() error = %v", err)
	}
	if got != 0x3C {
		t.Errorf("ReadByte() = 0x%02X, want 0x3C", got)
	}

	// Unlock, unlock, command, target.
	writes := chip.Writes()
	want := protocol.BuildProgramSeq(0x0042, 0x3C)
	if len(writes) != len(want) {
		t.Fatalf("writes = %v, want %v", writes, want)
	}
	for i := range want {
		if writes[i] != want[i] {
			t.Errorf("write %d = %v, want %v", i, writes[i], want[i])
		}
	}
	assertNoFaults(t, chip)
}

func TestChipEraseThenProgramBlock(t *testing.T) {
	chip := simchip.NewFlash()
	chip.Load(0x0000, bytes.Repeat([]byte{0x00}, 64))
	dev, _ := newTestDevice(t, chip)
	ctx := context.Background()

	if err := dev.ChipErase(ctx); err != nil {
		t.Fatalf("ChipErase() error = %v", err)
	}
	erased, err := dev.ReadBlock(0x0000, 0x1000)
	if err != nil {
		t.Fatalf("ReadBlock() after erase error = %v", err)
	}
	for i, b := range erased {
		if b != 0xFF {
			t.Fatalf("ReadBlock() after erase: 0x%04X = 0x%02X, want 0xFF", i, b)
		}
	}
	top, err := dev.ReadBlock(0xFFF0, 16)
	if err != nil {
		t.Fatalf("ReadBlock(0xFFF0) error = %v", err)
	}
	if !bytes.Equal(top, bytes.Repeat([]byte{0xFF}, 16)) {
		t.Errorf("ReadBlock(0xFFF0) after erase = % X", top)
	}

	data := make([]byte, 16)
	for i := range data {
		data[i] = byte(i)
	}
	if err := dev.ProgramBlock(ctx, 0x0000, data); err != nil {
		t.Fatalf("ProgramBlock() error = %v", err)
	}
	got, err := dev.ReadBlock(0x0000, len(data))
	if err != nil {
		t.Fatalf("ReadBlock() error = %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("ReadBlock() = % X, want % X", got, data)
	}
	assertNoFaults(t, chip)
}

func TestSectorErase(t *testing.T) {
	chip := simchip.NewFlash(simchip.WithSectorSize(0x1000))
	chip.Load(0x0FFF, []byte{0x00, 0x00})
	chip.Load(0x1FFF, []byte{0x00, 0x00})
	dev, _ := newTestDevice(t, chip)

	if err := dev.SectorErase(context.Background(), 0x10); err != nil {
		t.Fatalf("SectorErase() error = %v", err)
	}

	tests := []struct {
		addr uint16
		want byte
	}{
		{0x0FFF, 0x00}, // previous sector untouched
		{0x1000, 0xFF},
		{0x1FFF, 0xFF},
		{0x2000, 0x00}, // next sector untouched
	}
	for _, tt := range tests {
		if got := chip.Peek(tt.addr); got != tt.want {
			t.Errorf("Peek(0x%04X) = 0x%02X, want 0x%02X", tt.addr, got, tt.want)
		}
	}

	writes := chip.Writes()
	last := writes[len(writes)-1]
	if last != (protocol.Cycle{Addr: 0x1000, Data: protocol.CmdSectorErase}) {
		t.Errorf("last write = %v", last)
	}
}

func TestReadID(t *testing.T) {
	chip := simchip.NewFlash()
	logger := &MockLogger{}
	dev, clock := newTestDevice(t, chip, WithLogger(logger))

	id, err := dev.ReadID()
	if err != nil {
		t.Fatalf("ReadID() error = %v", err)
	}
	if id != 0xBFB5 {
		t.Errorf("ReadID() = %s, want 0xbfb5", id)
	}
	if chip.InIDMode() {
		t.Error("chip left in ID mode")
	}
	if clock.Slept() < 50*time.Microsecond {
		t.Errorf("exit delay not observed: slept %v", clock.Slept())
	}

	// Array reads work again afterwards.
	got, err := dev.ReadByte(0x0000)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0xFF {
		t.Errorf("ReadByte() after ID = 0x%02X, want 0xFF", got)
	}
	if len(logger.debugMsgs) == 0 {
		t.Error("expected debug log for device ID")
	}
}

func TestReadIDExitsOnError(t *testing.T) {
	chip := simchip.NewFlash()
	backend := &recordingBackend{Backend: chip, failSample: errors.New("sample failed")}
	dev, _ := newTestDevice(t, backend)

	_, err := dev.ReadID()
	if !errors.Is(err, backend.failSample) {
		t.Fatalf("ReadID() error = %v, want wrapped sample error", err)
	}
	if chip.InIDMode() {
		t.Error("chip left in ID mode after failed read")
	}
}

func TestProgramPollTimeout(t *testing.T) {
	tests := []struct {
		name    string
		chip    *simchip.Chip
		opts    []Option
		prepare func(c *simchip.Chip)
		value   byte
		check   func(t *testing.T, e *PollTimeoutError)
	}{
		{
			name:  "stuck busy hits attempt limit",
			chip:  simchip.NewFlash(simchip.WithStuck()),
			opts:  []Option{WithMaxPollAttempts(10)},
			value: 0x42,
			check: func(t *testing.T, e *PollTimeoutError) {
				if e.Attempts != 10 {
					t.Errorf("Attempts = %d, want 10", e.Attempts)
				}
				if e.Last != ^byte(0x42) {
					t.Errorf("Last = 0x%02X, want complement", e.Last)
				}
			},
		},
		{
			name:  "stuck busy hits deadline",
			chip:  simchip.NewFlash(simchip.WithStuck()),
			opts:  []Option{WithPollTimeout(20 * time.Microsecond)},
			value: 0x42,
			check: func(t *testing.T, e *PollTimeoutError) {
				if e.Elapsed < 20*time.Microsecond {
					t.Errorf("Elapsed = %v, want at least 20µs", e.Elapsed)
				}
			},
		},
		{
			name: "programming set bits never verifies",
			chip: simchip.NewFlash(),
			opts: []Option{WithMaxPollAttempts(50)},
			prepare: func(c *simchip.Chip) {
				c.Load(0x0010, []byte{0x00})
			},
			value: 0xFF,
			check: func(t *testing.T, e *PollTimeoutError) {
				if e.Last != 0x00 || e.Expected != 0xFF {
					t.Errorf("Last/Expected = 0x%02X/0x%02X", e.Last, e.Expected)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.prepare != nil {
				tt.prepare(tt.chip)
			}
			logger := &MockLogger{}
			dev, _ := newTestDevice(t, tt.chip, append(tt.opts, WithLogger(logger))...)

			err := dev.ProgramByte(context.Background(), 0x0010, tt.value)
			if !IsPollTimeout(err) {
				t.Fatalf("ProgramByte() error = %v, want PollTimeoutError", err)
			}
			var timeoutErr *PollTimeoutError
			errors.As(err, &timeoutErr)
			if timeoutErr.Operation != "program" || timeoutErr.Address != 0x0010 {
				t.Errorf("PollTimeoutError = %+v", timeoutErr)
			}
			tt.check(t, timeoutErr)

			if len(logger.errorMsgs) == 0 {
				t.Error("expected error log")
			}
			assertNoFaults(t, tt.chip)
		})
	}
}

func TestContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	t.Run("program block", func(t *testing.T) {
		chip := simchip.NewFlash()
		dev, _ := newTestDevice(t, chip)
		before := chip.Ops()

		err := dev.ProgramBlock(ctx, 0, []byte{1, 2, 3})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("ProgramBlock() error = %v, want context.Canceled", err)
		}
		if chip.Ops() != before {
			t.Error("bus touched after cancellation")
		}
	})

	t.Run("erase poll", func(t *testing.T) {
		chip := simchip.NewFlash(simchip.WithStuck())
		dev, _ := newTestDevice(t, chip)

		err := dev.ChipErase(ctx)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("ChipErase() error = %v, want context.Canceled", err)
		}
		if IsPollTimeout(err) {
			t.Error("cancellation reported as timeout")
		}
	})
}

func TestProgressCallback(t *testing.T) {
	chip := simchip.NewFlash()
	var updates []Progress
	dev, _ := newTestDevice(t, chip, WithProgressCallback(func(p Progress) {
		updates = append(updates, p)
	}))

	if err := dev.ProgramBlock(context.Background(), 0x0200, []byte{0xA0, 0xA1, 0xA2, 0xA3}); err != nil {
		t.Fatalf("ProgramBlock() error = %v", err)
	}

	if len(updates) != 5 {
		t.Fatalf("got %d progress updates, want 5", len(updates))
	}
	for i, p := range updates[:4] {
		if p.Phase != PhaseProgramming {
			t.Errorf("update %d phase = %s", i, p.Phase)
		}
		if p.Address != 0x0200+uint16(i) || p.Current != i+1 || p.Total != 4 {
			t.Errorf("update %d = %+v", i, p)
		}
	}
	last := updates[4]
	if last.Phase != PhaseComplete || last.Percentage != 100 {
		t.Errorf("final update = %+v", last)
	}
	if last.ElapsedTime <= 0 {
		t.Error("elapsed time not measured on the bus clock")
	}
}

func TestEEPROMUnprotect(t *testing.T) {
	chip := simchip.NewEEPROM(simchip.WithProtection())
	dev, _ := newTestDevice(t, chip)

	// Protected: a plain write is ignored.
	if err := dev.WriteByte(0x0010, 0x12); err != nil {
		t.Fatal(err)
	}
	if got := chip.Peek(0x0010); got != 0xFF {
		t.Fatalf("protected write reached array: 0x%02X", got)
	}

	if err := dev.DisableWriteProtection(); err != nil {
		t.Fatalf("DisableWriteProtection() error = %v", err)
	}
	if chip.Protected() {
		t.Fatal("still protected")
	}

	if err := dev.WriteByte(0x0010, 0x12); err != nil {
		t.Fatal(err)
	}
	if got := chip.Peek(0x0010); got != 0x12 {
		t.Errorf("Peek() = 0x%02X, want 0x12", got)
	}
}

func TestWriteBytePolled(t *testing.T) {
	chip := simchip.NewEEPROM()
	dev, _ := newTestDevice(t, chip)

	if err := dev.WriteBytePolled(context.Background(), 0x0030, 0x5A); err != nil {
		t.Fatalf("WriteBytePolled() error = %v", err)
	}
	if chip.Busy() {
		t.Error("returned while the write cycle was still running")
	}
	if chip.Protected() {
		t.Error("plain write enabled protection")
	}
	got, err := dev.ReadByte(0x0030)
	if err != nil || got != 0x5A {
		t.Errorf("ReadByte() = 0x%02X, %v", got, err)
	}
}

func TestEEPROMProgramByte(t *testing.T) {
	chip := simchip.NewEEPROM()
	chip.Load(0x0020, []byte{0x00})
	dev, _ := newTestDevice(t, chip)

	// EEPROM can set bits, unlike flash.
	if err := dev.ProgramByte(context.Background(), 0x0020, 0xF0); err != nil {
		t.Fatalf("ProgramByte() error = %v", err)
	}
	if got := chip.Peek(0x0020); got != 0xF0 {
		t.Errorf("Peek() = 0x%02X, want 0xF0", got)
	}
	if !chip.Protected() {
		t.Error("protected write did not enable protection")
	}
}

func TestSessionAlwaysEnds(t *testing.T) {
	chip := simchip.NewSRAM()
	backend := &recordingBackend{Backend: chip}
	dev, _ := newTestDevice(t, backend)

	if err := dev.WriteBlock(0x0000, []byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	if backend.dataDir != bus.AllInput {
		t.Errorf("data direction after write = 0x%02X, want input", backend.dataDir)
	}
	if backend.lastControl&bus.Strobes != bus.Strobes {
		t.Errorf("strobes left asserted: 0x%02X", backend.lastControl)
	}

	backend.failSample = errors.New("sample failed")
	if _, err := dev.ReadByte(0x0001); !errors.Is(err, backend.failSample) {
		t.Fatalf("ReadByte() error = %v", err)
	}
	if backend.lastControl&bus.Strobes != bus.Strobes {
		t.Errorf("strobes left asserted after failed read: 0x%02X", backend.lastControl)
	}

	backend.failSample = nil
	got, err := dev.ReadByte(0x0001)
	if err != nil || got != 2 {
		t.Errorf("ReadByte() after failure = 0x%02X, %v", got, err)
	}
}

func TestConcurrentOperations(t *testing.T) {
	chip := simchip.NewSRAM()
	dev, _ := newTestDevice(t, chip)

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			base := uint16(g) * 0x100
			data := bytes.Repeat([]byte{byte(0x10 + g)}, 32)
			for i := 0; i < 10; i++ {
				if err := dev.WriteBlock(base, data); err != nil {
					t.Errorf("WriteBlock() error = %v", err)
					return
				}
				got, err := dev.ReadBlock(base, len(data))
				if err != nil {
					t.Errorf("ReadBlock() error = %v", err)
					return
				}
				if !bytes.Equal(got, data) {
					t.Errorf("goroutine %d read % X", g, got[:4])
					return
				}
			}
		}(g)
	}
	wg.Wait()
	assertNoFaults(t, chip)
}

func TestEraseLogging(t *testing.T) {
	chip := simchip.NewFlash()
	logger := &MockLogger{}
	var phases []string
	dev, _ := newTestDevice(t, chip,
		WithLogger(logger),
		WithProgressCallback(func(p Progress) { phases = append(phases, p.Phase) }),
	)

	if err := dev.ChipErase(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(logger.infoMsgs) != 1 || logger.infoMsgs[0] != "chip erase complete" {
		t.Errorf("info logs = %v", logger.infoMsgs)
	}
	if len(phases) != 1 || phases[0] != PhaseErasing {
		t.Errorf("phases = %v", phases)
	}
}
