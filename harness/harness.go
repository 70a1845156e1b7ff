package harness

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/moffa90/go-parbus/memory"
	"github.com/moffa90/go-parbus/protocol"
)

// Harness runs the write-then-verify memory test against a device and
// prints the report.
type Harness struct {
	dev    *memory.Device
	config Config
	out    io.Writer
	logger memory.Logger
	color  bool
}

// Option is a functional option for configuring the Harness.
type Option func(*Harness)

// WithOutput sets the report destination. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(h *Harness) {
		if w != nil {
			h.out = w
			h.color = isTerminal(w)
		}
	}
}

// WithLogger sets a logger for harness progress messages.
func WithLogger(logger memory.Logger) Option {
	return func(h *Harness) {
		h.logger = logger
	}
}

// WithColor forces mismatch highlighting on or off. By default it is on
// when the output is a terminal.
func WithColor(enabled bool) Option {
	return func(h *Harness) {
		h.color = enabled
	}
}

// New creates a harness. The configuration is validated by Run.
//
// Example:
//
//	cfg := harness.DefaultConfig()
//	cfg.Passes = 1
//	h := harness.New(dev, cfg, harness.WithOutput(port))
//	result, err := h.Run(ctx)
func New(dev *memory.Device, cfg Config, opts ...Option) *Harness {
	if dev == nil {
		panic("device cannot be nil")
	}

	h := &Harness{
		dev:    dev,
		config: cfg,
		out:    os.Stdout,
		color:  isTerminal(os.Stdout),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run prints the banner and device ID, performs the write phase when
// enabled, then verifies the range until the configured number of passes
// is reached or ctx is cancelled. It returns the result of the last
// completed pass.
func (h *Harness) Run(ctx context.Context) (*Result, error) {
	if err := h.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := h.printf("\nSRAM or EEPROM or FLASH interface\n\n"); err != nil {
		return nil, err
	}

	id, err := h.dev.ReadID()
	if err != nil {
		return nil, fmt.Errorf("read device ID: %w", err)
	}
	line := fmt.Sprintf("\ndevice ID: 0x%04x", uint16(id))
	if part, ok := protocol.LookupPart(id); ok {
		line += fmt.Sprintf(" (%s %s)", part.Vendor, part.Name)
	}
	if err := h.printf("%s\n\n", line); err != nil {
		return nil, err
	}

	if h.config.Write {
		if err := h.writePhase(ctx); err != nil {
			return nil, err
		}
	}

	var last *Result
	for pass := 1; h.config.Passes == 0 || pass <= h.config.Passes; pass++ {
		result, err := h.Verify()
		if err != nil {
			return last, err
		}
		result.Pass = pass
		last = result

		if err := WriteReport(h.out, result, h.color); err != nil {
			return last, fmt.Errorf("write report: %w", err)
		}
		h.logInfo("verify pass complete", "pass", pass, "errors", result.Errors)

		if h.config.Passes != 0 && pass == h.config.Passes {
			break
		}

		timer := time.NewTimer(h.config.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return last, ctx.Err()
		case <-timer.C:
		}
	}

	return last, nil
}

// writePhase erases and writes the configured range.
func (h *Harness) writePhase(ctx context.Context) error {
	cfg := h.config

	what := "test pattern"
	if cfg.Image != nil {
		what = "burn image"
	}
	if err := h.printf("\nwriting %s...\n\n", what); err != nil {
		return err
	}

	if cfg.Erase != EraseNone {
		if cfg.Kind != KindFlash {
			h.logInfo("erase skipped", "kind", string(cfg.Kind))
		} else if err := h.erase(ctx); err != nil {
			return err
		}
	}

	if cfg.Kind == KindEEPROM && cfg.UnprotectEEPROM {
		if err := h.dev.DisableWriteProtection(); err != nil {
			return fmt.Errorf("disable write protection: %w", err)
		}
	}

	written := 0
	for a := int(cfg.Start); a <= int(cfg.End); a++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cancelled: %w", err)
		}

		addr := uint16(a)
		v, ok := cfg.Expected(addr)
		if !ok {
			continue
		}
		if err := h.writeByte(ctx, addr, v); err != nil {
			return fmt.Errorf("write 0x%04X: %w", addr, err)
		}
		written++
	}

	h.logInfo("write phase complete", "bytes", written, "kind", string(cfg.Kind))
	return nil
}

func (h *Harness) erase(ctx context.Context) error {
	switch h.config.Erase {
	case EraseChip:
		if err := h.dev.ChipErase(ctx); err != nil {
			return fmt.Errorf("chip erase: %w", err)
		}
	case EraseSector:
		if err := h.dev.SectorErase(ctx, h.config.EraseSector); err != nil {
			return fmt.Errorf("sector erase 0x%02X: %w", h.config.EraseSector, err)
		}
	}
	return nil
}

func (h *Harness) writeByte(ctx context.Context, addr uint16, v byte) error {
	switch h.config.Kind {
	case KindFlash:
		return h.dev.ProgramByte(ctx, addr, v)
	case KindEEPROM:
		if h.config.UnprotectEEPROM {
			return h.dev.WriteBytePolled(ctx, addr, v)
		}
		return h.dev.ProgramByte(ctx, addr, v)
	default:
		return h.dev.WriteByte(addr, v)
	}
}

// Verify reads the configured range in rows of 16 bytes aligned on Start
// and compares every byte with its expected value. The last row stops at
// End.
func (h *Harness) Verify() (*Result, error) {
	cfg := h.config
	result := &Result{}

	for a := int(cfg.Start); a <= int(cfg.End); a += RowSize {
		n := RowSize
		if rest := int(cfg.End) - a + 1; rest < n {
			n = rest
		}

		data, err := h.dev.ReadBlock(uint16(a), n)
		if err != nil {
			return nil, fmt.Errorf("read row 0x%04X: %w", a, err)
		}

		row := Row{Address: uint16(a), Data: data, Mismatch: make([]bool, n)}
		for i, got := range data {
			want, ok := cfg.Expected(uint16(a + i))
			if ok && got != want {
				row.Mismatch[i] = true
				row.Errors++
			}
		}
		result.Rows = append(result.Rows, row)
		result.Errors += row.Errors
	}

	return result, nil
}

func (h *Harness) printf(format string, args ...interface{}) error {
	if _, err := fmt.Fprintf(h.out, format, args...); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func (h *Harness) logInfo(msg string, keysAndValues ...interface{}) {
	if h.logger != nil {
		h.logger.Info(msg, keysAndValues...)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
