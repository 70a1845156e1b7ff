package main

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"periph.io/x/host/v3"

	"github.com/moffa90/go-parbus/bus"
	"github.com/moffa90/go-parbus/harness"
	"github.com/moffa90/go-parbus/image"
	"github.com/moffa90/go-parbus/memory"
	"github.com/moffa90/go-parbus/simchip"
)

// session is an initialised bus with a device on top.
type session struct {
	drv  *bus.Driver
	dev  *memory.Device
	kind harness.Kind
}

func openSession(cmd *cobra.Command, opts ...memory.Option) (*session, error) {
	kind, err := harness.ParseKind(getString(cmd, "chip"))
	if err != nil {
		return nil, err
	}

	var (
		backend bus.Backend
		busOpts []bus.Option
	)

	switch name := getString(cmd, "backend"); name {
	case "sim":
		chip, err := newSimChip(kind, getString(cmd, "sim-load"))
		if err != nil {
			return nil, err
		}
		backend = chip
		busOpts = append(busOpts, bus.WithClock(bus.NewFakeClock()))
	case "gpio":
		if _, err := host.Init(); err != nil {
			return nil, fmt.Errorf("host initialization failed: %w", err)
		}
		m, err := pinMap(cmd)
		if err != nil {
			return nil, err
		}
		gpioBackend, err := bus.NewGPIOBackend(m)
		if err != nil {
			return nil, err
		}
		backend = gpioBackend
	default:
		return nil, fmt.Errorf("unknown backend %q (want sim or gpio)", name)
	}

	if d := getDuration(cmd, "settle"); d > 0 {
		busOpts = append(busOpts, bus.WithSettle(d))
	}
	drv := bus.NewDriver(backend, busOpts...)
	if err := drv.Init(); err != nil {
		return nil, fmt.Errorf("bus init: %w", err)
	}

	devOpts := []memory.Option{memory.WithLogger(newLogger("memory"))}
	if d := getDuration(cmd, "poll-timeout"); d > 0 {
		devOpts = append(devOpts, memory.WithPollTimeout(d))
	}
	devOpts = append(devOpts, opts...)

	log.WithFields(log.Fields{
		"backend": getString(cmd, "backend"),
		"chip":    string(kind),
	}).Debug("bus initialised")

	return &session{
		drv:  drv,
		dev:  memory.New(drv, devOpts...),
		kind: kind,
	}, nil
}

func newSimChip(kind harness.Kind, load string) (*simchip.Chip, error) {
	var chip *simchip.Chip
	switch kind {
	case harness.KindSRAM:
		chip = simchip.NewSRAM()
	case harness.KindFRAM:
		chip = simchip.NewFRAM()
	case harness.KindEEPROM:
		chip = simchip.NewEEPROM()
	default:
		chip = simchip.NewFlash()
	}

	if load != "" {
		img, err := image.Parse(load)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", load, err)
		}
		for _, seg := range img.Sorted() {
			chip.Load(seg.Address, seg.Data)
		}
	}
	return chip, nil
}

func pinMap(cmd *cobra.Command) (bus.PinMap, error) {
	var m bus.PinMap
	groups := []struct {
		flag string
		dst  *[8]string
	}{
		{"ctrl-pins", &m.Control},
		{"data-pins", &m.Data},
		{"addr-lo-pins", &m.AddressLow},
		{"addr-hi-pins", &m.AddressHigh},
	}

	for _, g := range groups {
		names := getStringSlice(cmd, g.flag)
		if len(names) != 8 {
			return m, fmt.Errorf("--%s needs 8 pin names, got %d", g.flag, len(names))
		}
		for i, n := range names {
			if n != "-" {
				g.dst[i] = n
			}
		}
	}
	return m, nil
}
