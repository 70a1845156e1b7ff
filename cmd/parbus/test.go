package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/moffa90/go-parbus/harness"
	"github.com/moffa90/go-parbus/image"
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Write a pattern or burn image and verify it periodically.",
	Long: `Run the bench memory test. The device ID is printed, the range is
optionally erased and written, then read back every --interval and printed
as a hex report with mismatch counts.

The write, erase and pattern/image choice comes from the board jumpers
(J0 write, J1 erase, J2 pattern) unless --no-jumpers is given or the
corresponding flag is set explicitly.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := testConfig(cmd)
		if err != nil {
			return err
		}

		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		cfg.Kind = s.kind

		if !getFlag(cmd, "no-jumpers") {
			j, err := s.drv.Jumpers()
			if err != nil {
				return err
			}
			mode := harness.ModeFromJumpers(j)
			log.WithFields(log.Fields{
				"write":   mode.Write,
				"erase":   mode.Erase,
				"pattern": mode.Pattern,
			}).Debug("jumper mode")

			if cmd.Flags().Changed("write") {
				mode.Write = getFlag(cmd, "write")
			}
			if cmd.Flags().Changed("erase") {
				mode.Erase = cfg.Erase != harness.EraseNone
			}
			if cmd.Flags().Changed("image") {
				mode.Pattern = false
			}
			cfg = cfg.WithMode(mode)
		}

		var out io.Writer = os.Stdout
		opts := []harness.Option{harness.WithLogger(newLogger("harness"))}
		if port := getString(cmd, "serial"); port != "" {
			console, err := openSerial(port, getUint(cmd, "baud"))
			if err != nil {
				return err
			}
			defer func() { _ = console.Close() }()
			out = harness.NewCRLFWriter(console)
		}
		opts = append(opts, harness.WithOutput(out))
		if cmd.Flags().Changed("color") {
			opts = append(opts, harness.WithColor(getFlag(cmd, "color")))
		}

		_, err = harness.New(s.dev, cfg, opts...).Run(cmd.Context())
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func testConfig(cmd *cobra.Command) (harness.Config, error) {
	cfg := harness.DefaultConfig()

	var err error
	if cfg.Start, err = parseAddress(getString(cmd, "start")); err != nil {
		return cfg, err
	}
	if cfg.End, err = parseAddress(getString(cmd, "end")); err != nil {
		return cfg, err
	}
	if cfg.Seed, err = parseByte(getString(cmd, "seed")); err != nil {
		return cfg, err
	}
	if cfg.Erase, err = harness.ParseEraseMode(getString(cmd, "erase")); err != nil {
		return cfg, err
	}
	if cfg.EraseSector, err = parseByte(getString(cmd, "erase-sector")); err != nil {
		return cfg, err
	}

	cfg.Write = getFlag(cmd, "write")
	cfg.Interval = getDuration(cmd, "interval")
	cfg.Passes = getInt(cmd, "passes")
	cfg.UnprotectEEPROM = getFlag(cmd, "unprotect")

	if path := getString(cmd, "image"); path != "" {
		img, err := image.Parse(path)
		if err != nil {
			return cfg, fmt.Errorf("burn image: %w", err)
		}
		cfg.Image = img
	}
	return cfg, nil
}

func init() {
	flags := testCmd.Flags()
	flags.String("start", "0x0000", "first tested address")
	flags.String("end", "0x02ff", "last tested address (inclusive)")
	flags.String("seed", "0x00", "pattern value at address 0")
	flags.Bool("write", true, "write the pattern or image before verifying")
	flags.String("erase", "sector", "erase before writing flash: none, sector or chip")
	flags.String("erase-sector", "0x00", "high address byte of the sector to erase")
	flags.String("image", "", "Intel HEX or binary burn image instead of the pattern")
	flags.Duration("interval", harness.DefaultConfig().Interval, "delay between verify passes")
	flags.Int("passes", 0, "number of verify passes (0 = until interrupted)")
	flags.Bool("unprotect", false, "disable EEPROM software data protection first")
	flags.Bool("no-jumpers", false, "ignore the J0-J2 mode jumpers")
	flags.Bool("color", false, "highlight mismatches (default: when writing to a terminal)")
	flags.String("serial", "", "send the report to this serial port instead of stdout")
	flags.Uint("baud", 115200, "serial console baud rate")

	rootCmd.AddCommand(testCmd)
}
