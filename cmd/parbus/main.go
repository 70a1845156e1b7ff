package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Version is filled when building with make, but *not* when installing via
// "go install".
var Version string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "parbus",
	Short: "Read, write and test parallel memory chips.",
	Long: `Drive SRAM, FRAM, EEPROM and JEDEC NOR flash chips over a bit-banged
parallel bus. Without hardware, --backend sim runs every command against a
simulated chip.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if getFlag(cmd, "verbose") {
			log.SetLevel(log.DebugLevel)
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		if getFlag(cmd, "version") {
			fmt.Print("parbus ")
			if Version != "" {
				fmt.Printf("%s", Version)
			} else if info, ok := debug.ReadBuildInfo(); ok {
				fmt.Printf("%s", info.Main.Version)
			} else {
				fmt.Printf("(unknown version)")
			}
			fmt.Println()
			return
		}
		_ = cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error(err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().Bool("version", false, "print version and exit")

	flags := rootCmd.PersistentFlags()
	flags.BoolP("verbose", "v", false, "increase logging verbosity")
	flags.String("backend", "sim", "bus backend: sim or gpio")
	flags.String("chip", "flash", "memory kind: sram, fram, eeprom or flash")
	flags.Duration("settle", 0, "settle delay between bus phases (default 187ns)")
	flags.Duration("poll-timeout", 0, "program/erase completion timeout (default 1s)")
	flags.StringSlice("ctrl-pins", nil, "8 GPIO names for the control port, bit 0 first (- = not wired)")
	flags.StringSlice("data-pins", nil, "8 GPIO names for D0-D7")
	flags.StringSlice("addr-lo-pins", nil, "8 GPIO names for A0-A7")
	flags.StringSlice("addr-hi-pins", nil, "8 GPIO names for A8-A15 (- = tied on the board)")
	flags.String("sim-load", "", "image file preloaded into the simulated chip")
}

func main() {
	Execute()
}
