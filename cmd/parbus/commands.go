package main

import (
	"encoding/hex"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/moffa90/go-parbus/image"
	"github.com/moffa90/go-parbus/memory"
	"github.com/moffa90/go-parbus/protocol"
)

var idCmd = &cobra.Command{
	Use:   "id",
	Short: "Read the manufacturer and device codes.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}

		id, err := s.dev.ReadID()
		if err != nil {
			return err
		}

		fmt.Printf("device ID: %s\n", id)
		if part, ok := protocol.LookupPart(id); ok {
			fmt.Printf("part:      %s %s (%d KiB, %d byte sectors)\n",
				part.Vendor, part.Name, part.Size>>10, part.SectorSize)
		} else {
			fmt.Printf("vendor:    %s\n", protocol.VendorName(id.Manufacturer()))
		}
		return nil
	},
}

var readCmd = &cobra.Command{
	Use:   "read ADDRESS LENGTH",
	Short: "Dump a range of the chip.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		length, err := parseAddress(args[1])
		if err != nil {
			return err
		}

		s, err := openSession(cmd)
		if err != nil {
			return err
		}

		data, err := s.dev.ReadBlock(addr, int(length))
		if err != nil {
			return err
		}

		if out := getString(cmd, "output"); out != "" {
			return os.WriteFile(out, data, 0o644)
		}
		fmt.Print(hex.Dump(data))
		return nil
	},
}

var writeCmd = &cobra.Command{
	Use:   "write ADDRESS BYTE...",
	Short: "Write bytes to SRAM, FRAM or an unprotected EEPROM.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := parseAddress(args[0])
		if err != nil {
			return err
		}
		data := make([]byte, 0, len(args)-1)
		for _, a := range args[1:] {
			b, err := parseByte(a)
			if err != nil {
				return err
			}
			data = append(data, b)
		}

		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		if err := s.dev.WriteBlock(addr, data); err != nil {
			return err
		}

		log.WithFields(log.Fields{"address": fmt.Sprintf("0x%04X", addr), "bytes": len(data)}).Info("written")
		return nil
	},
}

var programCmd = &cobra.Command{
	Use:   "program FILE",
	Short: "Program an Intel HEX or binary image into flash.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, err := image.Parse(args[0])
		if err != nil {
			return err
		}

		s, err := openSession(cmd, memory.WithProgressCallback(func(p memory.Progress) {
			if p.Phase == memory.PhaseComplete || p.Current%256 == 0 {
				fmt.Printf("[%s] %.1f%% - 0x%04X (%d/%d)\n",
					p.Phase, p.Percentage, p.Address, p.Current, p.Total)
			}
		}))
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if getFlag(cmd, "erase") {
			if err := s.dev.ChipErase(ctx); err != nil {
				return err
			}
		}

		for _, seg := range img.Sorted() {
			if err := s.dev.ProgramBlock(ctx, seg.Address, seg.Data); err != nil {
				return fmt.Errorf("segment 0x%04X: %w", seg.Address, err)
			}
		}

		if getFlag(cmd, "verify") {
			for _, seg := range img.Sorted() {
				got, err := s.dev.ReadBlock(seg.Address, len(seg.Data))
				if err != nil {
					return err
				}
				for i := range got {
					if got[i] != seg.Data[i] {
						return fmt.Errorf("verify failed at 0x%04X: read 0x%02X, want 0x%02X",
							int(seg.Address)+i, got[i], seg.Data[i])
					}
				}
			}
			log.Info("verify ok")
		}
		return nil
	},
}

var eraseCmd = &cobra.Command{
	Use:   "erase",
	Short: "Erase the whole flash chip or one sector.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("sector") {
			sector := getUint(cmd, "sector")
			if sector > 0xFF {
				return fmt.Errorf("sector high address 0x%X out of range", sector)
			}
			return s.dev.SectorErase(cmd.Context(), byte(sector))
		}
		return s.dev.ChipErase(cmd.Context())
	},
}

var unprotectCmd = &cobra.Command{
	Use:   "unprotect",
	Short: "Disable AT28C256 software data protection.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		return s.dev.DisableWriteProtection()
	},
}

func init() {
	readCmd.Flags().StringP("output", "o", "", "write the raw bytes to a file instead of dumping")
	programCmd.Flags().Bool("erase", false, "chip erase before programming")
	programCmd.Flags().Bool("verify", true, "read back and compare after programming")
	eraseCmd.Flags().Uint("sector", 0, "erase the sector at SECTOR<<8 instead of the whole chip")

	rootCmd.AddCommand(idCmd, readCmd, writeCmd, programCmd, eraseCmd, unprotectCmd)
}
