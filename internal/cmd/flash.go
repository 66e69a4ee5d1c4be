package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bryangrimes/node-cubelets/device"
	"github.com/bryangrimes/node-cubelets/flash"
	"github.com/bryangrimes/node-cubelets/ledger"
	"github.com/bryangrimes/node-cubelets/program"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	flashID         string
	flashType       string
	flashMCU        string
	flashHop        int
	flashAppVersion string
	flashMode       string
	flashPageSize   int
)

// flashCmd represents the flash command.
var flashCmd = &cobra.Command{
	Use:   "flash FILE",
	Short: "Flash one image onto one block",
	Long: `Flash an Intel HEX or raw binary image onto a single block.

A hop count of 0 selects the host block, which receives the image over the
upload handshake; any other hop count pages the image through the host.

Example:
  meshflash flash drive.hex --id 0x112233 --type drive --mcu pic --hop 1 --mode imago`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dev, err := flashTarget()
		if err != nil {
			return err
		}
		mode, err := parseMode(flashMode)
		if err != nil {
			return err
		}
		prog, err := program.Parse(args[0], program.WithPageSize(flashPageSize))
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		c, err := openClient(ctx, mode)
		if err != nil {
			return err
		}
		defer c.Close()

		bar := newProgressBar("flash")
		opts := append(cfg.FlashOptions(),
			flash.WithLogger(logger),
			flash.WithProgressCallback(func(p flash.Progress) {
				if jsonOutput {
					writeJSON(cmd.OutOrStdout(), p)
					return
				}
				bar.update(p)
			}),
		)

		start := time.Now()
		err = flash.New(c, opts...).Flash(ctx, prog, dev)
		if err == nil && !jsonOutput {
			bar.finish()
		}
		recordManualFlash(cmd, dev, start, err)
		if err != nil {
			return err
		}
		logger.Info("flash complete", "device", dev.String(), "elapsed", time.Since(start).String())
		return nil
	},
}

func flashTarget() (device.Device, error) {
	id, err := parseID(flashID)
	if err != nil {
		return device.Device{}, err
	}
	t, err := device.TypeForName(flashType)
	if err != nil {
		return device.Device{}, err
	}
	mcu, err := device.MCUForName(flashMCU)
	if err != nil {
		return device.Device{}, err
	}
	dev := device.New(id, flashHop, t)
	dev.MCU = mcu
	if flashAppVersion != "" {
		v, err := device.ParseVersion(flashAppVersion)
		if err != nil {
			return device.Device{}, err
		}
		dev.ApplicationVersion = v
	}
	return dev, nil
}

// parseID accepts decimal or 0x-prefixed block IDs.
func parseID(s string) (uint32, error) {
	id, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid block id %q: %w", s, err)
	}
	if id == 0 || id > 0xFFFFFF {
		return 0, fmt.Errorf("block id %q out of range 1..0xFFFFFF", s)
	}
	return uint32(id), nil
}

// recordManualFlash stores a one-off flash as its own session.
func recordManualFlash(cmd *cobra.Command, dev device.Device, start time.Time, flashErr error) {
	if cfg.Ledger.Path == "" {
		return
	}
	store, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		logger.Error("open ledger", "error", err)
		return
	}
	defer store.Close()

	ctx := cmd.Context()
	session := uuid.NewString()
	rec := ledger.Flash{
		SessionID: session,
		DeviceID:  dev.ID,
		BlockType: dev.Type.String(),
		Role:      "manual",
		HopCount:  dev.HopCount,
		StartedAt: start,
		Duration:  time.Since(start),
		Outcome:   ledger.OutcomeOK,
	}
	if flashErr != nil {
		rec.Outcome, rec.Error = ledger.OutcomeFailed, flashErr.Error()
	}
	if err := store.BeginSession(ctx, session, "manual", start); err != nil {
		logger.Error("record session", "error", err)
		return
	}
	if err := store.RecordFlash(ctx, rec); err != nil {
		logger.Error("record flash", "error", err)
	}
	if err := store.EndSession(ctx, session, time.Now(), flashErr); err != nil {
		logger.Error("record session", "error", err)
	}
}

func init() {
	f := flashCmd.Flags()
	f.StringVar(&flashID, "id", "", "block id, decimal or 0x-prefixed (required)")
	f.StringVar(&flashType, "type", "bluetooth", "block type name")
	f.StringVar(&flashMCU, "mcu", "avr", "MCU family (avr, pic)")
	f.IntVar(&flashHop, "hop", 0, "hop count from the host (0 is the host)")
	f.StringVar(&flashAppVersion, "app-version", "", "application version on the block, enables the reset handshake from 3.1.0")
	f.StringVar(&flashMode, "mode", "classic", "protocol the host currently speaks (classic, bootstrap, imago)")
	f.IntVar(&flashPageSize, "page-size", program.DefaultPageSize, "target flash page size")
	flashCmd.MarkFlagRequired("id")
	rootCmd.AddCommand(flashCmd)
}
