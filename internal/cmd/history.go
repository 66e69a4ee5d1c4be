package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/bryangrimes/node-cubelets/ledger"
	"github.com/spf13/cobra"
)

var (
	historyLimit   int
	historySession string
	historyDevice  string
)

// historyCmd represents the history command.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded upgrade sessions and flashes",
	Long: `Read the flash history database (--ledger).

Without flags the most recent sessions are listed. --session lists the
flashes of one session and --device the flashes of one block across all
sessions.

Example:
  meshflash history --ledger ~/.meshflash/history.db --device 0x112233`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Ledger.Path == "" {
			return errors.New("no flash history database configured (--ledger or MESHFLASH_LEDGER_PATH)")
		}
		store, err := ledger.Open(cfg.Ledger.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		switch {
		case historySession != "":
			flashes, err := store.Flashes(ctx, historySession)
			if err != nil {
				return err
			}
			return printFlashes(cmd, flashes)
		case historyDevice != "":
			id, err := parseID(historyDevice)
			if err != nil {
				return err
			}
			flashes, err := store.DeviceHistory(ctx, id)
			if err != nil {
				return err
			}
			return printFlashes(cmd, flashes)
		}

		sessions, err := store.Sessions(ctx, historyLimit)
		if err != nil {
			return err
		}
		if jsonOutput {
			for _, s := range sessions {
				writeJSON(cmd.OutOrStdout(), s)
			}
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SESSION\tFIRMWARE\tSTARTED\tDURATION\tOUTCOME\tERROR")
		for _, s := range sessions {
			duration := "-"
			if !s.FinishedAt.IsZero() {
				duration = s.FinishedAt.Sub(s.StartedAt).Round(time.Second).String()
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				s.ID, s.Firmware, s.StartedAt.Local().Format(time.DateTime), duration, s.Outcome, s.Error)
		}
		return w.Flush()
	},
}

func printFlashes(cmd *cobra.Command, flashes []ledger.Flash) error {
	if jsonOutput {
		for _, f := range flashes {
			writeJSON(cmd.OutOrStdout(), f)
		}
		return nil
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SESSION\tDEVICE\tTYPE\tROLE\tHOP\tSTARTED\tDURATION\tOUTCOME\tERROR")
	for _, f := range flashes {
		fmt.Fprintf(w, "%s\t0x%06X\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			f.SessionID, f.DeviceID, f.BlockType, f.Role, f.HopCount,
			f.StartedAt.Local().Format(time.DateTime), f.Duration.Round(time.Millisecond), f.Outcome, f.Error)
	}
	return w.Flush()
}

func init() {
	f := historyCmd.Flags()
	f.IntVar(&historyLimit, "limit", 20, "number of sessions to list (-1 for all)")
	f.StringVar(&historySession, "session", "", "list the flashes of this session")
	f.StringVar(&historyDevice, "device", "", "list the flashes of this block id")
	rootCmd.AddCommand(historyCmd)
}
