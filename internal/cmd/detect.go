package cmd

import (
	"fmt"

	"github.com/bryangrimes/node-cubelets/protocol"
	"github.com/bryangrimes/node-cubelets/upgrade"
	"github.com/spf13/cobra"
)

// detectCmd represents the detect command.
var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Report the firmware generation of the host block",
	Long: `Probe the host block and report whether it runs CLASSIC, BOOTSTRAP or
IMAGO firmware.

Example:
  meshflash detect --port /dev/rfcomm0`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := openClient(ctx, protocol.ModeClassic)
		if err != nil {
			return err
		}
		defer c.Close()

		fw, err := upgrade.New(c, upgrade.WithLogger(logger)).DetectFirmwareType(ctx)
		if err != nil {
			return err
		}
		if jsonOutput {
			writeJSON(cmd.OutOrStdout(), map[string]string{"firmware": fw.String()})
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), fw.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(detectCmd)
}
