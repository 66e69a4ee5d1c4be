package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// versionCmd represents the version command.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",
	Long:  `Display detailed version information including build time and git commit.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		if jsonOutput {
			writeJSON(out, map[string]string{
				"version":    version,
				"git_commit": gitCommit,
				"build_time": buildTime,
			})
			return
		}
		fmt.Fprintf(out, "meshflash\n\n")
		fmt.Fprintf(out, "Version:    %s\n", version)
		fmt.Fprintf(out, "Git Commit: %s\n", gitCommit)
		fmt.Fprintf(out, "Build Time: %s\n", buildTime)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
