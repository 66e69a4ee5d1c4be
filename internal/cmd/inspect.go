package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/bryangrimes/node-cubelets/catalog"
	"github.com/bryangrimes/node-cubelets/program"
	"github.com/spf13/cobra"
)

var inspectPageSize int

type imageSummary struct {
	File         string `json:"file"`
	Bytes        int    `json:"bytes"`
	Lines        int    `json:"lines"`
	Pages        int    `json:"pages"`
	PageSize     int    `json:"page_size"`
	LastPageSize int    `json:"last_page_size"`
	XOR          byte   `json:"xor"`
	Sum          byte   `json:"sum"`
}

type catalogSummary struct {
	Type    string `json:"type"`
	Role    string `json:"role"`
	Version string `json:"version,omitempty"`
	Path    string `json:"path"`
}

// inspectCmd represents the inspect command.
var inspectCmd = &cobra.Command{
	Use:   "inspect [FILE...]",
	Short: "Describe firmware images and the firmware catalog",
	Long: `Parse firmware images and print their size, page layout and checksum.
Without files, list the images of the firmware catalog (--catalog).

Example:
  meshflash inspect firmware/drive/application.hex
  meshflash inspect --catalog firmware/catalog.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return inspectCatalog(cmd)
		}

		var summaries []imageSummary
		for _, path := range args {
			prog, err := program.Parse(path, program.WithPageSize(inspectPageSize))
			if err != nil {
				return err
			}
			sum := prog.Checksum()
			summaries = append(summaries, imageSummary{
				File:         path,
				Bytes:        prog.Len(),
				Lines:        prog.LineCount(),
				Pages:        prog.PageCount(),
				PageSize:     prog.PageSize(),
				LastPageSize: prog.LastPageSize(),
				XOR:          sum.XOR,
				Sum:          sum.Sum,
			})
		}

		if jsonOutput {
			for _, s := range summaries {
				writeJSON(cmd.OutOrStdout(), s)
			}
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "FILE\tBYTES\tLINES\tPAGES\tLAST PAGE\tXOR\tSUM")
		for _, s := range summaries {
			fmt.Fprintf(w, "%s\t%d\t%d\t%d x %d\t%d\t0x%02X\t0x%02X\n",
				s.File, s.Bytes, s.Lines, s.Pages, s.PageSize, s.LastPageSize, s.XOR, s.Sum)
		}
		return w.Flush()
	},
}

func inspectCatalog(cmd *cobra.Command) error {
	if cfg.Catalog == "" {
		return errors.New("no files given and no catalog configured")
	}
	cat, err := catalog.Load(cfg.Catalog)
	if err != nil {
		return err
	}

	var list []catalogSummary
	for _, l := range cat.List() {
		s := catalogSummary{Type: l.Type.String(), Role: string(l.Role), Path: l.Path}
		if !l.Version.IsZero() {
			s.Version = l.Version.String()
		}
		list = append(list, s)
	}

	if jsonOutput {
		for _, s := range list {
			writeJSON(cmd.OutOrStdout(), s)
		}
		return nil
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tROLE\tVERSION\tPATH")
	for _, s := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Type, s.Role, s.Version, s.Path)
	}
	return w.Flush()
}

func init() {
	inspectCmd.Flags().IntVar(&inspectPageSize, "page-size", program.DefaultPageSize, "flash page size used for the page layout")
	rootCmd.AddCommand(inspectCmd)
}
