package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/mgpai22/vobsub2srt/internal/binaries"
)

func newDepsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check external tool availability",
		Long: `Report whether tesseract, ffmpeg and ffprobe can be found.

Tools are looked up through VOBSUB2SRT_<TOOL>_PATH, then PATH. tesseract is
only required for the tesseract OCR provider.`,
		Args: withUsage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := binaries.CheckBinaries(binaries.Requirements(a.cfg.OCR.Provider))
			fmt.Fprintln(cmd.OutOrStdout(), renderDeps(statuses))

			for _, s := range statuses {
				if !s.Available && !s.Optional {
					return fmt.Errorf("required tool %s is missing", s.Command)
				}
			}
			return nil
		},
	}
}

func renderDeps(statuses []binaries.Status) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Tool", "Status", "Required", "Location"})

	for _, s := range statuses {
		status := "ok"
		location := s.Path
		if !s.Available {
			status = "missing"
			location = s.Detail
		}
		required := "yes"
		if s.Optional {
			required = "no"
		}
		tw.AppendRow(table.Row{s.Name, status, required, location})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 3, Align: text.AlignCenter, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}
