package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mgpai22/vobsub2srt/internal/subtitle"
)

func newVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file.srt>",
		Short: "Check an SRT file for numbering and timing errors",
		Args:  withUsage(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := subtitle.ParseSRTFile(args[0])
			if err != nil {
				return err
			}
			if err := doc.Verify(); err != nil {
				return fmt.Errorf("%s is invalid: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d records OK\n", args[0], len(doc.Records))
			return nil
		},
	}
}
