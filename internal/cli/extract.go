package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mgpai22/vobsub2srt/internal/media"
	"github.com/mgpai22/vobsub2srt/internal/vobsub"
)

func newExtractCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <video_file>",
		Short: "Extract a DVD subtitle track from a video file",
		Long: `Extract a DVD subtitle track from a video file (VOB, MKV, ...) into a
VobSub pair that can then be converted.

The track is copied with ffmpeg into <base>.sub and an index is generated as
<base>.idx. Pass the disc's IFO file to carry its palette into the index.

Examples:
  vobsub2srt extract movie.mkv
  vobsub2srt extract movie.mkv --stream 1 -o subs/movie
  vobsub2srt extract VTS_01_1.VOB --ifo VTS_01_0.IFO`,
		Args: withUsage(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, a, args)
		},
	}

	cmd.Flags().Int("stream", 0, "Position among the file's DVD subtitle tracks")
	cmd.Flags().String("ifo", "", "VTS IFO file supplying the palette")
	return cmd
}

func runExtract(cmd *cobra.Command, a *app, args []string) error {
	videoPath := args[0]
	stream, _ := cmd.Flags().GetInt("stream")
	ifoPath, _ := cmd.Flags().GetString("ifo")

	opts := media.ExtractOptions{
		OutputBase: strings.TrimSuffix(a.output, filepath.Ext(a.output)),
		Stream:     stream,
	}
	if ifoPath != "" {
		palette, err := readIFOPalette(ifoPath)
		if err != nil {
			return err
		}
		opts.Palette = palette
	}

	a.logger.Infow("Extracting subtitles",
		"video", videoPath,
		"stream", stream,
		"ifo", ifoPath,
	)

	result, err := media.ExtractSubtitles(cmd.Context(), videoPath, opts)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	a.logger.Debugw("Extracted subtitle track",
		"sub", result.SubPath,
		"idx", result.IdxPath,
		"language", result.Language,
	)

	absBase, _ := filepath.Abs(strings.TrimSuffix(result.SubPath, ".sub"))
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Subtitles extracted successfully: %s.idx/.sub\n", absBase)
	fmt.Fprintf(out, "  Entries: %d\n", result.Entries)
	fmt.Fprintf(out, "Convert with: vobsub2srt %s\n", absBase)
	return nil
}

func readIFOPalette(path string) (vobsub.Palette, error) {
	f, err := os.Open(path)
	if err != nil {
		return vobsub.Palette{}, fmt.Errorf("failed to open IFO: %w", err)
	}
	defer f.Close()

	info, err := vobsub.ParseIFO(f)
	if err != nil {
		return vobsub.Palette{}, fmt.Errorf("failed to parse IFO: %w", err)
	}
	if !info.Palette.Valid {
		return vobsub.Palette{}, fmt.Errorf("IFO %s has no palette", path)
	}
	return info.Palette, nil
}
