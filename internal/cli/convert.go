package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mgpai22/vobsub2srt/internal/ocr"
	"github.com/mgpai22/vobsub2srt/internal/pipeline"
)

func newConvertCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <subname> [<ifo>]",
		Short: "Convert a VobSub pair to SRT",
		Long: `Convert <subname>.idx and <subname>.sub into <subname>.srt.

<subname> may be given with or without the .idx or .sub extension. The
optional second argument is a VTS IFO file whose palette and frame size are
used when the index does not provide them.

Examples:
  vobsub2srt convert movie
  vobsub2srt convert movie.idx VTS_01_0.IFO -o subs/movie.srt
  vobsub2srt convert movie --ocr placeholder --dump-images`,
		Args: withUsage(cobra.RangeArgs(1, 2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, a, args)
		},
	}
	addConvertFlags(cmd)
	return cmd
}

func addConvertFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("ocr", "", fmt.Sprintf("OCR provider (%s)", providerList()))
	flags.StringP("lang", "l", "", "Tesseract language code, e.g. eng, deu, fra")
	flags.String("tessdata", "", "Directory holding tesseract language data")
	flags.Int("psm", ocr.DefaultPageSegMode, "Tesseract page segmentation mode (1-13)")
	flags.String("model", "", "Vision model name for AI providers")
	flags.StringP("api-key", "k", "", "API key for AI providers (or set the provider's env var)")
	flags.Int("stream", -1, "Subtitle track index (default: the index file's langidx)")
	flags.Bool("dump-images", false, "Write every subtitle image to <subname>-<n>.pgm")
	flags.Bool("cache", false, "Cache recognized text in a local database")
	flags.Duration("default-duration", 0, "Display time for subtitles without a stop time (default 5s)")
}

func providerList() string {
	names := make([]string, 0, len(ocr.Providers()))
	for _, p := range ocr.Providers() {
		names = append(names, string(p))
	}
	return strings.Join(names, ", ")
}

func runConvert(cmd *cobra.Command, a *app, args []string) error {
	job, err := a.convertJob(cmd, args)
	if err != nil {
		return err
	}

	a.logger.Infow("Starting subtitle conversion",
		"input", job.Base,
		"output", job.OutputPath,
		"ocr", string(job.Provider),
		"language", job.OCR.Language,
	)

	summary, err := pipeline.Convert(cmd.Context(), job)
	if err != nil {
		if summary.Records > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "Partial output kept: %s (%d records)\n", summary.Output, summary.Records)
		}
		return err
	}

	absOutput, _ := filepath.Abs(summary.Output)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Subtitles converted successfully: %s\n", absOutput)
	fmt.Fprintf(out, "  Records: %d\n", summary.Records)
	if summary.Failures > 0 {
		fmt.Fprintf(out, "  Unrecognized images: %d\n", summary.Failures)
	}
	fmt.Fprintf(out, "  Elapsed: %s\n", summary.Elapsed.Round(time.Millisecond))
	return nil
}

// convertJob merges flags over the loaded configuration.
func (a *app) convertJob(cmd *cobra.Command, args []string) (pipeline.Job, error) {
	cfg := *a.cfg
	flags := cmd.Flags()

	if flags.Changed("ocr") {
		cfg.OCR.Provider, _ = flags.GetString("ocr")
		cfg.OCR.Provider = strings.ToLower(strings.TrimSpace(cfg.OCR.Provider))
	}
	if flags.Changed("lang") {
		cfg.OCR.Language, _ = flags.GetString("lang")
	}
	if flags.Changed("tessdata") {
		cfg.OCR.TessdataDir, _ = flags.GetString("tessdata")
	}
	if flags.Changed("psm") {
		cfg.OCR.PageSegMode, _ = flags.GetInt("psm")
	}
	if flags.Changed("model") {
		cfg.OCR.Model, _ = flags.GetString("model")
	}
	if flags.Changed("api-key") {
		cfg.OCR.APIKey, _ = flags.GetString("api-key")
	}
	if flags.Changed("stream") {
		cfg.Stream.Index, _ = flags.GetInt("stream")
	}
	if flags.Changed("cache") {
		cfg.Cache.Enabled, _ = flags.GetBool("cache")
	}
	if flags.Changed("default-duration") {
		d, _ := flags.GetDuration("default-duration")
		cfg.Stream.DefaultDurationMS = int(d / time.Millisecond)
	}
	if err := cfg.Validate(); err != nil {
		return pipeline.Job{}, err
	}

	base := subtitleBase(args[0])
	job := pipeline.Job{
		Base:            base,
		StreamIndex:     cfg.Stream.Index,
		OutputPath:      a.output,
		Provider:        ocr.Provider(cfg.OCR.Provider),
		OCR:             cfg.OCROptions(),
		DefaultDuration: cfg.DefaultDuration(),
		Logger:          a.logger,
	}
	if len(args) > 1 {
		job.IFOPath = args[1]
	}
	job.DumpImages, _ = flags.GetBool("dump-images")

	if cfg.Cache.Enabled {
		job.CachePath = a.cachePath()
	}
	return job, nil
}

// subtitleBase strips a trailing .idx or .sub so either file may be named.
func subtitleBase(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".idx", ".sub":
		return strings.TrimSuffix(name, filepath.Ext(name))
	}
	return name
}
