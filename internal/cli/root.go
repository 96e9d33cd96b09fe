// Package cli implements the vobsub2srt command line.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mgpai22/vobsub2srt/internal/config"
	"github.com/mgpai22/vobsub2srt/internal/logging"
)

const skipConfigAnnotation = "skip-config"

// state shared by every command of one invocation
type app struct {
	verbose    bool
	configPath string
	output     string
	logFormat  string

	cfg    *config.Config
	logger *logging.Logger
}

func Execute(ctx context.Context) error {
	return newRootCommand().ExecuteContext(ctx)
}

func newRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "vobsub2srt [flags] <subname> [<ifo>]",
		Short: "Convert VobSub subtitles to SRT using OCR",
		Long: `vobsub2srt converts VobSub subtitles (<subname>.idx and <subname>.sub)
into SubRip text subtitles (<subname>.srt) using optical character recognition.

Recognition runs on tesseract by default; Gemini, OpenAI and Anthropic vision
models can be used instead. An optional VTS IFO file supplies the palette and
frame size when the index lacks them.

Examples:
  vobsub2srt movie
  vobsub2srt movie VTS_01_0.IFO
  vobsub2srt movie --lang deu --stream 1
  vobsub2srt movie --ocr gemini --api-key YOUR_KEY`,
		Args:          withUsage(cobra.RangeArgs(1, 2)),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipConfigAnnotation] != "" {
				return nil
			}
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, a, args)
		},
	}

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		_ = cmd.Usage()
		return err
	})

	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose output")
	flags.StringVarP(&a.configPath, "config", "c", "", "Configuration file path (default ~/.config/vobsub2srt/config.toml)")
	flags.StringVarP(&a.output, "output", "o", "", "Output file path")
	flags.StringVar(&a.logFormat, "log-format", "", "Log format (console, json, auto)")

	addConvertFlags(rootCmd)

	rootCmd.AddCommand(newConvertCommand(a))
	rootCmd.AddCommand(newExtractCommand(a))
	rootCmd.AddCommand(newDepsCommand(a))
	rootCmd.AddCommand(newCacheCommand(a))
	rootCmd.AddCommand(newVerifyCommand())
	rootCmd.AddCommand(newLicenseCommand())

	return rootCmd
}

// withUsage prints the command usage when argument validation fails; usage is
// otherwise silenced so runtime errors are reported alone.
func withUsage(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			_ = cmd.Usage()
			return err
		}
		return nil
	}
}

// setup loads the configuration and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, _, _, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	a.cfg = cfg

	logger, err := logging.New(logging.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Writer:  cmd.ErrOrStderr(),
		Verbose: a.verbose,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	a.logger = logger
	return nil
}
