package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mgpai22/vobsub2srt/internal/ocrcache"
)

func newCacheCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or prune the OCR cache",
		Long: `Inspect or prune the recognition cache used by --cache.

The cache lives at cache.path from the configuration, or under the user cache
directory when unset.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show the cache location and entry count",
		Args:  withUsage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ocrcache.Open(a.cachePath())
			if err != nil {
				return fmt.Errorf("failed to open OCR cache: %w", err)
			}
			defer store.Close()

			n, err := store.Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cache: %s\n", store.Path())
			fmt.Fprintf(cmd.OutOrStdout(), "  Entries: %d\n", n)
			return nil
		},
	})

	prune := &cobra.Command{
		Use:   "prune",
		Short: "Remove cached recognitions older than --older-than",
		Args:  withUsage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			maxAge, _ := cmd.Flags().GetDuration("older-than")
			if maxAge < 0 {
				return fmt.Errorf("--older-than must not be negative")
			}

			store, err := ocrcache.Open(a.cachePath())
			if err != nil {
				return fmt.Errorf("failed to open OCR cache: %w", err)
			}
			defer store.Close()

			removed, err := store.Prune(cmd.Context(), maxAge)
			if err != nil {
				return err
			}
			left, err := store.Count(cmd.Context())
			if err != nil {
				return err
			}
			a.logger.Debugw("Pruned OCR cache", "path", store.Path(), "max_age", maxAge.String())
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries, %d left\n", removed, left)
			return nil
		},
	}
	prune.Flags().Duration("older-than", 30*24*time.Hour, "Age of the entries to remove")
	cmd.AddCommand(prune)

	return cmd
}

func (a *app) cachePath() string {
	if a.cfg != nil && a.cfg.Cache.Path != "" {
		return a.cfg.Cache.Path
	}
	return ocrcache.DefaultPath()
}
