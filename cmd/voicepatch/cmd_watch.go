package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"voicepatch/internal/config"
	"voicepatch/internal/logging"
	"voicepatch/internal/watch"
)

// watchCmd runs the settings watcher until interrupted.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the settings file and react to enable/disable flips",
	Long: `Performs an initial refresh, then watches the settings file. When
enable_personalization changes, artifacts are regenerated or removed
accordingly. Source files are deliberately not watched: their change
notifications fire before new content is readable, so use an explicit
refresh (or refresh --if-stale) after editing sources.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initial pass so state matches the settings before any edit arrives.
	if err := eng.ctl.SetEnabled(ctx, eng.cfg.EnablePersonalization); err != nil {
		return err
	}

	w, err := watch.NewWatcher(eng.cfg.Root, logger.Named(logging.CategoryWatch), func(ctx context.Context, cfg *config.Config) error {
		eng.ctl.UpdateConfig(cfg)
		return eng.ctl.SetEnabled(ctx, cfg.EnablePersonalization)
	})
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	fmt.Fprintln(cmd.OutOrStdout(), "watching; press Ctrl-C to stop")
	<-ctx.Done()
	return nil
}
