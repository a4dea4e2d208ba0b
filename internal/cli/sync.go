package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/cursorbox/internal/foldersync"
	"github.com/mesh-intelligence/cursorbox/pkg/types"
)

func (a *app) newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the library with the cursors directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.syncer().Sync()
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return printJSON(cmd, syncSummary(res))
			}
			out := cmd.OutOrStdout()
			for _, c := range res.Added {
				fmt.Fprintf(out, "+ %s %s\n", shortID(c.ID), c.Name)
			}
			for _, c := range res.Removed {
				fmt.Fprintf(out, "- %s %s\n", shortID(c.ID), c.Name)
			}
			fmt.Fprintf(out, "added %d, removed %d\n", len(res.Added), len(res.Removed))
			return nil
		},
	}
}

func (a *app) newWatchCmd() *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the library in sync until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			w := foldersync.NewWatcher(a.syncer(),
				foldersync.WithDebounce(debounce),
				foldersync.OnSync(func(res foldersync.Result, err error) {
					if err == nil && res.Changed() {
						fmt.Fprintf(out, "added %d, removed %d\n", len(res.Added), len(res.Removed))
					}
				}))
			fmt.Fprintln(out, "watching", a.cfg.CursorsDir)
			return w.Run(ctx)
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", foldersync.DefaultDebounce, "quiet period before a resync")
	return cmd
}

func (a *app) syncer() *foldersync.Syncer {
	return foldersync.NewSyncer(a.store, a.fs, a.cfg.CursorsDir, a.log.With(zap.String("component", "foldersync")))
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

type syncOutput struct {
	Added   []types.CursorAsset `json:"added"`
	Removed []types.CursorAsset `json:"removed"`
}

func syncSummary(res foldersync.Result) syncOutput {
	out := syncOutput{Added: res.Added, Removed: res.Removed}
	if out.Added == nil {
		out.Added = []types.CursorAsset{}
	}
	if out.Removed == nil {
		out.Removed = []types.CursorAsset{}
	}
	return out
}
