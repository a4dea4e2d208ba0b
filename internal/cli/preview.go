package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/cursorbox/internal/fsx"
	"github.com/mesh-intelligence/cursorbox/internal/gifexport"
	"github.com/mesh-intelligence/cursorbox/internal/preview"
	"github.com/mesh-intelligence/cursorbox/pkg/types"
)

func (a *app) newPreviewCmd() *cobra.Command {
	var inline bool
	cmd := &cobra.Command{
		Use:   "preview <id|file>",
		Short: "Decode a cursor into playable frames",
		Long: `Decode a cursor into frames. Animated cursors are cached under the cache
directory and the frame files are listed with their delays in milliseconds;
--inline returns PNG data URLs instead and skips the cache. Static cursors
print a single data URL.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.cursorPath(args[0])
			if err != nil {
				return err
			}

			switch kind := types.KindFromPath(path); kind {
			case types.KindAni:
				var data *preview.AniPreviewData
				if inline {
					raw, err := a.fs.ReadFile(path)
					if err != nil {
						return err
					}
					data, err = preview.InlineAni(raw, a.previewOptions())
					if err != nil {
						return err
					}
				} else {
					data, err = a.previewCache().Ani(path)
					if err != nil {
						return err
					}
				}
				if a.flags.jsonMode {
					return printJSON(cmd, data)
				}
				out := cmd.OutOrStdout()
				for i, f := range data.Frames {
					fmt.Fprintf(out, "%4d  %5dms  %s\n", i, data.Delays[i], truncate(f, 100))
				}
				fmt.Fprintf(out, "%d step(s), %dms per loop\n", len(data.Frames), data.TotalDuration)
				return nil

			case types.KindCur, types.KindIco:
				raw, err := a.fs.ReadFile(path)
				if err != nil {
					return err
				}
				url, err := preview.Cursor(raw)
				if err != nil {
					return err
				}
				if a.flags.jsonMode {
					return printJSON(cmd, map[string]string{"frame": url})
				}
				fmt.Fprintln(cmd.OutOrStdout(), url)
				return nil

			case types.KindUnknown, types.KindSvg, types.KindRaster, types.KindPack:
				return fmt.Errorf("%w: cannot preview %s files", errUsage, kind)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&inline, "inline", false, "return data URLs without using the cache")
	return cmd
}

func (a *app) newGifCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "gif <id|file>",
		Short: "Export an animated cursor as a looping GIF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.cursorPath(args[0])
			if err != nil {
				return err
			}
			if types.KindFromPath(path) != types.KindAni {
				return fmt.Errorf("%w: %s is not an animated cursor", errUsage, path)
			}
			dst := output
			if dst == "" {
				dst, err = fsx.EnsureUniqueFilename(".", fsx.Stem(path)+".gif")
				if err != nil {
					return err
				}
			}
			if err := gifexport.ExportFile(a.fs, path, dst, a.log); err != nil {
				return err
			}
			abs, _ := filepath.Abs(dst)
			fmt.Fprintln(cmd.OutOrStdout(), "wrote", abs)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "GIF file to write (default: <name>.gif in the current directory)")
	return cmd
}

func (a *app) newCacheCmd() *cobra.Command {
	cache := &cobra.Command{
		Use:   "cache",
		Short: "Maintain the preview cache",
	}
	cache.AddCommand(&cobra.Command{
		Use:   "sweep",
		Short: "Delete cached previews of files that changed or left the library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			assets, err := a.store.List()
			if err != nil {
				return err
			}
			var live []string
			for _, c := range assets {
				if types.KindFromPath(c.FilePath) == types.KindAni {
					live = append(live, c.FilePath)
				}
			}
			removed, err := a.previewCache().Sweep(live)
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return printJSON(cmd, map[string][]string{"removed": removed})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d cache entr(ies)\n", len(removed))
			return nil
		},
	})
	return cache
}

// cursorPath resolves a library ID (or prefix) to its file; anything else
// is taken as a file path.
func (a *app) cursorPath(ref string) (string, error) {
	if types.KindFromPath(ref) != types.KindUnknown {
		return ref, nil
	}
	id, err := a.resolveID(ref)
	if err != nil {
		return "", err
	}
	asset, err := a.store.Get(id)
	if err != nil {
		return "", err
	}
	return asset.FilePath, nil
}

func (a *app) previewOptions() preview.Options {
	return preview.Options{
		Workers:    a.cfg.PreviewWorkers,
		MinDelayMs: a.cfg.MinDelayMs,
		Logger:     a.log.With(zap.String("component", "preview")),
		FS:         a.fs,
	}
}

func (a *app) previewCache() *preview.Cache {
	return preview.NewCache(a.cfg.CacheDir, a.previewOptions())
}
