package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/cursorbox/internal/convert"
	"github.com/mesh-intelligence/cursorbox/internal/cur"
	"github.com/mesh-intelligence/cursorbox/pkg/types"
)

func (a *app) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the cursors in the library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			assets, err := a.store.List()
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return printJSON(cmd, assets)
			}
			out := cmd.OutOrStdout()
			if len(assets) == 0 {
				fmt.Fprintln(out, "No cursors found.")
				return nil
			}
			rows := make([][]string, 0, len(assets))
			for _, c := range assets {
				rows = append(rows, []string{
					shortID(c.ID),
					truncate(c.Name, 40),
					kindLabel(c),
					fmt.Sprintf("%d,%d", c.HotspotX, c.HotspotY),
					c.CreatedAt,
				})
			}
			printTable(out, []string{"ID", "NAME", "KIND", "HOTSPOT", "CREATED"}, rows)
			fmt.Fprintf(out, "Total: %d cursor(s)\n", len(assets))
			return nil
		},
	}
}

func (a *app) newAddCmd() *cobra.Command {
	var (
		name    string
		hotspot string
		size    int
	)
	cmd := &cobra.Command{
		Use:     "add <file>...",
		Aliases: []string{"import"},
		Short:   "Import images, cursors or packs into the library",
		Long: `Import files into the cursors directory and register them.

PNG, JPEG, GIF, BMP and WebP images are converted to static cursors no
larger than --size pixels. .cur, .ani and pack .zip files are copied.

Example:
  cursorbox add pointer.png --hotspot 0,0
  cursorbox add busy.ani --name "Busy"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name != "" && len(args) > 1 {
				return fmt.Errorf("%w: --name needs exactly one file", errUsage)
			}
			req := convert.Request{Name: name, Size: size}
			if hotspot != "" {
				h, err := parseHotspot(hotspot)
				if err != nil {
					return err
				}
				req.Hotspot = &h
			}

			conv := convert.New(a.store, a.fs, a.cfg.CursorsDir, a.log)
			var added []types.CursorAsset
			for _, src := range args {
				req.Source = src
				asset, err := conv.Import(req)
				if err != nil {
					return err
				}
				added = append(added, asset)
			}
			if a.flags.jsonMode {
				return printJSON(cmd, added)
			}
			for _, asset := range added {
				fmt.Fprintf(cmd.OutOrStdout(), "added %s %s (%s)\n", shortID(asset.ID), asset.Name, asset.FilePath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name (default: file name)")
	cmd.Flags().StringVar(&hotspot, "hotspot", "", "click point as x,y for static cursors")
	cmd.Flags().IntVar(&size, "size", convert.DefaultSize, "largest side of converted images, 1-256")
	return cmd
}

func (a *app) newRemoveCmd() *cobra.Command {
	var deleteFile bool
	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a cursor from the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.resolveID(args[0])
			if err != nil {
				return err
			}
			removed, err := a.store.Remove(id)
			if err != nil {
				return err
			}
			if deleteFile {
				if err := os.Remove(removed.FilePath); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("delete %s: %w", removed.FilePath, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s %s\n", shortID(removed.ID), removed.Name)
			return nil
		},
	}
	cmd.Flags().BoolVar(&deleteFile, "delete-file", false, "also delete the cursor file")
	return cmd
}

func (a *app) newRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Change a cursor's display name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.resolveID(args[0])
			if err != nil {
				return err
			}
			asset, err := a.store.Rename(id, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "renamed %s to %q\n", shortID(asset.ID), asset.Name)
			return nil
		},
	}
}

func (a *app) newHotspotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hotspot <id> <x> <y>",
		Short: "Set a cursor's click point",
		Long: `Set the click point of a cursor. Static cursor files are rewritten in
place with the hotspot clamped into the image; for animated cursors only
the library entry changes.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.resolveID(args[0])
			if err != nil {
				return err
			}
			h, err := parseHotspot(args[1] + "," + args[2])
			if err != nil {
				return err
			}
			asset, err := a.store.Get(id)
			if err != nil {
				return err
			}
			if asset.IsPack {
				return fmt.Errorf("%w: %s is a pack", errUsage, asset.Name)
			}
			if types.KindFromPath(asset.FilePath) == types.KindCur {
				if h, err = cur.PatchHotspotFile(a.fs, asset.FilePath, h); err != nil {
					return err
				}
			} else {
				a.log.Info("hotspot recorded in library only", zap.String("path", asset.FilePath))
			}
			asset, err = a.store.UpdateHotspot(id, h)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "hotspot of %s set to %d,%d\n", shortID(asset.ID), asset.HotspotX, asset.HotspotY)
			return nil
		},
	}
}

func (a *app) newReorderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <id>...",
		Short: "Arrange the library in the given order",
		Long:  "Arrange the library in the given order. Every cursor must be listed exactly once.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]string, len(args))
			for i, arg := range args {
				id, err := a.resolveID(arg)
				if err != nil {
					return err
				}
				ids[i] = id
			}
			if err := a.store.Reorder(ids); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reordered %d cursor(s)\n", len(ids))
			return nil
		},
	}
}

// resolveID accepts a full ID or a unique prefix of one.
func (a *app) resolveID(ref string) (string, error) {
	assets, err := a.store.List()
	if err != nil {
		return "", err
	}
	var match string
	for _, c := range assets {
		if c.ID == ref {
			return c.ID, nil
		}
		if strings.HasPrefix(c.ID, ref) {
			if match != "" {
				return "", fmt.Errorf("%w: id prefix %q is ambiguous", errUsage, ref)
			}
			match = c.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", types.ErrNotFound, ref)
	}
	return match, nil
}

// parseHotspot reads "x,y".
func parseHotspot(s string) (types.Hotspot, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return types.Hotspot{}, fmt.Errorf("%w: hotspot %q is not x,y", errUsage, s)
	}
	x, errX := strconv.ParseUint(strings.TrimSpace(xs), 10, 16)
	y, errY := strconv.ParseUint(strings.TrimSpace(ys), 10, 16)
	if errX != nil || errY != nil {
		return types.Hotspot{}, fmt.Errorf("%w: hotspot %q is not x,y", errUsage, s)
	}
	return types.Hotspot{X: uint16(x), Y: uint16(y)}, nil
}
