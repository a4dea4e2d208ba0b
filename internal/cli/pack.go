package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/cursorbox/internal/pack"
	"github.com/mesh-intelligence/cursorbox/pkg/types"
)

func (a *app) newPackCmd() *cobra.Command {
	packCmd := &cobra.Command{
		Use:   "pack",
		Short: "Build, inspect and apply cursor packs",
	}
	packCmd.AddCommand(a.newPackExportCmd(), a.newPackShowCmd(), a.newPackApplyCmd())
	return packCmd
}

func (a *app) newPackExportCmd() *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "export <name>",
		Short: "Bundle the configured slot sources into a pack",
		Long: `Bundle the source file recorded for each slot (the "slots" map in
config.yaml) into a pack archive in the cursors directory and register it.
Only the slots of the customization mode are included; slots whose source
is missing are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m := a.cfg.Mode
			if mode != "" {
				parsed, err := types.ParseMode(mode)
				if err != nil {
					return err
				}
				m = parsed
			}
			asset, err := a.archiver().Build(pack.BuildRequest{Name: args[0], Mode: m, Sources: a.cfg.Slots})
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return printJSON(cmd, asset)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %s with %d cursor(s) to %s\n",
				shortID(asset.ID), len(asset.Pack.Items), asset.FilePath)
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "customization mode (default: from config)")
	return cmd
}

func (a *app) newPackShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id|archive>",
		Short: "Print a pack's manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.packPath(args[0])
			if err != nil {
				return err
			}
			m, err := pack.ReadManifest(a.fs, path)
			if err != nil {
				return err
			}
			if a.flags.jsonMode {
				return printJSON(cmd, m)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s mode, created %s)\n", m.PackName, m.Mode, m.CreatedAt)
			rows := make([][]string, 0, len(m.Items))
			for _, it := range m.Items {
				rows = append(rows, []string{it.CursorName, it.DisplayName, it.FileName})
			}
			printTable(out, []string{"SLOT", "DISPLAY NAME", "FILE"}, rows)
			return nil
		},
	}
}

func (a *app) newPackApplyCmd() *cobra.Command {
	var dest string
	cmd := &cobra.Command{
		Use:   "apply <id|archive>",
		Short: "Extract a pack and install it as the active cursor scheme",
		Long: `Extract a pack and hand each cursor to the scheme writer, which copies it
into the scheme directory and records slot, hotspot and size in
scheme.json. Items that cannot be applied are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.packPath(args[0])
			if err != nil {
				return err
			}
			if dest == "" {
				dest = filepath.Join(a.cfg.DataDir, "scheme")
			}
			staging := filepath.Join(a.cfg.DataDir, "packs", strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
			sink := newSchemeSink(a.fs, dest)
			n, err := pack.Apply(a.fs, path, staging, sink, a.log.With(zap.String("component", "pack")))
			if err != nil {
				return err
			}
			if err := sink.Save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d cursor(s) to %s\n", n, dest)
			return nil
		},
	}
	cmd.Flags().StringVar(&dest, "dest", "", "scheme directory (default: <data-dir>/scheme)")
	return cmd
}

func (a *app) newExportLibraryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export-library <file.zip>",
		Short: "Archive every library file with its index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.archiver().ExportLibrary(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d file(s) to %s\n", n, args[0])
			return nil
		},
	}
}

func (a *app) archiver() *pack.Archiver {
	return pack.NewArchiver(a.store, a.cfg.CursorsDir,
		pack.WithFileSystem(a.fs),
		pack.WithLogger(a.log.With(zap.String("component", "pack"))))
}

// packPath resolves a library pack ID (or prefix) or an archive path.
func (a *app) packPath(ref string) (string, error) {
	if types.KindFromPath(ref) == types.KindPack {
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
	if !asset.IsPack {
		return "", fmt.Errorf("%w: %s is not a pack", errUsage, asset.Name)
	}
	return asset.FilePath, nil
}
