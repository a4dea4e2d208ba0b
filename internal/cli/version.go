package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/cursorbox/internal/cur"
	"github.com/mesh-intelligence/cursorbox/internal/pack"
)

// Version is the cursorbox release.
const Version = "0.1.0"

type versionInfo struct {
	Version         string   `json:"version"`
	ManifestVersion int      `json:"pack_manifest_version"`
	MaxCursorSize   int      `json:"max_cursor_size"`
	Formats         []string `json:"formats"`
}

func currentVersion() versionInfo {
	return versionInfo{
		Version:         Version,
		ManifestVersion: pack.ManifestVersion,
		MaxCursorSize:   cur.MaxDimension,
		Formats:         []string{".cur", ".ani", ".zip"},
	}
}

func (a *app) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the cursorbox version and supported formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := currentVersion()
			if a.flags.jsonMode {
				return printJSON(cmd, info)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "cursorbox v%s\n", info.Version)
			fmt.Fprintf(out, "pack manifest: v%d\n", info.ManifestVersion)
			fmt.Fprintf(out, "cursor files: %s (up to %dx%d)\n",
				strings.Join(info.Formats, " "), info.MaxCursorSize, info.MaxCursorSize)
			return nil
		},
	}
}
