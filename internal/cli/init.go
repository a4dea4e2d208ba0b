package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/cursorbox/internal/paths"
)

func (a *app) newInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create directories and write a complete config.yaml",
		Long: `Create the data, cursors and cache directories and write a config.yaml
listing every setting with its resolved value. An existing config.yaml is
kept unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, dir := range []string{a.cfg.DataDir, a.cfg.CursorsDir, a.cfg.CacheDir} {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("create %s: %w", dir, err)
				}
			}

			configPath := filepath.Join(a.configDir, paths.ConfigFile)
			if force || !a.configCustomized(configPath) {
				if err := writeConfig(configPath, a.cfg, a.logLevel, a.logFormat); err != nil {
					return fmt.Errorf("write config: %w", err)
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "cursorbox initialized")
			fmt.Fprintln(out, "  config: ", configPath)
			fmt.Fprintln(out, "  data:   ", a.cfg.DataDir)
			fmt.Fprintln(out, "  cursors:", a.cfg.CursorsDir)
			fmt.Fprintln(out, "  cache:  ", a.cfg.CacheDir)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config.yaml")
	return cmd
}

// configCustomized reports whether config.yaml differs from the first-run
// default, meaning the user has edited it.
func (a *app) configCustomized(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return string(data) != defaultConfigYAML
}
