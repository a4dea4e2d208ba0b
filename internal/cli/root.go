// Package cli implements the cursorbox command-line interface.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/cursorbox/internal/ani"
	"github.com/mesh-intelligence/cursorbox/internal/convert"
	"github.com/mesh-intelligence/cursorbox/internal/cur"
	"github.com/mesh-intelligence/cursorbox/internal/fsx"
	"github.com/mesh-intelligence/cursorbox/internal/library"
	"github.com/mesh-intelligence/cursorbox/internal/logging"
	"github.com/mesh-intelligence/cursorbox/internal/pack"
	"github.com/mesh-intelligence/cursorbox/internal/paths"
	"github.com/mesh-intelligence/cursorbox/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	logLevel  string
}

// app is the state shared by every subcommand of one invocation.
type app struct {
	flags     rootFlags
	configDir string
	logLevel  string
	logFormat string
	cfg       types.Config
	fs        types.FileSystem
	log       *zap.Logger
	store     *library.Store
}

// NewRootCmd creates the top-level "cursorbox" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{fs: fsx.OS{}, log: zap.NewNop()}
	root := &cobra.Command{
		Use:     "cursorbox",
		Short:   "Manage a library of Windows cursors",
		Long:    "cursorbox keeps a library of static and animated cursors, previews them,\nexports GIFs, and builds and applies cursor packs.",
		Version: Version,
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.log.Sync()
		},
	}

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: platform data dir)")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().StringVar(&a.flags.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(
		a.newVersionCmd(),
		a.newInitCmd(),
		a.newListCmd(),
		a.newAddCmd(),
		a.newRemoveCmd(),
		a.newRenameCmd(),
		a.newHotspotCmd(),
		a.newReorderCmd(),
		a.newSyncCmd(),
		a.newWatchCmd(),
		a.newPreviewCmd(),
		a.newGifCmd(),
		a.newPackCmd(),
		a.newExportLibraryCmd(),
		a.newCacheCmd(),
	)
	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "cursorbox:", err)
		os.Exit(exitCode(err))
	}
}

// setup loads configuration and opens the library for every command that
// needs it.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	cfg, err := buildConfig(v, a.flags.dataDir)
	if err != nil {
		return err
	}

	a.configDir = configDir
	a.logLevel = v.GetString(cfgKeyLogLevel)
	if a.flags.logLevel != "" {
		a.logLevel = a.flags.logLevel
	}
	a.logFormat = v.GetString(cfgKeyLogFormat)
	log, err := logging.New(a.logLevel, a.logFormat)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = log.With(zap.String("command", cmd.Name()))
	a.store = library.NewStore(a.fs, cfg.LibraryPath(), library.WithLogger(a.log))
	return nil
}

// exitCode maps an error to the process exit code: problems with the
// request are user errors, everything else is a system error.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case errors.Is(err, types.ErrNotFound),
		errors.Is(err, types.ErrInvalidName),
		errors.Is(err, types.ErrInvalidOrder),
		errors.Is(err, types.ErrInvalidMode),
		errors.Is(err, types.ErrUnknownSlot),
		errors.Is(err, errUsage),
		errors.Is(err, convert.ErrUnsupportedKind),
		errors.Is(err, convert.ErrBadSize),
		errors.Is(err, cur.ErrTooLarge),
		errors.Is(err, ani.ErrNotRIFF),
		errors.Is(err, pack.ErrNoManifest),
		errors.Is(err, pack.ErrEmptyPack),
		errors.Is(err, os.ErrNotExist):
		return exitUserError
	default:
		return exitSysError
	}
}

// errUsage marks malformed arguments.
var errUsage = errors.New("invalid arguments")
