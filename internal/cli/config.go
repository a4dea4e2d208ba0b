package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/cursorbox/internal/paths"
	"github.com/mesh-intelligence/cursorbox/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"

	cfgKeyDataDir    = "data_dir"
	cfgKeyCursorsDir = "cursors_dir"
	cfgKeyCacheDir   = "cache_dir"
	cfgKeyLogLevel   = "log.level"
	cfgKeyLogFormat  = "log.format"
	cfgKeyWorkers    = "preview.workers"
	cfgKeyMinDelay   = "preview.min_delay_ms"
	cfgKeyMode       = "mode"
	cfgKeySlots      = "slots"
)

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# cursorbox configuration

# Customization mode: simple (Arrow, Hand) or advanced (every slot)
mode: simple

# Data directory (optional; overridable by --data-dir)
# data_dir:

log:
  level: info
  format: console

preview:
  workers: 0        # 0 uses every CPU
  min_delay_ms: 16

# Source file recorded for each cursor slot, used by "pack export"
# slots:
#   Arrow: /path/to/arrow.cur
`

// configFile is the fully populated config.yaml written by init.
type configFile struct {
	DataDir    string            `yaml:"data_dir"`
	CursorsDir string            `yaml:"cursors_dir"`
	CacheDir   string            `yaml:"cache_dir"`
	Mode       string            `yaml:"mode"`
	Log        logSection        `yaml:"log"`
	Preview    previewSection    `yaml:"preview"`
	Slots      map[string]string `yaml:"slots,omitempty"`
}

type logSection struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type previewSection struct {
	Workers    int `yaml:"workers"`
	MinDelayMs int `yaml:"min_delay_ms"`
}

// loadConfig reads config.yaml from configDir, creating the directory and a
// default file on first run.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyMode, string(types.ModeSimple))
	v.SetDefault(cfgKeyLogLevel, "info")
	v.SetDefault(cfgKeyLogFormat, "console")
	v.SetDefault(cfgKeyMinDelay, 16)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// ensureDefaultConfigFile writes defaultConfigYAML unless config.yaml exists.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, paths.ConfigFile)
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

// buildConfig turns the loaded settings into a validated types.Config.
func buildConfig(v *viper.Viper, dataDirFlag string) (types.Config, error) {
	dataDir, err := paths.ResolveDataDir(dataDirFlag, v.GetString(cfgKeyDataDir))
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	cfg := types.Config{
		DataDir:        dataDir,
		CursorsDir:     v.GetString(cfgKeyCursorsDir),
		CacheDir:       v.GetString(cfgKeyCacheDir),
		Mode:           types.CustomizationMode(v.GetString(cfgKeyMode)),
		Slots:          canonicalSlots(v.GetStringMapString(cfgKeySlots)),
		PreviewWorkers: v.GetInt(cfgKeyWorkers),
		MinDelayMs:     v.GetInt(cfgKeyMinDelay),
	}.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return types.Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// canonicalSlots restores slot name casing; viper lowercases map keys.
func canonicalSlots(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for key, src := range in {
		name := key
		for _, slot := range types.Slots {
			if strings.EqualFold(slot.Name, key) {
				name = slot.Name
				break
			}
		}
		out[name] = src
	}
	return out
}

// writeConfig writes a fully populated config.yaml.
func writeConfig(path string, cfg types.Config, logLevel, logFormat string) error {
	out := configFile{
		DataDir:    cfg.DataDir,
		CursorsDir: cfg.CursorsDir,
		CacheDir:   cfg.CacheDir,
		Mode:       string(cfg.Mode),
		Log:        logSection{Level: logLevel, Format: logFormat},
		Preview:    previewSection{Workers: cfg.PreviewWorkers, MinDelayMs: cfg.MinDelayMs},
		Slots:      cfg.Slots,
	}
	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
