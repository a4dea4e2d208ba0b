package types

import (
	"errors"
	"path/filepath"
)

// Config holds the resolved settings shared by every cursorbox component.
type Config struct {
	DataDir    string            `json:"data_dir" yaml:"data_dir"`
	CursorsDir string            `json:"cursors_dir" yaml:"cursors_dir"`
	CacheDir   string            `json:"cache_dir" yaml:"cache_dir"`
	Mode       CustomizationMode `json:"mode" yaml:"mode"`
	Slots      map[string]string `json:"slots" yaml:"slots"` // slot name -> source file

	PreviewWorkers int `json:"preview_workers" yaml:"preview_workers"`
	MinDelayMs     int `json:"min_delay_ms" yaml:"min_delay_ms"`
}

// Config validation errors.
var (
	ErrDataDirEmpty   = errors.New("data directory must not be empty")
	ErrWorkersInvalid = errors.New("preview workers must not be negative")
	ErrDelayInvalid   = errors.New("minimum frame delay must be positive")
	ErrUnknownSlot    = errors.New("unknown cursor slot")
)

// LibraryFile is the index file name inside DataDir.
const LibraryFile = "library.json"

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.DataDir == "" {
		return ErrDataDirEmpty
	}
	if _, err := ParseMode(string(c.Mode)); err != nil {
		return err
	}
	if c.PreviewWorkers < 0 {
		return ErrWorkersInvalid
	}
	if c.MinDelayMs <= 0 {
		return ErrDelayInvalid
	}
	for name := range c.Slots {
		if _, ok := LookupSlot(name); !ok {
			return ErrUnknownSlot
		}
	}
	return nil
}

// LibraryPath returns the location of the JSON index.
func (c Config) LibraryPath() string {
	return filepath.Join(c.DataDir, LibraryFile)
}

// WithDefaults fills empty directories and tunables relative to DataDir.
func (c Config) WithDefaults() Config {
	if c.CursorsDir == "" {
		c.CursorsDir = filepath.Join(c.DataDir, "cursors")
	}
	if c.CacheDir == "" {
		c.CacheDir = filepath.Join(c.DataDir, "cache", "previews")
	}
	if c.Mode == "" {
		c.Mode = ModeSimple
	}
	if c.MinDelayMs == 0 {
		c.MinDelayMs = 16
	}
	return c
}
