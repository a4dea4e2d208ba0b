package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/mesh-intelligence/cursorbox/pkg/types"
)

// schemeFile records the installed cursor scheme.
const schemeFile = "scheme.json"

type schemeEntry struct {
	File    string        `json:"file"`
	Hotspot types.Hotspot `json:"hotspot"`
	Size    int           `json:"size"`
}

// schemeSink installs cursors by copying them into a scheme directory.
type schemeSink struct {
	fs      types.FileSystem
	dir     string
	entries map[string]schemeEntry
}

func newSchemeSink(fsys types.FileSystem, dir string) *schemeSink {
	return &schemeSink{fs: fsys, dir: dir, entries: make(map[string]schemeEntry)}
}

// ApplyCursor writes image as the slot's cursor file.
func (s *schemeSink) ApplyCursor(slot string, image []byte, hotspot types.Hotspot, size int) error {
	ext := ".cur"
	if bytes.HasPrefix(image, []byte("RIFF")) {
		ext = ".ani"
	}
	path := filepath.Join(s.dir, slot+ext)
	if err := s.fs.WriteFile(path, image); err != nil {
		return fmt.Errorf("install %s: %w", slot, err)
	}
	s.entries[slot] = schemeEntry{File: path, Hotspot: hotspot, Size: size}
	return nil
}

// Save writes scheme.json, merging with any previously installed slots.
func (s *schemeSink) Save() error {
	path := filepath.Join(s.dir, schemeFile)
	merged := make(map[string]schemeEntry)
	if raw, err := s.fs.ReadFile(path); err == nil {
		_ = json.Unmarshal(raw, &merged)
	}
	for slot, e := range s.entries {
		merged[slot] = e
	}
	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal scheme: %w", err)
	}
	return s.fs.WriteFile(path, data)
}
