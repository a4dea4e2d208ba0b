package pack

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/cursorbox/pkg/types"
)

// ExportLibrary writes a stored ZIP at dst holding every indexed file plus
// a library.json index whose file paths are archive entry names. Entries
// whose file cannot be read are left out. It returns the number of files
// archived.
func (a *Archiver) ExportLibrary(dst string) (int, error) {
	assets, err := a.store.List()
	if err != nil {
		return 0, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	used := map[string]bool{types.LibraryFile: true}
	exported := make([]types.CursorAsset, 0, len(assets))
	for _, asset := range assets {
		data, err := a.fs.ReadFile(asset.FilePath)
		if err != nil {
			a.log.Warn("leaving unreadable cursor out of export",
				zap.String("id", asset.ID), zap.String("path", asset.FilePath), zap.Error(err))
			continue
		}
		entry := uniqueEntry(used, filepath.Base(asset.FilePath))
		if err := writeStored(zw, entry, data); err != nil {
			return 0, err
		}
		asset.FilePath = entry
		if asset.Pack != nil {
			meta := *asset.Pack
			meta.ArchivePath = entry
			asset.Pack = &meta
		}
		exported = append(exported, asset)
	}

	index, err := json.MarshalIndent(exported, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("marshal library: %w", err)
	}
	if err := writeStored(zw, types.LibraryFile, index); err != nil {
		return 0, err
	}
	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("finish archive: %w", err)
	}
	if err := a.fs.WriteFile(dst, buf.Bytes()); err != nil {
		return 0, fmt.Errorf("write %s: %w", dst, err)
	}
	a.log.Info("library exported", zap.String("path", dst), zap.Int("files", len(exported)))
	return len(exported), nil
}

// uniqueEntry returns name, or "stem (n).ext" when name is already taken.
func uniqueEntry(used map[string]bool, name string) string {
	candidate := name
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 1; used[candidate]; n++ {
		candidate = fmt.Sprintf("%s (%d)%s", stem, n, ext)
	}
	used[candidate] = true
	return candidate
}
