package pack

import (
	"archive/zip"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/cursorbox/internal/ani"
	"github.com/mesh-intelligence/cursorbox/internal/cur"
	"github.com/mesh-intelligence/cursorbox/pkg/types"
)

// Extract writes every item of the pack at archivePath into destDir and
// returns the manifest with each item's FilePath filled in.
func Extract(fsys types.FileSystem, archivePath, destDir string) (*Manifest, error) {
	zr, err := openArchive(fsys, archivePath)
	if err != nil {
		return nil, err
	}
	m, err := readManifest(zr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", archivePath, err)
	}

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}
	for i := range m.Items {
		item := &m.Items[i]
		data, err := readEntry(files[item.FileName])
		if err != nil {
			return nil, err
		}
		dst := filepath.Join(destDir, item.FileName)
		if err := fsys.WriteFile(dst, data); err != nil {
			return nil, fmt.Errorf("write %s: %w", dst, err)
		}
		item.FilePath = dst
	}
	return m, nil
}

// Apply extracts the pack and installs each item through sink. Items that
// fail are logged and skipped; the count of applied slots is returned.
func Apply(fsys types.FileSystem, archivePath, destDir string, sink types.CursorSink, log *zap.Logger) (int, error) {
	if log == nil {
		log = zap.NewNop()
	}
	m, err := Extract(fsys, archivePath, destDir)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, item := range m.Items {
		ilog := log.With(zap.String("slot", item.CursorName), zap.String("path", item.FilePath))
		if _, ok := types.LookupSlot(item.CursorName); !ok {
			ilog.Warn("skipping unknown cursor slot")
			continue
		}
		data, err := fsys.ReadFile(item.FilePath)
		if err != nil {
			ilog.Warn("skipping unreadable pack item", zap.Error(err))
			continue
		}
		hotspot, size, err := describe(item.FilePath, data)
		if err != nil {
			ilog.Warn("skipping undecodable pack item", zap.Error(err))
			continue
		}
		if err := sink.ApplyCursor(item.CursorName, data, hotspot, size); err != nil {
			ilog.Warn("cursor sink rejected pack item", zap.Error(err))
			continue
		}
		applied++
	}
	log.Info("pack applied", zap.String("archive", archivePath),
		zap.Int("applied", applied), zap.Int("items", len(m.Items)))
	return applied, nil
}

// describe returns the hotspot and nominal size of a cursor file.
func describe(path string, data []byte) (types.Hotspot, int, error) {
	switch kind := types.KindFromPath(path); kind {
	case types.KindCur:
		w, h, err := cur.Dimensions(data)
		if err != nil {
			return types.Hotspot{}, 0, err
		}
		return cur.DecodeHotspot(data), max(w, h), nil
	case types.KindAni:
		a, err := ani.Parse(data)
		if err != nil {
			return types.Hotspot{}, 0, err
		}
		w, h, err := cur.Dimensions(a.Frames[0])
		if err != nil {
			return types.Hotspot{}, 0, err
		}
		return a.Hotspot().Hotspot, max(w, h), nil
	case types.KindUnknown, types.KindSvg, types.KindRaster, types.KindPack, types.KindIco:
		return types.Hotspot{}, 0, fmt.Errorf("%s is not a cursor file", kind)
	}
	return types.Hotspot{}, 0, fmt.Errorf("unhandled kind for %s", path)
}
