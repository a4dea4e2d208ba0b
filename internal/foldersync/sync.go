// Package foldersync reconciles the library index with the files actually
// present in the cursors directory.
package foldersync

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/cursorbox/internal/ani"
	"github.com/mesh-intelligence/cursorbox/internal/cur"
	"github.com/mesh-intelligence/cursorbox/internal/fsx"
	"github.com/mesh-intelligence/cursorbox/internal/library"
	"github.com/mesh-intelligence/cursorbox/internal/pack"
	"github.com/mesh-intelligence/cursorbox/pkg/types"
)

// Syncer scans one cursors directory.
type Syncer struct {
	store *library.Store
	fs    types.FileSystem
	dir   string
	log   *zap.Logger
}

// NewSyncer returns a Syncer for dir. A nil logger discards output.
func NewSyncer(store *library.Store, fsys types.FileSystem, dir string, log *zap.Logger) *Syncer {
	if fsys == nil {
		fsys = fsx.OS{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Syncer{store: store, fs: fsys, dir: dir, log: log}
}

// Dir returns the directory being reconciled.
func (s *Syncer) Dir() string { return s.dir }

// Result lists what one Sync changed.
type Result struct {
	Added   []types.CursorAsset
	Removed []types.CursorAsset
}

// Changed reports whether the index was written.
func (r Result) Changed() bool { return len(r.Added)+len(r.Removed) > 0 }

// Sync adds every cursor or pack file in the directory that the index does
// not know and drops every index entry whose file is gone. The index is
// written only when something changed.
func (s *Syncer) Sync() (Result, error) {
	onDisk, err := s.scan()
	if err != nil {
		return Result{}, err
	}

	var res Result
	err = s.store.Update(func(assets []types.CursorAsset) ([]types.CursorAsset, *types.LibraryEvent, error) {
		res = Result{}
		indexed := make(map[string]bool, len(assets))
		kept := make([]types.CursorAsset, 0, len(assets))
		for _, a := range assets {
			exists, err := fsx.StatExists(s.fs, a.FilePath)
			if err != nil {
				s.log.Warn("keeping entry with unknown file state",
					zap.String("id", a.ID), zap.String("path", a.FilePath), zap.Error(err))
				exists = true
			}
			if a.FilePath == "" || !exists {
				res.Removed = append(res.Removed, a)
				continue
			}
			indexed[filepath.Clean(a.FilePath)] = true
			kept = append(kept, a)
		}

		for _, path := range onDisk {
			if indexed[path] {
				continue
			}
			asset, ok := s.register(path)
			if !ok {
				continue
			}
			res.Added = append(res.Added, asset)
			kept = append(kept, asset)
		}

		if !res.Changed() {
			return assets, nil, nil
		}
		ids := make([]string, 0, len(res.Added)+len(res.Removed))
		for _, a := range res.Added {
			ids = append(ids, a.ID)
		}
		for _, a := range res.Removed {
			ids = append(ids, a.ID)
		}
		return kept, &types.LibraryEvent{Kind: types.EventSynced, IDs: ids}, nil
	})
	if err != nil {
		return Result{}, err
	}
	if res.Changed() {
		s.log.Info("library synced", zap.String("dir", s.dir),
			zap.Int("added", len(res.Added)), zap.Int("removed", len(res.Removed)))
	}
	return res, nil
}

// scan returns the cleaned paths of every library file in the directory.
// A missing directory holds nothing.
func (s *Syncer) scan() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan %s: %w", s.dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if types.KindFromPath(e.Name()).IsLibraryFile() {
			out = append(out, filepath.Join(s.dir, e.Name()))
		}
	}
	return out, nil
}

// register builds the index entry for a newly found file. Packs whose
// manifest cannot be read are skipped.
func (s *Syncer) register(path string) (types.CursorAsset, bool) {
	log := s.log.With(zap.String("path", path))
	asset := types.CursorAsset{Name: fsx.Stem(path), FilePath: path}

	switch kind := types.KindFromPath(path); kind {
	case types.KindPack:
		m, err := pack.ReadManifest(s.fs, path)
		if err != nil {
			log.Warn("skipping pack with unreadable manifest", zap.Error(err))
			return types.CursorAsset{}, false
		}
		if name := strings.TrimSpace(m.PackName); name != "" {
			asset.Name = name
		}
		asset.IsPack = true
		asset.Pack = m.Metadata(path)
	case types.KindCur, types.KindAni:
		probe := s.probe(kind, path)
		if !probe.Found() {
			log.Debug("hotspot defaulted", zap.Stringer("probe", probe.Status))
		}
		asset.SetHotspot(probe.Hotspot)
	case types.KindUnknown, types.KindSvg, types.KindRaster, types.KindIco:
		return types.CursorAsset{}, false
	}
	return s.store.NewAsset(asset), true
}

func (s *Syncer) probe(kind types.ImageKind, path string) cur.HotspotProbe {
	data, err := s.fs.ReadFile(path)
	if err != nil {
		return cur.HotspotProbe{Status: cur.ProbeNotAttempted}
	}
	if kind == types.KindAni {
		a, err := ani.Parse(data)
		if err != nil {
			return cur.HotspotProbe{Status: cur.ProbeUnavailable}
		}
		return a.Hotspot()
	}
	return cur.ProbeHotspot(data)
}
