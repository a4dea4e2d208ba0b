package library

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mesh-intelligence/cursorbox/pkg/types"
)

// List returns every cursor in library order.
func (s *Store) List() ([]types.CursorAsset, error) {
	return s.Load()
}

// Get returns the cursor with the given ID.
func (s *Store) Get(id string) (types.CursorAsset, error) {
	assets, err := s.Load()
	if err != nil {
		return types.CursorAsset{}, err
	}
	i := indexOf(assets, id)
	if i < 0 {
		return types.CursorAsset{}, fmt.Errorf("%w: %s", types.ErrNotFound, id)
	}
	return assets[i], nil
}

// FindByPath returns the cursor stored at path, if any.
func (s *Store) FindByPath(path string) (types.CursorAsset, bool, error) {
	assets, err := s.Load()
	if err != nil {
		return types.CursorAsset{}, false, err
	}
	for _, a := range assets {
		if SamePath(a.FilePath, path) {
			return a, true, nil
		}
	}
	return types.CursorAsset{}, false, nil
}

// Add appends a cursor, assigning its ID and CreatedAt when empty.
func (s *Store) Add(asset types.CursorAsset) (types.CursorAsset, error) {
	if strings.TrimSpace(asset.Name) == "" {
		return types.CursorAsset{}, types.ErrInvalidName
	}
	asset = s.stamp(asset)
	err := s.Update(func(assets []types.CursorAsset) ([]types.CursorAsset, *types.LibraryEvent, error) {
		return append(assets, asset), &types.LibraryEvent{Kind: types.EventAdded, IDs: []string{asset.ID}}, nil
	})
	if err != nil {
		return types.CursorAsset{}, err
	}
	return asset, nil
}

// stamp fills the generated fields of a new asset.
func (s *Store) stamp(asset types.CursorAsset) types.CursorAsset {
	if asset.ID == "" {
		asset.ID = s.newID()
	}
	if asset.CreatedAt == "" {
		asset.CreatedAt = types.Timestamp(s.now())
	}
	if asset.FilePath != "" {
		asset.FilePath = filepath.Clean(asset.FilePath)
	}
	return asset
}

// NewAsset returns a stamped asset ready to append inside an Update.
func (s *Store) NewAsset(asset types.CursorAsset) types.CursorAsset {
	return s.stamp(asset)
}

// Remove deletes the cursor with the given ID from the index. The file on
// disk is left alone.
func (s *Store) Remove(id string) (types.CursorAsset, error) {
	var removed types.CursorAsset
	err := s.Update(func(assets []types.CursorAsset) ([]types.CursorAsset, *types.LibraryEvent, error) {
		i := indexOf(assets, id)
		if i < 0 {
			return nil, nil, fmt.Errorf("%w: %s", types.ErrNotFound, id)
		}
		removed = assets[i]
		return append(assets[:i], assets[i+1:]...), &types.LibraryEvent{Kind: types.EventRemoved, IDs: []string{id}}, nil
	})
	return removed, err
}

// Rename changes a cursor's display name.
func (s *Store) Rename(id, name string) (types.CursorAsset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.CursorAsset{}, types.ErrInvalidName
	}
	return s.modify(id, func(a *types.CursorAsset) { a.Name = name })
}

// UpdateHotspot records a new click point for a cursor.
func (s *Store) UpdateHotspot(id string, h types.Hotspot) (types.CursorAsset, error) {
	return s.modify(id, func(a *types.CursorAsset) { a.SetHotspot(h) })
}

// UpdatePath records a new file location for a cursor.
func (s *Store) UpdatePath(id, path string) (types.CursorAsset, error) {
	return s.modify(id, func(a *types.CursorAsset) { a.FilePath = filepath.Clean(path) })
}

func (s *Store) modify(id string, change func(*types.CursorAsset)) (types.CursorAsset, error) {
	var updated types.CursorAsset
	err := s.Update(func(assets []types.CursorAsset) ([]types.CursorAsset, *types.LibraryEvent, error) {
		i := indexOf(assets, id)
		if i < 0 {
			return nil, nil, fmt.Errorf("%w: %s", types.ErrNotFound, id)
		}
		change(&assets[i])
		updated = assets[i]
		return assets, &types.LibraryEvent{Kind: types.EventUpdated, IDs: []string{id}}, nil
	})
	return updated, err
}

// Reorder arranges the library in the given ID order. ids must name every
// cursor exactly once.
func (s *Store) Reorder(ids []string) error {
	return s.Update(func(assets []types.CursorAsset) ([]types.CursorAsset, *types.LibraryEvent, error) {
		if len(ids) != len(assets) {
			return nil, nil, fmt.Errorf("%w: got %d ids for %d cursors", types.ErrInvalidOrder, len(ids), len(assets))
		}
		byID := make(map[string]types.CursorAsset, len(assets))
		for _, a := range assets {
			byID[a.ID] = a
		}
		out := make([]types.CursorAsset, 0, len(ids))
		for _, id := range ids {
			a, ok := byID[id]
			if !ok {
				return nil, nil, fmt.Errorf("%w: %q missing or repeated", types.ErrInvalidOrder, id)
			}
			delete(byID, id)
			out = append(out, a)
		}
		return out, &types.LibraryEvent{Kind: types.EventReordered, IDs: ids}, nil
	})
}

func indexOf(assets []types.CursorAsset, id string) int {
	for i, a := range assets {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// SamePath compares two file paths after cleaning.
func SamePath(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}
