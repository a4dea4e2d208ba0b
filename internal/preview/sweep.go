package preview

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Sweep removes cache entries that no longer match any of the live source
// files and returns the removed entry names. Sources that cannot be stat'ed
// contribute no key, so their stale entries are removed too.
//
// Sweep is a maintenance operation; Ani never calls it.
func (c *Cache) Sweep(live []string) ([]string, error) {
	keep := make(map[string]bool, len(live))
	for _, p := range live {
		key, err := keyFor(c.opts.FS, p)
		if err != nil {
			continue
		}
		keep[key] = true
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read cache dir: %w", err)
	}

	var removed []string
	for _, e := range entries {
		if !e.IsDir() || keep[e.Name()] {
			continue
		}
		if err := os.RemoveAll(filepath.Join(c.dir, e.Name())); err != nil {
			return removed, fmt.Errorf("remove %s: %w", e.Name(), err)
		}
		c.opts.Logger.Debug("swept preview cache entry", zap.String("key", e.Name()))
		removed = append(removed, e.Name())
	}
	return removed, nil
}
