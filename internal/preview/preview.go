// Package preview turns cursors into frames a UI can play back. Animated
// cursors are decoded in parallel and cached on disk under a key derived
// from the source file's stem, size and modification time.
package preview

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/cursorbox/internal/ani"
	"github.com/mesh-intelligence/cursorbox/internal/frame"
	"github.com/mesh-intelligence/cursorbox/internal/fsx"
	"github.com/mesh-intelligence/cursorbox/pkg/types"
)

// ManifestFile is the name of the manifest inside each cache directory.
const ManifestFile = "manifest.json"

// DefaultMinDelayMs is the shortest step duration reported to players.
const DefaultMinDelayMs = 16

// AniPreviewData is an ordered, timed frame sequence. Frames holds either
// file paths or data URLs depending on FramesArePaths; Delays[i] is how long
// Frames[i] is shown, in milliseconds.
type AniPreviewData struct {
	Frames         []string `json:"frames"`
	FramesArePaths bool     `json:"frames_are_paths"`
	Delays         []uint32 `json:"delays"`
	TotalDuration  uint64   `json:"total_duration"`
}

// Options tune a Cache.
type Options struct {
	// Workers bounds concurrent frame decodes; 0 means runtime.NumCPU().
	Workers int
	// MinDelayMs floors every step delay; 0 means DefaultMinDelayMs.
	MinDelayMs int
	Logger     *zap.Logger
	FS         types.FileSystem
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.MinDelayMs <= 0 {
		o.MinDelayMs = DefaultMinDelayMs
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.FS == nil {
		o.FS = fsx.OS{}
	}
	return o
}

// Cache produces animated cursor previews backed by a directory of decoded
// frames. Entries are never invalidated: a changed source yields a new key.
// Sources and cache files go through Options.FS; only Sweep lists and
// removes cache directories on the host filesystem.
type Cache struct {
	dir  string
	opts Options
}

// NewCache returns a Cache rooted at dir.
func NewCache(dir string, opts Options) *Cache {
	return &Cache{dir: dir, opts: opts.withDefaults()}
}

// Dir returns the cache root.
func (c *Cache) Dir() string { return c.dir }

var unsafeStemChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// CacheKey names the cache directory for a source file.
func CacheKey(path string, size int64, modTime time.Time) string {
	stem := unsafeStemChars.ReplaceAllString(fsx.Stem(path), "_")
	if stem == "" {
		stem = "cursor"
	}
	return fmt.Sprintf("%s_%d_%d", stem, size, modTime.Unix())
}

// KeyForFile stats path on the host filesystem and returns its cache key.
func KeyForFile(path string) (string, error) {
	return keyFor(fsx.OS{}, path)
}

func keyFor(fsys fsx.Stater, path string) (string, error) {
	fi, err := fsys.Stat(path)
	if err != nil {
		return "", err
	}
	return CacheKey(path, fi.Size(), fi.ModTime()), nil
}

// Ani returns the preview for the animated cursor at path, decoding and
// caching it on first use. Frames are cache file paths.
func (c *Cache) Ani(path string) (*AniPreviewData, error) {
	key, err := keyFor(c.opts.FS, path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	entryDir := filepath.Join(c.dir, key)
	manifestPath := filepath.Join(entryDir, ManifestFile)
	log := c.opts.Logger.With(zap.String("path", path), zap.String("key", key))

	if cached, ok := c.readManifest(manifestPath); ok {
		log.Debug("preview cache hit", zap.Int("frames", len(cached.Frames)))
		return cached, nil
	}
	log.Debug("preview cache miss")

	data, err := c.opts.FS.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	a, err := ani.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	refs := referencedFrames(a)
	frameFiles := make(map[int]string, len(refs))
	for _, idx := range refs {
		frameFiles[idx] = filepath.Join(entryDir, fmt.Sprintf("frame_%04d.png", idx))
	}
	err = forEachFrame(a, refs, c.opts.Workers, func(idx int, container []byte) error {
		name := frameFiles[idx]
		exists, err := fsx.StatExists(c.opts.FS, name)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		b, err := frame.RenderPNG(container)
		if err != nil {
			return fmt.Errorf("frame %d: %w", idx, err)
		}
		return c.opts.FS.WriteFile(name, b)
	})
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	order := a.Order()
	out := &AniPreviewData{
		Frames:         make([]string, len(order)),
		FramesArePaths: true,
		Delays:         StepDelays(a, c.opts.MinDelayMs),
	}
	for step, idx := range order {
		out.Frames[step] = frameFiles[idx]
	}
	out.TotalDuration = total(out.Delays)

	manifest, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	if err := c.opts.FS.WriteFile(manifestPath, manifest); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	log.Info("preview cached", zap.Int("frames", len(frameFiles)), zap.Int("steps", len(order)))
	return out, nil
}

func (c *Cache) readManifest(path string) (*AniPreviewData, bool) {
	b, err := c.opts.FS.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var m AniPreviewData
	if err := json.Unmarshal(b, &m); err != nil {
		c.opts.Logger.Warn("ignoring unreadable preview manifest", zap.String("manifest", path), zap.Error(err))
		return nil, false
	}
	if len(m.Frames) == 0 {
		return nil, false
	}
	return &m, true
}

// InlineAni decodes an animated cursor without touching the cache. Frames
// are PNG data URLs.
func InlineAni(data []byte, opts Options) (*AniPreviewData, error) {
	opts = opts.withDefaults()
	a, err := ani.Parse(data)
	if err != nil {
		return nil, err
	}

	urls := make([]string, len(a.Frames))
	err = forEachFrame(a, referencedFrames(a), opts.Workers, func(idx int, container []byte) error {
		b, err := frame.RenderPNG(container)
		if err != nil {
			return fmt.Errorf("frame %d: %w", idx, err)
		}
		urls[idx] = frame.PNGDataURL(b)
		return nil
	})
	if err != nil {
		return nil, err
	}

	order := a.Order()
	out := &AniPreviewData{
		Frames: make([]string, len(order)),
		Delays: StepDelays(a, opts.MinDelayMs),
	}
	for step, idx := range order {
		out.Frames[step] = urls[idx]
	}
	out.TotalDuration = total(out.Delays)
	return out, nil
}

// Cursor renders a static cursor as a PNG data URL.
func Cursor(data []byte) (string, error) {
	return frame.DataURL(data)
}

// referencedFrames lists each stored frame the animation shows, once, in
// order of first appearance.
func referencedFrames(a *ani.AniData) []int {
	seen := make(map[int]bool)
	var refs []int
	for _, idx := range a.Order() {
		if !seen[idx] {
			seen[idx] = true
			refs = append(refs, idx)
		}
	}
	return refs
}

// forEachFrame runs decode for every index in refs, up to workers at a time.
// Each call owns a distinct index, so callers may write results into
// per-index slots without locking.
func forEachFrame(a *ani.AniData, refs []int, workers int, decode func(idx int, container []byte) error) error {
	var g errgroup.Group
	g.SetLimit(workers)
	for _, idx := range refs {
		g.Go(func() error {
			return decode(idx, a.Frames[idx])
		})
	}
	return g.Wait()
}

// StepDelays converts each step's jiffy rate to milliseconds, floored at minMs.
func StepDelays(a *ani.AniData, minMs int) []uint32 {
	delays := make([]uint32, a.Steps())
	for step := range delays {
		ms := uint64(a.RateAt(step)) * 1000 / ani.JiffiesPerSecond
		if ms < uint64(minMs) {
			ms = uint64(minMs)
		}
		if ms > uint64(^uint32(0)) {
			ms = uint64(^uint32(0))
		}
		delays[step] = uint32(ms)
	}
	return delays
}

func total(delays []uint32) uint64 {
	var sum uint64
	for _, d := range delays {
		sum += uint64(d)
	}
	return sum
}
