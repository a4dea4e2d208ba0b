package preview

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mesh-intelligence/cursorbox/internal/ani"
	"github.com/mesh-intelligence/cursorbox/internal/cur"
	"github.com/mesh-intelligence/cursorbox/internal/frame"
	"github.com/mesh-intelligence/cursorbox/internal/fsx"
	"github.com/mesh-intelligence/cursorbox/pkg/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// countingFS records reads and stats per path.
type countingFS struct {
	fsx.OS
	mu    sync.Mutex
	reads map[string]int
	stats map[string]int
}

func (c *countingFS) Stat(path string) (fs.FileInfo, error) {
	c.mu.Lock()
	if c.stats == nil {
		c.stats = make(map[string]int)
	}
	c.stats[path]++
	c.mu.Unlock()
	return c.OS.Stat(path)
}

func (c *countingFS) ReadFile(path string) ([]byte, error) {
	c.mu.Lock()
	if c.reads == nil {
		c.reads = make(map[string]int)
	}
	c.reads[path]++
	c.mu.Unlock()
	return c.OS.ReadFile(path)
}

func shade(i int) color.NRGBA {
	return color.NRGBA{R: uint8(i * 5), G: 0x40, B: 0x80, A: 0xff}
}

func makeAni(t *testing.T, frames int, seq, rates []uint32, defaultRate uint32) []byte {
	t.Helper()
	a := &ani.AniData{Sequence: seq, Rates: rates, DefaultRate: defaultRate}
	for i := 0; i < frames; i++ {
		img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
		for p := 0; p < len(img.Pix); p += 4 {
			c := shade(i)
			img.Pix[p], img.Pix[p+1], img.Pix[p+2], img.Pix[p+3] = c.R, c.G, c.B, c.A
		}
		data, err := cur.Encode(img, types.Hotspot{})
		require.NoError(t, err)
		a.Frames = append(a.Frames, data)
	}
	data, err := ani.Encode(a)
	require.NoError(t, err)
	return data
}

func writeAni(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func pngShade(t *testing.T, b []byte) color.NRGBA {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(b))
	require.NoError(t, err)
	return color.NRGBAModel.Convert(img.At(0, 0)).(color.NRGBA)
}

func TestCacheKey(t *testing.T) {
	mtime := time.Unix(1700000000, 123)
	assert.Equal(t, "my_cursor__1__2048_1700000000", CacheKey("/x/my cursor (1).ani", 2048, mtime))
	assert.Equal(t, "busy-2_10_1700000000", CacheKey("busy-2.ani", 10, mtime))
	assert.Equal(t, "cursor_0_1700000000", CacheKey(".ani", 0, mtime))
}

func TestAniBuildsManifestInStepOrder(t *testing.T) {
	src := writeAni(t, t.TempDir(), "busy.ani", makeAni(t, 3, []uint32{2, 0, 1, 0}, []uint32{6, 0, 30, 1}, 5))
	cache := NewCache(t.TempDir(), Options{Workers: 2})

	got, err := cache.Ani(src)
	require.NoError(t, err)
	require.Len(t, got.Frames, 4)
	require.Len(t, got.Delays, 4)
	assert.True(t, got.FramesArePaths)

	assert.Equal(t, []uint32{100, 16, 500, 16}, got.Delays)
	assert.Equal(t, uint64(632), got.TotalDuration)

	for step, want := range []int{2, 0, 1, 0} {
		b, err := os.ReadFile(got.Frames[step])
		require.NoError(t, err)
		assert.Equal(t, shade(want), pngShade(t, b), "step %d", step)
	}
	assert.Equal(t, got.Frames[1], got.Frames[3], "repeated frames share one file")

	key, err := KeyForFile(src)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(cache.Dir(), key, ManifestFile))
	assert.NoError(t, err)
}

func TestAniCacheHitSkipsDecode(t *testing.T) {
	fsys := &countingFS{}
	src := writeAni(t, t.TempDir(), "spin.ani", makeAni(t, 2, nil, nil, 3))
	cache := NewCache(t.TempDir(), Options{FS: fsys})

	first, err := cache.Ani(src)
	require.NoError(t, err)
	second, err := cache.Ani(src)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, fsys.reads[src], "source is read once")
	assert.Equal(t, []uint32{50, 50}, first.Delays)
}

func TestAniStatsThroughFileSystem(t *testing.T) {
	fsys := &countingFS{}
	src := writeAni(t, t.TempDir(), "spin.ani", makeAni(t, 2, nil, nil, 3))
	cache := NewCache(t.TempDir(), Options{FS: fsys})

	got, err := cache.Ani(src)
	require.NoError(t, err)
	assert.Equal(t, 1, fsys.stats[src])
	for _, f := range got.Frames {
		assert.Equal(t, 1, fsys.stats[f], "frame %s", f)
	}

	removed, err := cache.Sweep([]string{src})
	require.NoError(t, err)
	assert.Empty(t, removed)
	assert.Equal(t, 2, fsys.stats[src])
}

func TestAniEmptyManifestIsRecomputed(t *testing.T) {
	src := writeAni(t, t.TempDir(), "spin.ani", makeAni(t, 2, nil, nil, 3))
	cache := NewCache(t.TempDir(), Options{})

	key, err := KeyForFile(src)
	require.NoError(t, err)
	manifest := filepath.Join(cache.Dir(), key, ManifestFile)
	require.NoError(t, fsx.OS{}.WriteFile(manifest, []byte(`{"frames":[],"delays":[]}`)))

	got, err := cache.Ani(src)
	require.NoError(t, err)
	assert.Len(t, got.Frames, 2)
}

func TestAniKeepsExistingFrameFiles(t *testing.T) {
	src := writeAni(t, t.TempDir(), "spin.ani", makeAni(t, 2, nil, nil, 3))
	cache := NewCache(t.TempDir(), Options{})

	key, err := KeyForFile(src)
	require.NoError(t, err)
	existing := filepath.Join(cache.Dir(), key, "frame_0000.png")
	require.NoError(t, fsx.OS{}.WriteFile(existing, []byte("partial")))

	got, err := cache.Ani(src)
	require.NoError(t, err)
	assert.Equal(t, existing, got.Frames[0])

	b, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "partial", string(b), "existing frame files are not rewritten")
}

func TestAniChangedSourceGetsNewKey(t *testing.T) {
	dir := t.TempDir()
	src := writeAni(t, dir, "spin.ani", makeAni(t, 2, nil, nil, 3))
	cache := NewCache(t.TempDir(), Options{})

	first, err := cache.Ani(src)
	require.NoError(t, err)

	writeAni(t, dir, "spin.ani", makeAni(t, 5, nil, nil, 3))
	second, err := cache.Ani(src)
	require.NoError(t, err)

	assert.Len(t, second.Frames, 5)
	assert.NotEqual(t, filepath.Dir(first.Frames[0]), filepath.Dir(second.Frames[0]))

	entries, err := os.ReadDir(cache.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 2, "old entries are left for Sweep")
}

func TestAniManyFramesPreserveOrder(t *testing.T) {
	const n = 40
	src := writeAni(t, t.TempDir(), "long.ani", makeAni(t, n, nil, nil, 1))
	cache := NewCache(t.TempDir(), Options{Workers: 8})

	got, err := cache.Ani(src)
	require.NoError(t, err)
	require.Len(t, got.Frames, n)
	for i, path := range got.Frames {
		b, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, shade(i), pngShade(t, b), "frame %d", i)
	}
}

func TestAniErrors(t *testing.T) {
	dir := t.TempDir()
	cache := NewCache(t.TempDir(), Options{})

	_, err := cache.Ani(filepath.Join(dir, "missing.ani"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := writeAni(t, dir, "bad.ani", make([]byte, 100))
	_, err = cache.Ani(bad)
	assert.ErrorIs(t, err, ani.ErrNotRIFF)

	entries, err := os.ReadDir(cache.Dir())
	if err == nil {
		assert.Empty(t, entries, "failed parses leave no manifest")
	}
}

func TestAniTruncatedFrameFails(t *testing.T) {
	good, err := cur.Encode(image.NewNRGBA(image.Rect(0, 0, 8, 8)), types.Hotspot{})
	require.NoError(t, err)
	dir, err := cur.ParseDirectory(good)
	require.NoError(t, err)
	payload := dir.Payload(good, 0)[:33]
	bad := append([]byte(nil), good[:cur.MinLength]...)
	binary.LittleEndian.PutUint32(bad[14:], uint32(len(payload)))
	bad = append(bad, payload...)

	data, err := ani.Encode(&ani.AniData{Frames: [][]byte{good, bad}, DefaultRate: 3})
	require.NoError(t, err)
	src := writeAni(t, t.TempDir(), "torn.ani", data)
	cache := NewCache(t.TempDir(), Options{})

	_, err = cache.Ani(src)
	assert.Error(t, err)
	key, err := KeyForFile(src)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(cache.Dir(), key, ManifestFile))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = InlineAni(data, Options{})
	assert.Error(t, err)
}

func TestInlineAni(t *testing.T) {
	data := makeAni(t, 3, []uint32{1, 1, 2}, nil, 12)

	got, err := InlineAni(data, Options{Workers: 3})
	require.NoError(t, err)
	require.Len(t, got.Frames, 3)
	assert.False(t, got.FramesArePaths)
	assert.Equal(t, []uint32{200, 200, 200}, got.Delays)
	assert.Equal(t, uint64(600), got.TotalDuration)
	assert.Equal(t, got.Frames[0], got.Frames[1])
	assert.NotEqual(t, got.Frames[1], got.Frames[2])
	for _, f := range got.Frames {
		assert.True(t, strings.HasPrefix(f, frame.DataURLPrefix))
	}

	_, err = InlineAni(nil, Options{})
	assert.Error(t, err)
}

func TestCursorPreview(t *testing.T) {
	data, err := cur.Encode(image.NewNRGBA(image.Rect(0, 0, 4, 4)), types.Hotspot{})
	require.NoError(t, err)
	url, err := Cursor(data)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, frame.DataURLPrefix))
}

func TestStepDelays(t *testing.T) {
	a := &ani.AniData{Frames: make([][]byte, 3), Rates: []uint32{1, 2, 3}}
	assert.Equal(t, []uint32{16, 33, 50}, StepDelays(a, 16))
	assert.Equal(t, []uint32{20, 33, 50}, StepDelays(a, 20))
}

func TestSweep(t *testing.T) {
	dir := t.TempDir()
	keep := writeAni(t, dir, "keep.ani", makeAni(t, 1, nil, nil, 1))
	gone := writeAni(t, dir, "gone.ani", makeAni(t, 1, nil, nil, 1))
	cache := NewCache(t.TempDir(), Options{})

	_, err := cache.Ani(keep)
	require.NoError(t, err)
	_, err = cache.Ani(gone)
	require.NoError(t, err)
	require.NoError(t, os.Remove(gone))

	removed, err := cache.Sweep([]string{keep, gone})
	require.NoError(t, err)
	require.Len(t, removed, 1)
	assert.True(t, strings.HasPrefix(removed[0], "gone_"))

	again, err := cache.Ani(keep)
	require.NoError(t, err)
	assert.Len(t, again.Frames, 1)

	empty := NewCache(filepath.Join(dir, "nope"), Options{})
	removed, err = empty.Sweep(nil)
	assert.NoError(t, err)
	assert.Empty(t, removed)
}
