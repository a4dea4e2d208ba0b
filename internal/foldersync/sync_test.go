package foldersync

import (
	"archive/zip"
	"context"
	"image"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mesh-intelligence/cursorbox/internal/ani"
	"github.com/mesh-intelligence/cursorbox/internal/cur"
	"github.com/mesh-intelligence/cursorbox/internal/fsx"
	"github.com/mesh-intelligence/cursorbox/internal/library"
	"github.com/mesh-intelligence/cursorbox/internal/pack"
	"github.com/mesh-intelligence/cursorbox/pkg/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// countingFS counts index writes.
type countingFS struct {
	fsx.OS
	mu     sync.Mutex
	writes int
}

func (c *countingFS) WriteFile(path string, data []byte) error {
	c.mu.Lock()
	c.writes++
	c.mu.Unlock()
	return c.OS.WriteFile(path, data)
}

func (c *countingFS) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

type fixture struct {
	dir     string
	fs      *countingFS
	store   *library.Store
	syncer  *Syncer
	events  []types.LibraryEvent
	eventMu sync.Mutex
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{dir: filepath.Join(t.TempDir(), "cursors"), fs: &countingFS{}}
	require.NoError(t, os.MkdirAll(f.dir, 0o755))
	f.store = library.NewStore(f.fs, filepath.Join(t.TempDir(), types.LibraryFile),
		library.WithEvents(types.EventSinkFunc(func(ev types.LibraryEvent) {
			f.eventMu.Lock()
			f.events = append(f.events, ev)
			f.eventMu.Unlock()
		})))
	f.syncer = NewSyncer(f.store, fsx.OS{}, f.dir, nil)
	return f
}

func (f *fixture) curFile(t *testing.T, name string, h types.Hotspot) string {
	t.Helper()
	data, err := cur.Encode(image.NewNRGBA(image.Rect(0, 0, 32, 32)), h)
	require.NoError(t, err)
	path := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func (f *fixture) aniFile(t *testing.T, name string, h types.Hotspot) string {
	t.Helper()
	frame, err := cur.Encode(image.NewNRGBA(image.Rect(0, 0, 16, 16)), h)
	require.NoError(t, err)
	data, err := ani.Encode(&ani.AniData{Frames: [][]byte{frame}, DefaultRate: 10})
	require.NoError(t, err)
	path := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func names(assets []types.CursorAsset) []string {
	var out []string
	for _, a := range assets {
		out = append(out, a.Name)
	}
	sort.Strings(out)
	return out
}

func TestSyncRegistersFiles(t *testing.T) {
	f := newFixture(t)
	f.curFile(t, "arrow.cur", types.Hotspot{X: 4, Y: 5})
	f.aniFile(t, "busy.ani", types.Hotspot{X: 7, Y: 8})
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "broken.cur"), []byte("nope"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, ".library.json.tmp-1"), []byte("x"), 0o644))

	res, err := f.syncer.Sync()
	require.NoError(t, err)
	assert.Equal(t, []string{"arrow", "broken", "busy"}, names(res.Added))
	assert.Empty(t, res.Removed)

	all, err := f.store.List()
	require.NoError(t, err)
	byName := map[string]types.CursorAsset{}
	for _, a := range all {
		byName[a.Name] = a
		assert.NotEmpty(t, a.ID)
		assert.NotEmpty(t, a.CreatedAt)
	}
	assert.Equal(t, types.Hotspot{X: 4, Y: 5}, byName["arrow"].Hotspot())
	assert.Equal(t, types.Hotspot{X: 7, Y: 8}, byName["busy"].Hotspot())
	assert.Equal(t, types.Hotspot{}, byName["broken"].Hotspot(), "unreadable hotspot defaults to origin")

	require.Len(t, f.events, 1)
	assert.Equal(t, types.EventSynced, f.events[0].Kind)
	assert.Len(t, f.events[0].IDs, 3)
}

func TestSyncIgnoresIcons(t *testing.T) {
	f := newFixture(t)
	f.curFile(t, "arrow.cur", types.Hotspot{})
	icon := f.curFile(t, "app.ico", types.Hotspot{})
	data, err := os.ReadFile(icon)
	require.NoError(t, err)
	data[2] = cur.TypeIcon
	require.NoError(t, os.WriteFile(icon, data, 0o644))

	res, err := f.syncer.Sync()
	require.NoError(t, err)
	assert.Equal(t, []string{"arrow"}, names(res.Added))

	all, err := f.store.List()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "arrow", all[0].Name)
}

func TestSyncIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.curFile(t, "arrow.cur", types.Hotspot{})

	_, err := f.syncer.Sync()
	require.NoError(t, err)
	writes := f.fs.count()
	require.Equal(t, 1, writes)

	res, err := f.syncer.Sync()
	require.NoError(t, err)
	assert.False(t, res.Changed())
	assert.Equal(t, writes, f.fs.count(), "second sync writes nothing")
	assert.Len(t, f.events, 1)
}

func TestSyncReconciles(t *testing.T) {
	f := newFixture(t)
	var stale []string
	for _, name := range []string{"old1.cur", "old2.cur", "old3.ani"} {
		var path string
		if filepath.Ext(name) == ".ani" {
			path = f.aniFile(t, name, types.Hotspot{})
		} else {
			path = f.curFile(t, name, types.Hotspot{})
		}
		stale = append(stale, path)
	}
	f.curFile(t, "kept.cur", types.Hotspot{})
	_, err := f.syncer.Sync()
	require.NoError(t, err)

	outside := filepath.Join(t.TempDir(), "outside.cur")
	data, err := os.ReadFile(filepath.Join(f.dir, "kept.cur"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(outside, data, 0o644))
	_, err = f.store.Add(types.CursorAsset{Name: "outside", FilePath: outside})
	require.NoError(t, err)

	for _, p := range stale {
		require.NoError(t, os.Remove(p))
	}
	f.curFile(t, "new1.cur", types.Hotspot{})
	f.aniFile(t, "new2.ani", types.Hotspot{})

	res, err := f.syncer.Sync()
	require.NoError(t, err)
	assert.Equal(t, []string{"old1", "old2", "old3"}, names(res.Removed))
	assert.Equal(t, []string{"new1", "new2"}, names(res.Added))

	all, err := f.store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"kept", "new1", "new2", "outside"}, names(all))
}

func TestSyncPacks(t *testing.T) {
	f := newFixture(t)
	src := filepath.Join(t.TempDir(), "src.cur")
	data, err := cur.Encode(image.NewNRGBA(image.Rect(0, 0, 8, 8)), types.Hotspot{})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(src, data, 0o644))

	other := library.NewStore(fsx.OS{}, filepath.Join(t.TempDir(), types.LibraryFile))
	built, err := pack.NewArchiver(other, f.dir).Build(pack.BuildRequest{
		Name: "Night", Mode: types.ModeSimple, Sources: map[string]string{"Arrow": src},
	})
	require.NoError(t, err)

	bad, err := os.Create(filepath.Join(f.dir, "junk.zip"))
	require.NoError(t, err)
	zw := zip.NewWriter(bad)
	_, err = zw.Create("readme.txt")
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, bad.Close())

	res, err := f.syncer.Sync()
	require.NoError(t, err)
	require.Len(t, res.Added, 1, "packs without a manifest are skipped")
	got := res.Added[0]
	assert.Equal(t, "Night", got.Name)
	assert.True(t, got.IsPack)
	assert.Equal(t, built.FilePath, got.FilePath)
	require.NotNil(t, got.Pack)
	assert.Equal(t, built.Pack.Items, got.Pack.Items)
}

func TestSyncMissingDirectoryRemovesEverything(t *testing.T) {
	f := newFixture(t)
	f.curFile(t, "a.cur", types.Hotspot{})
	_, err := f.syncer.Sync()
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(f.dir))
	res, err := f.syncer.Sync()
	require.NoError(t, err)
	assert.Len(t, res.Removed, 1)
}

func TestWatcherResyncsAfterChanges(t *testing.T) {
	f := newFixture(t)
	synced := make(chan Result, 16)
	w := NewWatcher(f.syncer, WithDebounce(30*time.Millisecond),
		OnSync(func(r Result, err error) {
			assert.NoError(t, err)
			synced <- r
		}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case <-synced:
	case <-time.After(5 * time.Second):
		t.Fatal("initial sync did not run")
	}

	f.curFile(t, "late.cur", types.Hotspot{X: 1, Y: 1})

	var added []types.CursorAsset
	deadline := time.After(5 * time.Second)
	for len(added) == 0 {
		select {
		case r := <-synced:
			added = append(added, r.Added...)
		case <-deadline:
			t.Fatal("watcher did not pick up the new file")
		}
	}
	assert.Equal(t, "late", added[0].Name)

	cancel()
	require.NoError(t, <-done)
	stats := w.Stats()
	assert.GreaterOrEqual(t, stats.Syncs, 2)
	assert.GreaterOrEqual(t, stats.Events, 1)
}
