package convert

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"github.com/mesh-intelligence/cursorbox/internal/ani"
	"github.com/mesh-intelligence/cursorbox/internal/cur"
	"github.com/mesh-intelligence/cursorbox/internal/frame"
	"github.com/mesh-intelligence/cursorbox/internal/fsx"
	"github.com/mesh-intelligence/cursorbox/internal/library"
	"github.com/mesh-intelligence/cursorbox/internal/pack"
	"github.com/mesh-intelligence/cursorbox/pkg/types"
)

type env struct {
	src     string
	cursors string
	store   *library.Store
	conv    *Converter
}

func newEnv(t *testing.T) *env {
	t.Helper()
	root := t.TempDir()
	e := &env{src: filepath.Join(root, "src"), cursors: filepath.Join(root, "cursors")}
	require.NoError(t, os.MkdirAll(e.src, 0o755))
	e.store = library.NewStore(fsx.OS{}, filepath.Join(root, types.LibraryFile))
	e.conv = New(e.store, nil, e.cursors, nil)
	return e
}

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func (e *env) write(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(e.src, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestImportPNGIsDownscaled(t *testing.T) {
	e := newEnv(t)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solid(128, 64, color.NRGBA{R: 200, A: 255})))
	src := e.write(t, "logo.png", buf.Bytes())

	asset, err := e.conv.Import(Request{Source: src, Hotspot: &types.Hotspot{X: 100, Y: 3}})
	require.NoError(t, err)
	assert.Equal(t, "logo", asset.Name)
	assert.Equal(t, filepath.Join(e.cursors, "logo.cur"), asset.FilePath)

	data, err := os.ReadFile(asset.FilePath)
	require.NoError(t, err)
	w, h, err := cur.Dimensions(data)
	require.NoError(t, err)
	assert.Equal(t, 32, w)
	assert.Equal(t, 16, h)
	assert.Equal(t, types.Hotspot{X: 31, Y: 3}, cur.DecodeHotspot(data), "hotspot is clamped into the image")
	assert.Equal(t, cur.DecodeHotspot(data), asset.Hotspot())

	img, err := frame.Decode(data)
	require.NoError(t, err)
	px := img.NRGBAAt(16, 8)
	assert.InDelta(t, 200, int(px.R), 2)
	assert.Equal(t, uint8(255), px.A)
}

func TestImportBMPKeepsSmallImages(t *testing.T) {
	e := newEnv(t)
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, solid(20, 24, color.NRGBA{G: 90, A: 255})))
	src := e.write(t, "small.bmp", buf.Bytes())

	asset, err := e.conv.Import(Request{Source: src, Name: "Tiny", Size: 48})
	require.NoError(t, err)
	assert.Equal(t, "Tiny", asset.Name)

	data, err := os.ReadFile(asset.FilePath)
	require.NoError(t, err)
	w, h, err := cur.Dimensions(data)
	require.NoError(t, err)
	assert.Equal(t, []int{20, 24}, []int{w, h})
}

func TestImportCursorCopiesAndPatches(t *testing.T) {
	e := newEnv(t)
	original, err := cur.Encode(solid(16, 16, color.NRGBA{A: 255}), types.Hotspot{X: 2, Y: 2})
	require.NoError(t, err)
	src := e.write(t, "Arrow.CUR", original)

	plain, err := e.conv.Import(Request{Source: src})
	require.NoError(t, err)
	copied, err := os.ReadFile(plain.FilePath)
	require.NoError(t, err)
	assert.Equal(t, original, copied)
	assert.Equal(t, types.Hotspot{X: 2, Y: 2}, plain.Hotspot())

	patched, err := e.conv.Import(Request{Source: src, Hotspot: &types.Hotspot{X: 9, Y: 1}})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(e.cursors, "Arrow (1).cur"), patched.FilePath)
	assert.Equal(t, types.Hotspot{X: 9, Y: 1}, patched.Hotspot())
}

func TestImportAni(t *testing.T) {
	e := newEnv(t)
	f, err := cur.Encode(solid(8, 8, color.NRGBA{A: 255}), types.Hotspot{X: 3, Y: 4})
	require.NoError(t, err)
	data, err := ani.Encode(&ani.AniData{Frames: [][]byte{f, f}, DefaultRate: 6})
	require.NoError(t, err)

	asset, err := e.conv.Import(Request{Source: e.write(t, "spin.ani", data)})
	require.NoError(t, err)
	assert.Equal(t, types.Hotspot{X: 3, Y: 4}, asset.Hotspot())
	assert.Equal(t, ".ani", filepath.Ext(asset.FilePath))

	_, err = e.conv.Import(Request{Source: e.write(t, "bad.ani", []byte("RIFF"))})
	assert.ErrorIs(t, err, ani.ErrTruncated)
}

func TestImportPack(t *testing.T) {
	e := newEnv(t)
	cursorSrc := e.write(t, "a.cur", mustCur(t))
	other := library.NewStore(fsx.OS{}, filepath.Join(t.TempDir(), types.LibraryFile))
	built, err := pack.NewArchiver(other, e.src).Build(pack.BuildRequest{
		Name: "Glow", Mode: types.ModeSimple, Sources: map[string]string{"Arrow": cursorSrc},
	})
	require.NoError(t, err)

	asset, err := e.conv.Import(Request{Source: built.FilePath})
	require.NoError(t, err)
	assert.Equal(t, "Glow", asset.Name)
	assert.True(t, asset.IsPack)
	require.NotNil(t, asset.Pack)
	assert.Equal(t, asset.FilePath, asset.Pack.ArchivePath)
	assert.Equal(t, filepath.Join(e.cursors, "Glow.zip"), asset.FilePath)
}

func TestImportIconBecomesCursor(t *testing.T) {
	e := newEnv(t)
	data, err := cur.Encode(solid(64, 64, color.NRGBA{G: 200, A: 255}), types.Hotspot{})
	require.NoError(t, err)
	data[2] = cur.TypeIcon
	src := e.write(t, "app.ico", data)

	asset, err := e.conv.Import(Request{Source: src, Hotspot: &types.Hotspot{X: 40, Y: 2}})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(e.cursors, "app.cur"), asset.FilePath)
	assert.Equal(t, types.Hotspot{X: 31, Y: 2}, asset.Hotspot())

	out, err := os.ReadFile(asset.FilePath)
	require.NoError(t, err)
	dir, err := cur.ParseDirectory(out)
	require.NoError(t, err)
	assert.Equal(t, uint16(cur.TypeCursor), dir.Type)
	w, h, err := cur.Dimensions(out)
	require.NoError(t, err)
	assert.Equal(t, []int{32, 32}, []int{w, h})
}

func mustCur(t *testing.T) []byte {
	t.Helper()
	data, err := cur.Encode(solid(8, 8, color.NRGBA{A: 255}), types.Hotspot{})
	require.NoError(t, err)
	return data
}

func TestImportErrors(t *testing.T) {
	e := newEnv(t)
	_, err := e.conv.Import(Request{Source: e.write(t, "icon.svg", []byte("<svg/>"))})
	assert.ErrorIs(t, err, ErrUnsupportedKind)

	_, err = e.conv.Import(Request{Source: e.write(t, "notes.txt", []byte("x"))})
	assert.ErrorIs(t, err, ErrUnsupportedKind)

	_, err = e.conv.Import(Request{Source: e.write(t, "x.png", []byte("x")), Size: 257})
	assert.ErrorIs(t, err, ErrBadSize)

	_, err = e.conv.Import(Request{Source: filepath.Join(e.src, "missing.png")})
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = e.conv.Import(Request{Source: e.write(t, "corrupt.png", []byte("not a png"))})
	assert.Error(t, err)

	listed, err := e.store.List()
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestFit(t *testing.T) {
	tests := []struct {
		w, h, size int
		want       image.Rectangle
	}{
		{256, 256, 32, image.Rect(0, 0, 32, 32)},
		{300, 100, 30, image.Rect(0, 0, 30, 10)},
		{100, 300, 30, image.Rect(0, 0, 10, 30)},
		{10, 12, 32, image.Rect(0, 0, 10, 12)},
		{1000, 1, 10, image.Rect(0, 0, 10, 1)},
	}
	for _, tt := range tests {
		got := Fit(image.NewNRGBA(image.Rect(0, 0, tt.w, tt.h)), tt.size)
		assert.Equal(t, tt.want, got.Bounds(), "%dx%d into %d", tt.w, tt.h, tt.size)
	}
}
