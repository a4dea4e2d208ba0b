// Package convert brings outside images into the cursors directory. Raster
// images and icons become static cursors; cursor files and packs are copied as they
// are.
package convert

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	_ "golang.org/x/image/bmp" // register decoder
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register decoder

	"github.com/mesh-intelligence/cursorbox/internal/ani"
	"github.com/mesh-intelligence/cursorbox/internal/cur"
	"github.com/mesh-intelligence/cursorbox/internal/frame"
	"github.com/mesh-intelligence/cursorbox/internal/fsx"
	"github.com/mesh-intelligence/cursorbox/internal/library"
	"github.com/mesh-intelligence/cursorbox/internal/pack"
	"github.com/mesh-intelligence/cursorbox/pkg/types"
)

// DefaultSize is the cursor edge length raster images are reduced to.
const DefaultSize = 32

// Conversion errors.
var (
	ErrUnsupportedKind = errors.New("file type cannot be imported")
	ErrBadSize         = errors.New("cursor size must be between 1 and 256")
)

// Converter imports files into one cursors directory and registers them.
type Converter struct {
	store      *library.Store
	fs         types.FileSystem
	cursorsDir string
	log        *zap.Logger
}

// New returns a Converter. Nil fsys and log use the host filesystem and a
// no-op logger.
func New(store *library.Store, fsys types.FileSystem, cursorsDir string, log *zap.Logger) *Converter {
	if fsys == nil {
		fsys = fsx.OS{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Converter{store: store, fs: fsys, cursorsDir: cursorsDir, log: log}
}

// Request describes one import.
type Request struct {
	Source string
	// Name is the display name; empty uses the source file stem.
	Name string
	// Hotspot, when set, overrides the click point of static cursors.
	Hotspot *types.Hotspot
	// Size bounds the larger side of converted raster images; 0 means
	// DefaultSize. Smaller images are not enlarged.
	Size int
}

// Import copies or converts req.Source into the cursors directory and adds
// it to the library.
func (c *Converter) Import(req Request) (types.CursorAsset, error) {
	size := req.Size
	if size == 0 {
		size = DefaultSize
	}
	if size < 1 || size > cur.MaxDimension {
		return types.CursorAsset{}, fmt.Errorf("%w: %d", ErrBadSize, size)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = fsx.Stem(req.Source)
	}

	kind := types.KindFromPath(req.Source)
	log := c.log.With(zap.String("source", req.Source), zap.Stringer("kind", kind))
	switch kind {
	case types.KindSvg, types.KindUnknown:
		return types.CursorAsset{}, fmt.Errorf("%w: %s (%s)", ErrUnsupportedKind, req.Source, kind)
	}

	data, err := c.fs.ReadFile(req.Source)
	if err != nil {
		return types.CursorAsset{}, fmt.Errorf("read %s: %w", req.Source, err)
	}

	asset := types.CursorAsset{Name: name}
	ext := strings.ToLower(filepath.Ext(req.Source))
	switch kind {
	case types.KindRaster:
		data, err = rasterToCursor(data, size, req.Hotspot)
		if err != nil {
			return types.CursorAsset{}, fmt.Errorf("convert %s: %w", req.Source, err)
		}
		ext = ".cur"
		asset.SetHotspot(cur.DecodeHotspot(data))
	case types.KindIco:
		data, err = iconToCursor(data, size, req.Hotspot)
		if err != nil {
			return types.CursorAsset{}, fmt.Errorf("convert %s: %w", req.Source, err)
		}
		ext = ".cur"
		asset.SetHotspot(cur.DecodeHotspot(data))
	case types.KindCur:
		if _, err := cur.ParseDirectory(data); err != nil {
			return types.CursorAsset{}, fmt.Errorf("%s: %w", req.Source, err)
		}
		if req.Hotspot != nil {
			if data, err = cur.PatchHotspot(data, *req.Hotspot); err != nil {
				return types.CursorAsset{}, fmt.Errorf("%s: %w", req.Source, err)
			}
		}
		asset.SetHotspot(cur.DecodeHotspot(data))
	case types.KindAni:
		a, err := ani.Parse(data)
		if err != nil {
			return types.CursorAsset{}, fmt.Errorf("%s: %w", req.Source, err)
		}
		asset.SetHotspot(a.Hotspot().Hotspot)
	case types.KindPack:
		m, err := pack.ReadManifest(c.fs, req.Source)
		if err != nil {
			return types.CursorAsset{}, err
		}
		if req.Name == "" && m.PackName != "" {
			asset.Name = m.PackName
		}
		asset.IsPack = true
		asset.Pack = m.Metadata("")
	case types.KindSvg, types.KindUnknown:
		return types.CursorAsset{}, fmt.Errorf("%w: %s (%s)", ErrUnsupportedKind, req.Source, kind)
	}

	target, err := fsx.EnsureUniqueFilename(c.cursorsDir, fsx.Stem(req.Source)+ext)
	if err != nil {
		return types.CursorAsset{}, err
	}
	if err := c.fs.WriteFile(target, data); err != nil {
		return types.CursorAsset{}, fmt.Errorf("write %s: %w", target, err)
	}
	asset.FilePath = target
	if asset.Pack != nil {
		asset.Pack.ArchivePath = target
	}
	log.Info("cursor imported", zap.String("path", target))
	return c.store.Add(asset)
}

// rasterToCursor decodes an image, shrinks it so neither side exceeds size
// and encodes it as a static cursor.
func rasterToCursor(data []byte, size int, hotspot *types.Hotspot) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return encodeFit(src, size, hotspot)
}

// iconToCursor takes the largest image of an icon container and encodes it
// as a static cursor.
func iconToCursor(data []byte, size int, hotspot *types.Hotspot) ([]byte, error) {
	src, err := frame.Decode(data)
	if err != nil {
		return nil, err
	}
	return encodeFit(src, size, hotspot)
}

func encodeFit(src image.Image, size int, hotspot *types.Hotspot) ([]byte, error) {
	img := Fit(src, size)
	var h types.Hotspot
	if hotspot != nil {
		h = *hotspot
	}
	return cur.Encode(img, h)
}

// Fit returns img scaled down with Catmull-Rom resampling so its larger
// side is size, preserving aspect ratio. Images already within size are
// returned as an NRGBA copy.
func Fit(img image.Image, size int) *image.NRGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > size || h > size {
		if w >= h {
			w, h = size, max(1, h*size/w)
		} else {
			w, h = max(1, w*size/h), size
		}
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		xdraw.Copy(dst, image.Point{}, img, b, xdraw.Src, nil)
		return dst
	}
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}
