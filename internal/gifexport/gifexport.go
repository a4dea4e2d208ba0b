// Package gifexport renders animated cursors as looping GIFs so they can be
// shared outside of Windows.
package gifexport

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"math"

	"go.uber.org/zap"
	xdraw "golang.org/x/image/draw"

	"github.com/mesh-intelligence/cursorbox/internal/ani"
	"github.com/mesh-intelligence/cursorbox/internal/frame"
	"github.com/mesh-intelligence/cursorbox/pkg/types"
)

// MinDelayCentiseconds is the shortest delay written; many viewers treat
// 0 or 1 as "as fast as possible".
const MinDelayCentiseconds = 2

// alphaThreshold splits pixels into transparent and opaque.
const alphaThreshold = 0x80

// gifPalette is index 0 transparent followed by the Plan 9 colors.
var gifPalette = func() color.Palette {
	p := color.Palette{color.NRGBA{}}
	return append(p, palette.Plan9[:255]...)
}()

// Convert renders an animated cursor as a GIF. It reports false, and logs
// why at debug level, when data cannot be decoded; it never fails loudly.
func Convert(data []byte, log *zap.Logger) ([]byte, bool) {
	if log == nil {
		log = zap.NewNop()
	}
	out, err := convert(data)
	if err != nil {
		log.Debug("gif export produced no result", zap.Error(err))
		return nil, false
	}
	return out, true
}

func convert(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty input")
	}
	a, err := ani.Parse(data)
	if err != nil {
		return nil, err
	}

	decoded := make(map[int]image.Image)
	var canvas image.Rectangle
	for _, idx := range a.Order() {
		if _, ok := decoded[idx]; ok {
			continue
		}
		img, err := frame.Decode(a.Frames[idx])
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", idx, err)
		}
		decoded[idx] = img
		b := img.Bounds()
		canvas.Max.X = max(canvas.Max.X, b.Dx())
		canvas.Max.Y = max(canvas.Max.Y, b.Dy())
	}

	anim := &gif.GIF{
		LoopCount: 0,
		Config:    image.Config{ColorModel: gifPalette, Width: canvas.Dx(), Height: canvas.Dy()},
	}
	for step, idx := range a.Order() {
		anim.Image = append(anim.Image, paletted(decoded[idx], canvas))
		anim.Delay = append(anim.Delay, DelayCentiseconds(a.RateAt(step)))
		anim.Disposal = append(anim.Disposal, gif.DisposalBackground)
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, anim); err != nil {
		return nil, fmt.Errorf("encode gif: %w", err)
	}
	return buf.Bytes(), nil
}

// paletted centers img on a canvas-sized frame. Pixels below the alpha
// threshold map to the transparent index; the rest are dithered.
func paletted(img image.Image, canvas image.Rectangle) *image.Paletted {
	b := img.Bounds()
	offset := image.Pt((canvas.Dx()-b.Dx())/2, (canvas.Dy()-b.Dy())/2)

	opaque := image.NewNRGBA(canvas)
	xdraw.Copy(opaque, offset, img, b, xdraw.Src, nil)
	mask := image.NewAlpha(canvas)
	for i := 0; i < len(opaque.Pix); i += 4 {
		if opaque.Pix[i+3] >= alphaThreshold {
			mask.Pix[i/4] = 0xff
			opaque.Pix[i+3] = 0xff
		}
	}

	dst := image.NewPaletted(canvas, gifPalette)
	colored := image.NewPaletted(canvas, gifPalette[1:])
	xdraw.FloydSteinberg.Draw(colored, canvas, opaque, image.Point{})
	for i, m := range mask.Pix {
		if m != 0 {
			dst.Pix[i] = colored.Pix[i] + 1
		}
	}
	return dst
}

// DelayCentiseconds converts an ANI jiffy rate to a GIF frame delay.
func DelayCentiseconds(jiffies uint32) int {
	cs := int(math.Round(float64(jiffies) * 100 / ani.JiffiesPerSecond))
	return max(cs, MinDelayCentiseconds)
}

// ErrNoResult is returned by ExportFile when the source could not be rendered.
var ErrNoResult = errors.New("animated cursor could not be rendered as gif")

// ExportFile converts the animated cursor at src and writes the GIF to dst.
func ExportFile(fsys types.FileSystem, src, dst string, log *zap.Logger) error {
	data, err := fsys.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}
	out, ok := Convert(data, log)
	if !ok {
		return fmt.Errorf("%s: %w", src, ErrNoResult)
	}
	if err := fsys.WriteFile(dst, out); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return nil
}
