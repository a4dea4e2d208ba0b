package frame

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
)

const (
	bitmapInfoHeaderSize = 40
	biRGB                = 0
	biBitfields          = 3

	// maxDIBDimension rejects absurd headers before allocating.
	maxDIBDimension = 1024
)

// decodeDIB decodes an icon-style device-independent bitmap: a
// BITMAPINFOHEADER whose height covers both the XOR color bitmap and the
// 1-bit AND mask stacked after it, an optional palette, then the XOR rows
// and the AND rows. Rows are bottom-up unless the height is negative.
func decodeDIB(b []byte) (*image.NRGBA, error) {
	if len(b) < bitmapInfoHeaderSize {
		return nil, fmt.Errorf("%w: header needs %d bytes, have %d", ErrTruncatedDIB, bitmapInfoHeaderSize, len(b))
	}
	hdrSize := binary.LittleEndian.Uint32(b[0:])
	width := int64(int32(binary.LittleEndian.Uint32(b[4:])))
	rawHeight := int64(int32(binary.LittleEndian.Uint32(b[8:])))
	bpp := int(binary.LittleEndian.Uint16(b[14:]))
	compression := binary.LittleEndian.Uint32(b[16:])
	clrUsed := uint64(binary.LittleEndian.Uint32(b[32:]))

	if hdrSize < bitmapInfoHeaderSize || uint64(hdrSize) > uint64(len(b)) {
		return nil, fmt.Errorf("%w: header size %d", ErrUnsupportedDIB, hdrSize)
	}
	bottomUp := rawHeight > 0
	if rawHeight < 0 {
		rawHeight = -rawHeight
	}
	height := rawHeight / 2
	if width <= 0 || height <= 0 || width > maxDIBDimension || height > maxDIBDimension {
		return nil, fmt.Errorf("%w: %dx%d", ErrUnsupportedDIB, width, rawHeight)
	}
	switch bpp {
	case 1, 4, 8, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d bits per pixel", ErrUnsupportedDIB, bpp)
	}

	off := uint64(hdrSize)
	switch {
	case compression == biRGB:
	case compression == biBitfields && bpp == 32:
		if hdrSize == bitmapInfoHeaderSize {
			off += 12 // RGB masks follow a plain info header; BGRA order is assumed
		}
	default:
		return nil, fmt.Errorf("%w: compression %d at %d bpp", ErrUnsupportedDIB, compression, bpp)
	}

	var palette []color.NRGBA
	if bpp <= 8 {
		n := clrUsed
		if n == 0 || n > 1<<bpp {
			n = 1 << bpp
		}
		if off+4*n > uint64(len(b)) {
			return nil, fmt.Errorf("%w: palette of %d colors", ErrTruncatedDIB, n)
		}
		palette = make([]color.NRGBA, n)
		for i := range palette {
			p := b[off+uint64(i)*4:]
			palette[i] = color.NRGBA{R: p[2], G: p[1], B: p[0], A: 0xff}
		}
		off += 4 * n
	}

	w, h := int(width), int(height)
	xorStride := uint64((w*bpp + 31) / 32 * 4)
	andStride := uint64((w + 31) / 32 * 4)
	xorEnd := off + xorStride*uint64(h)
	if xorEnd > uint64(len(b)) {
		return nil, fmt.Errorf("%w: color bitmap needs %d bytes, have %d", ErrTruncatedDIB, xorEnd, len(b))
	}
	haveMask := xorEnd+andStride*uint64(h) <= uint64(len(b))

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	hasAlpha := false
	for y := 0; y < h; y++ {
		src := y
		if bottomUp {
			src = h - 1 - y
		}
		row := b[off+uint64(src)*xorStride : off+uint64(src+1)*xorStride]
		for x := 0; x < w; x++ {
			var c color.NRGBA
			switch bpp {
			case 32:
				p := row[x*4:]
				c = color.NRGBA{R: p[2], G: p[1], B: p[0], A: p[3]}
				if c.A != 0 {
					hasAlpha = true
				}
			case 24:
				p := row[x*3:]
				c = color.NRGBA{R: p[2], G: p[1], B: p[0], A: 0xff}
			default:
				c = paletteAt(palette, indexAt(row, x, bpp))
			}
			img.SetNRGBA(x, y, c)
		}
	}

	if bpp == 32 && hasAlpha {
		return img, nil
	}
	if !haveMask {
		return nil, fmt.Errorf("%w: transparency mask missing", ErrTruncatedDIB)
	}
	for y := 0; y < h; y++ {
		src := y
		if bottomUp {
			src = h - 1 - y
		}
		row := b[xorEnd+uint64(src)*andStride:]
		for x := 0; x < w; x++ {
			i := img.PixOffset(x, y) + 3
			if row[x/8]&(0x80>>(x%8)) != 0 {
				img.Pix[i] = 0
			} else {
				img.Pix[i] = 0xff
			}
		}
	}
	return img, nil
}

func indexAt(row []byte, x, bpp int) int {
	bit := x * bpp
	v := row[bit/8]
	shift := 8 - bpp - bit%8
	return int(v>>shift) & (1<<bpp - 1)
}

func paletteAt(p []color.NRGBA, i int) color.NRGBA {
	if i < len(p) {
		return p[i]
	}
	return color.NRGBA{A: 0xff}
}
