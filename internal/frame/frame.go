// Package frame turns one cursor or icon container (a CUR file or a single
// ANI frame) into pixels. Embedded PNG payloads are decoded directly; legacy
// DIB payloads are decoded by hand, including the AND transparency mask.
package frame

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	"github.com/mesh-intelligence/cursorbox/internal/cur"
)

// Decode errors.
var (
	ErrUnsupportedDIB = errors.New("unsupported bitmap format")
	ErrTruncatedDIB   = errors.New("bitmap data truncated")
)

// DataURLPrefix starts every data URL DataURL returns.
const DataURLPrefix = "data:image/png;base64,"

// Decode returns the largest image in the container as NRGBA.
func Decode(container []byte) (*image.NRGBA, error) {
	dir, err := cur.ParseDirectory(container)
	if err != nil {
		return nil, err
	}
	i := dir.Largest()
	payload := dir.Payload(container, i)
	if cur.IsPNG(payload) {
		img, err := png.Decode(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("decode png frame: %w", err)
		}
		return toNRGBA(img), nil
	}
	img, err := decodeDIB(payload)
	if err != nil {
		return nil, fmt.Errorf("decode bitmap frame: %w", err)
	}
	return img, nil
}

// RenderPNG returns the largest image in the container as PNG bytes.
// Embedded PNG payloads are fully decoded and then returned as stored.
func RenderPNG(container []byte) ([]byte, error) {
	dir, err := cur.ParseDirectory(container)
	if err != nil {
		return nil, err
	}
	payload := dir.Payload(container, dir.Largest())
	if cur.IsPNG(payload) {
		if _, err := png.Decode(bytes.NewReader(payload)); err != nil {
			return nil, fmt.Errorf("decode png frame: %w", err)
		}
		return payload, nil
	}
	img, err := decodeDIB(payload)
	if err != nil {
		return nil, fmt.Errorf("decode bitmap frame: %w", err)
	}
	return EncodePNG(img)
}

// DataURL renders the container as an inline PNG data URL.
func DataURL(container []byte) (string, error) {
	b, err := RenderPNG(container)
	if err != nil {
		return "", err
	}
	return PNGDataURL(b), nil
}

// PNGDataURL wraps PNG bytes in a data URL.
func PNGDataURL(b []byte) string {
	return DataURLPrefix + base64.StdEncoding.EncodeToString(b)
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
