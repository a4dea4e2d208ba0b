// Package cur reads and writes the Windows single-image cursor container
// (the ICO directory layout with type 2 and a hotspot in each entry).
//
// Layout, all integers little-endian:
//
//	0  u16 reserved (0)
//	2  u16 type (1 icon, 2 cursor)
//	4  u16 image count
//	6  16-byte directory entries:
//	   +0 u8 width (0 = 256)   +1 u8 height (0 = 256)
//	   +2 u8 color count       +3 u8 reserved
//	   +4 u16 hotspot x        +6 u16 hotspot y
//	   +8 u32 payload size     +12 u32 payload offset
package cur

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/png"

	"github.com/mesh-intelligence/cursorbox/pkg/types"
)

const (
	// MaxDimension is the largest width or height the container can declare.
	MaxDimension = 256
	// MinLength is the size of a header plus one directory entry.
	MinLength = headerSize + entrySize

	headerSize = 6
	entrySize  = 16

	// Absolute offsets of the first entry's hotspot fields.
	hotspotXOffset = 10
	hotspotYOffset = 12
)

// Container types.
const (
	TypeIcon   = 1
	TypeCursor = 2
)

// Container errors.
var (
	ErrTooShort     = errors.New("cursor data too short")
	ErrBadSignature = errors.New("not a cursor container")
	ErrOutOfBounds  = errors.New("cursor image offset or size out of bounds")
	ErrTooLarge     = errors.New("image exceeds cursor size limit")
	ErrEmptyImage   = errors.New("image has no pixels")
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// IsPNG reports whether b starts with the PNG signature.
func IsPNG(b []byte) bool {
	return bytes.HasPrefix(b, pngSignature)
}

// Entry is one parsed directory entry.
type Entry struct {
	Width   int // already substituted: a stored 0 reads as 256
	Height  int
	Hotspot types.Hotspot
	Size    uint32
	Offset  uint32
}

// Directory is a parsed container header and its entries.
type Directory struct {
	Type    uint16
	Entries []Entry
}

// ParseDirectory validates the header and every entry's payload bounds.
// Both icon (type 1) and cursor (type 2) containers are accepted, since
// animated cursor frames may carry either.
func ParseDirectory(data []byte) (Directory, error) {
	if len(data) < MinLength {
		return Directory{}, fmt.Errorf("%w: %d bytes, need at least %d", ErrTooShort, len(data), MinLength)
	}
	reserved := binary.LittleEndian.Uint16(data[0:])
	typ := binary.LittleEndian.Uint16(data[2:])
	count := int(binary.LittleEndian.Uint16(data[4:]))
	if reserved != 0 || (typ != TypeIcon && typ != TypeCursor) {
		return Directory{}, ErrBadSignature
	}
	if count == 0 {
		return Directory{}, fmt.Errorf("%w: zero images", ErrBadSignature)
	}
	if headerSize+count*entrySize > len(data) {
		return Directory{}, fmt.Errorf("%w: %d entries do not fit in %d bytes", ErrTooShort, count, len(data))
	}

	dir := Directory{Type: typ, Entries: make([]Entry, 0, count)}
	for i := 0; i < count; i++ {
		e := data[headerSize+i*entrySize:]
		entry := Entry{
			Width:  dimension(e[0]),
			Height: dimension(e[1]),
			Hotspot: types.Hotspot{
				X: binary.LittleEndian.Uint16(e[4:]),
				Y: binary.LittleEndian.Uint16(e[6:]),
			},
			Size:   binary.LittleEndian.Uint32(e[8:]),
			Offset: binary.LittleEndian.Uint32(e[12:]),
		}
		end := uint64(entry.Offset) + uint64(entry.Size)
		if entry.Size == 0 || entry.Offset < uint32(headerSize+count*entrySize) || end > uint64(len(data)) {
			return Directory{}, fmt.Errorf("%w: entry %d at %d+%d, container is %d bytes",
				ErrOutOfBounds, i, entry.Offset, entry.Size, len(data))
		}
		dir.Entries = append(dir.Entries, entry)
	}
	return dir, nil
}

// Payload returns the image bytes of entry i. The directory must come from
// ParseDirectory(data).
func (d Directory) Payload(data []byte, i int) []byte {
	e := d.Entries[i]
	return data[e.Offset : e.Offset+e.Size]
}

// Largest returns the index of the entry with the most pixels.
func (d Directory) Largest() int {
	best := 0
	for i, e := range d.Entries {
		b := d.Entries[best]
		if e.Width*e.Height > b.Width*b.Height {
			best = i
		}
	}
	return best
}

func dimension(b byte) int {
	if b == 0 {
		return MaxDimension
	}
	return int(b)
}

// Encode writes img as a single-image cursor with a PNG payload. The hotspot
// is clamped into the image.
func Encode(img image.Image, hotspot types.Hotspot) ([]byte, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > MaxDimension || h > MaxDimension {
		return nil, fmt.Errorf("%w: %dx%d, cursors are at most %dx%d pixels",
			ErrTooLarge, w, h, MaxDimension, MaxDimension)
	}
	if w <= 0 || h <= 0 {
		return nil, ErrEmptyImage
	}

	var payload bytes.Buffer
	if err := png.Encode(&payload, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}

	hotspot = clamp(hotspot, w, h)
	out := make([]byte, MinLength, MinLength+payload.Len())
	binary.LittleEndian.PutUint16(out[0:], 0)
	binary.LittleEndian.PutUint16(out[2:], TypeCursor)
	binary.LittleEndian.PutUint16(out[4:], 1)
	out[6] = byte(w) // 256 wraps to 0
	out[7] = byte(h)
	binary.LittleEndian.PutUint16(out[hotspotXOffset:], hotspot.X)
	binary.LittleEndian.PutUint16(out[hotspotYOffset:], hotspot.Y)
	binary.LittleEndian.PutUint32(out[14:], uint32(payload.Len()))
	binary.LittleEndian.PutUint32(out[18:], MinLength)
	return append(out, payload.Bytes()...), nil
}

func clamp(h types.Hotspot, w, ht int) types.Hotspot {
	if int(h.X) >= w {
		h.X = uint16(w - 1)
	}
	if int(h.Y) >= ht {
		h.Y = uint16(ht - 1)
	}
	return h
}

// validHeader checks the length and the cursor signature only.
func validHeader(data []byte) bool {
	return len(data) >= MinLength &&
		binary.LittleEndian.Uint16(data[0:]) == 0 &&
		binary.LittleEndian.Uint16(data[2:]) == TypeCursor
}

// DecodeHotspot returns the first entry's hotspot, or the zero hotspot when
// data is not a cursor container.
func DecodeHotspot(data []byte) types.Hotspot {
	return ProbeHotspot(data).Hotspot
}

// Dimensions returns the first entry's declared width and height.
func Dimensions(data []byte) (width, height int, err error) {
	if len(data) < MinLength {
		return 0, 0, fmt.Errorf("%w: %d bytes", ErrTooShort, len(data))
	}
	typ := binary.LittleEndian.Uint16(data[2:])
	if binary.LittleEndian.Uint16(data[0:]) != 0 || (typ != TypeCursor && typ != TypeIcon) {
		return 0, 0, ErrBadSignature
	}
	return dimension(data[6]), dimension(data[7]), nil
}

// PatchHotspot returns a copy of data with only the first entry's hotspot
// bytes replaced. The hotspot is clamped into the declared dimensions.
func PatchHotspot(data []byte, hotspot types.Hotspot) ([]byte, error) {
	if len(data) < MinLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooShort, len(data))
	}
	if !validHeader(data) {
		return nil, ErrBadSignature
	}
	w, h, err := Dimensions(data)
	if err != nil {
		return nil, err
	}
	hotspot = clamp(hotspot, w, h)

	out := bytes.Clone(data)
	binary.LittleEndian.PutUint16(out[hotspotXOffset:], hotspot.X)
	binary.LittleEndian.PutUint16(out[hotspotYOffset:], hotspot.Y)
	return out, nil
}

// PatchHotspotFile rewrites the hotspot of the cursor at path in place and
// returns the hotspot actually written.
func PatchHotspotFile(fsys types.FileSystem, path string, hotspot types.Hotspot) (types.Hotspot, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return types.Hotspot{}, fmt.Errorf("read %s: %w", path, err)
	}
	patched, err := PatchHotspot(data, hotspot)
	if err != nil {
		return types.Hotspot{}, fmt.Errorf("patch %s: %w", path, err)
	}
	if err := fsys.WriteFile(path, patched); err != nil {
		return types.Hotspot{}, fmt.Errorf("write %s: %w", path, err)
	}
	return DecodeHotspot(patched), nil
}
