package types

import (
	"errors"
	"time"
)

// Hotspot is the click point of a cursor image, in pixels from the top-left.
type Hotspot struct {
	X uint16 `json:"x"`
	Y uint16 `json:"y"`
}

// CursorAsset is one entry of the library index.
type CursorAsset struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	FilePath  string        `json:"file_path"`
	HotspotX  uint16        `json:"hotspot_x"`
	HotspotY  uint16        `json:"hotspot_y"`
	CreatedAt string        `json:"created_at"` // RFC 3339, UTC.
	IsPack    bool          `json:"is_pack"`
	Pack      *PackMetadata `json:"pack_metadata,omitempty"`
}

// Hotspot returns the asset's click point.
func (a CursorAsset) Hotspot() Hotspot {
	return Hotspot{X: a.HotspotX, Y: a.HotspotY}
}

// SetHotspot replaces the asset's click point.
func (a *CursorAsset) SetHotspot(h Hotspot) {
	a.HotspotX = h.X
	a.HotspotY = h.Y
}

// PackMetadata describes a cursor pack archive registered in the library.
type PackMetadata struct {
	Mode        CustomizationMode `json:"mode"`
	ArchivePath string            `json:"archive_path"`
	Items       []PackItem        `json:"items"`
}

// PackItem maps one cursor slot to a file stored inside a pack archive.
type PackItem struct {
	CursorName  string `json:"cursor_name"`
	DisplayName string `json:"display_name"`
	FileName    string `json:"file_name"`
	FilePath    string `json:"file_path,omitempty"`
}

// Timestamp formats t the way CursorAsset.CreatedAt and pack manifests store it.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// Library errors.
var (
	ErrNotFound     = errors.New("cursor not found")
	ErrInvalidName  = errors.New("name must not be empty")
	ErrInvalidOrder = errors.New("reorder must list every cursor exactly once")
	ErrInvalidMode  = errors.New("unknown customization mode")
)
