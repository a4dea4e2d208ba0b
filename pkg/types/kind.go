package types

import (
	"path/filepath"
	"strings"
)

// ImageKind classifies a file by what cursorbox can do with it.
// It is derived once from the file extension; everything downstream
// switches on the kind rather than on extension strings.
type ImageKind int

const (
	KindUnknown ImageKind = iota
	KindSvg
	KindRaster
	KindCur
	KindAni
	KindPack
	KindIco
)

var kindNames = [...]string{
	KindUnknown: "unknown",
	KindSvg:     "svg",
	KindRaster:  "raster",
	KindCur:     "cur",
	KindAni:     "ani",
	KindPack:    "pack",
	KindIco:     "ico",
}

func (k ImageKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[KindUnknown]
	}
	return kindNames[k]
}

// KindFromPath maps a file name to its ImageKind by extension (case-insensitive).
func KindFromPath(path string) ImageKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".svg":
		return KindSvg
	case ".png", ".jpg", ".jpeg", ".bmp", ".gif", ".webp":
		return KindRaster
	case ".cur":
		return KindCur
	case ".ico":
		return KindIco
	case ".ani":
		return KindAni
	case ".zip":
		return KindPack
	default:
		return KindUnknown
	}
}

// IsLibraryFile reports whether files of this kind live in the cursors
// directory. Icons carry no hotspot and are only imported by conversion.
func (k ImageKind) IsLibraryFile() bool {
	switch k {
	case KindCur, KindAni, KindPack:
		return true
	case KindUnknown, KindSvg, KindRaster, KindIco:
		return false
	}
	return false
}
