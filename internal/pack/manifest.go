// Package pack builds and reads cursor pack archives: stored ZIP files that
// hold one cursor file per system slot plus a JSON manifest saying which
// slot each file fills.
package pack

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/mesh-intelligence/cursorbox/pkg/types"
)

const (
	// ManifestFile is the manifest's path inside every pack archive.
	ManifestFile = "manifest.json"
	// ManifestVersion is the manifest format written by Build.
	ManifestVersion = 1
)

// Pack errors.
var (
	ErrNoManifest         = errors.New("archive has no pack manifest")
	ErrBadManifest        = errors.New("pack manifest is invalid")
	ErrUnsupportedVersion = errors.New("pack manifest version not supported")
	ErrMissingItem        = errors.New("pack item missing from archive")
	ErrEmptyPack          = errors.New("no slot has an existing source file")
)

// Manifest describes the contents of a pack archive.
type Manifest struct {
	Version   int                     `json:"version"`
	PackName  string                  `json:"pack_name"`
	Mode      types.CustomizationMode `json:"mode"`
	CreatedAt string                  `json:"created_at"`
	Items     []types.PackItem        `json:"items"`
}

// ReadManifest opens the archive at archivePath and returns its manifest.
// Every item the manifest lists must be present in the archive.
func ReadManifest(fsys types.FileSystem, archivePath string) (*Manifest, error) {
	zr, err := openArchive(fsys, archivePath)
	if err != nil {
		return nil, err
	}
	m, err := readManifest(zr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", archivePath, err)
	}
	return m, nil
}

func openArchive(fsys types.FileSystem, archivePath string) (*zip.Reader, error) {
	data, err := fsys.ReadFile(archivePath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", archivePath, err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", archivePath, err)
	}
	return zr, nil
}

func readManifest(zr *zip.Reader) (*Manifest, error) {
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		if _, dup := files[f.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate entry %q", ErrBadManifest, f.Name)
		}
		files[f.Name] = f
	}
	mf, ok := files[ManifestFile]
	if !ok {
		return nil, ErrNoManifest
	}
	raw, err := readEntry(mf)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadManifest, err)
	}
	if m.Version < 1 || m.Version > ManifestVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, m.Version)
	}
	if _, err := types.ParseMode(string(m.Mode)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadManifest, err)
	}
	for _, item := range m.Items {
		if !safeEntryName(item.FileName) {
			return nil, fmt.Errorf("%w: file name %q", ErrBadManifest, item.FileName)
		}
		if _, ok := files[item.FileName]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingItem, item.FileName)
		}
	}
	return &m, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open entry %s: %w", f.Name, err)
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read entry %s: %w", f.Name, err)
	}
	return b, nil
}

// safeEntryName accepts only plain file names so extraction cannot escape
// the destination directory.
func safeEntryName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		path.Base(name) == name && !bytes.ContainsAny([]byte(name), `/\:`)
}

// Metadata converts the manifest to the library's pack record.
func (m *Manifest) Metadata(archivePath string) *types.PackMetadata {
	items := make([]types.PackItem, len(m.Items))
	copy(items, m.Items)
	return &types.PackMetadata{Mode: m.Mode, ArchivePath: archivePath, Items: items}
}
