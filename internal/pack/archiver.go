package pack

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/cursorbox/internal/fsx"
	"github.com/mesh-intelligence/cursorbox/internal/library"
	"github.com/mesh-intelligence/cursorbox/pkg/types"
)

// Archiver writes pack and library archives into the cursors directory and
// registers them in the library.
type Archiver struct {
	store      *library.Store
	fs         types.FileSystem
	cursorsDir string
	log        *zap.Logger
	now        func() time.Time
}

// Option configures an Archiver.
type Option func(*Archiver)

// WithFileSystem replaces the host filesystem.
func WithFileSystem(fsys types.FileSystem) Option {
	return func(a *Archiver) { a.fs = fsys }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(a *Archiver) { a.log = log }
}

// WithClock overrides time.Now for manifest timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Archiver) { a.now = now }
}

// NewArchiver returns an Archiver writing into cursorsDir.
func NewArchiver(store *library.Store, cursorsDir string, opts ...Option) *Archiver {
	a := &Archiver{
		store:      store,
		fs:         fsx.OS{},
		cursorsDir: cursorsDir,
		log:        zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// BuildRequest names a pack and the source file recorded for each slot.
type BuildRequest struct {
	Name    string
	Mode    types.CustomizationMode
	Sources map[string]string // slot name -> source file
}

// Build archives the sources of every slot the mode covers, writes the pack
// under a unique name and registers it. Slots whose source is unset or
// missing are skipped with a warning.
func (a *Archiver) Build(req BuildRequest) (types.CursorAsset, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return types.CursorAsset{}, types.ErrInvalidName
	}
	if _, err := types.ParseMode(string(req.Mode)); err != nil {
		return types.CursorAsset{}, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	var items []types.PackItem
	for _, slot := range types.SlotsForMode(req.Mode) {
		src := req.Sources[slot.Name]
		if src == "" {
			continue
		}
		log := a.log.With(zap.String("slot", slot.Name), zap.String("path", src))
		data, err := a.fs.ReadFile(src)
		if err != nil {
			log.Warn("skipping slot with unreadable source", zap.Error(err))
			continue
		}
		entry := slot.Name + strings.ToLower(filepath.Ext(src))
		if err := writeStored(zw, entry, data); err != nil {
			return types.CursorAsset{}, err
		}
		items = append(items, types.PackItem{
			CursorName:  slot.Name,
			DisplayName: slot.DisplayName,
			FileName:    entry,
		})
	}
	if len(items) == 0 {
		return types.CursorAsset{}, fmt.Errorf("pack %q: %w", name, ErrEmptyPack)
	}

	m := Manifest{
		Version:   ManifestVersion,
		PackName:  name,
		Mode:      req.Mode,
		CreatedAt: types.Timestamp(a.now()),
		Items:     items,
	}
	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return types.CursorAsset{}, fmt.Errorf("marshal manifest: %w", err)
	}
	if err := writeStored(zw, ManifestFile, raw); err != nil {
		return types.CursorAsset{}, err
	}
	if err := zw.Close(); err != nil {
		return types.CursorAsset{}, fmt.Errorf("finish archive: %w", err)
	}

	target, err := fsx.EnsureUniqueFilename(a.cursorsDir, FileName(name)+".zip")
	if err != nil {
		return types.CursorAsset{}, err
	}
	if err := a.fs.WriteFile(target, buf.Bytes()); err != nil {
		return types.CursorAsset{}, fmt.Errorf("write %s: %w", target, err)
	}
	a.log.Info("pack exported",
		zap.String("path", target), zap.String("mode", string(req.Mode)), zap.Int("items", len(items)))

	return a.store.Add(types.CursorAsset{
		Name:     name,
		FilePath: target,
		IsPack:   true,
		Pack:     m.Metadata(target),
	})
}

func writeStored(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

var unsafeFileChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// FileName turns a display name into a portable file stem.
func FileName(name string) string {
	s := strings.Trim(unsafeFileChars.ReplaceAllString(name, "_"), " .")
	if s == "" {
		return "cursor-pack"
	}
	return s
}
