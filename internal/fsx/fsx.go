// Package fsx provides the host filesystem implementation of
// types.FileSystem with atomic replacement, and collision-free file naming.
package fsx

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// OS reads and writes the real filesystem. WriteFile creates parent
// directories and replaces the target atomically.
type OS struct{}

// ReadFile reads the named file.
func (OS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Stat returns the file info for path, following symlinks.
func (OS) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// WriteFile atomically writes data to path using the temp-file, fsync,
// rename pattern. The temp file lives next to the target so the rename
// never crosses filesystems.
func (OS) WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// Exists reports whether path names an existing file or directory.
func Exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Stater is the stat half of a types.FileSystem.
type Stater interface {
	Stat(path string) (fs.FileInfo, error)
}

// StatExists reports whether fsys can stat path.
func StatExists(fsys Stater, path string) (bool, error) {
	_, err := fsys.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// maxUniqueAttempts bounds the "name (n).ext" probe.
const maxUniqueAttempts = 10000

// EnsureUniqueFilename returns dir/name if it does not exist, otherwise the
// first free "stem (n).ext" with n counting from 1. The result did not exist
// when it was checked; a concurrent writer can still claim it afterwards.
func EnsureUniqueFilename(dir, name string) (string, error) {
	candidate := filepath.Join(dir, name)
	ok, err := Exists(candidate)
	if err != nil {
		return "", err
	}
	if !ok {
		return candidate, nil
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 1; n <= maxUniqueAttempts; n++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, n, ext))
		ok, err := Exists(candidate)
		if err != nil {
			return "", err
		}
		if !ok {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free name for %s in %s after %d attempts", name, dir, maxUniqueAttempts)
}

// Stem returns the file name without directory and extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
