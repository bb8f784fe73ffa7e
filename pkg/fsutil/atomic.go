// Package fsutil provides filesystem helpers for atomic replacement and syncing.
package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// TempPrefix marks transient siblings created while replacing a path.
const TempPrefix = ".fileguard-tmp-"

// AtomicWrite writes data to a temporary file, fsyncs, then renames to target path.
func AtomicWrite(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, TempPrefix+"*")
	if err != nil {
		return fmt.Errorf("atomic write create tmp: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("atomic write: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("atomic write chmod: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("atomic write fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("atomic write close: %w", err)
	}

	if err := RenameAndSync(tmpPath, path); err != nil {
		return fmt.Errorf("atomic write: %w", err)
	}

	success = true
	return nil
}

// TempSibling returns an unused path next to path, suitable as a rename source
// or an aside location. The path is not created. The name does not embed
// path's base name, so it stays short however long that name is.
func TempSibling(path, tag string) string {
	return filepath.Join(filepath.Dir(path), TempPrefix+tag+"-"+uuid.NewString())
}

// RenameAndSync renames old to new and fsyncs the parent directory.
func RenameAndSync(oldpath, newpath string) error {
	if err := os.Rename(oldpath, newpath); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return FsyncDir(filepath.Dir(newpath))
}

// FsyncDir fsyncs a directory to ensure rename visibility is durable.
func FsyncDir(dirPath string) error {
	d, err := os.Open(dirPath)
	if err != nil {
		return fmt.Errorf("fsync dir open: %w", err)
	}
	defer d.Close()
	return d.Sync()
}

// Lexists reports whether path exists without following a final symlink.
func Lexists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// MoveAside renames an existing path to a temporary sibling and returns the
// new location. It returns "" when path does not exist.
func MoveAside(path string) (string, error) {
	exists, err := Lexists(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if !exists {
		return "", nil
	}
	aside := TempSibling(path, "aside")
	if err := os.Rename(path, aside); err != nil {
		return "", fmt.Errorf("move aside %s: %w", path, err)
	}
	return aside, nil
}
