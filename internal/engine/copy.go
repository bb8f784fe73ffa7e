package engine

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fileguard-project/fileguard/pkg/fsutil"
	"github.com/fileguard-project/fileguard/pkg/model"
)

// CopyEngine performs a full byte copy of files and directory trees.
type CopyEngine struct{}

// NewCopyEngine creates a new CopyEngine.
func NewCopyEngine() *CopyEngine {
	return &CopyEngine{}
}

// Name returns the engine type.
func (e *CopyEngine) Name() model.EngineType {
	return model.EngineCopy
}

// Clone recursively copies src to dst.
func (e *CopyEngine) Clone(src, dst string) (*CloneResult, error) {
	return walkClone(src, dst, func(path, dstPath string, info os.FileInfo, _ *CloneResult) (int64, error) {
		return copyFile(path, dstPath, info)
	})
}

// fileCloner writes one regular file and returns the bytes written.
type fileCloner func(src, dst string, info os.FileInfo, result *CloneResult) (int64, error)

// walkClone walks src without following symlinks and mirrors every entry
// under dst, delegating regular files to cloneFile.
func walkClone(src, dst string, cloneFile fileCloner) (*CloneResult, error) {
	result := &CloneResult{}

	// Track hardlinks to detect degradation
	seenInodes := make(map[uint64]string)

	err := filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return fmt.Errorf("relative path: %w", err)
		}
		dstPath := filepath.Join(dst, rel)

		if path == src {
			result.Kind = entryKind(info)
		}

		if info.Mode().IsRegular() {
			if ino, ok := fileInode(info); ok {
				if seenInodes[ino] != "" {
					// copies cannot preserve hardlinks
					result.degrade("hardlink")
				} else {
					seenInodes[ino] = path
				}
			}
		}

		result.Entries++
		switch {
		case info.IsDir():
			return copyDir(dstPath, info)

		case info.Mode()&os.ModeSymlink != 0:
			return copySymlink(path, dstPath)

		case info.Mode().IsRegular():
			n, err := cloneFile(path, dstPath, info, result)
			result.Bytes += n
			return err

		default:
			// sockets, devices and fifos cannot be staged; a restore would
			// drop them from the tree
			return fmt.Errorf("%s: unsupported file type %s", path, info.Mode().Type())
		}
	})

	if err != nil {
		return nil, fmt.Errorf("copy: %w", err)
	}

	if err := fsutil.FsyncDir(filepath.Dir(dst)); err != nil {
		return nil, fmt.Errorf("fsync dst: %w", err)
	}

	return result, nil
}

func entryKind(info os.FileInfo) model.EntryKind {
	switch {
	case info.IsDir():
		return model.KindDir
	case info.Mode()&os.ModeSymlink != 0:
		return model.KindSymlink
	default:
		return model.KindFile
	}
}

func copyDir(dst string, info os.FileInfo) error {
	// owner write is kept so children can be created below read-only dirs
	if err := os.MkdirAll(dst, info.Mode().Perm()|0700); err != nil {
		return fmt.Errorf("mkdir %s: %w", dst, err)
	}
	return nil
}

func copyFile(src, dst string, info os.FileInfo) (int64, error) {
	srcFile, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("open src %s: %w", src, err)
	}
	defer srcFile.Close()

	dstFile, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return 0, fmt.Errorf("create dst %s: %w", dst, err)
	}
	defer dstFile.Close()

	n, err := io.Copy(dstFile, srcFile)
	if err != nil {
		return n, fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}

	if err := dstFile.Sync(); err != nil {
		return n, fmt.Errorf("sync %s: %w", dst, err)
	}

	// Preserve mod time
	return n, os.Chtimes(dst, info.ModTime(), info.ModTime())
}

func copySymlink(src, dst string) error {
	target, err := os.Readlink(src)
	if err != nil {
		return fmt.Errorf("readlink %s: %w", src, err)
	}
	return os.Symlink(target, dst)
}
