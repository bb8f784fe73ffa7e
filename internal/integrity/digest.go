// Package integrity computes deterministic content digests of guarded paths.
package integrity

import (
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/minio/sha256-simd"

	"github.com/fileguard-project/fileguard/pkg/model"
)

// Digest computes a deterministic hash of a file, symlink or directory tree.
// Algorithm: one line per entry "<type>:<path>:<metadata>:<hash>" sorted in
// byte order, concatenated, then hashed. Modification times are excluded;
// two paths with the same digest hold the same bytes, modes and layout.
func Digest(root string) (model.HashValue, error) {
	info, err := os.Lstat(root)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", root, err)
	}

	rootLine, err := entryLine(root, ".", info)
	if err != nil {
		return "", err
	}
	lines := []string{rootLine}

	if info.IsDir() {
		var mu sync.Mutex
		conf := fastwalk.Config{Follow: false}
		err = fastwalk.Walk(&conf, root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path == root {
				return nil
			}

			rel, err := filepath.Rel(root, path)
			if err != nil {
				return fmt.Errorf("relative path: %w", err)
			}
			fi, err := d.Info()
			if err != nil {
				return fmt.Errorf("stat %s: %w", rel, err)
			}
			line, err := entryLine(path, rel, fi)
			if err != nil {
				return err
			}

			mu.Lock()
			lines = append(lines, line)
			mu.Unlock()
			return nil
		})
		if err != nil {
			return "", fmt.Errorf("walk %s: %w", root, err)
		}
	}

	sort.Strings(lines)

	var buf strings.Builder
	for _, line := range lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}

	hash := sha256.Sum256([]byte(buf.String()))
	return model.HashValue(hex.EncodeToString(hash[:])), nil
}

func entryLine(path, rel string, info os.FileInfo) (string, error) {
	entryHash, err := computeEntryHash(path, info)
	if err != nil {
		return "", fmt.Errorf("hash entry %s: %w", rel, err)
	}
	// path uses forward slashes for portability
	return fmt.Sprintf("%s:%s:%s:%s", entryType(info), filepath.ToSlash(rel), formatMetadata(info), entryHash), nil
}

func entryType(info os.FileInfo) model.EntryKind {
	switch {
	case info.IsDir():
		return model.KindDir
	case info.Mode()&os.ModeSymlink != 0:
		return model.KindSymlink
	default:
		return model.KindFile
	}
}

func formatMetadata(info os.FileInfo) string {
	if info.Mode().IsRegular() {
		return fmt.Sprintf("mode=%04o,size=%d", info.Mode().Perm(), info.Size())
	}
	return ""
}

func computeEntryHash(path string, info os.FileInfo) (string, error) {
	h := sha256.New()

	switch {
	case info.IsDir():
		// layout is covered by the child lines

	case info.Mode()&os.ModeSymlink != 0:
		target, err := os.Readlink(path)
		if err != nil {
			return "", fmt.Errorf("read symlink: %w", err)
		}
		h.Write([]byte(target))

	case info.Mode().IsRegular():
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("open file: %w", err)
		}
		defer f.Close()
		if _, err := io.Copy(h, f); err != nil {
			return "", fmt.Errorf("read file: %w", err)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
