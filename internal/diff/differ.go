// Package diff reports how a guarded path changed relative to its staged copy.
package diff

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/minio/sha256-simd"

	"github.com/fileguard-project/fileguard/pkg/model"
)

// Compare diffs the staged copy at before against the live path at after.
// A missing after is reported as deleted with every staged entry removed.
func Compare(before, after string) (*model.ChangeReport, error) {
	fromTree, err := buildTree(before)
	if err != nil {
		return nil, fmt.Errorf("build staged tree: %w", err)
	}

	report := &model.ChangeReport{Path: after}
	toTree, err := buildTree(after)
	if errors.Is(err, fs.ErrNotExist) {
		report.Deleted = true
		toTree = map[string]*entry{}
	} else if err != nil {
		return nil, fmt.Errorf("build live tree: %w", err)
	}

	for path, to := range toTree {
		from, exists := fromTree[path]
		if !exists {
			report.Added = append(report.Added, &model.Change{
				Path:    path,
				Type:    model.ChangeAdded,
				Kind:    to.Kind,
				Size:    to.Size,
				NewHash: to.Hash,
			})
		} else if !from.equals(to) {
			report.Modified = append(report.Modified, &model.Change{
				Path:    path,
				Type:    model.ChangeModified,
				Kind:    to.Kind,
				Size:    to.Size,
				OldSize: from.Size,
				OldHash: from.Hash,
				NewHash: to.Hash,
			})
		}
	}

	for path, from := range fromTree {
		if _, exists := toTree[path]; !exists {
			report.Removed = append(report.Removed, &model.Change{
				Path:    path,
				Type:    model.ChangeRemoved,
				Kind:    from.Kind,
				OldSize: from.Size,
				OldHash: from.Hash,
			})
		}
	}

	sortChanges(report.Added)
	sortChanges(report.Removed)
	sortChanges(report.Modified)

	return report, nil
}

type entry struct {
	Kind model.EntryKind
	Mode os.FileMode
	Size int64
	Hash string
}

func (e *entry) equals(other *entry) bool {
	return e.Kind == other.Kind && e.Mode.Perm() == other.Mode.Perm() && e.Hash == other.Hash
}

// buildTree maps relative path -> entry for root and everything below it.
func buildTree(root string) (map[string]*entry, error) {
	info, err := os.Lstat(root)
	if err != nil {
		return nil, err
	}

	rootEntry, err := newEntry(root, info)
	if err != nil {
		return nil, err
	}
	tree := map[string]*entry{".": rootEntry}
	if !info.IsDir() {
		return tree, nil
	}

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
			return err
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		e, err := newEntry(path, fi)
		if err != nil {
			return err
		}
		mu.Lock()
		tree[filepath.ToSlash(rel)] = e
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tree, nil
}

func newEntry(path string, info os.FileInfo) (*entry, error) {
	e := &entry{Mode: info.Mode()}
	switch {
	case info.IsDir():
		e.Kind = model.KindDir
	case info.Mode()&os.ModeSymlink != 0:
		e.Kind = model.KindSymlink
		target, err := os.Readlink(path)
		if err != nil {
			return nil, err
		}
		e.Hash = hashString(target)
	default:
		e.Kind = model.KindFile
		e.Size = info.Size()
		if info.Mode().IsRegular() {
			h, err := hashFile(path)
			if err != nil {
				return nil, err
			}
			e.Hash = h
		}
	}
	return e, nil
}

// hashFile computes SHA-256 hash of a file.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// hashString hashes a string (for symlink targets).
func hashString(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

func sortChanges(changes []*model.Change) {
	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Path < changes[j].Path
	})
}
