// Package pathutil validates guarded paths and derives their stack keys.
package pathutil

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/fileguard-project/fileguard/pkg/errclass"
	"github.com/fileguard-project/fileguard/pkg/model"
)

// ValidateGuardPath rejects paths that cannot name a guardable entry.
func ValidateGuardPath(path string) error {
	if path == "" {
		return errclass.ErrPathInvalid.WithMessage("path must not be empty")
	}
	if strings.ContainsRune(path, 0) {
		return errclass.ErrPathInvalid.WithMessagef("path must not contain NUL: %q", path)
	}
	return nil
}

// Key derives the stack key for path under mode. Two guards share a stack
// exactly when their keys are equal.
func Key(path string, mode model.KeyMode) (string, error) {
	if err := ValidateGuardPath(path); err != nil {
		return "", err
	}

	switch mode {
	case model.KeyLiteral:
		return path, nil
	case model.KeyAbsolute, "":
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", errclass.ErrPathInvalid.Wrapf(err, "cannot make %s absolute", path)
		}
		return abs, nil
	case model.KeyResolved:
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", errclass.ErrPathInvalid.Wrapf(err, "cannot make %s absolute", path)
		}
		resolved, err := filepath.EvalSymlinks(abs)
		if err != nil {
			if os.IsNotExist(err) {
				return resolveClosestAncestor(abs), nil
			}
			return "", errclass.ErrPathInvalid.Wrapf(err, "cannot resolve %s", path)
		}
		return resolved, nil
	default:
		return "", errclass.ErrPathInvalid.WithMessagef("unknown key mode %q", mode)
	}
}

// resolveClosestAncestor walks up from path to find the closest existing
// ancestor, resolves it, then appends the remaining components.
func resolveClosestAncestor(path string) string {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	if dir == path {
		return path
	}

	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		if os.IsNotExist(err) {
			resolved = resolveClosestAncestor(dir)
		} else {
			return filepath.Clean(path)
		}
	}
	return filepath.Join(resolved, base)
}
