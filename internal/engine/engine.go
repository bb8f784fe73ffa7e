package engine

import (
	"github.com/fileguard-project/fileguard/pkg/model"
)

// CloneResult contains the result of a clone operation.
type CloneResult struct {
	Kind         model.EntryKind // kind of the cloned root
	Entries      int             // number of entries written
	Bytes        int64           // regular file bytes written
	Degraded     bool            // true if any degradation occurred
	Degradations []string        // list of degradation types
}

func (r *CloneResult) degrade(kind string) {
	r.Degraded = true
	for _, d := range r.Degradations {
		if d == kind {
			return
		}
	}
	r.Degradations = append(r.Degradations, kind)
}

// Engine duplicates a filesystem entry.
type Engine interface {
	// Name returns the engine type identifier.
	Name() model.EngineType

	// Clone copies src to dst. src may be a regular file, a symlink or a
	// directory tree; dst must not exist.
	// Returns CloneResult with degradation info if applicable.
	Clone(src, dst string) (*CloneResult, error)
}
