package store

import (
	"os"
	"time"

	"github.com/fileguard-project/fileguard/pkg/model"
)

// StagedCopy is the opaque handle returned by Capture. It is immutable
// except for its consumed state, which only its Store changes.
type StagedCopy struct {
	store      *Store
	id         string
	seq        uint64
	source     string
	location   string
	kind       model.EntryKind
	mode       os.FileMode
	link       string // guarded symlink whose target was staged
	linkTarget string
	digest     model.HashValue
	capturedAt time.Time
	consumed   bool
}

// ID returns the unique identifier of the copy.
func (sc *StagedCopy) ID() string { return sc.id }

// Seq returns the store-wide capture sequence number.
func (sc *StagedCopy) Seq() uint64 { return sc.seq }

// Source returns the path the copy was captured from and is restored to.
// For a guarded symlink this is the resolved target.
func (sc *StagedCopy) Source() string { return sc.source }

// Link returns the guarded symlink when the copy holds its target, or "".
func (sc *StagedCopy) Link() string { return sc.link }

// Location returns where the staged content lives.
func (sc *StagedCopy) Location() string { return sc.location }

// Kind returns the kind of the captured entry.
func (sc *StagedCopy) Kind() model.EntryKind { return sc.kind }

// IsDir reports whether the captured entry was a directory.
func (sc *StagedCopy) IsDir() bool { return sc.kind == model.KindDir }

// Digest returns the content digest recorded at capture, or "" when
// verification is off.
func (sc *StagedCopy) Digest() model.HashValue { return sc.digest }

func (sc *StagedCopy) manifest() model.Manifest {
	return model.Manifest{
		ID:         sc.id,
		Seq:        sc.seq,
		Source:     sc.source,
		Kind:       sc.kind,
		Mode:       sc.mode,
		Link:       sc.link,
		LinkTarget: sc.linkTarget,
		Digest:     sc.digest,
		CapturedAt: sc.capturedAt,
	}
}
