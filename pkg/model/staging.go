package model

import (
	"os"
	"time"
)

// StagingAreaPrefix prefixes every staging area directory name.
const StagingAreaPrefix = "fileguard-staging-"

// OwnerFile is the name of the owner record inside a staging area.
const OwnerFile = "owner.json"

// OwnerRecord identifies the process that created a staging area.
// Stored at <staging>/owner.json.
type OwnerRecord struct {
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	CreatedAt time.Time `json:"created_at"`
	// Released is set when the owner gave the area up with copies still
	// outstanding; gc may collect it while the owner is alive.
	Released  bool      `json:"released,omitempty"`
}

// Manifest describes one staged copy. Stored at <staging>/<id>.json next to
// the staged content at <staging>/<id>.
type Manifest struct {
	ID         string      `json:"id"`
	Seq        uint64      `json:"seq"`
	Source     string      `json:"source"`
	Kind       EntryKind   `json:"kind"`
	Mode       os.FileMode `json:"mode"`
	// Link is the guarded symlink when Source is its resolved target.
	Link       string      `json:"link,omitempty"`
	LinkTarget string      `json:"link_target,omitempty"`
	Digest     HashValue   `json:"digest,omitempty"`
	CapturedAt time.Time   `json:"captured_at"`
}
