package model

import "time"

// OrphanArea is a staging area whose owning process is no longer running.
type OrphanArea struct {
	Path      string      `json:"path"`
	Owner     OwnerRecord `json:"owner"`
	Manifests []Manifest  `json:"manifests"`
	Reason    string      `json:"reason"`
}

// GCPlan is the result of scanning a staging base directory.
type GCPlan struct {
	BaseDir   string       `json:"base_dir"`
	CreatedAt time.Time    `json:"created_at"`
	Orphans   []OrphanArea `json:"orphans"`
	Live      int          `json:"live"`
}

// GCResult summarizes a GC run.
type GCResult struct {
	Removed  []string `json:"removed"`
	Restored []string `json:"restored,omitempty"`
	Failed   []string `json:"failed,omitempty"`
	Skipped  []string `json:"skipped,omitempty"` // claimed by another gc run
}
