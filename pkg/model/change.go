package model

import (
	"fmt"
	"strings"
)

// ChangeType represents the type of filesystem change.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeRemoved  ChangeType = "removed"
	ChangeModified ChangeType = "modified"
)

// Change represents a single entry that differs. Path is relative to the
// guarded path; "." is the guarded path itself.
type Change struct {
	Path    string     `json:"path"`
	Type    ChangeType `json:"type"`
	Kind    EntryKind  `json:"kind"`
	Size    int64      `json:"size,omitempty"`
	OldSize int64      `json:"old_size,omitempty"`
	OldHash string     `json:"old_hash,omitempty"`
	NewHash string     `json:"new_hash,omitempty"`
}

// ChangeReport lists what happened to a guarded path while it was guarded.
type ChangeReport struct {
	Path     string    `json:"path"`
	Deleted  bool      `json:"deleted"`
	Added    []*Change `json:"added"`
	Removed  []*Change `json:"removed"`
	Modified []*Change `json:"modified"`
}

// Empty reports whether nothing changed.
func (r *ChangeReport) Empty() bool {
	return !r.Deleted && len(r.Added) == 0 && len(r.Removed) == 0 && len(r.Modified) == 0
}

// FormatHuman returns a human-readable string representation of the report.
func (r *ChangeReport) FormatHuman() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Changes to %s\n", r.Path))
	if r.Deleted {
		sb.WriteString("  (deleted)\n")
	}
	for _, c := range r.Added {
		sb.WriteString(fmt.Sprintf("  + %s\n", c.Path))
	}
	for _, c := range r.Removed {
		sb.WriteString(fmt.Sprintf("  - %s\n", c.Path))
	}
	for _, c := range r.Modified {
		sb.WriteString(fmt.Sprintf("  ~ %s", c.Path))
		if c.OldSize != c.Size {
			sb.WriteString(fmt.Sprintf(" (%d -> %d bytes)", c.OldSize, c.Size))
		}
		sb.WriteString("\n")
	}
	if r.Empty() {
		sb.WriteString("  no changes\n")
	}

	return sb.String()
}
