//go:build !windows

package engine

import (
	"os"
	"syscall"
)

// fileInode returns the inode of a regular file so hardlinked entries in a
// guarded tree can be reported as degraded.
func fileInode(info os.FileInfo) (uint64, bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok || stat.Nlink < 2 {
		return 0, false
	}
	return uint64(stat.Ino), true
}
