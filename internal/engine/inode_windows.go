//go:build windows

package engine

import "os"

// fileInode reports nothing on Windows, so hardlinks are never flagged.
func fileInode(_ os.FileInfo) (uint64, bool) {
	return 0, false
}
