package engine

import (
	"os"

	"github.com/fileguard-project/fileguard/pkg/model"
)

// ReflinkEngine performs reflink-based copy (O(1) CoW) on supported filesystems.
// Falls back to regular copy for files that cannot be reflinked, e.g. when
// the staging area lives on a different filesystem than the guarded path.
type ReflinkEngine struct{}

// NewReflinkEngine creates a new ReflinkEngine.
func NewReflinkEngine() *ReflinkEngine {
	return &ReflinkEngine{}
}

// Name returns the engine type.
func (e *ReflinkEngine) Name() model.EngineType {
	return model.EngineReflinkCopy
}

// Clone performs a reflink copy if supported, falls back to regular copy otherwise.
// Returns a degraded result if any files could not be reflinked.
func (e *ReflinkEngine) Clone(src, dst string) (*CloneResult, error) {
	return walkClone(src, dst, func(path, dstPath string, info os.FileInfo, result *CloneResult) (int64, error) {
		if err := reflinkFile(path, dstPath, info); err != nil {
			result.degrade("reflink")
			return copyFile(path, dstPath, info)
		}
		return info.Size(), nil
	})
}
