// Package engine provides clone engines that duplicate a guarded entry into
// a staging area and back.
package engine

import (
	"os"
	"path/filepath"

	"github.com/fileguard-project/fileguard/pkg/model"
)

// NewEngine creates an engine based on the specified type.
// Auto and unknown types fall back to CopyEngine; use Detect for probing.
func NewEngine(engineType model.EngineType) Engine {
	switch engineType {
	case model.EngineReflinkCopy:
		return NewReflinkEngine()
	default:
		return NewCopyEngine()
	}
}

// Detect picks the best engine for staging under dir.
// Detection order: reflink-copy (if supported), copy.
func Detect(dir string) Engine {
	testDir, err := os.MkdirTemp(dir, ".fileguard-reflink-test-")
	if err != nil {
		return NewCopyEngine()
	}
	defer os.RemoveAll(testDir)

	testFile := filepath.Join(testDir, "test")
	if err := os.WriteFile(testFile, []byte("test"), 0600); err != nil {
		return NewCopyEngine()
	}
	info, err := os.Stat(testFile)
	if err != nil {
		return NewCopyEngine()
	}
	if reflinkFile(testFile, filepath.Join(testDir, "clone"), info) == nil {
		return NewReflinkEngine()
	}
	return NewCopyEngine()
}

// Resolve returns the engine for engineType, probing dir when it is auto.
func Resolve(engineType model.EngineType, dir string) Engine {
	if engineType == model.EngineAuto || engineType == "" {
		return Detect(dir)
	}
	return NewEngine(engineType)
}
