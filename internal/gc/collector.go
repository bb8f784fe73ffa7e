// Package gc finds staging areas left behind by processes that exited while
// guards were active, and either restores or discards them.
package gc

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/fileguard-project/fileguard/internal/engine"
	"github.com/fileguard-project/fileguard/internal/lock"
	"github.com/fileguard-project/fileguard/internal/store"
	"github.com/fileguard-project/fileguard/pkg/errclass"
	"github.com/fileguard-project/fileguard/pkg/fsutil"
	"github.com/fileguard-project/fileguard/pkg/logging"
	"github.com/fileguard-project/fileguard/pkg/model"
	"github.com/fileguard-project/fileguard/pkg/progress"
)

// MinOrphanAge is how old a staging area without an owner record must be
// before it is considered abandoned; younger ones may still be initializing.
const MinOrphanAge = time.Minute

// Collector handles staging area garbage collection under one base dir.
type Collector struct {
	baseDir  string
	engine   engine.Engine
	log      *logging.Logger
	locks    *lock.Manager
	progress progress.Callback
}

// NewCollector creates a collector. A nil engine is detected on first use.
func NewCollector(baseDir string, eng engine.Engine, log *logging.Logger) *Collector {
	if log == nil {
		log = logging.Nop()
	}
	return &Collector{
		baseDir: baseDir,
		engine:  eng,
		log:     log.WithFields(map[string]any{"component": "gc"}),
		locks:   lock.NewManager(lock.DefaultTTL),
	}
}

// SetProgress reports each restored staged copy to cb.
func (c *Collector) SetProgress(cb progress.Callback) {
	c.progress = cb
}

// Plan scans the base dir and classifies every staging area.
func (c *Collector) Plan() (*model.GCPlan, error) {
	plan := &model.GCPlan{
		BaseDir:   c.baseDir,
		CreatedAt: time.Now().UTC(),
	}

	entries, err := os.ReadDir(c.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return plan, nil
		}
		return nil, fmt.Errorf("read staging base: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), model.StagingAreaPrefix) {
			continue
		}
		area := filepath.Join(c.baseDir, entry.Name())
		orphan, ok, err := c.inspect(area)
		if err != nil {
			c.log.WarnErr("inspect staging area", err, map[string]any{"dir": area})
			continue
		}
		if !ok {
			plan.Live++
			continue
		}
		plan.Orphans = append(plan.Orphans, *orphan)
	}

	return plan, nil
}

// Run executes plan. With restore set, every staged copy of an orphan is
// replayed onto its source, most recent capture first, and the area is only
// removed when all of them succeed. Areas that failed are kept for manual
// recovery and listed in the result.
func (c *Collector) Run(plan *model.GCPlan, restore bool) (*model.GCResult, error) {
	result := &model.GCResult{}

	total := lo.SumBy(plan.Orphans, func(o model.OrphanArea) int { return len(o.Manifests) })
	prog := progress.NewTracker("restore", total, c.progress)

	for _, orphan := range plan.Orphans {
		claim, err := c.locks.Acquire(orphan.Path)
		if err != nil {
			if errors.Is(err, errclass.ErrLockConflict) {
				c.log.Info("staging area claimed by another gc run", map[string]any{"dir": orphan.Path})
				result.Skipped = append(result.Skipped, orphan.Path)
				continue
			}
			c.log.WarnErr("claim orphaned staging area", err, map[string]any{"dir": orphan.Path})
			result.Failed = append(result.Failed, orphan.Path)
			continue
		}

		if restore {
			restored, err := c.restoreArea(orphan, prog)
			result.Restored = append(result.Restored, restored...)
			if err != nil {
				c.log.ErrorErr("restore orphaned staging area", err, map[string]any{"dir": orphan.Path})
				result.Failed = append(result.Failed, orphan.Path)
				c.locks.Release(orphan.Path, claim.HolderNonce)
				continue
			}
		}

		if err := os.RemoveAll(orphan.Path); err != nil {
			c.log.WarnErr("remove orphaned staging area", err, map[string]any{"dir": orphan.Path})
			result.Failed = append(result.Failed, orphan.Path)
			c.locks.Release(orphan.Path, claim.HolderNonce)
			continue
		}
		result.Removed = append(result.Removed, orphan.Path)
	}

	c.log.Info("gc run", map[string]any{
		"removed":  len(result.Removed),
		"restored": len(result.Restored),
		"failed":   len(result.Failed),
		"skipped":  len(result.Skipped),
	})
	return result, nil
}

func (c *Collector) restoreArea(orphan model.OrphanArea, prog *progress.Tracker) ([]string, error) {
	if c.engine == nil {
		c.engine = engine.Detect(c.baseDir)
	}

	var restored []string
	for _, m := range orphan.Manifests {
		staged := filepath.Join(orphan.Path, m.ID)
		exists, err := fsutil.Lexists(staged)
		if err != nil {
			return restored, fmt.Errorf("stat %s: %w", staged, err)
		}
		if !exists {
			return restored, fmt.Errorf("staged copy %s of %s is missing", m.ID, m.Source)
		}
		if err := store.Replay(c.engine, staged, m.Source, c.log); err != nil {
			return restored, err
		}
		if m.Link != "" {
			if err := store.Relink(m.Link, m.LinkTarget, staged); err != nil {
				return restored, err
			}
		}
		if err := store.CheckManifest(m, staged); err != nil {
			return restored, err
		}
		restored = append(restored, m.Source)
		prog.Step(m.Source)
	}
	return restored, nil
}

// inspect reports whether area is orphaned. Areas owned by another host are
// never orphans: their owner cannot be checked from here.
func (c *Collector) inspect(area string) (*model.OrphanArea, bool, error) {
	orphan := &model.OrphanArea{Path: area}

	data, err := os.ReadFile(filepath.Join(area, model.OwnerFile))
	switch {
	case os.IsNotExist(err):
		info, err := os.Stat(area)
		if err != nil {
			return nil, false, err
		}
		if time.Since(info.ModTime()) < MinOrphanAge {
			return nil, false, nil
		}
		orphan.Reason = "no owner record"
	case err != nil:
		return nil, false, err
	default:
		if err := json.Unmarshal(data, &orphan.Owner); err != nil {
			return nil, false, fmt.Errorf("parse owner record: %w", err)
		}
		host, _ := os.Hostname()
		if orphan.Owner.Hostname != host {
			return nil, false, nil
		}
		switch {
		case orphan.Owner.Released:
			orphan.Reason = "released by its owner after a failed restore"
		case orphan.Owner.PID == os.Getpid() || processAlive(orphan.Owner.PID):
			return nil, false, nil
		default:
			orphan.Reason = fmt.Sprintf("owner process %d is gone", orphan.Owner.PID)
		}
	}

	manifests, err := readManifests(area)
	if err != nil {
		return nil, false, err
	}
	orphan.Manifests = manifests
	return orphan, true, nil
}

// readManifests loads every manifest in area, most recent capture first.
func readManifests(area string) ([]model.Manifest, error) {
	entries, err := os.ReadDir(area)
	if err != nil {
		return nil, err
	}

	var manifests []model.Manifest
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == model.OwnerFile || !strings.HasSuffix(name, ".json") {
			continue
		}
		if strings.HasPrefix(name, fsutil.TempPrefix) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(area, name))
		if err != nil {
			return nil, err
		}
		var m model.Manifest
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parse manifest %s: %w", name, err)
		}
		if _, err := uuid.Parse(m.ID); err != nil || store.ManifestPath(m.ID) != name {
			return nil, fmt.Errorf("manifest %s names staged copy %q", name, m.ID)
		}
		if !filepath.IsAbs(m.Source) || (m.Link != "" && !filepath.IsAbs(m.Link)) {
			return nil, fmt.Errorf("manifest %s has a relative destination", name)
		}
		manifests = append(manifests, m)
	}

	sort.Slice(manifests, func(i, j int) bool {
		return manifests[i].Seq > manifests[j].Seq
	})
	return manifests, nil
}
