// Package doctor diagnoses the staging directory: whether guards can stage
// there, which engine they will use, and what earlier runs left behind.
package doctor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fileguard-project/fileguard/internal/engine"
	"github.com/fileguard-project/fileguard/internal/gc"
	"github.com/fileguard-project/fileguard/internal/integrity"
	"github.com/fileguard-project/fileguard/internal/lock"
	"github.com/fileguard-project/fileguard/pkg/fsutil"
	"github.com/fileguard-project/fileguard/pkg/model"
)

// Finding represents a detected issue.
type Finding struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Path        string `json:"path,omitempty"`
}

// Result contains doctor check results.
type Result struct {
	Healthy  bool             `json:"healthy"`
	BaseDir  string           `json:"base_dir"`
	Engine   model.EngineType `json:"engine"`
	Findings []Finding        `json:"findings"`
}

// Doctor performs staging directory health checks.
type Doctor struct {
	baseDir    string
	engineType model.EngineType
}

// NewDoctor creates a doctor for staging areas under baseDir.
func NewDoctor(baseDir string, engineType model.EngineType) *Doctor {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	return &Doctor{baseDir: baseDir, engineType: engineType}
}

// Check runs all diagnostic checks. Strict also digests the staged copies
// of orphaned areas against their manifests.
func (d *Doctor) Check(strict bool) (*Result, error) {
	result := &Result{Healthy: true, BaseDir: d.baseDir}

	// 1. Staging base usable
	if !d.checkStagingBase(result) {
		return result, nil
	}

	// 2. Engine
	d.checkEngine(result)

	// 3. Orphaned staging areas
	plan, err := gc.NewCollector(d.baseDir, nil, nil).Plan()
	if err != nil {
		return nil, fmt.Errorf("scan staging areas: %w", err)
	}
	d.checkOrphans(result, plan)

	// 4. Expired gc claims
	d.checkExpiredLocks(result, plan)

	// 5. Staged copy integrity (if strict)
	if strict {
		d.checkStagedIntegrity(result, plan)
	}

	// 6. Temp siblings left next to guarded paths
	d.checkOrphanTmp(result, plan)

	return result, nil
}

func (d *Doctor) add(result *Result, f Finding) {
	if f.Severity == "critical" || f.Severity == "error" {
		result.Healthy = false
	}
	result.Findings = append(result.Findings, f)
}

func (d *Doctor) checkStagingBase(result *Result) bool {
	info, err := os.Stat(d.baseDir)
	if os.IsNotExist(err) {
		d.add(result, Finding{
			Category:    "staging",
			Description: "staging directory does not exist yet; it is created on first capture",
			Severity:    "info",
			Path:        d.baseDir,
		})
		return false
	}
	if err != nil {
		d.add(result, Finding{
			Category:    "staging",
			Description: fmt.Sprintf("cannot stat staging directory: %v", err),
			Severity:    "critical",
			Path:        d.baseDir,
		})
		return false
	}
	if !info.IsDir() {
		d.add(result, Finding{
			Category:    "staging",
			Description: "staging directory is not a directory",
			Severity:    "critical",
			Path:        d.baseDir,
		})
		return false
	}

	tmp, err := os.CreateTemp(d.baseDir, fsutil.TempPrefix+"doctor-*")
	if err != nil {
		d.add(result, Finding{
			Category:    "staging",
			Description: fmt.Sprintf("staging directory is not writable: %v", err),
			Severity:    "critical",
			Path:        d.baseDir,
		})
		return false
	}
	tmp.Close()
	os.Remove(tmp.Name())
	return true
}

func (d *Doctor) checkEngine(result *Result) {
	detected := engine.Detect(d.baseDir).Name()
	result.Engine = detected
	if d.engineType == "" || d.engineType == model.EngineAuto {
		return
	}
	result.Engine = d.engineType
	if d.engineType == model.EngineReflinkCopy && detected != model.EngineReflinkCopy {
		d.add(result, Finding{
			Category:    "engine",
			Description: "reflink-copy configured but the staging filesystem does not support reflinks; files are copied instead",
			Severity:    "warning",
			Path:        d.baseDir,
		})
	}
}

func (d *Doctor) checkOrphans(result *Result, plan *model.GCPlan) {
	for _, o := range plan.Orphans {
		d.add(result, Finding{
			Category:    "orphan",
			Description: fmt.Sprintf("orphaned staging area with %d staged copies (%s); run 'fileguard gc --restore'", len(o.Manifests), o.Reason),
			Severity:    "warning",
			Path:        o.Path,
		})
	}
}

func (d *Doctor) checkExpiredLocks(result *Result, plan *model.GCPlan) {
	lockMgr := lock.NewManager(lock.DefaultTTL)
	for _, o := range plan.Orphans {
		rec, err := lockMgr.Status(o.Path)
		if err != nil || rec == nil {
			continue
		}
		if rec.IsExpired(time.Now()) {
			d.add(result, Finding{
				Category:    "lock",
				Description: fmt.Sprintf("expired gc claim by pid %d (since %s)", rec.PID, rec.ExpiresAt.Format(time.RFC3339)),
				Severity:    "info",
				Path:        o.Path,
			})
		}
	}
}

// digestWorkers bounds concurrent digests in strict mode.
const digestWorkers = 4

func (d *Doctor) checkStagedIntegrity(result *Result, plan *model.GCPlan) {
	type job struct {
		staged string
		m      model.Manifest
	}
	var jobs []job
	for _, o := range plan.Orphans {
		for _, m := range o.Manifests {
			if m.Digest != "" {
				jobs = append(jobs, job{staged: filepath.Join(o.Path, m.ID), m: m})
			}
		}
	}

	findings := make([]*Finding, len(jobs))
	var g errgroup.Group
	g.SetLimit(digestWorkers)
	for i, j := range jobs {
		g.Go(func() error {
			got, err := integrity.Digest(j.staged)
			switch {
			case err != nil:
				findings[i] = &Finding{
					Category:    "integrity",
					Description: fmt.Sprintf("staged copy of %s unreadable: %v", j.m.Source, err),
					Severity:    "error",
					Path:        j.staged,
				}
			case got != j.m.Digest:
				findings[i] = &Finding{
					Category:    "integrity",
					Description: fmt.Sprintf("staged copy of %s does not match its manifest digest", j.m.Source),
					Severity:    "critical",
					Path:        j.staged,
				}
			}
			return nil
		})
	}
	g.Wait()

	for _, f := range findings {
		if f != nil {
			d.add(result, *f)
		}
	}
}

func (d *Doctor) checkOrphanTmp(result *Result, plan *model.GCPlan) {
	seen := make(map[string]bool)
	for _, o := range plan.Orphans {
		for _, m := range o.Manifests {
			dir := filepath.Dir(m.Source)
			if seen[dir] {
				continue
			}
			seen[dir] = true

			entries, err := os.ReadDir(dir)
			if err != nil {
				continue
			}
			for _, e := range entries {
				if strings.HasPrefix(e.Name(), fsutil.TempPrefix) {
					d.add(result, Finding{
						Category:    "tmp",
						Description: fmt.Sprintf("orphan temp entry: %s", e.Name()),
						Severity:    "info",
						Path:        filepath.Join(dir, e.Name()),
					})
				}
			}
		}
	}
}
