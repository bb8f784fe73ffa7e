// Package store stages copies of guarded paths in a process-local staging
// area and replays them onto their original location.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fileguard-project/fileguard/internal/engine"
	"github.com/fileguard-project/fileguard/internal/integrity"
	"github.com/fileguard-project/fileguard/pkg/errclass"
	"github.com/fileguard-project/fileguard/pkg/fsutil"
	"github.com/fileguard-project/fileguard/pkg/logging"
	"github.com/fileguard-project/fileguard/pkg/metrics"
	"github.com/fileguard-project/fileguard/pkg/model"
)

// Options configures a Store.
type Options struct {
	// BaseDir is the parent of the staging area; empty means os.TempDir().
	BaseDir string
	// Engine duplicates entries; nil probes BaseDir on first capture.
	Engine engine.Engine
	// Verify records a digest at capture and checks it after restore.
	Verify  bool
	Logger  *logging.Logger
	Metrics *metrics.Registry
}

// Store owns one staging area. The area is created by the first capture
// and removed when the last outstanding copy is restored.
type Store struct {
	mu          sync.Mutex
	baseDir     string
	engine      engine.Engine
	verify      bool
	log         *logging.Logger
	metrics     *metrics.Registry
	dir         string
	created     time.Time
	outstanding int
	seq         uint64
}

// New creates a Store. No filesystem state is created until Capture.
func New(opts Options) *Store {
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	base := opts.BaseDir
	if base == "" {
		base = os.TempDir()
	}
	return &Store{
		baseDir: base,
		engine:  opts.Engine,
		verify:  opts.Verify,
		log:     log.WithFields(map[string]any{"component": "store"}),
		metrics: opts.Metrics,
	}
}

// Outstanding returns the number of captured, not yet restored copies.
func (s *Store) Outstanding() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outstanding
}

// StagingDir returns the current staging area, or "" when none exists.
func (s *Store) StagingDir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dir
}

// Capture stages a copy of path. The path must exist.
func (s *Store) Capture(path string) (*StagedCopy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	sc, err := s.capture(path)
	var kind model.EntryKind
	if sc != nil {
		kind = sc.kind
	}
	s.metrics.RecordCapture(kind, err == nil, time.Since(start))
	if err != nil {
		if s.outstanding == 0 {
			s.removeArea()
		}
		return nil, err
	}

	s.outstanding++
	s.metrics.SetStaged(s.outstanding)
	s.log.Debug("captured", map[string]any{
		"path":  path,
		"id":    sc.id,
		"kind":  string(sc.kind),
		"seq":   sc.seq,
		"took":  time.Since(start).String(),
		"depth": s.outstanding,
	})
	return sc, nil
}

func (s *Store) capture(path string) (*StagedCopy, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errclass.ErrPathInvalid.Wrapf(err, "cannot make %s absolute", path)
	}
	if within(abs, s.baseDir) {
		return nil, errclass.ErrPathInvalid.WithMessagef("cannot guard %s: it contains the staging directory %s", path, s.baseDir)
	}

	info, err := os.Lstat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errclass.ErrNotFound.WithMessagef("cannot guard %s: path does not exist", path)
	}
	if err != nil {
		return nil, errclass.ErrIOFailure.Wrapf(err, "stat %s", path)
	}

	sc := &StagedCopy{
		store:      s,
		source:     abs,
		capturedAt: time.Now().UTC(),
	}
	if info.Mode()&os.ModeSymlink != 0 {
		if sc.linkTarget, err = os.Readlink(abs); err != nil {
			return nil, errclass.ErrIOFailure.Wrapf(err, "readlink %s", path)
		}
		resolved, err := filepath.EvalSymlinks(abs)
		switch {
		case err == nil:
			// what is read through the link is what gets staged; the link
			// itself is recreated on restore
			if within(resolved, s.baseDir) {
				return nil, errclass.ErrPathInvalid.WithMessagef("cannot guard %s: it resolves to %s, which contains the staging directory", path, resolved)
			}
			if info, err = os.Lstat(resolved); err != nil {
				return nil, errclass.ErrIOFailure.Wrapf(err, "stat %s", resolved)
			}
			sc.link, sc.source = abs, resolved
		case errors.Is(err, fs.ErrNotExist):
			// dangling: only the link can be staged
		default:
			return nil, errclass.ErrIOFailure.Wrapf(err, "resolve %s", path)
		}
	}

	sc.mode = info.Mode()
	switch {
	case info.IsDir():
		sc.kind = model.KindDir
	case info.Mode()&os.ModeSymlink != 0:
		sc.kind = model.KindSymlink
	case info.Mode().IsRegular():
		sc.kind = model.KindFile
	default:
		return nil, errclass.ErrIOFailure.WithMessagef("cannot guard %s: unsupported file type %s", path, info.Mode().Type())
	}

	if err := s.ensureArea(); err != nil {
		return nil, err
	}

	s.seq++
	sc.seq = s.seq
	sc.id = uuid.NewString()
	sc.location = filepath.Join(s.dir, sc.id)

	result, err := s.engine.Clone(sc.source, sc.location)
	if err != nil {
		os.RemoveAll(sc.location)
		return nil, errclass.ErrIOFailure.Wrapf(err, "stage %s", path)
	}
	if result.Degraded {
		s.log.Debug("staged copy degraded", map[string]any{"path": path, "degradations": result.Degradations})
	}

	if s.verify {
		digest, err := integrity.Digest(sc.location)
		if err != nil {
			os.RemoveAll(sc.location)
			return nil, errclass.ErrIOFailure.Wrapf(err, "digest %s", path)
		}
		sc.digest = digest
	}

	if err := s.writeManifest(sc); err != nil {
		os.RemoveAll(sc.location)
		return nil, errclass.ErrIOFailure.Wrapf(err, "write manifest for %s", path)
	}

	return sc, nil
}

// Restore replays sc onto its source path, replacing whatever is there.
// On failure the handle stays valid and Restore may be called again.
func (s *Store) Restore(sc *StagedCopy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sc == nil || sc.store != s {
		return errclass.ErrHandleConsumed.WithMessage("staged copy does not belong to this store")
	}
	if sc.consumed {
		return errclass.ErrHandleConsumed.WithMessagef("staged copy %s of %s was already restored", sc.id, sc.source)
	}
	if s.dir == "" || filepath.Dir(sc.location) != s.dir {
		return errclass.ErrHandleConsumed.WithMessagef("staged copy %s of %s was handed over with its staging area", sc.id, sc.source)
	}

	start := time.Now()
	err := s.restore(sc)
	s.metrics.RecordRestore(sc.kind, err == nil, time.Since(start))
	if err != nil {
		s.log.WarnErr("restore failed", err, map[string]any{"path": sc.source, "staged": sc.location})
		return err
	}

	sc.consumed = true
	if err := os.RemoveAll(sc.location); err != nil {
		s.log.WarnErr("remove staged copy", err, map[string]any{"staged": sc.location})
	}
	os.Remove(ManifestPath(sc.location))

	s.outstanding--
	s.metrics.SetStaged(s.outstanding)
	s.log.Debug("restored", map[string]any{
		"path": sc.source,
		"id":   sc.id,
		"kind": string(sc.kind),
		"took": time.Since(start).String(),
	})
	if s.outstanding == 0 {
		s.removeArea()
	}
	return nil
}

func (s *Store) restore(sc *StagedCopy) error {
	if err := Replay(s.engine, sc.location, sc.source, s.log); err != nil {
		return err
	}
	if sc.link != "" {
		if err := Relink(sc.link, sc.linkTarget, sc.location); err != nil {
			return err
		}
	}

	if s.verify && sc.digest != "" {
		return checkDigest(sc.source, sc.location, sc.digest)
	}
	return nil
}

// Replay replaces dst with a clone of the staged entry at staged. The clone
// is built next to dst and renamed into place, so dst is either fully
// replaced or left as it was. Missing parent directories are recreated.
func Replay(eng engine.Engine, staged, dst string, log *logging.Logger) error {
	if log == nil {
		log = logging.Nop()
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return errclass.ErrIOFailure.Wrapf(err, "recreate parent of %s (staged copy kept at %s)", dst, staged)
	}

	// clone next to dst so the final swap is a same-filesystem rename
	tmp := fsutil.TempSibling(dst, "restore")
	if _, err := eng.Clone(staged, tmp); err != nil {
		os.RemoveAll(tmp)
		return errclass.ErrIOFailure.Wrapf(err, "clone %s (staged copy kept at %s)", dst, staged)
	}

	aside, err := fsutil.MoveAside(dst)
	if err != nil {
		os.RemoveAll(tmp)
		return errclass.ErrIOFailure.Wrapf(err, "replace %s (staged copy kept at %s)", dst, staged)
	}

	if err := fsutil.RenameAndSync(tmp, dst); err != nil {
		if aside != "" {
			os.Rename(aside, dst)
		}
		os.RemoveAll(tmp)
		return errclass.ErrIOFailure.Wrapf(err, "swap in %s (staged copy kept at %s)", dst, staged)
	}

	if aside != "" {
		if err := os.RemoveAll(aside); err != nil {
			log.WarnErr("remove replaced entry", err, map[string]any{"path": aside})
		}
	}
	return nil
}

// Relink makes link a symlink to target again, replacing whatever is at
// link now. A link that already points at target is left alone.
func Relink(link, target, staged string) error {
	if cur, err := os.Readlink(link); err == nil && cur == target {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(link), 0755); err != nil {
		return errclass.ErrIOFailure.Wrapf(err, "recreate parent of %s (staged copy kept at %s)", link, staged)
	}

	tmp := fsutil.TempSibling(link, "link")
	if err := os.Symlink(target, tmp); err != nil {
		return errclass.ErrIOFailure.Wrapf(err, "recreate link %s (staged copy kept at %s)", link, staged)
	}
	aside, err := fsutil.MoveAside(link)
	if err != nil {
		os.Remove(tmp)
		return errclass.ErrIOFailure.Wrapf(err, "replace %s (staged copy kept at %s)", link, staged)
	}
	if err := fsutil.RenameAndSync(tmp, link); err != nil {
		if aside != "" {
			os.Rename(aside, link)
		}
		os.Remove(tmp)
		return errclass.ErrIOFailure.Wrapf(err, "swap in link %s (staged copy kept at %s)", link, staged)
	}
	if aside != "" {
		os.RemoveAll(aside)
	}
	return nil
}

// CheckManifest compares dst against the digest recorded in m, when any.
func CheckManifest(m model.Manifest, staged string) error {
	if m.Digest == "" {
		return nil
	}
	return checkDigest(m.Source, staged, m.Digest)
}

func checkDigest(dst, staged string, want model.HashValue) error {
	got, err := integrity.Digest(dst)
	if err != nil {
		return errclass.ErrIOFailure.Wrapf(err, "digest restored %s", dst)
	}
	if got != want {
		return errclass.ErrVerifyMismatch.WithMessagef("%s differs from its staged copy after restore (staged copy kept at %s)", dst, staged)
	}
	return nil
}

// Detach gives up the staging area while copies are still outstanding, so
// that gc can restore them later. The owner record is marked released, the
// area is kept on disk, and the store starts over with no area. Handles from
// the detached area can no longer be restored through this store. With
// nothing outstanding Detach does nothing and returns "".
func (s *Store) Detach() (string, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dir == "" || s.outstanding == 0 {
		return "", 0, nil
	}
	dir, n := s.dir, s.outstanding
	if err := s.writeOwner(dir, true); err != nil {
		return "", 0, errclass.ErrIOFailure.Wrapf(err, "release staging area %s", dir)
	}
	s.dir = ""
	s.outstanding = 0
	s.metrics.SetStaged(0)
	s.log.Warn("staging area left for gc", map[string]any{"dir": dir, "outstanding": n})
	return dir, n, nil
}

func (s *Store) ensureArea() error {
	if s.dir != "" {
		return nil
	}
	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		return errclass.ErrIOFailure.Wrapf(err, "create staging base %s", s.baseDir)
	}
	if s.engine == nil {
		s.engine = engine.Detect(s.baseDir)
	}

	dir := filepath.Join(s.baseDir, model.StagingAreaPrefix+uuid.NewString())
	if err := os.Mkdir(dir, 0700); err != nil {
		return errclass.ErrIOFailure.Wrapf(err, "create staging area")
	}

	s.created = time.Now().UTC()
	if err := s.writeOwner(dir, false); err != nil {
		os.RemoveAll(dir)
		return errclass.ErrIOFailure.Wrapf(err, "write staging owner")
	}

	s.dir = dir
	s.metrics.StagingAreaCreated()
	s.log.Debug("staging area created", map[string]any{"dir": dir, "engine": string(s.engine.Name())})
	return nil
}

func (s *Store) removeArea() {
	if s.dir == "" {
		return
	}
	if err := os.RemoveAll(s.dir); err != nil {
		s.log.WarnErr("remove staging area", err, map[string]any{"dir": s.dir})
		return
	}
	s.log.Debug("staging area removed", map[string]any{"dir": s.dir})
	s.dir = ""
}

func (s *Store) writeOwner(dir string, released bool) error {
	host, _ := os.Hostname()
	owner := model.OwnerRecord{PID: os.Getpid(), Hostname: host, CreatedAt: s.created, Released: released}
	data, err := json.Marshal(owner)
	if err != nil {
		return err
	}
	return fsutil.AtomicWrite(filepath.Join(dir, model.OwnerFile), data, 0600)
}

func (s *Store) writeManifest(sc *StagedCopy) error {
	data, err := json.MarshalIndent(sc.manifest(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return fsutil.AtomicWrite(ManifestPath(sc.location), data, 0600)
}

// within reports whether child is parent or lies below it.
func within(parent, child string) bool {
	child, err := filepath.Abs(child)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// ManifestPath returns the manifest location for a staged copy location.
func ManifestPath(location string) string {
	return location + ".json"
}
