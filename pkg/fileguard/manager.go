package fileguard

import (
	"github.com/fileguard-project/fileguard/internal/engine"
	"github.com/fileguard-project/fileguard/internal/stack"
	"github.com/fileguard-project/fileguard/internal/store"
	"github.com/fileguard-project/fileguard/pkg/config"
	"github.com/fileguard-project/fileguard/pkg/errclass"
	"github.com/fileguard-project/fileguard/pkg/logging"
	"github.com/fileguard-project/fileguard/pkg/metrics"
	"github.com/fileguard-project/fileguard/pkg/model"
	"github.com/fileguard-project/fileguard/pkg/pathutil"
)

// Options configures a Manager.
type Options struct {
	StagingDir string           // Parent of the staging area; defaults to os.TempDir()
	Engine     model.EngineType // Clone engine; empty or "auto" probes the staging dir
	KeyMode    model.KeyMode    // How paths map to stacks; defaults to absolute
	Verify     bool             // Compare a content digest after every restore
	Logger     *logging.Logger
	Metrics    *metrics.Registry

	// OnChange receives what the operation changed, just before restore.
	OnChange func(*model.ChangeReport)
}

// Manager owns a staging area and the per-path guard stacks.
type Manager struct {
	store    *store.Store
	stack    *stack.Stack
	keyMode  model.KeyMode
	log      *logging.Logger
	onChange func(*model.ChangeReport)
}

// NewManager creates a Manager. Nothing touches the filesystem until the
// first guard is entered.
func NewManager(opts Options) *Manager {
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	keyMode := opts.KeyMode
	if keyMode == "" {
		keyMode = model.KeyAbsolute
	}

	var eng engine.Engine
	if opts.Engine != "" && opts.Engine != model.EngineAuto {
		eng = engine.NewEngine(opts.Engine)
	}

	return &Manager{
		store: store.New(store.Options{
			BaseDir: opts.StagingDir,
			Engine:  eng,
			Verify:  opts.Verify,
			Logger:  log,
			Metrics: opts.Metrics,
		}),
		stack:    stack.New(),
		keyMode:  keyMode,
		log:      log,
		onChange: opts.OnChange,
	}
}

// OptionsFromConfig translates a loaded configuration into Options.
// Metrics and OnChange are left for the caller to set.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	if err := cfg.Validate(); err != nil {
		return Options{}, err
	}
	log, err := cfg.NewLogger()
	if err != nil {
		return Options{}, err
	}
	return Options{
		StagingDir: cfg.StagingDir,
		Engine:     cfg.Engine,
		KeyMode:    cfg.KeyMode,
		Verify:     cfg.Verify,
		Logger:     log,
	}, nil
}

// NewManagerFromConfig creates a Manager from a loaded configuration.
// reg may be nil; it is only used when metrics are enabled.
func NewManagerFromConfig(cfg *config.Config, reg *metrics.Registry) (*Manager, error) {
	opts, err := OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Metrics.Enabled {
		opts.Metrics = reg
	}
	return NewManager(opts), nil
}

// Guard returns a guard over paths, applied in the given order.
func (m *Manager) Guard(paths ...string) *Guard {
	return &Guard{m: m, paths: append([]string(nil), paths...)}
}

// Session creates a single-path session. The path is validated here; it is
// captured on Enter.
func (m *Manager) Session(path string) (*Session, error) {
	key, err := m.key(path)
	if err != nil {
		return nil, err
	}
	return &Session{m: m, path: path, key: key}, nil
}

// Depth returns how many guards are currently active on path.
func (m *Manager) Depth(path string) (int, error) {
	key, err := m.key(path)
	if err != nil {
		return 0, err
	}
	return m.stack.Depth(key), nil
}

// Active returns the number of active guards over all paths.
func (m *Manager) Active() int {
	return m.stack.Len()
}

// StagingDir returns the current staging area, or "" when none exists.
func (m *Manager) StagingDir() string {
	return m.store.StagingDir()
}

// Close releases the manager's staging area. Copies still outstanding,
// either from active guards or from failed restores, stay on disk for
// `fileguard gc --restore` and are reported as E_SESSION_ACTIVE.
func (m *Manager) Close() error {
	keys := m.stack.Keys()
	dir, n, err := m.store.Detach()
	if err != nil {
		return err
	}
	if n > 0 {
		m.log.Warn("closing with outstanding staged copies", map[string]any{
			"outstanding": n,
			"paths":       keys,
			"dir":         dir,
		})
		return errclass.ErrSessionActive.WithMessagef("%d staged copies left in %s for gc --restore (active paths: %v)", n, dir, keys)
	}
	return nil
}

func (m *Manager) key(path string) (string, error) {
	return pathutil.Key(path, m.keyMode)
}
