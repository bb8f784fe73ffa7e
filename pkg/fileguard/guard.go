package fileguard

import (
	"sync"

	"go.uber.org/multierr"

	"github.com/fileguard-project/fileguard/pkg/errclass"
)

// Guard is a reusable, immutable set of paths to protect. Every activation
// creates fresh sessions, so one Guard may be used any number of times and
// nested within itself.
type Guard struct {
	m     *Manager
	paths []string
}

// Paths returns the guarded paths in application order.
func (g *Guard) Paths() []string {
	return append([]string(nil), g.paths...)
}

// With returns a new guard that also protects paths, captured after the
// receiver's paths and restored before them.
func (g *Guard) With(paths ...string) *Guard {
	all := make([]string, 0, len(g.paths)+len(paths))
	all = append(all, g.paths...)
	all = append(all, paths...)
	return &Guard{m: g.m, paths: all}
}

// Acquire enters a session per path, in order. If any capture fails the
// sessions already entered are exited in reverse order and nothing stays
// guarded.
func (g *Guard) Acquire() (*Lease, error) {
	if len(g.paths) == 0 {
		return nil, errclass.ErrPathInvalid.WithMessage("guard has no paths")
	}

	sessions := make([]*Session, 0, len(g.paths))
	for _, p := range g.paths {
		s, err := g.m.Session(p)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	for i, s := range sessions {
		if err := s.Enter(); err != nil {
			return nil, multierr.Append(err, exitReverse(sessions[:i]))
		}
	}

	g.m.log.Debug("guard acquired", map[string]any{"paths": g.paths})
	return &Lease{m: g.m, sessions: sessions}, nil
}

// Lease is one activation of a Guard.
type Lease struct {
	m        *Manager
	mu       sync.Mutex
	sessions []*Session
	released bool
}

// Release restores every path, last captured first. All paths are attempted
// even when some fail; the failures are combined. Releasing twice is a
// no-op.
func (l *Lease) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.released {
		return nil
	}
	l.released = true

	err := exitReverse(l.sessions)
	if err != nil {
		l.m.log.ErrorErr("guard release failed", err)
	}
	return err
}

// Close is Release, making a Lease an io.Closer.
func (l *Lease) Close() error {
	return l.Release()
}

func exitReverse(sessions []*Session) error {
	var err error
	for i := len(sessions) - 1; i >= 0; i-- {
		err = multierr.Append(err, sessions[i].Exit())
	}
	return err
}
