package fileguard

import (
	"github.com/fileguard-project/fileguard/internal/diff"
	"github.com/fileguard-project/fileguard/internal/store"
	"github.com/fileguard-project/fileguard/pkg/errclass"
)

type sessionState int

const (
	sessionIdle sessionState = iota
	sessionActive
	sessionSpent
)

// Session guards one path for one enter/exit cycle.
type Session struct {
	m      *Manager
	path   string
	key    string
	state  sessionState
	staged *store.StagedCopy
}

// Path returns the path as given by the caller.
func (s *Session) Path() string { return s.path }

// Key returns the stack key the path maps to.
func (s *Session) Key() string { return s.key }

// Active reports whether the session has been entered and not yet exited.
func (s *Session) Active() bool { return s.state == sessionActive }

// Enter captures the path and pushes the staged copy onto its stack.
func (s *Session) Enter() error {
	switch s.state {
	case sessionActive:
		return errclass.ErrSessionActive.WithMessagef("session on %s already entered", s.path)
	case sessionSpent:
		return errclass.ErrSessionSpent.WithMessagef("session on %s already exited", s.path)
	}

	sc, err := s.m.store.Capture(s.path)
	if err != nil {
		return err
	}
	s.m.stack.Push(s.key, sc)
	s.staged = sc
	s.state = sessionActive
	return nil
}

// Exit pops the most recent staged copy for the path and restores it.
// The session is spent afterward even when the restore fails; the error
// then names where the staged copy was kept.
func (s *Session) Exit() error {
	switch s.state {
	case sessionIdle:
		return errclass.ErrStackUnderflow.WithMessagef("session on %s was never entered", s.path)
	case sessionSpent:
		return errclass.ErrSessionSpent.WithMessagef("session on %s already exited", s.path)
	}

	sc, err := s.m.stack.Pop(s.key)
	if err != nil {
		s.state = sessionSpent
		return err
	}
	s.state = sessionSpent
	if sc != s.staged {
		s.m.log.Warn("guard exited out of order", map[string]any{"path": s.path, "key": s.key})
	}
	s.staged = nil

	if s.m.onChange != nil {
		s.report(sc)
	}
	return s.m.store.Restore(sc)
}

func (s *Session) report(sc *store.StagedCopy) {
	r, err := diff.Compare(sc.Location(), sc.Source())
	if err != nil {
		s.m.log.WarnErr("compute change report", err, map[string]any{"path": s.path})
		return
	}
	s.m.onChange(r)
}
