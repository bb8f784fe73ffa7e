package fileguard

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/fileguard-project/fileguard/pkg/errclass"
)

// PanicError is the panic value Run raises when the operation panicked and
// restoring its paths failed as well.
type PanicError struct {
	// Value is what the operation panicked with.
	Value   any
	Restore error
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("operation panicked: %v; restore failed: %v", e.Value, e.Restore)
}

func (e *PanicError) Unwrap() error { return e.Restore }

// Operations is a named set of operations guarded together by WrapAll.
type Operations map[string]func() error

// Run executes fn inside the guard. Paths are restored however fn ends.
//
// If capture fails fn is not called. An error from fn is returned as
// E_OPERATION_FAILED wrapping it, combined with any restore failure. If fn
// panics, paths are restored and the panic continues; when that restore
// fails too, the panic value becomes a *PanicError carrying both.
func (g *Guard) Run(fn func() error) (err error) {
	lease, err := g.Acquire()
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			if releaseErr := lease.Release(); releaseErr != nil {
				panic(&PanicError{Value: r, Restore: releaseErr})
			}
			panic(r)
		}
		err = multierr.Append(err, lease.Release())
	}()

	if opErr := fn(); opErr != nil {
		return errclass.ErrOperationFailure.Wrap(opErr)
	}
	return nil
}

// RunContext is Run for context-aware operations. A context that is already
// done returns its error before anything is captured.
func (g *Guard) RunContext(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return g.Run(func() error {
		return fn(ctx)
	})
}

// Wrap returns fn guarded by g. Each call of the result is guarded
// independently.
func (g *Guard) Wrap(fn func() error) func() error {
	return func() error {
		return g.Run(fn)
	}
}

// WrapAll guards every operation in ops. An operation that calls another
// wrapped operation on the same path nests inside it.
func (g *Guard) WrapAll(ops Operations) Operations {
	out := make(Operations, len(ops))
	for name, op := range ops {
		out[name] = g.Wrap(op)
	}
	return out
}

// Call runs fn inside g and passes its result through.
func Call[T any](g *Guard, fn func() (T, error)) (T, error) {
	var out T
	err := g.Run(func() error {
		var err error
		out, err = fn()
		return err
	})
	return out, err
}
