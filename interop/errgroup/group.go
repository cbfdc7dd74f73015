// Package errgroup provides an adapter that mimics golang.org/x/sync/errgroup
// semantics using the ki package. It enables incremental migration onto
// structured concurrency without pulling errgroup into the core library.
package errgroup

import (
	"context"
	"sync"

	"github.com/sundew-dev/go-ki/ki"
)

// Group is an errgroup-like wrapper over a ki.Scope, using the
// propagating (Fork_) variant throughout, matching errgroup's fail-fast
// behavior.
type Group struct {
	scope    *ki.Scope
	ctx      context.Context
	done     chan struct{}
	result   chan error
	waitOnce sync.Once
	waitErr  error
}

// WithContext creates a Group bound to ctx. The returned context is
// canceled as soon as any function passed to Go returns a non-nil error,
// or once Wait is called.
func WithContext(ctx context.Context) (*Group, context.Context) {
	scopeCh := make(chan *ki.Scope, 1)
	done := make(chan struct{})
	result := make(chan error, 1)

	go func() {
		_, err := ki.Scoped(ctx, func(_ context.Context, s *ki.Scope) (struct{}, error) {
			scopeCh <- s
			<-done
			return struct{}{}, nil
		})
		result <- err
	}()

	s := <-scopeCh
	g := &Group{scope: s, ctx: s.Context(), done: done, result: result}
	return g, g.ctx
}

// Go starts a function. It should return a non-nil error to signal
// failure. Calling Go after Wait has no effect beyond the synchronous
// scope-closed error, which this adapter discards to match errgroup's
// signature (errgroup.Group.Go has no return value either).
func (g *Group) Go(f func() error) {
	if f == nil {
		return
	}
	_ = ki.Fork_(g.scope, func(context.Context) error {
		return f()
	})
}

// Wait blocks until every function passed to Go has returned, then
// returns the first non-nil error, or nil on success. Repeated calls
// return the same result immediately.
func (g *Group) Wait() error {
	g.waitOnce.Do(func() {
		close(g.done)
		g.waitErr = <-g.result
	})
	return g.waitErr
}
