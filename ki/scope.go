package ki

import (
	"context"
	"sync"
	"time"
)

// Scope tracks every child task forked through it and orchestrates their
// shutdown. It is created by Scoped and is owned exclusively by the
// goroutine that opened it; each child goroutine holds a reference to it
// only to report its failure and to deregister its id, and the Scope in
// turn reaches each live child only through the id and per-child cancel
// func recorded in its bookkeeping.
type Scope struct {
	root   context.Context
	ctx    context.Context
	cancel context.CancelCauseFunc

	mu       sync.Mutex
	cond     *sync.Cond
	nextID   int64
	starting int
	closed   bool
	children map[int64]context.CancelCauseFunc

	firstErr error

	obs  Observer
	gate *admissionGate
}

func newScope(root context.Context, opts options) *Scope {
	ctx, cancel := context.WithCancelCause(root)
	s := &Scope{
		root:     root,
		ctx:      ctx,
		cancel:   cancel,
		children: make(map[int64]context.CancelCauseFunc),
		obs:      opts.observer,
		gate:     newAdmissionGate(opts.maxConcurrency),
	}
	s.cond = sync.NewCond(&s.mu)
	if s.obs != nil {
		s.obs.ScopeOpened(ctx)
	}
	return s
}

// Context returns the Scope's context. It is canceled the moment any
// child's failure propagates, and is always canceled by the time Scoped
// returns.
func (s *Scope) Context() context.Context { return s.ctx }

// admit runs admission protocol step 1: reserve a child id and bump the
// starting counter, or fail synchronously if the scope has closed. The
// commit and rollback methods complete step 3 (success) or undo step 1
// (spawn failure) respectively.
func (s *Scope) admit() (id int64, childCtx context.Context, childCancel context.CancelCauseFunc, err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, nil, nil, ErrScopeClosed
	}
	id = s.nextID
	s.nextID++
	s.starting++
	s.mu.Unlock()

	childCtx, childCancel = context.WithCancelCause(s.ctx)
	if s.obs != nil {
		s.obs.ChildAdmitted(s.ctx, id)
	}
	return id, childCtx, childCancel, nil
}

// commit completes admission step 3: the child becomes live.
func (s *Scope) commit(id int64, cancel context.CancelCauseFunc) {
	s.mu.Lock()
	s.starting--
	s.children[id] = cancel
	s.cond.Broadcast()
	s.mu.Unlock()
	if s.obs != nil {
		s.obs.ChildStarted(s.ctx, id)
	}
}

// rollback undoes admission step 1 when the host fails to spawn the
// child, leaving no partial state.
func (s *Scope) rollback() {
	s.mu.Lock()
	s.starting--
	s.cond.Broadcast()
	s.mu.Unlock()
}

// deregister removes a completed child from the live set. It retries
// under the same lock until the child is actually visible in children:
// a child can finish and call deregister before the forking goroutine
// has run commit, and deleting an absent key would be a silent no-op
// that commit would then resurrect as a permanently live ghost entry.
func (s *Scope) deregister(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		if _, ok := s.children[id]; ok {
			delete(s.children, id)
			s.cond.Broadcast()
			return
		}
		s.cond.Wait()
	}
}

func (s *Scope) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// propagateFailure records err as the scope's surfaced failure if none
// has been recorded yet, and cancels the scope's context so every
// cooperative child (and the parent, if it is waiting on the scope's
// context) observes it promptly.
func (s *Scope) propagateFailure(err error) {
	s.mu.Lock()
	if s.firstErr == nil {
		s.firstErr = err
	}
	s.mu.Unlock()
	s.cancel(err)
}

// shutdown runs the shutdown protocol: block until no admission is in
// flight, close the scope, interrupt every live child, then wait for the
// live set to drain. It returns a non-nil error only if root (the
// context the enclosing Scoped call was given) is done before the join
// fence clears; the join fence itself is never abandoned; every child is
// joined before shutdown returns regardless of root's state.
func (s *Scope) shutdown(root context.Context) error {
	s.mu.Lock()
	for s.starting > 0 {
		s.cond.Wait()
	}
	s.closed = true
	snapshot := make(map[int64]context.CancelCauseFunc, len(s.children))
	for id, cancel := range s.children {
		snapshot[id] = cancel
	}
	s.mu.Unlock()

	if s.obs != nil {
		s.mu.Lock()
		cause := s.firstErr
		s.mu.Unlock()
		s.obs.ScopeClosing(s.ctx, cause)
	}

	for _, cancel := range snapshot {
		cancel(&closureInterrupt{owner: s})
	}

	start := time.Now()
	joined := make(chan struct{})
	go func() {
		s.mu.Lock()
		for len(s.children) > 0 {
			s.cond.Wait()
		}
		s.mu.Unlock()
		close(joined)
	}()

	var parentInterrupt error
	select {
	case <-joined:
	case <-root.Done():
		parentInterrupt = context.Cause(root)
		<-joined
	}

	s.cancel(ErrScopeClosed)

	if s.obs != nil {
		s.obs.ScopeClosed(s.ctx, time.Since(start))
	}
	return parentInterrupt
}

// Wait blocks until the scope has no live and no admitted-but-not-live
// children, or until ctx is done. Calling it again on an already
// quiesced scope returns immediately (P6).
func (s *Scope) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.mu.Lock()
		for s.starting > 0 || len(s.children) > 0 {
			s.cond.Wait()
		}
		s.mu.Unlock()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitTimeout is the timed variant of Wait: it returns ctx's deadline
// error if d elapses before the scope quiesces, without affecting any
// child.
func (s *Scope) WaitTimeout(d time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return s.Wait(ctx)
}
