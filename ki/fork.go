package ki

import (
	"context"
	"fmt"
	"time"
)

// Fork spawns a child task and returns a handle to it. Awaiting the
// handle re-raises the child's error; regardless of whether the handle
// is ever awaited, the child's failure also propagates to the parent
// scope once classified (spec §4.3, propagating variants).
func Fork[T any](s *Scope, action func(ctx context.Context) (T, error)) (*Handle[T], error) {
	return forkInternal(s, true, false, func(ctx context.Context, _ Unmask) (T, error) {
		return action(ctx)
	})
}

// Fork_ is Fork without the returned handle.
func Fork_(s *Scope, action func(ctx context.Context) error) error {
	_, err := forkInternal(s, true, false, func(ctx context.Context, _ Unmask) (struct{}, error) {
		return struct{}{}, action(ctx)
	})
	return err
}

// ForkWithUnmask is Fork, except the child starts masked (as if inside
// the admission/shutdown bookkeeping's non-interruptible section) and is
// given an Unmask function to open windows where it is interruptible.
func ForkWithUnmask[T any](s *Scope, action func(ctx context.Context, unmask Unmask) (T, error)) (*Handle[T], error) {
	return forkInternal(s, true, true, action)
}

// ForkWithUnmask_ is ForkWithUnmask without the returned handle.
func ForkWithUnmask_(s *Scope, action func(ctx context.Context, unmask Unmask) error) error {
	_, err := forkInternal(s, true, true, func(ctx context.Context, unmask Unmask) (struct{}, error) {
		return struct{}{}, action(ctx, unmask)
	})
	return err
}

// Async spawns a child task and returns a handle whose outcome is always
// readable as a tagged union via AwaitOutcome. A raised error is
// propagated to the parent only when it is classified as asynchronous
// (spec §4.3, capturing variants); otherwise it is captured on the
// handle and the parent only ever sees it by awaiting.
func Async[T any](s *Scope, action func(ctx context.Context) (T, error)) (*Handle[T], error) {
	return forkInternal(s, false, false, func(ctx context.Context, _ Unmask) (T, error) {
		return action(ctx)
	})
}

// AsyncWithUnmask is Async with the same masked-start/Unmask contract as
// ForkWithUnmask.
func AsyncWithUnmask[T any](s *Scope, action func(ctx context.Context, unmask Unmask) (T, error)) (*Handle[T], error) {
	return forkInternal(s, false, true, action)
}

func forkInternal[T any](s *Scope, propagate, withUnmask bool, action func(ctx context.Context, unmask Unmask) (T, error)) (*Handle[T], error) {
	if err := s.gate.acquire(s.ctx); err != nil {
		return nil, err
	}
	id, childCtx, childCancel, err := s.admit()
	if err != nil {
		s.gate.release()
		return nil, err
	}

	h := newHandle[T](id)
	runCtx := childCtx
	unmask := Unmask(identityUnmask)
	if withUnmask {
		runCtx = maskContext(childCtx)
		unmask = unmaskTo(childCtx)
	}

	go runChild(s, id, childCtx, childCancel, runCtx, unmask, propagate, action, h)

	// On this host a goroutine spawn cannot fail synchronously (unlike
	// hosts where thread creation can); commit always follows admission.
	s.commit(id, childCancel)
	return h, nil
}

func runChild[T any](
	s *Scope,
	id int64,
	childCtx context.Context,
	childCancel context.CancelCauseFunc,
	runCtx context.Context,
	unmask Unmask,
	propagate bool,
	action func(ctx context.Context, unmask Unmask) (T, error),
	h *Handle[T],
) {
	start := time.Now()
	out := invoke(runCtx, unmask, action)
	h.publish(out)

	if out.Err != nil {
		k := classify(s, childCtx, out.Err)
		switch {
		case propagate:
			if k != kindClosureOwn {
				s.propagateFailure(out.Err)
			}
		default:
			if k == kindAsync {
				s.propagateFailure(out.Err)
			}
		}
	}

	if s.obs != nil {
		s.obs.ChildFinished(s.ctx, id, time.Since(start), out.Err)
	}

	childCancel(context.Canceled)
	s.deregister(id)
	s.gate.release()
}

func invoke[T any](ctx context.Context, unmask Unmask, action func(ctx context.Context, unmask Unmask) (T, error)) Outcome[T] {
	var out Outcome[T]
	func() {
		defer func() {
			if r := recover(); r != nil {
				out.Err = fmt.Errorf("ki: task panic: %v", r)
			}
		}()
		out.Value, out.Err = action(ctx, unmask)
		if out.Err != nil {
			var zero T
			out.Value = zero
		}
	}()
	return out
}
