package ki

import (
	"context"
	"sync"
	"time"
)

// Outcome is a child's result: either a Value or a raised Err, never
// both. It is the tagged union spec §3 describes.
type Outcome[T any] struct {
	Value T
	Err   error
}

// Raised reports whether the child ended by raising rather than
// returning a value.
func (o Outcome[T]) Raised() bool { return o.Err != nil }

// Handle is a joinable reference to a child task forked through a Scope.
// Its outcome cell is assigned exactly once (P3) and may be read any
// number of times afterward. Two handles are equal iff they reference the
// same child.
type Handle[T any] struct {
	id      int64
	once    sync.Once
	done    chan struct{}
	outcome Outcome[T]
}

func newHandle[T any](id int64) *Handle[T] {
	return &Handle[T]{id: id, done: make(chan struct{})}
}

// ID returns the child's scope-local identifier. Handles compare equal
// iff their IDs match.
func (h *Handle[T]) ID() int64 { return h.id }

// Done returns the raw composable event backing this handle: closed
// exactly once, when the outcome is published. Use it to select against
// a handle alongside other events instead of blocking in Await.
func (h *Handle[T]) Done() <-chan struct{} { return h.done }

func (h *Handle[T]) publish(o Outcome[T]) {
	h.once.Do(func() {
		h.outcome = o
		close(h.done)
	})
}

// wait blocks until the outcome is published or ctx is done. A context
// cancellation observed in the same instant the outcome is published is
// resolved in the outcome's favor: genuinely unreachable handles still
// time out, but the race between "about to publish" and "caller gave up"
// never produces a spurious timeout. The retry is bounded to once: it
// exists only to resolve that single race, not to loop indefinitely.
func (h *Handle[T]) wait(ctx context.Context) error {
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		select {
		case <-h.done:
			return nil
		default:
			return ctx.Err()
		}
	}
}

// Await blocks until the child completes, then re-raises the child's
// error if it raised one, matching fork-style (propagating) semantics.
func (h *Handle[T]) Await(ctx context.Context) (T, error) {
	if err := h.wait(ctx); err != nil {
		var zero T
		return zero, err
	}
	return h.outcome.Value, h.outcome.Err
}

// AwaitOutcome blocks until the child completes and returns its outcome
// verbatim, matching async-style (capturing) semantics: a child failure
// is never re-raised here, only reported in the returned Outcome. The
// second return value reports a failure of the await itself (ctx done),
// never the child's own error.
func (h *Handle[T]) AwaitOutcome(ctx context.Context) (Outcome[T], error) {
	if err := h.wait(ctx); err != nil {
		return Outcome[T]{}, err
	}
	return h.outcome, nil
}

// AwaitTimeout is the timed variant of Await: it returns ok=false if d
// elapses before the child completes, without affecting the child.
func (h *Handle[T]) AwaitTimeout(d time.Duration) (Outcome[T], bool) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	select {
	case <-h.done:
		return h.outcome, true
	case <-ctx.Done():
		return Outcome[T]{}, false
	}
}
