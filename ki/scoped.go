package ki

import (
	"context"
	"fmt"
)

// Scoped runs body with a fresh Scope and guarantees, on every exit path,
// that every child forked through that scope is interrupted and joined
// before Scoped returns. It raises, in order: the first unrecovered
// child failure; else body's own error; else any interrupt observed on
// ctx while children were being shut down; else nil together with
// body's value.
func Scoped[T any](ctx context.Context, body func(ctx context.Context, s *Scope) (T, error), optFns ...Option) (T, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	s := newScope(ctx, opts)

	val, bodyErr := runBody(s.ctx, s, body)

	parentInterrupt := s.shutdown(ctx)

	s.mu.Lock()
	childErr := s.firstErr
	s.mu.Unlock()

	var zero T
	switch {
	case childErr != nil:
		return zero, childErr
	case bodyErr != nil:
		return zero, bodyErr
	case parentInterrupt != nil:
		return zero, parentInterrupt
	default:
		return val, nil
	}
}

func runBody[T any](ctx context.Context, s *Scope, body func(context.Context, *Scope) (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			v, err = zero, fmt.Errorf("ki: scope body panic: %v", r)
		}
	}()
	return body(ctx, s)
}
