package ki

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
)

// Option configures a Scope at construction time.
type Option func(*options)

type options struct {
	observer       Observer
	maxConcurrency int64
}

func defaultOptions() options { return options{} }

// WithObserver attaches an observer for metrics/tracing hooks. A nil
// observer (the default) skips every hook.
func WithObserver(obs Observer) Option { return func(o *options) { o.observer = obs } }

// WithMaxConcurrency bounds the number of children concurrently admitted
// into the scope. It gates admission behind a weighted semaphore; it does
// not pool or reuse tasks and does not queue work past the scope's own
// lifetime, so it does not turn the scope into a thread pool. A blocked
// acquire is released early by scope closure.
func WithMaxConcurrency(n int64) Option {
	return func(o *options) { o.maxConcurrency = n }
}

// Observer receives Scope and child lifecycle events. Implementations
// must be safe for concurrent use; hooks may be called from any child
// goroutine as well as from the parent.
type Observer interface {
	ScopeOpened(ctx context.Context)
	ScopeClosing(ctx context.Context, cause error)
	ScopeClosed(ctx context.Context, joinWait time.Duration)
	ChildAdmitted(ctx context.Context, id int64)
	ChildStarted(ctx context.Context, id int64)
	ChildFinished(ctx context.Context, id int64, dur time.Duration, err error)
}

// admissionGate bounds concurrent admission when WithMaxConcurrency is
// set; a nil gate never blocks.
type admissionGate struct {
	sem *semaphore.Weighted
}

func newAdmissionGate(n int64) *admissionGate {
	if n <= 0 {
		return nil
	}
	return &admissionGate{sem: semaphore.NewWeighted(n)}
}

func (g *admissionGate) acquire(ctx context.Context) error {
	if g == nil {
		return nil
	}
	return g.sem.Acquire(ctx, 1)
}

func (g *admissionGate) release() {
	if g == nil {
		return
	}
	g.sem.Release(1)
}
