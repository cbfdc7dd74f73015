package ki

import "context"

// Unmask restores visibility of a masked context's real cancellation
// signal for the duration of a sub-call. ForkWithUnmask and
// AsyncWithUnmask pass one to the child action so it can open a window
// in which it is interruptible, without being unconditionally
// interruptible for its whole body.
type Unmask func(ctx context.Context) context.Context

// maskedContext hides the cancellation signal of its underlying context.
// Done never fires and Err is always nil while masked; the real context
// remains reachable through Unmask.
type maskedContext struct {
	context.Context
	real context.Context
}

func maskContext(real context.Context) context.Context {
	return &maskedContext{Context: real, real: real}
}

func (m *maskedContext) Done() <-chan struct{} { return nil }

func (m *maskedContext) Err() error { return nil }

func identityUnmask(ctx context.Context) context.Context { return ctx }

func unmaskTo(real context.Context) Unmask {
	return func(context.Context) context.Context { return real }
}
