package ki

import (
	"context"
	"testing"
	"time"
)

// Default mask test: a child forked with the plain (non-unmask) variant
// is always unmasked, regardless of whether the surrounding scope is
// itself in the middle of shutting down or not.
func TestDefaultForkChildIsUnmasked(t *testing.T) {
	t.Parallel()
	sawCancellation := make(chan struct{})
	_, _ = Scoped(context.Background(), func(ctx context.Context, s *Scope) (struct{}, error) {
		_ = Fork_(s, func(childCtx context.Context) error {
			<-childCtx.Done()
			close(sawCancellation)
			return context.Cause(childCtx)
		})
		return struct{}{}, nil
	})
	select {
	case <-sawCancellation:
	default:
		t.Fatal("expected the default (unmasked) child to observe scope closure")
	}
}

// A ForkWithUnmask child starts masked: cancellation is invisible until
// it calls unmask to open a window.
func TestForkWithUnmaskStartsMasked(t *testing.T) {
	t.Parallel()
	openedWindow := make(chan struct{})
	observedBeforeUnmask := make(chan bool, 1)
	_, _ = Scoped(context.Background(), func(ctx context.Context, s *Scope) (struct{}, error) {
		_ = ForkWithUnmask_(s, func(childCtx context.Context, unmask Unmask) error {
			<-openedWindow
			select {
			case <-childCtx.Done():
				observedBeforeUnmask <- true
			default:
				observedBeforeUnmask <- false
			}
			real := unmask(childCtx)
			<-real.Done()
			return context.Cause(real)
		})
		time.Sleep(20 * time.Millisecond)
		close(openedWindow)
		return struct{}{}, nil
	})
	if observed := <-observedBeforeUnmask; observed {
		t.Fatal("expected the masked child not to observe cancellation before calling unmask")
	}
}
