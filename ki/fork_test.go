package ki

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestForkPropagatesUnconditionallyOnSyncFailure(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	_, err := Scoped(context.Background(), func(ctx context.Context, s *Scope) (struct{}, error) {
		_ = Fork_(s, func(context.Context) error { return boom })
		_ = s.Wait(ctx)
		return struct{}{}, nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
}

func TestAsyncDoesNotPropagateSyncFailure(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	_, err := Scoped(context.Background(), func(ctx context.Context, s *Scope) (struct{}, error) {
		h, ferr := Async(s, func(context.Context) (struct{}, error) { return struct{}{}, boom })
		if ferr != nil {
			t.Fatalf("unexpected fork error: %v", ferr)
		}
		if err := s.Wait(ctx); err != nil {
			t.Fatalf("unexpected wait error: %v", err)
		}
		_ = h
		return struct{}{}, nil
	})
	if err != nil {
		t.Fatalf("expected scoped to return normally, got %v", err)
	}
}

func TestAsyncPropagatesAsynchronousFailure(t *testing.T) {
	t.Parallel()
	outer, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	go func() {
		<-started
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := Scoped(outer, func(ctx context.Context, s *Scope) (struct{}, error) {
		_, ferr := Async(s, func(childCtx context.Context) (struct{}, error) {
			close(started)
			<-childCtx.Done()
			return struct{}{}, context.Cause(childCtx)
		})
		if ferr != nil {
			t.Fatalf("unexpected fork error: %v", ferr)
		}
		_ = s.Wait(ctx)
		return struct{}{}, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled to propagate, got %v", err)
	}
}

func TestFork_AdmissionErrorIsSynchronous(t *testing.T) {
	t.Parallel()
	var captured *Scope
	_, _ = Scoped(context.Background(), func(ctx context.Context, s *Scope) (struct{}, error) {
		captured = s
		return struct{}{}, nil
	})
	err := Fork_(captured, func(context.Context) error { return nil })
	if !errors.Is(err, ErrScopeClosed) {
		t.Fatalf("expected ErrScopeClosed, got %v", err)
	}
}

func TestForkPanicIsConvertedToError(t *testing.T) {
	t.Parallel()
	_, err := Scoped(context.Background(), func(ctx context.Context, s *Scope) (struct{}, error) {
		_ = Fork_(s, func(context.Context) error { panic("kaboom") })
		_ = s.Wait(ctx)
		return struct{}{}, nil
	})
	if err == nil {
		t.Fatal("expected a converted panic error")
	}
}

func TestNestedScopeForeignClosureInterruptIsAsynchronous(t *testing.T) {
	t.Parallel()
	var innerClassification error
	_, outerErr := Scoped(context.Background(), func(ctx context.Context, outer *Scope) (struct{}, error) {
		_ = Fork_(outer, func(outerChildCtx context.Context) error {
			_, innerErr := Scoped(outerChildCtx, func(innerCtx context.Context, inner *Scope) (struct{}, error) {
				// Wait for the outer scope's own shutdown to land on
				// outerChildCtx first, so the child forked below is born
				// already canceled with the outer scope's cause: this
				// makes the race deterministic instead of depending on
				// which goroutine reaches its own shutdown first.
				<-outerChildCtx.Done()
				_ = Fork_(inner, func(innerChildCtx context.Context) error {
					<-innerChildCtx.Done()
					return context.Cause(innerChildCtx)
				})
				return struct{}{}, nil
			})
			innerClassification = innerErr
			return innerErr
		})
		return struct{}{}, nil
	})
	if innerClassification == nil {
		t.Fatal("expected the outer scope's closure interrupt to surface inside the inner scope as an ordinary (asynchronous) failure")
	}
	if outerErr != nil {
		t.Fatalf("expected the outer scope to recognize its own closure interrupt on the way back up and swallow it, got %v", outerErr)
	}
}
