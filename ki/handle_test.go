package ki

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestHandleEqualityByID(t *testing.T) {
	t.Parallel()
	_, _ = Scoped(context.Background(), func(ctx context.Context, s *Scope) (struct{}, error) {
		a, err := Fork(s, func(context.Context) (int, error) { return 1, nil })
		if err != nil {
			t.Fatalf("unexpected fork error: %v", err)
		}
		b, err := Fork(s, func(context.Context) (int, error) { return 2, nil })
		if err != nil {
			t.Fatalf("unexpected fork error: %v", err)
		}
		if a.ID() == b.ID() {
			t.Fatalf("expected distinct ids, got %d and %d", a.ID(), b.ID())
		}
		if a.ID() != a.ID() {
			t.Fatal("id must be stable")
		}
		_, _ = a.Await(ctx)
		_, _ = b.Await(ctx)
		return struct{}{}, nil
	})
}

func TestAwaitTimeoutReturnsNotYet(t *testing.T) {
	t.Parallel()
	_, _ = Scoped(context.Background(), func(ctx context.Context, s *Scope) (struct{}, error) {
		block := make(chan struct{})
		h, err := Fork(s, func(context.Context) (int, error) {
			<-block
			return 9, nil
		})
		if err != nil {
			t.Fatalf("unexpected fork error: %v", err)
		}
		if _, ok := h.AwaitTimeout(20 * time.Millisecond); ok {
			t.Fatal("expected AwaitTimeout to report not-yet")
		}
		close(block)
		outcome, ok := h.AwaitTimeout(500 * time.Millisecond)
		if !ok || outcome.Value != 9 {
			t.Fatalf("expected value 9 once unblocked, got ok=%v outcome=%+v", ok, outcome)
		}
		return struct{}{}, nil
	})
}

func TestHandleOutcomeIsSingleAssignment(t *testing.T) {
	t.Parallel()
	_, _ = Scoped(context.Background(), func(ctx context.Context, s *Scope) (struct{}, error) {
		h, err := Async(s, func(context.Context) (int, error) { return 5, nil })
		if err != nil {
			t.Fatalf("unexpected fork error: %v", err)
		}
		first, err1 := h.AwaitOutcome(ctx)
		second, err2 := h.AwaitOutcome(ctx)
		if err1 != nil || err2 != nil {
			t.Fatalf("unexpected await errors: %v, %v", err1, err2)
		}
		if first.Value != second.Value || first.Err != second.Err {
			t.Fatalf("expected identical outcomes across repeated awaits, got %+v vs %+v", first, second)
		}
		return struct{}{}, nil
	})
}

func TestAwaitOnAlreadyCanceledContextStillSeesPublishedOutcome(t *testing.T) {
	t.Parallel()
	_, _ = Scoped(context.Background(), func(ctx context.Context, s *Scope) (struct{}, error) {
		h, err := Fork(s, func(context.Context) (int, error) { return 3, nil })
		if err != nil {
			t.Fatalf("unexpected fork error: %v", err)
		}
		<-h.Done()
		canceled, cancel := context.WithCancel(context.Background())
		cancel()
		v, awaitErr := h.Await(canceled)
		if awaitErr != nil || v != 3 {
			t.Fatalf("expected the already-published outcome despite a canceled ctx, got v=%d err=%v", v, awaitErr)
		}
		return struct{}{}, nil
	})
}

func TestForkAwaitReRaisesChildError(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	_, err := Scoped(context.Background(), func(ctx context.Context, s *Scope) (struct{}, error) {
		h, ferr := Fork(s, func(context.Context) (int, error) { return 0, boom })
		if ferr != nil {
			t.Fatalf("unexpected fork error: %v", ferr)
		}
		_, awaitErr := h.Await(ctx)
		if !errors.Is(awaitErr, boom) {
			t.Fatalf("expected Await to re-raise %v, got %v", boom, awaitErr)
		}
		return struct{}{}, nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected scoped to also raise %v, got %v", boom, err)
	}
}
