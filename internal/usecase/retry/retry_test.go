package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/resumatch/internal/domain"
)

func fastPolicy(attempts int) Policy {
	return Policy{MaxAttempts: attempts, BaseDelay: time.Millisecond}
}

func TestDo_SucceedsFirstTry(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fastPolicy(3), func() (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" || calls != 1 {
		t.Errorf("got %q after %d calls", got, calls)
	}
}

func TestDo_RetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fastPolicy(3), func() (int, error) {
		calls++
		if calls < 3 {
			return 0, domain.ErrServiceUnavailable
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 || calls != 3 {
		t.Errorf("got %d after %d calls", got, calls)
	}
}

func TestDo_QuotaSurfacedAfterExhaustion(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(3), func() (int, error) {
		calls++
		return 0, domain.ErrQuotaExceeded
	})
	if !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("err = %v, want ErrQuotaExceeded", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDo_PermanentNotRetried(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(5), func() (int, error) {
		calls++
		return 0, domain.ErrInvalidInput
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry)", calls)
	}
}

func TestDo_ContextCancelStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Do(ctx, fastPolicy(5), func() (int, error) {
		return 0, domain.ErrServiceUnavailable
	})
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(domain.ErrQuotaExceeded) || !Retryable(domain.ErrServiceUnavailable) {
		t.Error("quota and availability errors must be retryable")
	}
	if Retryable(domain.ErrInvalidInput) || Retryable(domain.ErrNotFound) {
		t.Error("input and not-found errors must not be retryable")
	}
}
