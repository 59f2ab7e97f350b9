package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoWithResult_SucceedsWithinBudget(t *testing.T) {
	attempts := 0
	got, err := DoWithResult(context.Background(), Config{MaxAttempts: 5, Delay: time.Millisecond},
		func() (int, error) {
			attempts++
			if attempts < 3 {
				return 0, errors.New("transient")
			}
			return 42, nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestDoWithResult_BudgetExhausted(t *testing.T) {
	attempts := 0
	_, err := DoWithResult(context.Background(), Config{MaxAttempts: 4, Delay: time.Millisecond},
		func() (bool, error) {
			attempts++
			return false, errors.New("still failing")
		})
	if err == nil {
		t.Fatal("expected error after budget exhausted")
	}
	if attempts != 4 {
		t.Fatalf("expected exactly 4 attempts, got %d", attempts)
	}
	t.Logf("Exhausted: %v", err)
}

func TestDoWithResult_ZeroBudgetMeansOneAttempt(t *testing.T) {
	attempts := 0
	_, err := DoWithResult(context.Background(), Config{}, func() (int, error) {
		attempts++
		return 0, errors.New("nope")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestDoWithResult_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := DoWithResult(ctx, Config{MaxAttempts: 100, Delay: 10 * time.Millisecond}, func() (int, error) {
		return 0, errors.New("always failing")
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline error, got %v", err)
	}
}
