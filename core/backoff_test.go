package core

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestRetryRunnerExhaustsAttempts(t *testing.T) {
	var delays []time.Duration
	runner := RetryRunner{
		Sleep: func(_ context.Context, delay time.Duration) error {
			delays = append(delays, delay)
			return nil
		},
	}

	calls := 0
	err := runner.Run(context.Background(), func(attempt int) error {
		if attempt != calls {
			t.Fatalf("expected attempt %d, got %d", calls, attempt)
		}
		calls++
		return fmt.Errorf("attempt %d failed", attempt)
	}, 3, 500*time.Millisecond)

	if err == nil {
		t.Fatal("expected last error after exhausting attempts")
	}
	if calls != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", calls)
	}
	if len(delays) != 2 {
		t.Fatalf("expected 2 sleeps, got %v", delays)
	}
	if delays[0] != 500*time.Millisecond || delays[1] != time.Second {
		t.Fatalf("expected exponential delays 500ms then 1s, got %v", delays)
	}
}

func TestRetryRunnerStopsOnSuccess(t *testing.T) {
	var delays []time.Duration
	runner := RetryRunner{
		Sleep: func(_ context.Context, delay time.Duration) error {
			delays = append(delays, delay)
			return nil
		},
	}

	calls := 0
	err := runner.Run(context.Background(), func(attempt int) error {
		calls++
		if attempt == 0 {
			return fmt.Errorf("transient failure")
		}
		return nil
	}, 3, 500*time.Millisecond)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
	if len(delays) != 1 || delays[0] != 500*time.Millisecond {
		t.Fatalf("expected a single 500ms delay, got %v", delays)
	}
}

func TestRetryRunnerSucceedsImmediately(t *testing.T) {
	runner := RetryRunner{
		Sleep: func(context.Context, time.Duration) error {
			t.Fatal("sleep should not be called when the first attempt succeeds")
			return nil
		},
	}

	err := runner.Run(context.Background(), func(int) error { return nil }, 3, 500*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRetryRunnerHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := RetryRunner{}
	calls := 0
	err := runner.Run(ctx, func(int) error {
		calls++
		return fmt.Errorf("always failing")
	}, 3, time.Minute)

	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt before the cancelled sleep, got %d", calls)
	}
}

func TestRetryRunnerNormalizesAttempts(t *testing.T) {
	runner := RetryRunner{
		Sleep: func(context.Context, time.Duration) error { return nil },
	}

	calls := 0
	err := runner.Run(context.Background(), func(int) error {
		calls++
		return fmt.Errorf("failure")
	}, 0, time.Millisecond)

	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected one attempt for non-positive max, got %d", calls)
	}
}
