package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

func TestExecuteRetriesTemporaryFailure(t *testing.T) {
	exec := NewExecutor(Config{
		Retry: RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond, Multiplier: 2},
	})

	attempts := 0
	errTemp := errors.New("temporary")
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errTemp
		}
		return nil
	}, func(err error) ErrorClassification {
		return ErrorClassification{
			Retryable:     errors.Is(err, errTemp),
			RecordFailure: true,
		}
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestExecuteDoesNotRetryPermanentFailure(t *testing.T) {
	exec := NewExecutor(Config{
		Retry: RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond, Multiplier: 2},
	})

	attempts := 0
	errPermanent := errors.New("permanent")
	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		attempts++
		return errPermanent
	}, func(error) ErrorClassification {
		return ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	})
	if !errors.Is(err, errPermanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestExecuteOpensCircuitAfterFailures(t *testing.T) {
	exec := NewExecutor(Config{
		Retry:   RetryPolicy{MaxAttempts: 1},
		Breaker: BreakerPolicy{
			Enabled:          true,
			MinRequests:      2,
			FailureRatio:     0.5,
			OpenTimeout:      50 * time.Millisecond,
			HalfOpenMaxCalls: 1,
		},
	})

	errTemp := errors.New("temporary")
	classifier := func(error) ErrorClassification {
		return ErrorClassification{
			Retryable:     false,
			RecordFailure: true,
		}
	}

	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "op", func(context.Context) error {
			return errTemp
		}, classifier)
		if !errors.Is(err, errTemp) {
			t.Fatalf("expected temporary error on iteration %d, got %v", i, err)
		}
	}

	err := exec.Execute(context.Background(), "op", func(context.Context) error {
		t.Fatalf("circuit should be open and must not call operation")
		return nil
	}, classifier)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open state error, got %v", err)
	}
}

func TestCallReturnsValueAfterRetry(t *testing.T) {
	exec := NewExecutor(Config{
		Retry: RetryPolicy{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond},
	})

	attempts := 0
	got, err := Call(context.Background(), exec, "embed", func(context.Context) ([]float32, error) {
		attempts++
		if attempts == 1 {
			return nil, &HTTPStatusError{Service: "ollama", Operation: "embed", StatusCode: 503, Status: "503 Service Unavailable"}
		}
		return []float32{1, 2}, nil
	}, ClassifyHTTPError)
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if len(got) != 2 || attempts != 2 {
		t.Fatalf("unexpected result %v after %d attempts", got, attempts)
	}
}

func TestClassifyHTTPError(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		retryable bool
		record    bool
	}{
		{"server error", &HTTPStatusError{StatusCode: 502}, true, true},
		{"rate limited", &HTTPStatusError{StatusCode: 429}, true, true},
		{"bad request", &HTTPStatusError{StatusCode: 400}, false, false},
		{"canceled", context.Canceled, false, false},
		{"open circuit", gobreaker.ErrOpenState, true, true},
		{"other", errors.New("decode"), false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			class := ClassifyHTTPError(tc.err)
			if class.Retryable != tc.retryable || class.RecordFailure != tc.record {
				t.Fatalf("ClassifyHTTPError(%v) = %+v", tc.err, class)
			}
		})
	}
}

func TestBackoffGrowsUntilCap(t *testing.T) {
	policy := RetryPolicy{InitialBackoff: 10 * time.Millisecond, MaxBackoff: 35 * time.Millisecond, Multiplier: 2}
	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 35 * time.Millisecond, 35 * time.Millisecond}
	for i, w := range want {
		if got := policy.backoff(i + 1); got != w {
			t.Fatalf("backoff(%d) = %v, want %v", i+1, got, w)
		}
	}
}

func TestSingleAttemptKeepsBreaker(t *testing.T) {
	cfg := DefaultConfig().SingleAttempt()
	if cfg.Retry.MaxAttempts != 1 || !cfg.Breaker.Enabled {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	exec := NewExecutor(cfg)
	attempts := 0
	errTemp := errors.New("temporary")
	err := exec.Execute(context.Background(), "embed", func(context.Context) error {
		attempts++
		return errTemp
	}, func(error) ErrorClassification { return ErrorClassification{Retryable: true, RecordFailure: true} })
	if !errors.Is(err, errTemp) || attempts != 1 {
		t.Fatalf("expected one failed attempt, got %d (%v)", attempts, err)
	}
}

func TestRetryStopsWhenContextCanceled(t *testing.T) {
	exec := NewExecutor(Config{
		Retry: RetryPolicy{MaxAttempts: 5, InitialBackoff: time.Second, MaxBackoff: time.Second},
	})
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	errTemp := errors.New("temporary")
	err := exec.Execute(ctx, "op", func(context.Context) error {
		attempts++
		cancel()
		return errTemp
	}, func(error) ErrorClassification { return ErrorClassification{Retryable: true} })
	if !errors.Is(err, errTemp) || attempts != 1 {
		t.Fatalf("expected last error after cancel, got %v after %d attempts", err, attempts)
	}
}
