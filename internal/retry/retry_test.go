package retry

import (
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
)

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	}, Constant(5, time.Millisecond))
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryGivesUp(t *testing.T) {
	sentinel := errors.New("persistent")
	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		return sentinel
	}, Constant(2, time.Millisecond))
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want the last failure", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want initial try plus 2 retries", attempts)
	}
}

func TestDoNoRetryOnSuccess(t *testing.T) {
	attempts := 0
	if err := Do(func() error {
		attempts++
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}
