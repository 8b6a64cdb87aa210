package retry

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Constant returns a backoff that retries maxRetry times at a fixed interval.
// Used for idempotent file operations (read, remove) that can fail briefly
// under contention.
func Constant(maxRetry int, interval time.Duration) backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(interval), uint64(maxRetry))
}

// Default is the standard retry policy for idempotent file operations.
func Default() backoff.BackOff {
	return Constant(3, 50*time.Millisecond)
}

// Do runs op under the default policy.
func Do(op func() error) error {
	return backoff.Retry(op, Default())
}
