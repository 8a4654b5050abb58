package ingress

import (
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"
)

// TestRetryBackoff_SucceedsAfterTransientFailures and
// TestRetryBackoff_ExhaustsAfterMaxAttempts mirror the retry test pattern
// in original_source/crates/ingress-rpc/src/queue.rs: a
// publisher that fails N times then succeeds must be retried exactly
// N+1 times, and exhausting the policy must surface a final error.
func TestRetryBackoff_SucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	op := func() error {
		attempts++
		if attempts < 3 {
			return assertableErr{}
		}
		return nil
	}

	err := backoff.Retry(op, retryBackoff())
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestRetryBackoff_ExhaustsAfterMaxAttempts(t *testing.T) {
	attempts := 0
	op := func() error {
		attempts++
		return assertableErr{}
	}

	err := backoff.Retry(op, retryBackoff())
	require.Error(t, err)
	require.Equal(t, 3, attempts) // 1 initial + 2 retries, per spec.md §4.E
}

type assertableErr struct{}

func (assertableErr) Error() string { return "transient failure" }
