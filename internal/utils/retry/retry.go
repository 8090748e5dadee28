package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Once runs op and, if it fails, retries it a single time after a short
// backoff. Used on the swipe write path where a transient store error must
// not silently drop a user's decision.
func Once(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxInterval = 250 * time.Millisecond

	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, 1), ctx))
}
