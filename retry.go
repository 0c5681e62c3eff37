package txcore

import (
	"context"
	"errors"
	log "log/slog"
	"time"

	"github.com/sethvargo/go-retry"
)

// Retry executes task with Fibonacci backoff: one attempt plus up to 5
// retries. It is meant for resource manager adapters (resourcemanager/*),
// not for the engine itself: the engine never retries internally (spec §5 —
// "the engine has no scheduler of its own"). If task still fails (retries
// exhausted, or an error not marked retryable), gaveUpTask is invoked (when
// not nil) and the final error is returned.
func Retry(ctx context.Context, task func(ctx context.Context) error, gaveUpTask func(ctx context.Context)) error {
	b := retry.NewFibonacci(1 * time.Second)
	if err := retry.Do(ctx, retry.WithMaxRetries(5, b), task); err != nil {
		log.Warn(err.Error() + ", gave up")
		if gaveUpTask != nil {
			gaveUpTask(ctx)
		}
		return err
	}
	return nil
}

// ShouldRetry reports whether err is retryable. Context cancellations and
// usage/state errors (IllegalTransactionState, TransactionUsage,
// NestedTransactionNotSupported, InvalidTimeout, UnexpectedRollback) are
// permanent; a
// TransactionSystem error from the resource manager is assumed transient.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var te Error
	if errors.As(err, &te) {
		switch te.Code {
		case IllegalTransactionState, TransactionUsage, NestedTransactionNotSupported, InvalidTimeout, UnexpectedRollback:
			return false
		}
	}
	return true
}
