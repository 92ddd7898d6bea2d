package action

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"mercator-hq/custodian/pkg/document"
	"mercator-hq/custodian/pkg/lifecycle"
)

// RetryConfig bounds retries of a single store write.
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 4
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 100 * time.Millisecond
	}
	if c.MaxBackoff < c.InitialBackoff {
		c.MaxBackoff = c.InitialBackoff
	}
	return c
}

// retry runs fn until it succeeds, the attempt budget is spent or ctx ends.
// ErrNotFound and ErrConflict are never retried. Failures come back as *PersistenceError.
func (e *Executor) retry(ctx context.Context, op, documentID string, fn func(context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.retryCfg.InitialBackoff
	b.MaxInterval = e.retryCfg.MaxBackoff

	attempts := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		err := fn(ctx)
		if errors.Is(err, document.ErrNotFound) || errors.Is(err, document.ErrConflict) {
			return struct{}{}, backoff.Permanent(err)
		}
		if err != nil {
			e.logger.Warn("store write failed",
				"op", op,
				"document_id", documentID,
				"attempt", attempts,
				"error", err,
			)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(e.retryCfg.MaxAttempts)),
	)
	if err != nil {
		return lifecycle.NewPersistenceError(op, documentID, attempts, err)
	}
	return nil
}
