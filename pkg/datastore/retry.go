package datastore

import (
	"time"

	"github.com/complidesk/gpsr-registry/pkg/regerrors"
)

const (
	conflictRetryAttempts  = 3
	conflictRetryBaseDelay = 20 * time.Millisecond
)

// WithConflictRetry runs fn up to three times, backing off exponentially
// from 20ms, retrying solely on unique-constraint violations. fn must
// re-derive any state that might have changed on every attempt (typically by
// running a fresh transaction). Any other error propagates immediately;
// an exhausted retry budget surfaces as a Conflict error.
func WithConflictRetry(fn func(attempt int) error) error {
	var lastErr error
	for attempt := 0; attempt < conflictRetryAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(conflictRetryBaseDelay << (attempt - 1))
		}
		err := fn(attempt)
		if err == nil {
			return nil
		}
		if !IsUniqueViolation(err) {
			return err
		}
		lastErr = err
	}
	return regerrors.Conflict(lastErr, "write contention exhausted %d attempts", conflictRetryAttempts)
}
