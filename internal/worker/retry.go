package worker

import (
	"time"

	"offlinesync/internal/config"
)

const (
	defaultInitialDelay = time.Second
	defaultFactor       = 2.0
)

// RetryPolicy is an exponential backoff: InitialDelay grown by
// BackoffFactor per attempt and clamped to MaxDelay when set.
type RetryPolicy struct {
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// PolicyFromConfig builds the backoff used between failing drain passes.
func PolicyFromConfig(cfg config.SyncConfig) RetryPolicy {
	return RetryPolicy{
		InitialDelay:  cfg.BackoffInitial,
		MaxDelay:      cfg.BackoffMax,
		BackoffFactor: cfg.BackoffFactor,
	}
}

// NextDelay returns the delay before the given 1-based attempt.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	initial := r.InitialDelay
	if initial <= 0 {
		initial = defaultInitialDelay
	}
	factor := r.BackoffFactor
	if factor < 1 {
		factor = defaultFactor
	}
	limit := r.MaxDelay
	if limit <= 0 {
		limit = time.Duration(1<<63 - 1)
	}

	delay := float64(initial)
	for i := 1; i < attempt; i++ {
		delay *= factor
		if delay >= float64(limit) {
			return limit
		}
	}
	if d := time.Duration(delay); d < limit {
		return d
	}
	return limit
}
