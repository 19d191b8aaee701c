package session

import (
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/danmuck/s3200ctl/internal/protocol"
)

// RetryPolicy lets callers repeat whole read transactions after a garbled
// answer. Transactions themselves never retry.
type RetryPolicy struct {
	Attempts     int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// DefaultRetryPolicy tries once.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:     1,
		InitialDelay: 100 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     2 * time.Second,
	}
}

// NextBackoffDelay returns the delay before attempt N (1-based) is retried.
func NextBackoffDelay(cfg RetryPolicy, attempt int, rng *rand.Rand) time.Duration {
	if attempt <= 1 {
		return cfg.InitialDelay
	}
	if cfg.InitialDelay <= 0 {
		return 0
	}
	if cfg.Multiplier < 1.0 {
		cfg.Multiplier = 1.0
	}
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt-1))
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	if cfg.Jitter {
		f := 0.5
		if rng != nil {
			f = 0.5 + rng.Float64()
		}
		delay = delay * f
	}
	return time.Duration(delay)
}

// Retryable reports whether err came from a garbled or missing answer.
func Retryable(err error) bool {
	var (
		checksum protocol.ChecksumError
		framing  protocol.FramingError
		count    protocol.WrongAnswerCountError
	)
	return errors.As(err, &checksum) || errors.As(err, &framing) || errors.As(err, &count)
}

// WithRetry runs fn until it succeeds, fails with a non-retryable error or
// runs out of attempts. rng drives jitter and may be nil when Jitter is off.
func WithRetry[T any](policy RetryPolicy, rng *rand.Rand, sleep func(time.Duration), fn func() (T, error)) (T, error) {
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}
	if sleep == nil {
		sleep = time.Sleep
	}
	var (
		out T
		err error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		out, err = fn()
		if err == nil || !Retryable(err) || attempt == attempts {
			return out, err
		}
		sleep(NextBackoffDelay(policy, attempt, rng))
	}
	return out, err
}
