package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds configuration for retrying an operation
type Config struct {
	MaxAttempts int           // Total attempts including the first; 1 disables retry
	BaseDelay   time.Duration // Delay before the second attempt
	MaxDelay    time.Duration // Upper bound between attempts
	Multiplier  float64       // Exponential backoff factor
	JitterRange float64       // Fraction of the delay to randomise (0.0 to 1.0)
	Name        string        // Name for logging
}

// Func is an operation that can be retried
type Func func(ctx context.Context) error

// Retryer runs a Func with exponential backoff and jitter
type Retryer struct {
	config    Config
	logger    logrus.FieldLogger
	rng       *rand.Rand
	retryable func(error) bool
	sleep     func(ctx context.Context, d time.Duration) error
}

// New creates a retryer. Errors for which retryable returns false are returned immediately;
// a nil retryable retries every error.
func New(config Config, logger logrus.FieldLogger, retryable func(error) bool) *Retryer {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = time.Second
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.Multiplier <= 1.0 {
		config.Multiplier = 2.0
	}
	if config.JitterRange < 0 || config.JitterRange > 1.0 {
		config.JitterRange = 0.1
	}
	if config.Name == "" {
		config.Name = "retry"
	}
	if retryable == nil {
		retryable = func(error) bool { return true }
	}

	return &Retryer{
		config:    config,
		logger:    logger,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		retryable: retryable,
		sleep:     sleepContext,
	}
}

// Do runs fn until it succeeds, returns a non-retryable error, or attempts run out
func (r *Retryer) Do(ctx context.Context, fn Func) error {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				r.logger.Infof("[%s] succeeded on attempt %d", r.config.Name, attempt)
			}
			return nil
		}
		lastErr = err

		if r.config.MaxAttempts == 1 {
			return err
		}

		if !r.retryable(err) {
			r.logger.WithError(err).Errorf("[%s] non-retryable error", r.config.Name)
			return err
		}

		if attempt == r.config.MaxAttempts {
			break
		}

		delay := r.delay(attempt)
		r.logger.WithError(err).Warnf("[%s] attempt %d/%d failed, retrying in %v", r.config.Name, attempt, r.config.MaxAttempts, delay)

		if err := r.sleep(ctx, delay); err != nil {
			return err
		}
	}

	return fmt.Errorf("%s: giving up after %d attempts: %w", r.config.Name, r.config.MaxAttempts, lastErr)
}

// delay returns baseDelay * multiplier^(attempt-1), capped and jittered
func (r *Retryer) delay(attempt int) time.Duration {
	d := float64(r.config.BaseDelay) * math.Pow(r.config.Multiplier, float64(attempt-1))
	if d > float64(r.config.MaxDelay) {
		d = float64(r.config.MaxDelay)
	}

	if r.config.JitterRange > 0 {
		jitter := r.rng.Float64() * r.config.JitterRange * d
		if r.rng.Float64() < 0.5 {
			d -= jitter
		} else {
			d += jitter
		}
	}

	if d < float64(r.config.BaseDelay) {
		d = float64(r.config.BaseDelay)
	}
	return time.Duration(d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
