package invoke

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

type RetryConfig struct {
	MaxAttempts        int
	InitialDelay       time.Duration
	MaxDelay           time.Duration
	TransientExitCodes []int
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
	}
}

// Retrier wraps an Invoker with exponential backoff. Timeouts and configured
// transient exit codes are retried; a missing binary never is.
type Retrier struct {
	inner   Invoker
	cfg     RetryConfig
	log     *zap.Logger
	retries atomic.Int64
}

func NewRetrier(inner Invoker, cfg RetryConfig, log *zap.Logger) *Retrier {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Retrier{inner: inner, cfg: cfg, log: log}
}

// Retries reports how many retry attempts have happened since construction.
func (r *Retrier) Retries() int64 {
	return r.retries.Load()
}

func (r *Retrier) Run(ctx context.Context, spec Spec) (Result, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.cfg.InitialDelay
	policy.MaxInterval = r.cfg.MaxDelay
	policy.MaxElapsedTime = 0

	wrapped := backoff.WithContext(
		backoff.WithMaxRetries(policy, uint64(r.cfg.MaxAttempts-1)), ctx)

	attempts := 0
	operation := func() (Result, error) {
		attempts++
		res, err := r.inner.Run(ctx, spec)
		if err != nil {
			if errors.Is(err, ErrCommandNotFound) || errors.Is(err, ErrInputTooLarge) {
				return res, backoff.Permanent(err)
			}
			if errors.Is(err, ErrTimeout) {
				return res, err
			}
			if r.transient(res.ExitCode) {
				return res, err
			}
			return res, backoff.Permanent(err)
		}
		return res, nil
	}

	notify := func(err error, wait time.Duration) {
		r.retries.Add(1)
		r.log.Warn("retrying agent command",
			zap.String("command", spec.Argv[0]),
			zap.Duration("wait", wait),
			zap.Error(err))
	}

	res, err := backoff.RetryNotifyWithData(operation, wrapped, notify)
	if err != nil {
		return res, fmt.Errorf("after %d attempts: %w", attempts, err)
	}
	return res, nil
}

func (r *Retrier) transient(code int) bool {
	for _, c := range r.cfg.TransientExitCodes {
		if c == code {
			return true
		}
	}
	return false
}
