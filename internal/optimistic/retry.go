// Package optimistic retries units of work that lost a compare-and-swap race.
package optimistic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GlebRadaev/marketledger/internal/config"
	"github.com/GlebRadaev/marketledger/internal/domain"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 5, BaseDelay: 10 * time.Millisecond}
}

func (p Policy) backoff() retry.Backoff {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	base := p.BaseDelay
	if base <= 0 {
		base = time.Millisecond
	}
	b := retry.NewExponential(base)
	b = retry.WithJitterPercent(20, b)
	return retry.WithMaxRetries(uint64(attempts-1), b)
}

// Retry runs fn until it succeeds, fails with anything other than a version
// conflict, or the policy runs out of attempts. Each call of fn must re-read
// the state it mutates.
func Retry(ctx context.Context, p Policy, op string, fn func(ctx context.Context) error) error {
	attempt := 0
	err := retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if errors.Is(err, domain.ErrConcurrencyConflict) {
			zap.L().Warn("optimistic conflict, retrying",
				zap.String("op", op), zap.Int("attempt", attempt), zap.Error(err))
			return retry.RetryableError(err)
		}
		return err
	})
	if errors.Is(err, domain.ErrConcurrencyConflict) {
		return fmt.Errorf("%s gave up after %d attempts: %w", op, attempt, err)
	}
	return err
}

// FromConfig reads the policy from cfg, falling back to DefaultPolicy when cfg is nil.
func FromConfig(cfg *config.Config) Policy {
	if cfg == nil {
		return DefaultPolicy()
	}
	return Policy{MaxAttempts: cfg.PaymentMaxAttempts, BaseDelay: cfg.RetryBaseDelay}
}
