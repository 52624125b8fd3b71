package optimistic

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/GlebRadaev/marketledger/internal/config"
	"github.com/GlebRadaev/marketledger/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestRetry(t *testing.T) {
	policy := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}
	conflict := fmt.Errorf("account 1: %w", domain.ErrConcurrencyConflict)

	tests := []struct {
		name      string
		failures  []error
		wantCalls int
		wantErr   error
		wantMsg   string
	}{
		{
			name:      "Success on first attempt",
			failures:  nil,
			wantCalls: 1,
		},
		{
			name:      "Conflict then success",
			failures:  []error{conflict, conflict},
			wantCalls: 3,
		},
		{
			name:      "Conflicts exhaust attempts",
			failures:  []error{conflict, conflict, conflict, conflict},
			wantCalls: 3,
			wantErr:   domain.ErrConcurrencyConflict,
			wantMsg:   "deposit gave up after 3 attempts",
		},
		{
			name:      "Business error is not retried",
			failures:  []error{domain.ErrInsufficientBalance},
			wantCalls: 1,
			wantErr:   domain.ErrInsufficientBalance,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(context.Background(), policy, "deposit", func(ctx context.Context) error {
				calls++
				if calls <= len(tt.failures) {
					return tt.failures[calls-1]
				}
				return nil
			})

			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestRetry_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, Policy{MaxAttempts: 5, BaseDelay: 50 * time.Millisecond}, "ship", func(ctx context.Context) error {
		calls++
		cancel()
		return domain.ErrConcurrencyConflict
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, errors.Is(err, context.Canceled) || errors.Is(err, domain.ErrConcurrencyConflict))
}

func TestPolicy_ZeroValueRunsOnce(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), Policy{}, "cancel", func(ctx context.Context) error {
		calls++
		return domain.ErrConcurrencyConflict
	})

	assert.ErrorIs(t, err, domain.ErrConcurrencyConflict)
	assert.Equal(t, 1, calls)
}

func TestFromConfig(t *testing.T) {
	p := FromConfig(&config.Config{PaymentMaxAttempts: 4, RetryBaseDelay: 20 * time.Millisecond})
	assert.Equal(t, Policy{MaxAttempts: 4, BaseDelay: 20 * time.Millisecond}, p)
}

func TestFromConfig_Nil(t *testing.T) {
	assert.Equal(t, DefaultPolicy(), FromConfig(nil))
	assert.Equal(t, 5, FromConfig(nil).MaxAttempts)
}
