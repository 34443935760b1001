package llm

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// RetryPolicy describes the bounded backoff applied to generation calls.
// The zero value is not usable; construct with DefaultRetryPolicy or set all
// fields.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// BaseDelay is the wait before the second attempt; it doubles per attempt.
	BaseDelay time.Duration
	// MaxDelay caps each individual wait.
	MaxDelay time.Duration
}

// DefaultRetryPolicy returns the production policy: 4 attempts, waits of
// 2, 4, and 8 seconds, each wait capped at 20 seconds.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 4,
		BaseDelay:   2 * time.Second,
		MaxDelay:    20 * time.Second,
	}
}

// Backoff builds the backoff schedule for one invocation.
func (p RetryPolicy) Backoff() retry.Backoff {
	b := retry.NewExponential(p.BaseDelay)
	b = retry.WithCappedDuration(p.MaxDelay, b)
	b = retry.WithMaxRetries(uint64(p.MaxAttempts-1), b)
	return b
}

// Invoker wraps generation calls with the retry policy. Every error is
// retryable at this layer; classification of sentinel outputs happens in the
// stage that owns the call.
type Invoker struct {
	policy RetryPolicy
	log    *zap.Logger
}

// NewInvoker creates an Invoker with an explicit policy.
func NewInvoker(policy RetryPolicy, log *zap.Logger) *Invoker {
	return &Invoker{policy: policy, log: log.Named("invoker")}
}

// Generate issues req against client, retrying per the policy. The wait
// between attempts honors ctx cancellation and never busy-blocks.
func (inv *Invoker) Generate(ctx context.Context, client Client, req *GenerateRequest) (string, error) {
	var out string
	attempt := 0
	err := retry.Do(ctx, inv.policy.Backoff(), func(ctx context.Context) error {
		attempt++
		text, err := client.GenerateContent(ctx, req)
		if err != nil {
			inv.log.Warn("generation attempt failed",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", inv.policy.MaxAttempts),
				zap.Error(err))
			return retry.RetryableError(err)
		}
		out = text
		return nil
	})
	if err != nil {
		return "", err
	}
	return out, nil
}
