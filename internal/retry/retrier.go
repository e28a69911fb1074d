// Package retry re-runs an action under a pluggable backoff strategy. The
// storage layer uses it to replay transactions that lost a lock conflict.
package retry

import (
	"context"
	"log"
	"math/rand"
	"time"
)

// Decision tells the retrier whether to stop, and otherwise how long to wait.
type Decision struct {
	TimeToWait  time.Duration
	ReturnError bool
}

// HandlingStrategy decides what to do after each failed attempt. A
// strategy is stateful and must not be shared between concurrent retriers.
type HandlingStrategy interface {
	HandleError(err error) Decision
	HandleSuccess()
}

type Retrier[T any] struct {
	strategy  HandlingStrategy
	retryable func(error) bool
}

// NewRetrier returns a Retrier that only retries errors accepted by
// retryable. A nil retryable retries every error.
func NewRetrier[T any](strategy HandlingStrategy, retryable func(error) bool) *Retrier[T] {
	if retryable == nil {
		retryable = func(error) bool { return true }
	}
	return &Retrier[T]{strategy: strategy, retryable: retryable}
}

// NewExponentialRetrierFactory builds a fresh Retrier per call site so
// strategies are never shared across goroutines.
func NewExponentialRetrierFactory[T any](maximumRetries int, initialDelay time.Duration, jitterPercentage float64, maxDelay time.Duration, retryable func(error) bool) func() *Retrier[T] {
	return func() *Retrier[T] {
		return NewRetrier[T](NewExponentialBackoffStrategy(maximumRetries, initialDelay, jitterPercentage, maxDelay), retryable)
	}
}

// DoWithReturn runs action until it succeeds, the error is not retryable,
// the strategy gives up, or ctx ends. The last error is returned.
func (r *Retrier[T]) DoWithReturn(ctx context.Context, action func() (T, error)) (T, error) {
	var zero T
	for {
		result, err := action()
		if err == nil {
			r.strategy.HandleSuccess()
			return result, nil
		}
		if !r.retryable(err) {
			return zero, err
		}
		decision := r.strategy.HandleError(err)
		if decision.ReturnError {
			return zero, err
		}
		log.Printf("retry: %v; waiting %v", err, decision.TimeToWait)
		timer := time.NewTimer(decision.TimeToWait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, err
		case <-timer.C:
		}
	}
}

// Do is DoWithReturn for actions without a result.
func (r *Retrier[T]) Do(ctx context.Context, action func() error) error {
	_, err := r.DoWithReturn(ctx, func() (T, error) {
		var zero T
		return zero, action()
	})
	return err
}

// ExponentialBackoffStrategy doubles the delay after every failure up to
// maxDelay. maximumRetries of -1 retries forever. Not safe for concurrent use.
type ExponentialBackoffStrategy struct {
	maximumRetries   int
	initialDelay     time.Duration
	maxDelay         time.Duration
	jitterPercentage float64

	currentRetryNumber int
	nextDelay          time.Duration
	rndGenerator       *rand.Rand
}

func NewExponentialBackoffStrategy(maximumRetries int, initialDelay time.Duration, jitterPercentage float64, maxDelay time.Duration) *ExponentialBackoffStrategy {
	return &ExponentialBackoffStrategy{
		maximumRetries:   maximumRetries,
		initialDelay:     initialDelay,
		maxDelay:         maxDelay,
		jitterPercentage: jitterPercentage,
		nextDelay:        initialDelay,
		rndGenerator:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (ebs *ExponentialBackoffStrategy) HandleError(err error) Decision {
	if ebs.maximumRetries != -1 && ebs.currentRetryNumber >= ebs.maximumRetries {
		return Decision{ReturnError: true}
	}
	ebs.currentRetryNumber++
	currentDelay := ebs.nextDelay
	nextBaseDelay := ebs.nextDelay * 2
	if nextBaseDelay > ebs.maxDelay {
		nextBaseDelay = ebs.maxDelay
	}
	ebs.nextDelay = ebs.modifyWithJitter(nextBaseDelay)
	return Decision{TimeToWait: currentDelay}
}

func (ebs *ExponentialBackoffStrategy) HandleSuccess() {
	ebs.currentRetryNumber = 0
	ebs.nextDelay = ebs.initialDelay
}

func (ebs *ExponentialBackoffStrategy) modifyWithJitter(d time.Duration) time.Duration {
	maxJitter := int64(float64(d) * ebs.jitterPercentage)
	if maxJitter <= 0 {
		return d
	}
	jitter := ebs.rndGenerator.Int63n(maxJitter) - maxJitter/2
	return d + time.Duration(jitter)
}

// NopRetryStrategy never retries.
type NopRetryStrategy struct{}

func (NopRetryStrategy) HandleError(error) Decision { return Decision{ReturnError: true} }

func (NopRetryStrategy) HandleSuccess() {}
