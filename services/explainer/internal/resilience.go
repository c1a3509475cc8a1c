package internal

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// RetryPolicy bounds how often a transient failure is retried.
type RetryPolicy struct {
	MaxTries uint
	Initial  time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxTries == 0 {
		p.MaxTries = 1
	}
	if p.Initial <= 0 {
		p.Initial = 500 * time.Millisecond
	}
	return p
}

// transient reports whether err is worth another attempt: transport-level
// failures and gateway-style statuses. Authentication failures never are.
func transient(err error) bool {
	if err == nil || errors.Is(err, ErrAuthenticationFailed) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge.Transient()
	}
	var ue *url.Error
	return errors.As(err, &ue)
}

// retry runs op until it succeeds, fails permanently, or the policy gives up.
// Errors from op are returned as they are, so errors.As still finds the typed cause.
func retry[T any](ctx context.Context, name string, p RetryPolicy, op func() (T, error)) (T, error) {
	p = p.withDefaults()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Initial
	b.MaxInterval = 10 * p.Initial

	attempt := 0
	return backoff.Retry(ctx, func() (T, error) {
		attempt++
		v, err := op()
		if err != nil && !transient(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(p.MaxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn().Err(err).
				Str("call", name).
				Int("attempt", attempt).
				Dur("retry_in", next).
				Msg("transient failure — retrying")
		}),
	)
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.Requests >= 5 && float64(c.TotalFailures)/float64(c.Requests) >= 0.6
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !transient(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info().
				Str("circuit_breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})
}

func guarded[T any](cb *gobreaker.CircuitBreaker, op func() (T, error)) (T, error) {
	v, err := cb.Execute(func() (interface{}, error) {
		return op()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
