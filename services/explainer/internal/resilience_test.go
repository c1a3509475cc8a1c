package internal

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransient(t *testing.T) {
	netErr := fmt.Errorf("watsonx request: %w", &url.Error{Op: "Post", URL: "http://x", Err: errors.New("connection refused")})

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"Nil", nil, false},
		{"Network", netErr, true},
		{"Canceled", &url.Error{Op: "Post", URL: "http://x", Err: context.Canceled}, false},
		{"Auth", &AuthError{Status: 401, Body: "nope"}, false},
		{"BadGateway", &GenerationError{Status: 502}, true},
		{"Unavailable", &GenerationError{Status: 503}, true},
		{"GatewayTimeout", &GenerationError{Status: 504}, true},
		{"ServerError", &GenerationError{Status: 500}, false},
		{"BadRequest", &GenerationError{Status: 400}, false},
		{"Decode", errors.New("decode: unexpected end of JSON input"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, transient(tt.err))
		})
	}
}

func TestRetryStopsOnPermanent(t *testing.T) {
	calls := 0
	_, err := retry(context.Background(), "test", fastRetry, func() (string, error) {
		calls++
		return "", &AuthError{Status: 401, Body: "nope"}
	})

	assert.ErrorIs(t, err, ErrAuthenticationFailed)
	assert.Equal(t, 1, calls)
}

func TestRetryRecovers(t *testing.T) {
	calls := 0
	v, err := retry(context.Background(), "test", fastRetry, func() (string, error) {
		calls++
		if calls < 3 {
			return "", &GenerationError{Status: 503}
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 3, calls)
}

func TestRetryZeroPolicyTriesOnce(t *testing.T) {
	calls := 0
	_, err := retry(context.Background(), "test", RetryPolicy{}, func() (int, error) {
		calls++
		return 0, &GenerationError{Status: 503}
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestBreakerOpensOnTransientFailures(t *testing.T) {
	cb := newBreaker("test")
	for i := 0; i < 5; i++ {
		_, _ = guarded(cb, func() (string, error) {
			return "", &GenerationError{Status: 503}
		})
	}
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	calls := 0
	_, err := guarded(cb, func() (string, error) {
		calls++
		return "never", nil
	})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 0, calls)
	assert.False(t, transient(err))
}

func TestBreakerIgnoresClientErrors(t *testing.T) {
	cb := newBreaker("test")
	for i := 0; i < 10; i++ {
		_, err := guarded(cb, func() (string, error) {
			return "", &GenerationError{Status: 400, Body: "bad model"}
		})
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())

	v, err := guarded(cb, func() (string, error) { return "fine", nil })
	require.NoError(t, err)
	assert.Equal(t, "fine", v)
}
