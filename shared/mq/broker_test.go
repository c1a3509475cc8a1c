package mq

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unreachableURL points at a port that was just released, so dials are refused.
func unreachableURL(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return "amqp://guest:guest@" + addr + "/"
}

func TestNewUnreachable(t *testing.T) {
	b, err := New(context.Background(), unreachableURL(t),
		WithConnectAttempts(2), WithRetryInterval(time.Millisecond))

	require.Error(t, err)
	assert.Nil(t, b)
	assert.Contains(t, err.Error(), "rabbitmq connect after 2 attempts")
}

func TestPublishAfterClose(t *testing.T) {
	b := newBroker(unreachableURL(t))
	b.Close()

	err := b.Publish(context.Background(), "explain.complete", []byte(`{}`))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPublishRedialsWhenDisconnected(t *testing.T) {
	b := newBroker(unreachableURL(t), WithConnectAttempts(1), WithRetryInterval(time.Millisecond))

	err := b.Publish(context.Background(), "explain.complete", []byte(`{}`))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrClosed)
	assert.Contains(t, err.Error(), "rabbitmq connect after 1 attempts")
}

func TestOptions(t *testing.T) {
	b := newBroker("amqp://x/")
	assert.Equal(t, uint(5), b.attempts)
	assert.Equal(t, time.Second, b.interval)

	b = newBroker("amqp://x/", WithConnectAttempts(9), WithRetryInterval(time.Minute))
	assert.Equal(t, uint(9), b.attempts)
	assert.Equal(t, time.Minute, b.interval)
}
