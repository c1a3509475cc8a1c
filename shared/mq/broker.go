// Package mq publishes explanation events to a RabbitMQ topic exchange so
// downstream consumers can bind to patterns such as "explain.*".
//
// A lost connection is noticed through NotifyClose and redialled on the next
// Publish.
package mq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

const (
	Exchange     = "explainer.events"
	ExchangeType = "topic"
)

// ErrClosed is returned by Publish once Close has been called.
var ErrClosed = errors.New("mq: broker closed")

type Option func(*Broker)

// WithConnectAttempts bounds how many dials one connect makes. Default 5.
func WithConnectAttempts(n uint) Option { return func(b *Broker) { b.attempts = n } }

// WithRetryInterval sets the first wait between dials. Default 1s.
func WithRetryInterval(d time.Duration) Option { return func(b *Broker) { b.interval = d } }

// Broker owns one AMQP connection and channel.
type Broker struct {
	url      string
	attempts uint
	interval time.Duration

	mu     sync.Mutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed bool
}

func newBroker(amqpURL string, opts ...Option) *Broker {
	b := &Broker{url: amqpURL, attempts: 5, interval: time.Second}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// New connects to RabbitMQ and declares the exchange.
func New(ctx context.Context, amqpURL string, opts ...Option) (*Broker, error) {
	b := newBroker(amqpURL, opts...)
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.connect(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// connect dials with exponential backoff and declares the exchange. b.mu must
// be held.
func (b *Broker) connect(ctx context.Context) error {
	if b.conn != nil {
		b.conn.Close()
		b.conn, b.ch = nil, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = b.interval
	attempt := 0
	conn, err := backoff.Retry(ctx, func() (*amqp.Connection, error) {
		attempt++
		return amqp.Dial(b.url)
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(b.attempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", next).Msg("RabbitMQ connection failed — retrying")
		}),
	)
	if err != nil {
		return fmt.Errorf("rabbitmq connect after %d attempts: %w", attempt, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		Exchange,
		ExchangeType,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}

	b.conn, b.ch = conn, ch
	go b.watch(conn, conn.NotifyClose(make(chan *amqp.Error, 1)))
	return nil
}

// watch drops the connection when the server closes it. A graceful Close
// closes the notify channel without an error.
func (b *Broker) watch(conn *amqp.Connection, closes <-chan *amqp.Error) {
	amqpErr, ok := <-closes
	if !ok || amqpErr == nil {
		return
	}
	b.mu.Lock()
	if b.conn == conn {
		b.conn, b.ch = nil, nil
	}
	b.mu.Unlock()
	log.Warn().Err(amqpErr).Msg("RabbitMQ connection lost — redialling on next publish")
}

// Publish sends a message to the topic exchange with the given routing key,
// reconnecting first if the connection was lost.
func (b *Broker) Publish(ctx context.Context, routingKey string, body []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	if b.ch == nil || b.ch.IsClosed() {
		if err := b.connect(ctx); err != nil {
			return err
		}
	}

	return b.ch.PublishWithContext(ctx,
		Exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// Close shuts down channel and connection. Later publishes fail with ErrClosed.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	if b.ch != nil {
		b.ch.Close()
	}
	if b.conn != nil {
		b.conn.Close()
	}
	b.conn, b.ch = nil, nil
}
