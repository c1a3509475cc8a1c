package internal

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/forge-ai/explainer/shared/mq"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Server wires the explainer to its HTTP API, WebSocket hub and session
// janitor.
type Server struct {
	cfg       Config
	explainer *Explainer
	sessions  *Sessions
	hub       *Hub
	metrics   *Metrics
	broker    *mq.Broker
}

// NewServer builds the service. ctx bounds the initial broker connect.
func NewServer(ctx context.Context, cfg Config) (*Server, error) {
	client := &http.Client{Timeout: cfg.HTTPTimeout}
	policy := RetryPolicy{MaxTries: uint(cfg.RetryMax), Initial: cfg.RetryBackoff}

	s := &Server{
		cfg:      cfg,
		sessions: NewSessions(cfg.SessionTTL),
		hub:      NewHub(),
		metrics:  NewMetrics(),
	}

	opts := []Option{WithNotifier(s.hub), WithMetrics(s.metrics)}
	if cfg.AMQPURL != "" {
		broker, err := mq.New(ctx, cfg.AMQPURL)
		if err != nil {
			return nil, fmt.Errorf("mq connect: %w", err)
		}
		s.broker = broker
		opts = append(opts, WithPublisher(broker))
	}

	s.explainer = NewExplainer(cfg,
		NewIAMClient(cfg.IAMURL, client, policy),
		NewWatsonxClient(cfg.WatsonxURL, client, policy),
		opts...)
	return s, nil
}

func (s *Server) Close() {
	if s.broker != nil {
		s.broker.Close()
	}
}

// Run starts the hub, the session janitor and the API server.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.hub.Run(ctx) })

	g.Go(func() error {
		return s.sessions.RunJanitor(ctx, janitorInterval(s.cfg.SessionTTL), func(id string) {
			s.explainer.EndSession(ctx, id, "expired")
		})
	})

	g.Go(func() error { return s.serveAPI(ctx) })

	return g.Wait()
}

func (s *Server) serveAPI(ctx context.Context) error {
	srv := &http.Server{
		Addr:        ":" + s.cfg.APIPort,
		Handler:     s.Handler(),
		ReadTimeout: 15 * time.Second,
		// Long enough for a token exchange plus a full generation with retries.
		WriteTimeout: s.cfg.HTTPTimeout*time.Duration(max(s.cfg.RetryMax, 1))*2 + 15*time.Second,
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()

	log.Info().Str("port", s.cfg.APIPort).Msg("API listening")
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func janitorInterval(ttl time.Duration) time.Duration {
	return min(max(ttl/4, time.Second), time.Minute)
}
