// explainer serves the code explanation API.
//
//	POST /api/sessions/{id}/explain
//	  → IAM  (API key → bearer token, fetched fresh every call)
//	  → watsonx.ai text generation (greedy, 1000 tokens)
//	  ← generated explanation, appended to the session's history
//
// Completed explanations are also pushed to browsers attached to the session
// over WebSocket and, when AMQP_URL is set, published to RabbitMQ.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/forge-ai/explainer/services/explainer/internal"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "1" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	_ = godotenv.Load()

	cfg := internal.ConfigFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info().Msg("shutdown signal — stopping explainer")
		cancel()
	}()

	srv, err := internal.NewServer(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start explainer")
	}
	defer srv.Close()

	if cfg.APIKey != "" && cfg.ProjectID != "" {
		log.Info().Msg("credentials loaded from environment")
	} else {
		log.Warn().Msg("IBM_API_KEY / IBM_PROJECT_ID not set — callers must supply credentials per request")
	}
	log.Info().
		Str("region", cfg.Region).
		Str("model", cfg.Model).
		Str("api_port", cfg.APIPort).
		Bool("amqp", cfg.AMQPURL != "").
		Msg("explainer online")

	if err := srv.Run(ctx); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("explainer exited")
	}
}
