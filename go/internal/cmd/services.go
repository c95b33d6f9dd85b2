package main

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/pixelguess/go/internal/config"
	"github.com/mcdev12/pixelguess/go/internal/game/actors"
	"github.com/mcdev12/pixelguess/go/internal/gateway"
	"github.com/mcdev12/pixelguess/go/internal/results"
	"github.com/mcdev12/pixelguess/go/internal/round"
	"github.com/mcdev12/pixelguess/go/internal/session"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Registry  *actors.Registry
	Publisher results.Publisher
	Sessions  *session.Manager
	Gateway   *gateway.Service
}

func setupServices(ctx context.Context, cfg config.Config) (*Services, error) {
	// Wire up dependency injection chain
	// Registry → Publisher → Gateway (snapshot listener) → Session manager → Gateway handlers

	registry, err := cfg.Registry()
	if err != nil {
		return nil, fmt.Errorf("failed to load actors: %w", err)
	}

	publisher, err := setupPublisher(ctx, cfg)
	if err != nil {
		return nil, err
	}

	gatewayService := gateway.NewService(gateway.DefaultConfig(), registry)

	clock := clockwork.NewRealClock()
	sessionCfg := session.DefaultConfig()
	sessionCfg.Clock = clock
	sessionCfg.IdleTimeout = cfg.SessionIdleTimeout
	sessionCfg.ReapInterval = cfg.SessionReapInterval
	sessionCfg.RoundConfig = round.Config{
		TickInterval: cfg.TickInterval,
		Clock:        clock,
		Sizes:        round.NewSizeGenerator(nil),
	}
	sessions := session.NewManager(registry, publisher, gatewayService.ConnectionManager(), sessionCfg)

	gatewayService.SetSessions(sessions)

	return &Services{
		Registry:  registry,
		Publisher: publisher,
		Sessions:  sessions,
		Gateway:   gatewayService,
	}, nil
}

func setupPublisher(ctx context.Context, cfg config.Config) (results.Publisher, error) {
	if cfg.NATSURL == "" {
		log.Info().Msg("NATS_URL not set; round results go to the log")
		return results.NewLogPublisher(), nil
	}

	jsCfg := results.DefaultJetStreamConfig()
	jsCfg.URL = cfg.NATSURL
	jsCfg.StreamName = cfg.ResultsStream
	jsCfg.SubjectPrefix = cfg.ResultsSubjectPrefix

	publisher, err := results.NewJetStreamPublisher(ctx, jsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create results publisher: %w", err)
	}
	log.Info().
		Str("nats_url", cfg.NATSURL).
		Str("stream", cfg.ResultsStream).
		Msg("publishing round results to JetStream")
	return publisher, nil
}

// Close releases external connections.
func (s *Services) Close() {
	if err := s.Publisher.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close results publisher")
	}
}
