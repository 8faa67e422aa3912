package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/auction-live/go/clients"
	"github.com/mcdev12/auction-live/go/internal/auction/channel"
	"github.com/mcdev12/auction-live/go/internal/auction/derive"
	"github.com/mcdev12/auction-live/go/internal/auction/engine"
	"github.com/mcdev12/auction-live/go/internal/auction/metrics"
	"github.com/mcdev12/auction-live/go/internal/auction/relay"
	"github.com/mcdev12/auction-live/go/internal/auction/store"
)

const loginTimeout = 10 * time.Second

type Services struct {
	Client    *clients.AuctionClient
	Channel   *channel.Channel
	Engine    *engine.Engine
	Registry  *prometheus.Registry
	Relay     *relay.Service
	Publisher relay.Publisher

	relayUnsubscribe func()
}

func setupServices(cfg *Config) *Services {
	// Wire up dependency injection chain
	// REST client + live channel → engine → relay
	clock := clockwork.NewRealClock()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewPrometheusMetrics(registry)

	client := clients.NewAuctionClient(cfg.Server.URL)
	ch := channel.New(cfg.ChannelConfig(), clock)

	eng := engine.New(client, ch,
		engine.WithClock(clock),
		engine.WithMetrics(collector),
		engine.WithAckTimeout(cfg.AckTimeout),
		engine.WithFetchTimeout(cfg.FetchTimeout),
	)

	services := &Services{
		Client:   client,
		Channel:  ch,
		Engine:   eng,
		Registry: registry,
	}

	if cfg.Relay.Enabled {
		services.setupRelay(cfg)
	}
	return services
}

func (s *Services) setupRelay(cfg *Config) {
	if cfg.NATS.URL != "" {
		publisher, err := relay.NewJetStreamPublisher(cfg.JetStreamConfig())
		if err != nil {
			// the relay still serves screens without downstream publishing
			log.Warn().Err(err).Str("nats_url", cfg.NATS.URL).Msg("JetStream unavailable, lot events will not be published")
		} else {
			s.Publisher = publisher
		}
	}

	relayCfg := relay.DefaultConfig()
	relayCfg.Addr = fmt.Sprintf(":%s", cfg.Relay.Port)

	s.Relay = relay.NewService(relayCfg, s.Engine, s.Publisher, s.Registry)
	s.relayUnsubscribe = s.Engine.Subscribe(engine.Listener{
		OnState: func(_ store.Mirror, f derive.Facts) { s.Relay.Observe(f) },
	})
}

// authenticate resolves the admin token, logging in with the password when
// no token is configured.
func (s *Services) authenticate(ctx context.Context, cfg *Config) error {
	token := cfg.Token
	if token == "" && cfg.Password != "" {
		loginCtx, cancel := context.WithTimeout(ctx, loginTimeout)
		defer cancel()

		var err error
		token, err = s.Client.Login(loginCtx, cfg.Password)
		if err != nil {
			return fmt.Errorf("admin login: %w", err)
		}
		log.Info().Msg("Admin login succeeded")
	}
	if token == "" {
		log.Warn().Msg("No admin token or password configured, admin commands will be rejected")
		return nil
	}
	return s.Engine.SetToken(token)
}

func (s *Services) Close() {
	if s.relayUnsubscribe != nil {
		s.relayUnsubscribe()
	}
	if s.Publisher != nil {
		if err := s.Publisher.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close publisher")
		}
	}
}
