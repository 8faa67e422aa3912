package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/auction-live/go/internal/auction/derive"
	"github.com/mcdev12/auction-live/go/internal/auction/feedback"
	"github.com/mcdev12/auction-live/go/internal/auction/views"
	"github.com/mcdev12/auction-live/go/internal/models"
)

func main() {
	configPath := flag.String("config", getEnv("AUCTION_CONFIG", "auction.yaml"), "path to YAML config")
	roleFlag := flag.String("role", "", "admin, bidder or display (overrides config)")
	teamFlag := flag.String("team", "", "team id for the bidder role")
	relayFlag := flag.Bool("relay", false, "serve the display relay")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("Failed to load config")
	}
	if *roleFlag != "" {
		cfg.Role = *roleFlag
	}
	if *teamFlag != "" {
		cfg.TeamID = *teamFlag
	}
	if *relayFlag {
		cfg.Relay.Enabled = true
	}
	zerolog.SetGlobalLevel(cfg.Level())

	role, err := ParseRole(cfg.Role)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid role")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services := setupServices(cfg)
	defer services.Close()

	services.Engine.Start(ctx)
	defer services.Engine.Stop()

	log.Info().
		Str("role", string(role)).
		Str("server", cfg.Server.URL).
		Str("ws", cfg.WebSocketURL()).
		Msg("Auction client started")

	if role == RoleAdmin {
		if err := services.authenticate(ctx, cfg); err != nil {
			log.Error().Err(err).Msg("Admin authentication failed")
		}
	}

	if services.Relay != nil {
		go func() {
			if err := services.Relay.Start(ctx); err != nil {
				log.Error().Err(err).Msg("Relay server stopped")
				stop()
			}
		}()
	}

	opts := []views.Option{}
	if role == RoleAdmin {
		opts = append(opts, views.WithSink(feedback.NewConsoleSink(os.Stdout)))
	}
	console := newConsole(role, services.Engine, os.Stdout, opts...)
	console.Mount()
	defer console.Unmount()

	if role == RoleBidder && cfg.TeamID != "" {
		if err := console.bidder.SelectTeam(models.ID(cfg.TeamID)); err != nil {
			// the startup snapshot may already be in and lack this team
			log.Warn().Err(err).Str("team_id", cfg.TeamID).Msg("Team not selected, use the team command")
		}
	}

	if role == RoleDisplay {
		logDisplay(ctx, services.Engine)
	} else {
		go console.run(ctx, os.Stdin)
	}

	<-ctx.Done()
	log.Info().Msg("Shutting down")
}

// logDisplay writes each overlay change to the log until ctx ends.
func logDisplay(ctx context.Context, source views.Source) {
	var last derive.Overlay
	updates := make(chan derive.Facts, 16)
	display := views.NewDisplayView(source, views.WithHooks(views.Hooks{
		OnFacts: func(f derive.Facts) {
			select {
			case updates <- f:
			default:
			}
		},
	}))
	display.Mount()

	go func() {
		defer display.Unmount()
		for {
			select {
			case <-ctx.Done():
				return
			case f := <-updates:
				if f.DisplayOverlay.Kind == last.Kind && f.DisplayOverlay.PlayerName == last.PlayerName {
					continue
				}
				last = f.DisplayOverlay
				log.Info().
					Str("overlay", string(last.Kind)).
					Str("phase", string(f.Phase)).
					Int("bid", f.CurrentBid).
					Msg("Display overlay changed")
			}
		}
	}()
}
