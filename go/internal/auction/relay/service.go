package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mcdev12/auction-live/go/internal/auction/derive"
)

const shutdownTimeout = 5 * time.Second

type Config struct {
	Addr             string
	ConnectionConfig ConnectionConfig
}

func DefaultConfig() Config {
	return Config{
		Addr:             ":8090",
		ConnectionConfig: DefaultConnectionConfig(),
	}
}

// Service re-serves the mirrored auction to screens on the local network.
type Service struct {
	config            Config
	connectionManager *ConnectionManager
	stateHandler      *StateHandler
	stateProvider     StateProvider
	watcher           *LotWatcher
	gatherer          prometheus.Gatherer
}

// NewService builds the relay. publisher may be nil to skip downstream
// publishing, and gatherer may be nil to skip /metrics.
func NewService(config Config, provider StateProvider, publisher Publisher, gatherer prometheus.Gatherer) *Service {
	s := &Service{
		config:            config,
		connectionManager: NewConnectionManager(config.ConnectionConfig),
		stateHandler:      NewStateHandler(provider),
		stateProvider:     provider,
		gatherer:          gatherer,
	}
	if publisher != nil {
		s.watcher = NewLotWatcher(publisher)
	}
	return s
}

// Observe pushes new facts to screens and downstream. It never blocks.
func (s *Service) Observe(f derive.Facts) {
	s.connectionManager.BroadcastView(f)
	if s.watcher != nil {
		s.watcher.Observe(f)
	}
}

// Handler returns the relay's routes wrapped with CORS and h2c.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	c := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodHead, http.MethodGet},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	return h2c.NewHandler(c.Handler(mux), &http2.Server{})
}

func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.stateHandler.RegisterStateRoutes(mux)
	mux.HandleFunc("/ws/display", s.HandleDisplayConnection)
	mux.HandleFunc("/health", s.HandleHealth)
	if s.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
}

func (s *Service) HandleDisplayConnection(w http.ResponseWriter, r *http.Request) {
	if err := s.connectionManager.UpgradeConnection(w, r); err != nil {
		// the upgrader has already answered the request
		log.Error().Err(err).Str("remote_addr", r.RemoteAddr).Msg("Failed to upgrade display connection")
	}
}

func (s *Service) HandleHealth(w http.ResponseWriter, r *http.Request) {
	mirror, _ := s.stateProvider.Current()
	writeJSON(w, map[string]interface{}{
		"status":      "ok",
		"synced":      mirror.Synced,
		"has_state":   mirror.Doc != nil,
		"connections": s.connectionManager.ConnectionCount(),
	})
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Service) Start(ctx context.Context) error {
	go s.connectionManager.Start(ctx)
	if s.watcher != nil {
		go s.watcher.Start(ctx)
	}

	server := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.config.Addr).Msg("Relay listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("relay server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("relay shutdown: %w", err)
	}
	log.Info().Msg("Relay stopped")
	return nil
}
