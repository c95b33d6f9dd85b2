package gateway

import (
	"context"
	"net/http"

	"github.com/mcdev12/pixelguess/go/internal/game/actors"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

// Service is the game gateway: WebSocket connections, REST routes and snapshot broadcasting
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	stateHandler      *StateHandler
	config            Config
}

// Config holds configuration for the gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
	AllowedOrigins   []string
}

// DefaultConfig returns default configuration for the gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		AllowedOrigins:   []string{"*"},
	}
}

// NewService creates the gateway. The returned ConnectionManager must be
// handed to the session manager as its snapshot listener before sessions are
// created; SetSessions completes the wiring.
func NewService(config Config, registry *actors.Registry) *Service {
	return &Service{
		connectionManager: NewConnectionManager(config.ConnectionConfig, registry),
		stateHandler:      &StateHandler{registry: registry},
		config:            config,
	}
}

// ConnectionManager returns the snapshot listener sessions publish to.
func (s *Service) ConnectionManager() *ConnectionManager {
	return s.connectionManager
}

// SetSessions attaches the session manager the handlers operate on.
func (s *Service) SetSessions(sessions Sessions) {
	s.wsHandler = NewWebSocketHandler(s.connectionManager, sessions)
	s.stateHandler.sessions = sessions
}

// Start runs the broadcaster until ctx is cancelled
func (s *Service) Start(ctx context.Context) {
	log.Info().Msg("starting game gateway service")
	s.connectionManager.Start(ctx)
	log.Info().Msg("game gateway service stopped")
}

// RegisterRoutes registers the WebSocket and REST routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.stateHandler.RegisterStateRoutes(mux)
	setupHealthCheck(mux)
	log.Info().Msg("game gateway routes registered")
}

// Handler returns the gateway routes wrapped with CORS
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodDelete,
		},
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(mux)
}

func setupHealthCheck(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}
