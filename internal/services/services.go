package services

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/formpilot/gateway/internal/config"
	"github.com/formpilot/gateway/internal/connections"
	"github.com/formpilot/gateway/internal/infrastructure/formapi"
	"github.com/formpilot/gateway/internal/infrastructure/redis"
	"github.com/formpilot/gateway/internal/services/conversation"
	"github.com/formpilot/gateway/internal/services/session"
	"github.com/rs/zerolog/log"
)

var (
	// Mutex for thread-safe initialization
	servicesMu sync.RWMutex
)

type Services struct {
	formAPIClient       *formapi.Client
	redisService        *redis.Service
	conversationService *conversation.Service
	sessionService      *session.Service
	connectionManager   *connections.Manager
}

// InitializeServices initializes all required services
func InitializeServices() (*Services, error) {
	servicesMu.Lock()
	defer servicesMu.Unlock()

	log.Info().Msg("Initializing core services")

	// Initialize Redis service (optional)
	redisService := redis.NewService()
	if redisService == nil {
		log.Info().Msg("Redis unavailable - using in-memory stores")
	}

	// Initialize backend client (required)
	client, err := formapi.NewClient(formapi.Config{
		BaseURL:          config.GetFormAPIURL(),
		Token:            config.GetFormAPIToken(),
		HTTPClient:       &http.Client{Timeout: config.GetFormAPITimeout()},
		StreamHTTPClient: &http.Client{Timeout: config.GetStreamTimeout()},
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize backend client - required for conversations")
		return nil, fmt.Errorf("failed to initialize backend client: %w", err)
	}
	log.Info().Str("base_url", config.GetFormAPIURL()).Msg("Initializing backend client")

	conversationService := conversation.NewService(client.Conversations, redisService)
	log.Info().Msg("Initializing conversation service")

	sessionService := session.NewService(redisService)
	log.Info().Msg("Initializing session service")

	log.Info().Msg("All services initialized successfully")

	return &Services{
		formAPIClient:       client,
		redisService:        redisService,
		conversationService: conversationService,
		sessionService:      sessionService,
		connectionManager:   connections.NewManager(connections.DefaultTimeouts),
	}, nil
}

// New assembles Services from already built parts
func New(client *formapi.Client, conversationService *conversation.Service, sessionService *session.Service, manager *connections.Manager) *Services {
	return &Services{
		formAPIClient:       client,
		conversationService: conversationService,
		sessionService:      sessionService,
		connectionManager:   manager,
	}
}

// GetFormAPIClient returns the backend client authenticated with the service token
func (s *Services) GetFormAPIClient() *formapi.Client {
	return s.formAPIClient
}

func (s *Services) GetConversationService() *conversation.Service {
	return s.conversationService
}

func (s *Services) GetSessionService() *session.Service {
	return s.sessionService
}

func (s *Services) GetConnectionManager() *connections.Manager {
	return s.connectionManager
}

// Close releases connections held by the services
func (s *Services) Close() {
	if s.connectionManager != nil {
		s.connectionManager.CloseAll()
	}
	if s.redisService != nil {
		if err := s.redisService.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close Redis connection")
		}
	}
}
