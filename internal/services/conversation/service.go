package conversation

import (
	"context"

	"github.com/formpilot/gateway/internal/config"
	"github.com/formpilot/gateway/internal/infrastructure/formapi"
	"github.com/formpilot/gateway/internal/infrastructure/redis"
	"github.com/rs/zerolog/log"
)

// Backend is the subset of the formapi conversations client the service drives
type Backend interface {
	Start(ctx context.Context, agentID string) (*formapi.StartResult, error)
	State(ctx context.Context, sessionID string) (*formapi.ConversationState, error)
	SendMessage(ctx context.Context, msg formapi.SendMessageRequest) (*formapi.MessageResult, error)
	SendMessageStream(ctx context.Context, msg formapi.SendMessageRequest, observe formapi.ChunkObserver) (*formapi.MessageResult, error)
}

type Service struct {
	backend Backend
	store   SnapshotStore
}

func NewService(backend Backend, redisService *redis.Service) *Service {
	var store SnapshotStore
	if redisService != nil {
		store = NewRedisStore(redisService, config.GetSnapshotTTL())
	} else {
		store = NewMemoryStore(config.GetSnapshotTTL())
	}
	return NewServiceWithStore(backend, store)
}

func NewServiceWithStore(backend Backend, store SnapshotStore) *Service {
	return &Service{backend: backend, store: store}
}

// Start opens a conversation for agentID and caches its first snapshot
func (s *Service) Start(ctx context.Context, agentID string) (*formapi.StartResult, error) {
	result, err := s.backend.Start(ctx, agentID)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, result.State)

	log.Info().
		Str("session_id", result.SessionID).
		Str("agent_id", agentID).
		Msg("Conversation started")
	return result, nil
}

// Send delivers one turn without streaming
func (s *Service) Send(ctx context.Context, msg formapi.SendMessageRequest) (*formapi.MessageResult, error) {
	result, err := s.backend.SendMessage(ctx, msg)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, result.State)
	return result, nil
}

// SendStream delivers one turn over the event stream, relaying chunks to observe
func (s *Service) SendStream(ctx context.Context, msg formapi.SendMessageRequest, observe formapi.ChunkObserver) (*formapi.MessageResult, error) {
	result, err := s.backend.SendMessageStream(ctx, msg, observe)
	if err != nil {
		log.Warn().
			Err(err).
			Str("session_id", msg.SessionID).
			Msg("Streaming message failed")
		return nil, err
	}
	s.remember(ctx, result.State)

	if result.State.IsFinished() {
		log.Info().
			Str("session_id", msg.SessionID).
			Str("status", string(result.State.Status)).
			Msg("Conversation finished")
	}
	return result, nil
}

// Snapshot returns the cached state for sessionID, asking the backend on a miss
func (s *Service) Snapshot(ctx context.Context, sessionID string) (*formapi.ConversationState, error) {
	cached, err := s.store.Load(ctx, sessionID)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("Snapshot cache read failed")
	}
	if cached != nil {
		return cached, nil
	}

	state, err := s.backend.State(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, *state)
	return state, nil
}

// Forget drops the cached snapshot for sessionID
func (s *Service) Forget(ctx context.Context, sessionID string) error {
	return s.store.Delete(ctx, sessionID)
}

func (s *Service) remember(ctx context.Context, state formapi.ConversationState) {
	if state.SessionID == "" {
		return
	}
	if err := s.store.Save(ctx, state); err != nil {
		log.Warn().Err(err).Str("session_id", state.SessionID).Msg("Failed to cache conversation snapshot")
	}
}
