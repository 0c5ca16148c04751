package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/formpilot/gateway/internal/config"
	"github.com/formpilot/gateway/internal/infrastructure/redis"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrNoSession is returned when a request carries no usable visitor session
var ErrNoSession = errors.New("no visitor session")

// SessionClaims bind a widget visitor to one conversation
type SessionClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
	AgentID   string `json:"aid"`
}

type SessionStore interface {
	Set(ctx context.Context, visitorID string, claims *SessionClaims) error
	// Get returns nil, nil for unknown visitors
	Get(ctx context.Context, visitorID string) (*SessionClaims, error)
	Delete(ctx context.Context, visitorID string) error
}

type RedisStore struct {
	redisService *redis.Service
	lifetime     time.Duration
}

type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*SessionClaims
}

type Service struct {
	store    SessionStore
	lifetime time.Duration
}

func NewService(redisService *redis.Service) *Service {
	lifetime := config.GetSessionLifetime()

	var store SessionStore
	if redisService != nil {
		store = &RedisStore{redisService: redisService, lifetime: lifetime}
	} else {
		store = NewMemoryStore()
	}

	return &Service{store: store, lifetime: lifetime}
}

func NewServiceWithStore(store SessionStore, lifetime time.Duration) *Service {
	return &Service{store: store, lifetime: lifetime}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*SessionClaims),
	}
}

func visitorKey(visitorID string) string {
	return "visitor:" + visitorID
}

// Redis Store implementation
func (rs *RedisStore) Set(ctx context.Context, visitorID string, claims *SessionClaims) error {
	return rs.redisService.SetJSON(ctx, visitorKey(visitorID), claims, rs.lifetime)
}

func (rs *RedisStore) Get(ctx context.Context, visitorID string) (*SessionClaims, error) {
	var claims SessionClaims
	if err := rs.redisService.GetJSON(ctx, visitorKey(visitorID), &claims); err != nil {
		if errors.Is(err, redis.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &claims, nil
}

func (rs *RedisStore) Delete(ctx context.Context, visitorID string) error {
	return rs.redisService.Delete(ctx, visitorKey(visitorID))
}

// Memory Store implementation
func (ms *MemoryStore) Set(_ context.Context, visitorID string, claims *SessionClaims) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.sessions[visitorID] = claims
	return nil
}

func (ms *MemoryStore) Get(_ context.Context, visitorID string) (*SessionClaims, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	claims, exists := ms.sessions[visitorID]
	if !exists {
		return nil, nil
	}
	return claims, nil
}

func (ms *MemoryStore) Delete(_ context.Context, visitorID string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.sessions, visitorID)
	return nil
}

// CreateSession binds the visitor to a conversation and sets the signed cookie
func (s *Service) CreateSession(ctx context.Context, w http.ResponseWriter, sessionID, agentID string) (*SessionClaims, error) {
	now := time.Now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
		SessionID: sessionID,
		AgentID:   agentID,
	}

	if err := s.store.Set(ctx, claims.ID, claims); err != nil {
		return nil, fmt.Errorf("failed to store visitor session: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(config.GetJWTSecret())
	if err != nil {
		return nil, fmt.Errorf("failed to sign visitor session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     config.GetSessionCookieName(),
		Value:    signedToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
		Expires:  now.Add(s.lifetime),
	})

	log.Debug().
		Str("session_id", sessionID).
		Str("agent_id", agentID).
		Msg("Visitor session created")
	return claims, nil
}

// ValidateSession returns the claims of the request's visitor cookie, or
// ErrNoSession when it is missing, invalid, expired or revoked
func (s *Service) ValidateSession(r *http.Request) (*SessionClaims, error) {
	claims, err := s.parseCookie(r)
	if err != nil {
		return nil, err
	}

	stored, err := s.store.Get(r.Context(), claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load visitor session: %w", err)
	}
	if stored == nil || stored.SessionID != claims.SessionID {
		return nil, ErrNoSession
	}
	return claims, nil
}

// ClearSession removes the visitor from storage and expires the cookie
func (s *Service) ClearSession(w http.ResponseWriter, r *http.Request) {
	if claims, err := s.parseCookie(r); err == nil {
		_ = s.store.Delete(r.Context(), claims.ID)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     config.GetSessionCookieName(),
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
		Expires:  time.Now().Add(-1 * time.Hour),
		MaxAge:   -1,
	})
}

func (s *Service) parseCookie(r *http.Request) (*SessionClaims, error) {
	cookie, err := r.Cookie(config.GetSessionCookieName())
	if err != nil {
		return nil, ErrNoSession
	}

	token, err := jwt.ParseWithClaims(cookie.Value, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return config.GetJWTSecret(), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		log.Debug().Err(err).Msg("Rejected visitor session cookie")
		return nil, ErrNoSession
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, ErrNoSession
	}
	return claims, nil
}
