package oauth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/formpilot/gateway/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const GrantClientCredentials = "client_credentials"

var (
	tokenLifetime = 15 * time.Minute

	ErrInvalidClient = errors.New("invalid client credentials")
	ErrInvalidScope  = errors.New("requested scope not granted to client")
)

func ExtractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		log.Debug().Msg("No Authorization header found")
		return ""
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		log.Warn().Str("path", r.URL.Path).Msg("Malformed Authorization header")
		return ""
	}

	return parts[1]
}

type TokenValidationResult struct {
	Valid      bool
	ClientName string
	GrantType  string
	ExpiresAt  time.Time
	Scopes     []string
}

// HasScope reports whether the validated token carries scope
func (r *TokenValidationResult) HasScope(scope string) bool {
	for _, s := range r.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

type CustomClaims struct {
	jwt.RegisteredClaims
	ClientName string   `json:"ctp"`
	GrantType  string   `json:"gty"`
	Scopes     []string `json:"scp"`
}

func ValidateToken(tokenString string) TokenValidationResult {
	result := TokenValidationResult{Valid: false}

	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return config.GetJWTSecret(), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		log.Debug().Err(err).Msg("Failed to parse token")
		return result
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		log.Warn().Msg("Invalid token claims")
		return result
	}
	if claims.ClientName == "" {
		log.Warn().Msg("Missing client name in token")
		return result
	}
	if claims.GrantType != GrantClientCredentials {
		log.Warn().Str("grant_type", claims.GrantType).Msg("Invalid grant type in token")
		return result
	}

	result.Valid = true
	result.ClientName = claims.ClientName
	result.GrantType = claims.GrantType
	result.Scopes = claims.Scopes
	if claims.ExpiresAt != nil {
		result.ExpiresAt = claims.ExpiresAt.Time
	}
	return result
}

type IssuedToken struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	ExpiresIn   int      `json:"expires_in"`
	Scopes      []string `json:"-"`
}

// IssueClientToken authenticates a configured client and signs a token for
// the requested scopes, or for all of the client's scopes when none are requested
func IssueClientToken(clientID, clientSecret string, requested []string) (*IssuedToken, error) {
	name, client, ok := config.GetClientByID(clientID)
	if !ok || !validateClientSecret(clientSecret, client.Secret) {
		return nil, ErrInvalidClient
	}

	scopes := client.Scopes
	if len(requested) > 0 {
		granted := make(map[string]struct{}, len(client.Scopes))
		for _, s := range client.Scopes {
			granted[s] = struct{}{}
		}
		for _, s := range requested {
			if _, ok := granted[s]; !ok {
				return nil, ErrInvalidScope
			}
		}
		scopes = requested
	}

	now := time.Now()
	claims := CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
			Subject:   clientID,
		},
		ClientName: name,
		GrantType:  GrantClientCredentials,
		Scopes:     scopes,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(config.GetJWTSecret())
	if err != nil {
		return nil, err
	}

	log.Info().Str("client", name).Strs("scopes", scopes).Msg("Issued client token")
	return &IssuedToken{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int(tokenLifetime.Seconds()),
		Scopes:      scopes,
	}, nil
}

func validateClientSecret(provided, stored string) bool {
	return subtle.ConstantTimeCompare([]byte(provided), []byte(stored)) == 1
}
