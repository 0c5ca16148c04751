package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/formpilot/gateway/internal/services/oauth"
	"github.com/formpilot/gateway/internal/services/session"
	"github.com/formpilot/gateway/pkg/httpext"
)

type contextKey string

const (
	tokenValidationKey contextKey = "tokenValidation"
	visitorKey         contextKey = "visitor"
)

// RequireAuth accepts requests carrying a valid dashboard bearer token
func RequireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := oauth.ExtractToken(r)
			if tokenString == "" {
				httpext.JsonError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			validation := oauth.ValidateToken(tokenString)
			if !validation.Valid {
				httpext.JsonError(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), tokenValidationKey, &validation)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			validation := GetTokenValidation(r)
			if validation == nil {
				log.Error().
					Str("path", r.URL.Path).
					Msg("OAuth scope validation failed - missing token validation context")
				httpext.JsonError(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			if !validation.HasScope(scope) {
				log.Warn().
					Str("required_scope", scope).
					Strs("token_scopes", validation.Scopes).
					Str("path", r.URL.Path).
					Msg("Access denied - token missing required scope")
				httpext.JsonError(w, "Missing required scope", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetTokenValidation retrieves the token validation result from the request context
func GetTokenValidation(r *http.Request) *oauth.TokenValidationResult {
	if validation, ok := r.Context().Value(tokenValidationKey).(*oauth.TokenValidationResult); ok {
		return validation
	}
	return nil
}

// RequireVisitor accepts widget requests carrying a valid visitor session cookie
func RequireVisitor(sessionService *session.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := sessionService.ValidateSession(r)
			if err != nil {
				if !errors.Is(err, session.ErrNoSession) {
					log.Error().Err(err).Str("path", r.URL.Path).Msg("Visitor session lookup failed")
					httpext.JsonError(w, "Internal server error", http.StatusInternalServerError)
					return
				}
				httpext.JsonError(w, "No active conversation", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), visitorKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetVisitor retrieves the visitor session claims from the request context
func GetVisitor(r *http.Request) *session.SessionClaims {
	if claims, ok := r.Context().Value(visitorKey).(*session.SessionClaims); ok {
		return claims
	}
	return nil
}
