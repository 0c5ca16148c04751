package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formpilot/gateway/internal/config"
	"github.com/formpilot/gateway/internal/services/oauth"
	"github.com/formpilot/gateway/internal/services/session"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func setupClients(t *testing.T) {
	t.Helper()
	restoreSecret := config.SetJWTSecret([]byte("test-secret-key-for-jwt-signing-in-tests"))
	restoreClients := config.SetAllowedClients(map[string]config.ClientConfig{
		"dashboard": {ID: "dash-id", Secret: "dash-secret", Scopes: []string{"dashboard:read"}},
	})
	t.Cleanup(func() {
		restoreClients()
		restoreSecret()
	})
}

func TestRequireAuthAndScope(t *testing.T) {
	setupClients(t)

	issued, err := oauth.IssueClientToken("dash-id", "dash-secret", nil)
	require.NoError(t, err)

	tests := []struct {
		name           string
		authHeader     string
		scope          string
		expectedStatus int
	}{
		{name: "no token", scope: "dashboard:read", expectedStatus: http.StatusUnauthorized},
		{name: "invalid token", authHeader: "Bearer nope", scope: "dashboard:read", expectedStatus: http.StatusUnauthorized},
		{name: "granted scope", authHeader: "Bearer " + issued.AccessToken, scope: "dashboard:read", expectedStatus: http.StatusOK},
		{name: "missing scope", authHeader: "Bearer " + issued.AccessToken, scope: "dashboard:write", expectedStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireAuth()(RequireScope(tt.scope)(okHandler))
			req := httptest.NewRequest(http.MethodGet, "/v1/agents", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestRequireScopeWithoutAuthContext(t *testing.T) {
	w := httptest.NewRecorder()
	RequireScope("dashboard:read")(okHandler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/agents", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRequireVisitor(t *testing.T) {
	setupClients(t)
	svc := session.NewServiceWithStore(session.NewMemoryStore(), time.Hour)

	var seen *session.SessionClaims
	handler := RequireVisitor(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetVisitor(r)
	}))

	t.Run("without cookie", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/widget/state", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("with cookie", func(t *testing.T) {
		cookieRec := httptest.NewRecorder()
		_, err := svc.CreateSession(context.Background(), cookieRec, "sess-1", "agent-1")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/v1/widget/state", nil)
		for _, c := range cookieRec.Result().Cookies() {
			req.AddCookie(c)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, seen)
		assert.Equal(t, "sess-1", seen.SessionID)
	})
}

func TestRateLimit(t *testing.T) {
	t.Setenv("RATELIMIT_ENABLED", "true")
	t.Setenv("RATELIMIT_OAUTH_TOKEN", "1")

	handler := RateLimit("oauth_token")(okHandler)

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/v1/oauth/token", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/v1/oauth/token", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))

	other := httptest.NewRequest(http.MethodPost, "/v1/oauth/token", nil)
	other.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	third := httptest.NewRecorder()
	handler.ServeHTTP(third, other)
	assert.Equal(t, http.StatusOK, third.Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:5123"
	assert.Equal(t, "198.51.100.7", clientIP(req))
}
