package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

var (
	jwtSecretMu sync.RWMutex
	// JWTSecret is the secret key used to sign visitor cookies and dashboard tokens
	// In production, this should be loaded from environment variables
	JWTSecret = []byte(GetEnvOrDefault("JWT_SECRET", "your-256-bit-secret"))
)

// SetJWTSecret temporarily changes the JWT secret and returns a function to restore it
// This is primarily used for testing
func SetJWTSecret(secret []byte) func() {
	jwtSecretMu.Lock()
	previous := JWTSecret
	JWTSecret = secret
	jwtSecretMu.Unlock()

	return func() {
		jwtSecretMu.Lock()
		JWTSecret = previous
		jwtSecretMu.Unlock()
	}
}

// GetJWTSecret returns the current JWT secret in a thread-safe manner
func GetJWTSecret() []byte {
	jwtSecretMu.RLock()
	defer jwtSecretMu.RUnlock()
	return JWTSecret
}

// ClientConfig is the configuration of a dashboard API client allowed to request tokens
type ClientConfig struct {
	ID     string
	Secret string
	Scopes []string
}

var (
	clientsMu sync.RWMutex
	// AllowedClients maps client names to their configurations
	AllowedClients = scanForClientConfigs()
)

func init() {
	if len(AllowedClients) == 0 {
		log.Warn().Msg("No OAuth clients found in environment configuration - dashboard token issuance disabled")
	}

	for name, client := range AllowedClients {
		if client.ID == "" || client.Secret == "" {
			log.Warn().Str("client", name).Msg("Ignoring OAuth client without ID or secret")
			delete(AllowedClients, name)
		}
	}
}

// SetAllowedClients replaces the client table and returns a function to restore it
// This is primarily used for testing
func SetAllowedClients(clients map[string]ClientConfig) func() {
	clientsMu.Lock()
	previous := AllowedClients
	AllowedClients = clients
	clientsMu.Unlock()

	return func() {
		clientsMu.Lock()
		AllowedClients = previous
		clientsMu.Unlock()
	}
}

// GetClientByID returns the client name and configuration for a client ID
func GetClientByID(clientID string) (string, ClientConfig, bool) {
	clientsMu.RLock()
	defer clientsMu.RUnlock()

	for name, client := range AllowedClients {
		if client.ID == clientID {
			return name, client, true
		}
	}
	return "", ClientConfig{}, false
}

func scanForClientConfigs() map[string]ClientConfig {
	clients := make(map[string]ClientConfig)

	for _, env := range os.Environ() {
		key := strings.Split(env, "=")[0]

		// FORMPILOT_<NAME>_CLIENT_ID declares a client called <name>
		if strings.HasPrefix(key, "FORMPILOT_") && strings.HasSuffix(key, "_CLIENT_ID") {
			name := strings.ToLower(strings.TrimSuffix(
				strings.TrimPrefix(key, "FORMPILOT_"),
				"_CLIENT_ID",
			))
			prefix := fmt.Sprintf("FORMPILOT_%s", strings.ToUpper(name))

			clients[name] = ClientConfig{
				ID:     GetEnvOrDefault(prefix+"_CLIENT_ID", ""),
				Secret: GetEnvOrDefault(prefix+"_CLIENT_SECRET", ""),
				Scopes: cleanEmptyStrings(strings.Split(GetEnvOrDefault(prefix+"_SCOPES", ""), ",")),
			}
		}
	}

	return clients
}

// Helper function to clean empty strings from slices
func cleanEmptyStrings(slice []string) []string {
	result := make([]string, 0)
	for _, s := range slice {
		s = strings.TrimSpace(s)
		if s != "" {
			result = append(result, s)
		}
	}
	return result
}
