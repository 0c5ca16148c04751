package config

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultAPIURL = "https://api.formpilot.io/api/v1"

// GetFormAPIURL returns the base URL of the Formpilot backend API
func GetFormAPIURL() string {
	return GetEnvOrDefault("FORMPILOT_API_URL", defaultAPIURL)
}

// GetFormAPIToken returns the service token the gateway uses against the backend
func GetFormAPIToken() string {
	value := GetEnvOrDefault("FORMPILOT_API_TOKEN", "")
	if value == "" {
		log.Warn().Msg("FORMPILOT_API_TOKEN environment variable not set")
	}
	return value
}

// GetFormAPITimeout bounds non-streaming backend requests
func GetFormAPITimeout() time.Duration {
	return parseEnvDuration("FORMPILOT_API_TIMEOUT", 30*time.Second)
}

// GetStreamTimeout bounds a whole streaming exchange; zero disables the bound
func GetStreamTimeout() time.Duration {
	return parseEnvDuration("FORMPILOT_STREAM_TIMEOUT", 5*time.Minute)
}

// GetPort returns the port the gateway listens on
func GetPort() string {
	return GetEnvOrDefault("PORT", "8080")
}

// GetAllowedOrigins returns the origins allowed to open widget websockets
func GetAllowedOrigins() []string {
	return cleanEmptyStrings(strings.Split(GetEnvOrDefault("WIDGET_ALLOWED_ORIGINS", ""), ","))
}
