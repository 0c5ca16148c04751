package config

import (
	"time"

	"github.com/rs/zerolog/log"
)

type RateLimitConfig struct {
	Enabled bool
	MaxHits int
	Window  time.Duration
}

func GetRateLimitConfig(key string) RateLimitConfig {
	enabled := GetEnvOrDefault("RATELIMIT_ENABLED", "false") == "true"

	configs := map[string]RateLimitConfig{
		"global": {
			Enabled: enabled,
			MaxHits: parseEnvInt("RATELIMIT_GLOBAL", 1000), // 1000 requests per minute globally
			Window:  time.Minute,
		},
		"oauth_token": {
			Enabled: enabled,
			MaxHits: parseEnvInt("RATELIMIT_OAUTH_TOKEN", 30), // 30 requests per minute
			Window:  time.Minute,
		},
		"widget_session": {
			Enabled: enabled,
			MaxHits: parseEnvInt("RATELIMIT_WIDGET_SESSION", 20), // 20 conversations per minute
			Window:  time.Minute,
		},
		"widget_message": {
			Enabled: enabled,
			MaxHits: parseEnvInt("RATELIMIT_WIDGET_MESSAGE", 120), // 120 messages per minute
			Window:  time.Minute,
		},
		"dashboard": {
			Enabled: enabled,
			MaxHits: parseEnvInt("RATELIMIT_DASHBOARD", 600),
			Window:  time.Minute,
		},
	}

	if config, exists := configs[key]; exists {
		return config
	}

	log.Warn().Str("key", key).Msg("No rate limit config found")
	return RateLimitConfig{Enabled: false}
}
