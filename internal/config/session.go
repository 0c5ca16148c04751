package config

import "time"

var (
	// SessionCookieName is the name of the widget visitor cookie
	// Default to "formpilot_session" if not set in environment
	SessionCookieName = GetEnvOrDefault("SESSION_COOKIE_NAME", "formpilot_session")
)

// GetSessionCookieName returns the configured session cookie name
func GetSessionCookieName() string {
	return SessionCookieName
}

// SetSessionCookieName temporarily changes the session cookie name and returns a function to restore it
// This is primarily used for testing
func SetSessionCookieName(name string) func() {
	previous := SessionCookieName
	SessionCookieName = name

	return func() {
		SessionCookieName = previous
	}
}

// GetSessionLifetime returns how long a visitor session cookie stays valid
func GetSessionLifetime() time.Duration {
	return parseEnvDuration("SESSION_LIFETIME", 24*time.Hour)
}

// GetSnapshotTTL returns how long conversation state snapshots are cached
func GetSnapshotTTL() time.Duration {
	return parseEnvDuration("SNAPSHOT_TTL", 24*time.Hour)
}
