package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	APP        = "APP"
	CLI        = "CLI"
	CONFIG     = "CONFIG"
	FORMAPI    = "FORMAPI"
	HANDLER    = "HANDLER"
	MIDDLEWARE = "MIDDLEWARE"
	OAUTH      = "OAUTH"
	REDIS      = "REDIS"
	SERVICE    = "SERVICE"
	STREAM     = "STREAM"
)

// getLogLevel maps LOG_LEVEL onto a zerolog level, defaulting to info
func getLogLevel() zerolog.Level {
	level := strings.ToUpper(os.Getenv("LOG_LEVEL"))
	switch level {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func getOutput() io.Writer {
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "console") {
		return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	return os.Stderr
}

// Init configures the global zerolog logger from LOG_LEVEL and LOG_FORMAT
func Init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.SetGlobalLevel(getLogLevel())
	log.Logger = zerolog.New(getOutput()).With().Timestamp().Logger()
}

// For returns a child of the global logger tagged with a namespace
func For(namespace string) zerolog.Logger {
	return log.Logger.With().Str("namespace", namespace).Logger()
}
