// Package upstream maps backend failures onto gateway HTTP responses.
package upstream

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/formpilot/gateway/internal/infrastructure/formapi"
	"github.com/formpilot/gateway/pkg/httpext"
)

// Status returns the HTTP status a gateway response should carry for err
func Status(err error) int {
	var apiErr *formapi.APIError
	var streamErr *formapi.StreamError
	switch {
	case errors.As(err, &apiErr):
		if apiErr.Status >= 400 && apiErr.Status < 600 {
			return apiErr.Status
		}
		return http.StatusBadGateway
	case errors.As(err, &streamErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, formapi.ErrSessionIDRequired):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

// Message returns the caller-safe description of err
func Message(err error) string {
	var apiErr *formapi.APIError
	var streamErr *formapi.StreamError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.As(err, &streamErr):
		return streamErr.Message
	case errors.Is(err, context.DeadlineExceeded):
		return "Backend request timed out"
	default:
		return "Backend unavailable"
	}
}

// WriteError writes err as a JSON error, preserving backend status codes
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := Status(err)
	code := "upstream_error"
	var apiErr *formapi.APIError
	if errors.As(err, &apiErr) && apiErr.Code != "" {
		code = apiErr.Code
	}

	event := log.Warn()
	if status >= 500 {
		event = log.Error()
	}
	event.Err(err).
		Str("path", r.URL.Path).
		Int("status", status).
		Msg("Backend request failed")

	httpext.JsonErrorWithDetails(w, status, httpext.ErrorResponse{
		Error:            code,
		ErrorDescription: Message(err),
	})
}
