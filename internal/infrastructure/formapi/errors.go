package formapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

var (
	// ErrIncompleteResponse is returned when a stream finishes without a conversation state
	ErrIncompleteResponse = errors.New("Incomplete response")
	ErrSessionIDRequired  = errors.New("formapi: session id required")

	errStreamExhausted = errors.New("stream ended without a terminal chunk")
)

const defaultStreamError = "Streaming error"

// APIError is a non-2xx response from the backend
type APIError struct {
	Status    int
	Code      string
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("formapi: %s (%d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("formapi: %d: %s", e.Status, e.Message)
}

// StreamError is a failure reported by the stream itself: an error chunk or a
// done chunk that arrived without a conversation state
type StreamError struct {
	Message string
	Err     error
}

func (e *StreamError) Error() string {
	return e.Message
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// fallbackError marks streaming failures that are recovered by the
// non-streaming request
type fallbackError struct {
	reason string
	cause  error
}

func (e *fallbackError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.reason, e.cause)
	}
	return e.reason
}

func (e *fallbackError) Unwrap() error {
	return e.cause
}

func decodeAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	apiErr := &APIError{
		Status:    resp.StatusCode,
		RequestID: resp.Header.Get("X-Request-Id"),
	}
	if len(data) == 0 {
		apiErr.Message = resp.Status
		return apiErr
	}

	// The backend answers either {"error": "...", "message": "..."} or {"detail": "..."}
	var payload struct {
		Error   json.RawMessage `json:"error"`
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Detail  string          `json:"detail"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		apiErr.Message = string(data)
		return apiErr
	}

	apiErr.Code = payload.Code
	apiErr.Message = payload.Message
	if len(payload.Error) > 0 {
		var text string
		var nested struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(payload.Error, &text) == nil {
			if apiErr.Message == "" {
				apiErr.Message = text
			} else if apiErr.Code == "" {
				apiErr.Code = text
			}
		} else if json.Unmarshal(payload.Error, &nested) == nil {
			apiErr.Code = nested.Code
			apiErr.Message = nested.Message
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = payload.Detail
	}
	if apiErr.Message == "" {
		apiErr.Message = resp.Status
	}
	return apiErr
}

// IsNotFound reports whether err is a 404 from the backend
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}
