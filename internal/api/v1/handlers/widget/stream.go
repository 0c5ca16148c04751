package widget

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/formpilot/gateway/internal/api/v1/handlers/upstream"
	"github.com/formpilot/gateway/internal/api/v1/middleware"
	"github.com/formpilot/gateway/internal/infrastructure/formapi"
	"github.com/formpilot/gateway/internal/services/conversation"
	"github.com/formpilot/gateway/pkg/httpext"
)

// StreamEvent is the final event of a relayed stream
type StreamEvent struct {
	Type    formapi.ChunkType          `json:"type"`
	Message *formapi.ChatMessage       `json:"message,omitempty"`
	State   *formapi.ConversationState `json:"state,omitempty"`
	Error   string                     `json:"error,omitempty"`
}

type eventWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	err     error
}

// send writes v as one data event; after the first failure it is a no-op
func (e *eventWriter) send(v interface{}) {
	if e.err != nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		e.err = err
		return
	}
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", data); err != nil {
		e.err = err
		return
	}
	e.flusher.Flush()
}

// parseStreamQuery reads a turn from query parameters. field_value is JSON;
// anything that does not parse is taken as a plain string.
func parseStreamQuery(r *http.Request) (MessageRequest, error) {
	q := r.URL.Query()
	req := MessageRequest{Content: q.Get("content")}
	if q.Has("field_key") {
		key := q.Get("field_key")
		req.FieldKey = &key
	}
	if raw := q.Get("field_value"); raw != "" {
		if json.Valid([]byte(raw)) {
			req.FieldValue = json.RawMessage(raw)
		} else {
			encoded, err := json.Marshal(raw)
			if err != nil {
				return req, err
			}
			req.FieldValue = encoded
		}
	}
	return req, httpext.Validate(&req)
}

// HandleStreamMessage relays a visitor turn as server-sent events: every
// observed chunk as it arrives, then a done or error event
func HandleStreamMessage(conversationService *conversation.Service, w http.ResponseWriter, r *http.Request) {
	visitor := middleware.GetVisitor(r)
	if visitor == nil {
		httpext.JsonError(w, "No active conversation", http.StatusUnauthorized)
		return
	}

	req, err := parseStreamQuery(r)
	if err != nil {
		httpext.BadRequest(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		httpext.JsonError(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events := &eventWriter{w: w, flusher: flusher}
	result, err := conversationService.SendStream(r.Context(), req.toSend(visitor.SessionID), func(chunk formapi.StreamingChunk) {
		events.send(chunk)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Debug().Str("session_id", visitor.SessionID).Msg("Visitor left during stream")
			return
		}
		events.send(StreamEvent{Type: formapi.ChunkError, Error: upstream.Message(err)})
		return
	}

	events.send(StreamEvent{Type: formapi.ChunkDone, Message: &result.Message, State: &result.State})
	if events.err != nil {
		log.Debug().Err(events.err).Str("session_id", visitor.SessionID).Msg("Failed to relay stream to visitor")
	}
}
