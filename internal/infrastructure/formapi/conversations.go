package formapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type ConversationsClient struct {
	client *Client
}

type startRequest struct {
	AgentID string `json:"agent_id"`
}

// Start opens a new conversation session for an agent
func (c *ConversationsClient) Start(ctx context.Context, agentID string) (*StartResult, error) {
	if agentID == "" {
		return nil, errors.New("formapi: agent id required")
	}
	var result StartResult
	if err := c.client.call(ctx, http.MethodPost, "/conversations", nil, startRequest{AgentID: agentID}, &result); err != nil {
		return nil, err
	}
	if result.SessionID == "" {
		result.SessionID = result.State.SessionID
	}
	return &result, nil
}

// State fetches the current conversation state snapshot
func (c *ConversationsClient) State(ctx context.Context, sessionID string) (*ConversationState, error) {
	if sessionID == "" {
		return nil, ErrSessionIDRequired
	}
	var state ConversationState
	if err := c.client.call(ctx, http.MethodGet, pathEscape("conversations", sessionID, "state"), nil, nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// SendMessage posts one user turn and waits for the complete reply
func (c *ConversationsClient) SendMessage(ctx context.Context, msg SendMessageRequest) (*MessageResult, error) {
	if msg.SessionID == "" {
		return nil, ErrSessionIDRequired
	}

	body := messageBody{Content: msg.Content, FieldKey: msg.FieldKey, FieldValue: msg.FieldValue}
	req, err := c.client.newRequest(ctx, http.MethodPost, pathEscape("conversations", msg.SessionID, "message"), nil, body)
	if err != nil {
		return nil, err
	}
	if msg.IdempotencyKey != "" {
		req.Header.Set("Idempotency-Key", msg.IdempotencyKey)
	}

	var result MessageResult
	if err := c.client.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SendMessageStream sends one user turn over the event stream, reporting
// content, field and status chunks to observe as they arrive. When the stream
// cannot be opened, fails while reading, or closes without a terminal chunk,
// the same turn is sent once more through SendMessage and that outcome is
// returned instead.
func (c *ConversationsClient) SendMessageStream(ctx context.Context, msg SendMessageRequest, observe ChunkObserver) (*MessageResult, error) {
	if msg.SessionID == "" {
		return nil, ErrSessionIDRequired
	}
	if msg.IdempotencyKey == "" {
		msg.IdempotencyKey = uuid.New().String()
	}

	result, err := c.stream(ctx, msg, observe)

	var fb *fallbackError
	if errors.As(err, &fb) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Debug().
			Str("session_id", msg.SessionID).
			Str("reason", fb.Error()).
			Msg("Falling back to non-streaming message request")
		return c.SendMessage(ctx, msg)
	}
	return result, err
}

func (c *ConversationsClient) stream(ctx context.Context, msg SendMessageRequest, observe ChunkObserver) (*MessageResult, error) {
	query := url.Values{}
	query.Set("content", msg.Content)
	if msg.FieldKey != nil {
		query.Set("field_key", *msg.FieldKey)
	}
	if msg.FieldValue != nil {
		encoded, err := json.Marshal(msg.FieldValue)
		if err != nil {
			return nil, &fallbackError{reason: "failed to encode field value", cause: err}
		}
		query.Set("field_value", string(encoded))
	}

	req, err := c.client.newRequest(ctx, http.MethodGet, pathEscape("conversations", msg.SessionID, "message", "stream"), query, nil)
	if err != nil {
		return nil, &fallbackError{reason: "failed to build stream request", cause: err}
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Idempotency-Key", msg.IdempotencyKey)

	resp, err := c.client.streamClient.Do(req)
	if err != nil {
		return nil, &fallbackError{reason: "stream request failed", cause: err}
	}
	if resp.Body == nil {
		return nil, &fallbackError{reason: "stream response has no body"}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &fallbackError{reason: fmt.Sprintf("stream endpoint returned status %d", resp.StatusCode)}
	}
	if resp.Body == http.NoBody {
		return nil, &fallbackError{reason: "stream response has no body"}
	}

	return consumeStream(ctx, resp.Body, observe, c.client.now)
}
