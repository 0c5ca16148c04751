package formapi

import (
	"encoding/json"
	"time"
)

// ChunkType discriminates the variants of a StreamingChunk
type ChunkType string

const (
	ChunkContent ChunkType = "content"
	ChunkField   ChunkType = "field"
	ChunkStatus  ChunkType = "status"
	ChunkError   ChunkType = "error"
	ChunkDone    ChunkType = "done"
)

// IsTerminal reports whether a chunk of this type ends the exchange
func (t ChunkType) IsTerminal() bool {
	return t == ChunkError || t == ChunkDone
}

// StreamingChunk is one `data: ` line of the message stream
type StreamingChunk struct {
	Type       ChunkType          `json:"type"`
	Content    string             `json:"content,omitempty"`
	FieldKey   *string            `json:"field_key,omitempty"`
	FieldValue json.RawMessage    `json:"field_value,omitempty"`
	State      *ConversationState `json:"state,omitempty"`
	Error      string             `json:"error,omitempty"`
}

type ConversationStatus string

const (
	StatusActive    ConversationStatus = "active"
	StatusCompleted ConversationStatus = "completed"
	StatusAbandoned ConversationStatus = "abandoned"
)

// ConversationState is the backend's snapshot of a session's field collection.
// Clients hold the most recent snapshot and never mutate it.
type ConversationState struct {
	SessionID       string                     `json:"session_id"`
	AgentID         string                     `json:"agent_id"`
	Status          ConversationStatus         `json:"status"`
	CollectedFields map[string]json.RawMessage `json:"collected_fields"`
	RequiredFields  []string                   `json:"required_fields"`
	CompletedFields []string                   `json:"completed_fields"`
	CurrentField    *string                    `json:"current_field,omitempty"`
}

// Progress returns how many required fields have been completed
func (s *ConversationState) Progress() (completed, required int) {
	done := make(map[string]struct{}, len(s.CompletedFields))
	for _, key := range s.CompletedFields {
		done[key] = struct{}{}
	}
	for _, key := range s.RequiredFields {
		if _, ok := done[key]; ok {
			completed++
		}
	}
	return completed, len(s.RequiredFields)
}

// IsFinished reports whether the conversation no longer accepts messages
func (s *ConversationState) IsFinished() bool {
	return s.Status == StatusCompleted || s.Status == StatusAbandoned
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type ChatMessage struct {
	ID         string          `json:"id"`
	Role       Role            `json:"role"`
	Content    string          `json:"content"`
	Timestamp  time.Time       `json:"timestamp"`
	FieldKey   *string         `json:"field_key,omitempty"`
	FieldValue json.RawMessage `json:"field_value,omitempty"`
}

// MessageResult is the outcome of sending one message
type MessageResult struct {
	Message ChatMessage       `json:"message"`
	State   ConversationState `json:"state"`
}

// SendMessageRequest carries one user turn. FieldValue must be JSON-serializable.
type SendMessageRequest struct {
	SessionID  string
	Content    string
	FieldKey   *string
	FieldValue interface{}

	// IdempotencyKey is shared by the streaming attempt and its fallback so the
	// backend can drop a duplicate submission. Generated when empty.
	IdempotencyKey string
}

type messageBody struct {
	Content    string      `json:"content"`
	FieldKey   *string     `json:"field_key,omitempty"`
	FieldValue interface{} `json:"field_value,omitempty"`
}

// StartResult is returned when a new conversation is opened for an agent
type StartResult struct {
	SessionID string            `json:"session_id"`
	Message   ChatMessage       `json:"message"`
	State     ConversationState `json:"state"`
}

type FieldDefinition struct {
	Key         string   `json:"key" validate:"required"`
	Label       string   `json:"label" validate:"required"`
	Type        string   `json:"type" validate:"omitempty,oneof=text email number phone date select boolean"`
	Required    bool     `json:"required"`
	Description string   `json:"description,omitempty"`
	Options     []string `json:"options,omitempty"`
}

type Agent struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Description    string            `json:"description,omitempty"`
	WelcomeMessage string            `json:"welcome_message,omitempty"`
	Fields         []FieldDefinition `json:"fields"`
	Status         string            `json:"status"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// AgentInput is the writable subset of an Agent
type AgentInput struct {
	Name           string            `json:"name" validate:"required,max=200"`
	Description    string            `json:"description,omitempty"`
	WelcomeMessage string            `json:"welcome_message,omitempty"`
	Fields         []FieldDefinition `json:"fields" validate:"dive"`
	Status         string            `json:"status,omitempty" validate:"omitempty,oneof=draft published archived"`
}

type Session struct {
	ID              string                     `json:"id"`
	AgentID         string                     `json:"agent_id"`
	Status          ConversationStatus         `json:"status"`
	CollectedFields map[string]json.RawMessage `json:"collected_fields"`
	CreatedAt       time.Time                  `json:"created_at"`
	UpdatedAt       time.Time                  `json:"updated_at"`
	CompletedAt     *time.Time                 `json:"completed_at,omitempty"`
}

type SessionDetail struct {
	Session
	Messages []ChatMessage `json:"messages"`
}

type SessionList struct {
	Items []Session `json:"items"`
	Total int       `json:"total"`
}

type SessionFilter struct {
	AgentID string
	Status  ConversationStatus
	Limit   int
	Offset  int
}

type Webhook struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type WebhookInput struct {
	URL    string   `json:"url" validate:"required,url"`
	Events []string `json:"events" validate:"required,min=1,dive,oneof=session.started session.completed session.abandoned field.collected"`
	Secret string   `json:"secret,omitempty"`
}

type WebhookDelivery struct {
	ID           string     `json:"id"`
	WebhookID    string     `json:"webhook_id"`
	Event        string     `json:"event"`
	Status       string     `json:"status"`
	Attempts     int        `json:"attempts"`
	ResponseCode int        `json:"response_code,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	DeliveredAt  *time.Time `json:"delivered_at,omitempty"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
}
