package widget

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/formpilot/gateway/internal/api/v1/handlers/upstream"
	"github.com/formpilot/gateway/internal/api/v1/middleware"
	"github.com/formpilot/gateway/internal/infrastructure/formapi"
	"github.com/formpilot/gateway/internal/services/conversation"
	"github.com/formpilot/gateway/internal/services/session"
	"github.com/formpilot/gateway/pkg/httpext"
)

type StartSessionRequest struct {
	AgentID string `json:"agent_id" validate:"required,max=100"`
}

type StartSessionResponse struct {
	SessionID string                    `json:"session_id"`
	Message   formapi.ChatMessage       `json:"message"`
	State     formapi.ConversationState `json:"state"`
}

// HandleStartSession opens a conversation for the widget visitor and binds it to their cookie
func HandleStartSession(conversationService *conversation.Service, sessionService *session.Service, w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if err := httpext.DecodeJSON(r, &req); err != nil {
		httpext.BadRequest(w, err)
		return
	}

	started, err := conversationService.Start(r.Context(), req.AgentID)
	if err != nil {
		upstream.WriteError(w, r, err)
		return
	}

	if _, err := sessionService.CreateSession(r.Context(), w, started.SessionID, req.AgentID); err != nil {
		log.Error().Err(err).Str("session_id", started.SessionID).Msg("Failed to create visitor session")
		httpext.JsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	log.Info().
		Str("session_id", started.SessionID).
		Str("agent_id", req.AgentID).
		Str("user_agent", r.UserAgent()).
		Msg("Widget conversation started")

	httpext.JsonResponse(w, http.StatusCreated, StartSessionResponse{
		SessionID: started.SessionID,
		Message:   started.Message,
		State:     started.State,
	})
}

// HandleEndSession forgets the visitor's conversation and expires their cookie
func HandleEndSession(conversationService *conversation.Service, sessionService *session.Service, w http.ResponseWriter, r *http.Request) {
	if visitor := middleware.GetVisitor(r); visitor != nil {
		if err := conversationService.Forget(r.Context(), visitor.SessionID); err != nil {
			log.Warn().Err(err).Str("session_id", visitor.SessionID).Msg("Failed to drop conversation snapshot")
		}
	}
	sessionService.ClearSession(w, r)
	w.WriteHeader(http.StatusNoContent)
}

// HandleState returns the latest conversation snapshot for the visitor
func HandleState(conversationService *conversation.Service, w http.ResponseWriter, r *http.Request) {
	visitor := middleware.GetVisitor(r)
	if visitor == nil {
		httpext.JsonError(w, "No active conversation", http.StatusUnauthorized)
		return
	}

	state, err := conversationService.Snapshot(r.Context(), visitor.SessionID)
	if err != nil {
		upstream.WriteError(w, r, err)
		return
	}
	httpext.JsonResponse(w, http.StatusOK, state)
}
