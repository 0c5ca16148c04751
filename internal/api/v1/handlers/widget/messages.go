package widget

import (
	"encoding/json"
	"net/http"

	"github.com/formpilot/gateway/internal/api/v1/handlers/upstream"
	"github.com/formpilot/gateway/internal/api/v1/middleware"
	"github.com/formpilot/gateway/internal/infrastructure/formapi"
	"github.com/formpilot/gateway/internal/services/conversation"
	"github.com/formpilot/gateway/pkg/httpext"
)

// MessageRequest is one visitor turn, optionally submitting a field value
type MessageRequest struct {
	Content    string          `json:"content" validate:"max=4000"`
	FieldKey   *string         `json:"field_key,omitempty" validate:"omitempty,min=1,max=100"`
	FieldValue json.RawMessage `json:"field_value,omitempty"`
}

func (m MessageRequest) toSend(sessionID string) formapi.SendMessageRequest {
	req := formapi.SendMessageRequest{
		SessionID: sessionID,
		Content:   m.Content,
		FieldKey:  m.FieldKey,
	}
	// A nil RawMessage must stay a nil interface or it is sent as "null"
	if len(m.FieldValue) > 0 {
		req.FieldValue = m.FieldValue
	}
	return req
}

// HandleSendMessage sends a visitor turn and waits for the complete reply
func HandleSendMessage(conversationService *conversation.Service, w http.ResponseWriter, r *http.Request) {
	visitor := middleware.GetVisitor(r)
	if visitor == nil {
		httpext.JsonError(w, "No active conversation", http.StatusUnauthorized)
		return
	}

	var req MessageRequest
	if err := httpext.DecodeJSON(r, &req); err != nil {
		httpext.BadRequest(w, err)
		return
	}

	result, err := conversationService.Send(r.Context(), req.toSend(visitor.SessionID))
	if err != nil {
		upstream.WriteError(w, r, err)
		return
	}
	httpext.JsonResponse(w, http.StatusOK, result)
}
