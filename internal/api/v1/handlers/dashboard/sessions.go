package dashboard

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/formpilot/gateway/internal/api/v1/handlers/upstream"
	"github.com/formpilot/gateway/internal/infrastructure/formapi"
	"github.com/formpilot/gateway/pkg/httpext"
)

// SessionQuery holds the list filters accepted on GET /v1/sessions
type SessionQuery struct {
	AgentID string `validate:"omitempty,max=100"`
	Status  string `validate:"omitempty,oneof=active completed abandoned"`
	Limit   int    `validate:"min=0,max=100"`
	Offset  int    `validate:"min=0"`
}

func parseSessionQuery(r *http.Request) (SessionQuery, error) {
	q := r.URL.Query()
	query := SessionQuery{
		AgentID: q.Get("agent_id"),
		Status:  q.Get("status"),
	}

	var err error
	if raw := q.Get("limit"); raw != "" {
		if query.Limit, err = strconv.Atoi(raw); err != nil {
			return query, fmt.Errorf("limit must be an integer")
		}
	}
	if raw := q.Get("offset"); raw != "" {
		if query.Offset, err = strconv.Atoi(raw); err != nil {
			return query, fmt.Errorf("offset must be an integer")
		}
	}
	return query, httpext.Validate(&query)
}

func HandleListSessions(client *formapi.Client, w http.ResponseWriter, r *http.Request) {
	query, err := parseSessionQuery(r)
	if err != nil {
		httpext.BadRequest(w, err)
		return
	}

	list, err := client.Sessions.List(r.Context(), formapi.SessionFilter{
		AgentID: query.AgentID,
		Status:  formapi.ConversationStatus(query.Status),
		Limit:   query.Limit,
		Offset:  query.Offset,
	})
	if err != nil {
		upstream.WriteError(w, r, err)
		return
	}
	httpext.JsonResponse(w, http.StatusOK, list)
}

func HandleGetSession(client *formapi.Client, w http.ResponseWriter, r *http.Request) {
	detail, err := client.Sessions.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		upstream.WriteError(w, r, err)
		return
	}
	httpext.JsonResponse(w, http.StatusOK, detail)
}

func HandleDeleteSession(client *formapi.Client, w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := client.Sessions.Delete(r.Context(), id); err != nil {
		upstream.WriteError(w, r, err)
		return
	}

	logAudit(r, "session.deleted", id)
	w.WriteHeader(http.StatusNoContent)
}
