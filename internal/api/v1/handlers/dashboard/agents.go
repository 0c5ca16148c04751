// Package dashboard serves the operator dashboard by passing requests through
// to the backend with the gateway's service credentials.
package dashboard

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/formpilot/gateway/internal/api/v1/handlers/upstream"
	"github.com/formpilot/gateway/internal/api/v1/middleware"
	"github.com/formpilot/gateway/internal/infrastructure/formapi"
	"github.com/formpilot/gateway/pkg/httpext"
)

func HandleListAgents(client *formapi.Client, w http.ResponseWriter, r *http.Request) {
	agents, err := client.Agents.List(r.Context())
	if err != nil {
		upstream.WriteError(w, r, err)
		return
	}
	if agents == nil {
		agents = []formapi.Agent{}
	}
	httpext.JsonResponse(w, http.StatusOK, agents)
}

func HandleGetAgent(client *formapi.Client, w http.ResponseWriter, r *http.Request) {
	agent, err := client.Agents.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		upstream.WriteError(w, r, err)
		return
	}
	httpext.JsonResponse(w, http.StatusOK, agent)
}

func HandleCreateAgent(client *formapi.Client, w http.ResponseWriter, r *http.Request) {
	var input formapi.AgentInput
	if err := httpext.DecodeJSON(r, &input); err != nil {
		httpext.BadRequest(w, err)
		return
	}

	agent, err := client.Agents.Create(r.Context(), input)
	if err != nil {
		upstream.WriteError(w, r, err)
		return
	}

	logAudit(r, "agent.created", agent.ID)
	httpext.JsonResponse(w, http.StatusCreated, agent)
}

func HandleUpdateAgent(client *formapi.Client, w http.ResponseWriter, r *http.Request) {
	var input formapi.AgentInput
	if err := httpext.DecodeJSON(r, &input); err != nil {
		httpext.BadRequest(w, err)
		return
	}

	agent, err := client.Agents.Update(r.Context(), mux.Vars(r)["id"], input)
	if err != nil {
		upstream.WriteError(w, r, err)
		return
	}

	logAudit(r, "agent.updated", agent.ID)
	httpext.JsonResponse(w, http.StatusOK, agent)
}

func HandleDeleteAgent(client *formapi.Client, w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := client.Agents.Delete(r.Context(), id); err != nil {
		upstream.WriteError(w, r, err)
		return
	}

	logAudit(r, "agent.deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

// logAudit records which dashboard client changed what
func logAudit(r *http.Request, action, resourceID string) {
	event := log.Info().
		Str("action", action).
		Str("resource_id", resourceID)
	if validation := middleware.GetTokenValidation(r); validation != nil {
		event = event.Str("client", validation.ClientName)
	}
	event.Msg("Dashboard change")
}
