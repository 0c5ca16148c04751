package dashboard

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/formpilot/gateway/internal/api/v1/handlers/upstream"
	"github.com/formpilot/gateway/internal/infrastructure/formapi"
	"github.com/formpilot/gateway/pkg/httpext"
)

func HandleListWebhooks(client *formapi.Client, w http.ResponseWriter, r *http.Request) {
	hooks, err := client.Webhooks.List(r.Context())
	if err != nil {
		upstream.WriteError(w, r, err)
		return
	}
	if hooks == nil {
		hooks = []formapi.Webhook{}
	}
	httpext.JsonResponse(w, http.StatusOK, hooks)
}

func HandleCreateWebhook(client *formapi.Client, w http.ResponseWriter, r *http.Request) {
	var input formapi.WebhookInput
	if err := httpext.DecodeJSON(r, &input); err != nil {
		httpext.BadRequest(w, err)
		return
	}

	hook, err := client.Webhooks.Create(r.Context(), input)
	if err != nil {
		upstream.WriteError(w, r, err)
		return
	}

	logAudit(r, "webhook.created", hook.ID)
	httpext.JsonResponse(w, http.StatusCreated, hook)
}

func HandleDeleteWebhook(client *formapi.Client, w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := client.Webhooks.Delete(r.Context(), id); err != nil {
		upstream.WriteError(w, r, err)
		return
	}

	logAudit(r, "webhook.deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

func HandleListDeliveries(client *formapi.Client, w http.ResponseWriter, r *http.Request) {
	deliveries, err := client.Webhooks.Deliveries(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		upstream.WriteError(w, r, err)
		return
	}
	if deliveries == nil {
		deliveries = []formapi.WebhookDelivery{}
	}
	httpext.JsonResponse(w, http.StatusOK, deliveries)
}

// HandleRetryDelivery re-queues a failed delivery; retry scheduling stays with the backend
func HandleRetryDelivery(client *formapi.Client, w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	delivery, err := client.Webhooks.RetryDelivery(r.Context(), vars["id"], vars["delivery_id"])
	if err != nil {
		upstream.WriteError(w, r, err)
		return
	}

	logAudit(r, "webhook.delivery_retried", delivery.ID)
	httpext.JsonResponse(w, http.StatusAccepted, delivery)
}
