package handlers

import (
	"net/http"

	"github.com/formpilot/gateway/internal/api/v1/handlers/dashboard"
	v1oauth "github.com/formpilot/gateway/internal/api/v1/handlers/oauth"
	"github.com/formpilot/gateway/internal/api/v1/handlers/widget"
	v1mware "github.com/formpilot/gateway/internal/api/v1/middleware"
	"github.com/formpilot/gateway/internal/infrastructure/formapi"
	"github.com/formpilot/gateway/internal/services"
	"github.com/gorilla/mux"
)

const (
	scopeDashboardRead  = "dashboard:read"
	scopeDashboardWrite = "dashboard:write"
)

func RegisterV1Routes(router *mux.Router, services *services.Services) {
	// v1 routes
	v1 := router.PathPrefix("/v1").Subrouter()

	// OAuth v1 routes (no auth required)
	v1oauthRouter := v1.PathPrefix("/oauth").Subrouter()
	v1oauthRouter.Handle("/token", v1mware.RateLimit("oauth_token")(http.HandlerFunc(v1oauth.HandleToken))).Methods("POST")

	// Widget v1 routes (visitor cookie)
	conversations := services.GetConversationService()
	sessions := services.GetSessionService()

	v1widgetRouter := v1.PathPrefix("/widget").Subrouter()
	v1widgetRouter.Handle("/sessions", v1mware.RateLimit("widget_session")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		widget.HandleStartSession(conversations, sessions, w, r)
	}))).Methods("POST")

	v1visitorRouter := v1widgetRouter.NewRoute().Subrouter()
	v1visitorRouter.Use(v1mware.RequireVisitor(sessions))
	v1visitorRouter.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
		widget.HandleEndSession(conversations, sessions, w, r)
	}).Methods("DELETE")
	v1visitorRouter.HandleFunc("/state", func(w http.ResponseWriter, r *http.Request) {
		widget.HandleState(conversations, w, r)
	}).Methods("GET")
	v1visitorRouter.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		widget.HandleWebSocket(conversations, services.GetConnectionManager(), w, r)
	}).Methods("GET")

	v1messageRouter := v1visitorRouter.PathPrefix("/messages").Subrouter()
	v1messageRouter.Use(v1mware.RateLimit("widget_message"))
	v1messageRouter.HandleFunc("", func(w http.ResponseWriter, r *http.Request) {
		widget.HandleSendMessage(conversations, w, r)
	}).Methods("POST")
	v1messageRouter.HandleFunc("/stream", func(w http.ResponseWriter, r *http.Request) {
		widget.HandleStreamMessage(conversations, w, r)
	}).Methods("GET")

	// Protected v1 dashboard routes (require auth)
	client := services.GetFormAPIClient()
	wrap := func(h func(*formapi.Client, http.ResponseWriter, *http.Request)) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			h(client, w, r)
		}
	}

	v1protectedRouter := v1.NewRoute().Subrouter()
	v1protectedRouter.Use(v1mware.RequireAuth(), v1mware.RateLimit("dashboard"))

	v1readRouter := v1protectedRouter.NewRoute().Subrouter()
	v1readRouter.Use(v1mware.RequireScope(scopeDashboardRead))
	v1readRouter.HandleFunc("/agents", wrap(dashboard.HandleListAgents)).Methods("GET")
	v1readRouter.HandleFunc("/agents/{id}", wrap(dashboard.HandleGetAgent)).Methods("GET")
	v1readRouter.HandleFunc("/sessions", wrap(dashboard.HandleListSessions)).Methods("GET")
	v1readRouter.HandleFunc("/sessions/{id}", wrap(dashboard.HandleGetSession)).Methods("GET")
	v1readRouter.HandleFunc("/webhooks", wrap(dashboard.HandleListWebhooks)).Methods("GET")
	v1readRouter.HandleFunc("/webhooks/{id}/deliveries", wrap(dashboard.HandleListDeliveries)).Methods("GET")

	v1writeRouter := v1protectedRouter.NewRoute().Subrouter()
	v1writeRouter.Use(v1mware.RequireScope(scopeDashboardWrite))
	v1writeRouter.HandleFunc("/agents", wrap(dashboard.HandleCreateAgent)).Methods("POST")
	v1writeRouter.HandleFunc("/agents/{id}", wrap(dashboard.HandleUpdateAgent)).Methods("PUT")
	v1writeRouter.HandleFunc("/agents/{id}", wrap(dashboard.HandleDeleteAgent)).Methods("DELETE")
	v1writeRouter.HandleFunc("/sessions/{id}", wrap(dashboard.HandleDeleteSession)).Methods("DELETE")
	v1writeRouter.HandleFunc("/webhooks", wrap(dashboard.HandleCreateWebhook)).Methods("POST")
	v1writeRouter.HandleFunc("/webhooks/{id}", wrap(dashboard.HandleDeleteWebhook)).Methods("DELETE")
	v1writeRouter.HandleFunc("/webhooks/{id}/deliveries/{delivery_id}/retry", wrap(dashboard.HandleRetryDelivery)).Methods("POST")
}
