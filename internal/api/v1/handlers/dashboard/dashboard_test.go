package dashboard

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formpilot/gateway/internal/infrastructure/formapi"
)

type backendCall struct {
	method string
	path   string
	query  string
	body   string
}

func newDashboardRouter(t *testing.T, status int, response string) (*mux.Router, *[]backendCall) {
	t.Helper()
	var calls []backendCall
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		calls = append(calls, backendCall{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, body: string(body)})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(backend.Close)

	client, err := formapi.NewClient(formapi.Config{BaseURL: backend.URL, Token: "svc"})
	require.NoError(t, err)

	wrap := func(h func(*formapi.Client, http.ResponseWriter, *http.Request)) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) { h(client, w, r) }
	}
	router := mux.NewRouter()
	router.HandleFunc("/v1/agents", wrap(HandleListAgents)).Methods(http.MethodGet)
	router.HandleFunc("/v1/agents", wrap(HandleCreateAgent)).Methods(http.MethodPost)
	router.HandleFunc("/v1/agents/{id}", wrap(HandleGetAgent)).Methods(http.MethodGet)
	router.HandleFunc("/v1/agents/{id}", wrap(HandleUpdateAgent)).Methods(http.MethodPut)
	router.HandleFunc("/v1/agents/{id}", wrap(HandleDeleteAgent)).Methods(http.MethodDelete)
	router.HandleFunc("/v1/sessions", wrap(HandleListSessions)).Methods(http.MethodGet)
	router.HandleFunc("/v1/sessions/{id}", wrap(HandleGetSession)).Methods(http.MethodGet)
	router.HandleFunc("/v1/sessions/{id}", wrap(HandleDeleteSession)).Methods(http.MethodDelete)
	router.HandleFunc("/v1/webhooks", wrap(HandleListWebhooks)).Methods(http.MethodGet)
	router.HandleFunc("/v1/webhooks", wrap(HandleCreateWebhook)).Methods(http.MethodPost)
	router.HandleFunc("/v1/webhooks/{id}", wrap(HandleDeleteWebhook)).Methods(http.MethodDelete)
	router.HandleFunc("/v1/webhooks/{id}/deliveries", wrap(HandleListDeliveries)).Methods(http.MethodGet)
	router.HandleFunc("/v1/webhooks/{id}/deliveries/{delivery_id}/retry", wrap(HandleRetryDelivery)).Methods(http.MethodPost)
	return router, &calls
}

func TestDashboardPassthrough(t *testing.T) {
	tests := []struct {
		name            string
		method          string
		path            string
		body            string
		backendResponse string
		expectedStatus  int
		expectedCall    backendCall
	}{
		{
			name:            "list agents",
			method:          http.MethodGet,
			path:            "/v1/agents",
			backendResponse: `[]`,
			expectedStatus:  http.StatusOK,
			expectedCall:    backendCall{method: http.MethodGet, path: "/agents"},
		},
		{
			name:            "create agent",
			method:          http.MethodPost,
			path:            "/v1/agents",
			body:            `{"name":"Lead intake","fields":[{"key":"email","label":"Email","type":"email","required":true}]}`,
			backendResponse: `{"id":"agent-1","name":"Lead intake"}`,
			expectedStatus:  http.StatusCreated,
			expectedCall:    backendCall{method: http.MethodPost, path: "/agents"},
		},
		{
			name:            "update agent",
			method:          http.MethodPut,
			path:            "/v1/agents/agent-1",
			body:            `{"name":"Renamed","fields":[],"status":"published"}`,
			backendResponse: `{"id":"agent-1","name":"Renamed"}`,
			expectedStatus:  http.StatusOK,
			expectedCall:    backendCall{method: http.MethodPut, path: "/agents/agent-1"},
		},
		{
			name:           "delete session",
			method:         http.MethodDelete,
			path:           "/v1/sessions/sess-1",
			expectedStatus: http.StatusNoContent,
			expectedCall:   backendCall{method: http.MethodDelete, path: "/sessions/sess-1"},
		},
		{
			name:            "list sessions with filters",
			method:          http.MethodGet,
			path:            "/v1/sessions?agent_id=agent-1&status=completed&limit=10",
			backendResponse: `{"items":[],"total":0}`,
			expectedStatus:  http.StatusOK,
			expectedCall:    backendCall{method: http.MethodGet, path: "/sessions", query: "agent_id=agent-1&limit=10&status=completed"},
		},
		{
			name:            "create webhook",
			method:          http.MethodPost,
			path:            "/v1/webhooks",
			body:            `{"url":"https://hooks.example.com/formpilot","events":["session.completed"]}`,
			backendResponse: `{"id":"wh-1","url":"https://hooks.example.com/formpilot","events":["session.completed"],"active":true}`,
			expectedStatus:  http.StatusCreated,
			expectedCall:    backendCall{method: http.MethodPost, path: "/webhooks"},
		},
		{
			name:            "list deliveries",
			method:          http.MethodGet,
			path:            "/v1/webhooks/wh-1/deliveries",
			backendResponse: `[{"id":"dlv-1","webhook_id":"wh-1","event":"session.completed","status":"failed","attempts":5}]`,
			expectedStatus:  http.StatusOK,
			expectedCall:    backendCall{method: http.MethodGet, path: "/webhooks/wh-1/deliveries"},
		},
		{
			name:            "retry delivery",
			method:          http.MethodPost,
			path:            "/v1/webhooks/wh-1/deliveries/dlv-1/retry",
			backendResponse: `{"id":"dlv-1","webhook_id":"wh-1","status":"pending","attempts":5}`,
			expectedStatus:  http.StatusAccepted,
			expectedCall:    backendCall{method: http.MethodPost, path: "/webhooks/wh-1/deliveries/dlv-1/retry"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := http.StatusOK
			if tt.expectedStatus == http.StatusNoContent {
				status = http.StatusNoContent
			}
			router, calls := newDashboardRouter(t, status, tt.backendResponse)

			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			require.Len(t, *calls, 1)
			got := (*calls)[0]
			assert.Equal(t, tt.expectedCall.method, got.method)
			assert.Equal(t, tt.expectedCall.path, got.path)
			assert.Equal(t, tt.expectedCall.query, got.query)
			if tt.body != "" {
				assert.JSONEq(t, tt.body, got.body)
			}
		})
	}
}

func TestDashboardValidation(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{name: "agent without name", method: http.MethodPost, path: "/v1/agents", body: `{"fields":[]}`},
		{name: "agent field without key", method: http.MethodPost, path: "/v1/agents", body: `{"name":"x","fields":[{"label":"Email"}]}`},
		{name: "agent with unknown status", method: http.MethodPut, path: "/v1/agents/agent-1", body: `{"name":"x","status":"live"}`},
		{name: "webhook with bad url", method: http.MethodPost, path: "/v1/webhooks", body: `{"url":"not a url","events":["session.completed"]}`},
		{name: "webhook with unknown event", method: http.MethodPost, path: "/v1/webhooks", body: `{"url":"https://x.example.com","events":["billing.paid"]}`},
		{name: "sessions with bad status", method: http.MethodGet, path: "/v1/sessions?status=open"},
		{name: "sessions with bad limit", method: http.MethodGet, path: "/v1/sessions?limit=ten"},
		{name: "sessions with large limit", method: http.MethodGet, path: "/v1/sessions?limit=1000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, calls := newDashboardRouter(t, http.StatusOK, `{}`)

			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Empty(t, *calls, "invalid requests never reach the backend")
		})
	}
}

func TestDashboardPreservesBackendStatus(t *testing.T) {
	router, _ := newDashboardRouter(t, http.StatusNotFound, `{"error":"not_found","message":"Agent not found"}`)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/agents/missing", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "not_found", body["error"])
	assert.Equal(t, "Agent not found", body["error_description"])
}
