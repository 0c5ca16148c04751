package widget

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/formpilot/gateway/internal/api/v1/handlers/upstream"
	"github.com/formpilot/gateway/internal/api/v1/middleware"
	"github.com/formpilot/gateway/internal/config"
	"github.com/formpilot/gateway/internal/connections"
	"github.com/formpilot/gateway/internal/infrastructure/formapi"
	"github.com/formpilot/gateway/internal/services/conversation"
	"github.com/formpilot/gateway/pkg/httpext"
)

const frameResult = "result"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     checkOrigin,
}

// ResultFrame closes one relayed turn on the websocket
type ResultFrame struct {
	Type    string                     `json:"type"`
	Message *formapi.ChatMessage       `json:"message,omitempty"`
	State   *formapi.ConversationState `json:"state,omitempty"`
	Error   string                     `json:"error,omitempty"`
}

// checkOrigin allows same-origin requests and the origins listed in
// WIDGET_ALLOWED_ORIGINS. Requests without an Origin header come from
// non-browser clients and carry no ambient cookie risk.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	u, err := url.Parse(origin)
	if err == nil && u.Host != "" && strings.EqualFold(u.Host, r.Host) {
		return true
	}

	for _, a := range config.GetAllowedOrigins() {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	log.Warn().Str("origin", origin).Str("host", r.Host).Msg("Rejected widget websocket origin")
	return false
}

// HandleWebSocket relays visitor turns over a websocket. Each inbound frame is
// one turn; the chunks it produces are sent back as they arrive, followed by a
// result or error frame. The socket closes once the conversation finishes.
func HandleWebSocket(conversationService *conversation.Service, manager *connections.Manager, w http.ResponseWriter, r *http.Request) {
	visitor := middleware.GetVisitor(r)
	if visitor == nil {
		httpext.JsonError(w, "No active conversation", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("session_id", visitor.SessionID).Msg("WebSocket upgrade failed")
		return
	}
	manager.AddConnection(conn, visitor.SessionID)
	defer func() {
		manager.RemoveConnection(conn)
		conn.Close()
	}()

	if err := manager.PrepareConnection(conn); err != nil {
		return
	}
	timeouts := manager.GetTimeouts()

	var writeMu sync.Mutex
	done := make(chan struct{})
	defer close(done)
	go manager.KeepAlive(conn, &writeMu, done)

	writeFrame := func(v interface{}) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.SetWriteDeadline(time.Now().Add(timeouts.WriteWait)); err != nil {
			return err
		}
		return conn.WriteJSON(v)
	}

	log.Info().Str("session_id", visitor.SessionID).Msg("Widget websocket connected")

	// The request context outlives the hijacked connection, so turns run on a
	// context that ends when the socket stops reading.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	frames := make(chan []byte)
	go func() {
		defer cancel()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn().Err(err).Str("session_id", visitor.SessionID).Msg("Unexpected websocket closure")
				}
				return
			}
			select {
			case frames <- data:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		var data []byte
		select {
		case <-ctx.Done():
			return
		case data = <-frames:
		}

		var req MessageRequest
		if err := json.Unmarshal(data, &req); err != nil {
			_ = writeFrame(ResultFrame{Type: string(formapi.ChunkError), Error: "Invalid message frame"})
			continue
		}
		if err := httpext.Validate(&req); err != nil {
			_ = writeFrame(ResultFrame{Type: string(formapi.ChunkError), Error: err.Error()})
			continue
		}

		result, err := conversationService.SendStream(ctx, req.toSend(visitor.SessionID), func(chunk formapi.StreamingChunk) {
			_ = writeFrame(chunk)
		})
		if err != nil {
			if ctx.Err() != nil {
				log.Info().Str("session_id", visitor.SessionID).Msg("Widget websocket closed during a turn")
				return
			}
			if writeErr := writeFrame(ResultFrame{Type: string(formapi.ChunkError), Error: upstream.Message(err)}); writeErr != nil {
				return
			}
		} else {
			if writeErr := writeFrame(ResultFrame{Type: frameResult, Message: &result.Message, State: &result.State}); writeErr != nil {
				return
			}
			if result.State.IsFinished() {
				writeMu.Lock()
				_ = conn.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(result.State.Status)),
					time.Now().Add(timeouts.WriteWait),
				)
				writeMu.Unlock()
				return
			}
		}

		// The reader handles no pongs while it waits to hand over a frame
		if err := conn.SetReadDeadline(time.Now().Add(timeouts.PongWait)); err != nil {
			return
		}
	}
}
