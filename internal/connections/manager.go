package connections

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// TimeoutConfig holds the various timeout settings for WebSocket connections
type TimeoutConfig struct {
	PongWait   time.Duration
	PingPeriod time.Duration
	WriteWait  time.Duration
}

// Manager tracks live widget WebSocket connections and the conversation each one relays
type Manager struct {
	connections sync.Map // *websocket.Conn -> sessionID
	timeouts    TimeoutConfig
}

var DefaultTimeouts = TimeoutConfig{
	PongWait:   30 * time.Second,
	PingPeriod: 27 * time.Second, // (PongWait * 9) / 10
	WriteWait:  10 * time.Second,
}

func NewManager(timeouts TimeoutConfig) *Manager {
	return &Manager{
		timeouts: timeouts,
	}
}

// AddConnection registers a connection relaying sessionID
func (m *Manager) AddConnection(conn *websocket.Conn, sessionID string) {
	m.connections.Store(conn, sessionID)
}

func (m *Manager) RemoveConnection(conn *websocket.Conn) {
	m.connections.Delete(conn)
}

func (m *Manager) GetConnectionCount() int {
	count := 0
	m.connections.Range(func(key, value interface{}) bool {
		count++
		return true
	})
	return count
}

// SessionConnectionCount returns how many connections relay sessionID
func (m *Manager) SessionConnectionCount(sessionID string) int {
	count := 0
	m.connections.Range(func(_, value interface{}) bool {
		if value.(string) == sessionID {
			count++
		}
		return true
	})
	return count
}

func (m *Manager) HasConnection(conn *websocket.Conn) bool {
	_, exists := m.connections.Load(conn)
	return exists
}

func (m *Manager) GetTimeouts() TimeoutConfig {
	return m.timeouts
}

func (m *Manager) SetTimeouts(timeouts TimeoutConfig) {
	m.timeouts = timeouts
}

// PrepareConnection installs the read deadline and pong handler on conn
func (m *Manager) PrepareConnection(conn *websocket.Conn) error {
	if err := conn.SetReadDeadline(time.Now().Add(m.timeouts.PongWait)); err != nil {
		return err
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(m.timeouts.PongWait))
	})
	return nil
}

// KeepAlive pings conn every PingPeriod until done is closed or a ping fails.
// Writes are serialized through writeMu, shared with the connection's other writers.
func (m *Manager) KeepAlive(conn *websocket.Conn, writeMu *sync.Mutex, done <-chan struct{}) {
	ticker := time.NewTicker(m.timeouts.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(m.timeouts.WriteWait))
			writeMu.Unlock()
			if err != nil {
				log.Debug().Err(err).Msg("WebSocket ping failed")
				return
			}
		}
	}
}

// CloseAll sends a going-away close frame to every tracked connection
func (m *Manager) CloseAll() {
	m.connections.Range(func(key, _ interface{}) bool {
		conn := key.(*websocket.Conn)
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(m.timeouts.WriteWait),
		)
		_ = conn.Close()
		m.connections.Delete(key)
		return true
	})
}
