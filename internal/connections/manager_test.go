package connections

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager(t *testing.T) {
	t.Run("add and remove connection", func(t *testing.T) {
		manager := NewManager(DefaultTimeouts)
		conn := &websocket.Conn{}

		manager.AddConnection(conn, "sess-1")
		assert.True(t, manager.HasConnection(conn))
		assert.Equal(t, 1, manager.SessionConnectionCount("sess-1"))

		manager.RemoveConnection(conn)
		assert.False(t, manager.HasConnection(conn))
		assert.Equal(t, 0, manager.GetConnectionCount())
	})

	t.Run("concurrent connection operations", func(t *testing.T) {
		manager := NewManager(DefaultTimeouts)
		concurrentOps := 100
		var wg sync.WaitGroup
		wg.Add(concurrentOps)

		conns := make([]*websocket.Conn, concurrentOps)
		for i := range conns {
			conns[i] = &websocket.Conn{}
		}
		for i, conn := range conns {
			sessionID := "even"
			if i%2 == 1 {
				sessionID = "odd"
			}
			go func(conn *websocket.Conn, sessionID string) {
				defer wg.Done()
				manager.AddConnection(conn, sessionID)
			}(conn, sessionID)
		}
		wg.Wait()

		assert.Equal(t, concurrentOps, manager.GetConnectionCount())
		assert.Equal(t, concurrentOps/2, manager.SessionConnectionCount("odd"))

		for _, conn := range conns {
			manager.RemoveConnection(conn)
		}
		assert.Equal(t, 0, manager.GetConnectionCount())
	})

	t.Run("timeout configuration", func(t *testing.T) {
		customTimeouts := TimeoutConfig{
			PongWait:   1 * time.Minute,
			PingPeriod: 54 * time.Second,
			WriteWait:  20 * time.Second,
		}
		manager := NewManager(customTimeouts)
		assert.Equal(t, customTimeouts, manager.GetTimeouts())

		newTimeouts := TimeoutConfig{
			PongWait:   2 * time.Minute,
			PingPeriod: 108 * time.Second,
			WriteWait:  30 * time.Second,
		}
		manager.SetTimeouts(newTimeouts)
		assert.Equal(t, newTimeouts, manager.GetTimeouts())
	})
}

func dialTestServer(t *testing.T, handler http.HandlerFunc) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestKeepAliveSendsPings(t *testing.T) {
	manager := NewManager(TimeoutConfig{
		PongWait:   time.Second,
		PingPeriod: 20 * time.Millisecond,
		WriteWait:  time.Second,
	})
	upgrader := websocket.Upgrader{}
	done := make(chan struct{})

	client := dialTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		var writeMu sync.Mutex
		manager.KeepAlive(conn, &writeMu, done)
	})

	pinged := make(chan struct{}, 1)
	client.SetPingHandler(func(string) error {
		select {
		case pinged <- struct{}{}:
		default:
		}
		return nil
	})
	go func() {
		for {
			if _, _, err := client.ReadMessage(); err != nil {
				return
			}
		}
	}()

	select {
	case <-pinged:
	case <-time.After(2 * time.Second):
		t.Fatal("no ping received")
	}
	close(done)
}

func TestCloseAll(t *testing.T) {
	manager := NewManager(DefaultTimeouts)
	upgrader := websocket.Upgrader{}
	registered := make(chan struct{})

	client := dialTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		manager.AddConnection(conn, "sess-1")
		close(registered)
	})

	<-registered
	manager.CloseAll()
	assert.Equal(t, 0, manager.GetConnectionCount())

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := client.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway))
}
