package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	maxStreamConns = 8
	streamBacklog  = 50 // catch-up events sent on connect
	writeWait      = 10 * time.Second
	pingEvery      = 15 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true }, // CORS handled at HTTP layer
}

// handleStream upgrades to a websocket and pushes world events as they
// happen, newest last. The client gets a short backlog first so a
// fresh viewer is not staring at a blank feed.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	current := atomic.AddInt32(&s.streamConns, 1)
	if current > maxStreamConns {
		atomic.AddInt32(&s.streamConns, -1)
		http.Error(w, "too many stream connections", http.StatusServiceUnavailable)
		return
	}
	defer atomic.AddInt32(&s.streamConns, -1)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("stream upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	clientID := uuid.NewString()
	subID, ch, backlog := s.Eng.Subscribe(streamBacklog)
	defer s.Eng.Unsubscribe(subID)

	slog.Info("stream client connected", "client", clientID, "backlog", len(backlog))

	for _, e := range backlog {
		if err := writeEvent(conn, e); err != nil {
			return
		}
	}

	// Reader goroutine: the client sends nothing we care about, but
	// reading is how gorilla surfaces close frames and pongs.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	heartbeat := time.NewTicker(pingEvery)
	defer heartbeat.Stop()

	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return
			}
			if err := writeEvent(conn, e); err != nil {
				slog.Info("stream client dropped", "client", clientID)
				return
			}
		case <-heartbeat.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			slog.Info("stream client disconnected", "client", clientID)
			return
		}
	}
}

func writeEvent(conn *websocket.Conn, e any) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}
