package studio

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// 개발용 - 모든 origin 허용
		return true
	},
}

// Client - 세션 상태 구독자
type Client struct {
	conn      *websocket.Conn
	id        string
	sessionID string
	send      chan []byte
}

// addClient - 구독자 등록 후 현재 상태 전송
func (s *Session) addClient(client *Client, metrics *ServerMetrics) {
	s.mu.Lock()
	if previous, exists := s.clients[client.id]; exists && previous != client {
		close(previous.send)
		log.Printf("🔁 Client %s reconnected to session %s, closing previous connection", client.id, s.orch.ID())
	}
	s.clients[client.id] = client
	clientCount := len(s.clients)
	s.mu.Unlock()

	metrics.mutex.Lock()
	metrics.TotalConnections++
	total := metrics.TotalConnections
	metrics.mutex.Unlock()

	log.Printf("👤 Client %s joined session %s (Clients: %d, Total Connections: %d)",
		client.id, s.orch.ID(), clientCount, total)

	s.sendState(client)
}

// removeClient - 구독 해제 (같은 ID로 재접속한 연결은 유지)
func (s *Session) removeClient(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, exists := s.clients[client.id]; exists && current == client {
		close(client.send)
		delete(s.clients, client.id)
		log.Printf("👋 Client %s left session %s (Remaining: %d)", client.id, s.orch.ID(), len(s.clients))
	}
}

// sendState - 한 구독자에게 현재 상태 전송
func (s *Session) sendState(client *Client) {
	snap := s.orch.Snapshot()
	messageBytes, err := json.Marshal(Message{Type: "snapshot", SessionID: snap.SessionID, State: &snap})
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if current, exists := s.clients[client.id]; !exists || current != client {
		return
	}
	select {
	case client.send <- messageBytes:
	default:
		log.Printf("⚠️  Client %s send buffer full, skipping state", client.id)
	}
}

// HandleWebSocket - GET /ws?session=<id>&client=<id>
func (m *Manager) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	clientID := r.URL.Query().Get("client")
	if sessionID == "" {
		http.Error(w, "Missing session parameter", http.StatusBadRequest)
		return
	}

	session, err := m.Get(sessionID)
	if err != nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	if clientID == "" {
		clientID = conn.RemoteAddr().String()
	}

	client := &Client{
		conn:      conn,
		id:        clientID,
		sessionID: sessionID,
		send:      make(chan []byte, 256),
	}

	log.Printf("🔍 New WebSocket connection - Session: %s, Client: %s", sessionID, clientID)

	session.addClient(client, m.metrics)

	go client.writePump()
	go client.readPump(session)
}

// readPump - 클라이언트 메시지 수신 (상태 재요청만 처리)
func (c *Client) readPump(session *Session) {
	defer func() {
		session.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var message Message
		if err := c.conn.ReadJSON(&message); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		switch message.Type {
		case "request_state":
			session.sendState(c)
		default:
			log.Printf("Ignoring message type '%s' from client %s", message.Type, c.id)
		}
	}
}

// writePump - 클라이언트로 메시지 전송 + ping
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("WebSocket write error: %v", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
