package websocket

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"critiq/auth"
	"critiq/logger"
	"critiq/metrics"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Events emitted to clients.
const (
	EventConnected      = "connected"
	EventJoined         = "joined"
	EventLeft           = "left"
	EventPong           = "pong"
	EventNewComment     = "new-comment"
	EventCommentUpdated = "comment-updated"
	EventCommentDeleted = "comment-deleted"
	EventNotification   = "notification"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 512
	sendBuffer     = 256
)

func UserRoom(userID string) string { return "user:" + userID }
func PostRoom(postID string) string { return "post:" + postID }

// Event is the envelope of every message sent to a client.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// TokenVerifier validates access tokens presented by connecting clients.
type TokenVerifier interface {
	VerifyAccess(token string) (*auth.AccessClaims, error)
}

type membership struct {
	client *Client
	room   string
}

type roomMessage struct {
	room string
	data []byte
}

// Manager tracks connected clients and the rooms they joined. All room
// bookkeeping happens on the Start goroutine.
type Manager struct {
	clients    map[*Client]bool
	rooms      map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	join       chan membership
	leave      chan membership
	ping       chan *Client
	emit       chan roomMessage
	done       chan struct{}
	stopOnce   sync.Once
	verifier   TokenVerifier
	mu         sync.RWMutex
}

type Client struct {
	conn    *websocket.Conn
	userID  string
	send    chan []byte
	rooms   map[string]bool
	manager *Manager
}

func NewManager(verifier TokenVerifier) *Manager {
	return &Manager{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan membership),
		leave:      make(chan membership),
		ping:       make(chan *Client),
		emit:       make(chan roomMessage, sendBuffer),
		done:       make(chan struct{}),
		verifier:   verifier,
	}
}

// Start runs the event loop until Stop is called.
func (m *Manager) Start() {
	for {
		select {
		case client := <-m.register:
			m.mu.Lock()
			m.clients[client] = true
			m.mu.Unlock()
			m.addToRoom(client, UserRoom(client.userID))
			client.trySend(mustMarshal(Event{Type: EventConnected, Payload: H{
				"userId": client.userID,
				"time":   time.Now().Unix(),
			}}))
			metrics.Get().WebSocketConnections.Inc()
			logger.Log.Debug("WebSocket client registered",
				logger.WithUserID(client.userID),
				zap.Int("clients", m.GetConnectedUsers()),
			)

		case client := <-m.unregister:
			m.remove(client)

		case msg := <-m.join:
			if _, ok := m.clients[msg.client]; ok {
				m.addToRoom(msg.client, msg.room)
				msg.client.trySend(mustMarshal(Event{Type: EventJoined, Payload: H{"room": msg.room}}))
			}

		case msg := <-m.leave:
			if _, ok := m.clients[msg.client]; ok {
				m.removeFromRoom(msg.client, msg.room)
				msg.client.trySend(mustMarshal(Event{Type: EventLeft, Payload: H{"room": msg.room}}))
			}

		case client := <-m.ping:
			if _, ok := m.clients[client]; ok {
				client.trySend(mustMarshal(Event{Type: EventPong, Payload: H{"time": time.Now().Unix()}}))
			}

		case msg := <-m.emit:
			for client := range m.rooms[msg.room] {
				if !client.trySend(msg.data) {
					m.remove(client)
				}
			}

		case <-m.done:
			m.mu.Lock()
			for client := range m.clients {
				delete(m.clients, client)
				close(client.send)
				metrics.Get().WebSocketConnections.Dec()
			}
			m.rooms = make(map[string]map[*Client]bool)
			m.mu.Unlock()
			return
		}
	}
}

// Stop ends the event loop and closes every client.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.done) })
}

// H is a shorthand for small JSON payloads.
type H = map[string]interface{}

func (m *Manager) addToRoom(client *Client, room string) {
	members, ok := m.rooms[room]
	if !ok {
		members = make(map[*Client]bool)
		m.rooms[room] = members
	}
	members[client] = true
	client.rooms[room] = true
}

func (m *Manager) removeFromRoom(client *Client, room string) {
	if members, ok := m.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(m.rooms, room)
		}
	}
	delete(client.rooms, room)
}

func (m *Manager) remove(client *Client) {
	m.mu.Lock()
	_, ok := m.clients[client]
	if ok {
		delete(m.clients, client)
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	for room := range client.rooms {
		m.removeFromRoom(client, room)
	}
	close(client.send)
	metrics.Get().WebSocketConnections.Dec()
	logger.Log.Debug("WebSocket client unregistered",
		logger.WithUserID(client.userID),
		zap.Int("clients", m.GetConnectedUsers()),
	)
}

// EmitToRoom sends event to every client in room. It never blocks the
// caller; when the hub is saturated the event is dropped.
func (m *Manager) EmitToRoom(room, event string, payload interface{}) {
	data, err := json.Marshal(Event{Type: event, Payload: payload})
	if err != nil {
		logger.Log.Error("Error marshaling WebSocket event", zap.String("event", event), zap.Error(err))
		return
	}

	select {
	case m.emit <- roomMessage{room: room, data: data}:
		metrics.Get().WebSocketEvents.WithLabelValues(event).Inc()
	case <-m.done:
	default:
		logger.Log.Warn("WebSocket hub saturated, dropping event",
			zap.String("event", event),
			zap.String("room", room),
		)
	}
}

// SendToUser sends event to every connection of userID.
func (m *Manager) SendToUser(userID, event string, payload interface{}) {
	m.EmitToRoom(UserRoom(userID), event, payload)
}

func (m *Manager) GetConnectedUsers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

func mustMarshal(v interface{}) []byte {
	data, _ := json.Marshal(v)
	return data
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// requestToken reads the access token from the query string, the
// accessToken cookie or the Authorization header.
func requestToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if cookie, err := r.Cookie("accessToken"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

func WebSocketHandler(manager *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := manager.verifier.VerifyAccess(requestToken(r))
		if err != nil {
			logger.Log.Debug("WebSocket connection rejected", zap.Error(err))
			http.Error(w, "Unauthorized request", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Log.Warn("WebSocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			conn:    conn,
			userID:  claims.ID,
			send:    make(chan []byte, sendBuffer),
			rooms:   make(map[string]bool),
			manager: manager,
		}

		select {
		case manager.register <- client:
		case <-manager.done:
			conn.Close()
			return
		}

		go client.writePump()
		go client.readPump()
	}
}

// trySend queues data without blocking. Only the hub goroutine calls it, so
// send is never written after it is closed.
func (c *Client) trySend(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// clientMessage is what clients send to the hub.
type clientMessage struct {
	Type string `json:"type"`
	Room string `json:"room"`
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.manager.unregister <- c:
		case <-c.manager.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Debug("WebSocket read error", logger.WithUserID(c.userID), zap.Error(err))
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "join", "leave":
			if !joinable(msg.Room) {
				continue
			}
			ch := c.manager.join
			if msg.Type == "leave" {
				ch = c.manager.leave
			}
			select {
			case ch <- membership{client: c, room: msg.Room}:
			case <-c.manager.done:
				return
			}
		case "ping":
			select {
			case c.manager.ping <- c:
			case <-c.manager.done:
				return
			}
		}
	}
}

// joinable reports whether clients may join room. User rooms are assigned
// by the server.
func joinable(room string) bool {
	id, ok := strings.CutPrefix(room, "post:")
	return ok && primitive.IsValidObjectID(id)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
