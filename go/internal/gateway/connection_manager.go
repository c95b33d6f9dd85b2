package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/pixelguess/go/internal/game"
	"github.com/mcdev12/pixelguess/go/internal/game/actors"
	"github.com/mcdev12/pixelguess/go/internal/session"
	"github.com/rs/zerolog/log"
)

// ConnectionManager manages WebSocket connections for game sessions
type ConnectionManager struct {
	// Connection pools organized by session ID
	sessionConnections map[uuid.UUID]map[*Connection]bool
	mu                 sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
	registry *actors.Registry

	broadcastCh chan BroadcastMessage
}

// Connection represents a WebSocket connection to a client
type Connection struct {
	ID      string
	Session *session.Session
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	ConnectedAt time.Time

	closeOnce sync.Once
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	CommandTimeout  time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// BroadcastMessage represents a message to broadcast to connections
type BroadcastMessage struct {
	SessionID uuid.UUID
	Event     *GameEvent
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		CommandTimeout:  5 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig, registry *actors.Registry) *ConnectionManager {
	return &ConnectionManager{
		sessionConnections: make(map[uuid.UUID]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		registry:    registry,
		broadcastCh: make(chan BroadcastMessage, 1000),
	}
}

// Start begins processing broadcast messages
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// SnapshotChanged queues the new snapshot for every connection of the session.
// It is called on the session's coordinator goroutine and never blocks.
func (cm *ConnectionManager) SnapshotChanged(sessionID uuid.UUID, ev game.Event, snap game.Snapshot) {
	event, err := cm.snapshotEvent(sessionID, snap)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to build snapshot event")
		return
	}
	event.Cause = string(ev.Type())
	cm.BroadcastToSession(sessionID, event)
}

// SessionClosed disconnects every client of a session that has ended.
func (cm *ConnectionManager) SessionClosed(sessionID uuid.UUID) {
	cm.mu.RLock()
	connections := make([]*Connection, 0, len(cm.sessionConnections[sessionID]))
	for conn := range cm.sessionConnections[sessionID] {
		connections = append(connections, conn)
	}
	cm.mu.RUnlock()

	for _, conn := range connections {
		conn.close()
	}

	if len(connections) > 0 {
		log.Info().
			Str("session_id", sessionID.String()).
			Int("connections", len(connections)).
			Msg("closed connections of ended session")
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket and attaches it to sess
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		Session:     sess,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
	}

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	// The session may have ended between lookup and registration, in which
	// case SessionClosed has already run.
	select {
	case <-sess.Done():
		connection.close()
		return nil
	default:
	}

	// Bring the new client up to date before the next change arrives.
	if event, err := cm.snapshotEvent(sess.ID, sess.Snapshot()); err == nil {
		connection.send(event)
	}

	log.Info().
		Str("connection_id", connection.ID).
		Str("session_id", sess.ID.String()).
		Msg("WebSocket connection established")

	return nil
}

func (cm *ConnectionManager) snapshotEvent(sessionID uuid.UUID, snap game.Snapshot) (*GameEvent, error) {
	return newGameEvent(EventTypeSnapshot, sessionID.String(), NewSnapshotView(cm.registry, snap))
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	id := conn.Session.ID
	if cm.sessionConnections[id] == nil {
		cm.sessionConnections[id] = make(map[*Connection]bool)
	}
	cm.sessionConnections[id][conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Str("session_id", id.String()).
		Int("total_connections", len(cm.sessionConnections[id])).
		Msg("connection registered")
}

func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	id := conn.Session.ID
	if connections, exists := cm.sessionConnections[id]; exists {
		if _, exists := connections[conn]; exists {
			delete(connections, conn)
			close(conn.Send)

			if len(connections) == 0 {
				delete(cm.sessionConnections, id)
			}

			log.Info().
				Str("connection_id", conn.ID).
				Str("session_id", id.String()).
				Msg("connection unregistered")
		}
	}
}

// BroadcastToSession sends an event to all connections of a session
func (cm *ConnectionManager) BroadcastToSession(sessionID uuid.UUID, event *GameEvent) {
	select {
	case cm.broadcastCh <- BroadcastMessage{SessionID: sessionID, Event: event}:
	default:
		log.Warn().Str("session_id", sessionID.String()).Msg("broadcast channel full, dropping message")
	}
}

func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	cm.mu.RLock()
	connections, exists := cm.sessionConnections[message.SessionID]
	if !exists {
		cm.mu.RUnlock()
		return
	}

	targetConnections := make([]*Connection, 0, len(connections))
	for conn := range connections {
		targetConnections = append(targetConnections, conn)
	}
	cm.mu.RUnlock()

	eventData, err := json.Marshal(message.Event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	for _, conn := range targetConnections {
		conn.sendRaw(eventData)
	}

	log.Debug().
		Str("event_type", string(message.Event.Type)).
		Str("cause", message.Event.Cause).
		Str("session_id", message.SessionID.String()).
		Int("connections", len(targetConnections)).
		Msg("event broadcasted")
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := ConnectionStats{
		ActiveSessions:     len(cm.sessionConnections),
		SessionConnections: make(map[string]int, len(cm.sessionConnections)),
	}
	for id, connections := range cm.sessionConnections {
		stats.TotalConnections += len(connections)
		stats.SessionConnections[id.String()] = len(connections)
	}
	return stats
}

// ConnectionStats summarises the open connections.
type ConnectionStats struct {
	TotalConnections   int            `json:"total_connections"`
	ActiveSessions     int            `json:"active_sessions"`
	SessionConnections map[string]int `json:"session_connections"`
}

func (c *Connection) send(event *GameEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to marshal event")
		return
	}
	c.sendRaw(data)
}

// sendRaw queues data for the write pump; a full buffer means the client is
// too slow and the connection is dropped.
func (c *Connection) sendRaw(data []byte) {
	c.Manager.mu.RLock()
	_, alive := c.Manager.sessionConnections[c.Session.ID][c]
	if alive {
		select {
		case c.Send <- data:
			c.Manager.mu.RUnlock()
			return
		default:
		}
	}
	c.Manager.mu.RUnlock()

	if alive {
		log.Warn().Str("connection_id", c.ID).Msg("connection send buffer full, closing connection")
		c.close()
	}
}

func (c *Connection) close() {
	c.closeOnce.Do(func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	})
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump handles reading commands from the WebSocket connection
func (c *Connection) readPump() {
	defer c.close()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

// handleClientMessage runs one client command against the session
func (c *Connection) handleClientMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.sendError(fmt.Errorf("invalid message: %w", err))
		return
	}

	log.Debug().
		Str("connection_id", c.ID).
		Str("session_id", c.Session.ID.String()).
		Str("command", string(msg.Type)).
		Msg("received client command")

	ctx, cancel := context.WithTimeout(context.Background(), c.Manager.config.CommandTimeout)
	defer cancel()

	var err error
	switch msg.Type {
	case ClientMessageReset:
		err = c.Session.Reset(ctx)
	case ClientMessageChoose:
		err = c.Session.Choose(ctx, msg.Actor)
	default:
		err = fmt.Errorf("unknown command %q", msg.Type)
	}

	if err != nil {
		if !errors.Is(err, context.DeadlineExceeded) {
			log.Debug().Err(err).Str("connection_id", c.ID).Msg("client command rejected")
		} else {
			log.Warn().Err(err).Str("connection_id", c.ID).Msg("client command timed out")
		}
		c.sendError(err)
	}
}

func (c *Connection) sendError(err error) {
	event, buildErr := newGameEvent(EventTypeError, c.Session.ID.String(), ErrorPayload{Message: err.Error()})
	if buildErr != nil {
		return
	}
	c.send(event)
}
