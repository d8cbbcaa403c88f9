package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/chess-arena/chessarena/internal/events"
)

// ConnectionManager fans match events out to the WebSocket connections
// watching each match.
type ConnectionManager struct {
	matchConnections map[uuid.UUID]map[*Connection]bool
	mu               sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	broadcastCh chan broadcast
}

// Connection is one client subscribed to one match.
type Connection struct {
	ID      string
	UserID  string
	MatchID uuid.UUID
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	ConnectedAt time.Time
	LastPing    time.Time
}

// ConnectionConfig holds WebSocket connection settings.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

type broadcast struct {
	MatchID uuid.UUID
	Event   *events.Envelope
}

// DefaultConnectionConfig returns default WebSocket settings.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		matchConnections: make(map[uuid.UUID]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan broadcast, 1000),
	}
}

// Start processes broadcast messages until ctx is cancelled.
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

// UpgradeConnection upgrades an HTTP request to a WebSocket subscription on
// one match.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, userID string, matchID uuid.UUID) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		UserID:      userID,
		MatchID:     matchID,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
	}

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("user_id", userID).
		Str("match_id", matchID.String()).
		Msg("WebSocket connection established")

	return nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.matchConnections[conn.MatchID] == nil {
		cm.matchConnections[conn.MatchID] = make(map[*Connection]bool)
	}
	cm.matchConnections[conn.MatchID][conn] = true
}

func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if connections, exists := cm.matchConnections[conn.MatchID]; exists {
		if _, exists := connections[conn]; exists {
			delete(connections, conn)
			close(conn.Send)

			if len(connections) == 0 {
				delete(cm.matchConnections, conn.MatchID)
			}

			log.Info().
				Str("connection_id", conn.ID).
				Str("match_id", conn.MatchID.String()).
				Msg("connection unregistered")
		}
	}
}

// BroadcastToMatch queues an event for every connection watching the match.
func (cm *ConnectionManager) BroadcastToMatch(matchID uuid.UUID, env *events.Envelope) {
	select {
	case cm.broadcastCh <- broadcast{MatchID: matchID, Event: env}:
	default:
		log.Warn().Str("match_id", matchID.String()).Msg("broadcast channel full, dropping message")
	}
}

func (cm *ConnectionManager) handleBroadcast(message broadcast) {
	cm.mu.RLock()
	connections, exists := cm.matchConnections[message.MatchID]
	if !exists {
		cm.mu.RUnlock()
		return
	}

	targets := make([]*Connection, 0, len(connections))
	for conn := range connections {
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	data, err := json.Marshal(message.Event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	for _, conn := range targets {
		select {
		case conn.Send <- data:
		default:
			// Connection is slow or dead, close it.
			log.Warn().
				Str("connection_id", conn.ID).
				Msg("connection send buffer full, closing connection")
			cm.unregisterConnection(conn)
			conn.Conn.Close()
		}
	}

	log.Debug().
		Str("event_type", message.Event.EventType).
		Str("match_id", message.MatchID.String()).
		Int("connections", len(targets)).
		Msg("event broadcasted")
}

// Stats reports active connection counts per match.
func (cm *ConnectionManager) Stats() (total int, matches int) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	for _, connections := range cm.matchConnections {
		total += len(connections)
	}
	return total, len(cm.matchConnections)
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
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
				log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			c.LastPing = time.Now()
		}
	}
}

func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		c.LastPing = time.Now()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("connection_id", c.ID).Msg("unexpected WebSocket close error")
			}
			break
		}

		// The stream is one-way; client frames are logged and ignored.
		log.Debug().
			Str("connection_id", c.ID).
			Str("user_id", c.UserID).
			RawJSON("message", message).
			Msg("received client message")
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
