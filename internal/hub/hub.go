// Package hub fans simulation lifecycle updates out to WebSocket subscribers.
package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/xiaot623/gogo/simulator/internal/logging"
)

// Connection represents a single WebSocket subscriber of one simulation.
type Connection struct {
	ID           string
	SimulationID string
	Conn         *websocket.Conn
	Send         chan []byte
	mu           sync.Mutex
}

// topicMessage is a payload for every subscriber of a simulation.
type topicMessage struct {
	SimulationID string
	Data         []byte
}

// Hub manages subscriptions. Registration, unregistration and delivery are
// all serialized through Run.
type Hub struct {
	connections map[string]*Connection
	topics      map[string]map[string]bool

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *topicMessage
	done       chan struct{}

	logger *logging.Logger
	mu     sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub(logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Hub{
		connections: make(map[string]*Connection),
		topics:      make(map[string]map[string]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		broadcast:   make(chan *topicMessage, 256),
		done:        make(chan struct{}),
		logger:      logger.WithComponent("hub"),
	}
}

// Run starts the hub's main loop and returns when ctx is done.
// All subscriber channels are closed on exit.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		h.mu.Lock()
		for id, conn := range h.connections {
			close(conn.Send)
			delete(h.connections, id)
		}
		h.topics = make(map[string]map[string]bool)
		h.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.connections[conn.ID] = conn
			if h.topics[conn.SimulationID] == nil {
				h.topics[conn.SimulationID] = make(map[string]bool)
			}
			h.topics[conn.SimulationID][conn.ID] = true
			h.mu.Unlock()
			h.logger.Debug("subscriber registered", "connection_id", conn.ID, "simulation_id", conn.SimulationID)

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.connections[conn.ID]; ok {
				delete(h.connections, conn.ID)
				if subs := h.topics[conn.SimulationID]; subs != nil {
					delete(subs, conn.ID)
					if len(subs) == 0 {
						delete(h.topics, conn.SimulationID)
					}
				}
				close(conn.Send)
			}
			h.mu.Unlock()
			h.logger.Debug("subscriber unregistered", "connection_id", conn.ID, "simulation_id", conn.SimulationID)

		case msg := <-h.broadcast:
			h.mu.RLock()
			for connID := range h.topics[msg.SimulationID] {
				conn, exists := h.connections[connID]
				if !exists {
					continue
				}
				select {
				case conn.Send <- msg.Data:
				default:
					h.logger.Warn("subscriber buffer full, closing", "connection_id", connID, "simulation_id", msg.SimulationID)
					go h.Unregister(conn)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// NewConnection creates a connection subscribed to simulationID. It must be
// passed to Register before it receives anything.
func (h *Hub) NewConnection(ws *websocket.Conn, simulationID string) *Connection {
	return &Connection{
		ID:           uuid.New().String(),
		SimulationID: simulationID,
		Conn:         ws,
		Send:         make(chan []byte, 256),
	}
}

// Register registers a connection with the hub. It reports false when the
// hub has stopped.
func (h *Hub) Register(conn *Connection) bool {
	select {
	case h.register <- conn:
		return true
	case <-h.done:
		return false
	}
}

// Unregister unregisters a connection from the hub.
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Publish queues data for every subscriber of simulationID. It never blocks;
// when the queue is full the message is dropped.
func (h *Hub) Publish(simulationID string, data []byte) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.broadcast <- &topicMessage{SimulationID: simulationID, Data: data}:
		return true
	default:
		h.logger.Warn("broadcast queue full, dropping message", "simulation_id", simulationID)
		return false
	}
}

// PublishJSON encodes v and publishes it to subscribers of simulationID.
func (h *Hub) PublishJSON(simulationID string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Publish(simulationID, data)
	return nil
}

// SendJSONToConnection sends a JSON message to a specific connection.
func (h *Hub) SendJSONToConnection(conn *Connection, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case conn.Send <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// SubscriberCount returns the number of subscribers of simulationID.
func (h *Hub) SubscriberCount(simulationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[simulationID])
}

// WriteMessage writes a message to the connection with proper locking.
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

// SetWriteDeadline sets the write deadline for the connection.
func (c *Connection) SetWriteDeadline(t time.Time) error {
	return c.Conn.SetWriteDeadline(t)
}

// SetReadDeadline sets the read deadline for the connection.
func (c *Connection) SetReadDeadline(t time.Time) error {
	return c.Conn.SetReadDeadline(t)
}

// Close closes the underlying connection.
func (c *Connection) Close() error {
	return c.Conn.Close()
}

// ErrBufferFull is returned when the send buffer is full.
var ErrBufferFull = &BufferFullError{}

// BufferFullError represents a buffer full error.
type BufferFullError struct{}

func (e *BufferFullError) Error() string {
	return "send buffer full"
}
