// Package ws streams simulation lifecycle updates to WebSocket clients.
package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/simulator/internal/config"
	"github.com/xiaot623/gogo/simulator/internal/domain"
	"github.com/xiaot623/gogo/simulator/internal/hub"
	"github.com/xiaot623/gogo/simulator/internal/logging"
)

// StatusSource returns the projected status of a simulation.
type StatusSource interface {
	GetStatus(ctx context.Context, id string) (*domain.SimulationStatusView, error)
}

// Server handles WebSocket connections.
type Server struct {
	cfg      *config.Config
	hub      *hub.Hub
	status   StatusSource
	logger   *logging.Logger
	upgrader websocket.Upgrader
}

// NewServer creates a new WebSocket server.
func NewServer(cfg *config.Config, h *hub.Hub, status StatusSource, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Server{
		cfg:    cfg,
		hub:    h,
		status: status,
		logger: logger.WithComponent("ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleSimulation subscribes the client to updates of simulation :id.
// The current status is sent as the first frame.
func (s *Server) HandleSimulation(c echo.Context) error {
	id := c.Param("id")
	view, err := s.status.GetStatus(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "simulation not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	wsConn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Warn("failed to upgrade websocket", "simulation_id", id, "error", err)
		return nil
	}

	wsConn.SetReadLimit(s.cfg.WSMaxMessageSize)
	conn := s.hub.NewConnection(wsConn, id)

	// Queue the snapshot before subscribing so it is always the first frame.
	if err := s.hub.SendJSONToConnection(conn, domain.LiveMessage{
		Type:         domain.LiveMessageStatus,
		SimulationID: id,
		Ts:           time.Now().UnixMilli(),
		Data:         view,
	}); err != nil {
		s.logger.Warn("failed to send initial status", "simulation_id", id, "error", err)
	}
	if !s.hub.Register(conn) {
		wsConn.Close()
		return nil
	}

	go s.writePump(conn)
	go s.readPump(conn)
	return nil
}

// readPump drains client frames so control messages are processed.
func (s *Server) readPump(conn *hub.Connection) {
	defer func() {
		s.hub.Unregister(conn)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(s.cfg.WSReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.WSReadTimeout))
		return nil
	})

	for {
		if _, _, err := conn.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Warn("websocket read error", "connection_id", conn.ID, "error", err)
			}
			return
		}
	}
}

// writePump writes queued messages and keeps the connection alive with pings.
func (s *Server) writePump(conn *hub.Connection) {
	ticker := time.NewTicker(s.cfg.WSPingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WSWriteTimeout))
			if !ok {
				// Hub closed the channel
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.logger.Warn("failed to write message", "connection_id", conn.ID, "error", err)
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WSWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
