package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/items-api/internal/model"
)

// WebSocket configuration constants.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 32
)

// eventClient is a connected event feed subscriber.
type eventClient struct {
	send   chan model.ItemEvent
	cancel context.CancelFunc
}

// EventHub streams item events to WebSocket subscribers.
type EventHub struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger
	mu       sync.RWMutex
	clients  map[*websocket.Conn]*eventClient
}

// NewEventHub creates a new EventHub instance.
func NewEventHub(logger *zap.Logger) *EventHub {
	return &EventHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
		logger:  logger,
		clients: make(map[*websocket.Conn]*eventClient),
	}
}

// RegisterRoutes registers the WebSocket routes with the router.
func (h *EventHub) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/ws", h.HandleWebSocket).Methods(http.MethodGet)
}

// HandleWebSocket upgrades the connection and subscribes it to item events.
//
//nolint:contextcheck // the subscription outlives the upgrade request
func (h *EventHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}

	// The request context ends when this handler returns.
	ctx, cancel := context.WithCancel(context.Background())
	client := &eventClient{
		send:   make(chan model.ItemEvent, sendBuffer),
		cancel: cancel,
	}

	h.mu.Lock()
	h.clients[conn] = client
	h.mu.Unlock()

	h.logger.Info("event subscriber connected", zap.String("remote_addr", conn.RemoteAddr().String()))

	go h.writePump(ctx, conn, client)
	go h.readPump(ctx, conn, cancel)
}

// Publish fans an event out to every subscriber without blocking.
// Subscribers with a full buffer miss the event.
func (h *EventHub) Publish(event model.ItemEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn, client := range h.clients {
		select {
		case client.send <- event:
		default:
			h.logger.Debug("dropping event for slow subscriber",
				zap.String("remote_addr", conn.RemoteAddr().String()),
				zap.String("type", event.Type),
				zap.Int64("item_id", event.ItemID),
			)
		}
	}
}

// ClientCount returns the number of connected subscribers.
func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// readPump drains incoming frames so control messages are processed.
func (h *EventHub) readPump(ctx context.Context, conn *websocket.Conn, cancel context.CancelFunc) {
	defer func() {
		cancel()
		h.removeClient(conn)
		if err := conn.Close(); err != nil {
			h.logger.Debug("error closing connection", zap.Error(err))
		}
	}()

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		h.logger.Error("failed to set read deadline", zap.Error(err))
		return
	}

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					h.logger.Warn("websocket read error", zap.Error(err))
				}
				return
			}
		}
	}
}

// writePump forwards queued events and keeps the connection alive with pings.
func (h *EventHub) writePump(ctx context.Context, conn *websocket.Conn, client *eventClient) {
	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.sendCloseMessage(conn)
			return
		case event := <-client.send:
			if err := h.sendEvent(conn, event); err != nil {
				h.logger.Debug("failed to send event", zap.Error(err))
				return
			}
		case <-pingTicker.C:
			if err := h.sendPing(conn); err != nil {
				h.logger.Debug("failed to send ping", zap.Error(err))
				return
			}
		}
	}
}

// sendEvent writes one event to the connection.
func (h *EventHub) sendEvent(conn *websocket.Conn, event model.ItemEvent) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(event)
}

// sendPing sends a ping message to the connection.
func (h *EventHub) sendPing(conn *websocket.Conn) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.PingMessage, nil)
}

// sendCloseMessage sends a close message to the connection.
func (h *EventHub) sendCloseMessage(conn *websocket.Conn) {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		h.logger.Debug("failed to set write deadline for close", zap.Error(err))
		return
	}

	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "server shutting down")
	if err := conn.WriteMessage(websocket.CloseMessage, closeMsg); err != nil {
		h.logger.Debug("failed to send close message", zap.Error(err))
	}
}

// removeClient removes a client from the clients map.
func (h *EventHub) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client, exists := h.clients[conn]; exists {
		client.cancel()
		delete(h.clients, conn)
		h.logger.Info("event subscriber disconnected", zap.String("remote_addr", conn.RemoteAddr().String()))
	}
}

// CloseAllConnections closes all active WebSocket connections.
func (h *EventHub) CloseAllConnections() {
	h.mu.Lock()
	clients := make([]*eventClient, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	if len(clients) == 0 {
		h.logger.Debug("no websocket connections to close")
		return
	}

	// Cancelling first lets each writePump send its close frame.
	for _, client := range clients {
		client.cancel()
	}

	time.Sleep(100 * time.Millisecond)

	h.mu.Lock()
	for conn := range h.clients {
		if err := conn.Close(); err != nil {
			h.logger.Debug("error closing connection", zap.Error(err))
		}
		delete(h.clients, conn)
	}
	h.mu.Unlock()

	h.logger.Info("all websocket connections closed")
}
