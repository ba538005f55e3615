package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"

	"github.com/solvency-io/solvency/internal/common"
	"github.com/solvency-io/solvency/internal/interfaces"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Local tool, same-host clients only
	},
}

// statusMessage is the wire envelope broadcast to WebSocket clients.
type statusMessage struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	ServerID  string      `json:"server_id"`
}

// WebSocketHandler streams analysis and assessment events to connected
// clients.
type WebSocketHandler struct {
	logger        arbor.ILogger
	events        interfaces.EventService
	clients       map[*websocket.Conn]*sync.Mutex
	mu            sync.RWMutex
	allowedEvents map[string]bool

	// serverInstanceID changes on restart so clients can detect it and
	// resync their state.
	serverInstanceID string
}

// broadcastEvents is the set of bus events forwarded to clients.
var broadcastEvents = []interfaces.EventType{
	interfaces.EventAnalysisStarted,
	interfaces.EventAnalysisAttempt,
	interfaces.EventAnalysisCacheHit,
	interfaces.EventAnalysisFallback,
	interfaces.EventAnalysisCompleted,
	interfaces.EventCircuitOpened,
	interfaces.EventAssessmentStatus,
}

// NewWebSocketHandler creates the handler and subscribes it to the event
// bus.
func NewWebSocketHandler(events interfaces.EventService, config *common.WebSocketConfig, logger arbor.ILogger) (*WebSocketHandler, error) {
	h := &WebSocketHandler{
		logger:           logger,
		events:           events,
		clients:          make(map[*websocket.Conn]*sync.Mutex),
		allowedEvents:    make(map[string]bool),
		serverInstanceID: uuid.New().String(),
	}

	// Empty whitelist allows all broadcast events.
	if config != nil {
		for _, eventType := range config.AllowedEvents {
			h.allowedEvents[eventType] = true
		}
	}

	for _, eventType := range broadcastEvents {
		et := eventType
		if err := events.Subscribe(et, func(ctx context.Context, event interfaces.Event) error {
			h.broadcast(event)
			return nil
		}); err != nil {
			return nil, err
		}
	}

	logger.Debug().
		Str("server_instance_id", h.serverInstanceID).
		Msg("WebSocket handler initialized")
	return h, nil
}

// HandleWebSocket upgrades /ws/status connections.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = &sync.Mutex{}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().
		Str("remote", r.RemoteAddr).
		Int("clients", count).
		Msg("WebSocket client connected")

	h.send(conn, statusMessage{
		Type:      "connected",
		Payload:   map[string]string{"server_instance_id": h.serverInstanceID},
		Timestamp: time.Now(),
		ServerID:  h.serverInstanceID,
	})

	// Reader loop exists only to detect disconnects; clients do not send
	// commands.
	go func() {
		defer h.removeClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *WebSocketHandler) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	count := len(h.clients)
	h.mu.Unlock()
	conn.Close()

	h.logger.Debug().Int("clients", count).Msg("WebSocket client disconnected")
}

func (h *WebSocketHandler) allowed(eventType interfaces.EventType) bool {
	if len(h.allowedEvents) == 0 {
		return true
	}
	return h.allowedEvents[string(eventType)]
}

func (h *WebSocketHandler) broadcast(event interfaces.Event) {
	if !h.allowed(event.Type) {
		return
	}

	msg := statusMessage{
		Type:      string(event.Type),
		Payload:   event.Payload,
		Timestamp: time.Now(),
		ServerID:  h.serverInstanceID,
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		h.send(conn, msg)
	}
}

// send serializes writes per connection; gorilla/websocket allows only
// one concurrent writer.
func (h *WebSocketHandler) send(conn *websocket.Conn, msg statusMessage) {
	h.mu.RLock()
	connMu, ok := h.clients[conn]
	h.mu.RUnlock()
	if !ok {
		return
	}

	connMu.Lock()
	defer connMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.Debug().Err(err).Msg("WebSocket write failed, dropping client")
		go h.removeClient(conn)
	}
}

// ClientCount returns the number of connected clients.
func (h *WebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
