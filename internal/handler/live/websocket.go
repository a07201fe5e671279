package live

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	model "github.com/zhouzirui/job-voice/backend/internal/model/application"
	"github.com/zhouzirui/job-voice/backend/internal/service/updates"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second

	// closeReplaced is sent when a newer connection takes over the session.
	closeReplaced = 4000
)

// StatusReader supplies the catch-up snapshot sent on connect.
type StatusReader interface {
	GetStatus(ctx context.Context, sessionID string) (model.Status, error)
}

// WebSocketHandler 会话实时更新的WebSocket处理器
type WebSocketHandler struct {
	apps     StatusReader
	relay    *updates.Relay
	logger   *zap.Logger
	upgrader websocket.Upgrader

	pingInterval time.Duration
}

func NewWebSocketHandler(apps StatusReader, relay *updates.Relay, logger *zap.Logger) *WebSocketHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebSocketHandler{
		apps:   apps,
		relay:  relay,
		logger: logger.Named("ws"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		pingInterval: pingInterval,
	}
}

// RegisterWebSocketRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type string `json:"type"`
}

type outgoingMessage struct {
	Type      string        `json:"type"`
	SessionID string        `json:"session_id,omitempty"`
	Data      string        `json:"data,omitempty"`
	Status    *model.Status `json:"status,omitempty"`
	Message   string        `json:"message,omitempty"`
	Timestamp string        `json:"timestamp"`
}

// sink serializes writes to one connection for the relay and the handler.
type sink struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	logger *zap.Logger
}

func (s *sink) write(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

func (s *sink) send(msg outgoingMessage) error {
	if msg.Timestamp == "" {
		msg.Timestamp = model.Timestamp(time.Now())
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return s.write(payload)
}

// Deliver forwards a bus event unchanged.
func (s *sink) Deliver(payload []byte) error {
	return s.write(payload)
}

// Replaced notifies the client and closes the socket, which ends this
// connection's read loop.
func (s *sink) Replaced() {
	if err := s.send(outgoingMessage{Type: "session_replaced", Message: "another connection took over this session"}); err != nil {
		s.logger.Debug("session_replaced notice failed", zap.Error(err))
	}
	closeMsg := websocket.FormatCloseMessage(closeReplaced, "session replaced")
	_ = s.conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(writeWait))
	_ = s.conn.Close()
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "sessionID is required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	log := h.logger.With(zap.String("session_id", sessionID))
	log.Info("live connection opened")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	out := &sink{conn: conn, logger: log}
	if err := out.send(outgoingMessage{Type: "connected", SessionID: sessionID, Message: "Connected to live application updates"}); err != nil {
		return
	}

	// Subscribe before reading the snapshot so no update falls between them.
	relayConn, err := h.relay.Attach(ctx, sessionID, out)
	if err != nil {
		log.Error("relay attach failed", zap.Error(err))
		_ = out.send(outgoingMessage{Type: "error", Message: "live updates unavailable"})
		return
	}
	defer relayConn.Close()

	if status, err := h.apps.GetStatus(ctx, sessionID); err != nil {
		log.Warn("snapshot failed", zap.Error(err))
	} else if err := out.send(outgoingMessage{Type: "snapshot", SessionID: sessionID, Status: &status}); err != nil {
		return
	}

	go h.pingLoop(ctx, conn)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn("read error", zap.Error(err))
			}
			log.Info("live connection closed")
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		if msgType != websocket.TextMessage {
			continue
		}
		if err := h.handleMessage(out, data); err != nil {
			log.Debug("write failed", zap.Error(err))
			return
		}
	}
}

func (h *WebSocketHandler) handleMessage(out *sink, data []byte) error {
	var msg inboundMessage
	if json.Unmarshal(data, &msg) == nil && msg.Type == "ping" {
		return out.send(outgoingMessage{Type: "pong"})
	}
	return out.send(outgoingMessage{Type: "echo", Data: string(data)})
}

// pingLoop 定期发送ping消息
func (h *WebSocketHandler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
