package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	chatservice "github.com/zhouzirui/dr-gini/backend/internal/service/chat"
	"github.com/zhouzirui/dr-gini/backend/internal/service/coordinator"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// WebSocketHandler WebSocket会话处理器，双向推送聊天记录
type WebSocketHandler struct {
	chatSvc      *chatservice.Service
	coordinators *coordinator.Manager
	upgrader     websocket.Upgrader
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(chatSvc *chatservice.Service, coordinators *coordinator.Manager) *WebSocketHandler {
	return &WebSocketHandler{
		chatSvc:      chatSvc,
		coordinators: coordinators,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// TextMessage 用户输入
type TextMessage struct {
	Text string `json:"text"`
}

type outgoingMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// conn 串行化写操作，gorilla 连接不支持并发写
type conn struct {
	ws        *websocket.Conn
	sessionID string
	mu        sync.Mutex
}

func (c *conn) send(msgType string, data any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.ws.WriteJSON(outgoingMessage{
		Type:      msgType,
		SessionID: c.sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}); err != nil {
		log.Printf("[websocket] write %s failed: %v", msgType, err)
	}
}

func (c *conn) sendError(code, message string, extra map[string]any) {
	data := map[string]any{"code": code, "message": message}
	for k, v := range extra {
		data[k] = v
	}
	c.send("error", data)
}

func (c *conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "sessionID is required", http.StatusBadRequest)
		return
	}

	if _, err := h.chatSvc.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	events, unsubscribe, err := h.chatSvc.Subscribe(sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	defer unsubscribe()

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer ws.Close()

	log.Printf("[websocket] new connection for session: %s", sessionID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := &conn{ws: ws, sessionID: sessionID}
	coord := h.coordinators.ForSession(sessionID)

	_ = ws.SetReadDeadline(time.Now().Add(readTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go h.pingLoop(ctx, c)
	go h.forwardEvents(ctx, c, coord, events)

	messages, err := h.chatSvc.LoadTranscript(ctx, sessionID)
	if err != nil {
		log.Printf("[websocket] failed to load transcript for session=%s: %v", sessionID, err)
	}
	c.send("connected", map[string]any{
		"messages": messages,
		"status":   coord.Status(),
	})

	for {
		var msg inboundMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[websocket] read error: %v", err)
			}
			return
		}

		_ = ws.SetReadDeadline(time.Now().Add(readTimeout))

		if msg.SessionID != "" && msg.SessionID != sessionID {
			c.sendError("session_mismatch", "session mismatch", nil)
			continue
		}

		h.handleMessage(ctx, c, coord, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, c *conn, coord *coordinator.Coordinator, msg *inboundMessage) {
	switch msg.Type {
	case "text":
		var text TextMessage
		if err := json.Unmarshal(msg.Data, &text); err != nil {
			c.sendError("invalid_payload", "invalid text payload", nil)
			return
		}
		h.handleText(ctx, c, coord, text.Text)
	case "status":
		c.send("status", coord.Status())
	default:
		c.sendError("unknown_type", "unknown message type: "+msg.Type, nil)
	}
}

// handleText 提交用户消息，回复通过订阅事件推送
func (h *WebSocketHandler) handleText(ctx context.Context, c *conn, coord *coordinator.Coordinator, text string) {
	_, err := coord.Submit(ctx, text)
	if err == nil {
		c.send("status", coord.Status())
		return
	}

	var cooldown *coordinator.CooldownError
	switch {
	case errors.Is(err, coordinator.ErrEmptyMessage):
		c.sendError("empty", "message is required", nil)
	case errors.Is(err, coordinator.ErrRequestInFlight):
		c.sendError("in_flight", err.Error(), nil)
	case errors.As(err, &cooldown):
		c.sendError("cooldown", coordinator.CooldownNotice(cooldown.Remaining), map[string]any{
			"retryAfterMs": cooldown.Remaining.Milliseconds(),
		})
	default:
		log.Printf("[websocket] submit failed session=%s: %v", c.sessionID, err)
		c.sendError("internal", "message could not be sent", nil)
	}
}

// forwardEvents 将会话记录的变更推送给客户端
func (h *WebSocketHandler) forwardEvents(ctx context.Context, c *conn, coord *coordinator.Coordinator, events <-chan chatservice.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.send("transcript", map[string]any{
				"kind":    ev.Kind,
				"message": ev.Message,
				"status":  coord.Status(),
			})
		}
	}
}

// pingLoop 定期发送ping消息
func (h *WebSocketHandler) pingLoop(ctx context.Context, c *conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}
