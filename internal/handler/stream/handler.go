package stream

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/dr-gini/backend/internal/model/chat"
	chatService "github.com/zhouzirui/dr-gini/backend/internal/service/chat"
	"github.com/zhouzirui/dr-gini/backend/internal/service/coordinator"
	"github.com/zhouzirui/dr-gini/backend/pkg/utils"
)

const defaultHeartbeat = 15 * time.Second

// Handler pushes transcript changes of a session over Server-Sent Events
type Handler struct {
	chatSvc      *chatService.Service
	coordinators *coordinator.Manager
	heartbeat    time.Duration
}

// New creates a new stream handler
func New(chatSvc *chatService.Service, coordinators *coordinator.Manager) *Handler {
	return &Handler{
		chatSvc:      chatSvc,
		coordinators: coordinators,
		heartbeat:    defaultHeartbeat,
	}
}

// RegisterRoutes registers the SSE endpoint
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream/{sessionID}", h.handleStream)
}

// Snapshot is the first event of every stream
type Snapshot struct {
	SessionID string             `json:"sessionId"`
	Messages  []chat.Message     `json:"messages"`
	Status    coordinator.Status `json:"status"`
}

// Update carries one transcript change plus the coordinator state after it
type Update struct {
	SessionID string             `json:"sessionId"`
	Message   chat.Message       `json:"message"`
	Status    coordinator.Status `json:"status"`
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	ctx := r.Context()

	if _, err := h.chatSvc.GetSession(ctx, sessionID); err != nil {
		if errors.Is(err, chatService.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, err.Error())
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	// 先订阅再取快照，避免漏掉两者之间的变更
	events, cancel, err := h.chatSvc.Subscribe(sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	defer cancel()

	messages, err := h.chatSvc.LoadTranscript(ctx, sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	c := h.coordinators.ForSession(sessionID)
	log.Printf("[sse] opening transcript stream for session=%s", sessionID)

	if err := utils.SendSSEEvent(w, flusher, "snapshot", Snapshot{
		SessionID: sessionID,
		Messages:  messages,
		Status:    c.Status(),
	}); err != nil {
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[sse] closing transcript stream for session=%s", sessionID)
			return
		case ev, open := <-events:
			if !open {
				return
			}
			if err := utils.SendSSEEvent(w, flusher, string(ev.Kind), Update{
				SessionID: sessionID,
				Message:   ev.Message,
				Status:    c.Status(),
			}); err != nil {
				log.Printf("[sse] write failed for session=%s: %v", sessionID, err)
				return
			}
		case t := <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "heartbeat "+t.UTC().Format(time.RFC3339)); err != nil {
				return
			}
		}
	}
}
