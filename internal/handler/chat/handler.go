package chat

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/dr-gini/backend/internal/export"
	"github.com/zhouzirui/dr-gini/backend/internal/model/assistant"
	"github.com/zhouzirui/dr-gini/backend/internal/model/chat"
	chatService "github.com/zhouzirui/dr-gini/backend/internal/service/chat"
	"github.com/zhouzirui/dr-gini/backend/internal/service/coordinator"
	"github.com/zhouzirui/dr-gini/backend/pkg/utils"
)

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc      *chatService.Service
	profiles     assistant.Store
	coordinators *coordinator.Manager
	now          func() time.Time
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service, profiles assistant.Store, coordinators *coordinator.Manager) *Handler {
	return &Handler{
		chatSvc:      chatSvc,
		profiles:     profiles,
		coordinators: coordinators,
		now:          time.Now,
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreateSession)
	r.Route("/sessions/{sessionID}", func(s chi.Router) {
		s.Get("/messages", h.handleListMessages)
		s.Post("/messages", h.handleSendMessage)
		s.Get("/status", h.handleStatus)
		s.Get("/export", h.handleExport)
	})
}

type createSessionResponse struct {
	Session  chat.Session       `json:"session"`
	Messages []chat.Message     `json:"messages"`
	Status   coordinator.Status `json:"status"`
}

// handleCreateSession 创建会话并写入助手的开场白
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		AssistantID string `json:"assistantId"`
	}

	// 允许空请求体，使用默认助手
	if err := utils.DecodeJSON(r, &payload); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if payload.AssistantID == "" {
		payload.AssistantID = assistant.DefaultID
	}

	profile, ok := h.profiles.FindByID(payload.AssistantID)
	if !ok {
		utils.RespondError(w, http.StatusBadRequest, "assistant not found")
		return
	}

	session, err := h.chatSvc.CreateSession(r.Context(), profile.ID)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if profile.OpeningLine != "" {
		if _, err := h.chatSvc.Append(r.Context(), chat.Message{
			SessionID: session.ID,
			Role:      chat.RoleBot,
			Content:   profile.OpeningLine,
		}); err != nil {
			log.Printf("[chat] failed to append greeting for session=%s: %v", session.ID, err)
		}
	}

	messages, err := h.chatSvc.LoadTranscript(r.Context(), session.ID)
	if err != nil {
		log.Printf("[chat] failed to load transcript for session=%s: %v", session.ID, err)
	}
	utils.RespondJSON(w, http.StatusCreated, createSessionResponse{
		Session:  session,
		Messages: messages,
		Status:   h.coordinators.ForSession(session.ID).Status(),
	})
}

// handleListMessages 返回会话记录
func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	messages, err := h.chatSvc.LoadTranscript(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, messages)
}

type sendMessageResponse struct {
	Message chat.Message       `json:"message"`
	Status  coordinator.Status `json:"status"`
}

// handleSendMessage 提交用户消息，webhook 调用在后台完成
func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var payload struct {
		Message string `json:"message"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := h.chatSvc.GetSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}

	c := h.coordinators.ForSession(sessionID)
	user, err := c.Submit(r.Context(), payload.Message)
	if err != nil {
		var cooldown *coordinator.CooldownError
		switch {
		case errors.Is(err, coordinator.ErrEmptyMessage):
			utils.RespondError(w, http.StatusBadRequest, "message is required")
		case errors.Is(err, coordinator.ErrRequestInFlight):
			utils.RespondError(w, http.StatusConflict, err.Error())
		case errors.As(err, &cooldown):
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(cooldown.Remaining.Seconds()))))
			utils.RespondErrorWith(w, http.StatusTooManyRequests, coordinator.CooldownNotice(cooldown.Remaining), map[string]any{
				"retryAfterMs": cooldown.Remaining.Milliseconds(),
			})
		default:
			respondServiceError(w, err)
		}
		return
	}

	utils.RespondJSON(w, http.StatusAccepted, sendMessageResponse{Message: user, Status: c.Status()})
}

// handleStatus 返回协调器状态
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if _, err := h.chatSvc.GetSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, h.coordinators.ForSession(sessionID).Status())
}

// handleExport 导出会话记录为 txt / doc / csv
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.chatSvc.GetSession(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	messages, err := h.chatSvc.LoadTranscript(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	name := "Dr. Gini"
	if profile, ok := h.profiles.FindByID(session.AssistantID); ok {
		name = profile.Name
	}

	file, err := export.Render(format, name, session, messages, h.now())
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(file.Body); err != nil {
		log.Printf("[chat] failed to write export for session=%s: %v", sessionID, err)
	}
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatService.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, chatService.ErrMessageNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	default:
		log.Printf("[chat] unexpected error: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, strings.TrimSpace(err.Error()))
	}
}
