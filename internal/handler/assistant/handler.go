package assistant

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/dr-gini/backend/internal/model/assistant"
	"github.com/zhouzirui/dr-gini/backend/pkg/utils"
)

// Handler 助手资料的HTTP处理器
type Handler struct {
	profiles assistant.Store
}

// New 创建助手处理器
func New(profiles assistant.Store) *Handler {
	return &Handler{profiles: profiles}
}

// RegisterRoutes 注册助手相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/assistant", h.handleDefault)
	r.Get("/assistants", h.handleList)
	r.Get("/assistants/{assistantID}", h.handleGet)
}

// handleDefault 返回默认助手（Dr. Gini）
func (h *Handler) handleDefault(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.profiles.FindByID(assistant.DefaultID)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "assistant not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, profile)
}

// handleList 列出所有助手
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.profiles.List())
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.profiles.FindByID(chi.URLParam(r, "assistantID"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "assistant not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, profile)
}
