package feedback

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/dr-gini/backend/internal/model/chat"
	feedbackService "github.com/zhouzirui/dr-gini/backend/internal/service/feedback"
	"github.com/zhouzirui/dr-gini/backend/pkg/utils"
)

// Submitter 接收一条反馈并异步上报
type Submitter interface {
	Submit(ctx context.Context, rec chat.FeedbackRecord) (chat.FeedbackRecord, error)
}

// Handler 反馈接口的HTTP处理器
type Handler struct {
	svc Submitter
}

// New 创建反馈处理器
func New(svc Submitter) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes 注册反馈路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/feedback", h.handleSubmit)
}

// handleSubmit 校验反馈并排队上报，上报失败不会反馈给用户
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var rec chat.FeedbackRecord
	if err := utils.DecodeJSON(r, &rec); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	queued, err := h.svc.Submit(r.Context(), rec)
	if err != nil {
		switch {
		case errors.Is(err, feedbackService.ErrMessageRequired),
			errors.Is(err, feedbackService.ErrInvalidKind),
			errors.Is(err, feedbackService.ErrInvalidRating),
			errors.Is(err, feedbackService.ErrNotEligible):
			utils.RespondError(w, http.StatusBadRequest, err.Error())
		default:
			utils.RespondError(w, http.StatusInternalServerError, "feedback could not be queued")
		}
		return
	}

	utils.RespondJSON(w, http.StatusAccepted, map[string]any{
		"status":   "queued",
		"feedback": queued,
	})
}
