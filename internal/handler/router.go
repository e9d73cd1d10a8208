package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/dr-gini/backend/internal/handler/assistant"
	"github.com/zhouzirui/dr-gini/backend/internal/handler/chat"
	"github.com/zhouzirui/dr-gini/backend/internal/handler/feedback"
	"github.com/zhouzirui/dr-gini/backend/internal/handler/realtime"
	"github.com/zhouzirui/dr-gini/backend/internal/handler/stream"
	middlewarePkg "github.com/zhouzirui/dr-gini/backend/internal/middleware"
	assistantModel "github.com/zhouzirui/dr-gini/backend/internal/model/assistant"
	chatService "github.com/zhouzirui/dr-gini/backend/internal/service/chat"
	"github.com/zhouzirui/dr-gini/backend/internal/service/coordinator"
	feedbackService "github.com/zhouzirui/dr-gini/backend/internal/service/feedback"
	"github.com/zhouzirui/dr-gini/backend/pkg/utils"
)

// Deps groups the services the HTTP layer is built on.
type Deps struct {
	AllowedOrigins []string
	Assistants     assistantModel.Store
	Chat           *chatService.Service
	Coordinators   *coordinator.Manager
	Feedback       *feedbackService.Service
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(deps.AllowedOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status": "ok",
			"mode":   deps.Coordinators.Mode(),
		})
	})

	r.Route("/api", func(api chi.Router) {
		assistant.New(deps.Assistants).RegisterRoutes(api)
		chat.New(deps.Chat, deps.Assistants, deps.Coordinators).RegisterRoutes(api)
		stream.New(deps.Chat, deps.Coordinators).RegisterRoutes(api)
		realtime.NewWebSocketHandler(deps.Chat, deps.Coordinators).RegisterRoutes(api)

		if deps.Feedback != nil {
			feedback.New(deps.Feedback).RegisterRoutes(api)
		}
	})

	return r
}
