package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	assistantModel "github.com/zhouzirui/dr-gini/backend/internal/model/assistant"
	chatService "github.com/zhouzirui/dr-gini/backend/internal/service/chat"
	"github.com/zhouzirui/dr-gini/backend/internal/service/coordinator"
	feedbackService "github.com/zhouzirui/dr-gini/backend/internal/service/feedback"
	"github.com/zhouzirui/dr-gini/backend/internal/service/webhook"
)

func newTestRouter(withFeedback bool) http.Handler {
	chatSvc := chatService.NewService()
	deps := Deps{
		AllowedOrigins: []string{"https://app.example"},
		Assistants:     assistantModel.NewMemoryStore(assistantModel.Seed()),
		Chat:           chatSvc,
		Coordinators: coordinator.NewManager(coordinator.Deps{
			Transcript: chatSvc,
			Text:       webhook.NewClient("http://127.0.0.1:1/hook", time.Second),
		}, coordinator.Options{}),
	}
	if withFeedback {
		deps.Feedback = feedbackService.NewService(feedbackService.Config{}, chatSvc)
	}
	return NewRouter(deps)
}

func TestHealthz(t *testing.T) {
	r := newTestRouter(false)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" || body["mode"] != string(coordinator.ModeSingle) {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestRouterMountsAPI(t *testing.T) {
	r := newTestRouter(true)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/assistant", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for assistant, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/feedback", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty feedback, got %d", resp.Code)
	}
}

func TestRouterWithoutFeedback(t *testing.T) {
	r := newTestRouter(false)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/feedback", nil))
	if resp.Code != http.StatusNotFound && resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected feedback route to be absent, got %d", resp.Code)
	}
}

func TestRouterCORSPreflight(t *testing.T) {
	r := newTestRouter(false)

	req := httptest.NewRequest(http.MethodOptions, "/api/session", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Fatalf("unexpected allow origin %q", got)
	}
}
