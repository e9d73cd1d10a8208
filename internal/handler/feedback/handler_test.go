package feedback

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/dr-gini/backend/internal/model/chat"
	chatservice "github.com/zhouzirui/dr-gini/backend/internal/service/chat"
	feedbackService "github.com/zhouzirui/dr-gini/backend/internal/service/feedback"
)

func setupRouter(t *testing.T) (*chi.Mux, string) {
	t.Helper()
	ctx := context.Background()

	chatSvc := chatservice.NewService()
	session, err := chatSvc.CreateSession(ctx, "dr-gini")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}
	if _, err := chatSvc.Append(ctx, chat.Message{
		SessionID:     session.ID,
		Role:          chat.RoleBot,
		Content:       "<p>Aspirin inhibits COX-1 and COX-2.</p>",
		IsHTML:        true,
		CorrelationID: "gini_123",
		Status:        chat.StatusSuccess,
	}); err != nil {
		t.Fatalf("Append err: %v", err)
	}

	r := chi.NewRouter()
	New(feedbackService.NewService(feedbackService.Config{}, chatSvc)).RegisterRoutes(r)
	return r, session.ID
}

func post(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/feedback", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestSubmitFeedbackAccepted(t *testing.T) {
	r, sessionID := setupRouter(t)

	resp := post(r, `{"messageId":"gini_123","sessionId":"`+sessionID+`","kind":"quick","rating":1}`)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestSubmitFeedbackRejected(t *testing.T) {
	r, sessionID := setupRouter(t)

	cases := map[string]string{
		"invalid json":    `{"messageId":`,
		"unknown message": `{"messageId":"gini_999","sessionId":"` + sessionID + `","kind":"quick","rating":1}`,
		"bad rating":      `{"messageId":"gini_123","sessionId":"` + sessionID + `","kind":"detailed","rating":9}`,
		"bad kind":        `{"messageId":"gini_123","sessionId":"` + sessionID + `","kind":"emoji","rating":1}`,
	}
	for name, body := range cases {
		if resp := post(r, body); resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", name, resp.Code)
		}
	}
}
