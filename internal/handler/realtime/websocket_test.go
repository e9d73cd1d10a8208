package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/dr-gini/backend/internal/model/chat"
	chatservice "github.com/zhouzirui/dr-gini/backend/internal/service/chat"
	"github.com/zhouzirui/dr-gini/backend/internal/service/coordinator"
	"github.com/zhouzirui/dr-gini/backend/internal/service/webhook"
)

type frame struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
}

type transcriptData struct {
	Kind    string       `json:"kind"`
	Message chat.Message `json:"message"`
}

type errorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func dial(t *testing.T) (*websocket.Conn, string) {
	t.Helper()

	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"output":"Paracetamol is an analgesic and antipyretic."}`))
	}))
	t.Cleanup(hook.Close)

	chatSvc := chatservice.NewService()
	manager := coordinator.NewManager(coordinator.Deps{
		Transcript: chatSvc,
		Text:       webhook.NewClient(hook.URL, 2*time.Second),
	}, coordinator.Options{Cooldown: time.Minute})

	session, err := chatSvc.CreateSession(context.Background(), "dr-gini")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	r := chi.NewRouter()
	NewWebSocketHandler(chatSvc, manager).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + session.ID
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial err: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws, session.ID
}

func readFrame(t *testing.T, ws *websocket.Conn) frame {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(3 * time.Second))
	var f frame
	if err := ws.ReadJSON(&f); err != nil {
		t.Fatalf("read err: %v", err)
	}
	return f
}

// readUntil skips frames of other types.
func readUntil(t *testing.T, ws *websocket.Conn, msgType string) frame {
	t.Helper()
	for i := 0; i < 10; i++ {
		if f := readFrame(t, ws); f.Type == msgType {
			return f
		}
	}
	t.Fatalf("no %s frame received", msgType)
	return frame{}
}

func sendText(t *testing.T, ws *websocket.Conn, sessionID, text string) {
	t.Helper()
	data, _ := json.Marshal(TextMessage{Text: text})
	if err := ws.WriteJSON(inboundMessage{Type: "text", SessionID: sessionID, Data: data}); err != nil {
		t.Fatalf("write err: %v", err)
	}
}

func TestWebSocketTextRoundTrip(t *testing.T) {
	ws, sessionID := dial(t)

	if f := readFrame(t, ws); f.Type != "connected" || f.SessionID != sessionID {
		t.Fatalf("unexpected first frame %+v", f)
	}

	sendText(t, ws, sessionID, "What is paracetamol?")

	var got []transcriptData
	for len(got) < 2 {
		f := readUntil(t, ws, "transcript")
		var td transcriptData
		if err := json.Unmarshal(f.Data, &td); err != nil {
			t.Fatalf("decode: %v", err)
		}
		got = append(got, td)
	}

	if got[0].Message.Role != chat.RoleUser || got[0].Message.Content != "What is paracetamol?" {
		t.Fatalf("unexpected user event %+v", got[0])
	}
	if got[1].Message.Role != chat.RoleBot || !strings.Contains(got[1].Message.Content, "analgesic") {
		t.Fatalf("unexpected bot event %+v", got[1])
	}
}

func TestWebSocketRejectsInput(t *testing.T) {
	ws, sessionID := dial(t)
	readFrame(t, ws)

	sendText(t, ws, sessionID, "   ")
	var e errorData
	_ = json.Unmarshal(readUntil(t, ws, "error").Data, &e)
	if e.Code != "empty" {
		t.Fatalf("expected empty error, got %+v", e)
	}

	sendText(t, ws, "other-session", "hi")
	_ = json.Unmarshal(readUntil(t, ws, "error").Data, &e)
	if e.Code != "session_mismatch" {
		t.Fatalf("expected session mismatch, got %+v", e)
	}

	if err := ws.WriteJSON(inboundMessage{Type: "audio", Data: json.RawMessage(`{}`)}); err != nil {
		t.Fatalf("write err: %v", err)
	}
	_ = json.Unmarshal(readUntil(t, ws, "error").Data, &e)
	if e.Code != "unknown_type" {
		t.Fatalf("expected unknown type, got %+v", e)
	}
}

func TestWebSocketUnknownSession(t *testing.T) {
	chatSvc := chatservice.NewService()
	manager := coordinator.NewManager(coordinator.Deps{Transcript: chatSvc, Text: webhook.NewClient("http://127.0.0.1:1", time.Second)}, coordinator.Options{})

	r := chi.NewRouter()
	NewWebSocketHandler(chatSvc, manager).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/missing", nil)
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 response, got %+v", resp)
	}
}
