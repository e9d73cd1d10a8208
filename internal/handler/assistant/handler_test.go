package assistant

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	model "github.com/zhouzirui/dr-gini/backend/internal/model/assistant"
)

func setupRouter() *chi.Mux {
	r := chi.NewRouter()
	New(model.NewMemoryStore(model.Seed())).RegisterRoutes(r)
	return r
}

func TestDefaultAssistant(t *testing.T) {
	r := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/assistant", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var profile model.Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if profile.ID != model.DefaultID || profile.Name != "Dr. Gini" || profile.OpeningLine == "" {
		t.Fatalf("unexpected profile %+v", profile)
	}
}

func TestGetAssistantNotFound(t *testing.T) {
	r := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/assistants/iron-man", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestListAssistants(t *testing.T) {
	r := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/assistants", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	var profiles []model.Profile
	if err := json.NewDecoder(resp.Body).Decode(&profiles); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(profiles) != 1 {
		t.Fatalf("expected 1 profile, got %d", len(profiles))
	}
}
