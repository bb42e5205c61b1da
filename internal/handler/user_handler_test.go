package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/tend/internal/model"
)

// --- モック定義 ---

// mockUserService はUserServiceInterfaceのモック実装。
type mockUserService struct {
	createOnboardingFn func(ctx context.Context, payload any) (*model.User, error)
	getUserFn          func(ctx context.Context, email string) (*model.User, error)
	updateUserFn       func(ctx context.Context, email string, payload any) (*model.User, error)
	unsubscribeFn      func(ctx context.Context, email string) error
}

func (m *mockUserService) CreateOnboarding(ctx context.Context, payload any) (*model.User, error) {
	if m.createOnboardingFn != nil {
		return m.createOnboardingFn(ctx, payload)
	}
	return testUser(), nil
}

func (m *mockUserService) GetUser(ctx context.Context, email string) (*model.User, error) {
	if m.getUserFn != nil {
		return m.getUserFn(ctx, email)
	}
	return testUser(), nil
}

func (m *mockUserService) UpdateUser(ctx context.Context, email string, payload any) (*model.User, error) {
	if m.updateUserFn != nil {
		return m.updateUserFn(ctx, email, payload)
	}
	return testUser(), nil
}

func (m *mockUserService) Unsubscribe(ctx context.Context, email string) error {
	if m.unsubscribeFn != nil {
		return m.unsubscribeFn(ctx, email)
	}
	return nil
}

// --- テストヘルパー ---

// testUser はテスト用のサニタイズ済みユーザーを返す。
func testUser() *model.User {
	return &model.User{
		ID:     "user-1",
		Email:  "taro@example.com",
		Name:   "Taro",
		Goals:  "毎朝走る",
		Active: true,
		Personalities: []model.Personality{
			{ID: "p-1", Type: model.PersonalityTone, Value: "encouraging", Active: true},
		},
		Schedule: model.Schedule{
			Frequency: model.FrequencyDaily,
			Times:     []string{"09:00"},
			Timezone:  "Asia/Tokyo",
		},
	}
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// withChiURLParam2 はテスト用にchiのURLパラメータを2組注入するヘルパー。
func withChiURLParam2(r *http.Request, key1, value1, key2, value2 string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key1, value1)
	rctx.URLParams.Add(key2, value2)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

// decodeJSONBody はレスポンスボディをmapにデコードするヘルパー。
func decodeJSONBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return result
}

// --- POST /api/onboarding テスト ---

func TestUserHandler_Onboarding_Success(t *testing.T) {
	var gotPayload any
	svc := &mockUserService{
		createOnboardingFn: func(ctx context.Context, payload any) (*model.User, error) {
			gotPayload = payload
			return testUser(), nil
		},
	}
	h := NewUserHandler(svc)

	body := `{"email": "taro@example.com", "name": "Taro", "goals": "毎朝走る"}`
	req := httptest.NewRequest(http.MethodPost, "/api/onboarding", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.Onboarding(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	payload, ok := gotPayload.(map[string]any)
	if !ok {
		t.Fatalf("payload type = %T, want map[string]any", gotPayload)
	}
	if payload["name"] != "Taro" {
		t.Errorf("payload name = %v, want %q", payload["name"], "Taro")
	}

	result := decodeJSONBody(t, w)
	if result["email"] != "taro@example.com" {
		t.Errorf("email = %v, want %q", result["email"], "taro@example.com")
	}

	schedule, ok := result["schedule"].(map[string]interface{})
	if !ok {
		t.Fatal("schedule should be an object")
	}
	display, ok := schedule["times_display"].([]interface{})
	if !ok || len(display) != 1 {
		t.Fatalf("times_display = %v, want 1件", schedule["times_display"])
	}
	if display[0] != "9:00 AM (Asia/Tokyo)" {
		t.Errorf("times_display[0] = %v, want %q", display[0], "9:00 AM (Asia/Tokyo)")
	}
}

func TestUserHandler_Onboarding_InvalidEmail_ReturnsBadRequest(t *testing.T) {
	h := NewUserHandler(&mockUserService{})

	body := `{"email": "not-an-email"}`
	req := httptest.NewRequest(http.MethodPost, "/api/onboarding", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.Onboarding(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	errResp := parseAPIErrorResponse(t, w)
	if errResp["code"] != "VALIDATION_FAILED" {
		t.Errorf("code = %q, want %q", errResp["code"], "VALIDATION_FAILED")
	}
	if errResp["action"] == "" {
		t.Error("expected action in response")
	}
}

func TestUserHandler_Onboarding_InvalidJSON_ReturnsBadRequest(t *testing.T) {
	h := NewUserHandler(&mockUserService{})

	req := httptest.NewRequest(http.MethodPost, "/api/onboarding", bytes.NewBufferString(`{invalid`))
	w := httptest.NewRecorder()

	h.Onboarding(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// --- GET /api/users/{email} テスト ---

func TestUserHandler_GetUser_Success(t *testing.T) {
	h := NewUserHandler(&mockUserService{})

	req := httptest.NewRequest(http.MethodGet, "/api/users/taro@example.com", nil)
	req = withChiURLParam(req, "email", "taro@example.com")
	w := httptest.NewRecorder()

	h.GetUser(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	result := decodeJSONBody(t, w)
	if result["name"] != "Taro" {
		t.Errorf("name = %v, want %q", result["name"], "Taro")
	}
}

func TestUserHandler_GetUser_NeedsOnboarding_ReturnsNotFound(t *testing.T) {
	svc := &mockUserService{
		getUserFn: func(ctx context.Context, email string) (*model.User, error) {
			return nil, model.NewNeedsOnboardingError(email)
		},
	}
	h := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/users/unknown@example.com", nil)
	req = withChiURLParam(req, "email", "unknown@example.com")
	w := httptest.NewRecorder()

	h.GetUser(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	errResp := parseAPIErrorResponse(t, w)
	if errResp["code"] != "NEEDS_ONBOARDING" {
		t.Errorf("code = %q, want %q", errResp["code"], "NEEDS_ONBOARDING")
	}
}

func TestUserHandler_GetUser_InvalidEmailParam_ReturnsBadRequest(t *testing.T) {
	h := NewUserHandler(&mockUserService{})

	req := httptest.NewRequest(http.MethodGet, "/api/users/not-an-email", nil)
	req = withChiURLParam(req, "email", "not-an-email")
	w := httptest.NewRecorder()

	h.GetUser(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// --- PUT /api/users/{email} テスト ---

func TestUserHandler_UpdateUser_PassesPayload(t *testing.T) {
	var gotEmail string
	var gotPayload any
	svc := &mockUserService{
		updateUserFn: func(ctx context.Context, email string, payload any) (*model.User, error) {
			gotEmail = email
			gotPayload = payload
			return testUser(), nil
		},
	}
	h := NewUserHandler(svc)

	body := `{"goals": "本を読む"}`
	req := httptest.NewRequest(http.MethodPut, "/api/users/taro@example.com", bytes.NewBufferString(body))
	req = withChiURLParam(req, "email", "taro@example.com")
	w := httptest.NewRecorder()

	h.UpdateUser(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotEmail != "taro@example.com" {
		t.Errorf("email = %q, want %q", gotEmail, "taro@example.com")
	}
	payload, ok := gotPayload.(map[string]any)
	if !ok || payload["goals"] != "本を読む" {
		t.Errorf("payload = %v, want goals=本を読む", gotPayload)
	}
}

// --- POST /api/unsubscribe テスト ---

func TestUserHandler_Unsubscribe_Success(t *testing.T) {
	var gotEmail string
	svc := &mockUserService{
		unsubscribeFn: func(ctx context.Context, email string) error {
			gotEmail = email
			return nil
		},
	}
	h := NewUserHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/unsubscribe?email=taro@example.com", nil)
	w := httptest.NewRecorder()

	h.Unsubscribe(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotEmail != "taro@example.com" {
		t.Errorf("email = %q, want %q", gotEmail, "taro@example.com")
	}
	result := decodeJSONBody(t, w)
	if result["unsubscribed"] != true {
		t.Errorf("unsubscribed = %v, want true", result["unsubscribed"])
	}
}

func TestUserHandler_Unsubscribe_MissingEmail_ReturnsBadRequest(t *testing.T) {
	h := NewUserHandler(&mockUserService{})

	req := httptest.NewRequest(http.MethodPost, "/api/unsubscribe", nil)
	w := httptest.NewRecorder()

	h.Unsubscribe(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
