package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/tend/internal/model"
)

// --- モック定義 ---

// mockMessageService はMessageServiceInterfaceのモック実装。
type mockMessageService struct {
	generateMessageFn func(ctx context.Context, payload any) (*model.Message, error)
	sendNowFn         func(ctx context.Context, email string) error
	messageHistoryFn  func(ctx context.Context, email string, filter model.Filter) ([]model.Message, error)
	submitFeedbackFn  func(ctx context.Context, email string, payload any) error
	toggleFavoriteFn  func(ctx context.Context, email, messageID string, favorite bool) (bool, error)
	getUserFn         func(ctx context.Context, email string) (*model.User, error)
}

func (m *mockMessageService) GenerateMessage(ctx context.Context, payload any) (*model.Message, error) {
	if m.generateMessageFn != nil {
		return m.generateMessageFn(ctx, payload)
	}
	return testMessage(), nil
}

func (m *mockMessageService) SendNow(ctx context.Context, email string) error {
	if m.sendNowFn != nil {
		return m.sendNowFn(ctx, email)
	}
	return nil
}

func (m *mockMessageService) MessageHistory(ctx context.Context, email string, filter model.Filter) ([]model.Message, error) {
	if m.messageHistoryFn != nil {
		return m.messageHistoryFn(ctx, email, filter)
	}
	return []model.Message{*testMessage()}, nil
}

func (m *mockMessageService) SubmitFeedback(ctx context.Context, email string, payload any) error {
	if m.submitFeedbackFn != nil {
		return m.submitFeedbackFn(ctx, email, payload)
	}
	return nil
}

func (m *mockMessageService) ToggleFavorite(ctx context.Context, email, messageID string, favorite bool) (bool, error) {
	if m.toggleFavoriteFn != nil {
		return m.toggleFavoriteFn(ctx, email, messageID, favorite)
	}
	return favorite, nil
}

func (m *mockMessageService) GetUser(ctx context.Context, email string) (*model.User, error) {
	if m.getUserFn != nil {
		return m.getUserFn(ctx, email)
	}
	return testUser(), nil
}

// testMessage はテスト用のサニタイズ済みメッセージを返す。
func testMessage() *model.Message {
	return &model.Message{
		ID:      "msg-1",
		Email:   "taro@example.com",
		Subject: "今日の一歩",
		Body:    "小さな前進を積み重ねよう。",
		Excerpt: "小さな前進を…",
		Personality: &model.Personality{
			Type:  model.PersonalityTone,
			Value: "encouraging",
		},
		SentAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

// --- POST /api/generate-message テスト ---

func TestMessageHandler_Generate_Success(t *testing.T) {
	h := NewMessageHandler(&mockMessageService{})

	body := `{"email": "taro@example.com", "timezone": "Asia/Tokyo"}`
	req := httptest.NewRequest(http.MethodPost, "/api/generate-message", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	h.Generate(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	result := decodeJSONBody(t, w)
	if result["subject"] != "今日の一歩" {
		t.Errorf("subject = %v, want %q", result["subject"], "今日の一歩")
	}
	if result["personality_display"] != "encouraging" {
		t.Errorf("personality_display = %v, want %q", result["personality_display"], "encouraging")
	}
	// 表示時刻はリクエストのタイムゾーンで整形される（UTC 0時 = JST 9時）
	if result["sent_at_display"] != "Mar 1, 2026 · 9:00 AM (Asia/Tokyo)" {
		t.Errorf("sent_at_display = %v, want %q", result["sent_at_display"], "Mar 1, 2026 · 9:00 AM (Asia/Tokyo)")
	}
}

func TestMessageHandler_Generate_UpstreamError_ReturnsBadGateway(t *testing.T) {
	svc := &mockMessageService{
		generateMessageFn: func(ctx context.Context, payload any) (*model.Message, error) {
			return nil, model.NewUpstreamUnreachableError("connection refused")
		},
	}
	h := NewMessageHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/generate-message", bytes.NewBufferString(`{}`))
	w := httptest.NewRecorder()

	h.Generate(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadGateway)
	}
	errResp := parseAPIErrorResponse(t, w)
	if errResp["code"] != "UPSTREAM_UNREACHABLE" {
		t.Errorf("code = %q, want %q", errResp["code"], "UPSTREAM_UNREACHABLE")
	}
}

// --- POST /api/send-now/{email} テスト ---

func TestMessageHandler_SendNow_Success(t *testing.T) {
	var gotEmail string
	svc := &mockMessageService{
		sendNowFn: func(ctx context.Context, email string) error {
			gotEmail = email
			return nil
		},
	}
	h := NewMessageHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/send-now/taro@example.com", nil)
	req = withChiURLParam(req, "email", "taro@example.com")
	w := httptest.NewRecorder()

	h.SendNow(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotEmail != "taro@example.com" {
		t.Errorf("email = %q, want %q", gotEmail, "taro@example.com")
	}
}

// --- GET /api/users/{email}/message-history テスト ---

func TestMessageHandler_History_PassesSanitizedFilter(t *testing.T) {
	var gotFilter model.Filter
	svc := &mockMessageService{
		messageHistoryFn: func(ctx context.Context, email string, filter model.Filter) ([]model.Message, error) {
			gotFilter = filter
			return []model.Message{*testMessage()}, nil
		},
	}
	h := NewMessageHandler(svc)

	req := httptest.NewRequest(http.MethodGet,
		"/api/users/taro@example.com/message-history?start_date=2026-01-01&end_date=2026-01-31&personality=encouraging", nil)
	req = withChiURLParam(req, "email", "taro@example.com")
	w := httptest.NewRecorder()

	h.History(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if gotFilter.StartDate != "2026-01-01" {
		t.Errorf("StartDate = %q, want %q", gotFilter.StartDate, "2026-01-01")
	}
	if gotFilter.EndDate != "2026-01-31" {
		t.Errorf("EndDate = %q, want %q", gotFilter.EndDate, "2026-01-31")
	}
	if gotFilter.Personality != "encouraging" {
		t.Errorf("Personality = %q, want %q", gotFilter.Personality, "encouraging")
	}

	result := decodeJSONBody(t, w)
	messages, ok := result["messages"].([]interface{})
	if !ok || len(messages) != 1 {
		t.Fatalf("messages = %v, want 1件", result["messages"])
	}
}

func TestMessageHandler_History_UserLookupFails_FallsBackToUTC(t *testing.T) {
	svc := &mockMessageService{
		getUserFn: func(ctx context.Context, email string) (*model.User, error) {
			return nil, model.NewUpstreamUnreachableError("connection refused")
		},
	}
	h := NewMessageHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/users/taro@example.com/message-history", nil)
	req = withChiURLParam(req, "email", "taro@example.com")
	w := httptest.NewRecorder()

	h.History(w, req)

	// タイムゾーン解決の失敗は履歴取得自体を失敗させない
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	result := decodeJSONBody(t, w)
	messages, ok := result["messages"].([]interface{})
	if !ok || len(messages) != 1 {
		t.Fatalf("messages = %v, want 1件", result["messages"])
	}
	first, ok := messages[0].(map[string]interface{})
	if !ok {
		t.Fatal("message should be an object")
	}
	if first["sent_at_display"] != "Mar 1, 2026 · 12:00 AM" {
		t.Errorf("sent_at_display = %v, want %q", first["sent_at_display"], "Mar 1, 2026 · 12:00 AM")
	}
}

// --- POST /api/users/{email}/feedback テスト ---

func TestMessageHandler_Feedback_Success(t *testing.T) {
	var gotPayload any
	svc := &mockMessageService{
		submitFeedbackFn: func(ctx context.Context, email string, payload any) error {
			gotPayload = payload
			return nil
		},
	}
	h := NewMessageHandler(svc)

	body := `{"message_id": "msg-1", "rating": 4}`
	req := httptest.NewRequest(http.MethodPost, "/api/users/taro@example.com/feedback", bytes.NewBufferString(body))
	req = withChiURLParam(req, "email", "taro@example.com")
	w := httptest.NewRecorder()

	h.Feedback(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	req2, ok := gotPayload.(feedbackRequest)
	if !ok {
		t.Fatalf("payload type = %T, want feedbackRequest", gotPayload)
	}
	if req2.MessageID != "msg-1" {
		t.Errorf("MessageID = %q, want %q", req2.MessageID, "msg-1")
	}
	if req2.Rating == nil || *req2.Rating != 4 {
		t.Errorf("Rating = %v, want 4", req2.Rating)
	}
}

func TestMessageHandler_Feedback_MissingMessageID_ReturnsBadRequest(t *testing.T) {
	h := NewMessageHandler(&mockMessageService{})

	body := `{"rating": 4}`
	req := httptest.NewRequest(http.MethodPost, "/api/users/taro@example.com/feedback", bytes.NewBufferString(body))
	req = withChiURLParam(req, "email", "taro@example.com")
	w := httptest.NewRecorder()

	h.Feedback(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestMessageHandler_Feedback_NoRatingOrReply_ReturnsBadRequest(t *testing.T) {
	h := NewMessageHandler(&mockMessageService{})

	body := `{"message_id": "msg-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/users/taro@example.com/feedback", bytes.NewBufferString(body))
	req = withChiURLParam(req, "email", "taro@example.com")
	w := httptest.NewRecorder()

	h.Feedback(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestMessageHandler_Feedback_RatingOutOfRange_ReturnsBadRequest(t *testing.T) {
	h := NewMessageHandler(&mockMessageService{})

	body := `{"message_id": "msg-1", "rating": 6}`
	req := httptest.NewRequest(http.MethodPost, "/api/users/taro@example.com/feedback", bytes.NewBufferString(body))
	req = withChiURLParam(req, "email", "taro@example.com")
	w := httptest.NewRecorder()

	h.Feedback(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestMessageHandler_Feedback_ReplyOnly_Succeeds(t *testing.T) {
	h := NewMessageHandler(&mockMessageService{})

	body := `{"message_id": "msg-1", "reply": "ありがとう"}`
	req := httptest.NewRequest(http.MethodPost, "/api/users/taro@example.com/feedback", bytes.NewBufferString(body))
	req = withChiURLParam(req, "email", "taro@example.com")
	w := httptest.NewRecorder()

	h.Feedback(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

// --- POST /api/users/{email}/messages/{id}/favorite テスト ---

func TestMessageHandler_Favorite_ReturnsConfirmedState(t *testing.T) {
	svc := &mockMessageService{
		toggleFavoriteFn: func(ctx context.Context, email, messageID string, favorite bool) (bool, error) {
			if messageID != "msg-1" {
				t.Errorf("messageID = %q, want %q", messageID, "msg-1")
			}
			// サーバー確定値がリクエスト値と異なるケース
			return false, nil
		},
	}
	h := NewMessageHandler(svc)

	body := `{"is_favorite": true}`
	req := httptest.NewRequest(http.MethodPost, "/api/users/taro@example.com/messages/msg-1/favorite", bytes.NewBufferString(body))
	req = withChiURLParam2(req, "email", "taro@example.com", "id", "msg-1")
	w := httptest.NewRecorder()

	h.Favorite(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	result := decodeJSONBody(t, w)
	if result["is_favorite"] != false {
		t.Errorf("is_favorite = %v, want false", result["is_favorite"])
	}
}

func TestMessageHandler_Favorite_NotFound_ReturnsNotFound(t *testing.T) {
	svc := &mockMessageService{
		toggleFavoriteFn: func(ctx context.Context, email, messageID string, favorite bool) (bool, error) {
			return false, &model.APIError{
				Code:     "MESSAGE_NOT_FOUND",
				Message:  "メッセージが見つかりません",
				Category: "not_found",
				Action:   "対象のメッセージIDを確認してください",
			}
		},
	}
	h := NewMessageHandler(svc)

	body := `{"is_favorite": true}`
	req := httptest.NewRequest(http.MethodPost, "/api/users/taro@example.com/messages/ghost/favorite", bytes.NewBufferString(body))
	req = withChiURLParam2(req, "email", "taro@example.com", "id", "ghost")
	w := httptest.NewRecorder()

	h.Favorite(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}
