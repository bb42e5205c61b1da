package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/tend/internal/middleware"
	"github.com/hitoshi/tend/internal/model"
	"github.com/hitoshi/tend/internal/sanitize"
)

// MessageServiceInterface はメッセージハンドラーが必要とするサービスインターフェース。
type MessageServiceInterface interface {
	// GenerateMessage はメッセージのプレビュー生成を要求する。
	GenerateMessage(ctx context.Context, payload any) (*model.Message, error)
	// SendNow は即時配信を要求する。
	SendNow(ctx context.Context, email string) error
	// MessageHistory はメッセージ履歴を取得する。
	MessageHistory(ctx context.Context, email string, filter model.Filter) ([]model.Message, error)
	// SubmitFeedback はメッセージへの評価・返信を送信する。
	SubmitFeedback(ctx context.Context, email string, payload any) error
	// ToggleFavorite はお気に入り状態を更新し、確定後の状態を返す。
	ToggleFavorite(ctx context.Context, email, messageID string, favorite bool) (bool, error)
	// GetUser は履歴表示のタイムゾーン解決に使用する。
	GetUser(ctx context.Context, email string) (*model.User, error)
}

// MessageHandler はメッセージ関連のHTTPハンドラー。
type MessageHandler struct {
	service   MessageServiceInterface
	sanitizer *sanitize.Sanitizer
}

// NewMessageHandler はMessageHandlerを生成する。
func NewMessageHandler(service MessageServiceInterface) *MessageHandler {
	return &MessageHandler{
		service:   service,
		sanitizer: sanitize.New(),
	}
}

// Generate はメッセージのプレビュー生成を処理する。
// POST /api/generate-message
func (h *MessageHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if !decodeBody(w, r, &payload) {
		return
	}

	msg, err := h.service.GenerateMessage(r.Context(), payload)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	timezone, _ := payload["timezone"].(string)
	writeJSON(w, http.StatusOK, toMessageResponse(*msg, timezone))
}

// SendNow は即時配信を処理する。
// POST /api/send-now/{email}
func (h *MessageHandler) SendNow(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	if !requireEmailParam(w, email) {
		return
	}

	if err := h.service.SendNow(r.Context(), email); err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"sent": true})
}

// History はメッセージ履歴取得を処理する。
// GET /api/users/{email}/message-history?start_date=&end_date=&personality=
func (h *MessageHandler) History(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	if !requireEmailParam(w, email) {
		return
	}

	// クエリの検索条件もサニタイズ層を通して正規化する
	query := r.URL.Query()
	filter := h.sanitizer.Filter(map[string]any{
		"startDate":   query.Get("start_date"),
		"endDate":     query.Get("end_date"),
		"personality": query.Get("personality"),
		"email":       email,
	})

	messages, err := h.service.MessageHistory(r.Context(), email, filter)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	// 表示タイムゾーンはユーザー設定に従う。取得できない場合はUTC表示。
	timezone := "UTC"
	if user, err := h.service.GetUser(r.Context(), email); err == nil && user.Schedule.Timezone != "" {
		timezone = user.Schedule.Timezone
	}

	responses := make([]messageResponse, len(messages))
	for i, m := range messages {
		responses[i] = toMessageResponse(m, timezone)
	}

	writeJSON(w, http.StatusOK, map[string]any{"messages": responses})
}

// feedbackRequest はフィードバック送信リクエストのボディ。
type feedbackRequest struct {
	MessageID string  `json:"message_id"`
	Rating    *int    `json:"rating,omitempty"`
	Reply     *string `json:"reply,omitempty"`
}

// Feedback はメッセージへの評価・返信送信を処理する。
// POST /api/users/{email}/feedback
func (h *MessageHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	if !requireEmailParam(w, email) {
		return
	}

	var req feedbackRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.MessageID == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("message_idが指定されていません"))
		return
	}
	if req.Rating == nil && req.Reply == nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("ratingまたはreplyのいずれかが必要です"))
		return
	}
	if req.Rating != nil && (*req.Rating < 1 || *req.Rating > 5) {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("ratingは1〜5で指定してください"))
		return
	}

	if err := h.service.SubmitFeedback(r.Context(), email, req); err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"accepted": true})
}

// favoriteRequest はお気に入り更新リクエストのボディ。
type favoriteRequest struct {
	IsFavorite bool `json:"is_favorite"`
}

// Favorite はお気に入り状態の更新を処理する。
// POST /api/users/{email}/messages/{id}/favorite
func (h *MessageHandler) Favorite(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	if !requireEmailParam(w, email) {
		return
	}
	messageID := chi.URLParam(r, "id")

	var req favoriteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	state, err := h.service.ToggleFavorite(r.Context(), email, messageID, req.IsFavorite)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"is_favorite": state})
}
