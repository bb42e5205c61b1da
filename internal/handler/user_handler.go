package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/tend/internal/middleware"
	"github.com/hitoshi/tend/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
// upstream.Clientの部分集合として定義する。
type UserServiceInterface interface {
	// CreateOnboarding は新規ユーザーを登録する。
	CreateOnboarding(ctx context.Context, payload any) (*model.User, error)
	// GetUser はユーザー情報を取得する。未登録は制御フローエラーを返す。
	GetUser(ctx context.Context, email string) (*model.User, error)
	// UpdateUser はユーザー情報を更新する。
	UpdateUser(ctx context.Context, email string, payload any) (*model.User, error)
	// Unsubscribe は配信停止を要求する。
	Unsubscribe(ctx context.Context, email string) error
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// Onboarding は新規ユーザー登録を処理する。
// POST /api/onboarding
func (h *UserHandler) Onboarding(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if !decodeBody(w, r, &payload) {
		return
	}

	email, _ := payload["email"].(string)
	if !validEmail(email) {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("メールアドレスの形式が不正です"))
		return
	}

	user, err := h.service.CreateOnboarding(r.Context(), payload)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

// GetUser はユーザー情報取得を処理する。
// GET /api/users/{email}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	if !requireEmailParam(w, email) {
		return
	}

	user, err := h.service.GetUser(r.Context(), email)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// UpdateUser はユーザー情報更新を処理する。
// PUT /api/users/{email}
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	if !requireEmailParam(w, email) {
		return
	}

	var payload map[string]any
	if !decodeBody(w, r, &payload) {
		return
	}

	user, err := h.service.UpdateUser(r.Context(), email, payload)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// Unsubscribe は配信停止を処理する。
// POST /api/unsubscribe?email=
func (h *UserHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if !requireEmailParam(w, email) {
		return
	}

	if err := h.service.Unsubscribe(r.Context(), email); err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"unsubscribed": true})
}
