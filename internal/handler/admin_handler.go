package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/tend/internal/middleware"
	"github.com/hitoshi/tend/internal/model"
	"github.com/hitoshi/tend/internal/sanitize"
)

// AdminServiceInterface は管理ハンドラーが必要とするサービスインターフェース。
// upstream.Clientの管理APIの部分集合として定義する。
type AdminServiceInterface interface {
	AdminStats(ctx context.Context, token string) (any, error)
	AdminUsers(ctx context.Context, token string) (any, error)
	AdminEmailLogs(ctx context.Context, token string) (any, error)
	AdminFeedback(ctx context.Context, token string) (any, error)
	AdminErrors(ctx context.Context, token string) (any, error)
	AdminSchedulerJobs(ctx context.Context, token string) (any, error)
	AdminTriggerSchedulerJob(ctx context.Context, token, jobID string) (any, error)
	AdminDatabaseHealth(ctx context.Context, token string) (any, error)
	AdminSearch(ctx context.Context, token, q string) (any, error)
	AdminBroadcast(ctx context.Context, token string, payload any) (any, error)
	AdminUserDetails(ctx context.Context, token, email string) (any, error)
	AdminEmailStatistics(ctx context.Context, token string) (any, error)
	AdminAnalyticsTrends(ctx context.Context, token string) (any, error)
	AdminMessageHistory(ctx context.Context, token string) (any, error)
}

// SessionServiceInterface は管理者セッションのライフサイクルインターフェース。
// session.Serviceの部分集合として定義する。
type SessionServiceInterface interface {
	Login(ctx context.Context, token string) (string, error)
	Logout(ctx context.Context, sessionID string) error
	MaxAge() time.Duration
}

// AdminHandlerConfig は管理ハンドラーのCookie設定。
type AdminHandlerConfig struct {
	CookieSecure bool
	CookieDomain string
}

// AdminHandler は管理APIのHTTPハンドラー。
// 認証済みリクエストをバックエンドの管理APIへ中継する。
type AdminHandler struct {
	service  AdminServiceInterface
	sessions SessionServiceInterface
	cleaner  sanitize.BroadcastCleanerService
	config   AdminHandlerConfig
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(service AdminServiceInterface, sessions SessionServiceInterface, cleaner sanitize.BroadcastCleanerService, config AdminHandlerConfig) *AdminHandler {
	return &AdminHandler{
		service:  service,
		sessions: sessions,
		cleaner:  cleaner,
		config:   config,
	}
}

// loginRequest は管理ログインリクエストのボディ。
type loginRequest struct {
	Token string `json:"token"`
}

// Login は管理トークンの検証とセッション発行を処理する。
// POST /api/admin/login
// トークンはセッションストアにのみ保存され、CookieにはセッションIDだけを載せる。
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	sessionID, err := h.sessions.Login(r.Context(), strings.TrimSpace(req.Token))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   int(h.sessions.MaxAge().Seconds()),
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]any{"authenticated": true})
}

// Logout はセッション破棄を処理する。
// POST /api/admin/logout
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		if err := h.sessions.Logout(r.Context(), cookie.Value); err != nil {
			middleware.WriteError(w, err)
			return
		}
	}

	// Cookieを即時失効させる
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
}

// proxy はトークンを要する管理API呼び出しの共通処理。
func (h *AdminHandler) proxy(w http.ResponseWriter, r *http.Request, call func(ctx context.Context, token string) (any, error)) {
	token, err := middleware.AdminTokenFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	result, err := call(r.Context(), token)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Stats はダッシュボード統計を返す。GET /api/admin/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	h.proxy(w, r, h.service.AdminStats)
}

// Users は全ユーザー一覧を返す。GET /api/admin/users
func (h *AdminHandler) Users(w http.ResponseWriter, r *http.Request) {
	h.proxy(w, r, h.service.AdminUsers)
}

// EmailLogs は配信ログを返す。GET /api/admin/email-logs
func (h *AdminHandler) EmailLogs(w http.ResponseWriter, r *http.Request) {
	h.proxy(w, r, h.service.AdminEmailLogs)
}

// Feedback は全フィードバックを返す。GET /api/admin/feedback
func (h *AdminHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	h.proxy(w, r, h.service.AdminFeedback)
}

// Errors はエラーログを返す。GET /api/admin/errors
func (h *AdminHandler) Errors(w http.ResponseWriter, r *http.Request) {
	h.proxy(w, r, h.service.AdminErrors)
}

// SchedulerJobs はジョブ一覧を返す。GET /api/admin/scheduler/jobs
func (h *AdminHandler) SchedulerJobs(w http.ResponseWriter, r *http.Request) {
	h.proxy(w, r, h.service.AdminSchedulerJobs)
}

// TriggerSchedulerJob はジョブの即時実行を要求する。
// POST /api/admin/scheduler/jobs/{id}/trigger
func (h *AdminHandler) TriggerSchedulerJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	h.proxy(w, r, func(ctx context.Context, token string) (any, error) {
		return h.service.AdminTriggerSchedulerJob(ctx, token, jobID)
	})
}

// DatabaseHealth はデータベース状態を返す。GET /api/admin/database/health
func (h *AdminHandler) DatabaseHealth(w http.ResponseWriter, r *http.Request) {
	h.proxy(w, r, h.service.AdminDatabaseHealth)
}

// Search は横断検索を処理する。GET /api/admin/search?q=
func (h *AdminHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("検索キーワードqが指定されていません"))
		return
	}
	h.proxy(w, r, func(ctx context.Context, token string) (any, error) {
		return h.service.AdminSearch(ctx, token, q)
	})
}

// broadcastRequest は一斉配信リクエストのボディ。
type broadcastRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Broadcast は全ユーザーへの一斉配信を処理する。
// POST /api/admin/broadcast
// 本文HTMLは許可タグのみ残すサニタイズを通してからバックエンドへ中継する。
func (h *AdminHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Subject) == "" || strings.TrimSpace(req.Body) == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("subjectとbodyの両方が必要です"))
		return
	}

	cleaned := h.cleaner.Clean(req.Body)
	if strings.TrimSpace(cleaned) == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("サニタイズ後の本文が空になりました"))
		return
	}

	h.proxy(w, r, func(ctx context.Context, token string) (any, error) {
		return h.service.AdminBroadcast(ctx, token, map[string]any{
			"subject": req.Subject,
			"body":    cleaned,
		})
	})
}

// UserDetails は特定ユーザーの詳細を返す。GET /api/admin/users/{email}/details
func (h *AdminHandler) UserDetails(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	if !requireEmailParam(w, email) {
		return
	}
	h.proxy(w, r, func(ctx context.Context, token string) (any, error) {
		return h.service.AdminUserDetails(ctx, token, email)
	})
}

// EmailStatistics は配信統計を返す。GET /api/admin/email-statistics
func (h *AdminHandler) EmailStatistics(w http.ResponseWriter, r *http.Request) {
	h.proxy(w, r, h.service.AdminEmailStatistics)
}

// AnalyticsTrends は利用傾向を返す。GET /api/admin/analytics/trends
func (h *AdminHandler) AnalyticsTrends(w http.ResponseWriter, r *http.Request) {
	h.proxy(w, r, h.service.AdminAnalyticsTrends)
}

// MessageHistory は全ユーザーのメッセージ履歴を返す。GET /api/admin/message-history
func (h *AdminHandler) MessageHistory(w http.ResponseWriter, r *http.Request) {
	h.proxy(w, r, h.service.AdminMessageHistory)
}
