package middleware

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/tend/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeResolver はセッション解決の結果を固定するSessionResolver。
type fakeResolver struct {
	sessions map[string]string
}

func (f *fakeResolver) Resolve(_ context.Context, sessionID string) (string, error) {
	if token, ok := f.sessions[sessionID]; ok {
		return token, nil
	}
	return "", model.NewUnauthorizedError()
}

// TestAdminSessionMiddleware_InjectsToken は有効なセッションCookieから
// 管理トークンがコンテキストへ注入されることをテストする。
func TestAdminSessionMiddleware_InjectsToken(t *testing.T) {
	resolver := &fakeResolver{sessions: map[string]string{"s1": "admin-token"}}

	var gotToken string
	handler := NewAdminSessionMiddleware(resolver, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken, _ = AdminTokenFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "s1"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotToken != "admin-token" {
		t.Errorf("token = %q, want admin-token", gotToken)
	}
}

// TestAdminSessionMiddleware_MissingCookie はCookieなしのリクエストが
// 統一フォーマットの401になることをテストする。
func TestAdminSessionMiddleware_MissingCookie(t *testing.T) {
	handler := NewAdminSessionMiddleware(&fakeResolver{}, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("未認証リクエストは後続ハンドラーへ到達してはいけない")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	var body ErrorResponseBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("エラーレスポンスのデコードに失敗: %v", err)
	}
	if body.Code != model.ErrCodeUnauthorized {
		t.Errorf("Code = %s, want %s", body.Code, model.ErrCodeUnauthorized)
	}
}

// TestAdminSessionMiddleware_UnknownSession は無効なセッションIDが
// 401になることをテストする。
func TestAdminSessionMiddleware_UnknownSession(t *testing.T) {
	handler := NewAdminSessionMiddleware(&fakeResolver{}, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("無効セッションは後続ハンドラーへ到達してはいけない")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "no-such-session"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

// TestAdminTokenFromContext_Empty はトークン未注入のコンテキストで
// エラーが返ることをテストする。
func TestAdminTokenFromContext_Empty(t *testing.T) {
	if _, err := AdminTokenFromContext(context.Background()); err == nil {
		t.Error("未注入コンテキストではエラーが返るべき")
	}

	ctx := ContextWithAdminToken(context.Background(), "tok")
	token, err := AdminTokenFromContext(ctx)
	if err != nil || token != "tok" {
		t.Errorf("token = %q, err = %v", token, err)
	}
}
