// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/tend/internal/model"
)

// SessionCookieName は管理者セッションIDを保持するCookie名。
const SessionCookieName = "tend_admin_session"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// adminTokenContextKey はリクエストコンテキストに管理トークンを格納するためのキー。
var adminTokenContextKey = contextKey("admin_token")

// SessionResolver はセッションIDから管理トークンを解決するインターフェース。
// session.Serviceの部分集合として定義する。
type SessionResolver interface {
	Resolve(ctx context.Context, sessionID string) (string, error)
}

// NewAdminSessionMiddleware はHTTP Only Cookieからセッションを読み取り、
// 解決した管理トークンをリクエストコンテキストに注入するミドルウェアを返す。
// ハンドラーがCookieやストアを直接読むことはない。
// 未認証リクエストには統一フォーマットの401を返す。
func NewAdminSessionMiddleware(resolver SessionResolver, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. CookieからセッションIDを取得
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			// 2. セッションから管理トークンを解決
			token, err := resolver.Resolve(r.Context(), cookie.Value)
			if err != nil {
				logger.Warn("セッションの解決に失敗しました",
					slog.String("error", err.Error()),
				)
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			// 3. 管理トークンをコンテキストに注入
			ctx := context.WithValue(r.Context(), adminTokenContextKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminTokenFromContext はリクエストコンテキストから管理トークンを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func AdminTokenFromContext(ctx context.Context) (string, error) {
	token, ok := ctx.Value(adminTokenContextKey).(string)
	if !ok || token == "" {
		return "", fmt.Errorf("admin token not found in context")
	}
	return token, nil
}

// ContextWithAdminToken はコンテキストに管理トークンを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithAdminToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, adminTokenContextKey, token)
}
