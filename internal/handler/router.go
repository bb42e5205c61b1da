package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/tend/internal/middleware"
	"github.com/hitoshi/tend/internal/sanitize"
	"github.com/hitoshi/tend/internal/swipe"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	SessionResolver   middleware.SessionResolver

	// ユーザー
	UserService UserServiceInterface

	// メッセージ
	MessageService MessageServiceInterface

	// 分析・実績
	InsightService InsightServiceInterface

	// スワイプジェスチャー
	GestureFavorites GestureFavoriteService
	GestureMetrics   GestureMetrics
	GestureClock     swipe.Clock

	// 管理
	AdminService  AdminServiceInterface
	SessionSvc    SessionServiceInterface
	AdminConfig   AdminHandlerConfig
	BroadcastHTML sanitize.BroadcastCleanerService

	// 稼働状態
	StatusSource StatusSource

	// Prometheusメトリクス公開ハンドラー
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORSMiddleware → SecurityHeadersMiddleware → RecoveryMiddleware
//	→ LoggingMiddleware → RateLimitMiddleware(GeneralMiddleware)
//
// /health と /metrics はレート制限の外に配置する。
// /api/admin/* はさらにAdminSessionMiddlewareを要求する
// （login/logoutだけはセッション不要）。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルートに効くミドルウェア
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewRecoveryMiddleware(deps.Logger))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))

	userHandler := NewUserHandler(deps.UserService)
	messageHandler := NewMessageHandler(deps.MessageService)
	insightHandler := NewInsightHandler(deps.InsightService)
	gestureHandler := NewGestureHandler(deps.GestureFavorites, deps.GestureMetrics, deps.Logger, deps.GestureClock)
	adminHandler := NewAdminHandler(deps.AdminService, deps.SessionSvc, deps.BroadcastHTML, deps.AdminConfig)
	statusHandler := NewStatusHandler(deps.StatusSource)

	// --- 監視用ルート（レート制限なし） ---
	r.Get("/health", statusHandler.Health)
	r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)

	// --- 一般APIルート ---
	// ミドルウェアスタック: RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// バックエンド接続状態
		r.Get("/api/status", statusHandler.Status)

		// オンボーディング
		r.Post("/api/onboarding", userHandler.Onboarding)

		// メッセージ生成・即時配信（プレビュー生成はボディでユーザー情報を受ける）
		r.Post("/api/generate-message", messageHandler.Generate)
		r.Post("/api/send-now/{email}", messageHandler.SendNow)

		// ユーザー管理
		r.Route("/api/users/{email}", func(r chi.Router) {
			r.Get("/", userHandler.GetUser)
			r.Put("/", userHandler.UpdateUser)

			// メッセージ操作
			r.Get("/message-history", messageHandler.History)
			r.Post("/feedback", messageHandler.Feedback)
			r.Post("/messages/{id}/favorite", messageHandler.Favorite)

			// カードスワイプジェスチャー
			r.Post("/cards/{id}/gesture", gestureHandler.Gesture)

			// 分析・実績・カレンダー
			r.Get("/analytics", insightHandler.Analytics)
			r.Get("/achievements", insightHandler.Achievements)
			r.Get("/streak-calendar", insightHandler.Calendar)
		})

		// 配信停止（ワンクリック解除のためメールアドレスはクエリで受ける）
		r.Post("/api/unsubscribe", userHandler.Unsubscribe)

		// --- 管理ルート ---
		r.Route("/api/admin", func(r chi.Router) {
			// ログイン・ログアウトはセッション不要
			r.Post("/login", adminHandler.Login)
			r.Post("/logout", adminHandler.Logout)

			// ミドルウェアスタック: RateLimit(General) → AdminSession
			r.Group(func(r chi.Router) {
				r.Use(middleware.NewAdminSessionMiddleware(deps.SessionResolver, deps.Logger))

				r.Get("/stats", adminHandler.Stats)
				r.Get("/users", adminHandler.Users)
				r.Get("/users/{email}/details", adminHandler.UserDetails)
				r.Get("/email-logs", adminHandler.EmailLogs)
				r.Get("/email-statistics", adminHandler.EmailStatistics)
				r.Get("/feedback", adminHandler.Feedback)
				r.Get("/errors", adminHandler.Errors)
				r.Get("/message-history", adminHandler.MessageHistory)
				r.Get("/analytics/trends", adminHandler.AnalyticsTrends)
				r.Get("/database/health", adminHandler.DatabaseHealth)
				r.Get("/search", adminHandler.Search)

				r.Route("/scheduler/jobs", func(r chi.Router) {
					r.Get("/", adminHandler.SchedulerJobs)
					r.Post("/{id}/trigger", adminHandler.TriggerSchedulerJob)
				})

				// POST /api/admin/broadcast - 一斉配信（専用レート制限を追加）
				r.With(deps.RateLimiter.BroadcastMiddleware()).Post("/broadcast", adminHandler.Broadcast)
			})
		})
	})

	return r
}
