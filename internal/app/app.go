// Package app はアプリケーションの起動と依存関係のワイヤリングを担う。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hitoshi/tend/internal/config"
	"github.com/hitoshi/tend/internal/handler"
	"github.com/hitoshi/tend/internal/logger"
	"github.com/hitoshi/tend/internal/metrics"
	"github.com/hitoshi/tend/internal/middleware"
	"github.com/hitoshi/tend/internal/sanitize"
	"github.com/hitoshi/tend/internal/security"
	"github.com/hitoshi/tend/internal/session"
	"github.com/hitoshi/tend/internal/status"
	"github.com/hitoshi/tend/internal/upstream"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

// Init はアプリケーションの初期化を行う。
// .envファイル（存在する場合）と環境変数からConfigを読み込み、
// JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. .envファイルの読み込み（ローカル開発用。存在しなくてもよい）
	_ = godotenv.Load()

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		// 設定読み込み失敗時もログは出せるようにデフォルトで初期化する
		logger.SetupDefault(w, "info")
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたレベルでログを初期化する
	logger.SetupDefault(w, cfg.LogLevel)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("upstream_base_url", cfg.UpstreamBaseURL),
	)

	return runServe(cfg)
}

// runServe はAPIサーバーモードで起動する。
// バックエンドAPIクライアントと全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	log := slog.Default()

	// 1. バックエンドURLの安全性検証とHTTPクライアントの構築
	guard := security.NewOutboundGuard()
	if err := guard.ValidateBaseURL(cfg.UpstreamBaseURL, cfg.UpstreamAllowPrivate); err != nil {
		return fmt.Errorf("upstream base URL rejected: %w", err)
	}
	httpClient := guard.NewOutboundClient(cfg.UpstreamTimeout, cfg.UpstreamAllowPrivate)

	// 2. メトリクスコレクターの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 3. バックエンドAPIクライアントの初期化
	client := upstream.NewClient(cfg.UpstreamBaseURL, httpClient, log,
		upstream.WithObserver(collector))

	// 4. 接続ステータスポーラーの起動
	poller := status.NewPoller(client, log, collector)

	pollCtx, stopPoller := context.WithCancel(context.Background())
	defer stopPoller()
	go poller.Start(pollCtx, cfg.StatusPollInterval)

	// 5. セッションストアの選択
	// REDIS_URLが設定されていればRedis、なければプロセス内メモリを使う
	var store session.Store
	if cfg.RedisURL != "" {
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to create redis session store: %w", err)
		}
		defer redisStore.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := redisStore.Ping(pingCtx); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		slog.Info("redis connection established")
		store = redisStore
	} else {
		slog.Info("using in-memory session store")
		store = session.NewMemoryStore()
	}

	sessionService := session.NewService(store, client,
		time.Duration(cfg.SessionMaxAge)*time.Second, log)

	// 6. レート制限の構築（configはreq/min単位、limiterはreq/sec単位）
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.BroadcastRate = rate.Limit(float64(cfg.RateLimitBroadcast) / 60.0)
	rateLimiterCfg.BroadcastBurst = cfg.RateLimitBroadcast
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg, log)
	defer rateLimiter.Stop()

	// 7. ルーターの構築
	deps := &handler.RouterDeps{
		Logger:            log,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		SessionResolver:   sessionService,

		UserService:    client,
		MessageService: client,
		InsightService: client,

		GestureFavorites: client,
		GestureMetrics:   collector,

		AdminService: client,
		SessionSvc:   sessionService,
		AdminConfig: handler.AdminHandlerConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		BroadcastHTML: sanitize.NewBroadcastCleaner(),

		StatusSource:   poller,
		MetricsHandler: metrics.Handler(registry),
	}

	router := handler.NewRouter(deps)

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	stopPoller()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
