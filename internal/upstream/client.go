// Package upstream はバックエンドAPIのクライアントを提供する。
// すべてのレスポンスはsanitize層を通してから呼び出し元へ返される。
// バックエンドのスキーマ変更が描画層まで波及しないための境界となる。
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/tend/internal/model"
	"github.com/hitoshi/tend/internal/sanitize"
)

// userAgent は外向きリクエストのUser-Agentヘッダー。
const userAgent = "Tend/1.0 BFF"

// ErrNotFound はバックエンドが404を返したことを示す内部シグナル。
// GetUserではオンボーディング誘導へ変換される。
var ErrNotFound = errors.New("upstream resource not found")

// Observer はリクエスト計測の通知先を抽象化する。metricsパッケージが実装する。
type Observer interface {
	// ObserveRequest はエンドポイント別のリクエスト結果とレイテンシを記録する。
	// outcomeは ok / error / unreachable のいずれか。
	ObserveRequest(endpoint, outcome string, seconds float64)
	// SanitizeFallback はサニタイズ層が不正形ペイロードをデフォルト値へ
	// 退化させたことを記録する。
	SanitizeFallback(entity string)
}

// nopObserver は計測なしのObserver。
type nopObserver struct{}

func (nopObserver) ObserveRequest(string, string, float64) {}
func (nopObserver) SanitizeFallback(string)                {}

// Client はバックエンドAPIのクライアント。
type Client struct {
	baseURL    string
	httpClient *http.Client
	sanitizer  *sanitize.Sanitizer
	logger     *slog.Logger
	observer   Observer
}

// Option はClientの生成時オプション。
type Option func(*Client)

// WithObserver はリクエスト計測の通知先を設定する。
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		sanitizer:  sanitize.New(),
		logger:     logger,
		observer:   nopObserver{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// do はバックエンドへのHTTPリクエストを実行し、デコード済みJSON値を返す。
// 接続不可はUPSTREAM_UNREACHABLE、4xx/5xxは状態に応じたAPIErrorへ変換する。
// レスポンスボディがJSONとして解釈できない場合はnilを返し、
// 形の正規化はsanitize層に委ねる。
func (c *Client) do(ctx context.Context, endpoint, method, path string, query url.Values, payload any, token string) (any, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	// リクエストボディ構築
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("リクエストボディのエンコードに失敗しました: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	// HTTPリクエスト実行
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		c.observer.ObserveRequest(endpoint, "unreachable", elapsed)
		c.logger.Error("バックエンドへの接続に失敗しました",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
		return nil, model.NewUpstreamUnreachableError(err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.observer.ObserveRequest(endpoint, "error", elapsed)
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	// HTTPステータスチェック
	switch {
	case resp.StatusCode == http.StatusNotFound:
		c.observer.ObserveRequest(endpoint, "error", elapsed)
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.observer.ObserveRequest(endpoint, "error", elapsed)
		return nil, model.NewUnauthorizedError()
	case resp.StatusCode >= 400:
		c.observer.ObserveRequest(endpoint, "error", elapsed)
		c.logger.Error("バックエンドがエラーステータスを返しました",
			slog.String("endpoint", endpoint),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, model.NewUpstreamError(resp.StatusCode)
	}

	c.observer.ObserveRequest(endpoint, "ok", elapsed)

	if len(raw) == 0 {
		return nil, nil
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		// 形の不正はエラーにせずsanitize層のデフォルト退化に任せる
		c.logger.Warn("バックエンドのレスポンスがJSONとして解釈できません",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
		return nil, nil
	}
	return decoded, nil
}

// asObject はデコード済みJSON値をオブジェクトへ変換する。
// オブジェクトでない値には空マップを返す。
func asObject(v any) map[string]any {
	if obj, ok := v.(map[string]any); ok {
		return obj
	}
	return map[string]any{}
}

// CreateOnboarding は新規ユーザーを登録する。
func (c *Client) CreateOnboarding(ctx context.Context, payload any) (*model.User, error) {
	raw, err := c.do(ctx, "onboarding", http.MethodPost, "/api/onboarding", nil, payload, "")
	if err != nil {
		return nil, err
	}
	return c.userFrom(raw), nil
}

// GetUser はユーザー情報を取得する。
// 404は失敗ではなくオンボーディング誘導の制御フローとして扱う。
func (c *Client) GetUser(ctx context.Context, email string) (*model.User, error) {
	raw, err := c.do(ctx, "get_user", http.MethodGet, "/api/users/"+url.PathEscape(email), nil, nil, "")
	if errors.Is(err, ErrNotFound) {
		return nil, model.NewNeedsOnboardingError(email)
	}
	if err != nil {
		return nil, err
	}
	return c.userFrom(raw), nil
}

// UpdateUser はユーザー情報を更新する。
func (c *Client) UpdateUser(ctx context.Context, email string, payload any) (*model.User, error) {
	raw, err := c.do(ctx, "update_user", http.MethodPut, "/api/users/"+url.PathEscape(email), nil, payload, "")
	if errors.Is(err, ErrNotFound) {
		return nil, model.NewNeedsOnboardingError(email)
	}
	if err != nil {
		return nil, err
	}
	return c.userFrom(raw), nil
}

// userFrom はレスポンスをユーザーモデルへ正規化する。
// レスポンスがuserフィールドで包まれている形式にも対応する。
func (c *Client) userFrom(raw any) *model.User {
	obj := asObject(raw)
	if inner, ok := obj["user"].(map[string]any); ok {
		obj = inner
	}
	u := c.sanitizer.User(obj)
	if u == nil {
		c.observer.SanitizeFallback("user")
		u = c.sanitizer.User(map[string]any{})
	}
	return u
}

// GenerateMessage はメッセージのプレビュー生成を要求する。
func (c *Client) GenerateMessage(ctx context.Context, payload any) (*model.Message, error) {
	raw, err := c.do(ctx, "generate_message", http.MethodPost, "/api/generate-message", nil, payload, "")
	if err != nil {
		return nil, err
	}
	m := c.sanitizer.Message(asObject(raw))
	if m == nil {
		c.observer.SanitizeFallback("message")
		m = c.sanitizer.Message(map[string]any{})
	}
	return m, nil
}

// SendNow は即時配信を要求する。
func (c *Client) SendNow(ctx context.Context, email string) error {
	_, err := c.do(ctx, "send_now", http.MethodPost, "/api/send-now/"+url.PathEscape(email), nil, nil, "")
	if errors.Is(err, ErrNotFound) {
		return model.NewNeedsOnboardingError(email)
	}
	return err
}

// MessageHistory はメッセージ履歴を取得する。
// レスポンスがmessagesフィールドで包まれている形式と裸の配列の両方に対応する。
func (c *Client) MessageHistory(ctx context.Context, email string, filter model.Filter) ([]model.Message, error) {
	query := url.Values{}
	if filter.StartDate != "" {
		query.Set("start_date", filter.StartDate)
	}
	if filter.EndDate != "" {
		query.Set("end_date", filter.EndDate)
	}
	if filter.Personality != "" {
		query.Set("personality", filter.Personality)
	}

	raw, err := c.do(ctx, "message_history", http.MethodGet, "/api/users/"+url.PathEscape(email)+"/message-history", query, nil, "")
	if errors.Is(err, ErrNotFound) {
		return nil, model.NewNeedsOnboardingError(email)
	}
	if err != nil {
		return nil, err
	}

	if obj, ok := raw.(map[string]any); ok {
		if list, ok := obj["messages"]; ok {
			return c.sanitizer.Messages(list), nil
		}
	}
	return c.sanitizer.Messages(raw), nil
}

// SubmitFeedback はメッセージへの評価・返信を送信する。
func (c *Client) SubmitFeedback(ctx context.Context, email string, payload any) error {
	_, err := c.do(ctx, "feedback", http.MethodPost, "/api/users/"+url.PathEscape(email)+"/feedback", nil, payload, "")
	if errors.Is(err, ErrNotFound) {
		return model.NewNeedsOnboardingError(email)
	}
	return err
}

// ToggleFavorite はメッセージのお気に入り状態を更新し、確定後の状態を返す。
func (c *Client) ToggleFavorite(ctx context.Context, email, messageID string, favorite bool) (bool, error) {
	path := "/api/users/" + url.PathEscape(email) + "/messages/" + url.PathEscape(messageID) + "/favorite"
	raw, err := c.do(ctx, "toggle_favorite", http.MethodPost, path, nil, map[string]any{"is_favorite": favorite}, "")
	if errors.Is(err, ErrNotFound) {
		return false, &model.APIError{
			Code:     model.ErrCodeMessageNotFound,
			Message:  fmt.Sprintf("メッセージが見つかりません: %s", messageID),
			Category: "validation",
			Action:   "履歴を再読み込みしてください。",
		}
	}
	if err != nil {
		return false, err
	}

	obj := asObject(raw)
	if state, ok := obj["is_favorite"].(bool); ok {
		return state, nil
	}
	// 状態が返らない場合は要求値を確定値とみなす
	return favorite, nil
}

// Analytics はユーザーの配信統計を取得する。
func (c *Client) Analytics(ctx context.Context, email string) (map[string]any, error) {
	raw, err := c.do(ctx, "analytics", http.MethodGet, "/api/users/"+url.PathEscape(email)+"/analytics", nil, nil, "")
	if errors.Is(err, ErrNotFound) {
		return nil, model.NewNeedsOnboardingError(email)
	}
	if err != nil {
		return nil, err
	}
	return asObject(raw), nil
}

// Achievements はユーザーの達成状況（ストリーク等）を取得する。
func (c *Client) Achievements(ctx context.Context, email string) (map[string]any, error) {
	raw, err := c.do(ctx, "achievements", http.MethodGet, "/api/users/"+url.PathEscape(email)+"/achievements", nil, nil, "")
	if errors.Is(err, ErrNotFound) {
		return nil, model.NewNeedsOnboardingError(email)
	}
	if err != nil {
		return nil, err
	}
	return asObject(raw), nil
}

// Unsubscribe は配信停止を要求する。
func (c *Client) Unsubscribe(ctx context.Context, email string) error {
	query := url.Values{}
	query.Set("email", email)
	_, err := c.do(ctx, "unsubscribe", http.MethodPost, "/api/unsubscribe", query, nil, "")
	if errors.Is(err, ErrNotFound) {
		return model.NewNeedsOnboardingError(email)
	}
	return err
}

// Health はバックエンドの死活確認を行う。接続ポーラーから使用される。
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, "health", http.MethodGet, "/health", nil, nil, "")
	return err
}

// adminGet は管理APIのGETエンドポイントを呼び出す共通処理。
func (c *Client) adminGet(ctx context.Context, endpoint, path string, query url.Values, token string) (any, error) {
	if token == "" {
		return nil, model.NewUnauthorizedError()
	}
	return c.do(ctx, endpoint, http.MethodGet, path, query, nil, token)
}

// AdminStats は管理ダッシュボードの統計を取得する。
// セッション確立時のトークン検証にも使用される。
func (c *Client) AdminStats(ctx context.Context, token string) (any, error) {
	return c.adminGet(ctx, "admin_stats", "/api/admin/stats", nil, token)
}

// AdminUsers は全ユーザー一覧を取得する。
func (c *Client) AdminUsers(ctx context.Context, token string) (any, error) {
	return c.adminGet(ctx, "admin_users", "/api/admin/users", nil, token)
}

// AdminEmailLogs は配信ログを取得する。
func (c *Client) AdminEmailLogs(ctx context.Context, token string) (any, error) {
	return c.adminGet(ctx, "admin_email_logs", "/api/admin/email-logs", nil, token)
}

// AdminFeedback は全ユーザーのフィードバックを取得する。
func (c *Client) AdminFeedback(ctx context.Context, token string) (any, error) {
	return c.adminGet(ctx, "admin_feedback", "/api/admin/feedback", nil, token)
}

// AdminErrors はエラーログを取得する。
func (c *Client) AdminErrors(ctx context.Context, token string) (any, error) {
	return c.adminGet(ctx, "admin_errors", "/api/admin/errors", nil, token)
}

// AdminSchedulerJobs はスケジューラーのジョブ一覧を取得する。
func (c *Client) AdminSchedulerJobs(ctx context.Context, token string) (any, error) {
	return c.adminGet(ctx, "admin_scheduler_jobs", "/api/admin/scheduler/jobs", nil, token)
}

// AdminTriggerSchedulerJob はジョブの即時実行を要求する。
func (c *Client) AdminTriggerSchedulerJob(ctx context.Context, token, jobID string) (any, error) {
	if token == "" {
		return nil, model.NewUnauthorizedError()
	}
	path := "/api/admin/scheduler/jobs/" + url.PathEscape(jobID) + "/trigger"
	return c.do(ctx, "admin_trigger_job", http.MethodPost, path, nil, nil, token)
}

// AdminDatabaseHealth はバックエンドのデータベース状態を取得する。
func (c *Client) AdminDatabaseHealth(ctx context.Context, token string) (any, error) {
	return c.adminGet(ctx, "admin_database_health", "/api/admin/database/health", nil, token)
}

// AdminSearch はユーザー・メッセージの横断検索を行う。
func (c *Client) AdminSearch(ctx context.Context, token, q string) (any, error) {
	query := url.Values{}
	query.Set("q", q)
	return c.adminGet(ctx, "admin_search", "/api/admin/search", query, token)
}

// AdminBroadcast は全ユーザーへの一斉配信を要求する。
// 本文HTMLは呼び出し側でサニタイズ済みであること。
func (c *Client) AdminBroadcast(ctx context.Context, token string, payload any) (any, error) {
	if token == "" {
		return nil, model.NewUnauthorizedError()
	}
	return c.do(ctx, "admin_broadcast", http.MethodPost, "/api/admin/broadcast", nil, payload, token)
}

// AdminUserDetails は特定ユーザーの詳細情報を取得する。
func (c *Client) AdminUserDetails(ctx context.Context, token, email string) (any, error) {
	return c.adminGet(ctx, "admin_user_details", "/api/admin/users/"+url.PathEscape(email)+"/details", nil, token)
}

// AdminEmailStatistics は配信統計を取得する。
func (c *Client) AdminEmailStatistics(ctx context.Context, token string) (any, error) {
	return c.adminGet(ctx, "admin_email_statistics", "/api/admin/email-statistics", nil, token)
}

// AdminAnalyticsTrends は利用傾向の集計を取得する。
func (c *Client) AdminAnalyticsTrends(ctx context.Context, token string) (any, error) {
	return c.adminGet(ctx, "admin_analytics_trends", "/api/admin/analytics/trends", nil, token)
}

// AdminMessageHistory は全ユーザーのメッセージ履歴を取得する。
func (c *Client) AdminMessageHistory(ctx context.Context, token string) (any, error) {
	return c.adminGet(ctx, "admin_message_history", "/api/admin/message-history", nil, token)
}
