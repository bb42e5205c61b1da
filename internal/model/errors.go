// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, upstream, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUpstreamUnreachable = "UPSTREAM_UNREACHABLE"
	ErrCodeUpstreamError       = "UPSTREAM_ERROR"
	ErrCodeNeedsOnboarding     = "NEEDS_ONBOARDING"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeValidation          = "VALIDATION_FAILED"
	ErrCodeMessageNotFound     = "MESSAGE_NOT_FOUND"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// NewUpstreamUnreachableError はバックエンド接続不可エラーを生成する。
// 致命的エラーではなく、UI側では警告バナーとして表示される想定。
func NewUpstreamUnreachableError(cause string) *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamUnreachable,
		Message:  fmt.Sprintf("バックエンドに接続できません: %s", cause),
		Category: "upstream",
		Action:   "接続は自動的に再試行されます。しばらくお待ちください。",
	}
}

// NewUpstreamError はバックエンドがエラーステータスを返した場合のエラーを生成する。
func NewUpstreamError(statusCode int) *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamError,
		Message:  fmt.Sprintf("バックエンドがステータス %d を返しました", statusCode),
		Category: "upstream",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewNeedsOnboardingError はユーザー未登録を示すエラーを生成する。
// 404は失敗ではなくオンボーディングへ誘導する制御フローシグナルとして扱う。
func NewNeedsOnboardingError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeNeedsOnboarding,
		Message:  fmt.Sprintf("ユーザーが見つかりません: %s", email),
		Category: "validation",
		Action:   "オンボーディングを完了してください。",
	}
}

// NewUnauthorizedError は認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "管理トークンでログインしてください。",
	}
}

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(detail string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力が不正です: %s", detail),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}
