package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/tend/internal/model"
)

// TokenVerifier は管理トークンの有効性確認を抽象化する。
// upstream.Clientが実装する（統計エンドポイントへの認証付きアクセスで検証）。
type TokenVerifier interface {
	AdminStats(ctx context.Context, token string) (any, error)
}

// Service は管理者セッションのライフサイクルを管理する。
type Service struct {
	store    Store
	verifier TokenVerifier
	maxAge   time.Duration
	logger   *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
// maxAgeが0以下の場合はデフォルト値1時間を使用する。
func NewService(store Store, verifier TokenVerifier, maxAge time.Duration, logger *slog.Logger) *Service {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &Service{
		store:    store,
		verifier: verifier,
		maxAge:   maxAge,
		logger:   logger,
	}
}

// MaxAge はセッションの有効期間を返す。Cookie属性の設定に使用する。
func (s *Service) MaxAge() time.Duration {
	return s.maxAge
}

// Login は管理トークンを検証し、新しいセッションを発行する。
// 検証はバックエンドの管理統計エンドポイントへの認証付きアクセスで行う。
// トークン自体はサーバー側ストアにのみ保存され、呼び出し元へは
// セッションIDだけを返す。
func (s *Service) Login(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", model.NewValidationError("管理トークンが指定されていません")
	}

	// 1. バックエンドでトークンを検証
	if _, err := s.verifier.AdminStats(ctx, token); err != nil {
		s.logger.Warn("管理トークンの検証に失敗しました",
			slog.String("error", err.Error()),
		)
		return "", err
	}

	// 2. セッションを発行
	sessionID := uuid.New().String()
	if err := s.store.Save(ctx, sessionID, token, s.maxAge); err != nil {
		return "", err
	}

	s.logger.Info("管理者セッションを発行しました",
		slog.String("session_id", sessionID),
	)
	return sessionID, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return err
	}
	s.logger.Info("管理者セッションを破棄しました",
		slog.String("session_id", sessionID),
	)
	return nil
}

// Resolve はセッションIDから管理トークンを解決する。
// セッションが不在または期限切れの場合は認証エラーを返す。
func (s *Service) Resolve(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", model.NewUnauthorizedError()
	}

	token, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", model.NewUnauthorizedError()
	}
	return token, nil
}
