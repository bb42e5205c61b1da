package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix はRedisキーの名前空間。他用途のキーとの衝突を避ける。
const keyPrefix = "tend:session:"

// RedisStore はRedisを使用するセッションストア。
// TTLはRedis側のキー有効期限で管理されるため、期限切れセッションの
// 掃除処理は不要。複数インスタンス構成でもセッションが共有される。
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore は接続URLからRedisStoreを生成する。
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("Redis接続URLのパースに失敗しました: %w", err)
	}
	return &RedisStore{client: redis.NewClient(opts)}, nil
}

// Ping はRedisへの接続を確認する。起動時の疎通チェックに使用する。
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close は接続を閉じる。
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Save はセッションをTTL付きで保存する。
func (s *RedisStore) Save(ctx context.Context, sessionID, token string, ttl time.Duration) error {
	if err := s.client.Set(ctx, keyPrefix+sessionID, token, ttl).Err(); err != nil {
		return fmt.Errorf("セッションの保存に失敗しました: %w", err)
	}
	return nil
}

// Get はセッションIDに対応するトークンを返す。不在の場合は空文字を返す。
func (s *RedisStore) Get(ctx context.Context, sessionID string) (string, error) {
	token, err := s.client.Get(ctx, keyPrefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("セッションの取得に失敗しました: %w", err)
	}
	return token, nil
}

// Delete はセッションを破棄する。
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, keyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("セッションの削除に失敗しました: %w", err)
	}
	return nil
}
