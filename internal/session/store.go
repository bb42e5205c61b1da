// Package session は管理者セッションの発行・解決・破棄を提供する。
// 管理トークンはTTL付きでサーバー側にのみ保持し、Cookieにはセッション
// IDだけを載せる。トークンがTTLを超えて残ることはない。
package session

import (
	"context"
	"sync"
	"time"
)

// Store はセッションIDと管理トークンの対応の保管先を抽象化する。
type Store interface {
	// Save はセッションをTTL付きで保存する。
	Save(ctx context.Context, sessionID, token string, ttl time.Duration) error
	// Get はセッションIDに対応するトークンを返す。
	// 不在または期限切れの場合は空文字を返す。
	Get(ctx context.Context, sessionID string) (string, error)
	// Delete はセッションを破棄する。不在の場合もエラーにしない。
	Delete(ctx context.Context, sessionID string) error
}

// memoryEntry はメモリストアの1エントリ。
type memoryEntry struct {
	token     string
	expiresAt time.Time
}

// MemoryStore はプロセス内メモリのセッションストア。
// 開発環境とテストで使用する。再起動で全セッションが消える。
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore はMemoryStoreの新しいインスタンスを生成する。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Save はセッションをTTL付きで保存する。
func (s *MemoryStore) Save(_ context.Context, sessionID, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sessionID] = memoryEntry{
		token:     token,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

// Get はセッションIDに対応するトークンを返す。
// 期限切れのエントリはこの時点で削除する。
func (s *MemoryStore) Get(_ context.Context, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[sessionID]
	if !ok {
		return "", nil
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, sessionID)
		return "", nil
	}
	return entry.token, nil
}

// Delete はセッションを破棄する。
func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionID)
	return nil
}
