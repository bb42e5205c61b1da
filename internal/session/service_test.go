package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hitoshi/tend/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeVerifier はトークン検証の結果を差し替え可能なTokenVerifier。
type fakeVerifier struct {
	err    error
	tokens []string
}

func (f *fakeVerifier) AdminStats(_ context.Context, token string) (any, error) {
	f.tokens = append(f.tokens, token)
	if f.err != nil {
		return nil, f.err
	}
	return map[string]any{"total_users": 1}, nil
}

// TestLogin_IssuesSessionAndStoresToken はログイン成功時にセッションが
// 発行され、ストアでトークンが解決できることをテストする。
func TestLogin_IssuesSessionAndStoresToken(t *testing.T) {
	store := NewMemoryStore()
	verifier := &fakeVerifier{}
	svc := NewService(store, verifier, time.Hour, testLogger())

	sessionID, err := svc.Login(context.Background(), "admin-token")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if sessionID == "" {
		t.Fatal("セッションIDが空")
	}
	if len(verifier.tokens) != 1 || verifier.tokens[0] != "admin-token" {
		t.Errorf("検証されたトークン = %v", verifier.tokens)
	}

	token, err := svc.Resolve(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if token != "admin-token" {
		t.Errorf("token = %q, want admin-token", token)
	}
}

// TestLogin_EmptyTokenRejected は空トークンが検証前に拒否されることをテストする。
func TestLogin_EmptyTokenRejected(t *testing.T) {
	verifier := &fakeVerifier{}
	svc := NewService(NewMemoryStore(), verifier, time.Hour, testLogger())

	_, err := svc.Login(context.Background(), "")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidation {
		t.Fatalf("VALIDATION_FAILEDが返るべき: %v", err)
	}
	if len(verifier.tokens) != 0 {
		t.Error("空トークンでバックエンド検証をしてはいけない")
	}
}

// TestLogin_InvalidTokenRejected は検証失敗時にセッションが
// 発行されないことをテストする。
func TestLogin_InvalidTokenRejected(t *testing.T) {
	verifier := &fakeVerifier{err: model.NewUnauthorizedError()}
	svc := NewService(NewMemoryStore(), verifier, time.Hour, testLogger())

	_, err := svc.Login(context.Background(), "bad-token")
	if err == nil {
		t.Fatal("検証失敗時はエラーが返るべき")
	}
}

// TestLogout_InvalidatesSession はログアウト後にセッションが
// 解決できなくなることをテストする。
func TestLogout_InvalidatesSession(t *testing.T) {
	svc := NewService(NewMemoryStore(), &fakeVerifier{}, time.Hour, testLogger())

	sessionID, err := svc.Login(context.Background(), "admin-token")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if err := svc.Logout(context.Background(), sessionID); err != nil {
		t.Fatalf("Logout() error: %v", err)
	}

	_, err = svc.Resolve(context.Background(), sessionID)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUnauthorized {
		t.Fatalf("破棄済みセッションはUNAUTHORIZEDであるべき: %v", err)
	}
}

// TestResolve_UnknownSession は未知のセッションIDが認証エラーに
// なることをテストする。
func TestResolve_UnknownSession(t *testing.T) {
	svc := NewService(NewMemoryStore(), &fakeVerifier{}, time.Hour, testLogger())

	for _, id := range []string{"", "no-such-session"} {
		_, err := svc.Resolve(context.Background(), id)
		var apiErr *model.APIError
		if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUnauthorized {
			t.Errorf("Resolve(%q)はUNAUTHORIZEDであるべき: %v", id, err)
		}
	}
}

// TestMemoryStore_Expiry はTTL経過後にセッションが消えることをテストする。
func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore()
	current := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	if err := store.Save(context.Background(), "s1", "token", time.Hour); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	token, _ := store.Get(context.Background(), "s1")
	if token != "token" {
		t.Fatalf("期限内のGet = %q, want token", token)
	}

	current = current.Add(2 * time.Hour)
	token, _ = store.Get(context.Background(), "s1")
	if token != "" {
		t.Errorf("期限切れのGet = %q, want empty", token)
	}
}

// TestNewService_DefaultMaxAge は不正なmaxAgeがデフォルト値へ
// 置き換えられることをテストする。
func TestNewService_DefaultMaxAge(t *testing.T) {
	svc := NewService(NewMemoryStore(), &fakeVerifier{}, 0, testLogger())
	if svc.MaxAge() != time.Hour {
		t.Errorf("MaxAge = %v, want 1h", svc.MaxAge())
	}
}
