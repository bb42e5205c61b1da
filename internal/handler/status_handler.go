package handler

import (
	"net/http"
	"time"

	"github.com/hitoshi/tend/internal/status"
)

// StatusSource はバックエンド接続状態のスナップショット取得インターフェース。
// status.Pollerが実装する。
type StatusSource interface {
	Snapshot() status.Snapshot
}

// StatusHandler はヘルスチェックとバックエンド接続状態のHTTPハンドラー。
type StatusHandler struct {
	source StatusSource
}

// NewStatusHandler はStatusHandlerを生成する。
func NewStatusHandler(source StatusSource) *StatusHandler {
	return &StatusHandler{source: source}
}

// Health は自プロセスの生存確認を返す。GET /health
// バックエンドの状態には依存しない。
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// Status はバックエンドの接続状態を返す。GET /api/status
// ポーラーが保持する最新スナップショットを返すだけで、
// このリクエスト自体はバックエンドへ問い合わせない。
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	snap := h.source.Snapshot()

	body := map[string]any{
		"connected":  snap.Connected,
		"checked_at": snap.CheckedAt.Format(time.RFC3339),
	}
	if snap.LastError != "" {
		body["last_error"] = snap.LastError
	}
	writeJSON(w, http.StatusOK, body)
}
