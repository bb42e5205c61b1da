package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/tend/internal/middleware"
	"github.com/hitoshi/tend/internal/model"
	"github.com/hitoshi/tend/internal/swipe"
)

// GestureFavoriteService はスワイプ確定時のお気に入り反映を担うサービス。
type GestureFavoriteService interface {
	ToggleFavorite(ctx context.Context, email, messageID string, favorite bool) (bool, error)
}

// GestureMetrics はスワイプ確定の計測先。
type GestureMetrics interface {
	RecordGestureCommit(action string)
}

type nopGestureMetrics struct{}

func (nopGestureMetrics) RecordGestureCommit(string) {}

// favoriteAdapter はGestureFavoriteServiceをswipe.FavoriteTogglerへ適合させる。
type favoriteAdapter struct {
	service GestureFavoriteService
	metrics GestureMetrics
}

func (a *favoriteAdapter) ToggleFavorite(ctx context.Context, email, messageID string, favorite bool) (bool, error) {
	confirmed, err := a.service.ToggleFavorite(ctx, email, messageID, favorite)
	if err != nil {
		return false, err
	}
	a.metrics.RecordGestureCommit("favorite")
	return confirmed, nil
}

// archiveRecorder は左スワイプ確定の記録を担う。
// カードの除去はクライアント側の表示状態であり、バックエンドには反映しない。
type archiveRecorder struct {
	metrics GestureMetrics
	logger  *slog.Logger
}

func (a *archiveRecorder) Archive(email, messageID string) {
	a.metrics.RecordGestureCommit("archive")
	a.logger.Info("カードをアーカイブしました",
		slog.String("email", email),
		slog.String("message_id", messageID),
	)
}

// GestureHandler はスワイプ操作のHTTPハンドラー。
// 薄いクライアント向けに、ポインタイベントをサーバー側の状態機械で処理する。
// 状態機械はユーザーごとに1つ保持し、カードの切り替えで再束縛する。
type GestureHandler struct {
	favorites GestureFavoriteService
	metrics   GestureMetrics
	logger    *slog.Logger
	clock     swipe.Clock

	mu       sync.Mutex
	machines map[string]*swipe.Machine
}

// NewGestureHandler はGestureHandlerを生成する。
func NewGestureHandler(favorites GestureFavoriteService, metrics GestureMetrics, logger *slog.Logger, clock swipe.Clock) *GestureHandler {
	if metrics == nil {
		metrics = nopGestureMetrics{}
	}
	if clock == nil {
		clock = swipe.SystemClock()
	}
	return &GestureHandler{
		favorites: favorites,
		metrics:   metrics,
		logger:    logger,
		clock:     clock,
		machines:  make(map[string]*swipe.Machine),
	}
}

// machineFor はユーザーの状態機械を取得または作成する。
func (h *GestureHandler) machineFor(email string) *swipe.Machine {
	h.mu.Lock()
	defer h.mu.Unlock()

	if m, ok := h.machines[email]; ok {
		return m
	}
	m := swipe.NewMachine(
		h.clock,
		&favoriteAdapter{service: h.favorites, metrics: h.metrics},
		&archiveRecorder{metrics: h.metrics, logger: h.logger},
	)
	h.machines[email] = m
	return m
}

// gestureRequest はポインタイベントのリクエストボディ。
type gestureRequest struct {
	Event    string  `json:"event"` // begin / move / end
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Favorite bool    `json:"favorite"` // beginイベントでのカード初期状態
}

// gestureResponse は操作後の状態スナップショット。
type gestureResponse struct {
	Accepted  bool           `json:"accepted"`
	Outcome   *swipe.Outcome `json:"outcome,omitempty"`
	Direction string         `json:"direction"`
	Rotation  float64        `json:"rotation"`
	Opacity   float64        `json:"opacity"`
	Favorite  bool           `json:"favorite"`
}

// directionLabel はUI表示用の方向ラベルを返す。
func directionLabel(d swipe.Direction) string {
	switch d {
	case swipe.DirectionLeft:
		return "left"
	case swipe.DirectionRight:
		return "right"
	default:
		return "none"
	}
}

// Gesture はカードへのポインタイベントを処理する。
// POST /api/users/{email}/cards/{id}/gesture
func (h *GestureHandler) Gesture(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	if !requireEmailParam(w, email) {
		return
	}
	messageID := chi.URLParam(r, "id")

	var req gestureRequest
	if !decodeBody(w, r, &req) {
		return
	}

	machine := h.machineFor(email)

	var outcome *swipe.Outcome
	accepted := true

	switch req.Event {
	case "begin":
		// 別カードへの操作開始は自動的に再束縛する
		if machine.Snapshot().MessageID != messageID {
			machine.Bind(email, messageID, req.Favorite)
		}
		accepted = machine.Begin(req.X, req.Y)
	case "move":
		machine.Move(req.X, req.Y)
	case "end":
		// 非同期のお気に入り反映はリクエストの寿命に縛らない
		result := machine.End(context.WithoutCancel(r.Context()))
		outcome = &result
	default:
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("eventはbegin/move/endのいずれかで指定してください"))
		return
	}

	snap := machine.Snapshot()
	writeJSON(w, http.StatusOK, gestureResponse{
		Accepted:  accepted,
		Outcome:   outcome,
		Direction: directionLabel(machine.ActiveDirection()),
		Rotation:  machine.Rotation(),
		Opacity:   machine.Opacity(),
		Favorite:  snap.Favorite,
	})
}
