package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/tend/internal/middleware"
	"github.com/hitoshi/tend/internal/model"
	"github.com/hitoshi/tend/internal/streak"
)

// InsightServiceInterface は統計・達成状況ハンドラーが必要とするサービスインターフェース。
type InsightServiceInterface interface {
	// Analytics はユーザーの配信統計を取得する。
	Analytics(ctx context.Context, email string) (map[string]any, error)
	// Achievements はユーザーの達成状況（ストリーク等）を取得する。
	Achievements(ctx context.Context, email string) (map[string]any, error)
	// GetUser はカレンダーのタイムゾーン解決に使用する。
	GetUser(ctx context.Context, email string) (*model.User, error)
}

// InsightHandler は統計・達成状況のHTTPハンドラー。
type InsightHandler struct {
	service InsightServiceInterface
	// now はテストのために注入可能な現在時刻関数。
	now func() time.Time
}

// NewInsightHandler はInsightHandlerを生成する。
func NewInsightHandler(service InsightServiceInterface) *InsightHandler {
	return &InsightHandler{
		service: service,
		now:     time.Now,
	}
}

// Analytics は配信統計取得を処理する。
// GET /api/users/{email}/analytics
func (h *InsightHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	if !requireEmailParam(w, email) {
		return
	}

	stats, err := h.service.Analytics(r.Context(), email)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// Achievements は達成状況取得を処理する。ストリークのマイルストーン進捗を
// バックエンドの生データに加えて返す。
// GET /api/users/{email}/achievements
func (h *InsightHandler) Achievements(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	if !requireEmailParam(w, email) {
		return
	}

	achievements, err := h.service.Achievements(r.Context(), email)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	streakCount, lastSent := extractStreak(achievements)
	achievements["milestones"] = streak.ComputeMilestones(streakCount, lastSent)

	writeJSON(w, http.StatusOK, achievements)
}

// calendarResponse はストリークカレンダーのAPIレスポンス。
type calendarResponse struct {
	Grid       streak.Grid       `json:"grid"`
	Milestones streak.Milestones `json:"milestones"`
	CanGoNext  bool              `json:"can_go_next"`
	IsCurrent  bool              `json:"is_current"`
}

// Calendar はストリークカレンダー取得を処理する。
// GET /api/users/{email}/streak-calendar?year=&month=
// year/month未指定時はユーザーのタイムゾーンでの今月を使用する。
func (h *InsightHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	if !requireEmailParam(w, email) {
		return
	}

	achievements, err := h.service.Achievements(r.Context(), email)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	// カレンダーの「今日」はユーザーのタイムゾーンで判定する
	loc := time.UTC
	if user, err := h.service.GetUser(r.Context(), email); err == nil && user.Schedule.Timezone != "" {
		if parsed, err := time.LoadLocation(user.Schedule.Timezone); err == nil {
			loc = parsed
		}
	}
	today := h.now().In(loc)

	ref := streak.MonthOf(today)
	query := r.URL.Query()
	if y, err := strconv.Atoi(query.Get("year")); err == nil {
		if m, err := strconv.Atoi(query.Get("month")); err == nil && m >= 1 && m <= 12 {
			ref = streak.MonthRef{Year: y, Month: time.Month(m)}
		}
	}
	// 未来の月は今月へクランプする
	if !ref.CanGoNext(today) && !ref.IsCurrent(today) {
		ref = streak.MonthOf(today)
	}

	streakCount, lastSent := extractStreak(achievements)

	writeJSON(w, http.StatusOK, calendarResponse{
		Grid:       streak.BuildMonthGrid(ref.Year, ref.Month, streakCount, lastSent, today, loc),
		Milestones: streak.ComputeMilestones(streakCount, lastSent),
		CanGoNext:  ref.CanGoNext(today),
		IsCurrent:  ref.IsCurrent(today),
	})
}

// extractStreak はバックエンドの達成状況マップからストリーク日数と
// 最終配信日時を取り出す。新旧のフィールド名の両方に対応する。
func extractStreak(achievements map[string]any) (int, *time.Time) {
	streakCount := 0
	for _, key := range []string{"current_streak", "streak_count"} {
		if n, ok := achievements[key].(float64); ok {
			streakCount = int(n)
			break
		}
	}

	for _, key := range []string{"last_sent_at", "last_email_date"} {
		if s, ok := achievements[key].(string); ok && s != "" {
			for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
				if t, err := time.Parse(layout, s); err == nil {
					return streakCount, &t
				}
			}
		}
	}
	return streakCount, nil
}
