package handler

import (
	"time"

	"github.com/hitoshi/tend/internal/model"
	"github.com/hitoshi/tend/internal/render"
)

// scheduleResponse はスケジュールのAPIレスポンス。表示用整形済み文字列を含む。
type scheduleResponse struct {
	Frequency       string   `json:"frequency"`
	Times           []string `json:"times"`
	TimesDisplay    []string `json:"times_display"`
	Timezone        string   `json:"timezone"`
	TimezoneDisplay string   `json:"timezone_display"`
	Paused          bool     `json:"paused"`
	SkipNext        bool     `json:"skip_next"`
	CustomDays      []string `json:"custom_days,omitempty"`
	CustomInterval  int      `json:"custom_interval"`
	MonthlyDates    []int    `json:"monthly_dates,omitempty"`
}

func toScheduleResponse(s model.Schedule) scheduleResponse {
	display := make([]string, len(s.Times))
	for i, t := range s.Times {
		display[i] = render.FormatScheduleTime(t, s.Timezone, true)
	}
	return scheduleResponse{
		Frequency:       string(s.Frequency),
		Times:           s.Times,
		TimesDisplay:    display,
		Timezone:        s.Timezone,
		TimezoneDisplay: render.DisplayTimezone(s.Timezone),
		Paused:          s.Paused,
		SkipNext:        s.SkipNext,
		CustomDays:      s.CustomDays,
		CustomInterval:  s.CustomInterval,
		MonthlyDates:    s.MonthlyDates,
	}
}

// personalityResponse は語り口のAPIレスポンス。
type personalityResponse struct {
	ID        string    `json:"id,omitempty"`
	Type      string    `json:"type"`
	Value     string    `json:"value"`
	Display   string    `json:"display"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func toPersonalityResponse(p model.Personality) personalityResponse {
	return personalityResponse{
		ID:        p.ID,
		Type:      string(p.Type),
		Value:     p.Value,
		Display:   render.SafePersonalityValue(p),
		Active:    p.Active,
		CreatedAt: p.CreatedAt,
	}
}

// userResponse はユーザー情報のAPIレスポンス。
type userResponse struct {
	ID                      string                `json:"id,omitempty"`
	Email                   string                `json:"email"`
	Name                    string                `json:"name"`
	Goals                   string                `json:"goals"`
	Active                  bool                  `json:"active"`
	Personalities           []personalityResponse `json:"personalities"`
	CurrentPersonalityIndex int                   `json:"current_personality_index"`
	Schedule                scheduleResponse      `json:"schedule"`
}

func toUserResponse(u *model.User) userResponse {
	personalities := make([]personalityResponse, len(u.Personalities))
	for i, p := range u.Personalities {
		personalities[i] = toPersonalityResponse(p)
	}
	return userResponse{
		ID:                      u.ID,
		Email:                   u.Email,
		Name:                    u.Name,
		Goals:                   u.Goals,
		Active:                  u.Active,
		Personalities:           personalities,
		CurrentPersonalityIndex: u.CurrentPersonalityIndex,
		Schedule:                toScheduleResponse(u.Schedule),
	}
}

// messageResponse はメッセージのAPIレスポンス。表示用整形済み文字列を含む。
type messageResponse struct {
	ID                 string               `json:"id"`
	Subject            string               `json:"subject"`
	Message            string               `json:"message"`
	Excerpt            string               `json:"excerpt"`
	Personality        *personalityResponse `json:"personality,omitempty"`
	PersonalityDisplay string               `json:"personality_display"`
	SentAt             time.Time            `json:"sent_at"`
	SentAtDisplay      string               `json:"sent_at_display"`
	Rating             *int                 `json:"rating,omitempty"`
	UsedFallback       bool                 `json:"used_fallback"`
	IsFavorite         bool                 `json:"is_favorite"`
	Replies            []string             `json:"replies,omitempty"`
}

// toMessageResponse はメッセージを表示用レスポンスへ変換する。
// timezoneはユーザーのスケジュールタイムゾーン。
func toMessageResponse(m model.Message, timezone string) messageResponse {
	resp := messageResponse{
		ID:                 m.ID,
		Subject:            m.Subject,
		Message:            m.Body,
		Excerpt:            m.Excerpt,
		PersonalityDisplay: render.SafePersonalityValue(m.Personality),
		SentAt:             m.SentAt,
		SentAtDisplay:      render.FormatDateTimeForTimezone(m.SentAt.Format(time.RFC3339), timezone, true),
		Rating:             m.Rating,
		UsedFallback:       m.UsedFallback,
		IsFavorite:         m.IsFavorite,
		Replies:            m.Replies,
	}
	if m.Personality != nil {
		p := toPersonalityResponse(*m.Personality)
		resp.Personality = &p
	}
	return resp
}
