// Package sanitize はバックエンドAPIから受信した信頼できないペイロードを
// 正規化するサニタイズ層を提供する。
//
// バックエンドのスキーマ変更や不正な型の混入があっても描画側を壊さないため、
// すべての操作は全域的（あらゆる入力に対して定義される）であり、決して
// panicせず、欠損や不正は安全なデフォルト値へ退化させる。
package sanitize

import (
	"time"

	"github.com/hitoshi/tend/internal/model"
)

// personalityTypes はPersonality.Typeとして許可される値。
var personalityTypes = map[string]model.PersonalityType{
	"famous": model.PersonalityFamous,
	"tone":   model.PersonalityTone,
	"custom": model.PersonalityCustom,
}

// frequencies はSchedule.Frequencyとして許可される値。
var frequencies = map[string]model.Frequency{
	"daily":   model.FrequencyDaily,
	"weekly":  model.FrequencyWeekly,
	"monthly": model.FrequencyMonthly,
	"custom":  model.FrequencyCustom,
}

// Sanitizer はデコード済みJSON値（any）をドメインモデルへ正規化する。
// created_at等の欠損時に使用する現在時刻はテストのために注入可能。
type Sanitizer struct {
	now func() time.Time
}

// New はSanitizerの新しいインスタンスを生成する。
func New() *Sanitizer {
	return &Sanitizer{now: time.Now}
}

// NewWithClock は現在時刻関数を差し替えたSanitizerを生成する。テスト用。
func NewWithClock(now func() time.Time) *Sanitizer {
	return &Sanitizer{now: now}
}

// User はユーザーペイロードを正規化する。
// オブジェクトでない入力にはnilを返す。それ以外は全フィールドを型強制し、
// personalitiesはPersonalityを通してnilを除去、scheduleはScheduleを通す。
func (s *Sanitizer) User(v any) *model.User {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}

	u := &model.User{
		ID:            coerceString(obj["id"]),
		Email:         coerceString(obj["email"]),
		Name:          coerceString(obj["name"]),
		Goals:         coerceString(obj["goals"]),
		Active:        coerceBool(obj["active"]),
		Personalities: []model.Personality{},
		Schedule:      s.Schedule(obj["schedule"]),
	}

	if list, ok := obj["personalities"].([]any); ok {
		for _, p := range list {
			if sp := s.Personality(p); sp != nil {
				u.Personalities = append(u.Personalities, *sp)
			}
		}
	}

	if n, ok := asNumber(obj["current_personality_index"]); ok {
		u.CurrentPersonalityIndex = int(n)
	}

	return u
}

// Personality は語り口ペイロードを正規化する。
// nil入力にはnilを返す。裸の文字列はcustomタイプとして包み、
// オブジェクトはType・Value・Active・CreatedAtを型強制する。
// Typeが許可値以外の場合はcustomへ丸める。
// Activeは明示的にfalseでない限りtrueとする。
func (s *Sanitizer) Personality(v any) *model.Personality {
	if v == nil {
		return nil
	}

	if str, ok := v.(string); ok {
		return &model.Personality{
			Type:      model.PersonalityCustom,
			Value:     str,
			Active:    true,
			CreatedAt: s.now(),
		}
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}

	p := &model.Personality{
		ID:        coerceString(obj["id"]),
		Type:      model.PersonalityCustom,
		Value:     coerceString(obj["value"]),
		Active:    true,
		CreatedAt: parseTimestamp(obj["created_at"], s.now()),
	}

	if t, ok := personalityTypes[coerceString(obj["type"])]; ok {
		p.Type = t
	}
	if active, ok := obj["active"].(bool); ok && !active {
		p.Active = false
	}

	return p
}

// Schedule はスケジュールペイロードを正規化する。
// オブジェクトでない入力には完全なデフォルトスケジュールを返す。
// timesは空にならない: times配列が空または欠損の場合はレガシーな単数形の
// timeフィールドを採用し、それも無ければ["09:00"]で埋める。
func (s *Sanitizer) Schedule(v any) model.Schedule {
	obj, ok := v.(map[string]any)
	if !ok {
		return model.DefaultSchedule()
	}

	sc := model.DefaultSchedule()

	if f, ok := frequencies[coerceString(obj["frequency"])]; ok {
		sc.Frequency = f
	}

	sc.Times = coerceTimes(obj)

	if tz, ok := obj["timezone"].(string); ok {
		sc.Timezone = tz
	}

	sc.Paused = coerceBool(obj["paused"])
	sc.SkipNext = coerceBool(obj["skip_next"])

	if days, ok := obj["custom_days"].([]any); ok {
		for _, d := range days {
			if str, ok := d.(string); ok {
				sc.CustomDays = append(sc.CustomDays, str)
			}
		}
	}

	if n, ok := asNumber(obj["custom_interval"]); ok && n > 0 {
		sc.CustomInterval = int(n)
	}

	if dates, ok := obj["monthly_dates"].([]any); ok {
		for _, d := range dates {
			if n, ok := asNumber(d); ok && n >= 1 && n <= 31 {
				sc.MonthlyDates = append(sc.MonthlyDates, int(n))
			}
		}
	}

	return sc
}

// coerceTimes はtimes配列または単数形timeから配信時刻リストを導出する。
func coerceTimes(obj map[string]any) []string {
	if list, ok := obj["times"].([]any); ok && len(list) > 0 {
		times := make([]string, 0, len(list))
		for _, t := range list {
			if str, ok := t.(string); ok {
				times = append(times, str)
			}
		}
		if len(times) > 0 {
			return times
		}
	}
	if t, ok := obj["time"].(string); ok && t != "" {
		return []string{t}
	}
	return []string{"09:00"}
}

// Message はメッセージ履歴ペイロードを正規化する。
// オブジェクトでない入力にはnilを返す。
// ratingは元から数値である場合のみ保持し、それ以外はnilとする。
// Excerptは本文からHTMLを除いたプレビュー文字列として導出する。
func (s *Sanitizer) Message(v any) *model.Message {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}

	body := coerceString(obj["message"])

	m := &model.Message{
		ID:           coerceString(obj["id"]),
		Email:        coerceString(obj["email"]),
		Subject:      coerceString(obj["subject"]),
		Body:         body,
		Excerpt:      Excerpt(body, excerptMaxLen),
		Personality:  s.Personality(obj["personality"]),
		SentAt:       parseTimestamp(obj["sent_at"], s.now()),
		UsedFallback: coerceBool(obj["used_fallback"]),
		IsFavorite:   coerceBool(obj["is_favorite"]),
	}

	if n, ok := asNumber(obj["rating"]); ok {
		rating := int(n)
		m.Rating = &rating
	}

	if replies, ok := obj["replies"].([]any); ok {
		for _, r := range replies {
			if str, ok := r.(string); ok {
				m.Replies = append(m.Replies, str)
			}
		}
	}

	return m
}

// Messages はメッセージ配列を正規化する。
// 配列でない入力には空スライスを返し、個々の不正要素は除去する。
func (s *Sanitizer) Messages(v any) []model.Message {
	list, ok := v.([]any)
	if !ok {
		return []model.Message{}
	}

	messages := make([]model.Message, 0, len(list))
	for _, item := range list {
		if m := s.Message(item); m != nil {
			messages = append(messages, *m)
		}
	}
	return messages
}

// Filter は履歴検索条件を正規化する。
// オブジェクトでない入力には全フィールド空文字のデフォルトを返す。
// personalityはオブジェクトで渡された場合value/nameを取り出す。
func (s *Sanitizer) Filter(v any) model.Filter {
	obj, ok := v.(map[string]any)
	if !ok {
		return model.Filter{}
	}

	f := model.Filter{
		StartDate: stringOrEmpty(obj["startDate"]),
		EndDate:   stringOrEmpty(obj["endDate"]),
		Email:     stringOrEmpty(obj["email"]),
	}

	switch p := obj["personality"].(type) {
	case string:
		f.Personality = p
	case map[string]any:
		if val, ok := p["value"].(string); ok {
			f.Personality = val
		} else if name, ok := p["name"].(string); ok {
			f.Personality = name
		}
	}

	return f
}
