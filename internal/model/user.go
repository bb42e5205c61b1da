// Package model はドメインモデルを定義する。
package model

import "time"

// PersonalityType はメッセージの語り口の種別を表す。
type PersonalityType string

const (
	// PersonalityFamous は著名人の語り口を示す。
	PersonalityFamous PersonalityType = "famous"
	// PersonalityTone はトーンラベル（例: encouraging）を示す。
	PersonalityTone PersonalityType = "tone"
	// PersonalityCustom はユーザー定義の語り口を示す。
	// 不明な入力値はサニタイズ時にcustomへ丸められる。
	PersonalityCustom PersonalityType = "custom"
)

// Frequency は配信頻度を表す。
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyCustom  Frequency = "custom"
)

// User はサービス利用ユーザーのプロフィールと配信設定を表す。
// バックエンドAPIが所有するエンティティであり、クライアント側では
// サニタイズ済みの読み取り専用コピーとして扱う。
type User struct {
	ID                      string        `json:"id"`
	Email                   string        `json:"email"`
	Name                    string        `json:"name"`
	Goals                   string        `json:"goals"`
	Active                  bool          `json:"active"`
	Personalities           []Personality `json:"personalities"`
	CurrentPersonalityIndex int           `json:"current_personality_index"`
	Schedule                Schedule      `json:"schedule"`
}

// Personality はローテーションされるメッセージの語り口を表す。
type Personality struct {
	ID        string          `json:"id"`
	Type      PersonalityType `json:"type"`
	Value     string          `json:"value"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"created_at"`
}

// Schedule は配信スケジュール設定を表す。
// Timesはサニタイズ後は必ず1件以上を保持する。
type Schedule struct {
	Frequency      Frequency `json:"frequency"`
	Times          []string  `json:"times"`
	Timezone       string    `json:"timezone"`
	Paused         bool      `json:"paused"`
	SkipNext       bool      `json:"skip_next"`
	CustomDays     []string  `json:"custom_days"`
	CustomInterval int       `json:"custom_interval"`
	MonthlyDates   []int     `json:"monthly_dates"`
}

// DefaultSchedule はスケジュールの安全なデフォルト値を返す。
// サニタイズ層が非オブジェクト入力を受けた場合のフォールバックとして使用する。
func DefaultSchedule() Schedule {
	return Schedule{
		Frequency:      FrequencyDaily,
		Times:          []string{"09:00"},
		Timezone:       "UTC",
		Paused:         false,
		SkipNext:       false,
		CustomDays:     []string{},
		CustomInterval: 1,
		MonthlyDates:   []int{},
	}
}

// Message は送信済みまたは返信付きのメッセージ履歴項目を表す。
// バックエンドが生成・所有し、クライアントは評価やお気に入りの
// 注釈のみをAPI経由で行う。
type Message struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	Subject      string       `json:"subject"`
	Body         string       `json:"message"`
	Excerpt      string       `json:"excerpt,omitempty"`
	Personality  *Personality `json:"personality"`
	SentAt       time.Time    `json:"sent_at"`
	Rating       *int         `json:"rating"`
	UsedFallback bool         `json:"used_fallback"`
	IsFavorite   bool         `json:"is_favorite"`
	Replies      []string     `json:"replies,omitempty"`
}

// Filter はメッセージ履歴の検索条件を表す。
// UI上の一時的な状態であり、永続化しない。
type Filter struct {
	Email       string `json:"email"`
	Personality string `json:"personality"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
}
